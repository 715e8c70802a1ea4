// Package bytecode defines the flat compiled form of a tape program.
//
// A Chunk is a linear array of instructions, one per source command. Loop
// brackets are not matched at run time: the compiler records, in each
// LoopBegin and LoopEnd instruction, the index of its partner, so the
// machine enters and leaves loops with a single jump.
//
// # Formats
//
// Chunks have two encodings:
//
//   - Serialize/Deserialize: a compact big-endian binary format with the
//     "TPBC" magic, used for compiled program files.
//
//   - MarshalChunk/UnmarshalChunk: canonical CBOR, used by the program
//     cache where deterministic bytes matter.
//
// Both decoders run Verify, so a chunk obtained from either is guaranteed
// to have a consistent jump table.
package bytecode
