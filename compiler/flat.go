package compiler

import "github.com/chazu/tape/pkg/bytecode"

// opcodes maps command tokens to flat-form opcodes.
var opcodes = map[TokenType]bytecode.Opcode{
	TokenMoveRight: bytecode.OpRight,
	TokenMoveLeft:  bytecode.OpLeft,
	TokenIncrement: bytecode.OpInc,
	TokenDecrement: bytecode.OpDec,
	TokenOutput:    bytecode.OpOut,
	TokenInput:     bytecode.OpIn,
	TokenLoopBegin: bytecode.OpLoopBegin,
	TokenLoopEnd:   bytecode.OpLoopEnd,
}

// CompileFlat builds the flat form of tokens: one instruction per token and,
// for every bracket, the index of its partner. Brackets are matched in a
// single pass with an explicit stack of open LoopBegin indices.
func CompileFlat(tokens []Token) (*bytecode.Chunk, error) {
	chunk := bytecode.NewChunk()
	if cap(chunk.Code) < len(tokens) {
		chunk.Code = make([]bytecode.Instruction, 0, len(tokens))
	}

	// open holds token indices; token i compiles to instruction i.
	var open []int
	for i, tok := range tokens {
		switch tok.Type {
		case TokenLoopBegin:
			chunk.EmitJump(bytecode.OpLoopBegin)
			open = append(open, i)

		case TokenLoopEnd:
			if len(open) == 0 {
				return nil, unmatchedEnd(tok)
			}
			begin := open[len(open)-1]
			open = open[:len(open)-1]
			chunk.PatchJump(begin, chunk.EmitJump(bytecode.OpLoopEnd))

		case TokenOutput, TokenInput:
			chunk.Emit(opcodes[tok.Type], 0)

		default:
			chunk.Emit(opcodes[tok.Type], 1)
		}
	}

	if len(open) > 0 {
		return nil, unmatchedBegin(tokens[open[len(open)-1]])
	}
	MapSource(chunk, tokens)
	return chunk, nil
}

// MapSource replaces chunk's source map with the positions of tokens, the
// sequence the chunk was compiled from. Chunks shared between sources with
// the same commands but different layout get their own positions this way.
func MapSource(chunk *bytecode.Chunk, tokens []Token) {
	chunk.SourceMap = make([]bytecode.SourceLocation, 0, len(tokens))
	for i, tok := range tokens {
		chunk.AddSourceLocation(uint32(i), uint32(tok.Pos.Line), uint32(tok.Pos.Column))
	}
}

// CompileFlatString lexes and compiles src in the flat form.
func CompileFlatString(src string) (*bytecode.Chunk, error) {
	return CompileFlat(Lex(src))
}
