package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"

	"github.com/chazu/tape/compiler"
	"github.com/chazu/tape/compiler/hash"
	"github.com/chazu/tape/pkg/bytecode"
	"github.com/chazu/tape/store"
	"github.com/chazu/tape/vm"
)

// ---------------------------------------------------------------------------
// Compilation
// ---------------------------------------------------------------------------

// compiled is a program ready to run in one of the two forms.
type compiled struct {
	strategy compiler.Strategy
	chunk    *bytecode.Chunk   // flat form
	prog     *compiler.Program // structured form
}

// flatChunk returns the flat form, compiling src if the program was built
// structured.
func (c *compiled) flatChunk(src string) (*bytecode.Chunk, error) {
	if c.chunk != nil {
		return c.chunk, nil
	}
	return compiler.CompileFlatString(src)
}

// build compiles src with the configured strategy. Flat-form builds go
// through the program cache when it is enabled.
func build(opts *options, src string) (*compiled, error) {
	if opts.runBin != "" {
		chunk, err := readChunk(opts.runBin)
		if err != nil {
			return nil, err
		}
		return &compiled{strategy: compiler.StrategyFlat, chunk: chunk}, nil
	}

	strategy, err := opts.m.CompileStrategy()
	if err != nil {
		return nil, err
	}
	tokens := compiler.Lex(src)

	if strategy == compiler.StrategyStructured {
		prog, err := compiler.Compile(tokens)
		if err != nil {
			return nil, err
		}
		log.Debugf("compiled %d commands to %d top-level nodes, depth %d", len(tokens), len(prog.Body), prog.Depth())
		return &compiled{strategy: strategy, prog: prog}, nil
	}

	if !opts.m.Cache.Enabled || opts.noCache {
		chunk, err := compiler.CompileFlat(tokens)
		if err != nil {
			return nil, err
		}
		return &compiled{strategy: strategy, chunk: chunk}, nil
	}

	chunk, err := buildCached(opts.m.CachePath(), tokens)
	if err != nil {
		return nil, err
	}
	return &compiled{strategy: strategy, chunk: chunk}, nil
}

// buildCached looks tokens up in the cache at path, compiling and storing
// them on a miss. Cache failures are logged and never fail the build.
func buildCached(path string, tokens []compiler.Token) (*bytecode.Chunk, error) {
	fp := hash.Tokens(tokens)

	s, err := store.Open(path)
	if err != nil {
		log.Warningf("program cache unavailable: %v", err)
		return compiler.CompileFlat(tokens)
	}
	defer s.Close()

	chunk, err := s.Get(fp)
	if err == nil {
		// The entry may come from a source laid out differently.
		compiler.MapSource(chunk, tokens)
		return chunk, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Warningf("program cache lookup failed: %v", err)
	}

	chunk, err = compiler.CompileFlat(tokens)
	if err != nil {
		return nil, err
	}
	if err := s.Put(fp, chunk); err != nil {
		log.Warningf("program cache write failed: %v", err)
	}
	return chunk, nil
}

// readChunk loads and verifies a chunk written with -o.
func readChunk(path string) (*bytecode.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	chunk, err := bytecode.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return chunk, nil
}

// writeChunk stores chunk in the binary bytecode format.
func writeChunk(path string, chunk *bytecode.Chunk) error {
	data, err := chunk.Serialize()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Infof("wrote %s (%d instructions, %d bytes)", path, chunk.Len(), len(data))
	return nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// execute runs the program against stdin and stdout, or the input file
// configured in tape.toml. Interrupts and the configured timeout cancel
// the run.
func execute(opts *options, c *compiled, stdin io.Reader, stdout io.Writer) error {
	cfg, err := opts.m.VMConfig()
	if err != nil {
		return err
	}
	timeout, err := opts.m.Timeout()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	in := bufio.NewReader(stdin)
	if p := opts.m.Resolve(opts.m.Source.Input); p != "" {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		in = bufio.NewReader(f)
	}

	runID := uuid.New()
	log.Infof("run %s: strategy=%s tape=%d bounds=%s", runID, c.strategy, cfg.TapeSize, cfg.Bounds)

	m := vm.New(cfg, in, stdout)
	if c.prog != nil {
		err = m.RunProgram(ctx, c.prog)
	} else {
		err = m.RunChunk(ctx, c.chunk)
	}

	st := m.Stats()
	log.Infof("run %s: %d steps, max pointer %d, tape %d, %d in, %d out",
		runID, st.Steps, st.MaxPointer, st.TapeSize, st.BytesIn, st.BytesOut)
	if err != nil {
		log.Debugf("run %s: %v", runID, err)
	}
	return err
}
