// Tape CLI - compiles and runs programs for the eight-command tape machine
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/chazu/tape/manifest"
	"github.com/chazu/tape/server"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// helloWorld runs when no program is given.
const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var log = commonlog.GetLogger("tape")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options is the merged result of tape.toml and command-line flags.
type options struct {
	m *manifest.Manifest

	expr    string
	hasExpr bool   // -e was given, possibly empty
	path    string // program file, "" for -e or the default program
	runBin  string
	output  string
	disasm  bool
	format  bool
	lsp     bool
	verbose bool
	noCache bool
}

// run is the whole CLI; main only maps its result to the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, code := parseArgs(args, stderr)
	if opts == nil {
		return code
	}

	verbosity := opts.m.Log.Verbosity
	if opts.verbose && verbosity < 2 {
		verbosity = 2
	}
	var logPath *string
	if opts.m.Log.File != "" {
		p := opts.m.Resolve(opts.m.Log.File)
		logPath = &p
	}
	commonlog.Configure(verbosity, logPath)

	if opts.lsp {
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	src, name, err := loadSource(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	if opts.format {
		out, err := Format(src)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return exitError
		}
		io.WriteString(stdout, out)
		return exitOK
	}

	prog, err := build(opts, src)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitError
	}

	if opts.disasm || opts.output != "" {
		chunk, err := prog.flatChunk(src)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", name, err)
			return exitError
		}
		if opts.disasm {
			io.WriteString(stdout, chunk.DisassembleWithName(name))
		}
		if opts.output != "" {
			if err := writeChunk(opts.output, chunk); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
				return exitError
			}
		}
		return exitOK
	}

	if err := execute(opts, prog, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return exitError
	}
	return exitOK
}

// parseArgs builds options from tape.toml and flags. A nil result means
// the process should exit with the returned code.
func parseArgs(args []string, stderr io.Writer) (*options, int) {
	fs := flag.NewFlagSet("tape", flag.ContinueOnError)
	fs.SetOutput(stderr)

	expr := fs.String("e", "", "Program text to run instead of a file")
	configPath := fs.String("config", "", "Path to a tape.toml (default: search upward from the working directory)")
	strategy := fs.String("strategy", "", "Compile strategy: flat or structured")
	tapeSize := fs.Int("tape-size", 0, "Initial number of tape cells")
	bounds := fs.String("bounds", "", "Pointer policy at the tape edges: fail, wrap or grow")
	maxSteps := fs.Int64("max-steps", 0, "Stop after this many instructions (0: no limit)")
	timeout := fs.String("timeout", "", "Stop after this long, e.g. 5s (0: no limit)")
	disasm := fs.Bool("disasm", false, "Print the flat-form disassembly instead of running")
	format := fs.Bool("fmt", false, "Print the canonically formatted program instead of running")
	output := fs.String("o", "", "Write the compiled flat-form chunk to this file instead of running")
	runBin := fs.String("run-bin", "", "Run a chunk previously written with -o")
	cache := fs.Bool("cache", false, "Enable the compiled-program cache")
	noCache := fs.Bool("no-cache", false, "Disable the compiled-program cache")
	lsp := fs.Bool("lsp", false, "Start the language server on stdio")
	verbose := fs.Bool("v", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tape [options] [file]\n\n")
		fmt.Fprintf(stderr, "Compiles and runs a tape program. Without a file or -e, runs the\n")
		fmt.Fprintf(stderr, "[source] entry from tape.toml, or a built-in Hello World.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tape prog.b                      # Run a program file\n")
		fmt.Fprintf(stderr, "  tape -e ',[.,]' < in.txt         # Echo stdin\n")
		fmt.Fprintf(stderr, "  tape -strategy structured prog.b # Run the folded tree form\n")
		fmt.Fprintf(stderr, "  tape -disasm prog.b              # Show bytecode\n")
		fmt.Fprintf(stderr, "  tape -o prog.tpbc prog.b         # Compile only\n")
		fmt.Fprintf(stderr, "  tape -run-bin prog.tpbc          # Run compiled bytecode\n")
		fmt.Fprintf(stderr, "  tape -lsp                        # Language server for editors\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exitOK
		}
		return nil, exitUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "Error: expected at most one program file, got %d\n", fs.NArg())
		fs.Usage()
		return nil, exitUsage
	}
	hasExpr := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "e" {
			hasExpr = true
		}
	})
	if hasExpr && (fs.NArg() > 0 || *runBin != "") {
		fmt.Fprintf(stderr, "Error: -e cannot be combined with a program file or -run-bin\n")
		return nil, exitUsage
	}
	if *cache && *noCache {
		fmt.Fprintf(stderr, "Error: -cache and -no-cache are mutually exclusive\n")
		return nil, exitUsage
	}

	var (
		m   *manifest.Manifest
		err error
	)
	if *configPath != "" {
		m, err = manifest.LoadFile(*configPath)
	} else {
		m, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitUsage
	}
	if m == nil {
		m = manifest.Default()
	}

	// Flags given explicitly override tape.toml.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "strategy":
			m.Machine.Strategy = *strategy
		case "tape-size":
			m.Machine.TapeSize = *tapeSize
		case "bounds":
			m.Machine.Bounds = *bounds
		case "max-steps":
			m.Machine.MaxSteps = *maxSteps
		case "timeout":
			m.Machine.Timeout = *timeout
		case "cache":
			m.Cache.Enabled = *cache
		}
	})
	if err := m.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, exitUsage
	}

	return &options{
		m:       m,
		expr:    *expr,
		hasExpr: hasExpr,
		path:    fs.Arg(0),
		runBin:  *runBin,
		output:  *output,
		disasm:  *disasm,
		format:  *format,
		lsp:     *lsp,
		verbose: *verbose,
		noCache: *noCache,
	}, exitOK
}

// loadSource returns the program text and a display name for messages.
// For -run-bin the text is the decompiled chunk.
func loadSource(opts *options) (src, name string, err error) {
	switch {
	case opts.runBin != "":
		chunk, err := readChunk(opts.runBin)
		if err != nil {
			return "", "", err
		}
		return chunk.Decompile(), filepath.Base(opts.runBin), nil
	case opts.hasExpr:
		return opts.expr, "<expr>", nil
	case opts.path != "":
		data, err := os.ReadFile(opts.path)
		if err != nil {
			return "", "", err
		}
		return string(data), opts.path, nil
	}
	if entry := opts.m.EntryPath(); entry != "" {
		data, err := os.ReadFile(entry)
		if err != nil {
			return "", "", fmt.Errorf("tape.toml entry: %w", err)
		}
		return string(data), opts.m.Source.Entry, nil
	}
	return helloWorld, "<hello-world>", nil
}
