package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/tape/compiler"
	"github.com/chazu/tape/store"
)

// cli runs the CLI with a tape.toml in a fresh directory so no
// configuration from the working tree leaks in.
func cli(t *testing.T, toml, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tape.toml")
	if err := os.WriteFile(cfg, []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	return cliWithConfig(t, cfg, stdin, args...)
}

func cliWithConfig(t *testing.T, cfg, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(append([]string{"-config", cfg}, args...), strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestDefaultProgramIsHelloWorld(t *testing.T) {
	code, out, stderr := cli(t, "", "")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if out != "Hello World!\n" {
		t.Errorf("stdout = %q, want %q", out, "Hello World!\n")
	}
}

func TestStrategiesViaFlag(t *testing.T) {
	for _, s := range []string{"flat", "structured"} {
		t.Run(s, func(t *testing.T) {
			code, out, stderr := cli(t, "", "", "-strategy", s, "-e", helloWorld)
			if code != exitOK {
				t.Fatalf("exit %d: %s", code, stderr)
			}
			if out != "Hello World!\n" {
				t.Errorf("stdout = %q", out)
			}
		})
	}
}

func TestProgramFileAndStdin(t *testing.T) {
	dir := t.TempDir()
	prog := filepath.Join(dir, "cat.b")
	if err := os.WriteFile(prog, []byte("read a byte, then echo until EOF\n,[.,]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	code, out, stderr := cli(t, "", "echo me", prog)
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if out != "echo me" {
		t.Errorf("stdout = %q, want %q", out, "echo me")
	}
}

func TestManifestEntryAndInput(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "prog.b"), []byte(",.,."), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "in.txt"), []byte("ok"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "tape.toml")
	toml := "[source]\nentry = \"prog.b\"\ninput = \"in.txt\"\n"
	if err := os.WriteFile(cfg, []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}

	code, out, stderr := cliWithConfig(t, cfg, "ignored")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if out != "ok" {
		t.Errorf("stdout = %q, want %q", out, "ok")
	}
}

func TestCompileErrorExitsBeforeOutput(t *testing.T) {
	for _, s := range []string{"flat", "structured"} {
		code, out, stderr := cli(t, "", "", "-strategy", s, "-e", "+.[")
		if code != exitError {
			t.Errorf("%s: exit %d, want %d", s, code, exitError)
		}
		if out != "" {
			t.Errorf("%s: stdout = %q, want nothing", s, out)
		}
		if !strings.Contains(stderr, "unmatched loop begin") {
			t.Errorf("%s: stderr = %q", s, stderr)
		}
	}
}

func TestRuntimeErrorKeepsOutput(t *testing.T) {
	code, out, stderr := cli(t, "", "", "-e", "+.<")
	if code != exitError {
		t.Fatalf("exit %d, want %d", code, exitError)
	}
	if out != "\x01" {
		t.Errorf("stdout = %q, want %q", out, "\x01")
	}
	if !strings.Contains(stderr, "pointer out of bounds") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestBoundsFlagOverridesManifest(t *testing.T) {
	toml := "[machine]\nbounds = \"fail\"\ntape-size = 4\n"
	code, _, stderr := cli(t, toml, "", "-bounds", "wrap", "-e", "<+.")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"max steps", []string{"-max-steps", "1000"}, "step limit exceeded"},
		{"timeout", []string{"-timeout", "50ms"}, "deadline exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "-e", "+[]")
			code, _, stderr := cli(t, "", "", args...)
			if code != exitError {
				t.Fatalf("exit %d, want %d", code, exitError)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.want)
			}
		})
	}
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope"}},
		{"two files", []string{"a.b", "b.b"}},
		{"bad bounds", []string{"-bounds", "clamp"}},
		{"bad strategy", []string{"-strategy", "jit"}},
		{"bad timeout", []string{"-timeout", "soon"}},
		{"expr and file", []string{"-e", "+", "a.b"}},
		{"cache conflict", []string{"-cache", "-no-cache"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := cli(t, "", "", tt.args...)
			if code != exitUsage {
				t.Errorf("exit %d, want %d", code, exitUsage)
			}
			if out != "" {
				t.Errorf("stdout = %q, want nothing", out)
			}
		})
	}
}

func TestBadManifestIsUsageError(t *testing.T) {
	code, _, stderr := cli(t, "[machine]\nbounds = 3\n", "")
	if code != exitUsage {
		t.Errorf("exit %d, want %d (%s)", code, exitUsage, stderr)
	}
}

func TestDisasm(t *testing.T) {
	code, out, stderr := cli(t, "", "", "-disasm", "-e", "+[-]")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"; === <expr> ===", "; Instructions: 4", "-> 000003", "-> 000001"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestCompileToFileAndRunBinary(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "hello.tpbc")

	code, out, stderr := cli(t, "", "", "-o", bin, "-e", helloWorld)
	if code != exitOK {
		t.Fatalf("compile: exit %d: %s", code, stderr)
	}
	if out != "" {
		t.Errorf("compile printed %q", out)
	}

	code, out, stderr = cli(t, "", "", "-run-bin", bin)
	if code != exitOK {
		t.Fatalf("run-bin: exit %d: %s", code, stderr)
	}
	if out != "Hello World!\n" {
		t.Errorf("stdout = %q", out)
	}

	code, out, _ = cli(t, "", "", "-fmt", "-run-bin", bin)
	if code != exitOK {
		t.Fatalf("fmt of binary: exit %d", code)
	}
	if compiler.Canonical(compiler.Lex(out)) != helloWorld {
		t.Errorf("decompiled binary does not match source:\n%s", out)
	}
}

func TestRunBinRejectsGarbage(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "bad.tpbc")
	if err := os.WriteFile(bin, []byte("TPBC\x00"), 0644); err != nil {
		t.Fatal(err)
	}
	code, _, _ := cli(t, "", "", "-run-bin", bin)
	if code != exitError {
		t.Errorf("exit %d, want %d", code, exitError)
	}
}

func TestCacheStoresAndHits(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tape.toml")
	if err := os.WriteFile(cfg, []byte("[cache]\nenabled = true\npath = \"c/programs.db\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		code, out, stderr := cliWithConfig(t, cfg, "", "-e", "comment +++[>++++<-]>+++++.")
		if code != exitOK {
			t.Fatalf("run %d: exit %d: %s", i, code, stderr)
		}
		if out != "\x11" {
			t.Errorf("run %d: stdout = %q", i, out)
		}
	}

	s, err := store.Open(filepath.Join(dir, "c", "programs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.Programs != 1 || st.Hits != 1 {
		t.Errorf("cache stats = %+v, want 1 program and 1 hit", st)
	}
}

func TestNoCacheFlag(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tape.toml")
	if err := os.WriteFile(cfg, []byte("[cache]\nenabled = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	code, _, stderr := cliWithConfig(t, cfg, "", "-no-cache", "-e", "+.")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, ".tape", "cache.db")); !os.IsNotExist(err) {
		t.Errorf("cache database should not exist, stat err = %v", err)
	}
}

func TestCacheHitReportsOwnPositions(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tape.toml")
	if err := os.WriteFile(cfg, []byte("[cache]\nenabled = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	a := filepath.Join(dir, "a.b")
	b := filepath.Join(dir, "b.b")
	if err := os.WriteFile(a, []byte("<"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("comment\n\n   <"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, stderr := cliWithConfig(t, cfg, "", a)
	if !strings.Contains(stderr, "runtime error at 1:1") {
		t.Errorf("a.b stderr = %q", stderr)
	}
	_, _, stderr = cliWithConfig(t, cfg, "", b)
	if !strings.Contains(stderr, "runtime error at 3:4") {
		t.Errorf("b.b stderr = %q, want the error at 3:4", stderr)
	}

	s, err := store.Open(filepath.Join(dir, ".tape", "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if st, err := s.Stats(); err != nil || st.Hits != 1 {
		t.Errorf("cache stats = %+v, %v; want one hit", st, err)
	}
}

func TestEmptyExprRunsEmptyProgram(t *testing.T) {
	code, out, stderr := cli(t, "", "", "-e", "")
	if code != exitOK {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
}

func TestRuntimeErrorReportedOnce(t *testing.T) {
	_, _, stderr := cli(t, "", "", "-e", "<")
	if n := strings.Count(stderr, "pointer out of bounds"); n != 1 {
		t.Errorf("error reported %d times:\n%s", n, stderr)
	}
}
