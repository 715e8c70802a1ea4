package main

import (
	"strings"

	"github.com/chazu/tape/compiler"
)

// ---------------------------------------------------------------------------
// tape -fmt: canonical source formatter
// ---------------------------------------------------------------------------

const (
	maxLineWidth = 80
	// maxInlineLoop is the longest loop kept on one line.
	maxInlineLoop = 40
)

// Format compiles source and returns it canonically formatted: comments
// dropped, each loop containing other loops opened on its own line with its
// body indented, short innermost loops kept inline, and lines wrapped at
// maxLineWidth. The result lexes to the same command sequence as source.
func Format(source string) (string, error) {
	prog, err := compiler.CompileString(source)
	if err != nil {
		return "", err
	}

	f := &formatter{buf: &strings.Builder{}}
	f.formatNodes(prog.Body)
	f.flush()
	return f.buf.String(), nil
}

// formatter walks the program tree and emits formatted source.
type formatter struct {
	indent int
	line   strings.Builder // pending text of the current line, unindented
	buf    *strings.Builder
}

// write appends text to the current line, wrapping when it would exceed
// maxLineWidth.
func (f *formatter) write(s string) {
	width := maxLineWidth - 2*f.indent
	if width < 8 {
		width = 8
	}
	for len(s) > 0 {
		room := width - f.line.Len()
		if room <= 0 {
			f.flush()
			continue
		}
		if len(s) <= room {
			f.line.WriteString(s)
			return
		}
		// Keep an inline loop whole when it fits on a fresh line.
		if s[0] == '[' && len(s) <= width && f.line.Len() > 0 {
			f.flush()
			continue
		}
		f.line.WriteString(s[:room])
		s = s[room:]
	}
}

// flush ends the current line if it has any text.
func (f *formatter) flush() {
	if f.line.Len() == 0 {
		return
	}
	f.writeIndent()
	f.buf.WriteString(f.line.String())
	f.buf.WriteByte('\n')
	f.line.Reset()
}

// writeIndent writes the current indentation prefix (two spaces per level).
func (f *formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.buf.WriteString("  ")
	}
}

func (f *formatter) formatNodes(nodes []compiler.Node) {
	for _, n := range nodes {
		loop, ok := n.(*compiler.Loop)
		if !ok {
			f.write(strings.Repeat(string(n.Type().Char()), runLength(n)))
			continue
		}
		if inline, ok := inlineLoop(loop); ok {
			f.write(inline)
			continue
		}
		f.flush()
		f.line.WriteByte('[')
		f.flush()
		f.indent++
		f.formatNodes(loop.Body)
		f.flush()
		f.indent--
		f.line.WriteByte(']')
		f.flush()
	}
}

// runLength returns how many commands a non-loop node stands for.
func runLength(n compiler.Node) int {
	switch n := n.(type) {
	case *compiler.Move:
		return n.Count
	case *compiler.Add:
		return n.Count
	}
	return 1
}

// inlineLoop renders loop on one line when it has no nested loops and is
// short enough.
func inlineLoop(loop *compiler.Loop) (string, bool) {
	var sb strings.Builder
	sb.WriteByte('[')
	for _, n := range loop.Body {
		if _, nested := n.(*compiler.Loop); nested {
			return "", false
		}
		sb.WriteString(strings.Repeat(string(n.Type().Char()), runLength(n)))
		if sb.Len() > maxInlineLoop {
			return "", false
		}
	}
	sb.WriteByte(']')
	return sb.String(), sb.Len() <= maxInlineLoop
}
