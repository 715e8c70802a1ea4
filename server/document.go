package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/tape/compiler"
	"github.com/chazu/tape/compiler/hash"
	"github.com/chazu/tape/pkg/bytecode"
)

// document is the analysis of one open text document. It is rebuilt on
// every change and never mutated afterwards.
type document struct {
	text   string
	tokens []compiler.Token
	chunk  *bytecode.Chunk // nil when err is set
	err    *compiler.CompileError
}

// analyze lexes and compiles text in the flat form. Token i compiles to
// instruction i, so the chunk's jump table doubles as the bracket map.
func analyze(text string) *document {
	d := &document{text: text, tokens: compiler.Lex(text)}
	chunk, err := compiler.CompileFlat(d.tokens)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			d.err = ce
		}
		return d
	}
	d.chunk = chunk
	return d
}

// tokenAt returns the index of the command token under an LSP position,
// or -1. LSP lines and characters are 0-based.
func (d *document) tokenAt(pos protocol.Position) int {
	line, col := int(pos.Line)+1, int(pos.Character)+1
	i := sort.Search(len(d.tokens), func(i int) bool {
		p := d.tokens[i].Pos
		return p.Line > line || (p.Line == line && p.Column >= col)
	})
	if i < len(d.tokens) && d.tokens[i].Pos.Line == line && d.tokens[i].Pos.Column == col {
		return i
	}
	return -1
}

// partner returns the index of the bracket matching token i, or -1.
func (d *document) partner(i int) int {
	if d.chunk == nil || i < 0 || i >= d.chunk.Len() {
		return -1
	}
	in := d.chunk.Code[i]
	if !in.Op.IsJump() {
		return -1
	}
	return in.Arg
}

// run returns the bounds [start, end) of the run of identical foldable
// tokens containing token i.
func (d *document) run(i int) (start, end int) {
	t := d.tokens[i].Type
	start, end = i, i+1
	for start > 0 && d.tokens[start-1].Type == t {
		start--
	}
	for end < len(d.tokens) && d.tokens[end].Type == t {
		end++
	}
	return start, end
}

// depth returns the loop nesting depth at token i.
func (d *document) depth(i int) int {
	n := 0
	for _, tok := range d.tokens[:i] {
		switch tok.Type {
		case compiler.TokenLoopBegin:
			n++
		case compiler.TokenLoopEnd:
			n--
		}
	}
	return n
}

// hover describes the command under pos in markdown. Off a command it
// describes the whole program.
func (d *document) hover(pos protocol.Position) string {
	i := d.tokenAt(pos)
	if i < 0 {
		return d.overview()
	}
	tok := d.tokens[i]

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%c`\n\n", tok.Type, tok.Type.Char())

	switch tok.Type {
	case compiler.TokenMoveRight, compiler.TokenMoveLeft,
		compiler.TokenIncrement, compiler.TokenDecrement:
		start, end := d.run(i)
		n := end - start
		if tok.Type == compiler.TokenMoveRight || tok.Type == compiler.TokenMoveLeft {
			fmt.Fprintf(&b, "Run of %d, folds to a pointer move of %d", n, n)
		} else {
			fmt.Fprintf(&b, "Run of %d, folds to a cell delta of %d (mod 256)", n, n%256)
		}

	case compiler.TokenOutput:
		b.WriteString("Writes the current cell as one byte")

	case compiler.TokenInput:
		b.WriteString("Reads one byte into the current cell; end of input leaves it unchanged")

	case compiler.TokenLoopBegin, compiler.TokenLoopEnd:
		j := d.partner(i)
		if j < 0 {
			b.WriteString("Unmatched bracket")
			break
		}
		depth := d.depth(i)
		if tok.Type == compiler.TokenLoopEnd {
			depth--
		}
		fmt.Fprintf(&b, "Matches `%c` at %s (nesting depth %d)", d.tokens[j].Type.Char(), d.tokens[j].Pos, depth)
	}
	return b.String()
}

// definition returns the location of the bracket matching the one under
// pos.
func (d *document) definition(uri protocol.DocumentUri, pos protocol.Position) []protocol.Location {
	j := d.partner(d.tokenAt(pos))
	if j < 0 {
		return nil
	}
	return []protocol.Location{{URI: uri, Range: tokenRange(d.tokens[j].Pos)}}
}

// diagnostics reports the compile error, if any.
func (d *document) diagnostics() []protocol.Diagnostic {
	if d.err == nil {
		return []protocol.Diagnostic{}
	}
	severity := protocol.DiagnosticSeverityError
	source := lspName
	msg := d.err.Kind.Error()
	if errors.Is(d.err, compiler.ErrUnmatchedLoopBegin) {
		msg += ": no ']' closes this '['"
	} else {
		msg += ": no '[' opens this ']'"
	}
	return []protocol.Diagnostic{{
		Range:    tokenRange(d.err.Pos),
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}}
}

// summary is a one-line description of a compiled document, logged on
// every change.
func (d *document) summary() string {
	if d.err != nil {
		return d.err.Error()
	}
	return fmt.Sprintf("%d commands, fingerprint %s", len(d.tokens), hash.Tokens(d.tokens).Short())
}

// overview is the markdown program summary shown when hovering outside
// any command.
func (d *document) overview() string {
	if d.err != nil {
		return fmt.Sprintf("**Program** does not compile\n\n%v", d.err)
	}
	return fmt.Sprintf("**Program** %d commands, loop depth %d\n\nFingerprint `%s`",
		len(d.tokens), d.maxDepth(), hash.Tokens(d.tokens).Short())
}

// maxDepth returns the deepest loop nesting in the document.
func (d *document) maxDepth() int {
	depth, deepest := 0, 0
	for _, t := range d.tokens {
		switch t.Type {
		case compiler.TokenLoopBegin:
			depth++
			if depth > deepest {
				deepest = depth
			}
		case compiler.TokenLoopEnd:
			depth--
		}
	}
	return deepest
}

// tokenRange converts a 1-based source position to a one-character LSP
// range.
func tokenRange(p compiler.Position) protocol.Range {
	start := protocol.Position{Line: protocol.UInteger(p.Line - 1), Character: protocol.UInteger(p.Column - 1)}
	end := start
	end.Character++
	return protocol.Range{Start: start, End: end}
}
