package mapfile

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/chazu/quarry/pkg/topology"
)

// SyntaxError reports malformed map source.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("mapfile: line %d: %s", e.Line, e.Msg)
}

// Load parses the map file at path.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapfile: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse reads map source in the standard Quake format. Plane points and
// texture offsets are rounded to the nearest integer.
func Parse(r io.Reader) (*Map, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("mapfile: read: %w", err)
	}

	p := &parser{lex: &lexer{src: src, line: 1}}
	m := &Map{}
	for {
		tok, ok := p.next()
		if !ok {
			if p.err != nil {
				return nil, p.err
			}
			return m, nil
		}
		if tok.text != "{" || tok.quoted {
			return nil, p.errorf(tok, "expected '{' to open an entity, got %q", tok.text)
		}
		e, err := p.entity()
		if err != nil {
			return nil, err
		}
		m.Entities = append(m.Entities, e)
	}
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

type token struct {
	text   string
	line   int
	quoted bool
}

// lexer splits source into whitespace separated words and quoted strings.
// Braces and parentheses are only structural when they stand alone, since
// texture names may contain them.
type lexer struct {
	src  []byte
	pos  int
	line int
}

func (l *lexer) next() (token, bool, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{line: l.line}, false, nil
	}

	start, line := l.pos, l.line
	if l.src[l.pos] == '"' {
		l.pos++
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			if l.src[l.pos] == '\n' {
				return token{}, false, &SyntaxError{Line: line, Msg: "unterminated string"}
			}
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, false, &SyntaxError{Line: line, Msg: "unterminated string"}
		}
		l.pos++
		return token{text: string(l.src[start+1 : l.pos-1]), line: line, quoted: true}, true, nil
	}

	for l.pos < len(l.src) && !isSpace(l.src[l.pos]) {
		l.pos++
	}
	return token{text: string(l.src[start:l.pos]), line: line}, true, nil
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case isSpace(c):
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// ----------------------------------------------------------------------------
// Parser
// ----------------------------------------------------------------------------

type parser struct {
	lex    *lexer
	peeked *token
	err    error
	last   int
}

func (p *parser) next() (token, bool) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, true
	}
	if p.err != nil {
		return token{}, false
	}
	t, ok, err := p.lex.next()
	if err != nil {
		p.err = err
		return token{}, false
	}
	if ok {
		p.last = t.line
	}
	return t, ok
}

func (p *parser) unread(t token) {
	p.peeked = &t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return &SyntaxError{Line: t.line, Msg: fmt.Sprintf(format, args...)}
}

// eof reports a premature end of input, or the lexer error that caused it.
func (p *parser) eof(what string) error {
	if p.err != nil {
		return p.err
	}
	return &SyntaxError{Line: p.last, Msg: "unexpected end of file in " + what}
}

func (p *parser) entity() (Entity, error) {
	e := Entity{Properties: make(map[string]string)}
	for {
		tok, ok := p.next()
		if !ok {
			return e, p.eof("entity")
		}
		switch {
		case tok.quoted:
			val, ok := p.next()
			if !ok {
				return e, p.eof("entity")
			}
			if !val.quoted {
				return e, p.errorf(val, "expected quoted value for key %q", tok.text)
			}
			e.Properties[tok.text] = val.text
		case tok.text == "}":
			return e, nil
		case tok.text == "{":
			b, err := p.brush()
			if err != nil {
				return e, err
			}
			e.Brushes = append(e.Brushes, b)
		default:
			return e, p.errorf(tok, "unexpected %q in entity", tok.text)
		}
	}
}

func (p *parser) brush() (topology.BrushDescriptor, error) {
	var b topology.BrushDescriptor
	for {
		tok, ok := p.next()
		if !ok {
			return b, p.eof("brush")
		}
		switch {
		case tok.text == "}" && !tok.quoted:
			return b, nil
		case tok.text == "(" && !tok.quoted:
			p.unread(tok)
			f, err := p.face()
			if err != nil {
				return b, err
			}
			b.Faces = append(b.Faces, f)
		default:
			return b, p.errorf(tok, "unexpected %q in brush", tok.text)
		}
	}
}

func (p *parser) face() (topology.FaceDescriptor, error) {
	var f topology.FaceDescriptor
	for i := range f.Points {
		pt, err := p.point()
		if err != nil {
			return f, err
		}
		f.Points[i] = pt
	}

	tex, ok := p.next()
	if !ok {
		return f, p.eof("face")
	}
	if tex.text == "(" && !tex.quoted {
		return f, p.errorf(tex, "expected texture name after plane points")
	}
	f.Texture = tex.text

	var nums [5]float64
	for i := range nums {
		tok, ok := p.next()
		if !ok {
			return f, p.eof("face")
		}
		if tok.text == "[" {
			return f, p.errorf(tok, "valve 220 texture axes are not supported")
		}
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return f, p.errorf(tok, "invalid texture parameter %q", tok.text)
		}
		nums[i] = n
	}
	f.Transform = topology.TextureTransform{
		Offset:   [2]int{round(nums[0]), round(nums[1])},
		Rotation: round(nums[2]),
		Scale:    [2]float64{nums[3], nums[4]},
	}
	return f, nil
}

func (p *parser) point() ([3]int, error) {
	var pt [3]int
	open, ok := p.next()
	if !ok {
		return pt, p.eof("plane")
	}
	if open.text != "(" || open.quoted {
		return pt, p.errorf(open, "expected '(' to open a plane point, got %q", open.text)
	}
	for i := range pt {
		tok, ok := p.next()
		if !ok {
			return pt, p.eof("plane")
		}
		n, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return pt, p.errorf(tok, "invalid coordinate %q", tok.text)
		}
		pt[i] = round(n)
	}
	closing, ok := p.next()
	if !ok {
		return pt, p.eof("plane")
	}
	if closing.text != ")" || closing.quoted {
		return pt, p.errorf(closing, "expected ')' to close a plane point, got %q", closing.text)
	}
	return pt, nil
}

func round(f float64) int {
	return int(math.Round(f))
}
