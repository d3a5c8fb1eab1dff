// Package tagpath addresses values inside a tag tree with paths such as
// Level.Sections[2].Palette or data."display name"[-1]. A path resolves
// either against an in-memory tree or directly against an encoded
// document, in which case only the addressed value is decoded.
package tagpath

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
)

// ErrSyntax is wrapped by every path parse error.
var ErrSyntax = errors.New("invalid tag path")

// Pos is a position in the path source.
type Pos struct {
	Line   int
	Column int
}

// Segment is one step of a path.
type Segment interface {
	Pos() Pos
	String() string
	segment()
}

// Field selects a compound entry by name.
type Field struct {
	Name string
	P    Pos
}

func (f *Field) Pos() Pos { return f.P }
func (*Field) segment()   {}

func (f *Field) String() string {
	if isPlainName(f.Name) {
		return f.Name
	}
	return strconv.Quote(f.Name)
}

// Index selects a list or array element. Negative values count from the
// end, so -1 is the last element.
type Index struct {
	Value int
	P     Pos
}

func (i *Index) Pos() Pos       { return i.P }
func (*Index) segment()         {}
func (i *Index) String() string { return "[" + strconv.Itoa(i.Value) + "]" }

// resolve maps i onto 0..n-1.
func (i *Index) resolve(n int) (int, bool) {
	v := i.Value
	if v < 0 {
		v += n
	}
	return v, v >= 0 && v < n
}

func isPlainName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isNamePart(r) {
			return false
		}
	}
	return true
}

// Path is a parsed path. It is immutable and safe for concurrent use.
type Path struct {
	segments []Segment
}

// Parse parses src.
func Parse(src string) (*Path, error) {
	return NewParser(NewLexer(strings.NewReader(src))).Parse()
}

// MustParse is like Parse but panics on error.
func MustParse(src string) *Path {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Segments returns the steps of the path.
func (p *Path) Segments() []Segment { return p.segments }

// String returns the canonical form of the path.
func (p *Path) String() string {
	var sb strings.Builder
	for i, s := range p.segments {
		if _, ok := s.(*Field); ok && i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Lookup resolves the path against an in-memory tree.
func (p *Path) Lookup(t nbt.Tag) (nbt.Tag, bool) {
	cur := t
	for _, seg := range p.segments {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(t nbt.Tag, seg Segment) (nbt.Tag, bool) {
	switch seg := seg.(type) {
	case *Field:
		c, ok := t.(nbt.Compound)
		if !ok {
			return nil, false
		}
		return c.Get(seg.Name)
	case *Index:
		switch t := t.(type) {
		case nbt.List:
			if i, ok := seg.resolve(t.Len()); ok {
				return t.Get(i), true
			}
		case *nbt.ByteArrayTag:
			if i, ok := seg.resolve(t.Len()); ok {
				return t.Get(i), true
			}
		case *nbt.IntArrayTag:
			if i, ok := seg.resolve(t.Len()); ok {
				return t.Get(i), true
			}
		case *nbt.LongArrayTag:
			if i, ok := seg.resolve(t.Len()); ok {
				return t.Get(i), true
			}
		}
	}
	return nil, false
}

// Parser builds a Path from lexer tokens.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // next token
	errors []string
}

// NewParser returns a parser positioned at the first token of lexer.
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{lexer: lexer}
	p.nextToken()
	p.nextToken()
	return p
}

// AddError records a parse error at the current token.
func (p *Parser) AddError(msg string) {
	p.errors = append(p.errors, fmt.Sprintf("%d:%d: %s", p.token.Line, p.token.Column, msg))
}

// Errors returns the accumulated parse errors.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peek.Type == t {
		p.nextToken()
		return true
	}
	p.nextToken()
	p.AddError(fmt.Sprintf("expected %s, got %s", t, p.token))
	return false
}

func pos(t Token) Pos { return Pos{Line: t.Line, Column: t.Column} }

// Parse consumes the whole input.
func (p *Parser) Parse() (*Path, error) {
	var segs []Segment

	switch p.token.Type {
	case TokName, TokString:
		segs = append(segs, &Field{Name: p.token.Literal, P: pos(p.token)})
		p.nextToken()
	case TokLBracket:
	case TokEOF:
		p.AddError("empty path")
	default:
		p.AddError(fmt.Sprintf("unexpected %s", p.token))
	}

	for len(p.errors) == 0 && p.token.Type != TokEOF {
		switch p.token.Type {
		case TokDot:
			p.nextToken()
			if p.token.Type != TokName && p.token.Type != TokString {
				p.AddError(fmt.Sprintf("expected a name after '.', got %s", p.token))
				continue
			}
			segs = append(segs, &Field{Name: p.token.Literal, P: pos(p.token)})
			p.nextToken()
		case TokLBracket:
			if seg := p.parseSubscript(); seg != nil {
				segs = append(segs, seg)
			}
		default:
			p.AddError(fmt.Sprintf("unexpected %s", p.token))
		}
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrSyntax, strings.Join(p.errors, "; "))
	}
	return &Path{segments: segs}, nil
}

// parseSubscript parses '[' (integer | quoted name) ']' starting at '['.
func (p *Parser) parseSubscript() Segment {
	open := pos(p.token)
	p.nextToken()

	var seg Segment
	switch p.token.Type {
	case TokName:
		v, err := strconv.Atoi(p.token.Literal)
		if err != nil {
			p.AddError(fmt.Sprintf("invalid index %q", p.token.Literal))
			return nil
		}
		seg = &Index{Value: v, P: open}
	case TokString:
		seg = &Field{Name: p.token.Literal, P: open}
	default:
		p.AddError(fmt.Sprintf("expected an index or quoted name after '[', got %s", p.token))
		return nil
	}

	if !p.expectPeek(TokRBracket) {
		return nil
	}
	p.nextToken()
	return seg
}
