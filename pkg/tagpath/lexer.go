package tagpath

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// TokenType identifies a lexical token of a path.
type TokenType int

const (
	TokIllegal TokenType = iota
	TokEOF

	TokName   // level, minecraft:stone, 0, -1
	TokString // "display name", 'a.b'

	TokDot      // .
	TokLBracket // [
	TokRBracket // ]
)

func (t TokenType) String() string {
	switch t {
	case TokIllegal:
		return "ILLEGAL"
	case TokEOF:
		return "EOF"
	case TokName:
		return "NAME"
	case TokString:
		return "STRING"
	case TokDot:
		return "."
	case TokLBracket:
		return "["
	case TokRBracket:
		return "]"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is one lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func (t Token) String() string {
	if t.Type == TokName || t.Type == TokString || t.Type == TokIllegal {
		return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Literal, t.Line, t.Column)
	}
	return fmt.Sprintf("%s at %d:%d", t.Type, t.Line, t.Column)
}

// Lexer splits a path into tokens.
type Lexer struct {
	reader *bufio.Reader
	line   int
	column int  // column of ch, 1-indexed
	ch     rune // current character, 0 at EOF
	eof    bool
}

// NewLexer returns a lexer reading from r.
func NewLexer(r io.Reader) *Lexer {
	l := &Lexer{reader: bufio.NewReader(r), line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.column > 0 && l.ch == '\n' {
		l.line++
		l.column = 0
	}
	r, _, err := l.reader.ReadRune()
	if err != nil {
		l.ch = 0
		l.eof = true
		return
	}
	l.ch = r
	l.column++
}

func (l *Lexer) skipWhitespace() {
	for !l.eof && unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// NextToken scans and returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Line: l.line, Column: l.column}
	if l.eof {
		tok.Type = TokEOF
		return tok
	}

	switch {
	case l.ch == '.':
		tok.Type, tok.Literal = TokDot, "."
	case l.ch == '[':
		tok.Type, tok.Literal = TokLBracket, "["
	case l.ch == ']':
		tok.Type, tok.Literal = TokRBracket, "]"
	case l.ch == '"' || l.ch == '\'':
		s, ok := l.readString(l.ch)
		tok.Literal = s
		if ok {
			tok.Type = TokString
		} else {
			tok.Type = TokIllegal
		}
		return tok
	case isNamePart(l.ch):
		tok.Type = TokName
		tok.Literal = l.readName()
		return tok
	default:
		tok.Type = TokIllegal
		tok.Literal = string(l.ch)
	}

	l.readChar()
	return tok
}

func (l *Lexer) readName() string {
	var sb strings.Builder
	for !l.eof && isNamePart(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	return sb.String()
}

// readString reads a quoted name. It reports false if the closing quote
// or an escape is missing.
func (l *Lexer) readString(quote rune) (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote

	for !l.eof && l.ch != quote {
		if l.ch != '\\' {
			sb.WriteRune(l.ch)
			l.readChar()
			continue
		}
		l.readChar()
		switch l.ch {
		case 'n':
			sb.WriteRune('\n')
		case 'r':
			sb.WriteRune('\r')
		case 't':
			sb.WriteRune('\t')
		case '0':
			sb.WriteRune(0)
		case '\\', '"', '\'':
			sb.WriteRune(l.ch)
		case 'u':
			var hex [4]rune
			for i := range hex {
				l.readChar()
				if !isHexDigit(l.ch) {
					return sb.String(), false
				}
				hex[i] = l.ch
			}
			v, err := strconv.ParseUint(string(hex[:]), 16, 32)
			if err != nil {
				return sb.String(), false
			}
			sb.WriteRune(rune(v))
		default:
			return sb.String(), false
		}
		l.readChar()
	}

	if l.eof {
		return sb.String(), false
	}
	l.readChar() // closing quote
	return sb.String(), true
}

func isNamePart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-' || ch == ':' || ch == '+'
}

func isHexDigit(ch rune) bool {
	return unicode.IsDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
