package token

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Class identifies what a Token is.
type Class int

const (
	EOF Class = iota
	Atom
	String
	Begin
	End
)

func (c Class) String() string {
	switch c {
	case EOF:
		return "end of input"
	case Atom:
		return "atom"
	case String:
		return "string"
	case Begin:
		return `"("`
	case End:
		return `")"`
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Pos is a position in a source file.
type Pos struct {
	Filename string
	Line     int
	Column   int
}

func (p Pos) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

type Token struct {
	Class Class
	Text  string
	Pos   Pos
}

func (t Token) String() string {
	switch t.Class {
	case Atom:
		return t.Text
	case String:
		return fmt.Sprintf("%q", t.Text)
	default:
		return t.Class.String()
	}
}

// Feed is a stream of tokens.
type Feed interface {
	Next() (Token, error)
	Peek() (Token, error)
}

// Scanner splits S-expression source into tokens. Comments run from '#'
// to the end of the line.
type Scanner struct {
	r    *bufio.Reader
	pos  Pos
	last Pos
	peek *Token
}

func NewScanner(r io.Reader, filename string) *Scanner {
	return &Scanner{
		r:   bufio.NewReader(r),
		pos: Pos{Filename: filename, Line: 1, Column: 1},
	}
}

func (s *Scanner) Peek() (Token, error) {
	if s.peek != nil {
		return *s.peek, nil
	}
	tok, err := s.scan()
	if err != nil {
		return Token{}, err
	}
	s.peek = &tok
	return tok, nil
}

func (s *Scanner) Next() (Token, error) {
	if s.peek != nil {
		tok := *s.peek
		s.peek = nil
		return tok, nil
	}
	return s.scan()
}

func (s *Scanner) read() (rune, error) {
	r, _, err := s.r.ReadRune()
	if err != nil {
		return 0, err
	}
	s.last = s.pos
	if r == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
	return r, nil
}

// unread may only follow a successful read.
func (s *Scanner) unread() {
	_ = s.r.UnreadRune()
	s.pos = s.last
}

func (s *Scanner) scan() (Token, error) {
	for {
		start := s.pos
		r, err := s.read()
		if err == io.EOF {
			return Token{Class: EOF, Pos: start}, nil
		}
		if err != nil {
			return Token{}, errors.Wrapf(err, "reading %s", start)
		}
		switch {
		case unicode.IsSpace(r):
			continue
		case r == '#':
			if err := s.skipLine(); err != nil {
				return Token{}, err
			}
			continue
		case r == '(':
			return Token{Class: Begin, Text: "(", Pos: start}, nil
		case r == ')':
			return Token{Class: End, Text: ")", Pos: start}, nil
		case r == '"':
			return s.scanString(start)
		default:
			return s.scanAtom(r, start)
		}
	}
}

func (s *Scanner) skipLine() error {
	for {
		r, err := s.read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "reading comment")
		}
		if r == '\n' {
			return nil
		}
	}
}

func (s *Scanner) scanString(start Pos) (Token, error) {
	var b strings.Builder
	for {
		r, err := s.read()
		if err == io.EOF {
			return Token{}, fmt.Errorf("%s: unterminated string", start)
		}
		if err != nil {
			return Token{}, errors.Wrapf(err, "reading string at %s", start)
		}
		if r == '"' {
			return Token{Class: String, Text: b.String(), Pos: start}, nil
		}
		b.WriteRune(r)
	}
}

func (s *Scanner) scanAtom(first rune, start Pos) (Token, error) {
	var b strings.Builder
	b.WriteRune(first)
	for {
		r, err := s.read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Token{}, errors.Wrapf(err, "reading atom at %s", start)
		}
		if unicode.IsSpace(r) || r == '(' || r == ')' || r == '#' || r == '"' {
			s.unread()
			break
		}
		b.WriteRune(r)
	}
	return Token{Class: Atom, Text: b.String(), Pos: start}, nil
}

// Slice is a Feed over a fixed list of tokens, terminated by EOF.
type Slice struct {
	toks []Token
	i    int
}

func NewSlice(toks ...Token) *Slice {
	return &Slice{toks: toks}
}

func (s *Slice) Peek() (Token, error) {
	if s.i >= len(s.toks) {
		return Token{Class: EOF}, nil
	}
	return s.toks[s.i], nil
}

func (s *Slice) Next() (Token, error) {
	tok, err := s.Peek()
	if err == nil && s.i < len(s.toks) {
		s.i++
	}
	return tok, err
}

// Expect reads the next token and fails unless it has the given class.
func Expect(f Feed, c Class) (Token, error) {
	tok, err := f.Next()
	if err != nil {
		return tok, err
	}
	if tok.Class != c {
		return tok, fmt.Errorf("%s: expected %s, found %s", tok.Pos, c, tok)
	}
	return tok, nil
}
