package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	s := NewScanner(strings.NewReader(src), "test.hil")
	var toks []Token
	for {
		tok, err := s.Next()
		require.NoError(t, err)
		if tok.Class == EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestScanner(t *testing.T) {
	t.Run("atoms and groups", func(t *testing.T) {
		toks := scanAll(t, "term (wff (-> wff wff))")
		var texts []string
		for _, tok := range toks {
			texts = append(texts, tok.Text)
		}
		assert.Equal(t, []string{"term", "(", "wff", "(", "->", "wff", "wff", ")", ")"}, texts)
		assert.Equal(t, Begin, toks[1].Class)
		assert.Equal(t, End, toks[8].Class)
	})

	t.Run("comments and positions", func(t *testing.T) {
		toks := scanAll(t, "# header\nkind (K) # trailing\n  var (K x)")
		require.Len(t, toks, 9)
		assert.Equal(t, Pos{Filename: "test.hil", Line: 2, Column: 1}, toks[0].Pos)
		assert.Equal(t, "var", toks[4].Text)
		assert.Equal(t, Pos{Filename: "test.hil", Line: 3, Column: 3}, toks[4].Pos)
	})

	t.Run("strings", func(t *testing.T) {
		toks := scanAll(t, `import (P foo () "")`)
		require.Len(t, toks, 8)
		assert.Equal(t, String, toks[6].Class)
		assert.Equal(t, "", toks[6].Text)
		assert.Equal(t, End, toks[7].Class)
	})

	t.Run("unterminated string", func(t *testing.T) {
		s := NewScanner(strings.NewReader(`"abc`), "")
		_, err := s.Next()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unterminated string")
	})

	t.Run("peek does not consume", func(t *testing.T) {
		s := NewScanner(strings.NewReader("a b"), "")
		p, err := s.Peek()
		require.NoError(t, err)
		n, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, p, n)
		n, err = s.Next()
		require.NoError(t, err)
		assert.Equal(t, "b", n.Text)
	})
}

func TestExpect(t *testing.T) {
	f := NewSlice(Token{Class: Atom, Text: "x"})
	_, err := Expect(f, Begin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `expected "("`)
	tok, err := Expect(f, EOF)
	require.NoError(t, err)
	assert.Equal(t, EOF, tok.Class)
}
