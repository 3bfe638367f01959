package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/nymphea/lang/token"
)

func scanAll(t *testing.T, src string) []Tok {
	t.Helper()
	var s Scanner
	s.Init(src)

	var toks []Tok
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
		require.Less(t, len(toks), 1000, "scanner did not terminate")
	}
}

func kinds(toks []Tok) []token.Token {
	ks := make([]token.Token, len(toks))
	for i, tok := range toks {
		ks[i] = tok.Kind
	}
	return ks
}

func TestScanPunctuation(t *testing.T) {
	toks := scanAll(t, "( ) { } [ ] , . .. - + ; / * ! != = == > >= < <= += -= *= /=")
	want := []token.Token{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.LBRACK,
		token.RBRACK, token.COMMA, token.DOT, token.DOTDOT, token.MINUS,
		token.PLUS, token.SEMI, token.SLASH, token.STAR, token.BANG,
		token.BANGEQ, token.EQ, token.EQEQ, token.GT, token.GE, token.LT,
		token.LE, token.PLUSEQ, token.MINUSEQ, token.STAREQ, token.SLASHEQ,
		token.EOF,
	}
	assert.Equal(t, want, kinds(toks))
}

func TestScanStatement(t *testing.T) {
	toks := scanAll(t, "var x = 1; // comment\nx += 2.5;")
	want := []token.Token{
		token.VAR, token.IDENT, token.EQ, token.NUMBER, token.SEMI,
		token.IDENT, token.PLUSEQ, token.NUMBER, token.SEMI, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
	assert.Equal(t, "x", toks[1].Lit)
	assert.Equal(t, "1", toks[3].Lit)
	assert.Equal(t, 1, toks[3].Line)
	assert.Equal(t, "2.5", toks[7].Lit)
	assert.Equal(t, 2, toks[5].Line)
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll(t, "0 12 3.25 .5 1..3")
	want := []token.Token{
		token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER,
		token.NUMBER, token.DOTDOT, token.NUMBER, token.EOF,
	}
	require.Equal(t, want, kinds(toks))
	assert.Equal(t, ".5", toks[3].Lit)
	assert.Equal(t, "1", toks[4].Lit)
	assert.Equal(t, "3", toks[6].Lit)
}

func TestScanString(t *testing.T) {
	toks := scanAll(t, `"hello" "two
lines"`)
	require.Equal(t, []token.Token{token.STRING, token.STRING, token.EOF}, kinds(toks))
	assert.Equal(t, "hello", toks[0].Lit)
	assert.Equal(t, "two\nlines", toks[1].Lit)
	assert.Equal(t, 1, toks[1].Line)
	assert.Equal(t, 2, toks[2].Line)
}

func TestScanInterpolation(t *testing.T) {
	toks := scanAll(t, `"a${x}b"`)
	require.Equal(t, []token.Token{token.INTERP, token.IDENT, token.STRING, token.EOF}, kinds(toks))
	assert.Equal(t, "a", toks[0].Lit)
	assert.Equal(t, "x", toks[1].Lit)
	assert.Equal(t, "b", toks[2].Lit)

	toks = scanAll(t, `"${x}"`)
	require.Equal(t, []token.Token{token.INTERP, token.IDENT, token.STRING, token.EOF}, kinds(toks))
	assert.Equal(t, "", toks[0].Lit)
	assert.Equal(t, "", toks[2].Lit)

	toks = scanAll(t, `"x=${a + b}!"`)
	require.Equal(t, []token.Token{
		token.INTERP, token.IDENT, token.PLUS, token.IDENT, token.STRING, token.EOF,
	}, kinds(toks))
	assert.Equal(t, "x=", toks[0].Lit)
	assert.Equal(t, "!", toks[4].Lit)
}

func TestScanInterpolationNestedBrace(t *testing.T) {
	var s Scanner
	s.Init(`"${ {`)
	tok := s.Scan()
	require.Equal(t, token.INTERP, tok.Kind)
	tok = s.Scan()
	require.Equal(t, token.ILLEGAL, tok.Kind)
	assert.Equal(t, "Unexpected '{' inside interpolation.", tok.Lit)
}

func TestScanErrors(t *testing.T) {
	toks := scanAll(t, `"abc`)
	require.Equal(t, []token.Token{token.ILLEGAL, token.EOF}, kinds(toks))
	assert.Equal(t, "Unterminated string.", toks[0].Lit)

	toks = scanAll(t, "@")
	require.Equal(t, []token.Token{token.ILLEGAL, token.EOF}, kinds(toks))
	assert.Equal(t, "Unexpected character.", toks[0].Lit)
}

func TestScanKeywordsAndIdents(t *testing.T) {
	toks := scanAll(t, "class Foo < Bar { fn init() { this.x = super.y; } }")
	want := []token.Token{
		token.CLASS, token.IDENT, token.LT, token.IDENT, token.LBRACE,
		token.FN, token.IDENT, token.LPAREN, token.RPAREN, token.LBRACE,
		token.THIS, token.DOT, token.IDENT, token.EQ, token.SUPER,
		token.DOT, token.IDENT, token.SEMI, token.RBRACE, token.RBRACE,
		token.EOF,
	}
	assert.Equal(t, want, kinds(toks))
}
