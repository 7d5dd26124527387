// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokenTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	toks, err := Lex(src)
	require.NoError(t, err)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func TestLexCompoundQuantity(t *testing.T) {
	toks, err := Lex("1h30min")
	require.NoError(t, err)
	require.Len(t, toks, 2) // QUANTITY, EOF
	require.Equal(t, QUANTITY, toks[0].Type)
	require.Len(t, toks[0].Fragments, 2)
	require.Equal(t, "h", toks[0].Fragments[0].Unit)
	require.Equal(t, "min", toks[0].Fragments[1].Unit)
}

func TestLexUnknownUnitSuffixFails(t *testing.T) {
	_, err := Lex("5hello")
	require.Error(t, err)
}

func TestLexPlainNumberFollowedByIdent(t *testing.T) {
	// digits immediately followed by a known unit is a quantity; a bare
	// number followed by whitespace then an identifier is two tokens.
	types := tokenTypes(t, "5 hello")
	require.Equal(t, NUMBER, types[0])
	require.Equal(t, IDENT, types[1])
}

func TestLexBitwiseOperatorsExcludePipe(t *testing.T) {
	types := tokenTypes(t, "a & b | c")
	require.Contains(t, types, AMP)
	require.Contains(t, types, PIPE)
}

func TestLexTemplateString(t *testing.T) {
	toks, err := Lex("`hi ${x}`")
	require.NoError(t, err)
	require.Equal(t, TEMPLATE, toks[0].Type)
}
