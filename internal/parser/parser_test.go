// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"calcnote/internal/ast"
)

func TestPrecedenceClimbingMultiplyBeforeAdd(t *testing.T) {
	node, err := ParseLine("1 + 2 * 3")
	require.NoError(t, err)
	bin, ok := node.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
	rhs, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "*", rhs.Op)
}

func TestBarePipeAlwaysParsesAsPipe(t *testing.T) {
	node, err := ParseLine("x | double")
	require.NoError(t, err)
	_, ok := node.(*ast.Pipe)
	require.True(t, ok)
}

func TestBitwiseOrRequiresBitorCall(t *testing.T) {
	node, err := ParseLine("bitor(a, b)")
	require.NoError(t, err)
	call, ok := node.(*ast.Call)
	require.True(t, ok)
	ident, ok := call.Callee.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "bitor", ident.Name)
}

func TestSingleLetterUnitParamNameRejected(t *testing.T) {
	_, err := ParseLine("f(m) = m * 2")
	require.Error(t, err)
}

func TestMultiLetterParamNameAccepted(t *testing.T) {
	node, err := ParseLine("f(meters) = meters * 2")
	require.NoError(t, err)
	def, ok := node.(*ast.FuncDef)
	require.True(t, ok)
	require.Equal(t, []string{"meters"}, def.Params)
}

func TestPipeRejectsBareLambda(t *testing.T) {
	_, err := ParseLine("5 | x => x + 1")
	require.Error(t, err)
}

func TestTemplateStringParsesInterpolation(t *testing.T) {
	node, err := ParseLine("`total: ${x + 1}`")
	require.NoError(t, err)
	tmpl, ok := node.(*ast.TemplateLit)
	require.True(t, ok)
	require.NotEmpty(t, tmpl.Parts)
}

func TestLambdaAssociatesWithArrow(t *testing.T) {
	node, err := ParseLine("x => x + 1")
	require.NoError(t, err)
	_, ok := node.(*ast.Lambda)
	require.True(t, ok)
}

func TestConvertParsesToKeyword(t *testing.T) {
	node, err := ParseLine("1km to miles")
	require.NoError(t, err)
	conv, ok := node.(*ast.Convert)
	require.True(t, ok)
	require.Equal(t, "miles", conv.Target)
}
