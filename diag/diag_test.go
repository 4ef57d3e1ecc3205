package diag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasNoFunctionContext(t *testing.T) {
	err := New(UndefinedSymbol, "%q used before declaration", "x")
	assert.Equal(t, "UndefinedSymbol: \"x\" used before declaration", err.Error())
	assert.Empty(t, err.Function)
}

func TestInAnchorsFunctionName(t *testing.T) {
	err := In(Redeclared, "main", "%q declared more than once", "x")
	assert.Equal(t, `Redeclared: in function "main": "x" declared more than once`, err.Error())
}

func TestWrapKeepsCauseChain(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(EmitError, "", cause, "writing out.asm")

	require.ErrorContains(t, err, "writing out.asm")
	require.ErrorIs(t, err, cause)
}

func TestKindOfOnlyReportsDiagErrors(t *testing.T) {
	inner := New(StackUnderflow, "expression stack underflow")
	wrapped := errors.New("pipeline failed: " + inner.Error())

	_, ok := KindOf(wrapped)
	assert.False(t, ok, "a plain error with no *diag.Error in its chain must not report a Kind")

	kind, ok := KindOf(inner)
	require.True(t, ok)
	assert.Equal(t, StackUnderflow, kind)
}
