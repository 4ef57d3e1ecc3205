package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wcc64/ast"
	"wcc64/diag"
	"wcc64/ir"
)

func intLit(v int64) *ast.Int { return &ast.Int{Value: v} }

// int main() { return 42; }
func TestLowerConstantReturn(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "main",
		Body:    &ast.Compound{Stmts: []ast.Stmt{&ast.Return{Expr: intLit(42)}}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)
	require.Len(t, lowered.Blocks, 1)

	entry := lowered.Blocks[lowered.Entry]
	require.Len(t, entry.Instrs, 1)
	mi, ok := entry.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(42), mi.Imm)

	ret, ok := entry.Term.(*ir.Ret)
	require.True(t, ok)
	assert.Equal(t, mi.Dst, ret.Value)
}

// int add(a, b) { return a + b; }
func TestLowerParamsAndBinary(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "add",
		Params:  []ast.Param{{Name: "a"}, {Name: "b"}},
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.Return{Expr: &ast.Binary{Op: ast.OpAdd, Lhs: &ast.Ident{Name: "a"}, Rhs: &ast.Ident{Name: "b"}}},
		}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)
	require.Len(t, lowered.ParamSlots, 2)

	entry := lowered.Blocks[lowered.Entry]
	require.Len(t, entry.Instrs, 1)
	bin := entry.Instrs[0].(*ir.BinaryOp)
	assert.Equal(t, ir.Add, bin.Op)
	assert.Equal(t, lowered.ParamSlots[0], bin.Lhs)
	assert.Equal(t, lowered.ParamSlots[1], bin.Rhs)
}

// int f() { if (1) { return 1; } return 0; }
func TestLowerIfNoElseMerges(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.If{Cond: intLit(1), Then: &ast.Compound{Stmts: []ast.Stmt{&ast.Return{Expr: intLit(1)}}}},
			&ast.Return{Expr: intLit(0)},
		}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)
	// entry, then, merge == 3 blocks
	require.Len(t, lowered.Blocks, 3)

	entry := lowered.Blocks[lowered.Entry]
	br, ok := entry.Term.(*ir.Branch)
	require.True(t, ok)

	thenBlock := lowered.Blocks[br.TrueTarget]
	_, ok = thenBlock.Term.(*ir.Ret)
	require.True(t, ok)

	mergeBlock := lowered.Blocks[br.FalseTarget]
	_, ok = mergeBlock.Term.(*ir.Ret)
	require.True(t, ok)
}

// int f() { if (1) { return 1; } else { return 0; } }
func TestLowerIfElseBothTerminate(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.If{
				Cond: intLit(1),
				Then: &ast.Compound{Stmts: []ast.Stmt{&ast.Return{Expr: intLit(1)}}},
				Else: &ast.Compound{Stmts: []ast.Stmt{&ast.Return{Expr: intLit(0)}}},
			},
		}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)
	// entry, then, else, merge == 4 blocks (merge unreachable but still allocated)
	require.Len(t, lowered.Blocks, 4)
}

// void countdown(n) { while (n) { n = n - 1; } }
func TestLowerWhile(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetVoid,
		Name:    "countdown",
		Params:  []ast.Param{{Name: "n"}},
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.While{
				Cond: &ast.Ident{Name: "n"},
				Body: &ast.Compound{Stmts: []ast.Stmt{
					&ast.ExprStmt{Expr: &ast.Assign{Target: "n", Rhs: &ast.Binary{Op: ast.OpSub, Lhs: &ast.Ident{Name: "n"}, Rhs: intLit(1)}}},
				}},
			},
		}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)
	// entry, cond, body, merge == 4 blocks
	require.Len(t, lowered.Blocks, 4)

	entry := lowered.Blocks[lowered.Entry]
	jmp, ok := entry.Term.(*ir.Jump)
	require.True(t, ok)

	condBlock := lowered.Blocks[jmp.Target]
	br, ok := condBlock.Term.(*ir.Branch)
	require.True(t, ok)

	bodyBlock := lowered.Blocks[br.TrueTarget]
	_, ok = bodyBlock.Term.(*ir.Jump)
	require.True(t, ok)

	mergeBlock := lowered.Blocks[br.FalseTarget]
	_, ok = mergeBlock.Term.(*ir.Ret)
	require.True(t, ok)
}

// int f(n) { return n != 0 && 10 / n > 1; }  -- short circuit must guard the division.
func TestLowerShortCircuitAndBranches(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Params:  []ast.Param{{Name: "n"}},
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.Return{Expr: &ast.Binary{
				Op: ast.OpLogAnd,
				Lhs: &ast.Binary{Op: ast.OpNe, Lhs: &ast.Ident{Name: "n"}, Rhs: intLit(0)},
				Rhs: &ast.Binary{
					Op: ast.OpGt,
					Lhs: &ast.Binary{Op: ast.OpDiv, Lhs: intLit(10), Rhs: &ast.Ident{Name: "n"}},
					Rhs: intLit(1),
				},
			}},
		}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)
	// entry (computes n!=0), rhs (division + compare), short (false),
	// true/false canonicalizers for the rhs branch, merge
	require.Len(t, lowered.Blocks, 6)

	entry := lowered.Blocks[lowered.Entry]
	var hasCompareNe bool
	for _, instr := range entry.Instrs {
		if bop, ok := instr.(*ir.BinaryOp); ok && bop.Op == ir.Ne {
			hasCompareNe = true
		}
	}
	assert.True(t, hasCompareNe)

	br, ok := entry.Term.(*ir.Branch)
	require.True(t, ok)

	rhsBlock := lowered.Blocks[br.TrueTarget]
	var hasDiv bool
	for _, instr := range rhsBlock.Instrs {
		if bop, ok := instr.(*ir.BinaryOp); ok && bop.Op == ir.Div {
			hasDiv = true
		}
	}
	assert.True(t, hasDiv, "division must only appear on the rhs-evaluation block, never unconditionally")

	// the rhs block must itself branch-test its result, not move it raw
	rhsBranch, ok := rhsBlock.Term.(*ir.Branch)
	require.True(t, ok, "rhs block must branch-test its comparison result rather than move it raw into the result slot")

	rhsTrueBlock := lowered.Blocks[rhsBranch.TrueTarget]
	require.Len(t, rhsTrueBlock.Instrs, 1)
	rhsTrueMi, ok := rhsTrueBlock.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(1), rhsTrueMi.Imm)

	rhsFalseBlock := lowered.Blocks[rhsBranch.FalseTarget]
	require.Len(t, rhsFalseBlock.Instrs, 1)
	rhsFalseMi, ok := rhsFalseBlock.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(0), rhsFalseMi.Imm)

	shortBlock := lowered.Blocks[br.FalseTarget]
	require.Len(t, shortBlock.Instrs, 1)
	mi, ok := shortBlock.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(0), mi.Imm)
}

// int main() { return 1 && 5; } -- the rhs is a raw non-0/1 value and must
// still be canonicalized, never moved straight into the result (spec §4.3
// steps 3-5): this must compute 1, not 5.
func TestLowerShortCircuitCanonicalizesNonBooleanRhs(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "main",
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.Return{Expr: &ast.Binary{Op: ast.OpLogAnd, Lhs: intLit(1), Rhs: intLit(5)}},
		}},
	}

	lowered, err := Function(fn)
	require.NoError(t, err)

	entry := lowered.Blocks[lowered.Entry]
	br, ok := entry.Term.(*ir.Branch)
	require.True(t, ok)

	rhsBlock := lowered.Blocks[br.TrueTarget]
	rhsBranch, ok := rhsBlock.Term.(*ir.Branch)
	require.True(t, ok, "rhs must be branch-tested, not moved raw")

	trueBlock := lowered.Blocks[rhsBranch.TrueTarget]
	require.Len(t, trueBlock.Instrs, 1)
	mi, ok := trueBlock.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(1), mi.Imm, "`1 && 5` must canonicalize to 1, never the raw rhs value 5")

	falseBlock := lowered.Blocks[rhsBranch.FalseTarget]
	require.Len(t, falseBlock.Instrs, 1)
	fmi, ok := falseBlock.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(0), fmi.Imm)
}

func TestLowerUndefinedSymbol(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Body:    &ast.Compound{Stmts: []ast.Stmt{&ast.Return{Expr: &ast.Ident{Name: "x"}}}},
	}
	_, err := Function(fn)
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.UndefinedSymbol, kind)
}

func TestLowerRedeclared(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.Decl{Name: "x"},
			&ast.Decl{Name: "x"},
			&ast.Return{Expr: intLit(0)},
		}},
	}
	_, err := Function(fn)
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.Redeclared, kind)
}

// Statements after a return in the same compound are dropped, not errors.
func TestLowerEarlyReturnTruncation(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.Return{Expr: intLit(1)},
			&ast.Decl{Name: "unreachable"}, // would allocate a second slot if processed
		}},
	}
	lowered, err := Function(fn)
	require.NoError(t, err)
	entry := lowered.Blocks[lowered.Entry]
	ret := entry.Term.(*ir.Ret)
	assert.NotEqual(t, ir.NoValue, ret.Value)
	assert.Equal(t, 1, lowered.NumSlots, "only the returned constant's slot; the dropped Decl allocates none")
}

// void f() { } -- implicit trailing ret with no expression.
func TestLowerImplicitVoidReturn(t *testing.T) {
	fn := &ast.Func{RetType: ast.RetVoid, Name: "f", Body: &ast.Compound{}}
	lowered, err := Function(fn)
	require.NoError(t, err)
	entry := lowered.Blocks[lowered.Entry]
	ret, ok := entry.Term.(*ir.Ret)
	require.True(t, ok)
	assert.Equal(t, ir.NoValue, ret.Value)
}

// int f(n) { if (n) { return 1; } } -- falling off the end of an int
// function without an explicit return on every path must materialize an
// explicit zero, not an empty ret (spec §4.3: "ret... with zero value for
// int"). Leaving Value as NoValue would have codegen skip loading rax
// entirely and return whatever garbage was left there.
func TestLowerImplicitIntReturnIsZero(t *testing.T) {
	fn := &ast.Func{
		RetType: ast.RetInt,
		Name:    "f",
		Params:  []ast.Param{{Name: "n"}},
		Body: &ast.Compound{Stmts: []ast.Stmt{
			&ast.If{
				Cond: &ast.Ident{Name: "n"},
				Then: &ast.Compound{Stmts: []ast.Stmt{&ast.Return{Expr: intLit(1)}}},
			},
		}},
	}
	lowered, err := Function(fn)
	require.NoError(t, err)

	br, ok := lowered.Blocks[lowered.Entry].Term.(*ir.Branch)
	require.True(t, ok)

	mergeBlock := lowered.Blocks[br.FalseTarget]
	ret, ok := mergeBlock.Term.(*ir.Ret)
	require.True(t, ok)
	require.NotEqual(t, ir.NoValue, ret.Value)

	require.Len(t, mergeBlock.Instrs, 1)
	mi, ok := mergeBlock.Instrs[0].(*ir.MoveImm)
	require.True(t, ok)
	assert.Equal(t, int64(0), mi.Imm)
}
