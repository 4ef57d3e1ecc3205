// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package lower turns an ast.TranslationUnit into an ir.Program (spec
// §4.3). Every virtual register gets its own stack slot for its entire
// lifetime; there is no register allocation and no optimization pass
// beyond early-return truncation.
package lower

import (
	"wcc64/ast"
	"wcc64/diag"
	"wcc64/ir"
	"wcc64/utils"
)

// scope is the flat per-function symbol table: one name -> slot mapping
// shared by every compound statement in the function (spec §3: no
// nested scoping).
type scope struct {
	fn   string
	syms map[string]ir.Value
}

func newScope(fn string) *scope {
	return &scope{fn: fn, syms: map[string]ir.Value{}}
}

func (s *scope) declare(name string, slot ir.Value) error {
	if _, exists := s.syms[name]; exists {
		return diag.In(diag.Redeclared, s.fn, "%q declared more than once", name)
	}
	s.syms[name] = slot
	return nil
}

func (s *scope) lookup(name string) (ir.Value, error) {
	slot, ok := s.syms[name]
	if !ok {
		return ir.NoValue, diag.In(diag.UndefinedSymbol, s.fn, "%q used before declaration", name)
	}
	return slot, nil
}

// Program lowers every function in tu, in order.
func Program(tu *ast.TranslationUnit) (*ir.Program, error) {
	prog := &ir.Program{}
	for _, fn := range tu.Funcs {
		lowered, err := Function(fn)
		if err != nil {
			return nil, err
		}
		prog.Funcs = append(prog.Funcs, lowered)
	}
	return prog, nil
}

// Function lowers a single ast.Func to its ir.Func CFG.
func Function(fn *ast.Func) (*ir.Func, error) {
	paramNames := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		paramNames[i] = p.Name
	}

	b := ir.NewBuilder(fn.Name, paramNames, fn.RetType == ast.RetVoid)
	sc := newScope(fn.Name)
	for i, p := range fn.Params {
		if err := sc.declare(p.Name, b.Params()[i]); err != nil {
			return nil, err
		}
	}

	l := &lowerer{b: b, sc: sc}
	if err := l.stmt(fn.Body); err != nil {
		return nil, err
	}
	if !b.Terminated() {
		if fn.RetType == ast.RetVoid {
			b.Terminate(&ir.Ret{Value: ir.NoValue})
		} else {
			zero := b.FreshValue()
			b.Emit(&ir.MoveImm{Dst: zero, Imm: 0})
			b.Terminate(&ir.Ret{Value: zero})
		}
	}
	return b.Finish(), nil
}

type lowerer struct {
	b  *ir.Builder
	sc *scope
}

// stmt lowers s into the builder's current block. Once the current
// block is terminated, any remaining statements in the same compound
// are unreachable and dropped without error (spec §4.3 early-return
// truncation): callers iterating a Compound's Stmts must stop as soon
// as stmt returns with the block terminated, which Compound itself does.
func (l *lowerer) stmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Compound:
		for _, inner := range s.Stmts {
			if l.b.Terminated() {
				break
			}
			if err := l.stmt(inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.Decl:
		slot := l.b.FreshValue()
		return l.sc.declare(s.Name, slot)

	case *ast.ExprStmt:
		_, err := l.expr(s.Expr)
		return err

	case *ast.Return:
		if s.Expr == nil {
			l.b.Terminate(&ir.Ret{Value: ir.NoValue})
			return nil
		}
		v, err := l.expr(s.Expr)
		if err != nil {
			return err
		}
		l.b.Terminate(&ir.Ret{Value: v})
		return nil

	case *ast.If:
		return l.ifStmt(s)

	case *ast.While:
		return l.whileStmt(s)

	default:
		return diag.In(diag.UnexpectedEvent, l.sc.fn, "lower: unhandled statement %T", s)
	}
}

func (l *lowerer) ifStmt(s *ast.If) error {
	cond, err := l.expr(s.Cond)
	if err != nil {
		return err
	}

	bThen := l.b.NewBlock()
	bMerge := l.b.NewBlock()

	if s.Else == nil {
		l.b.Terminate(&ir.Branch{Cond: cond, TrueTarget: bThen, FalseTarget: bMerge})

		l.b.SetCurrent(bThen)
		if err := l.stmt(s.Then); err != nil {
			return err
		}
		if !l.b.Terminated() {
			l.b.Terminate(&ir.Jump{Target: bMerge})
		}

		l.b.SetCurrent(bMerge)
		return nil
	}

	bElse := l.b.NewBlock()
	l.b.Terminate(&ir.Branch{Cond: cond, TrueTarget: bThen, FalseTarget: bElse})

	l.b.SetCurrent(bThen)
	if err := l.stmt(s.Then); err != nil {
		return err
	}
	if !l.b.Terminated() {
		l.b.Terminate(&ir.Jump{Target: bMerge})
	}

	l.b.SetCurrent(bElse)
	if err := l.stmt(s.Else); err != nil {
		return err
	}
	if !l.b.Terminated() {
		l.b.Terminate(&ir.Jump{Target: bMerge})
	}

	l.b.SetCurrent(bMerge)
	return nil
}

func (l *lowerer) whileStmt(s *ast.While) error {
	bCond := l.b.NewBlock()
	bBody := l.b.NewBlock()
	bMerge := l.b.NewBlock()

	l.b.Terminate(&ir.Jump{Target: bCond})

	l.b.SetCurrent(bCond)
	cond, err := l.expr(s.Cond)
	if err != nil {
		return err
	}
	l.b.Terminate(&ir.Branch{Cond: cond, TrueTarget: bBody, FalseTarget: bMerge})

	l.b.SetCurrent(bBody)
	if err := l.stmt(s.Body); err != nil {
		return err
	}
	if !l.b.Terminated() {
		l.b.Terminate(&ir.Jump{Target: bCond})
	}

	l.b.SetCurrent(bMerge)
	return nil
}

func (l *lowerer) expr(e ast.Expr) (ir.Value, error) {
	switch e := e.(type) {
	case *ast.Int:
		dst := l.b.FreshValue()
		v := e.Value
		if e.Neg {
			v = -v
		}
		l.b.Emit(&ir.MoveImm{Dst: dst, Imm: v})
		return dst, nil

	case *ast.Ident:
		return l.sc.lookup(e.Name)

	case *ast.Unary:
		src, err := l.expr(e.Operand)
		if err != nil {
			return ir.NoValue, err
		}
		dst := l.b.FreshValue()
		var op ir.UnOp
		if e.Op == ast.OpNeg {
			op = ir.Neg
		} else {
			op = ir.Not
		}
		l.b.Emit(&ir.UnaryOp{Dst: dst, Op: op, Src: src})
		return dst, nil

	case *ast.Assign:
		rhs, err := l.expr(e.Rhs)
		if err != nil {
			return ir.NoValue, err
		}
		slot, err := l.sc.lookup(e.Target)
		if err != nil {
			return ir.NoValue, err
		}
		l.b.Emit(&ir.Move{Dst: slot, Src: rhs})
		return slot, nil

	case *ast.Call:
		args := make([]ir.Value, len(e.Args))
		for i, a := range e.Args {
			v, err := l.expr(a)
			if err != nil {
				return ir.NoValue, err
			}
			args[i] = v
		}
		dst := l.b.FreshValue()
		l.b.Emit(&ir.Call{Dst: dst, Callee: e.Callee, Args: args})
		return dst, nil

	case *ast.Binary:
		if e.Op.IsShortCircuit() {
			return l.shortCircuit(e)
		}
		lhs, err := l.expr(e.Lhs)
		if err != nil {
			return ir.NoValue, err
		}
		rhs, err := l.expr(e.Rhs)
		if err != nil {
			return ir.NoValue, err
		}
		dst := l.b.FreshValue()
		l.b.Emit(&ir.BinaryOp{Dst: dst, Op: binOp(e.Op), Lhs: lhs, Rhs: rhs})
		return dst, nil

	default:
		return ir.NoValue, diag.In(diag.UnexpectedEvent, l.sc.fn, "lower: unhandled expression %T", e)
	}
}

// shortCircuit lowers && and || into explicit control flow (spec §4.3):
// the right-hand side is only evaluated on the branch where it can
// affect the result, so e.g. `n != 0 && 10 / n > 1` never divides by
// zero.
func (l *lowerer) shortCircuit(e *ast.Binary) (ir.Value, error) {
	lhs, err := l.expr(e.Lhs)
	if err != nil {
		return ir.NoValue, err
	}

	result := l.b.FreshValue()
	bRhs := l.b.NewBlock()
	bShort := l.b.NewBlock() // the short-circuit exit: Bfalse for &&, Btrue for ||
	bTrue := l.b.NewBlock()
	bFalse := l.b.NewBlock()
	bMerge := l.b.NewBlock()

	if e.Op == ast.OpLogAnd {
		l.b.Terminate(&ir.Branch{Cond: lhs, TrueTarget: bRhs, FalseTarget: bShort})
	} else {
		l.b.Terminate(&ir.Branch{Cond: lhs, TrueTarget: bShort, FalseTarget: bRhs})
	}

	// The rhs is only reached when it can still affect the result, so it
	// must still be branch-tested and canonicalized to 0/1, never moved
	// raw (spec §4.3 steps 3-5): `1 && 5` must yield 1, not 5.
	l.b.SetCurrent(bRhs)
	rhs, err := l.expr(e.Rhs)
	if err != nil {
		return ir.NoValue, err
	}
	l.b.Terminate(&ir.Branch{Cond: rhs, TrueTarget: bTrue, FalseTarget: bFalse})

	l.b.SetCurrent(bTrue)
	l.b.Emit(&ir.MoveImm{Dst: result, Imm: 1})
	l.b.Terminate(&ir.Jump{Target: bMerge})

	l.b.SetCurrent(bFalse)
	l.b.Emit(&ir.MoveImm{Dst: result, Imm: 0})
	l.b.Terminate(&ir.Jump{Target: bMerge})

	l.b.SetCurrent(bShort)
	shortValue := int64(0)
	if e.Op == ast.OpLogOr {
		shortValue = 1
	}
	l.b.Emit(&ir.MoveImm{Dst: result, Imm: shortValue})
	l.b.Terminate(&ir.Jump{Target: bMerge})

	l.b.SetCurrent(bMerge)
	return result, nil
}

func binOp(op ast.BinOp) ir.BinOp {
	switch op {
	case ast.OpMul:
		return ir.Mul
	case ast.OpDiv:
		return ir.Div
	case ast.OpAdd:
		return ir.Add
	case ast.OpSub:
		return ir.Sub
	case ast.OpLt:
		return ir.Lt
	case ast.OpGt:
		return ir.Gt
	case ast.OpLe:
		return ir.Le
	case ast.OpGe:
		return ir.Ge
	case ast.OpEq:
		return ir.Eq
	case ast.OpNe:
		return ir.Ne
	default:
		utils.ShouldNotReachHere()
	}
	return ir.Add
}
