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
package ast

import (
	"fmt"
	"strconv"
	"strings"

	"wcc64/diag"
	"wcc64/event"
)

// Builder folds a linear postorder event stream into a TranslationUnit by
// maintaining two working stacks, per spec §4.1. It is a pure fold: it
// never looks ahead or behind the current event.
type Builder struct {
	exprStack []Expr
	stmtStack []Stmt
	// compoundMarks[i] is the stmtStack depth at the matching
	// EnterCompoundStatement; ExitCompoundStatement slices back to it.
	compoundMarks []int
	// pendingArgs counts ExitArgumentExpressionList events seen since the
	// last call was resolved. A single counter suffices because argument
	// lists always resolve innermost-first in a postorder stream — see
	// SPEC_FULL.md's frontend notes for the worked example.
	pendingArgs int

	tu TranslationUnit
}

// NewBuilder returns an empty Builder ready to consume an event.Stream.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build folds the entire stream and returns the resulting TranslationUnit,
// or the first diagnostic encountered.
func Build(stream event.Stream) (*TranslationUnit, error) {
	b := NewBuilder()
	for _, ev := range stream {
		if err := b.step(ev); err != nil {
			return nil, err
		}
	}
	return &b.tu, nil
}

// err builds a diagnostic for a malformed event. The enclosing function's
// name is not available here: the postorder stream only reveals it at
// ExitFunctionDefinition, by which point a whole function's worth of
// events — including any that could fail — has already been consumed, so
// there is nothing upstream of that event to anchor a function name to.
// reduceFunction anchors its own errors once the name is in hand instead.
// When ev carries a source position (spec §7: diagnostics identify "the
// offending construct... and approximate position"), it's appended to the
// detail text; hand-built event.Stream values used in tests leave Pos
// zero and the diagnostic degrades to just the detail text.
func (b *Builder) err(kind diag.Kind, ev event.Event, format string, args ...interface{}) error {
	detail := fmt.Sprintf(format, args...)
	if ev.Pos.IsValid() {
		detail = fmt.Sprintf("%s (at line %d, col %d)", detail, ev.Pos.Line, ev.Pos.Col)
	}
	return diag.New(kind, "%s", detail)
}

func (b *Builder) pushExpr(e Expr) { b.exprStack = append(b.exprStack, e) }

func (b *Builder) popExpr(ev event.Event) (Expr, error) {
	if len(b.exprStack) == 0 {
		return nil, b.err(diag.StackUnderflow, ev, "expression stack underflow handling %v", ev.Tag)
	}
	e := b.exprStack[len(b.exprStack)-1]
	b.exprStack = b.exprStack[:len(b.exprStack)-1]
	return e, nil
}

func (b *Builder) pushStmt(s Stmt) { b.stmtStack = append(b.stmtStack, s) }

func (b *Builder) popStmt(ev event.Event) (Stmt, error) {
	if len(b.stmtStack) == 0 {
		return nil, b.err(diag.StackUnderflow, ev, "statement stack underflow handling %v", ev.Tag)
	}
	s := b.stmtStack[len(b.stmtStack)-1]
	b.stmtStack = b.stmtStack[:len(b.stmtStack)-1]
	return s, nil
}

func (b *Builder) step(ev event.Event) error {
	switch ev.Tag {
	case event.ExitPrimaryExpression:
		return b.reducePrimary(ev)
	case event.ExitUnaryExpression:
		return b.reduceUnary(ev)
	case event.ExitMultiplicativeExpression:
		return b.reduceBinary(ev, map[string]BinOp{"*": OpMul, "/": OpDiv})
	case event.ExitAdditiveExpression:
		return b.reduceBinary(ev, map[string]BinOp{"+": OpAdd, "-": OpSub})
	case event.ExitRelationalExpression:
		return b.reduceBinary(ev, map[string]BinOp{"<": OpLt, ">": OpGt, "<=": OpLe, ">=": OpGe})
	case event.ExitEqualityExpression:
		return b.reduceBinary(ev, map[string]BinOp{"==": OpEq, "!=": OpNe})
	case event.ExitLogicalAndExpression:
		return b.reduceBinary(ev, map[string]BinOp{"&&": OpLogAnd})
	case event.ExitLogicalOrExpression:
		return b.reduceBinary(ev, map[string]BinOp{"||": OpLogOr})
	case event.ExitAssignmentExpression:
		return b.reduceAssignment(ev)
	case event.ExitArgumentExpressionList:
		b.pendingArgs++
		return nil
	case event.ExitPostfixExpression:
		return b.reduceCall(ev)

	case event.ExitDeclaration:
		if ev.Text == "" {
			return b.err(diag.UnexpectedEvent, ev, "declaration missing identifier payload")
		}
		b.pushStmt(&Decl{Name: ev.Text})
		return nil
	case event.ExitExpressionStatement:
		e, err := b.popExpr(ev)
		if err != nil {
			return err
		}
		b.pushStmt(&ExprStmt{Expr: e})
		return nil
	case event.ExitSelectionStatement:
		return b.reduceSelection(ev)
	case event.ExitIterationStatement:
		return b.reduceIteration(ev)
	case event.ExitJumpStatement:
		return b.reduceJump(ev)

	case event.EnterCompoundStatement:
		b.compoundMarks = append(b.compoundMarks, len(b.stmtStack))
		return nil
	case event.ExitCompoundStatement:
		return b.reduceCompound(ev)

	case event.ExitFunctionDefinition:
		return b.reduceFunction(ev)

	default:
		return b.err(diag.UnknownEvent, ev, "unknown event tag %v", ev.Tag)
	}
}

func (b *Builder) reducePrimary(ev event.Event) error {
	text := ev.Text
	if text == "" {
		return b.err(diag.UnexpectedEvent, ev, "primary expression missing payload")
	}
	if n, err := strconv.ParseInt(strings.TrimPrefix(text, "-"), 10, 64); err == nil {
		b.pushExpr(&Int{Value: n, Neg: strings.HasPrefix(text, "-")})
		return nil
	}
	b.pushExpr(&Ident{Name: text})
	return nil
}

func (b *Builder) reduceUnary(ev event.Event) error {
	var op UnOp
	switch ev.Text {
	case "!":
		op = OpNot
	case "-":
		op = OpNeg
	default:
		return b.err(diag.UnexpectedEvent, ev, "unrecognized unary operator %q", ev.Text)
	}
	operand, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	b.pushExpr(&Unary{Op: op, Operand: operand})
	return nil
}

func (b *Builder) reduceBinary(ev event.Event, ops map[string]BinOp) error {
	op, ok := ops[ev.Text]
	if !ok {
		return b.err(diag.UnexpectedEvent, ev, "unrecognized operator %q for %v", ev.Text, ev.Tag)
	}
	rhs, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	lhs, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	b.pushExpr(&Binary{Op: op, Lhs: lhs, Rhs: rhs})
	return nil
}

func (b *Builder) reduceAssignment(ev event.Event) error {
	rhs, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	lhsExpr, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	lhs, ok := lhsExpr.(*Ident)
	if !ok {
		return b.err(diag.UnexpectedEvent, ev, "assignment target %v is not an identifier", lhsExpr)
	}
	b.pushExpr(&Assign{Target: lhs.Name, Rhs: rhs})
	return nil
}

func (b *Builder) reduceCall(ev event.Event) error {
	n := b.pendingArgs
	b.pendingArgs = 0
	args := make([]Expr, n)
	for i := n - 1; i >= 0; i-- {
		arg, err := b.popExpr(ev)
		if err != nil {
			return err
		}
		args[i] = arg
	}
	calleeExpr, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	callee, ok := calleeExpr.(*Ident)
	if !ok {
		return b.err(diag.UnexpectedEvent, ev, "call target %v is not an identifier", calleeExpr)
	}
	b.pushExpr(&Call{Callee: callee.Name, Args: args})
	return nil
}

func (b *Builder) reduceSelection(ev event.Event) error {
	switch ev.Text {
	case "else":
		elseStmt, err := b.popStmt(ev)
		if err != nil {
			return err
		}
		thenStmt, err := b.popStmt(ev)
		if err != nil {
			return err
		}
		cond, err := b.popExpr(ev)
		if err != nil {
			return err
		}
		b.pushStmt(&If{Cond: cond, Then: thenStmt, Else: elseStmt})
		return nil
	case "":
		thenStmt, err := b.popStmt(ev)
		if err != nil {
			return err
		}
		cond, err := b.popExpr(ev)
		if err != nil {
			return err
		}
		b.pushStmt(&If{Cond: cond, Then: thenStmt})
		return nil
	default:
		return b.err(diag.UnexpectedEvent, ev, "unrecognized selection payload %q", ev.Text)
	}
}

func (b *Builder) reduceIteration(ev event.Event) error {
	body, err := b.popStmt(ev)
	if err != nil {
		return err
	}
	cond, err := b.popExpr(ev)
	if err != nil {
		return err
	}
	b.pushStmt(&While{Cond: cond, Body: body})
	return nil
}

func (b *Builder) reduceJump(ev event.Event) error {
	switch ev.Text {
	case "expr":
		e, err := b.popExpr(ev)
		if err != nil {
			return err
		}
		b.pushStmt(&Return{Expr: e})
		return nil
	case "":
		b.pushStmt(&Return{})
		return nil
	default:
		return b.err(diag.UnexpectedEvent, ev, "unrecognized jump payload %q", ev.Text)
	}
}

func (b *Builder) reduceCompound(ev event.Event) error {
	if len(b.compoundMarks) == 0 {
		return b.err(diag.UnexpectedEvent, ev, "unmatched ExitCompoundStatement")
	}
	mark := b.compoundMarks[len(b.compoundMarks)-1]
	b.compoundMarks = b.compoundMarks[:len(b.compoundMarks)-1]
	stmts := make([]Stmt, len(b.stmtStack)-mark)
	copy(stmts, b.stmtStack[mark:])
	b.stmtStack = b.stmtStack[:mark]
	b.pushStmt(&Compound{Stmts: stmts})
	return nil
}

func (b *Builder) reduceFunction(ev event.Event) error {
	sig := strings.Fields(strings.TrimSpace(ev.Text))
	if len(sig) < 2 {
		return diag.New(diag.MalformedSignature, "function signature %q needs at least a return type and a name", ev.Text)
	}
	retText, name, paramNames := sig[0], sig[1], sig[2:]

	var retType RetType
	switch retText {
	case "int":
		retType = RetInt
	case "void":
		retType = RetVoid
	default:
		return diag.New(diag.MalformedSignature, "unrecognized return type %q in signature %q", retText, ev.Text)
	}

	bodyStmt, err := b.popStmt(ev)
	if err != nil {
		return diag.In(diag.StackUnderflow, name, "missing function body: %s", err)
	}
	body, ok := bodyStmt.(*Compound)
	if !ok {
		return diag.In(diag.UnexpectedEvent, name, "function body is not a compound statement")
	}

	params := make([]Param, len(paramNames))
	for i, p := range paramNames {
		params[i] = Param{Name: p}
	}

	b.tu.Funcs = append(b.tu.Funcs, &Func{
		RetType: retType,
		Name:    name,
		Params:  params,
		Body:    body,
	})
	return nil
}
