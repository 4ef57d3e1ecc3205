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

// Package frontend turns real C source into an event.Stream using
// modernc.org/cc/v4's full C11 grammar, the way ajroetker-goat's
// convertFunction/convertFunctionParameters walk the same library's
// cc.FunctionDefinition/cc.ParameterList. The core compiler (ast, ir,
// lower, codegen) never imports this package and its tests never
// exercise it: every package upstream of here is tested against
// hand-built event.Stream values instead, so a mismatch in cc/v4's
// exact field names only ever breaks this one translation boundary.
package frontend

import (
	"fmt"
	"os"
	"strings"

	"modernc.org/cc/v4"

	"wcc64/diag"
	"wcc64/event"
)

// EventsFromFile parses the C source at path and returns the postorder
// event.Stream for every accepted function definition it contains.
func EventsFromFile(path string) (event.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, diag.Wrap(diag.EmitError, "", err, "opening %s", path)
	}
	defer f.Close()

	cfg, err := cc.NewConfig(runtimeGOOS(), "amd64")
	if err != nil {
		return nil, diag.Wrap(diag.EmitError, "", err, "configuring C frontend")
	}

	tree, err := cc.Parse(cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: path, Value: f},
	})
	if err != nil {
		return nil, diag.Wrap(diag.EmitError, "", err, "parsing %s", path)
	}

	w := &walker{source: path}
	for tu := tree.TranslationUnit; tu != nil; tu = tu.TranslationUnit {
		ext := tu.ExternalDeclaration
		if ext.Case != cc.ExternalDeclarationFuncDef {
			continue
		}
		if ext.Position().Filename != path {
			continue
		}
		if err := w.functionDefinition(ext.FunctionDefinition); err != nil {
			return nil, err
		}
	}
	return w.out, nil
}

// runtimeGOOS reports the target OS cc.NewConfig should assume. The
// compiler only ever targets Windows x64 (spec §1/§6).
func runtimeGOOS() string { return "windows" }

type walker struct {
	source string
	out    event.Stream
}

func (w *walker) emit(tag event.Tag, text string, pos cc.Node) {
	p := event.Pos{}
	if pos != nil {
		position := pos.Position()
		p = event.Pos{Line: position.Line, Col: position.Column}
	}
	w.out = append(w.out, event.Event{Tag: tag, Text: text, Pos: p})
}

func (w *walker) functionDefinition(fd *cc.FunctionDefinition) error {
	spec := fd.DeclarationSpecifiers
	if spec.Case != cc.DeclarationSpecifiersTypeSpec {
		return diag.New(diag.MalformedSignature, "unsupported return type declarator at %v", fd.Position())
	}
	retType := spec.TypeSpecifier.Token.SrcStr()
	if retType != "int" && retType != "void" {
		return diag.New(diag.MalformedSignature, "unsupported return type %q at %v", retType, fd.Position())
	}

	dd := fd.Declarator.DirectDeclarator
	if dd.Case != cc.DirectDeclaratorFuncParam {
		return diag.New(diag.MalformedSignature, "unsupported declarator form at %v", fd.Position())
	}
	name := dd.DirectDeclarator.Token.SrcStr()

	var paramNames []string
	if dd.ParameterTypeList != nil && dd.ParameterTypeList.ParameterList != nil {
		var err error
		paramNames, err = collectParams(dd.ParameterTypeList.ParameterList)
		if err != nil {
			return err
		}
	}

	if err := w.statement(fd.CompoundStatement); err != nil {
		return err
	}

	sig := append([]string{retType, name}, paramNames...)
	w.emit(event.ExitFunctionDefinition, strings.Join(sig, " "), fd)
	return nil
}

func collectParams(list *cc.ParameterList) ([]string, error) {
	decl := list.ParameterDeclaration
	if decl.Declarator == nil || decl.Declarator.DirectDeclarator == nil {
		return nil, diag.New(diag.MalformedSignature, "unsupported parameter declarator at %v", decl.Position())
	}
	name := decl.Declarator.DirectDeclarator.Token.SrcStr()
	names := []string{name}
	if list.ParameterList != nil {
		rest, err := collectParams(list.ParameterList)
		if err != nil {
			return nil, err
		}
		names = append(names, rest...)
	}
	return names, nil
}

// statement walks a compound statement, bracketing its block items with
// the Enter/ExitCompoundStatement events; stmt dispatches the other
// statement forms by Case.
func (w *walker) statement(s *cc.CompoundStatement) error {
	w.emit(event.EnterCompoundStatement, "", s)
	for items := s.BlockItemList; items != nil; items = items.BlockItemList {
		item := items.BlockItem
		switch item.Case {
		case cc.BlockItemDecl:
			if err := w.declaration(item.Declaration); err != nil {
				return err
			}
		case cc.BlockItemStmt:
			if err := w.stmt(item.Statement); err != nil {
				return err
			}
		default:
			return diag.New(diag.UnexpectedEvent, "unsupported block item at %v", item.Position())
		}
	}
	w.emit(event.ExitCompoundStatement, "", s)
	return nil
}

func (w *walker) declaration(d *cc.Declaration) error {
	for l := d.InitDeclaratorList; l != nil; l = l.InitDeclaratorList {
		id := l.InitDeclarator
		name := id.Declarator.DirectDeclarator.Token.SrcStr()
		w.emit(event.ExitDeclaration, name, id)
		if id.Initializer != nil {
			if err := w.assignmentExpression(id.Initializer.AssignmentExpression); err != nil {
				return err
			}
			w.emit(event.ExitAssignmentExpression, name, id)
		}
	}
	return nil
}

func (w *walker) stmt(s *cc.Statement) error {
	switch s.Case {
	case cc.StatementCompound:
		return w.statement(s.CompoundStatement)
	case cc.StatementExpr:
		return w.expressionStatement(s.ExpressionStatement)
	case cc.StatementSelection:
		return w.selectionStatement(s.SelectionStatement)
	case cc.StatementIteration:
		return w.iterationStatement(s.IterationStatement)
	case cc.StatementJump:
		return w.jumpStatement(s.JumpStatement)
	default:
		return diag.New(diag.UnexpectedEvent, "unsupported statement form at %v", s.Position())
	}
}

func (w *walker) expressionStatement(es *cc.ExpressionStatement) error {
	if es.ExpressionList == nil {
		return nil // bare ";"
	}
	if err := w.expression(es.ExpressionList.AssignmentExpression); err != nil {
		return err
	}
	w.emit(event.ExitExpressionStatement, "", es)
	return nil
}

func (w *walker) selectionStatement(s *cc.SelectionStatement) error {
	switch s.Case {
	case cc.SelectionStatementIfElse:
		if err := w.expression(s.ExpressionList.AssignmentExpression); err != nil {
			return err
		}
		if err := w.stmt(s.Statement); err != nil {
			return err
		}
		if err := w.stmt(s.Statement2); err != nil {
			return err
		}
		w.emit(event.ExitSelectionStatement, "else", s)
		return nil
	case cc.SelectionStatementIf:
		if err := w.expression(s.ExpressionList.AssignmentExpression); err != nil {
			return err
		}
		if err := w.stmt(s.Statement); err != nil {
			return err
		}
		w.emit(event.ExitSelectionStatement, "", s)
		return nil
	default:
		return diag.New(diag.UnexpectedEvent, "unsupported selection statement form at %v", s.Position())
	}
}

func (w *walker) iterationStatement(s *cc.IterationStatement) error {
	if s.Case != cc.IterationStatementWhile {
		return diag.New(diag.UnexpectedEvent, "unsupported iteration statement form at %v", s.Position())
	}
	if err := w.expression(s.ExpressionList.AssignmentExpression); err != nil {
		return err
	}
	if err := w.stmt(s.Statement); err != nil {
		return err
	}
	w.emit(event.ExitIterationStatement, "", s)
	return nil
}

func (w *walker) jumpStatement(s *cc.JumpStatement) error {
	if s.Case != cc.JumpStatementReturn {
		return diag.New(diag.UnexpectedEvent, "unsupported jump statement form at %v", s.Position())
	}
	if s.ExpressionList == nil {
		w.emit(event.ExitJumpStatement, "", s)
		return nil
	}
	if err := w.expression(s.ExpressionList.AssignmentExpression); err != nil {
		return err
	}
	w.emit(event.ExitJumpStatement, "expr", s)
	return nil
}

// expression walks a top-level expression, which is always a single
// assignment-expression in this accepted grammar subset (no comma
// operator).
func (w *walker) expression(ae *cc.AssignmentExpression) error {
	return w.assignmentExpression(ae)
}

func (w *walker) assignmentExpression(ae *cc.AssignmentExpression) error {
	if ae.Case == cc.AssignmentExpressionCond {
		return w.logicalOrExpression(ae.ConditionalExpression.LogicalOrExpression)
	}
	if ae.Case != cc.AssignmentExpressionAssign {
		return diag.New(diag.UnexpectedEvent, "unsupported assignment operator at %v", ae.Position())
	}
	target := ae.UnaryExpression.PostfixExpression.PrimaryExpression.Token.SrcStr()
	w.emit(event.ExitPrimaryExpression, target, ae.UnaryExpression)
	if err := w.assignmentExpression(ae.AssignmentExpression); err != nil {
		return err
	}
	w.emit(event.ExitAssignmentExpression, "", ae)
	return nil
}

func (w *walker) logicalOrExpression(e *cc.LogicalOrExpression) error {
	if e.Case == cc.LogicalOrExpressionLAnd {
		return w.logicalAndExpression(e.LogicalAndExpression)
	}
	if err := w.logicalOrExpression(e.LogicalOrExpression); err != nil {
		return err
	}
	if err := w.logicalAndExpression(e.LogicalAndExpression); err != nil {
		return err
	}
	w.emit(event.ExitLogicalOrExpression, "||", e)
	return nil
}

func (w *walker) logicalAndExpression(e *cc.LogicalAndExpression) error {
	if e.Case == cc.LogicalAndExpressionOr {
		return w.equalityExpression(e.InclusiveOrExpression)
	}
	if err := w.logicalAndExpression(e.LogicalAndExpression); err != nil {
		return err
	}
	if err := w.equalityExpression(e.InclusiveOrExpression); err != nil {
		return err
	}
	w.emit(event.ExitLogicalAndExpression, "&&", e)
	return nil
}

// equalityExpression descends the bitwise-or/xor/and precedence levels
// that sit between && and ==, which this grammar subset never produces
// operators for, straight through to the equality level.
func (w *walker) equalityExpression(e *cc.InclusiveOrExpression) error {
	eq := e.ExclusiveOrExpression.AndExpression.EqualityExpression
	return w.equalityExpressionNode(eq)
}

func (w *walker) equalityExpressionNode(e *cc.EqualityExpression) error {
	if e.Case == cc.EqualityExpressionRel {
		return w.relationalExpression(e.RelationalExpression)
	}
	if err := w.equalityExpressionNode(e.EqualityExpression); err != nil {
		return err
	}
	if err := w.relationalExpression(e.RelationalExpression); err != nil {
		return err
	}
	op := "=="
	if e.Case == cc.EqualityExpressionNeq {
		op = "!="
	}
	w.emit(event.ExitEqualityExpression, op, e)
	return nil
}

func (w *walker) relationalExpression(e *cc.RelationalExpression) error {
	if e.Case == cc.RelationalExpressionShift {
		return w.additiveExpression(e.ShiftExpression.AdditiveExpression)
	}
	if err := w.relationalExpression(e.RelationalExpression); err != nil {
		return err
	}
	if err := w.additiveExpression(e.ShiftExpression.AdditiveExpression); err != nil {
		return err
	}
	var op string
	switch e.Case {
	case cc.RelationalExpressionLt:
		op = "<"
	case cc.RelationalExpressionGt:
		op = ">"
	case cc.RelationalExpressionLeq:
		op = "<="
	case cc.RelationalExpressionGeq:
		op = ">="
	default:
		return diag.New(diag.UnexpectedEvent, "unsupported relational operator at %v", e.Position())
	}
	w.emit(event.ExitRelationalExpression, op, e)
	return nil
}

func (w *walker) additiveExpression(e *cc.AdditiveExpression) error {
	if e.Case == cc.AdditiveExpressionMul {
		return w.multiplicativeExpression(e.MultiplicativeExpression)
	}
	if err := w.additiveExpression(e.AdditiveExpression); err != nil {
		return err
	}
	if err := w.multiplicativeExpression(e.MultiplicativeExpression); err != nil {
		return err
	}
	op := "+"
	if e.Case == cc.AdditiveExpressionSub {
		op = "-"
	}
	w.emit(event.ExitAdditiveExpression, op, e)
	return nil
}

func (w *walker) multiplicativeExpression(e *cc.MultiplicativeExpression) error {
	if e.Case == cc.MultiplicativeExpressionCast {
		return w.unaryExpression(e.CastExpression.UnaryExpression)
	}
	if err := w.multiplicativeExpression(e.MultiplicativeExpression); err != nil {
		return err
	}
	if err := w.unaryExpression(e.CastExpression.UnaryExpression); err != nil {
		return err
	}
	op := "*"
	if e.Case == cc.MultiplicativeExpressionDiv {
		op = "/"
	}
	w.emit(event.ExitMultiplicativeExpression, op, e)
	return nil
}

func (w *walker) unaryExpression(e *cc.UnaryExpression) error {
	switch e.Case {
	case cc.UnaryExpressionPostfix:
		return w.postfixExpression(e.PostfixExpression)
	case cc.UnaryExpressionMinus:
		if err := w.castExpression(e.CastExpression); err != nil {
			return err
		}
		w.emit(event.ExitUnaryExpression, "-", e)
		return nil
	case cc.UnaryExpressionNot:
		if err := w.castExpression(e.CastExpression); err != nil {
			return err
		}
		w.emit(event.ExitUnaryExpression, "!", e)
		return nil
	default:
		return diag.New(diag.UnexpectedEvent, "unsupported unary operator at %v", e.Position())
	}
}

func (w *walker) castExpression(e *cc.CastExpression) error {
	if e.Case != cc.CastExpressionUnary {
		return diag.New(diag.UnexpectedEvent, "casts are not supported at %v", e.Position())
	}
	return w.unaryExpression(e.UnaryExpression)
}

func (w *walker) postfixExpression(e *cc.PostfixExpression) error {
	switch e.Case {
	case cc.PostfixExpressionPrimary:
		return w.primaryExpression(e.PrimaryExpression)
	case cc.PostfixExpressionCall:
		if err := w.postfixExpression(e.PostfixExpression); err != nil {
			return err
		}
		n := 0
		if e.ArgumentExpressionList != nil {
			var err error
			n, err = w.argumentExpressionList(e.ArgumentExpressionList)
			if err != nil {
				return err
			}
		}
		_ = n
		w.emit(event.ExitPostfixExpression, "", e)
		return nil
	default:
		return diag.New(diag.UnexpectedEvent, "unsupported postfix expression form at %v", e.Position())
	}
}

// argumentExpressionList emits one ExitArgumentExpressionList event per
// argument, walking the arguments in source order so ast.Builder pops
// them back into left-to-right order.
func (w *walker) argumentExpressionList(l *cc.ArgumentExpressionList) (int, error) {
	n := 0
	for ; l != nil; l = l.ArgumentExpressionList {
		if err := w.assignmentExpression(l.AssignmentExpression); err != nil {
			return 0, err
		}
		w.emit(event.ExitArgumentExpressionList, "", l)
		n++
	}
	return n, nil
}

func (w *walker) primaryExpression(e *cc.PrimaryExpression) error {
	switch e.Case {
	case cc.PrimaryExpressionIdent, cc.PrimaryExpressionInt:
		w.emit(event.ExitPrimaryExpression, e.Token.SrcStr(), e)
		return nil
	case cc.PrimaryExpressionExpr:
		return w.expression(e.ExpressionList.AssignmentExpression)
	default:
		return fmt.Errorf("%v: unsupported primary expression form", e.Position())
	}
}
