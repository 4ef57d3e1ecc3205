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

// Package event defines the wire shape of the upstream parse-tree event
// stream: the boundary between the (external) lexer/parser collaborator
// and the (in-scope) AST builder.
package event

// Tag identifies a single parse-tree enter/exit record. The tag set is
// exhaustive for the accepted grammar; anything else is UnknownEvent.
type Tag int

const (
	Invalid Tag = iota

	ExitPrimaryExpression
	ExitUnaryExpression
	ExitMultiplicativeExpression
	ExitAdditiveExpression
	ExitRelationalExpression
	ExitEqualityExpression
	ExitLogicalAndExpression
	ExitLogicalOrExpression
	ExitArgumentExpressionList
	ExitPostfixExpression
	ExitAssignmentExpression

	ExitDeclaration
	ExitExpressionStatement
	ExitSelectionStatement
	ExitIterationStatement
	ExitJumpStatement

	EnterCompoundStatement
	ExitCompoundStatement

	ExitFunctionDefinition
)

func (t Tag) String() string {
	switch t {
	case ExitPrimaryExpression:
		return "ExitPrimaryExpression"
	case ExitUnaryExpression:
		return "ExitUnaryExpression"
	case ExitMultiplicativeExpression:
		return "ExitMultiplicativeExpression"
	case ExitAdditiveExpression:
		return "ExitAdditiveExpression"
	case ExitRelationalExpression:
		return "ExitRelationalExpression"
	case ExitEqualityExpression:
		return "ExitEqualityExpression"
	case ExitLogicalAndExpression:
		return "ExitLogicalAndExpression"
	case ExitLogicalOrExpression:
		return "ExitLogicalOrExpression"
	case ExitArgumentExpressionList:
		return "ExitArgumentExpressionList"
	case ExitPostfixExpression:
		return "ExitPostfixExpression"
	case ExitAssignmentExpression:
		return "ExitAssignmentExpression"
	case ExitDeclaration:
		return "ExitDeclaration"
	case ExitExpressionStatement:
		return "ExitExpressionStatement"
	case ExitSelectionStatement:
		return "ExitSelectionStatement"
	case ExitIterationStatement:
		return "ExitIterationStatement"
	case ExitJumpStatement:
		return "ExitJumpStatement"
	case EnterCompoundStatement:
		return "EnterCompoundStatement"
	case ExitCompoundStatement:
		return "ExitCompoundStatement"
	case ExitFunctionDefinition:
		return "ExitFunctionDefinition"
	default:
		return "<unknown>"
	}
}

// Pos is an optional source position a frontend may attach to an Event for
// diagnostics. The zero value means "unknown".
type Pos struct {
	Line int
	Col  int
}

func (p Pos) IsValid() bool { return p.Line > 0 }

// Event is a single postorder parse-tree record: a tag plus its literal
// text payload (an operator spelling, an identifier, a literal, or a
// function signature line), per spec §4.1/§6.
type Event struct {
	Tag  Tag
	Text string
	Pos  Pos
}

// Stream is an ordered sequence of Events, delivered in parse-tree exit
// order by the upstream collaborator (see frontend.EventsFromFile for a
// concrete producer).
type Stream []Event
