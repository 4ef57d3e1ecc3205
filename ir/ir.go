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

// Package ir is the per-function CFG of basic blocks the lowering pass
// builds from an ast.Func (spec §4.2/§4.3). There is no register
// allocator here: every Value lives in a dedicated stack slot for its
// whole lifetime, and codegen materializes a slot to a machine register
// only for the span of the single instruction using it.
package ir

import "fmt"

// Value names a stack slot. Slot 0 is always reserved for nothing in
// particular; real slots start at 1 so the zero Value can mean "no
// value" in contexts like Ret.Value.
type Value int

const NoValue Value = 0

// BinOp mirrors ast.BinOp, minus the two short-circuit operators: by the
// time lowering reaches a BinOp instruction, && and || have already been
// expanded into explicit branches (spec §4.3).
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Lt
	Gt
	Le
	Ge
	Eq
	Ne
)

func (o BinOp) String() string {
	switch o {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Lt:
		return "lt"
	case Gt:
		return "gt"
	case Le:
		return "le"
	case Ge:
		return "ge"
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	default:
		return "<badop>"
	}
}

// IsCompare reports whether o produces a 0/1 boolean rather than an
// arithmetic result.
func (o BinOp) IsCompare() bool {
	return o == Lt || o == Gt || o == Le || o == Ge || o == Eq || o == Ne
}

type UnOp int

const (
	Neg UnOp = iota
	Not
)

func (o UnOp) String() string {
	if o == Not {
		return "not"
	}
	return "neg"
}

// Instr is a single non-terminating IR instruction within a Block.
type Instr interface {
	fmt.Stringer
	instrNode()
}

// MoveImm materializes a constant into Dst.
type MoveImm struct {
	Dst Value
	Imm int64
}

// Move copies Src into Dst.
type Move struct {
	Dst Value
	Src Value
}

// UnaryOp computes Op(Src) into Dst.
type UnaryOp struct {
	Dst Value
	Op  UnOp
	Src Value
}

// BinaryOp computes Lhs Op Rhs into Dst.
type BinaryOp struct {
	Dst      Value
	Op       BinOp
	Lhs, Rhs Value
}

// Call invokes Callee with Args and stores the result (if any) in Dst.
// Dst is NoValue for a call whose result is discarded.
type Call struct {
	Dst    Value
	Callee string
	Args   []Value
}

func (*MoveImm) instrNode()  {}
func (*Move) instrNode()     {}
func (*UnaryOp) instrNode()  {}
func (*BinaryOp) instrNode() {}
func (*Call) instrNode()     {}

func (i *MoveImm) String() string  { return fmt.Sprintf("v%d = movi %d", i.Dst, i.Imm) }
func (i *Move) String() string     { return fmt.Sprintf("v%d = mov v%d", i.Dst, i.Src) }
func (i *UnaryOp) String() string  { return fmt.Sprintf("v%d = %s v%d", i.Dst, i.Op, i.Src) }
func (i *BinaryOp) String() string { return fmt.Sprintf("v%d = %s v%d, v%d", i.Dst, i.Op, i.Lhs, i.Rhs) }
func (i *Call) String() string {
	if i.Dst == NoValue {
		return fmt.Sprintf("call %s/%d", i.Callee, len(i.Args))
	}
	return fmt.Sprintf("v%d = call %s/%d", i.Dst, i.Callee, len(i.Args))
}

// BlockID identifies a basic block within a Func.
type BlockID int

// Term is a basic block's exactly-one terminator.
type Term interface {
	fmt.Stringer
	termNode()
}

// Jump transfers control unconditionally.
type Jump struct {
	Target BlockID
}

// Branch transfers control to TrueTarget if Cond is nonzero, FalseTarget
// otherwise.
type Branch struct {
	Cond                    Value
	TrueTarget, FalseTarget BlockID
}

// Ret returns from the function. Value is NoValue for a void return.
type Ret struct {
	Value Value
}

func (*Jump) termNode()   {}
func (*Branch) termNode() {}
func (*Ret) termNode()    {}

func (t *Jump) String() string   { return fmt.Sprintf("jump B%d", t.Target) }
func (t *Branch) String() string { return fmt.Sprintf("br v%d, B%d, B%d", t.Cond, t.TrueTarget, t.FalseTarget) }
func (t *Ret) String() string {
	if t.Value == NoValue {
		return "ret"
	}
	return fmt.Sprintf("ret v%d", t.Value)
}

// Block is a basic block: a straight-line run of Instrs ending in
// exactly one Term. Term is nil until Terminate is called on it.
type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Term
}

// Func is one function's CFG plus its flat slot table (spec §3: compound
// statements share a single per-function symbol table, no nested
// scoping).
type Func struct {
	Name       string
	ParamSlots []Value // Values of the parameters, in declaration order
	RetVoid    bool
	Blocks     []*Block
	Entry      BlockID
	NumSlots   int // total stack slots this function needs, including params
}

func (f *Func) Block(id BlockID) *Block {
	return f.Blocks[id]
}

// Program is the whole translation unit's lowered form.
type Program struct {
	Funcs []*Func
}
