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
package codegen

import (
	"fmt"

	"github.com/samber/lo"

	"wcc64/diag"
	"wcc64/ir"
	"wcc64/utils"
)

// incomingStackBase is the rbp-relative offset of the first
// stack-passed argument (the 5th and beyond): 8 for the return
// address, 8 for the saved rbp, and the 32-byte shadow space the
// caller always reserves.
const incomingStackBase = 8 + 8 + ShadowSpace

// Emit renders prog as a complete MASM source file: EXTRN declarations
// for external callees, then a single .code section holding one PROC per
// function, closed by end. No .data section is emitted.
func Emit(prog *ir.Program) (string, error) {
	var a Assembler
	for _, name := range externCallees(prog) {
		a.directive("EXTRN %s:PROC", name)
	}
	a.directive(".code")
	for _, fn := range prog.Funcs {
		if err := emitFunc(&a, fn); err != nil {
			return "", err
		}
	}
	a.directive("end")
	return a.String(), nil
}

// externCallees reports, in first-call order, every callee name the
// program invokes but never defines itself: an unknown callee is
// permitted (spec §4.3) and treated as external, so MASM needs an EXTRN
// declaration for it up front or ml64 rejects the undefined symbol.
func externCallees(prog *ir.Program) []string {
	defined := utils.NewSet[string]()
	for _, fn := range prog.Funcs {
		defined.Add(fn.Name)
	}

	seen := utils.NewSet[string]()
	var externs []string
	for _, fn := range prog.Funcs {
		for _, blk := range fn.Blocks {
			calls := lo.FilterMap(blk.Instrs, func(instr ir.Instr, _ int) (string, bool) {
				call, ok := instr.(*ir.Call)
				if !ok {
					return "", false
				}
				return call.Callee, true
			})
			for _, callee := range calls {
				if defined.Contains(callee) || !seen.Add(callee) {
					continue
				}
				externs = append(externs, callee)
			}
		}
	}
	return externs
}

func slotOffset(v ir.Value) int {
	return -8 * int(v)
}

func emitFunc(a *Assembler, fn *ir.Func) error {
	frame := utils.Align16(8 * fn.NumSlots)

	a.directive("%s proc", fn.Name)
	a.comment("prologue")
	a.line("push rbp")
	a.line("mov rbp, rsp")
	if frame > 0 {
		a.line("sub rsp, %d", frame)
	}

	for i, slot := range fn.ParamSlots {
		switch {
		case i < len(ArgRegs):
			a.line("mov %s, %s", mem(slotOffset(slot)), ArgRegs[i])
		default:
			srcOff := incomingStackBase + 8*(i-len(ArgRegs))
			a.line("mov rax, %s", mem(srcOff))
			a.line("mov %s, rax", mem(slotOffset(slot)))
		}
	}

	for _, blk := range fn.Blocks {
		if err := emitBlock(a, fn, blk); err != nil {
			return err
		}
	}

	a.directive("%s endp", fn.Name)
	return nil
}

func blockLabel(fn *ir.Func, id ir.BlockID) string {
	return fmt.Sprintf("%s_B%d", fn.Name, id)
}

func emitBlock(a *Assembler, fn *ir.Func, blk *ir.Block) error {
	if blk.ID != fn.Entry {
		a.label(blockLabel(fn, blk.ID))
	}
	for _, instr := range blk.Instrs {
		if err := emitInstr(a, instr); err != nil {
			return err
		}
	}
	if blk.Term == nil {
		return diag.In(diag.EmitError, fn.Name, "block B%d has no terminator", blk.ID)
	}
	emitTerm(a, fn, blk.Term)
	return nil
}

func emitInstr(a *Assembler, instr ir.Instr) error {
	switch i := instr.(type) {
	case *ir.MoveImm:
		a.line("mov %s, %d", mem(slotOffset(i.Dst)), i.Imm)
		return nil

	case *ir.Move:
		a.line("mov rax, %s", mem(slotOffset(i.Src)))
		a.line("mov %s, rax", mem(slotOffset(i.Dst)))
		return nil

	case *ir.UnaryOp:
		return emitUnary(a, i)

	case *ir.BinaryOp:
		return emitBinary(a, i)

	case *ir.Call:
		emitCall(a, i)
		return nil

	default:
		return diag.New(diag.EmitError, "unhandled IR instruction %T", instr)
	}
}

func emitUnary(a *Assembler, i *ir.UnaryOp) error {
	a.line("mov rax, %s", mem(slotOffset(i.Src)))
	switch i.Op {
	case ir.Neg:
		a.line("neg rax")
	case ir.Not:
		a.line("cmp rax, 0")
		a.line("sete al")
		a.line("movzx rax, al")
	default:
		return diag.New(diag.EmitError, "unhandled unary op %v", i.Op)
	}
	a.line("mov %s, rax", mem(slotOffset(i.Dst)))
	return nil
}

func emitBinary(a *Assembler, i *ir.BinaryOp) error {
	a.line("mov rax, %s", mem(slotOffset(i.Lhs)))
	a.line("mov r10, %s", mem(slotOffset(i.Rhs)))
	switch i.Op {
	case ir.Add:
		a.line("add rax, r10")
	case ir.Sub:
		a.line("sub rax, r10")
	case ir.Mul:
		a.line("imul rax, r10")
	case ir.Div:
		a.line("cqo")
		a.line("idiv r10")
	case ir.Lt, ir.Gt, ir.Le, ir.Ge, ir.Eq, ir.Ne:
		a.line("cmp rax, r10")
		a.line("%s al", setcc(i.Op))
		a.line("movzx rax, al")
	default:
		return diag.New(diag.EmitError, "unhandled binary op %v", i.Op)
	}
	a.line("mov %s, rax", mem(slotOffset(i.Dst)))
	return nil
}

func setcc(op ir.BinOp) string {
	switch op {
	case ir.Lt:
		return "setl"
	case ir.Gt:
		return "setg"
	case ir.Le:
		return "setle"
	case ir.Ge:
		return "setge"
	case ir.Eq:
		return "sete"
	case ir.Ne:
		return "setne"
	default:
		utils.ShouldNotReachHere()
	}
	return ""
}

// stackArg pairs a 5th-or-later argument with the rsp-relative offset it
// lands at above the shadow space, the same lo.Tuple2[int, Parameter]
// bookkeeping ajroetker-goat's amd64 parser uses to carry an argument
// alongside its computed stack offset through a single pass.
type stackArg = lo.Tuple2[int, ir.Value]

func emitCall(a *Assembler, i *ir.Call) {
	var regArgs []ir.Value
	var stackArgs []stackArg
	for idx, arg := range i.Args {
		if idx < len(ArgRegs) {
			regArgs = append(regArgs, arg)
			continue
		}
		stackArgs = append(stackArgs, stackArg{A: ShadowSpace + 8*(idx-len(ArgRegs)), B: arg})
	}

	frameAdj := utils.Align16(ShadowSpace + 8*len(stackArgs))
	a.line("sub rsp, %d", frameAdj)

	for idx, arg := range regArgs {
		a.line("mov rax, %s", mem(slotOffset(arg)))
		a.line("mov %s, rax", ArgRegs[idx])
	}
	for _, sa := range stackArgs {
		a.line("mov rax, %s", mem(slotOffset(sa.B)))
		a.line("mov qword ptr [rsp+%d], rax", sa.A)
	}

	a.line("call %s", i.Callee)
	a.line("add rsp, %d", frameAdj)
	if i.Dst != ir.NoValue {
		a.line("mov %s, rax", mem(slotOffset(i.Dst)))
	}
}

func emitTerm(a *Assembler, fn *ir.Func, term ir.Term) {
	switch t := term.(type) {
	case *ir.Jump:
		a.line("jmp %s", blockLabel(fn, t.Target))

	case *ir.Branch:
		a.line("mov rax, %s", mem(slotOffset(t.Cond)))
		a.line("cmp rax, 0")
		a.line("jne %s", blockLabel(fn, t.TrueTarget))
		a.line("jmp %s", blockLabel(fn, t.FalseTarget))

	case *ir.Ret:
		if t.Value != ir.NoValue {
			a.line("mov rax, %s", mem(slotOffset(t.Value)))
		}
		a.comment("epilogue")
		a.line("mov rsp, rbp")
		a.line("pop rbp")
		a.line("ret")
	}
}
