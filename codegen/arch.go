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

// Package codegen emits MASM-flavored (ml64.exe) Intel-syntax x64 text
// assembly from an ir.Program, targeting the Windows x64 calling
// convention (spec §4.4/§6). There is no register allocator: every
// Value lives in its own stack slot for its whole lifetime, and a
// handful of scratch registers (rax, rdx, r10) carry a value only for
// the span of the single instruction using it.
package codegen

// Reg names a physical x64 register by its MASM spelling.
type Reg string

const (
	RAX Reg = "rax"
	RCX Reg = "rcx"
	RDX Reg = "rdx"
	RBX Reg = "rbx"
	RSP Reg = "rsp"
	RBP Reg = "rbp"
	RSI Reg = "rsi"
	RDI Reg = "rdi"
	R8  Reg = "r8"
	R9  Reg = "r9"
	R10 Reg = "r10"
	R11 Reg = "r11"
)

// ArgRegs holds the first four integer/pointer arguments under the
// Windows x64 convention; a 5th argument and beyond are passed on the
// stack, above the 32-byte shadow space.
var ArgRegs = []Reg{RCX, RDX, R8, R9}

// ShadowSpace is the fixed 32-byte region the caller reserves for the
// callee's convenience, always present even when the callee has fewer
// than four arguments.
const ShadowSpace = 32

// CallerSaveRegs and CalleeSaveRegs document the full Windows x64
// convention for reference (spec §6). This codegen never needs to
// actually preserve either set: with one stack slot per Value and no
// live range ever crossing a call, nothing of the compiler's is ever
// resident in a register across a call or a block boundary.
var CallerSaveRegs = []Reg{RAX, RCX, RDX, R8, R9, R10, R11}
var CalleeSaveRegs = []Reg{RBX, RBP, RSI, RDI, "r12", "r13", "r14", "r15"}

// scratch is the fixed pair of temporaries used to materialize operands
// for one instruction at a time. rdx is reserved separately for idiv's
// sign-extended dividend.
const (
	scratchA = RAX
	scratchB = R10
)
