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
package ir

import "wcc64/utils"

// Builder assembles one Func's CFG. It tracks a current-block cursor and
// fresh-ID counters for both blocks and values.
type Builder struct {
	fn         *Func
	cur        BlockID
	nextValue  Value
	terminated map[BlockID]bool
}

// NewBuilder starts a Func named name with the given parameter names
// (each materialized into its own slot, in order) and returns the
// Builder positioned on a fresh entry block.
func NewBuilder(name string, paramNames []string, retVoid bool) *Builder {
	fn := &Func{Name: name, RetVoid: retVoid}
	b := &Builder{fn: fn, terminated: map[BlockID]bool{}}

	fn.ParamSlots = make([]Value, len(paramNames))
	for i := range paramNames {
		fn.ParamSlots[i] = b.freshValue()
	}

	b.cur = b.NewBlock()
	fn.Entry = b.cur
	return b
}

func (b *Builder) freshValue() Value {
	b.nextValue++
	if int(b.nextValue) > b.fn.NumSlots {
		b.fn.NumSlots = int(b.nextValue)
	}
	return b.nextValue
}

// FreshValue allocates a new stack slot and returns its Value.
func (b *Builder) FreshValue() Value { return b.freshValue() }

// Params returns the slots holding this function's parameters, in
// declaration order.
func (b *Builder) Params() []Value { return b.fn.ParamSlots }

// Name returns the function name the Builder was started with.
func (b *Builder) Name() string { return b.fn.Name }

// NewBlock appends an empty, unterminated block and returns its ID. It
// does not change the current block.
func (b *Builder) NewBlock() BlockID {
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, &Block{ID: id})
	return id
}

// SetCurrent moves the cursor to an existing block.
func (b *Builder) SetCurrent(id BlockID) {
	utils.Assert(int(id) < len(b.fn.Blocks), "ir.Builder.SetCurrent: block %d does not exist", id)
	b.cur = id
}

// CurrentBlock returns the ID of the block under the cursor.
func (b *Builder) CurrentBlock() BlockID { return b.cur }

// Terminated reports whether the current block already has a
// terminator, so callers can skip emitting dead code after an early
// return (spec §4.3's early-return truncation).
func (b *Builder) Terminated() bool { return b.terminated[b.cur] }

// Emit appends instr to the current block. Emitting into an already
// terminated block is a programmer bug.
func (b *Builder) Emit(instr Instr) {
	utils.Assert(!b.terminated[b.cur], "ir.Builder.Emit: block B%d already terminated", b.cur)
	blk := b.fn.Blocks[b.cur]
	blk.Instrs = append(blk.Instrs, instr)
}

// Terminate closes the current block with term. Terminating an
// already-terminated block indicates a lowering bug (DoubleTerminate),
// not a user-facing diagnostic, so it asserts rather than returning an
// error.
func (b *Builder) Terminate(term Term) {
	utils.Assert(!b.terminated[b.cur], "ir.Builder.Terminate: DoubleTerminate on B%d", b.cur)
	b.fn.Blocks[b.cur].Term = term
	b.terminated[b.cur] = true
}

// Finish returns the completed Func. Every reachable block must already
// be terminated; lower is responsible for that invariant.
func (b *Builder) Finish() *Func {
	return b.fn
}
