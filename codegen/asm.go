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
	"strings"
)

// Assembler accumulates MASM text line by line. It has no knowledge of
// the IR; codegen.go drives it instruction by instruction.
type Assembler struct {
	b strings.Builder
}

func (a *Assembler) raw(line string) {
	a.b.WriteString(line)
	a.b.WriteByte('\n')
}

func (a *Assembler) line(format string, args ...interface{}) {
	a.raw("    " + fmt.Sprintf(format, args...))
}

func (a *Assembler) comment(format string, args ...interface{}) {
	a.line("; " + fmt.Sprintf(format, args...))
}

func (a *Assembler) label(name string) {
	a.raw(name + ":")
}

func (a *Assembler) directive(format string, args ...interface{}) {
	a.raw(fmt.Sprintf(format, args...))
}

func (a *Assembler) String() string { return a.b.String() }

// mem renders a qword-sized rbp-relative stack slot operand.
func mem(byteOffset int) string {
	if byteOffset == 0 {
		return "qword ptr [rbp]"
	}
	if byteOffset < 0 {
		return fmt.Sprintf("qword ptr [rbp-%d]", -byteOffset)
	}
	return fmt.Sprintf("qword ptr [rbp+%d]", byteOffset)
}
