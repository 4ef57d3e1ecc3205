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

// Package runtime holds driver.asm, the published contract a wcc64
// output file links against (spec §6's "driver contract"): an external
// drive entry point that calls the compiled main, prints its return
// value as a signed decimal, and exits with it. driver.asm is reference
// MASM text only — assembling and linking it is the external
// assembler/linker collaborator's job (spec §1), and no package in this
// module reads, parses, or links against it at build time.
package runtime
