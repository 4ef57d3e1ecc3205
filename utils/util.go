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
package utils

import (
	"bytes"
	"fmt"
	"os/exec"
)

func Assert(cond bool, format string, msg ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, msg...))
	}
}

func ShouldNotReachHere() {
	panic("Should not reach here")
}

func Align16(n int) int {
	return (n + 15) &^ 15
}

func CommandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// ExecuteCmd shells out to the Windows toolchain (ml64.exe, link.exe). It
// is never called from tests: the assembler/linker are external
// collaborators per spec §1 and may simply be absent from PATH, in which
// case CommandExists lets the CLI fall back to emit-only mode instead of
// failing outright.
func ExecuteCmd(workDir string, args ...string) (string, error) {
	if !CommandExists(args[0]) {
		return "", fmt.Errorf("%s not found on PATH", args[0])
	}
	cmd := exec.Command(args[0], args[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = workDir

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w\nstdout:\n%s\nstderr:\n%s",
			args[0], err, stdout.String(), stderr.String())
	}
	return stdout.String(), nil
}
