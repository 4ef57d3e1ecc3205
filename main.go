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
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wcc64/ast"
	"wcc64/codegen"
	"wcc64/diag"
	"wcc64/frontend"
	"wcc64/ir"
	"wcc64/lower"
	"wcc64/utils"
)

// debug and emitOnly hold the --debug and --emit-only flags; debug gates
// the AST and CFG dumps of the two intermediate stages, mirroring the
// teacher's DebugPrintAst/DebugDumpSSA consts in falcon/compile.
var (
	debug    bool
	emitOnly bool
)

func main() {
	root := &cobra.Command{
		Use:           "wcc64 <input.c> <output.asm>",
		Short:         "wcc64 compiles a small C subset to Windows x64 assembly",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompile,
	}
	root.Flags().BoolVar(&debug, "debug", false, "dump the AST and CFG for each function to stderr")
	root.Flags().BoolVar(&emitOnly, "emit-only", false, "stop after writing the .asm file; never invoke ml64/link")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	source, output := args[0], args[1]

	events, err := frontend.EventsFromFile(source)
	if err != nil {
		return err
	}

	tu, err := ast.Build(events)
	if err != nil {
		return err
	}
	if debug {
		dumpAst(tu)
	}

	prog, err := lower.Program(tu)
	if err != nil {
		return err
	}
	if debug {
		dumpCfg(prog)
	}

	text, err := codegen.Emit(prog)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, []byte(text), 0644); err != nil {
		return diag.Wrap(diag.EmitError, "", err, "writing %s", output)
	}
	fmt.Printf("Wrote %s\n", output)

	if emitOnly || !utils.CommandExists("ml64") {
		return nil
	}
	return assembleAndLink(output)
}

func dumpAst(tu *ast.TranslationUnit) {
	fmt.Fprintf(os.Stderr, "== AST ==\n")
	for _, fn := range tu.Funcs {
		fmt.Fprintf(os.Stderr, "%v\n", fn)
	}
}

func dumpCfg(prog *ir.Program) {
	fmt.Fprintf(os.Stderr, "== CFG ==\n")
	for _, fn := range prog.Funcs {
		fmt.Fprintf(os.Stderr, "%s:\n", fn.Name)
		for _, blk := range fn.Blocks {
			fmt.Fprintf(os.Stderr, "  B%d:\n", blk.ID)
			for _, instr := range blk.Instrs {
				fmt.Fprintf(os.Stderr, "    %v\n", instr)
			}
			fmt.Fprintf(os.Stderr, "    %v\n", blk.Term)
		}
	}
}

// assembleAndLink shells out to ml64/link the way falcon/compile's
// compileAsm/linkFiles do for gcc, substituting the Windows x64
// toolchain spec §1 names as the external assembler/linker collaborator.
func assembleAndLink(output string) error {
	wd, err := filepath.Abs(filepath.Dir(output))
	if err != nil {
		return diag.Wrap(diag.EmitError, "", err, "resolving output directory")
	}
	base := strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))

	if _, err := utils.ExecuteCmd(wd, "ml64", "/c", "/Fo"+base+".obj", filepath.Base(output)); err != nil {
		return diag.Wrap(diag.EmitError, "", err, "assembling %s", output)
	}

	exe := base + ".exe"
	if _, err := utils.ExecuteCmd(wd, "link", "/subsystem:console", "/out:"+exe, base+".obj", "driver.obj"); err != nil {
		return diag.Wrap(diag.EmitError, "", err, "linking %s", exe)
	}
	fmt.Printf("Linked %s\n", filepath.Join(wd, exe))
	return nil
}
