/*
 * mipsrecomp - Go source text generator.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package sourcegen implements generator.Generator by emitting plain
// Go source text: one function per recompiled MIPS function, driven
// entirely by fmt.Fprintf calls against a buffered writer. It holds no
// state beyond that writer and an indent level, matching the
// teacher's disassembler's direct switch-driven string construction.
package sourcegen

import (
	"bufio"
	"fmt"

	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/generator"
	"github.com/n64recomp/mipsrecomp/ops"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// Generator emits a Go source file's worth of recompiled functions.
type Generator struct {
	w       *bufio.Writer
	indent  int
	errored bool
}

// New wraps w for source emission.
func New(w *bufio.Writer) *Generator {
	return &Generator{w: w}
}

var _ generator.Generator = (*Generator)(nil)

func (g *Generator) printf(format string, args ...any) {
	for i := 0; i < g.indent; i++ {
		g.w.WriteString("\t")
	}
	if _, err := fmt.Fprintf(g.w, format, args...); err != nil {
		g.errored = true
	}
}

func (g *Generator) Errored() bool { return g.errored }

func (g *Generator) EmitFunctionStart(name string, index int) {
	g.printf("func %s(rdram []byte, ctx *runtime.Context) {\n", name)
	g.indent++
}

func (g *Generator) EmitFunctionEnd() {
	g.indent--
	g.printf("}\n\n")
}

func (g *Generator) EmitLabel(name string) {
	saved := g.indent
	g.indent = 0
	g.printf("%s:\n", name)
	g.indent = saved
}

func (g *Generator) EmitGoto(target string) {
	g.printf("goto %s\n", target)
}

func (g *Generator) EmitComment(text string) {
	g.printf("// %s\n", text)
}

func (g *Generator) ProcessBinaryOp(op ops.BinaryOp, ictx generator.InstructionContext) {
	if op.CheckFR {
		for _, o := range [...]ops.Operand{op.Output, op.Operands.Operands[0], op.Operands.Operands[1]} {
			if reg, ok := checkFRRegister(o, ictx); ok {
				g.EmitCheckFR(reg)
			}
		}
	}
	if op.CheckNaN {
		for _, o := range [...]ops.Operand{op.Operands.Operands[0], op.Operands.Operands[1]} {
			if reg, isDouble, ok := checkNaNRegister(o, ictx); ok {
				g.EmitCheckNaN(reg, isDouble)
			}
		}
	}

	expr := renderBinary(op.Type, op.Operands, ictx)
	if op.Output == ops.OperandNone {
		g.printf("%s\n", expr)
		return
	}
	dst := operandString(op.Output, ictx)

	// Comparisons render as a bool; every Output field they can land in
	// (a GPR or the COP1 condition flag) is integer-typed.
	if isComparisonOp(op.Type) {
		g.printf("if %s {\n", expr)
		g.indent++
		g.printf("%s = 1\n", dst)
		g.indent--
		g.printf("} else {\n")
		g.indent++
		g.printf("%s = 0\n", dst)
		g.indent--
		g.printf("}\n")
		return
	}

	if cast := outputCast(op.Output); cast != "" {
		g.printf("%s = %s(%s)\n", dst, cast, expr)
		return
	}
	g.printf("%s = %s\n", dst, expr)
}

func isComparisonOp(t ops.BinaryOpType) bool {
	switch t {
	case ops.BinaryTrue, ops.BinaryFalse, ops.BinaryEqual, ops.BinaryNotEqual,
		ops.BinaryLess, ops.BinaryLessEq, ops.BinaryGreater, ops.BinaryGreaterEq,
		ops.BinaryLessFloat, ops.BinaryLessDouble:
		return true
	default:
		return false
	}
}

// outputCast names the Go type an Output operand's field actually
// holds, so its assigned expression can be cast to match regardless
// of what type its operation happened to produce it in.
func outputCast(o ops.Operand) string {
	switch o {
	case ops.OperandRd, ops.OperandRs, ops.OperandRt, ops.OperandBase,
		ops.OperandHi, ops.OperandLo, ops.OperandFdU64, ops.OperandFsU64, ops.OperandFtU64:
		return "uint64"
	case ops.OperandFdU32L, ops.OperandFsU32L, ops.OperandFtU32L, ops.OperandCop1cs:
		return "uint32"
	case ops.OperandFd, ops.OperandFs, ops.OperandFt:
		return "float32"
	case ops.OperandFdDouble, ops.OperandFsDouble, ops.OperandFtDouble:
		return "float64"
	default:
		return ""
	}
}

func (g *Generator) ProcessUnaryOp(op ops.UnaryOp, ictx generator.InstructionContext) {
	if op.CheckFR {
		for _, o := range [...]ops.Operand{op.Output, op.Input} {
			if reg, ok := checkFRRegister(o, ictx); ok {
				g.EmitCheckFR(reg)
			}
		}
	}
	if op.CheckNaN {
		if reg, isDouble, ok := checkNaNRegister(op.Input, ictx); ok {
			g.EmitCheckNaN(reg, isDouble)
		}
	}

	expr := unaryWrap(op.Operation, operandString(op.Input, ictx))
	if op.Output == ops.OperandNone {
		g.printf("%s\n", expr)
		return
	}
	dst := operandString(op.Output, ictx)
	if cast := outputCast(op.Output); cast != "" {
		g.printf("%s = %s(%s)\n", dst, cast, expr)
		return
	}
	g.printf("%s = %s\n", dst, expr)
}

func (g *Generator) ProcessStoreOp(op ops.StoreOp, ictx generator.InstructionContext) {
	storeFuncs := map[ops.StoreOpType]string{
		ops.StoreSD:   "StoreD",
		ops.StoreSDL:  "StoreDL",
		ops.StoreSDR:  "StoreDR",
		ops.StoreSW:   "StoreW",
		ops.StoreSWL:  "StoreWL",
		ops.StoreSWR:  "StoreWR",
		ops.StoreSH:   "StoreH",
		ops.StoreSB:   "StoreB",
		ops.StoreSDC1: "StoreDC1",
		ops.StoreSWC1: "StoreWC1",
	}
	fn := storeFuncs[op.Type]
	offset := operandString(ops.OperandImmS16, ictx)
	g.printf("runtime.%s(rdram, %s, %s, %s)\n", fn, gprString(ictx.Rs), offset, operandString(op.Value, ictx))
}

func (g *Generator) EmitFunctionCall(ctx *rcontext.Context, functionIndex int) {
	g.printf("%s(rdram, ctx)\n", ctx.Functions[functionIndex].Name)
}

func (g *Generator) EmitFunctionCallByRegister(reg int) {
	g.printf("runtime.LookupFunction(%s)(rdram, ctx)\n", gprString(reg))
}

func (g *Generator) EmitFunctionCallLookup(vram uint32) {
	g.printf("runtime.LookupFunction(0x%08X)(rdram, ctx)\n", vram)
}

func (g *Generator) EmitFunctionCallReferenceSymbol(ctx *rcontext.Context, sectionIndex uint16, symbolIndex int, targetOffset uint32) {
	g.printf("runtime.CallReferenceSymbol(rdram, ctx, %d, %d, 0x%X)\n", sectionIndex, symbolIndex, targetOffset)
}

func (g *Generator) EmitReturn() {
	g.printf("return\n")
}

func (g *Generator) EmitBranchCondition(op ops.ConditionalBranchOp, ictx generator.InstructionContext) {
	cond := renderBinary(op.Comparison, op.Operands, ictx)
	g.printf("if %s {\n", cond)
	g.indent++
}

func (g *Generator) EmitBranchClose() {
	g.indent--
	g.printf("}\n")
}

func (g *Generator) EmitJtblAddendDeclaration(jtbl analysis.JumpTable, reg int) {
	g.printf("jtbl_addend := %s\n", gprString(reg))
}

func (g *Generator) EmitSwitch(ctx *rcontext.Context, jtbl analysis.JumpTable, reg int) {
	g.printf("switch (jtbl_addend - 0x%X) / 4 {\n", jtbl.Vram)
}

func (g *Generator) EmitCase(caseIndex int, targetLabel string) {
	g.printf("case %d:\n", caseIndex)
	g.indent++
	g.printf("goto %s\n", targetLabel)
	g.indent--
}

func (g *Generator) EmitSwitchError(instrVram, jtblVram uint32) {
	g.printf("default:\n")
	g.indent++
	g.printf("panic(fmt.Sprintf(\"unhandled jump table case at 0x%%08X (table 0x%%08X)\", uint32(0x%X), uint32(0x%X)))\n", instrVram, jtblVram)
	g.indent--
}

func (g *Generator) EmitSwitchClose() {
	g.printf("}\n")
}

func (g *Generator) EmitCop0StatusRead(reg int) {
	g.printf("%s = uint64(ctx.Cop0Status)\n", gprString(reg))
}

func (g *Generator) EmitCop0StatusWrite(reg int) {
	g.printf("ctx.Cop0Status = uint32(%s)\n", gprString(reg))
}

func (g *Generator) EmitCop1CsRead(reg int) {
	g.printf("%s = uint64(ctx.Cop1Cs)\n", gprString(reg))
}

func (g *Generator) EmitCop1CsWrite(reg int) {
	g.printf("ctx.Cop1Cs = uint32(%s)\n", gprString(reg))
}

func (g *Generator) EmitMulDiv(instr ops.InstrId, reg1, reg2 int) {
	funcs := map[ops.InstrId]string{
		ops.InstrMult:   "MultS32",
		ops.InstrMultu:  "MultU32",
		ops.InstrDmult:  "MultS64",
		ops.InstrDmultu: "MultU64",
		ops.InstrDiv:    "DivS32",
		ops.InstrDivu:   "DivU32",
	}
	g.printf("ctx.Lo, ctx.Hi = runtime.%s(%s, %s)\n", funcs[instr], gprString(reg1), gprString(reg2))
}

func (g *Generator) EmitSyscall(vram uint32) {
	g.printf("runtime.Syscall(ctx, 0x%08X)\n", vram)
}

func (g *Generator) EmitDoBreak(vram uint32) {
	g.printf("runtime.Break(ctx, 0x%08X)\n", vram)
}

func (g *Generator) EmitPauseSelf() {
	g.printf("runtime.PauseSelf(ctx)\n")
}

func (g *Generator) EmitTriggerEvent(eventIndex int) {
	g.printf("runtime.TriggerEvent(ctx, %d)\n", eventIndex)
}

func (g *Generator) EmitCheckFR(fpr int) {
	g.printf("runtime.CheckFR(ctx, %d)\n", fpr)
}

func (g *Generator) EmitCheckNaN(fpr int, isDouble bool) {
	g.printf("runtime.CheckNaN(ctx, %d, %t)\n", fpr, isDouble)
}
