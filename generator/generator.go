/*
 * mipsrecomp - code generator capability interface.
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

// Package generator declares the capability interface the recompiler
// driver emits code through. sourcegen and jitgen are its two
// concrete implementations; the driver is written entirely against
// this interface so it never needs to know which backend is active,
// the same way the teacher's device.Device interface lets a single
// channel-program loop drive any attached I/O model.
package generator

import (
	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/ops"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// InstructionContext carries a decoded instruction's operand fields
// plus its reloc descriptor (if any) through to a Generator call.
type InstructionContext struct {
	Vram   uint32
	Word   uint32
	Rd, Rs, Rt, Sa int
	ImmU16 uint32
	ImmS16 int32
	Reloc  *rcontext.Reloc
}

// Generator is the capability set a recompiler backend must provide.
// Every MIPS instruction the driver handles turns into exactly one
// call chain on this interface.
type Generator interface {
	// Structural.
	EmitFunctionStart(name string, index int)
	EmitFunctionEnd()
	EmitLabel(name string)
	EmitGoto(target string)
	EmitComment(text string)

	// Instruction emission.
	ProcessBinaryOp(op ops.BinaryOp, ctx InstructionContext)
	ProcessUnaryOp(op ops.UnaryOp, ctx InstructionContext)
	ProcessStoreOp(op ops.StoreOp, ctx InstructionContext)

	// Call/return.
	EmitFunctionCall(ctx *rcontext.Context, functionIndex int)
	EmitFunctionCallByRegister(reg int)
	EmitFunctionCallLookup(vram uint32)
	EmitFunctionCallReferenceSymbol(ctx *rcontext.Context, sectionIndex uint16, symbolIndex int, targetOffset uint32)
	EmitReturn()

	// Control flow.
	EmitBranchCondition(op ops.ConditionalBranchOp, ctx InstructionContext)
	EmitBranchClose()
	EmitJtblAddendDeclaration(jtbl analysis.JumpTable, reg int)
	EmitSwitch(ctx *rcontext.Context, jtbl analysis.JumpTable, reg int)
	EmitCase(caseIndex int, targetLabel string)
	EmitSwitchError(instrVram, jtblVram uint32)
	EmitSwitchClose()

	// Special.
	EmitCop0StatusRead(reg int)
	EmitCop0StatusWrite(reg int)
	EmitCop1CsRead(reg int)
	EmitCop1CsWrite(reg int)
	EmitMulDiv(instr ops.InstrId, reg1, reg2 int)
	EmitSyscall(vram uint32)
	EmitDoBreak(vram uint32)
	EmitPauseSelf()
	EmitTriggerEvent(eventIndex int)
	EmitCheckFR(fpr int)
	EmitCheckNaN(fpr int, isDouble bool)

	// Errored reports whether any Emit/Process call has failed to
	// produce usable output. The driver keeps running after an error
	// to collect further diagnostics; main.go still writes an errored
	// generator's output and reports the failure through its exit
	// status.
	Errored() bool
}
