/*
 * mipsrecomp - recompilation driver test cases.
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

package recompiler

import (
	"testing"

	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/generator"
	"github.com/n64recomp/mipsrecomp/ops"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

type fakeGen struct {
	calls []string
}

func (g *fakeGen) rec(name string) { g.calls = append(g.calls, name) }

func (g *fakeGen) EmitFunctionStart(name string, index int) { g.rec("FunctionStart") }
func (g *fakeGen) EmitFunctionEnd()                         { g.rec("FunctionEnd") }
func (g *fakeGen) EmitLabel(name string)                    { g.rec("Label") }
func (g *fakeGen) EmitGoto(target string)                   { g.rec("Goto") }
func (g *fakeGen) EmitComment(text string)                  {}

func (g *fakeGen) ProcessBinaryOp(op ops.BinaryOp, ctx generator.InstructionContext) { g.rec("BinaryOp") }
func (g *fakeGen) ProcessUnaryOp(op ops.UnaryOp, ctx generator.InstructionContext)   { g.rec("UnaryOp") }
func (g *fakeGen) ProcessStoreOp(op ops.StoreOp, ctx generator.InstructionContext)   { g.rec("StoreOp") }

func (g *fakeGen) EmitFunctionCall(ctx *rcontext.Context, functionIndex int) { g.rec("FunctionCall") }
func (g *fakeGen) EmitFunctionCallByRegister(reg int)                       { g.rec("FunctionCallByRegister") }
func (g *fakeGen) EmitFunctionCallLookup(vram uint32)                       { g.rec("FunctionCallLookup") }
func (g *fakeGen) EmitFunctionCallReferenceSymbol(ctx *rcontext.Context, sectionIndex uint16, symbolIndex int, targetOffset uint32) {
	g.rec("FunctionCallReferenceSymbol")
}
func (g *fakeGen) EmitReturn() { g.rec("Return") }

func (g *fakeGen) EmitBranchCondition(op ops.ConditionalBranchOp, ctx generator.InstructionContext) {
	g.rec("BranchCondition")
}
func (g *fakeGen) EmitBranchClose() { g.rec("BranchClose") }
func (g *fakeGen) EmitJtblAddendDeclaration(jtbl analysis.JumpTable, reg int) {
	g.rec("JtblAddendDeclaration")
}
func (g *fakeGen) EmitSwitch(ctx *rcontext.Context, jtbl analysis.JumpTable, reg int) { g.rec("Switch") }
func (g *fakeGen) EmitCase(caseIndex int, targetLabel string)                        { g.rec("Case") }
func (g *fakeGen) EmitSwitchError(instrVram, jtblVram uint32)                        { g.rec("SwitchError") }
func (g *fakeGen) EmitSwitchClose()                                                  { g.rec("SwitchClose") }

func (g *fakeGen) EmitCop0StatusRead(reg int)              { g.rec("Cop0StatusRead") }
func (g *fakeGen) EmitCop0StatusWrite(reg int)             { g.rec("Cop0StatusWrite") }
func (g *fakeGen) EmitCop1CsRead(reg int)                  { g.rec("Cop1CsRead") }
func (g *fakeGen) EmitCop1CsWrite(reg int)                 { g.rec("Cop1CsWrite") }
func (g *fakeGen) EmitMulDiv(instr ops.InstrId, reg1, reg2 int) { g.rec("MulDiv") }
func (g *fakeGen) EmitSyscall(vram uint32)                 { g.rec("Syscall") }
func (g *fakeGen) EmitDoBreak(vram uint32)                 { g.rec("DoBreak") }
func (g *fakeGen) EmitPauseSelf()                          { g.rec("PauseSelf") }
func (g *fakeGen) EmitTriggerEvent(eventIndex int)         { g.rec("TriggerEvent") }
func (g *fakeGen) EmitCheckFR(fpr int)                     { g.rec("CheckFR") }
func (g *fakeGen) EmitCheckNaN(fpr int, isDouble bool)     { g.rec("CheckNaN") }
func (g *fakeGen) Errored() bool                           { return false }

func encodeR(opcode, rs, rt, rd, sa, funct uint32) uint32 {
	return (opcode << 26) | (rs << 21) | (rt << 16) | (rd << 11) | (sa << 6) | funct
}

func encodeI(opcode, rs, rt, imm uint32) uint32 {
	return (opcode << 26) | (rs << 21) | (rt << 16) | (imm & 0xffff)
}

// addu $v0, $v0, $v1 ; jr $ra ; nop (delay slot)
func TestRecompileSimpleReturn(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x100})
	words := []uint32{
		encodeR(0x00, 2, 3, 2, 0, 0x21), // addu $v0, $v0, $v1
		encodeR(0x00, 31, 0, 0, 0, 0x08), // jr $ra
		0, // delay slot nop
	}
	fnIdx := ctx.AddFunction(rcontext.Function{Name: "f", Vram: 0x1000, Words: words, SectionIndex: sIdx})

	gen := &fakeGen{}
	result, err := Recompile(ctx, gen, fnIdx, analysis.FunctionStats{})
	if err != nil {
		t.Fatalf("Recompile failed: %v", err)
	}
	if len(result.Statics) != 0 {
		t.Errorf("unexpected statics: %+v", result.Statics)
	}

	want := []string{"FunctionStart", "BinaryOp", "Return", "FunctionEnd"}
	if len(gen.calls) != len(want) {
		t.Fatalf("got calls %#v, want %#v", gen.calls, want)
	}
	for i, c := range want {
		if gen.calls[i] != c {
			t.Errorf("call %d = %q, want %q", i, gen.calls[i], c)
		}
	}
}

func TestRecompileCreatesStaticForUnknownInSectionJal(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x1000})
	// jal 0x1500 ; nop ; jr $ra ; nop
	jalTarget := uint32(0x1500)
	words := []uint32{
		(0x03 << 26) | (jalTarget >> 2), // jal
		0,
		encodeR(0x00, 31, 0, 0, 0, 0x08), // jr $ra
		0,
	}
	fnIdx := ctx.AddFunction(rcontext.Function{Name: "caller", Vram: 0x1000, Words: words, SectionIndex: sIdx})

	gen := &fakeGen{}
	result, err := Recompile(ctx, gen, fnIdx, analysis.FunctionStats{})
	if err != nil {
		t.Fatalf("Recompile failed: %v", err)
	}
	if len(result.Statics) != 1 || result.Statics[0].Vram != jalTarget {
		t.Fatalf("Statics = %+v, want one entry at 0x%08X", result.Statics, jalTarget)
	}

	found := false
	for _, c := range gen.calls {
		if c == "FunctionCallLookup" {
			found = true
		}
	}
	if !found {
		t.Errorf("calls = %#v, want a FunctionCallLookup", gen.calls)
	}
}
