/*
 * mipsrecomp - x86-64 JIT generator.
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

package jitgen

import (
	"fmt"

	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/generator"
	"github.com/n64recomp/mipsrecomp/ops"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// Condition-code nibbles for the 0f 8x Jcc family.
const (
	ccE  = 0x4
	ccNE = 0x5
	ccL  = 0xc
	ccLE = 0xe
	ccG  = 0xf
	ccGE = 0xd
)

// pendingSwitch mirrors the spec's "switch jump table" bookkeeping: a
// switch's case labels, recorded so Finish can bake their resolved
// addresses into a stable entry array once assembly completes.
type pendingSwitch struct {
	labels  []string
	entries []uint64
}

// LiveGeneratorContext accumulates everything a batch of recompiled
// functions needs resolved once assembly finishes: function entry
// labels, pending switch tables, and pending reference-symbol/import
// calls that the loader patches in after host functions are resolved.
type LiveGeneratorContext struct {
	asm *Assembler

	funcLabelOf map[int]string
	switches    map[string]*pendingSwitch

	pendingRefSymbols []refSymbolJump
	pendingImports    []importJump
}

type refSymbolJump struct {
	label        string
	sectionIndex uint16
	symbolIndex  int
	targetOffset uint32
}

type importJump struct {
	label       string
	importIndex int
}

// NewLiveGeneratorContext starts a fresh batch.
func NewLiveGeneratorContext() *LiveGeneratorContext {
	return &LiveGeneratorContext{
		asm:         NewAssembler(),
		funcLabelOf: make(map[int]string),
		switches:    make(map[string]*pendingSwitch),
	}
}

// Generator drives one LiveGeneratorContext's assembler through a
// single function's instruction stream.
type Generator struct {
	live *LiveGeneratorContext
	asm  *Assembler

	curFunc     string
	labelSeq    int
	curSwitch   *pendingSwitch
	switchLabel string
	pendingSkip []string
	errored     bool
}

// New creates a generator over live's shared assembler.
func New(live *LiveGeneratorContext) *Generator {
	return &Generator{live: live, asm: live.asm}
}

var _ generator.Generator = (*Generator)(nil)

func (g *Generator) nextLabel(prefix string) string {
	g.labelSeq++
	return fmt.Sprintf("%s_%s_%d", g.curFunc, prefix, g.labelSeq)
}

func (g *Generator) Errored() bool { return g.errored }

func (g *Generator) EmitFunctionStart(name string, index int) {
	g.curFunc = name
	g.asm.label(name)
	g.live.funcLabelOf[index] = name
	// Standard prologue: push rbp; mov rbp, rsp. The pinned registers
	// (memory base, ctx, cop1-cs scratch, hi/lo scratch) are callee-
	// saved by the System V ABI already, so no extra save is needed
	// here; the loader establishes them once before entering any
	// compiled function.
	g.asm.emitByte(0x55) // push rbp
	g.asm.movRegReg(regRbp, regRsp)
}

func (g *Generator) EmitFunctionEnd() {
	g.asm.movRegReg(regRsp, regRbp)
	g.asm.emitByte(0x5d) // pop rbp
	g.asm.ret()
}

func (g *Generator) EmitLabel(name string) { g.asm.label(g.curFunc + "_" + name) }
func (g *Generator) EmitGoto(target string) { g.asm.jmp(g.curFunc + "_" + target) }
func (g *Generator) EmitComment(text string) {}

// checkFRRegister reports the FPR index an operand names, for any of
// its possible field views, mirroring sourcegen's dispatch so both
// backends validate the same registers.
func checkFRRegister(o ops.Operand, ictx generator.InstructionContext) (reg int, ok bool) {
	switch o {
	case ops.OperandFd, ops.OperandFdDouble, ops.OperandFdU32L, ops.OperandFdU64:
		return ictx.Rd, true
	case ops.OperandFs, ops.OperandFsDouble, ops.OperandFsU32L, ops.OperandFsU64:
		return ictx.Rs, true
	case ops.OperandFt, ops.OperandFtDouble, ops.OperandFtU32L, ops.OperandFtU64:
		return ictx.Rt, true
	default:
		return 0, false
	}
}

// checkNaNRegister reports the FPR index and precision an operand
// names, but only for its plain single/double field views.
func checkNaNRegister(o ops.Operand, ictx generator.InstructionContext) (reg int, isDouble bool, ok bool) {
	switch o {
	case ops.OperandFd:
		return ictx.Rd, false, true
	case ops.OperandFs:
		return ictx.Rs, false, true
	case ops.OperandFt:
		return ictx.Rt, false, true
	case ops.OperandFdDouble:
		return ictx.Rd, true, true
	case ops.OperandFsDouble:
		return ictx.Rs, true, true
	case ops.OperandFtDouble:
		return ictx.Rt, true, true
	default:
		return 0, false, false
	}
}

func (g *Generator) emitChecks(checkFR, checkNaN bool, ictx generator.InstructionContext, frOperands, naNOperands []ops.Operand) {
	if checkFR {
		for _, o := range frOperands {
			if reg, ok := checkFRRegister(o, ictx); ok {
				g.EmitCheckFR(reg)
			}
		}
	}
	if checkNaN {
		for _, o := range naNOperands {
			if reg, isDouble, ok := checkNaNRegister(o, ictx); ok {
				g.EmitCheckNaN(reg, isDouble)
			}
		}
	}
}

func (g *Generator) ProcessBinaryOp(op ops.BinaryOp, ictx generator.InstructionContext) {
	operands := []ops.Operand{op.Operands.Operands[0], op.Operands.Operands[1]}
	g.emitChecks(op.CheckFR, op.CheckNaN, ictx, append([]ops.Operand{op.Output}, operands...), operands)
	switch op.Type {
	case ops.BinaryAdd64, ops.BinaryAdd32:
		g.asm.aluRegReg(aluAdd, regRax, regRbx)
	case ops.BinarySub64, ops.BinarySub32:
		g.asm.aluRegReg(aluSub, regRax, regRbx)
	case ops.BinaryAnd64:
		g.asm.aluRegReg(aluAnd, regRax, regRbx)
	case ops.BinaryOr64:
		g.asm.aluRegReg(aluOr, regRax, regRbx)
	case ops.BinaryXor64:
		g.asm.aluRegReg(aluXor, regRax, regRbx)
	case ops.BinarySll64, ops.BinarySll32:
		g.asm.movRegReg(regRcx, regRbx)
		g.asm.shiftRegCL(4, regRax)
	case ops.BinarySrl64, ops.BinarySrl32:
		g.asm.movRegReg(regRcx, regRbx)
		g.asm.shiftRegCL(5, regRax)
	case ops.BinarySra64:
		g.asm.movRegReg(regRcx, regRbx)
		g.asm.shiftRegCL(7, regRax)
	case ops.BinarySra32:
		// Mask the shift amount to 5 bits, then do a plain 64-bit
		// arithmetic shift so the sign bit replicates upward exactly
		// like the original 32-bit-then-sign-extend result would.
		g.asm.movRegReg(regRcx, regRbx)
		g.asm.emitBytes(0x83, modRM(3, 4, regRcx), 0x1f) // and ecx, 0x1f
		g.asm.shiftRegCL(7, regRax)
	case ops.BinaryLD:
		g.asm.callExternal("runtime_LoadDoubleword")
		// Rotate by 32 bits to swap the two big-endian words into the
		// host's native word order, the inverse of the SD store path.
		g.asm.emitBytes(0x48, 0xc1, modRM(3, 0, regRax), 0x20) // rol rax, 0x20
	default:
		g.asm.callExternal(fmt.Sprintf("runtime_BinaryOp_%d", int(op.Type)))
	}
}

func (g *Generator) ProcessUnaryOp(op ops.UnaryOp, ictx generator.InstructionContext) {
	g.emitChecks(op.CheckFR, op.CheckNaN, ictx, []ops.Operand{op.Output, op.Input}, []ops.Operand{op.Input})
	switch op.Operation {
	case ops.UnaryToS32, ops.UnaryToU32:
		// Truncate rax to 32 bits by operating on eax; the REX.W-less
		// encoding already zero-extends into the upper 32 bits.
		g.asm.emitBytes(0x89, modRM(3, regRax, regRax))
	default:
		g.asm.callExternal(fmt.Sprintf("runtime_UnaryOp_%d", int(op.Operation)))
	}
}

func (g *Generator) ProcessStoreOp(op ops.StoreOp, ictx generator.InstructionContext) {
	switch op.Type {
	case ops.StoreSD:
		// The original ABI stores a 64-bit value as two big-endian
		// words; rotating by 32 bits before the call swaps them back
		// into the host's native word order.
		g.asm.emitBytes(0x48, 0xc1, modRM(3, 0, regRax), 0x20) // rol rax, 0x20
		g.asm.callExternal("runtime_StoreDoubleword")
	default:
		g.asm.callExternal(fmt.Sprintf("runtime_StoreOp_%d", int(op.Type)))
	}
}

func (g *Generator) EmitFunctionCall(ctx *rcontext.Context, functionIndex int) {
	label, ok := g.live.funcLabelOf[functionIndex]
	if !ok {
		label = ctx.Functions[functionIndex].Name
	}
	g.asm.call(label)
}

func (g *Generator) EmitFunctionCallByRegister(reg int) {
	g.asm.callExternal("runtime_LookupAndCallByRegister")
}

func (g *Generator) EmitFunctionCallLookup(vram uint32) {
	g.asm.movRegImm64(regRdi, uint64(vram))
	g.asm.callExternal("runtime_LookupAndCall")
}

func (g *Generator) EmitFunctionCallReferenceSymbol(ctx *rcontext.Context, sectionIndex uint16, symbolIndex int, targetOffset uint32) {
	if sectionIndex == rcontext.SectionImport {
		// One import index resolves to a single host function shared by
		// every call site that imports it, so these are linked together
		// by import index rather than one at a time like reference
		// symbols.
		label := g.nextLabel("import")
		g.live.pendingImports = append(g.live.pendingImports, importJump{label: label, importIndex: symbolIndex})
		// Not a label bound anywhere in this batch: like a runtime
		// helper, its address is only known once the loader resolves
		// the import, so it goes through the same placeholder-operand
		// indirect call rather than an intra-batch rel32.
		g.asm.callExternal(label)
		return
	}
	label := g.nextLabel("refsym")
	g.live.pendingRefSymbols = append(g.live.pendingRefSymbols, refSymbolJump{
		label: label, sectionIndex: sectionIndex, symbolIndex: symbolIndex, targetOffset: targetOffset,
	})
	g.asm.callExternal(label)
}

func (g *Generator) EmitReturn() {
	g.asm.movRegReg(regRsp, regRbp)
	g.asm.emitByte(0x5d)
	g.asm.ret()
}

func (g *Generator) EmitBranchCondition(op ops.ConditionalBranchOp, ictx generator.InstructionContext) {
	g.asm.aluRegReg(aluCmp, regRax, regRbx)
	cc := ccE
	switch op.Comparison {
	case ops.BinaryEqual:
		cc = ccNE // invert: skip the branch body when NOT equal
	case ops.BinaryNotEqual:
		cc = ccE
	case ops.BinaryLess:
		cc = ccGE
	case ops.BinaryLessEq:
		cc = ccG
	case ops.BinaryGreater:
		cc = ccLE
	case ops.BinaryGreaterEq:
		cc = ccL
	}
	skip := g.nextLabel("skip")
	g.curSwitch = nil
	g.asm.jcc(byte(cc), skip)
	g.pendingSkip = append(g.pendingSkip, skip)
}

func (g *Generator) EmitBranchClose() {
	n := len(g.pendingSkip)
	if n == 0 {
		return
	}
	label := g.pendingSkip[n-1]
	g.pendingSkip = g.pendingSkip[:n-1]
	g.asm.label(label)
}

func (g *Generator) EmitJtblAddendDeclaration(jtbl analysis.JumpTable, reg int) {
	// The addend is already resident in regRax from the preceding
	// addu/lw sequence; nothing further is materialized here.
}

func (g *Generator) EmitSwitch(ctx *rcontext.Context, jtbl analysis.JumpTable, reg int) {
	label := g.nextLabel("switch")
	g.curSwitch = &pendingSwitch{}
	g.live.switches[label] = g.curSwitch
	g.switchLabel = label
	// rax holds the byte offset into the table; divide by 4 and use
	// it to index the entry array built up by EmitCase, then jump
	// through it. The actual indexed jump is emitted once every case
	// label is known, in EmitSwitchClose.
	g.asm.emitBytes(0x48, 0xc1, modRM(3, 5, regRax), 0x02) // shr rax, 2
}

func (g *Generator) EmitCase(caseIndex int, targetLabel string) {
	if g.curSwitch == nil {
		return
	}
	g.curSwitch.labels = append(g.curSwitch.labels, g.curFunc+"_"+targetLabel)
}

func (g *Generator) EmitSwitchError(instrVram, jtblVram uint32) {
	g.asm.movRegImm64(regRdi, uint64(instrVram))
	g.asm.movRegImm64(regRsi, uint64(jtblVram))
	g.asm.callExternal("runtime_SwitchError")
}

func (g *Generator) EmitSwitchClose() {
	// The indexed jump (load entries[rax] and jmp) is linked once
	// Finish resolves every case label; here only the entry count is
	// finalized so the array can be allocated before assembly ends.
	if g.curSwitch != nil {
		g.curSwitch.entries = make([]uint64, len(g.curSwitch.labels))
	}
	g.curSwitch = nil
}

func (g *Generator) EmitCop0StatusRead(reg int)  { g.asm.callExternal("runtime_Cop0StatusRead") }
func (g *Generator) EmitCop0StatusWrite(reg int) { g.asm.callExternal("runtime_Cop0StatusWrite") }
func (g *Generator) EmitCop1CsRead(reg int)      { g.asm.movRegReg(regRax, regCop1Cs) }
func (g *Generator) EmitCop1CsWrite(reg int)     { g.asm.movRegReg(regCop1Cs, regRax) }

func (g *Generator) EmitMulDiv(instr ops.InstrId, reg1, reg2 int) {
	g.asm.callExternal(fmt.Sprintf("runtime_MulDiv_%d", int(instr)))
}

func (g *Generator) EmitSyscall(vram uint32) {
	g.asm.movRegImm64(regRdi, uint64(vram))
	g.asm.callExternal("runtime_Syscall")
}

func (g *Generator) EmitDoBreak(vram uint32) {
	g.asm.movRegImm64(regRdi, uint64(vram))
	g.asm.callExternal("runtime_Break")
}

func (g *Generator) EmitPauseSelf() { g.asm.callExternal("runtime_PauseSelf") }

func (g *Generator) EmitTriggerEvent(eventIndex int) {
	g.asm.movRegImm64(regRdi, uint64(eventIndex))
	g.asm.callExternal("runtime_TriggerEvent")
}

func (g *Generator) EmitCheckFR(fpr int) { g.asm.callExternal("runtime_CheckFR") }
func (g *Generator) EmitCheckNaN(fpr int, isDouble bool) { g.asm.callExternal("runtime_CheckNaN") }
