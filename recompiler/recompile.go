/*
 * mipsrecomp - per-function recompilation driver.
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

// Package recompiler walks a function's decoded instruction stream and
// drives a generator.Generator through it one instruction at a time.
// It owns every MIPS-specific control-flow decision (branch targets,
// delay slots, jal resolution, jump table dispatch, HI16/LO16 reloc
// folding) so that a generator backend only has to know how to emit
// straight-line operations and structural constructs for its target.
package recompiler

import (
	"fmt"
	"sort"

	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/generator"
	"github.com/n64recomp/mipsrecomp/ops"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// StaticDiscovery collects the vram addresses of functions that had to
// be synthesized mid-recompilation because a jal inside the current
// section targeted an address with no known symbol. The driver caller
// is expected to queue these for a follow-up recompilation pass.
type StaticDiscovery struct {
	SectionIndex int
	Vram         uint32
}

// Result carries a single function's recompilation outcome.
type Result struct {
	Statics []StaticDiscovery
}

// instrInfo is the per-word working state the driver threads through
// its linear walk of a function's instructions.
type instrInfo struct {
	vram    uint32
	word    uint32
	id      ops.InstrId
	reloc   *rcontext.Reloc
}

// Recompile emits ctx's function fn through gen. stats must already
// hold fn's recovered jump tables and absolute jumps, from
// analysis.AnalyzeFunction.
func Recompile(ctx *rcontext.Context, gen generator.Generator, fnIndex int, stats analysis.FunctionStats) (Result, error) {
	fn := &ctx.Functions[fnIndex]
	section := ctx.Sections[fn.SectionIndex]

	labels := make(map[uint32]bool)
	jtblLwVrams := make(map[uint32]*analysis.JumpTable)
	for i := range stats.JumpTables {
		jtblLwVrams[stats.JumpTables[i].LwVram] = &stats.JumpTables[i]
		for _, entry := range stats.JumpTables[i].Entries {
			labels[entry] = true
		}
	}
	jtblByJr := make(map[uint32]*analysis.JumpTable)
	for i := range stats.JumpTables {
		jtblByJr[stats.JumpTables[i].JrVram] = &stats.JumpTables[i]
	}
	absJumpByJr := make(map[uint32]analysis.AbsoluteJump)
	for _, aj := range stats.AbsoluteJumps {
		absJumpByJr[aj.JrVram] = aj
		labels[aj.Target] = true
	}

	instrs := make([]instrInfo, len(fn.Words))
	relocIdx := 0
	for i, word := range fn.Words {
		vram := fn.Vram + uint32(i)*4
		id := ops.Decode(word)
		if _, ok := jtblLwVrams[vram]; ok && id == ops.InstrLw {
			// The jump table load is rewritten into an address
			// computation so the entry's address is available rather
			// than its value, matching what EmitSwitch expects.
			id = ops.InstrAddiu
		}
		if _, ok := ops.ConditionalBranchOps[id]; ok {
			labels[vram+4+uint32(ops.ImmS16(word))*4] = true
		} else if id == ops.InstrJ {
			labels[(vram&0xF0000000)|(ops.Target(word)<<2)] = true
		}
		var reloc *rcontext.Reloc
		for relocIdx < len(section.Relocs) && section.Relocs[relocIdx].Address < vram {
			relocIdx++
		}
		if relocIdx < len(section.Relocs) && section.Relocs[relocIdx].Address == vram {
			r := section.Relocs[relocIdx]
			reloc = &r
		}
		instrs[i] = instrInfo{vram: vram, word: word, id: id, reloc: reloc}
	}

	d := &driver{
		ctx:     ctx,
		gen:     gen,
		fn:      fn,
		section: section,
		instrs:  instrs,
		jtblByJr: jtblByJr,
		absJumpByJr: absJumpByJr,
	}

	gen.EmitFunctionStart(fn.Name, fnIndex)
	emitted := make([]bool, len(instrs))
	for i := range instrs {
		if emitted[i] {
			continue
		}
		if labels[instrs[i].vram] {
			gen.EmitLabel(fmt.Sprintf("L_%08X", instrs[i].vram))
		}
		if err := d.emitAt(i, emitted); err != nil {
			return Result{Statics: d.statics}, err
		}
	}
	gen.EmitFunctionEnd()

	sort.Slice(d.statics, func(i, j int) bool { return d.statics[i].Vram < d.statics[j].Vram })
	return Result{Statics: d.statics}, nil
}

type driver struct {
	ctx         *rcontext.Context
	gen         generator.Generator
	fn          *rcontext.Function
	section     rcontext.Section
	instrs      []instrInfo
	jtblByJr    map[uint32]*analysis.JumpTable
	absJumpByJr map[uint32]analysis.AbsoluteJump
	statics     []StaticDiscovery
}

func (d *driver) ictx(ii instrInfo) generator.InstructionContext {
	return generator.InstructionContext{
		Vram:   ii.vram,
		Word:   ii.word,
		Rd:     int(ops.Rd(ii.word)),
		Rs:     int(ops.Rs(ii.word)),
		Rt:     int(ops.Rt(ii.word)),
		Sa:     int(ops.Sa(ii.word)),
		ImmU16: d.resolvedImmU16(ii),
		ImmS16: d.resolvedImmS16(ii),
		Reloc:  ii.reloc,
	}
}

// resolvedImmU16/resolvedImmS16 fold a HI16/LO16 reloc targeting a
// non-relocatable reference section directly into the immediate,
// since the recompiled code has no linker to resolve it at load time.
func (d *driver) resolvedImmU16(ii instrInfo) uint32 {
	imm, folded := d.foldedReloc(ii)
	if folded {
		return imm
	}
	return ops.ImmU16(ii.word)
}

func (d *driver) resolvedImmS16(ii instrInfo) int32 {
	imm, folded := d.foldedReloc(ii)
	if folded {
		return int32(int16(imm))
	}
	return ops.ImmS16(ii.word)
}

func (d *driver) foldedReloc(ii instrInfo) (uint32, bool) {
	r := ii.reloc
	if r == nil || !r.ReferenceSymbol {
		return 0, false
	}
	if r.Type != rcontext.RHi16 && r.Type != rcontext.RLo16 {
		return 0, false
	}
	if int(r.TargetSection) >= len(d.ctx.ReferenceSections) {
		return 0, false
	}
	refSection := d.ctx.ReferenceSections[r.TargetSection]
	if refSection.Relocatable {
		return 0, false
	}
	full := r.TargetSectionOffset + refSection.Vram
	if r.Type == rcontext.RHi16 {
		return (full >> 16) + ((full >> 15) & 1), true
	}
	return full & 0xffff, true
}

func (d *driver) isBranchLike(id ops.InstrId) bool {
	if _, ok := ops.ConditionalBranchOps[id]; ok {
		return true
	}
	switch id {
	case ops.InstrJ, ops.InstrJal, ops.InstrJr, ops.InstrJalr:
		return true
	}
	return false
}

// emitAt emits the instruction at index i, consuming its delay slot
// (index i+1) as part of the same call when the instruction affects
// control flow; emitted is updated for both indices in that case.
func (d *driver) emitAt(i int, emitted []bool) error {
	ii := d.instrs[i]
	emitted[i] = true

	if !d.isBranchLike(ii.id) {
		return d.emitStraightLine(ii)
	}

	hasDelay := i+1 < len(d.instrs)
	emitDelay := func() error {
		if !hasDelay {
			return nil
		}
		emitted[i+1] = true
		return d.emitStraightLine(d.instrs[i+1])
	}

	switch ii.id {
	case ops.InstrJr:
		return d.emitJr(ii, emitDelay)
	case ops.InstrJ:
		return d.emitJ(ii, emitDelay)
	case ops.InstrJal, ops.InstrJalr:
		return d.emitCall(ii, emitDelay)
	default:
		return d.emitBranch(ii, emitDelay)
	}
}

func (d *driver) emitStraightLine(ii instrInfo) error {
	if ii.word == 0 {
		// The canonical "sll $zero, $zero, 0" encoding: a true nop with
		// no observable effect, so it gets no operand processing at all.
		return nil
	}

	ictx := d.ictx(ii)
	d.gen.EmitComment(fmt.Sprintf("0x%08X", ii.vram))

	if bop, ok := ops.BinaryOps[ii.id]; ok {
		d.gen.ProcessBinaryOp(bop, ictx)
		return nil
	}
	if uop, ok := ops.UnaryOps[ii.id]; ok {
		d.gen.ProcessUnaryOp(uop, ictx)
		return nil
	}
	if sop, ok := ops.StoreOps[ii.id]; ok {
		d.gen.ProcessStoreOp(sop, ictx)
		return nil
	}

	switch ii.id {
	case ops.InstrMfc0:
		d.gen.EmitCop0StatusRead(ictx.Rt)
	case ops.InstrMtc0:
		d.gen.EmitCop0StatusWrite(ictx.Rt)
	case ops.InstrCfc1:
		d.gen.EmitCop1CsRead(ictx.Rt)
	case ops.InstrCtc1:
		d.gen.EmitCop1CsWrite(ictx.Rt)
	case ops.InstrMult, ops.InstrMultu, ops.InstrDmult, ops.InstrDmultu, ops.InstrDiv, ops.InstrDivu:
		d.gen.EmitMulDiv(ii.id, ictx.Rs, ictx.Rt)
	case ops.InstrSyscall:
		d.gen.EmitSyscall(ii.vram)
	case ops.InstrBreak:
		d.gen.EmitDoBreak(ii.vram)
	case ops.InstrInvalid:
		return fmt.Errorf("unknown opcode 0x%08X at 0x%08X in %s", ii.word, ii.vram, d.fn.Name)
	default:
		// Unhandled opcodes (nop and its aliases, coprocessor no-ops)
		// simply have no runtime effect to emit.
	}
	return nil
}

func (d *driver) branchTargetLabel(ii instrInfo) string {
	target := ii.vram + 4 + uint32(ops.ImmS16(ii.word))*4
	return fmt.Sprintf("L_%08X", target)
}

func (d *driver) emitBranch(ii instrInfo, emitDelay func() error) error {
	bop := ops.ConditionalBranchOps[ii.id]
	ictx := d.ictx(ii)

	if bop.Likely {
		// A likely branch's delay slot only executes when the branch
		// is taken, so it belongs inside the branch body rather than
		// before it.
		d.gen.EmitBranchCondition(bop, ictx)
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitGoto(d.branchTargetLabel(ii))
		d.gen.EmitBranchClose()
		return nil
	}

	if err := emitDelay(); err != nil {
		return err
	}
	d.gen.EmitBranchCondition(bop, ictx)
	d.gen.EmitGoto(d.branchTargetLabel(ii))
	d.gen.EmitBranchClose()
	return nil
}

func (d *driver) emitJ(ii instrInfo, emitDelay func() error) error {
	target := (ii.vram & 0xF0000000) | (ops.Target(ii.word) << 2)
	funcVramEnd := d.fn.Vram + uint32(len(d.fn.Words))*4
	if target >= d.fn.Vram && target < funcVramEnd {
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitGoto(fmt.Sprintf("L_%08X", target))
		return nil
	}
	// A plain j leaving the function is only valid as a tail call into
	// a known function; anything else is branching into the void.
	return d.emitTailCall(ii, target, emitDelay)
}

func (d *driver) emitTailCall(ii instrInfo, target uint32, emitDelay func() error) error {
	if len(d.ctx.FunctionsAtVram(target)) == 0 {
		return fmt.Errorf("function %s jumps outside itself to 0x%08X with no known target", d.fn.Name, target)
	}
	if err := d.emitCallTarget(ii, target, true, emitDelay); err != nil {
		return err
	}
	d.gen.EmitReturn()
	return nil
}

func (d *driver) emitJr(ii instrInfo, emitDelay func() error) error {
	ictx := d.ictx(ii)

	if ictx.Rs == 31 { // $ra
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitReturn()
		return nil
	}

	if jt, ok := d.jtblByJr[ii.vram]; ok {
		d.gen.EmitJtblAddendDeclaration(*jt, jt.AddendReg)
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitSwitch(d.ctx, *jt, jt.AddendReg)
		for i, entry := range jt.Entries {
			d.gen.EmitCase(i, fmt.Sprintf("L_%08X", entry))
		}
		d.gen.EmitSwitchError(ii.vram, jt.Vram)
		d.gen.EmitSwitchClose()
		return nil
	}

	if aj, ok := d.absJumpByJr[ii.vram]; ok {
		return d.emitJ(instrInfo{vram: ii.vram, word: (aj.Target >> 2) & 0x3ffffff}, emitDelay)
	}

	if err := emitDelay(); err != nil {
		return err
	}
	d.gen.EmitFunctionCallByRegister(ictx.Rs)
	d.gen.EmitReturn()
	return nil
}

func (d *driver) emitCall(ii instrInfo, emitDelay func() error) error {
	if ii.id == ops.InstrJalr {
		ictx := d.ictx(ii)
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitFunctionCallByRegister(ictx.Rs)
		return nil
	}
	target := (ii.vram & 0xF0000000) | (ops.Target(ii.word) << 2)
	return d.emitCallTarget(ii, target, false, emitDelay)
}

func (d *driver) emitCallTarget(ii instrInfo, target uint32, tailCall bool, emitDelay func() error) error {
	if ii.reloc != nil && ii.reloc.ReferenceSymbol {
		if ii.reloc.TargetSection == rcontext.SectionEvent {
			if err := emitDelay(); err != nil {
				return err
			}
			d.gen.EmitTriggerEvent(ii.reloc.SymbolIndex)
			return nil
		}
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitFunctionCallReferenceSymbol(d.ctx, ii.reloc.TargetSection, ii.reloc.SymbolIndex, ii.reloc.TargetSectionOffset)
		return nil
	}

	result, matched := ResolveJAL(d.ctx, d.fn.SectionIndex, target)
	switch result {
	case JalNoMatch:
		return fmt.Errorf("no function found for jal target 0x%08X in %s", target, d.fn.Name)
	case JalError:
		return fmt.Errorf("internal error resolving jal to 0x%08X in %s", target, d.fn.Name)
	case JalMatch:
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitFunctionCall(d.ctx, matched)
		return nil
	case JalCreateStatic:
		d.statics = append(d.statics, StaticDiscovery{SectionIndex: d.fn.SectionIndex, Vram: target})
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitFunctionCallLookup(target)
		return nil
	case JalAmbiguous:
		if err := emitDelay(); err != nil {
			return err
		}
		d.gen.EmitFunctionCallLookup(target)
		return nil
	}
	return nil
}
