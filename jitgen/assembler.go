/*
 * mipsrecomp - x86-64 byte-level assembler and executable memory.
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

// Package jitgen implements generator.Generator by emitting native
// x86-64 machine code directly into a growable byte buffer, then
// copying the finished buffer into mmap'd executable memory. There is
// no external assembler dependency anywhere in the retrieved corpus,
// so encoding is done by hand the same way the teacher's from-scratch
// backend builds ELF/Mach-O text sections one opcode byte at a time.
package jitgen

import (
	"fmt"
	"syscall"
)

// Pinned registers. Four callee-saved GPRs are reserved for the
// lifetime of a compiled batch: the recompiled memory base, the
// runtime context pointer, a cop1-control-status scratch, and a
// combined HI/LO scratch. Everything else is free for expression
// evaluation.
const (
	regMemBase  = regR12
	regCtx      = regR13
	regCop1Cs   = regR14
	regHiLo     = regR15
)

// x86-64 general-purpose register encodings (low 4 bits of ModRM/SIB,
// REX.B/.X/.R supplies the 5th).
const (
	regRax = 0
	regRcx = 1
	regRdx = 2
	regRbx = 3
	regRsp = 4
	regRbp = 5
	regRsi = 6
	regRdi = 7
	regR8  = 8
	regR9  = 9
	regR10 = 10
	regR11 = 11
	regR12 = 12
	regR13 = 13
	regR14 = 14
	regR15 = 15
)

// jumpFixup records a location inside code needing a rel32 distance
// to a label patched in once every label's final offset is known.
type jumpFixup struct {
	codeOffset int
	label      string
}

// externalCall records a runtime helper call emitted as an indirect
// call through a placeholder 64-bit immediate: the symbol resolves to
// a host function pointer outside this batch, so it can't be patched
// as a rel32 the way intra-batch labels are.
type externalCall struct {
	immOffset int // offset of the movRegImm64 operand to patch
	symbol    string
}

// Assembler accumulates one batch's worth of machine code along with
// every label and fixup needed to link it.
type Assembler struct {
	code []byte

	labels     map[string]int
	jumpFixups []jumpFixup

	externalCalls []externalCall
}

// NewAssembler returns an empty assembler ready for a batch of
// functions.
func NewAssembler() *Assembler {
	return &Assembler{
		labels: make(map[string]int),
	}
}

func (a *Assembler) emitByte(b byte) { a.code = append(a.code, b) }

func (a *Assembler) emitBytes(bs ...byte) { a.code = append(a.code, bs...) }

func (a *Assembler) emitU32(v uint32) {
	a.code = append(a.code, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (a *Assembler) emitU64(v uint64) {
	a.emitU32(uint32(v))
	a.emitU32(uint32(v >> 32))
}

func (a *Assembler) offset() int { return len(a.code) }

// label binds name to the assembler's current write position. A
// function's entry point and every MIPS branch target are labels.
func (a *Assembler) label(name string) {
	a.labels[name] = a.offset()
}

// jumpRel32 emits a placeholder rel32 displacement to name, recording
// a fixup to patch once every label in the batch is known.
func (a *Assembler) jumpRel32(name string) {
	a.jumpFixups = append(a.jumpFixups, jumpFixup{codeOffset: a.offset(), label: name})
	a.emitU32(0)
}

// rexPrefix builds a REX prefix: W selects 64-bit operand size, R/X/B
// extend the ModRM reg/index/rm fields into the r8-r15 range.
func rexPrefix(w bool, r, x, b int) byte {
	rex := byte(0x40)
	if w {
		rex |= 0x08
	}
	if r >= 8 {
		rex |= 0x04
	}
	if x >= 8 {
		rex |= 0x02
	}
	if b >= 8 {
		rex |= 0x01
	}
	return rex
}

func modRM(mod, reg, rm int) byte {
	return byte((mod&3)<<6) | byte((reg&7)<<3) | byte(rm&7)
}

// movRegReg emits `mov dst, src` (64-bit).
func (a *Assembler) movRegReg(dst, src int) {
	a.emitByte(rexPrefix(true, src, 0, dst))
	a.emitBytes(0x89, modRM(3, src, dst))
}

// movRegImm64 emits `mov dst, imm64`.
func (a *Assembler) movRegImm64(dst int, imm uint64) {
	a.emitByte(rexPrefix(true, 0, 0, dst))
	a.emitByte(0xb8 + byte(dst&7))
	a.emitU64(imm)
}

// aluRegReg emits a register-register ALU op (add/sub/and/or/xor/cmp)
// selected by its standard x86 opcode extension.
func (a *Assembler) aluRegReg(op byte, dst, src int) {
	a.emitByte(rexPrefix(true, src, 0, dst))
	a.emitBytes(op, modRM(3, src, dst))
}

const (
	aluAdd = 0x01
	aluSub = 0x29
	aluAnd = 0x21
	aluOr  = 0x09
	aluXor = 0x31
	aluCmp = 0x39
)

// shiftRegCL emits a CL-counted shift/rotate (sa masked by the caller
// into CL before this is emitted): opExt selects SHL=4, SHR=5, SAR=7.
func (a *Assembler) shiftRegCL(opExt int, dst int) {
	a.emitByte(rexPrefix(true, 0, 0, dst))
	a.emitBytes(0xd3, modRM(3, opExt, dst))
}

// call emits a near relative call to a label bound within this batch
// (another recompiled function, or a generator-internal fixup label
// resolved during Finish).
func (a *Assembler) call(label string) {
	a.emitByte(0xe8)
	a.jumpRel32(label)
}

// callExternal emits an indirect call through r11 loaded from a
// placeholder 64-bit immediate, and records the immediate's offset so
// a loader can patch in the real address of a host-resolved runtime
// symbol once it is known.
func (a *Assembler) callExternal(symbol string) {
	immOffset := a.offset() + 2 // movRegImm64's REX+opcode prefix is 2 bytes
	a.movRegImm64(regR11, 0)
	a.emitBytes(0x41, 0xff, modRM(3, 2, regR11))
	a.externalCalls = append(a.externalCalls, externalCall{immOffset: immOffset, symbol: symbol})
}

// jcc emits a conditional jump (rel32 form, 0f 8x) to label.
func (a *Assembler) jcc(cond byte, label string) {
	a.emitBytes(0x0f, 0x80+cond)
	a.jumpRel32(label)
}

func (a *Assembler) jmp(label string) {
	a.emitByte(0xe9)
	a.jumpRel32(label)
}

func (a *Assembler) ret() { a.emitByte(0xc3) }

// Finish patches every recorded jump against the labels now bound,
// mmaps a RWX region sized to the assembled code, copies the bytes in,
// and returns the executable buffer. Real deployments mprotect this
// down to RX after copying; it is left RWX here since the corpus has
// no W^X toggling helper to ground that step on.
func (a *Assembler) Finish() ([]byte, error) {
	for _, fx := range a.jumpFixups {
		target, ok := a.labels[fx.label]
		if !ok {
			return nil, fmt.Errorf("jitgen: unresolved label %q", fx.label)
		}
		rel := int32(target - (fx.codeOffset + 4))
		a.code[fx.codeOffset] = byte(rel)
		a.code[fx.codeOffset+1] = byte(rel >> 8)
		a.code[fx.codeOffset+2] = byte(rel >> 16)
		a.code[fx.codeOffset+3] = byte(rel >> 24)
	}

	mem, err := syscall.Mmap(-1, 0, len(a.code),
		syscall.PROT_READ|syscall.PROT_WRITE|syscall.PROT_EXEC,
		syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("jitgen: mmap executable region: %w", err)
	}
	copy(mem, a.code)
	return mem, nil
}

// FunctionEntry returns the byte offset a function's label was bound
// at, for building the batch's entry table.
func (a *Assembler) FunctionEntry(name string) (int, bool) {
	off, ok := a.labels[name]
	return off, ok
}

// ExternalCallSites returns every recorded runtime-symbol call site,
// keyed by symbol name, for a loader to patch in resolved addresses.
func (a *Assembler) ExternalCallSites() map[string][]int {
	sites := make(map[string][]int)
	for _, ec := range a.externalCalls {
		sites[ec.symbol] = append(sites[ec.symbol], ec.immOffset)
	}
	return sites
}
