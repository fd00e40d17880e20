/*
 * mipsrecomp - per-function jump table and absolute jump analysis test
 * cases.
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

package analysis

import (
	"testing"

	"github.com/n64recomp/mipsrecomp/rcontext"
)

func encodeR(opcode, rs, rt, rd, sa, funct uint32) uint32 {
	return (opcode << 26) | (rs << 21) | (rt << 16) | (rd << 11) | (sa << 6) | funct
}

func encodeI(opcode, rs, rt, imm uint32) uint32 {
	return (opcode << 26) | (rs << 21) | (rt << 16) | (imm & 0xffff)
}

const (
	opSpecial = 0x00
	opLui     = 0x0f
	opAddiu   = 0x09
	opLw      = 0x23
	opSw      = 0x2b
	fnAddu    = 0x21
	fnJr      = 0x08
)

// A classic switch-case jump table: lui/addiu build the table base in
// $v1, addu folds in the scaled case index, lw loads the target, jr
// dispatches.
func TestAnalyzeFunctionRecoversJumpTable(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Executable: true})

	words := []uint32{
		encodeI(opLui, 0, 3, 0x0000),               // lui $v1, 0x0000
		encodeI(opAddiu, 3, 3, 0x1020),             // addiu $v1, $v1, table_lo
		encodeR(opSpecial, 3, 2, 3, 0, fnAddu),     // addu $v1, $v1, $v0  (index reg $v0)
		encodeI(opLw, 3, 3, 0),                     // lw $v1, 0($v1)
		encodeR(opSpecial, 3, 0, 0, 0, fnJr),       // jr $v1
		0, // delay slot
	}
	fn := rcontext.Function{Name: "f", Vram: 0x1000, Rom: 0x1000, Words: words, SectionIndex: sIdx}
	ctx.AddFunction(fn)

	rom := make([]byte, 0x1040)
	// Table at 0x1020: two entries, then a terminator outside the function.
	putBE(rom, 0x1020, 0x1000)
	putBE(rom, 0x1024, 0x1004)
	putBE(rom, 0x1028, 0xdeadbeef)

	ctx.RomBytes = rom

	stats, err := AnalyzeFunction(ctx, &fn)
	if err != nil {
		t.Fatalf("AnalyzeFunction failed: %v", err)
	}
	if len(stats.JumpTables) != 1 {
		t.Fatalf("got %d jump tables, want 1", len(stats.JumpTables))
	}
	jt := stats.JumpTables[0]
	if jt.Vram != 0x1020 {
		t.Errorf("jump table vram = %#x, want 0x1020", jt.Vram)
	}
	if len(jt.Entries) != 2 || jt.Entries[0] != 0x1000 || jt.Entries[1] != 0x1004 {
		t.Errorf("jump table entries = %#v, want [0x1000 0x1004]", jt.Entries)
	}
}

func TestAnalyzeFunctionRecoversAbsoluteJump(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x2000, Executable: true})

	words := []uint32{
		encodeI(opLui, 0, 3, 0x0000),           // lui $v1, 0
		encodeI(opAddiu, 3, 3, 0x2010),         // addiu $v1, $v1, target
		encodeR(opSpecial, 3, 0, 0, 0, fnJr),   // jr $v1
		0,
	}
	fn := rcontext.Function{Name: "g", Vram: 0x2000, Rom: 0x2000, Words: words, SectionIndex: sIdx}
	ctx.AddFunction(fn)
	ctx.RomBytes = make([]byte, 0x40)

	stats, err := AnalyzeFunction(ctx, &fn)
	if err != nil {
		t.Fatalf("AnalyzeFunction failed: %v", err)
	}
	if len(stats.AbsoluteJumps) != 1 {
		t.Fatalf("got %d absolute jumps, want 1", len(stats.AbsoluteJumps))
	}
	if stats.AbsoluteJumps[0].Target != 0x2010 {
		t.Errorf("absolute jump target = %#x, want 0x2010", stats.AbsoluteJumps[0].Target)
	}
}

func TestAnalyzeFunctionToleratesTailCallJr(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x3000, Executable: true})

	words := []uint32{
		encodeR(opSpecial, 4, 0, 0, 0, fnJr), // jr $a0, second-to-last word
		0,                                     // delay slot
	}
	fn := rcontext.Function{Name: "h", Vram: 0x3000, Rom: 0x3000, Words: words, SectionIndex: sIdx}
	ctx.AddFunction(fn)
	ctx.RomBytes = make([]byte, 0x10)

	stats, err := AnalyzeFunction(ctx, &fn)
	if err != nil {
		t.Fatalf("AnalyzeFunction failed on tail call: %v", err)
	}
	if len(stats.JumpTables) != 0 || len(stats.AbsoluteJumps) != 0 {
		t.Errorf("tail call produced spurious results: %+v", stats)
	}
}

func TestAnalyzeFunctionFailsOnUnresolvableJr(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x4000, Executable: true})

	words := []uint32{
		encodeR(opSpecial, 5, 0, 0, 0, fnJr), // jr $a1 with no tracked state
		0,
		0, // not the second-to-last instruction, so this isn't tolerated as a tail call
	}
	fn := rcontext.Function{Name: "bad", Vram: 0x4000, Rom: 0x4000, Words: words, SectionIndex: sIdx}
	ctx.AddFunction(fn)
	ctx.RomBytes = make([]byte, 0x10)

	if _, err := AnalyzeFunction(ctx, &fn); err == nil {
		t.Errorf("AnalyzeFunction succeeded on unresolvable jr, want error")
	}
}

func putBE(buf []byte, addr uint32, word uint32) {
	buf[addr] = byte(word >> 24)
	buf[addr+1] = byte(word >> 16)
	buf[addr+2] = byte(word >> 8)
	buf[addr+3] = byte(word)
}
