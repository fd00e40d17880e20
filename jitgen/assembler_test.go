/*
 * mipsrecomp - x86-64 byte-level assembler test cases.
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
	"encoding/binary"
	"testing"
)

func TestAssemblerPatchesForwardJump(t *testing.T) {
	a := NewAssembler()
	a.label("entry")
	a.jmp("after")
	a.emitByte(0xcc) // filler the jump must skip over
	a.label("after")
	a.ret()

	code, err := a.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if code[0] != 0xe9 {
		t.Fatalf("expected jmp rel32 opcode at offset 0, got 0x%02x", code[0])
	}
	rel := int32(binary.LittleEndian.Uint32(code[1:5]))
	// the jmp instruction is 5 bytes (opcode + rel32); "after" sits one
	// filler byte past its end.
	if want := int32(1); rel != want {
		t.Errorf("rel32 = %d, want %d", rel, want)
	}
	if code[len(code)-1] != 0xc3 {
		t.Errorf("expected trailing ret, got 0x%02x", code[len(code)-1])
	}
}

func TestAssemblerPatchesBackwardJump(t *testing.T) {
	a := NewAssembler()
	a.label("loop")
	a.aluRegReg(aluAdd, regRax, regRbx)
	a.jmp("loop")

	code, err := a.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	jmpOffset := len(code) - 5
	rel := int32(binary.LittleEndian.Uint32(code[jmpOffset+1:]))
	if want := int32(-jmpOffset - 5); rel != want {
		t.Errorf("rel32 = %d, want %d", rel, want)
	}
}

func TestAssemblerFinishFailsOnUnresolvedLabel(t *testing.T) {
	a := NewAssembler()
	a.jmp("nowhere")
	if _, err := a.Finish(); err == nil {
		t.Fatal("expected an error for an unresolved jump target")
	}
}

func TestFunctionEntryReportsBoundLabels(t *testing.T) {
	a := NewAssembler()
	a.label("fn_a")
	a.ret()
	a.label("fn_b")
	a.ret()

	if off, ok := a.FunctionEntry("fn_a"); !ok || off != 0 {
		t.Errorf("fn_a entry = (%d, %v), want (0, true)", off, ok)
	}
	if off, ok := a.FunctionEntry("fn_b"); !ok || off != 1 {
		t.Errorf("fn_b entry = (%d, %v), want (1, true)", off, ok)
	}
	if _, ok := a.FunctionEntry("fn_c"); ok {
		t.Error("fn_c should not resolve")
	}
}
