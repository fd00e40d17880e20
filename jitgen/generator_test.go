/*
 * mipsrecomp - x86-64 JIT generator test cases.
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
	"testing"

	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/rcontext"
	"github.com/n64recomp/mipsrecomp/recompiler"
)

func encodeR(opcode, rs, rt, rd, sa, funct uint32) uint32 {
	return (opcode << 26) | (rs << 21) | (rt << 16) | (rd << 11) | (sa << 6) | funct
}

// addu $v0, $v0, $v1 ; jr $ra ; nop
func TestLiveGeneratorCompilesSimpleFunction(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x100})
	words := []uint32{
		encodeR(0x00, 2, 3, 2, 0, 0x21),  // addu $v0, $v0, $v1
		encodeR(0x00, 31, 0, 0, 0, 0x08), // jr $ra
		0,
	}
	fnIdx := ctx.AddFunction(rcontext.Function{Name: "add_two", Vram: 0x1000, Words: words, SectionIndex: sIdx})

	live := NewLiveGeneratorContext()
	gen := New(live)

	if _, err := recompiler.Recompile(ctx, gen, fnIdx, analysis.FunctionStats{}); err != nil {
		t.Fatalf("Recompile failed: %v", err)
	}
	if gen.Errored() {
		t.Fatalf("generator reported an error")
	}

	out, err := live.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	defer out.Close()

	if len(out.Code) == 0 {
		t.Fatal("expected non-empty compiled code")
	}
	if _, ok := out.FuncEntry[fnIdx]; !ok {
		t.Errorf("missing entry address for function %d", fnIdx)
	}
	if out.Code[0] != 0x55 {
		t.Errorf("expected push rbp prologue byte, got 0x%02x", out.Code[0])
	}
	if last := out.Code[len(out.Code)-1]; last != 0xc3 {
		t.Errorf("expected trailing ret, got 0x%02x", last)
	}
}

// A jal to an in-section address with no function registered there
// yet creates a static function discovery and falls back to a
// runtime vram lookup, so it must show up as a patchable runtime
// call site rather than failing compilation outright.
func TestLiveGeneratorRecordsRuntimeCallSiteForUnresolvedJal(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x2000, Size: 0x100, Relocatable: true})
	words := []uint32{
		(0x03 << 26) | (0x2010 >> 2), // jal 0x2010 (in-section, unregistered)
		0,                            // delay slot nop
	}
	fnIdx := ctx.AddFunction(rcontext.Function{Name: "caller", Vram: 0x2000, Words: words, SectionIndex: sIdx})

	live := NewLiveGeneratorContext()
	gen := New(live)

	if _, err := recompiler.Recompile(ctx, gen, fnIdx, analysis.FunctionStats{}); err != nil {
		t.Fatalf("Recompile failed: %v", err)
	}

	out, err := live.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	defer out.Close()

	if len(out.RuntimeCallSites["runtime_LookupAndCall"]) == 0 {
		t.Errorf("expected a runtime_LookupAndCall call site, got sites: %v", out.RuntimeCallSites)
	}
}
