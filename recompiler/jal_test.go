/*
 * mipsrecomp - JAL resolution test cases.
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

	"github.com/n64recomp/mipsrecomp/rcontext"
)

func TestResolveJALExactMatchInSameSection(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x1000})
	fnIdx := ctx.AddFunction(rcontext.Function{Name: "callee", Vram: 0x1100, Words: []uint32{0, 0}, SectionIndex: sIdx})

	result, matched := ResolveJAL(ctx, sIdx, 0x1100)
	if result != JalMatch || matched != fnIdx {
		t.Fatalf("ResolveJAL = (%v, %d), want (Match, %d)", result, matched, fnIdx)
	}
}

func TestResolveJALCreatesStaticWhenInSectionButUnknown(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x1000})

	result, _ := ResolveJAL(ctx, sIdx, 0x1500)
	if result != JalCreateStatic {
		t.Fatalf("ResolveJAL = %v, want CreateStatic", result)
	}
}

func TestResolveJALNoMatchOutsideSection(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x100})

	result, _ := ResolveJAL(ctx, sIdx, 0x9000)
	if result != JalNoMatch {
		t.Fatalf("ResolveJAL = %v, want NoMatch", result)
	}
}

func TestResolveJALAmbiguousAcrossNonRelocatableSections(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x100})
	otherA := ctx.AddSection(rcontext.Section{Name: ".text.a", Vram: 0x9000, Size: 0x100, Relocatable: false})
	otherB := ctx.AddSection(rcontext.Section{Name: ".text.b", Vram: 0xA000, Size: 0x100, Relocatable: false})
	ctx.AddFunction(rcontext.Function{Name: "a", Vram: 0x9500, Words: []uint32{0}, SectionIndex: otherA})
	ctx.AddFunction(rcontext.Function{Name: "b", Vram: 0x9500, Words: []uint32{0}, SectionIndex: otherB})

	result, _ := ResolveJAL(ctx, sIdx, 0x9500)
	if result != JalAmbiguous {
		t.Fatalf("ResolveJAL = %v, want Ambiguous", result)
	}
}

func TestResolveJALSkipsRelocatableCandidates(t *testing.T) {
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: ".text", Vram: 0x1000, Size: 0x100})
	relocatable := ctx.AddSection(rcontext.Section{Name: ".text.reloc", Vram: 0x9000, Size: 0x100, Relocatable: true})
	ctx.AddFunction(rcontext.Function{Name: "reloc_fn", Vram: 0x9500, Words: []uint32{0}, SectionIndex: relocatable})

	result, _ := ResolveJAL(ctx, sIdx, 0x9500)
	if result != JalNoMatch {
		t.Fatalf("ResolveJAL = %v, want NoMatch (relocatable candidates are never used)", result)
	}
}
