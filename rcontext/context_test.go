/*
 * mipsrecomp - recompiler context test cases.
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

package rcontext

import "testing"

func TestAddSectionAndFunction(t *testing.T) {
	c := New()
	sIdx := c.AddSection(Section{Name: ".text", Vram: 0x1000, Size: 0x100, Executable: true})
	if sIdx != 0 {
		t.Errorf("AddSection returned %d, want 0", sIdx)
	}
	fIdx := c.AddFunction(Function{Name: "func_1000", Vram: 0x1000, SectionIndex: sIdx, Words: []uint32{0, 0}})
	if fIdx != 0 {
		t.Errorf("AddFunction returned %d, want 0", fIdx)
	}
	if got := c.FunctionsInSection(sIdx); len(got) != 1 || got[0] != fIdx {
		t.Errorf("FunctionsInSection(%d) = %v, want [%d]", sIdx, got, fIdx)
	}
	if got := c.FunctionsAtVram(0x1000); len(got) != 1 || got[0] != fIdx {
		t.Errorf("FunctionsAtVram(0x1000) = %v, want [%d]", got, fIdx)
	}
	if idx, ok := c.FunctionByName("func_1000"); !ok || idx != fIdx {
		t.Errorf("FunctionByName() = (%d, %v), want (%d, true)", idx, ok, fIdx)
	}
	if _, ok := c.FunctionByName("nonexistent"); ok {
		t.Errorf("FunctionByName(nonexistent) found, want not found")
	}
}

func TestAddReferenceSymbolRejectsDuplicates(t *testing.T) {
	c := New()
	c.ReferenceSections = append(c.ReferenceSections, Section{Name: "ref"})
	if _, err := c.AddReferenceSymbol(ReferenceSymbol{Name: "foo", SectionIndex: 0}); err != nil {
		t.Errorf("first AddReferenceSymbol failed: %v", err)
	}
	if _, err := c.AddReferenceSymbol(ReferenceSymbol{Name: "foo", SectionIndex: 0}); err == nil {
		t.Errorf("duplicate AddReferenceSymbol succeeded, want error")
	}
}

func TestAddReferenceSymbolRejectsUnknownSection(t *testing.T) {
	c := New()
	if _, err := c.AddReferenceSymbol(ReferenceSymbol{Name: "bar", SectionIndex: 5}); err == nil {
		t.Errorf("AddReferenceSymbol with unknown section succeeded, want error")
	}
}

func TestAddReferenceSymbolAllowsSpecialSections(t *testing.T) {
	c := New()
	if _, err := c.AddReferenceSymbol(ReferenceSymbol{Name: "abs_sym", SectionIndex: SectionAbsolute}); err != nil {
		t.Errorf("AddReferenceSymbol(SectionAbsolute) failed: %v", err)
	}
}

func TestAddDependencyRejectsDuplicates(t *testing.T) {
	c := New()
	if _, err := c.AddDependency(Dependency{Id: "mod.a", VersionMajor: 1}); err != nil {
		t.Errorf("first AddDependency failed: %v", err)
	}
	if _, err := c.AddDependency(Dependency{Id: "mod.a", VersionMajor: 2}); err == nil {
		t.Errorf("duplicate AddDependency succeeded, want error")
	}
}

func TestAddDependencyEventIsIdempotent(t *testing.T) {
	c := New()
	depIdx, err := c.AddDependency(Dependency{Id: "mod.a"})
	if err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	first, err := c.AddDependencyEvent(depIdx, "on_tick")
	if err != nil {
		t.Fatalf("AddDependencyEvent failed: %v", err)
	}
	second, err := c.AddDependencyEvent(depIdx, "on_tick")
	if err != nil {
		t.Fatalf("second AddDependencyEvent failed: %v", err)
	}
	if first != second {
		t.Errorf("AddDependencyEvent returned %d then %d, want idempotent", first, second)
	}
	if len(c.DependencyEvents()) != 1 {
		t.Errorf("DependencyEvents() has %d entries, want 1", len(c.DependencyEvents()))
	}
}

func TestAddCallbackRejectsUnknownIndices(t *testing.T) {
	c := New()
	depIdx, _ := c.AddDependency(Dependency{Id: "mod.a"})
	evIdx, _ := c.AddDependencyEvent(depIdx, "on_tick")
	fIdx := c.AddFunction(Function{Name: "f", Vram: 0x1000})

	if _, err := c.AddCallback(evIdx, fIdx); err != nil {
		t.Errorf("AddCallback failed: %v", err)
	}
	if _, err := c.AddCallback(999, fIdx); err == nil {
		t.Errorf("AddCallback with unknown event index succeeded, want error")
	}
	if _, err := c.AddCallback(evIdx, 999); err == nil {
		t.Errorf("AddCallback with unknown function index succeeded, want error")
	}
}

func TestImportReferenceContextSkipsDuplicateNames(t *testing.T) {
	src := New()
	src.ReferenceSections = append(src.ReferenceSections, Section{Name: "ref"})
	src.AddReferenceSymbol(ReferenceSymbol{Name: "shared", SectionIndex: 0, SectionOffset: 0x10})

	dst := New()
	dst.ReferenceSections = append(dst.ReferenceSections, Section{Name: "otherref"})
	dst.AddReferenceSymbol(ReferenceSymbol{Name: "shared", SectionIndex: 0, SectionOffset: 0x20})

	if err := dst.ImportReferenceContext(src); err != nil {
		t.Fatalf("ImportReferenceContext failed: %v", err)
	}
	idx, ok := dst.ReferenceSymbolByName("shared")
	if !ok {
		t.Fatalf("ReferenceSymbolByName(shared) not found after import")
	}
	if dst.ReferenceSymbols[idx].SectionOffset != 0x20 {
		t.Errorf("import overwrote existing symbol, offset = %#x, want 0x20", dst.ReferenceSymbols[idx].SectionOffset)
	}
}
