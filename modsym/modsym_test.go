/*
 * mipsrecomp - mod symbol file codec test cases.
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

package modsym

import (
	"encoding/binary"
	"testing"

	"github.com/n64recomp/mipsrecomp/rcontext"
)

func buildTestContext(t *testing.T) (*rcontext.Context, []byte) {
	t.Helper()
	ctx := rcontext.New()
	sIdx := ctx.AddSection(rcontext.Section{Name: "test", Vram: 0x1000, RomOffset: 0, Size: 0x20, Relocatable: true})

	fIdx := ctx.AddFunction(rcontext.Function{
		Name:         "func_1000",
		Vram:         0x1000,
		Rom:          0x0,
		Words:        make([]uint32, 2),
		SectionIndex: sIdx,
	})

	ctx.Sections[sIdx].Relocs = []rcontext.Reloc{
		{Address: 0x1004, TargetSection: uint16(sIdx), TargetSectionOffset: 0x4, Type: rcontext.R26},
	}

	depIdx, err := ctx.AddDependency(rcontext.Dependency{Id: "other.mod", VersionMajor: 1, VersionMinor: 2, VersionPatch: 3})
	if err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	ctx.AddImport(rcontext.ImportSymbol{Name: "imported_func", DependencyIndex: depIdx})
	evIdx, err := ctx.AddDependencyEvent(depIdx, "on_tick")
	if err != nil {
		t.Fatalf("AddDependencyEvent: %v", err)
	}
	if _, err := ctx.AddCallback(evIdx, fIdx); err != nil {
		t.Fatalf("AddCallback: %v", err)
	}
	ctx.AddExport(fIdx)
	ctx.AddEventSymbol(rcontext.EventSymbol{Name: "on_spawn"})
	ctx.AddReplacement(rcontext.FunctionReplacement{FunctionIndex: fIdx, OriginalVrom: 0x2000, OriginalVram: 0x80002000, Force: true})

	binaryBlob := make([]byte, 0x20)
	binary.BigEndian.PutUint32(binaryBlob[0:4], 0x27bdffe0)  // addiu $sp, $sp, -0x20
	binary.BigEndian.PutUint32(binaryBlob[4:8], 0x03e00008)  // jr $ra

	return ctx, binaryBlob
}

func TestSerializeParseRoundTrip(t *testing.T) {
	ctx, binaryBlob := buildTestContext(t)

	data, err := Serialize(ctx, nil)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	got, err := Parse(data, binaryBlob, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(got.Sections) != len(ctx.Sections) {
		t.Fatalf("got %d sections, want %d", len(got.Sections), len(ctx.Sections))
	}
	if got.Sections[0].Vram != ctx.Sections[0].Vram {
		t.Errorf("section vram = %#x, want %#x", got.Sections[0].Vram, ctx.Sections[0].Vram)
	}
	if len(got.Functions) != len(ctx.Functions) {
		t.Fatalf("got %d functions, want %d", len(got.Functions), len(ctx.Functions))
	}
	if got.Functions[0].Words[0] != 0x27bdffe0 {
		t.Errorf("function word 0 = %#x, want 0x27bdffe0", got.Functions[0].Words[0])
	}
	if got.Functions[0].Words[1] != 0x03e00008 {
		t.Errorf("function word 1 = %#x, want 0x03e00008", got.Functions[0].Words[1])
	}
	if len(got.Sections[0].Relocs) != 1 || got.Sections[0].Relocs[0].TargetSectionOffset != 0x4 {
		t.Errorf("reloc round-trip mismatch: %+v", got.Sections[0].Relocs)
	}
	if len(got.Dependencies) != 1 || got.Dependencies[0].Id != "other.mod" {
		t.Errorf("dependency round-trip mismatch: %+v", got.Dependencies)
	}
	if len(got.Imports) != 1 || got.Imports[0].Name != "imported_func" {
		t.Errorf("import round-trip mismatch: %+v", got.Imports)
	}
	if len(got.DependencyEvents()) != 1 || got.DependencyEvents()[0].Name != "on_tick" {
		t.Errorf("dependency event round-trip mismatch: %+v", got.DependencyEvents())
	}
	if len(got.Callbacks) != 1 {
		t.Errorf("callback round-trip mismatch: %+v", got.Callbacks)
	}
	if len(got.ExportedFuncs) != 1 {
		t.Errorf("export round-trip mismatch: %+v", got.ExportedFuncs)
	}
	if len(got.EventSymbols) != 1 || got.EventSymbols[0].Name != "on_spawn" {
		t.Errorf("event round-trip mismatch: %+v", got.EventSymbols)
	}
	if len(got.Replacements) != 1 || !got.Replacements[0].Force {
		t.Errorf("replacement round-trip mismatch: %+v", got.Replacements)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	data := []byte("NOTAMAGIC\x01\x00\x00\x00")
	if _, err := Parse(data, nil, nil); err != ErrNotASymbolFile {
		t.Errorf("Parse() error = %v, want ErrNotASymbolFile", err)
	}
}

func TestParseRejectsUnknownVersion(t *testing.T) {
	data := make([]byte, 12)
	copy(data, magic[:])
	binary.LittleEndian.PutUint32(data[8:], 99)
	if _, err := Parse(data, nil, nil); err != ErrUnknownSymbolFileVersion {
		t.Errorf("Parse() error = %v, want ErrUnknownSymbolFileVersion", err)
	}
}

func TestParseRejectsFunctionOutOfBounds(t *testing.T) {
	ctx, _ := buildTestContext(t)
	data, err := Serialize(ctx, nil)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	// Binary blob too short for the function's declared word count.
	tooShort := make([]byte, 4)
	if _, err := Parse(data, tooShort, nil); err != ErrFunctionOutOfBounds {
		t.Errorf("Parse() error = %v, want ErrFunctionOutOfBounds", err)
	}
}
