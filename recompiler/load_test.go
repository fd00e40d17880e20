/*
 * mipsrecomp - Context-loading test cases.
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
	"encoding/binary"
	"testing"

	"github.com/n64recomp/mipsrecomp/config/buildconfig"
	"github.com/n64recomp/mipsrecomp/config/symfile"
)

func wordsToROM(words ...uint32) []byte {
	rom := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(rom[i*4:], w)
	}
	return rom
}

func TestLoadContextBuildsSectionsFunctionsAndRelocs(t *testing.T) {
	rom := wordsToROM(
		encodeR(0x00, 2, 3, 2, 0, 0x21), // addu $v0, $v0, $v1
		encodeR(0x00, 31, 0, 0, 0, 0x08), // jr $ra
		0,
	)
	table := &symfile.SymbolTable{
		Sections: []symfile.Section{
			{
				Name: ".text", Rom: 0, Vram: 0x1000, Size: uint32(len(rom)),
				Funcs: []symfile.Function{{Name: "add_two", Vram: 0x1000, Size: uint32(len(rom))}},
				Relocs: []symfile.Reloc{
					{Vram: 0x1004, TargetVram: 0x1000, Type: "R_MIPS_LO16"},
				},
			},
		},
	}
	cfg := &buildconfig.Config{}

	ctx, err := LoadContext(table, rom, cfg)
	if err != nil {
		t.Fatalf("LoadContext failed: %v", err)
	}
	if len(ctx.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(ctx.Sections))
	}
	if len(ctx.Functions) != 1 || ctx.Functions[0].Name != "add_two" {
		t.Fatalf("expected function add_two, got %+v", ctx.Functions)
	}
	if len(ctx.Sections[0].Relocs) != 1 {
		t.Fatalf("expected 1 reloc, got %d", len(ctx.Sections[0].Relocs))
	}
}

func TestLoadContextAppliesRenameStubAndSizeOverride(t *testing.T) {
	rom := wordsToROM(
		encodeR(0x00, 31, 0, 0, 0, 0x08), // jr $ra
		0,
	)
	table := &symfile.SymbolTable{
		Sections: []symfile.Section{
			{
				Name: ".text", Rom: 0, Vram: 0x1000, Size: uint32(len(rom)),
				Funcs: []symfile.Function{{Name: "orig_name", Vram: 0x1000, Size: uint32(len(rom))}},
			},
		},
	}
	cfg := &buildconfig.Config{
		Renames: map[string]string{"orig_name": "renamed"},
		Stubs:   []string{"orig_name"},
	}

	ctx, err := LoadContext(table, rom, cfg)
	if err != nil {
		t.Fatalf("LoadContext failed: %v", err)
	}
	if ctx.Functions[0].Name != "renamed" {
		t.Errorf("expected renamed function, got %s", ctx.Functions[0].Name)
	}
	if !ctx.Functions[0].Stubbed {
		t.Errorf("expected function to be stubbed")
	}
}

func TestLoadContextRejectsUnalignedFunctionSize(t *testing.T) {
	rom := wordsToROM(0, 0)
	table := &symfile.SymbolTable{
		Sections: []symfile.Section{
			{
				Name: ".text", Rom: 0, Vram: 0x1000, Size: 8,
				Funcs: []symfile.Function{{Name: "odd", Vram: 0x1000, Size: 6}},
			},
		},
	}
	if _, err := LoadContext(table, rom, &buildconfig.Config{}); err == nil {
		t.Errorf("expected an error for a function size not divisible by 4")
	}
}

func TestLoadContextRejectsRelocOutsideEverySection(t *testing.T) {
	rom := wordsToROM(0, 0)
	table := &symfile.SymbolTable{
		Sections: []symfile.Section{
			{
				Name: ".text", Rom: 0, Vram: 0x1000, Size: 8,
				Relocs: []symfile.Reloc{{Vram: 0x1000, TargetVram: 0xDEAD0000, Type: "R_MIPS_HI16"}},
			},
		},
	}
	if _, err := LoadContext(table, rom, &buildconfig.Config{}); err == nil {
		t.Errorf("expected an error for a reloc target outside every section")
	}
}

func TestLoadContextAddsManualFunctionAndAppliesPatch(t *testing.T) {
	rom := wordsToROM(
		encodeR(0x00, 31, 0, 0, 0, 0x08), // jr $ra
		0,
	)
	table := &symfile.SymbolTable{
		Sections: []symfile.Section{
			{Name: ".text", Rom: 0, Vram: 0x1000, Size: uint32(len(rom))},
		},
	}
	cfg := &buildconfig.Config{
		ManualFunctions: []buildconfig.ManualFunction{
			{Name: "manual_fn", Section: ".text", Vram: 0x1000, Size: uint32(len(rom))},
		},
		Patches: []buildconfig.Patch{
			{FuncName: "manual_fn", Vram: 0x1004, Value: 0xDEADBEEF},
		},
	}

	ctx, err := LoadContext(table, rom, cfg)
	if err != nil {
		t.Fatalf("LoadContext failed: %v", err)
	}
	idx, ok := ctx.FunctionByName("manual_fn")
	if !ok {
		t.Fatalf("manual_fn not found")
	}
	if ctx.Functions[idx].Words[1] != 0xDEADBEEF {
		t.Errorf("patch not applied, words = %#x", ctx.Functions[idx].Words)
	}
}
