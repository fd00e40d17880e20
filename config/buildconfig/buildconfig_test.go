/*
 * mipsrecomp - build configuration parser test cases.
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

package buildconfig

import (
	"strings"
	"testing"
)

const sample = `
# top-level job description
input_path = "game.z64"
symbol_file = "game.syms"
output_path = "build/src"
entrypoint = 0x80000400
relocatable_sections = boot, ovl_menu, ovl_battle
stubs = osInitialize, __checkHardware
rename = func_80001234 -> player_update
size_override = func_80005678 = 0x120

[patch]
func_name = func_80001234
vram = 0x80001240
value = 0x00000000

[hook]
func_name = func_80001234
before_vram = 0x80001250
text = "ctx.R[4] = 1"

[manual_function]
name = hidden_helper
section = boot
vram = 0x80002000
size = 0x40
`

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.InputPath != "game.z64" || cfg.SymbolFile != "game.syms" || cfg.OutputPath != "build/src" || cfg.Entrypoint != 0x80000400 {
		t.Errorf("unexpected top-level fields: %+v", cfg)
	}
	if len(cfg.RelocatableSections) != 3 || cfg.RelocatableSections[1] != "ovl_menu" {
		t.Errorf("unexpected relocatable sections: %v", cfg.RelocatableSections)
	}
	if len(cfg.Stubs) != 2 {
		t.Errorf("unexpected stubs: %v", cfg.Stubs)
	}
	if cfg.Renames["func_80001234"] != "player_update" {
		t.Errorf("unexpected rename: %v", cfg.Renames)
	}
	if cfg.SizeOverrides["func_80005678"] != 0x120 {
		t.Errorf("unexpected size override: %v", cfg.SizeOverrides)
	}
	if len(cfg.Patches) != 1 || cfg.Patches[0].Vram != 0x80001240 {
		t.Errorf("unexpected patches: %+v", cfg.Patches)
	}
	if len(cfg.Hooks) != 1 || cfg.Hooks[0].Text != "ctx.R[4] = 1" {
		t.Errorf("unexpected hooks: %+v", cfg.Hooks)
	}
	if len(cfg.ManualFunctions) != 1 || cfg.ManualFunctions[0].Name != "hidden_helper" {
		t.Errorf("unexpected manual functions: %+v", cfg.ManualFunctions)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	bad := `bogus_field = 1`
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for an unknown top-level field")
	}
}

func TestParseRejectsMalformedRename(t *testing.T) {
	bad := `rename = no_arrow_here`
	if _, err := Parse(strings.NewReader(bad)); err == nil {
		t.Fatal("expected an error for a rename without \"->\"")
	}
}
