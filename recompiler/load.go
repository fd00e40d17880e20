/*
 * mipsrecomp - builds a Context from a parsed symbol table, raw ROM
 * bytes and a build configuration.
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
	"fmt"
	"slices"

	"github.com/n64recomp/mipsrecomp/config/buildconfig"
	"github.com/n64recomp/mipsrecomp/config/symfile"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// LoadContext assembles a Context out of a textual symbol table, the
// raw ROM bytes it describes, and a build configuration's patches,
// hooks, manual functions, renames, stubs and size overrides.
func LoadContext(table *symfile.SymbolTable, rom []byte, cfg *buildconfig.Config) (*rcontext.Context, error) {
	ctx := rcontext.New()
	ctx.RomBytes = rom

	for _, s := range table.Sections {
		ctx.AddSection(rcontext.Section{
			Name:            s.Name,
			RomOffset:       s.Rom,
			Vram:            s.Vram,
			Size:            s.Size,
			Executable:      true,
			Relocatable:     slices.Contains(cfg.RelocatableSections, s.Name),
			BssSectionIndex: -1,
		})
	}

	for secIdx, s := range table.Sections {
		for _, f := range s.Funcs {
			name := f.Name
			if renamed, ok := cfg.Renames[name]; ok {
				name = renamed
			}
			size := f.Size
			if override, ok := cfg.SizeOverrides[f.Name]; ok {
				size = override
			}
			if size%4 != 0 {
				return nil, fmt.Errorf("recompiler: function %s size %d not divisible by 4", name, size)
			}

			romOff := s.Rom + (f.Vram - s.Vram)
			words, err := decodeWords(rom, romOff, size/4)
			if err != nil {
				return nil, fmt.Errorf("recompiler: function %s: %w", name, err)
			}

			fn := rcontext.Function{
				Name:         name,
				Vram:         f.Vram,
				Rom:          romOff,
				Words:        words,
				SectionIndex: secIdx,
				Stubbed:      slices.Contains(cfg.Stubs, f.Name),
			}
			ctx.AddFunction(fn)
		}
	}

	for secIdx, s := range table.Sections {
		for _, r := range s.Relocs {
			targetSection, targetOffset, err := resolveRelocTarget(ctx, r.TargetVram)
			if err != nil {
				return nil, fmt.Errorf("recompiler: reloc at vram=0x%08X: %w", r.Vram, err)
			}
			relocType := rcontext.RHi16
			if r.Type == "R_MIPS_LO16" {
				relocType = rcontext.RLo16
			}
			sec := &ctx.Sections[secIdx]
			sec.Relocs = append(sec.Relocs, rcontext.Reloc{
				Address:             r.Vram,
				TargetSection:       targetSection,
				TargetSectionOffset: targetOffset,
				Type:                relocType,
			})
		}
	}

	for _, manual := range cfg.ManualFunctions {
		secIdx := -1
		for i, s := range ctx.Sections {
			if s.Name == manual.Section {
				secIdx = i
				break
			}
		}
		if secIdx < 0 {
			return nil, fmt.Errorf("recompiler: manual function %s: unknown section %s", manual.Name, manual.Section)
		}
		if manual.Size%4 != 0 {
			return nil, fmt.Errorf("recompiler: manual function %s size %d not divisible by 4", manual.Name, manual.Size)
		}
		sec := ctx.Sections[secIdx]
		romOff := sec.RomOffset + (manual.Vram - sec.Vram)
		words, err := decodeWords(rom, romOff, manual.Size/4)
		if err != nil {
			return nil, fmt.Errorf("recompiler: manual function %s: %w", manual.Name, err)
		}
		ctx.AddFunction(rcontext.Function{
			Name: manual.Name, Vram: manual.Vram, Rom: romOff,
			Words: words, SectionIndex: secIdx,
		})
	}

	for _, p := range cfg.Patches {
		idx, ok := ctx.FunctionByName(p.FuncName)
		if !ok {
			return nil, fmt.Errorf("recompiler: patch: unknown function %s", p.FuncName)
		}
		fn := &ctx.Functions[idx]
		wordIdx := (p.Vram - fn.Vram) / 4
		if int(wordIdx) >= len(fn.Words) {
			return nil, fmt.Errorf("recompiler: patch: vram 0x%08X outside function %s", p.Vram, p.FuncName)
		}
		fn.Words[wordIdx] = p.Value
	}

	for _, h := range cfg.Hooks {
		idx, ok := ctx.FunctionByName(h.FuncName)
		if !ok {
			return nil, fmt.Errorf("recompiler: hook: unknown function %s", h.FuncName)
		}
		fn := &ctx.Functions[idx]
		wordIdx := int((h.BeforeVram - fn.Vram) / 4)
		if wordIdx >= len(fn.Words) {
			return nil, fmt.Errorf("recompiler: hook: vram 0x%08X outside function %s", h.BeforeVram, h.FuncName)
		}
		if fn.Hooks == nil {
			fn.Hooks = make(rcontext.HookText)
		}
		fn.Hooks[wordIdx] = h.Text
	}

	return ctx, nil
}

func decodeWords(rom []byte, offset uint32, count uint32) ([]uint32, error) {
	end := uint64(offset) + uint64(count)*4
	if end > uint64(len(rom)) {
		return nil, fmt.Errorf("rom offset 0x%08X+%d exceeds image size %d", offset, count*4, len(rom))
	}
	words := make([]uint32, count)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(rom[offset+uint32(i)*4:])
	}
	return words, nil
}

func resolveRelocTarget(ctx *rcontext.Context, targetVram uint32) (uint16, uint32, error) {
	for i, s := range ctx.Sections {
		if targetVram >= s.Vram && targetVram < s.Vram+s.Size {
			return uint16(i), targetVram - s.Vram, nil
		}
	}
	return 0, 0, fmt.Errorf("target vram 0x%08X is outside every known section", targetVram)
}
