/*
 * mipsrecomp - mod symbol file codec: serialization.
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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/n64recomp/mipsrecomp/rcontext"
)

// Serialize encodes a context's mod-visible metadata (sections,
// functions, relocs, dependencies, imports, events, replacements,
// exports, callbacks) as a version-1 mod symbol file. The reverse of
// Parse, modulo function word contents, which live in the mod's
// separate binary blob and are not duplicated here.
func Serialize(ctx *rcontext.Context, referenceSectionRom func(sectionIndex uint16) uint32) ([]byte, error) {
	var buf bytes.Buffer

	if err := binary.Write(&buf, binary.LittleEndian, fileHeader{Magic: magic, Version: version1}); err != nil {
		return nil, err
	}

	subHeaderOffset := buf.Len()
	sub := fileSubHeaderV1{
		NumSections:         uint32(len(ctx.Sections)),
		NumDependencies:     uint32(len(ctx.Dependencies)),
		NumImports:          uint32(len(ctx.Imports)),
		NumDependencyEvents: uint32(len(ctx.DependencyEvents())),
		NumReplacements:     uint32(len(ctx.Replacements)),
		NumExports:          uint32(len(ctx.ExportedFuncs)),
		NumCallbacks:        uint32(len(ctx.Callbacks)),
		NumProvidedEvents:   uint32(len(ctx.EventSymbols)),
	}
	if err := binary.Write(&buf, binary.LittleEndian, sub); err != nil {
		return nil, err
	}

	stringsStart := buf.Len()
	put := func(s string) uint32 {
		pos := uint32(buf.Len() - stringsStart)
		buf.WriteString(s)
		return pos
	}

	depNamePos := make([]uint32, len(ctx.Dependencies))
	for i, d := range ctx.Dependencies {
		depNamePos[i] = put(d.Id)
	}
	importNamePos := make([]uint32, len(ctx.Imports))
	for i, imp := range ctx.Imports {
		importNamePos[i] = put(imp.Name)
	}
	depEventNamePos := make([]uint32, len(ctx.DependencyEvents()))
	for i, de := range ctx.DependencyEvents() {
		depEventNamePos[i] = put(de.Name)
	}
	exportNamePos := make([]uint32, len(ctx.ExportedFuncs))
	for i, fnIdx := range ctx.ExportedFuncs {
		exportNamePos[i] = put(ctx.Functions[fnIdx].Name)
	}
	eventNamePos := make([]uint32, len(ctx.EventSymbols))
	for i, ev := range ctx.EventSymbols {
		eventNamePos[i] = put(ev.Name)
	}

	stringsSize := roundUp4(uint32(buf.Len() - stringsStart))
	for uint32(buf.Len()-stringsStart) < stringsSize {
		buf.WriteByte(0)
	}

	const stringDataSizeFieldOffset = 32 // 8 preceding u32 fields in fileSubHeaderV1
	encoded := buf.Bytes()
	binary.LittleEndian.PutUint32(encoded[subHeaderOffset+stringDataSizeFieldOffset:], stringsSize)

	for sectionIndex := range ctx.Sections {
		section := &ctx.Sections[sectionIndex]
		funcIndices := ctx.FunctionsInSection(sectionIndex)

		sh := sectionHeaderV1{
			FileOffset: section.RomOffset,
			Vram:       section.Vram,
			RomSize:    section.Size,
			BssSize:    section.BssSize,
			NumFuncs:   uint32(len(funcIndices)),
			NumRelocs:  uint32(len(section.Relocs)),
		}
		if err := binary.Write(&buf, binary.LittleEndian, sh); err != nil {
			return nil, err
		}

		for _, fi := range funcIndices {
			f := ctx.Functions[fi]
			fv := funcV1{
				SectionOffset: f.Vram - section.Vram,
				Size:          uint32(len(f.Words) * 4),
			}
			if err := binary.Write(&buf, binary.LittleEndian, fv); err != nil {
				return nil, err
			}
		}

		for _, reloc := range section.Relocs {
			var targetVrom, targetOffsetOrIndex uint32
			switch reloc.TargetSection {
			case rcontext.SectionAbsolute:
				return nil, fmt.Errorf("reloc at %#x references an absolute symbol and must be resolved before serialization", reloc.Address)
			case rcontext.SectionImport:
				targetVrom = sectionImportVrom
				targetOffsetOrIndex = uint32(reloc.SymbolIndex)
			case rcontext.SectionEvent:
				targetVrom = sectionEventVrom
				targetOffsetOrIndex = uint32(reloc.SymbolIndex)
			default:
				if reloc.ReferenceSymbol {
					if referenceSectionRom == nil {
						return nil, fmt.Errorf("reloc at %#x references section %d but no referenceSectionRom resolver was supplied", reloc.Address, reloc.TargetSection)
					}
					targetVrom = referenceSectionRom(reloc.TargetSection)
					targetOffsetOrIndex = reloc.TargetSectionOffset
				} else {
					if int(reloc.TargetSection) >= len(ctx.Sections) {
						return nil, fmt.Errorf("reloc at %#x references section %d, but only %d exist", reloc.Address, reloc.TargetSection, len(ctx.Sections))
					}
					targetVrom = sectionSelfVromFlag | uint32(reloc.TargetSection)
					targetOffsetOrIndex = reloc.TargetSectionOffset
				}
			}
			rv := relocV1{
				SectionOffset:              reloc.Address - section.Vram,
				Type:                       reloc.Type,
				TargetSectionOffsetOrIndex: targetOffsetOrIndex,
				TargetSectionVrom:          targetVrom,
			}
			if err := binary.Write(&buf, binary.LittleEndian, rv); err != nil {
				return nil, err
			}
		}
	}

	for i, d := range ctx.Dependencies {
		dv := dependencyV1{
			MajorVersion: uint8(d.VersionMajor),
			MinorVersion: uint8(d.VersionMinor),
			PatchVersion: uint8(d.VersionPatch),
			ModIdStart:   depNamePos[i],
			ModIdSize:    uint32(len(d.Id)),
		}
		if err := binary.Write(&buf, binary.LittleEndian, dv); err != nil {
			return nil, err
		}
	}

	for i, imp := range ctx.Imports {
		iv := importV1{
			NameStart:  importNamePos[i],
			NameSize:   uint32(len(imp.Name)),
			Dependency: uint32(imp.DependencyIndex),
		}
		if err := binary.Write(&buf, binary.LittleEndian, iv); err != nil {
			return nil, err
		}
	}

	for i, de := range ctx.DependencyEvents() {
		dev := dependencyEventV1{
			NameStart:  depEventNamePos[i],
			NameSize:   uint32(len(de.Name)),
			Dependency: uint32(de.DependencyIndex),
		}
		if err := binary.Write(&buf, binary.LittleEndian, dev); err != nil {
			return nil, err
		}
	}

	for _, r := range ctx.Replacements {
		var flags uint32
		if r.Force {
			flags |= replacementFlagForce
		}
		rv := replacementV1{
			FuncIndex:           uint32(r.FunctionIndex),
			OriginalSectionVrom: r.OriginalVrom,
			OriginalVram:        r.OriginalVram,
			Flags:               flags,
		}
		if err := binary.Write(&buf, binary.LittleEndian, rv); err != nil {
			return nil, err
		}
	}

	for i, fnIdx := range ctx.ExportedFuncs {
		ev := exportV1{
			FuncIndex: uint32(fnIdx),
			NameStart: exportNamePos[i],
			NameSize:  uint32(len(ctx.Functions[fnIdx].Name)),
		}
		if err := binary.Write(&buf, binary.LittleEndian, ev); err != nil {
			return nil, err
		}
	}

	for _, cb := range ctx.Callbacks {
		cv := callbackV1{
			DependencyEventIndex: uint32(cb.DependencyEventIndex),
			FunctionIndex:        uint32(cb.FunctionIndex),
		}
		if err := binary.Write(&buf, binary.LittleEndian, cv); err != nil {
			return nil, err
		}
	}

	for i, ev := range ctx.EventSymbols {
		outEv := eventV1{
			NameStart: eventNamePos[i],
			NameSize:  uint32(len(ev.Name)),
		}
		if err := binary.Write(&buf, binary.LittleEndian, outEv); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
