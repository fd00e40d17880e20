/*
 * mipsrecomp - mod symbol file codec.
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

// Package modsym reads and writes the recompiler's mod symbol file
// format: a little-endian binary encoding of a rcontext.Context's
// sections, functions, relocs and dependency/import/event metadata,
// with variable-length names packed into a single padded string-data
// blob referenced by (start, len) pairs.
package modsym

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/n64recomp/mipsrecomp/rcontext"
)

var magic = [8]byte{'N', '6', '4', 'R', 'S', 'Y', 'M', 'S'}

const version1 = 1

// Errors returned by Parse.
var (
	ErrNotASymbolFile           = errors.New("modsym: not a symbol file")
	ErrUnknownSymbolFileVersion = errors.New("modsym: unknown symbol file version")
	ErrCorruptSymbolFile        = errors.New("modsym: corrupt symbol file")
	ErrFunctionOutOfBounds      = errors.New("modsym: function extends past binary")
)

// Section-self flag and special section-vrom sentinels, matching the
// wire format (not rcontext's in-memory SectionImport/SectionEvent
// values, which use a different numeric range).
const (
	sectionSelfVromFlag uint32 = 0x80000000
	sectionImportVrom   uint32 = 0xFFFFFFFE
	sectionEventVrom    uint32 = 0xFFFFFFFD
)

type fileHeader struct {
	Magic   [8]byte
	Version uint32
}

type fileSubHeaderV1 struct {
	NumSections         uint32
	NumDependencies     uint32
	NumImports          uint32
	NumDependencyEvents uint32
	NumReplacements     uint32
	NumExports          uint32
	NumCallbacks        uint32
	NumProvidedEvents   uint32
	StringDataSize      uint32
}

type sectionHeaderV1 struct {
	Flags      uint32
	FileOffset uint32
	Vram       uint32
	RomSize    uint32
	BssSize    uint32
	NumFuncs   uint32
	NumRelocs  uint32
}

type funcV1 struct {
	SectionOffset uint32
	Size          uint32
}

type relocV1 struct {
	SectionOffset               uint32
	Type                        uint32
	TargetSectionOffsetOrIndex  uint32
	TargetSectionVrom           uint32
}

type dependencyV1 struct {
	MajorVersion uint8
	MinorVersion uint8
	PatchVersion uint8
	Reserved     uint8
	ModIdStart   uint32
	ModIdSize    uint32
}

type importV1 struct {
	NameStart  uint32
	NameSize   uint32
	Dependency uint32
}

type dependencyEventV1 struct {
	NameStart  uint32
	NameSize   uint32
	Dependency uint32
}

type replacementV1 struct {
	FuncIndex           uint32
	OriginalSectionVrom uint32
	OriginalVram        uint32
	Flags               uint32
}

const replacementFlagForce uint32 = 0x1

type exportV1 struct {
	FuncIndex uint32
	NameStart uint32
	NameSize  uint32
}

type callbackV1 struct {
	DependencyEventIndex uint32
	FunctionIndex        uint32
}

type eventV1 struct {
	NameStart uint32
	NameSize  uint32
}

func roundUp4(v uint32) uint32 { return (v + 3) &^ 3 }

// Parse decodes a mod symbol file's structural metadata into a fresh
// rcontext.Context and fills in each function's Words by reading them
// out of binary (the mod's associated code blob) at the computed ROM
// offsets. sectionsByVrom resolves a reloc's target section when the
// wire format names it by the host image's original ROM offset rather
// than a local section index.
func Parse(data []byte, binaryBlob []byte, sectionsByVrom map[uint32]uint16) (*rcontext.Context, error) {
	r := bytes.NewReader(data)

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, ErrNotASymbolFile
	}
	if hdr.Magic != magic {
		return nil, ErrNotASymbolFile
	}

	switch hdr.Version {
	case version1:
		ctx, err := parseV1(r, sectionsByVrom)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSymbolFile, err)
		}
		if err := fillFunctionWords(ctx, binaryBlob); err != nil {
			return nil, err
		}
		return ctx, nil
	default:
		return nil, ErrUnknownSymbolFileVersion
	}
}

func fillFunctionWords(ctx *rcontext.Context, binaryBlob []byte) error {
	for i := range ctx.Functions {
		f := &ctx.Functions[i]
		end := int(f.Rom) + len(f.Words)*4
		if end > len(binaryBlob) {
			return ErrFunctionOutOfBounds
		}
		for w := range f.Words {
			off := int(f.Rom) + w*4
			f.Words[w] = binary.BigEndian.Uint32(binaryBlob[off : off+4])
		}
	}
	return nil
}

func parseV1(r *bytes.Reader, sectionsByVrom map[uint32]uint16) (*rcontext.Context, error) {
	var sub fileSubHeaderV1
	if err := binary.Read(r, binary.LittleEndian, &sub); err != nil {
		return nil, fmt.Errorf("reading sub-header: %w", err)
	}
	if sub.StringDataSize&0b11 != 0 {
		return nil, fmt.Errorf("string data size %d is not a multiple of 4", sub.StringDataSize)
	}

	strings := make([]byte, sub.StringDataSize)
	if _, err := readFull(r, strings); err != nil {
		return nil, fmt.Errorf("reading string data: %w", err)
	}
	str := func(start, size uint32) (string, error) {
		if uint64(start)+uint64(size) > uint64(len(strings)) {
			return "", fmt.Errorf("string (start %d, size %d) out of range of %d byte blob", start, size, len(strings))
		}
		return string(strings[start : start+size]), nil
	}

	ctx := rcontext.New()

	for s := uint32(0); s < sub.NumSections; s++ {
		var sh sectionHeaderV1
		if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
			return nil, fmt.Errorf("reading section %d header: %w", s, err)
		}
		section := rcontext.Section{
			Name:        fmt.Sprintf("mod_section_%d", s),
			RomOffset:   sh.FileOffset,
			Vram:        sh.Vram,
			Size:        sh.RomSize,
			BssSize:     sh.BssSize,
			Relocatable: true,
		}
		sectionIndex := ctx.AddSection(section)

		funcs := make([]funcV1, sh.NumFuncs)
		for i := range funcs {
			if err := binary.Read(r, binary.LittleEndian, &funcs[i]); err != nil {
				return nil, fmt.Errorf("reading section %d func %d: %w", s, i, err)
			}
		}
		relocs := make([]relocV1, sh.NumRelocs)
		for i := range relocs {
			if err := binary.Read(r, binary.LittleEndian, &relocs[i]); err != nil {
				return nil, fmt.Errorf("reading section %d reloc %d: %w", s, i, err)
			}
		}

		for i, fv := range funcs {
			romAddr := sh.FileOffset + fv.SectionOffset
			if romAddr&0b11 != 0 {
				return nil, fmt.Errorf("function %d in section %d file offset is not 4-byte aligned", i, s)
			}
			if fv.Size&0b11 != 0 {
				return nil, fmt.Errorf("function %d in section %d size is not 4-byte aligned", i, s)
			}
			ctx.AddFunction(rcontext.Function{
				Vram:         sh.Vram + fv.SectionOffset,
				Rom:          romAddr,
				Words:        make([]uint32, fv.Size/4),
				SectionIndex: sectionIndex,
			})
		}

		decoded := make([]rcontext.Reloc, sh.NumRelocs)
		for i, rv := range relocs {
			var (
				targetSection       uint16
				targetSectionOffset uint32
				symbolIndex         int
				isReference         bool
			)
			switch {
			case rv.TargetSectionVrom == sectionImportVrom:
				targetSection = rcontext.SectionImport
				symbolIndex = int(rv.TargetSectionOffsetOrIndex)
				isReference = true
			case rv.TargetSectionVrom == sectionEventVrom:
				targetSection = rcontext.SectionEvent
				symbolIndex = int(rv.TargetSectionOffsetOrIndex)
				isReference = true
			case rv.TargetSectionVrom&sectionSelfVromFlag != 0:
				targetSection = uint16(rv.TargetSectionVrom &^ sectionSelfVromFlag)
				targetSectionOffset = rv.TargetSectionOffsetOrIndex
			default:
				resolved, ok := sectionsByVrom[rv.TargetSectionVrom]
				if !ok {
					return nil, fmt.Errorf("reloc %d in section %d targets unknown host vrom %#x", i, s, rv.TargetSectionVrom)
				}
				targetSection = resolved
				targetSectionOffset = rv.TargetSectionOffsetOrIndex
				isReference = true
			}
			decoded[i] = rcontext.Reloc{
				Address:             sh.Vram + rv.SectionOffset,
				Type:                rv.Type,
				TargetSection:       targetSection,
				TargetSectionOffset: targetSectionOffset,
				SymbolIndex:         symbolIndex,
				ReferenceSymbol:     isReference,
			}
		}
		ctx.Sections[sectionIndex].Relocs = decoded
	}

	deps := make([]dependencyV1, sub.NumDependencies)
	for i := range deps {
		if err := binary.Read(r, binary.LittleEndian, &deps[i]); err != nil {
			return nil, fmt.Errorf("reading dependency %d: %w", i, err)
		}
	}
	for i, dv := range deps {
		name, err := str(dv.ModIdStart, dv.ModIdSize)
		if err != nil {
			return nil, fmt.Errorf("dependency %d name: %w", i, err)
		}
		if _, err := ctx.AddDependency(rcontext.Dependency{
			Id:           name,
			VersionMajor: uint16(dv.MajorVersion),
			VersionMinor: uint16(dv.MinorVersion),
			VersionPatch: uint16(dv.PatchVersion),
		}); err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
	}

	imps := make([]importV1, sub.NumImports)
	for i := range imps {
		if err := binary.Read(r, binary.LittleEndian, &imps[i]); err != nil {
			return nil, fmt.Errorf("reading import %d: %w", i, err)
		}
	}
	for i, iv := range imps {
		name, err := str(iv.NameStart, iv.NameSize)
		if err != nil {
			return nil, fmt.Errorf("import %d name: %w", i, err)
		}
		ctx.AddImport(rcontext.ImportSymbol{Name: name, DependencyIndex: int(iv.Dependency)})
	}

	depEvents := make([]dependencyEventV1, sub.NumDependencyEvents)
	for i := range depEvents {
		if err := binary.Read(r, binary.LittleEndian, &depEvents[i]); err != nil {
			return nil, fmt.Errorf("reading dependency event %d: %w", i, err)
		}
	}
	for i, dev := range depEvents {
		name, err := str(dev.NameStart, dev.NameSize)
		if err != nil {
			return nil, fmt.Errorf("dependency event %d name: %w", i, err)
		}
		if _, err := ctx.AddDependencyEvent(int(dev.Dependency), name); err != nil {
			return nil, fmt.Errorf("dependency event %d: %w", i, err)
		}
	}

	repls := make([]replacementV1, sub.NumReplacements)
	for i := range repls {
		if err := binary.Read(r, binary.LittleEndian, &repls[i]); err != nil {
			return nil, fmt.Errorf("reading replacement %d: %w", i, err)
		}
	}
	for _, rv := range repls {
		ctx.AddReplacement(rcontext.FunctionReplacement{
			FunctionIndex: int(rv.FuncIndex),
			OriginalVrom:  rv.OriginalSectionVrom,
			OriginalVram:  rv.OriginalVram,
			Force:         rv.Flags&replacementFlagForce != 0,
		})
	}

	exports := make([]exportV1, sub.NumExports)
	for i := range exports {
		if err := binary.Read(r, binary.LittleEndian, &exports[i]); err != nil {
			return nil, fmt.Errorf("reading export %d: %w", i, err)
		}
	}
	for _, ev := range exports {
		if int(ev.FuncIndex) >= len(ctx.Functions) {
			return nil, fmt.Errorf("export references function %d, but only %d exist", ev.FuncIndex, len(ctx.Functions))
		}
		ctx.AddExport(int(ev.FuncIndex))
	}

	cbs := make([]callbackV1, sub.NumCallbacks)
	for i := range cbs {
		if err := binary.Read(r, binary.LittleEndian, &cbs[i]); err != nil {
			return nil, fmt.Errorf("reading callback %d: %w", i, err)
		}
	}
	for i, cb := range cbs {
		if _, err := ctx.AddCallback(int(cb.DependencyEventIndex), int(cb.FunctionIndex)); err != nil {
			return nil, fmt.Errorf("callback %d: %w", i, err)
		}
	}

	events := make([]eventV1, sub.NumProvidedEvents)
	for i := range events {
		if err := binary.Read(r, binary.LittleEndian, &events[i]); err != nil {
			return nil, fmt.Errorf("reading event %d: %w", i, err)
		}
	}
	for i, ev := range events {
		name, err := str(ev.NameStart, ev.NameSize)
		if err != nil {
			return nil, fmt.Errorf("event %d name: %w", i, err)
		}
		ctx.AddEventSymbol(rcontext.EventSymbol{Name: name})
	}

	return ctx, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, fmt.Errorf("short read")
		}
	}
	return n, nil
}
