/*
 * mipsrecomp - textual symbol table parser.
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

// Package symfile parses the textual symbol table that stands in for
// a compiled ELF: sections with their rom/vram/size, each followed by
// the functions and relocs it owns. The grammar is the same hand-
// rolled line-oriented `key = value` plus bracketed-block style the
// teacher's config/configparser uses for device option lines, adapted
// here to a flat sequence of repeatable blocks rather than a single
// device-per-line grammar, since no TOML library is available
// anywhere in the example corpus.
package symfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Reloc is a single relocation entry attached to the section that
// owns the patched instruction.
type Reloc struct {
	Vram       uint32
	TargetVram uint32
	Type       string // "R_MIPS_HI16" or "R_MIPS_LO16"
}

// Function is a named, sized span within its owning section.
type Function struct {
	Name string
	Vram uint32
	Size uint32
}

// Section is a contiguous range of the ROM image.
type Section struct {
	Name   string
	Rom    uint32
	Vram   uint32
	Size   uint32
	Funcs  []Function
	Relocs []Reloc
}

// SymbolTable is every section recovered from a symbol file, in file
// order.
type SymbolTable struct {
	Sections []Section
}

// ParseFile reads and parses the symbol table at path.
func ParseFile(path string) (*SymbolTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

const (
	blockNone = iota
	blockSection
	blockFunction
	blockReloc
)

// Parse reads a symbol table from r.
func Parse(r io.Reader) (*SymbolTable, error) {
	table := &SymbolTable{}
	scanner := bufio.NewScanner(r)

	block := blockNone
	var curFunc Function
	var curReloc Reloc
	lineNumber := 0

	flushFunc := func() {
		if block == blockFunction {
			s := &table.Sections[len(table.Sections)-1]
			s.Funcs = append(s.Funcs, curFunc)
		}
	}
	flushReloc := func() {
		if block == blockReloc {
			s := &table.Sections[len(table.Sections)-1]
			s.Relocs = append(s.Relocs, curReloc)
		}
	}

	for scanner.Scan() {
		lineNumber++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			flushFunc()
			flushReloc()
			switch strings.ToLower(strings.Trim(line, "[]")) {
			case "section":
				table.Sections = append(table.Sections, Section{})
				block = blockSection
			case "function":
				if len(table.Sections) == 0 {
					return nil, fmt.Errorf("symfile:%d: function block before any section", lineNumber)
				}
				curFunc = Function{}
				block = blockFunction
			case "reloc":
				if len(table.Sections) == 0 {
					return nil, fmt.Errorf("symfile:%d: reloc block before any section", lineNumber)
				}
				curReloc = Reloc{}
				block = blockReloc
			default:
				return nil, fmt.Errorf("symfile:%d: unknown block %q", lineNumber, line)
			}
			continue
		}

		key, value, err := splitKeyValue(line)
		if err != nil {
			return nil, fmt.Errorf("symfile:%d: %w", lineNumber, err)
		}

		switch block {
		case blockSection:
			s := &table.Sections[len(table.Sections)-1]
			switch key {
			case "name":
				s.Name = value
			case "rom":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: rom: %w", lineNumber, err)
				}
				if v%4 != 0 {
					return nil, fmt.Errorf("symfile:%d: rom 0x%X is not word-aligned", lineNumber, v)
				}
				s.Rom = v
			case "vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: vram: %w", lineNumber, err)
				}
				if v%4 != 0 {
					return nil, fmt.Errorf("symfile:%d: vram 0x%X is not word-aligned", lineNumber, v)
				}
				s.Vram = v
			case "size":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: size: %w", lineNumber, err)
				}
				s.Size = v
			default:
				return nil, fmt.Errorf("symfile:%d: unknown section field %q", lineNumber, key)
			}
		case blockFunction:
			switch key {
			case "name":
				curFunc.Name = value
			case "vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: vram: %w", lineNumber, err)
				}
				if v%4 != 0 {
					return nil, fmt.Errorf("symfile:%d: vram 0x%X is not word-aligned", lineNumber, v)
				}
				curFunc.Vram = v
			case "size":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: size: %w", lineNumber, err)
				}
				if v%4 != 0 {
					return nil, fmt.Errorf("symfile:%d: function size %d not divisible by 4", lineNumber, v)
				}
				curFunc.Size = v
			default:
				return nil, fmt.Errorf("symfile:%d: unknown function field %q", lineNumber, key)
			}
		case blockReloc:
			switch key {
			case "vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: vram: %w", lineNumber, err)
				}
				curReloc.Vram = v
			case "target_vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("symfile:%d: target_vram: %w", lineNumber, err)
				}
				curReloc.TargetVram = v
			case "type":
				if value != "R_MIPS_HI16" && value != "R_MIPS_LO16" {
					return nil, fmt.Errorf("symfile:%d: unsupported reloc type %q", lineNumber, value)
				}
				curReloc.Type = value
			default:
				return nil, fmt.Errorf("symfile:%d: unknown reloc field %q", lineNumber, key)
			}
		default:
			return nil, fmt.Errorf("symfile:%d: %q outside any block", lineNumber, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flushFunc()
	flushReloc()
	return table, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

func splitKeyValue(line string) (key, value string, err error) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", fmt.Errorf("expected key = value, got %q", line)
	}
	key = strings.ToLower(strings.TrimSpace(line[:i]))
	value = strings.TrimSpace(line[i+1:])
	value = strings.Trim(value, `"`)
	return key, value, nil
}

func parseU32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
