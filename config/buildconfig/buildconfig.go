/*
 * mipsrecomp - build configuration parser.
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

// Package buildconfig parses a recompile job's build configuration:
// input/output paths, the entrypoint, relocatable section names,
// per-function stubs and renames, single-instruction patches, hooks,
// manual function definitions and size overrides. Same hand-rolled
// `key = value` / bracketed-block grammar as config/symfile, since no
// TOML library is available anywhere in the example corpus.
package buildconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Patch overwrites a single instruction word at vram within func_name
// with value.
type Patch struct {
	FuncName string
	Vram     uint32
	Value    uint32
}

// Hook injects source text immediately before the instruction at
// before_vram within func_name.
type Hook struct {
	FuncName   string
	BeforeVram uint32
	Text       string
}

// ManualFunction declares a function the analyzer would not otherwise
// discover on its own.
type ManualFunction struct {
	Name    string
	Section string
	Vram    uint32
	Size    uint32
}

// Config is a fully parsed build configuration.
type Config struct {
	InputPath  string // Raw ROM/ELF image.
	SymbolFile string // Textual symbol table (config/symfile), paired with InputPath.
	OutputPath string
	Entrypoint uint32

	RelocatableSections []string
	Stubs               []string
	Renames             map[string]string
	SizeOverrides       map[string]uint32

	Patches         []Patch
	Hooks           []Hook
	ManualFunctions []ManualFunction
}

// ParseFile reads and parses the build configuration at path.
func ParseFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

const (
	blockNone = iota
	blockPatch
	blockHook
	blockManualFunction
)

// Parse reads a build configuration from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{
		Renames:       make(map[string]string),
		SizeOverrides: make(map[string]uint32),
	}
	scanner := bufio.NewScanner(r)

	block := blockNone
	var curPatch Patch
	var curHook Hook
	var curManual ManualFunction
	lineNumber := 0

	flush := func() {
		switch block {
		case blockPatch:
			cfg.Patches = append(cfg.Patches, curPatch)
		case blockHook:
			cfg.Hooks = append(cfg.Hooks, curHook)
		case blockManualFunction:
			cfg.ManualFunctions = append(cfg.ManualFunctions, curManual)
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
			flush()
			switch strings.ToLower(strings.Trim(line, "[]")) {
			case "patch":
				curPatch = Patch{}
				block = blockPatch
			case "hook":
				curHook = Hook{}
				block = blockHook
			case "manual_function":
				curManual = ManualFunction{}
				block = blockManualFunction
			default:
				return nil, fmt.Errorf("buildconfig:%d: unknown block %q", lineNumber, line)
			}
			continue
		}

		key, value, err := splitKeyValue(line)
		if err != nil {
			return nil, fmt.Errorf("buildconfig:%d: %w", lineNumber, err)
		}

		switch block {
		case blockNone:
			if err := setTopLevel(cfg, key, value); err != nil {
				return nil, fmt.Errorf("buildconfig:%d: %w", lineNumber, err)
			}
		case blockPatch:
			switch key {
			case "func_name":
				curPatch.FuncName = value
			case "vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("buildconfig:%d: vram: %w", lineNumber, err)
				}
				curPatch.Vram = v
			case "value":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("buildconfig:%d: value: %w", lineNumber, err)
				}
				curPatch.Value = v
			default:
				return nil, fmt.Errorf("buildconfig:%d: unknown patch field %q", lineNumber, key)
			}
		case blockHook:
			switch key {
			case "func_name":
				curHook.FuncName = value
			case "before_vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("buildconfig:%d: before_vram: %w", lineNumber, err)
				}
				curHook.BeforeVram = v
			case "text":
				curHook.Text = value
			default:
				return nil, fmt.Errorf("buildconfig:%d: unknown hook field %q", lineNumber, key)
			}
		case blockManualFunction:
			switch key {
			case "name":
				curManual.Name = value
			case "section":
				curManual.Section = value
			case "vram":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("buildconfig:%d: vram: %w", lineNumber, err)
				}
				curManual.Vram = v
			case "size":
				v, err := parseU32(value)
				if err != nil {
					return nil, fmt.Errorf("buildconfig:%d: size: %w", lineNumber, err)
				}
				curManual.Size = v
			default:
				return nil, fmt.Errorf("buildconfig:%d: unknown manual_function field %q", lineNumber, key)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return cfg, nil
}

func setTopLevel(cfg *Config, key, value string) error {
	switch key {
	case "input_path":
		cfg.InputPath = value
	case "symbol_file":
		cfg.SymbolFile = value
	case "output_path":
		cfg.OutputPath = value
	case "entrypoint":
		v, err := parseU32(value)
		if err != nil {
			return fmt.Errorf("entrypoint: %w", err)
		}
		cfg.Entrypoint = v
	case "relocatable_sections":
		cfg.RelocatableSections = append(cfg.RelocatableSections, splitList(value)...)
	case "stubs":
		cfg.Stubs = append(cfg.Stubs, splitList(value)...)
	case "rename":
		from, to, ok := strings.Cut(value, "->")
		if !ok {
			return fmt.Errorf("rename: expected \"from -> to\", got %q", value)
		}
		cfg.Renames[strings.TrimSpace(from)] = strings.TrimSpace(to)
	case "size_override":
		name, size, ok := strings.Cut(value, "=")
		if !ok {
			return fmt.Errorf("size_override: expected \"name = size\", got %q", value)
		}
		v, err := parseU32(strings.TrimSpace(size))
		if err != nil {
			return fmt.Errorf("size_override: %w", err)
		}
		cfg.SizeOverrides[strings.TrimSpace(name)] = v
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
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
