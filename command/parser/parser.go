/*
 * mipsrecomp - console command parser.
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

// Package parser implements the interactive console's command
// dispatch: abbreviation matching against a fixed command table, each
// command given the remainder of the line to parse for its own
// arguments, in the same shape as the teacher's device-command
// parser.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/n64recomp/mipsrecomp/rcontext"
	"github.com/n64recomp/mipsrecomp/util/hex"
)

type cmd struct {
	name    string // Command name.
	min     int    // Minimum match size.
	process func(*cmdLine, *rcontext.Context) (bool, error)
}

type cmdLine struct {
	line string // Current command.
	pos  int    // Position in line.
}

var cmdList = []cmd{
	{name: "sections", min: 1, process: sections},
	{name: "functions", min: 1, process: functions},
	{name: "symbol", min: 1, process: symbol},
	{name: "dump", min: 1, process: dump},
	{name: "quit", min: 1, process: quit},
}

// ProcessCommand executes a single console command line against ctx.
func ProcessCommand(commandLine string, ctx *rcontext.Context) (bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	match := matchList(name)
	if len(match) == 0 {
		return false, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return false, errors.New("ambiguous command: " + name)
	}
	return match[0].process(&line, ctx)
}

// CompleteCmd completes a command name during line editing.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	if !line.isEOL() {
		return nil
	}

	matches := make([]string, 0, len(cmdList))
	for _, m := range matchList(name) {
		matches = append(matches, m.name)
	}
	return matches
}

func matchCommand(match cmd, name string) bool {
	if len(name) < match.min || len(name) > len(match.name) {
		return false
	}
	return match.name[:len(name)] == name
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var match []cmd
	for _, m := range cmdList {
		if matchCommand(m, name) {
			match = append(match, m)
		}
	}
	return match
}

func (line *cmdLine) skipSpace() {
	for line.pos < len(line.line) && unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
}

func (line *cmdLine) isEOL() bool {
	line.skipSpace()
	return line.pos >= len(line.line)
}

// getWord returns the next whitespace-delimited token, lower-cased.
func (line *cmdLine) getWord() string {
	line.skipSpace()
	start := line.pos
	for line.pos < len(line.line) && !unicode.IsSpace(rune(line.line[line.pos])) {
		line.pos++
	}
	return strings.ToLower(line.line[start:line.pos])
}

// rest returns everything left on the line, untouched.
func (line *cmdLine) rest() string {
	line.skipSpace()
	return line.line[line.pos:]
}

func sections(_ *cmdLine, ctx *rcontext.Context) (bool, error) {
	for i, s := range ctx.Sections {
		fmt.Printf("%3d  %-16s rom=0x%08X vram=0x%08X size=0x%08X exec=%v reloc=%v\n",
			i, s.Name, s.RomOffset, s.Vram, s.Size, s.Executable, s.Relocatable)
	}
	return false, nil
}

func functions(line *cmdLine, ctx *rcontext.Context) (bool, error) {
	name := line.getWord()
	if name == "" {
		for i, f := range ctx.Functions {
			fmt.Printf("%4d  %-24s vram=0x%08X words=%d\n", i, f.Name, f.Vram, len(f.Words))
		}
		return false, nil
	}

	sectionIndex := -1
	for i, s := range ctx.Sections {
		if strings.EqualFold(s.Name, name) {
			sectionIndex = i
			break
		}
	}
	if sectionIndex < 0 {
		return false, fmt.Errorf("no such section: %s", name)
	}
	for _, idx := range ctx.FunctionsInSection(sectionIndex) {
		f := ctx.Functions[idx]
		fmt.Printf("%4d  %-24s vram=0x%08X words=%d\n", idx, f.Name, f.Vram, len(f.Words))
	}
	return false, nil
}

func symbol(line *cmdLine, ctx *rcontext.Context) (bool, error) {
	name := line.rest()
	if name == "" {
		return false, errors.New("symbol requires a name")
	}
	if idx, ok := ctx.FunctionByName(name); ok {
		f := ctx.Functions[idx]
		fmt.Printf("function %s: index=%d vram=0x%08X section=%d\n", f.Name, idx, f.Vram, f.SectionIndex)
		return false, nil
	}
	if idx, ok := ctx.ReferenceSymbolByName(name); ok {
		s := ctx.ReferenceSymbols[idx]
		fmt.Printf("reference symbol %s: index=%d section=%d offset=0x%08X function=%v\n",
			s.Name, idx, s.SectionIndex, s.SectionOffset, s.IsFunction)
		return false, nil
	}
	return false, fmt.Errorf("unknown symbol: %s", name)
}

func dump(line *cmdLine, ctx *rcontext.Context) (bool, error) {
	name := line.rest()
	if name == "" {
		return false, errors.New("dump requires a function name")
	}
	idx, ok := ctx.FunctionByName(name)
	if !ok {
		return false, fmt.Errorf("unknown function: %s", name)
	}
	f := ctx.Functions[idx]

	var b strings.Builder
	fmt.Fprintf(&b, "%s  vram=0x%08X rom=0x%08X words=%d\n", f.Name, f.Vram, f.Rom, len(f.Words))
	for i := 0; i < len(f.Words); i += 4 {
		end := min(i+4, len(f.Words))
		fmt.Fprintf(&b, "  0x%08X: ", f.Vram+uint32(i)*4)
		hex.FormatWord(&b, f.Words[i:end])
		b.WriteByte('\n')
	}
	fmt.Print(b.String())
	return false, nil
}

func quit(_ *cmdLine, _ *rcontext.Context) (bool, error) {
	return true, nil
}
