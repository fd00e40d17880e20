/*
 * mipsrecomp - recompiler context: sections, functions, relocs and
 * symbol tables shared across analysis, recompilation and code
 * generation.
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

// Package rcontext holds the recompiler's central arena: sections,
// functions, relocs and the reference/dependency/import/event tables
// that the analyzer, recompiler driver and code generators all share.
// Every cross-reference is a stable int/uint32 index into one of the
// context's slices, never a pointer, so a Context can grow during
// analysis (discovering a static function) and still serialize
// trivially through the modsym codec.
package rcontext

import "fmt"

// Special target-section indices. Reloc.TargetSection and
// ReferenceSymbol.TargetSection may hold one of these instead of a
// real index into Context.Sections.
const (
	SectionAbsolute uint16 = 0xFFFF - iota
	SectionImport
	SectionEvent
)

// Reloc MIPS ELF types honored by the core.
const (
	RMipsNone uint32 = 0
	R26       uint32 = 4
	R32       uint32 = 2
	RHi16     uint32 = 5
	RLo16     uint32 = 6
)

// Reloc describes a single relocation entry owned by a Section.
type Reloc struct {
	Address             uint32
	TargetSection       uint16
	TargetSectionOffset uint32
	SymbolIndex         int
	Type                uint32
	ReferenceSymbol     bool
}

// Section is a contiguous range of the original program.
type Section struct {
	Name            string
	RomOffset       uint32
	Vram            uint32
	Size            uint32
	BssSize         uint32
	Executable      bool
	Relocatable     bool
	HasMips32Relocs bool
	BssSectionIndex int // -1 if none
	Relocs          []Reloc
	FunctionAddrs   []uint32

	// GpRamAddr is the $gp-relative base address used by position-
	// independent code in this section (loads through $gp index a
	// global offset table relative to it). HasGpRamAddr is false for
	// sections that don't use PIC addressing.
	GpRamAddr    uint32
	HasGpRamAddr bool
}

// RomAbsent marks a Section.RomOffset that has no backing ROM bytes.
const RomAbsent uint32 = 0xFFFFFFFF

// HookText maps an instruction index within a Function's Words to
// source text injected immediately before that instruction.
type HookText map[int]string

// Function is a decoded span of MIPS instructions.
type Function struct {
	Name         string
	Vram         uint32
	Rom          uint32
	Words        []uint32
	SectionIndex int
	Ignored      bool
	Reimplemented bool
	Stubbed      bool
	Hooks        HookText
}

// ReferenceSymbol is a symbol defined by a host image that a patch or
// mod can refer to.
type ReferenceSymbol struct {
	Name          string
	SectionIndex  uint16
	SectionOffset uint32
	IsFunction    bool
}

// Dependency identifies another mod by id and semantic version.
type Dependency struct {
	Id                 string
	VersionMajor       uint16
	VersionMinor       uint16
	VersionPatch       uint16
	eventIndexByName   map[string]int
}

// ImportSymbol is a function symbol imported from a named dependency.
type ImportSymbol struct {
	Name             string
	DependencyIndex  int
}

// DependencyEvent is a named event defined by a dependency.
type DependencyEvent struct {
	DependencyIndex int
	Name            string
}

// Callback binds a dependency event to a local function.
type Callback struct {
	DependencyEventIndex int
	FunctionIndex        int
}

// EventSymbol is an event defined by the current mod.
type EventSymbol struct {
	Name string
}

// FunctionReplacement declares that a local function should replace a
// host function at the given original ROM location.
type FunctionReplacement struct {
	FunctionIndex int
	OriginalVrom  uint32
	OriginalVram  uint32
	Force         bool
}

// Context is the recompiler's aggregate arena.
type Context struct {
	Sections []Section
	Functions []Function

	RomBytes []byte

	TraceMode bool

	sectionFuncIndex map[int][]int
	vramFuncIndex    map[uint32][]int
	nameFuncIndex    map[string]int

	ReferenceSections []Section
	ReferenceSymbols  []ReferenceSymbol
	refSymByName      map[string]int

	Dependencies   []Dependency
	depIndexByName map[string]int

	Imports          []ImportSymbol
	EventSymbols     []EventSymbol
	dependencyEvents []DependencyEvent
	Callbacks        []Callback
	Replacements     []FunctionReplacement
	ExportedFuncs    []int
}

// AddExport marks functionIndex as exported by the current mod and
// returns its export index.
func (c *Context) AddExport(functionIndex int) int {
	c.ExportedFuncs = append(c.ExportedFuncs, functionIndex)
	return len(c.ExportedFuncs) - 1
}

// DependencyEvents returns every registered dependency event, in
// registration order.
func (c *Context) DependencyEvents() []DependencyEvent {
	return c.dependencyEvents
}

// New returns an empty Context ready for sections/functions to be
// appended to it.
func New() *Context {
	return &Context{
		sectionFuncIndex: make(map[int][]int),
		vramFuncIndex:    make(map[uint32][]int),
		nameFuncIndex:    make(map[string]int),
		refSymByName:     make(map[string]int),
		depIndexByName:   make(map[string]int),
	}
}

// AddSection appends a section and returns its index.
func (c *Context) AddSection(s Section) int {
	c.Sections = append(c.Sections, s)
	return len(c.Sections) - 1
}

// AddFunction appends a function, indexing it by section, vram and
// name, and returns its index. Used both at initial load and when the
// analyzer discovers a static function mid-recompile.
func (c *Context) AddFunction(f Function) int {
	idx := len(c.Functions)
	c.Functions = append(c.Functions, f)
	c.sectionFuncIndex[f.SectionIndex] = append(c.sectionFuncIndex[f.SectionIndex], idx)
	c.vramFuncIndex[f.Vram] = append(c.vramFuncIndex[f.Vram], idx)
	if f.Name != "" {
		c.nameFuncIndex[f.Name] = idx
	}
	return idx
}

// FunctionsInSection returns the indices of functions owned by the
// given section, in the order they were added.
func (c *Context) FunctionsInSection(sectionIndex int) []int {
	return c.sectionFuncIndex[sectionIndex]
}

// FunctionsAtVram returns every function starting at vram (normally
// at most one, but overlays and mod builds can legitimately stack
// more than one function at the same address).
func (c *Context) FunctionsAtVram(vram uint32) []int {
	return c.vramFuncIndex[vram]
}

// FunctionByName returns a function's index and whether it was found.
func (c *Context) FunctionByName(name string) (int, bool) {
	idx, ok := c.nameFuncIndex[name]
	return idx, ok
}

// AddReferenceSymbol validates sectionIndex against ReferenceSections,
// records the symbol and returns its index. Refuses duplicate names.
func (c *Context) AddReferenceSymbol(sym ReferenceSymbol) (int, error) {
	if _, exists := c.refSymByName[sym.Name]; exists {
		return 0, fmt.Errorf("rcontext: duplicate reference symbol %q", sym.Name)
	}
	if sym.SectionIndex != SectionAbsolute && sym.SectionIndex != SectionImport && sym.SectionIndex != SectionEvent {
		if int(sym.SectionIndex) >= len(c.ReferenceSections) {
			return 0, fmt.Errorf("rcontext: reference symbol %q targets unknown section %d", sym.Name, sym.SectionIndex)
		}
	}
	idx := len(c.ReferenceSymbols)
	c.ReferenceSymbols = append(c.ReferenceSymbols, sym)
	c.refSymByName[sym.Name] = idx
	return idx, nil
}

// ReferenceSymbolByName looks up a previously added reference symbol.
func (c *Context) ReferenceSymbolByName(name string) (int, bool) {
	idx, ok := c.refSymByName[name]
	return idx, ok
}

// AddDependency registers another mod as a dependency. Refuses
// duplicate ids.
func (c *Context) AddDependency(dep Dependency) (int, error) {
	if _, exists := c.depIndexByName[dep.Id]; exists {
		return 0, fmt.Errorf("rcontext: duplicate dependency %q", dep.Id)
	}
	dep.eventIndexByName = make(map[string]int)
	idx := len(c.Dependencies)
	c.Dependencies = append(c.Dependencies, dep)
	c.depIndexByName[dep.Id] = idx
	return idx, nil
}

// DependencyByName looks up a previously added dependency.
func (c *Context) DependencyByName(id string) (int, bool) {
	idx, ok := c.depIndexByName[id]
	return idx, ok
}

// AddImport records a function symbol imported from dependencyIndex.
func (c *Context) AddImport(imp ImportSymbol) int {
	c.Imports = append(c.Imports, imp)
	return len(c.Imports) - 1
}

// AddEventSymbol places a new event defined by the current mod in the
// special event section and returns its index.
func (c *Context) AddEventSymbol(ev EventSymbol) int {
	c.EventSymbols = append(c.EventSymbols, ev)
	return len(c.EventSymbols) - 1
}

// AddDependencyEvent is idempotent: registering the same (dependency,
// event name) pair twice returns the existing index rather than
// erroring, since a mod's event subscriptions are commonly declared
// redundantly across multiple callback registrations.
func (c *Context) AddDependencyEvent(dependencyIndex int, name string) (int, error) {
	if dependencyIndex < 0 || dependencyIndex >= len(c.Dependencies) {
		return 0, fmt.Errorf("rcontext: unknown dependency index %d", dependencyIndex)
	}
	dep := &c.Dependencies[dependencyIndex]
	if idx, exists := dep.eventIndexByName[name]; exists {
		return idx, nil
	}
	newIdx := len(c.dependencyEvents)
	c.dependencyEvents = append(c.dependencyEvents, DependencyEvent{DependencyIndex: dependencyIndex, Name: name})
	dep.eventIndexByName[name] = newIdx
	return newIdx, nil
}

// AddCallback appends a (dependency-event, function) binding.
func (c *Context) AddCallback(dependencyEventIndex, functionIndex int) (int, error) {
	if dependencyEventIndex < 0 || dependencyEventIndex >= len(c.dependencyEvents) {
		return 0, fmt.Errorf("rcontext: unknown dependency event index %d", dependencyEventIndex)
	}
	if functionIndex < 0 || functionIndex >= len(c.Functions) {
		return 0, fmt.Errorf("rcontext: unknown function index %d", functionIndex)
	}
	c.Callbacks = append(c.Callbacks, Callback{DependencyEventIndex: dependencyEventIndex, FunctionIndex: functionIndex})
	return len(c.Callbacks) - 1, nil
}

// AddReplacement declares that functionIndex replaces a host function
// at the given original ROM location.
func (c *Context) AddReplacement(r FunctionReplacement) int {
	c.Replacements = append(c.Replacements, r)
	return len(c.Replacements) - 1
}

// ImportReferenceContext copies another context's reference sections
// and symbols into this one's reference view, used when building a
// patch or mod against a host image's exported symbols. Duplicate
// symbol names are skipped rather than erroring, since the same host
// reference file is commonly imported by more than one mod input.
func (c *Context) ImportReferenceContext(other *Context) error {
	offset := uint16(len(c.ReferenceSections))
	c.ReferenceSections = append(c.ReferenceSections, other.ReferenceSections...)
	for _, sym := range other.ReferenceSymbols {
		shifted := sym
		if shifted.SectionIndex != SectionAbsolute && shifted.SectionIndex != SectionImport && shifted.SectionIndex != SectionEvent {
			shifted.SectionIndex += offset
		}
		if _, exists := c.refSymByName[shifted.Name]; exists {
			continue
		}
		idx := len(c.ReferenceSymbols)
		c.ReferenceSymbols = append(c.ReferenceSymbols, shifted)
		c.refSymByName[shifted.Name] = idx
	}
	return nil
}
