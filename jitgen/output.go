/*
 * mipsrecomp - JIT batch linking and output.
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

package jitgen

import (
	"fmt"
	"runtime"
	"strings"
	"syscall"
	"unsafe"
)

// PendingReferenceJump is a call site the loader must patch once it
// resolves the host function backing a reference symbol.
type PendingReferenceJump struct {
	InstructionAddress uintptr
	SectionIndex       uint16
	SymbolIndex        int
	TargetOffset       uint32
}

// PendingImportJump is a call site awaiting a mod dependency's import
// resolution; every call site for the same import index is patched
// together once that import resolves.
type PendingImportJump struct {
	InstructionAddress uintptr
	ImportIndex        int
}

// LiveGeneratorOutput owns a batch's compiled machine code and every
// piece of stable storage its instructions point into: jump-table
// entry arrays and the pending call sites a loader still has to wire
// up. Close releases the executable mapping; a finalizer backs it up
// in case a caller forgets.
type LiveGeneratorOutput struct {
	Code []byte

	FuncEntry map[int]uintptr

	SwitchEntries map[string][]uint64

	PendingReferenceJumps []PendingReferenceJump
	PendingImportJumps    []PendingImportJump

	// RuntimeCallSites maps a runtime helper symbol to every absolute
	// address within Code holding its (still-zero) 64-bit pointer
	// operand, for the loader to patch once at load time.
	RuntimeCallSites map[string][]uintptr
}

// Close unmaps the executable region. Calling it twice is a no-op.
func (o *LiveGeneratorOutput) Close() error {
	if o.Code == nil {
		return nil
	}
	err := syscall.Munmap(o.Code)
	o.Code = nil
	return err
}

// Finish assembles every function in the batch, resolves the entry
// address of each compiled function and every pending switch table,
// and converts pending reference-symbol/import/runtime-helper call
// sites into addresses the loader can patch once host resolution
// completes.
func (live *LiveGeneratorContext) Finish() (*LiveGeneratorOutput, error) {
	code, err := live.asm.Finish()
	if err != nil {
		return nil, err
	}

	out := &LiveGeneratorOutput{
		Code:             code,
		FuncEntry:        make(map[int]uintptr),
		SwitchEntries:    make(map[string][]uint64),
		RuntimeCallSites: make(map[string][]uintptr),
	}

	codeBase := codeAddress(code)
	externalSites := live.asm.ExternalCallSites()
	for symbol, offsets := range externalSites {
		if !strings.HasPrefix(symbol, "runtime_") {
			continue // refsym/import call sites are reported separately below
		}
		for _, off := range offsets {
			out.RuntimeCallSites[symbol] = append(out.RuntimeCallSites[symbol], codeBase+uintptr(off))
		}
	}

	siteAddress := func(label string) (uintptr, bool) {
		offs, ok := externalSites[label]
		if !ok || len(offs) == 0 {
			return 0, false
		}
		return codeBase + uintptr(offs[0]), true
	}

	for idx, label := range live.funcLabelOf {
		off, ok := live.asm.FunctionEntry(label)
		if !ok {
			return nil, fmt.Errorf("jitgen: function %q has no resolved entry", label)
		}
		out.FuncEntry[idx] = codeBase + uintptr(off)
	}

	for label, sw := range live.switches {
		resolved := make([]uint64, len(sw.labels))
		for i, l := range sw.labels {
			off, ok := live.asm.FunctionEntry(l)
			if !ok {
				return nil, fmt.Errorf("jitgen: switch %q case %d label %q unresolved", label, i, l)
			}
			resolved[i] = uint64(codeBase) + uint64(off)
		}
		out.SwitchEntries[label] = resolved
	}

	for _, rs := range live.pendingRefSymbols {
		addr, ok := siteAddress(rs.label)
		if !ok {
			return nil, fmt.Errorf("jitgen: reference symbol call site %q unresolved", rs.label)
		}
		out.PendingReferenceJumps = append(out.PendingReferenceJumps, PendingReferenceJump{
			InstructionAddress: addr,
			SectionIndex:       rs.sectionIndex,
			SymbolIndex:        rs.symbolIndex,
			TargetOffset:       rs.targetOffset,
		})
	}

	for _, im := range live.pendingImports {
		addr, ok := siteAddress(im.label)
		if !ok {
			return nil, fmt.Errorf("jitgen: import call site unresolved")
		}
		out.PendingImportJumps = append(out.PendingImportJumps, PendingImportJump{
			InstructionAddress: addr,
			ImportIndex:        im.importIndex,
		})
	}

	runtime.SetFinalizer(out, func(o *LiveGeneratorOutput) { o.Close() })
	return out, nil
}

// codeAddress returns the base address of an mmap'd code slice. The
// slice itself, not a copy, must back every resolved address: moving
// GC never relocates an mmap region, but it would silently invalidate
// every baked-in address if this were taken from a regular Go slice.
func codeAddress(code []byte) uintptr {
	if len(code) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&code[0]))
}
