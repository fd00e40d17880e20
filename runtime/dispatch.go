/*
 * mipsrecomp - recompiled-code runtime support: call dispatch.
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

package runtime

import (
	"fmt"
	"log/slog"
)

// RecompFunc is the signature every emitted function shares: the
// emulated memory image plus a pointer to its register context. The
// original's recomp_func_t typedef names the same shape.
type RecompFunc func(rdram []byte, ctx *Context)

// referenceSymbolKey identifies one reference symbol by (section,
// symbol); the registry of host call targets is keyed by it and is
// populated by the loader before any recompiled code runs.
type referenceSymbolKey struct {
	section uint16
	symbol  int
}

var (
	functionsByVram  = map[uint32]RecompFunc{}
	referenceSymbols = map[referenceSymbolKey]RecompFunc{}
	eventHandlers    = map[int]func(*Context){}
)

// RegisterFunction associates a recompiled function's entry point
// with its original vram, for LookupFunction and CallReferenceSymbol
// to resolve against. Called by the generated overlay's init code.
func RegisterFunction(vram uint32, fn RecompFunc) {
	functionsByVram[vram] = fn
}

// RegisterReferenceSymbol associates an imported symbol's resolved
// host function with the (section, symbol) pair the loader assigned
// it, mirroring get_function's role for statically-unresolvable
// calls in the original.
func RegisterReferenceSymbol(sectionIndex uint16, symbolIndex int, fn RecompFunc) {
	referenceSymbols[referenceSymbolKey{sectionIndex, symbolIndex}] = fn
}

// RegisterEventHandler installs the host callback TriggerEvent
// dispatches to for a given event index.
func RegisterEventHandler(eventIndex int, fn func(*Context)) {
	eventHandlers[eventIndex] = fn
}

// LookupFunction resolves a vram to its recompiled entry point, the
// Go equivalent of the original's get_function/LOOKUP_FUNC pair used
// for jr-through-register indirect calls. A miss is a fatal
// configuration error: every reachable function must have been
// discovered and registered ahead of time.
func LookupFunction(vram uint32) RecompFunc {
	fn, ok := functionsByVram[vram]
	if !ok {
		panic(fmt.Sprintf("no recompiled function registered for vram 0x%08X", vram))
	}
	return fn
}

// CallReferenceSymbol invokes an unresolved (import) call site's
// target, once the loader has patched in the real host function via
// RegisterReferenceSymbol.
func CallReferenceSymbol(rdram []byte, ctx *Context, sectionIndex uint16, symbolIndex int, targetOffset uint32) {
	fn, ok := referenceSymbols[referenceSymbolKey{sectionIndex, symbolIndex}]
	if !ok {
		panic(fmt.Sprintf("unresolved reference symbol: section %d symbol %d (offset 0x%X)", sectionIndex, symbolIndex, targetOffset))
	}
	fn(rdram, ctx)
}

// Syscall and Break are hooks for the two trap instructions; neither
// is executable on the host so both simply report where they were
// reached rather than attempting any emulation.
func Syscall(ctx *Context, vram uint32) {
	slog.Warn("syscall reached in recompiled code", "vram", fmt.Sprintf("0x%08X", vram))
}

func Break(ctx *Context, vram uint32) {
	slog.Warn("break reached in recompiled code", "vram", fmt.Sprintf("0x%08X", vram))
}

// PauseSelf is a hook point for the original's cooperative-thread
// pause primitive. The recompiler's core has no suspension points of
// its own; this is a no-op left for a host to override the behavior
// of by registering its own scheduling outside this package.
func PauseSelf(ctx *Context) {}

// TriggerEvent dispatches to a host-registered handler for a
// script/cutscene event index, the recompiled equivalent of the
// original's event-table callback mechanism.
func TriggerEvent(ctx *Context, eventIndex int) {
	if fn, ok := eventHandlers[eventIndex]; ok {
		fn(ctx)
	}
}

// CheckFR validates an FPU register access against the current
// FR-mode status bit. Full FR=0 odd/even register-pairing emulation
// is not implemented; this only logs a mismatch for diagnosis.
func CheckFR(ctx *Context, fpr int) {
	if ctx.Cop0Status&0x04000000 == 0 && fpr%2 != 0 {
		slog.Warn("odd FPR access with FR=0", "fpr", fpr)
	}
}

// CheckNaN mirrors the original's NAN_CHECK assertion: recompiled
// code asks it to validate a just-computed float isn't NaN when the
// source MIPS program relied on that never happening.
func CheckNaN(ctx *Context, fpr int, isDouble bool) {
	var v float64
	if isDouble {
		v = ctx.F[fpr].D
	} else {
		v = float64(ctx.F[fpr].Fl)
	}
	if v != v {
		slog.Warn("NaN produced in recompiled code", "fpr", fpr, "double", isDouble)
	}
}

// SwitchError reports an out-of-range jump-table case by panicking.
// The JIT backend calls it as "runtime_SwitchError" through its
// external-symbol resolution; the source backend's generated default
// case panics inline instead of calling it.
func SwitchError(funcName string, vram, jtbl uint32) {
	panic(fmt.Sprintf("unhandled jump table case in %s at 0x%08X (table 0x%08X)", funcName, vram, jtbl))
}
