/*
 * mipsrecomp - per-function jump table and absolute jump analysis.
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

// Package analysis runs a linear abstract-interpretation pass over a
// decoded function's instruction words to recover jump tables and
// absolute jumps reached through a computed `jr`, since the
// recompiler driver cannot otherwise know a switch's targets ahead of
// emitting code for it.
package analysis

// RegState tracks, for a single GPR, the two shapes of address
// computation the analyzer recognizes: a register still carrying a
// materialized high/low address pair (or a GOT offset awaiting an
// addend), and a register already loaded from RAM via one of those.
type RegState struct {
	PrevLui        uint32
	PrevAddiu      int32
	PrevAdduVram   uint32
	PrevAddendReg  int
	PrevGotOffset  uint32
	ValidLui       bool
	ValidAddiu     bool
	ValidAddend    bool
	ValidGotOffset bool

	LoadedLwVram   uint32
	LoadedAdduVram uint32
	LoadedAddress  uint32
	LoadedAddendReg int
	ValidLoaded    bool
	ValidGotLoaded bool
}

// Invalidate clears every field, the state for "this register's value
// is now unknown."
func (r *RegState) Invalidate() {
	*r = RegState{}
}

// JumpTable is a recovered computed-jump dispatch table.
type JumpTable struct {
	Vram       uint32
	Rom        uint32
	AddendReg  int
	LwVram     uint32
	AdduVram   uint32
	JrVram     uint32
	GotOffset  uint32
	HasGotOffset bool
	Entries    []uint32
}

// AbsoluteJump is a computed jump whose target was fully resolved at
// analysis time (a plain `lui`+`addiu` pair feeding `jr`, with no
// table lookup involved).
type AbsoluteJump struct {
	Target uint32
	JrVram uint32
}

const (
	regZero = 0
	regGp   = 28
	regSp   = 29
	regRa   = 31
)

// FunctionStats accumulates a function's analysis results.
type FunctionStats struct {
	JumpTables    []JumpTable
	AbsoluteJumps []AbsoluteJump
}
