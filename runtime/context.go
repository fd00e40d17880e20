/*
 * mipsrecomp - recompiled-code runtime support: register context.
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

// Package runtime is the fixed support package every generated
// recompiled function imports. It supplies the register context
// type, the memory-image accessors, and the handful of helper and
// dispatch functions both the sourcegen and jitgen backends assume
// by name.
package runtime

// FPR is one MIPS III floating-point register with the four views
// the original FPU register union offers: a double, its two float
// halves, their raw bit patterns, and the full 64-bit pattern. The
// views are independent fields; writing one does not update the
// others.
type FPR struct {
	D    float64
	Fl   float32
	Fh   float32
	U32L uint32
	U32H uint32
	U64  uint64
}

// Context holds every general-purpose and floating-point register a
// recompiled function body touches, plus HI/LO and the COP0/COP1
// status words. r0 is never written; callers must not rely on R[0]
// holding zero if they assign to it directly.
type Context struct {
	R          [32]uint64
	F          [32]FPR
	Hi, Lo     uint64
	Cop0Status uint32
	Cop1Cs     uint32
}
