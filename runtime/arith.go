/*
 * mipsrecomp - recompiled-code runtime support: arithmetic helpers.
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

// ADD32 and SUB32 perform the add/sub in 32 bits and sign-extend the
// result back out to 64, matching MIPS's ADD/ADDU/SUB/SUBU trapping
// the result to the word width regardless of the 64-bit register
// file width.
func ADD32(a, b uint64) uint64 {
	return uint64(int64(int32(uint32(a) + uint32(b))))
}

func SUB32(a, b uint64) uint64 {
	return uint64(int64(int32(uint32(a) - uint32(b))))
}

// NOR64 computes the bitwise NOR of two full 64-bit registers.
func NOR64(a, b uint64) uint64 {
	return ^(a | b)
}

// SLL32 shifts a 32-bit value left and sign-extends the 32-bit
// result, reproducing the "upper bits leak into the shift" behavior
// of MIPS's word-width shift instructions.
func SLL32(a uint32, b uint64) uint64 {
	return uint64(int64(int32(a << (b & 0x1f))))
}

func SRL32(a uint32, b uint64) uint64 {
	return uint64(int64(int32(a >> (b & 0x1f))))
}

func SRA32(a uint32, b uint64) uint64 {
	return uint64(int64(int32(a) >> (b & 0x1f)))
}

// MulS, DivS, MulD, DivD are straight single/double-precision
// arithmetic, named rather than inlined as infix expressions so the
// source generator's operand table stays uniform between opcodes
// that need a helper and opcodes that render as plain infix Go.
func MulS(a, b float32) float32 { return a * b }
func DivS(a, b float32) float32 { return a / b }
func MulD(a, b float64) float64 { return a * b }
func DivD(a, b float64) float64 { return a / b }

// MultS32 multiplies two signed 32-bit values, producing a
// sign-extended 64-bit low half and a sign-extended high half, the
// MIPS MULT result convention.
func MultS32(a, b uint64) (lo, hi uint64) {
	r := int64(int32(a)) * int64(int32(b))
	return uint64(int64(int32(r))), uint64(int64(int32(r >> 32)))
}

// MultU32 multiplies two unsigned 32-bit values under the same
// sign-extended lo/hi convention.
func MultU32(a, b uint64) (lo, hi uint64) {
	r := uint64(uint32(a)) * uint64(uint32(b))
	return uint64(int64(int32(uint32(r)))), uint64(int64(int32(uint32(r >> 32))))
}

// MultS64 multiplies two signed 64-bit values (DMULT), returning the
// full 128-bit product split across lo/hi.
func MultS64(a, b uint64) (lo, hi uint64) {
	return mul64(a, b, true)
}

// MultU64 multiplies two unsigned 64-bit values (DMULTU).
func MultU64(a, b uint64) (lo, hi uint64) {
	return mul64(a, b, false)
}

func mul64(a, b uint64, signed bool) (lo, hi uint64) {
	var negate bool
	if signed {
		if int64(a) < 0 {
			a = -a
			negate = !negate
		}
		if int64(b) < 0 {
			b = -b
			negate = !negate
		}
	}
	aLo, aHi := a&0xFFFFFFFF, a>>32
	bLo, bHi := b&0xFFFFFFFF, b>>32

	t := aLo * bLo
	w0 := t & 0xFFFFFFFF
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & 0xFFFFFFFF
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	lo = (t << 32) | w0
	hi = aHi*bHi + w2 + k

	if negate {
		hi = ^hi
		lo = ^lo
		lo++
		if lo == 0 {
			hi++
		}
	}
	return lo, hi
}

// DivS32 divides two signed 32-bit values (DIV), returning a
// sign-extended quotient as lo and a sign-extended remainder as hi,
// matching the ctx.Lo/ctx.Hi assignment order EmitMulDiv emits.
func DivS32(a, b uint64) (lo, hi uint64) {
	if int32(b) == 0 {
		return 0, 0
	}
	q := int32(a) / int32(b)
	r := int32(a) % int32(b)
	return uint64(int64(q)), uint64(int64(r))
}

// DivU32 divides two unsigned 32-bit values (DIVU).
func DivU32(a, b uint64) (lo, hi uint64) {
	if uint32(b) == 0 {
		return 0, 0
	}
	q := uint32(a) / uint32(b)
	r := uint32(a) % uint32(b)
	return uint64(int64(int32(q))), uint64(int64(int32(r)))
}
