/*
 * mipsrecomp - recompiled-code runtime support tests: arithmetic.
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

import "testing"

func TestADD32OverflowWraps(t *testing.T) {
	got := ADD32(0x7FFFFFFF, 1)
	if int64(got) != -0x80000000 {
		t.Errorf("ADD32 overflow = %d, want -0x80000000", int64(got))
	}
}

func TestSUB32SignExtends(t *testing.T) {
	got := SUB32(0, 1)
	if int64(got) != -1 {
		t.Errorf("SUB32(0,1) = %d, want -1", int64(got))
	}
}

func TestSRA32PreservesSign(t *testing.T) {
	got := SRA32(0x80000000, 4)
	if int64(got) != -0x8000000 {
		t.Errorf("SRA32 = %d, want -0x8000000", int64(got))
	}
}

func TestSLL32MasksShiftAmountTo5Bits(t *testing.T) {
	got := SLL32(1, 32)
	if got != 1 {
		t.Errorf("SLL32 with shift=32 = 0x%X, want 1 (shift masked to 0)", got)
	}
}

func TestMultS32SignedNegative(t *testing.T) {
	a, b := int64(-2), int64(3)
	lo, hi := MultS32(uint64(a), uint64(b))
	if int64(lo) != -6 {
		t.Errorf("MultS32 lo = %d, want -6", int64(lo))
	}
	if int64(hi) != -1 {
		t.Errorf("MultS32 hi = %d, want -1 (sign-extended)", int64(hi))
	}
}

func TestMultU32(t *testing.T) {
	// 0xFFFFFFFF * 2 = 0x1FFFFFFFE; lo = 0xFFFFFFFE sign-extended, hi = 1.
	lo, hi := MultU32(0xFFFFFFFF, 2)
	if int64(lo) != -2 {
		t.Errorf("MultU32 lo = %d, want -2", int64(lo))
	}
	if hi != 1 {
		t.Errorf("MultU32 hi = %d, want 1", hi)
	}
}

func TestDivS32(t *testing.T) {
	a, b := int64(-7), int64(2)
	lo, hi := DivS32(uint64(a), uint64(b))
	if int64(lo) != -3 {
		t.Errorf("DivS32 quotient = %d, want -3", int64(lo))
	}
	if int64(hi) != -1 {
		t.Errorf("DivS32 remainder = %d, want -1", int64(hi))
	}
}

func TestDivU32ByZeroIsHarmless(t *testing.T) {
	lo, hi := DivU32(5, 0)
	if lo != 0 || hi != 0 {
		t.Errorf("DivU32 by zero = (%d, %d), want (0, 0)", lo, hi)
	}
}

func TestMultS64LargeProduct(t *testing.T) {
	m := int64(-1)
	lo, hi := MultS64(uint64(m), uint64(m))
	if lo != 1 || hi != 0 {
		t.Errorf("MultS64(-1,-1) = (0x%X, 0x%X), want (1, 0)", lo, hi)
	}
}
