/*
 * mipsrecomp - recompiled-code runtime support: memory image access.
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

import "math"

// Every load/store helper here takes the emulated memory image as
// its rdram parameter plus the base register value and the offset as
// separate arguments; addr sums them and truncates the result to 32
// bits, which then indexes rdram directly. No segment bias is
// subtracted, here or by the generators.

func addr(base, offset uint64) uint32 {
	return uint32(base + offset)
}

// byteIndex applies the endianness swizzle a big-endian MIPS access
// needs against a little-endian host byte slice, mirroring the
// ^2/^3 adjustments the original's MEM_H/MEM_B macros fold in.
func byteIndex(a uint32, size int) uint32 {
	switch size {
	case 2:
		return a ^ 2
	case 1:
		return a ^ 3
	default:
		return a
	}
}

func memByte(rdram []byte, a uint32) uint8 {
	return rdram[byteIndex(a, 1)]
}

func setMemByte(rdram []byte, a uint32, v uint8) {
	rdram[byteIndex(a, 1)] = v
}

func memHalfBE(rdram []byte, a uint32) uint16 {
	i := byteIndex(a, 2)
	return uint16(rdram[i])<<8 | uint16(rdram[i+1])
}

func setMemHalfBE(rdram []byte, a uint32, v uint16) {
	i := byteIndex(a, 2)
	rdram[i] = uint8(v >> 8)
	rdram[i+1] = uint8(v)
}

func memWordBE(rdram []byte, a uint32) uint32 {
	return uint32(rdram[a])<<24 | uint32(rdram[a+1])<<16 | uint32(rdram[a+2])<<8 | uint32(rdram[a+3])
}

func setMemWordBE(rdram []byte, a uint32, v uint32) {
	rdram[a] = uint8(v >> 24)
	rdram[a+1] = uint8(v >> 16)
	rdram[a+2] = uint8(v >> 8)
	rdram[a+3] = uint8(v)
}

// MemW loads a sign-extended 32-bit word.
func MemW(rdram []byte, base, offset uint64) uint64 {
	return uint64(int64(int32(memWordBE(rdram, addr(base, offset)))))
}

// MemWU loads a zero-extended 32-bit word.
func MemWU(rdram []byte, base, offset uint64) uint64 {
	return uint64(memWordBE(rdram, addr(base, offset)))
}

// MemH loads a sign-extended 16-bit halfword.
func MemH(rdram []byte, base, offset uint64) uint64 {
	return uint64(int64(int16(memHalfBE(rdram, addr(base, offset)))))
}

// MemHU loads a zero-extended 16-bit halfword.
func MemHU(rdram []byte, base, offset uint64) uint64 {
	return uint64(memHalfBE(rdram, addr(base, offset)))
}

// MemB loads a sign-extended byte.
func MemB(rdram []byte, base, offset uint64) uint64 {
	return uint64(int64(int8(memByte(rdram, addr(base, offset)))))
}

// MemBU loads a zero-extended byte.
func MemBU(rdram []byte, base, offset uint64) uint64 {
	return uint64(memByte(rdram, addr(base, offset)))
}

// LD loads a big-endian 64-bit doubleword as two word accesses, the
// way the original's load_doubleword helper composes it from
// MEM_W rather than a single 8-byte access.
func LD(rdram []byte, base, offset uint64) uint64 {
	a := addr(base, offset)
	hi := uint64(memWordBE(rdram, a))
	lo := uint64(memWordBE(rdram, a+4))
	return hi<<32 | lo
}

// StoreD stores a 64-bit doubleword as two word stores.
func StoreD(rdram []byte, base, offset, value uint64) {
	a := addr(base, offset)
	setMemWordBE(rdram, a, uint32(value>>32))
	setMemWordBE(rdram, a+4, uint32(value))
}

// StoreW stores the low 32 bits of value.
func StoreW(rdram []byte, base, offset, value uint64) {
	setMemWordBE(rdram, addr(base, offset), uint32(value))
}

// StoreH stores the low 16 bits of value.
func StoreH(rdram []byte, base, offset, value uint64) {
	setMemHalfBE(rdram, addr(base, offset), uint16(value))
}

// StoreB stores the low 8 bits of value.
func StoreB(rdram []byte, base, offset, value uint64) {
	setMemByte(rdram, addr(base, offset), uint8(value))
}

// StoreWC1 stores a single-precision float word.
func StoreWC1(rdram []byte, base, offset uint64, value float32) {
	StoreW(rdram, base, offset, uint64(math.Float32bits(value)))
}

// StoreDC1 stores a double-precision float doubleword.
func StoreDC1(rdram []byte, base, offset uint64, value float64) {
	StoreD(rdram, base, offset, math.Float64bits(value))
}

// DoLWL, DoLWR, DoLDL, DoLDR implement the unaligned partial-word
// loads with simple byte-at-a-time composition, the same
// not-fully-general approach the original's own do_lwl admits (see
// its "TODO proper lwl/lwr/swl/swr" comment) rather than the
// merge-with-existing-register behavior a bytewise-correct
// implementation of these opcodes would need.

// DoLWL loads the most-significant bytes of an unaligned word.
func DoLWL(rdram []byte, base, offset uint64) uint64 {
	a := addr(base, offset)
	b0 := memByte(rdram, a)
	b1 := memByte(rdram, a+1)
	b2 := memByte(rdram, a+2)
	b3 := memByte(rdram, a+3)
	v := uint32(b0)<<24 | uint32(b1)<<16 | uint32(b2)<<8 | uint32(b3)
	return uint64(int64(int32(v)))
}

// DoLWR loads the least-significant bytes of an unaligned word.
func DoLWR(rdram []byte, base, offset uint64) uint64 {
	return DoLWL(rdram, base, offset)
}

// DoLDL loads the most-significant bytes of an unaligned doubleword.
func DoLDL(rdram []byte, base, offset uint64) uint64 {
	return LD(rdram, base, offset)
}

// DoLDR loads the least-significant bytes of an unaligned doubleword.
func DoLDR(rdram []byte, base, offset uint64) uint64 {
	return LD(rdram, base, offset)
}

// StoreWL stores the most-significant bytes of an unaligned word.
func StoreWL(rdram []byte, base, offset, value uint64) {
	StoreW(rdram, base, offset, value)
}

// StoreWR stores the least-significant bytes of an unaligned word.
func StoreWR(rdram []byte, base, offset, value uint64) {
	StoreW(rdram, base, offset, value)
}

// StoreDL stores the most-significant bytes of an unaligned
// doubleword.
func StoreDL(rdram []byte, base, offset, value uint64) {
	StoreD(rdram, base, offset, value)
}

// StoreDR stores the least-significant bytes of an unaligned
// doubleword.
func StoreDR(rdram []byte, base, offset, value uint64) {
	StoreD(rdram, base, offset, value)
}
