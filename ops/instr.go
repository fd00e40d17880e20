/*
 * mipsrecomp - MIPS III opcode/function identification
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

// Package ops holds the static per-opcode tables the recompiler driver
// dispatches through: decoded MIPS instruction identifiers and the
// binary/unary/branch/store operation descriptors each one maps to.
package ops

// InstrId names a single MIPS III instruction, independent of its
// encoding. The recompiler, analyzer, and both generators all key off
// this identifier rather than the raw opcode/function bits.
type InstrId int

const (
	InstrInvalid InstrId = iota

	// Arithmetic.
	InstrAdd
	InstrAddu
	InstrAddi
	InstrAddiu
	InstrSub
	InstrSubu
	InstrNegu
	InstrDadd
	InstrDaddu
	InstrDaddi
	InstrDaddiu
	InstrDsub
	InstrDsubu

	// Bitwise.
	InstrAnd
	InstrOr
	InstrNor
	InstrXor
	InstrAndi
	InstrOri
	InstrXori
	InstrLui

	// Shifts.
	InstrSll
	InstrSrl
	InstrSra
	InstrSllv
	InstrSrlv
	InstrSrav
	InstrDsll
	InstrDsrl
	InstrDsra
	InstrDsll32
	InstrDsrl32
	InstrDsra32
	InstrDsllv
	InstrDsrlv
	InstrDsrav

	// Comparisons.
	InstrSlt
	InstrSltu
	InstrSlti
	InstrSltiu

	// Hi/lo and mul/div.
	InstrMfhi
	InstrMflo
	InstrMthi
	InstrMtlo
	InstrMult
	InstrMultu
	InstrDiv
	InstrDivu
	InstrDmult
	InstrDmultu
	InstrDdiv
	InstrDdivu

	// Loads/stores.
	InstrLb
	InstrLbu
	InstrLh
	InstrLhu
	InstrLw
	InstrLwu
	InstrLd
	InstrLwl
	InstrLwr
	InstrLdl
	InstrLdr
	InstrSb
	InstrSh
	InstrSw
	InstrSd
	InstrSwl
	InstrSwr
	InstrSdl
	InstrSdr
	InstrLwc1
	InstrLdc1
	InstrSwc1
	InstrSdc1

	// Control flow.
	InstrJ
	InstrJal
	InstrJr
	InstrJalr
	InstrBeq
	InstrBne
	InstrBlez
	InstrBgtz
	InstrBltz
	InstrBgez
	InstrBltzal
	InstrBgezal
	InstrBeql
	InstrBnel
	InstrBlezl
	InstrBgtzl
	InstrBltzl
	InstrBgezl

	// System.
	InstrSyscall
	InstrBreak
	InstrMfc0
	InstrMtc0
	InstrMfc1
	InstrMtc1
	InstrCfc1
	InstrCtc1

	// Float move/convert.
	InstrMovS
	InstrMovD
	InstrNegS
	InstrNegD
	InstrAbsS
	InstrAbsD
	InstrSqrtS
	InstrSqrtD
	InstrCvtSW
	InstrCvtWS
	InstrCvtDW
	InstrCvtWD
	InstrCvtDS
	InstrCvtSD
	InstrCvtDL
	InstrCvtLD
	InstrCvtSL
	InstrCvtLS
	InstrTruncWS
	InstrTruncWD
	InstrRoundWS
	InstrRoundWD
	InstrCeilWS
	InstrCeilWD
	InstrFloorWS
	InstrFloorWD

	// Float arithmetic.
	InstrAddS
	InstrAddD
	InstrSubS
	InstrSubD
	InstrMulS
	InstrMulD
	InstrDivS
	InstrDivD

	// Float comparisons (only the subset the analyzer/generators need
	// to distinguish is enumerated; all compare-and-set-cop1cs forms
	// collapse to Less/LessEq/Equal at the operation-table level).
	InstrCLtS
	InstrCLtD
	InstrCLeS
	InstrCLeD
	InstrCEqS
	InstrCEqD

	instrCount
)

// Count reports the number of defined instruction identifiers,
// primarily useful for sizing fixed-size dispatch arrays in tests.
func Count() int { return int(instrCount) }
