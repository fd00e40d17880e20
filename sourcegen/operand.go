/*
 * mipsrecomp - Go source text generator: operand rendering.
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

package sourcegen

import (
	"fmt"

	"github.com/n64recomp/mipsrecomp/generator"
	"github.com/n64recomp/mipsrecomp/ops"
)

func gprString(reg int) string {
	if reg == 0 {
		return "0"
	}
	return fmt.Sprintf("ctx.R[%d]", reg)
}

func fprString(reg int, field string) string {
	return fmt.Sprintf("ctx.F[%d].%s", reg, field)
}

// operandString renders a single Operand descriptor against an
// instruction's decoded fields, matching the register/field layout
// SPEC_FULL's runtime context type exposes.
func operandString(o ops.Operand, ictx generator.InstructionContext) string {
	switch o {
	case ops.OperandRd:
		return gprString(ictx.Rd)
	case ops.OperandRs, ops.OperandBase:
		return gprString(ictx.Rs)
	case ops.OperandRt:
		return gprString(ictx.Rt)
	case ops.OperandFd:
		return fprString(ictx.Rd, "Fl")
	case ops.OperandFs:
		return fprString(ictx.Rs, "Fl")
	case ops.OperandFt:
		return fprString(ictx.Rt, "Fl")
	case ops.OperandFdDouble:
		return fprString(ictx.Rd, "D")
	case ops.OperandFsDouble:
		return fprString(ictx.Rs, "D")
	case ops.OperandFtDouble:
		return fprString(ictx.Rt, "D")
	case ops.OperandFdU32L:
		return fprString(ictx.Rd, "U32L")
	case ops.OperandFsU32L:
		return fprString(ictx.Rs, "U32L")
	case ops.OperandFtU32L:
		return fprString(ictx.Rt, "U32L")
	case ops.OperandFdU64:
		return fprString(ictx.Rd, "U64")
	case ops.OperandFsU64:
		return fprString(ictx.Rs, "U64")
	case ops.OperandFtU64:
		return fprString(ictx.Rt, "U64")
	case ops.OperandHi:
		return "ctx.Hi"
	case ops.OperandLo:
		return "ctx.Lo"
	case ops.OperandCop1cs:
		return "ctx.Cop1Cs"
	case ops.OperandImmU16:
		return fmt.Sprintf("uint64(0x%X)", ictx.ImmU16)
	case ops.OperandImmS16:
		// Sign-extend host-side so the emitted literal is already a
		// representable uint64 constant, matching every GPR operand's type.
		return fmt.Sprintf("uint64(0x%X)", uint64(int64(ictx.ImmS16)))
	case ops.OperandSa, ops.OperandSa32:
		return fmt.Sprintf("%d", ictx.Sa)
	case ops.OperandZero:
		return "0"
	default:
		return "/* unhandled operand */"
	}
}

// checkFRRegister reports the FPR index an operand names, for any of
// its possible field views, so EmitCheckFR can validate it against
// the current FR-mode status bit. Non-float operands (GPRs, HI/LO,
// the COP1 condition flag, immediates) need no such check.
func checkFRRegister(o ops.Operand, ictx generator.InstructionContext) (reg int, ok bool) {
	switch o {
	case ops.OperandFd, ops.OperandFdDouble, ops.OperandFdU32L, ops.OperandFdU64:
		return ictx.Rd, true
	case ops.OperandFs, ops.OperandFsDouble, ops.OperandFsU32L, ops.OperandFsU64:
		return ictx.Rs, true
	case ops.OperandFt, ops.OperandFtDouble, ops.OperandFtU32L, ops.OperandFtU64:
		return ictx.Rt, true
	default:
		return 0, false
	}
}

// checkNaNRegister reports the FPR index and precision an operand
// names, but only for its plain single/double field views — the
// original only NaN-checks an operand's float value, never its raw
// bit-pattern (U32L/U64) view.
func checkNaNRegister(o ops.Operand, ictx generator.InstructionContext) (reg int, isDouble bool, ok bool) {
	switch o {
	case ops.OperandFd:
		return ictx.Rd, false, true
	case ops.OperandFs:
		return ictx.Rs, false, true
	case ops.OperandFt:
		return ictx.Rt, false, true
	case ops.OperandFdDouble:
		return ictx.Rd, true, true
	case ops.OperandFsDouble:
		return ictx.Rs, true, true
	case ops.OperandFtDouble:
		return ictx.Rt, true, true
	default:
		return 0, false, false
	}
}

// unaryWrap applies a UnaryOpType's cast/mask/transcendental wrapper
// around an already-rendered operand expression.
func unaryWrap(op ops.UnaryOpType, inner string) string {
	switch op {
	case ops.UnaryNone:
		return inner
	case ops.UnaryToS32:
		return fmt.Sprintf("int32(%s)", inner)
	case ops.UnaryToU32:
		return fmt.Sprintf("uint32(%s)", inner)
	case ops.UnaryToS64:
		return fmt.Sprintf("int64(%s)", inner)
	case ops.UnaryToU64:
		return fmt.Sprintf("uint64(%s)", inner)
	case ops.UnaryMask5:
		return fmt.Sprintf("(%s & 0x1f)", inner)
	case ops.UnaryMask6:
		return fmt.Sprintf("(%s & 0x3f)", inner)
	case ops.UnaryLui:
		return fmt.Sprintf("(%s << 16)", inner)
	case ops.UnaryNegateFloat, ops.UnaryNegateDouble:
		return fmt.Sprintf("-(%s)", inner)
	case ops.UnaryAbsFloat:
		return fmt.Sprintf("float32(math.Abs(float64(%s)))", inner)
	case ops.UnaryAbsDouble:
		return fmt.Sprintf("math.Abs(%s)", inner)
	case ops.UnarySqrtFloat:
		return fmt.Sprintf("float32(math.Sqrt(float64(%s)))", inner)
	case ops.UnarySqrtDouble:
		return fmt.Sprintf("math.Sqrt(%s)", inner)
	case ops.UnaryConvertSFromW:
		return fmt.Sprintf("float32(int32(%s))", inner)
	case ops.UnaryConvertWFromS:
		return fmt.Sprintf("int32(%s)", inner)
	case ops.UnaryConvertDFromW:
		return fmt.Sprintf("float64(int32(%s))", inner)
	case ops.UnaryConvertWFromD:
		return fmt.Sprintf("int32(%s)", inner)
	case ops.UnaryConvertDFromS:
		return fmt.Sprintf("float64(%s)", inner)
	case ops.UnaryConvertSFromD:
		return fmt.Sprintf("float32(%s)", inner)
	case ops.UnaryConvertDFromL:
		return fmt.Sprintf("float64(int64(%s))", inner)
	case ops.UnaryConvertLFromD:
		return fmt.Sprintf("int64(%s)", inner)
	case ops.UnaryConvertSFromL:
		return fmt.Sprintf("float32(int64(%s))", inner)
	case ops.UnaryConvertLFromS:
		return fmt.Sprintf("int64(%s)", inner)
	case ops.UnaryTruncateWFromS, ops.UnaryTruncateWFromD:
		return fmt.Sprintf("int32(%s)", inner)
	case ops.UnaryRoundWFromS, ops.UnaryRoundWFromD:
		return fmt.Sprintf("int32(math.Round(float64(%s)))", inner)
	case ops.UnaryCeilWFromS, ops.UnaryCeilWFromD:
		return fmt.Sprintf("int32(math.Ceil(float64(%s)))", inner)
	case ops.UnaryFloorWFromS, ops.UnaryFloorWFromD:
		return fmt.Sprintf("int32(math.Floor(float64(%s)))", inner)
	case ops.UnaryToInt32:
		return fmt.Sprintf("int32(%s)", inner)
	default:
		return inner
	}
}

// binaryFields mirrors the teacher's func-string/infix-string split: a
// non-empty FuncString renders as a call, otherwise InfixString joins
// the two rendered operands directly.
type binaryFields struct {
	FuncString  string
	InfixString string
	// NeedsMemory marks a FuncString helper that reads the emulated
	// memory image and so takes rdram as its leading argument.
	NeedsMemory bool
}

var binaryOpFields = map[ops.BinaryOpType]binaryFields{
	ops.BinaryTrue:         {InfixString: "true"},
	ops.BinaryFalse:        {InfixString: "false"},
	ops.BinaryAdd32:        {FuncString: "ADD32"},
	ops.BinarySub32:        {FuncString: "SUB32"},
	ops.BinaryAdd64:        {InfixString: "+"},
	ops.BinarySub64:        {InfixString: "-"},
	ops.BinaryAnd64:        {InfixString: "&"},
	ops.BinaryOr64:         {InfixString: "|"},
	ops.BinaryNor64:        {FuncString: "NOR64"},
	ops.BinaryXor64:        {InfixString: "^"},
	ops.BinarySll32:        {FuncString: "SLL32"},
	ops.BinarySll64:        {InfixString: "<<"},
	ops.BinarySrl32:        {FuncString: "SRL32"},
	ops.BinarySrl64:        {InfixString: ">>"},
	ops.BinarySra32:        {FuncString: "SRA32"},
	ops.BinarySra64:        {InfixString: ">>"},
	ops.BinaryEqual:        {InfixString: "=="},
	ops.BinaryNotEqual:     {InfixString: "!="},
	ops.BinaryLess:         {InfixString: "<"},
	ops.BinaryLessEq:       {InfixString: "<="},
	ops.BinaryGreater:      {InfixString: ">"},
	ops.BinaryGreaterEq:    {InfixString: ">="},
	ops.BinaryAddFloat:     {InfixString: "+"},
	ops.BinaryAddDouble:    {InfixString: "+"},
	ops.BinarySubFloat:     {InfixString: "-"},
	ops.BinarySubDouble:    {InfixString: "-"},
	ops.BinaryMulFloat:     {FuncString: "MulS"},
	ops.BinaryMulDouble:    {FuncString: "MulD"},
	ops.BinaryDivFloat:     {FuncString: "DivS"},
	ops.BinaryDivDouble:    {FuncString: "DivD"},
	ops.BinaryLessFloat:    {InfixString: "<"},
	ops.BinaryLessDouble:   {InfixString: "<"},
	ops.BinaryLD:           {FuncString: "LD", NeedsMemory: true},
	ops.BinaryLW:           {FuncString: "MemW", NeedsMemory: true},
	ops.BinaryLWU:          {FuncString: "MemWU", NeedsMemory: true},
	ops.BinaryLH:           {FuncString: "MemH", NeedsMemory: true},
	ops.BinaryLHU:          {FuncString: "MemHU", NeedsMemory: true},
	ops.BinaryLB:           {FuncString: "MemB", NeedsMemory: true},
	ops.BinaryLBU:          {FuncString: "MemBU", NeedsMemory: true},
	ops.BinaryLDL:          {FuncString: "DoLDL", NeedsMemory: true},
	ops.BinaryLDR:          {FuncString: "DoLDR", NeedsMemory: true},
	ops.BinaryLWL:          {FuncString: "DoLWL", NeedsMemory: true},
	ops.BinaryLWR:          {FuncString: "DoLWR", NeedsMemory: true},
}

// renderBinaryOperands evaluates a BinaryOperands pair under its
// per-operand unary wraps and returns the two rendered expressions.
func renderBinaryOperands(operands ops.BinaryOperands, ictx generator.InstructionContext) (string, string) {
	a := unaryWrap(operands.OperandOps[0], operandString(operands.Operands[0], ictx))
	b := unaryWrap(operands.OperandOps[1], operandString(operands.Operands[1], ictx))
	return a, b
}

// renderBinary turns a BinaryOpType plus its operands into a Go
// expression, as either an infix expression or a named helper call.
func renderBinary(opType ops.BinaryOpType, operands ops.BinaryOperands, ictx generator.InstructionContext) string {
	fields, ok := binaryOpFields[opType]
	if !ok {
		return "/* unhandled binary op */"
	}
	a, b := renderBinaryOperands(operands, ictx)
	if fields.FuncString != "" {
		if fields.NeedsMemory {
			return fmt.Sprintf("runtime.%s(rdram, %s, %s)", fields.FuncString, a, b)
		}
		return fmt.Sprintf("runtime.%s(%s, %s)", fields.FuncString, a, b)
	}
	return fmt.Sprintf("(%s %s %s)", a, fields.InfixString, b)
}
