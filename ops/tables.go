package ops

// UnaryOps maps every MIPS instruction handled as a single-input
// operation to its descriptor. Grounded on original_source's
// unary_ops table.
var UnaryOps = map[InstrId]UnaryOp{
	InstrLui:  {Operation: UnaryLui, Output: OperandRt, Input: OperandImmU16},
	InstrMthi: {Operation: UnaryNone, Output: OperandHi, Input: OperandRs},
	InstrMtlo: {Operation: UnaryNone, Output: OperandLo, Input: OperandRs},
	InstrMfhi: {Operation: UnaryNone, Output: OperandRd, Input: OperandHi},
	InstrMflo: {Operation: UnaryNone, Output: OperandRd, Input: OperandLo},
	InstrMtc1: {Operation: UnaryNone, Output: OperandFsU32L, Input: OperandRt},
	InstrMfc1: {Operation: UnaryToInt32, Output: OperandRt, Input: OperandFsU32L},

	InstrMovS: {Operation: UnaryNone, Output: OperandFd, Input: OperandFs, CheckFR: true},
	InstrMovD: {Operation: UnaryNone, Output: OperandFdDouble, Input: OperandFsDouble, CheckFR: true},
	InstrNegS: {Operation: UnaryNegateFloat, Output: OperandFd, Input: OperandFs, CheckFR: true, CheckNaN: true},
	InstrNegD: {Operation: UnaryNegateDouble, Output: OperandFdDouble, Input: OperandFsDouble, CheckFR: true, CheckNaN: true},
	InstrAbsS: {Operation: UnaryAbsFloat, Output: OperandFd, Input: OperandFs, CheckFR: true, CheckNaN: true},
	InstrAbsD: {Operation: UnaryAbsDouble, Output: OperandFdDouble, Input: OperandFsDouble, CheckFR: true, CheckNaN: true},

	InstrSqrtS: {Operation: UnarySqrtFloat, Output: OperandFd, Input: OperandFs, CheckFR: true, CheckNaN: true},
	InstrSqrtD: {Operation: UnarySqrtDouble, Output: OperandFdDouble, Input: OperandFsDouble, CheckFR: true, CheckNaN: true},

	InstrCvtSW: {Operation: UnaryConvertSFromW, Output: OperandFd, Input: OperandFsU32L, CheckFR: true},
	InstrCvtWS: {Operation: UnaryConvertWFromS, Output: OperandFdU32L, Input: OperandFs, CheckFR: true},
	InstrCvtDW: {Operation: UnaryConvertDFromW, Output: OperandFdDouble, Input: OperandFsU32L, CheckFR: true},
	InstrCvtWD: {Operation: UnaryConvertWFromD, Output: OperandFdU32L, Input: OperandFsDouble, CheckFR: true},
	InstrCvtDS: {Operation: UnaryConvertDFromS, Output: OperandFdDouble, Input: OperandFs, CheckFR: true, CheckNaN: true},
	InstrCvtSD: {Operation: UnaryConvertSFromD, Output: OperandFd, Input: OperandFsDouble, CheckFR: true, CheckNaN: true},
	InstrCvtDL: {Operation: UnaryConvertDFromL, Output: OperandFdDouble, Input: OperandFsU64, CheckFR: true},
	InstrCvtLD: {Operation: UnaryConvertLFromD, Output: OperandFdU64, Input: OperandFsDouble, CheckFR: true, CheckNaN: true},
	InstrCvtSL: {Operation: UnaryConvertSFromL, Output: OperandFd, Input: OperandFsU64, CheckFR: true},
	InstrCvtLS: {Operation: UnaryConvertLFromS, Output: OperandFdU64, Input: OperandFs, CheckFR: true, CheckNaN: true},

	InstrTruncWS: {Operation: UnaryTruncateWFromS, Output: OperandFdU32L, Input: OperandFs, CheckFR: true},
	InstrTruncWD: {Operation: UnaryTruncateWFromD, Output: OperandFdU32L, Input: OperandFsDouble, CheckFR: true},
	InstrRoundWS: {Operation: UnaryRoundWFromS, Output: OperandFdU32L, Input: OperandFs, CheckFR: true},
	InstrRoundWD: {Operation: UnaryRoundWFromD, Output: OperandFdU32L, Input: OperandFsDouble, CheckFR: true},
	InstrCeilWS:  {Operation: UnaryCeilWFromS, Output: OperandFdU32L, Input: OperandFs, CheckFR: true},
	InstrCeilWD:  {Operation: UnaryCeilWFromD, Output: OperandFdU32L, Input: OperandFsDouble, CheckFR: true},
	InstrFloorWS: {Operation: UnaryFloorWFromS, Output: OperandFdU32L, Input: OperandFs, CheckFR: true},
	InstrFloorWD: {Operation: UnaryFloorWFromD, Output: OperandFdU32L, Input: OperandFsDouble, CheckFR: true},
}

// BinaryOps maps every MIPS instruction handled as a two-input
// operation (including loads) to its descriptor. Grounded on
// original_source's binary_ops table; deliberately keeps the
// original's documented quirks (e.g. variable shifts widen to 64 bits
// before masking) since faithfully reproducing guest semantics is the
// point of a recompiler.
var BinaryOps = map[InstrId]BinaryOp{
	InstrAddu:  {Type: BinaryAdd32, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrAdd:   {Type: BinaryAdd32, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrNegu:  {Type: BinarySub32, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrSubu:  {Type: BinarySub32, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrSub:   {Type: BinarySub32, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrDaddu: {Type: BinaryAdd64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrDadd:  {Type: BinaryAdd64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrDsubu: {Type: BinarySub64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrDsub:  {Type: BinarySub64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},

	InstrAddi:   {Type: BinaryAdd32, Output: OperandRt, Operands: rr(OperandRs, OperandImmS16)},
	InstrAddiu:  {Type: BinaryAdd32, Output: OperandRt, Operands: rr(OperandRs, OperandImmS16)},
	InstrDaddi:  {Type: BinaryAdd64, Output: OperandRt, Operands: rr(OperandRs, OperandImmS16)},
	InstrDaddiu: {Type: BinaryAdd64, Output: OperandRt, Operands: rr(OperandRs, OperandImmS16)},

	InstrAnd: {Type: BinaryAnd64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrOr:  {Type: BinaryOr64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrNor: {Type: BinaryNor64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},
	InstrXor: {Type: BinaryXor64, Output: OperandRd, Operands: rr(OperandRs, OperandRt)},

	InstrAndi: {Type: BinaryAnd64, Output: OperandRt, Operands: rr(OperandRs, OperandImmU16)},
	InstrOri:  {Type: BinaryOr64, Output: OperandRt, Operands: rr(OperandRs, OperandImmU16)},
	InstrXori: {Type: BinaryXor64, Output: OperandRt, Operands: rr(OperandRs, OperandImmU16)},

	// Variable shifts widen to 64-bit and mask the shift amount; this
	// mirrors the original tool's own documented behavior rather than
	// the narrower 32-bit form a hand-written MIPS->native port might
	// otherwise reach for.
	InstrSllv:  {Type: BinarySll64, Output: OperandRd, Operands: preOps(UnaryToS32, UnaryMask5, OperandRt, OperandRs)},
	InstrDsllv: {Type: BinarySll64, Output: OperandRd, Operands: preOps(UnaryNone, UnaryMask6, OperandRt, OperandRs)},
	InstrSrlv:  {Type: BinarySrl32, Output: OperandRd, Operands: preOps(UnaryToU32, UnaryMask5, OperandRt, OperandRs)},
	InstrDsrlv: {Type: BinarySrl64, Output: OperandRd, Operands: preOps(UnaryToU64, UnaryMask6, OperandRt, OperandRs)},
	InstrSrav:  {Type: BinarySra64, Output: OperandRd, Operands: preOps(UnaryToS32, UnaryMask5, OperandRt, OperandRs)},
	InstrDsrav: {Type: BinarySra64, Output: OperandRd, Operands: preOps(UnaryToS64, UnaryMask6, OperandRt, OperandRs)},

	InstrSll:    {Type: BinarySll64, Output: OperandRd, Operands: preOps(UnaryToS32, UnaryNone, OperandRt, OperandSa)},
	InstrDsll:   {Type: BinarySll64, Output: OperandRd, Operands: rr(OperandRt, OperandSa)},
	InstrDsll32: {Type: BinarySll64, Output: OperandRd, Operands: rr(OperandRt, OperandSa32)},
	InstrSrl:    {Type: BinarySrl32, Output: OperandRd, Operands: preOps(UnaryToU32, UnaryNone, OperandRt, OperandSa)},
	InstrDsrl:   {Type: BinarySrl64, Output: OperandRd, Operands: preOps(UnaryToU64, UnaryNone, OperandRt, OperandSa)},
	InstrDsrl32: {Type: BinarySrl64, Output: OperandRd, Operands: preOps(UnaryToU64, UnaryNone, OperandRt, OperandSa32)},
	InstrSra:    {Type: BinarySra64, Output: OperandRd, Operands: preOps(UnaryToS32, UnaryNone, OperandRt, OperandSa)},
	InstrDsra:   {Type: BinarySra64, Output: OperandRd, Operands: preOps(UnaryToS64, UnaryNone, OperandRt, OperandSa)},
	InstrDsra32: {Type: BinarySra64, Output: OperandRd, Operands: preOps(UnaryToS64, UnaryNone, OperandRt, OperandSa32)},

	InstrSlt:  {Type: BinaryLess, Output: OperandRd, Operands: preOps(UnaryToS64, UnaryToS64, OperandRs, OperandRt)},
	InstrSltu: {Type: BinaryLess, Output: OperandRd, Operands: preOps(UnaryToU64, UnaryToU64, OperandRs, OperandRt)},
	InstrSlti: {Type: BinaryLess, Output: OperandRt, Operands: preOps(UnaryToS64, UnaryNone, OperandRs, OperandImmS16)},
	InstrSltiu: {Type: BinaryLess, Output: OperandRt, Operands: preOps(UnaryToU64, UnaryNone, OperandRs, OperandImmS16)},

	InstrAddS: {Type: BinaryAddFloat, Output: OperandFd, Operands: rr(OperandFs, OperandFt), CheckFR: true, CheckNaN: true},
	InstrAddD: {Type: BinaryAddDouble, Output: OperandFdDouble, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true, CheckNaN: true},
	InstrSubS: {Type: BinarySubFloat, Output: OperandFd, Operands: rr(OperandFs, OperandFt), CheckFR: true, CheckNaN: true},
	InstrSubD: {Type: BinarySubDouble, Output: OperandFdDouble, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true, CheckNaN: true},
	InstrMulS: {Type: BinaryMulFloat, Output: OperandFd, Operands: rr(OperandFs, OperandFt), CheckFR: true, CheckNaN: true},
	InstrMulD: {Type: BinaryMulDouble, Output: OperandFdDouble, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true, CheckNaN: true},
	InstrDivS: {Type: BinaryDivFloat, Output: OperandFd, Operands: rr(OperandFs, OperandFt), CheckFR: true, CheckNaN: true},
	InstrDivD: {Type: BinaryDivDouble, Output: OperandFdDouble, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true, CheckNaN: true},

	InstrCLtS: {Type: BinaryLessFloat, Output: OperandCop1cs, Operands: rr(OperandFs, OperandFt), CheckFR: true},
	InstrCLtD: {Type: BinaryLessDouble, Output: OperandCop1cs, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true},
	InstrCLeS: {Type: BinaryLessEq, Output: OperandCop1cs, Operands: rr(OperandFs, OperandFt), CheckFR: true},
	InstrCLeD: {Type: BinaryLessEq, Output: OperandCop1cs, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true},
	InstrCEqS: {Type: BinaryEqual, Output: OperandCop1cs, Operands: rr(OperandFs, OperandFt), CheckFR: true},
	InstrCEqD: {Type: BinaryEqual, Output: OperandCop1cs, Operands: rr(OperandFsDouble, OperandFtDouble), CheckFR: true},

	InstrLb:   {Type: BinaryLB, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLbu:  {Type: BinaryLBU, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLh:   {Type: BinaryLH, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLhu:  {Type: BinaryLHU, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLw:   {Type: BinaryLW, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLwu:  {Type: BinaryLWU, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLd:   {Type: BinaryLD, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLwl:  {Type: BinaryLWL, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLwr:  {Type: BinaryLWR, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLdl:  {Type: BinaryLDL, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
	InstrLdr:  {Type: BinaryLDR, Output: OperandRt, Operands: rr(OperandBase, OperandImmS16)},
}

// ConditionalBranchOps maps every MIPS branch instruction to its
// comparison descriptor.
var ConditionalBranchOps = map[InstrId]ConditionalBranchOp{
	InstrBeq:  {Comparison: BinaryEqual, Operands: rr(OperandRs, OperandRt)},
	InstrBne:  {Comparison: BinaryNotEqual, Operands: rr(OperandRs, OperandRt)},
	InstrBlez: {Comparison: BinaryLessEq, Operands: rr(OperandRs, OperandZero)},
	InstrBgtz: {Comparison: BinaryGreater, Operands: rr(OperandRs, OperandZero)},
	InstrBltz: {Comparison: BinaryLess, Operands: rr(OperandRs, OperandZero)},
	InstrBgez: {Comparison: BinaryGreaterEq, Operands: rr(OperandRs, OperandZero)},

	InstrBltzal: {Comparison: BinaryLess, Operands: rr(OperandRs, OperandZero), Link: true},
	InstrBgezal: {Comparison: BinaryGreaterEq, Operands: rr(OperandRs, OperandZero), Link: true},

	InstrBeql:  {Comparison: BinaryEqual, Operands: rr(OperandRs, OperandRt), Likely: true},
	InstrBnel:  {Comparison: BinaryNotEqual, Operands: rr(OperandRs, OperandRt), Likely: true},
	InstrBlezl: {Comparison: BinaryLessEq, Operands: rr(OperandRs, OperandZero), Likely: true},
	InstrBgtzl: {Comparison: BinaryGreater, Operands: rr(OperandRs, OperandZero), Likely: true},
	InstrBltzl: {Comparison: BinaryLess, Operands: rr(OperandRs, OperandZero), Likely: true},
	InstrBgezl: {Comparison: BinaryGreaterEq, Operands: rr(OperandRs, OperandZero), Likely: true},
}

// StoreOps maps every MIPS store instruction to its descriptor.
var StoreOps = map[InstrId]StoreOp{
	InstrSd:   {Type: StoreSD, Value: OperandRt},
	InstrSdl:  {Type: StoreSDL, Value: OperandRt},
	InstrSdr:  {Type: StoreSDR, Value: OperandRt},
	InstrSw:   {Type: StoreSW, Value: OperandRt},
	InstrSwl:  {Type: StoreSWL, Value: OperandRt},
	InstrSwr:  {Type: StoreSWR, Value: OperandRt},
	InstrSh:   {Type: StoreSH, Value: OperandRt},
	InstrSb:   {Type: StoreSB, Value: OperandRt},
	InstrSdc1: {Type: StoreSDC1, Value: OperandFtDouble},
	InstrSwc1: {Type: StoreSWC1, Value: OperandFt},
}

func rr(a, b Operand) BinaryOperands {
	return BinaryOperands{Operands: [2]Operand{a, b}}
}

func preOps(opA, opB UnaryOpType, a, b Operand) BinaryOperands {
	return BinaryOperands{
		OperandOps: [2]UnaryOpType{opA, opB},
		Operands:   [2]Operand{a, b},
	}
}
