package ops

// Field extraction for the standard MIPS III word layout: opcode in
// bits 31-26, rs in 25-21, rt in 20-16, rd in 15-11, sa in 10-6, funct
// in 5-0. Mirrors the teacher's emu/disassemble switch-on-field decode
// idiom, generalized from S/370's variable-length formats to MIPS's
// fixed 32-bit word.

func Opcode(word uint32) uint32 { return (word >> 26) & 0x3f }
func Rs(word uint32) uint32     { return (word >> 21) & 0x1f }
func Rt(word uint32) uint32     { return (word >> 16) & 0x1f }
func Rd(word uint32) uint32     { return (word >> 11) & 0x1f }
func Sa(word uint32) uint32     { return (word >> 6) & 0x1f }
func Funct(word uint32) uint32  { return word & 0x3f }
func ImmU16(word uint32) uint32 { return word & 0xffff }
func ImmS16(word uint32) int32  { return int32(int16(word & 0xffff)) }
func Target(word uint32) uint32 { return word & 0x3ffffff }

// Fmt extracts the COP1 format field (bits 25-21), used to distinguish
// single/double/word/long variants of the same funct code.
func Fmt(word uint32) uint32 { return (word >> 21) & 0x1f }

const (
	fmtSingle = 16
	fmtDouble = 17
	fmtWord   = 20
	fmtLong   = 21
)

const (
	opSpecial = 0x00
	opRegimm  = 0x01
	opJ       = 0x02
	opJal     = 0x03
	opBeq     = 0x04
	opBne     = 0x05
	opBlez    = 0x06
	opBgtz    = 0x07
	opAddi    = 0x08
	opAddiu   = 0x09
	opSlti    = 0x0a
	opSltiu   = 0x0b
	opAndi    = 0x0c
	opOri     = 0x0d
	opXori    = 0x0e
	opLui     = 0x0f
	opCop0    = 0x10
	opCop1    = 0x11
	opBeql    = 0x14
	opBnel    = 0x15
	opBlezl   = 0x16
	opBgtzl   = 0x17
	opDaddi   = 0x18
	opDaddiu  = 0x19
	opLdl     = 0x1a
	opLdr     = 0x1b
	opLb      = 0x20
	opLh      = 0x21
	opLwl     = 0x22
	opLw      = 0x23
	opLbu     = 0x24
	opLhu     = 0x25
	opLwr     = 0x26
	opLwu     = 0x27
	opSb      = 0x28
	opSh      = 0x29
	opSwl     = 0x2a
	opSw      = 0x2b
	opSdl     = 0x2c
	opSdr     = 0x2d
	opSwr     = 0x2e
	opLwc1    = 0x31
	opLdc1    = 0x35
	opSwc1    = 0x39
	opSdc1    = 0x3d
	opLd      = 0x37
	opSd      = 0x3f
)

const (
	fnSll     = 0x00
	fnSrl     = 0x02
	fnSra     = 0x03
	fnSllv    = 0x04
	fnSrlv    = 0x06
	fnSrav    = 0x07
	fnJr      = 0x08
	fnJalr    = 0x09
	fnSyscall = 0x0c
	fnBreak   = 0x0d
	fnMfhi    = 0x10
	fnMthi    = 0x11
	fnMflo    = 0x12
	fnMtlo    = 0x13
	fnDsllv   = 0x14
	fnDsrlv   = 0x16
	fnDsrav   = 0x17
	fnMult    = 0x18
	fnMultu   = 0x19
	fnDiv     = 0x1a
	fnDivu    = 0x1b
	fnDmult   = 0x1c
	fnDmultu  = 0x1d
	fnDdiv    = 0x1e
	fnDdivu   = 0x1f
	fnAdd     = 0x20
	fnAddu    = 0x21
	fnSub     = 0x22
	fnSubu    = 0x23
	fnAnd     = 0x24
	fnOr      = 0x25
	fnXor     = 0x26
	fnNor     = 0x27
	fnSlt     = 0x2a
	fnSltu    = 0x2b
	fnDadd    = 0x2c
	fnDaddu   = 0x2d
	fnDsub    = 0x2e
	fnDsubu   = 0x2f
	fnDsll    = 0x38
	fnDsrl    = 0x3a
	fnDsra    = 0x3b
	fnDsll32  = 0x3c
	fnDsrl32  = 0x3e
	fnDsra32  = 0x3f
)

const (
	rtBltz   = 0x00
	rtBgez   = 0x01
	rtBltzal = 0x10
	rtBgezal = 0x11
)

const (
	cop1Mfc1 = 0x00
	cop1Cfc1 = 0x02
	cop1Mtc1 = 0x04
	cop1Ctc1 = 0x06
)

const (
	fnCvtS  = 0x20
	fnCvtD  = 0x21
	fnCvtW  = 0x24
	fnCvtL  = 0x25
	fnAddFp = 0x00
	fnSubFp = 0x01
	fnMulFp = 0x02
	fnDivFp = 0x03
	fnSqrt  = 0x04
	fnAbs   = 0x05
	fnMov   = 0x06
	fnNeg   = 0x07
	fnRound = 0x08
	fnTrunc = 0x09
	fnCeil  = 0x0a
	fnFloor = 0x0c
	fnCLt   = 0x3c
	fnCLe   = 0x3e
	fnCEq   = 0x32
)

// Decode identifies the instruction a raw 32-bit MIPS word encodes.
// Returns InstrInvalid for anything not recognized: the caller
// (analysis/recompiler) treats that as a fatal decode error for the
// containing function, since guessing at unrecognized encodings would
// silently corrupt recompiled control flow.
func Decode(word uint32) InstrId {
	switch op := Opcode(word); op {
	case opSpecial:
		return decodeSpecial(word)
	case opRegimm:
		return decodeRegimm(word)
	case opCop1:
		return decodeCop1(word)
	case opJ:
		return InstrJ
	case opJal:
		return InstrJal
	case opBeq:
		return InstrBeq
	case opBne:
		return InstrBne
	case opBlez:
		return InstrBlez
	case opBgtz:
		return InstrBgtz
	case opAddi:
		return InstrAddi
	case opAddiu:
		return InstrAddiu
	case opSlti:
		return InstrSlti
	case opSltiu:
		return InstrSltiu
	case opAndi:
		return InstrAndi
	case opOri:
		return InstrOri
	case opXori:
		return InstrXori
	case opLui:
		return InstrLui
	case opBeql:
		return InstrBeql
	case opBnel:
		return InstrBnel
	case opBlezl:
		return InstrBlezl
	case opBgtzl:
		return InstrBgtzl
	case opDaddi:
		return InstrDaddi
	case opDaddiu:
		return InstrDaddiu
	case opLdl:
		return InstrLdl
	case opLdr:
		return InstrLdr
	case opLb:
		return InstrLb
	case opLh:
		return InstrLh
	case opLwl:
		return InstrLwl
	case opLw:
		return InstrLw
	case opLbu:
		return InstrLbu
	case opLhu:
		return InstrLhu
	case opLwr:
		return InstrLwr
	case opLwu:
		return InstrLwu
	case opSb:
		return InstrSb
	case opSh:
		return InstrSh
	case opSwl:
		return InstrSwl
	case opSw:
		return InstrSw
	case opSdl:
		return InstrSdl
	case opSdr:
		return InstrSdr
	case opSwr:
		return InstrSwr
	case opLwc1:
		return InstrLwc1
	case opLdc1:
		return InstrLdc1
	case opSwc1:
		return InstrSwc1
	case opSdc1:
		return InstrSdc1
	case opLd:
		return InstrLd
	case opSd:
		return InstrSd
	default:
		return InstrInvalid
	}
}

func decodeSpecial(word uint32) InstrId {
	switch Funct(word) {
	case fnSll:
		return InstrSll
	case fnSrl:
		return InstrSrl
	case fnSra:
		return InstrSra
	case fnSllv:
		return InstrSllv
	case fnSrlv:
		return InstrSrlv
	case fnSrav:
		return InstrSrav
	case fnJr:
		return InstrJr
	case fnJalr:
		return InstrJalr
	case fnSyscall:
		return InstrSyscall
	case fnBreak:
		return InstrBreak
	case fnMfhi:
		return InstrMfhi
	case fnMthi:
		return InstrMthi
	case fnMflo:
		return InstrMflo
	case fnMtlo:
		return InstrMtlo
	case fnDsllv:
		return InstrDsllv
	case fnDsrlv:
		return InstrDsrlv
	case fnDsrav:
		return InstrDsrav
	case fnMult:
		return InstrMult
	case fnMultu:
		return InstrMultu
	case fnDiv:
		return InstrDiv
	case fnDivu:
		return InstrDivu
	case fnDmult:
		return InstrDmult
	case fnDmultu:
		return InstrDmultu
	case fnDdiv:
		return InstrDdiv
	case fnDdivu:
		return InstrDdivu
	case fnAdd:
		return InstrAdd
	case fnAddu:
		return InstrAddu
	case fnSub:
		return InstrSub
	case fnSubu:
		return InstrSubu
	case fnAnd:
		return InstrAnd
	case fnOr:
		return InstrOr
	case fnXor:
		return InstrXor
	case fnNor:
		return InstrNor
	case fnSlt:
		return InstrSlt
	case fnSltu:
		return InstrSltu
	case fnDadd:
		return InstrDadd
	case fnDaddu:
		return InstrDaddu
	case fnDsub:
		return InstrDsub
	case fnDsubu:
		return InstrDsubu
	case fnDsll:
		return InstrDsll
	case fnDsrl:
		return InstrDsrl
	case fnDsra:
		return InstrDsra
	case fnDsll32:
		return InstrDsll32
	case fnDsrl32:
		return InstrDsrl32
	case fnDsra32:
		return InstrDsra32
	default:
		return InstrInvalid
	}
}

func decodeRegimm(word uint32) InstrId {
	switch Rt(word) {
	case rtBltz:
		return InstrBltz
	case rtBgez:
		return InstrBgez
	case rtBltzal:
		return InstrBltzal
	case rtBgezal:
		return InstrBgezal
	default:
		return InstrInvalid
	}
}

func decodeCop1(word uint32) InstrId {
	switch Fmt(word) {
	case cop1Mfc1:
		return InstrMfc1
	case cop1Cfc1:
		return InstrCfc1
	case cop1Mtc1:
		return InstrMtc1
	case cop1Ctc1:
		return InstrCtc1
	case fmtSingle:
		return decodeCop1Arith(word, false)
	case fmtDouble:
		return decodeCop1Arith(word, true)
	case fmtWord, fmtLong:
		return decodeCop1Convert(word)
	default:
		return InstrInvalid
	}
}

func decodeCop1Arith(word uint32, double bool) InstrId {
	switch fn := Funct(word); fn {
	case fnAddFp:
		if double {
			return InstrAddD
		}
		return InstrAddS
	case fnSubFp:
		if double {
			return InstrSubD
		}
		return InstrSubS
	case fnMulFp:
		if double {
			return InstrMulD
		}
		return InstrMulS
	case fnDivFp:
		if double {
			return InstrDivD
		}
		return InstrDivS
	case fnSqrt:
		if double {
			return InstrSqrtD
		}
		return InstrSqrtS
	case fnAbs:
		if double {
			return InstrAbsD
		}
		return InstrAbsS
	case fnMov:
		if double {
			return InstrMovD
		}
		return InstrMovS
	case fnNeg:
		if double {
			return InstrNegD
		}
		return InstrNegS
	case fnRound:
		if double {
			return InstrRoundWD
		}
		return InstrRoundWS
	case fnTrunc:
		if double {
			return InstrTruncWD
		}
		return InstrTruncWS
	case fnCeil:
		if double {
			return InstrCeilWD
		}
		return InstrCeilWS
	case fnFloor:
		if double {
			return InstrFloorWD
		}
		return InstrFloorWS
	case fnCLt:
		if double {
			return InstrCLtD
		}
		return InstrCLtS
	case fnCLe:
		if double {
			return InstrCLeD
		}
		return InstrCLeS
	case fnCEq:
		if double {
			return InstrCEqD
		}
		return InstrCEqS
	case fnCvtD:
		if double {
			return InstrInvalid
		}
		return InstrCvtDS
	case fnCvtW:
		if double {
			return InstrCvtWD
		}
		return InstrCvtWS
	case fnCvtL:
		if double {
			return InstrCvtLD
		}
		return InstrCvtLS
	case fnCvtS:
		if double {
			return InstrCvtSD
		}
		return InstrInvalid
	default:
		return InstrInvalid
	}
}

func decodeCop1Convert(word uint32) InstrId {
	long := Fmt(word) == fmtLong
	switch Funct(word) {
	case fnCvtS:
		if long {
			return InstrCvtSL
		}
		return InstrCvtSW
	case fnCvtD:
		if long {
			return InstrCvtDL
		}
		return InstrCvtDW
	default:
		return InstrInvalid
	}
}
