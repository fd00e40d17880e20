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

package analysis

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/n64recomp/mipsrecomp/ops"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// analyzeInstruction applies one instruction's transition rule to
// regStates/stackStates, mirroring analysis.cpp's analyze_instruction
// switch. Returns false (with a logged reason) when the instruction
// stream can't be analyzed further: misaligned/negative stack offsets,
// $gp use in a section with no defined $gp, or a jr whose source
// register carries no recognizable address computation.
func analyzeInstruction(word uint32, vram uint32, fn *rcontext.Function, stats *FunctionStats, regStates *[32]RegState, stackStates *[]RegState, gpDefined bool) bool {
	id := ops.Decode(word)
	rd := int(ops.Rd(word))
	rs := int(ops.Rs(word))
	rt := int(ops.Rt(word))
	base := rs
	imm := ops.ImmU16(word)
	immS := ops.ImmS16(word)

	checkMove := func() {
		switch {
		case rs == regZero:
			regStates[rd] = regStates[rt]
		case rt == regZero:
			regStates[rd] = regStates[rs]
		default:
			regStates[rd].Invalidate()
		}
	}

	switch id {
	case ops.InstrLui:
		regStates[rt].Invalidate()
		regStates[rt].PrevLui = uint32(immS) << 16
		regStates[rt].ValidLui = true

	case ops.InstrAddiu:
		regStates[rt] = regStates[rs]
		if !regStates[rt].ValidAddiu {
			regStates[rt].PrevAddiu = immS
			regStates[rt].ValidAddiu = true
		} else {
			regStates[rt].Invalidate()
		}

	case ops.InstrAddu:
		var temp RegState
		switch {
		case regStates[rs].ValidGotOffset != regStates[rt].ValidGotOffset:
			gotReg, addendReg := rs, rt
			if !regStates[rs].ValidGotOffset {
				gotReg, addendReg = rt, rs
			}
			temp = regStates[gotReg]
			temp.ValidAddend = true
			temp.PrevAddendReg = addendReg
			temp.PrevAdduVram = vram

		case (rs == regGp || rt == regGp) && regStates[rs].ValidGotLoaded != regStates[rt].ValidGotLoaded:
			gpLoadedReg := rs
			if regStates[rt].ValidGotLoaded {
				gpLoadedReg = rt
			}
			temp = regStates[gpLoadedReg]

		case regStates[rs].ValidLui != regStates[rt].ValidLui:
			luiReg, addendReg := rs, rt
			if !regStates[rs].ValidLui {
				luiReg, addendReg = rt, rs
			}
			temp = regStates[luiReg]
			temp.ValidAddend = true
			temp.PrevAddendReg = addendReg
			temp.PrevAdduVram = vram

		default:
			// addu of two registers neither tracked as an address is
			// a move when one operand is $zero; otherwise temp stays
			// zero-valued and rd is invalidated below.
			switch {
			case rs == regZero:
				temp = regStates[rt]
			case rt == regZero:
				temp = regStates[rs]
			}
		}
		regStates[rd] = temp

	case ops.InstrDaddu, ops.InstrOr:
		checkMove()

	case ops.InstrSw:
		if base == regSp {
			if imm&0b11 != 0 {
				slog.Error("invalid stack store alignment", "offset", int16(imm), "func", fn.Name)
				return false
			}
			if int16(imm) < 0 {
				slog.Error("negative stack store offset", "offset", int16(imm), "func", fn.Name)
				return false
			}
			slot := int(imm / 4)
			growStack(stackStates, slot)
			(*stackStates)[slot] = regStates[rt]
		}

	case ops.InstrLw:
		var temp RegState
		switch {
		case base == regSp:
			if imm&0b11 != 0 {
				slog.Error("invalid stack load alignment", "offset", int16(imm), "func", fn.Name)
				return false
			}
			if int16(imm) < 0 {
				slog.Error("negative stack load offset", "offset", int16(imm), "func", fn.Name)
				return false
			}
			slot := int(imm / 4)
			growStack(stackStates, slot)
			temp = (*stackStates)[slot]

		case regStates[base].ValidLui && regStates[base].ValidAddend:
			nonzero := imm != 0
			if !(nonzero && regStates[base].ValidAddiu) {
				var lo16 uint32
				if nonzero {
					lo16 = uint32(immS)
				} else {
					lo16 = uint32(regStates[base].PrevAddiu)
				}
				temp.ValidLoaded = true
				temp.LoadedLwVram = vram
				temp.LoadedAddress = regStates[base].PrevLui + lo16
				temp.LoadedAddendReg = regStates[base].PrevAddendReg
				temp.LoadedAdduVram = regStates[base].PrevAdduVram
			}

		case regStates[base].ValidGotOffset && regStates[base].ValidAddend:
			temp.ValidGotLoaded = true
			temp.LoadedLwVram = vram
			temp.LoadedAddress = imm
			temp.LoadedAddendReg = regStates[base].PrevAddendReg
			temp.LoadedAdduVram = regStates[base].PrevAdduVram
			temp.PrevGotOffset = regStates[base].PrevGotOffset

		case base == regGp:
			if !gpDefined {
				slog.Error("$gp used in section with no defined $gp", "vram", fmt.Sprintf("%#08x", vram), "func", fn.Name)
				return false
			}
			temp.PrevGotOffset = imm
			temp.ValidGotOffset = true
		}
		regStates[rt] = temp

	case ops.InstrJr:
		if rs == regRa {
			break
		}
		switch {
		case regStates[rs].ValidLoaded:
			stats.JumpTables = append(stats.JumpTables, JumpTable{
				Vram:      regStates[rs].LoadedAddress,
				AddendReg: regStates[rs].LoadedAddendReg,
				LwVram:    regStates[rs].LoadedLwVram,
				AdduVram:  regStates[rs].LoadedAdduVram,
				JrVram:    vram,
			})
		case regStates[rs].ValidGotLoaded:
			stats.JumpTables = append(stats.JumpTables, JumpTable{
				Vram:         regStates[rs].LoadedAddress,
				AddendReg:    regStates[rs].LoadedAddendReg,
				LwVram:       regStates[rs].LoadedLwVram,
				AdduVram:     regStates[rs].LoadedAdduVram,
				JrVram:       vram,
				GotOffset:    regStates[rs].PrevGotOffset,
				HasGotOffset: true,
			})
		case regStates[rs].ValidLui && regStates[rs].ValidAddiu && !regStates[rs].ValidAddend && !regStates[rs].ValidLoaded:
			stats.AbsoluteJumps = append(stats.AbsoluteJumps, AbsoluteJump{
				Target: regStates[rs].PrevLui + uint32(regStates[rs].PrevAddiu),
				JrVram: vram,
			})
		case isLastWord(fn, vram):
			// Tail call via a register load we couldn't track (e.g. a
			// pointer staged through a struct field). Decided in favor
			// of tolerating this rather than failing the whole
			// function: see the design notes on JR-as-tail-call.
			slog.Warn("jr treated as tail call, target unknown", "vram", fmt.Sprintf("%#08x", vram), "func", fn.Name)
		default:
			slog.Error("failed to find jump table for jr", "reg", rs, "vram", fmt.Sprintf("%#08x", vram), "func", fn.Name)
			return false
		}

	default:
		if modifiesRd(id) {
			regStates[rd].Invalidate()
		}
		if modifiesRt(id) {
			regStates[rt].Invalidate()
		}
	}
	return true
}

func growStack(stackStates *[]RegState, slot int) {
	if slot >= len(*stackStates) {
		grown := make([]RegState, slot+1)
		copy(grown, *stackStates)
		*stackStates = grown
	}
}

func isLastWord(fn *rcontext.Function, vram uint32) bool {
	return vram == fn.Vram+uint32(len(fn.Words)-2)*4
}

// modifiesRd reports whether id's table entry, if any, writes Rd.
func modifiesRd(id ops.InstrId) bool {
	if op, ok := ops.BinaryOps[id]; ok {
		return op.Output == ops.OperandRd
	}
	if op, ok := ops.UnaryOps[id]; ok {
		return op.Output == ops.OperandRd
	}
	return false
}

// modifiesRt reports whether id's table entry, if any, writes Rt.
func modifiesRt(id ops.InstrId) bool {
	if op, ok := ops.BinaryOps[id]; ok {
		return op.Output == ops.OperandRt
	}
	if op, ok := ops.UnaryOps[id]; ok {
		return op.Output == ops.OperandRt
	}
	return false
}

// AnalyzeFunction runs the jump-table/absolute-jump recovery pass
// over fn's instruction words and returns the accumulated stats, or
// an error if the instruction stream couldn't be fully classified.
func AnalyzeFunction(ctx *rcontext.Context, fn *rcontext.Function) (FunctionStats, error) {
	var stats FunctionStats
	section := &ctx.Sections[fn.SectionIndex]

	var regStates [32]RegState
	var stackStates []RegState

	for i, word := range fn.Words {
		vram := fn.Vram + uint32(i)*4
		if !analyzeInstruction(word, vram, fn, &stats, &regStates, &stackStates, section.HasGpRamAddr) {
			return stats, fmt.Errorf("analysis failed in function %q", fn.Name)
		}
	}

	if section.HasGpRamAddr {
		gpRomAddr := section.GpRamAddr + fn.Rom - fn.Vram
		for i := range stats.JumpTables {
			jt := &stats.JumpTables[i]
			if !jt.HasGotOffset {
				continue
			}
			gotWord := readRomWordBE(ctx.RomBytes, gpRomAddr+jt.GotOffset)
			jt.Vram += section.Vram + gotWord
		}
	}

	sort.Slice(stats.JumpTables, func(i, j int) bool {
		return stats.JumpTables[i].Vram < stats.JumpTables[j].Vram
	})

	for i := range stats.JumpTables {
		jt := &stats.JumpTables[i]
		endAddress := ^uint32(0)
		if i < len(stats.JumpTables)-1 {
			endAddress = stats.JumpTables[i+1].Vram
		}

		jt.Rom = jt.Vram + fn.Rom - fn.Vram

		for vram := jt.Vram; vram < endAddress; vram += 4 {
			romAddr := vram + fn.Rom - fn.Vram
			word := readRomWordBE(ctx.RomBytes, romAddr)
			if section.HasGpRamAddr && jt.HasGotOffset {
				word += section.GpRamAddr
			}
			if word < fn.Vram || word >= fn.Vram+uint32(len(fn.Words))*4 {
				break
			}
			jt.Entries = append(jt.Entries, word)
		}

		if len(jt.Entries) == 0 {
			return stats, fmt.Errorf("failed to determine size of jump table at %#08x for jr at %#08x", jt.Vram, jt.JrVram)
		}
	}

	return stats, nil
}

func readRomWordBE(rom []byte, addr uint32) uint32 {
	return uint32(rom[addr])<<24 | uint32(rom[addr+1])<<16 | uint32(rom[addr+2])<<8 | uint32(rom[addr+3])
}
