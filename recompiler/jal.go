/*
 * mipsrecomp - JAL target resolution.
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

package recompiler

import "github.com/n64recomp/mipsrecomp/rcontext"

// JalResult classifies how a jal target address resolved.
type JalResult int

const (
	JalNoMatch JalResult = iota
	JalMatch
	JalCreateStatic
	JalAmbiguous
	JalError
)

// ResolveJAL finds the function a jal instruction at sectionIndex
// should call. A target inside the calling section must resolve
// exactly or a new static function is synthesized there; a target
// outside it is disambiguated across every non-relocatable section
// that defines a symbol at that address, falling back to a runtime
// lookup when more than one section could supply it.
func ResolveJAL(ctx *rcontext.Context, sectionIndex int, targetVram uint32) (JalResult, int) {
	section := ctx.Sections[sectionIndex]
	inCurrentSection := targetVram >= section.Vram && targetVram < section.Vram+section.Size

	candidates := ctx.FunctionsAtVram(targetVram)
	exactMatch := -1
	var nonRelocatable []int

	for _, fnIdx := range candidates {
		fn := ctx.Functions[fnIdx]

		if len(fn.Words) == 0 {
			if fn.Vram < 0x8F000000 || fn.Vram > 0x90000000 {
				continue
			}
		}

		if fn.SectionIndex == sectionIndex {
			exactMatch = fnIdx
			nonRelocatable = nil
			break
		}

		if !ctx.Sections[fn.SectionIndex].Relocatable {
			nonRelocatable = append(nonRelocatable, fnIdx)
		}
	}

	if inCurrentSection {
		if exactMatch != -1 {
			return JalMatch, exactMatch
		}
		return JalCreateStatic, 0
	}

	switch len(nonRelocatable) {
	case 0:
		return JalNoMatch, 0
	case 1:
		return JalMatch, nonRelocatable[0]
	default:
		return JalAmbiguous, 0
	}
}
