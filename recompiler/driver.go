/*
 * mipsrecomp - whole-context recompilation driver: analyzes and
 * recompiles every known function, queuing any function discovered
 * mid-recompilation for its own pass.
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

import (
	"fmt"

	"github.com/n64recomp/mipsrecomp/analysis"
	"github.com/n64recomp/mipsrecomp/generator"
	"github.com/n64recomp/mipsrecomp/rcontext"
)

// FunctionError pairs a failed function's index with the error that
// stopped its recompilation; other functions still get attempted.
type FunctionError struct {
	FunctionIndex int
	Err           error
}

func (e FunctionError) Error() string {
	return fmt.Sprintf("function %d: %v", e.FunctionIndex, e.Err)
}

// RunAll analyzes and recompiles every function already in ctx
// through gen, discovering and queuing jal-only static functions as
// it goes. It returns one FunctionError per function that failed;
// every other function is still attempted.
func RunAll(ctx *rcontext.Context, gen generator.Generator) []FunctionError {
	var errs []FunctionError

	queue := make([]int, len(ctx.Functions))
	for i := range queue {
		queue[i] = i
	}
	queued := make(map[uint32]bool, len(ctx.Functions))
	for _, f := range ctx.Functions {
		queued[f.Vram] = true
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		fn := &ctx.Functions[idx]
		if fn.Ignored || fn.Stubbed || fn.Reimplemented {
			continue
		}

		stats, err := analysis.AnalyzeFunction(ctx, fn)
		if err != nil {
			errs = append(errs, FunctionError{FunctionIndex: idx, Err: err})
			continue
		}

		result, err := Recompile(ctx, gen, idx, stats)
		if err != nil {
			errs = append(errs, FunctionError{FunctionIndex: idx, Err: err})
			continue
		}

		for _, static := range result.Statics {
			if queued[static.Vram] {
				continue
			}
			queued[static.Vram] = true

			section := ctx.Sections[static.SectionIndex]
			size := section.Vram + section.Size - static.Vram
			romOff := section.RomOffset + (static.Vram - section.Vram)
			words, err := decodeWords(ctx.RomBytes, romOff, size/4)
			if err != nil {
				errs = append(errs, FunctionError{FunctionIndex: idx, Err: err})
				continue
			}
			newIdx := ctx.AddFunction(rcontext.Function{
				Name:         fmt.Sprintf("static_%d_%08X", static.SectionIndex, static.Vram),
				Vram:         static.Vram,
				Rom:          romOff,
				Words:        words,
				SectionIndex: static.SectionIndex,
			})
			queue = append(queue, newIdx)
		}
	}

	return errs
}
