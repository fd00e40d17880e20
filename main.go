/*
 * mipsrecomp - Main process.
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

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/n64recomp/mipsrecomp/command/reader"
	"github.com/n64recomp/mipsrecomp/config/buildconfig"
	"github.com/n64recomp/mipsrecomp/config/symfile"
	"github.com/n64recomp/mipsrecomp/jitgen"
	"github.com/n64recomp/mipsrecomp/modsym"
	"github.com/n64recomp/mipsrecomp/rcontext"
	"github.com/n64recomp/mipsrecomp/recompiler"
	"github.com/n64recomp/mipsrecomp/sourcegen"
	"github.com/n64recomp/mipsrecomp/util/hex"
	"github.com/n64recomp/mipsrecomp/util/logger"
)

var Logger *slog.Logger

func main() {
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDumpContext := getopt.BoolLong("dump-context", 'd', "Dump the loaded context to dump.txt/data_dump.txt and exit")
	optConsole := getopt.BoolLong("console", 'c', "Start an interactive console after loading the context")
	optJIT := getopt.BoolLong("jit", 'j', "Also produce a raw native code dump via the JIT backend")
	optModOutput := getopt.StringLong("mod-output", 'm', "", "Write a mod symbol file (Output 1) to this path")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: recomp <config-file> [options]")
		os.Exit(1)
	}
	configPath := args[0]

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}))
	slog.SetDefault(Logger)

	Logger.Info("mipsrecomp started")

	cfg, err := buildconfig.ParseFile(configPath)
	if err != nil {
		Logger.Error("loading build configuration: " + err.Error())
		os.Exit(1)
	}

	table, err := symfile.ParseFile(cfg.SymbolFile)
	if err != nil {
		Logger.Error("loading symbol table: " + err.Error())
		os.Exit(1)
	}

	rom, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		Logger.Error("reading input image: " + err.Error())
		os.Exit(1)
	}

	ctx, err := recompiler.LoadContext(table, rom, cfg)
	if err != nil {
		Logger.Error("building context: " + err.Error())
		os.Exit(1)
	}

	if *optDumpContext {
		if err := dumpContext(ctx); err != nil {
			Logger.Error("dumping context: " + err.Error())
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
		Logger.Error("creating output directory: " + err.Error())
		os.Exit(1)
	}

	if failed := recompileToSource(ctx, cfg); failed {
		os.Exit(1)
	}

	if *optJIT {
		if err := dumpJIT(ctx, cfg); err != nil {
			Logger.Error("JIT recompilation: " + err.Error())
			os.Exit(1)
		}
	}

	if *optModOutput != "" {
		if err := writeModOutput(ctx, *optModOutput); err != nil {
			Logger.Error("writing mod symbol file: " + err.Error())
			os.Exit(1)
		}
	}

	if *optConsole {
		reader.ConsoleReader(ctx)
	}
}

func recompileToSource(ctx *rcontext.Context, cfg *buildconfig.Config) (failed bool) {
	outPath := cfg.OutputPath + "/recompiled.go"
	f, err := os.Create(outPath)
	if err != nil {
		Logger.Error("creating source output: " + err.Error())
		return true
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "package recompiled")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "import (")
	fmt.Fprintln(w, `	"fmt"`)
	fmt.Fprintln(w, `	"math"`)
	fmt.Fprintln(w)
	fmt.Fprintln(w, `	"github.com/n64recomp/mipsrecomp/runtime"`)
	fmt.Fprintln(w, ")")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "var _ = math.Abs")
	fmt.Fprintln(w, "var _ = fmt.Sprintf")
	fmt.Fprintln(w)

	gen := sourcegen.New(w)
	errs := recompiler.RunAll(ctx, gen)
	for _, e := range errs {
		Logger.Error(e.Error())
	}
	if err := w.Flush(); err != nil {
		Logger.Error("flushing source output: " + err.Error())
		return true
	}
	return len(errs) > 0 || gen.Errored()
}

func dumpJIT(ctx *rcontext.Context, cfg *buildconfig.Config) error {
	live := jitgen.NewLiveGeneratorContext()
	gen := jitgen.New(live)
	errs := recompiler.RunAll(ctx, gen)
	for _, e := range errs {
		Logger.Error(e.Error())
	}

	out, err := live.Finish()
	if err != nil {
		return err
	}
	defer out.Close()

	return os.WriteFile(cfg.OutputPath+"/recompiled.bin", out.Code, 0o644)
}

func writeModOutput(ctx *rcontext.Context, path string) error {
	data, err := modsym.Serialize(ctx, func(sectionIndex uint16) uint32 {
		return ctx.Sections[sectionIndex].RomOffset
	})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func dumpContext(ctx *rcontext.Context) error {
	dumpFile, err := os.Create("dump.txt")
	if err != nil {
		return err
	}
	defer dumpFile.Close()
	w := bufio.NewWriter(dumpFile)

	for i, s := range ctx.Sections {
		fmt.Fprintf(w, "section %d: %-16s rom=0x%08X vram=0x%08X size=0x%08X exec=%v reloc=%v\n",
			i, s.Name, s.RomOffset, s.Vram, s.Size, s.Executable, s.Relocatable)
		for _, fi := range ctx.FunctionsInSection(i) {
			f := ctx.Functions[fi]
			fmt.Fprintf(w, "  function %d: %-24s vram=0x%08X words=%d\n", fi, f.Name, f.Vram, len(f.Words))
		}
		for _, r := range s.Relocs {
			fmt.Fprintf(w, "  reloc vram=0x%08X -> section=%d offset=0x%08X type=%d\n",
				r.Address, r.TargetSection, r.TargetSectionOffset, r.Type)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	dataFile, err := os.Create("data_dump.txt")
	if err != nil {
		return err
	}
	defer dataFile.Close()
	dw := bufio.NewWriter(dataFile)

	for _, f := range ctx.Functions {
		var b strings.Builder
		hex.FormatWord(&b, f.Words)
		fmt.Fprintf(dw, "%-24s vram=0x%08X: %s\n", f.Name, f.Vram, b.String())
	}
	return dw.Flush()
}
