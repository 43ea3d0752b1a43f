// mzn - run MiniZinc models and decode solver output
//
// Usage:
//
//	mzn solve [flags] [key=value ...] <model>   Run a model, print each solution
//	mzn decode [flags] [pattern ...]             Decode recorded solver output
//	mzn version                                  Print version info
//
// The model is a .mzn file or the model text itself. key=value arguments
// take the same keys as MZN_DEBUG (solver, result, fmt, use_enum, ...).
// Decode patterns may use ** globs; .gz and .zst transcripts are
// decompressed. Without patterns decode reads stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/fatih/color"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/enigmatic-code/minizinc/config"
	"github.com/enigmatic-code/minizinc/mzn"
	"github.com/enigmatic-code/minizinc/runner"
	"github.com/enigmatic-code/minizinc/stream"
)

const version = "0.3.0"

var (
	app = kingpin.New("mzn", "Run MiniZinc models and decode solver output.")

	jsonOut = app.Flag("json", "Print solutions as JSON objects.").Bool()
	useCol  = app.Flag("color", "Highlight variable names.").Default("true").Bool()
	verbose = app.Flag("verbose", "Verbosity: 1 solutions, 2 solver command, 3 model.").Short('v').Int()

	solveCmd    = app.Command("solve", "Run a model and print each solution.")
	solveConfig = solveCmd.Flag("config", "Options file (.yaml, .jsonnet or .json).").String()
	solveSolver = solveCmd.Flag("solver", "Solver command line (default: minizinc -a).").Short('s').String()
	solveEnc    = solveCmd.Flag("encoding", "Model and output encoding.").String()
	solveResult = solveCmd.Flag("result", "Fields to print, in order.").String()
	solveFmt    = solveCmd.Flag("fmt", "Output template, e.g. 'x={x}'.").String()
	solveBang   = solveCmd.Flag("shebang", "Take the solver from a '%#!' first model line.").Bool()
	solveEnum   = solveCmd.Flag("enum", "Use enum declarations in the model as index sets.").Bool()
	solveDir    = solveCmd.Flag("dir", "Solver working directory.").String()
	solveShell  = solveCmd.Flag("shell", "Run the solver through the system shell.").Bool()
	solveArgs   = solveCmd.Arg("args", "key=value options followed by the model.").Required().Strings()

	decodeCmd      = app.Command("decode", "Decode recorded solver output.")
	decodeModel    = decodeCmd.Flag("model", "Model file supplying enum index sets.").String()
	decodeEnc      = decodeCmd.Flag("encoding", "Input encoding.").Default("utf-8").String()
	decodeUnique   = decodeCmd.Flag("unique", "Drop repeated solutions.").Bool()
	decodeFallback = decodeCmd.Flag("fallback", "Decode blocks starting with '{' as JSON.").Default("true").Bool()
	decodePatterns = decodeCmd.Arg("pattern", "Files to decode; ** globs allowed.").Strings()

	versionCmd = app.Command("version", "Print version info.")
)

func main() {
	app.HelpFlag.Short('h')
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	setupLogging(*verbose)
	if !*useCol {
		color.NoColor = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd {
	case solveCmd.FullCommand():
		err = cmdSolve(ctx)
	case decodeCmd.FullCommand():
		err = cmdDecode()
	case versionCmd.FullCommand():
		fmt.Printf("mzn %s\n", version)
	}
	if err != nil {
		fatal("%v", err)
	}
}

func setupLogging(v int) {
	level := slog.LevelWarn
	switch {
	case v > 2:
		level = slog.LevelDebug
	case v > 0:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// ============================================================
// solve
// ============================================================

func cmdSolve(ctx context.Context) error {
	opts := config.Defaults()
	if *solveConfig != "" {
		if err := config.Load(*solveConfig, &opts); err != nil {
			return err
		}
	}

	args := *solveArgs
	model := args[len(args)-1]
	if err := config.Apply(&opts, config.ParseArgs(args[:len(args)-1])); err != nil {
		return err
	}
	applyFlags(&opts)
	if raw, err := config.FromEnv(&opts); err != nil {
		return err
	} else if raw != "" {
		slog.Info("override", config.EnvDebug, raw)
	}

	run, err := runner.Solve(ctx, model, opts, nil)
	if err != nil {
		return err
	}

	p := newPrinter(os.Stdout)
	p.run = run
	p.useFmt = opts.Format != ""
	p.useResult = opts.Result != ""
	for sol, err := range run.All() {
		if err != nil {
			if isDecodeError(err) {
				warn(err)
				continue
			}
			run.Close()
			return err
		}
		if err := p.print(sol); err != nil {
			run.Close()
			return err
		}
	}
	if err := run.Close(); err != nil {
		return err
	}
	reportStatus(run.Status())
	return nil
}

func applyFlags(opts *runner.Options) {
	if *solveSolver != "" {
		opts.Solver = *solveSolver
	}
	if *solveEnc != "" {
		opts.Encoding = *solveEnc
	}
	if *solveResult != "" {
		opts.Result = *solveResult
	}
	if *solveFmt != "" {
		opts.Format = *solveFmt
	}
	if *solveDir != "" {
		opts.Dir = *solveDir
	}
	opts.UseShebang = opts.UseShebang || *solveBang
	opts.UseEnum = opts.UseEnum || *solveEnum
	opts.UseShell = opts.UseShell || *solveShell
	opts.Verbose = max(opts.Verbose, *verbose)
	opts.Logger = slog.Default()
}

// ============================================================
// decode
// ============================================================

func cmdDecode() error {
	var sets *mzn.IndexSets
	if *decodeModel != "" {
		if _, err := os.Stat(*decodeModel); err != nil {
			return err
		}
		m, err := runner.Stage(*decodeModel, *decodeEnc)
		if err != nil {
			return err
		}
		text, err := m.Text()
		m.Close()
		if err != nil {
			return err
		}
		sets = mzn.ScanIndexSets(text)
		slog.Info("index sets", "names", sets.Names())
	}

	p := newPrinter(os.Stdout)
	if len(*decodePatterns) == 0 {
		return decodeReader(os.Stdin, "<stdin>", sets, p)
	}

	for _, pattern := range *decodePatterns {
		paths, err := doublestar.Glob(pattern)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", pattern, err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("pattern %q: no matching files", pattern)
		}
		for _, path := range paths {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			err = decodeReader(f, path, sets, p)
			f.Close()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeReader(r io.Reader, name string, sets *mzn.IndexSets, p *printer) error {
	lines := stream.NewLineReader(r,
		stream.WithDecompression(),
		stream.WithEncoding(*decodeEnc),
	)
	defer lines.Close()

	var opts []stream.DecoderOption
	if *decodeUnique {
		opts = append(opts, stream.WithUnique())
	}
	if !*decodeFallback {
		opts = append(opts, stream.WithoutStructuredFallback())
	}
	dec := stream.NewDecoder(lines, sets, opts...)

	for sol, err := range dec.All() {
		if err != nil {
			if isDecodeError(err) {
				warn(fmt.Errorf("%s: %w", name, err))
				continue
			}
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := p.print(sol); err != nil {
			return err
		}
	}
	if dec.Discarded() {
		slog.Warn("trailing output without separator dropped", "file", name)
	}
	if n := dec.Duplicates(); n > 0 {
		slog.Info("duplicates dropped", "file", name, "count", n)
	}
	reportStatus(dec.Status())
	return nil
}

// ============================================================
// Output
// ============================================================

type printer struct {
	w    io.Writer
	name func(a ...interface{}) string

	run       *runner.Run // set by solve
	useFmt    bool
	useResult bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, name: color.New(color.FgCyan).SprintFunc()}
}

// print writes one line for sol: JSON, the run's template or result
// fields, or highlighted name=value pairs.
func (p *printer) print(sol *mzn.Solution) error {
	if *jsonOut {
		data, err := json.Marshal(sol)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(data))
		return err
	}

	if p.run != nil && p.useFmt {
		_, err := fmt.Fprintln(p.w, p.run.Format(sol))
		return err
	}
	if p.run != nil && p.useResult {
		vals, err := p.run.Record(sol)
		if err != nil {
			return err
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = v.String()
		}
		_, err = fmt.Fprintln(p.w, strings.Join(parts, " "))
		return err
	}

	var b strings.Builder
	for name, v := range sol.All() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.name(name))
		b.WriteByte('=')
		b.WriteString(v.String())
	}
	_, err := fmt.Fprintln(p.w, b.String())
	return err
}

func reportStatus(status string) {
	switch status {
	case "", mzn.StatusComplete:
		slog.Info("search finished", "status", status)
	default:
		fmt.Fprintln(os.Stderr, color.YellowString("=====%s=====", status))
	}
}

func warn(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("%v", err))
}

func isDecodeError(err error) bool {
	var de *mzn.DecodeError
	return errors.As(err, &de)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "mzn: "+format+"\n", args...)
	os.Exit(1)
}
