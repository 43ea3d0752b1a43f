// Package runner runs a MiniZinc model through an external solver and
// decodes its output into solutions.
//
//	run, err := runner.Solve(ctx, "model.mzn", runner.DefaultOptions(), nil)
//	if err != nil { ... }
//	defer run.Close()
//	for sol, err := range run.All() { ... }
package runner

import (
	"log/slog"
	"runtime"
)

// DefaultSolver is the solver command used when none is configured.
const DefaultSolver = "minizinc -a"

// Options configures a solver run. Field names follow the key=value
// argument spelling (solver=..., use_enum=1, ...).
type Options struct {
	// Solver command line, split with shell quoting rules. The model path
	// is appended. Empty means DefaultSolver, or the model's shebang when
	// UseShebang is set.
	Solver string `yaml:"solver" json:"solver"`

	// Encoding of the model file and the solver output (default: utf-8).
	Encoding string `yaml:"encoding" json:"encoding"`

	// Result lists the fields returned by Run.Record ("a b c" or "a, b, c").
	Result string `yaml:"result" json:"result"`

	// Format is the output template for Run.Format, e.g. "x={x} y={y}".
	Format string `yaml:"fmt" json:"fmt"`

	// UseShebang reads the solver from a "%#! <solver>" first model line.
	UseShebang bool `yaml:"use_shebang" json:"use_shebang"`

	// UseEnum scans the model for enum declarations and uses them as
	// index sets.
	UseEnum bool `yaml:"use_enum" json:"use_enum"`

	// Verbose: 1 logs solutions, 2 the solver command, 3 the model.
	Verbose int `yaml:"verbose" json:"verbose"`

	// Dir is the solver working directory (MiniZinc install dir on Windows).
	Dir string `yaml:"mzn_dir" json:"mzn_dir"`

	// UseShell runs the solver command through the system shell.
	UseShell bool `yaml:"use_shell" json:"use_shell"`

	// Logger receives diagnostics (default: slog.Default()).
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Encoding: "utf-8",
		UseShell: runtime.GOOS == "windows",
	}
}

// SolverCommand returns the configured solver or DefaultSolver.
func (o Options) SolverCommand() string {
	if o.Solver == "" {
		return DefaultSolver
	}
	return o.Solver
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
