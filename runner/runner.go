package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"github.com/enigmatic-code/minizinc/mzn"
	"github.com/enigmatic-code/minizinc/stream"
)

// stderrTail is how much solver stderr is kept for error reports.
const stderrTail = 4096

// ExitError reports a solver that exited unsuccessfully.
type ExitError struct {
	Code   int
	Stderr string // Last part of the solver's stderr
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("runner: solver exited with status %d", e.Code)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

// Run is a running solver. Solutions are read with Next or All; Close must
// be called to release the process and the staged model.
type Run struct {
	opts   Options
	fields []string

	model  *Model
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdout io.ReadCloser
	lines  *stream.LineReader
	dec    *stream.Decoder
	pumps  *errgroup.Group
	tail   *tailBuffer

	count  int
	eof    bool
	closed bool
}

// Solve stages model, starts the solver and returns the running Run.
// ictx supplies index sets for indexed arrays and may be nil; with
// UseEnum, enums declared in the model take precedence over it.
// Cancelling ctx kills the solver.
func Solve(ctx context.Context, model string, opts Options, ictx mzn.IndexContext) (*Run, error) {
	log := opts.logger()

	m, err := Stage(model, opts.Encoding)
	if err != nil {
		return nil, err
	}
	r := &Run{opts: opts, model: m, fields: mzn.ParseFields(opts.Result)}

	solver := opts.Solver
	if (opts.UseShebang && solver == "") || opts.UseEnum || opts.Verbose > 2 {
		text, err := m.Text()
		if err != nil {
			m.Close()
			return nil, err
		}
		if opts.Verbose > 2 {
			log.Debug("model", "path", m.Path, "text", strings.TrimSpace(text), "fmt", opts.Format)
		}
		if opts.UseShebang && solver == "" {
			if solver, err = Shebang(text); err != nil {
				m.Close()
				return nil, err
			}
		}
		if opts.UseEnum {
			sets := mzn.ScanIndexSets(text)
			log.Debug("enum index sets", "names", sets.Names())
			ictx = mzn.Layer(sets, ictx)
		}
	}
	if solver == "" {
		solver = DefaultSolver
	}

	argv, err := Command(solver, m.Path, opts.UseShell)
	if err != nil {
		m.Close()
		return nil, err
	}
	if opts.Verbose > 1 {
		log.Info("solver", "argv", argv, "dir", opts.Dir)
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		m.Close()
		return nil, fmt.Errorf("runner: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		m.Close()
		return nil, fmt.Errorf("runner: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		m.Close()
		return nil, fmt.Errorf("runner: start %s: %w", argv[0], err)
	}

	r.cmd = cmd
	r.cancel = cancel
	r.stdout = stdout
	r.tail = &tailBuffer{max: stderrTail}
	r.pumps = &errgroup.Group{}
	r.pumps.Go(func() error {
		return pumpLines(stderr, stderrTail, func(line string) {
			r.tail.WriteLine(line)
			log.Debug("solver stderr", "line", line)
		})
	})

	r.lines = stream.NewLineReader(stdout, stream.WithEncoding(opts.Encoding))
	r.dec = stream.NewDecoder(r.lines, ictx)
	return r, nil
}

// Command builds the argv running solver on path. Without a shell the
// solver string is split with POSIX shell quoting and $VAR expansion.
func Command(solver, path string, useShell bool) ([]string, error) {
	if useShell {
		if runtime.GOOS == "windows" {
			return []string{"cmd", "/C", solver + ` "` + path + `"`}, nil
		}
		quoted, err := syntax.Quote(path, syntax.LangPOSIX)
		if err != nil {
			return nil, fmt.Errorf("runner: quote %q: %w", path, err)
		}
		return []string{"sh", "-c", solver + " " + quoted}, nil
	}

	argv, err := shell.Fields(solver, nil)
	if err != nil {
		return nil, fmt.Errorf("runner: solver %q: %w", solver, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("runner: empty solver command")
	}
	return append(argv, path), nil
}

// Next returns the next solution; io.EOF after the last one. A
// *mzn.DecodeError affects one assignment or block only and the next call
// continues.
func (r *Run) Next() (*mzn.Solution, error) {
	if r.closed {
		return nil, io.EOF
	}
	sol, err := r.dec.Next()
	if err == io.EOF {
		r.eof = true
		return nil, io.EOF
	}
	if err != nil {
		var de *mzn.DecodeError
		if errors.As(err, &de) {
			r.opts.logger().Warn("decode", "err", err)
		}
		return nil, err
	}
	r.count++
	if r.opts.Verbose > 0 {
		r.opts.logger().Info("solution", "n", r.count, "values", mzn.FormatSolution(sol))
	}
	return sol, nil
}

// All returns the solutions as a lazy sequence. Breaking out of the loop
// leaves the solver to be stopped by Close.
func (r *Run) All() iter.Seq2[*mzn.Solution, error] {
	return func(yield func(*mzn.Solution, error) bool) {
		for {
			sol, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(sol, err) {
				return
			}
			var de *mzn.DecodeError
			if err != nil && !errors.As(err, &de) {
				return
			}
		}
	}
}

// Record returns the values of the Result fields, in order. Without
// Result fields, every value in solution order.
func (r *Run) Record(sol *mzn.Solution) ([]*mzn.Value, error) {
	if len(r.fields) == 0 {
		return sol.Record(sol.Names()...)
	}
	return sol.Record(r.fields...)
}

// Format renders a solution with the Format template, or as name=value
// pairs without one.
func (r *Run) Format(sol *mzn.Solution) string {
	if r.opts.Format != "" {
		return mzn.Substitute(r.opts.Format, sol)
	}
	return mzn.FormatSolution(sol)
}

// Status returns the solver's final search status, e.g. mzn.StatusComplete.
func (r *Run) Status() string {
	return r.dec.Status()
}

// Close waits for the solver, stopping it first if its output was not read
// to the end, and removes a staged model file. A failed solver is reported
// as *ExitError.
func (r *Run) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	defer r.model.Close()
	defer r.cancel()
	defer r.lines.Close()

	stopped := !r.eof
	if stopped {
		r.cancel()
	}
	io.Copy(io.Discard, r.stdout)
	pumpErr := r.pumps.Wait()
	err := r.cmd.Wait()

	if stopped {
		return nil
	}
	var xe *exec.ExitError
	if errors.As(err, &xe) {
		return &ExitError{Code: xe.ExitCode(), Stderr: r.tail.String()}
	}
	if err != nil {
		return fmt.Errorf("runner: wait: %w", err)
	}
	if pumpErr != nil {
		return fmt.Errorf("runner: stderr: %w", pumpErr)
	}
	return nil
}

// pumpLines reads r to EOF, passing each line to fn without its newline.
// Lines longer than limit bytes are cut to limit; the rest of such a line is
// still read and dropped.
func pumpLines(r io.Reader, limit int, fn func(string)) error {
	br := bufio.NewReader(r)
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if room := limit - len(line); room > 0 {
			line = append(line, chunk[:min(room, len(chunk))]...)
		}
		switch err {
		case bufio.ErrBufferFull:
			continue
		case nil:
			fn(strings.TrimRight(string(line), "\r\n"))
			line = line[:0]
		case io.EOF:
			if len(line) > 0 {
				fn(strings.TrimRight(string(line), "\r\n"))
			}
			return nil
		default:
			return err
		}
	}
}

// tailBuffer keeps the last max bytes of whole lines written to it.
type tailBuffer struct {
	max   int
	lines []string
	size  int
}

func (t *tailBuffer) WriteLine(line string) {
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > t.max && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, "\n")
}
