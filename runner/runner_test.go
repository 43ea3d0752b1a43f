package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"mvdan.cc/sh/v3/syntax"

	"github.com/enigmatic-code/minizinc/mzn"
)

// ============================================================
// Fake solver
// ============================================================

// TestHelperProcess is not a real test. It stands in for the solver when
// the test binary is started by helperSolver.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	path := os.Args[len(os.Args)-1]
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(os.Stderr, "no model: %v\n", err)
		os.Exit(2)
	}

	switch os.Getenv("HELPER_MODE") {
	case "solutions":
		fmt.Println("x = 1;")
		fmt.Println("y = [1, 2];")
		fmt.Println("----------")
		fmt.Println("x = 2;")
		fmt.Println("y = [3, 4];")
		fmt.Println("----------")
		fmt.Println("==========")
	case "enum":
		fmt.Println("q = array1d(Color, [3, 1, 2]);")
		fmt.Println("----------")
		fmt.Println("==========")
	case "unsat":
		fmt.Println("=====UNSATISFIABLE=====")
	case "fail":
		fmt.Println("x = 1;")
		fmt.Println("----------")
		fmt.Fprintln(os.Stderr, "warning: something")
		fmt.Fprintln(os.Stderr, "error: bad model")
		os.Exit(1)
	case "noisy":
		fmt.Fprintln(os.Stderr, strings.Repeat("w", 70*1024))
		for range 400 {
			fmt.Fprintln(os.Stderr, strings.Repeat("n", 1023))
		}
		fmt.Println("x = 1;")
		fmt.Println("----------")
	case "endless":
		for i := 0; ; i++ {
			fmt.Printf("x = %d;\n----------\n", i)
		}
	}
}

// helperSolver returns a solver command running TestHelperProcess in mode.
func helperSolver(t *testing.T, mode string) string {
	t.Helper()
	t.Setenv("GO_WANT_HELPER_PROCESS", "1")
	t.Setenv("HELPER_MODE", mode)
	exe, err := syntax.Quote(os.Args[0], syntax.LangPOSIX)
	if err != nil {
		t.Fatal(err)
	}
	return exe + " -test.run=TestHelperProcess --"
}

func testOptions(t *testing.T, mode string) Options {
	opts := DefaultOptions()
	opts.UseShell = false
	opts.Solver = helperSolver(t, mode)
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return opts
}

// ============================================================
// Solve
// ============================================================

func TestSolve_Solutions(t *testing.T) {
	run, err := Solve(context.Background(), "var 1..2: x;\nsolve satisfy;\n", testOptions(t, "solutions"), nil)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	staged := run.model.Path
	if !run.model.Temporary() {
		t.Error("model text was not staged to a temporary file")
	}

	var xs []int64
	for sol, err := range run.All() {
		if err != nil {
			t.Fatal(err)
		}
		x, _ := sol.Get("x").AsInt()
		xs = append(xs, x)
	}
	if len(xs) != 2 || xs[0] != 1 || xs[1] != 2 {
		t.Errorf("xs = %v", xs)
	}
	if run.Status() != mzn.StatusComplete {
		t.Errorf("Status() = %q", run.Status())
	}

	if err := run.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Errorf("staged model %s still exists", staged)
	}
	if err := run.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestSolve_ModelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.mzn")
	if err := os.WriteFile(path, []byte("solve satisfy;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run, err := Solve(context.Background(), path, testOptions(t, "unsat"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.model.Path != path || run.model.Temporary() {
		t.Errorf("model = %+v, want file used in place", run.model)
	}
	sol, err := run.Next()
	if sol != nil || err != io.EOF {
		t.Errorf("Next = %v, %v", sol, err)
	}
	if run.Status() != mzn.StatusUnsatisfiable {
		t.Errorf("Status() = %q", run.Status())
	}
	if err := run.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("model file given by path was removed")
	}
}

func TestSolve_UseEnum(t *testing.T) {
	model := "enum Color = { red, green, blue };\narray[Color] of var 1..3: q;\n"

	opts := testOptions(t, "enum")
	run, err := Solve(context.Background(), model, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = run.Next()
	if !errors.Is(err, mzn.ErrUnknownIndexSet) {
		t.Errorf("without UseEnum err = %v", err)
	}
	run.Close()

	opts.UseEnum = true
	run, err = Solve(context.Background(), model, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer run.Close()
	sol, err := run.Next()
	if err != nil {
		t.Fatal(err)
	}
	q, _ := sol.Get("q").AsIndexed()
	if v, ok := q.At(mzn.SymLabel("red")); !ok || !mzn.Equal(v, mzn.Int(3)) {
		t.Errorf("q[red] = %v", v)
	}
}

func TestSolve_Shebang(t *testing.T) {
	opts := testOptions(t, "solutions")
	model := "%#! " + opts.Solver + "\nsolve satisfy;\n"
	opts.Solver = ""
	opts.UseShebang = true

	run, err := Solve(context.Background(), model, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, err := range run.All() {
		if err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != 2 {
		t.Errorf("got %d solutions from the shebang solver", n)
	}
	if err := run.Close(); err != nil {
		t.Error(err)
	}

	if _, err := Solve(context.Background(), "solve satisfy;\n", opts, nil); !errors.Is(err, ErrNoShebang) {
		t.Errorf("missing shebang err = %v", err)
	}
}

func TestSolve_ExitError(t *testing.T) {
	run, err := Solve(context.Background(), "solve satisfy;\n", testOptions(t, "fail"), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, err := range run.All() {
		if err != nil {
			t.Fatal(err)
		}
	}
	err = run.Close()
	var xe *ExitError
	if !errors.As(err, &xe) {
		t.Fatalf("Close err = %v, want *ExitError", err)
	}
	if xe.Code != 1 || !strings.Contains(xe.Stderr, "error: bad model") {
		t.Errorf("ExitError = %+v", xe)
	}
}

func TestSolve_LongStderrLines(t *testing.T) {
	run, err := Solve(context.Background(), "solve satisfy;\n", testOptions(t, "noisy"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer run.Close()

	type result struct {
		sol *mzn.Solution
		err error
	}
	done := make(chan result, 1)
	go func() {
		sol, err := run.Next()
		done <- result{sol, err}
	}()

	select {
	case res := <-done:
		if res.err != nil || res.sol == nil {
			t.Fatalf("Next = %v, %v", res.sol, res.err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Next blocked while the solver wrote to stderr")
	}
}

func TestSolve_CloseStopsSolver(t *testing.T) {
	run, err := Solve(context.Background(), "solve satisfy;\n", testOptions(t, "endless"), nil)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for sol, err := range run.All() {
		if err != nil {
			t.Fatal(err)
		}
		if sol != nil {
			n++
		}
		if n == 3 {
			break
		}
	}
	if err := run.Close(); err != nil {
		t.Errorf("Close after early stop = %v", err)
	}
}

func TestSolve_BadSolver(t *testing.T) {
	opts := DefaultOptions()
	opts.UseShell = false
	opts.Solver = "/nonexistent/solver -a"
	if _, err := Solve(context.Background(), "solve satisfy;\n", opts, nil); err == nil {
		t.Error("Solve with a missing solver should fail")
	}
}

// ============================================================
// Record / Format
// ============================================================

func TestRun_RecordAndFormat(t *testing.T) {
	sol := mzn.NewSolution()
	sol.Set("x", mzn.Int(1))
	sol.Set("y", mzn.Atom("red"))

	r := &Run{opts: Options{Result: "y x"}, fields: mzn.ParseFields("y x")}
	vals, err := r.Record(sol)
	if err != nil || len(vals) != 2 || !mzn.Equal(vals[0], mzn.Atom("red")) {
		t.Errorf("Record = %v, %v", vals, err)
	}
	if got := r.Format(sol); got != "x=1 y=red" {
		t.Errorf("Format = %q", got)
	}

	r = &Run{opts: Options{Format: "{y}:{x}"}}
	vals, _ = r.Record(sol)
	if len(vals) != 2 || !mzn.Equal(vals[0], mzn.Int(1)) {
		t.Errorf("Record without fields = %v", vals)
	}
	if got := r.Format(sol); got != "red:1" {
		t.Errorf("Format = %q", got)
	}

	r = &Run{fields: []string{"z"}}
	if _, err := r.Record(sol); !errors.Is(err, mzn.ErrMissingField) {
		t.Errorf("Record missing field err = %v", err)
	}
}

// ============================================================
// Command
// ============================================================

func TestCommand(t *testing.T) {
	t.Setenv("MZN_TEST_SOLVER", "chuffed")
	tests := []struct {
		name   string
		solver string
		want   []string
	}{
		{"plain", "minizinc -a", []string{"minizinc", "-a", "m.mzn"}},
		{"quoted", `minizinc --solver "OR Tools" -a`, []string{"minizinc", "--solver", "OR Tools", "-a", "m.mzn"}},
		{"variable", "minizinc --solver $MZN_TEST_SOLVER", []string{"minizinc", "--solver", "chuffed", "m.mzn"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Command(tt.solver, "m.mzn", false)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Command = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := Command("   ", "m.mzn", false); err == nil {
		t.Error("empty solver should fail")
	}
	if _, err := Command(`minizinc "unterminated`, "m.mzn", false); err == nil {
		t.Error("bad quoting should fail")
	}
}

func TestCommand_Shell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix shell only")
	}
	got, err := Command("minizinc -a", "/tmp/my model.mzn", true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"sh", "-c", "minizinc -a '/tmp/my model.mzn'"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Command = %q, want %q", got, want)
	}
}

// ============================================================
// Model staging
// ============================================================

func TestShebang(t *testing.T) {
	tests := []struct {
		text    string
		want    string
		wantErr bool
	}{
		{"%#! minizinc --solver chuffed -a\nsolve satisfy;", "minizinc --solver chuffed -a", false},
		{"#!minizinc", "minizinc", false},
		{"% no directive\n%#! minizinc", "", true},
		{"%#!   \n", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Shebang(tt.text)
		if (err != nil) != tt.wantErr {
			t.Errorf("Shebang(%q) err = %v", tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Shebang(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestStage_Encoding(t *testing.T) {
	m, err := Stage("% café\nsolve satisfy;\n", "latin1")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	raw, err := os.ReadFile(m.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "caf\xe9") {
		t.Errorf("staged bytes = %q", raw)
	}
	text, err := m.Text()
	if err != nil || !strings.Contains(text, "café") {
		t.Errorf("Text() = %q, %v", text, err)
	}

	if _, err := Stage("solve satisfy;", "klingon"); err == nil {
		t.Error("unknown encoding should fail")
	}
}

func TestStage_MissingFileIsText(t *testing.T) {
	m, err := Stage("does-not-exist.mzn", "")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if !m.Temporary() {
		t.Error("a name that is not a file should be staged as text")
	}
}

// ============================================================
// Options
// ============================================================

func TestOptions_SolverCommand(t *testing.T) {
	if got := DefaultOptions().SolverCommand(); got != DefaultSolver {
		t.Errorf("SolverCommand() = %q", got)
	}
	if got := (Options{Solver: "fzn-gecode"}).SolverCommand(); got != "fzn-gecode" {
		t.Errorf("SolverCommand() = %q", got)
	}
	if DefaultOptions().Encoding != "utf-8" {
		t.Error("default encoding is not utf-8")
	}
}

func TestPumpLines(t *testing.T) {
	in := "short\n" + strings.Repeat("x", 100) + "\r\nlast"
	var got []string
	if err := pumpLines(strings.NewReader(in), 10, func(line string) { got = append(got, line) }); err != nil {
		t.Fatal(err)
	}
	want := []string{"short", "xxxxxxxxxx", "last"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}

	// Longer than the bufio buffer
	got = nil
	in = strings.Repeat("y", 70*1024) + "\nafter\n"
	if err := pumpLines(strings.NewReader(in), stderrTail, func(line string) { got = append(got, line) }); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || len(got[0]) != stderrTail || got[1] != "after" {
		t.Errorf("got %d lines, first %d bytes", len(got), len(got[0]))
	}
}

func TestTailBuffer(t *testing.T) {
	tb := &tailBuffer{max: 10}
	for _, line := range []string{"aaaa", "bbbb", "cccc"} {
		tb.WriteLine(line)
	}
	if got := tb.String(); got != "bbbb\ncccc" {
		t.Errorf("tail = %q", got)
	}

	tb = &tailBuffer{max: 4}
	tb.WriteLine(strings.Repeat("z", 20))
	if got := tb.String(); len(got) != 20 {
		t.Errorf("single long line dropped: %q", got)
	}
}
