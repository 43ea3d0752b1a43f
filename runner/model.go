package runner

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrNoShebang is returned when the first model line has no "#!" marker.
var ErrNoShebang = errors.New("runner: solver directive not found")

// Model is a model file ready to pass to the solver.
type Model struct {
	Path string
	temp bool
	enc  encoding.Encoding
}

// Stage prepares a model for the solver. A model naming an existing file
// is used in place; anything else is model text, written to a temporary
// .mzn file in the given encoding. Close removes the temporary file.
func Stage(model, enc string) (*Model, error) {
	e, err := lookupEncoding(enc)
	if err != nil {
		return nil, err
	}

	if isFile(model) {
		return &Model{Path: model, enc: e}, nil
	}

	data, err := e.NewEncoder().Bytes([]byte(model))
	if err != nil {
		return nil, fmt.Errorf("runner: encode model: %w", err)
	}

	f, err := os.CreateTemp("", "mzn-*.mzn")
	if err != nil {
		return nil, fmt.Errorf("runner: stage model: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("runner: stage model: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("runner: stage model: %w", err)
	}
	return &Model{Path: f.Name(), temp: true, enc: e}, nil
}

// Temporary reports whether the model file was created by Stage.
func (m *Model) Temporary() bool {
	return m.temp
}

// Text reads the model source.
func (m *Model) Text() (string, error) {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return "", fmt.Errorf("runner: read model: %w", err)
	}
	data, err = m.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("runner: decode model: %w", err)
	}
	return string(data), nil
}

// Close removes a temporary model file.
func (m *Model) Close() error {
	if !m.temp {
		return nil
	}
	m.temp = false
	return os.Remove(m.Path)
}

// Shebang returns the solver command from a first line such as
//
//	%#! minizinc --solver chuffed -a
func Shebang(text string) (string, error) {
	first, _, _ := strings.Cut(text, "\n")
	_, cmd, ok := strings.Cut(first, "#!")
	if !ok {
		return "", ErrNoShebang
	}
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return "", ErrNoShebang
	}
	return cmd, nil
}

func isFile(model string) bool {
	if model == "" || strings.ContainsAny(model, "\n;") {
		return false
	}
	fi, err := os.Stat(model)
	return err == nil && fi.Mode().IsRegular()
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		name = "utf-8"
	}
	e, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("runner: encoding %q: %w", name, err)
	}
	return e, nil
}
