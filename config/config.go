// Package config loads solver run options from files, key=value
// arguments and the MZN_DEBUG environment variable.
//
// Sources are layered by the caller, later ones winning:
//
//	opts := config.Defaults()
//	config.Load("mzn.yaml", &opts)
//	config.Apply(&opts, config.ParseArgs(args))
//	config.FromEnv(&opts)
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-jsonnet"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"gopkg.in/yaml.v3"

	"github.com/enigmatic-code/minizinc/runner"
)

// EnvDebug names the environment variable holding override assignments,
// e.g. MZN_DEBUG="solver=minizinc --solver chuffed -a; verbose=3".
const EnvDebug = "MZN_DEBUG"

// ErrUnknownKey is returned by Apply for a key no option answers to.
var ErrUnknownKey = errors.New("config: unknown key")

// Defaults returns the default options.
func Defaults() runner.Options {
	return runner.DefaultOptions()
}

// Load overlays the options in a .yaml/.yml, .jsonnet or .json file onto
// opts. Unknown fields are rejected.
func Load(path string, opts *runner.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(opts); err != nil && err != io.EOF {
			return fmt.Errorf("config: %s: %w", path, err)
		}
		return nil
	case ".jsonnet", ".libsonnet":
		vm := jsonnet.MakeVM()
		dir, _ := filepath.Split(path)
		vm.Importer(&jsonnet.FileImporter{
			JPaths: []string{dir},
		})
		out, err := vm.EvaluateSnippet(path, string(data))
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		return decodeJSON(path, []byte(out), opts)
	case ".json":
		return decodeJSON(path, data, opts)
	default:
		return fmt.Errorf("config: unknown file ext %q", ext)
	}
}

func decodeJSON(path string, data []byte, opts *runner.Options) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// ============================================================
// key=value assignments
// ============================================================

// Assignment is one key=value option.
type Assignment struct {
	Key   string
	Value string
}

var assignmentSep = regexp.MustCompile(`;\s*`)

// ParseAssignments splits "k=v; k2=v2" into assignments.
func ParseAssignments(s string) []Assignment {
	return ParseArgs(assignmentSep.Split(s, -1))
}

// ParseArgs reads one assignment per argument. Arguments with an empty key
// or value are skipped.
func ParseArgs(args []string) []Assignment {
	var out []Assignment
	for _, arg := range args {
		k, v, _ := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if k == "" || v == "" {
			continue
		}
		out = append(out, Assignment{Key: k, Value: v})
	}
	return out
}

// keys answered by Apply.
var keys = []string{
	"result", "solver", "encoding", "fmt",
	"use_shebang", "use_enum", "use_shell",
	"verbose", "mzn_dir",
}

// Apply sets options from assignments. verbose and use_* values are
// integers; use_* options are on when non-zero.
func Apply(opts *runner.Options, kvs []Assignment) error {
	for _, kv := range kvs {
		if err := apply(opts, kv); err != nil {
			return err
		}
	}
	return nil
}

func apply(opts *runner.Options, kv Assignment) error {
	if kv.Key == "verbose" || strings.HasPrefix(kv.Key, "use_") {
		n, err := strconv.Atoi(strings.TrimSpace(kv.Value))
		if err != nil {
			return fmt.Errorf("config: %s: want an integer, got %q", kv.Key, kv.Value)
		}
		switch kv.Key {
		case "verbose":
			opts.Verbose = n
		case "use_shebang":
			opts.UseShebang = n != 0
		case "use_enum":
			opts.UseEnum = n != 0
		case "use_shell":
			opts.UseShell = n != 0
		case "use_embed":
			if n != 0 {
				return fmt.Errorf("config: use_embed: embedded code evaluation is not supported")
			}
		default:
			return unknownKey(kv.Key)
		}
		return nil
	}

	switch kv.Key {
	case "result":
		opts.Result = kv.Value
	case "solver":
		opts.Solver = kv.Value
	case "encoding":
		opts.Encoding = kv.Value
	case "fmt":
		opts.Format = kv.Value
	case "mzn_dir":
		opts.Dir = kv.Value
	default:
		return unknownKey(kv.Key)
	}
	return nil
}

func unknownKey(key string) error {
	if s := suggest(key); s != "" {
		return fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownKey, key, s)
	}
	return fmt.Errorf("%w %q", ErrUnknownKey, key)
}

func suggest(key string) string {
	if ranks := fuzzy.RankFindFold(key, keys); len(ranks) > 0 {
		best := ranks[0]
		for _, r := range ranks[1:] {
			if r.Distance < best.Distance {
				best = r
			}
		}
		return best.Target
	}
	best, bestDist := "", len(key)/2+1
	for _, k := range keys {
		if d := fuzzy.LevenshteinDistance(key, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// FromEnv applies the assignments in MZN_DEBUG, if set. It returns the
// raw variable value so callers can report the override.
func FromEnv(opts *runner.Options) (string, error) {
	raw := os.Getenv(EnvDebug)
	if raw == "" {
		return "", nil
	}
	return raw, Apply(opts, ParseAssignments(raw))
}
