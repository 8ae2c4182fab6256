// Package config reads covering problems from YAML run files.
//
// A run file looks like this:
//
//	mode: divisors
//	lcm: 5040
//	minModulus: 6
//	presets: [[6, 7], [7, 8], [8, 9], [33, 35]]
//	usage: exactly-one
//	solver: pb
//	timeout: 10m
//
// Presets are written as [residue, modulus] pairs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crillab/covsat/covering"
)

// Modes.
const (
	ModeFixed    = "fixed"
	ModeDivisors = "divisors"
)

// Solver names.
const (
	SolverPB    = "pb"
	SolverCNF   = "cnf"
	SolverBrute = "brute"
)

// Run describes a problem and how to solve it.
type Run struct {
	Mode       string        `yaml:"mode"`
	LCM        int           `yaml:"lcm"`
	Presets    [][]int       `yaml:"presets,omitempty"`
	Moduli     []int         `yaml:"moduli,omitempty"`
	Twice      int           `yaml:"twice,omitempty"`
	MinModulus int           `yaml:"minModulus,omitempty"`
	Usage      string        `yaml:"usage,omitempty"`
	Objective  string        `yaml:"objective,omitempty"`
	Solver     string        `yaml:"solver,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// ErrInvalid is returned when a run file is syntactically correct but does not describe a problem.
var ErrInvalid = errors.New("invalid run")

// Parse reads a run from r and validates it.
// Unknown fields are errors.
func Parse(r io.Reader) (*Run, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var run Run
	if err := dec.Decode(&run); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty run file", ErrInvalid)
		}
		return nil, fmt.Errorf("could not parse run: %w", err)
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return &run, nil
}

// Load reads and validates the run file at path.
func Load(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", path, err)
	}
	defer f.Close()
	run, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return run, nil
}

// Validate checks the shape of every field of r.
// Arithmetic checks (divisibility, ranges, ...) are left to the builders.
func (r *Run) Validate() error {
	switch r.Mode {
	case ModeFixed:
		if len(r.Moduli) == 0 {
			return fmt.Errorf("%w: mode %q needs moduli", ErrInvalid, r.Mode)
		}
		if r.MinModulus != 0 {
			return fmt.Errorf("%w: minModulus is only meaningful in mode %q", ErrInvalid, ModeDivisors)
		}
	case ModeDivisors:
		if len(r.Moduli) != 0 || r.Twice != 0 {
			return fmt.Errorf("%w: moduli and twice are only meaningful in mode %q", ErrInvalid, ModeFixed)
		}
	default:
		return fmt.Errorf("%w: invalid mode %q: expected %q or %q", ErrInvalid, r.Mode, ModeFixed, ModeDivisors)
	}
	for i, p := range r.Presets {
		if len(p) != 2 {
			return fmt.Errorf("%w: preset #%d: expected [residue, modulus], got %v", ErrInvalid, i+1, p)
		}
	}
	if _, err := covering.ParseUsage(r.Usage); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := covering.ParseObjective(r.Objective); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch r.Solver {
	case "", SolverPB, SolverCNF, SolverBrute:
	default:
		return fmt.Errorf("%w: invalid solver %q: expected %q, %q or %q", ErrInvalid, r.Solver, SolverPB, SolverCNF, SolverBrute)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %v", ErrInvalid, r.Timeout)
	}
	return nil
}

// Progressions returns the presets of r.
// r must be valid.
func (r *Run) Progressions() []covering.Progression {
	res := make([]covering.Progression, len(r.Presets))
	for i, p := range r.Presets {
		res[i] = covering.Progression{Residue: p[0], Modulus: p[1]}
	}
	return res
}

// Builder returns the builder described by r.
func (r *Run) Builder() (covering.Builder, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	usage, err := covering.ParseUsage(r.Usage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	obj, err := covering.ParseObjective(r.Objective)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if r.Mode == ModeFixed {
		return covering.FixedSet{
			LCM:       r.LCM,
			Presets:   r.Progressions(),
			Moduli:    append([]int(nil), r.Moduli...),
			Twice:     r.Twice,
			Usage:     usage,
			Objective: obj,
		}, nil
	}
	return covering.DivisorSweep{
		LCM:        r.LCM,
		MinModulus: r.MinModulus,
		Presets:    r.Progressions(),
		Usage:      usage,
		Objective:  obj,
	}, nil
}

// SolverName returns the name of the solver to use, SolverPB by default.
func (r *Run) SolverName() string {
	if r.Solver == "" {
		return SolverPB
	}
	return r.Solver
}

// Marshal writes r to w in YAML.
func (r *Run) Marshal(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("could not write run: %w", err)
	}
	return enc.Close()
}

// Examples are the problems covsat knows by name.
var Examples = map[string]Run{
	// Distinct moduli in [5, 105] once 4 (mod 5), 6 (mod 7), 7 (mod 8), 8 (mod 9) and 33 (mod 35)
	// are chosen. 48 may be used twice.
	"distinct-5-105": {
		Mode:    ModeFixed,
		LCM:     5040,
		Presets: [][]int{{4, 5}, {6, 7}, {7, 8}, {8, 9}, {33, 35}},
		Moduli: []int{6, 10, 12, 14, 15, 16, 18, 20, 21, 24, 28, 30, 36, 40, 42, 45, 48, 56, 60, 63,
			70, 72, 80, 84, 90, 105},
		Twice: 48,
		Usage: covering.AtMostOne.String(),
	},
	// Covering systems with lcm 5040 and minimum modulus 6.
	"min-modulus-6": {
		Mode:       ModeDivisors,
		LCM:        5040,
		MinModulus: 6,
		Presets:    [][]int{{6, 7}, {7, 8}, {8, 9}, {33, 35}},
		Usage:      covering.ExactlyOne.String(),
	},
	// The classic covering system 0 (mod 2), 0 (mod 3), 1 (mod 4), 5 (mod 6), 7 (mod 12).
	"classic-12": {
		Mode:       ModeDivisors,
		LCM:        12,
		MinModulus: 2,
	},
}

// Example returns the example whose name is name.
func Example(name string) (*Run, error) {
	run, ok := Examples[name]
	if !ok {
		return nil, fmt.Errorf("unknown example %q: expected one of %v", name, ExampleNames())
	}
	return &run, nil
}

// ExampleNames returns the names of all examples, sorted.
func ExampleNames() []string {
	names := make([]string, 0, len(Examples))
	for name := range Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
