package covering

import (
	"errors"
	"fmt"
)

// Configuration errors, returned by Build before any constraint is generated.
var (
	ErrInvalidLCM         = errors.New("lcm must be positive")
	ErrInvalidModulus     = errors.New("invalid modulus")
	ErrInvalidResidue     = errors.New("residue out of range")
	ErrNotDivisor         = errors.New("modulus does not divide the lcm")
	ErrPresetNotCandidate = errors.New("preset modulus is not a candidate")
	ErrNoCandidates       = errors.New("no candidate moduli")
	ErrDuplicateModulus   = errors.New("duplicate modulus")
)

// Usage is the policy limiting how many progressions a modulus may contribute.
type Usage byte

const (
	// DefaultUsage lets the builder choose: AtMostOne for FixedSet, ExactlyOne for DivisorSweep.
	DefaultUsage = Usage(iota)
	// AtMostOne means each modulus is used by at most one progression.
	AtMostOne
	// ExactlyOne means each modulus is used by exactly one progression.
	// If a solution exists with AtMostOne, there is one with ExactlyOne as long as
	// every modulus has a free residue, but the search space is smaller.
	ExactlyOne
)

func (u Usage) String() string {
	switch u {
	case DefaultUsage:
		return "default"
	case AtMostOne:
		return "at-most-one"
	case ExactlyOne:
		return "exactly-one"
	default:
		panic("invalid usage")
	}
}

// ParseUsage returns the usage policy whose name is s.
func ParseUsage(s string) (Usage, error) {
	switch s {
	case "", "default":
		return DefaultUsage, nil
	case "at-most-one":
		return AtMostOne, nil
	case "exactly-one":
		return ExactlyOne, nil
	default:
		return 0, fmt.Errorf("invalid usage %q: expected \"at-most-one\" or \"exactly-one\"", s)
	}
}

func (u Usage) or(def Usage) Usage {
	if u == DefaultUsage {
		return def
	}
	return u
}

// constr returns the operator and bound of the usage constraint.
func (u Usage) constr() (Op, int) {
	if u == ExactlyOne {
		return Equal, 1
	}
	return LessEq, 1
}

// A Builder makes a Model out of its parameters.
type Builder interface {
	Build() (*Model, error)
}

// FixedSet describes a problem whose candidate moduli are given explicitly.
type FixedSet struct {
	LCM       int
	Presets   []Progression
	Moduli    []int // Candidate moduli, in the order their variables will be created
	Twice     int   // A modulus that may be used by two progressions, or 0
	Usage     Usage // Usage policy of all moduli but Twice; AtMostOne by default
	Objective Objective
}

// Build builds the model associated with f.
// Moduli that are also preset moduli are not candidates.
func (f FixedSet) Build() (*Model, error) {
	if err := checkPresets(f.LCM, f.Presets); err != nil {
		return nil, err
	}
	preset := make(map[int]bool, len(f.Presets))
	for _, p := range f.Presets {
		preset[p.Modulus] = true
	}
	seen := make(map[int]bool, len(f.Moduli))
	moduli := make([]int, 0, len(f.Moduli))
	for _, m := range f.Moduli {
		if m < 1 {
			return nil, fmt.Errorf("candidate %d: %w", m, ErrInvalidModulus)
		}
		if f.LCM%m != 0 {
			return nil, fmt.Errorf("candidate %d, lcm %d: %w", m, f.LCM, ErrNotDivisor)
		}
		if seen[m] {
			return nil, fmt.Errorf("candidate %d: %w", m, ErrDuplicateModulus)
		}
		seen[m] = true
		if !preset[m] {
			moduli = append(moduli, m)
		}
	}
	if len(moduli) == 0 {
		return nil, ErrNoCandidates
	}
	if f.Twice != 0 && (!seen[f.Twice] || preset[f.Twice]) {
		return nil, fmt.Errorf("modulus %d allowed twice is not a candidate: %w", f.Twice, ErrInvalidModulus)
	}
	op, bound := f.Usage.or(AtMostOne).constr()
	usage := func(m int) (Op, int) {
		if m == f.Twice {
			return LessEq, 2
		}
		return op, bound
	}
	return build(f.LCM, f.Presets, moduli, usage, f.Objective), nil
}

// DivisorSweep describes a problem whose candidate moduli are all the divisors of LCM
// that are at least MinModulus, except the preset moduli.
type DivisorSweep struct {
	LCM        int
	MinModulus int
	Presets    []Progression
	Usage      Usage // ExactlyOne by default
	Objective  Objective
}

// Candidates returns the candidate moduli of d, in increasing order.
// Each preset modulus is removed once from the divisors of d.LCM that are at least d.MinModulus.
func (d DivisorSweep) Candidates() ([]int, error) {
	if err := checkPresets(d.LCM, d.Presets); err != nil {
		return nil, err
	}
	if d.MinModulus < 1 {
		return nil, fmt.Errorf("minimum modulus %d: %w", d.MinModulus, ErrInvalidModulus)
	}
	var moduli []int
	for _, div := range Divisors(d.LCM) {
		if div >= d.MinModulus {
			moduli = append(moduli, div)
		}
	}
	for _, p := range d.Presets {
		i := indexOf(moduli, p.Modulus)
		if i == -1 {
			return nil, fmt.Errorf("preset %v: %w", p, ErrPresetNotCandidate)
		}
		moduli = append(moduli[:i], moduli[i+1:]...)
	}
	if len(moduli) == 0 {
		return nil, fmt.Errorf("lcm %d, minimum modulus %d: %w", d.LCM, d.MinModulus, ErrNoCandidates)
	}
	return moduli, nil
}

// Build builds the model associated with d.
func (d DivisorSweep) Build() (*Model, error) {
	moduli, err := d.Candidates()
	if err != nil {
		return nil, err
	}
	op, bound := d.Usage.or(ExactlyOne).constr()
	usage := func(int) (Op, int) { return op, bound }
	return build(d.LCM, d.Presets, moduli, usage, d.Objective), nil
}

func indexOf(vals []int, val int) int {
	for i, v := range vals {
		if v == val {
			return i
		}
	}
	return -1
}

func checkPresets(lcm int, presets []Progression) error {
	if lcm < 1 {
		return fmt.Errorf("lcm %d: %w", lcm, ErrInvalidLCM)
	}
	for _, p := range presets {
		if p.Modulus < 1 {
			return fmt.Errorf("preset %v: %w", p, ErrInvalidModulus)
		}
		if p.Residue < 0 || p.Residue >= p.Modulus {
			return fmt.Errorf("preset %v: %w", p, ErrInvalidResidue)
		}
		if lcm%p.Modulus != 0 {
			return fmt.Errorf("preset %v, lcm %d: %w", p, lcm, ErrNotDivisor)
		}
	}
	return nil
}

// build runs the pipeline shared by all builders on validated parameters.
func build(lcm int, presets []Progression, moduli []int, usage func(int) (Op, int), obj Objective) *Model {
	nbVars := 0
	for _, m := range moduli {
		nbVars += m
	}
	model := &Model{
		LCM:       lcm,
		Presets:   append([]Progression(nil), presets...),
		Moduli:    append([]int(nil), moduli...),
		Vars:      make([]Variable, 0, nbVars),
		Usage:     make([]Constraint, 0, len(moduli)),
		Objective: obj,
		index:     make(map[Key]int, nbVars),
	}
	for _, m := range moduli {
		row := make([]int, m)
		for r := 0; r < m; r++ {
			k := Key{Modulus: m, Residue: r}
			row[r] = len(model.Vars)
			model.index[k] = row[r]
			model.Vars = append(model.Vars, Variable{Key: k, Upper: 1})
		}
		op, bound := usage(m)
		model.Usage = append(model.Usage, Constraint{
			Name: fmt.Sprintf("usage_%d", m),
			Vars: row,
			Op:   op,
			RHS:  bound,
		})
	}
	covered := CoveredSet(lcm, presets)
	model.Cover = make([]Constraint, len(covered))
	for i, n := range covered {
		vars := make([]int, len(moduli))
		for j, m := range moduli {
			vars[j] = model.index[Key{Modulus: m, Residue: n % m}]
		}
		model.Cover[i] = Constraint{
			Name: fmt.Sprintf("cover_%d", n),
			Vars: vars,
			Op:   GreaterEq,
			RHS:  1,
		}
	}
	fixRedundant(model)
	return model
}

// fixRedundant fixes to false every variable whose progression is included in a preset progression.
// If m is a multiple of the preset modulus mp, j (mod m) is included in rp (mod mp) iff j mod mp == rp.
func fixRedundant(model *Model) {
	for _, m := range model.Moduli {
		for _, p := range model.Presets {
			if m%p.Modulus != 0 {
				continue
			}
			for j := p.Residue; j < m; j += p.Modulus {
				v := model.index[Key{Modulus: m, Residue: j}]
				model.Vars[v].Lower = 0
				model.Vars[v].Upper = 0
			}
		}
	}
}
