package covering

import (
	"fmt"
)

// A Key identifies a residue variable: the progression Residue (mod Modulus).
type Key struct {
	Modulus int
	Residue int
}

// Name returns the name of the variable, e.g "x_7_6" for 6 (mod 7).
func (k Key) Name() string {
	return fmt.Sprintf("x_%d_%d", k.Modulus, k.Residue)
}

// Progression returns the progression selected by the variable.
func (k Key) Progression() Progression {
	return Progression{Residue: k.Residue, Modulus: k.Modulus}
}

// A Variable is a binary decision variable.
// A variable whose Upper bound is 0 is fixed to false:
// it is part of the model but can never be selected.
type Variable struct {
	Key   Key
	Lower int
	Upper int
}

// Fixed returns true iff v was fixed to false.
func (v Variable) Fixed() bool {
	return v.Upper == 0
}

// Op is the relational operator of a linear constraint.
type Op byte

const (
	// LessEq means the sum must be at most RHS.
	LessEq = Op(iota)
	// Equal means the sum must be exactly RHS.
	Equal
	// GreaterEq means the sum must be at least RHS.
	GreaterEq
)

func (op Op) String() string {
	switch op {
	case LessEq:
		return "<="
	case Equal:
		return "="
	case GreaterEq:
		return ">="
	default:
		panic("invalid operator")
	}
}

// holds returns true iff sum op rhs is true.
func (op Op) holds(sum, rhs int) bool {
	switch op {
	case LessEq:
		return sum <= rhs
	case Equal:
		return sum == rhs
	case GreaterEq:
		return sum >= rhs
	default:
		panic("invalid operator")
	}
}

// A Constraint is a linear constraint over binary variables whose coefficients are all 1.
// Vars are indices in the Vars slice of the Model.
type Constraint struct {
	Name string
	Vars []int
	Op   Op
	RHS  int
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: sum(%d vars) %s %d", c.Name, len(c.Vars), c.Op, c.RHS)
}

// Objective is the function the solver is asked to minimize.
type Objective byte

const (
	// Feasibility is the constant zero function: any feasible assignment is optimal.
	Feasibility = Objective(iota)
	// MinProgressions minimizes the number of selected progressions.
	MinProgressions
)

func (o Objective) String() string {
	switch o {
	case Feasibility:
		return "feasibility"
	case MinProgressions:
		return "min-progressions"
	default:
		panic("invalid objective")
	}
}

// ParseObjective returns the objective whose name is s.
func ParseObjective(s string) (Objective, error) {
	switch s {
	case "", "feasibility":
		return Feasibility, nil
	case "min-progressions":
		return MinProgressions, nil
	default:
		return 0, fmt.Errorf("invalid objective %q: expected \"feasibility\" or \"min-progressions\"", s)
	}
}

// A Model is a 0/1 linear model whose solutions are covering systems.
// Once built, it is not modified.
type Model struct {
	LCM       int           // Size of the window to cover
	Presets   []Progression // Progressions that are part of any solution
	Moduli    []int         // Candidate moduli, each with its own row of variables
	Vars      []Variable    // For each modulus, in order, one variable per residue
	Usage     []Constraint  // One constraint per candidate modulus
	Cover     []Constraint  // One constraint per integer that is not covered by presets
	Objective Objective
	index     map[Key]int // For each key, its index in Vars
}

// Var returns the index of the variable associated with k,
// and whether such a variable exists.
func (m *Model) Var(k Key) (int, bool) {
	i, ok := m.index[k]
	return i, ok
}

// Row returns the indices in Vars of the variables of the given modulus, indexed by residue.
// It returns nil if modulus is not a candidate.
func (m *Model) Row(modulus int) []int {
	if _, ok := m.index[Key{Modulus: modulus}]; !ok {
		return nil
	}
	res := make([]int, modulus)
	for r := range res {
		res[r] = m.index[Key{Modulus: modulus, Residue: r}]
	}
	return res
}

// NbFixed returns the number of variables fixed to false.
func (m *Model) NbFixed() int {
	nb := 0
	for _, v := range m.Vars {
		if v.Fixed() {
			nb++
		}
	}
	return nb
}

// Free returns the indices of all variables that were not fixed to false.
func (m *Model) Free() []int {
	res := make([]int, 0, len(m.Vars))
	for i, v := range m.Vars {
		if !v.Fixed() {
			res = append(res, i)
		}
	}
	return res
}

// Constraints returns all constraints of the model, usage constraints first.
func (m *Model) Constraints() []Constraint {
	res := make([]Constraint, 0, len(m.Usage)+len(m.Cover))
	res = append(res, m.Usage...)
	return append(res, m.Cover...)
}

// Check returns an error if values, a binding for each variable, violates a bound or a constraint.
func (m *Model) Check(values []bool) error {
	if len(values) != len(m.Vars) {
		return fmt.Errorf("expected %d values, got %d", len(m.Vars), len(values))
	}
	for i, v := range m.Vars {
		if values[i] && v.Upper == 0 {
			return fmt.Errorf("%s is fixed to 0 but is true", v.Key.Name())
		}
		if !values[i] && v.Lower == 1 {
			return fmt.Errorf("%s is fixed to 1 but is false", v.Key.Name())
		}
	}
	for _, c := range m.Constraints() {
		sum := 0
		for _, v := range c.Vars {
			if values[v] {
				sum++
			}
		}
		if !c.Op.holds(sum, c.RHS) {
			return fmt.Errorf("constraint %s violated: sum is %d", c, sum)
		}
	}
	return nil
}

// Selected returns the progressions whose variable is true in values, sorted by modulus.
func (m *Model) Selected(values []bool) []Progression {
	var res []Progression
	for i, v := range m.Vars {
		if i < len(values) && values[i] {
			res = append(res, v.Key.Progression())
		}
	}
	sortProgressions(res)
	return res
}

// Stats sums up the size of a model.
type Stats struct {
	Moduli int
	Vars   int
	Fixed  int
	Usage  int
	Cover  int
}

// Stats returns the size of the model.
func (m *Model) Stats() Stats {
	return Stats{
		Moduli: len(m.Moduli),
		Vars:   len(m.Vars),
		Fixed:  m.NbFixed(),
		Usage:  len(m.Usage),
		Cover:  len(m.Cover),
	}
}
