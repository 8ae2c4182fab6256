package covering

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/crillab/covsat/internal/logging"
)

// Status is the terminal status reported by a Solver.
type Status byte

const (
	// Indet means the solver stopped before proving anything (time limit, cancellation, ...).
	Indet = Status(iota)
	// Sat means a feasible assignment was found.
	Sat
	// Unsat means the model was proven infeasible.
	Unsat
)

func (s Status) String() string {
	switch s {
	case Indet:
		return "INDETERMINATE"
	case Sat:
		return "SAT"
	case Unsat:
		return "UNSAT"
	default:
		panic("invalid status")
	}
}

// A Solution is what a Solver returns.
// If Status is Sat, Values associates a binding to each variable of the model.
// Optimal is true iff no better assignment w.r.t the model's objective exists.
// For a Feasibility model, any Sat solution is optimal.
type Solution struct {
	Status  Status
	Values  []bool
	Optimal bool
}

// Solver is any engine able to solve a 0/1 linear model.
// Implementations must honor every constraint and every bound of the model,
// including variables fixed to false.
// Implementations should return an Indet solution, not an error,
// when ctx is done before a result was found.
type Solver interface {
	Solve(ctx context.Context, m *Model) (Solution, error)
}

// ErrInvalidWitness is returned when a solver pretends a model is satisfiable
// but the assignment it returned is not a covering system.
var ErrInvalidWitness = errors.New("solver returned an invalid witness")

// Verdict is the domain-level answer to the question "does a covering system exist?".
type Verdict byte

const (
	// Inconclusive means the solver could not decide.
	Inconclusive = Verdict(iota)
	// Exists means a covering system was found.
	Exists
	// None means no covering system exists with the candidate moduli and the presets.
	None
)

func (v Verdict) String() string {
	switch v {
	case Inconclusive:
		return "UNKNOWN"
	case Exists:
		return "COVERING"
	case None:
		return "NO COVERING"
	default:
		panic("invalid verdict")
	}
}

// An Outcome is the interpretation of a Solution.
type Outcome struct {
	Verdict  Verdict
	Selected []Progression // Progressions selected by the solver, if Verdict is Exists
	Covering []Progression // Selected progressions and presets, if Verdict is Exists
	Optimal  bool          // True iff the covering is optimal w.r.t the model's objective
}

// Interpret translates the solution to m into an Outcome.
// Witnesses are checked against m and by enumerating all integers in [0, m.LCM).
func Interpret(m *Model, sol Solution) (Outcome, error) {
	switch sol.Status {
	case Unsat:
		return Outcome{Verdict: None}, nil
	case Sat:
		if err := m.Check(sol.Values); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
		}
		selected := m.Selected(sol.Values)
		all := make([]Progression, 0, len(selected)+len(m.Presets))
		all = append(all, m.Presets...)
		all = append(all, selected...)
		sortProgressions(all)
		if left := Uncovered(m.LCM, all); len(left) != 0 {
			return Outcome{}, fmt.Errorf("%w: %d integers are not covered, first is %d", ErrInvalidWitness, len(left), left[0])
		}
		return Outcome{Verdict: Exists, Selected: selected, Covering: all, Optimal: sol.Optimal}, nil
	default:
		return Outcome{Verdict: Inconclusive}, nil
	}
}

// Solve builds the model described by b, solves it with s and interprets the result.
// Logs are written to the logger stored in ctx, if any.
func Solve(ctx context.Context, b Builder, s Solver) (Outcome, error) {
	m, err := b.Build()
	if err != nil {
		return Outcome{}, fmt.Errorf("could not build model: %w", err)
	}
	return SolveModel(ctx, m, s)
}

// SolveModel solves an already built model with s and interprets the solution.
func SolveModel(ctx context.Context, m *Model, s Solver) (Outcome, error) {
	log := logr.FromContextOrDiscard(ctx)
	st := m.Stats()
	log.V(logging.DEBUG).Info("model built",
		"lcm", m.LCM,
		"moduli", st.Moduli,
		"vars", st.Vars,
		"fixed", st.Fixed,
		"usage", st.Usage,
		"cover", st.Cover,
		"objective", m.Objective.String())
	start := time.Now()
	sol, err := s.Solve(ctx, m)
	if err != nil {
		return Outcome{}, fmt.Errorf("could not solve model: %w", err)
	}
	log.V(logging.DEBUG).Info("solver done", "status", sol.Status.String(), "optimal", sol.Optimal, "elapsed", time.Since(start))
	out, err := Interpret(m, sol)
	if err != nil {
		return Outcome{}, err
	}
	log.Info("covering search finished", "lcm", m.LCM, "verdict", out.Verdict.String())
	return out, nil
}

type backgroundKey struct{}

// WithBackground returns a copy of ctx in which solvers record the searches
// they leave running after Solve returned: wg is incremented once per such search,
// and decremented once it has stopped.
func WithBackground(ctx context.Context, wg *sync.WaitGroup) context.Context {
	return context.WithValue(ctx, backgroundKey{}, wg)
}

// Detach records, in the wait group of ctx if any, a search that keeps running
// after Solve returns. done must be called once that search has stopped.
func Detach(ctx context.Context) (done func()) {
	wg, _ := ctx.Value(backgroundKey{}).(*sync.WaitGroup)
	if wg == nil {
		return func() {}
	}
	wg.Add(1)
	return wg.Done
}
