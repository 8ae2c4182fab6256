// Package cnf solves covering models with the gini SAT solver.
//
// Cardinality constraints are not native to SAT solvers: usage rows, and the
// bound on the number of selected progressions when minimizing, are coded as
// sorting networks. Coverage rows are plain clauses.
package cnf

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/go-logr/logr"

	"github.com/crillab/covsat/covering"
	"github.com/crillab/covsat/internal/logging"
)

// DefaultPoll is the default delay between two checks of the context while the solver is running.
const DefaultPoll = 10 * time.Millisecond

// Solver is a covering.Solver backed by gini.
type Solver struct {
	Poll time.Duration // Delay between two checks of the context; DefaultPoll if 0
}

// New returns a SAT solver with default settings.
func New() *Solver {
	return &Solver{Poll: DefaultPoll}
}

// An encoding is the CNF translation of a model.
type encoding struct {
	g    *gini.Gini
	vars []z.Lit          // For each model variable, the associated literal
	cost *logic.CardSort // Number of selected progressions, if the model is an optimization problem
}

func encode(m *covering.Model) *encoding {
	c := logic.NewCCap(len(m.Vars) * 4)
	enc := &encoding{g: gini.NewV(len(m.Vars) * 4), vars: make([]z.Lit, len(m.Vars))}
	for i := range m.Vars {
		enc.vars[i] = c.Lit()
	}
	var units []z.Lit
	for i, v := range m.Vars {
		if v.Fixed() {
			units = append(units, enc.vars[i].Not())
		}
	}
	for _, u := range m.Usage {
		card := c.CardSort(enc.lits(u.Vars))
		switch u.Op {
		case covering.LessEq:
			units = append(units, card.Leq(u.RHS))
		case covering.Equal:
			units = append(units, card.Leq(u.RHS), card.Geq(u.RHS))
		case covering.GreaterEq:
			units = append(units, card.Geq(u.RHS))
		}
	}
	if m.Objective == covering.MinProgressions {
		enc.cost = c.CardSort(enc.lits(m.Free()))
	}
	c.ToCnf(enc.g)
	for _, u := range units {
		enc.g.Add(u)
		enc.g.Add(0)
	}
	for _, row := range m.Cover {
		for _, v := range row.Vars {
			enc.g.Add(enc.vars[v])
		}
		enc.g.Add(0)
	}
	return enc
}

func (enc *encoding) lits(vars []int) []z.Lit {
	res := make([]z.Lit, len(vars))
	for i, v := range vars {
		res[i] = enc.vars[v]
	}
	return res
}

// values returns the current model and the number of true variables in it.
func (enc *encoding) values() ([]bool, int) {
	res := make([]bool, len(enc.vars))
	nb := 0
	for i, l := range enc.vars {
		if enc.g.Value(l) {
			res[i] = true
			nb++
		}
	}
	return res, nb
}

// run solves the problem in the background until it is done or ctx is.
// It returns 1 if sat, -1 if unsat and 0 if ctx was done first.
func (s *Solver) run(ctx context.Context, g *gini.Gini) int {
	poll := s.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	sv := g.GoSolve()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return sv.Stop()
		case <-ticker.C:
			if res, ok := sv.Test(); ok {
				return res
			}
		}
	}
}

// Solve implements covering.Solver.
// On optimization problems, if ctx is done before optimality was proven,
// the best solution found so far is returned.
func (s *Solver) Solve(ctx context.Context, m *covering.Model) (covering.Solution, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("cnf")
	enc := encode(m)
	log.V(logging.DEBUG).Info("cnf ready", "vars", int(enc.g.MaxVar()), "inputs", len(enc.vars))
	var best covering.Solution
	for {
		switch s.run(ctx, enc.g) {
		case 0:
			return best, nil
		case -1:
			if best.Status == covering.Sat {
				best.Optimal = true
				return best, nil
			}
			return covering.Solution{Status: covering.Unsat}, nil
		}
		values, nb := enc.values()
		best = covering.Solution{Status: covering.Sat, Values: values}
		if enc.cost == nil {
			best.Optimal = true
			return best, nil
		}
		log.V(logging.TRACE).Info("solution found", "progressions", nb)
		if nb == 0 {
			best.Optimal = true
			return best, nil
		}
		enc.g.Assume(enc.cost.Leq(nb - 1))
	}
}

// WriteDimacs writes the CNF translation of m to w in the DIMACS format.
// The variable associated with the ith variable of m is i+2; variable 1 is the constant true.
// Objectives are not part of the format and are ignored.
func WriteDimacs(w io.Writer, m *covering.Model) error {
	feas := *m
	feas.Objective = covering.Feasibility
	enc := encode(&feas)
	if err := enc.g.Write(w); err != nil {
		return fmt.Errorf("could not write dimacs: %w", err)
	}
	return nil
}
