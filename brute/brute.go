// Package brute provides an exhaustive covering.Solver.
//
// This package does not use any solving engine.
// We want this code to be as simple as possible to be easy to audit,
// so that it can be used to check the results of the real solvers on small problems.
// Its running time is exponential in the number of candidate moduli.
package brute

import (
	"context"
	"fmt"

	"github.com/crillab/covsat/covering"
)

// MaxVars is the biggest number of variables a model can have for Solve to accept it.
const MaxVars = 256

// Solver is an exhaustive solver.
// For each usage constraint, it tries every subset of the free variables of its row
// that satisfies it, and checks the complete assignments against the model.
type Solver struct{}

// New returns an exhaustive solver.
func New() Solver {
	return Solver{}
}

type search struct {
	ctx     context.Context
	m       *covering.Model
	values  []bool
	best    []bool // best assignment found so far, if any
	bestNb  int    // number of true values in best
	stopped bool
}

// Solve implements covering.Solver.
// It returns an error if m has more than MaxVars variables.
func (Solver) Solve(ctx context.Context, m *covering.Model) (covering.Solution, error) {
	if len(m.Vars) > MaxVars {
		return covering.Solution{}, fmt.Errorf("model has %d variables, exhaustive search is limited to %d", len(m.Vars), MaxVars)
	}
	s := &search{ctx: ctx, m: m, values: make([]bool, len(m.Vars)), bestNb: -1}
	s.row(0, 0)
	switch {
	case s.best != nil:
		optimal := m.Objective == covering.Feasibility || !s.stopped
		return covering.Solution{Status: covering.Sat, Values: s.best, Optimal: optimal}, nil
	case s.stopped:
		return covering.Solution{Status: covering.Indet}, nil
	default:
		return covering.Solution{Status: covering.Unsat}, nil
	}
}

// done returns true iff the search must stop, either because the context is done
// or because a solution was found and there is nothing to optimize.
func (s *search) done() bool {
	if s.stopped {
		return true
	}
	if s.ctx.Err() != nil {
		s.stopped = true
		return true
	}
	return s.best != nil && s.m.Objective == covering.Feasibility
}

// row tries all the possible assignments of the ith usage row.
// nb is the number of true values so far.
func (s *search) row(i, nb int) {
	if s.done() {
		return
	}
	if i == len(s.m.Usage) {
		if s.m.Check(s.values) == nil && (s.best == nil || nb < s.bestNb) {
			s.best = append([]bool(nil), s.values...)
			s.bestNb = nb
		}
		return
	}
	c := s.m.Usage[i]
	var free []int
	for _, v := range c.Vars {
		if !s.m.Vars[v].Fixed() {
			free = append(free, v)
		}
	}
	max := len(free)
	if c.Op != covering.GreaterEq && c.RHS < max {
		max = c.RHS
	}
	for k := 0; k <= max; k++ {
		if !holds(c.Op, k, c.RHS) {
			continue
		}
		s.subsets(free, k, func() { s.row(i+1, nb+k) })
	}
}

// subsets sets to true each subset of vars of size k in turn, and calls f for each of them.
func (s *search) subsets(vars []int, k int, f func()) {
	if s.done() {
		return
	}
	if k == 0 {
		f()
		return
	}
	for j := 0; j+k <= len(vars); j++ {
		s.values[vars[j]] = true
		s.subsets(vars[j+1:], k-1, f)
		s.values[vars[j]] = false
	}
}

func holds(op covering.Op, sum, rhs int) bool {
	switch op {
	case covering.LessEq:
		return sum <= rhs
	case covering.Equal:
		return sum == rhs
	default:
		return sum >= rhs
	}
}
