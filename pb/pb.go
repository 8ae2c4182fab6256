// Package pb solves covering models with gophersat's pseudo-boolean engine.
//
// Each model variable i is mapped to the solver variable i+1.
// Usage rows become cardinality constraints, coverage rows become clauses,
// and variables fixed to false become negative unit clauses.
// When the model asks for a minimal number of progressions, the cost function
// is the sum of all free variables.
package pb

import (
	"context"
	"fmt"
	"time"

	"github.com/crillab/gophersat/solver"
	"github.com/go-logr/logr"

	"github.com/crillab/covsat/covering"
	"github.com/crillab/covsat/internal/logging"
)

// Solver is a covering.Solver backed by gophersat.
type Solver struct {
	// CuttingPlanes, if true, makes the engine use cutting planes rather than clause learning
	// when analyzing conflicts.
	CuttingPlanes bool
}

// New returns a pseudo-boolean solver with default settings.
func New() *Solver {
	return &Solver{}
}

// lit returns the solver literal associated with the ith variable of the model.
func lit(i int) int {
	return i + 1
}

func lits(vars []int) []int {
	res := make([]int, len(vars))
	for i, v := range vars {
		res[i] = lit(v)
	}
	return res
}

func ones(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = 1
	}
	return res
}

// Constrs returns the PB constraints equivalent to m.
func Constrs(m *covering.Model) []solver.PBConstr {
	constrs := make([]solver.PBConstr, 0, len(m.Usage)+len(m.Cover)+m.NbFixed())
	for i, v := range m.Vars {
		if v.Fixed() {
			constrs = append(constrs, solver.PropClause(-lit(i)))
		}
	}
	for _, c := range m.Constraints() {
		switch c.Op {
		case covering.LessEq:
			constrs = append(constrs, solver.AtMost(lits(c.Vars), c.RHS))
		case covering.Equal:
			constrs = append(constrs, solver.Eq(lits(c.Vars), ones(len(c.Vars)), c.RHS)...)
		case covering.GreaterEq:
			constrs = append(constrs, solver.AtLeast(lits(c.Vars), c.RHS))
		}
	}
	return constrs
}

// Problem returns the gophersat problem equivalent to m, including its cost function if needed.
func Problem(m *covering.Model) *solver.Problem {
	pb := solver.ParsePBConstrs(Constrs(m))
	if m.Objective == covering.MinProgressions && pb.Status != solver.Unsat {
		free := m.Free()
		costLits := make([]solver.Lit, len(free))
		for i, v := range free {
			costLits[i] = solver.IntToLit(int32(lit(v)))
		}
		// Optimal sorts the cost literals along with their weights, so weights cannot be nil.
		pb.SetCostFunc(costLits, ones(len(costLits)))
	}
	return pb
}

// Solve implements covering.Solver.
// The engine cannot be interrupted: if ctx is done first, Solve returns
// the best solution found so far, if any, and lets the engine finish in the background.
// That search is recorded with covering.Detach.
func (s *Solver) Solve(ctx context.Context, m *covering.Model) (covering.Solution, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("pb")
	pb := Problem(m)
	log.V(logging.DEBUG).Info("problem ready", "vars", pb.NbVars, "constraints", len(pb.Clauses), "units", len(pb.Units), "optim", pb.Optim())
	if pb.Status == solver.Unsat {
		return covering.Solution{Status: covering.Unsat}, nil
	}
	if pb.NbVars != len(m.Vars) {
		return covering.Solution{}, fmt.Errorf("problem has %d variables, model has %d", pb.NbVars, len(m.Vars))
	}
	engine := solver.New(pb)
	engine.CuttingPlanes = s.CuttingPlanes
	results := make(chan solver.Result)
	go engine.Optimal(results, nil)
	start := time.Now()
	var best covering.Solution
	for {
		select {
		case res, ok := <-results:
			if !ok {
				if best.Status == covering.Sat {
					best.Optimal = true
				} else {
					best.Status = covering.Unsat
				}
				return best, nil
			}
			if res.Status != solver.Sat {
				continue
			}
			best = covering.Solution{Status: covering.Sat, Values: res.Model}
			log.V(logging.TRACE).Info("solution found", "cost", res.Weight, "elapsed", time.Since(start))
		case <-ctx.Done():
			done := covering.Detach(ctx)
			go func() {
				defer done()
				for range results {
				}
			}()
			log.V(logging.DEBUG).Info("search interrupted", "cause", ctx.Err().Error(), "found", best.Status == covering.Sat)
			return best, nil
		}
	}
}
