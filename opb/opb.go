// Package opb writes covering models in the OPB format, the input format of
// most pseudo-boolean solvers, including gophersat.
//
// The ith variable of the model is named x(i+1). A comment line maps each
// variable to its progression. Constraints of the form "sum <= k" are written
// as "sum(-1 x) >= -k", so that the output only uses the ">=" and "=" operators.
// Variables fixed to false are written as "+1 x = 0" rows.
package opb

import (
	"bufio"
	"fmt"
	"io"

	"github.com/crillab/covsat/covering"
)

// trivial returns true iff c is satisfied by any assignment.
func trivial(c covering.Constraint) bool {
	switch c.Op {
	case covering.LessEq:
		return c.RHS >= len(c.Vars)
	case covering.GreaterEq:
		return c.RHS <= 0
	default:
		return false
	}
}

// NbConstrs returns the number of rows Write will emit for m, the objective excluded.
func NbConstrs(m *covering.Model) int {
	nb := m.NbFixed()
	for _, c := range m.Constraints() {
		if !trivial(c) {
			nb++
		}
	}
	return nb
}

// Write writes m to w.
func Write(w io.Writer, m *covering.Model) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "* #variable= %d #constraint= %d\n", len(m.Vars), NbConstrs(m))
	fmt.Fprintf(bw, "* covering system, lcm %d, %d candidate moduli, objective %s\n", m.LCM, len(m.Moduli), m.Objective)
	for _, p := range m.Presets {
		fmt.Fprintf(bw, "* preset %v\n", p)
	}
	for i, v := range m.Vars {
		fmt.Fprintf(bw, "* x%d %s\n", i+1, v.Key.Name())
	}
	if m.Objective == covering.MinProgressions {
		bw.WriteString("min:")
		for _, v := range m.Free() {
			fmt.Fprintf(bw, " +1 x%d", v+1)
		}
		bw.WriteString(" ;\n")
	}
	for i, v := range m.Vars {
		if v.Fixed() {
			fmt.Fprintf(bw, "+1 x%d = 0 ;\n", i+1)
		}
	}
	for _, c := range m.Constraints() {
		if trivial(c) {
			continue
		}
		writeConstr(bw, c)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("could not write opb: %w", err)
	}
	return nil
}

func writeConstr(w *bufio.Writer, c covering.Constraint) {
	weight, op, rhs := "+1", c.Op.String(), c.RHS
	if c.Op == covering.LessEq {
		weight, op, rhs = "-1", ">=", -c.RHS
	}
	for i, v := range c.Vars {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "%s x%d", weight, v+1)
	}
	fmt.Fprintf(w, " %s %d ;\n", op, rhs)
}
