package covering

import (
	"fmt"
	"sort"
)

// A Progression is the arithmetic progression Residue (mod Modulus),
// i.e the set of all integers i such that i mod Modulus == Residue.
type Progression struct {
	Residue int
	Modulus int
}

func (p Progression) String() string {
	return fmt.Sprintf("%d (mod %d)", p.Residue, p.Modulus)
}

// Contains returns true iff i belongs to p.
// Negative values of i are handled with the mathematical, non-negative, remainder.
func (p Progression) Contains(i int) bool {
	return mod(i, p.Modulus) == p.Residue
}

// mod returns the non-negative remainder of a divided by m.
func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// CoveredSet returns, in increasing order, the integers in [0, lcm) that are not
// contained in any of the presets. These are the integers the model must cover.
func CoveredSet(lcm int, presets []Progression) []int {
	res := make([]int, 0, lcm)
	for i := 0; i < lcm; i++ {
		if !inAny(i, presets) {
			res = append(res, i)
		}
	}
	return res
}

// Reduce returns the elements of set that are not contained in any of the presets.
// Reducing an already reduced set with the same presets returns it unchanged.
// set is not modified.
func Reduce(set []int, presets []Progression) []int {
	res := make([]int, 0, len(set))
	for _, i := range set {
		if !inAny(i, presets) {
			res = append(res, i)
		}
	}
	return res
}

func inAny(i int, progs []Progression) bool {
	for _, p := range progs {
		if p.Contains(i) {
			return true
		}
	}
	return false
}

// Uncovered returns the integers in [0, lcm) that none of progs contains.
// progs is a covering system over [0, lcm) iff the result is empty.
func Uncovered(lcm int, progs []Progression) []int {
	return CoveredSet(lcm, progs)
}

// Divisors returns all the positive divisors of n, in increasing order.
// It returns nil if n < 1.
func Divisors(n int) []int {
	if n < 1 {
		return nil
	}
	var res []int
	for i := 1; i*i <= n; i++ {
		if n%i == 0 {
			res = append(res, i)
			if j := n / i; j != i {
				res = append(res, j)
			}
		}
	}
	sort.Ints(res)
	return res
}

// sortProgressions sorts progs by modulus, then by residue.
func sortProgressions(progs []Progression) {
	sort.Slice(progs, func(i, j int) bool {
		if progs[i].Modulus != progs[j].Modulus {
			return progs[i].Modulus < progs[j].Modulus
		}
		return progs[i].Residue < progs[j].Residue
	})
}
