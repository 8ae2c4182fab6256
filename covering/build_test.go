package covering_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/covsat/covering"
)

func prog(r, m int) covering.Progression {
	return covering.Progression{Residue: r, Modulus: m}
}

func TestDivisors(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4, 6, 12}, covering.Divisors(12))
	assert.Equal(t, []int{1}, covering.Divisors(1))
	assert.Equal(t, []int{1, 7, 49}, covering.Divisors(49))
	assert.Nil(t, covering.Divisors(0))
	assert.Len(t, covering.Divisors(5040), 60)
}

func TestCoveredSet(t *testing.T) {
	got := covering.CoveredSet(12, []covering.Progression{prog(0, 2), prog(1, 3)})
	assert.Equal(t, []int{3, 5, 9, 11}, got)
	assert.Len(t, covering.CoveredSet(35, nil), 35)
	assert.Empty(t, covering.CoveredSet(6, []covering.Progression{prog(0, 1)}))
}

func TestReduceIdempotent(t *testing.T) {
	presets := []covering.Progression{prog(6, 7), prog(7, 8), prog(8, 9), prog(33, 35)}
	once := covering.CoveredSet(5040, presets)
	twice := covering.Reduce(once, presets)
	assert.Equal(t, once, twice)
	assert.Len(t, once, 3248)
}

func TestProgressionContains(t *testing.T) {
	p := prog(4, 5)
	assert.True(t, p.Contains(4))
	assert.True(t, p.Contains(-1))
	assert.False(t, p.Contains(5))
	assert.Equal(t, "4 (mod 5)", p.String())
}

func TestDivisorSweepCandidates(t *testing.T) {
	moduli, err := covering.DivisorSweep{LCM: 12, MinModulus: 2}.Candidates()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 6, 12}, moduli)

	d := covering.DivisorSweep{
		LCM:        5040,
		MinModulus: 6,
		Presets:    []covering.Progression{prog(6, 7), prog(7, 8), prog(8, 9), prog(33, 35)},
	}
	moduli, err = d.Candidates()
	require.NoError(t, err)
	assert.Len(t, moduli, 51)
	assert.NotContains(t, moduli, 7)
	assert.NotContains(t, moduli, 35)
	assert.Contains(t, moduli, 6)
	assert.Contains(t, moduli, 5040)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder covering.Builder
		err     error
	}{
		{"null lcm", covering.FixedSet{Moduli: []int{2}}, covering.ErrInvalidLCM},
		{"preset does not divide", covering.FixedSet{LCM: 12, Presets: []covering.Progression{prog(0, 5)}, Moduli: []int{2}}, covering.ErrNotDivisor},
		{"preset residue too big", covering.FixedSet{LCM: 12, Presets: []covering.Progression{prog(3, 3)}, Moduli: []int{2}}, covering.ErrInvalidResidue},
		{"negative residue", covering.DivisorSweep{LCM: 12, MinModulus: 2, Presets: []covering.Progression{prog(-1, 3)}}, covering.ErrInvalidResidue},
		{"null preset modulus", covering.FixedSet{LCM: 12, Presets: []covering.Progression{prog(0, 0)}, Moduli: []int{2}}, covering.ErrInvalidModulus},
		{"candidate does not divide", covering.FixedSet{LCM: 12, Moduli: []int{2, 5}}, covering.ErrNotDivisor},
		{"null candidate", covering.FixedSet{LCM: 12, Moduli: []int{0}}, covering.ErrInvalidModulus},
		{"duplicate candidate", covering.FixedSet{LCM: 12, Moduli: []int{2, 3, 2}}, covering.ErrDuplicateModulus},
		{"no candidate", covering.FixedSet{LCM: 12}, covering.ErrNoCandidates},
		{"only preset moduli", covering.FixedSet{LCM: 12, Presets: []covering.Progression{prog(0, 2)}, Moduli: []int{2}}, covering.ErrNoCandidates},
		{"twice not a candidate", covering.FixedSet{LCM: 12, Moduli: []int{2, 3}, Twice: 4}, covering.ErrInvalidModulus},
		{"null min modulus", covering.DivisorSweep{LCM: 12}, covering.ErrInvalidModulus},
		{"min modulus too big", covering.DivisorSweep{LCM: 12, MinModulus: 13}, covering.ErrNoCandidates},
		{"preset below min modulus", covering.DivisorSweep{LCM: 12, MinModulus: 3, Presets: []covering.Progression{prog(0, 2)}}, covering.ErrPresetNotCandidate},
		{"preset modulus removed twice", covering.DivisorSweep{LCM: 12, MinModulus: 2, Presets: []covering.Progression{prog(0, 3), prog(1, 3)}}, covering.ErrPresetNotCandidate},
		{"preset not a divisor", covering.DivisorSweep{LCM: 12, MinModulus: 2, Presets: []covering.Progression{prog(0, 5)}}, covering.ErrNotDivisor},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := test.builder.Build()
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, test.err), "expected %v, got %v", test.err, err)
		})
	}
}

// builders used by property tests.
var propertyBuilders = map[string]covering.Builder{
	"scenario A": covering.FixedSet{
		LCM:     35,
		Presets: []covering.Progression{prog(4, 5)},
		Moduli:  []int{7},
	},
	"scenario B": covering.FixedSet{LCM: 12, Moduli: []int{2, 3}, Usage: covering.ExactlyOne},
	"scenario C": covering.DivisorSweep{LCM: 12, MinModulus: 2},
	"odd preset": covering.FixedSet{
		LCM:     12,
		Presets: []covering.Progression{prog(1, 2)},
		Moduli:  []int{3, 4, 6, 12},
	},
	"twice":    covering.FixedSet{LCM: 12, Moduli: []int{2, 3, 4, 6}, Twice: 4},
	"no twice": covering.FixedSet{LCM: 12, Moduli: []int{2, 3, 4, 6}},
	"overlapping presets": covering.DivisorSweep{
		LCM:        60,
		MinModulus: 3,
		Presets:    []covering.Progression{prog(1, 3), prog(2, 4), prog(4, 5)},
		Usage:      covering.AtMostOne,
	},
	"distinct 5 to 105": covering.FixedSet{
		LCM:     5040,
		Presets: []covering.Progression{prog(4, 5), prog(6, 7), prog(7, 8), prog(8, 9), prog(33, 35)},
		Moduli:  []int{6, 10, 12, 14, 15, 16, 18, 20, 21, 24, 28, 30, 36, 40, 42, 45, 48, 56, 60, 63, 70, 72, 80, 84, 90, 105},
		Twice:   48,
	},
}

func TestModelSize(t *testing.T) {
	for name, b := range propertyBuilders {
		t.Run(name, func(t *testing.T) {
			m, err := b.Build()
			require.NoError(t, err)
			assert.Len(t, m.Usage, len(m.Moduli))
			assert.Len(t, m.Cover, len(covering.CoveredSet(m.LCM, m.Presets)))
			sum := 0
			for _, mod := range m.Moduli {
				sum += mod
			}
			assert.Len(t, m.Vars, sum)
			for _, c := range m.Cover {
				assert.Len(t, c.Vars, len(m.Moduli))
				assert.Equal(t, covering.GreaterEq, c.Op)
				assert.Equal(t, 1, c.RHS)
			}
		})
	}
}

func TestCoverTerms(t *testing.T) {
	m, err := propertyBuilders["odd preset"].Build()
	require.NoError(t, err)
	covered := covering.CoveredSet(m.LCM, m.Presets)
	for i, c := range m.Cover {
		n := covered[i]
		assert.Equal(t, "cover_"+strconv.Itoa(n), c.Name)
		for j, v := range c.Vars {
			k := m.Vars[v].Key
			assert.Equal(t, m.Moduli[j], k.Modulus)
			assert.Equal(t, n%k.Modulus, k.Residue)
		}
	}
}

func TestFixedVars(t *testing.T) {
	for name, b := range propertyBuilders {
		t.Run(name, func(t *testing.T) {
			m, err := b.Build()
			require.NoError(t, err)
			for _, mod := range m.Moduli {
				row := m.Row(mod)
				require.Len(t, row, mod)
				want := make([]bool, mod)
				for _, p := range m.Presets {
					if mod%p.Modulus != 0 {
						continue
					}
					nb := 0
					for j := range row {
						if j%p.Modulus == p.Residue {
							want[j] = true
							nb++
							assert.True(t, m.Vars[row[j]].Fixed(), "%s should be fixed by %v", m.Vars[row[j]].Key.Name(), p)
						}
					}
					assert.Equal(t, mod/p.Modulus, nb)
				}
				for j, v := range row {
					assert.Equal(t, want[j], m.Vars[v].Fixed(), "unexpected binding for %s", m.Vars[v].Key.Name())
					assert.Equal(t, 0, m.Vars[v].Lower)
				}
			}
		})
	}
}

func TestFixedCount(t *testing.T) {
	m, err := propertyBuilders["distinct 5 to 105"].Build()
	require.NoError(t, err)
	st := m.Stats()
	assert.Equal(t, covering.Stats{Moduli: 26, Vars: 1105, Fixed: 251, Usage: 26, Cover: 2576}, st)
}

func TestUsagePolicies(t *testing.T) {
	m, err := propertyBuilders["twice"].Build()
	require.NoError(t, err)
	for i, c := range m.Usage {
		assert.Equal(t, m.Row(m.Moduli[i]), c.Vars)
		if m.Moduli[i] == 4 {
			assert.Equal(t, covering.LessEq, c.Op)
			assert.Equal(t, 2, c.RHS)
		} else {
			assert.Equal(t, covering.LessEq, c.Op)
			assert.Equal(t, 1, c.RHS)
		}
	}
	m, err = propertyBuilders["scenario C"].Build()
	require.NoError(t, err)
	for _, c := range m.Usage {
		assert.Equal(t, covering.Equal, c.Op)
		assert.Equal(t, 1, c.RHS)
	}
	m, err = covering.DivisorSweep{LCM: 12, MinModulus: 2, Usage: covering.AtMostOne}.Build()
	require.NoError(t, err)
	for _, c := range m.Usage {
		assert.Equal(t, covering.LessEq, c.Op)
	}
	m, err = covering.FixedSet{LCM: 12, Moduli: []int{2, 3}, Twice: 3, Usage: covering.ExactlyOne}.Build()
	require.NoError(t, err)
	assert.Equal(t, covering.Equal, m.Usage[0].Op)
	assert.Equal(t, covering.LessEq, m.Usage[1].Op)
	assert.Equal(t, 2, m.Usage[1].RHS)
}

func TestFixedSetSkipsPresetModuli(t *testing.T) {
	m, err := covering.FixedSet{
		LCM:     12,
		Presets: []covering.Progression{prog(1, 2)},
		Moduli:  []int{4, 2, 3},
	}.Build()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, m.Moduli)
	_, ok := m.Var(covering.Key{Modulus: 2, Residue: 0})
	assert.False(t, ok)
	v, ok := m.Var(covering.Key{Modulus: 3, Residue: 2})
	require.True(t, ok)
	assert.Equal(t, 6, v)
	assert.Equal(t, "x_3_2", m.Vars[v].Key.Name())
}

// assignments calls f with every assignment of m giving at most limit(modulus) true values per row
// and no true value to a fixed variable.
func assignments(m *covering.Model, limit func(int) int, f func([]bool)) {
	values := make([]bool, len(m.Vars))
	var rec func(i int)
	rec = func(i int) {
		if i == len(m.Moduli) {
			f(values)
			return
		}
		row := m.Row(m.Moduli[i])
		rec(i + 1)
		for a, va := range row {
			if m.Vars[va].Fixed() {
				continue
			}
			values[va] = true
			rec(i + 1)
			if limit(m.Moduli[i]) > 1 {
				for _, vb := range row[a+1:] {
					if m.Vars[vb].Fixed() {
						continue
					}
					values[vb] = true
					rec(i + 1)
					values[vb] = false
				}
			}
			values[va] = false
		}
	}
	rec(0)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		limit func(int) int
	}{
		{"scenario A", func(int) int { return 1 }},
		{"scenario B", func(int) int { return 1 }},
		{"scenario C", func(int) int { return 1 }},
		{"odd preset", func(int) int { return 1 }},
		{"no twice", func(int) int { return 1 }},
		{"twice", func(m int) int {
			if m == 4 {
				return 2
			}
			return 1
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := propertyBuilders[test.name].Build()
			require.NoError(t, err)
			nbModels := 0
			assignments(m, test.limit, func(values []bool) {
				progs := append(m.Selected(values), m.Presets...)
				covers := len(covering.Uncovered(m.LCM, progs)) == 0
				usageOK := true
				for _, c := range m.Usage {
					nb := 0
					for _, v := range c.Vars {
						if values[v] {
							nb++
						}
					}
					if c.Op == covering.Equal && nb != c.RHS {
						usageOK = false
					}
				}
				if !usageOK {
					return
				}
				sat := m.Check(values) == nil
				if sat {
					nbModels++
				}
				assert.Equal(t, covers, sat, "assignment %v", m.Selected(values))
			})
			switch test.name {
			case "scenario A", "scenario B", "no twice":
				assert.Zero(t, nbModels)
			case "scenario C":
				assert.Equal(t, 24, nbModels)
			case "odd preset":
				assert.Equal(t, 12, nbModels)
			case "twice":
				assert.Equal(t, 56, nbModels)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	m, err := propertyBuilders["scenario A"].Build()
	require.NoError(t, err)
	assert.Error(t, m.Check(nil))
	values := make([]bool, len(m.Vars))
	v, _ := m.Var(covering.Key{Modulus: 7, Residue: 4})
	values[v] = true
	assert.Error(t, m.Check(values))
}
