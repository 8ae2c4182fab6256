package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crillab/gophersat/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	var buf bytes.Buffer
	cmd := newRootCmd(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestFixedCmd(t *testing.T) {
	out, err := execute(t, "fixed", "--lcm", "12", "--moduli", "2,3,4,6", "--twice", "4", "--solver", "brute")
	require.NoError(t, err)
	assert.Contains(t, out, "c lcm 12, 0 presets, 4 candidate moduli\n")
	assert.Contains(t, out, "s COVERING\n")

	out, err = execute(t, "fixed", "--lcm", "35", "-p", "4:5", "--moduli", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "s NO COVERING\n")
	assert.NotContains(t, out, "\nv ")
}

func TestDivisorsCmd(t *testing.T) {
	for _, s := range []string{"pb", "cnf", "brute"} {
		t.Run(s, func(t *testing.T) {
			out, err := execute(t, "divisors", "--lcm", "12", "--min", "2", "--usage", "at-most-one", "--objective", "min-progressions", "--solver", s)
			require.NoError(t, err)
			assert.Contains(t, out, "s COVERING\n")
			assert.Equal(t, 5, strings.Count(out, "\nv "))
			assert.Contains(t, out, "c optimal\n")
		})
	}
}

func TestDivisorsList(t *testing.T) {
	out, err := execute(t, "divisors", "--lcm", "12", "--min", "2", "-p", "0:3", "--list")
	require.NoError(t, err)
	assert.Equal(t, "c 4 candidate moduli\n2 4 6 12\n", out)
}

func TestRunCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: divisors\nlcm: 12\nminModulus: 3\n"), 0o644))
	out, err := execute(t, "run", path, "--solver", "cnf")
	require.NoError(t, err)
	assert.Contains(t, out, "s NO COVERING\n")

	out, err = execute(t, "run", "-e", "classic-12")
	require.NoError(t, err)
	assert.Contains(t, out, "s COVERING\n")

	_, err = execute(t, "run", path, "-e", "classic-12")
	assert.Error(t, err)
	_, err = execute(t, "run")
	assert.Error(t, err)
	_, err = execute(t, "run", "-e", "classic-12", "--solver", "gurobi")
	assert.Error(t, err)
}

func TestExportCmd(t *testing.T) {
	out, err := execute(t, "export", "-e", "classic-12")
	require.NoError(t, err)
	pb, err := solver.ParseOPB(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, solver.Sat, solver.New(pb).Solve())

	path := filepath.Join(t.TempDir(), "model.cnf")
	_, err = execute(t, "export", "-e", "classic-12", "-f", "cnf", "-o", path)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "p cnf "))

	_, err = execute(t, "export", "-e", "classic-12", "-f", "lp")
	assert.Error(t, err)
}

func TestScanCmd(t *testing.T) {
	out, err := execute(t, "scan", "--lcm", "12", "--from", "1", "--to", "4", "--solver", "brute", "--workers", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "c lcm=12,min=1 COVERING "))
	assert.True(t, strings.HasPrefix(lines[1], "c lcm=12,min=2 COVERING "))
	assert.True(t, strings.HasPrefix(lines[2], "c lcm=12,min=3 NO COVERING "))
	assert.True(t, strings.HasPrefix(lines[3], "c lcm=12,min=4 NO COVERING "))

	out, err = execute(t, "scan", "--lcms", "6,12", "--from", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "c lcm=6,min=2 ")
	assert.Contains(t, out, "c lcm=12,min=2 COVERING ")

	_, err = execute(t, "scan", "--lcm", "12", "--lcms", "12")
	assert.Error(t, err)
}

func TestExampleCmd(t *testing.T) {
	out, err := execute(t, "example")
	require.NoError(t, err)
	assert.Equal(t, "classic-12\ndistinct-5-105\nmin-modulus-6\n", out)

	out, err = execute(t, "example", "min-modulus-6")
	require.NoError(t, err)
	assert.Contains(t, out, "minModulus: 6\n")

	_, err = execute(t, "example", "nope")
	assert.Error(t, err)
}

func TestParsePresets(t *testing.T) {
	presets, err := parsePresets([]string{"4:5", " 33 : 35 "})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{4, 5}, {33, 35}}, presets)
	for _, val := range []string{"4", "a:5", "4:b", "1:2:3"} {
		_, err := parsePresets([]string{val})
		assert.Error(t, err, val)
	}
}
