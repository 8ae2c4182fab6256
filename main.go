package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/crillab/covsat/covering"
)

func main() {
	debug.SetGCPercent(300)
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printStats prints the size of m as comment lines.
func printStats(w io.Writer, m *covering.Model) {
	st := m.Stats()
	fmt.Fprintf(w, "c lcm %d, %d presets, %d candidate moduli\n", m.LCM, len(m.Presets), st.Moduli)
	fmt.Fprintf(w, "c %d variables (%d fixed), %d usage constraints, %d coverage constraints\n", st.Vars, st.Fixed, st.Usage, st.Cover)
}

// printOutcome prints out in the usual solver output format:
// a status line, followed by one value line per progression if a covering was found.
func printOutcome(w io.Writer, out covering.Outcome, elapsed time.Duration) {
	fmt.Fprintf(w, "s %s\n", out.Verdict)
	if out.Verdict == covering.Exists {
		for _, p := range out.Covering {
			fmt.Fprintf(w, "v %s\n", p)
		}
		fmt.Fprintf(w, "c %d progressions, %d selected by the solver\n", len(out.Covering), len(out.Selected))
		if out.Optimal {
			fmt.Fprintf(w, "c optimal\n")
		}
	}
	fmt.Fprintf(w, "c solved in %v\n", elapsed.Round(time.Millisecond))
}
