package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/crillab/covsat/brute"
	"github.com/crillab/covsat/cnf"
	"github.com/crillab/covsat/config"
	"github.com/crillab/covsat/covering"
	"github.com/crillab/covsat/internal/logging"
	"github.com/crillab/covsat/opb"
	"github.com/crillab/covsat/pb"
	"github.com/crillab/covsat/scan"
)

// options are the flags shared by all commands.
type options struct {
	out       io.Writer
	solver    string
	timeout   time.Duration
	objective string
	verbosity int
	json      bool
}

// problemFlags are the flags describing a problem on the command line.
type problemFlags struct {
	lcm        int
	presets    []string
	moduli     []int
	twice      int
	minModulus int
	usage      string
}

func (f *problemFlags) addCommon(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.lcm, "lcm", 0, "lcm of all moduli, i.e size of the window to cover")
	cmd.Flags().StringArrayVarP(&f.presets, "preset", "p", nil, "preset progression, as residue:modulus (repeatable)")
	cmd.Flags().StringVar(&f.usage, "usage", "", "usage policy of each modulus: at-most-one or exactly-one")
}

// run returns the run described by f, in the given mode.
func (f *problemFlags) run(mode string, opts *options) (*config.Run, error) {
	presets, err := parsePresets(f.presets)
	if err != nil {
		return nil, err
	}
	run := &config.Run{
		Mode:       mode,
		LCM:        f.lcm,
		Presets:    presets,
		Moduli:     f.moduli,
		Twice:      f.twice,
		MinModulus: f.minModulus,
		Usage:      f.usage,
	}
	opts.apply(run, nil)
	return run, nil
}

// parsePresets parses progressions written as "residue:modulus".
func parsePresets(vals []string) ([][]int, error) {
	res := make([][]int, len(vals))
	for i, val := range vals {
		fields := strings.Split(val, ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid preset %q: expected residue:modulus", val)
		}
		r, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid residue in preset %q: %v", val, err)
		}
		m, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid modulus in preset %q: %v", val, err)
		}
		res[i] = []int{r, m}
	}
	return res, nil
}

// apply overrides the fields of run with the persistent flags.
// If cmd is not nil, only the flags set by the user are applied.
func (opts *options) apply(run *config.Run, cmd *cobra.Command) {
	changed := func(name string) bool {
		return cmd == nil || cmd.Flags().Changed(name)
	}
	if changed("solver") && opts.solver != "" {
		run.Solver = opts.solver
	}
	if changed("timeout") && opts.timeout != 0 {
		run.Timeout = opts.timeout
	}
	if changed("objective") && opts.objective != "" {
		run.Objective = opts.objective
	}
}

func newSolver(name string) (covering.Solver, error) {
	switch name {
	case "", config.SolverPB:
		return pb.New(), nil
	case config.SolverCNF:
		return cnf.New(), nil
	case config.SolverBrute:
		return brute.New(), nil
	default:
		return nil, fmt.Errorf("invalid solver %q", name)
	}
}

// newContext returns the context of a command, bound to a logger and to the run's timeout.
func (opts *options) newContext(cmd *cobra.Command, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	log, err := logging.New(opts.verbosity, opts.json)
	if err != nil {
		return nil, nil, err
	}
	ctx := logr.NewContext(cmd.Context(), log)
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

// solve solves run and prints the outcome.
func (opts *options) solve(cmd *cobra.Command, run *config.Run) error {
	b, err := run.Builder()
	if err != nil {
		return fmt.Errorf("could not read problem: %w", err)
	}
	m, err := b.Build()
	if err != nil {
		return fmt.Errorf("could not build model: %w", err)
	}
	s, err := newSolver(run.SolverName())
	if err != nil {
		return err
	}
	ctx, cancel, err := opts.newContext(cmd, run.Timeout)
	if err != nil {
		return err
	}
	defer cancel()
	logr.FromContextOrDiscard(ctx).V(logging.DEBUG).Info("candidate moduli", "moduli", m.Moduli)
	printStats(opts.out, m)
	start := time.Now()
	out, err := covering.SolveModel(ctx, m, s)
	if err != nil {
		return fmt.Errorf("could not solve problem: %w", err)
	}
	printOutcome(opts.out, out, time.Since(start))
	return nil
}

// loadRun returns the run stored in the file args[0], or the example called name.
func loadRun(args []string, name string) (*config.Run, error) {
	switch {
	case len(args) == 1 && name != "":
		return nil, fmt.Errorf("cannot use both a run file and an example")
	case len(args) == 1:
		return config.Load(args[0])
	case name != "":
		return config.Example(name)
	default:
		return nil, fmt.Errorf("expected a run file or an example name")
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}
	root := &cobra.Command{
		Use:   "covsat",
		Short: "Search covering systems with SAT and pseudo-boolean solvers",
		Long: `covsat builds a 0/1 model whose solutions are covering systems of the integers
and hands it to a solver. A covering system is a finite set of progressions
r (mod m) such that every integer belongs to at least one of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.solver, "solver", "", "solver to use: pb, cnf or brute (default pb)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "time limit, e.g 10m (default no limit)")
	root.PersistentFlags().StringVar(&opts.objective, "objective", "", "feasibility or min-progressions")
	root.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "verbosity; repeat for more details")
	root.PersistentFlags().BoolVar(&opts.json, "json-logs", false, "write logs as JSON")
	root.AddCommand(
		newFixedCmd(opts),
		newDivisorsCmd(opts),
		newRunCmd(opts),
		newExportCmd(opts),
		newScanCmd(opts),
		newExampleCmd(opts),
	)
	return root
}

func newFixedCmd(opts *options) *cobra.Command {
	var f problemFlags
	cmd := &cobra.Command{
		Use:   "fixed",
		Short: "Search a covering system among explicitly given moduli",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := f.run(config.ModeFixed, opts)
			if err != nil {
				return err
			}
			return opts.solve(cmd, run)
		},
	}
	f.addCommon(cmd)
	cmd.Flags().IntSliceVar(&f.moduli, "moduli", nil, "candidate moduli, comma-separated")
	cmd.Flags().IntVar(&f.twice, "twice", 0, "candidate modulus that may be used by two progressions")
	return cmd
}

func newDivisorsCmd(opts *options) *cobra.Command {
	var (
		f    problemFlags
		list bool
	)
	cmd := &cobra.Command{
		Use:   "divisors",
		Short: "Search a covering system among the divisors of the lcm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := f.run(config.ModeDivisors, opts)
			if err != nil {
				return err
			}
			if !list {
				return opts.solve(cmd, run)
			}
			if err := run.Validate(); err != nil {
				return err
			}
			moduli, err := covering.DivisorSweep{LCM: run.LCM, MinModulus: run.MinModulus, Presets: run.Progressions()}.Candidates()
			if err != nil {
				return fmt.Errorf("could not list candidates: %w", err)
			}
			strs := make([]string, len(moduli))
			for i, m := range moduli {
				strs[i] = strconv.Itoa(m)
			}
			fmt.Fprintf(opts.out, "c %d candidate moduli\n%s\n", len(moduli), strings.Join(strs, " "))
			return nil
		},
	}
	f.addCommon(cmd)
	cmd.Flags().IntVar(&f.minModulus, "min", 2, "minimum modulus")
	cmd.Flags().BoolVar(&list, "list", false, "only print the candidate moduli")
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	var example string
	cmd := &cobra.Command{
		Use:   "run [file.yaml]",
		Short: "Solve the problem described in a run file or a built-in example",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args, example)
			if err != nil {
				return err
			}
			opts.apply(run, cmd)
			return opts.solve(cmd, run)
		},
	}
	cmd.Flags().StringVarP(&example, "example", "e", "", "name of a built-in example")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	var example, format, output string
	cmd := &cobra.Command{
		Use:   "export [file.yaml]",
		Short: "Write the model of a problem in the OPB or DIMACS CNF format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := loadRun(args, example)
			if err != nil {
				return err
			}
			opts.apply(run, cmd)
			b, err := run.Builder()
			if err != nil {
				return fmt.Errorf("could not read problem: %w", err)
			}
			m, err := b.Build()
			if err != nil {
				return fmt.Errorf("could not build model: %w", err)
			}
			w := opts.out
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("could not create %q: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			switch format {
			case "opb":
				err = opb.Write(w, m)
			case "cnf":
				err = cnf.WriteDimacs(w, m)
			default:
				return fmt.Errorf("invalid format %q: expected opb or cnf", format)
			}
			if err != nil {
				return fmt.Errorf("could not export model: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&example, "example", "e", "", "name of a built-in example")
	cmd.Flags().StringVarP(&format, "format", "f", "opb", "output format: opb or cnf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newScanCmd(opts *options) *cobra.Command {
	var (
		f        problemFlags
		lcms     []int
		from, to int
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Solve several divisor sweeps concurrently",
		Long: `scan solves one divisor sweep per minimum modulus in [--from, --to] for the lcm given by --lcm,
or one divisor sweep per lcm given by --lcms, with the minimum modulus --from.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			presets, err := parsePresets(f.presets)
			if err != nil {
				return err
			}
			usage, err := covering.ParseUsage(f.usage)
			if err != nil {
				return err
			}
			obj, err := covering.ParseObjective(opts.objective)
			if err != nil {
				return err
			}
			var jobs []scan.Job
			switch {
			case len(lcms) != 0 && f.lcm != 0:
				return fmt.Errorf("cannot use both --lcm and --lcms")
			case len(lcms) != 0:
				if len(presets) != 0 {
					return fmt.Errorf("presets cannot be used with --lcms")
				}
				jobs = scan.LCMRange(lcms, from, usage, obj)
			default:
				if to == 0 {
					to = f.lcm
				}
				run := config.Run{Presets: presets}
				jobs = scan.MinModulusRange(f.lcm, run.Progressions(), from, to, usage, obj)
			}
			if len(jobs) == 0 {
				return fmt.Errorf("nothing to scan")
			}
			s, err := newSolver(opts.solver)
			if err != nil {
				return err
			}
			ctx, cancel, err := opts.newContext(cmd, 0)
			if err != nil {
				return err
			}
			defer cancel()
			sc := scan.Scanner{Solver: s, Workers: workers, Timeout: opts.timeout}
			results, err := sc.Run(ctx, jobs)
			for _, res := range results {
				if res.Err != nil {
					fmt.Fprintf(opts.out, "c %s error: %v\n", res.Job.Name, res.Err)
					continue
				}
				fmt.Fprintf(opts.out, "c %s %s %v\n", res.Job.Name, res.Outcome.Verdict, res.Elapsed.Round(time.Millisecond))
			}
			return err
		},
	}
	f.addCommon(cmd)
	cmd.Flags().IntSliceVar(&lcms, "lcms", nil, "lcms to scan, comma-separated")
	cmd.Flags().IntVar(&from, "from", 2, "smallest minimum modulus")
	cmd.Flags().IntVar(&to, "to", 0, "biggest minimum modulus (default the lcm)")
	cmd.Flags().IntVar(&workers, "workers", 0, "number of problems solved at the same time (default number of CPUs)")
	return cmd
}

func newExampleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "example [name]",
		Short: "List the built-in examples, or print one as a run file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range config.ExampleNames() {
					fmt.Fprintln(opts.out, name)
				}
				return nil
			}
			run, err := config.Example(args[0])
			if err != nil {
				return err
			}
			return run.Marshal(opts.out)
		},
	}
}
