package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mxk/go-sqlite/sqlite3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cpso "github.com/anwesh0304/Chaotic-PSO"
	"github.com/anwesh0304/Chaotic-PSO/bench"
	"github.com/anwesh0304/Chaotic-PSO/chaos"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Minimize a benchmark function",
	RunE:  runOptimize,
}

func init() {
	runCmd.Flags().String("func", "rastrigin", "benchmark function (sphere, rastrigin, ackley, styblinski, rosenbrock, eggholder)")
	runCmd.Flags().Int("dim", 2, "dimensionality for scalable functions")
	runCmd.Flags().Int("particles", 25, "swarm size")
	runCmd.Flags().Int("runs", cpso.DefaultMaxRuns, "maximum independent restarts")
	runCmd.Flags().Int("max-forward", cpso.DefaultMaxForward, "forward-phase iteration cap per run")
	runCmd.Flags().Int("max-reverse", cpso.DefaultMaxReverse, "reverse-phase iteration cap per run")
	runCmd.Flags().Int("patience", cpso.DefaultPatience, "non-improving iterations before the gradient check")
	runCmd.Flags().Float64("grad-tol", cpso.DefaultGradTol, "gradient-norm acceptance threshold")
	runCmd.Flags().Int64("seed", 1, "base random seed")
	runCmd.Flags().Int("parallel", 1, "number of runs to execute concurrently")
	runCmd.Flags().String("chaos", "", "drive velocity coefficients with a chaotic map (logistic, tent, lorenz)")
	runCmd.Flags().String("trace-db", "", "sqlite file receiving the per-iteration swarm trace")
	runCmd.Flags().Bool("quiet", false, "suppress per-run Forward/Reverse reporting")

	viper.BindPFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	fn, err := pickFunc(viper.GetString("func"), viper.GetInt("dim"))
	if err != nil {
		return err
	}

	seed := viper.GetInt64("seed")
	opts := []cpso.Opt{
		cpso.Seed(seed),
		cpso.MaxRuns(viper.GetInt("runs")),
		cpso.MaxForwardIter(viper.GetInt("max-forward")),
		cpso.MaxReverseIter(viper.GetInt("max-reverse")),
		cpso.Patience(viper.GetInt("patience")),
		cpso.GradTol(viper.GetFloat64("grad-tol")),
		cpso.WithLogger(log),
	}
	if !viper.GetBool("quiet") {
		opts = append(opts, cpso.ReportIters(os.Stdout))
	}
	if k := viper.GetInt("parallel"); k > 1 {
		opts = append(opts, cpso.ParallelRuns(k))
	}
	if kind := viper.GetString("chaos"); kind != "" {
		if _, err := chaos.New(kind, seed); err != nil {
			return err
		}
		opts = append(opts, cpso.WithCoeffs(func(run int, rng cpso.Rng) cpso.CoeffSource {
			pair, _ := chaos.NewPair(kind, seed+int64(run))
			return pair
		}))
	}
	if path := viper.GetString("trace-db"); path != "" {
		db, err := sql.Open("sqlite3", path)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, cpso.WithDB(db))
	}

	low, up := fn.Bounds()
	out, err := cpso.Optimize(bench.Objective(fn), low, up, viper.GetInt("particles"), opts...)
	if err != nil {
		return err
	}

	fmt.Printf("%v\n", out.Best)
	fmt.Printf("gradient norm = %v (tolerance met: %v, runs: %v)\n",
		cpso.GradNorm(out.Grad(out.Best.Pos())), out.GradMet, len(out.Runs))
	return nil
}

func pickFunc(name string, dim int) (bench.Func, error) {
	switch strings.ToLower(name) {
	case "sphere":
		return bench.Sphere{NDim: dim}, nil
	case "rastrigin":
		return bench.Rastrigin{NDim: dim}, nil
	case "ackley":
		return bench.Ackley{}, nil
	case "styblinski":
		return bench.Styblinski{NDim: dim}, nil
	case "rosenbrock":
		return bench.Rosenbrock{NDim: dim}, nil
	case "eggholder":
		return bench.Eggholder{}, nil
	}
	return nil, fmt.Errorf("unknown benchmark function %q", name)
}
