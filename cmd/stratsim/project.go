package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/stratsim-xyz/go-stratsim/domain"
	"github.com/stratsim-xyz/go-stratsim/engine"
	"github.com/stratsim-xyz/go-stratsim/store"
	"github.com/stratsim-xyz/go-stratsim/trajectory"
)

func project(args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	origin := fs.String("origin", "", "Origin domain of the counterfactual")
	magnitude := fs.Float64("magnitude", 1.0, "Counterfactual magnitude")
	label := fs.String("label", "", "Counterfactual label")
	cfID := fs.String("id", "", "Counterfactual ID (defaults to the label)")
	step := fs.Int("step", 0, "Trigger step within the horizon")
	horizon := fs.Int("horizon", 36, "Projection horizon in steps")
	gran := fs.String("granularity", "monthly", "Step size: monthly, quarterly, or yearly")
	seed := fs.Uint64("seed", 42, "Random seed")
	samples := fs.Int("samples", 10000, "Monte Carlo sample count")
	confidence := fs.Float64("confidence", 0.95, "Confidence interval mass")
	output := fs.String("output", "", "Write the full trajectory JSON to file")
	dbPath := fs.String("db", "", "Save the trajectory into this SQLite database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stratsim project <model.yaml|model.json> [options]

Project a trajectory for a counterfactual: cascade propagation,
confidence bounds, decision points, inflection points, and branches.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # 36-month projection, printed
  stratsim project model.yaml --origin economic --magnitude 1.5

  # Persist for later inspection and intervention testing
  stratsim project model.yaml --origin economic --horizon 24 \
      --granularity quarterly --db runs.db

  # Full JSON export
  stratsim project model.yaml --origin economic --output trajectory.json
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("model file required")
	}
	if *origin == "" {
		return fmt.Errorf("--origin is required")
	}

	cfg, err := domain.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	eng = eng.WithSamples(*samples).WithConfidence(*confidence)

	id := *cfID
	if id == "" {
		id = *label
	}
	cf := domain.Counterfactual{
		ID:        id,
		Label:     *label,
		Origin:    *origin,
		Magnitude: *magnitude,
		Step:      *step,
	}

	traj, err := eng.Project(context.Background(), cf, *horizon, trajectory.Granularity(*gran), *seed)
	if err != nil {
		return err
	}

	if *output != "" {
		if err := writeTrajectory(traj, *output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote trajectory to %s\n\n", *output)
	}
	if *dbPath != "" {
		if err := saveTrajectory(traj, *dbPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved trajectory %s to %s\n\n", traj.ID, *dbPath)
	}

	printTrajectory(traj)
	return nil
}

func writeTrajectory(traj *trajectory.Trajectory, path string) error {
	data, err := json.MarshalIndent(traj, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trajectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write trajectory: %w", err)
	}
	return nil
}

func saveTrajectory(traj *trajectory.Trajectory, dbPath string) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Save(traj)
}

func printTrajectory(traj *trajectory.Trajectory) {
	fmt.Printf("=== Trajectory %s ===\n\n", traj.ID)
	fmt.Printf("Counterfactual: %s (%s, magnitude %.2f)\n",
		traj.Counterfactual.Label, traj.Counterfactual.Origin, traj.Counterfactual.Magnitude)
	fmt.Printf("Horizon: %d %s steps, seed %d\n\n",
		traj.Horizon, traj.Granularity, traj.Provenance.Seed)

	fmt.Printf("Cascade: %d waves, %d feedback loops\n\n", len(traj.Waves), len(traj.Loops))

	primary := traj.Metrics[0]
	series := traj.Series(primary)
	fmt.Printf("Baseline (%s):\n", primary)
	fmt.Printf("  start %.3f -> end %.3f\n", series[0], series[len(series)-1])
	if bands := traj.Bands[primary]; len(bands) > 0 {
		last := bands[len(bands)-1]
		fmt.Printf("  final band [%.3f, %.3f]\n", last.Lower, last.Upper)
	}
	fmt.Println()

	if n := len(traj.Baseline); n > 1 {
		net := trajectory.DiffState(traj.Baseline[n-1].State, traj.Baseline[0].State)
		fmt.Println("Net change:")
		for _, m := range traj.Metrics {
			fmt.Printf("  %-20s %+.3f\n", m, net[m])
		}
		fmt.Println()
	}

	if len(traj.Decisions) > 0 {
		fmt.Printf("Decision points (%d):\n", len(traj.Decisions))
		for _, dp := range traj.Decisions {
			fmt.Printf("  %s step=%d criticality=%.2f window=%d steps\n",
				dp.ID, dp.Step, dp.Criticality, dp.InterventionWindow)
			for _, pw := range dp.Pathways {
				fmt.Printf("    %-10s divergence=%.4f\n", pw.Name, pw.Divergence)
			}
		}
		fmt.Println()
	}

	if len(traj.Inflections) > 0 {
		fmt.Printf("Inflection points (%d):\n", len(traj.Inflections))
		for _, ip := range traj.Inflections {
			fmt.Printf("  step=%d %s %s magnitude=%.4f\n", ip.Step, ip.Metric, ip.Type, ip.Magnitude)
		}
		fmt.Println()
	}

	if len(traj.Sensitivity) > 0 {
		fmt.Println("Sensitivity:")
		for _, inf := range traj.Sensitivity {
			fmt.Printf("  %-20s %+.3f\n", inf.Name, inf.Correlation)
		}
		fmt.Println()
	}

	d := traj.Decomposition
	if d.Total > 0 {
		fmt.Printf("Uncertainty: total=%.4f epistemic=%.1f%% aleatory=%.1f%%\n",
			d.Total, 100*d.Epistemic/d.Total, 100*d.Aleatory/d.Total)
	}
}
