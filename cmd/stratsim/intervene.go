package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/stratsim-xyz/go-stratsim/engine"
	"github.com/stratsim-xyz/go-stratsim/store"
)

func intervene(args []string) error {
	fs := flag.NewFlagSet("intervene", flag.ExitOnError)
	model := fs.String("model", "", "Model file the trajectory was projected from")
	dbPath := fs.String("db", "", "SQLite database holding the trajectory")
	decision := fs.String("decision", "", "Decision point ID, e.g. dp-003")
	name := fs.String("name", "intervention", "Intervention name")
	impact := fs.Float64("impact", 1.0, "Impact scale while active")
	decay := fs.Float64("decay", 1.0, "Decay scale while active")
	costTier := fs.String("cost", "", "Cost tier recorded in provenance")
	timeframe := fs.Int("timeframe", 0, "Active steps (0 = rest of horizon)")
	output := fs.String("output", "", "Write the resulting trajectory JSON to file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stratsim intervene --model <model> --db <runs.db> <trajectory-id> [options]

Re-project a stored trajectory with an intervention applied from one of
its decision points. The result is saved alongside the original, linked
through its provenance.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  stratsim intervene --model model.yaml --db runs.db \
      9f2c... --decision dp-003 --impact 0.5 --decay 1.25 --cost high
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("trajectory ID required")
	}
	if *model == "" || *dbPath == "" {
		return fmt.Errorf("--model and --db are required")
	}
	if *decision == "" {
		return fmt.Errorf("--decision is required")
	}

	eng, err := loadEngine(*model)
	if err != nil {
		return err
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	parent, err := st.Load(fs.Arg(0))
	if err != nil {
		return err
	}

	child, err := eng.TestIntervention(context.Background(), parent, *decision, engine.Intervention{
		Name:           *name,
		ImpactScale:    *impact,
		DecayScale:     *decay,
		CostTier:       *costTier,
		TimeframeSteps: *timeframe,
	})
	if err != nil {
		return err
	}

	if err := st.Save(child); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved trajectory %s (parent %s)\n\n", child.ID, parent.ID)

	if *output != "" {
		if err := writeTrajectory(child, *output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote trajectory to %s\n\n", *output)
	}

	printTrajectory(child)
	return nil
}
