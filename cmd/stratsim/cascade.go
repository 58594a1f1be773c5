package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/stratsim-xyz/go-stratsim/cascade"
	"github.com/stratsim-xyz/go-stratsim/domain"
)

func cascadeCmd(args []string) error {
	fs := flag.NewFlagSet("cascade", flag.ExitOnError)
	origin := fs.String("origin", "", "Origin domain of the trigger")
	magnitude := fs.Float64("magnitude", 1.0, "Trigger magnitude")
	maxWaves := fs.Int("max-waves", 0, "Wave generation limit (0 = default)")
	threshold := fs.Float64("threshold", 0, "Saturation threshold (0 = default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stratsim cascade <model.yaml|model.json> [options]

Propagate a trigger across the domain graph and print the resulting
wave sequence and detected feedback loops.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  stratsim cascade model.yaml --origin economic --magnitude 1.5
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
	graph, err := cfg.Validate()
	if err != nil {
		return err
	}

	opts := cascade.DefaultOptions()
	if *maxWaves > 0 {
		opts.MaxWaves = *maxWaves
	}
	if *threshold > 0 {
		opts.SaturationThreshold = *threshold
	}

	res, err := cascade.Simulate(cascade.Trigger{Origin: *origin, Magnitude: *magnitude}, graph, opts)
	if err != nil {
		return err
	}

	fmt.Printf("=== Cascade: %s -> %.2f ===\n\n", *origin, *magnitude)
	fmt.Printf("Waves (%d):\n", len(res.Waves))
	for _, w := range res.Waves {
		parent := "trigger"
		if w.Parent >= 0 {
			parent = fmt.Sprintf("wave %d", w.Parent)
		}
		fmt.Printf("  [%2d] %-12s magnitude=%+.4f step=%d (%s)\n",
			w.Index, w.Domain, w.Magnitude, w.Delay, parent)
	}
	fmt.Printf("\nHorizon: %d steps\n", res.HorizonSteps())

	if len(res.Loops) > 0 {
		fmt.Printf("\nFeedback loops (%d):\n", len(res.Loops))
		for _, l := range res.Loops {
			kind := "dampening"
			if l.Reinforcing {
				kind = "reinforcing"
			}
			fmt.Printf("  %s  %s gain=%.3f\n", strings.Join(l.Domains, " -> "), kind, l.Gain)
		}
	} else {
		fmt.Println("\nNo feedback loops detected")
	}
	return nil
}
