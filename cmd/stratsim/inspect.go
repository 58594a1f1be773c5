package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stratsim-xyz/go-stratsim/domain"
	"github.com/stratsim-xyz/go-stratsim/engine"
	"github.com/stratsim-xyz/go-stratsim/store"
)

func loadEngine(modelPath string) (*engine.Engine, error) {
	cfg, err := domain.LoadFile(modelPath)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg)
}

func list(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database to list")
	limit := fs.Int("limit", 0, "Maximum rows (0 = all)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stratsim list --db <runs.db> [options]

List stored trajectories, newest first.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		fs.Usage()
		return fmt.Errorf("--db is required")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := st.List(*limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No trajectories stored")
		return nil
	}

	fmt.Printf("%-38s %-20s %-8s %-10s %s\n", "ID", "COUNTERFACTUAL", "HORIZON", "GRAN", "CREATED")
	for _, r := range rows {
		label := r.CounterfactualID
		if r.Label != "" {
			label = r.Label
		}
		marker := ""
		if r.ParentID != "" {
			marker = " *"
		}
		fmt.Printf("%-38s %-20s %-8d %-10s %s%s\n",
			r.ID, label, r.Horizon, r.Granularity, r.CreatedAt.Format("2006-01-02 15:04"), marker)
	}
	return nil
}

func show(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database holding the trajectory")
	output := fs.String("output", "", "Write the full trajectory JSON to file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stratsim show --db <runs.db> <trajectory-id> [options]

Display a stored trajectory.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("trajectory ID required")
	}
	if *dbPath == "" {
		return fmt.Errorf("--db is required")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	traj, err := st.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	if *output != "" {
		if err := writeTrajectory(traj, *output); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote trajectory to %s\n\n", *output)
	}

	printTrajectory(traj)
	return nil
}

func deleteCmd(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database holding the trajectory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: stratsim delete --db <runs.db> <trajectory-id>

Remove a stored trajectory.
`)
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return fmt.Errorf("trajectory ID required")
	}
	if *dbPath == "" {
		return fmt.Errorf("--db is required")
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(fs.Arg(0)); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", fs.Arg(0))
	return nil
}
