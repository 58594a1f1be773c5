package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "cascade":
		if err := cascadeCmd(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "project":
		if err := project(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "intervene":
		if err := intervene(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := list(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "show":
		if err := show(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "delete":
		if err := deleteCmd(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("stratsim version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stratsim - strategic trajectory projection tool

Usage:
  stratsim <command> [options]

Commands:
  validate   Validate a model configuration
  cascade    Propagate a trigger and show waves and feedback loops
  project    Project a full trajectory with confidence bounds
  intervene  Re-project a stored trajectory with an intervention applied
  list       List stored trajectories
  show       Display a stored trajectory
  delete     Remove a stored trajectory
  help       Show this help message
  version    Show version information

Examples:
  # Validate a model
  stratsim validate model.yaml

  # Propagate a trigger across domains
  stratsim cascade model.yaml --origin economic --magnitude 1.5

  # Run a projection and keep it
  stratsim project model.yaml --origin economic --magnitude 1.5 \
      --horizon 36 --seed 42 --db runs.db

  # Test an intervention at a detected decision point
  stratsim intervene --db runs.db <trajectory-id> --decision dp-003 \
      --impact 0.5 --decay 1.25

For command-specific help, run:
  stratsim <command> --help`)
}
