// Command hartctl drives the RV32IMAFD core from the command line: a single
// scenario runs interactively in the REPL, a directory of scenarios runs as
// a batch conformance sweep.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

func run() error {
	scenarioPath := flag.String("scenario", "", "path to a single scenario YAML file (REPL mode)")
	batchDir := flag.String("batch", "", "directory of scenario YAML files to run as a batch")
	maxSteps := flag.Int("steps", 100000, "maximum instructions to execute per scenario before giving up")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `hartctl - interactive and batch driver for the RV32IMAFD core

USAGE:
  hartctl -scenario FILE     Run one scenario interactively
  hartctl -batch DIR -steps N   Run every *.yaml scenario in DIR headlessly
`)
	}
	flag.Parse()

	switch {
	case *batchDir != "":
		paths, err := filepath.Glob(filepath.Join(*batchDir, "*.yaml"))
		if err != nil {
			return fmt.Errorf("glob scenario directory: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no *.yaml scenarios found in %s", *batchDir)
		}
		var scenarios []*Scenario
		for _, p := range paths {
			s, err := LoadScenario(p)
			if err != nil {
				return err
			}
			scenarios = append(scenarios, s)
		}
		results, err := RunBatch(scenarios, *maxSteps, os.Stdout)
		if err != nil {
			return err
		}
		PrintBatchResults(results, os.Stdout)
		return nil

	case *scenarioPath != "":
		s, err := LoadScenario(*scenarioPath)
		if err != nil {
			return err
		}
		h, _, err := s.NewHartFromScenario()
		if err != nil {
			return fmt.Errorf("build hart from scenario: %w", err)
		}
		return RunREPL(h, os.Stdout)

	default:
		flag.Usage()
		os.Exit(1)
		return nil
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hartctl: %v\n", err)
		os.Exit(1)
	}
}
