package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/rv32hart/core/internal/hart"
)

// BatchResult is the outcome of running one scenario.
type BatchResult struct {
	Name     string
	Executed int
	Fault    *hart.Fault
}

// RunBatch drives each scenario's hart independently for up to maxSteps
// instructions, stopping early at a breakpoint or a fault, and reports
// progress the same way the teacher reports long-running downloads with
// progressbar.Default.
func RunBatch(scenarios []*Scenario, maxSteps int, out io.Writer) ([]BatchResult, error) {
	bar := progressbar.Default(int64(len(scenarios)))
	defer bar.Close()

	results := make([]BatchResult, 0, len(scenarios))
	for _, s := range scenarios {
		h, _, err := s.NewHartFromScenario()
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}

		executed, _, fault := h.Step(maxSteps)
		results = append(results, BatchResult{Name: s.Name, Executed: executed, Fault: fault})
		bar.Add(1)
	}
	return results, nil
}

// PrintBatchResults writes a one-line summary per scenario.
func PrintBatchResults(results []BatchResult, out io.Writer) {
	for _, r := range results {
		status := "ok"
		if r.Fault != nil {
			status = RenderFault(r.Fault)
		}
		fmt.Fprintf(out, "%-24s executed=%-6d %s\n", r.Name, r.Executed, status)
	}
}
