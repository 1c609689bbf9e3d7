package hart

import "time"

// Step executes up to n instructions while the running flag holds
// (spec.md §4.6/§4.8). It returns the number of instructions actually
// executed, whether the hart stopped on a breakpoint, and any fatal fault.
// No error is caught inside Step; a fault halts the hart immediately and is
// surfaced to the caller, which is expected to record it (spec.md §7).
func (h *Hart) Step(n int) (executed int, hitBreakpoint bool, fault *Fault) {
	h.running = true
	i := 0
	for ; i < n && h.running; i++ {
		h.Cycles++

		if h.PC%4 != 0 {
			return i, false, newFault(FaultInvalidInstruction, h.PC, "misaligned pc")
		}

		word, err := h.Bus.ReadWord(h.PC)
		if err != nil {
			return i, false, newFault(FaultMemory, h.PC, "%s", err.Error())
		}

		ins := Decode(word)
		h.pcJumped = false
		if f := h.execute(ins); f != nil {
			return i + 1, false, f
		}

		if !h.pcJumped {
			h.PC += 4
		}
		h.X[0] = 0

		if h.IsBreakpoint(h.PC) {
			return i + 1, true, nil
		}
	}
	return i, false, nil
}

// Run drives the hart in batches, yielding to its caller when paused and
// pausing itself when a batch trips a breakpoint and pauseOnBreak is set
// (spec.md §4.8). It returns when the running flag clears or a fault
// occurs.
func (h *Hart) Run(batchSize int, pauseOnBreak bool) *Fault {
	h.running = true
	for h.running {
		start := time.Now()
		executed, hitBreak, fault := h.Step(batchSize)
		h.recordTick(time.Since(start), uint64(executed))
		if fault != nil {
			h.running = false
			return fault
		}
		if hitBreak && pauseOnBreak {
			h.running = false
			return nil
		}
	}
	return nil
}

// Running reports whether the hart's running flag is set.
func (h *Hart) Running() bool { return h.running }

// Pause clears the running flag; the next Step/Run iteration boundary
// observes it and exits (spec.md §5 cancellation).
func (h *Hart) Pause() { h.running = false }
