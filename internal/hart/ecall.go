package hart

// ECALLHandler services one ECALL dispatch code. Handlers receive the hart
// id and the mutable register/memory context they need to service the
// call, per spec.md §6. They return a fault only when the call cannot be
// serviced; a handler is free to mutate X, F, and Bus.
type ECALLHandler func(h *Hart) *Fault

// ECALLTable is a process-wide mapping from the dispatch code in register
// a0 at ECALL time to a handler, shared read-only by every hart
// (spec.md §6/§9 — passed in explicitly at construction rather than held as
// module-level state, so tests can install alternate tables).
type ECALLTable map[uint32]ECALLHandler

// emptyECALLHandler is invoked when a0 names no registered handler; it
// faults with the unresolved dispatch code so the caller can tell an
// unimplemented syscall from a real bug (spec.md §4.6).
func emptyECALLHandler(h *Hart) *Fault {
	return newFault(FaultUnimplemented, h.PC, "no ECALL handler for a0=%d", h.ReadReg(10))
}

func (h *Hart) dispatchECALL() *Fault {
	code := h.ReadReg(10) // a0
	handler, ok := h.ecall[code]
	if !ok {
		h.logger.Debug("ecall: no handler", "hart", h.ID, "a0", code, "pc", h.PC)
		return emptyECALLHandler(h)
	}
	h.logger.Debug("ecall", "hart", h.ID, "a0", code, "pc", h.PC)
	return handler(h)
}
