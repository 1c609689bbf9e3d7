package hart

// execCSR implements the six CSR instructions per spec.md §4.3. The
// immediate variants reuse the decoded rs1 field as a zero-extended 5-bit
// immediate rather than a register index (§4.1); ins.Imm carries the
// 12-bit CSR address for every variant.
func (h *Hart) execCSR(ins Instruction) *Fault {
	addr := uint16(uint32(ins.Imm))

	switch ins.Kind {
	case KindCSRRW, KindCSRRWI:
		writeVal := ins.Rs1
		if ins.Kind == KindCSRRW {
			writeVal = h.ReadReg(ins.Rs1)
		}
		if ins.Rd != 0 {
			v, f := h.csrRead(addr)
			if f != nil {
				return f
			}
			if f := h.csrWrite(addr, writeVal); f != nil {
				return f
			}
			h.WriteReg(ins.Rd, v)
			return nil
		}
		return h.csrWrite(addr, writeVal)

	case KindCSRRS, KindCSRRSI, KindCSRRC, KindCSRRCI:
		opVal := ins.Rs1
		immForm := ins.Kind == KindCSRRSI || ins.Kind == KindCSRRCI
		if !immForm {
			opVal = h.ReadReg(ins.Rs1)
		}
		set := ins.Kind == KindCSRRS || ins.Kind == KindCSRRSI

		// The privilege-checked read both supplies the value delivered to
		// rd and the "current value" the new value is computed from; an
		// internal unchecked read is only needed when rd==0 suppresses
		// nothing here (unlike CSRRW, CSRRS/CSRRC always read), so a single
		// checked read satisfies spec.md §4.3's internal-read requirement
		// too (the two reads observe the same pre-write value).
		current, f := h.csrRead(addr)
		if f != nil {
			return f
		}
		h.WriteReg(ins.Rd, current)

		if opVal == 0 {
			return nil
		}
		var newVal uint32
		if set {
			newVal = current | opVal
		} else {
			newVal = current &^ opVal
		}
		return h.csrWrite(addr, newVal)
	}
	return nil
}
