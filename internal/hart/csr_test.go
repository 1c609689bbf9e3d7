package hart

import "testing"

func newTestHart() *Hart {
	return NewHart(0, 0, NewBus(4096), ECALLTable{}, nil)
}

func TestCSRReadWriteRoundTrip(t *testing.T) {
	h := newTestHart()
	if f := h.csrWrite(csrMscratch, 0x1234); f != nil {
		t.Fatalf("csrWrite: %v", f)
	}
	v, f := h.csrRead(csrMscratch)
	if f != nil {
		t.Fatalf("csrRead: %v", f)
	}
	if v != 0x1234 {
		t.Errorf("expected 0x1234, got 0x%x", v)
	}
}

func TestCSRReadOnlyWriteIsDropped(t *testing.T) {
	h := newTestHart()
	before, _ := h.csrRead(csrMisa)
	if f := h.csrWrite(csrMisa, 0); f != nil {
		t.Fatalf("csrWrite: %v", f)
	}
	after, _ := h.csrRead(csrMisa)
	if before != after {
		t.Errorf("expected misa unchanged, got 0x%x -> 0x%x", before, after)
	}
}

func TestCSRPrivilegeFault(t *testing.T) {
	h := newTestHart()
	h.Priv = PrivilegeUser
	if _, f := h.csrRead(csrMscratch); f == nil {
		t.Fatal("expected CSR privilege fault reading mscratch from user mode")
	}
	// The CSR's stored value must be unchanged by a failed privileged access.
	h.Priv = PrivilegeMachine
	v, _ := h.csrRead(csrMscratch)
	if v != 0 {
		t.Errorf("expected mscratch untouched at 0, got 0x%x", v)
	}
}

func TestCSRInvalidAddressFaults(t *testing.T) {
	h := newTestHart()
	if _, f := h.csrRead(0x7ff); f == nil {
		t.Fatal("expected fault reading an unassigned CSR address")
	}
}

func TestCSRRWDeliversOldValue(t *testing.T) {
	h := newTestHart()
	h.csrWrite(csrMscratch, 111)
	h.WriteReg(2, 222)
	ins := Instruction{Kind: KindCSRRW, Rd: 1, Rs1: 2, Imm: int32(csrMscratch)}
	if f := h.execCSR(ins); f != nil {
		t.Fatalf("execCSR: %v", f)
	}
	if h.ReadReg(1) != 111 {
		t.Errorf("expected rd to receive the pre-write value 111, got %d", h.ReadReg(1))
	}
	v, _ := h.csrRead(csrMscratch)
	if v != 222 {
		t.Errorf("expected mscratch=222 after CSRRW, got %d", v)
	}
}

func TestCSRRSDeliversPreWriteValue(t *testing.T) {
	h := newTestHart()
	h.csrWrite(csrMscratch, 0b0101)
	h.WriteReg(3, 0b0010)
	ins := Instruction{Kind: KindCSRRS, Rd: 1, Rs1: 3, Imm: int32(csrMscratch)}
	if f := h.execCSR(ins); f != nil {
		t.Fatalf("execCSR: %v", f)
	}
	if h.ReadReg(1) != 0b0101 {
		t.Errorf("expected rd=0b0101 (pre-write), got %#b", h.ReadReg(1))
	}
	v, _ := h.csrRead(csrMscratch)
	if v != 0b0111 {
		t.Errorf("expected mscratch=0b0111 after set, got %#b", v)
	}
}

func TestCSRRCWithZeroOperandSkipsWrite(t *testing.T) {
	h := newTestHart()
	h.csrWrite(csrMscratch, 5)
	h.WriteReg(4, 0)
	ins := Instruction{Kind: KindCSRRC, Rd: 1, Rs1: 4, Imm: int32(csrMscratch)}
	if f := h.execCSR(ins); f != nil {
		t.Fatalf("execCSR: %v", f)
	}
	v, _ := h.csrRead(csrMscratch)
	if v != 5 {
		t.Errorf("expected mscratch unchanged at 5, got %d", v)
	}
}

func TestCSRRWIUsesImmediateNotRegister(t *testing.T) {
	h := newTestHart()
	ins := Instruction{Kind: KindCSRRWI, Rd: 0, Rs1: 0b11111, Imm: int32(csrMscratch)}
	if f := h.execCSR(ins); f != nil {
		t.Fatalf("execCSR: %v", f)
	}
	v, _ := h.csrRead(csrMscratch)
	if v != 0b11111 {
		t.Errorf("expected mscratch=31, got %d", v)
	}
}

func TestSynthesizedCycleCSRTracksCycles(t *testing.T) {
	h := newTestHart()
	h.Cycles = 7
	v, f := h.csrRead(csrCycle)
	if f != nil {
		t.Fatalf("csrRead: %v", f)
	}
	if v != 7 {
		t.Errorf("expected cycle CSR to mirror Cycles=7, got %d", v)
	}
}
