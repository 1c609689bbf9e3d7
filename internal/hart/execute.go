package hart

import "math"

func asU32(v int32) uint32 { return uint32(v) }
func asI32(v uint32) int32 { return int32(v) }

// execute dispatches a decoded instruction, per the contracts in spec.md
// §4.6. It mutates h directly; pc advance is handled by the caller (Step)
// unless the instruction jumps, in which case it sets h.PC itself and
// h.pcJumped so Step skips the default +4.
func (h *Hart) execute(ins Instruction) *Fault {
	switch ins.Kind {
	case KindLUI:
		h.WriteReg(ins.Rd, uint32(ins.Imm))
	case KindAUIPC:
		h.WriteReg(ins.Rd, h.PC+uint32(ins.Imm))
	case KindJAL:
		h.WriteReg(ins.Rd, h.PC+4)
		h.jumpTo(h.PC + uint32(ins.Imm))
	case KindJALR:
		target := (h.ReadReg(ins.Rs1) + uint32(ins.Imm)) &^ 1
		h.WriteReg(ins.Rd, h.PC+4)
		h.jumpTo(target)

	case KindBEQ, KindBNE, KindBLT, KindBGE, KindBLTU, KindBGEU:
		return h.execBranch(ins)

	case KindLB, KindLH, KindLW, KindLBU, KindLHU:
		return h.execLoad(ins)
	case KindSB, KindSH, KindSW:
		return h.execStore(ins)

	case KindADDI:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)+uint32(ins.Imm))
	case KindSLTI:
		h.WriteReg(ins.Rd, boolU32(asI32(h.ReadReg(ins.Rs1)) < ins.Imm))
	case KindSLTIU:
		h.WriteReg(ins.Rd, boolU32(h.ReadReg(ins.Rs1) < uint32(ins.Imm)))
	case KindXORI:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)^uint32(ins.Imm))
	case KindORI:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)|uint32(ins.Imm))
	case KindANDI:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)&uint32(ins.Imm))
	case KindSLLI:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)<<uint(ins.Imm&0x1f))
	case KindSRLI:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)>>uint(ins.Imm&0x1f))
	case KindSRAI:
		h.WriteReg(ins.Rd, asU32(asI32(h.ReadReg(ins.Rs1))>>uint(ins.Imm&0x1f)))

	case KindADD:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)+h.ReadReg(ins.Rs2))
	case KindSUB:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)-h.ReadReg(ins.Rs2))
	case KindSLL:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)<<(h.ReadReg(ins.Rs2)&0x1f))
	case KindSLT:
		h.WriteReg(ins.Rd, boolU32(asI32(h.ReadReg(ins.Rs1)) < asI32(h.ReadReg(ins.Rs2))))
	case KindSLTU:
		h.WriteReg(ins.Rd, boolU32(h.ReadReg(ins.Rs1) < h.ReadReg(ins.Rs2)))
	case KindXOR:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)^h.ReadReg(ins.Rs2))
	case KindSRL:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)>>(h.ReadReg(ins.Rs2)&0x1f))
	case KindSRA:
		h.WriteReg(ins.Rd, asU32(asI32(h.ReadReg(ins.Rs1))>>(h.ReadReg(ins.Rs2)&0x1f)))
	case KindOR:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)|h.ReadReg(ins.Rs2))
	case KindAND:
		h.WriteReg(ins.Rd, h.ReadReg(ins.Rs1)&h.ReadReg(ins.Rs2))

	case KindFENCE:
		// no-op: a single-thread-per-hart engine trivially satisfies ordering.
	case KindECALL:
		return h.dispatchECALL()
	case KindEBREAK:
		// no-op at execution time; breakpoint pause is driven by Step/IsBreakpoint.

	case KindCSRRW, KindCSRRS, KindCSRRC, KindCSRRWI, KindCSRRSI, KindCSRRCI:
		return h.execCSR(ins)

	case KindMUL, KindMULH, KindMULHSU, KindMULHU, KindDIV, KindDIVU, KindREM, KindREMU:
		h.execMulDiv(ins)

	case KindLRW:
		v, err := h.Bus.ReadWordReserved(h.ReadReg(ins.Rs1), h.ID)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, v)
	case KindSCW:
		ok, err := h.Bus.WriteWordConditional(h.ReadReg(ins.Rs1), h.ReadReg(ins.Rs2), h.ID)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, boolU32(!ok))
	case KindAMOSWAPW, KindAMOADDW, KindAMOXORW, KindAMOANDW, KindAMOORW,
		KindAMOMINW, KindAMOMAXW, KindAMOMINUW, KindAMOMAXUW:
		return h.execAMO(ins)

	case KindFLW, KindFLD, KindFSW, KindFSD:
		return h.execFPLoadStore(ins)

	case KindFMADDS, KindFMSUBS, KindFNMSUBS, KindFNMADDS,
		KindFMADDD, KindFMSUBD, KindFNMSUBD, KindFNMADDD:
		return h.execFMA(ins)

	case KindFADDS, KindFSUBS, KindFMULS, KindFDIVS, KindFSQRTS,
		KindFADDD, KindFSUBD, KindFMULD, KindFDIVD, KindFSQRTD:
		return h.execFPArith(ins)

	case KindFSGNJS, KindFSGNJNS, KindFSGNJXS:
		h.execFSGNJ32(ins)
	case KindFSGNJD, KindFSGNJND, KindFSGNJXD:
		h.execFSGNJ64(ins)

	case KindFMINS, KindFMAXS, KindFMIND, KindFMAXD:
		return h.execFMinMax(ins)

	case KindFCVTWS, KindFCVTWUS, KindFCVTWD, KindFCVTWUD:
		return h.execFCVTToInt(ins)
	case KindFCVTSW, KindFCVTSWU, KindFCVTDW, KindFCVTDWU:
		return h.execFCVTFromInt(ins)

	case KindFMVXW:
		v, _ := unbox(h.F[ins.Rs1])
		h.WriteReg(ins.Rd, v)
	case KindFMVWX:
		h.F[ins.Rd] = box(h.ReadReg(ins.Rs1))

	case KindFEQS, KindFLTS, KindFLES, KindFEQD, KindFLTD, KindFLED:
		return h.execFCompare(ins)

	case KindFCLASSS:
		h.WriteReg(ins.Rd, fclass32(f32FromBits(h.F[ins.Rs1])))
	case KindFCLASSD:
		h.WriteReg(ins.Rd, fclass64(f64FromBits(h.F[ins.Rs1])))

	case KindFCVTSD:
		return h.execFCVTSD(ins)
	case KindFCVTDS:
		return h.execFCVTDS(ins)

	case KindCUSTTVA:
		phys, _, err := h.translate(h.ReadReg(ins.Rs1), false)
		if err != nil {
			return err
		}
		h.WriteReg(ins.Rd, phys)

	case KindURET, KindSRET, KindMRET, KindWFI, KindSFENCEVMA, KindSINVALVMA:
		return newFault(FaultUnimplemented, h.PC, "not implemented")

	default:
		return newFault(FaultInvalidInstruction, h.PC, "invalid instruction 0x%08x", ins.Raw)
	}
	return nil
}

func (h *Hart) jumpTo(target uint32) {
	h.PC = target
	h.pcJumped = true
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (h *Hart) execBranch(ins Instruction) *Fault {
	a, b := h.ReadReg(ins.Rs1), h.ReadReg(ins.Rs2)
	var taken bool
	switch ins.Kind {
	case KindBEQ:
		taken = a == b
	case KindBNE:
		taken = a != b
	case KindBLT:
		taken = asI32(a) < asI32(b)
	case KindBGE:
		taken = asI32(a) >= asI32(b)
	case KindBLTU:
		taken = a < b
	case KindBGEU:
		taken = a >= b
	}
	if taken {
		h.jumpTo(h.PC + uint32(ins.Imm))
	}
	return nil
}

func (h *Hart) execLoad(ins Instruction) *Fault {
	addr := h.ReadReg(ins.Rs1) + uint32(ins.Imm)
	switch ins.Kind {
	case KindLB:
		v, err := h.Bus.ReadByte(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, asU32(int32(int8(v))))
	case KindLBU:
		v, err := h.Bus.ReadByte(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, uint32(v))
	case KindLH:
		v, err := h.Bus.ReadHalf(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, asU32(int32(int16(v))))
	case KindLHU:
		v, err := h.Bus.ReadHalf(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, uint32(v))
	case KindLW:
		if addr&3 != 0 {
			return newFault(FaultMemory, h.PC, "misaligned word load at 0x%x", addr)
		}
		v, err := h.Bus.ReadWord(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.WriteReg(ins.Rd, v)
	}
	return nil
}

func (h *Hart) execStore(ins Instruction) *Fault {
	addr := h.ReadReg(ins.Rs1) + uint32(ins.Imm)
	v := h.ReadReg(ins.Rs2)
	switch ins.Kind {
	case KindSB:
		if err := h.Bus.WriteByte(addr, uint8(v)); err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
	case KindSH:
		if err := h.Bus.WriteHalf(addr, uint16(v)); err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
	case KindSW:
		if addr&3 != 0 {
			return newFault(FaultMemory, h.PC, "misaligned word store at 0x%x", addr)
		}
		if err := h.Bus.WriteWord(addr, v); err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
	}
	return nil
}

// execMulDiv implements M-extension semantics. Integer divide-by-zero
// follows the RISC-V spec's defined result values rather than faulting,
// per SPEC_FULL.md's resolution of spec.md §9's open question.
func (h *Hart) execMulDiv(ins Instruction) {
	a, b := h.ReadReg(ins.Rs1), h.ReadReg(ins.Rs2)
	switch ins.Kind {
	case KindMUL:
		h.WriteReg(ins.Rd, a*b)
	case KindMULH:
		h.WriteReg(ins.Rd, uint32(int64(int32(a))*int64(int32(b))>>32))
	case KindMULHSU:
		h.WriteReg(ins.Rd, uint32((int64(int32(a))*int64(uint64(b)))>>32))
	case KindMULHU:
		h.WriteReg(ins.Rd, uint32((uint64(a)*uint64(b))>>32))
	case KindDIV:
		sa, sb := asI32(a), asI32(b)
		switch {
		case sb == 0:
			h.WriteReg(ins.Rd, 0xffffffff)
		case sa == math.MinInt32 && sb == -1:
			h.WriteReg(ins.Rd, uint32(sa))
		default:
			h.WriteReg(ins.Rd, asU32(sa/sb))
		}
	case KindDIVU:
		if b == 0 {
			h.WriteReg(ins.Rd, 0xffffffff)
		} else {
			h.WriteReg(ins.Rd, a/b)
		}
	case KindREM:
		sa, sb := asI32(a), asI32(b)
		switch {
		case sb == 0:
			h.WriteReg(ins.Rd, a)
		case sa == math.MinInt32 && sb == -1:
			h.WriteReg(ins.Rd, 0)
		default:
			h.WriteReg(ins.Rd, asU32(sa%sb))
		}
	case KindREMU:
		if b == 0 {
			h.WriteReg(ins.Rd, a)
		} else {
			h.WriteReg(ins.Rd, a%b)
		}
	}
}

func (h *Hart) execAMO(ins Instruction) *Fault {
	addr := h.ReadReg(ins.Rs1)
	rs2 := h.ReadReg(ins.Rs2)
	var old uint32
	var err error
	switch ins.Kind {
	case KindAMOSWAPW:
		old, err = h.Bus.AtomicSwap(addr, rs2)
	case KindAMOADDW:
		old, err = h.Bus.AtomicAdd(addr, rs2)
	case KindAMOXORW:
		old, err = h.Bus.AtomicXor(addr, rs2)
	case KindAMOANDW:
		old, err = h.Bus.AtomicAnd(addr, rs2)
	case KindAMOORW:
		old, err = h.Bus.AtomicOr(addr, rs2)
	case KindAMOMINW:
		var v int32
		v, err = h.Bus.AtomicMin(addr, asI32(rs2))
		old = asU32(v)
	case KindAMOMAXW:
		var v int32
		v, err = h.Bus.AtomicMax(addr, asI32(rs2))
		old = asU32(v)
	case KindAMOMINUW:
		old, err = h.Bus.AtomicMinU(addr, rs2)
	case KindAMOMAXUW:
		old, err = h.Bus.AtomicMaxU(addr, rs2)
	}
	if err != nil {
		return newFault(FaultMemory, h.PC, "%s", err.Error())
	}
	h.WriteReg(ins.Rd, old)
	return nil
}
