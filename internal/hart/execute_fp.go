package hart

import "math"

func (h *Hart) execFPLoadStore(ins Instruction) *Fault {
	addr := h.ReadReg(ins.Rs1) + uint32(ins.Imm)
	switch ins.Kind {
	case KindFLW:
		v, err := h.Bus.ReadWord(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.F[ins.Rd] = box(v)
	case KindFSW:
		v, _ := unbox(h.F[ins.Rs2])
		if err := h.Bus.WriteWord(addr, v); err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
	case KindFLD:
		if addr&3 != 0 {
			return newFault(FaultMemory, h.PC, "misaligned double load at 0x%x", addr)
		}
		lo, err := h.Bus.ReadWord(addr)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		hi, err := h.Bus.ReadWord(addr + 4)
		if err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		h.F[ins.Rd] = uint64(lo) | (uint64(hi) << 32)
	case KindFSD:
		v := h.F[ins.Rs2]
		if err := h.Bus.WriteWord(addr, uint32(v)); err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
		if err := h.Bus.WriteWord(addr+4, uint32(v>>32)); err != nil {
			return newFault(FaultMemory, h.PC, "%s", err.Error())
		}
	}
	return nil
}

// execFPArith implements the single-instruction FP arithmetic family:
// FADD/FSUB/FMUL/FDIV/FSQRT in both precisions. Per spec.md §4.5, host FP
// exception flags are derived from the IEEE-754 result (this core's
// softfloat-by-result-inspection approach, see float.go) and merged into
// fcsr. NV results canonicalize the destination; a divide-by-zero raises DZ
// and leaves the correctly signed infinity in the destination.
func (h *Hart) execFPArith(ins Instruction) *Fault {
	rm, rf := h.resolveRM(ins.Rm)
	if rf != nil {
		return rf
	}
	fp := &fpState{}

	single := isSingleArith(ins.Kind)
	if single {
		a := f32FromBits(h.F[ins.Rs1])
		var b float32
		if ins.Kind != KindFSQRTS {
			b = f32FromBits(h.F[ins.Rs2])
		}
		result := computeSingle(ins.Kind, a, b, rm, fp)
		h.F[ins.Rd] = f32ToBits(result)
	} else {
		a := f64FromBits(h.F[ins.Rs1])
		var b float64
		if ins.Kind != KindFSQRTD {
			b = f64FromBits(h.F[ins.Rs2])
		}
		result := computeDouble(ins.Kind, a, b, fp)
		h.F[ins.Rd] = f64ToBits(result)
	}
	fp.mergeInto(h)
	return nil
}

func isSingleArith(k Kind) bool {
	switch k {
	case KindFADDS, KindFSUBS, KindFMULS, KindFDIVS, KindFSQRTS:
		return true
	}
	return false
}

func computeSingle(k Kind, a, b float32, rm uint32, fp *fpState) float32 {
	da, db := float64(a), float64(b)
	var dr float64
	switch k {
	case KindFADDS:
		dr = da + db
	case KindFSUBS:
		dr = da - db
	case KindFMULS:
		dr = da * db
	case KindFDIVS:
		if db == 0 && !math.IsNaN(da) && da != 0 {
			fp.raise(flagDZ)
		}
		dr = da / db
	case KindFSQRTS:
		if da < 0 {
			fp.raise(flagNV)
			return math.Float32frombits(canonicalNaN32)
		}
		dr = math.Sqrt(da)
	}
	if math.IsNaN(dr) {
		fp.raise(flagNV)
		return math.Float32frombits(canonicalNaN32)
	}
	r := round32(dr, rm)
	if float64(r) != dr {
		fp.raise(flagNX)
	}
	// Divide-by-zero already raised DZ above and legitimately produces an
	// exact infinity from finite operands; that is not an overflow.
	if math.IsInf(float64(r), 0) && !math.IsInf(da, 0) && !math.IsInf(db, 0) && !(k == KindFDIVS && db == 0) {
		fp.raise(flagOF)
	}
	return r
}

func computeDouble(k Kind, a, b float64, fp *fpState) float64 {
	var r float64
	switch k {
	case KindFADDD:
		r = a + b
	case KindFSUBD:
		r = a - b
	case KindFMULD:
		r = a * b
	case KindFDIVD:
		if b == 0 && !math.IsNaN(a) && a != 0 {
			fp.raise(flagDZ)
		}
		r = a / b
	case KindFSQRTD:
		if a < 0 {
			fp.raise(flagNV)
			return math.Float64frombits(canonicalNaN64)
		}
		r = math.Sqrt(a)
	}
	if math.IsNaN(r) {
		fp.raise(flagNV)
		return math.Float64frombits(canonicalNaN64)
	}
	// Divide-by-zero already raised DZ above and legitimately produces an
	// exact infinity from finite operands; that is not an overflow.
	if math.IsInf(r, 0) && !math.IsInf(a, 0) && !math.IsInf(b, 0) && !(k == KindFDIVD && b == 0) {
		fp.raise(flagOF)
	}
	return r
}

// execFMA implements the fused multiply-add family. Go has no native fused
// operation for float32, so both precisions are evaluated with math.FMA in
// float64 (one round-to-nearest rounding). Single-precision results are then
// narrowed with round32 under the instruction's rounding mode, a second
// rounding step; double-precision results are math.FMA's result as is, so
// the rounding mode is not applied to them and they raise no NX.
func (h *Hart) execFMA(ins Instruction) *Fault {
	rm, rf := h.resolveRM(ins.Rm)
	if rf != nil {
		return rf
	}
	fp := &fpState{}

	switch ins.Kind {
	case KindFMADDS, KindFMSUBS, KindFNMSUBS, KindFNMADDS:
		a := float64(f32FromBits(h.F[ins.Rs1]))
		b := float64(f32FromBits(h.F[ins.Rs2]))
		c := float64(f32FromBits(h.F[ins.Rs3]))
		dr := fmaVariant(ins.Kind, a, b, c)
		if math.IsNaN(dr) {
			fp.raise(flagNV)
			h.F[ins.Rd] = f32ToBits(math.Float32frombits(canonicalNaN32))
		} else {
			r := round32(dr, rm)
			if float64(r) != dr {
				fp.raise(flagNX)
			}
			h.F[ins.Rd] = f32ToBits(r)
		}
	case KindFMADDD, KindFMSUBD, KindFNMSUBD, KindFNMADDD:
		a := f64FromBits(h.F[ins.Rs1])
		b := f64FromBits(h.F[ins.Rs2])
		c := f64FromBits(h.F[ins.Rs3])
		r := fmaVariantD(ins.Kind, a, b, c)
		if math.IsNaN(r) {
			fp.raise(flagNV)
			h.F[ins.Rd] = f64ToBits(math.Float64frombits(canonicalNaN64))
		} else {
			h.F[ins.Rd] = f64ToBits(r)
		}
	}
	fp.mergeInto(h)
	return nil
}

func fmaVariant(k Kind, a, b, c float64) float64 {
	switch k {
	case KindFMADDS:
		return math.FMA(a, b, c)
	case KindFMSUBS:
		return math.FMA(a, b, -c)
	case KindFNMSUBS:
		return -math.FMA(a, b, -c)
	case KindFNMADDS:
		return -math.FMA(a, b, c)
	}
	return math.NaN()
}

func fmaVariantD(k Kind, a, b, c float64) float64 {
	switch k {
	case KindFMADDD:
		return math.FMA(a, b, c)
	case KindFMSUBD:
		return math.FMA(a, b, -c)
	case KindFNMSUBD:
		return -math.FMA(a, b, -c)
	case KindFNMADDD:
		return -math.FMA(a, b, c)
	}
	return math.NaN()
}

func (h *Hart) execFSGNJ32(ins Instruction) {
	a, _ := unbox(h.F[ins.Rs1])
	b, _ := unbox(h.F[ins.Rs2])
	const signMask = 1 << 31
	var r uint32
	switch ins.Kind {
	case KindFSGNJS:
		r = (a &^ signMask) | (b & signMask)
	case KindFSGNJNS:
		r = (a &^ signMask) | (^b & signMask)
	case KindFSGNJXS:
		r = a ^ (b & signMask)
	}
	h.F[ins.Rd] = box(r)
}

func (h *Hart) execFSGNJ64(ins Instruction) {
	a := h.F[ins.Rs1]
	b := h.F[ins.Rs2]
	const signMask = uint64(1) << 63
	var r uint64
	switch ins.Kind {
	case KindFSGNJD:
		r = (a &^ signMask) | (b & signMask)
	case KindFSGNJND:
		r = (a &^ signMask) | (^b & signMask)
	case KindFSGNJXD:
		r = a ^ (b & signMask)
	}
	h.F[ins.Rd] = r
}

func (h *Hart) execFMinMax(ins Instruction) *Fault {
	fp := &fpState{}
	switch ins.Kind {
	case KindFMINS:
		a, b := f32FromBits(h.F[ins.Rs1]), f32FromBits(h.F[ins.Rs2])
		h.F[ins.Rd] = f32ToBits(fmin32(a, b, fp))
	case KindFMAXS:
		a, b := f32FromBits(h.F[ins.Rs1]), f32FromBits(h.F[ins.Rs2])
		h.F[ins.Rd] = f32ToBits(fmax32(a, b, fp))
	case KindFMIND:
		a, b := f64FromBits(h.F[ins.Rs1]), f64FromBits(h.F[ins.Rs2])
		h.F[ins.Rd] = f64ToBits(fmin64(a, b, fp))
	case KindFMAXD:
		a, b := f64FromBits(h.F[ins.Rs1]), f64FromBits(h.F[ins.Rs2])
		h.F[ins.Rd] = f64ToBits(fmax64(a, b, fp))
	}
	fp.mergeInto(h)
	return nil
}

func (h *Hart) execFCVTToInt(ins Instruction) *Fault {
	_, rf := h.resolveRM(ins.Rm)
	if rf != nil {
		return rf
	}
	fp := &fpState{}
	var v uint32
	switch ins.Kind {
	case KindFCVTWS:
		v = asU32(f32ToI32(f32FromBits(h.F[ins.Rs1]), fp))
	case KindFCVTWUS:
		v = f32ToU32(f32FromBits(h.F[ins.Rs1]), fp)
	case KindFCVTWD:
		v = asU32(f64ToI32(f64FromBits(h.F[ins.Rs1]), fp))
	case KindFCVTWUD:
		v = f64ToU32(f64FromBits(h.F[ins.Rs1]), fp)
	}
	h.WriteReg(ins.Rd, v)
	fp.mergeInto(h)
	return nil
}

func (h *Hart) execFCVTFromInt(ins Instruction) *Fault {
	rm, rf := h.resolveRM(ins.Rm)
	if rf != nil {
		return rf
	}
	fp := &fpState{}
	x := h.ReadReg(ins.Rs1)
	switch ins.Kind {
	case KindFCVTSW:
		r := round32(float64(asI32(x)), rm)
		if float64(r) != float64(asI32(x)) {
			fp.raise(flagNX)
		}
		h.F[ins.Rd] = f32ToBits(r)
	case KindFCVTSWU:
		r := round32(float64(x), rm)
		if float64(r) != float64(x) {
			fp.raise(flagNX)
		}
		h.F[ins.Rd] = f32ToBits(r)
	case KindFCVTDW:
		h.F[ins.Rd] = f64ToBits(float64(asI32(x)))
	case KindFCVTDWU:
		h.F[ins.Rd] = f64ToBits(float64(x))
	}
	fp.mergeInto(h)
	return nil
}

func (h *Hart) execFCompare(ins Instruction) *Fault {
	fp := &fpState{}
	var result bool
	switch ins.Kind {
	case KindFEQS:
		a, b := f32FromBits(h.F[ins.Rs1]), f32FromBits(h.F[ins.Rs2])
		if isSNaN32(a) || isSNaN32(b) {
			fp.raise(flagNV)
		}
		result = a == b
	case KindFLTS:
		a, b := f32FromBits(h.F[ins.Rs1]), f32FromBits(h.F[ins.Rs2])
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			fp.raise(flagNV)
		}
		result = a < b
	case KindFLES:
		a, b := f32FromBits(h.F[ins.Rs1]), f32FromBits(h.F[ins.Rs2])
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			fp.raise(flagNV)
		}
		result = a <= b
	case KindFEQD:
		a, b := f64FromBits(h.F[ins.Rs1]), f64FromBits(h.F[ins.Rs2])
		if isSNaN64(a) || isSNaN64(b) {
			fp.raise(flagNV)
		}
		result = a == b
	case KindFLTD:
		a, b := f64FromBits(h.F[ins.Rs1]), f64FromBits(h.F[ins.Rs2])
		if math.IsNaN(a) || math.IsNaN(b) {
			fp.raise(flagNV)
		}
		result = a < b
	case KindFLED:
		a, b := f64FromBits(h.F[ins.Rs1]), f64FromBits(h.F[ins.Rs2])
		if math.IsNaN(a) || math.IsNaN(b) {
			fp.raise(flagNV)
		}
		result = a <= b
	}
	h.WriteReg(ins.Rd, boolU32(result))
	fp.mergeInto(h)
	return nil
}

func (h *Hart) execFCVTSD(ins Instruction) *Fault {
	rm, rf := h.resolveRM(ins.Rm)
	if rf != nil {
		return rf
	}
	fp := &fpState{}
	d := f64FromBits(h.F[ins.Rs1])
	if math.IsNaN(d) {
		if isSNaN64(d) {
			fp.raise(flagNV)
		}
		h.F[ins.Rd] = f32ToBits(math.Float32frombits(canonicalNaN32))
	} else {
		r := round32(d, rm)
		if float64(r) != d {
			fp.raise(flagNX)
		}
		h.F[ins.Rd] = f32ToBits(r)
	}
	fp.mergeInto(h)
	return nil
}

func (h *Hart) execFCVTDS(ins Instruction) *Fault {
	fp := &fpState{}
	s := f32FromBits(h.F[ins.Rs1])
	if math.IsNaN(float64(s)) {
		if isSNaN32(s) {
			fp.raise(flagNV)
		}
		h.F[ins.Rd] = f64ToBits(math.Float64frombits(canonicalNaN64))
	} else {
		h.F[ins.Rd] = f64ToBits(float64(s))
	}
	fp.mergeInto(h)
	return nil
}
