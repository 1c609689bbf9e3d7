package hart

import (
	"math"
	"testing"
)

func TestBoxUnboxRoundTrip(t *testing.T) {
	boxed := box(math.Float32bits(3.5))
	v, ok := unbox(boxed)
	if !ok {
		t.Fatal("expected a correctly NaN-boxed value to unbox cleanly")
	}
	if math.Float32frombits(v) != 3.5 {
		t.Errorf("expected 3.5, got %v", math.Float32frombits(v))
	}
}

func TestUnboxRejectsImproperlyBoxedValue(t *testing.T) {
	// upper 32 bits not all-ones: per the NaN-boxing convention this reads
	// back as the canonical NaN, not whatever the low bits happen to hold.
	_, ok := unbox(0x0000000000000000)
	if ok {
		t.Error("expected improperly boxed value to be rejected")
	}
}

func TestFClassSingle(t *testing.T) {
	cases := []struct {
		v    float32
		want uint32
	}{
		{float32(math.Inf(-1)), 1 << 0},
		{-1.5, 1 << 1},
		{float32(math.Copysign(0, -1)), 1 << 3},
		{0, 1 << 4},
		{1.5, 1 << 6},
		{float32(math.Inf(1)), 1 << 7},
	}
	for _, c := range cases {
		got := fclass32(c.v)
		if got != c.want {
			t.Errorf("fclass32(%v) = %#b, want %#b", c.v, got, c.want)
		}
		// exactly one bit set
		if got == 0 || got&(got-1) != 0 {
			t.Errorf("fclass32(%v) = %#b, expected exactly one bit set", c.v, got)
		}
	}
}

func TestFClassQuietVsSignalingNaN(t *testing.T) {
	qnan := math.Float32frombits(0x7fc00001)
	snan := math.Float32frombits(0x7f800001)
	if fclass32(qnan) != 1<<9 {
		t.Errorf("expected quiet NaN bit, got %#b", fclass32(qnan))
	}
	if fclass32(snan) != 1<<8 {
		t.Errorf("expected signaling NaN bit, got %#b", fclass32(snan))
	}
}

func TestFMinNaNRules(t *testing.T) {
	fp := &fpState{}
	nan := float32(math.NaN())
	got := fmin32(nan, 2.0, fp)
	if got != 2.0 {
		t.Errorf("expected fmin(NaN, 2.0) = 2.0, got %v", got)
	}
	if fp.flags&flagNV == 0 {
		t.Error("expected NV flag raised when one operand is NaN")
	}
}

func TestFMinSignedZero(t *testing.T) {
	fp := &fpState{}
	negZero := float32(math.Copysign(0, -1))
	got := fmin32(negZero, 0, fp)
	if !signbit32(got) {
		t.Errorf("expected fmin(-0, +0) = -0, got %v (sign bit unset)", got)
	}
}

// TestRound32DirectedModes checks directed rounding at float32-ulp
// granularity, not integer granularity: round32 narrows a float64 to the
// nearest representable float32 in the given direction, the same precision
// every FADD.S/FSUB.S/FMUL.S/FDIV.S/FSQRT.S result narrows to.
func TestRound32DirectedModes(t *testing.T) {
	lo := float32(1.0)
	hi := math.Nextafter32(lo, float32(math.Inf(1)))
	ulp := float64(hi) - float64(lo)
	below := float64(lo) + ulp/4   // strictly between lo and the midpoint
	above := float64(lo) + 3*ulp/4 // strictly between the midpoint and hi

	cases := []struct {
		name string
		rm   uint32
		in   float64
		want float32
	}{
		{"RTZ below midpoint stays at lo", rmRTZ, below, lo},
		{"RTZ above midpoint truncates magnitude down to lo", rmRTZ, above, lo},
		{"RDN below midpoint floors to lo", rmRDN, below, lo},
		{"RDN above midpoint floors to lo", rmRDN, above, lo},
		{"RUP below midpoint ceils to hi", rmRUP, below, hi},
		{"RUP above midpoint ceils to hi", rmRUP, above, hi},
		{"RTZ negative truncates magnitude toward lo", rmRTZ, -below, -lo},
		{"RTZ negative truncates magnitude toward lo (above)", rmRTZ, -above, -lo},
		{"RDN negative floors toward -hi", rmRDN, -below, -hi},
		{"RDN negative floors toward -hi (above)", rmRDN, -above, -hi},
		{"RUP negative ceils toward -lo", rmRUP, -below, -lo},
		{"RUP negative ceils toward -lo (above)", rmRUP, -above, -lo},
	}
	for _, c := range cases {
		got := round32(c.in, c.rm)
		if got != c.want {
			t.Errorf("%s: round32(%v, rm=%d) = %v, want %v", c.name, c.in, c.rm, got, c.want)
		}
	}
}

func TestRound32RNEMatchesExactValue(t *testing.T) {
	if got := round32(2.0, rmRNE); got != 2.0 {
		t.Errorf("round32(2.0, rmRNE) = %v, want 2.0", got)
	}
}

func TestF32ToI32Clamping(t *testing.T) {
	fp := &fpState{}
	if v := f32ToI32(float32(math.Inf(1)), fp); v != math.MaxInt32 {
		t.Errorf("expected MaxInt32 for +Inf, got %d", v)
	}
	fp = &fpState{}
	if v := f32ToI32(float32(math.Inf(-1)), fp); v != math.MinInt32 {
		t.Errorf("expected MinInt32 for -Inf, got %d", v)
	}
	fp = &fpState{}
	if v := f32ToI32(float32(math.NaN()), fp); v != math.MaxInt32 {
		t.Errorf("expected MaxInt32 for NaN, got %d", v)
	}
	if fp.flags&flagNX == 0 {
		t.Error("expected NX flag raised converting NaN to integer")
	}
}

func TestFDivSByZeroRaisesOnlyDZ(t *testing.T) {
	fp := &fpState{}
	r := computeSingle(KindFDIVS, 1.0, 0.0, rmRNE, fp)
	if !math.IsInf(float64(r), 1) {
		t.Fatalf("expected +Inf result, got %v", r)
	}
	if fp.flags&flagDZ == 0 {
		t.Error("expected DZ flag raised for divide by zero")
	}
	if fp.flags&flagOF != 0 {
		t.Error("divide-by-zero must not also raise OF")
	}
}

func TestFDivDByZeroRaisesOnlyDZ(t *testing.T) {
	fp := &fpState{}
	r := computeDouble(KindFDIVD, -1.0, 0.0, fp)
	if !math.IsInf(r, -1) {
		t.Fatalf("expected -Inf result, got %v", r)
	}
	if fp.flags&flagDZ == 0 {
		t.Error("expected DZ flag raised for divide by zero")
	}
	if fp.flags&flagOF != 0 {
		t.Error("divide-by-zero must not also raise OF")
	}
}

func TestResolveRMRejectsReserved(t *testing.T) {
	h := newTestHart()
	if _, f := h.resolveRM(rmRMM); f == nil {
		t.Error("expected reserved rounding mode rmRMM to fault")
	}
	if _, f := h.resolveRM(rmRNE); f != nil {
		t.Errorf("expected rmRNE to be accepted, got fault %v", f)
	}
}

func TestResolveRMDynamicReadsFCSR(t *testing.T) {
	h := newTestHart()
	h.csrs[csrFcsr] = rmRDN << 5
	rm, f := h.resolveRM(rmDynamic)
	if f != nil {
		t.Fatalf("resolveRM: %v", f)
	}
	if rm != rmRDN {
		t.Errorf("expected dynamic rm to resolve to rmRDN, got %d", rm)
	}
}
