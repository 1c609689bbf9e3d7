package hart

import "testing"

// encR builds an R-type word: funct7 | rs2 | rs1 | funct3 | rd | opcode.
func encR(funct7, rs2, rs1, funct3, rd, op uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | op
}

// encI builds an I-type word: imm[11:0] | rs1 | funct3 | rd | opcode.
func encI(imm uint32, rs1, funct3, rd, op uint32) uint32 {
	return ((imm & 0xfff) << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | op
}

// encS builds an S-type word.
func encS(imm uint32, rs2, rs1, funct3, op uint32) uint32 {
	lo := imm & 0x1f
	hi := (imm >> 5) & 0x7f
	return (hi << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (lo << 7) | op
}

// encB builds a B-type word; imm is the signed byte offset, must be even.
func encB(imm int32, rs2, rs1, funct3 uint32) uint32 {
	u := uint32(imm)
	b11 := (u >> 11) & 1
	b12 := (u >> 12) & 1
	b1_4 := (u >> 1) & 0xf
	b5_10 := (u >> 5) & 0x3f
	return (b12 << 31) | (b5_10 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (b1_4 << 8) | (b11 << 7) | opBranch
}

// encU builds a U-type word (LUI/AUIPC): imm already shifted into [31:12].
func encU(imm uint32, rd, op uint32) uint32 {
	return (imm & 0xfffff000) | (rd << 7) | op
}

// encJ builds a J-type word (JAL); imm is the signed byte offset, must be even.
func encJ(imm int32, rd uint32) uint32 {
	u := uint32(imm)
	b19_12 := (u >> 12) & 0xff
	b11 := (u >> 11) & 1
	b1_10 := (u >> 1) & 0x3ff
	b20 := (u >> 20) & 1
	return (b20 << 31) | (b1_10 << 21) | (b11 << 20) | (b19_12 << 12) | (rd << 7) | opJal
}

func TestDecodeADDI(t *testing.T) {
	// addi x1, x2, -5
	neg5 := int32(-5)
	w := encI(uint32(neg5), 2, 0b000, 1, opOpImm)
	ins := Decode(w)
	if ins.Kind != KindADDI {
		t.Fatalf("expected KindADDI, got %v", ins.Kind)
	}
	if ins.Rd != 1 || ins.Rs1 != 2 {
		t.Errorf("expected rd=1 rs1=2, got rd=%d rs1=%d", ins.Rd, ins.Rs1)
	}
	if ins.Imm != -5 {
		t.Errorf("expected imm=-5, got %d", ins.Imm)
	}
}

func TestDecodeLUI(t *testing.T) {
	// lui x5, 0x12345
	w := encU(0x12345000, 5, opLui)
	ins := Decode(w)
	if ins.Kind != KindLUI {
		t.Fatalf("expected KindLUI, got %v", ins.Kind)
	}
	if ins.Imm != 0x12345000 {
		t.Errorf("expected imm=0x12345000, got 0x%x", uint32(ins.Imm))
	}
}

func TestDecodeJAL(t *testing.T) {
	// jal x1, 16
	w := encJ(16, 1)
	ins := Decode(w)
	if ins.Kind != KindJAL {
		t.Fatalf("expected KindJAL, got %v", ins.Kind)
	}
	if ins.Imm != 16 {
		t.Errorf("expected imm=16, got %d", ins.Imm)
	}
}

func TestDecodeBEQ(t *testing.T) {
	// beq x1, x2, -8
	w := encB(-8, 2, 1, 0b000)
	ins := Decode(w)
	if ins.Kind != KindBEQ {
		t.Fatalf("expected KindBEQ, got %v", ins.Kind)
	}
	if ins.Imm != -8 {
		t.Errorf("expected imm=-8, got %d", ins.Imm)
	}
}

func TestDecodeLoadStore(t *testing.T) {
	// sb x2, 4(x1) ; lb x3, 4(x1)
	sw := encS(4, 2, 1, 0b000, opStore)
	ins := Decode(sw)
	if ins.Kind != KindSB {
		t.Fatalf("expected KindSB, got %v", ins.Kind)
	}
	if ins.Imm != 4 {
		t.Errorf("expected imm=4, got %d", ins.Imm)
	}

	lw := encI(4, 1, 0b000, 3, opLoad)
	ins = Decode(lw)
	if ins.Kind != KindLB {
		t.Fatalf("expected KindLB, got %v", ins.Kind)
	}
}

func TestDecodeShiftImmediates(t *testing.T) {
	// slli x1, x1, 7
	slli := encR(0b0000000, 7, 1, 0b001, 1, opOpImm)
	ins := Decode(slli)
	if ins.Kind != KindSLLI {
		t.Fatalf("expected KindSLLI, got %v", ins.Kind)
	}
	if ins.Imm != 7 {
		t.Errorf("expected shamt=7, got %d", ins.Imm)
	}

	// srai x1, x1, 3
	srai := encR(0b0100000, 3, 1, 0b101, 1, opOpImm)
	ins = Decode(srai)
	if ins.Kind != KindSRAI {
		t.Fatalf("expected KindSRAI, got %v", ins.Kind)
	}

	// srli with the wrong funct7 must be rejected, not silently matched
	bad := encR(0b0000001, 3, 1, 0b101, 1, opOpImm)
	ins = Decode(bad)
	if ins.Kind != KindInvalid {
		t.Fatalf("expected KindInvalid for malformed shift funct7, got %v", ins.Kind)
	}
}

func TestDecodeMExtension(t *testing.T) {
	// mul x1, x2, x3
	mul := encR(0b0000001, 3, 2, 0b000, 1, opOp)
	ins := Decode(mul)
	if ins.Kind != KindMUL {
		t.Fatalf("expected KindMUL, got %v", ins.Kind)
	}

	// div x1, x2, x3
	div := encR(0b0000001, 3, 2, 0b100, 1, opOp)
	ins = Decode(div)
	if ins.Kind != KindDIV {
		t.Fatalf("expected KindDIV, got %v", ins.Kind)
	}
}

func TestDecodeAMOAndLRSC(t *testing.T) {
	// lr.w x1, (x2)
	lr := uint32((0b00010 << 27) | (2 << 15) | (0b010 << 12) | (1 << 7) | opAMO)
	ins := Decode(lr)
	if ins.Kind != KindLRW {
		t.Fatalf("expected KindLRW, got %v", ins.Kind)
	}

	// sc.w x3, x4, (x2)
	sc := uint32((0b00011 << 27) | (4 << 20) | (2 << 15) | (0b010 << 12) | (3 << 7) | opAMO)
	ins = Decode(sc)
	if ins.Kind != KindSCW {
		t.Fatalf("expected KindSCW, got %v", ins.Kind)
	}

	// amoadd.w x1, x2, (x3)
	amo := uint32((0b00000 << 27) | (2 << 20) | (3 << 15) | (0b010 << 12) | (1 << 7) | opAMO)
	ins = Decode(amo)
	if ins.Kind != KindAMOADDW {
		t.Fatalf("expected KindAMOADDW, got %v", ins.Kind)
	}
}

func TestDecodeFPArithBothPrecisions(t *testing.T) {
	// fadd.s f1, f2, f3
	adds := encR(0b0000000, 3, 2, 0b000, 1, opOpFP)
	ins := Decode(adds)
	if ins.Kind != KindFADDS {
		t.Fatalf("expected KindFADDS, got %v", ins.Kind)
	}

	// fadd.d f1, f2, f3
	addd := encR(0b0000001, 3, 2, 0b000, 1, opOpFP)
	ins = Decode(addd)
	if ins.Kind != KindFADDD {
		t.Fatalf("expected KindFADDD, got %v", ins.Kind)
	}
}

func TestDecodeFCVTSDAndDS(t *testing.T) {
	// fcvt.s.d f1, f2
	sd := encR(0b0100000, 0b00001, 2, 0b000, 1, opOpFP)
	ins := Decode(sd)
	if ins.Kind != KindFCVTSD {
		t.Fatalf("expected KindFCVTSD, got %v", ins.Kind)
	}

	// fcvt.d.s f1, f2
	ds := encR(0b0100001, 0b00000, 2, 0b000, 1, opOpFP)
	ins = Decode(ds)
	if ins.Kind != KindFCVTDS {
		t.Fatalf("expected KindFCVTDS, got %v", ins.Kind)
	}
}

func TestDecodeCSR(t *testing.T) {
	// csrrw x1, mstatus, x2
	w := encI(uint32(csrMstatus), 2, 0b001, 1, opSystem)
	ins := Decode(w)
	if ins.Kind != KindCSRRW {
		t.Fatalf("expected KindCSRRW, got %v", ins.Kind)
	}
	if uint16(uint32(ins.Imm)) != csrMstatus {
		t.Errorf("expected CSR addr 0x%03x, got 0x%03x", csrMstatus, ins.Imm)
	}
}

func TestDecodeECALLAndEBREAK(t *testing.T) {
	if Decode(0x00000073).Kind != KindECALL {
		t.Error("expected ECALL")
	}
	if Decode(0x00100073).Kind != KindEBREAK {
		t.Error("expected EBREAK")
	}
}

func TestDecodeInvalidOpcodeIsInvalid(t *testing.T) {
	// opcode bits = 0b1111111 is not assigned to anything in this ISA
	ins := Decode(0x7f)
	if ins.Kind != KindInvalid {
		t.Errorf("expected KindInvalid, got %v", ins.Kind)
	}
}
