// Package hart implements the RV32IMAFD execution core: decode, per-instruction
// semantics, the CSR file, Sv32 translation, and IEEE-754 float support.
package hart

// Kind tags a decoded instruction's operation. Dispatch in execute.go is an
// exhaustive switch over Kind rather than a class hierarchy.
type Kind uint8

const (
	KindInvalid Kind = iota

	KindLUI
	KindAUIPC
	KindJAL
	KindJALR

	KindBEQ
	KindBNE
	KindBLT
	KindBGE
	KindBLTU
	KindBGEU

	KindLB
	KindLH
	KindLW
	KindLBU
	KindLHU
	KindSB
	KindSH
	KindSW

	KindADDI
	KindSLTI
	KindSLTIU
	KindXORI
	KindORI
	KindANDI
	KindSLLI
	KindSRLI
	KindSRAI

	KindADD
	KindSUB
	KindSLL
	KindSLT
	KindSLTU
	KindXOR
	KindSRL
	KindSRA
	KindOR
	KindAND

	KindFENCE
	KindECALL
	KindEBREAK

	KindCSRRW
	KindCSRRS
	KindCSRRC
	KindCSRRWI
	KindCSRRSI
	KindCSRRCI

	KindMUL
	KindMULH
	KindMULHSU
	KindMULHU
	KindDIV
	KindDIVU
	KindREM
	KindREMU

	KindLRW
	KindSCW
	KindAMOSWAPW
	KindAMOADDW
	KindAMOXORW
	KindAMOANDW
	KindAMOORW
	KindAMOMINW
	KindAMOMAXW
	KindAMOMINUW
	KindAMOMAXUW

	KindFLW
	KindFSW
	KindFLD
	KindFSD

	KindFMADDS
	KindFMSUBS
	KindFNMSUBS
	KindFNMADDS
	KindFMADDD
	KindFMSUBD
	KindFNMSUBD
	KindFNMADDD

	KindFADDS
	KindFSUBS
	KindFMULS
	KindFDIVS
	KindFSQRTS
	KindFSGNJS
	KindFSGNJNS
	KindFSGNJXS
	KindFMINS
	KindFMAXS
	KindFCVTWS
	KindFCVTWUS
	KindFCVTSW
	KindFCVTSWU
	KindFMVXW
	KindFMVWX
	KindFEQS
	KindFLTS
	KindFLES
	KindFCLASSS

	KindFADDD
	KindFSUBD
	KindFMULD
	KindFDIVD
	KindFSQRTD
	KindFSGNJD
	KindFSGNJND
	KindFSGNJXD
	KindFMIND
	KindFMAXD
	KindFCVTWD
	KindFCVTWUD
	KindFCVTDW
	KindFCVTDWU
	KindFEQD
	KindFLTD
	KindFLED
	KindFCLASSD
	KindFCVTSD
	KindFCVTDS

	KindURET
	KindSRET
	KindMRET
	KindWFI
	KindSFENCEVMA
	KindSINVALVMA

	KindCUSTTVA
)

// Instruction is the decoder's output: a pure function from a 32-bit word to
// this tagged record. No execution semantics live here.
type Instruction struct {
	Kind Kind
	Rd   uint32
	Rs1  uint32
	Rs2  uint32
	Rs3  uint32
	Imm  int32
	Rm   uint32 // 3-bit rounding-mode field, valid only for FP Kinds
	Raw  uint32
}

// Opcode field values (insn[6:0]).
const (
	opLoad    = 0b0000011
	opLoadFP  = 0b0000111
	opMiscMem = 0b0001111
	opOpImm   = 0b0010011
	opAuipc   = 0b0010111
	opStore   = 0b0100011
	opStoreFP = 0b0100111
	opAMO     = 0b0101111
	opOp      = 0b0110011
	opLui     = 0b0110111
	opMadd    = 0b1000011
	opMsub    = 0b1000111
	opNmsub   = 0b1001011
	opNmadd   = 0b1001111
	opOpFP    = 0b1010011
	opBranch  = 0b1100011
	opJalr    = 0b1100111
	opJal     = 0b1101111
	opSystem  = 0b1110011
	opCustom0 = 0b0001011 // CUST_TVA allocation: custom-0 major opcode
)

func opcode(insn uint32) uint32 { return insn & 0x7f }
func rdF(insn uint32) uint32    { return (insn >> 7) & 0x1f }
func funct3(insn uint32) uint32 { return (insn >> 12) & 0x7 }
func rs1F(insn uint32) uint32   { return (insn >> 15) & 0x1f }
func rs2F(insn uint32) uint32   { return (insn >> 20) & 0x1f }
func rs3F(insn uint32) uint32   { return (insn >> 27) & 0x1f }
func funct7(insn uint32) uint32 { return (insn >> 25) & 0x7f }
func fmtF(insn uint32) uint32   { return (insn >> 25) & 0x3 } // FP fmt field, low 2 bits of funct7

func signExtend(v uint32, bits int) int32 {
	shift := 32 - bits
	return int32(v<<uint(shift)) >> uint(shift)
}

func immI(insn uint32) int32 { return signExtend(insn>>20, 12) }

func immS(insn uint32) int32 {
	v := ((insn >> 7) & 0x1f) | (((insn >> 25) & 0x7f) << 5)
	return signExtend(v, 12)
}

func immB(insn uint32) int32 {
	v := (((insn >> 8) & 0xf) << 1) |
		(((insn >> 25) & 0x3f) << 5) |
		(((insn >> 7) & 0x1) << 11) |
		(((insn >> 31) & 0x1) << 12)
	return signExtend(v, 13)
}

func immU(insn uint32) int32 { return int32(insn & 0xfffff000) }

func immJ(insn uint32) int32 {
	v := (((insn >> 21) & 0x3ff) << 1) |
		(((insn >> 20) & 0x1) << 11) |
		(((insn >> 12) & 0xff) << 12) |
		(((insn >> 31) & 0x1) << 20)
	return signExtend(v, 21)
}

// Decode is a pure function: 32-bit word in, decoded record out. Any bit
// pattern not matching a listed RV32IMAFD/privileged encoding decodes to
// KindInvalid.
func Decode(insn uint32) Instruction {
	op := opcode(insn)
	ins := Instruction{Raw: insn, Rd: rdF(insn), Rs1: rs1F(insn), Rs2: rs2F(insn)}

	switch op {
	case opLui:
		ins.Kind = KindLUI
		ins.Imm = immU(insn)
	case opAuipc:
		ins.Kind = KindAUIPC
		ins.Imm = immU(insn)
	case opJal:
		ins.Kind = KindJAL
		ins.Imm = immJ(insn)
	case opJalr:
		if funct3(insn) != 0 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindJALR
		ins.Imm = immI(insn)
	case opBranch:
		ins.Imm = immB(insn)
		switch funct3(insn) {
		case 0b000:
			ins.Kind = KindBEQ
		case 0b001:
			ins.Kind = KindBNE
		case 0b100:
			ins.Kind = KindBLT
		case 0b101:
			ins.Kind = KindBGE
		case 0b110:
			ins.Kind = KindBLTU
		case 0b111:
			ins.Kind = KindBGEU
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case opLoad:
		ins.Imm = immI(insn)
		switch funct3(insn) {
		case 0b000:
			ins.Kind = KindLB
		case 0b001:
			ins.Kind = KindLH
		case 0b010:
			ins.Kind = KindLW
		case 0b100:
			ins.Kind = KindLBU
		case 0b101:
			ins.Kind = KindLHU
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case opStore:
		ins.Imm = immS(insn)
		switch funct3(insn) {
		case 0b000:
			ins.Kind = KindSB
		case 0b001:
			ins.Kind = KindSH
		case 0b010:
			ins.Kind = KindSW
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case opOpImm:
		ins.Imm = immI(insn)
		switch funct3(insn) {
		case 0b000:
			ins.Kind = KindADDI
		case 0b010:
			ins.Kind = KindSLTI
		case 0b011:
			ins.Kind = KindSLTIU
		case 0b100:
			ins.Kind = KindXORI
		case 0b110:
			ins.Kind = KindORI
		case 0b111:
			ins.Kind = KindANDI
		case 0b001:
			if funct7(insn) != 0b0000000 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindSLLI
			ins.Imm = int32(rs2F(insn))
		case 0b101:
			switch funct7(insn) {
			case 0b0000000:
				ins.Kind = KindSRLI
			case 0b0100000:
				ins.Kind = KindSRAI
			default:
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Imm = int32(rs2F(insn))
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case opOp:
		f7 := funct7(insn)
		f3 := funct3(insn)
		if f7 == 0b0000001 {
			switch f3 {
			case 0b000:
				ins.Kind = KindMUL
			case 0b001:
				ins.Kind = KindMULH
			case 0b010:
				ins.Kind = KindMULHSU
			case 0b011:
				ins.Kind = KindMULHU
			case 0b100:
				ins.Kind = KindDIV
			case 0b101:
				ins.Kind = KindDIVU
			case 0b110:
				ins.Kind = KindREM
			case 0b111:
				ins.Kind = KindREMU
			}
			break
		}
		switch f3 {
		case 0b000:
			switch f7 {
			case 0b0000000:
				ins.Kind = KindADD
			case 0b0100000:
				ins.Kind = KindSUB
			default:
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
		case 0b001:
			if f7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindSLL
		case 0b010:
			if f7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindSLT
		case 0b011:
			if f7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindSLTU
		case 0b100:
			if f7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindXOR
		case 0b101:
			switch f7 {
			case 0b0000000:
				ins.Kind = KindSRL
			case 0b0100000:
				ins.Kind = KindSRA
			default:
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
		case 0b110:
			if f7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindOR
		case 0b111:
			if f7 != 0 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindAND
		}
	case opMiscMem:
		if funct3(insn) != 0b000 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindFENCE
	case opSystem:
		return decodeSystem(insn, ins)
	case opAMO:
		return decodeAMO(insn, ins)
	case opLoadFP:
		ins.Imm = immI(insn)
		switch funct3(insn) {
		case 0b010:
			ins.Kind = KindFLW
		case 0b011:
			ins.Kind = KindFLD
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case opStoreFP:
		ins.Imm = immS(insn)
		switch funct3(insn) {
		case 0b010:
			ins.Kind = KindFSW
		case 0b011:
			ins.Kind = KindFSD
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case opMadd, opMsub, opNmsub, opNmadd:
		return decodeFMA(op, insn, ins)
	case opOpFP:
		return decodeOpFP(insn, ins)
	case opCustom0:
		if funct3(insn) != 0b000 || funct7(insn) != 0b0000000 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindCUSTTVA
	default:
		return Instruction{Kind: KindInvalid, Raw: insn}
	}

	ins.Rs3 = rs3F(insn)
	return ins
}

func decodeSystem(insn uint32, ins Instruction) Instruction {
	f3 := funct3(insn)
	switch f3 {
	case 0b000:
		f7 := funct7(insn)
		r2 := rs2F(insn)
		switch {
		case insn == 0x00000073:
			ins.Kind = KindECALL
		case insn == 0x00100073:
			ins.Kind = KindEBREAK
		case f7 == 0b0000000 && r2 == 0b00010 && rs1F(insn) == 0 && rdF(insn) == 0:
			ins.Kind = KindURET
		case f7 == 0b0001000 && r2 == 0b00010 && rs1F(insn) == 0 && rdF(insn) == 0:
			ins.Kind = KindSRET
		case f7 == 0b0011000 && r2 == 0b00010 && rs1F(insn) == 0 && rdF(insn) == 0:
			ins.Kind = KindMRET
		case f7 == 0b0001000 && r2 == 0b00101 && rs1F(insn) == 0 && rdF(insn) == 0:
			ins.Kind = KindWFI
		case f7 == 0b0001001 && rdF(insn) == 0:
			ins.Kind = KindSFENCEVMA
		case f7 == 0b0001011 && rdF(insn) == 0:
			ins.Kind = KindSINVALVMA
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		return ins
	case 0b001:
		ins.Kind = KindCSRRW
	case 0b010:
		ins.Kind = KindCSRRS
	case 0b011:
		ins.Kind = KindCSRRC
	case 0b101:
		ins.Kind = KindCSRRWI
	case 0b110:
		ins.Kind = KindCSRRSI
	case 0b111:
		ins.Kind = KindCSRRCI
	default:
		return Instruction{Kind: KindInvalid, Raw: insn}
	}
	ins.Imm = int32(insn >> 20) // 12-bit CSR address, unsigned
	return ins
}

func decodeAMO(insn uint32, ins Instruction) Instruction {
	if funct3(insn) != 0b010 {
		return Instruction{Kind: KindInvalid, Raw: insn}
	}
	f5 := funct7(insn) >> 2
	switch f5 {
	case 0b00010:
		if rs2F(insn) != 0 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindLRW
	case 0b00011:
		ins.Kind = KindSCW
	case 0b00001:
		ins.Kind = KindAMOSWAPW
	case 0b00000:
		ins.Kind = KindAMOADDW
	case 0b00100:
		ins.Kind = KindAMOXORW
	case 0b01100:
		ins.Kind = KindAMOANDW
	case 0b01000:
		ins.Kind = KindAMOORW
	case 0b10000:
		ins.Kind = KindAMOMINW
	case 0b10100:
		ins.Kind = KindAMOMAXW
	case 0b11000:
		ins.Kind = KindAMOMINUW
	case 0b11100:
		ins.Kind = KindAMOMAXUW
	default:
		return Instruction{Kind: KindInvalid, Raw: insn}
	}
	return ins
}

func decodeFMA(op, insn uint32, ins Instruction) Instruction {
	fmt := fmtF(insn)
	ins.Rs3 = rs3F(insn)
	ins.Rm = funct3(insn)
	switch fmt {
	case 0b00: // single
		switch op {
		case opMadd:
			ins.Kind = KindFMADDS
		case opMsub:
			ins.Kind = KindFMSUBS
		case opNmsub:
			ins.Kind = KindFNMSUBS
		case opNmadd:
			ins.Kind = KindFNMADDS
		}
	case 0b01: // double
		switch op {
		case opMadd:
			ins.Kind = KindFMADDD
		case opMsub:
			ins.Kind = KindFMSUBD
		case opNmsub:
			ins.Kind = KindFNMSUBD
		case opNmadd:
			ins.Kind = KindFNMADDD
		}
	default:
		return Instruction{Kind: KindInvalid, Raw: insn}
	}
	return ins
}

func decodeOpFP(insn uint32, ins Instruction) Instruction {
	f7 := funct7(insn)
	f3 := funct3(insn)
	r2 := rs2F(insn)
	ins.Rm = f3

	// S<->D conversions are two distinct opcodes, not a fmt-tagged pair of
	// the same op, so they're handled before the generic fmt-bit switch.
	switch f7 {
	case 0b0100000:
		if r2 != 0b00001 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindFCVTSD
		return ins
	case 0b0100001:
		if r2 != 0b00000 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindFCVTDS
		return ins
	}

	single := f7&1 == 0

	switch f7 &^ 1 {
	case 0b0000000:
		ins.Kind = pick(single, KindFADDS, KindFADDD)
	case 0b0000100:
		ins.Kind = pick(single, KindFSUBS, KindFSUBD)
	case 0b0001000:
		ins.Kind = pick(single, KindFMULS, KindFMULD)
	case 0b0001100:
		ins.Kind = pick(single, KindFDIVS, KindFDIVD)
	case 0b0101100:
		if r2 != 0 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = pick(single, KindFSQRTS, KindFSQRTD)
	case 0b0010000:
		switch f3 {
		case 0b000:
			ins.Kind = pick(single, KindFSGNJS, KindFSGNJD)
		case 0b001:
			ins.Kind = pick(single, KindFSGNJNS, KindFSGNJND)
		case 0b010:
			ins.Kind = pick(single, KindFSGNJXS, KindFSGNJXD)
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case 0b0010100:
		switch f3 {
		case 0b000:
			ins.Kind = pick(single, KindFMINS, KindFMIND)
		case 0b001:
			ins.Kind = pick(single, KindFMAXS, KindFMAXD)
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case 0b1100000:
		switch r2 {
		case 0b00000:
			ins.Kind = pick(single, KindFCVTWS, KindFCVTWD)
		case 0b00001:
			ins.Kind = pick(single, KindFCVTWUS, KindFCVTWUD)
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case 0b1101000:
		switch r2 {
		case 0b00000:
			ins.Kind = pick(single, KindFCVTSW, KindFCVTDW)
		case 0b00001:
			ins.Kind = pick(single, KindFCVTSWU, KindFCVTDWU)
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	case 0b1110000:
		if r2 != 0 {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		if single {
			switch f3 {
			case 0b000:
				ins.Kind = KindFMVXW
			case 0b001:
				ins.Kind = KindFCLASSS
			default:
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
		} else {
			if f3 != 0b001 {
				return Instruction{Kind: KindInvalid, Raw: insn}
			}
			ins.Kind = KindFCLASSD
		}
	case 0b1111000:
		if r2 != 0 || f3 != 0b000 || !single {
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
		ins.Kind = KindFMVWX
	case 0b1010000:
		switch f3 {
		case 0b010:
			ins.Kind = pick(single, KindFEQS, KindFEQD)
		case 0b001:
			ins.Kind = pick(single, KindFLTS, KindFLTD)
		case 0b000:
			ins.Kind = pick(single, KindFLES, KindFLED)
		default:
			return Instruction{Kind: KindInvalid, Raw: insn}
		}
	default:
		return Instruction{Kind: KindInvalid, Raw: insn}
	}
	return ins
}

func pick(single bool, s, d Kind) Kind {
	if single {
		return s
	}
	return d
}
