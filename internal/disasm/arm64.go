package disasm

import (
	"encoding/binary"
	"strings"

	"golang.org/x/arch/arm64/arm64asm"
)

// ARM64 control transfers are detected from the raw 32-bit encoding. The
// fixed-width masks are cheaper and more reliable for branch-target
// extraction than round-tripping through the generic decoder, which is only
// consulted for the mnemonic of ordinary instructions.

// decodeARM64 decodes fixed-width ARM64 instructions.
func decodeARM64(code []byte, base uint64) []Inst {
	insts := make([]Inst, 0, len(code)/4)
	for off := 0; off+4 <= len(code); off += 4 {
		raw := binary.LittleEndian.Uint32(code[off : off+4])
		addr := base + uint64(off)

		inst := Inst{Addr: addr, Size: 4}
		if kind, target, ok := armBranch(raw, addr); ok {
			inst.Kind = kind
			inst.Target = target
			switch kind {
			case KindCall, KindIndirectCall:
				inst.Class = ClassCall
			case KindRet:
				inst.Class = ClassRet
			default:
				inst.Class = ClassBranch
			}
		} else {
			decoded, err := arm64asm.Decode(code[off : off+4])
			if err != nil {
				inst.Class = ClassOther
				inst.Invalid = true
				insts = append(insts, inst)
				break
			}
			inst.Class = classifyARM64(decoded.Op.String())
		}
		insts = append(insts, inst)
	}
	return insts
}

// armBranch decodes a control transfer from its raw encoding at the given PC.
// Covers B, B.cond, CBZ, CBNZ, TBZ, TBNZ, BL, BR, BLR and RET.
func armBranch(raw uint32, pc uint64) (Kind, uint64, bool) {
	switch {
	// RET: 1101011 0010 11111 000000 Rn 00000
	case raw&0xFFFFFC1F == 0xD65F0000:
		return KindRet, 0, true

	// BR: 1101011 0000 11111 000000 Rn 00000
	case raw&0xFFFFFC1F == 0xD61F0000:
		return KindIndirectJump, 0, true

	// BLR: 1101011 0001 11111 000000 Rn 00000
	case raw&0xFFFFFC1F == 0xD63F0000:
		return KindIndirectCall, 0, true

	// B: 000101 imm26
	case raw&0xFC000000 == 0x14000000:
		offset := signExtend(raw&0x03FFFFFF, 26) * 4
		return KindJump, uint64(int64(pc) + int64(offset)), true

	// BL: 100101 imm26
	case raw&0xFC000000 == 0x94000000:
		offset := signExtend(raw&0x03FFFFFF, 26) * 4
		return KindCall, uint64(int64(pc) + int64(offset)), true

	// B.cond: 01010100 imm19 0 cond
	case raw&0xFF000010 == 0x54000000:
		offset := signExtend((raw>>5)&0x7FFFF, 19) * 4
		return KindCondJump, uint64(int64(pc) + int64(offset)), true

	// CBZ / CBNZ: x 01101 0x imm19 Rt
	case raw&0x7E000000 == 0x34000000:
		offset := signExtend((raw>>5)&0x7FFFF, 19) * 4
		return KindCondJump, uint64(int64(pc) + int64(offset)), true

	// TBZ / TBNZ: b5 01101 1x b40 imm14 Rt
	case raw&0x7E000000 == 0x36000000:
		offset := signExtend((raw>>5)&0x3FFF, 14) * 4
		return KindCondJump, uint64(int64(pc) + int64(offset)), true
	}
	return KindNone, 0, false
}

// signExtend sign-extends a value from the given bit width.
func signExtend(val uint32, bits int) int32 {
	sign := uint32(1) << (bits - 1)
	mask := sign - 1
	if val&sign != 0 {
		return int32(val | ^mask)
	}
	return int32(val & mask)
}

// classifyARM64 buckets an ARM64 mnemonic. Branches never reach here; they
// are classified from the raw encoding.
func classifyARM64(op string) Class {
	switch {
	case op == "NOP":
		return ClassNop
	case strings.HasPrefix(op, "LDR") || strings.HasPrefix(op, "LDP") ||
		strings.HasPrefix(op, "LDUR") || strings.HasPrefix(op, "LDAR") ||
		strings.HasPrefix(op, "LDAXR") || strings.HasPrefix(op, "LDXR"):
		return ClassMemRead
	case strings.HasPrefix(op, "STR") || strings.HasPrefix(op, "STP") ||
		strings.HasPrefix(op, "STUR") || strings.HasPrefix(op, "STLR") ||
		strings.HasPrefix(op, "STXR") || strings.HasPrefix(op, "STLXR"):
		return ClassMemWrite
	case op == "MOV" || op == "MOVZ" || op == "MOVK" || op == "MOVN" ||
		op == "FMOV" || op == "SXTW" || op == "SXTH" || op == "SXTB" ||
		op == "UXTW" || op == "UXTH" || op == "UXTB":
		return ClassMov
	case op == "ADD" || op == "ADDS" || op == "SUB" || op == "SUBS" ||
		op == "ADC" || op == "SBC" || op == "NEG" || op == "NEGS" ||
		op == "MUL" || op == "MADD" || op == "MSUB" || op == "SMULL" ||
		op == "UMULL" || op == "SMULH" || op == "UMULH" ||
		op == "SDIV" || op == "UDIV" || op == "ADRP" || op == "ADR":
		return ClassArith
	case op == "AND" || op == "ANDS" || op == "ORR" || op == "ORN" ||
		op == "EOR" || op == "EON" || op == "BIC" || op == "BICS" ||
		op == "MVN":
		return ClassLogic
	case op == "LSL" || op == "LSR" || op == "ASR" || op == "ROR" ||
		op == "EXTR" || op == "UBFM" || op == "SBFM" || op == "UBFIZ" ||
		op == "UBFX" || op == "SBFIZ" || op == "SBFX" || op == "BFI" ||
		op == "BFXIL":
		return ClassShift
	case op == "CMP" || op == "CMN" || op == "CCMP" || op == "CCMN" ||
		op == "FCMP" || op == "FCMPE":
		return ClassCmp
	case op == "TST":
		return ClassTest
	}
	return ClassOther
}
