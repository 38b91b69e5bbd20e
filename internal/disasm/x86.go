package disasm

import "golang.org/x/arch/x86/x86asm"

// decodeAMD64 decodes 64-bit x86 instructions until the code runs out or a
// byte sequence fails to decode.
func decodeAMD64(code []byte, base uint64) []Inst {
	insts := make([]Inst, 0, len(code)/4)
	off := 0
	for off < len(code) {
		raw, err := x86asm.Decode(code[off:], 64)
		if err != nil || raw.Len == 0 {
			insts = append(insts, Inst{
				Addr:    base + uint64(off),
				Size:    len(code) - off,
				Class:   ClassOther,
				Invalid: true,
			})
			break
		}

		inst := Inst{
			Addr: base + uint64(off),
			Size: raw.Len,
		}
		inst.Class, inst.Kind = classifyAMD64(raw)
		if inst.Kind.HasTarget() {
			// Rel targets are relative to the end of the instruction.
			if rel, ok := relArg(raw); ok {
				inst.Target = uint64(int64(inst.Addr) + int64(raw.Len) + int64(rel))
			} else {
				// No immediate target after all; demote to the indirect kind.
				switch inst.Kind {
				case KindCall:
					inst.Kind = KindIndirectCall
				default:
					inst.Kind = KindIndirectJump
				}
			}
		}
		insts = append(insts, inst)
		off += raw.Len
	}
	return insts
}

func relArg(inst x86asm.Inst) (x86asm.Rel, bool) {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		if rel, ok := a.(x86asm.Rel); ok {
			return rel, true
		}
	}
	return 0, false
}

func hasMemArg(inst x86asm.Inst, idx int) bool {
	if idx >= len(inst.Args) || inst.Args[idx] == nil {
		return false
	}
	_, ok := inst.Args[idx].(x86asm.Mem)
	return ok
}

// classifyAMD64 maps a decoded instruction to its mnemonic class and control
// transfer kind.
func classifyAMD64(inst x86asm.Inst) (Class, Kind) {
	switch inst.Op {
	case x86asm.RET, x86asm.LRET:
		return ClassRet, KindRet

	case x86asm.CALL, x86asm.LCALL:
		if _, ok := relArg(inst); ok {
			return ClassCall, KindCall
		}
		return ClassCall, KindIndirectCall

	case x86asm.JMP, x86asm.LJMP:
		if _, ok := relArg(inst); ok {
			return ClassBranch, KindJump
		}
		return ClassBranch, KindIndirectJump

	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JE, x86asm.JNE,
		x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JO, x86asm.JNO,
		x86asm.JP, x86asm.JNP, x86asm.JS, x86asm.JNS,
		x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return ClassBranch, KindCondJump

	case x86asm.MOV, x86asm.MOVSX, x86asm.MOVSXD, x86asm.MOVZX, x86asm.XCHG:
		// Memory direction decides between MEM_W, MEM_R and plain MOV.
		if hasMemArg(inst, 0) {
			return ClassMemWrite, KindNone
		}
		if hasMemArg(inst, 1) {
			return ClassMemRead, KindNone
		}
		return ClassMov, KindNone

	case x86asm.ADD, x86asm.ADC, x86asm.SUB, x86asm.SBB, x86asm.INC, x86asm.DEC,
		x86asm.NEG, x86asm.MUL, x86asm.IMUL, x86asm.DIV, x86asm.IDIV, x86asm.LEA:
		return ClassArith, KindNone

	case x86asm.AND, x86asm.OR, x86asm.XOR, x86asm.NOT:
		return ClassLogic, KindNone

	case x86asm.SHL, x86asm.SHR, x86asm.SAR, x86asm.ROL, x86asm.ROR,
		x86asm.RCL, x86asm.RCR:
		return ClassShift, KindNone

	case x86asm.CMP:
		return ClassCmp, KindNone

	case x86asm.TEST:
		return ClassTest, KindNone

	case x86asm.PUSH, x86asm.POP, x86asm.LEAVE, x86asm.ENTER:
		return ClassStack, KindNone

	case x86asm.NOP:
		return ClassNop, KindNone
	}
	return ClassOther, KindNone
}
