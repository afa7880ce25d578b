package vm

import "fmt"

// Instruction is one decoded instruction occurrence.
type Instruction struct {
	Opcode Opcode
	Kind   Kind
}

// Decode classifies raw and returns its instruction record.
func Decode(raw uint16) Instruction {
	return Instruction{
		Opcode: Opcode(raw),
		Kind:   Classify(raw),
	}
}

type operandFormat uint8

const (
	operandsNone operandFormat = iota
	operandsAddr
	operandsRegConst
	operandsRegReg
	operandsReg
	operandsDraw
	operandsRaw
)

type kindInfo struct {
	mnemonic    string
	description string
	operands    operandFormat
}

var kinds = [kindCount]kindInfo{
	KindUnknown:      {"UNK", "Unknown instruction", operandsRaw},
	KindClear:        {"CLS", "Clear the display", operandsNone},
	KindReturn:       {"RET", "Return from subroutine", operandsNone},
	KindJump:         {"JP", "Jump to address", operandsAddr},
	KindCall:         {"CALL", "Call subroutine", operandsAddr},
	KindSkipEqConst:  {"SE", "Skip next if Vx == kk", operandsRegConst},
	KindSkipNeqConst: {"SNE", "Skip next if Vx != kk", operandsRegConst},
	KindSkipEqReg:    {"SEV", "Skip next if Vx == Vy", operandsRegReg},
	KindSkipNeqReg:   {"SNEV", "Skip next if Vx != Vy", operandsRegReg},
	KindSetConst:     {"LDV", "Set Vx = kk", operandsRegConst},
	KindAddConst:     {"ADDV", "Add kk to Vx", operandsRegConst},
	KindLoadReg:      {"LDR", "Set Vx = Vy", operandsRegReg},
	KindOr:           {"OR", "Vx = Vx OR Vy", operandsRegReg},
	KindAnd:          {"AND", "Vx = Vx AND Vy", operandsRegReg},
	KindXor:          {"XOR", "Vx = Vx XOR Vy", operandsRegReg},
	KindAddReg:       {"ADDR", "Vx += Vy; VF carry", operandsRegReg},
	KindSub:          {"SUB", "Vx = Vx - Vy; VF borrow", operandsRegReg},
	KindShiftRight:   {"SHR", "Vx = Vy >> 1; VF = LSB", operandsRegReg},
	KindSubN:         {"SUBN", "Vx = Vy - Vx; VF borrow", operandsRegReg},
	KindShiftLeft:    {"SHL", "Vx = Vy << 1; VF = MSB", operandsRegReg},
	KindSetIndex:     {"LDI", "I = nnn", operandsAddr},
	KindJumpOffset:   {"JP0", "Jump to nnn + V0", operandsAddr},
	KindRandom:       {"RND", "Vx = rand & kk", operandsRegConst},
	KindDraw:         {"DRW", "Draw sprite at (Vx,Vy) height n", operandsDraw},
	KindSkipKey:      {"SKP", "Skip next if key Vx pressed", operandsReg},
	KindSkipNotKey:   {"SKNP", "Skip next if key Vx not pressed", operandsReg},
	KindGetDelay:     {"GDT", "Vx = delay timer", operandsReg},
	KindWaitKey:      {"WKEY", "Wait for key press, store in Vx", operandsReg},
	KindSetDelay:     {"SDT", "Delay timer = Vx", operandsReg},
	KindSetSound:     {"SST", "Sound timer = Vx", operandsReg},
	KindAddIndex:     {"ADDI", "I += Vx", operandsReg},
	KindFontChar:     {"FONT", "I = font glyph for Vx", operandsReg},
	KindBCD:          {"BCD", "Store BCD of Vx at I..I+2", operandsReg},
	KindStoreRegs:    {"STR", "Store V0..Vx at I", operandsReg},
	KindLoadRegs:     {"LDM", "Load V0..Vx from I", operandsReg},
}

func (inst Instruction) info() kindInfo {
	if inst.Kind >= kindCount {
		return kinds[KindUnknown]
	}
	return kinds[inst.Kind]
}

// Mnemonic returns the short instruction name, e.g. "DRW".
func (inst Instruction) Mnemonic() string {
	return inst.info().mnemonic
}

// Description returns a one-line human-readable summary of the instruction.
func (inst Instruction) Description() string {
	return inst.info().description
}

// Operands renders the operand fields of the instruction, e.g. "X=V1, NN=0x3c".
func (inst Instruction) Operands() string {
	op := inst.Opcode

	switch inst.info().operands {
	case operandsAddr:
		return fmt.Sprintf("NNN=0x%03x", op.NNN())
	case operandsRegConst:
		return fmt.Sprintf("X=V%X, NN=0x%02x", op.X(), op.NN())
	case operandsRegReg:
		return fmt.Sprintf("X=V%X, Y=V%X", op.X(), op.Y())
	case operandsReg:
		return fmt.Sprintf("X=V%X", op.X())
	case operandsDraw:
		return fmt.Sprintf("X=V%X, Y=V%X, N=%d", op.X(), op.Y(), op.N())
	case operandsRaw:
		return fmt.Sprintf("0x%04x", uint16(op))
	default:
		return ""
	}
}

func (inst Instruction) String() string {
	operands := inst.Operands()
	if operands == "" {
		return inst.Mnemonic()
	}
	return inst.Mnemonic() + " " + operands
}
