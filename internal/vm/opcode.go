package vm

import "fmt"

// Opcode is a raw 16-bit instruction word. Operand fields are derived from
// fixed bit positions on demand.
type Opcode uint16

func (op Opcode) X() uint8    { return uint8(op>>8) & 0x0F }
func (op Opcode) Y() uint8    { return uint8(op>>4) & 0x0F }
func (op Opcode) N() uint8    { return uint8(op) & 0x0F }
func (op Opcode) NN() uint8   { return uint8(op) }
func (op Opcode) NNN() uint16 { return uint16(op) & 0x0FFF }

func (op Opcode) String() string {
	return fmt.Sprintf("0x%04x", uint16(op))
}

// Kind is the closed set of instruction kinds an opcode can decode to.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindClear
	KindReturn
	KindJump
	KindCall
	KindSkipEqConst
	KindSkipNeqConst
	KindSkipEqReg
	KindSkipNeqReg
	KindSetConst
	KindAddConst
	KindLoadReg
	KindOr
	KindAnd
	KindXor
	KindAddReg
	KindSub
	KindShiftRight
	KindSubN
	KindShiftLeft
	KindSetIndex
	KindJumpOffset
	KindRandom
	KindDraw
	KindSkipKey
	KindSkipNotKey
	KindGetDelay
	KindWaitKey
	KindSetDelay
	KindSetSound
	KindAddIndex
	KindFontChar
	KindBCD
	KindStoreRegs
	KindLoadRegs

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:      "unknown",
	KindClear:        "clear-screen",
	KindReturn:       "return",
	KindJump:         "jump",
	KindCall:         "call",
	KindSkipEqConst:  "skip-eq-const",
	KindSkipNeqConst: "skip-neq-const",
	KindSkipEqReg:    "skip-eq-reg",
	KindSkipNeqReg:   "skip-neq-reg",
	KindSetConst:     "set-const",
	KindAddConst:     "add-const",
	KindLoadReg:      "load-reg",
	KindOr:           "or",
	KindAnd:          "and",
	KindXor:          "xor",
	KindAddReg:       "add-reg",
	KindSub:          "sub",
	KindShiftRight:   "shift-right",
	KindSubN:         "subn",
	KindShiftLeft:    "shift-left",
	KindSetIndex:     "set-index",
	KindJumpOffset:   "jump-offset",
	KindRandom:       "random",
	KindDraw:         "draw",
	KindSkipKey:      "skip-if-key",
	KindSkipNotKey:   "skip-if-not-key",
	KindGetDelay:     "get-delay",
	KindWaitKey:      "wait-key",
	KindSetDelay:     "set-delay",
	KindSetSound:     "set-sound",
	KindAddIndex:     "add-to-index",
	KindFontChar:     "font-char",
	KindBCD:          "bcd",
	KindStoreRegs:    "store-regs",
	KindLoadRegs:     "load-regs",
}

func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// pattern matches an opcode when op&mask == fixed.
type pattern struct {
	mask  uint16
	fixed uint16
	kind  Kind
}

func (p pattern) matches(op Opcode) bool {
	return uint16(op)&p.mask == p.fixed
}

// patternTiers lists the patterns from the most specific mask to the least.
// Patterns inside one tier never overlap, so only the tier order matters.
var patternTiers = [][]pattern{
	// 00E0, 00EE
	{
		{0xFFFF, 0x00E0, KindClear},
		{0xFFFF, 0x00EE, KindReturn},
	},

	// 8XY_
	{
		{0xF00F, 0x8000, KindLoadReg},
		{0xF00F, 0x8001, KindOr},
		{0xF00F, 0x8002, KindAnd},
		{0xF00F, 0x8003, KindXor},
		{0xF00F, 0x8004, KindAddReg},
		{0xF00F, 0x8005, KindSub},
		{0xF00F, 0x8006, KindShiftRight},
		{0xF00F, 0x8007, KindSubN},
		{0xF00F, 0x800E, KindShiftLeft},
	},

	// EX__, FX__
	{
		{0xF0FF, 0xE09E, KindSkipKey},
		{0xF0FF, 0xE0A1, KindSkipNotKey},
		{0xF0FF, 0xF007, KindGetDelay},
		{0xF0FF, 0xF00A, KindWaitKey},
		{0xF0FF, 0xF015, KindSetDelay},
		{0xF0FF, 0xF018, KindSetSound},
		{0xF0FF, 0xF01E, KindAddIndex},
		{0xF0FF, 0xF029, KindFontChar},
		{0xF0FF, 0xF033, KindBCD},
		{0xF0FF, 0xF055, KindStoreRegs},
		{0xF0FF, 0xF065, KindLoadRegs},
	},

	// top nibble only
	{
		{0xF000, 0x1000, KindJump},
		{0xF000, 0x2000, KindCall},
		{0xF000, 0x3000, KindSkipEqConst},
		{0xF000, 0x4000, KindSkipNeqConst},
		{0xF000, 0x5000, KindSkipEqReg},
		{0xF000, 0x6000, KindSetConst},
		{0xF000, 0x7000, KindAddConst},
		{0xF000, 0x9000, KindSkipNeqReg},
		{0xF000, 0xA000, KindSetIndex},
		{0xF000, 0xB000, KindJumpOffset},
		{0xF000, 0xC000, KindRandom},
		{0xF000, 0xD000, KindDraw},
	},
}

// Classify maps every possible opcode to exactly one kind. Opcodes no
// pattern accepts map to KindUnknown.
func Classify(raw uint16) Kind {
	op := Opcode(raw)
	for _, tier := range patternTiers {
		for _, p := range tier {
			if p.matches(op) {
				return p.kind
			}
		}
	}

	return KindUnknown
}
