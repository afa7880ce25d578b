package vm_test

import (
	"testing"

	"github.com/kapitanov/chip8/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

func TestInstructionText(t *testing.T) {
	tests := []struct {
		raw      uint16
		mnemonic string
		operands string
		desc     string
	}{
		{0x00E0, "CLS", "", "Clear the display"},
		{0x00EE, "RET", "", "Return from subroutine"},
		{0x1200, "JP", "NNN=0x200", "Jump to address"},
		{0x2ABC, "CALL", "NNN=0xabc", "Call subroutine"},
		{0x6A3C, "LDV", "X=VA, NN=0x3c", "Set Vx = kk"},
		{0x8124, "ADDR", "X=V1, Y=V2", "Vx += Vy; VF carry"},
		{0xA2F0, "LDI", "NNN=0x2f0", "I = nnn"},
		{0xD125, "DRW", "X=V1, Y=V2, N=5", "Draw sprite at (Vx,Vy) height n"},
		{0xE3A1, "SKNP", "X=V3", "Skip next if key Vx not pressed"},
		{0xF00A, "WKEY", "X=V0", "Wait for key press, store in Vx"},
		{0xFF65, "LDM", "X=VF", "Load V0..Vx from I"},
		{0xFFFF, "UNK", "0xffff", "Unknown instruction"},
	}

	for _, tt := range tests {
		t.Run(tt.mnemonic, func(t *testing.T) {
			inst := vm.Decode(tt.raw)

			assert.Equal(t, vm.Opcode(tt.raw), inst.Opcode)
			assert.Equal(t, tt.mnemonic, inst.Mnemonic())
			assert.Equal(t, tt.operands, inst.Operands())
			assert.Equal(t, tt.desc, inst.Description())
		})
	}
}

func TestInstructionString(t *testing.T) {
	assert.Equal(t, "CLS", vm.Decode(0x00E0).String())
	assert.Equal(t, "LDI NNN=0x2f0", vm.Decode(0xA2F0).String())
}

func TestEveryKindHasText(t *testing.T) {
	for raw := 0; raw <= 0xFFFF; raw += 0x11 {
		inst := vm.Decode(uint16(raw))
		assert.True(t, inst.Mnemonic() != "")
		assert.True(t, inst.Description() != "")
	}
}
