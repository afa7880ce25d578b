// Package disasm renders CHIP-8 ROM images as instruction listings.
package disasm

import (
	"fmt"
	"io"

	"github.com/kapitanov/chip8/internal/vm"
)

// EndMarker terminates every listing written by Write.
const EndMarker = "=== END ==="

// Line is a single decoded instruction at its load address.
type Line struct {
	Address     uint16
	Instruction vm.Instruction
}

func (l Line) Raw() uint16 {
	return uint16(l.Instruction.Opcode)
}

func (l Line) Mnemonic() string {
	return l.Instruction.Mnemonic()
}

func (l Line) Operands() string {
	return l.Instruction.Operands()
}

func (l Line) Description() string {
	return l.Instruction.Description()
}

// String formats the line as "<address>: <mnemonic> <operands> -- <description>".
func (l Line) String() string {
	return fmt.Sprintf("0x%03x: %s -- %s", l.Address, l.Instruction.String(), l.Description())
}

// Disassemble decodes rom as a sequence of big-endian 16-bit words loaded at
// vm.ProgramStart. A dangling odd byte at the end is ignored.
func Disassemble(rom []byte) []Line {
	lines := make([]Line, 0, len(rom)/vm.InstructionSize)

	for i := 0; i+1 < len(rom); i += vm.InstructionSize {
		raw := uint16(rom[i])<<8 | uint16(rom[i+1])
		lines = append(lines, Line{
			Address:     vm.ProgramStart + uint16(i),
			Instruction: vm.Decode(raw),
		})
	}

	return lines
}

// Write prints the framed listing for the ROM called name.
func Write(w io.Writer, name string, lines []Line) error {
	if _, err := fmt.Fprintf(w, "=== %s ===\n", name); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return fmt.Errorf("writing line at 0x%03x: %w", line.Address, err)
		}
	}

	if _, err := fmt.Fprintln(w, EndMarker); err != nil {
		return fmt.Errorf("writing end marker: %w", err)
	}

	return nil
}
