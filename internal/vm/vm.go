package vm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
)

const (
	MemorySize    = 4096
	StackSize     = 16
	RegisterCount = 16
	ScreenWidth   = 64
	ScreenHeight  = 32
	KeyCount      = 16

	FontStart       = uint16(0x050)
	ProgramStart    = uint16(0x200)
	InstructionSize = 2

	MaxProgramSize = MemorySize - int(ProgramStart)
)

var (
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrFetchOutOfRange = errors.New("instruction fetch out of memory range")
)

// Machine is the CHIP-8 CPU state. It is mutated only by Step.
type Machine struct {
	Memory [MemorySize]uint8    // Memory (4k)
	V      [RegisterCount]uint8 // V registers (V0-VF)

	Stack [StackSize]uint16 // Stack
	SP    uint8             // Stack pointer

	PC uint16 // Program counter
	I  uint16 // Index register

	Delay uint8 // Delay timer
	Sound uint8 // Sound timer

	romEnd uint16
	rand   *rand.Rand
}

type Option func(*Machine)

// WithRand sets the random source used by the RND instruction.
func WithRand(r *rand.Rand) Option {
	return func(m *Machine) {
		m.rand = r
	}
}

func New(opts ...Option) *Machine {
	m := &Machine{}
	for _, opt := range opts {
		opt(m)
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	m.Reset()
	return m
}

// Reset clears the machine and reloads the font. Loaded program bytes are
// discarded.
func (m *Machine) Reset() {
	m.PC = ProgramStart
	m.I = 0
	m.SP = 0
	m.Delay = 0
	m.Sound = 0
	m.romEnd = ProgramStart

	clear(m.Stack[:])
	clear(m.V[:])
	clear(m.Memory[:])

	slog.Debug("load font", "at", fmt.Sprintf("0x%04x", FontStart), "n", len(font))
	copy(m.Memory[FontStart:], font[:])
}

// Load resets the machine and copies program to ProgramStart. Programs
// larger than MaxProgramSize are truncated.
func (m *Machine) Load(program []byte) {
	m.Reset()

	if len(program) > MaxProgramSize {
		slog.Warn("program truncated", "size", len(program), "max", MaxProgramSize)
		program = program[:MaxProgramSize]
	}

	slog.Info("load program", "at", fmt.Sprintf("0x%04x", ProgramStart), "n", len(program))
	n := copy(m.Memory[ProgramStart:], program)
	m.romEnd = ProgramStart + uint16(n)
}

// LoadFile reads a ROM from path and loads it. The machine is left untouched
// when the file cannot be read.
func (m *Machine) LoadFile(path string) error {
	bs, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to load file %q: %w", path, err)
	}

	m.Load(bs)
	return nil
}

// ROMEnd returns the address right after the last loaded program byte.
func (m *Machine) ROMEnd() uint16 {
	return m.romEnd
}

// Finished reports whether the program counter has run past the program.
func (m *Machine) Finished() bool {
	return m.PC >= m.romEnd
}

// Fetch returns the instruction at the current program counter without
// executing it.
func (m *Machine) Fetch() (Instruction, error) {
	if int(m.PC)+1 >= MemorySize {
		return Instruction{}, fmt.Errorf("%w: pc=0x%04x", ErrFetchOutOfRange, m.PC)
	}

	hi := m.Memory[m.PC]
	lo := m.Memory[m.PC+1]

	return Decode(uint16(hi)<<8 | uint16(lo)), nil // Op code is two bytes
}

// Step executes a single instruction against fb with the given keypad state.
func (m *Machine) Step(fb *Framebuffer, keydown uint16) (Effect, error) {
	inst, err := m.Fetch()
	if err != nil {
		return Effect{}, err
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug(
			"exec",
			"pc", fmt.Sprintf("0x%04x", m.PC),
			"opcode", inst.Opcode.String(),
			"instr", inst.String(),
		)
	}

	m.PC += InstructionSize
	return Execute(inst, m, fb, keydown)
}

func (m *Machine) randomByte() uint8 {
	return uint8(m.rand.UintN(256))
}
