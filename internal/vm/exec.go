package vm

import (
	"fmt"
	"log/slog"
	"math/bits"
)

// Effect describes what an executed instruction did beyond plain register
// and memory writes.
type Effect struct {
	Collision bool // a sprite pixel erased a lit pixel
	Sound     bool // the sound timer was set to a non-zero value
	Blocking  bool // wait-key rewound PC; the instruction repeats next step
	Drawn     bool // the framebuffer was mutated
	Looped    bool // a jump targeted its own address
	Unknown   bool // the opcode did not decode
}

type cycle struct {
	m       *Machine
	op      Opcode
	fb      *Framebuffer
	keydown uint16
	effect  Effect
}

type executor func(c *cycle) error

var executors = [kindCount]executor{
	KindUnknown:      execUnknown,
	KindClear:        execClear,
	KindReturn:       execReturn,
	KindJump:         execJump,
	KindCall:         execCall,
	KindSkipEqConst:  execSkipEqConst,
	KindSkipNeqConst: execSkipNeqConst,
	KindSkipEqReg:    execSkipEqReg,
	KindSkipNeqReg:   execSkipNeqReg,
	KindSetConst:     execSetConst,
	KindAddConst:     execAddConst,
	KindLoadReg:      execLoadReg,
	KindOr:           execOr,
	KindAnd:          execAnd,
	KindXor:          execXor,
	KindAddReg:       execAddReg,
	KindSub:          execSub,
	KindShiftRight:   execShiftRight,
	KindSubN:         execSubN,
	KindShiftLeft:    execShiftLeft,
	KindSetIndex:     execSetIndex,
	KindJumpOffset:   execJumpOffset,
	KindRandom:       execRandom,
	KindDraw:         execDraw,
	KindSkipKey:      execSkipKey,
	KindSkipNotKey:   execSkipNotKey,
	KindGetDelay:     execGetDelay,
	KindWaitKey:      execWaitKey,
	KindSetDelay:     execSetDelay,
	KindSetSound:     execSetSound,
	KindAddIndex:     execAddIndex,
	KindFontChar:     execFontChar,
	KindBCD:          execBCD,
	KindStoreRegs:    execStoreRegs,
	KindLoadRegs:     execLoadRegs,
}

// Execute applies inst to the machine. The program counter must already
// point past inst.
func Execute(inst Instruction, m *Machine, fb *Framebuffer, keydown uint16) (Effect, error) {
	exec := executors[KindUnknown]
	if inst.Kind < kindCount {
		exec = executors[inst.Kind]
	}

	c := &cycle{
		m:       m,
		op:      inst.Opcode,
		fb:      fb,
		keydown: keydown,
	}
	if err := exec(c); err != nil {
		return c.effect, err
	}

	return c.effect, nil
}

func (c *cycle) skipIf(cond bool) {
	if cond {
		c.m.PC += InstructionSize
	}
}

// memAddr returns I+offset wrapped into the 4k address space.
func (c *cycle) memAddr(offset uint16) uint16 {
	return (c.m.I + offset) & (MemorySize - 1)
}

func execUnknown(c *cycle) error {
	slog.Warn("unknown opcode",
		"pc", fmt.Sprintf("0x%04x", c.m.PC-InstructionSize),
		"opcode", c.op.String(),
	)
	c.effect.Unknown = true
	return nil
}

func execClear(c *cycle) error {
	c.fb.Clear()
	c.effect.Drawn = true
	return nil
}

func execReturn(c *cycle) error {
	m := c.m
	if m.SP == 0 {
		return fmt.Errorf("%w: RET at 0x%04x", ErrStackUnderflow, m.PC-InstructionSize)
	}

	m.SP--
	m.PC = m.Stack[m.SP]
	return nil
}

func execJump(c *cycle) error {
	target := c.op.NNN()
	if target == c.m.PC-InstructionSize {
		c.effect.Looped = true
	}

	c.m.PC = target
	return nil
}

func execCall(c *cycle) error {
	m := c.m
	if int(m.SP) >= StackSize {
		return fmt.Errorf("%w: CALL at 0x%04x", ErrStackOverflow, m.PC-InstructionSize)
	}

	m.Stack[m.SP] = m.PC
	m.SP++
	m.PC = c.op.NNN()
	return nil
}

func execSkipEqConst(c *cycle) error {
	c.skipIf(c.m.V[c.op.X()] == c.op.NN())
	return nil
}

func execSkipNeqConst(c *cycle) error {
	c.skipIf(c.m.V[c.op.X()] != c.op.NN())
	return nil
}

func execSkipEqReg(c *cycle) error {
	c.skipIf(c.m.V[c.op.X()] == c.m.V[c.op.Y()])
	return nil
}

func execSkipNeqReg(c *cycle) error {
	c.skipIf(c.m.V[c.op.X()] != c.m.V[c.op.Y()])
	return nil
}

func execSetConst(c *cycle) error {
	c.m.V[c.op.X()] = c.op.NN()
	return nil
}

func execAddConst(c *cycle) error {
	c.m.V[c.op.X()] += c.op.NN()
	return nil
}

func execLoadReg(c *cycle) error {
	c.m.V[c.op.X()] = c.m.V[c.op.Y()]
	return nil
}

// The logic ops reset VF, as the COSMAC VIP interpreter did.

func execOr(c *cycle) error {
	c.m.V[c.op.X()] |= c.m.V[c.op.Y()]
	c.m.V[0xF] = 0
	return nil
}

func execAnd(c *cycle) error {
	c.m.V[c.op.X()] &= c.m.V[c.op.Y()]
	c.m.V[0xF] = 0
	return nil
}

func execXor(c *cycle) error {
	c.m.V[c.op.X()] ^= c.m.V[c.op.Y()]
	c.m.V[0xF] = 0
	return nil
}

// Flag-producing ops write VF last so that VF wins when X is F.

func execAddReg(c *cycle) error {
	v := &c.m.V
	sum := uint16(v[c.op.X()]) + uint16(v[c.op.Y()])

	v[c.op.X()] = uint8(sum)
	v[0xF] = boolToFlag(sum > 0xFF)
	return nil
}

func execSub(c *cycle) error {
	v := &c.m.V
	x, y := v[c.op.X()], v[c.op.Y()]

	v[c.op.X()] = x - y
	v[0xF] = boolToFlag(x >= y)
	return nil
}

func execSubN(c *cycle) error {
	v := &c.m.V
	x, y := v[c.op.X()], v[c.op.Y()]

	v[c.op.X()] = y - x
	v[0xF] = boolToFlag(y >= x)
	return nil
}

func execShiftRight(c *cycle) error {
	v := &c.m.V
	y := v[c.op.Y()]

	v[c.op.X()] = y >> 1
	v[0xF] = y & 0x01
	return nil
}

func execShiftLeft(c *cycle) error {
	v := &c.m.V
	y := v[c.op.Y()]

	v[c.op.X()] = y << 1
	v[0xF] = (y >> 7) & 0x01
	return nil
}

func execSetIndex(c *cycle) error {
	c.m.I = c.op.NNN()
	return nil
}

func execJumpOffset(c *cycle) error {
	c.m.PC = c.op.NNN() + uint16(c.m.V[0])
	return nil
}

func execRandom(c *cycle) error {
	c.m.V[c.op.X()] = c.m.randomByte() & c.op.NN()
	return nil
}

// execDraw XORs an 8xN sprite read from memory at I onto the framebuffer.
// Coordinates wrap around both screen edges.
func execDraw(c *cycle) error {
	m, fb := c.m, c.fb

	originX := int(m.V[c.op.X()]) % fb.Width
	originY := int(m.V[c.op.Y()]) % fb.Height
	height := uint16(c.op.N())

	collision := false
	for row := uint16(0); row < height; row++ {
		sprite := m.Memory[c.memAddr(row)]

		const width = 8
		for col := 0; col < width; col++ {
			if sprite&(0x80>>col) == 0 {
				continue
			}

			if fb.toggle(originX+col, originY+int(row)) {
				collision = true
			}
		}
	}

	m.V[0xF] = boolToFlag(collision)
	c.effect.Collision = collision
	c.effect.Drawn = true
	return nil
}

func keyDown(keydown uint16, key uint8) bool {
	if key >= KeyCount {
		return false
	}
	return keydown&Key(key).Mask() != 0
}

func execSkipKey(c *cycle) error {
	c.skipIf(keyDown(c.keydown, c.m.V[c.op.X()]))
	return nil
}

func execSkipNotKey(c *cycle) error {
	c.skipIf(!keyDown(c.keydown, c.m.V[c.op.X()]))
	return nil
}

func execGetDelay(c *cycle) error {
	c.m.V[c.op.X()] = c.m.Delay
	return nil
}

// execWaitKey rewinds PC while no key is held so the next step retries it.
func execWaitKey(c *cycle) error {
	if c.keydown == 0 {
		c.m.PC -= InstructionSize
		c.effect.Blocking = true
		return nil
	}

	c.m.V[c.op.X()] = uint8(bits.TrailingZeros16(c.keydown))
	return nil
}

func execSetDelay(c *cycle) error {
	c.m.Delay = c.m.V[c.op.X()]
	return nil
}

func execSetSound(c *cycle) error {
	c.m.Sound = c.m.V[c.op.X()]
	c.effect.Sound = c.m.Sound > 0
	return nil
}

func execAddIndex(c *cycle) error {
	c.m.I += uint16(c.m.V[c.op.X()])
	return nil
}

func execFontChar(c *cycle) error {
	c.m.I = GlyphAddr(c.m.V[c.op.X()])
	return nil
}

func execBCD(c *cycle) error {
	m := c.m
	x := m.V[c.op.X()]

	m.Memory[c.memAddr(0)] = x / 100
	m.Memory[c.memAddr(1)] = (x / 10) % 10
	m.Memory[c.memAddr(2)] = x % 10
	return nil
}

func execStoreRegs(c *cycle) error {
	m := c.m
	n := uint16(c.op.X())

	for i := uint16(0); i <= n; i++ {
		m.Memory[c.memAddr(i)] = m.V[i]
	}

	// The COSMAC VIP leaves I pointing past the last register: I = I + X + 1.
	m.I += n + 1
	return nil
}

func execLoadRegs(c *cycle) error {
	m := c.m
	n := uint16(c.op.X())

	for i := uint16(0); i <= n; i++ {
		m.V[i] = m.Memory[c.memAddr(i)]
	}

	m.I += n + 1
	return nil
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
