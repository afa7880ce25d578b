package emulator_test

import (
	"errors"
	"testing"

	"github.com/kapitanov/chip8/internal/emulator"
	"github.com/kapitanov/chip8/internal/vm"
	"github.com/retroenv/retrogolib/assert"
)

type fakeHAL struct {
	inputs []emulator.Input
	end    error

	frame int
	draws int
	waits int
}

func (h *fakeHAL) ReadInput() (emulator.Input, error) {
	if h.frame >= len(h.inputs) {
		return emulator.Input{}, h.end
	}

	in := h.inputs[h.frame]
	h.frame++
	return in, nil
}

func (h *fakeHAL) Draw(*vm.Framebuffer) error {
	h.draws++
	return nil
}

func (h *fakeHAL) WaitForNextFrame() error {
	h.waits++
	return nil
}

type fakeSpeaker struct {
	calls []bool
}

func (s *fakeSpeaker) SetTone(on bool) {
	s.calls = append(s.calls, on)
}

type breakAt uint16

func (b breakAt) ShouldBreak(m *vm.Machine) (bool, string) {
	return m.PC == uint16(b), "address"
}

func newMachine(opcodes ...uint16) *vm.Machine {
	rom := make([]byte, 0, len(opcodes)*2)
	for _, op := range opcodes {
		rom = append(rom, byte(op>>8), byte(op))
	}

	m := vm.New()
	m.Load(rom)
	return m
}

func frames(n int) []emulator.Input {
	return make([]emulator.Input, n)
}

func run(t *testing.T, m *vm.Machine, h *fakeHAL, cfg emulator.Config, opts ...emulator.Option) (*fakeSpeaker, error) {
	t.Helper()

	if h.end == nil {
		h.end = emulator.ErrQuit
	}

	spk := &fakeSpeaker{}
	e, err := emulator.New(m, h, spk, cfg, opts...)
	assert.NoError(t, err)

	return spk, e.Run()
}

func TestRunQuit(t *testing.T) {
	m := newMachine(0x7A01, 0x1200)
	h := &fakeHAL{}

	_, err := run(t, m, h, emulator.DefaultConfig())

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, 1, h.draws)
	assert.Equal(t, 0, h.waits)
}

func TestRunTimers(t *testing.T) {
	// 0x206 and 0x208 spin without ever jumping to their own address.
	rom := []uint16{0x6A05, 0xFA15, 0xFA18, 0x7B01, 0x1206}
	cfg := emulator.Config{Speed: emulator.FrameRate}

	tests := []struct {
		name   string
		frames int
		delay  uint8
		sound  uint8
		tone   []bool
	}{
		{name: "sound starts", frames: 3, delay: 3, sound: 4, tone: []bool{true, false}},
		{name: "timers run down", frames: 7, delay: 0, sound: 0, tone: []bool{true, false}},
		{name: "timers stop at zero", frames: 20, delay: 0, sound: 0, tone: []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMachine(rom...)
			h := &fakeHAL{inputs: frames(tt.frames)}

			spk, err := run(t, m, h, cfg)

			assert.True(t, errors.Is(err, emulator.ErrQuit))
			assert.Equal(t, tt.delay, m.Delay)
			assert.Equal(t, tt.sound, m.Sound)
			assert.Equal(t, tt.tone, spk.calls)
			assert.Equal(t, tt.frames, h.waits)
		})
	}
}

func TestRunLoopIdles(t *testing.T) {
	m := newMachine(0x7A01, 0x1202)
	h := &fakeHAL{inputs: frames(10)}

	_, err := run(t, m, h, emulator.DefaultConfig())

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, uint16(0x202), m.PC)
	assert.Equal(t, uint8(1), m.V[0xA])
	assert.Equal(t, 10, h.frame)
}

func TestRunProgramEnd(t *testing.T) {
	m := newMachine(0x6001)
	h := &fakeHAL{inputs: frames(3)}

	_, err := run(t, m, h, emulator.DefaultConfig())

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.True(t, m.Finished())
	assert.Equal(t, uint8(1), m.V[0])
}

func TestRunReboot(t *testing.T) {
	m := newMachine(0x7A01, 0x1200)
	h := &fakeHAL{inputs: frames(2), end: emulator.ErrReboot}
	spk := &fakeSpeaker{}

	e, err := emulator.New(m, h, spk, emulator.Config{Speed: emulator.FrameRate})
	assert.NoError(t, err)

	err = e.Run()
	assert.True(t, errors.Is(err, emulator.ErrReboot))
	assert.Equal(t, uint8(1), m.V[0xA])

	h.end = emulator.ErrQuit
	err = e.Run()
	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, uint8(0), m.V[0xA])
	assert.Equal(t, uint16(0x200), m.PC)
}

func TestRunFatal(t *testing.T) {
	m := newMachine(0x00EE)
	h := &fakeHAL{inputs: frames(1)}

	_, err := run(t, m, h, emulator.DefaultConfig())

	assert.True(t, errors.Is(err, vm.ErrStackUnderflow))
}

func TestRunDraw(t *testing.T) {
	m := newMachine(0x00E0, 0x6001)
	h := &fakeHAL{inputs: frames(2)}

	_, err := run(t, m, h, emulator.Config{Speed: emulator.FrameRate})

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, 2, h.draws)
}

func TestRunPauseAndStep(t *testing.T) {
	m := newMachine(0x7A01, 0x7A01, 0x7A01, 0x1200)
	h := &fakeHAL{inputs: []emulator.Input{
		{},
		{Step: true},
		{},
		{Step: true},
	}}

	_, err := run(t, m, h, emulator.Config{Speed: 600, Paused: true})

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, uint8(2), m.V[0xA])
	assert.Equal(t, uint16(0x204), m.PC)
}

func TestRunTogglePause(t *testing.T) {
	m := newMachine(0x7A01, 0x1200)
	h := &fakeHAL{inputs: []emulator.Input{
		{},
		{TogglePause: true},
		{TogglePause: true},
	}}

	_, err := run(t, m, h, emulator.Config{Speed: 120})

	// Frames one and three run two instructions each; frame two is paused.
	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, uint8(2), m.V[0xA])
}

func TestRunBreakpoint(t *testing.T) {
	m := newMachine(0x7A01, 0x7A01, 0x7A01, 0x1200)
	h := &fakeHAL{inputs: []emulator.Input{
		{},
		{},
		{Step: true},
		{},
	}}

	_, err := run(t, m, h, emulator.Config{Speed: 600}, emulator.WithBreaker(breakAt(0x204)))

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, uint8(3), m.V[0xA])
	assert.Equal(t, uint16(0x206), m.PC)
}

func TestRunWaitKey(t *testing.T) {
	m := newMachine(0xF00A, 0x6101, 0x1204)
	h := &fakeHAL{inputs: []emulator.Input{
		{},
		{},
		{Keys: vm.Key5.Mask()},
	}}

	_, err := run(t, m, h, emulator.Config{Speed: 600})

	assert.True(t, errors.Is(err, emulator.ErrQuit))
	assert.Equal(t, uint8(5), m.V[0])
	assert.Equal(t, uint8(1), m.V[1])
	assert.Equal(t, uint16(0x204), m.PC)
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := emulator.New(newMachine(0x1200), &fakeHAL{}, &fakeSpeaker{}, emulator.Config{})

	assert.True(t, errors.Is(err, emulator.ErrInvalidConfig))
}

type reportingHAL struct {
	fakeHAL
	statuses []emulator.Status
}

func (h *reportingHAL) ReportStatus(s emulator.Status) {
	h.statuses = append(h.statuses, s)
}

func TestRunReportsStatus(t *testing.T) {
	m := newMachine(0x7A01, 0x1202)
	h := &reportingHAL{fakeHAL: fakeHAL{inputs: frames(1), end: emulator.ErrQuit}}

	e, err := emulator.New(m, h, &fakeSpeaker{}, emulator.Config{Speed: emulator.FrameRate, Paused: true})
	assert.NoError(t, err)
	assert.True(t, errors.Is(e.Run(), emulator.ErrQuit))

	assert.Equal(t, []emulator.Status{{PC: 0x200, Paused: true}}, h.statuses)
}
