// Package emulator drives a vm.Machine against a frontend at 60 frames per
// second.
package emulator

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kapitanov/chip8/internal/vm"
)

const FrameRate = 60

var (
	ErrReboot = errors.New("reboot")
	ErrQuit   = errors.New("quit")

	errInfiniteLoop = errors.New("infinite loop detected")
	errProgramEnd   = errors.New("program counter ran past the program")
)

// Input is the frontend state sampled once per frame.
type Input struct {
	Keys        uint16 // bit k set while hex key k is held
	Step        bool   // execute one instruction while paused
	TogglePause bool
}

// HAL is implemented by every frontend.
type HAL interface {
	ReadInput() (Input, error)
	Draw(fb *vm.Framebuffer) error
	WaitForNextFrame() error
}

// Status is reported once per frame to frontends implementing
// StatusReporter.
type Status struct {
	PC     uint16
	Paused bool
	Halted bool // looped or ran past the program
}

type StatusReporter interface {
	ReportStatus(Status)
}

type Speaker interface {
	SetTone(on bool)
}

// Breaker decides whether execution pauses before the instruction at PC.
type Breaker interface {
	ShouldBreak(m *vm.Machine) (bool, string)
}

type Option func(*Emulator)

func WithBreaker(b Breaker) Option {
	return func(e *Emulator) {
		e.breaker = b
	}
}

type Emulator struct {
	machine *vm.Machine
	hal     HAL
	speaker Speaker
	breaker Breaker
	cfg     Config

	rom []byte
	fb  *vm.Framebuffer

	keys      uint16
	paused    bool
	skipBreak bool
	tone      bool
}

// New snapshots the program currently loaded into machine so that every Run
// starts from a fresh copy of it.
func New(machine *vm.Machine, hal HAL, speaker Speaker, cfg Config, opts ...Option) (*Emulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Emulator{
		machine: machine,
		hal:     hal,
		speaker: speaker,
		cfg:     cfg,
		rom:     slices.Clone(machine.Memory[vm.ProgramStart:machine.ROMEnd()]),
		fb:      vm.NewFramebuffer(vm.ScreenWidth, vm.ScreenHeight),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Run executes the program until the frontend asks to quit or reboot. It
// returns ErrQuit, ErrReboot or a fatal machine error.
func (e *Emulator) Run() error {
	e.initialize()
	defer e.setTone(false)

	if err := e.hal.Draw(e.fb); err != nil {
		return err
	}

	for {
		err := e.runFrame()
		if err != nil {
			if errors.Is(err, errInfiniteLoop) {
				slog.Info("program looped", "pc", fmt.Sprintf("0x%04x", e.machine.PC))
				return e.waitForReboot()
			}

			if errors.Is(err, errProgramEnd) {
				slog.Info("program finished", "pc", fmt.Sprintf("0x%04x", e.machine.PC))
				return e.waitForReboot()
			}

			return err
		}
	}
}

func (e *Emulator) initialize() {
	e.machine.Load(e.rom)
	e.fb.Clear()

	e.keys = 0
	e.paused = e.cfg.Paused
	e.skipBreak = false
}

func (e *Emulator) waitForReboot() error {
	e.setTone(false)
	e.reportStatus(true)

	for {
		if err := e.hal.WaitForNextFrame(); err != nil {
			return err
		}

		if _, err := e.hal.ReadInput(); err != nil {
			return err
		}
	}
}

func (e *Emulator) runFrame() error {
	in, err := e.hal.ReadInput()
	if err != nil {
		return err
	}
	e.keys = in.Keys

	if in.TogglePause {
		e.paused = !e.paused
		e.skipBreak = !e.paused
		slog.Info("pause toggled", "paused", e.paused, "pc", fmt.Sprintf("0x%04x", e.machine.PC))
	}

	steps := e.cfg.StepsPerFrame()
	if e.paused {
		steps = 0
		if in.Step {
			steps = 1
			e.skipBreak = true
		}
	}

	drawn, err := e.runSteps(steps)
	if drawn {
		if drawErr := e.hal.Draw(e.fb); drawErr != nil {
			return drawErr
		}
	}
	if err != nil {
		return err
	}

	if !e.paused {
		e.tickTimers()
	}
	e.reportStatus(false)

	return e.hal.WaitForNextFrame()
}

func (e *Emulator) reportStatus(halted bool) {
	r, ok := e.hal.(StatusReporter)
	if !ok {
		return
	}

	r.ReportStatus(Status{
		PC:     e.machine.PC,
		Paused: e.paused,
		Halted: halted,
	})
}

// runSteps executes up to n instructions and reports whether any of them
// touched the framebuffer.
func (e *Emulator) runSteps(n int) (bool, error) {
	drawn := false

	for i := 0; i < n; i++ {
		if e.machine.Finished() {
			return drawn, errProgramEnd
		}

		if e.breaker != nil && !e.skipBreak {
			if hit, reason := e.breaker.ShouldBreak(e.machine); hit {
				e.paused = true
				slog.Info("break", "pc", fmt.Sprintf("0x%04x", e.machine.PC), "reason", reason)
				return drawn, nil
			}
		}
		e.skipBreak = false

		effect, err := e.machine.Step(e.fb, e.keys)
		if err != nil {
			return drawn, err
		}

		drawn = drawn || effect.Drawn
		if effect.Sound {
			e.setTone(true)
		}

		if effect.Looped {
			return drawn, errInfiniteLoop
		}

		if effect.Blocking {
			break
		}
	}

	return drawn, nil
}

func (e *Emulator) tickTimers() {
	m := e.machine

	if m.Delay > 0 {
		m.Delay--
	}

	if m.Sound > 0 {
		m.Sound--
	}

	e.setTone(m.Sound > 0)
}

func (e *Emulator) setTone(on bool) {
	if e.tone == on {
		return
	}

	e.tone = on
	e.speaker.SetTone(on)
}
