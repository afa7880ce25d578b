package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kapitanov/chip8/internal/audio"
	"github.com/kapitanov/chip8/internal/debug"
	"github.com/kapitanov/chip8/internal/ebitenhal"
	"github.com/kapitanov/chip8/internal/emulator"
	"github.com/kapitanov/chip8/internal/hal"
	"github.com/kapitanov/chip8/internal/termhal"
	"github.com/kapitanov/chip8/internal/vm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const maxScale = 64

type frontend string

const (
	frontendSDL    frontend = "sdl"
	frontendEbiten frontend = "ebiten"
	frontendTerm   frontend = "term"
)

var frontends = []frontend{frontendSDL, frontendEbiten, frontendTerm}

var _ pflag.Value = (*frontend)(nil)

func (f *frontend) String() string {
	return string(*f)
}

func (f *frontend) Set(s string) error {
	for _, v := range frontends {
		if strings.EqualFold(s, string(v)) {
			*f = v
			return nil
		}
	}
	return fmt.Errorf("unknown frontend %q", s)
}

func (f *frontend) Type() string {
	return "frontend"
}

type options struct {
	verbose     bool
	frontend    frontend
	scale       int
	speed       int
	paused      bool
	breakpoints []string
	script      string
	mute        bool
}

func (o *options) emulatorConfig() (emulator.Config, error) {
	cfg := emulator.Config{
		Speed:  o.speed,
		Paused: o.paused,
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	if o.scale < 1 || o.scale > maxScale {
		return cfg, fmt.Errorf("scale %d is outside [1, %d]", o.scale, maxScale)
	}

	return cfg, nil
}

// debugger returns nil when neither breakpoints nor a script were given.
func (o *options) debugger() (*debug.Debugger, error) {
	if len(o.breakpoints) == 0 && o.script == "" {
		return nil, nil
	}

	d := debug.New()
	for _, s := range o.breakpoints {
		addr, err := debug.ParseBreakpoint(s)
		if err != nil {
			return nil, err
		}
		d.AddBreakpoint(addr)
	}

	if o.script != "" {
		src, err := os.ReadFile(o.script)
		if err != nil {
			return nil, fmt.Errorf("unable to load script %q: %w", o.script, err)
		}
		if err := d.LoadScript(string(src)); err != nil {
			return nil, fmt.Errorf("script %q: %w", o.script, err)
		}
	}

	return d, nil
}

func (o *options) speaker() (emulator.Speaker, func()) {
	if o.mute {
		return audio.Mute{}, func() {}
	}

	beeper, err := audio.NewBeeper(audio.DefaultSampleRate, audio.DefaultFrequency)
	if err != nil {
		slog.Warn("audio disabled", "err", err)
		return audio.Mute{}, func() {}
	}
	return beeper, beeper.Close
}

// runner runs the emulator loop. Frontends that need the main goroutine
// run it in the background.
type runner func(loop func() error) error

func runInline(loop func() error) error {
	return loop()
}

func (o *options) openFrontend() (emulator.HAL, runner, func(), error) {
	switch o.frontend {
	case frontendEbiten:
		h := ebitenhal.New(o.scale)
		return h, h.Run, func() {}, nil

	case frontendTerm:
		h, err := termhal.New(os.Stdin, os.Stdout)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("unable to initialize terminal: %w", err)
		}
		return h, runInline, h.Shutdown, nil

	default:
		h, err := hal.New(o.scale)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("unable to initialize hal: %w", err)
		}
		return h, runInline, h.Shutdown, nil
	}
}

func newCommand() *cobra.Command {
	o := &options{
		frontend: frontendSDL,
	}

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("%s PATH_TO_ROM_FILE", filepath.Base(os.Args[0])),
		Short:         "Run emulator",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose logging")
	flags.Var(&o.frontend, "frontend", "display frontend: sdl, ebiten or term")
	flags.IntVar(&o.scale, "scale", hal.DefaultScale, "window pixels per CHIP-8 pixel")
	flags.IntVar(&o.speed, "speed", emulator.DefaultSpeed, "instructions per second")
	flags.BoolVar(&o.paused, "paused", false, "start paused (Enter resumes, Space steps)")
	flags.StringArrayVar(&o.breakpoints, "break", nil, "pause before the instruction at `ADDR` (repeatable)")
	flags.StringVar(&o.script, "script", "", "Lua `FILE` defining on_step(pc, opcode)")
	flags.BoolVar(&o.mute, "mute", false, "disable sound")

	cmd.RunE = func(_ *cobra.Command, args []string) error {
		loggerOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if o.verbose {
			loggerOpts.Level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, loggerOpts)))

		return run(o, args[0])
	}

	return cmd
}

func run(o *options, path string) error {
	cfg, err := o.emulatorConfig()
	if err != nil {
		return err
	}

	machine := vm.New()
	if err := machine.LoadFile(path); err != nil {
		return err
	}

	var emuOpts []emulator.Option
	d, err := o.debugger()
	if err != nil {
		return err
	}
	if d != nil {
		defer d.Close()
		emuOpts = append(emuOpts, emulator.WithBreaker(d))
		slog.Info("debugger enabled", "breakpoints", len(d.Breakpoints()), "script", o.script)
	}

	spk, closeSpeaker := o.speaker()
	defer closeSpeaker()

	h, runLoop, shutdown, err := o.openFrontend()
	if err != nil {
		return err
	}
	defer shutdown()

	emu, err := emulator.New(machine, h, spk, cfg, emuOpts...)
	if err != nil {
		return err
	}

	return runLoop(func() error {
		for {
			err := emu.Run()

			if errors.Is(err, emulator.ErrQuit) {
				return nil
			}

			if errors.Is(err, emulator.ErrReboot) {
				slog.Info("reboot")
				continue
			}

			return err
		}
	})
}

func main() {
	cmd := newCommand()

	cmd.SetArgs(os.Args[1:])
	if err := cmd.Execute(); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}
