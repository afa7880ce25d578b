package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kapitanov/chip8/internal/debug"
	"github.com/kapitanov/chip8/internal/emulator"
	"github.com/retroenv/retrogolib/assert"
)

func TestFrontendFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    frontend
		wantErr bool
	}{
		{input: "sdl", want: frontendSDL},
		{input: "ebiten", want: frontendEbiten},
		{input: "TERM", want: frontendTerm},
		{input: "vulkan", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			f := frontendSDL
			err := f.Set(tt.input)
			if tt.wantErr {
				assert.True(t, err != nil)
				assert.Equal(t, frontendSDL, f)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := newCommand()
	err := cmd.ParseFlags([]string{
		"-v",
		"--frontend", "term",
		"--speed", "1200",
		"--paused",
		"--break", "0x2a0",
		"--break", "$300",
		"--mute",
	})
	assert.NoError(t, err)

	flags := cmd.Flags()

	verbose, err := flags.GetBool("verbose")
	assert.NoError(t, err)
	assert.True(t, verbose)

	assert.Equal(t, "term", flags.Lookup("frontend").Value.String())

	speed, err := flags.GetInt("speed")
	assert.NoError(t, err)
	assert.Equal(t, 1200, speed)

	breaks, err := flags.GetStringArray("break")
	assert.NoError(t, err)
	assert.Equal(t, []string{"0x2a0", "$300"}, breaks)
}

func TestCommandArgs(t *testing.T) {
	cmd := newCommand()
	assert.True(t, cmd.Args(cmd, nil) != nil)
	assert.True(t, cmd.Args(cmd, []string{"a.ch8", "b.ch8"}) != nil)
	assert.NoError(t, cmd.Args(cmd, []string{"a.ch8"}))
}

func TestEmulatorConfig(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		wantErr bool
	}{
		{name: "defaults", opts: options{speed: emulator.DefaultSpeed, scale: 16}},
		{name: "paused", opts: options{speed: 60, scale: 1, paused: true}},
		{name: "zero speed", opts: options{speed: 0, scale: 16}, wantErr: true},
		{name: "zero scale", opts: options{speed: 700, scale: 0}, wantErr: true},
		{name: "huge scale", opts: options{speed: 700, scale: maxScale + 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.opts.emulatorConfig()
			if tt.wantErr {
				assert.True(t, err != nil)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.opts.speed, cfg.Speed)
			assert.Equal(t, tt.opts.paused, cfg.Paused)
		})
	}
}

func TestDebugger(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		d, err := (&options{}).debugger()
		assert.NoError(t, err)
		assert.True(t, d == nil)
	})

	t.Run("breakpoints", func(t *testing.T) {
		d, err := (&options{breakpoints: []string{"2a0", "0x200"}}).debugger()
		assert.NoError(t, err)
		assert.Equal(t, []uint16{0x200, 0x2a0}, d.Breakpoints())
	})

	t.Run("bad breakpoint", func(t *testing.T) {
		_, err := (&options{breakpoints: []string{"zz"}}).debugger()
		assert.True(t, errors.Is(err, debug.ErrInvalidAddress))
	})

	t.Run("script", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hook.lua")
		assert.NoError(t, os.WriteFile(path, []byte("function on_step(pc, op) return false end"), 0o644))

		d, err := (&options{script: path}).debugger()
		assert.NoError(t, err)
		defer d.Close()
		assert.Equal(t, 0, len(d.Breakpoints()))
	})

	t.Run("missing script", func(t *testing.T) {
		_, err := (&options{script: filepath.Join(t.TempDir(), "nope.lua")}).debugger()
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}
