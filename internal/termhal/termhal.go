// Package termhal runs the emulator inside a terminal. Two pixel rows share
// one text row through half-block characters.
package termhal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kapitanov/chip8/internal/emulator"
	"github.com/kapitanov/chip8/internal/vm"
	"golang.org/x/term"
)

// Terminals report no key releases, so a key counts as held for this long
// after its last byte. Auto-repeat keeps it held while the key is down.
const holdDuration = 150 * time.Millisecond

const (
	ctrlC     = 0x03
	backspace = 0x08
	escape    = 0x1b
	del       = 0x7f
)

const (
	clearScreen = "\x1b[2J"
	cursorHome  = "\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

var ErrNotTerminal = errors.New("input is not a terminal")

type HAL struct {
	in       *os.File
	out      *bufio.Writer
	oldState *term.State

	input chan []byte
	pacer *emulator.Pacer
	keys  keyState
	now   func() time.Time
}

func New(in *os.File, out io.Writer) (*HAL, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNotTerminal
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to switch terminal to raw mode: %w", err)
	}
	slog.Debug("hal: terminal in raw mode")

	h := &HAL{
		in:       in,
		out:      bufio.NewWriter(out),
		oldState: oldState,
		input:    make(chan []byte, 16),
		pacer:    emulator.NewPacer(),
		now:      time.Now,
	}

	go h.readLoop()

	h.out.WriteString(clearScreen + hideCursor)
	if err := h.out.Flush(); err != nil {
		h.Shutdown()
		return nil, fmt.Errorf("failed to write to terminal: %w", err)
	}

	return h, nil
}

func (h *HAL) Shutdown() {
	h.out.WriteString(showCursor + "\r\n")
	if err := h.out.Flush(); err != nil {
		slog.Error("failed to write to terminal", "err", err)
	}

	if err := term.Restore(int(h.in.Fd()), h.oldState); err != nil {
		slog.Error("failed to restore terminal", "err", err)
	}
}

// readLoop forwards stdin chunks until the read fails. It is never stopped;
// the process exits with it blocked in Read.
func (h *HAL) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := h.in.Read(buf)
		if n > 0 {
			h.input <- bytes.Clone(buf[:n])
		}
		if err != nil {
			slog.Debug("hal: stdin closed", "err", err)
			close(h.input)
			return
		}
	}
}

func (h *HAL) ReadInput() (emulator.Input, error) {
	var in emulator.Input
	now := h.now()

	for {
		select {
		case chunk, ok := <-h.input:
			if !ok {
				return in, emulator.ErrQuit
			}
			if err := h.keys.parse(chunk, now, &in); err != nil {
				return in, err
			}
		default:
			in.Keys = h.keys.mask(now)
			return in, nil
		}
	}
}

func (h *HAL) Draw(fb *vm.Framebuffer) error {
	h.out.WriteString(cursorHome)
	Render(h.out, fb)

	if err := h.out.Flush(); err != nil {
		return fmt.Errorf("failed to write to terminal: %w", err)
	}
	return nil
}

func (h *HAL) WaitForNextFrame() error {
	h.pacer.Wait()
	return nil
}

// Render writes fb as fb.Height/2 rows of half-block characters. Rows end
// with CRLF since the terminal is in raw mode.
func Render(w io.StringWriter, fb *vm.Framebuffer) {
	for y := 0; y+1 < fb.Height; y += 2 {
		for x := 0; x < fb.Width; x++ {
			top := fb.At(x, y)
			bottom := fb.At(x, y+1)

			switch {
			case top && bottom:
				w.WriteString("█")
			case top:
				w.WriteString("▀")
			case bottom:
				w.WriteString("▄")
			default:
				w.WriteString(" ")
			}
		}
		w.WriteString("\r\n")
	}
}

type keyState struct {
	heldUntil [vm.KeyCount]time.Time
}

func (k *keyState) mask(now time.Time) uint16 {
	var keys uint16
	for i, until := range k.heldUntil {
		if now.Before(until) {
			keys |= vm.Key(i).Mask()
		}
	}
	return keys
}

// parse applies one chunk of raw terminal input.
func (k *keyState) parse(chunk []byte, now time.Time, in *emulator.Input) error {
	for i := 0; i < len(chunk); i++ {
		b := chunk[i]

		switch b {
		case ctrlC:
			return emulator.ErrQuit
		case escape:
			// A lone escape quits; CSI and SS3 sequences (arrows, function
			// keys) are skipped.
			if i+1 < len(chunk) && (chunk[i+1] == '[' || chunk[i+1] == 'O') {
				i = skipSequence(chunk, i+2)
				continue
			}
			return emulator.ErrQuit
		case backspace, del:
			return emulator.ErrReboot
		case ' ':
			in.Step = true
		case '\r', '\n':
			in.TogglePause = true
		default:
			if key, ok := emulator.KeyForRune(rune(b)); ok {
				k.heldUntil[key] = now.Add(holdDuration)
			}
		}
	}

	return nil
}

// skipSequence returns the index of the final byte of the escape sequence
// whose parameters start at i.
func skipSequence(chunk []byte, i int) int {
	for ; i < len(chunk); i++ {
		if chunk[i] >= 0x40 && chunk[i] <= 0x7e {
			return i
		}
	}
	return len(chunk)
}
