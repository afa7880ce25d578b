// Package ebitenhal is the ebiten frontend. Ebiten owns the main goroutine,
// so the emulator runs on a worker goroutine started by Run and exchanges
// state with the game loop under a mutex.
package ebitenhal

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/kapitanov/chip8/internal/emulator"
	"github.com/kapitanov/chip8/internal/vm"
	"golang.org/x/image/font/basicfont"
)

const statusBarHeight = 16

var (
	bgColor = color.RGBA{A: 0xff}
	fgColor = color.RGBA{R: 0xbe, G: 0xa7, A: 0xff}
)

var keypad = map[ebiten.Key]vm.Key{
	ebiten.KeyDigit1: vm.Key1, ebiten.KeyDigit2: vm.Key2, ebiten.KeyDigit3: vm.Key3, ebiten.KeyDigit4: vm.KeyC,
	ebiten.KeyQ: vm.Key4, ebiten.KeyW: vm.Key5, ebiten.KeyE: vm.Key6, ebiten.KeyR: vm.KeyD,
	ebiten.KeyA: vm.Key7, ebiten.KeyS: vm.Key8, ebiten.KeyD: vm.Key9, ebiten.KeyF: vm.KeyE,
	ebiten.KeyZ: vm.KeyA, ebiten.KeyX: vm.Key0, ebiten.KeyC: vm.KeyB, ebiten.KeyV: vm.KeyF,
}

type HAL struct {
	scale int

	mu      sync.Mutex
	pixels  []byte // RGBA, written by the emulator
	keys    uint16
	step    bool
	toggle  bool
	ctrlErr error // ErrQuit or ErrReboot pending for the emulator
	status  emulator.Status
	done    bool

	frames chan struct{}
}

// game is the ebiten.Game side of HAL, driven on the main goroutine.
type game struct {
	h      *HAL
	screen *ebiten.Image
}

func New(scale int) *HAL {
	h := &HAL{
		scale:  scale,
		pixels: make([]byte, vm.ScreenWidth*vm.ScreenHeight*4),
		frames: make(chan struct{}, 1),
	}
	h.fill(nil)

	return h
}

// Run opens the window and blocks until it closes. loop runs concurrently
// and its result is returned.
func (h *HAL) Run(loop func() error) error {
	ebiten.SetWindowTitle("CHIP-8")
	ebiten.SetWindowSize(vm.ScreenWidth*h.scale, vm.ScreenHeight*h.scale+statusBarHeight)
	ebiten.SetTPS(emulator.FrameRate)

	result := make(chan error, 1)
	go func() {
		err := loop()

		h.mu.Lock()
		h.done = true
		h.mu.Unlock()

		result <- err
	}()

	if err := ebiten.RunGame(&game{h: h}); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("ebiten: %w", err)
	}
	slog.Debug("hal: window closed")

	// The window may close before the emulator stops.
	h.mu.Lock()
	h.ctrlErr = emulator.ErrQuit
	h.mu.Unlock()
	h.signalFrame()

	return <-result
}

func (g *game) Update() error {
	h := g.h
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.done {
		return ebiten.Termination
	}

	var keys uint16
	for k, key := range keypad {
		if ebiten.IsKeyPressed(k) {
			keys |= key.Mask()
		}
	}
	h.keys = keys

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		h.ctrlErr = emulator.ErrQuit
	case inpututil.IsKeyJustPressed(ebiten.KeyBackspace):
		h.ctrlErr = emulator.ErrReboot
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		h.step = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		h.toggle = true
	}

	h.signalFrame()
	return nil
}

func (h *HAL) signalFrame() {
	select {
	case h.frames <- struct{}{}:
	default:
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	h := g.h
	if g.screen == nil {
		g.screen = ebiten.NewImage(vm.ScreenWidth, vm.ScreenHeight)
	}

	h.mu.Lock()
	g.screen.WritePixels(h.pixels)
	status := statusLine(h.status)
	h.mu.Unlock()

	screen.Fill(bgColor)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(h.scale), float64(h.scale))
	screen.DrawImage(g.screen, op)

	baselineY := vm.ScreenHeight*h.scale + statusBarHeight - 4
	text.Draw(screen, status, basicfont.Face7x13, 4, baselineY, fgColor)
}

func (g *game) Layout(_, _ int) (int, int) {
	return vm.ScreenWidth * g.h.scale, vm.ScreenHeight*g.h.scale + statusBarHeight
}

func (h *HAL) ReadInput() (emulator.Input, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ctrlErr; err != nil {
		if errors.Is(err, emulator.ErrReboot) {
			h.ctrlErr = nil
		}
		return emulator.Input{}, err
	}

	in := emulator.Input{
		Keys:        h.keys,
		Step:        h.step,
		TogglePause: h.toggle,
	}
	h.step = false
	h.toggle = false

	return in, nil
}

func (h *HAL) Draw(fb *vm.Framebuffer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fill(fb)
	return nil
}

func (h *HAL) WaitForNextFrame() error {
	<-h.frames
	return nil
}

func (h *HAL) ReportStatus(s emulator.Status) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()
}

// fill converts fb into RGBA pixels. A nil framebuffer blanks the screen.
func (h *HAL) fill(fb *vm.Framebuffer) {
	for i := 0; i < vm.ScreenWidth*vm.ScreenHeight; i++ {
		c := bgColor
		if fb != nil && fb.Pixels[i] != vm.PixelOff {
			c = fgColor
		}

		h.pixels[i*4+0] = c.R
		h.pixels[i*4+1] = c.G
		h.pixels[i*4+2] = c.B
		h.pixels[i*4+3] = c.A
	}
}

func statusLine(s emulator.Status) string {
	state := "running"
	switch {
	case s.Halted:
		state = "halted"
	case s.Paused:
		state = "paused"
	}

	return fmt.Sprintf("PC 0x%04x  %s", s.PC, state)
}
