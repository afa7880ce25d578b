// Package hal is the SDL2 frontend.
package hal

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8/internal/emulator"
	"github.com/kapitanov/chip8/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const DefaultScale = 16

const (
	bgColor = uint32(0xff000000)
	fgColor = uint32(0xffbea700)
)

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	pacer *emulator.Pacer
	keys  uint16
}

func New(scale int) (*HAL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	width := int32(vm.ScreenWidth * scale)
	height := int32(vm.ScreenHeight * scale)

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("failed to create sdl window: %w", err)
	}
	slog.Debug("hal: create window", "width", width, "height", height)

	h := &HAL{
		window:          window,
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: vm.ScreenWidth * int(unsafe.Sizeof(uint32(0))),
		pacer:           emulator.NewPacer(),
	}

	h.renderer, err = sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		h.Shutdown()
		return nil, fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	if err = h.renderer.SetLogicalSize(width, height); err != nil {
		h.Shutdown()
		return nil, fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	h.texture, err = h.renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		h.Shutdown()
		return nil, fmt.Errorf("failed to create sdl texture: %w", err)
	}
	slog.Debug("hal: create texture")

	return h, nil
}

func (h *HAL) Shutdown() {
	if h.texture != nil {
		if err := h.texture.Destroy(); err != nil {
			slog.Error("failed to destroy sdl texture", "err", err)
		}
	}

	if h.renderer != nil {
		if err := h.renderer.Destroy(); err != nil {
			slog.Error("failed to destroy sdl renderer", "err", err)
		}
	}

	if err := h.window.Destroy(); err != nil {
		slog.Error("failed to destroy sdl window", "err", err)
	}

	sdl.Quit()
}

func (h *HAL) ReadInput() (emulator.Input, error) {
	var in emulator.Input

	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e := e.(type) {
		case *sdl.QuitEvent:
			slog.Debug("hal: exit requested")
			return in, emulator.ErrQuit

		case *sdl.KeyboardEvent:
			if err := h.processKey(e, &in); err != nil {
				return in, err
			}
		}
	}

	in.Keys = h.keys
	return in, nil
}

func (h *HAL) processKey(e *sdl.KeyboardEvent, in *emulator.Input) error {
	pressed := e.Type == sdl.KEYDOWN

	if pressed && e.Repeat == 0 {
		switch e.Keysym.Scancode {
		case sdl.SCANCODE_ESCAPE:
			slog.Debug("hal: exit requested")
			return emulator.ErrQuit
		case sdl.SCANCODE_BACKSPACE:
			return emulator.ErrReboot
		case sdl.SCANCODE_SPACE:
			in.Step = true
		case sdl.SCANCODE_RETURN:
			in.TogglePause = true
		}
	}

	// Scancodes follow the US layout whatever the active one is.
	name := sdl.GetScancodeName(e.Keysym.Scancode)
	if len(name) != 1 {
		return nil
	}

	key, ok := emulator.KeyForRune(rune(name[0]))
	if !ok {
		return nil
	}

	if pressed {
		h.keys |= key.Mask()
	} else {
		h.keys &^= key.Mask()
	}
	return nil
}

func (h *HAL) Draw(fb *vm.Framebuffer) error {
	for i, px := range fb.Pixels {
		color := bgColor
		if px != vm.PixelOff {
			color = fgColor
		}

		h.backBuffer[i] = color
	}

	backBufferPtr := unsafe.Pointer(&h.backBuffer[0])
	if err := h.texture.Update(nil, backBufferPtr, h.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := h.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := h.renderer.Copy(h.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	h.renderer.Present()
	return nil
}

func (h *HAL) WaitForNextFrame() error {
	h.pacer.Wait()
	return nil
}
