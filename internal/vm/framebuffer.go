package vm

const (
	PixelOff = uint32(0x00000000)
	PixelOn  = uint32(0xFFFFFFFF)
)

// Framebuffer is a monochrome display. Every pixel is either PixelOff or
// PixelOn.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []uint32
}

func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]uint32, width*height),
	}
}

func (fb *Framebuffer) Clear() {
	for i := range fb.Pixels {
		fb.Pixels[i] = PixelOff
	}
}

// At reports whether the pixel at (x, y) is on. Coordinates wrap.
func (fb *Framebuffer) At(x, y int) bool {
	return fb.Pixels[fb.index(x, y)] != PixelOff
}

// toggle flips the pixel at (x, y) and reports whether it was on before.
func (fb *Framebuffer) toggle(x, y int) bool {
	i := fb.index(x, y)
	wasOn := fb.Pixels[i] != PixelOff
	fb.Pixels[i] ^= PixelOn
	return wasOn
}

func (fb *Framebuffer) index(x, y int) int {
	x %= fb.Width
	if x < 0 {
		x += fb.Width
	}
	y %= fb.Height
	if y < 0 {
		y += fb.Height
	}
	return y*fb.Width + x
}
