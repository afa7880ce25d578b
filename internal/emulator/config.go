package emulator

import (
	"errors"
	"fmt"
)

const (
	DefaultSpeed = 700

	MinSpeed = FrameRate
	MaxSpeed = 100_000
)

var ErrInvalidConfig = errors.New("invalid emulator configuration")

type Config struct {
	Speed  int  // instructions per second
	Paused bool // start paused
}

func DefaultConfig() Config {
	return Config{
		Speed: DefaultSpeed,
	}
}

func (c Config) Validate() error {
	if c.Speed < MinSpeed || c.Speed > MaxSpeed {
		return fmt.Errorf("%w: speed %d is outside [%d, %d]", ErrInvalidConfig, c.Speed, MinSpeed, MaxSpeed)
	}
	return nil
}

// StepsPerFrame returns how many instructions run between two timer ticks.
func (c Config) StepsPerFrame() int {
	return max(1, c.Speed/FrameRate)
}
