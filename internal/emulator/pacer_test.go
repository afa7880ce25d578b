package emulator

import (
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

func TestPacer(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	var slept []time.Duration

	p := &Pacer{
		now: func() time.Time { return now },
		sleep: func(d time.Duration) {
			slept = append(slept, d)
			now = now.Add(d)
		},
	}

	p.Wait()
	assert.Equal(t, []time.Duration{FrameDuration}, slept)

	// Work took a quarter frame; only the rest is slept.
	now = now.Add(FrameDuration / 4)
	p.Wait()
	assert.Equal(t, FrameDuration-FrameDuration/4, slept[1])

	// Falling far behind restarts the schedule from now.
	now = now.Add(10 * FrameDuration)
	p.Wait()
	assert.Equal(t, FrameDuration, slept[2])
}

func TestKeyForRune(t *testing.T) {
	tests := []struct {
		r    rune
		want uint8
		ok   bool
	}{
		{'1', 0x1, true},
		{'4', 0xC, true},
		{'q', 0x4, true},
		{'R', 0xD, true},
		{'f', 0xE, true},
		{'x', 0x0, true},
		{'V', 0xF, true},
		{'p', 0, false},
		{' ', 0, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			key, ok := KeyForRune(tt.r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, uint8(key))
		})
	}
}
