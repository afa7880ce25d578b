package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

const (
	DefaultSampleRate = 44100
	DefaultFrequency  = 440

	amplitude   = 0.25
	sampleBytes = 4 // float32 mono
)

// tone is an io.Reader producing a square wave while on and silence
// otherwise. Read runs on the audio goroutine, SetTone on the emulator's.
type tone struct {
	on     atomic.Bool
	period float64 // samples per wave period
	phase  float64
}

func newTone(sampleRate, frequency int) *tone {
	return &tone{
		period: float64(sampleRate) / float64(frequency),
	}
}

func (t *tone) SetTone(on bool) {
	t.on.Store(on)
}

func (t *tone) Read(p []byte) (int, error) {
	n := len(p) / sampleBytes * sampleBytes
	on := t.on.Load()

	for i := 0; i < n; i += sampleBytes {
		var sample float32
		if on {
			sample = amplitude
			if t.phase >= t.period/2 {
				sample = -amplitude
			}
		}

		binary.LittleEndian.PutUint32(p[i:], math.Float32bits(sample))

		t.phase++
		if t.phase >= t.period {
			t.phase -= t.period
		}
	}

	return n, nil
}
