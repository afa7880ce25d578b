package emulator

import "time"

const FrameDuration = time.Second / FrameRate

// Pacer sleeps until the start of the next 60 Hz frame. A frontend that fell
// behind by more than a frame resynchronizes instead of bursting.
type Pacer struct {
	next  time.Time
	now   func() time.Time
	sleep func(time.Duration)
}

func NewPacer() *Pacer {
	return &Pacer{
		now:   time.Now,
		sleep: time.Sleep,
	}
}

func (p *Pacer) Wait() {
	now := p.now()
	if p.next.IsZero() || now.Sub(p.next) > FrameDuration {
		p.next = now
	}

	p.next = p.next.Add(FrameDuration)
	if d := p.next.Sub(now); d > 0 {
		p.sleep(d)
	}
}
