package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// gainRamp multiplies a source streamer by a gain that follows
// scheduled linear ramps. The ramp is advanced per sample inside
// Stream, so it runs on the audio clock; wall-clock timers only
// decide when a ramp is issued. Retargeting cancels the in-flight
// ramp and starts a new one from the instantaneous current gain,
// never from a stale target.
type gainRamp struct {
	mu    sync.Mutex
	src   beep.Streamer
	gain  float64
	tween *gween.Tween
}

func newGainRamp(src beep.Streamer, initial float64) *gainRamp {
	return &gainRamp{src: src, gain: initial}
}

// Set jumps to the target immediately, cancelling any ramp
func (g *gainRamp) Set(target float64) {
	g.mu.Lock()
	g.gain = target
	g.tween = nil
	g.mu.Unlock()
}

// Ramp schedules a linear ramp from the current gain to target over d.
// A non-positive duration degenerates to Set.
func (g *gainRamp) Ramp(target float64, d time.Duration) {
	if d <= 0 {
		g.Set(target)
		return
	}
	g.mu.Lock()
	g.tween = gween.New(float32(g.gain), float32(target), float32(d.Seconds()), ease.Linear)
	g.mu.Unlock()
}

// Gain reports the instantaneous gain
func (g *gainRamp) Gain() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gain
}

func (g *gainRamp) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = g.src.Stream(samples)
	g.mu.Lock()
	dt := float32(1) / float32(sampleRate)
	for i := 0; i < n; i++ {
		if g.tween != nil {
			v, done := g.tween.Update(dt)
			g.gain = float64(v)
			if done {
				g.tween = nil
			}
		}
		samples[i][0] *= g.gain
		samples[i][1] *= g.gain
	}
	g.mu.Unlock()
	return n, ok
}

func (g *gainRamp) Err() error { return g.src.Err() }

// fadeDone returns a channel that closes once the ramp's wall-clock
// duration has elapsed, so callers can dispose resources right after
// receiving from it.
func fadeDone(d time.Duration) <-chan struct{} {
	ch := make(chan struct{})
	if d <= 0 {
		close(ch)
		return ch
	}
	time.AfterFunc(d, func() { close(ch) })
	return ch
}
