package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"

	"github.com/lowfreq/soundscape/core"
)

// Synthesizer is the capability contract shared by the rain, wind,
// and cafe synthesizers. Each owns a continuous noise-driven bed and
// a transient-event generator that replays cached sample variants
// when any are present, or synthesizes one-shots procedurally when
// none are. Detection happens once per Start by probing the sample
// cache.
type Synthesizer interface {
	beep.Streamer
	Start()
	Stop(fade time.Duration)
	Connect(dest *Mixer)
	FadeIn(d time.Duration)
	// FadeOut ramps to silence and resolves only after the ramp's
	// wall-clock duration elapses, so callers can dispose resources
	// immediately after receiving.
	FadeOut(d time.Duration) <-chan struct{}
	SetIntensity(v float64)
	// SetLevel retargets the synthesizer's output level, ramping over
	// the given duration when one is supplied.
	SetLevel(v float64, ramp time.Duration)
	Dispose()
}

// NewSynthesizer builds the concrete synthesizer for a scene kind.
// Dispatch is a closed set of tagged variants; there is no further
// subtyping behind the interface.
func NewSynthesizer(kind core.SynthKind, loader *SampleLoader) Synthesizer {
	switch kind {
	case core.SynthWind:
		return newWindSynth(loader)
	case core.SynthCafe:
		return newCafeSynth(loader)
	default:
		return newRainSynth(loader)
	}
}

// eventScheduler runs randomized-interval callbacks on its own
// goroutine. Cancel deterministically stops all pending fires, so a
// disposing owner never receives a late event.
type eventScheduler struct {
	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// start begins firing; next supplies the delay before each fire
func (s *eventScheduler) start(next func() time.Duration, fire func()) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	go func() {
		timer := time.NewTimer(next())
		defer timer.Stop()
		for {
			select {
			case <-stop:
				return
			case <-timer.C:
				fire()
				timer.Reset(next())
			}
		}
	}()
}

// cancel stops the scheduler; safe when not running
func (s *eventScheduler) cancel() {
	s.mu.Lock()
	if s.running {
		close(s.stop)
		s.running = false
	}
	s.mu.Unlock()
}

func (s *eventScheduler) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// monoVoice plays a precomputed mono one-shot buffer once
type monoVoice struct {
	buf []float64
	pos int
	vol float64
}

func (v *monoVoice) Stream(samples [][2]float64) (n int, ok bool) {
	if v.pos >= len(v.buf) {
		return 0, false
	}
	for i := range samples {
		if v.pos >= len(v.buf) {
			return i, true
		}
		s := v.buf[v.pos] * v.vol
		samples[i][0] = s
		samples[i][1] = s
		v.pos++
	}
	return len(samples), true
}

func (v *monoVoice) Err() error { return nil }

// envelope applies attack/release shaping over a bounded duration
type envelope struct {
	src      beep.Streamer
	pos      int
	attack   int
	release  int
	total    int
}

func newEnvelope(src beep.Streamer, total, attack, release time.Duration) *envelope {
	t := sampleRate.N(total)
	a := sampleRate.N(attack)
	r := sampleRate.N(release)
	if a+r > t {
		a = t / 2
		r = t - a
	}
	return &envelope{src: src, attack: a, release: r, total: t}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.src.Stream(samples)
	for i := 0; i < n; i++ {
		if e.pos >= e.total {
			return i, false
		}
		vol := 1.0
		if e.pos < e.attack && e.attack > 0 {
			vol = float64(e.pos) / float64(e.attack)
		} else if rem := e.total - e.pos; rem < e.release && e.release > 0 {
			vol = float64(rem) / float64(e.release)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.src.Err() }

// newVolume applies a linear volume via beep's log-domain effect.
// math.Log2(0) is -Inf, so zero volume switches to silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// sampleVoice plays one cached sample with randomized playback rate
// and volume, shaped by a short attack/release envelope
func sampleVoice(buf *beep.Buffer, rate, vol float64, attack, release time.Duration) beep.Streamer {
	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if rate != 1 {
		s = beep.ResampleRatio(3, rate, s)
	}
	total := time.Duration(float64(bufferFormat.SampleRate.D(buf.Len())) / rate)
	return newVolume(newEnvelope(s, total, attack, release), vol)
}

// jittered returns d scaled by a uniform factor in [1-spread, 1+spread]
func jittered(d time.Duration, spread float64) time.Duration {
	f := 1 + (rand.Float64()*2-1)*spread
	return time.Duration(float64(d) * f)
}

// randBetween returns a uniform duration in [lo, hi]
func randBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

func randFloat(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}
