package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/lowfreq/soundscape/constant"
)

// cafeSynth shapes a pink-noise bed into a crowd-murmur envelope
// with a band-pass plus low-shelf boost, and scatters cup clinks on
// top. Clinks replay cached "cafe_clink_N" samples when any are
// loaded, otherwise a multi-partial decaying tone is synthesized,
// with glass or ceramic partials chosen randomly per event.
type cafeSynth struct {
	loader *SampleLoader
	bed    *noiseStreamer
	voices *Mixer
	out    *gainRamp
	sched  eventScheduler

	mu          sync.Mutex
	playing     bool
	disposed    bool
	haveSamples bool
	intensity   float64
	level       float64
}

func newCafeSynth(loader *SampleLoader) *cafeSynth {
	s := &cafeSynth{
		loader:    loader,
		bed:       newNoiseStreamer(NoisePink),
		voices:    &Mixer{},
		intensity: 0.5,
		level:     1,
	}
	bedChain := newVolume(newFilterStreamer(s.bed, func() []*biquad {
		return []*biquad{
			newBandPass(float64(sampleRate), constant.CafeBedCenterHz, constant.CafeBedQ),
			newLowShelf(float64(sampleRate), constant.CafeShelfHz, constant.CafeShelfDB),
		}
	}), constant.CafeBedGain)

	sum := &beep.Mixer{}
	sum.Add(bedChain, s.voices)
	s.out = newGainRamp(sum, 0)
	return s
}

func (s *cafeSynth) Start() {
	s.mu.Lock()
	if s.playing || s.disposed {
		s.mu.Unlock()
		return
	}
	s.playing = true
	s.bed.Restart()
	_, s.haveSamples = s.loader.RandomVariant("cafe_clink", constant.SampleVariantMax)
	s.mu.Unlock()

	s.sched.start(s.nextClink, s.fireClink)
}

// Connect attaches the synthesizer's output to dest
func (s *cafeSynth) Connect(dest *Mixer) {
	dest.Add(s)
}

func (s *cafeSynth) Stop(fade time.Duration) {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = false
	s.mu.Unlock()

	s.sched.cancel()
	s.out.Ramp(0, fade)
}

func (s *cafeSynth) FadeIn(d time.Duration) {
	s.mu.Lock()
	level := s.level
	s.mu.Unlock()
	s.out.Ramp(level, d)
}

func (s *cafeSynth) FadeOut(d time.Duration) <-chan struct{} {
	s.out.Ramp(0, d)
	return fadeDone(d)
}

func (s *cafeSynth) SetLevel(v float64, ramp time.Duration) {
	s.mu.Lock()
	s.level = clamp01(v)
	playing := s.playing
	level := s.level
	s.mu.Unlock()
	if playing {
		s.out.Ramp(level, ramp)
	}
}

func (s *cafeSynth) SetIntensity(v float64) {
	s.mu.Lock()
	s.intensity = clamp01(v)
	s.mu.Unlock()
}

func (s *cafeSynth) Dispose() {
	s.sched.cancel()
	s.mu.Lock()
	s.playing = false
	s.disposed = true
	s.mu.Unlock()
	s.voices.Clear()
}

func (s *cafeSynth) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return 0, false
	}
	return s.out.Stream(samples)
}

func (s *cafeSynth) Err() error { return nil }

// nextClink draws a jittered interval around the mean clink spacing;
// higher intensity means busier tables
func (s *cafeSynth) nextClink() time.Duration {
	s.mu.Lock()
	intensity := s.intensity
	s.mu.Unlock()

	mean := time.Duration(float64(constant.CafeClinkInterval) * (1.5 - intensity))
	return jittered(mean, 0.5)
}

func (s *cafeSynth) fireClink() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	haveSamples := s.haveSamples
	s.mu.Unlock()

	if s.voices.Len() >= constant.MaxTransientVoices {
		return
	}

	if haveSamples {
		if name, ok := s.loader.RandomVariant("cafe_clink", constant.SampleVariantMax); ok {
			if buf, ok := s.loader.Get(name); ok {
				s.voices.Add(sampleVoice(buf, randFloat(0.9, 1.1), randFloat(0.3, 0.7),
					5*time.Millisecond, 60*time.Millisecond))
				return
			}
		}
	}
	s.voices.Add(&monoVoice{buf: synthClink(), vol: randFloat(0.2, 0.5)})
}

// clink partial ratios; glass rings higher and cleaner than ceramic
var (
	glassPartials   = []float64{1, 2.32, 3.86, 5.11}
	ceramicPartials = []float64{1, 1.83, 2.67}
)

// synthClink builds one procedural cup clink: three or four partials,
// each a short tone with fast attack and exponential decay
func synthClink() []float64 {
	base := randFloat(1900, 2500) // glass
	partials := glassPartials
	if rand.Intn(2) == 0 {
		base = randFloat(1100, 1500) // ceramic
		partials = ceramicPartials
	}

	length := sampleRate.N(constant.CafeClinkLength)
	buf := make([]float64, length)
	fs := float64(sampleRate)
	for p, ratio := range partials {
		freq := base * ratio * randFloat(0.99, 1.01)
		amp := 1.0 / float64(p+1)
		decay := 12.0 + 8.0*float64(p)
		for i := range buf {
			t := float64(i) / fs
			env := math.Exp(-decay*t) * (1 - math.Exp(-900*t))
			buf[i] += math.Sin(2*math.Pi*freq*t) * amp * env
		}
	}
	// Keep the sum inside the unit range
	scale := 1.0 / float64(len(partials))
	for i := range buf {
		buf[i] *= scale
	}
	return buf
}
