package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/lowfreq/soundscape/constant"
)

// rainSynth layers randomized drop transients over a low-passed
// white-noise bed. Drops replay cached "rain_drop_N" samples when any
// are loaded, and fall back to synthesized filtered bursts otherwise.
type rainSynth struct {
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

func newRainSynth(loader *SampleLoader) *rainSynth {
	s := &rainSynth{
		loader:    loader,
		bed:       newNoiseStreamer(NoiseWhite),
		voices:    &Mixer{},
		intensity: 0.5,
		level:     1,
	}
	bedChain := newVolume(newFilterStreamer(s.bed, func() []*biquad {
		return []*biquad{newLowPass(float64(sampleRate), constant.RainBedCutoffHz, 0.707)}
	}), constant.RainBedGain)

	sum := &beep.Mixer{}
	sum.Add(bedChain, s.voices)
	s.out = newGainRamp(sum, 0)
	return s
}

func (s *rainSynth) Start() {
	s.mu.Lock()
	if s.playing || s.disposed {
		s.mu.Unlock()
		return
	}
	s.playing = true
	s.bed.Restart()
	// Probe once per start; absence of samples is the synthesis trigger
	_, s.haveSamples = s.loader.RandomVariant("rain_drop", constant.SampleVariantMax)
	s.mu.Unlock()

	s.sched.start(s.nextDrop, s.fireDrop)
}

// Connect attaches the synthesizer's output to dest
func (s *rainSynth) Connect(dest *Mixer) {
	dest.Add(s)
}

func (s *rainSynth) Stop(fade time.Duration) {
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

func (s *rainSynth) FadeIn(d time.Duration) {
	s.mu.Lock()
	level := s.level
	s.mu.Unlock()
	s.out.Ramp(level, d)
}

func (s *rainSynth) FadeOut(d time.Duration) <-chan struct{} {
	s.out.Ramp(0, d)
	return fadeDone(d)
}

func (s *rainSynth) SetLevel(v float64, ramp time.Duration) {
	s.mu.Lock()
	s.level = clamp01(v)
	playing := s.playing
	level := s.level
	s.mu.Unlock()
	if playing {
		s.out.Ramp(level, ramp)
	}
}

func (s *rainSynth) SetIntensity(v float64) {
	s.mu.Lock()
	s.intensity = clamp01(v)
	s.mu.Unlock()
}

func (s *rainSynth) Dispose() {
	s.sched.cancel()
	s.mu.Lock()
	s.playing = false
	s.disposed = true
	s.mu.Unlock()
	s.voices.Clear()
}

func (s *rainSynth) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return 0, false
	}
	return s.out.Stream(samples)
}

func (s *rainSynth) Err() error { return nil }

// nextDrop draws the inter-drop interval; the range narrows as
// intensity rises
func (s *rainSynth) nextDrop() time.Duration {
	s.mu.Lock()
	intensity := s.intensity
	s.mu.Unlock()

	lo := constant.RainDropIntervalMin
	span := float64(constant.RainDropIntervalMax-lo) * (1 - 0.8*intensity)
	return randBetween(lo, lo+time.Duration(span))
}

func (s *rainSynth) fireDrop() {
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
		if name, ok := s.loader.RandomVariant("rain_drop", constant.SampleVariantMax); ok {
			if buf, ok := s.loader.Get(name); ok {
				s.voices.Add(sampleVoice(buf, randFloat(0.9, 1.1), randFloat(0.5, 1.0),
					5*time.Millisecond, 30*time.Millisecond))
				return
			}
		}
	}
	s.voices.Add(&monoVoice{buf: synthDropBurst(), vol: randFloat(0.4, 0.9)})
}

// synthDropBurst builds one procedural raindrop: a 10-25 ms noise
// burst shaped by exp(-8t)·(1-exp(-50t)) over the burst length and
// band-passed into the 3-5 kHz click region.
func synthDropBurst() []float64 {
	length := sampleRate.N(randBetween(constant.RainDropLengthMin, constant.RainDropLengthMax))
	buf := make([]float64, length)
	for i := range buf {
		tau := float64(i) / float64(length)
		env := math.Exp(-8*tau) * (1 - math.Exp(-50*tau))
		buf[i] = (randFloat(-1, 1)) * env
	}
	bp := newBandPass(float64(sampleRate),
		randFloat(constant.RainDropBandMinHz, constant.RainDropBandMaxHz), 2.0)
	bp.process(buf)
	return buf
}
