package audio

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/lowfreq/soundscape/constant"
)

// windSynth runs a brown-noise bed through a low-pass filter whose
// cutoff and gain breathe under independent low-frequency
// oscillators, plus a narrow band-pass whistle layer. A gust
// scheduler occasionally ramps cutoff, bed gain, and whistle gain up
// and back down over a few seconds. Gust recordings ("wind_gust_N")
// are layered in when cached.
type windSynth struct {
	loader *SampleLoader
	bed    *windBed
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

func newWindSynth(loader *SampleLoader) *windSynth {
	s := &windSynth{
		loader:    loader,
		bed:       newWindBed(),
		voices:    &Mixer{},
		intensity: 0.5,
		level:     1,
	}
	sum := &beep.Mixer{}
	sum.Add(s.bed, s.voices)
	s.out = newGainRamp(sum, 0)
	return s
}

func (s *windSynth) Start() {
	s.mu.Lock()
	if s.playing || s.disposed {
		s.mu.Unlock()
		return
	}
	s.playing = true
	s.bed.restart()
	_, s.haveSamples = s.loader.RandomVariant("wind_gust", constant.SampleVariantMax)
	s.mu.Unlock()

	s.sched.start(s.nextGust, s.fireGust)
}

// Connect attaches the synthesizer's output to dest
func (s *windSynth) Connect(dest *Mixer) {
	dest.Add(s)
}

func (s *windSynth) Stop(fade time.Duration) {
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

func (s *windSynth) FadeIn(d time.Duration) {
	s.mu.Lock()
	level := s.level
	s.mu.Unlock()
	s.out.Ramp(level, d)
}

func (s *windSynth) FadeOut(d time.Duration) <-chan struct{} {
	s.out.Ramp(0, d)
	return fadeDone(d)
}

func (s *windSynth) SetLevel(v float64, ramp time.Duration) {
	s.mu.Lock()
	s.level = clamp01(v)
	playing := s.playing
	level := s.level
	s.mu.Unlock()
	if playing {
		s.out.Ramp(level, ramp)
	}
}

func (s *windSynth) SetIntensity(v float64) {
	s.mu.Lock()
	s.intensity = clamp01(v)
	s.mu.Unlock()
}

func (s *windSynth) Dispose() {
	s.sched.cancel()
	s.mu.Lock()
	s.playing = false
	s.disposed = true
	s.mu.Unlock()
	s.voices.Clear()
}

func (s *windSynth) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	disposed := s.disposed
	s.mu.Unlock()
	if disposed {
		return 0, false
	}
	return s.out.Stream(samples)
}

func (s *windSynth) Err() error { return nil }

func (s *windSynth) nextGust() time.Duration {
	return randBetween(constant.WindGustIntervalMin, constant.WindGustIntervalMax)
}

// fireGust triggers with fixed probability; each gust ramps the bed
// parameters up and back down, and may layer a gust recording
func (s *windSynth) fireGust() {
	s.mu.Lock()
	playing := s.playing
	haveSamples := s.haveSamples
	intensity := s.intensity
	s.mu.Unlock()
	if !playing || rand.Float64() > constant.WindGustProbability {
		return
	}

	ramp := randBetween(constant.WindGustRampMin, constant.WindGustRampMax)
	strength := 0.5 + 0.5*intensity
	s.bed.gustTo(strength, ramp)

	if haveSamples && s.voices.Len() < constant.MaxTransientVoices {
		if name, ok := s.loader.RandomVariant("wind_gust", constant.SampleVariantMax); ok {
			if buf, ok := s.loader.Get(name); ok {
				s.voices.Add(sampleVoice(buf, randFloat(0.95, 1.05), randFloat(0.3, 0.6),
					ramp/2, ramp/2))
			}
		}
	}
}

// windBed is the modulated DSP core: filtered brown noise plus the
// whistle resonance. Filter retuning happens per block, parameter
// ramps per sample via the gust tween, all on the audio clock.
type windBed struct {
	mu      sync.Mutex
	noise   *noiseStreamer
	whistle *noiseStreamer
	lp      *biquad
	bp      *biquad

	cutoffPhase float64
	gainPhase   float64

	gustVal  float64
	gustUp   *gween.Tween
	gustDown *gween.Tween
}

const windBlock = 64

func newWindBed() *windBed {
	return &windBed{
		noise:   newNoiseStreamer(NoiseBrown),
		whistle: newNoiseStreamer(NoiseWhite),
		lp:      newLowPass(float64(sampleRate), constant.WindBedCutoffHz, 0.9),
		bp:      newBandPass(float64(sampleRate), constant.WindWhistleHz, constant.WindWhistleQ),
	}
}

func (b *windBed) restart() {
	b.noise.Restart()
	b.whistle.Restart()
}

// gustTo ramps the gust amount to strength and back to zero, each
// leg taking half the ramp duration
func (b *windBed) gustTo(strength float64, ramp time.Duration) {
	half := float32(ramp.Seconds() / 2)
	b.mu.Lock()
	b.gustUp = gween.New(float32(b.gustVal), float32(strength), half, ease.InOutQuad)
	b.gustDown = gween.New(float32(strength), 0, half, ease.InOutQuad)
	b.mu.Unlock()
}

func (b *windBed) Stream(samples [][2]float64) (n int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fs := float64(sampleRate)
	for start := 0; start < len(samples); start += windBlock {
		end := start + windBlock
		if end > len(samples) {
			end = len(samples)
		}
		block := end - start
		blockDt := float32(block) / float32(sampleRate)

		// Advance the gust ramp on the audio clock
		if b.gustUp != nil {
			v, done := b.gustUp.Update(blockDt)
			b.gustVal = float64(v)
			if done {
				b.gustUp = nil
			}
		} else if b.gustDown != nil {
			v, done := b.gustDown.Update(blockDt)
			b.gustVal = float64(v)
			if done {
				b.gustDown = nil
			}
		}

		// Breathing modulation
		cutoff := constant.WindBedCutoffHz +
			constant.WindBedCutoffMod*math.Sin(2*math.Pi*b.cutoffPhase) +
			constant.WindGustCutoffMod*b.gustVal
		b.lp.tuneLowPass(fs, cutoff, 0.9)

		bedGain := constant.WindBedGain * (0.75 + 0.25*math.Sin(2*math.Pi*b.gainPhase)) * (1 + 0.8*b.gustVal)
		whistleGain := constant.WindWhistleGain * (1 + 2.5*b.gustVal)

		for i := start; i < end; i++ {
			v := b.lp.processSample(b.noise.Next())*bedGain +
				b.bp.processSample(b.whistle.Next())*whistleGain
			samples[i][0] = v
			samples[i][1] = v
		}

		b.cutoffPhase += float64(block) / fs * constant.WindCutoffLFOHz
		b.gainPhase += float64(block) / fs * constant.WindGainLFOHz
		b.cutoffPhase -= math.Floor(b.cutoffPhase)
		b.gainPhase -= math.Floor(b.gainPhase)
	}
	return len(samples), true
}

func (b *windBed) Err() error { return nil }
