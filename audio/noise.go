package audio

import (
	"math/rand"
	"sync"

	"github.com/lowfreq/soundscape/constant"
)

// NoiseColor selects the spectral slope of generated noise
type NoiseColor int

const (
	NoiseWhite NoiseColor = iota // flat PSD
	NoisePink                    // ~ -3 dB/octave
	NoiseBrown                   // ~ -6 dB/octave
)

func (c NoiseColor) String() string {
	names := [...]string{"white", "pink", "brown"}
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// noiseBufferLen is the bed buffer length in samples
func noiseBufferLen() int {
	return sampleRate.N(constant.NoiseBufferDuration)
}

// generateNoise fills a fresh mono buffer of the given color.
// Every sample is clamped to [-1, 1].
func generateNoise(color NoiseColor, samples int) []float64 {
	buf := make([]float64, samples)
	switch color {
	case NoisePink:
		generatePink(buf)
	case NoiseBrown:
		generateBrown(buf)
	default:
		generateWhite(buf)
	}
	for i, v := range buf {
		if v > 1 {
			buf[i] = 1
		} else if v < -1 {
			buf[i] = -1
		}
	}
	return buf
}

func generateWhite(buf []float64) {
	for i := range buf {
		buf[i] = rand.Float64()*2 - 1
	}
}

// generatePink runs Kellet's refinement of the Voss-McCartney method:
// six leaky integrators with fixed decay/gain coefficients plus a
// direct white term, summed and scaled to keep output near unit range.
func generatePink(buf []float64) {
	var b0, b1, b2, b3, b4, b5 float64
	for i := range buf {
		w := rand.Float64()*2 - 1
		b0 = 0.99886*b0 + w*0.0555179
		b1 = 0.99332*b1 + w*0.0750759
		b2 = 0.96900*b2 + w*0.1538520
		b3 = 0.86650*b3 + w*0.3104856
		b4 = 0.55000*b4 + w*0.5329522
		b5 = -0.7616*b5 - w*0.0168980
		buf[i] = (b0 + b1 + b2 + b3 + b4 + b5 + w*0.5362) * 0.11
	}
}

// generateBrown integrates white noise through a single leaky pole
func generateBrown(buf []float64) {
	var state float64
	for i := range buf {
		w := rand.Float64()*2 - 1
		state = (state + constant.BrownLeak*w) / (1 + constant.BrownLeak)
		buf[i] = state * constant.BrownGain
	}
}

// noiseStreamer loops a fixed-length colored-noise buffer. Restart
// regenerates the buffer fresh, matching a generator being stopped
// and started again.
type noiseStreamer struct {
	mu    sync.Mutex
	color NoiseColor
	buf   []float64
	pos   int
}

func newNoiseStreamer(color NoiseColor) *noiseStreamer {
	return &noiseStreamer{
		color: color,
		buf:   generateNoise(color, noiseBufferLen()),
	}
}

// Restart regenerates the looped buffer and rewinds
func (s *noiseStreamer) Restart() {
	s.mu.Lock()
	s.buf = generateNoise(s.color, len(s.buf))
	s.pos = 0
	s.mu.Unlock()
}

// Next returns the next mono sample, advancing and wrapping
func (s *noiseStreamer) Next() float64 {
	s.mu.Lock()
	v := s.buf[s.pos]
	s.pos++
	if s.pos >= len(s.buf) {
		s.pos = 0
	}
	s.mu.Unlock()
	return v
}

func (s *noiseStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	for i := range samples {
		v := s.buf[s.pos]
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
		if s.pos >= len(s.buf) {
			s.pos = 0
		}
	}
	s.mu.Unlock()
	return len(samples), true
}

func (s *noiseStreamer) Err() error { return nil }
