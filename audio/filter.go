package audio

import (
	"math"
	"sync"

	"github.com/gopxl/beep"
)

// biquad is a direct-form-II-transposed second-order filter section
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (b *biquad) processSample(in float64) float64 {
	out := in*b.b0 + b.z1
	b.z1 = in*b.b1 + b.z2 - b.a1*out
	b.z2 = in*b.b2 - b.a2*out
	return out
}

func (b *biquad) process(samples []float64) {
	for i := range samples {
		samples[i] = b.processSample(samples[i])
	}
}

// setCoefficients normalizes by a0 and installs the section, keeping
// the delay state so retuning mid-stream stays click-free
func (b *biquad) setCoefficients(b0, b1, b2, a0, a1, a2 float64) {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return
	}
	inv := 1 / a0
	b.b0 = b0 * inv
	b.b1 = b1 * inv
	b.b2 = b2 * inv
	b.a1 = a1 * inv
	b.a2 = a2 * inv
}

func clampFreq(fs, freq float64) float64 {
	if freq < 10 {
		return 10
	}
	if freq >= fs/2 {
		return fs/2 - 1
	}
	return freq
}

// tuneLowPass installs RBJ low-pass coefficients
func (b *biquad) tuneLowPass(fs, freq, q float64) {
	freq = clampFreq(fs, freq)
	w0 := 2 * math.Pi * freq / fs
	sinW0, cosW0 := math.Sin(w0), math.Cos(w0)
	alpha := sinW0 / (2 * q)
	b.setCoefficients((1-cosW0)/2, 1-cosW0, (1-cosW0)/2, 1+alpha, -2*cosW0, 1-alpha)
}

// tuneHighPass installs RBJ high-pass coefficients
func (b *biquad) tuneHighPass(fs, freq, q float64) {
	freq = clampFreq(fs, freq)
	w0 := 2 * math.Pi * freq / fs
	sinW0, cosW0 := math.Sin(w0), math.Cos(w0)
	alpha := sinW0 / (2 * q)
	b.setCoefficients((1+cosW0)/2, -(1 + cosW0), (1+cosW0)/2, 1+alpha, -2*cosW0, 1-alpha)
}

// tuneBandPass installs RBJ constant-peak band-pass coefficients
func (b *biquad) tuneBandPass(fs, freq, q float64) {
	freq = clampFreq(fs, freq)
	w0 := 2 * math.Pi * freq / fs
	sinW0, cosW0 := math.Sin(w0), math.Cos(w0)
	alpha := sinW0 / (2 * q)
	b.setCoefficients(alpha, 0, -alpha, 1+alpha, -2*cosW0, 1-alpha)
}

// tuneLowShelf installs RBJ low-shelf coefficients
func (b *biquad) tuneLowShelf(fs, freq, gainDB float64) {
	freq = clampFreq(fs, freq)
	A := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / fs
	sinW0, cosW0 := math.Sin(w0), math.Cos(w0)
	alpha := sinW0 / math.Sqrt2
	beta := 2 * math.Sqrt(A) * alpha

	b.setCoefficients(
		A*((A+1)-(A-1)*cosW0+beta),
		2*A*((A-1)-(A+1)*cosW0),
		A*((A+1)-(A-1)*cosW0-beta),
		(A+1)+(A-1)*cosW0+beta,
		-2*((A-1)+(A+1)*cosW0),
		(A+1)+(A-1)*cosW0-beta,
	)
}

func newLowPass(fs, freq, q float64) *biquad {
	b := &biquad{}
	b.tuneLowPass(fs, freq, q)
	return b
}

func newHighPass(fs, freq, q float64) *biquad {
	b := &biquad{}
	b.tuneHighPass(fs, freq, q)
	return b
}

func newBandPass(fs, freq, q float64) *biquad {
	b := &biquad{}
	b.tuneBandPass(fs, freq, q)
	return b
}

func newLowShelf(fs, freq, gainDB float64) *biquad {
	b := &biquad{}
	b.tuneLowShelf(fs, freq, gainDB)
	return b
}

// filterStreamer runs a stereo source through per-channel biquad
// chains. Both channels share tuning but keep independent state.
type filterStreamer struct {
	mu    sync.Mutex
	src   beep.Streamer
	left  []*biquad
	right []*biquad
}

// newFilterStreamer builds a stereo filter chain; build is called
// once per channel so each gets its own delay state
func newFilterStreamer(src beep.Streamer, build func() []*biquad) *filterStreamer {
	return &filterStreamer{src: src, left: build(), right: build()}
}

func (f *filterStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = f.src.Stream(samples)
	f.mu.Lock()
	for i := 0; i < n; i++ {
		l, r := samples[i][0], samples[i][1]
		for _, b := range f.left {
			l = b.processSample(l)
		}
		for _, b := range f.right {
			r = b.processSample(r)
		}
		samples[i][0] = l
		samples[i][1] = r
	}
	f.mu.Unlock()
	return n, ok
}

func (f *filterStreamer) Err() error { return f.src.Err() }
