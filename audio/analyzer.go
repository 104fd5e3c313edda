package audio

import (
	"math"
	"math/cmplx"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/mjibson/go-dsp/fft"

	"github.com/lowfreq/soundscape/constant"
	"github.com/lowfreq/soundscape/core"
)

// tap passes audio through unchanged while capturing a mono mix into
// a ring buffer the analyzer reads from. It sits between the master
// gain and the speaker.
type tap struct {
	mu   sync.Mutex
	src  beep.Streamer
	buf  []float64
	pos  int
	size int
}

func newTap(src beep.Streamer, size int) *tap {
	return &tap{src: src, buf: make([]float64, size), size: size}
}

func (t *tap) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = t.src.Stream(samples)
	t.mu.Lock()
	for i := 0; i < n; i++ {
		t.buf[t.pos] = (samples[i][0] + samples[i][1]) / 2
		t.pos = (t.pos + 1) % t.size
	}
	t.mu.Unlock()
	return n, ok
}

func (t *tap) Err() error { return t.src.Err() }

// window returns the most recent n captured samples in order
func (t *tap) window(n int) []float64 {
	if n > t.size {
		n = t.size
	}
	out := make([]float64, n)
	t.mu.Lock()
	start := (t.pos - n + t.size) % t.size
	for i := 0; i < n; i++ {
		out[i] = t.buf[(start+i)%t.size]
	}
	t.mu.Unlock()
	return out
}

// Analyzer derives banded energies and RMS volume from the live
// output, exponentially smoothed to avoid visual jitter. One
// snapshot is produced per tick regardless of how often callers
// poll Data.
type Analyzer struct {
	tap       *tap
	smoothing float64

	mu   sync.Mutex
	snap core.Snapshot

	hann []float64

	stopOnce sync.Once
	stop     chan struct{}
}

func newAnalyzer(t *tap, smoothing float64) *Analyzer {
	hann := make([]float64, constant.AnalyzerFFTSize)
	for i := range hann {
		hann[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(hann)-1)))
	}
	return &Analyzer{
		tap:       t,
		smoothing: smoothing,
		hann:      hann,
		stop:      make(chan struct{}),
	}
}

// run produces one snapshot per tick until Stop
func (a *Analyzer) run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.compute()
		}
	}
}

// Stop halts the analysis loop; safe to call more than once
func (a *Analyzer) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Reset zeroes all smoothed state
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.snap = core.Snapshot{}
	a.mu.Unlock()
}

// Data returns the latest snapshot copy
func (a *Analyzer) Data() core.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}

// compute runs one analysis pass over the tap window
func (a *Analyzer) compute() {
	raw := a.tap.window(constant.AnalyzerFFTSize)

	// RMS from the time domain before windowing
	var sum float64
	for _, v := range raw {
		sum += v * v
	}
	volume := clamp01(math.Sqrt(sum/float64(len(raw))) * constant.AnalyzerVolumeScale)

	windowed := make([]float64, len(raw))
	for i, v := range raw {
		windowed[i] = v * a.hann[i]
	}
	spectrum := fft.FFTReal(windowed)

	low := a.bandEnergy(spectrum, constant.AnalyzerLowMinHz, constant.AnalyzerLowMaxHz)
	mid := a.bandEnergy(spectrum, constant.AnalyzerLowMaxHz, constant.AnalyzerMidMaxHz)
	high := a.bandEnergy(spectrum, constant.AnalyzerMidMaxHz, constant.AnalyzerHighMaxHz)

	a.mu.Lock()
	s := a.smoothing
	a.snap = core.Snapshot{
		Low:    a.snap.Low*s + low*(1-s),
		Mid:    a.snap.Mid*s + mid*(1-s),
		High:   a.snap.High*s + high*(1-s),
		Volume: a.snap.Volume*s + volume*(1-s),
	}
	a.mu.Unlock()
}

// bandEnergy averages normalized bin magnitudes between two
// frequencies and clamps into [0,1]
func (a *Analyzer) bandEnergy(spectrum []complex128, fromHz, toHz float64) float64 {
	n := constant.AnalyzerFFTSize
	binHz := float64(sampleRate) / float64(n)
	lo := int(math.Ceil(fromHz / binHz))
	hi := int(math.Floor(toHz / binHz))
	if lo < 1 {
		lo = 1
	}
	if hi > n/2 {
		hi = n / 2
	}
	if hi < lo {
		return 0
	}
	// Full-scale sine under a Hann window peaks near n/4 per bin
	norm := 4.0 / float64(n)
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += cmplx.Abs(spectrum[i]) * norm
	}
	avg := sum / float64(hi-lo+1)
	return clamp01(avg * constant.AnalyzerBandScale)
}
