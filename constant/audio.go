package constant

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate = 44100
	AudioChannels   = 2

	// AudioBufferDuration determines output latency
	AudioBufferDuration = 50 * time.Millisecond
)

// Analyzer
const (
	// AnalyzerFFTSize is the transform length; also the tap window
	AnalyzerFFTSize = 1024

	// AnalyzerTick is the snapshot refresh interval (~display refresh)
	AnalyzerTick = time.Second / 60

	// AnalyzerSmoothing is the EMA weight kept from the previous snapshot
	AnalyzerSmoothing = 0.7

	// Band edges in Hz
	AnalyzerLowMinHz  = 20
	AnalyzerLowMaxHz  = 250
	AnalyzerMidMaxHz  = 2000
	AnalyzerHighMaxHz = 8000

	// Fixed normalization factors, clamped to [0,1] afterwards
	AnalyzerBandScale   = 6.0
	AnalyzerVolumeScale = 2.5
)

// Noise Generator
const (
	// NoiseBufferDuration of the looped bed buffer, regenerated on restart
	NoiseBufferDuration = 2 * time.Second

	// BrownLeak is the leaky-integrator constant for brown noise
	BrownLeak = 0.02

	// BrownGain rescales the integrator output toward unit range
	BrownGain = 3.5
)

// Engine Defaults
const (
	DefaultCrossfade  = 3 * time.Second
	DefaultVolumeRamp = 100 * time.Millisecond
	DefaultSceneFade  = 2 * time.Second

	// MaxTransientVoices caps simultaneously in-flight one-shot events per player
	MaxTransientVoices = 64
)

// Layered Scenes
const (
	// LayeredBedCutoff tames hiss in looping ambience recordings
	LayeredBedCutoff = 2600.0

	// LayeredSfxInterval is the mean one-shot spacing when a scene
	// does not set its own
	LayeredSfxInterval = 12 * time.Second
)

// Rain Synthesizer
const (
	RainDropIntervalMin = 80 * time.Millisecond
	RainDropIntervalMax = 300 * time.Millisecond

	RainDropLengthMin = 10 * time.Millisecond
	RainDropLengthMax = 25 * time.Millisecond

	// Band-pass window for drop bursts
	RainDropBandMinHz = 3000.0
	RainDropBandMaxHz = 5000.0

	RainBedCutoffHz = 1200.0
	RainBedGain     = 0.35
)

// Wind Synthesizer
const (
	WindGustIntervalMin = 5 * time.Second
	WindGustIntervalMax = 15 * time.Second
	WindGustProbability = 0.7
	WindGustRampMin     = 1 * time.Second
	WindGustRampMax     = 3 * time.Second

	// Breathing oscillators
	WindCutoffLFOHz = 0.13
	WindGainLFOHz   = 0.19

	WindBedCutoffHz   = 420.0
	WindBedCutoffMod  = 260.0
	WindBedGain       = 0.4
	WindWhistleHz     = 900.0
	WindWhistleQ      = 12.0
	WindWhistleGain   = 0.06
	WindGustCutoffMod = 900.0
)

// Cafe Synthesizer
const (
	CafeClinkInterval = 9 * time.Second

	CafeBedCenterHz = 800.0
	CafeBedQ        = 0.6
	CafeShelfHz     = 220.0
	CafeShelfDB     = 3.0
	CafeBedGain     = 0.3

	CafeClinkLength = 350 * time.Millisecond
)

// Sample Events
const (
	// SampleVariantMax is how many numbered variants the loaders probe
	SampleVariantMax = 8

	EventFadeInMin  = 5 * time.Millisecond
	EventFadeInMax  = 20 * time.Millisecond
	EventFadeOutMin = 50 * time.Millisecond
	EventFadeOutMax = 200 * time.Millisecond
)
