package audio

import (
	"errors"

	"github.com/gopxl/beep"

	"github.com/lowfreq/soundscape/constant"
)

// Sentinel errors
var (
	ErrNotInitialized     = errors.New("audio: engine not initialized")
	ErrDestroyed          = errors.New("audio: engine destroyed")
	ErrSceneUnknown       = errors.New("audio: unknown scene")
	ErrSceneUnusable      = errors.New("audio: scene has no usable assets")
	ErrTransitionInFlight = errors.New("audio: scene transition already in flight")
	ErrUnsupportedFormat  = errors.New("audio: unsupported audio format")
)

// sampleRate is the engine-wide output rate; every decoded asset is
// resampled to it on load
const sampleRate = beep.SampleRate(constant.AudioSampleRate)

// bufferFormat is the canonical format cached sample buffers use
var bufferFormat = beep.Format{
	SampleRate:  sampleRate,
	NumChannels: constant.AudioChannels,
	Precision:   2,
}

// transitionState tracks the engine-wide scene transition lock
type transitionState int

const (
	transitionIdle transitionState = iota
	transitionSwitching
	transitionPlaying
)

// playState is the per-player lifecycle
type playState int

const (
	stateUnloaded playState = iota
	stateLoading
	stateLoaded
	statePlaying
	stateStopping
)

func (s playState) String() string {
	names := [...]string{"unloaded", "loading", "loaded", "playing", "stopping"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
