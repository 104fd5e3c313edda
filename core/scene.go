package core

import "time"

// Scene identifies a named ambience configuration
type Scene string

// Built-in scenes; callers may register more via AddScene
const (
	SceneRain Scene = "rain"
	SceneCafe Scene = "cafe"
	SceneWind Scene = "wind"
)

// SceneKind selects the player variant that owns a scene's audio graph
type SceneKind int

const (
	// SceneUniform loops interchangeable recordings with crossfades
	SceneUniform SceneKind = iota
	// SceneLayered plays a continuous filtered bed plus sparse one-shots
	SceneLayered
	// SceneBlended mixes a persistent synthesizer with rotating recordings
	SceneBlended
)

// SynthKind identifies the procedural synthesizer attached to a scene
type SynthKind int

const (
	SynthNone SynthKind = iota
	SynthRain
	SynthWind
	SynthCafe
)

// SceneConfig describes one scene's assets and mixing rules.
// Which fields apply depends on Kind; zero durations and ratios
// fall back to engine defaults.
type SceneConfig struct {
	Kind SceneKind

	// Interchangeable recordings (uniform and blended variants)
	Paths     []string
	Crossfade time.Duration

	// Layered variant
	AmbiencePath string
	SfxPaths     []string
	SfxInterval  time.Duration // mean interval between one-shots, ±50% jitter

	// Blended variant
	SynthMix     float64
	RecordingMix float64

	// Synth is the procedural layer for blended scenes, and the
	// degradation fallback when a scene's recordings fail to load
	Synth SynthKind

	// Intensity drives transient-event density (drops, clinks, gusts), 0..1
	Intensity float64

	// Volume is a per-scene trim; 0 means unity
	Volume float64
}

// Trim returns the per-scene gain with the zero-value default applied
func (c SceneConfig) Trim() float64 {
	if c.Volume <= 0 {
		return 1
	}
	return c.Volume
}

func (k SceneKind) String() string {
	names := [...]string{"uniform", "layered", "blended"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

func (k SynthKind) String() string {
	names := [...]string{"none", "rain", "wind", "cafe"}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}
