package audio

import (
	"fmt"
	"os"
	"strconv"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/lowfreq/soundscape/constant"
	"github.com/lowfreq/soundscape/core"
)

// Config collects the engine's tunables. Zero values fall through to
// the package defaults, so an empty literal is a valid configuration.
type Config struct {
	BufferDuration time.Duration
	Crossfade      time.Duration
	Volume         float64
	Analyzer       bool
}

func DefaultConfig() Config {
	return Config{
		BufferDuration: constant.AudioBufferDuration,
		Crossfade:      constant.DefaultCrossfade,
		Volume:         1.0,
		Analyzer:       true,
	}
}

// LoadConfig is DefaultConfig with SOUNDSCAPE_* environment overrides
// applied. Malformed values are ignored rather than fatal; audio
// keeps its defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SOUNDSCAPE_BUFFER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BufferDuration = d
		}
	}
	if v := os.Getenv("SOUNDSCAPE_CROSSFADE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Crossfade = d
		}
	}
	if v := os.Getenv("SOUNDSCAPE_VOLUME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Volume = clamp01(f)
		}
	}
	if v := os.Getenv("SOUNDSCAPE_ANALYZER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analyzer = b
		}
	}
	return cfg
}

// sceneFile mirrors the on-disk YAML shape of one scene entry.
// Durations are written as Go duration strings ("3s", "250ms").
type sceneFile struct {
	Kind         string   `yaml:"kind"`
	Paths        []string `yaml:"paths"`
	Crossfade    string   `yaml:"crossfade"`
	Ambience     string   `yaml:"ambience"`
	Sfx          []string `yaml:"sfx"`
	SfxInterval  string   `yaml:"sfx_interval"`
	Synth        string   `yaml:"synth"`
	SynthMix     float64  `yaml:"synth_mix"`
	RecordingMix float64  `yaml:"recording_mix"`
	Intensity    float64  `yaml:"intensity"`
	Volume       float64  `yaml:"volume"`
}

// LoadScenes reads a scene-set definition from a YAML file keyed by
// scene name
func LoadScenes(path string) (map[core.Scene]core.SceneConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene set: %w", err)
	}
	return ParseScenes(data)
}

func ParseScenes(data []byte) (map[core.Scene]core.SceneConfig, error) {
	var raw map[string]sceneFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scene set: %w", err)
	}

	scenes := make(map[core.Scene]core.SceneConfig, len(raw))
	for name, sf := range raw {
		cfg, err := sf.toConfig()
		if err != nil {
			return nil, fmt.Errorf("scene %q: %w", name, err)
		}
		scenes[core.Scene(name)] = cfg
	}
	return scenes, nil
}

func (sf sceneFile) toConfig() (core.SceneConfig, error) {
	var cfg core.SceneConfig

	switch sf.Kind {
	case "", "uniform":
		cfg.Kind = core.SceneUniform
	case "layered":
		cfg.Kind = core.SceneLayered
	case "blended":
		cfg.Kind = core.SceneBlended
	default:
		return cfg, fmt.Errorf("unknown kind %q", sf.Kind)
	}

	switch sf.Synth {
	case "":
		cfg.Synth = core.SynthNone
	case "rain":
		cfg.Synth = core.SynthRain
	case "wind":
		cfg.Synth = core.SynthWind
	case "cafe":
		cfg.Synth = core.SynthCafe
	default:
		return cfg, fmt.Errorf("unknown synth %q", sf.Synth)
	}

	if cfg.Kind == core.SceneBlended && cfg.Synth == core.SynthNone {
		return cfg, fmt.Errorf("blended scene needs a synth")
	}

	var err error
	if cfg.Crossfade, err = parseDuration(sf.Crossfade); err != nil {
		return cfg, fmt.Errorf("crossfade: %w", err)
	}
	if cfg.SfxInterval, err = parseDuration(sf.SfxInterval); err != nil {
		return cfg, fmt.Errorf("sfx_interval: %w", err)
	}

	cfg.Paths = sf.Paths
	cfg.AmbiencePath = sf.Ambience
	cfg.SfxPaths = sf.Sfx
	cfg.SynthMix = clamp01(sf.SynthMix)
	cfg.RecordingMix = clamp01(sf.RecordingMix)
	cfg.Intensity = clamp01(sf.Intensity)
	cfg.Volume = sf.Volume
	return cfg, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
