package audio

import (
	"fmt"
	"log"
	"time"

	"github.com/lowfreq/soundscape/constant"
	"github.com/lowfreq/soundscape/core"
)

// blendedPlayer runs a synthesizer and a recording rotation at the
// same time, each at its own mix ratio. The synthesizer is always
// available, so the scene plays even when every recording fails to
// load; recordings, when present, thicken it at RecordingMix.
type blendedPlayer struct {
	playerShell
	sum      *Mixer
	rotMix   *Mixer
	rot      *rotation
	synth    Synthesizer
	synthMix float64
	recMix   float64
}

func newBlendedPlayer(scene core.Scene, cfg core.SceneConfig, loader *SampleLoader) *blendedPlayer {
	synthMix := cfg.SynthMix
	if synthMix <= 0 {
		synthMix = 0.6
	}
	recMix := cfg.RecordingMix
	if recMix <= 0 {
		recMix = 0.4
	}

	rotMix := &Mixer{}
	synth := NewSynthesizer(cfg.Synth, loader)
	synth.SetIntensity(cfg.Intensity)

	sum := &Mixer{}
	sum.Add(rotMix)
	synth.Connect(sum)

	p := &blendedPlayer{
		sum:      sum,
		rotMix:   rotMix,
		synth:    synth,
		synthMix: synthMix,
		recMix:   recMix,
	}
	p.scene = scene
	p.cfg = cfg
	p.loader = loader
	p.master = newGainRamp(sum, cfg.Trim())
	p.rot = newRotation(rotMix, p.crossfade())
	p.rot.setGain(recMix, 0)
	return p
}

func (p *blendedPlayer) Load() error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDestroyed
	}
	if p.state >= stateLoaded {
		p.mu.Unlock()
		return nil
	}
	p.state = stateLoading
	p.mu.Unlock()

	var loaded int
	for i, path := range p.cfg.Paths {
		name := fmt.Sprintf("%s_track_%d", p.scene, i+1)
		buf, err := p.loader.Load(name, path)
		if err != nil {
			log.Printf("audio: scene %s: track %q unavailable: %v", p.scene, path, err)
			continue
		}
		p.rot.mu.Lock()
		p.rot.tracks = append(p.rot.tracks, buf)
		p.rot.mu.Unlock()
		loaded++
	}
	if loaded == 0 {
		log.Printf("audio: scene %s: no recordings, synthesis carries the scene", p.scene)
	}

	// The synthesizer needs no loading, so the scene is usable either way.
	p.mu.Lock()
	p.state = stateLoaded
	p.mu.Unlock()
	return nil
}

func (p *blendedPlayer) Start() {
	p.mu.Lock()
	if p.state != stateLoaded {
		p.mu.Unlock()
		return
	}
	p.state = statePlaying
	p.master.Set(p.cfg.Trim())
	synthMix := p.synthMix
	p.mu.Unlock()

	p.synth.SetLevel(synthMix, 0)
	p.synth.Start()
	p.synth.FadeIn(constant.DefaultSceneFade)
	p.rot.start(p.crossfade() / 2)
}

// SetMix retargets both layer ratios over a short ramp
func (p *blendedPlayer) SetMix(synthMix, recordingMix float64) {
	p.mu.Lock()
	p.synthMix = clamp01(synthMix)
	p.recMix = clamp01(recordingMix)
	synthMix, recordingMix = p.synthMix, p.recMix
	p.mu.Unlock()

	p.synth.SetLevel(synthMix, constant.DefaultVolumeRamp)
	p.rot.setGain(recordingMix, constant.DefaultVolumeRamp)
}

func (p *blendedPlayer) Stop(fade time.Duration) {
	p.mu.Lock()
	if p.state != statePlaying {
		p.mu.Unlock()
		return
	}
	p.state = stateStopping
	p.mu.Unlock()

	p.rot.stop(fade)
	p.synth.Stop(fade)
	p.master.Ramp(0, fade)

	time.AfterFunc(fade+20*time.Millisecond, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state != stateStopping {
			return
		}
		// Track voices live in their own mixer; the synthesizer stays
		// attached to the sum for the next start.
		p.rotMix.Clear()
		p.state = stateLoaded
	})
}

func (p *blendedPlayer) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.state = stateUnloaded
	p.mu.Unlock()

	p.rot.stop(0)
	p.synth.Dispose()
	p.rotMix.Clear()
}
