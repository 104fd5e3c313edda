package audio

import (
	"fmt"
	"log"
	"time"

	"github.com/lowfreq/soundscape/core"
)

// loopPlayer renders a uniform scene: a pool of interchangeable
// recordings rotated as a gapless crossfaded loop. When every
// recording fails to load and the scene names a synthesizer, the
// player degrades to running the synthesizer alone.
type loopPlayer struct {
	playerShell
	mix   *Mixer
	rot   *rotation
	synth Synthesizer
}

func newLoopPlayer(scene core.Scene, cfg core.SceneConfig, loader *SampleLoader) *loopPlayer {
	mix := &Mixer{}
	p := &loopPlayer{mix: mix}
	p.scene = scene
	p.cfg = cfg
	p.loader = loader
	p.master = newGainRamp(mix, cfg.Trim())
	p.rot = newRotation(mix, p.crossfade())
	return p
}

func (p *loopPlayer) Load() error {
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

	p.mu.Lock()
	defer p.mu.Unlock()
	if loaded == 0 {
		if p.cfg.Synth == core.SynthNone {
			p.state = stateUnloaded
			return ErrSceneUnusable
		}
		log.Printf("audio: scene %s: no recordings, falling back to synthesis", p.scene)
		p.synth = NewSynthesizer(p.cfg.Synth, p.loader)
		p.synth.SetIntensity(p.cfg.Intensity)
		p.synth.Connect(p.mix)
	}
	p.state = stateLoaded
	return nil
}

func (p *loopPlayer) Start() {
	p.mu.Lock()
	if p.state != stateLoaded {
		p.mu.Unlock()
		return
	}
	p.state = statePlaying
	p.master.Set(p.cfg.Trim())
	synth := p.synth
	p.mu.Unlock()

	if synth != nil {
		synth.Start()
		synth.FadeIn(p.crossfade() / 2)
		return
	}
	p.rot.start(p.crossfade() / 2)
}

func (p *loopPlayer) Stop(fade time.Duration) {
	p.mu.Lock()
	if p.state != statePlaying {
		p.mu.Unlock()
		return
	}
	p.state = stateStopping
	synth := p.synth
	p.mu.Unlock()

	p.rot.stop(fade)
	if synth != nil {
		synth.Stop(fade)
	}
	p.master.Ramp(0, fade)

	time.AfterFunc(fade+20*time.Millisecond, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.state != stateStopping {
			return
		}
		p.mix.Clear()
		if p.synth != nil {
			p.synth.Connect(p.mix)
		}
		p.state = stateLoaded
	})
}

func (p *loopPlayer) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.state = stateUnloaded
	synth := p.synth
	p.mu.Unlock()

	p.rot.stop(0)
	if synth != nil {
		synth.Dispose()
	}
	p.mix.Clear()
}
