package audio

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/gopxl/beep"

	"github.com/lowfreq/soundscape/constant"
	"github.com/lowfreq/soundscape/core"
)

// layeredPlayer renders a scene as a looping ambience bed under a
// sparse stream of randomized one-shot events. Each event draws a
// recording from the scene's pool and varies its playback rate, start
// offset, length, fades, and post-filter so repeats never sound
// identical.
type layeredPlayer struct {
	playerShell
	mix   *Mixer
	bed   *beep.Buffer
	sfx   []*beep.Buffer
	sched eventScheduler
	synth Synthesizer
}

func newLayeredPlayer(scene core.Scene, cfg core.SceneConfig, loader *SampleLoader) *layeredPlayer {
	mix := &Mixer{}
	p := &layeredPlayer{mix: mix}
	p.scene = scene
	p.cfg = cfg
	p.loader = loader
	p.master = newGainRamp(mix, cfg.Trim())
	return p
}

func (p *layeredPlayer) Load() error {
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

	var bed *beep.Buffer
	if p.cfg.AmbiencePath != "" {
		var err error
		bed, err = p.loader.Load(fmt.Sprintf("%s_bed", p.scene), p.cfg.AmbiencePath)
		if err != nil {
			log.Printf("audio: scene %s: ambience bed %q unavailable: %v", p.scene, p.cfg.AmbiencePath, err)
		}
	}
	var sfx []*beep.Buffer
	for i, path := range p.cfg.SfxPaths {
		buf, err := p.loader.Load(fmt.Sprintf("%s_sfx_%d", p.scene, i+1), path)
		if err != nil {
			log.Printf("audio: scene %s: sfx %q unavailable: %v", p.scene, path, err)
			continue
		}
		sfx = append(sfx, buf)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if bed == nil {
		// A layered scene is carried by its bed; without one the
		// one-shots would fire into silence.
		if p.cfg.Synth == core.SynthNone {
			p.state = stateUnloaded
			return ErrSceneUnusable
		}
		log.Printf("audio: scene %s: no ambience bed, falling back to synthesis", p.scene)
		p.synth = NewSynthesizer(p.cfg.Synth, p.loader)
		p.synth.SetIntensity(p.cfg.Intensity)
		p.synth.Connect(p.mix)
	}
	p.bed = bed
	p.sfx = sfx
	p.state = stateLoaded
	return nil
}

func (p *layeredPlayer) Start() {
	p.mu.Lock()
	if p.state != stateLoaded {
		p.mu.Unlock()
		return
	}
	p.state = statePlaying
	p.master.Set(p.cfg.Trim())
	bed := p.bed
	synth := p.synth
	p.mu.Unlock()

	if synth != nil {
		synth.Start()
		synth.FadeIn(constant.DefaultSceneFade)
		return
	}

	// Fresh bed voice per start; the previous one drained out of the
	// mixer during the last stop.
	loop := beep.Loop(-1, bed.Streamer(0, bed.Len()))
	shaped := newFilterStreamer(loop, func() []*biquad {
		return []*biquad{newLowPass(float64(sampleRate), constant.LayeredBedCutoff, 0.707)}
	})
	voice := newGainRamp(shaped, 0)
	voice.Ramp(1, constant.DefaultSceneFade)
	p.mix.Add(voice)

	if len(p.sfx) > 0 {
		p.sched.start(p.nextSfx, p.fireSfx)
	}
}

func (p *layeredPlayer) nextSfx() time.Duration {
	mean := p.cfg.SfxInterval
	if mean <= 0 {
		mean = constant.LayeredSfxInterval
	}
	return jittered(mean, 0.5)
}

// fireSfx plays one randomized slice of a random pool recording
func (p *layeredPlayer) fireSfx() {
	p.mu.Lock()
	if p.state != statePlaying || len(p.sfx) == 0 {
		p.mu.Unlock()
		return
	}
	if p.mix.Len() >= constant.MaxTransientVoices {
		p.mu.Unlock()
		return
	}
	buf := p.sfx[rand.Intn(len(p.sfx))]
	p.mu.Unlock()

	from := int(float64(buf.Len()) * randFloat(0, 0.1))
	to := from + int(float64(buf.Len()-from)*randFloat(0.6, 1.0))
	if to-from < sampleRate.N(50*time.Millisecond) {
		from, to = 0, buf.Len()
	}

	rate := randFloat(0.9, 1.1)
	attack := randBetween(constant.EventFadeInMin, constant.EventFadeInMax)
	release := randBetween(constant.EventFadeOutMin, constant.EventFadeOutMax)

	var s beep.Streamer = buf.Streamer(from, to)
	s = beep.ResampleRatio(3, rate, s)
	total := time.Duration(float64(sampleRate.D(to-from)) / rate)
	s = newEnvelope(s, total, attack, release)

	// Half the events pass through a random coloration filter so the
	// pool reads as a wider space than it is.
	switch rand.Intn(4) {
	case 0:
		s = newFilterStreamer(s, func() []*biquad {
			return []*biquad{newLowPass(float64(sampleRate), 3000, 0.707)}
		})
	case 1:
		s = newFilterStreamer(s, func() []*biquad {
			return []*biquad{newBandPass(float64(sampleRate), 1500, 1.0)}
		})
	}
	p.mix.Add(newVolume(s, randFloat(0.4, 0.9)))
}

func (p *layeredPlayer) Stop(fade time.Duration) {
	p.mu.Lock()
	if p.state != statePlaying {
		p.mu.Unlock()
		return
	}
	p.state = stateStopping
	synth := p.synth
	p.mu.Unlock()

	p.sched.cancel()
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

func (p *layeredPlayer) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.state = stateUnloaded
	synth := p.synth
	p.mu.Unlock()

	p.sched.cancel()
	if synth != nil {
		synth.Dispose()
	}
	p.mix.Clear()
}
