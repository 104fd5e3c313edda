package audio

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lowfreq/soundscape/constant"
	"github.com/lowfreq/soundscape/core"
)

// Engine is the single owner of the output device and the scene
// graph. One player per scene is created on first use and cached;
// switching scenes crossfades between players rather than tearing
// them down.
//
// silentMode marks a graph built without a device; Destroy then
// skips the speaker teardown.
type Engine struct {
	config Config
	loader *SampleLoader

	mu      sync.Mutex
	scenes  map[core.Scene]core.SceneConfig
	players map[core.Scene]ScenePlayer

	master   *Mixer
	gain     *gainRamp
	out      beep.Streamer
	analyzer *Analyzer

	current    core.Scene
	transition transitionState
	// gen counts committed transitions; a deferred state change only
	// applies when no newer transition superseded it
	gen     uint64
	volume  float64
	preMute float64

	initialized atomic.Bool
	destroyed   atomic.Bool
	muted       atomic.Bool
	silentMode  atomic.Bool
}

// New creates an engine. The optional config overrides defaults.
func New(cfg ...Config) *Engine {
	config := LoadConfig()
	if len(cfg) > 0 {
		config = cfg[0]
		if config.BufferDuration <= 0 {
			config.BufferDuration = constant.AudioBufferDuration
		}
		if config.Crossfade <= 0 {
			config.Crossfade = constant.DefaultCrossfade
		}
	}
	return &Engine{
		config:  config,
		loader:  NewSampleLoader(),
		scenes:  make(map[core.Scene]core.SceneConfig),
		players: make(map[core.Scene]ScenePlayer),
		volume:  clamp01(config.Volume),
	}
}

// AddScene registers or replaces a scene definition. A replaced
// scene's cached player is disposed so the next Play rebuilds it.
func (e *Engine) AddScene(scene core.Scene, cfg core.SceneConfig) {
	e.mu.Lock()
	e.scenes[scene] = cfg
	old := e.players[scene]
	delete(e.players, scene)
	e.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
}

// AddScenes registers a whole scene set, as loaded by LoadScenes
func (e *Engine) AddScenes(set map[core.Scene]core.SceneConfig) {
	for scene, cfg := range set {
		e.AddScene(scene, cfg)
	}
}

// AvailableScenes lists every registered scene
func (e *Engine) AvailableScenes() []core.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]core.Scene, 0, len(e.scenes))
	for s := range e.scenes {
		out = append(out, s)
	}
	return out
}

// Init opens the output device, builds the audio graph, and starts
// background preloading of every registered scene. A denied device is
// fatal; the error reaches the caller and the engine stays
// uninitialized.
func (e *Engine) Init() error {
	if e.destroyed.Load() {
		return ErrDestroyed
	}
	if e.initialized.Load() {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(e.config.BufferDuration)); err != nil {
		return fmt.Errorf("audio: open output device: %w", err)
	}

	e.buildGraph()
	speaker.Play(e.out)

	if e.analyzer != nil {
		go e.analyzer.run(constant.AnalyzerTick)
	}

	e.initialized.Store(true)
	go e.preload()
	return nil
}

// buildGraph assembles master mixer, gain, and analyzer tap. Split
// from Init so the graph can be driven without a device.
func (e *Engine) buildGraph() {
	e.master = &Mixer{}
	e.gain = newGainRamp(e.master, e.volume)
	e.out = e.gain
	if e.config.Analyzer {
		t := newTap(e.gain, constant.AnalyzerFFTSize)
		e.analyzer = newAnalyzer(t, constant.AnalyzerSmoothing)
		e.out = t
	}
}

// preload warms every registered scene in the background; failures
// are logged and retried on the scene's first Play
func (e *Engine) preload() {
	for _, scene := range e.AvailableScenes() {
		if e.destroyed.Load() {
			return
		}
		player, err := e.ensurePlayer(scene)
		if err != nil {
			continue
		}
		if err := player.Load(); err != nil {
			log.Printf("audio: preload %s: %v", scene, err)
		}
	}
}

// ensurePlayer returns the scene's cached player, creating it on
// first use
func (e *Engine) ensurePlayer(scene core.Scene) (ScenePlayer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.players[scene]; ok {
		return p, nil
	}
	cfg, ok := e.scenes[scene]
	if !ok {
		return nil, ErrSceneUnknown
	}
	p := newScenePlayer(scene, cfg, e.loader)
	e.players[scene] = p
	return p, nil
}

// Play starts a scene, cutting off whichever scene is already
// playing without a fade. Playing the current scene again is a no-op.
func (e *Engine) Play(scene core.Scene) error {
	return e.switchTo(scene, 0)
}

// SwitchScene crossfades from the current scene to another over fade:
// the new player fades in on its own schedule while the old fades
// out, and both overlap. A non-positive fade uses the configured
// crossfade.
func (e *Engine) SwitchScene(scene core.Scene, fade time.Duration) error {
	if fade <= 0 {
		fade = e.config.Crossfade
	}
	return e.switchTo(scene, fade)
}

func (e *Engine) switchTo(scene core.Scene, fade time.Duration) error {
	if e.destroyed.Load() {
		return ErrDestroyed
	}
	if !e.initialized.Load() {
		return ErrNotInitialized
	}

	e.mu.Lock()
	if _, ok := e.scenes[scene]; !ok {
		e.mu.Unlock()
		return ErrSceneUnknown
	}
	if e.transition == transitionSwitching {
		e.mu.Unlock()
		return ErrTransitionInFlight
	}
	if e.current == scene && e.transition == transitionPlaying {
		e.mu.Unlock()
		return nil
	}
	e.transition = transitionSwitching
	e.gen++
	gen := e.gen
	previous := e.current
	e.mu.Unlock()

	player, err := e.ensurePlayer(scene)
	if err != nil {
		log.Printf("audio: scene %s unavailable: %v", scene, err)
		e.settle(previous)
		return err
	}
	// First Play of a scene blocks on its load; later plays hit the
	// loader cache.
	if err := player.Load(); err != nil {
		log.Printf("audio: scene %s not started: %v", scene, err)
		e.settle(previous)
		return err
	}

	if prev := e.playerFor(previous); prev != nil && prev.Playing() {
		prev.Stop(fade)
	}

	player.Connect(e.master)
	player.Start()

	e.mu.Lock()
	e.current = scene
	if fade <= 0 {
		e.transition = transitionPlaying
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	// Hold the transition lock for the crossfade window; overlapping
	// switches are rejected, not queued.
	time.AfterFunc(fade, func() {
		e.mu.Lock()
		if e.gen == gen && e.transition == transitionSwitching {
			e.transition = transitionPlaying
		}
		e.mu.Unlock()
	})
	return nil
}

// settle rolls the transition lock back after a failed switch
func (e *Engine) settle(previous core.Scene) {
	e.mu.Lock()
	if previous != "" {
		e.transition = transitionPlaying
	} else {
		e.transition = transitionIdle
	}
	e.mu.Unlock()
}

func (e *Engine) playerFor(scene core.Scene) ScenePlayer {
	if scene == "" {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.players[scene]
}

// Stop fades the current scene out over fade and returns the engine
// to idle. The playing state clears once the fade completes; a
// non-positive fade cuts and clears immediately.
func (e *Engine) Stop(fade time.Duration) {
	if !e.initialized.Load() || e.destroyed.Load() {
		return
	}

	e.mu.Lock()
	current := e.current
	gen := e.gen
	e.mu.Unlock()

	if p := e.playerFor(current); p != nil {
		p.Stop(fade)
	}
	if fade <= 0 {
		e.clearPlaying(current, gen)
		return
	}
	time.AfterFunc(fade, func() {
		e.clearPlaying(current, gen)
	})
}

// clearPlaying drops the playing state unless a newer transition was
// committed after the stop was issued; the last caller wins, even
// when the stop lands inside a crossfade window.
func (e *Engine) clearPlaying(scene core.Scene, gen uint64) {
	e.mu.Lock()
	if e.gen != gen || e.current != scene {
		e.mu.Unlock()
		return
	}
	e.current = ""
	e.transition = transitionIdle
	e.mu.Unlock()

	if e.analyzer != nil {
		e.analyzer.Reset()
	}
}

// SetVolume retargets master volume over ramp; a non-positive ramp
// uses a short default so live changes do not click. While muted the
// new value is stored and applied on unmute.
func (e *Engine) SetVolume(v float64, ramp time.Duration) {
	v = clamp01(v)
	if ramp <= 0 {
		ramp = constant.DefaultVolumeRamp
	}
	e.mu.Lock()
	e.volume = v
	gain := e.gain
	e.mu.Unlock()

	if gain != nil && !e.muted.Load() {
		gain.Ramp(v, ramp)
	}
}

// Volume returns the set master volume, which mute does not change
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// ToggleMute silences or restores output, returns true if now audible
func (e *Engine) ToggleMute() bool {
	if e.muted.CompareAndSwap(false, true) {
		e.mu.Lock()
		e.preMute = e.volume
		gain := e.gain
		e.mu.Unlock()
		if gain != nil {
			gain.Ramp(0, constant.DefaultVolumeRamp)
		}
		return false
	}
	e.muted.Store(false)
	e.mu.Lock()
	v := e.volume
	gain := e.gain
	e.mu.Unlock()
	if gain != nil {
		gain.Ramp(v, constant.DefaultVolumeRamp)
	}
	return true
}

func (e *Engine) IsMuted() bool {
	return e.muted.Load()
}

// CurrentScene returns the playing scene, or "" when idle
func (e *Engine) CurrentScene() core.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != "" && e.transition != transitionIdle
}

func (e *Engine) IsSceneLoaded(scene core.Scene) bool {
	if p := e.playerFor(scene); p != nil {
		return p.Loaded()
	}
	return false
}

// AudioData returns the latest analysis snapshot, or a zero snapshot
// when analysis is disabled
func (e *Engine) AudioData() core.Snapshot {
	if e.analyzer == nil {
		return core.Snapshot{}
	}
	return e.analyzer.Data()
}

// Destroy releases every player, the analyzer, and the device.
// Idempotent; the engine cannot be reused afterwards.
func (e *Engine) Destroy() {
	if !e.destroyed.CompareAndSwap(false, true) {
		return
	}

	e.mu.Lock()
	players := make([]ScenePlayer, 0, len(e.players))
	for _, p := range e.players {
		players = append(players, p)
	}
	e.players = make(map[core.Scene]ScenePlayer)
	e.current = ""
	e.transition = transitionIdle
	e.mu.Unlock()

	for _, p := range players {
		p.Dispose()
	}
	if e.analyzer != nil {
		e.analyzer.Stop()
	}
	if e.initialized.Load() && !e.silentMode.Load() {
		speaker.Clear()
		speaker.Close()
	}
}
