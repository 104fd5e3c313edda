package audio

import (
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"

	"github.com/lowfreq/soundscape/constant"
	"github.com/lowfreq/soundscape/core"
)

// ScenePlayer owns one scene's complete audio graph: every node,
// buffer, and timer it allocates is released again on Dispose. The
// engine creates one player per scene on first use and caches it for
// its own lifetime.
type ScenePlayer interface {
	Load() error
	Start()
	Stop(fade time.Duration)
	Connect(dest *Mixer)
	Dispose()
	Loaded() bool
	Playing() bool
	Scene() core.Scene
}

// newScenePlayer builds the player variant a scene's configuration
// calls for
func newScenePlayer(scene core.Scene, cfg core.SceneConfig, loader *SampleLoader) ScenePlayer {
	switch cfg.Kind {
	case core.SceneLayered:
		return newLayeredPlayer(scene, cfg, loader)
	case core.SceneBlended:
		return newBlendedPlayer(scene, cfg, loader)
	default:
		return newLoopPlayer(scene, cfg, loader)
	}
}

// playerShell carries the state machine and output plumbing shared by
// all three player variants. Mutable fields live on the struct, not
// in timer closures, so state read after an asynchronous suspension
// is never stale.
type playerShell struct {
	mu       sync.Mutex
	scene    core.Scene
	cfg      core.SceneConfig
	loader   *SampleLoader
	state    playState
	disposed bool
	attached bool

	// master is the player-wide gain over the variant's graph
	master *gainRamp
}

func (p *playerShell) Scene() core.Scene { return p.scene }

func (p *playerShell) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state >= stateLoaded && !p.disposed
}

func (p *playerShell) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == statePlaying
}

// Connect attaches the player's output to dest. Attaching twice is a
// no-op; the player stays attached until Dispose, going silent (not
// absent) between plays.
func (p *playerShell) Connect(dest *Mixer) {
	p.mu.Lock()
	if p.attached || p.disposed {
		p.mu.Unlock()
		return
	}
	p.attached = true
	p.mu.Unlock()
	dest.Add(p)
}

func (p *playerShell) Stream(samples [][2]float64) (n int, ok bool) {
	p.mu.Lock()
	disposed := p.disposed
	p.mu.Unlock()
	if disposed {
		return 0, false
	}
	return p.master.Stream(samples)
}

func (p *playerShell) Err() error { return nil }

// crossfade returns the configured crossfade with the default applied
func (p *playerShell) crossfade() time.Duration {
	if p.cfg.Crossfade > 0 {
		return p.cfg.Crossfade
	}
	return constant.DefaultCrossfade
}

// rotation plays a set of interchangeable recordings as a gapless,
// non-repeating loop: each track's natural end is covered by the next
// pick fading in over the crossfade window, with independent gain
// ramps on both sides. Owned by the uniform-loop and blended players.
type rotation struct {
	mu        sync.Mutex
	mix       *Mixer
	tracks    []*beep.Buffer
	crossfade time.Duration
	gain      float64
	last      int
	timer     *time.Timer
	active    []*gainRamp
	running   bool
}

func newRotation(mix *Mixer, crossfade time.Duration) *rotation {
	return &rotation{mix: mix, crossfade: crossfade, gain: 1, last: -1}
}

func (r *rotation) start(fadeIn time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || len(r.tracks) == 0 {
		return
	}
	r.running = true
	r.startTrackLocked(r.pickLocked(), fadeIn)
}

// stop cancels the pending next-track timer before any source is
// released, then fades every live track out
func (r *rotation) stop(fade time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	for _, v := range r.active {
		v.Ramp(0, fade)
	}
	r.active = nil
}

// setGain retargets the rotation layer's mix ratio
func (r *rotation) setGain(gain float64, ramp time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gain = gain
	for _, v := range r.active {
		v.Ramp(gain, ramp)
	}
}

// pickLocked chooses the next track, never repeating the previous
// pick when more than one option exists
func (r *rotation) pickLocked() int {
	n := len(r.tracks)
	if n == 1 {
		return 0
	}
	idx := rand.Intn(n)
	for idx == r.last {
		idx = rand.Intn(n)
	}
	return idx
}

func (r *rotation) startTrackLocked(idx int, fadeIn time.Duration) {
	buf := r.tracks[idx]

	// The track loops so the outgoing side of a crossfade can extend
	// past its natural end; Take truncates it right when the fade-out
	// that rotate schedules will have finished.
	tail := sampleRate.N(r.crossfade / 2)
	src := beep.Take(buf.Len()+tail, beep.Loop(-1, buf.Streamer(0, buf.Len())))
	voice := newGainRamp(src, 0)
	voice.Ramp(r.gain, fadeIn)
	r.mix.Add(voice)

	r.last = idx
	r.active = append(r.active, voice)
	if len(r.active) > 4 {
		r.active = r.active[len(r.active)-4:]
	}
	r.scheduleNextLocked(buf)
}

// scheduleNextLocked arms the rotate timer for half a crossfade
// before the current track's natural end, centering the overlap on
// the track boundary
func (r *rotation) scheduleNextLocked(buf *beep.Buffer) {
	dur := bufferFormat.SampleRate.D(buf.Len())
	delay := dur - r.crossfade/2
	if delay < 10*time.Millisecond {
		delay = dur / 2
	}
	r.timer = time.AfterFunc(delay, r.rotate)
}

// rotate crossfades from the current track into a fresh pick
func (r *rotation) rotate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	for _, v := range r.active {
		v.Ramp(0, r.crossfade)
	}
	r.startTrackLocked(r.pickLocked(), r.crossfade)
}
