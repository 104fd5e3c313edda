package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/gopxl/beep"

	"github.com/lowfreq/soundscape/core"
)

func testSceneWAVs(t *testing.T, n int) []string {
	t.Helper()
	paths := make([]string, n)
	for i := range paths {
		// Distinct names inside one temp dir per call
		paths[i] = writeWAV(t, int(sampleRate), 8192)
	}
	return paths
}

// TestLoopPlayerLifecycle verifies load, start, stop, and restart
func TestLoopPlayerLifecycle(t *testing.T) {
	cfg := core.SceneConfig{
		Kind:      core.SceneUniform,
		Paths:     testSceneWAVs(t, 2),
		Crossfade: 50 * time.Millisecond,
	}
	p := newLoopPlayer("test", cfg, NewSampleLoader())

	if p.Loaded() || p.Playing() {
		t.Fatal("fresh player should be neither loaded nor playing")
	}
	if err := p.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Loaded() {
		t.Fatal("expected loaded after Load")
	}
	if err := p.Load(); err != nil {
		t.Fatalf("redundant load must be a no-op: %v", err)
	}

	dest := &Mixer{}
	p.Connect(dest)
	p.Connect(dest) // second attach is a no-op
	if dest.Len() != 1 {
		t.Fatalf("expected one attachment, got %d", dest.Len())
	}

	p.Start()
	if !p.Playing() {
		t.Fatal("expected playing after Start")
	}
	p.Start() // redundant start is a no-op

	if peak := streamSeconds(t, dest, 200*time.Millisecond); peak == 0 {
		t.Error("expected audio while playing")
	}

	p.Stop(10 * time.Millisecond)
	p.Stop(10 * time.Millisecond) // redundant stop is a no-op
	time.Sleep(60 * time.Millisecond)
	if p.Playing() {
		t.Error("expected stopped")
	}
	if !p.Loaded() {
		t.Error("expected player still loaded after stop")
	}

	// Restart works from the loaded state
	p.Start()
	if !p.Playing() {
		t.Error("expected playing after restart")
	}
	p.Dispose()
	if p.Loaded() {
		t.Error("disposed player must not report loaded")
	}
}

// TestLoopPlayerUnusable verifies a scene with no assets and no synth
// fails to load
func TestLoopPlayerUnusable(t *testing.T) {
	cfg := core.SceneConfig{
		Kind:  core.SceneUniform,
		Paths: []string{"/nonexistent/a.wav"},
	}
	p := newLoopPlayer("broken", cfg, NewSampleLoader())
	if err := p.Load(); !errors.Is(err, ErrSceneUnusable) {
		t.Fatalf("expected ErrSceneUnusable, got %v", err)
	}
	if p.Loaded() {
		t.Error("player must stay unloaded after a failed load")
	}
}

// TestLoopPlayerPartialLoad verifies one surviving asset keeps the
// scene usable when the rest of its paths fail
func TestLoopPlayerPartialLoad(t *testing.T) {
	cfg := core.SceneConfig{
		Kind: core.SceneUniform,
		Paths: append(testSceneWAVs(t, 1),
			"/nonexistent/b.wav", "/nonexistent/c.wav"),
		Crossfade: 50 * time.Millisecond,
	}
	p := newLoopPlayer("patchy", cfg, NewSampleLoader())

	if err := p.Load(); err != nil {
		t.Fatalf("load with one good asset: %v", err)
	}
	if !p.Loaded() {
		t.Error("expected loaded with the surviving asset")
	}
	p.rot.mu.Lock()
	tracks := len(p.rot.tracks)
	p.rot.mu.Unlock()
	if tracks != 1 {
		t.Errorf("expected 1 track in rotation, got %d", tracks)
	}
}

// TestLoopPlayerSynthFallback verifies missing recordings fall back
// to the scene's synthesizer
func TestLoopPlayerSynthFallback(t *testing.T) {
	cfg := core.SceneConfig{
		Kind:  core.SceneUniform,
		Paths: []string{"/nonexistent/a.wav"},
		Synth: core.SynthRain,
	}
	p := newLoopPlayer("degraded", cfg, NewSampleLoader())
	if err := p.Load(); err != nil {
		t.Fatalf("expected fallback load to succeed, got %v", err)
	}

	dest := &Mixer{}
	p.Connect(dest)
	p.Start()
	if peak := streamSeconds(t, dest, 500*time.Millisecond); peak == 0 {
		t.Error("expected synthesized audio")
	}
	p.Dispose()
}

// TestLayeredPlayerBedAndEvents verifies the bed plays and one-shots
// join the mix
func TestLayeredPlayerBedAndEvents(t *testing.T) {
	cfg := core.SceneConfig{
		Kind:         core.SceneLayered,
		AmbiencePath: writeWAV(t, int(sampleRate), 8192),
		SfxPaths:     testSceneWAVs(t, 2),
		SfxInterval:  time.Hour, // scheduler must not race the test
	}
	p := newLayeredPlayer("forest", cfg, NewSampleLoader())
	if err := p.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	dest := &Mixer{}
	p.Connect(dest)
	p.Start()

	if peak := streamSeconds(t, dest, 100*time.Millisecond); peak == 0 {
		t.Error("expected bed audio")
	}

	before := p.mix.Len()
	p.fireSfx()
	if p.mix.Len() != before+1 {
		t.Errorf("expected one event voice added, mix went %d -> %d", before, p.mix.Len())
	}
	p.Dispose()
}

// TestLayeredPlayerRequiresBed verifies a bed-less layered scene
// without a synth is unusable
func TestLayeredPlayerRequiresBed(t *testing.T) {
	cfg := core.SceneConfig{
		Kind:     core.SceneLayered,
		SfxPaths: testSceneWAVs(t, 1),
	}
	p := newLayeredPlayer("bedless", cfg, NewSampleLoader())
	if err := p.Load(); !errors.Is(err, ErrSceneUnusable) {
		t.Fatalf("expected ErrSceneUnusable, got %v", err)
	}
}

// TestBlendedPlayerAlwaysUsable verifies the synthesizer carries the
// scene when no recording loads
func TestBlendedPlayerAlwaysUsable(t *testing.T) {
	cfg := core.SceneConfig{
		Kind:  core.SceneBlended,
		Paths: []string{"/nonexistent/wind.ogg"},
		Synth: core.SynthWind,
	}
	p := newBlendedPlayer("wind", cfg, NewSampleLoader())
	if err := p.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Loaded() {
		t.Fatal("expected loaded")
	}

	dest := &Mixer{}
	p.Connect(dest)
	p.Start()
	if peak := streamSeconds(t, dest, 500*time.Millisecond); peak == 0 {
		t.Error("expected synthesized audio")
	}

	p.SetMix(0.2, 0.8)
	if p.synthMix != 0.2 || p.recMix != 0.8 {
		t.Errorf("mix not applied: synth=%f rec=%f", p.synthMix, p.recMix)
	}
	p.Dispose()
}

// TestRotationPickNeverRepeats verifies adjacent picks differ
func TestRotationPickNeverRepeats(t *testing.T) {
	r := newRotation(&Mixer{}, 50*time.Millisecond)
	r.tracks = make([]*beep.Buffer, 3)

	last := -1
	for i := 0; i < 100; i++ {
		r.last = last
		got := r.pickLocked()
		if got == last {
			t.Fatalf("pick repeated index %d", got)
		}
		last = got
	}
}

// TestRotationSingleTrack verifies one track repeats without stalling
func TestRotationSingleTrack(t *testing.T) {
	r := newRotation(&Mixer{}, 50*time.Millisecond)
	r.tracks = make([]*beep.Buffer, 1)
	r.last = 0
	if got := r.pickLocked(); got != 0 {
		t.Fatalf("expected sole track, got %d", got)
	}
}

// TestRotationCrossfadeOverlap verifies rotate overlaps outgoing and
// incoming tracks
func TestRotationCrossfadeOverlap(t *testing.T) {
	loader := NewSampleLoader()
	mix := &Mixer{}
	r := newRotation(mix, 50*time.Millisecond)
	for i, path := range testSceneWAVs(t, 2) {
		buf, err := loader.Load(map[int]string{0: "ra", 1: "rb"}[i], path)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		r.tracks = append(r.tracks, buf)
	}

	r.start(10 * time.Millisecond)
	if mix.Len() != 1 {
		t.Fatalf("expected one live track, got %d", mix.Len())
	}
	first := r.last

	r.rotate()
	if mix.Len() != 2 {
		t.Fatalf("expected overlapping tracks during crossfade, got %d", mix.Len())
	}
	if r.last == first {
		t.Error("rotation repeated the same track")
	}

	r.stop(0)
	if r.running {
		t.Error("expected rotation stopped")
	}
}
