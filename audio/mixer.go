package audio

import (
	"sync"

	"github.com/gopxl/beep"
)

// Mixer wraps beep.Mixer with a mutex so the graph can be edited
// while the speaker goroutine streams it. The engine owns one for
// its scene players; players and synthesizers own their own for
// transient voices. Finished streamers are dropped by the wrapped
// mixer, which keeps playing silence when empty.
type Mixer struct {
	mu    sync.Mutex
	mixer beep.Mixer
}

// Add inserts streamers into the mix
func (m *Mixer) Add(s ...beep.Streamer) {
	m.mu.Lock()
	m.mixer.Add(s...)
	m.mu.Unlock()
}

// Clear removes every streamer
func (m *Mixer) Clear() {
	m.mu.Lock()
	m.mixer.Clear()
	m.mu.Unlock()
}

// Len reports the number of live streamers
func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Len()
}

func (m *Mixer) Stream(samples [][2]float64) (n int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Stream(samples)
}

func (m *Mixer) Err() error { return nil }
