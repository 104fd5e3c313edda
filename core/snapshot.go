package core

// Snapshot is the smoothed summary of the current audible output.
// All components are normalized to [0,1]. It is an immutable value;
// each analyzer poll returns a copy.
type Snapshot struct {
	Low    float64 // 20-250 Hz band energy
	Mid    float64 // 250-2000 Hz band energy
	High   float64 // 2000-8000 Hz band energy
	Volume float64 // RMS of the time-domain signal
}
