package sequencer

import (
	"time"
)

// DefaultChordDuration is the chord length used when no tempo is configured.
const DefaultChordDuration = 2 * time.Second

// Timing sets how long each chord of a progression lasts. A positive BPM
// wins over ChordDuration: one chord per beat.
type Timing struct {
	ChordDuration time.Duration
	BPM           float64
}

func (t Timing) Duration() time.Duration {
	if t.BPM > 0 {
		return time.Duration(60 / t.BPM * float64(time.Second))
	}
	return t.ChordDuration
}

// Seconds is Duration on the device clock.
func (t Timing) Seconds() float64 {
	if t.BPM > 0 {
		return 60 / t.BPM
	}
	return t.ChordDuration.Seconds()
}

// Event places one chord of a progression on an absolute timeline.
type Event struct {
	Index    int
	Symbol   string
	Start    float64
	Duration float64
}

func (e Event) End() float64 { return e.Start + e.Duration }

// Plan lays the progression out back to back starting at origin. A
// non-positive chord duration yields no events.
func Plan(symbols []string, t Timing, origin float64) []Event {
	d := t.Seconds()
	if len(symbols) == 0 || !(d > 0) {
		return nil
	}
	events := make([]Event, len(symbols))
	for i, s := range symbols {
		events[i] = Event{
			Index:    i,
			Symbol:   s,
			Start:    origin + float64(i)*d,
			Duration: d,
		}
	}
	return events
}

// EventKind identifies playback lifecycle events.
type EventKind int

const (
	EventChordStarted EventKind = iota
	EventLoopCompleted
	EventPlaybackEnded
)

func (k EventKind) String() string {
	switch k {
	case EventChordStarted:
		return "chord-started"
	case EventLoopCompleted:
		return "loop-completed"
	case EventPlaybackEnded:
		return "playback-ended"
	}
	return "unknown"
}

// State is the control state of a Playback.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StateLooping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateLooping:
		return "looping"
	}
	return "unknown"
}
