package envelope

import "math"

// Automatable is the subset of a gain parameter the envelope drives.
type Automatable interface {
	SetValueAtTime(value, at float64)
	LinearRampToValueAtTime(value, at float64)
}

// Breakpoint is one automation call. Ramp is false for an instantaneous set.
type Breakpoint struct {
	Time  float64
	Value float64
	Ramp  bool
}

// Envelope is an ADSR gain curve placed on an absolute timeline (seconds).
type Envelope struct {
	Start        float64
	AttackEnd    float64
	DecayEnd     float64
	ReleaseStart float64
	End          float64
	Sustain      float64
}

// Schedule lays out an ADSR envelope for a note that starts at start and
// must be silent at start+duration.
//
// Release is placed so it ends exactly at start+duration. Attack and decay
// are never shortened; when the note is shorter than attack+decay+release
// the release start is pinned to the end of decay, so its ramp overlaps the
// decay segment. Negative times are treated as zero.
func Schedule(start, duration, attack, decay, sustain, release float64) Envelope {
	duration = nonNegative(duration)
	attack = nonNegative(attack)
	decay = nonNegative(decay)
	release = nonNegative(release)
	sustain = clamp(sustain, 0, 1)

	e := Envelope{
		Start:     start,
		AttackEnd: start + attack,
		DecayEnd:  start + attack + decay,
		End:       start + duration,
		Sustain:   sustain,
	}
	e.ReleaseStart = math.Max(e.DecayEnd, e.End-release)
	return e
}

// Points returns the automation calls in the order they are issued.
func (e Envelope) Points() []Breakpoint {
	return []Breakpoint{
		{Time: e.Start, Value: 0},
		{Time: e.AttackEnd, Value: 1, Ramp: true},
		{Time: e.DecayEnd, Value: e.Sustain, Ramp: true},
		{Time: e.ReleaseStart, Value: e.Sustain},
		{Time: e.End, Value: 0, Ramp: true},
	}
}

// Apply schedules the envelope on p.
func (e Envelope) Apply(p Automatable) {
	for _, bp := range e.Points() {
		if bp.Ramp {
			p.LinearRampToValueAtTime(bp.Value, bp.Time)
		} else {
			p.SetValueAtTime(bp.Value, bp.Time)
		}
	}
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
