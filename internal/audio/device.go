package audio

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrDeviceUnavailable means the output session could not be created,
	// resumed, or has been closed.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrInvalidState is returned when starting a node twice or stopping a
	// node that never started or has already finished.
	ErrInvalidState = errors.New("invalid node state")
	// ErrNodeReleased is returned when connecting a node that was already
	// disconnected and released.
	ErrNodeReleased   = errors.New("node released")
	ErrBadConnection  = errors.New("invalid node connection")
	ErrInvalidSetting = errors.New("invalid node setting")
)

type Waveform string

const (
	Sine     Waveform = "sine"
	Triangle Waveform = "triangle"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
)

// Waveforms lists the supported generator shapes.
func Waveforms() []Waveform {
	return []Waveform{Sine, Triangle, Square, Sawtooth}
}

// ParseWaveform maps a name to a Waveform. The match is case-insensitive
// and "saw" is accepted for Sawtooth.
func ParseWaveform(name string) (Waveform, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "saw" {
		return Sawtooth, true
	}
	for _, w := range Waveforms() {
		if string(w) == name {
			return w, true
		}
	}
	return "", false
}

type NodeKind int

const (
	KindOscillator NodeKind = iota
	KindLowpass
	KindGain
	KindDestination
)

func (k NodeKind) String() string {
	switch k {
	case KindOscillator:
		return "oscillator"
	case KindLowpass:
		return "lowpass"
	case KindGain:
		return "gain"
	case KindDestination:
		return "destination"
	}
	return "unknown"
}

// Node is an opaque handle to one unit in the device's processing graph.
type Node interface {
	ID() uint64
	Kind() NodeKind
	// Connect routes this node's output into dst.
	Connect(dst Node) error
	// Disconnect removes every connection and releases the node. Releasing
	// an already released node is a no-op.
	Disconnect() error
}

// Stopper is implemented by nodes that can be stopped at an absolute time.
type Stopper interface {
	Stop(at float64) error
}

type Oscillator interface {
	Node
	Stopper
	Start(at float64) error
	Frequency() float64
	Waveform() Waveform
}

type Filter interface {
	Node
	Cutoff() float64
	Q() float64
}

type Gain interface {
	Node
	Gain() *Param
}

// Device is an audio output session. Times are seconds on the device clock.
type Device interface {
	// Resume activates the session. Nothing is heard until it succeeds.
	Resume(ctx context.Context) error
	Suspend() error
	Close() error
	CurrentTime() float64
	NewOscillator(freq float64, shape Waveform) (Oscillator, error)
	NewLowpass(cutoff, q float64) (Filter, error)
	NewGain(level float64) (Gain, error)
	// Destination is the shared sink; it is never released.
	Destination() Node
}
