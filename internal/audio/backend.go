package audio

import (
	"fmt"
	"strings"
)

const DefaultSampleRate = 48000

// Backend names accepted by Open.
const (
	BackendAuto    = "auto"
	BackendEbiten  = "ebiten"
	BackendBeep    = "beep"
	BackendOffline = "offline"
)

// Backends lists the selectable output backends.
func Backends() []string {
	return []string{BackendAuto, BackendEbiten, BackendBeep, BackendOffline}
}

// Open returns an unactivated Device for the named backend. The offline
// backend is a bare Graph that is never heard; callers pull it directly.
func Open(backend string, sampleRate int) (Device, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto, BackendEbiten:
		return NewOutput(sampleRate), nil
	case BackendBeep:
		return NewBeepOutput(sampleRate), nil
	case BackendOffline, "none":
		return NewGraph(sampleRate), nil
	}
	return nil, fmt.Errorf("unknown audio backend %q (want one of %s)", backend, strings.Join(Backends(), ", "))
}
