package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/chordsynth-go/internal/audio"
	"github.com/cbegin/chordsynth-go/internal/voicing"
)

var ErrInvalidOptions = errors.New("invalid playback options")

// Options controls how one chord is rendered. Times are in seconds.
type Options struct {
	Octave       int            `mapstructure:"octave" yaml:"octave"`
	Waveform     audio.Waveform `mapstructure:"waveform" yaml:"waveform"`
	Volume       float64        `mapstructure:"volume" yaml:"volume"`
	Attack       float64        `mapstructure:"attack" yaml:"attack"`
	Decay        float64        `mapstructure:"decay" yaml:"decay"`
	Sustain      float64        `mapstructure:"sustain" yaml:"sustain"`
	Release      float64        `mapstructure:"release" yaml:"release"`
	Voicing      string         `mapstructure:"voicing" yaml:"voicing"`
	FilterCutoff float64        `mapstructure:"filter_cutoff" yaml:"filter_cutoff"`
	FilterQ      float64        `mapstructure:"filter_q" yaml:"filter_q"`
}

func DefaultOptions() Options {
	return Options{
		Octave:       4,
		Waveform:     audio.Triangle,
		Volume:       0.3,
		Attack:       0.02,
		Decay:        0.1,
		Sustain:      0.7,
		Release:      0.3,
		Voicing:      voicing.Root,
		FilterCutoff: 2000,
		FilterQ:      1,
	}
}

// Validate reports the first out-of-range field. Unknown voicing names are
// not an error; they fall back to root position at build time.
func (o Options) Validate() error {
	if o.Octave < 0 || o.Octave > 8 {
		return fmt.Errorf("%w: octave %d outside 0..8", ErrInvalidOptions, o.Octave)
	}
	if _, ok := audio.ParseWaveform(string(o.Waveform)); !ok {
		return fmt.Errorf("%w: waveform %q", ErrInvalidOptions, o.Waveform)
	}
	if !inRange(o.Volume, 0, 1) {
		return fmt.Errorf("%w: volume %v outside 0..1", ErrInvalidOptions, o.Volume)
	}
	if !inRange(o.Sustain, 0, 1) {
		return fmt.Errorf("%w: sustain %v outside 0..1", ErrInvalidOptions, o.Sustain)
	}
	for name, v := range map[string]float64{"attack": o.Attack, "decay": o.Decay, "release": o.Release} {
		if !inRange(v, 0, math.MaxFloat64) {
			return fmt.Errorf("%w: %s %v must be a non-negative duration", ErrInvalidOptions, name, v)
		}
	}
	if !(o.FilterCutoff > 0) || math.IsInf(o.FilterCutoff, 0) {
		return fmt.Errorf("%w: filter cutoff %v", ErrInvalidOptions, o.FilterCutoff)
	}
	if !(o.FilterQ > 0) || math.IsInf(o.FilterQ, 0) {
		return fmt.Errorf("%w: filter q %v", ErrInvalidOptions, o.FilterQ)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
