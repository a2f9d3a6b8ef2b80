package synth

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/cbegin/chordsynth-go/internal/audio"
	"github.com/cbegin/chordsynth-go/internal/chord"
	"github.com/cbegin/chordsynth-go/internal/envelope"
	"github.com/cbegin/chordsynth-go/internal/voicing"
)

// Builder turns a chord symbol into a scheduled graph on an audio device.
type Builder struct {
	log *zap.Logger
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log}
}

// Build wires one oscillator, low-pass filter and envelope gain per chord
// tone into a master gain scaled by opts.Volume, and schedules every
// oscillator to play from start to start+duration on the device clock.
//
// All created nodes are returned so the caller can stop them early. A
// non-positive duration allocates nothing. Unknown chord or voicing names
// fall back and are logged; only device failures are returned.
func (b *Builder) Build(dev audio.Device, symbol string, duration, start float64, opts Options) ([]audio.Node, error) {
	if !(duration > 0) {
		return nil, nil
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, fmt.Errorf("build %q: no device: %w", symbol, audio.ErrDeviceUnavailable)
	}

	parsed, err := chord.ParseStrict(symbol)
	if err != nil {
		b.log.Warn("chord symbol fallback",
			zap.String("symbol", symbol),
			zap.String("using", parsed.Symbol()),
			zap.Error(err))
	}
	freqs, err := voicing.ForChord(parsed, opts.Voicing, opts.Octave)
	if err != nil {
		b.log.Warn("voicing fallback",
			zap.String("voicing", opts.Voicing),
			zap.Error(err))
	}
	shape, _ := audio.ParseWaveform(string(opts.Waveform))
	env := envelope.Schedule(start, duration, opts.Attack, opts.Decay, opts.Sustain, opts.Release)

	nodes := make([]audio.Node, 0, len(freqs)*3+1)
	fail := func(stage string, err error) ([]audio.Node, error) {
		for _, n := range nodes {
			_ = n.Disconnect()
		}
		return nil, fmt.Errorf("build %q: %s: %w", symbol, stage, wrapDevice(err))
	}

	master, err := dev.NewGain(opts.Volume)
	if err != nil {
		return fail("master gain", err)
	}
	nodes = append(nodes, master)
	if err := master.Connect(dev.Destination()); err != nil {
		return fail("connect master", err)
	}

	for _, freq := range freqs {
		osc, err := dev.NewOscillator(freq, shape)
		if err != nil {
			return fail("oscillator", err)
		}
		nodes = append(nodes, osc)
		lp, err := dev.NewLowpass(opts.FilterCutoff, opts.FilterQ)
		if err != nil {
			return fail("lowpass", err)
		}
		nodes = append(nodes, lp)
		amp, err := dev.NewGain(0)
		if err != nil {
			return fail("envelope gain", err)
		}
		nodes = append(nodes, amp)
		env.Apply(amp.Gain())

		if err := osc.Connect(lp); err != nil {
			return fail("connect oscillator", err)
		}
		if err := lp.Connect(amp); err != nil {
			return fail("connect lowpass", err)
		}
		if err := amp.Connect(master); err != nil {
			return fail("connect envelope", err)
		}
		if err := osc.Start(start); err != nil {
			return fail("start", err)
		}
		if err := osc.Stop(start + duration); err != nil {
			return fail("stop", err)
		}
	}

	b.log.Debug("chord scheduled",
		zap.String("chord", parsed.Symbol()),
		zap.Int("notes", len(freqs)),
		zap.Float64("start", start),
		zap.Float64("duration", duration),
		zap.Float64("peak_hz", peak(freqs)))
	return nodes, nil
}

func wrapDevice(err error) error {
	if errors.Is(err, audio.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
}

func peak(freqs []float64) float64 {
	p := 0.0
	for _, f := range freqs {
		p = math.Max(p, f)
	}
	return p
}
