package synth

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cbegin/chordsynth-go/internal/audio"
)

type brokenLowpass struct {
	*audio.Graph
}

func (d brokenLowpass) NewLowpass(cutoff, q float64) (audio.Filter, error) {
	return nil, errors.New("driver gone")
}

func oscillators(nodes []audio.Node) []audio.Oscillator {
	var out []audio.Oscillator
	for _, n := range nodes {
		if o, ok := n.(audio.Oscillator); ok {
			out = append(out, o)
		}
	}
	return out
}

func TestBuildCMajorGraph(t *testing.T) {
	g := audio.NewGraph(8000)
	nodes, err := NewBuilder(nil).Build(g, "C", 1, 0, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 10 {
		t.Fatalf("nodes = %d, want master + 3 x (osc, filter, gain)", len(nodes))
	}
	if g.Live() != 10 {
		t.Fatalf("live = %d, want 10", g.Live())
	}
	want := []float64{261.63, 329.63, 392.00}
	oscs := oscillators(nodes)
	if len(oscs) != len(want) {
		t.Fatalf("oscillators = %d", len(oscs))
	}
	for i, o := range oscs {
		if math.Abs(o.Frequency()-want[i]) > 0.01 {
			t.Fatalf("osc %d = %.2f Hz, want %.2f", i, o.Frequency(), want[i])
		}
		if o.Waveform() != audio.Triangle {
			t.Fatalf("osc %d waveform = %s", i, o.Waveform())
		}
	}
}

func TestBuildZeroDurationAllocatesNothing(t *testing.T) {
	g := audio.NewGraph(8000)
	for _, d := range []float64{0, -1, math.NaN()} {
		nodes, err := NewBuilder(nil).Build(g, "Am7", d, 0, DefaultOptions())
		if err != nil || nodes != nil {
			t.Fatalf("duration %v: nodes=%v err=%v", d, nodes, err)
		}
	}
	if g.Allocated() != 0 {
		t.Fatalf("allocated = %d, want 0", g.Allocated())
	}
}

func TestBuildDeviceFailures(t *testing.T) {
	t.Run("nil device", func(t *testing.T) {
		nodes, err := NewBuilder(nil).Build(nil, "C", 1, 0, DefaultOptions())
		if !errors.Is(err, audio.ErrDeviceUnavailable) || nodes != nil {
			t.Fatalf("nodes=%v err=%v", nodes, err)
		}
	})
	t.Run("closed device", func(t *testing.T) {
		g := audio.NewGraph(8000)
		_ = g.Close()
		nodes, err := NewBuilder(nil).Build(g, "C", 1, 0, DefaultOptions())
		if !errors.Is(err, audio.ErrDeviceUnavailable) || nodes != nil {
			t.Fatalf("nodes=%v err=%v", nodes, err)
		}
	})
	t.Run("partial graph torn down", func(t *testing.T) {
		g := audio.NewGraph(8000)
		nodes, err := NewBuilder(nil).Build(brokenLowpass{g}, "C", 1, 0, DefaultOptions())
		if !errors.Is(err, audio.ErrDeviceUnavailable) || nodes != nil {
			t.Fatalf("nodes=%v err=%v", nodes, err)
		}
		if g.Allocated() == 0 {
			t.Fatal("expected some nodes to be created before the failure")
		}
		if g.Live() != 0 {
			t.Fatalf("live = %d after failed build, want 0", g.Live())
		}
	})
}

func TestBuildRejectsInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Volume = 2
	g := audio.NewGraph(8000)
	if _, err := NewBuilder(nil).Build(g, "C", 1, 0, opts); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
	if g.Allocated() != 0 {
		t.Fatalf("allocated = %d", g.Allocated())
	}
}

func TestBuildFallbacksAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := NewBuilder(zap.New(core))
	opts := DefaultOptions()
	opts.Voicing = "cluster"

	g := audio.NewGraph(8000)
	nodes, err := b.Build(g, "H#maj7", 1, 0, opts)
	if err != nil {
		t.Fatal(err)
	}
	oscs := oscillators(nodes)
	if len(oscs) != 3 {
		t.Fatalf("fallback chord has %d notes, want C major triad", len(oscs))
	}
	if math.Abs(oscs[0].Frequency()-261.63) > 0.01 {
		t.Fatalf("root = %.2f, want C4", oscs[0].Frequency())
	}
	if logs.FilterMessage("chord symbol fallback").Len() != 1 {
		t.Fatalf("missing chord fallback warning: %v", logs.All())
	}
	if logs.FilterMessage("voicing fallback").Len() != 1 {
		t.Fatalf("missing voicing fallback warning: %v", logs.All())
	}
}

func TestBuiltChordPlaysAndReleasesItself(t *testing.T) {
	g := audio.NewGraph(8000)
	if err := g.Resume(context.Background()); err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Waveform = "saw"
	if _, err := NewBuilder(nil).Build(g, "Dm7", 0.2, 0.1, opts); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 2*8000*4/10)
	g.Process(buf)

	frame := func(sec float64) int { return int(sec * 8000) }
	for i := 0; i < frame(0.1); i++ {
		if buf[i*2] != 0 {
			t.Fatalf("sound at frame %d before start", i)
		}
	}
	var loud float64
	for i := frame(0.15); i < frame(0.25); i++ {
		loud = math.Max(loud, math.Abs(float64(buf[i*2])))
	}
	if loud == 0 {
		t.Fatal("chord is silent while sustaining")
	}
	for i := frame(0.3) + 2; i < len(buf)/2; i++ {
		if buf[i*2] != 0 {
			t.Fatalf("sound at frame %d after stop", i)
		}
	}
	if g.Live() != 0 {
		t.Fatalf("live = %d after natural stop, want 0", g.Live())
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		ok     bool
	}{
		{"defaults", func(*Options) {}, true},
		{"zero envelope", func(o *Options) { o.Attack, o.Decay, o.Release, o.Sustain = 0, 0, 0, 0 }, true},
		{"octave high", func(o *Options) { o.Octave = 9 }, false},
		{"bad waveform", func(o *Options) { o.Waveform = "noise" }, false},
		{"negative attack", func(o *Options) { o.Attack = -0.1 }, false},
		{"nan release", func(o *Options) { o.Release = math.NaN() }, false},
		{"sustain over one", func(o *Options) { o.Sustain = 1.5 }, false},
		{"zero cutoff", func(o *Options) { o.FilterCutoff = 0 }, false},
		{"zero q", func(o *Options) { o.FilterQ = 0 }, false},
		{"unknown voicing", func(o *Options) { o.Voicing = "cluster" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			err := o.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("err = %v, want ErrInvalidOptions", err)
			}
		})
	}
}
