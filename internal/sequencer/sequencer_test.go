package sequencer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cbegin/chordsynth-go/internal/audio"
	"github.com/cbegin/chordsynth-go/internal/synth"
)

type pendingTimer struct {
	wait time.Duration
	fire chan time.Time
}

// manualTimer hands every requested wait to the test, which fires it.
type manualTimer struct {
	requested chan pendingTimer
}

func newManualTimer() *manualTimer {
	return &manualTimer{requested: make(chan pendingTimer, 16)}
}

func (m *manualTimer) After(d time.Duration) <-chan time.Time {
	p := pendingTimer{wait: d, fire: make(chan time.Time, 1)}
	m.requested <- p
	return p.fire
}

func (m *manualTimer) next(t *testing.T) pendingTimer {
	t.Helper()
	select {
	case p := <-m.requested:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the scheduler to arm a timer")
	}
	return pendingTimer{}
}

type eventLog struct {
	mu     sync.Mutex
	kinds  []EventKind
	chords []int
}

func (l *eventLog) record(kind EventKind, index int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, kind)
	if kind == EventChordStarted {
		l.chords = append(l.chords, index)
	}
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, k := range l.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func newTestScheduler(g *audio.Graph, timer *manualTimer, events *eventLog) *Scheduler {
	opts := Options{After: timer.After}
	if events != nil {
		opts.OnEvent = events.record
	}
	return NewScheduler(g, nil, nil, opts)
}

func waitDone(t *testing.T, p *Playback) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestTimingFromTempo(t *testing.T) {
	tm := Timing{BPM: 120, ChordDuration: time.Second}
	if tm.Duration() != 500*time.Millisecond {
		t.Fatalf("duration = %v, want 500ms", tm.Duration())
	}
	if tm.Seconds() != 0.5 {
		t.Fatalf("seconds = %v, want 0.5", tm.Seconds())
	}
	if (Timing{ChordDuration: time.Second}).Seconds() != 1 {
		t.Fatal("chord duration ignored without tempo")
	}
}

func TestPlanBackToBack(t *testing.T) {
	events := Plan([]string{"C", "Am", "F", "G"}, Timing{BPM: 120}, 2)
	if len(events) != 4 {
		t.Fatalf("events = %d", len(events))
	}
	for i, ev := range events {
		if ev.Index != i || ev.Duration != 0.5 || ev.Start != 2+float64(i)*0.5 {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
	if events[3].End() != 4 {
		t.Fatalf("end = %v, want 4", events[3].End())
	}
	if Plan(nil, Timing{BPM: 120}, 0) != nil {
		t.Fatal("empty progression should plan nothing")
	}
	if Plan([]string{"C"}, Timing{}, 0) != nil {
		t.Fatal("zero duration should plan nothing")
	}
}

func TestPlayStartsFirstChordImmediately(t *testing.T) {
	g := audio.NewGraph(8000)
	timer := newManualTimer()
	p, err := newTestScheduler(g, timer, nil).Play([]string{"C", "Am", "F", "G"}, Timing{BPM: 120}, synth.DefaultOptions(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()

	if p.Index() != 0 || p.State() != StatePlaying {
		t.Fatalf("index=%d state=%s", p.Index(), p.State())
	}
	if p.Live() != 10 {
		t.Fatalf("live = %d, want 10", p.Live())
	}
	if w := timer.next(t).wait; w != 500*time.Millisecond {
		t.Fatalf("first wait = %v, want 500ms", w)
	}
	if p.ID() == "" {
		t.Fatal("missing playback id")
	}
}

func TestStopMidSequence(t *testing.T) {
	g := audio.NewGraph(8000)
	timer := newManualTimer()
	p, err := newTestScheduler(g, timer, nil).Play([]string{"C", "Am", "F", "G"}, Timing{BPM: 120}, synth.DefaultOptions(), false)
	if err != nil {
		t.Fatal(err)
	}
	first := timer.next(t)
	first.fire <- time.Now()
	pending := timer.next(t)
	if p.Index() != 1 {
		t.Fatalf("index = %d, want 1", p.Index())
	}
	if p.Live() != 10 {
		t.Fatalf("live = %d, previous chord not retired", p.Live())
	}

	p.Stop()
	p.Stop()
	waitDone(t, p)
	allocated := g.Allocated()

	pending.fire <- time.Now()
	if _, r, err := p.step(2); err != nil || r.started {
		t.Fatalf("step after stop: started=%v err=%v", r.started, err)
	}
	if g.Allocated() != allocated {
		t.Fatalf("allocated %d -> %d after stop", allocated, g.Allocated())
	}
	if p.State() != StateIdle || p.Index() != -1 || p.Live() != 0 {
		t.Fatalf("state=%s index=%d live=%d", p.State(), p.Index(), p.Live())
	}
}

func TestProgressionEndsIdle(t *testing.T) {
	g := audio.NewGraph(8000)
	timer := newManualTimer()
	events := &eventLog{}
	p, err := newTestScheduler(g, timer, events).Play([]string{"Dm7", "G7"}, Timing{ChordDuration: time.Second}, synth.DefaultOptions(), false)
	if err != nil {
		t.Fatal(err)
	}
	timer.next(t).fire <- time.Now()
	timer.next(t).fire <- time.Now()
	waitDone(t, p)

	if p.State() != StateIdle || p.Index() != -1 || p.Live() != 0 {
		t.Fatalf("state=%s index=%d live=%d", p.State(), p.Index(), p.Live())
	}
	if events.count(EventPlaybackEnded) != 1 {
		t.Fatalf("playback ended events = %d", events.count(EventPlaybackEnded))
	}
	if len(events.chords) != 2 || events.chords[0] != 0 || events.chords[1] != 1 {
		t.Fatalf("chords started = %v", events.chords)
	}
}

func TestLoopWrapsToFirstChord(t *testing.T) {
	g := audio.NewGraph(8000)
	timer := newManualTimer()
	events := &eventLog{}
	p, err := newTestScheduler(g, timer, events).Play([]string{"C", "G"}, Timing{BPM: 240}, synth.DefaultOptions(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	if p.State() != StateLooping {
		t.Fatalf("state = %s", p.State())
	}
	timer.next(t).fire <- time.Now()
	timer.next(t).fire <- time.Now()
	timer.next(t)

	if p.Index() != 0 {
		t.Fatalf("index = %d, want wrap to 0", p.Index())
	}
	if events.count(EventLoopCompleted) != 1 {
		t.Fatalf("loop events = %d", events.count(EventLoopCompleted))
	}
	if p.State() != StateLooping {
		t.Fatalf("state = %s", p.State())
	}
}

func currentWaveforms(p *Playback) []audio.Waveform {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []audio.Waveform
	for _, n := range p.current {
		if o, ok := n.(audio.Oscillator); ok {
			out = append(out, o.Waveform())
		}
	}
	return out
}

func TestUpdatesApplyAtNextBoundary(t *testing.T) {
	g := audio.NewGraph(8000)
	timer := newManualTimer()
	p, err := newTestScheduler(g, timer, nil).Play([]string{"C", "C", "C"}, Timing{BPM: 120}, synth.DefaultOptions(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	first := timer.next(t)

	opts := synth.DefaultOptions()
	opts.Waveform = audio.Square
	opts.Voicing = "power"
	if err := p.Update(opts); err != nil {
		t.Fatal(err)
	}
	p.SetTiming(Timing{BPM: 60})
	for _, w := range currentWaveforms(p) {
		if w != audio.Triangle {
			t.Fatalf("sounding chord changed to %s before the boundary", w)
		}
	}

	first.fire <- time.Now()
	second := timer.next(t)
	if second.wait != time.Second {
		t.Fatalf("wait after tempo change = %v, want 1s", second.wait)
	}
	shapes := currentWaveforms(p)
	if len(shapes) != 3 {
		t.Fatalf("power chord voices = %d, want 3", len(shapes))
	}
	for _, w := range shapes {
		if w != audio.Square {
			t.Fatalf("next chord waveform = %s, want square", w)
		}
	}

	bad := synth.DefaultOptions()
	bad.Sustain = -1
	if err := p.Update(bad); !errors.Is(err, synth.ErrInvalidOptions) {
		t.Fatalf("update with invalid options: %v", err)
	}
}

func TestPlayEmptyOrBroken(t *testing.T) {
	g := audio.NewGraph(8000)
	timer := newManualTimer()
	s := newTestScheduler(g, timer, nil)

	p, err := s.Play(nil, Timing{BPM: 120}, synth.DefaultOptions(), true)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)
	if p.State() != StateIdle || p.Index() != -1 || g.Allocated() != 0 {
		t.Fatalf("empty progression: state=%s index=%d allocated=%d", p.State(), p.Index(), g.Allocated())
	}
	p.Stop()

	_ = g.Close()
	p, err = s.Play([]string{"C"}, Timing{BPM: 120}, synth.DefaultOptions(), false)
	if !errors.Is(err, audio.ErrDeviceUnavailable) || p != nil {
		t.Fatalf("closed device: p=%v err=%v", p, err)
	}
}

func TestSubNanosecondTimingIsRejected(t *testing.T) {
	tooFast := Timing{BPM: 1e12}
	if tooFast.Duration() != 0 {
		t.Fatalf("duration = %v, want truncation to 0", tooFast.Duration())
	}

	g := audio.NewGraph(8000)
	timer := newManualTimer()
	s := newTestScheduler(g, timer, nil)
	p, err := s.Play([]string{"C", "F"}, tooFast, synth.DefaultOptions(), true)
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, p)
	if p.State() != StateIdle || g.Allocated() != 0 {
		t.Fatalf("state=%s allocated=%d", p.State(), g.Allocated())
	}
	select {
	case pt := <-timer.requested:
		t.Fatalf("unexpected timer request for %v", pt.wait)
	default:
	}

	p, err = s.Play([]string{"C", "F", "G"}, Timing{BPM: 120}, synth.DefaultOptions(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Stop()
	first := timer.next(t)
	p.SetTiming(tooFast)
	first.fire <- time.Now()
	if second := timer.next(t); second.wait != 500*time.Millisecond {
		t.Fatalf("wait after rejected timing = %v, want 500ms", second.wait)
	}
}
