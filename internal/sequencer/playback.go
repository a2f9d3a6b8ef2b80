package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cbegin/chordsynth-go/internal/audio"
	"github.com/cbegin/chordsynth-go/internal/lifecycle"
	"github.com/cbegin/chordsynth-go/internal/synth"
)

type Options struct {
	// After returns a channel that fires once d has elapsed. Defaults to time.After.
	After   func(d time.Duration) <-chan time.Time
	OnEvent func(kind EventKind, index int)
}

// Scheduler starts progressions on one device.
type Scheduler struct {
	dev     audio.Device
	builder *synth.Builder
	log     *zap.Logger
	after   func(time.Duration) <-chan time.Time
	onEvent func(EventKind, int)
}

func NewScheduler(dev audio.Device, builder *synth.Builder, log *zap.Logger, opts Options) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if builder == nil {
		builder = synth.NewBuilder(log)
	}
	after := opts.After
	if after == nil {
		after = time.After
	}
	return &Scheduler{
		dev:     dev,
		builder: builder,
		log:     log,
		after:   after,
		onEvent: opts.OnEvent,
	}
}

// Playback controls one running progression.
type Playback struct {
	id      string
	s       *Scheduler
	log     *zap.Logger
	tracker *lifecycle.Tracker
	symbols []string
	loop    bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	index   int
	opts    synth.Options
	timing  Timing
	current []audio.Node
}

// Play builds the first chord immediately and advances through the rest on
// a background goroutine. An empty progression or a non-positive chord
// duration returns an idle Playback.
func (s *Scheduler) Play(symbols []string, t Timing, opts synth.Options, loop bool) (*Playback, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Playback{
		id:      uuid.NewString(),
		s:       s,
		tracker: lifecycle.NewTracker(s.dev, s.log),
		symbols: append([]string(nil), symbols...),
		loop:    loop,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		index:   -1,
		opts:    opts,
		timing:  t,
	}
	p.log = s.log.With(zap.String("playback", p.id))

	if len(symbols) == 0 || t.Duration() <= 0 {
		cancel()
		close(p.done)
		return p, nil
	}

	p.state = StatePlaying
	if loop {
		p.state = StateLooping
	}
	wait, r, err := p.step(0)
	if err != nil {
		p.Stop()
		close(p.done)
		return nil, err
	}
	p.log.Info("progression started",
		zap.Int("chords", len(symbols)),
		zap.Bool("loop", loop),
		zap.Duration("chord_duration", wait))
	p.emit(r)
	go p.run(wait)
	return p, nil
}

type stepResult struct {
	index   int
	looped  bool
	started bool
	ended   bool
}

func (p *Playback) run(wait time.Duration) {
	defer close(p.done)
	next := 1
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.s.after(wait):
		}
		d, r, err := p.step(next)
		if err != nil {
			p.log.Error("progression aborted", zap.Int("index", next), zap.Error(err))
			p.Stop()
			p.emit(stepResult{ended: true})
			return
		}
		p.emit(r)
		if !r.started {
			return
		}
		wait = d
		next = r.index + 1
	}
}

// step builds chord i (wrapping when looping), retires the previous chord's
// nodes and returns how long to wait before the next step. It does nothing
// once the playback has been cancelled.
func (p *Playback) step(i int) (time.Duration, stepResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var r stepResult
	if p.ctx.Err() != nil {
		return 0, r, nil
	}
	if i >= len(p.symbols) {
		if !p.loop {
			p.finishLocked()
			r.ended = true
			return 0, r, nil
		}
		i = 0
		r.looped = true
	}

	wait := p.timing.Duration()
	start := p.s.dev.CurrentTime()
	nodes, err := p.s.builder.Build(p.s.dev, p.symbols[i], wait.Seconds(), start, p.opts)
	if err != nil {
		return 0, r, err
	}
	p.tracker.Track(nodes...)
	p.tracker.Retire(p.current)
	p.current = nodes
	p.index = i
	r.index = i
	r.started = true
	p.log.Debug("chord advanced",
		zap.Int("index", i),
		zap.String("symbol", p.symbols[i]),
		zap.Float64("start", start))
	return wait, r, nil
}

func (p *Playback) emit(r stepResult) {
	if p.s.onEvent == nil {
		return
	}
	if r.looped {
		p.s.onEvent(EventLoopCompleted, r.index)
	}
	if r.started {
		p.s.onEvent(EventChordStarted, r.index)
	}
	if r.ended {
		p.s.onEvent(EventPlaybackEnded, -1)
	}
}

func (p *Playback) finishLocked() {
	p.tracker.RetireAll()
	p.current = nil
	p.state = StateIdle
	p.index = -1
}

// Stop cancels any pending advance and retires every live node. It is safe
// to call more than once and from any goroutine.
func (p *Playback) Stop() {
	p.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateIdle && p.current == nil {
		return
	}
	p.finishLocked()
	p.log.Info("progression stopped")
}

func (p *Playback) ID() string { return p.id }

// Done is closed once the playback can no longer advance.
func (p *Playback) Done() <-chan struct{} { return p.done }

func (p *Playback) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Index is the chord currently sounding, or -1 when idle.
func (p *Playback) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Live is the number of node handles the playback still owns.
func (p *Playback) Live() int { return p.tracker.Live() }

// Update replaces the options used from the next chord on.
func (p *Playback) Update(opts synth.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
	return nil
}

// SetTiming changes the chord length from the next chord on. The wait for
// the chord already sounding is not shortened.
func (p *Playback) SetTiming(t Timing) {
	if t.Duration() <= 0 {
		return
	}
	p.mu.Lock()
	p.timing = t
	p.mu.Unlock()
}
