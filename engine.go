package chordsynth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	intaudio "github.com/cbegin/chordsynth-go/internal/audio"
	intchord "github.com/cbegin/chordsynth-go/internal/chord"
	intlife "github.com/cbegin/chordsynth-go/internal/lifecycle"
	intseq "github.com/cbegin/chordsynth-go/internal/sequencer"
	intsynth "github.com/cbegin/chordsynth-go/internal/synth"
	intvoicing "github.com/cbegin/chordsynth-go/internal/voicing"
)

var (
	ErrDeviceUnavailable = intaudio.ErrDeviceUnavailable
	ErrInvalidOptions    = intsynth.ErrInvalidOptions
)

type (
	Options  = intsynth.Options
	Timing   = intseq.Timing
	Playback = intseq.Playback
	Device   = intaudio.Device
	Node     = intaudio.Node
)

func DefaultOptions() Options { return intsynth.DefaultOptions() }

// PlaybackEvent is delivered on the Watch channel.
type PlaybackEvent struct {
	Kind  intseq.EventKind
	Index int // chord index for EventChordStarted and EventLoopCompleted
}

const (
	EventChordStarted  = intseq.EventChordStarted
	EventLoopCompleted = intseq.EventLoopCompleted
	EventPlaybackEnded = intseq.EventPlaybackEnded
)

type EngineOption func(*engineConfig)

type engineConfig struct {
	log      *zap.Logger
	defaults Options
	loop     bool
	after    func(time.Duration) <-chan time.Time
}

func defaultEngineConfig() engineConfig {
	return engineConfig{log: zap.NewNop(), defaults: intsynth.DefaultOptions()}
}

func WithLogger(log *zap.Logger) EngineOption {
	return func(cfg *engineConfig) {
		if log != nil {
			cfg.log = log
		}
	}
}

// WithDefaults sets the options used by PlayDefault and PlayProgressionDefault.
func WithDefaults(opts Options) EngineOption {
	return func(cfg *engineConfig) {
		cfg.defaults = opts
	}
}

// WithLoop makes progressions wrap to their first chord instead of ending.
func WithLoop(enabled bool) EngineOption {
	return func(cfg *engineConfig) {
		cfg.loop = enabled
	}
}

func withAfter(after func(time.Duration) <-chan time.Time) EngineOption {
	return func(cfg *engineConfig) {
		cfg.after = after
	}
}

// Engine is one audio session. It activates its device before the first
// note and falls back to silent mode when the device cannot be used.
type Engine struct {
	mu        sync.Mutex
	dev       Device
	log       *zap.Logger
	defaults  Options
	loop      bool
	builder   *intsynth.Builder
	tracker   *intlife.Tracker
	sched     *intseq.Scheduler
	active    bool
	silent    bool
	closed    bool
	playbacks map[string]*Playback

	eventCh   chan PlaybackEvent
	eventChMu sync.Mutex
}

func NewEngine(dev Device, opts ...EngineOption) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Engine{
		dev:       dev,
		log:       cfg.log,
		defaults:  cfg.defaults,
		loop:      cfg.loop,
		builder:   intsynth.NewBuilder(cfg.log),
		playbacks: make(map[string]*Playback),
	}
	var clock intlife.Clock
	if dev != nil {
		clock = dev
	}
	e.tracker = intlife.NewTracker(clock, cfg.log)
	e.sched = intseq.NewScheduler(dev, e.builder, cfg.log, intseq.Options{
		After: cfg.after,
		OnEvent: func(kind intseq.EventKind, index int) {
			e.sendEvent(PlaybackEvent{Kind: kind, Index: index})
		},
	})
	return e
}

// Activate resumes the output device. On failure the engine switches to
// silent mode and the error wraps ErrDeviceUnavailable. Calling it again
// retries.
func (e *Engine) Activate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activateLocked(ctx)
}

func (e *Engine) activateLocked(ctx context.Context) error {
	if e.active {
		return nil
	}
	var err error
	switch {
	case e.closed:
		err = fmt.Errorf("engine closed: %w", ErrDeviceUnavailable)
	case e.dev == nil:
		err = fmt.Errorf("no audio device: %w", ErrDeviceUnavailable)
	default:
		if rerr := e.dev.Resume(ctx); rerr != nil {
			err = rerr
			if !errors.Is(err, ErrDeviceUnavailable) {
				err = fmt.Errorf("resume audio device: %w: %v", ErrDeviceUnavailable, rerr)
			}
		}
	}
	if err != nil {
		e.silent = true
		e.log.Warn("audio disabled, continuing silently", zap.Error(err))
		return err
	}
	e.active = true
	e.silent = false
	e.log.Debug("audio device active")
	return nil
}

// readyLocked activates on first use and returns the activation error from
// that attempt. Once silent it reports false with no error and does not retry.
func (e *Engine) readyLocked() (bool, error) {
	if e.active {
		return true, nil
	}
	if e.silent {
		return false, nil
	}
	if err := e.activateLocked(context.Background()); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) deviceFailedLocked(err error) {
	e.active = false
	e.silent = true
	e.log.Warn("audio device failed, continuing silently", zap.Error(err))
}

// Silent reports whether the engine has given up on its device.
func (e *Engine) Silent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.silent
}

// PlayChord sounds one chord now for duration. It returns the scheduled
// nodes, or none when the duration is not positive or the engine is silent.
// The call that triggers a failed implicit activation returns that error.
func (e *Engine) PlayChord(symbol string, duration time.Duration, opts Options) ([]Node, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ok, err := e.readyLocked(); !ok {
		return nil, err
	}
	e.tracker.Prune()
	nodes, err := e.builder.Build(e.dev, symbol, duration.Seconds(), e.dev.CurrentTime(), opts)
	if err != nil {
		e.deviceFailedLocked(err)
		return nil, err
	}
	e.tracker.Track(nodes...)
	return nodes, nil
}

// PlayDefault is PlayChord with the engine's default options.
func (e *Engine) PlayDefault(symbol string, duration time.Duration) ([]Node, error) {
	return e.PlayChord(symbol, duration, e.defaults)
}

// PlayProgression starts symbols at the given timing. In silent mode the
// returned Playback is already idle. A failed implicit activation returns
// its error and no Playback.
func (e *Engine) PlayProgression(symbols []string, timing Timing, opts Options) (*Playback, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ok, err := e.readyLocked(); !ok {
		if err != nil {
			return nil, err
		}
		return e.sched.Play(nil, timing, opts, false)
	}
	p, err := e.sched.Play(symbols, timing, opts, e.loop)
	if err != nil {
		e.deviceFailedLocked(err)
		return nil, err
	}
	e.playbacks[p.ID()] = p
	go func() {
		<-p.Done()
		e.mu.Lock()
		delete(e.playbacks, p.ID())
		e.mu.Unlock()
	}()
	return p, nil
}

func (e *Engine) PlayProgressionDefault(symbols []string, timing Timing) (*Playback, error) {
	return e.PlayProgression(symbols, timing, e.defaults)
}

// StopAll stops every progression and every chord started by PlayChord.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopAllLocked()
}

func (e *Engine) stopAllLocked() {
	for _, p := range e.playbacks {
		p.Stop()
	}
	e.tracker.RetireAll()
}

// Watch returns a channel that receives progression events. The channel is
// buffered (cap 16) and events are dropped when it is full. Only the most
// recent Watch channel receives events.
func (e *Engine) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 16)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}

func (e *Engine) sendEvent(ev PlaybackEvent) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close stops everything and closes the device.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.stopAllLocked()
	e.closed = true
	e.active = false
	if e.dev == nil {
		return nil
	}
	return e.dev.Close()
}

type VoicingInfo struct {
	Name        string
	Description string
}

// Voicings lists the available voicings in display order.
func Voicings() []VoicingInfo {
	all := intvoicing.All()
	out := make([]VoicingInfo, len(all))
	for i, v := range all {
		out[i] = VoicingInfo{Name: v.Name, Description: v.Description}
	}
	return out
}

type QualityInfo struct {
	Quality   string
	Symbol    string
	Intervals []int
}

// Qualities lists the recognized chord qualities in display order.
func Qualities() []QualityInfo {
	all := intchord.Qualities()
	out := make([]QualityInfo, len(all))
	for i, q := range all {
		out[i] = QualityInfo{Quality: string(q.Quality), Symbol: q.Symbol, Intervals: q.Intervals}
	}
	return out
}

func (e *Engine) Voicings() []VoicingInfo   { return Voicings() }
func (e *Engine) Qualities() []QualityInfo { return Qualities() }
