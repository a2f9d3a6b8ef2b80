package lifecycle

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cbegin/chordsynth-go/internal/audio"
)

// Clock supplies the device time used for explicit stops.
type Clock interface {
	CurrentTime() float64
}

// Tracker owns live node handles until they are retired.
type Tracker struct {
	mu    sync.Mutex
	clock Clock
	log   *zap.Logger
	live  map[audio.Node]struct{}
}

func NewTracker(clock Clock, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{clock: clock, log: log, live: make(map[audio.Node]struct{})}
}

func (t *Tracker) Track(nodes ...audio.Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range nodes {
		if n != nil {
			t.live[n] = struct{}{}
		}
	}
}

// Retire stops and releases the given nodes. Nodes that are not tracked,
// including ones already retired, are ignored.
func (t *Tracker) Retire(nodes []audio.Node) {
	t.mu.Lock()
	owned := make([]audio.Node, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := t.live[n]; ok {
			delete(t.live, n)
			owned = append(owned, n)
		}
	}
	t.mu.Unlock()
	t.release(owned)
}

func (t *Tracker) RetireAll() {
	t.mu.Lock()
	owned := make([]audio.Node, 0, len(t.live))
	for n := range t.live {
		owned = append(owned, n)
	}
	t.live = make(map[audio.Node]struct{})
	t.mu.Unlock()
	t.release(owned)
}

// Prune forgets nodes the device has already released on its own.
func (t *Tracker) Prune() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for n := range t.live {
		if r, ok := n.(interface{ Released() bool }); ok && r.Released() {
			delete(t.live, n)
		}
	}
}

func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

func (t *Tracker) release(nodes []audio.Node) {
	if len(nodes) == 0 {
		return
	}
	now := 0.0
	if t.clock != nil {
		now = t.clock.CurrentTime()
	}
	for _, n := range nodes {
		if s, ok := n.(audio.Stopper); ok {
			err := s.Stop(now)
			if err == nil {
				continue
			}
			// Finished on its own before we got to it.
			t.log.Debug("stop failed, disconnecting",
				zap.Uint64("node", n.ID()),
				zap.Stringer("kind", n.Kind()),
				zap.Error(err))
		}
		if err := n.Disconnect(); err != nil {
			t.log.Debug("disconnect failed",
				zap.Uint64("node", n.ID()),
				zap.Stringer("kind", n.Kind()),
				zap.Error(err))
		}
	}
}
