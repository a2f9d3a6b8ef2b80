package audio

import (
	"math"
	"sort"
	"sync"
)

type paramEvent struct {
	time  float64
	value float64
	ramp  bool
}

// Param is an automatable value. Events are kept sorted by time; a ramp
// interpolates linearly from the preceding event to its own time and value.
type Param struct {
	lock   sync.Locker
	def    float64
	events []paramEvent
}

// NewParam returns a standalone parameter with its own lock.
func NewParam(value float64) *Param {
	return &Param{lock: &sync.Mutex{}, def: value}
}

func newGraphParam(lock sync.Locker, value float64) *Param {
	return &Param{lock: lock, def: value}
}

func (p *Param) SetValueAtTime(value, at float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.insert(paramEvent{time: at, value: value})
}

func (p *Param) LinearRampToValueAtTime(value, at float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.insert(paramEvent{time: at, value: value, ramp: true})
}

// CancelScheduledValues drops every event at or after at.
func (p *Param) CancelScheduledValues(at float64) {
	p.lock.Lock()
	defer p.lock.Unlock()
	kept := p.events[:0]
	for _, ev := range p.events {
		if ev.time < at {
			kept = append(kept, ev)
		}
	}
	p.events = kept
}

// ValueAt evaluates the automation curve at time t.
func (p *Param) ValueAt(t float64) float64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.valueAt(t)
}

func (p *Param) insert(ev paramEvent) {
	if math.IsNaN(ev.time) || math.IsNaN(ev.value) {
		return
	}
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > ev.time })
	p.events = append(p.events, paramEvent{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = ev
}

// valueAt requires the lock to be held.
func (p *Param) valueAt(t float64) float64 {
	prevT, prevV := 0.0, p.def
	for _, ev := range p.events {
		if ev.time <= t {
			prevT, prevV = ev.time, ev.value
			continue
		}
		if ev.ramp {
			span := ev.time - prevT
			if span <= 0 {
				return ev.value
			}
			return prevV + (ev.value-prevV)*(t-prevT)/span
		}
		return prevV
	}
	return prevV
}
