package audio

import (
	"fmt"
	"math"
)

type node interface {
	Node
	core() *base
	compute(frame int64, t float64) float64
}

type base struct {
	g        *Graph
	self     node
	id       uint64
	kind     NodeKind
	inputs   []node
	outputs  []node
	released bool

	lastFrame int64
	lastOut   float64
}

func (b *base) init(g *Graph, kind NodeKind, self node) {
	g.nextID++
	b.g = g
	b.self = self
	b.id = g.nextID
	b.kind = kind
	b.lastFrame = -1
}

func (b *base) core() *base    { return b }
func (b *base) ID() uint64     { return b.id }
func (b *base) Kind() NodeKind { return b.kind }

func (b *base) Connect(dst Node) error {
	dn, ok := dst.(node)
	if !ok || dst == nil {
		return fmt.Errorf("%w: foreign node %T", ErrBadConnection, dst)
	}
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.g.connect(b.self, dn)
}

func (b *base) Disconnect() error {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	b.g.release(b.self, false)
	return nil
}

// Released reports whether the node has been detached from its graph.
func (b *base) Released() bool {
	b.g.mu.Lock()
	defer b.g.mu.Unlock()
	return b.released
}

type destNode struct {
	base
}

func (d *destNode) compute(frame int64, t float64) float64 {
	return d.g.sumInputs(&d.base, frame, t)
}

type oscNode struct {
	base
	freq    float64
	shape   Waveform
	phase   float64
	started bool
	ended   bool
	hasStop bool
	startAt float64
	stopAt  float64
}

func (o *oscNode) Frequency() float64 { return o.freq }
func (o *oscNode) Waveform() Waveform { return o.shape }

func (o *oscNode) Start(at float64) error {
	o.g.mu.Lock()
	defer o.g.mu.Unlock()
	if o.started || o.released {
		return fmt.Errorf("%w: oscillator %d already started", ErrInvalidState, o.id)
	}
	o.started = true
	o.startAt = at
	return nil
}

func (o *oscNode) Stop(at float64) error {
	o.g.mu.Lock()
	defer o.g.mu.Unlock()
	if !o.started || o.ended || o.released {
		return fmt.Errorf("%w: oscillator %d is not running", ErrInvalidState, o.id)
	}
	o.hasStop = true
	o.stopAt = at
	return nil
}

func (o *oscNode) finishedAt(t float64) bool {
	return o.started && o.hasStop && t >= o.stopAt
}

func (o *oscNode) compute(_ int64, t float64) float64 {
	if !o.started || t < o.startAt || (o.hasStop && t >= o.stopAt) {
		return 0
	}
	dt := o.freq / o.g.sampleRate
	p := o.phase
	o.phase += dt
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	switch o.shape {
	case Sine:
		return math.Sin(2 * math.Pi * p)
	case Triangle:
		return 2*math.Abs(2*p-1) - 1
	case Square:
		// Difference of two saws half a period apart; the step and its
		// correction both derive from q, so rounding at the edge cancels.
		q := p + 0.5
		if q >= 1 {
			q -= 1
		}
		return 2*(q-p) + polyBLEP(p, dt) - polyBLEP(q, dt)
	case Sawtooth:
		return 2*p - 1 - polyBLEP(p, dt)
	}
	return 0
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

// lowpassNode is a second-order RBJ low-pass biquad.
type lowpassNode struct {
	base
	cutoff, q          float64
	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     float64
}

func newLowpass(sampleRate, cutoff, q float64) *lowpassNode {
	if q <= 0 || math.IsNaN(q) {
		q = 1
	}
	fc := clamp(cutoff, 10, sampleRate*0.49)
	w := 2 * math.Pi * fc / sampleRate
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2 * q)
	a0 := 1 + alpha
	f := &lowpassNode{cutoff: cutoff, q: q}
	f.b0 = (1 - cosw) / 2 / a0
	f.b1 = (1 - cosw) / a0
	f.b2 = f.b0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
	return f
}

func (f *lowpassNode) Cutoff() float64 { return f.cutoff }
func (f *lowpassNode) Q() float64      { return f.q }

func (f *lowpassNode) compute(frame int64, t float64) float64 {
	x := f.g.sumInputs(&f.base, frame, t)
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

type gainNode struct {
	base
	param *Param
}

func (n *gainNode) Gain() *Param { return n.param }

func (n *gainNode) compute(frame int64, t float64) float64 {
	x := n.g.sumInputs(&n.base, frame, t)
	if x == 0 {
		return 0
	}
	return x * n.param.valueAt(t)
}
