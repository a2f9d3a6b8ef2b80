package audio

import (
	"context"
	"fmt"
	"math"
	"sync"
)

type graphState int

const (
	graphSuspended graphState = iota
	graphRunning
	graphClosed
)

// Graph is a software Device. It renders interleaved stereo float32 frames
// through Process and keeps its clock in rendered frames, so time only
// advances while it is running and being pulled by a sink.
type Graph struct {
	mu         sync.Mutex
	sampleRate float64
	frame      int64
	state      graphState
	nextID     uint64
	allocated  int
	nodes      map[uint64]node
	sources    map[uint64]*oscNode
	dest       *destNode
	ended      []*oscNode
}

func NewGraph(sampleRate int) *Graph {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	g := &Graph{
		sampleRate: float64(sampleRate),
		nodes:      make(map[uint64]node),
		sources:    make(map[uint64]*oscNode),
	}
	g.dest = &destNode{}
	g.dest.init(g, KindDestination, g.dest)
	return g
}

func (g *Graph) SampleRate() int { return int(g.sampleRate) }

func (g *Graph) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == graphClosed {
		return fmt.Errorf("%w: session closed", ErrDeviceUnavailable)
	}
	g.state = graphRunning
	return nil
}

func (g *Graph) Suspend() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == graphClosed {
		return fmt.Errorf("%w: session closed", ErrDeviceUnavailable)
	}
	g.state = graphSuspended
	return nil
}

// Close releases every node. Further node creation fails.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == graphClosed {
		return nil
	}
	for _, n := range g.nodes {
		g.release(n, false)
	}
	g.state = graphClosed
	return nil
}

// Running reports whether the clock is advancing.
func (g *Graph) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == graphRunning
}

// Finished reports whether the session was closed; sinks stop pulling then.
func (g *Graph) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == graphClosed
}

func (g *Graph) CurrentTime() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return float64(g.frame) / g.sampleRate
}

// Live returns the number of nodes not yet released, excluding the destination.
func (g *Graph) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Allocated returns how many nodes were ever created.
func (g *Graph) Allocated() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allocated
}

func (g *Graph) Destination() Node { return g.dest }

func (g *Graph) NewOscillator(freq float64, shape Waveform) (Oscillator, error) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return nil, fmt.Errorf("%w: frequency %v", ErrInvalidSetting, freq)
	}
	if _, ok := ParseWaveform(string(shape)); !ok {
		return nil, fmt.Errorf("%w: waveform %q", ErrInvalidSetting, shape)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == graphClosed {
		return nil, fmt.Errorf("%w: session closed", ErrDeviceUnavailable)
	}
	o := &oscNode{freq: freq, shape: shape}
	g.register(o, KindOscillator)
	g.sources[o.id] = o
	return o, nil
}

func (g *Graph) NewLowpass(cutoff, q float64) (Filter, error) {
	if cutoff <= 0 || math.IsNaN(cutoff) {
		return nil, fmt.Errorf("%w: cutoff %v", ErrInvalidSetting, cutoff)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == graphClosed {
		return nil, fmt.Errorf("%w: session closed", ErrDeviceUnavailable)
	}
	f := newLowpass(g.sampleRate, cutoff, q)
	g.register(f, KindLowpass)
	return f, nil
}

func (g *Graph) NewGain(level float64) (Gain, error) {
	if math.IsNaN(level) {
		return nil, fmt.Errorf("%w: gain %v", ErrInvalidSetting, level)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == graphClosed {
		return nil, fmt.Errorf("%w: session closed", ErrDeviceUnavailable)
	}
	n := &gainNode{}
	n.param = newGraphParam(&g.mu, level)
	g.register(n, KindGain)
	return n, nil
}

// Process renders len(dst)/2 stereo frames. A suspended or closed graph
// writes silence and does not advance its clock.
func (g *Graph) Process(dst []float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	frames := len(dst) / 2
	if g.state != graphRunning {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	for f := 0; f < frames; f++ {
		t := float64(g.frame) / g.sampleRate
		v := float32(clamp(g.pull(g.dest, g.frame, t), -1, 1))
		dst[f*2] = v
		dst[f*2+1] = v
		for _, o := range g.sources {
			if o.finishedAt(t) {
				g.ended = append(g.ended, o)
			}
		}
		if len(g.ended) > 0 {
			for _, o := range g.ended {
				o.ended = true
				g.release(o, true)
			}
			g.ended = g.ended[:0]
		}
		g.frame++
	}
}

func (g *Graph) register(n node, kind NodeKind) {
	n.core().init(g, kind, n)
	g.nodes[n.ID()] = n
	g.allocated++
}

func (g *Graph) pull(n node, frame int64, t float64) float64 {
	b := n.core()
	if b.lastFrame == frame {
		return b.lastOut
	}
	// Mark before computing so a cycle reads the previous output.
	b.lastFrame = frame
	v := n.compute(frame, t)
	b.lastOut = v
	return v
}

func (g *Graph) sumInputs(b *base, frame int64, t float64) float64 {
	var sum float64
	for _, in := range b.inputs {
		sum += g.pull(in, frame, t)
	}
	return sum
}

func (g *Graph) connect(src, dst node) error {
	sb, db := src.core(), dst.core()
	if db.g != g {
		return fmt.Errorf("%w: node belongs to another device", ErrBadConnection)
	}
	if sb.released || db.released {
		return ErrNodeReleased
	}
	if db.kind == KindOscillator {
		return fmt.Errorf("%w: oscillators take no input", ErrBadConnection)
	}
	if sb.kind == KindDestination {
		return fmt.Errorf("%w: destination has no output", ErrBadConnection)
	}
	for _, out := range sb.outputs {
		if out == dst {
			return nil
		}
	}
	sb.outputs = append(sb.outputs, dst)
	db.inputs = append(db.inputs, src)
	return nil
}

// release detaches n from the graph. With cascade set, downstream nodes
// left without any input are released too.
func (g *Graph) release(n node, cascade bool) {
	b := n.core()
	if b.released || b.kind == KindDestination {
		return
	}
	b.released = true
	delete(g.nodes, b.id)
	if o, ok := n.(*oscNode); ok {
		delete(g.sources, o.id)
	}
	for _, in := range b.inputs {
		in.core().outputs = removeNode(in.core().outputs, n)
	}
	b.inputs = nil
	outs := b.outputs
	b.outputs = nil
	for _, out := range outs {
		ob := out.core()
		ob.inputs = removeNode(ob.inputs, n)
		if cascade && len(ob.inputs) == 0 {
			g.release(out, true)
		}
	}
}

func removeNode(list []node, n node) []node {
	for i, v := range list {
		if v == n {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
