package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Streamer adapts a SampleSource to beep's streamer interface.
type Streamer struct {
	source SampleSource
	buf    []float32
}

func NewStreamer(source SampleSource) *Streamer {
	return &Streamer{source: source}
}

func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if fs, fin := s.source.(FinishingSource); fin && fs.Finished() {
		return 0, false
	}
	need := len(samples) * 2
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	s.buf = s.buf[:need]
	s.source.Process(s.buf)
	for i := range samples {
		samples[i][0] = float64(s.buf[i*2])
		samples[i][1] = float64(s.buf[i*2+1])
	}
	return len(samples), true
}

func (s *Streamer) Err() error { return nil }

var (
	speakerOnce sync.Once
	speakerErr  error
	speakerRate beep.SampleRate
)

func initSpeaker(sampleRate int) error {
	sr := beep.SampleRate(sampleRate)
	speakerOnce.Do(func() {
		speakerRate = sr
		if err := speaker.Init(sr, sr.N(100*time.Millisecond)); err != nil {
			speakerErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	})
	if speakerErr != nil {
		return speakerErr
	}
	if speakerRate != sr {
		return fmt.Errorf("%w: speaker already initialized at %d Hz (requested %d Hz)", ErrDeviceUnavailable, speakerRate, sampleRate)
	}
	return nil
}

// BeepOutput is a Device played through the beep speaker.
type BeepOutput struct {
	*Graph
	mu   sync.Mutex
	ctrl *beep.Ctrl
}

func NewBeepOutput(sampleRate int) *BeepOutput {
	return &BeepOutput{Graph: NewGraph(sampleRate)}
}

func (o *BeepOutput) Resume(ctx context.Context) error {
	if err := o.Graph.Resume(ctx); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ctrl == nil {
		if err := initSpeaker(o.SampleRate()); err != nil {
			_ = o.Graph.Suspend()
			return err
		}
		o.ctrl = &beep.Ctrl{Streamer: NewStreamer(o.Graph), Paused: true}
		speaker.Play(o.ctrl)
	}
	speaker.Lock()
	o.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (o *BeepOutput) Suspend() error {
	o.mu.Lock()
	if o.ctrl != nil {
		speaker.Lock()
		o.ctrl.Paused = true
		speaker.Unlock()
	}
	o.mu.Unlock()
	return o.Graph.Suspend()
}

func (o *BeepOutput) Close() error {
	o.mu.Lock()
	if o.ctrl != nil {
		speaker.Clear()
		o.ctrl = nil
	}
	o.mu.Unlock()
	return o.Graph.Close()
}
