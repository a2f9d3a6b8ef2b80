package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return 0, io.EOF
	}
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	return frames * 8, nil
}

func (r *StreamReader) Close() error { return nil }

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioContextErr  error
	audioSampleRate  int
)

func sharedAudioContext(sampleRate int) (ctx *ebitaudio.Context, err error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		defer func() {
			// ebiten panics when no output driver can be opened.
			if r := recover(); r != nil {
				audioContextErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, r)
			}
		}()
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioContextErr != nil {
		return nil, audioContextErr
	}
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("%w: audio context already initialized at %d Hz (requested %d Hz)", ErrDeviceUnavailable, audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// Output is a Device heard through the shared ebiten audio context.
type Output struct {
	*Graph
	mu     sync.Mutex
	player *ebitaudio.Player
	reader io.ReadCloser
}

func NewOutput(sampleRate int) *Output {
	return &Output{Graph: NewGraph(sampleRate)}
}

// Resume opens the player on first use and starts it.
func (o *Output) Resume(ctx context.Context) error {
	if err := o.Graph.Resume(ctx); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		actx, err := sharedAudioContext(o.SampleRate())
		if err != nil {
			_ = o.Graph.Suspend()
			return err
		}
		reader := NewStreamReader(o.Graph)
		pl, err := actx.NewPlayerF32(reader)
		if err != nil {
			_ = o.Graph.Suspend()
			return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		o.player, o.reader = pl, reader
	}
	o.player.Play()
	return nil
}

func (o *Output) Suspend() error {
	o.mu.Lock()
	if o.player != nil {
		o.player.Pause()
	}
	o.mu.Unlock()
	return o.Graph.Suspend()
}

func (o *Output) Close() error {
	o.mu.Lock()
	if o.player != nil {
		o.player.Pause()
		_ = o.player.Close()
		_ = o.reader.Close()
		o.player = nil
	}
	o.mu.Unlock()
	return o.Graph.Close()
}
