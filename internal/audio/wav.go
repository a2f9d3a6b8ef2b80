package audio

import (
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// bufferSource replays interleaved stereo samples, then reports Finished.
type bufferSource struct {
	samples []float32
	pos     int
}

func (b *bufferSource) Process(dst []float32) {
	n := copy(dst, b.samples[b.pos:])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	b.pos += n
}

func (b *bufferSource) Finished() bool { return b.pos >= len(b.samples) }

// WriteWAVPCM16 encodes interleaved stereo float32 samples as a 16-bit PCM
// WAV file.
func WriteWAVPCM16(w io.WriteSeeker, samples []float32, sampleRate int) error {
	frames := len(samples) / 2
	format := beep.Format{
		SampleRate:  beep.SampleRate(sampleRate),
		NumChannels: 2,
		Precision:   2,
	}
	src := &bufferSource{samples: samples[:frames*2]}
	return wav.Encode(w, beep.Take(frames, NewStreamer(src)), format)
}
