package chordsynth

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"time"

	intaudio "github.com/cbegin/chordsynth-go/internal/audio"
	intmidi "github.com/cbegin/chordsynth-go/internal/midifile"
	intseq "github.com/cbegin/chordsynth-go/internal/sequencer"
	intsynth "github.com/cbegin/chordsynth-go/internal/synth"
)

// RenderChord renders one chord offline as interleaved stereo float32.
func RenderChord(symbol string, duration time.Duration, opts Options, sampleRate int) ([]float32, error) {
	return RenderProgression([]string{symbol}, Timing{ChordDuration: duration}, opts, sampleRate)
}

// RenderProgression renders symbols back to back offline as interleaved
// stereo float32. The result is exactly as long as the progression.
func RenderProgression(symbols []string, timing Timing, opts Options, sampleRate int) ([]float32, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		sampleRate = intaudio.DefaultSampleRate
	}
	events := intseq.Plan(symbols, timing, 0)
	if len(events) == 0 {
		return nil, nil
	}
	g := intaudio.NewGraph(sampleRate)
	defer g.Close()
	if err := g.Resume(context.Background()); err != nil {
		return nil, err
	}
	builder := intsynth.NewBuilder(nil)
	for _, ev := range events {
		if _, err := builder.Build(g, ev.Symbol, ev.Duration, ev.Start, opts); err != nil {
			return nil, err
		}
	}
	frames := int(math.Ceil(events[len(events)-1].End() * float64(sampleRate)))
	out := make([]float32, frames*2)
	g.Process(out)
	return out, nil
}

// ExportMIDI writes symbols as a standard MIDI file at the given timing.
func ExportMIDI(w io.Writer, symbols []string, timing Timing, opts Options) error {
	bpm := timing.BPM
	if !(bpm > 0) && timing.Seconds() > 0 {
		bpm = 60 / timing.Seconds()
	}
	return intmidi.WriteProgression(w, intseq.Plan(symbols, timing, 0), bpm, opts)
}

// WriteWAVPCM16 writes interleaved stereo samples as 16-bit PCM WAV.
func WriteWAVPCM16(w io.WriteSeeker, samples []float32, sampleRate int) error {
	return intaudio.WriteWAVPCM16(w, samples, sampleRate)
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
