package midifile

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/chordsynth-go/internal/chord"
	"github.com/cbegin/chordsynth-go/internal/sequencer"
	"github.com/cbegin/chordsynth-go/internal/synth"
	"github.com/cbegin/chordsynth-go/internal/voicing"
)

const (
	TicksPerQuarter = 960
	DefaultBPM      = 120
)

type noteEvent struct {
	tick uint32
	key  uint8
	on   bool
}

// WriteProgression writes the planned chords as a format 1 SMF: a tempo
// track followed by one track holding a note-on/off pair per chord tone.
// Event times are seconds and are converted to ticks at bpm.
func WriteProgression(w io.Writer, events []sequencer.Event, bpm float64, opts synth.Options) error {
	if !(bpm > 0) {
		bpm = DefaultBPM
	}
	ticksPerSecond := bpm / 60 * TicksPerQuarter
	toTicks := func(sec float64) uint32 {
		if sec <= 0 {
			return 0
		}
		return uint32(math.Round(sec * ticksPerSecond))
	}
	velocity := uint8(1 + math.Round(clamp(opts.Volume, 0, 1)*126))

	var notes []noteEvent
	for _, ev := range events {
		parsed := chord.Parse(ev.Symbol)
		freqs, _ := voicing.ForChord(parsed, opts.Voicing, opts.Octave)
		start, end := toTicks(ev.Start), toTicks(ev.End())
		if end <= start {
			continue
		}
		for _, key := range freqs.MIDIKeys() {
			if key < 0 || key > 127 {
				continue
			}
			notes = append(notes,
				noteEvent{tick: start, key: uint8(key), on: true},
				noteEvent{tick: end, key: uint8(key)})
		}
	}
	// Offs sort before ons on the same tick so repeated keys retrigger.
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].tick != notes[j].tick {
			return notes[i].tick < notes[j].tick
		}
		return !notes[i].on && notes[j].on
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaTrackSequenceName("chordsynth"))
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("chords"))
	var last uint32
	for _, n := range notes {
		delta := n.tick - last
		last = n.tick
		if n.on {
			tr.Add(delta, midi.NoteOn(0, n.key, velocity))
		} else {
			tr.Add(delta, midi.NoteOff(0, n.key))
		}
	}
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("add chord track: %w", err)
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
