package voicing

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/chordsynth-go/internal/chord"
)

// Root is the default voicing: close position, all notes in the base octave.
const Root = "root"

var ErrUnknownVoicing = errors.New("unknown voicing")

// Voicing distributes chord tones across octaves. Offsets are octave shifts
// aligned to interval index; tones past the end of Offsets are not shifted.
// A non-nil Intervals replaces the chord's own interval set.
type Voicing struct {
	Name        string
	Description string
	Offsets     []int
	Intervals   []int
}

// Overrides reports whether v substitutes its own interval stack.
func (v Voicing) Overrides() bool { return v.Intervals != nil }

// FrequencySet holds one frequency per voiced tone, lowest interval first.
type FrequencySet []float64

var table = []Voicing{
	{Name: Root, Description: "Close position with the root in the bass"},
	{Name: "first-inversion", Description: "Root raised an octave, third in the bass", Offsets: []int{1}},
	{Name: "second-inversion", Description: "Root and third raised an octave, fifth in the bass", Offsets: []int{1, 1}},
	{Name: "open", Description: "Third raised an octave for a wider spread", Offsets: []int{0, 1}},
	{Name: "drop2", Description: "Fifth dropped an octave below the root", Offsets: []int{0, 0, -1}},
	{Name: "spread", Description: "Root an octave down, upper extensions an octave up", Offsets: []int{-1, 0, 0, 1, 1}},
	{Name: "quartal", Description: "Stacked perfect fourths above the root", Intervals: []int{0, 5, 10, 15}},
	{Name: "power", Description: "Root, fifth and octave only", Intervals: []int{0, 7, 12}},
}

var byName = func() map[string]Voicing {
	m := make(map[string]Voicing, len(table))
	for _, v := range table {
		m[v.Name] = v
	}
	return m
}()

// All lists every voicing in display order.
func All() []Voicing {
	out := make([]Voicing, len(table))
	copy(out, table)
	return out
}

// Lookup finds a voicing by name.
func Lookup(name string) (Voicing, bool) {
	v, ok := byName[name]
	return v, ok
}

// Frequencies voices the chord (root, q) at the given base octave.
//
// The result is always usable: an unknown root is replaced by C and an
// unknown voicing by Root, and the returned error names the substitution.
// Errors from both substitutions are joined.
func Frequencies(root string, q chord.Quality, voicingName string, octave int) (FrequencySet, error) {
	var errs []error
	rootFreq, ok := chord.RootFrequency(root)
	if !ok {
		rootFreq, _ = chord.RootFrequency(chord.Default().Root)
		errs = append(errs, fmt.Errorf("%w: %q", chord.ErrUnknownRoot, root))
	}
	v, ok := byName[voicingName]
	if !ok {
		v = byName[Root]
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownVoicing, voicingName))
	}
	intervals := v.Intervals
	if !v.Overrides() {
		intervals = chord.Intervals(q)
	}
	out := make(FrequencySet, len(intervals))
	for i, iv := range intervals {
		shift := 0
		if i < len(v.Offsets) {
			shift = v.Offsets[i]
		}
		finalOctave := octave + shift
		out[i] = rootFreq * math.Pow(2, float64(iv)/12) * math.Pow(2, float64(finalOctave-chord.ReferenceOctave))
	}
	return out, errors.Join(errs...)
}

// ForChord is Frequencies for an already parsed chord.
func ForChord(p chord.Parsed, voicingName string, octave int) (FrequencySet, error) {
	return Frequencies(p.Root, p.Quality, voicingName, octave)
}

// MIDIKeys converts frequencies to the nearest MIDI key numbers (A4 = 69).
func (fs FrequencySet) MIDIKeys() []int {
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(math.Round(69 + 12*math.Log2(f/440)))
	}
	return out
}
