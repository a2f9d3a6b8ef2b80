package chord

import (
	"fmt"
	"math"
	"strings"
)

// semitones above C for every accepted root spelling.
var pitchClasses = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "Db": 1,
	"D":  2,
	"D#": 3, "Eb": 3,
	"E": 4, "Fb": 4,
	"F": 5, "E#": 5,
	"F#": 6, "Gb": 6,
	"G":  7,
	"G#": 8, "Ab": 8,
	"A":  9,
	"A#": 10, "Bb": 10,
	"B": 11, "Cb": 11,
}

var suffixes = map[string]Quality{
	"":      Major,
	"M":     Major,
	"maj":   Major,
	"m":     Minor,
	"min":   Minor,
	"-":     Minor,
	"maj7":  Major7,
	"M7":    Major7,
	"Δ7":    Major7,
	"Δ":     Major7,
	"m7":    Minor7,
	"min7":  Minor7,
	"-7":    Minor7,
	"7":     Dominant7,
	"dim":   Diminished,
	"°":     Diminished,
	"o":     Diminished,
	"aug":   Augmented,
	"+":     Augmented,
	"dim7":  Diminished7,
	"°7":    Diminished7,
	"o7":    Diminished7,
	"m7b5":  HalfDiminished7,
	"ø":     HalfDiminished7,
	"ø7":    HalfDiminished7,
	"maj9":  Major9,
	"M9":    Major9,
	"m9":    Minor9,
	"9":     Dominant9,
	"6":     Major6,
	"m6":    Minor6,
	"mMaj7": MinorMajor7,
	"mM7":   MinorMajor7,
	"sus":   Sus4,
}

// Parse decodes a chord symbol such as "Cm7" or "F#maj9". It never fails:
// unreadable input yields C major and unknown suffixes yield major.
func Parse(symbol string) Parsed {
	p, _ := ParseStrict(symbol)
	return p
}

// ParseStrict returns the same chord as Parse together with an error
// describing which fallback, if any, was applied. The returned chord is
// always playable.
func ParseStrict(symbol string) (Parsed, error) {
	s := strings.TrimSpace(symbol)
	s = strings.NewReplacer("♯", "#", "♭", "b").Replace(s)
	if s == "" {
		return Default(), fmt.Errorf("%w: empty symbol", ErrUnknownRoot)
	}
	letter := s[0]
	if letter >= 'a' && letter <= 'g' {
		letter -= 'a' - 'A'
	}
	if letter < 'A' || letter > 'G' {
		return Default(), fmt.Errorf("%w: %q", ErrUnknownRoot, symbol)
	}
	root := string(letter)
	rest := s[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		root += rest[:1]
		rest = rest[1:]
	}
	q, err := lookupQuality(rest)
	return Parsed{Root: root, Quality: q}, err
}

func lookupQuality(suffix string) (Quality, error) {
	if q, ok := suffixes[suffix]; ok {
		return q, nil
	}
	if q := Quality(suffix); Known(q) {
		return q, nil
	}
	return defaultQuality, fmt.Errorf("%w: %q", ErrUnknownQuality, suffix)
}

// PitchClass returns the semitone offset of root above C.
func PitchClass(root string) (int, bool) {
	pc, ok := pitchClasses[root]
	return pc, ok
}

// RootFrequency returns the equal-tempered frequency of root in the
// reference octave (A4 = 440 Hz).
func RootFrequency(root string) (float64, bool) {
	pc, ok := PitchClass(root)
	if !ok {
		return 0, false
	}
	return referenceFrequencies[pc], true
}

var referenceFrequencies = func() [12]float64 {
	var out [12]float64
	for i := range out {
		out[i] = 440 * math.Pow(2, float64(i-9)/12)
	}
	return out
}()
