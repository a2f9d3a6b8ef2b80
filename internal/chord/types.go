package chord

import "errors"

// Quality names a chord family by its interval pattern above the root.
type Quality string

const (
	Major           Quality = "major"
	Minor           Quality = "minor"
	Major7          Quality = "major7"
	Minor7          Quality = "minor7"
	Dominant7       Quality = "dominant7"
	Diminished      Quality = "diminished"
	Augmented       Quality = "augmented"
	Sus2            Quality = "sus2"
	Sus4            Quality = "sus4"
	Add9            Quality = "add9"
	Add11           Quality = "add11"
	Major9          Quality = "major9"
	Minor9          Quality = "minor9"
	Dominant9       Quality = "dominant9"
	Diminished7     Quality = "diminished7"
	HalfDiminished7 Quality = "halfDiminished7"
	Major6          Quality = "major6"
	Minor6          Quality = "minor6"
	MinorMajor7     Quality = "minorMajor7"
)

// ReferenceOctave is the octave at which RootFrequency values are tabulated.
const ReferenceOctave = 4

const (
	defaultRoot    = "C"
	defaultQuality = Major
)

var (
	ErrUnknownRoot    = errors.New("unknown root pitch class")
	ErrUnknownQuality = errors.New("unknown chord quality")
)

// Parsed is a decoded chord symbol.
type Parsed struct {
	Root    string
	Quality Quality
}

// Default is the chord substituted for malformed input.
func Default() Parsed {
	return Parsed{Root: defaultRoot, Quality: defaultQuality}
}

// QualityInfo describes one quality for display.
type QualityInfo struct {
	Quality   Quality
	Symbol    string // canonical suffix, e.g. "m7"
	Intervals []int
}

var intervalTable = map[Quality][]int{
	Major:           {0, 4, 7},
	Minor:           {0, 3, 7},
	Major7:          {0, 4, 7, 11},
	Minor7:          {0, 3, 7, 10},
	Dominant7:       {0, 4, 7, 10},
	Diminished:      {0, 3, 6},
	Augmented:       {0, 4, 8},
	Sus2:            {0, 2, 7},
	Sus4:            {0, 5, 7},
	Add9:            {0, 4, 7, 14},
	Add11:           {0, 4, 7, 17},
	Major9:          {0, 4, 7, 11, 14},
	Minor9:          {0, 3, 7, 10, 14},
	Dominant9:       {0, 4, 7, 10, 14},
	Diminished7:     {0, 3, 6, 9},
	HalfDiminished7: {0, 3, 6, 10},
	Major6:          {0, 4, 7, 9},
	Minor6:          {0, 3, 7, 9},
	MinorMajor7:     {0, 3, 7, 11},
}

// qualityOrder fixes enumeration order and the canonical display suffix.
var qualityOrder = []struct {
	q      Quality
	symbol string
}{
	{Major, ""},
	{Minor, "m"},
	{Major7, "maj7"},
	{Minor7, "m7"},
	{Dominant7, "7"},
	{Diminished, "dim"},
	{Augmented, "aug"},
	{Sus2, "sus2"},
	{Sus4, "sus4"},
	{Add9, "add9"},
	{Add11, "add11"},
	{Major9, "maj9"},
	{Minor9, "m9"},
	{Dominant9, "9"},
	{Diminished7, "dim7"},
	{HalfDiminished7, "m7b5"},
	{Major6, "6"},
	{Minor6, "m6"},
	{MinorMajor7, "mMaj7"},
}

// Intervals returns the semitone offsets for q. Unknown qualities get the
// major triad. The returned slice is a copy.
func Intervals(q Quality) []int {
	iv, ok := intervalTable[q]
	if !ok {
		iv = intervalTable[Major]
	}
	out := make([]int, len(iv))
	copy(out, iv)
	return out
}

// Known reports whether q has an interval set.
func Known(q Quality) bool {
	_, ok := intervalTable[q]
	return ok
}

// Qualities enumerates every known quality in display order.
func Qualities() []QualityInfo {
	out := make([]QualityInfo, 0, len(qualityOrder))
	for _, e := range qualityOrder {
		out = append(out, QualityInfo{Quality: e.q, Symbol: e.symbol, Intervals: Intervals(e.q)})
	}
	return out
}

// Symbol renders p back to a chord symbol using the canonical suffix.
func (p Parsed) Symbol() string {
	for _, e := range qualityOrder {
		if e.q == p.Quality {
			return p.Root + e.symbol
		}
	}
	return p.Root
}
