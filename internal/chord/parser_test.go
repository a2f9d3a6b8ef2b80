package chord

import (
	"errors"
	"math"
	"testing"
)

func TestParseSymbols(t *testing.T) {
	cases := []struct {
		in      string
		root    string
		quality Quality
	}{
		{"Cm7", "C", Minor7},
		{"F#maj7", "F#", Major7},
		{"Bb", "Bb", Major},
		{"C", "C", Major},
		{"Am", "A", Minor},
		{"GM7", "G", Major7},
		{"D7", "D", Dominant7},
		{"Bdim", "B", Diminished},
		{"B°", "B", Diminished},
		{"Eaug", "E", Augmented},
		{"E+", "E", Augmented},
		{"Dsus2", "D", Sus2},
		{"Asus4", "A", Sus4},
		{"Cadd9", "C", Add9},
		{"Fadd11", "F", Add11},
		{"Ebmaj9", "Eb", Major9},
		{"Bm7b5", "B", HalfDiminished7},
		{"Abdim7", "Ab", Diminished7},
		{"Gmajor7", "G", Major7},
		{"am", "A", Minor},
		{"  C#m  ", "C#", Minor},
		{"C♯m7", "C#", Minor7},
		{"Cxyz", "C", Major},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := Parse(tc.in)
			if got.Root != tc.root || got.Quality != tc.quality {
				t.Fatalf("Parse(%q) = %+v, want {%s %s}", tc.in, got, tc.root, tc.quality)
			}
		})
	}
}

func TestParseMalformedInputFallsBackToCMajor(t *testing.T) {
	for _, in := range []string{"", "   ", "H7", "#", "7", "xyz"} {
		got := Parse(in)
		if got != Default() {
			t.Fatalf("Parse(%q) = %+v, want C major", in, got)
		}
	}
}

func TestParseStrictReportsFallbacks(t *testing.T) {
	if _, err := ParseStrict(""); !errors.Is(err, ErrUnknownRoot) {
		t.Fatalf("empty symbol: err = %v, want ErrUnknownRoot", err)
	}
	if _, err := ParseStrict("Q"); !errors.Is(err, ErrUnknownRoot) {
		t.Fatalf("bad root: err = %v, want ErrUnknownRoot", err)
	}
	p, err := ParseStrict("Cweird")
	if !errors.Is(err, ErrUnknownQuality) {
		t.Fatalf("bad suffix: err = %v, want ErrUnknownQuality", err)
	}
	if p.Root != "C" || p.Quality != Major {
		t.Fatalf("bad suffix fallback = %+v", p)
	}
	if _, err := ParseStrict("Am7"); err != nil {
		t.Fatalf("valid symbol returned error: %v", err)
	}
}

func TestIntervalsStartAtRoot(t *testing.T) {
	for _, info := range Qualities() {
		iv := Intervals(info.Quality)
		if len(iv) == 0 || iv[0] != 0 {
			t.Fatalf("%s intervals %v do not start with 0", info.Quality, iv)
		}
	}
	if got := Intervals("nonsense"); len(got) != 3 || got[1] != 4 || got[2] != 7 {
		t.Fatalf("unknown quality intervals = %v, want major triad", got)
	}
}

func TestIntervalsReturnsCopy(t *testing.T) {
	iv := Intervals(Major)
	iv[0] = 99
	if Intervals(Major)[0] != 0 {
		t.Fatalf("Intervals exposed the static table")
	}
}

func TestRootFrequencyEnharmonics(t *testing.T) {
	pairs := [][2]string{{"C#", "Db"}, {"D#", "Eb"}, {"F#", "Gb"}, {"G#", "Ab"}, {"A#", "Bb"}, {"E", "Fb"}, {"B", "Cb"}}
	for _, p := range pairs {
		a, okA := RootFrequency(p[0])
		b, okB := RootFrequency(p[1])
		if !okA || !okB || a != b {
			t.Fatalf("%s=%v %s=%v, want equal", p[0], a, p[1], b)
		}
	}
	a4, _ := RootFrequency("A")
	if a4 != 440 {
		t.Fatalf("A4 = %v, want 440", a4)
	}
	c4, _ := RootFrequency("C")
	if math.Abs(c4-261.63) > 0.01 {
		t.Fatalf("C4 = %v, want ~261.63", c4)
	}
	cs4, _ := RootFrequency("C#")
	if ratio := cs4 / c4; math.Abs(ratio-math.Pow(2, 1.0/12)) > 1e-12 {
		t.Fatalf("semitone ratio = %v", ratio)
	}
	if _, ok := RootFrequency("H"); ok {
		t.Fatalf("H should be unknown")
	}
}

func TestParsedSymbolRoundTrip(t *testing.T) {
	for _, info := range Qualities() {
		p := Parsed{Root: "Eb", Quality: info.Quality}
		if got := Parse(p.Symbol()); got != p {
			t.Fatalf("Parse(%q) = %+v, want %+v", p.Symbol(), got, p)
		}
	}
}
