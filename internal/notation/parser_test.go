package notation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/musgo/internal/score"
)

func TestParseNotes(t *testing.T) {
	cases := []struct {
		src  string
		want score.Expr
	}{
		{"a3:125", score.Note{Pitch: "a3", Dur: 125}},
		{"b:250", score.Note{Pitch: "b4", Dur: 250}},
		{"c/16", score.Note{Pitch: "c4", Dur: 125}},
		{"d", score.Note{Pitch: "d4", Dur: 500}},
		{"c#5/8", score.Note{Pitch: "c#5", Dur: 250}},
		{"bb", score.Note{Pitch: "bb4", Dur: 500}},
		{"Eb2:10", score.Note{Pitch: "Eb2", Dur: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := Parse(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRests(t *testing.T) {
	for src, want := range map[string]int{"r:125": 125, "r/2": 1000, "r": 500} {
		got, err := Parse(src)
		require.NoError(t, err, src)
		assert.Equal(t, score.Rest{Dur: want}, got, src)
	}
}

func TestParseGroups(t *testing.T) {
	d1 := score.Note{Pitch: "d1", Dur: 125}
	g2 := score.Note{Pitch: "g2", Dur: 250}
	cases := []struct {
		src  string
		want score.Expr
	}{
		{"(e6:2000)", score.Note{Pitch: "e6", Dur: 2000}},
		{"[e6:2000]", score.Note{Pitch: "e6", Dur: 2000}},
		{"(d1:125 g2:250)", score.Seq{Left: d1, Right: g2}},
		{"[d1:125 g2:250]", score.Par{Left: d1, Right: g2}},
		{"(a1:100 b2:200 c3:400)", score.Seq{
			Left:  score.Note{Pitch: "a1", Dur: 100},
			Right: score.Seq{Left: score.Note{Pitch: "b2", Dur: 200}, Right: score.Note{Pitch: "c3", Dur: 400}},
		}},
		{"[a1:100 b2:200 c3:400]", score.Par{
			Left:  score.Note{Pitch: "a1", Dur: 100},
			Right: score.Par{Left: score.Note{Pitch: "b2", Dur: 200}, Right: score.Note{Pitch: "c3", Dur: 400}},
		}},
		{"11 * a3:125", score.Repeat{Count: 11, Section: score.Note{Pitch: "a3", Dur: 125}}},
		{"22*r:125", score.Repeat{Count: 22, Section: score.Rest{Dur: 125}}},
		{"33 * (d1:125 g2:250)", score.Repeat{Count: 33, Section: score.Seq{Left: d1, Right: g2}}},
		{"44 * [d1:125 g2:250]", score.Repeat{Count: 44, Section: score.Par{Left: d1, Right: g2}}},
		{"2*3*r:1", score.Repeat{Count: 2, Section: score.Repeat{Count: 3, Section: score.Rest{Dur: 1}}}},
		{"[(d1:125)(g2:250)]", score.Par{Left: d1, Right: g2}},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			got, err := Parse(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSettings(t *testing.T) {
	cases := []struct {
		src  string
		want score.Expr
	}{
		{"@octave = 3\n@tempo=60\na/4 b/2", score.Seq{
			Left:  score.Note{Pitch: "a3", Dur: 1000},
			Right: score.Note{Pitch: "b3", Dur: 2000},
		}},
		{"@octave = 7\n@tempo=75\na/4 b/2", score.Seq{
			Left:  score.Note{Pitch: "a7", Dur: 800},
			Right: score.Note{Pitch: "b7", Dur: 1600},
		}},
		{"@duration = 333\na b", score.Seq{
			Left:  score.Note{Pitch: "a4", Dur: 333},
			Right: score.Note{Pitch: "b4", Dur: 333},
		}},
		{"@TEMPO=60 c", score.Note{Pitch: "c4", Dur: 1000}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.src)
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, got, tc.src)
	}
}

func TestParseCustomDefaults(t *testing.T) {
	p := NewParser(Config{DefaultOctave: 2, DefaultTempo: 90, DefaultDuration: 120})
	got, err := p.Parse("c d/4")
	require.NoError(t, err)
	assert.Equal(t, score.Seq{
		Left:  score.Note{Pitch: "c2", Dur: 120},
		Right: score.Note{Pitch: "d2", Dur: 667},
	}, got)
}

func TestParseComments(t *testing.T) {
	got, err := Parse("// intro\nc:1 // first\n// done")
	require.NoError(t, err)
	assert.Equal(t, score.Note{Pitch: "c4", Dur: 1}, got)
}

func TestParseAndCompilePiece(t *testing.T) {
	piece := "@octave = 4\n@tempo = 60\nc4/4 c 2*g 2*a g/2 f/4 f 2*e 2*d c/2 2*(g/4 g 2*f 2*e d/2) c/4 c 2*g 2*a g/2 f/4 f 2*e 2*d c/2"
	expr, err := Parse(piece)
	require.NoError(t, err)
	events, err := score.Compile(expr)
	require.NoError(t, err)
	require.Len(t, events, 42)

	wantPitches := []int{60, 60, 67, 67, 69, 69, 67, 65, 65, 64, 64, 62, 62, 60}
	bridge := []int{67, 67, 65, 65, 64, 64, 62}
	wantPitches = append(wantPitches, bridge...)
	wantPitches = append(wantPitches, bridge...)
	wantPitches = append(wantPitches, wantPitches[:14]...)

	start := 0
	for i, ev := range events {
		dur := 1000
		if i%7 == 6 {
			dur = 2000
		}
		assert.Equal(t, score.NoteEvent{Pitch: wantPitches[i], Start: start, Dur: dur}, ev, "event %d", i)
		start += dur
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	expr, err := Parse("@tempo=90 [c e g] 3*(r/8 d#3:75) [(a b) 2*[c d]]")
	require.NoError(t, err)
	again, err := Parse(score.Format(expr))
	require.NoError(t, err)
	assert.Equal(t, expr, again)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		src       string
		line, col int
	}{
		{"", 1, 1},
		{"   // nothing\n", 2, 1},
		{"c d )", 1, 5},
		{"(c d", 1, 1},
		{"[c ]]", 1, 5},
		{"()", 1, 1},
		{"c\n  h4", 2, 3},
		{"cd", 1, 2},
		{"c/0", 1, 3},
		{"c:", 1, 3},
		{"3 c", 1, 3},
		{"3*", 1, 3},
		{"@octave=10 c", 1, 9},
		{"@tempo=0 c", 1, 8},
		{"@tempo = 4611686018427387904\nc", 1, 10},
		{"@tempo = 9223372036854775807\nc", 1, 10},
		{"c/9223372036854775807", 1, 3},
		{"@tempo=1000000000000 c/100000000", 1, 24},
		{"c:99999999999999999999", 1, 3},
		{"@speed=1 c", 1, 1},
		{"@tempo 60", 1, 8},
		{"c @tempo=60", 1, 3},
		{"// é\nc ü", 2, 3},
		{"c ü c", 1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)
			var se *SyntaxError
			require.True(t, errors.As(err, &se), "want *SyntaxError, got %T", err)
			assert.Equal(t, tc.line, se.Line, "line: %v", err)
			assert.Equal(t, tc.col, se.Col, "col: %v", err)
		})
	}
}

func TestErrorColumnsCountGraphemes(t *testing.T) {
	_, err := Parse("[c e] // naïve café\n(c é)")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, 4, se.Col)

	line, col := position("🎵🎵 x", len("🎵🎵 "))
	assert.Equal(t, 1, line)
	assert.Equal(t, 4, col)
}

func TestParseRejectsBadConfig(t *testing.T) {
	_, err := NewParser(Config{DefaultOctave: 12, DefaultTempo: 120}).Parse("c")
	require.Error(t, err)
	_, err = NewParser(Config{DefaultOctave: 4}).Parse("c")
	require.Error(t, err)
}
