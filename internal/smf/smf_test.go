package smf

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	gosmf "gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/musgo/internal/score"
)

type decoded struct {
	tick uint32
	on   bool
	key  uint8
}

func decodeNotes(t *testing.T, data []byte) (*gosmf.SMF, []decoded) {
	t.Helper()
	file, err := gosmf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, file.Tracks, 1)
	var out []decoded
	var abs uint32
	for _, ev := range file.Tracks[0] {
		abs += ev.Delta
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			out = append(out, decoded{tick: abs, on: true, key: key})
		case msg.GetNoteEnd(&ch, &key):
			out = append(out, decoded{tick: abs, on: false, key: key})
		}
	}
	return file, out
}

func TestWriteMillisecondTicks(t *testing.T) {
	events := []score.NoteEvent{
		{Pitch: 67, Start: 125, Dur: 250},
		{Pitch: 60, Start: 0, Dur: 1000},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events, DefaultOptions()))

	file, notes := decodeNotes(t, buf.Bytes())
	assert.Equal(t, gosmf.MetricTicks(TicksPerQuarter), file.TimeFormat)
	assert.Equal(t, []decoded{
		{tick: 0, on: true, key: 60},
		{tick: 125, on: true, key: 67},
		{tick: 375, on: false, key: 67},
		{tick: 1000, on: false, key: 60},
	}, notes)
}

func TestWriteReleasesBeforeRetrigger(t *testing.T) {
	events := []score.NoteEvent{
		{Pitch: 60, Start: 0, Dur: 500},
		{Pitch: 60, Start: 500, Dur: 500},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events, DefaultOptions()))
	_, notes := decodeNotes(t, buf.Bytes())
	assert.Equal(t, []decoded{
		{tick: 0, on: true, key: 60},
		{tick: 500, on: false, key: 60},
		{tick: 500, on: true, key: 60},
		{tick: 1000, on: false, key: 60},
	}, notes)
}

func TestWriteOverlappingSamePitch(t *testing.T) {
	events := []score.NoteEvent{
		{Pitch: 60, Start: 0, Dur: 1000},
		{Pitch: 60, Start: 200, Dur: 200},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, events, DefaultOptions()))
	_, notes := decodeNotes(t, buf.Bytes())
	assert.Equal(t, []decoded{
		{tick: 0, on: true, key: 60},
		{tick: 200, on: false, key: 60},
		{tick: 200, on: true, key: 60},
		{tick: 1000, on: false, key: 60},
	}, notes)
}

func TestEncodeRejectsEventTimes(t *testing.T) {
	cases := []struct {
		name string
		ev   score.NoteEvent
		want error
	}{
		{"negative start", score.NoteEvent{Pitch: 60, Start: -500, Dur: 100}, ErrEventTime},
		{"past last tick", score.NoteEvent{Pitch: 60, Start: MaxTick, Dur: 1}, ErrEventTime},
		{"negative dur", score.NoteEvent{Pitch: 60, Start: 0, Dur: -1}, score.ErrNegativeDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Encode([]score.NoteEvent{tc.ev}, DefaultOptions())
			assert.ErrorIs(t, err, tc.want)
		})
	}
	_, err := Encode([]score.NoteEvent{{Pitch: 60, Start: MaxTick - 1, Dur: 1}}, DefaultOptions())
	assert.NoError(t, err)
}

func TestEncodeRejectsOutOfRangePitch(t *testing.T) {
	_, err := Encode([]score.NoteEvent{{Pitch: 132, Start: 0, Dur: 10}}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, score.ErrPitchOutOfRange))
}

func TestEncodeRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Channel = 16
	_, err := Encode(nil, opts)
	require.Error(t, err)

	opts = DefaultOptions()
	opts.Velocity = 0
	_, err = Encode(nil, opts)
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mid")
	require.NoError(t, WriteFile(path, []score.NoteEvent{{Pitch: 69, Start: 0, Dur: 100}}, DefaultOptions()))
	file, err := gosmf.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, file.Tracks, 1)
}
