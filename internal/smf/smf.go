// Package smf writes compiled scores as Standard MIDI Files.
package smf

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gitlab.com/gomidi/midi/v2"
	gosmf "gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/musgo/internal/schedule"
	"github.com/cbegin/musgo/internal/score"
)

// TicksPerQuarter at Tempo BPM makes one tick exactly one millisecond, so
// event times are written without rounding.
const (
	TicksPerQuarter = 500
	Tempo           = 120
)

// MaxTick is the largest delta a variable-length quantity can hold. Event
// times are bounded by it so every delta fits.
const MaxTick = 0x0FFFFFFF

type Options struct {
	Channel   uint8
	Velocity  uint8
	TrackName string
}

func DefaultOptions() Options {
	return Options{
		Channel:   0,
		Velocity:  100,
		TrackName: "musgo",
	}
}

func (o Options) validate() error {
	if o.Channel > 15 {
		return fmt.Errorf("midi channel %d out of range 0-15", o.Channel)
	}
	if o.Velocity == 0 || o.Velocity > 127 {
		return fmt.Errorf("midi velocity %d out of range 1-127", o.Velocity)
	}
	return nil
}

// ErrEventTime reports an event that starts before 0 or ends after MaxTick.
var ErrEventTime = errors.New("event time out of range")

// Encode builds the in-memory file. Events need not be sorted.
//
// MIDI has one key per pitch and channel, so overlapping notes of the same
// pitch share it: a later note-on retriggers the key and the key is released
// when the last overlapping note ends.
func Encode(events []score.NoteEvent, opts Options) (*gosmf.SMF, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.Pitch < score.MinPitch || ev.Pitch > score.MaxPitch {
			return nil, &score.Error{Kind: score.ErrPitchOutOfRange, Node: "event", Value: strconv.Itoa(ev.Pitch)}
		}
		if ev.Dur < 0 {
			return nil, &score.Error{Kind: score.ErrNegativeDuration, Node: "event", Value: strconv.Itoa(ev.Dur)}
		}
		if ev.Start < 0 || int64(ev.Start)+int64(ev.Dur) > MaxTick {
			return nil, fmt.Errorf("%w: start %d dur %d", ErrEventTime, ev.Start, ev.Dur)
		}
	}

	var tr gosmf.Track
	if opts.TrackName != "" {
		tr.Add(0, gosmf.MetaTrackSequenceName(opts.TrackName))
	}
	tr.Add(0, gosmf.MetaMeter(4, 4))
	tr.Add(0, gosmf.MetaTempo(Tempo))

	var held [score.MaxPitch + 1]int
	last := 0
	schedule.Build(events).Ascend(func(a schedule.Action) bool {
		delta := uint32(a.Time - last)
		key := uint8(a.Pitch)
		switch a.Kind {
		case schedule.NoteOn:
			if held[key] > 0 {
				tr.Add(delta, midi.NoteOff(opts.Channel, key))
				delta = 0
			}
			held[key]++
			tr.Add(delta, midi.NoteOn(opts.Channel, key, opts.Velocity))
		case schedule.NoteOff:
			held[key]--
			if held[key] > 0 {
				return true
			}
			tr.Add(delta, midi.NoteOff(opts.Channel, key))
		}
		last = a.Time
		return true
	})
	tr.Close(0)

	file := gosmf.New()
	file.TimeFormat = gosmf.MetricTicks(TicksPerQuarter)
	if err := file.Add(tr); err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	return file, nil
}

func Write(w io.Writer, events []score.NoteEvent, opts Options) error {
	file, err := Encode(events, opts)
	if err != nil {
		return err
	}
	_, err = file.WriteTo(w)
	return err
}

func WriteFile(path string, events []score.NoteEvent, opts Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return Write(f, events, opts)
}
