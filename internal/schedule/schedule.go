// Package schedule orders compiled note events into note-on and note-off
// actions by time.
package schedule

import (
	"github.com/tidwall/btree"

	"github.com/cbegin/musgo/internal/score"
)

type ActionKind int

// NoteOff sorts before NoteOn so a voice released at time t is free for a
// note starting at t.
const (
	NoteOff ActionKind = iota
	NoteOn
)

func (k ActionKind) String() string {
	if k == NoteOn {
		return "on"
	}
	return "off"
}

type Action struct {
	Time  int
	Kind  ActionKind
	Pitch int
	// ID is the index of the source event in the compiled slice. The
	// NoteOn and NoteOff of one event share it.
	ID int
}

type Schedule struct {
	actions *btree.BTreeG[Action]
	end     int
}

func lessAction(a, b Action) bool {
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}

// Build schedules every event with a positive duration. Zero-length events
// never sound and are dropped.
func Build(events []score.NoteEvent) *Schedule {
	s := &Schedule{actions: btree.NewBTreeG(lessAction)}
	for i, ev := range events {
		if ev.Dur <= 0 {
			continue
		}
		s.actions.Set(Action{Time: ev.Start, Kind: NoteOn, Pitch: ev.Pitch, ID: i})
		s.actions.Set(Action{Time: ev.Start + ev.Dur, Kind: NoteOff, Pitch: ev.Pitch, ID: i})
		s.end = max(s.end, ev.Start+ev.Dur)
	}
	return s
}

// Len is the number of pending actions.
func (s *Schedule) Len() int { return s.actions.Len() }

// End is the time of the last note-off, or 0 for an empty schedule.
func (s *Schedule) End() int { return s.end }

// Ascend calls fn for each pending action in time order until fn returns
// false. It does not consume actions.
func (s *Schedule) Ascend(fn func(Action) bool) {
	s.actions.Scan(fn)
}

// Next reports the time of the earliest pending action.
func (s *Schedule) Next() (int, bool) {
	a, ok := s.actions.Min()
	return a.Time, ok
}

// PopDue removes every action at or before t, calling fn for each in order,
// and returns how many were removed.
func (s *Schedule) PopDue(t int, fn func(Action)) int {
	n := 0
	for {
		a, ok := s.actions.Min()
		if !ok || a.Time > t {
			return n
		}
		s.actions.PopMin()
		if fn != nil {
			fn(a)
		}
		n++
	}
}

// Clone returns an independent copy so several consumers can drain the same
// schedule.
func (s *Schedule) Clone() *Schedule {
	return &Schedule{actions: s.actions.Copy(), end: s.end}
}
