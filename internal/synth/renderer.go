package synth

import (
	"github.com/cbegin/musgo/internal/schedule"
	"github.com/cbegin/musgo/internal/score"
)

type VoiceEngine interface {
	NoteOn(pitch int) int
	NoteOff(id int)
	RenderFrame() (float32, float32)
	SetMasterGain(gain float64)
	// ActiveVoiceCount is used to detect when release tails have died out.
	ActiveVoiceCount() int
}

// EventKind identifies renderer lifecycle events.
type EventKind int

const (
	EventLoopCompleted EventKind = iota
	EventPlaybackEnded
)

type Options struct {
	Loop              bool
	OnEvent           func(EventKind)
	ReleaseTailFrames int // silent frames after the last voice ends; 0 means half a second
}

// Renderer plays a compiled score through a VoiceEngine, one frame at a
// time. Event times are milliseconds.
type Renderer struct {
	base       *schedule.Schedule
	pending    *schedule.Schedule
	engine     VoiceEngine
	sampleRate int
	frame      int64
	voices     map[int]int
	opts       Options
	tailFrames int
	tail       int
	ended      bool
}

func NewRenderer(events []score.NoteEvent, engine VoiceEngine, sampleRate int, opts Options) *Renderer {
	tail := opts.ReleaseTailFrames
	if tail <= 0 {
		tail = sampleRate / 2
	}
	base := schedule.Build(events)
	return &Renderer{
		base:       base,
		pending:    base.Clone(),
		engine:     engine,
		sampleRate: sampleRate,
		voices:     make(map[int]int),
		opts:       opts,
		tailFrames: tail,
		tail:       tail,
	}
}

// Process fills dst with interleaved stereo frames. Once playback has ended
// it keeps writing whatever the engine produces, which is silence.
func (r *Renderer) Process(dst []float32) {
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		r.dispatch(r.Millis())
		l, rt := r.engine.RenderFrame()
		dst[f*2] = l
		dst[f*2+1] = rt
		r.frame++
		r.checkEnd()
	}
}

// Millis is the score time of the next frame to render.
func (r *Renderer) Millis() int {
	return int(r.frame * 1000 / int64(r.sampleRate))
}

func (r *Renderer) Finished() bool { return r.ended }

func (r *Renderer) dispatch(now int) {
	if t, ok := r.pending.Next(); !ok || t > now {
		return
	}
	r.pending.PopDue(now, func(a schedule.Action) {
		switch a.Kind {
		case schedule.NoteOn:
			r.voices[a.ID] = r.engine.NoteOn(a.Pitch)
		case schedule.NoteOff:
			if id, ok := r.voices[a.ID]; ok {
				r.engine.NoteOff(id)
				delete(r.voices, a.ID)
			}
		}
	})
}

func (r *Renderer) checkEnd() {
	if r.ended || r.pending.Len() > 0 || r.engine.ActiveVoiceCount() > 0 {
		return
	}
	if r.tail > 0 {
		r.tail--
		return
	}
	if r.opts.Loop {
		r.pending = r.base.Clone()
		r.frame = 0
		r.tail = r.tailFrames
		r.emit(EventLoopCompleted)
		return
	}
	r.ended = true
	r.emit(EventPlaybackEnded)
}

func (r *Renderer) emit(kind EventKind) {
	if r.opts.OnEvent != nil {
		r.opts.OnEvent(kind)
	}
}

// TotalFrames is the length of one pass including the release tail, as an
// upper bound for offline rendering.
func (r *Renderer) TotalFrames() int64 {
	releaseSec := 1.0
	if e, ok := r.engine.(*Engine); ok {
		// worst case: released at full level, falling at the sustain rate
		releaseSec = e.params.AttackSec + e.params.ReleaseSec/max(e.params.SustainLvl, 0.01) + 0.05
	}
	endFrames := int64(r.base.End()) * int64(r.sampleRate) / 1000
	return endFrames + int64(releaseSec*float64(r.sampleRate)) + int64(r.tailFrames) + 2
}
