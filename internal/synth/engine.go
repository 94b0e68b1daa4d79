// Package synth renders compiled scores to stereo float32 samples with a
// small polyphonic pulse/triangle synthesizer.
package synth

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

const twoPi = math.Pi * 2

type Wave int

const (
	WavePulse Wave = iota
	WaveSquare
	WaveTriangle
)

func (w Wave) String() string {
	switch w {
	case WaveSquare:
		return "square"
	case WaveTriangle:
		return "triangle"
	default:
		return "pulse"
	}
}

func ParseWave(name string) (Wave, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pulse":
		return WavePulse, nil
	case "square":
		return WaveSquare, nil
	case "triangle":
		return WaveTriangle, nil
	default:
		return 0, fmt.Errorf("unknown wave %q (expected pulse|square|triangle)", name)
	}
}

type Params struct {
	Voices     int
	MasterGain float64
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
	Wave       Wave
	PulseDuty  float64
	Velocity   float64
	LPFCutoff  float64 // Hz, 0 disables the output lowpass
}

func DefaultParams() Params {
	return Params{
		Voices:     12,
		MasterGain: 0.28,
		AttackSec:  0.005,
		DecaySec:   0.15,
		SustainLvl: 0.65,
		ReleaseSec: 0.20,
		Wave:       WavePulse,
		PulseDuty:  0.25,
		Velocity:   0.8,
		LPFCutoff:  12000,
	}
}

type envState int

const (
	envAttack envState = iota
	envDecay
	envSustain
	envRelease
	envOff
)

type voice struct {
	active   bool
	id       int
	age      int
	freq     float64
	phase    float64
	env      float64
	envState envState
}

// Engine is not safe for concurrent use except for SetMasterGain, which may
// be called while another goroutine renders.
type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	masterGain uint64
	dcPrevInL  float64
	dcPrevOutL float64
	dcPrevInR  float64
	dcPrevOutR float64
	lpfL       float64
	lpfR       float64
	lpfAlpha   float64
}

func New(sampleRate int, params Params) *Engine {
	if params.Voices <= 0 {
		params.Voices = 12
	}
	if params.PulseDuty <= 0 || params.PulseDuty >= 1 {
		params.PulseDuty = 0.25
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
		masterGain: math.Float64bits(params.MasterGain),
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	return e
}

// NoteOn starts a voice for pitch and returns its id for NoteOff.
func (e *Engine) NoteOn(pitch int) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	e.voices[slot] = voice{
		active:   true,
		id:       id,
		freq:     pitchToFreq(pitch),
		envState: envAttack,
	}
	return id
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id && v.envState != envRelease {
			v.envState = envRelease
		}
	}
}

func (e *Engine) RenderFrame() (float32, float32) {
	gain := e.masterGainValue()
	var mono float64
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := e.advanceEnv(v)
		if !v.active {
			continue
		}
		mono += e.renderWave(v) * env * e.params.Velocity
	}
	// centre pan, equal power
	l := e.dcBlockL(mono * math.Sqrt2 / 2 * gain)
	r := e.dcBlockR(mono * math.Sqrt2 / 2 * gain)
	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l, r = e.lpfL, e.lpfR
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

func (e *Engine) dcBlockL(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevInL + r*e.dcPrevOutL
	e.dcPrevInL = x
	e.dcPrevOutL = y
	return y
}

func (e *Engine) dcBlockR(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevInR + r*e.dcPrevOutR
	e.dcPrevInR = x
	e.dcPrevOutR = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) renderWave(v *voice) float64 {
	dt := v.freq / e.sampleRate
	v.phase += dt
	if v.phase >= 1 {
		v.phase -= 1
	}
	switch e.params.Wave {
	case WaveTriangle:
		return 2*math.Abs(2*v.phase-1) - 1
	case WaveSquare:
		return pulse(v.phase, dt, 0.5)
	default:
		return pulse(v.phase, dt, e.params.PulseDuty)
	}
}

func pulse(phase, dt, duty float64) float64 {
	out := -1.0
	if phase < duty {
		out = 1
	}
	out += polyBLEP(phase, dt)
	out -= polyBLEP(math.Mod(phase-duty+1, 1), dt)
	return out
}

func (e *Engine) stealVoice() int {
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Steal the oldest releasing voice, or failing that the oldest voice.
	oldestRelease, oldestReleaseAge := -1, -1
	oldest, oldestAge := 0, -1
	for i := range e.voices {
		v := &e.voices[i]
		if v.envState == envRelease && v.age > oldestReleaseAge {
			oldestRelease, oldestReleaseAge = i, v.age
		}
		if v.age > oldestAge {
			oldest, oldestAge = i, v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldest
}

func (e *Engine) advanceEnv(v *voice) float64 {
	p := e.params
	switch v.envState {
	case envAttack:
		v.env += rate(1, p.AttackSec, e.sampleRate)
		if v.env >= 1 {
			v.env = 1
			v.envState = envDecay
		}
	case envDecay:
		v.env -= rate(1-p.SustainLvl, p.DecaySec, e.sampleRate)
		if v.env <= p.SustainLvl {
			v.env = p.SustainLvl
			v.envState = envSustain
		}
	case envSustain:
	case envRelease:
		v.env -= rate(max(p.SustainLvl, 0.01), p.ReleaseSec, e.sampleRate)
		if v.env <= 0.0001 {
			v.env = 0
			v.envState = envOff
			v.active = false
		}
	case envOff:
		v.active = false
		v.env = 0
	}
	return v.env
}

// rate is the per-sample step covering span over sec seconds; a zero or
// negative time jumps in one sample.
func rate(span, sec, sampleRate float64) float64 {
	if sec <= 0 || span <= 0 {
		return 1
	}
	return span / (sec * sampleRate)
}

func pitchToFreq(pitch int) float64 {
	return 440 * math.Pow(2, float64(pitch-69)/12)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// ActiveVoiceCount returns the number of voices still sounding, including
// release tails.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}
