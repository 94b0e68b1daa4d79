package musgo

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	intaudio "github.com/cbegin/musgo/internal/audio"
	"github.com/cbegin/musgo/internal/notation"
	"github.com/cbegin/musgo/internal/score"
	"github.com/cbegin/musgo/internal/synth"
)

// PlaybackEvent is delivered on the channel returned by Watch.
type PlaybackEvent struct {
	Kind int // EventLoopCompleted or EventPlaybackEnded
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	params       synth.Params
	notation     notation.Config
	compile      score.Config
	loopPlayback bool
	sampleTap    func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{
		params:   synth.DefaultParams(),
		notation: notation.DefaultConfig(),
		compile:  score.DefaultConfig(),
	}
}

func WithSynthParams(params synth.Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.params = params
	}
}

// WithCompileConfig sets the notation and compiler settings used by
// PlayNotation.
func WithCompileConfig(ncfg notation.Config, scfg score.Config) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.notation = ncfg
		cfg.compile = scfg
	}
}

func WithLoopPlayback(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loopPlayback = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

type Player struct {
	mu         sync.Mutex
	cfg        playerConfig
	sampleRate int
	engine     *synth.Engine
	audio      *intaudio.Player
	volume     float64
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

// tapSource forwards rendered buffers to the sample tap and latches the end
// of playback for the audio stream.
type tapSource struct {
	renderer  *synth.Renderer
	finished  atomic.Bool
	sampleTap func([]float32)
}

func (s *tapSource) Process(dst []float32) {
	s.renderer.Process(dst)
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
}

func (s *tapSource) Finished() bool { return s.finished.Load() }

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Player{
		cfg:        cfg,
		sampleRate: sampleRate,
		engine:     synth.New(sampleRate, cfg.params),
		volume:     1,
	}, nil
}

func (p *Player) PlayNotation(src string) error {
	events, err := CompileWith(src, p.cfg.notation, p.cfg.compile)
	if err != nil {
		return err
	}
	return p.Play(events)
}

// Play starts playing events, replacing any current playback.
func (p *Player) Play(events []score.NoteEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Release any Wait() on the playback being replaced.
	if p.done != nil {
		close(p.done)
	}
	done := make(chan struct{})
	p.done = done

	// Fresh engine per Play so voices from the previous score do not leak.
	p.engine = synth.New(p.sampleRate, p.cfg.params)
	p.engine.SetMasterGain(p.cfg.params.MasterGain * p.volume)

	src := &tapSource{sampleTap: p.cfg.sampleTap}
	src.renderer = synth.NewRenderer(events, p.engine, p.sampleRate, synth.Options{
		Loop: p.cfg.loopPlayback,
		OnEvent: func(kind synth.EventKind) {
			if kind == synth.EventPlaybackEnded {
				src.finished.Store(true)
			}
			p.sendEvent(PlaybackEvent{Kind: int(kind)})
			if kind == synth.EventPlaybackEnded {
				p.signalDone(done)
			}
		},
	})

	backend, err := intaudio.NewPlayer(p.sampleRate, src)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.audio.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// signalDone is called on the audio thread while Play or Stop may hold mu,
// so it must not block on it. done is only closed if it still belongs to the
// current playback.
func (p *Player) signalDone(done chan struct{}) {
	go func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.done == done {
			p.done = nil
			close(done)
		}
	}()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

// IsPlaying reports whether the audio backend is running. It is false when
// idle, paused, or after Stop.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil && p.audio.IsPlaying()
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. With loop playback enabled
// it blocks until Stop; use Watch to count loops.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8) and events are dropped when it is full. Only the most
// recent Watch channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets runtime volume scalar. 1.0 is default.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
	p.engine.SetMasterGain(p.cfg.params.MasterGain * p.volume)
}

func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// PlaybackPosition is what the listener hears now, or 0 when idle.
func (p *Player) PlaybackPosition() time.Duration {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return a.Position()
}
