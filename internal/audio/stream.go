// Package audio streams rendered frames to the default output device.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Source produces interleaved stereo float32 frames. Finished reports that
// nothing more will be produced; the stream then ends with io.EOF.
type Source interface {
	Process(dst []float32)
	Finished() bool
}

const bytesPerFrame = 8 // two float32 channels

// Stream adapts a Source to the little-endian float32 byte stream ebiten
// expects.
type Stream struct {
	mu     sync.Mutex
	source Source
	buf    []float32
	closed bool
}

func NewStream(source Source) *Stream {
	return &Stream{source: source}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.source.Finished() {
		return 0, io.EOF
	}
	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(s.buf) < need {
		s.buf = make([]float32, need)
	}
	s.buf = s.buf[:need]
	s.source.Process(s.buf)
	for i, v := range s.buf {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	n := frames * bytesPerFrame
	if s.source.Finished() {
		return n, io.EOF
	}
	return n, nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ebiten allows a single audio context per process.
var (
	contextOnce       sync.Once
	context           *ebitaudio.Context
	contextSampleRate int
)

func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextSampleRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz (requested %d Hz)", contextSampleRate, sampleRate)
	}
	return context, nil
}

type Player struct {
	player *ebitaudio.Player
	stream *Stream
}

func NewPlayer(sampleRate int, source Source) (*Player, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	stream := NewStream(source)
	pl, err := ctx.NewPlayerF32(stream)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}
	return &Player{player: pl, stream: stream}, nil
}

func (p *Player) Play()           { p.player.Play() }
func (p *Player) Pause()          { p.player.Pause() }
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

// Position is what the listener hears now, behind what has been rendered.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.stream.Close()
}
