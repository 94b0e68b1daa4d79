// Package musgo compiles notation text into note events and renders them to
// MIDI or audio.
package musgo

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/cbegin/musgo/internal/notation"
	"github.com/cbegin/musgo/internal/score"
	"github.com/cbegin/musgo/internal/synth"
)

// Compile parses src with the default notation settings and compiles it.
func Compile(src string) ([]score.NoteEvent, error) {
	return CompileWith(src, notation.DefaultConfig(), score.DefaultConfig())
}

func CompileWith(src string, ncfg notation.Config, scfg score.Config) ([]score.NoteEvent, error) {
	expr, err := notation.NewParser(ncfg).Parse(src)
	if err != nil {
		return nil, err
	}
	return score.NewCompiler(scfg).Compile(expr)
}

// RenderSamples renders events to interleaved stereo until every voice has
// released.
func RenderSamples(events []score.NoteEvent, sampleRate int, params synth.Params) []float32 {
	r := synth.NewRenderer(events, synth.New(sampleRate, params), sampleRate, synth.Options{
		ReleaseTailFrames: sampleRate / 100,
	})
	out := make([]float32, 0, preallocSamples(r.TotalFrames(), sampleRate))
	buf := make([]float32, 1024*2)
	for !r.Finished() {
		r.Process(buf)
		out = append(out, buf...)
	}
	return out
}

// maxPreallocSeconds caps the up-front buffer for RenderSamples; longer
// scores grow it while rendering.
const maxPreallocSeconds = 60

// preallocSamples is the initial stereo sample capacity for totalFrames.
func preallocSamples(totalFrames int64, sampleRate int) int {
	frames := min(totalFrames, int64(sampleRate)*maxPreallocSeconds)
	return int(max(frames, 0)) * 2
}

// RenderSeconds renders exactly seconds of audio, padding with silence.
func RenderSeconds(events []score.NoteEvent, sampleRate int, params synth.Params, seconds float64) []float32 {
	r := synth.NewRenderer(events, synth.New(sampleRate, params), sampleRate, synth.Options{})
	out := make([]float32, int(float64(sampleRate)*seconds)*2)
	r.Process(out)
	return out
}

// WriteWAVFloat32LE writes samples as an IEEE float WAV file.
func WriteWAVFloat32LE(w io.Writer, samples []float32, sampleRate int, channels int) error {
	dataSize := uint32(len(samples) * 4)
	bw := bufio.NewWriter(w)
	header := struct {
		Riff          [4]byte
		ChunkSize     uint32
		Wave          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		Riff:          [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Wave:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		Format:        3, // IEEE float
		Channels:      uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * 4),
		BlockAlign:    uint16(channels * 4),
		BitsPerSample: 32,
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
	if err := binary.Write(bw, binary.LittleEndian, &header); err != nil {
		return err
	}
	var b [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(s))
		if _, err := bw.Write(b[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
