// Package config loads musgo settings from a YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/musgo/internal/notation"
	"github.com/cbegin/musgo/internal/score"
	"github.com/cbegin/musgo/internal/smf"
	"github.com/cbegin/musgo/internal/synth"
)

type NotationConfig struct {
	Octave   int `yaml:"octave"`
	Tempo    int `yaml:"tempo"`
	Duration int `yaml:"duration,omitempty"` // 0 = quarter note at tempo
}

type CompileConfig struct {
	CheckPitchRange  bool `yaml:"check_pitch_range"`
	LegacyZeroRepeat bool `yaml:"legacy_zero_repeat"`
}

type MIDIConfig struct {
	Channel   int    `yaml:"channel"`
	Velocity  int    `yaml:"velocity"`
	TrackName string `yaml:"track_name"`
}

type RenderConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	Voices     int     `yaml:"voices"`
	MasterGain float64 `yaml:"master_gain"`
	Wave       string  `yaml:"wave"`
}

type Config struct {
	Notation NotationConfig `yaml:"notation"`
	Compile  CompileConfig  `yaml:"compile"`
	MIDI     MIDIConfig     `yaml:"midi"`
	Render   RenderConfig   `yaml:"render"`
}

func Default() Config {
	nc := notation.DefaultConfig()
	mo := smf.DefaultOptions()
	sp := synth.DefaultParams()
	return Config{
		Notation: NotationConfig{Octave: nc.DefaultOctave, Tempo: nc.DefaultTempo, Duration: nc.DefaultDuration},
		MIDI:     MIDIConfig{Channel: int(mo.Channel), Velocity: int(mo.Velocity), TrackName: mo.TrackName},
		Render:   RenderConfig{SampleRate: 48000, Voices: sp.Voices, MasterGain: sp.MasterGain, Wave: sp.Wave.String()},
	}
}

// Load reads path over the defaults. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Notation.Octave < 0 || c.Notation.Octave > 9 {
		errs = append(errs, fmt.Errorf("notation.octave %d out of range 0-9", c.Notation.Octave))
	}
	if c.Notation.Tempo <= 0 {
		errs = append(errs, fmt.Errorf("notation.tempo must be positive, got %d", c.Notation.Tempo))
	}
	if c.Notation.Duration < 0 {
		errs = append(errs, fmt.Errorf("notation.duration must not be negative, got %d", c.Notation.Duration))
	}
	if c.MIDI.Channel < 0 || c.MIDI.Channel > 15 {
		errs = append(errs, fmt.Errorf("midi.channel %d out of range 0-15", c.MIDI.Channel))
	}
	if c.MIDI.Velocity < 1 || c.MIDI.Velocity > 127 {
		errs = append(errs, fmt.Errorf("midi.velocity %d out of range 1-127", c.MIDI.Velocity))
	}
	if c.Render.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("render.sample_rate must be positive, got %d", c.Render.SampleRate))
	}
	if c.Render.Voices <= 0 {
		errs = append(errs, fmt.Errorf("render.voices must be positive, got %d", c.Render.Voices))
	}
	if c.Render.MasterGain < 0 {
		errs = append(errs, fmt.Errorf("render.master_gain must not be negative, got %v", c.Render.MasterGain))
	}
	if _, err := synth.ParseWave(c.Render.Wave); err != nil {
		errs = append(errs, fmt.Errorf("render.wave: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) NotationConfig() notation.Config {
	return notation.Config{
		DefaultOctave:   c.Notation.Octave,
		DefaultTempo:    c.Notation.Tempo,
		DefaultDuration: c.Notation.Duration,
	}
}

func (c Config) CompileConfig() score.Config {
	return score.Config{
		CheckPitchRange:  c.Compile.CheckPitchRange,
		LegacyZeroRepeat: c.Compile.LegacyZeroRepeat,
	}
}

func (c Config) MIDIOptions() smf.Options {
	return smf.Options{
		Channel:   uint8(c.MIDI.Channel),
		Velocity:  uint8(c.MIDI.Velocity),
		TrackName: c.MIDI.TrackName,
	}
}

// SynthParams assumes c has been validated.
func (c Config) SynthParams() synth.Params {
	p := synth.DefaultParams()
	p.Voices = c.Render.Voices
	p.MasterGain = c.Render.MasterGain
	p.Wave, _ = synth.ParseWave(c.Render.Wave)
	return p
}
