package musgo

import (
	"testing"

	"github.com/cbegin/musgo/internal/synth"
)

func TestPlayerMasterVolumeRuntimeAPI(t *testing.T) {
	pl, err := NewPlayer(48000, WithSynthParams(synth.DefaultParams()))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if got := pl.MasterVolume(); got != 1 {
		t.Fatalf("default master volume = %v, want 1", got)
	}
	pl.SetMasterVolume(0.35)
	if got := pl.MasterVolume(); got != 0.35 {
		t.Fatalf("master volume = %v, want 0.35", got)
	}
	pl.SetMasterVolume(-2)
	if got := pl.MasterVolume(); got != 0 {
		t.Fatalf("master volume should clamp to 0, got %v", got)
	}
}

func TestNewPlayerRejectsBadSampleRate(t *testing.T) {
	if _, err := NewPlayer(0); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestPlayerIdle(t *testing.T) {
	pl, err := NewPlayer(48000, WithLoopPlayback(true))
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.Stop(); err != nil {
		t.Fatalf("stop while idle: %v", err)
	}
	pl.Wait()
	if pl.IsPlaying() {
		t.Fatalf("idle player reports playing")
	}
	if pos := pl.PlaybackPosition(); pos != 0 {
		t.Fatalf("idle position = %v", pos)
	}
}

func TestPlayNotationReportsCompileErrors(t *testing.T) {
	pl, err := NewPlayer(48000)
	if err != nil {
		t.Fatalf("new player: %v", err)
	}
	if err := pl.PlayNotation("(c d"); err == nil {
		t.Fatalf("expected parse error before touching the audio device")
	}
}
