package synth

import (
	"context"
	"testing"
)

type flatSource struct{ renders int }

func (s *flatSource) Render(pitch string, midiNote int, sampleRate int) ([]float32, error) {
	s.renders++
	buf := make([]float32, sampleRate/4)
	for i := range buf {
		buf[i] = 0.5
	}
	return buf, nil
}

func render(b *Backend, frames int) []float32 {
	out := make([]float32, frames*2)
	b.Process(out)
	return out
}

func peak(buf []float32) float32 {
	var p float32
	for _, s := range buf {
		if s > p {
			p = s
		}
		if -s > p {
			p = -s
		}
	}
	return p
}

func TestTriggerSineFallbackProducesSound(t *testing.T) {
	b := New(48000, WithoutDevice())
	b.Trigger("A4", 0.5, 1)
	if got := peak(render(b, 4800)); got == 0 {
		t.Fatal("peak = 0, want audible output from sine fallback")
	}
}

func TestTriggerUsesLoadedSample(t *testing.T) {
	src := &flatSource{}
	b := New(48000, WithoutDevice(), WithSource(src))
	if err := b.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if b.LoadedSamples() != 88 {
		t.Fatalf("loaded samples = %d, want 88", b.LoadedSamples())
	}
	b.Trigger("C4", 0.5, 1)
	if got := peak(render(b, 4800)); got == 0 {
		t.Fatal("peak = 0, want audible output from sample voice")
	}
}

func TestTriggerUnknownPitchIsSwallowed(t *testing.T) {
	b := New(48000, WithoutDevice())
	b.Trigger("not-a-pitch", 1, 1) // must not panic
	if b.VoiceCount() != 0 {
		t.Fatalf("voice count = %d, want 0", b.VoiceCount())
	}
}

func TestStopAllSilences(t *testing.T) {
	b := New(48000, WithoutDevice())
	b.Trigger("C4", 10, 1)
	b.Trigger("E4", 10, 1)
	render(b, 1000)
	b.StopAll()
	// Render past the release tail; voices must die and output go silent.
	render(b, 48000/2)
	if b.VoiceCount() != 0 {
		t.Fatalf("voice count = %d after stopAll + tail, want 0", b.VoiceCount())
	}
	if got := peak(render(b, 1000)); got > 1e-4 {
		t.Fatalf("peak after stopAll = %v, want silence", got)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	src := &flatSource{}
	b := New(48000, WithoutDevice(), WithSource(src))
	var last int
	if err := b.Initialize(context.Background(), func(p int) { last = p }); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	before := src.renders
	last = 0
	if err := b.Initialize(context.Background(), func(p int) { last = p }); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if src.renders != before {
		t.Fatalf("renders = %d after second initialize, want %d (no double load)", src.renders, before)
	}
	if last != 100 {
		t.Fatalf("second initialize progress = %d, want 100", last)
	}
}

func TestMasterVolumeClampsAndScales(t *testing.T) {
	b := New(48000, WithoutDevice())
	b.Trigger("A4", 1, 1)
	loud := peak(render(b, 2400))

	b2 := New(48000, WithoutDevice())
	b2.SetMasterVolume(0.1)
	b2.Trigger("A4", 1, 1)
	quiet := peak(render(b2, 2400))

	if quiet >= loud {
		t.Fatalf("quiet peak %v >= loud peak %v", quiet, loud)
	}

	b2.SetMasterVolume(5)
	b2.mu.Lock()
	m := b2.master
	b2.mu.Unlock()
	if m != 1 {
		t.Fatalf("master = %v, want clamp to 1", m)
	}
}

func TestVoicesExpireAfterGate(t *testing.T) {
	b := New(48000, WithoutDevice())
	b.Trigger("C4", 0.1, 1)
	// 0.1s gate + 80ms release, rendered with headroom.
	render(b, 48000/2)
	if b.VoiceCount() != 0 {
		t.Fatalf("voice count = %d, want 0 after gate and release", b.VoiceCount())
	}
}
