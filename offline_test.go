package smfplay

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
)

func TestRenderScoreProducesAudio(t *testing.T) {
	score := testScore(Note{Pitch: "A4", Start: 0, Duration: 0.5, Velocity: 1})
	samples, err := RenderScore(context.Background(), score, 48000)
	if err != nil {
		t.Fatalf("RenderScore: %v", err)
	}
	wantFrames := int(math.Ceil((0.5 + 0.5) * 48000))
	if len(samples) != wantFrames*2 {
		t.Fatalf("len(samples) = %d, want %d", len(samples), wantFrames*2)
	}
	var peak float32
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 0.01 {
		t.Fatalf("peak = %v, want audible output", peak)
	}
}

func TestRenderScoreCancellation(t *testing.T) {
	score := testScore(Note{Pitch: "C4", Start: 0, Duration: 10, Velocity: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderScore(ctx, score, 48000); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestEncodeWAVFloat32LE(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	out := EncodeWAVFloat32LE(samples, 48000, 2)
	if len(out) != 44+len(samples)*4 {
		t.Fatalf("len = %d, want %d", len(out), 44+len(samples)*4)
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if got := binary.LittleEndian.Uint16(out[20:]); got != 3 {
		t.Fatalf("format tag = %d, want 3 (IEEE float)", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:]); got != 48000 {
		t.Fatalf("sample rate = %d, want 48000", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(out[48:])); got != 0.5 {
		t.Fatalf("sample[1] = %v, want 0.5", got)
	}
}
