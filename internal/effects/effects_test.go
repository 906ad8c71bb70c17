package effects

import (
	"math"
	"testing"
)

func TestCompressorReducesLoudSignal(t *testing.T) {
	c := NewCompressor(48000, -20, 4, 1, 50, 0)
	var outL float32
	// Feed a sustained loud signal so the envelope settles.
	for i := 0; i < 48000; i++ {
		outL, _ = c.Process(0.9, 0.9)
	}
	if outL >= 0.9 {
		t.Fatalf("compressed output = %v, want < 0.9", outL)
	}
	if outL <= 0 {
		t.Fatalf("compressed output = %v, want > 0", outL)
	}
}

func TestCompressorPassesQuietSignal(t *testing.T) {
	c := NewCompressor(48000, -20, 4, 1, 50, 0)
	var outL float32
	for i := 0; i < 4800; i++ {
		outL, _ = c.Process(0.01, 0.01)
	}
	if math.Abs(float64(outL)-0.01) > 1e-3 {
		t.Fatalf("quiet output = %v, want ~0.01", outL)
	}
}

func TestLowPassAttenuatesStep(t *testing.T) {
	f := NewLowPass(48000, 2000)
	l, _ := f.Process(1, 1)
	if l >= 1 {
		t.Fatalf("first filtered sample = %v, want < 1", l)
	}
	// The filter converges toward the input over time.
	for i := 0; i < 48000; i++ {
		l, _ = f.Process(1, 1)
	}
	if math.Abs(float64(l)-1) > 1e-2 {
		t.Fatalf("settled output = %v, want ~1", l)
	}
}

func TestChainOrderAndReset(t *testing.T) {
	lp := NewLowPass(48000, 1000)
	ch := NewChain(lp, NewCompressor(48000, -20, 4, 1, 50, 0))
	ch.Process(1, 1)
	ch.Reset()
	if lp.stateL != 0 || lp.stateR != 0 {
		t.Fatalf("low-pass state after reset = %v,%v, want 0,0", lp.stateL, lp.stateR)
	}
}
