package effects

import "math"

// LowPass is a one-pole low-pass filter. The graph backend runs the mixed
// voices through it to round off the attack transients of hard triggers.
type LowPass struct {
	a      float32
	stateL float32
	stateR float32
}

// NewLowPass creates a low-pass with the given cutoff frequency in Hz.
func NewLowPass(sampleRate int, cutoffHz float64) *LowPass {
	x := math.Exp(-2 * math.Pi * cutoffHz / float64(sampleRate))
	return &LowPass{a: float32(1 - x)}
}

func (f *LowPass) Process(l, r float32) (float32, float32) {
	f.stateL += f.a * (l - f.stateL)
	f.stateR += f.a * (r - f.stateR)
	return f.stateL, f.stateR
}

func (f *LowPass) Reset() {
	f.stateL = 0
	f.stateR = 0
}
