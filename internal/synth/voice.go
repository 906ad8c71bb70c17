package synth

import "math"

// envelope is a linear ADSR gate. The gate length comes from the note
// duration; after it elapses the envelope enters release on its own.
type envelope struct {
	attackFrames  int
	decayFrames   int
	sustainLevel  float32
	releaseFrames int
	gateFrames    int

	stage int // 0 attack, 1 decay, 2 sustain, 3 release, 4 done
	frame int
	level float32
}

func newEnvelope(sampleRate int, gateSeconds float64) *envelope {
	return &envelope{
		attackFrames:  sampleRate * 5 / 1000,
		decayFrames:   sampleRate * 60 / 1000,
		sustainLevel:  0.7,
		releaseFrames: sampleRate * 80 / 1000,
		gateFrames:    int(gateSeconds * float64(sampleRate)),
	}
}

func (e *envelope) release() {
	if e.stage < 3 {
		e.stage = 3
		e.frame = 0
	}
}

func (e *envelope) next() float32 {
	if e.gateFrames > 0 {
		e.gateFrames--
		if e.gateFrames == 0 {
			e.release()
		}
	}
	switch e.stage {
	case 0:
		if e.attackFrames <= 0 {
			e.level = 1
			e.stage = 1
			e.frame = 0
			break
		}
		e.level = float32(e.frame) / float32(e.attackFrames)
		e.frame++
		if e.frame >= e.attackFrames {
			e.level = 1
			e.stage = 1
			e.frame = 0
		}
	case 1:
		if e.decayFrames <= 0 {
			e.level = e.sustainLevel
			e.stage = 2
			break
		}
		e.level = 1 + (e.sustainLevel-1)*float32(e.frame)/float32(e.decayFrames)
		e.frame++
		if e.frame >= e.decayFrames {
			e.level = e.sustainLevel
			e.stage = 2
		}
	case 2:
		e.level = e.sustainLevel
	case 3:
		if e.releaseFrames <= 0 {
			e.level = 0
			e.stage = 4
			break
		}
		e.level -= e.sustainLevel / float32(e.releaseFrames)
		if e.level <= 0 {
			e.level = 0
			e.stage = 4
		}
	}
	return e.level
}

func (e *envelope) done() bool { return e.stage == 4 }

// voice is one sounding note: either a sample buffer playthrough or a sine
// oscillator, both shaped by the envelope.
type voice struct {
	// sample playback
	data []float32
	pos  int

	// oscillator fallback
	phase    float64
	phaseInc float64

	env *envelope
	vel float32
}

func (v *voice) next() float32 {
	if v.env.done() {
		return 0
	}
	level := v.env.next() * v.vel
	if v.data != nil {
		if v.pos >= len(v.data) {
			v.env.stage = 4
			return 0
		}
		s := v.data[v.pos]
		v.pos++
		return s * level
	}
	s := float32(math.Sin(v.phase)) * 0.3
	v.phase += v.phaseInc
	if v.phase > 2*math.Pi {
		v.phase -= 2 * math.Pi
	}
	return s * level
}

func (v *voice) done() bool {
	if v.data != nil && v.pos >= len(v.data) {
		return true
	}
	return v.env.done()
}
