// Package synth is the graph sound backend: a persistent output chain
// (voice mixer -> low-pass -> compressor -> master gain -> device line)
// with per-note envelope voices. Notes with a loaded sample buffer play it;
// notes without one fall back to a synthesized sine so the system degrades
// to "thin sound" rather than silence.
package synth

import (
	"context"
	"math"
	"sync"

	"github.com/keyfall/smfplay-go/internal/assets"
	"github.com/keyfall/smfplay-go/internal/audio"
	"github.com/keyfall/smfplay-go/internal/debug"
	"github.com/keyfall/smfplay-go/internal/effects"
	"github.com/keyfall/smfplay-go/internal/smf"
)

type Option func(*Backend)

// WithSource sets the sample source loaded during Initialize. Without one
// the backend is synthesis-only.
func WithSource(src assets.Source) Option {
	return func(b *Backend) { b.source = src }
}

// WithoutDevice keeps the backend off the audio device. Rendering still
// works through Process; used by offline rendering and tests.
func WithoutDevice() Option {
	return func(b *Backend) { b.noDevice = true }
}

type Backend struct {
	sampleRate int
	source     assets.Source
	noDevice   bool

	mu          sync.Mutex
	pool        *assets.Pool
	voices      []*voice
	chain       *effects.Chain
	master      float64
	line        *audio.Line
	initialized bool
	initBusy    bool
}

func New(sampleRate int, opts ...Option) *Backend {
	b := &Backend{
		sampleRate: sampleRate,
		pool:       assets.NewPool(sampleRate),
		master:     1,
		chain: effects.NewChain(
			effects.NewLowPass(sampleRate, 9000),
			effects.NewCompressor(sampleRate, -18, 4, 5, 120, 3),
		),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Initialize opens the output line and loads the sample pool, reporting
// progress 0-100. Idempotent: once initialized it reports 100 and returns.
// A concurrent call while one is in flight is a no-op rather than a second
// asset load. Failure to open the device is not fatal; the backend stays
// usable in degraded (silent) mode.
func (b *Backend) Initialize(ctx context.Context, progress func(int)) error {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		if progress != nil {
			progress(100)
		}
		return nil
	}
	if b.initBusy {
		b.mu.Unlock()
		return nil
	}
	b.initBusy = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.initBusy = false
		b.initialized = true
		b.mu.Unlock()
	}()

	if !b.noDevice {
		line, err := audio.OpenLine(b.sampleRate, b)
		if err != nil {
			debug.Logf("synth", "audio device unavailable, running silent: %v", err)
		} else {
			b.mu.Lock()
			b.line = line
			b.mu.Unlock()
		}
	}

	if b.source != nil {
		if err := b.pool.LoadAll(ctx, b.source, progress); err != nil {
			debug.Logf("synth", "sample load incomplete (%d pitches): %v", b.pool.Len(), err)
			return err
		}
	} else if progress != nil {
		progress(100)
	}
	return nil
}

// Trigger starts one note. Fire-and-forget: it never blocks and never
// panics out, because a dropped note must not halt the transport.
func (b *Backend) Trigger(pitch string, duration, velocity float64) {
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("synth", "trigger %s recovered: %v", pitch, r)
		}
	}()
	if duration <= 0 {
		duration = 0.05
	}
	if velocity <= 0 {
		velocity = 0.75
	}

	v := &voice{
		env: newEnvelope(b.sampleRate, duration),
		vel: float32(math.Min(velocity, 1)),
	}
	if data, ok := b.pool.Sample(pitch); ok {
		v.data = data
	} else {
		key, ok := smf.MIDINote(pitch)
		if !ok {
			debug.Logf("synth", "trigger: unknown pitch %q", pitch)
			return
		}
		freq := 440 * math.Pow(2, float64(key-69)/12)
		v.phaseInc = 2 * math.Pi * freq / float64(b.sampleRate)
	}

	b.mu.Lock()
	b.voices = append(b.voices, v)
	b.mu.Unlock()
}

// StopAll releases every sounding voice.
func (b *Backend) StopAll() {
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("synth", "stopAll recovered: %v", r)
		}
	}()
	b.mu.Lock()
	for _, v := range b.voices {
		v.env.release()
	}
	b.mu.Unlock()
}

// SetMasterVolume sets the process-wide gain scalar, clamped to [0,1].
func (b *Backend) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	b.mu.Lock()
	b.master = v
	b.mu.Unlock()
}

// Dispose closes the output line and drops all resources.
func (b *Backend) Dispose() {
	b.mu.Lock()
	line := b.line
	b.line = nil
	b.voices = nil
	b.initialized = false
	b.mu.Unlock()
	b.pool.Unload()
	if line != nil {
		if err := line.Close(); err != nil {
			debug.Logf("synth", "close line: %v", err)
		}
	}
}

// Process renders interleaved stereo frames. Called from the device stream
// (or directly when rendering offline).
func (b *Backend) Process(dst []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		var mix float32
		for _, v := range b.voices {
			mix += v.next()
		}
		l, r := b.chain.Process(mix, mix)
		gain := float32(b.master)
		dst[f*2] = l * gain
		dst[f*2+1] = r * gain
	}

	alive := b.voices[:0]
	for _, v := range b.voices {
		if !v.done() {
			alive = append(alive, v)
		}
	}
	b.voices = alive
}

// VoiceCount reports how many voices are currently sounding.
func (b *Backend) VoiceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

// LoadedSamples reports how many pitches have a sample buffer.
func (b *Backend) LoadedSamples() int { return b.pool.Len() }
