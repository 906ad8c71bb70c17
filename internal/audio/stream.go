// Package audio owns the platform output line. Everything above it works in
// float32 stereo frames; this package adapts a frame source to the device.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// FrameSource produces interleaved stereo float32 frames. Process must fill
// the whole slice (silence is all zeros) and must not block.
type FrameSource interface {
	Process(dst []float32)
}

// UnavailableError reports that the platform audio device could not be
// opened. Callers fall back to a silent, degraded mode.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("sound backend unavailable: %s", e.Reason)
}

// streamReader adapts a FrameSource to the byte stream the device consumes.
// The stream never ends; an idle source keeps producing silence so the line
// can be reused for the next trigger without re-opening the device.
type streamReader struct {
	mu     sync.Mutex
	source FrameSource
	buf    []float32
}

func (r *streamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(r.buf[i]))
	}
	return frames * 8, nil
}

// Line is an open output line feeding a FrameSource to the device.
type Line struct {
	player *ebitaudio.Player
}

var (
	contextOnce sync.Once
	context     *ebitaudio.Context
	contextRate int
)

func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		context = ebitaudio.NewContext(sampleRate)
	})
	if contextRate != sampleRate {
		return nil, &UnavailableError{
			Reason: fmt.Sprintf("audio context already open at %d Hz (requested %d Hz)", contextRate, sampleRate),
		}
	}
	return context, nil
}

// Context returns the shared device context at the given rate, opening it on
// first use. Sampler-style callers create their own per-buffer players on it.
func Context(sampleRate int) (*ebitaudio.Context, error) {
	return sharedContext(sampleRate)
}

// OpenLine opens an output line and starts pulling frames from source.
func OpenLine(sampleRate int, source FrameSource) (*Line, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	pl, err := ctx.NewPlayerF32(&streamReader{source: source})
	if err != nil {
		return nil, &UnavailableError{Reason: err.Error()}
	}
	pl.Play()
	return &Line{player: pl}, nil
}

// Close stops the line and releases the device player.
func (l *Line) Close() error {
	l.player.Pause()
	return l.player.Close()
}
