// Package assets loads and owns per-pitch sample buffers for the sound
// backends. Loading is batch and chunked: up to 88 pitches, a handful at a
// time, with a debounced 0-100 progress callback so slow sources do not
// spam the UI. Individual pitch failures are logged and skipped; the pool
// stays usable with whatever loaded.
package assets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/keyfall/smfplay-go/internal/debug"
	"github.com/keyfall/smfplay-go/internal/smf"
)

// chunkSize bounds how many pitches load between context checks so a
// cancelled or timed-out load stops promptly.
const chunkSize = 8

// AssetLoadError reports a single pitch that failed to load. Recoverable:
// the pitch is skipped and playback falls back to synthesis or silence.
type AssetLoadError struct {
	Pitch string
	Err   error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("assets: load %s: %v", e.Pitch, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// Source renders or reads the sample for one pitch as mono float32 PCM at
// the requested sample rate.
type Source interface {
	Render(pitch string, midiNote int, sampleRate int) ([]float32, error)
}

// Pool holds loaded per-pitch sample buffers.
type Pool struct {
	sampleRate int

	mu      sync.RWMutex
	buffers map[string][]float32
}

func NewPool(sampleRate int) *Pool {
	return &Pool{
		sampleRate: sampleRate,
		buffers:    map[string][]float32{},
	}
}

// PianoRange returns the 88 piano pitch names, A0 (MIDI 21) through C8
// (MIDI 108), paired with their MIDI note numbers.
func PianoRange() ([]string, []int) {
	names := make([]string, 0, 88)
	keys := make([]int, 0, 88)
	for key := 21; key <= 108; key++ {
		names = append(names, smf.NoteName(key))
		keys = append(keys, key)
	}
	return names, keys
}

// LoadAll fills the pool from src. It is incremental: pitches already
// present are not re-loaded, so a second call is cheap and leaves the
// resource count unchanged. Per-pitch failures are skipped; the returned
// error is non-nil only when the context ends before the batch completes,
// and the pool keeps everything loaded up to that point.
func (p *Pool) LoadAll(ctx context.Context, src Source, progress func(percent int)) error {
	names, keys := PianoRange()

	report := func(int) {}
	if progress != nil {
		deb := debounce.New(50 * time.Millisecond)
		var pmu sync.Mutex
		last := -1
		report = func(percent int) {
			pmu.Lock()
			if percent <= last {
				pmu.Unlock()
				return
			}
			last = percent
			pmu.Unlock()
			if percent >= 100 {
				progress(100)
				return
			}
			deb(func() { progress(percent) })
		}
	}

	for start := 0; start < len(names); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("assets: load interrupted: %w", err)
		}
		end := start + chunkSize
		if end > len(names) {
			end = len(names)
		}
		for i := start; i < end; i++ {
			if p.has(names[i]) {
				continue
			}
			buf, err := src.Render(names[i], keys[i], p.sampleRate)
			if err != nil {
				debug.Logf("assets", "%v", &AssetLoadError{Pitch: names[i], Err: err})
				continue
			}
			p.put(names[i], buf)
		}
		report(end * 100 / len(names))
	}
	report(100)
	return nil
}

func (p *Pool) has(pitch string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.buffers[pitch]
	return ok
}

func (p *Pool) put(pitch string, buf []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers[pitch] = buf
}

// Sample returns the loaded buffer for a pitch, if present. The buffer is
// shared and must be treated as read-only.
func (p *Pool) Sample(pitch string) ([]float32, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	buf, ok := p.buffers[pitch]
	return buf, ok
}

// Len reports how many pitches are loaded.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.buffers)
}

// SampleRate reports the rate all buffers were loaded at.
func (p *Pool) SampleRate() int { return p.sampleRate }

// Unload drops every loaded buffer.
func (p *Pool) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffers = map[string][]float32{}
}
