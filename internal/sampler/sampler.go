// Package sampler is the discrete-object sound backend: one pre-created
// playable object per pitch (up to 88). Triggering rewinds the object and
// plays it without waiting for completion. Every playback error is
// swallowed and logged; an audio hiccup must never cascade into the
// transport.
package sampler

import (
	"context"
	"sync"

	"github.com/keyfall/smfplay-go/internal/assets"
	"github.com/keyfall/smfplay-go/internal/audio"
	"github.com/keyfall/smfplay-go/internal/debug"
)

// player is the minimal surface of a per-pitch playable object. Satisfied
// by *ebiten audio.Player; tests substitute a fake.
type player interface {
	Rewind() error
	Play()
	Pause()
	SetVolume(v float64)
	Close() error
}

// playerFactory builds a playable object from mono float32 PCM.
type playerFactory func(pcm []float32) (player, error)

type Option func(*Backend)

// WithSource sets the sample source loaded during Initialize.
func WithSource(src assets.Source) Option {
	return func(b *Backend) { b.source = src }
}

func withFactory(f playerFactory) Option {
	return func(b *Backend) { b.factory = f }
}

type Backend struct {
	sampleRate int
	source     assets.Source
	factory    playerFactory

	mu          sync.Mutex
	pool        *assets.Pool
	players     map[string]player
	master      float64
	initialized bool
	initBusy    bool
}

func New(sampleRate int, opts ...Option) *Backend {
	b := &Backend{
		sampleRate: sampleRate,
		pool:       assets.NewPool(sampleRate),
		players:    map[string]player{},
		master:     1,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.factory == nil {
		b.factory = devicePlayerFactory(sampleRate)
	}
	return b
}

// devicePlayerFactory creates real device players on the shared context.
// PCM is converted to the 16-bit stereo layout the device consumes.
func devicePlayerFactory(sampleRate int) playerFactory {
	return func(pcm []float32) (player, error) {
		ctx, err := audio.Context(sampleRate)
		if err != nil {
			return nil, err
		}
		return ctx.NewPlayerFromBytes(monoToStereo16(pcm)), nil
	}
}

func monoToStereo16(pcm []float32) []byte {
	out := make([]byte, len(pcm)*4)
	for i, s := range pcm {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[i*4] = byte(v)
		out[i*4+1] = byte(v >> 8)
		out[i*4+2] = byte(v)
		out[i*4+3] = byte(v >> 8)
	}
	return out
}

// Initialize loads samples and pre-creates one player per loaded pitch.
// Idempotent; a concurrent call while one is in flight is a no-op. Pitches
// whose sample or player cannot be created are skipped silently.
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

	var loadErr error
	if b.source != nil {
		loadErr = b.pool.LoadAll(ctx, b.source, progress)
	} else if progress != nil {
		progress(100)
	}

	names, _ := assets.PianoRange()
	for _, pitch := range names {
		pcm, ok := b.pool.Sample(pitch)
		if !ok {
			continue
		}
		b.mu.Lock()
		_, exists := b.players[pitch]
		b.mu.Unlock()
		if exists {
			continue
		}
		pl, err := b.factory(pcm)
		if err != nil {
			debug.Logf("sampler", "create player %s: %v", pitch, err)
			continue
		}
		pl.SetVolume(b.masterVolume())
		b.mu.Lock()
		b.players[pitch] = pl
		b.mu.Unlock()
	}
	return loadErr
}

// Trigger rewinds the pitch's player to zero and plays. Fire-and-forget;
// a missing player or a rewind error just drops the note.
func (b *Backend) Trigger(pitch string, duration, velocity float64) {
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("sampler", "trigger %s recovered: %v", pitch, r)
		}
	}()
	b.mu.Lock()
	pl, ok := b.players[pitch]
	b.mu.Unlock()
	if !ok {
		return
	}
	if err := pl.Rewind(); err != nil {
		debug.Logf("sampler", "rewind %s: %v", pitch, err)
		return
	}
	pl.Play()
}

// StopAll pauses every player.
func (b *Backend) StopAll() {
	defer func() {
		if r := recover(); r != nil {
			debug.Logf("sampler", "stopAll recovered: %v", r)
		}
	}()
	b.mu.Lock()
	players := make([]player, 0, len(b.players))
	for _, pl := range b.players {
		players = append(players, pl)
	}
	b.mu.Unlock()
	for _, pl := range players {
		pl.Pause()
	}
}

// SetMasterVolume clamps to [0,1] and propagates to every loaded player.
func (b *Backend) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	b.mu.Lock()
	b.master = v
	players := make([]player, 0, len(b.players))
	for _, pl := range b.players {
		players = append(players, pl)
	}
	b.mu.Unlock()
	for _, pl := range players {
		pl.SetVolume(v)
	}
}

func (b *Backend) masterVolume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.master
}

// Dispose closes every player and drops the pool.
func (b *Backend) Dispose() {
	b.mu.Lock()
	players := b.players
	b.players = map[string]player{}
	b.initialized = false
	b.mu.Unlock()
	for pitch, pl := range players {
		if err := pl.Close(); err != nil {
			debug.Logf("sampler", "close %s: %v", pitch, err)
		}
	}
	b.pool.Unload()
}

// PlayerCount reports how many per-pitch players exist.
func (b *Backend) PlayerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.players)
}
