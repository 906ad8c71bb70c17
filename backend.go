package smfplay

import (
	"context"

	"github.com/keyfall/smfplay-go/internal/assets"
	"github.com/keyfall/smfplay-go/internal/audio"
	"github.com/keyfall/smfplay-go/internal/sampler"
	"github.com/keyfall/smfplay-go/internal/synth"
)

// SoundBackend is the capability set the engine drives.
//
// Initialize is idempotent and reports load progress 0-100; repeated or
// concurrent calls must not duplicate asset loads. Trigger and StopAll are
// fire-and-forget: they never block and never propagate a failure, because
// a dropped note must not halt playback. A backend whose platform audio is
// unavailable stays usable in a silent, degraded mode.
type SoundBackend interface {
	Initialize(ctx context.Context, progress func(percent int)) error
	Trigger(pitch string, duration, velocity float64)
	StopAll()
	SetMasterVolume(v float64)
	Dispose()
}

// AssetLoadError reports a single pitch sample that failed to load. The
// pitch is skipped and the backend stays usable.
type AssetLoadError = assets.AssetLoadError

// BackendUnavailableError reports that the platform audio API could not be
// reached. Recoverable: backends log it and run in a silent degraded mode,
// keeping the transport and note feed alive.
type BackendUnavailableError = audio.UnavailableError

// BackendOption configures backend construction.
type BackendOption func(*backendConfig)

type backendConfig struct {
	sampleRate int
	samplesDir string
	soundFont  string
	noDevice   bool
}

// WithSampleRate sets the backend sample rate (default 48000).
func WithSampleRate(rate int) BackendOption {
	return func(c *backendConfig) { c.sampleRate = rate }
}

// WithSamplesDir loads per-pitch WAV samples ("C4.wav", "Fs4.wav") from dir
// during Initialize.
func WithSamplesDir(dir string) BackendOption {
	return func(c *backendConfig) { c.samplesDir = dir }
}

// WithSoundFont renders per-pitch samples from the SoundFont at path
// during Initialize.
func WithSoundFont(path string) BackendOption {
	return func(c *backendConfig) { c.soundFont = path }
}

// WithoutDevice keeps the backend off the audio device; rendering is still
// available offline. Used by tests and offline rendering.
func WithoutDevice() BackendOption {
	return func(c *backendConfig) { c.noDevice = true }
}

func resolveBackendConfig(opts []BackendOption) (backendConfig, assets.Source, error) {
	cfg := backendConfig{sampleRate: 48000}
	for _, opt := range opts {
		opt(&cfg)
	}
	var src assets.Source
	switch {
	case cfg.soundFont != "":
		fs, err := assets.NewFontSource(cfg.soundFont)
		if err != nil {
			return cfg, nil, err
		}
		src = fs
	case cfg.samplesDir != "":
		src = assets.DirSource{Dir: cfg.samplesDir}
	}
	return cfg, src, nil
}

// NewGraphBackend builds the graph backend: a persistent mixing chain with
// per-note envelopes, sample playback when a sample is loaded and sine
// synthesis otherwise.
func NewGraphBackend(opts ...BackendOption) (SoundBackend, error) {
	cfg, src, err := resolveBackendConfig(opts)
	if err != nil {
		return nil, err
	}
	sopts := []synth.Option{}
	if src != nil {
		sopts = append(sopts, synth.WithSource(src))
	}
	if cfg.noDevice {
		sopts = append(sopts, synth.WithoutDevice())
	}
	return synth.New(cfg.sampleRate, sopts...), nil
}

// NewSamplerBackend builds the discrete-object backend: one pre-created
// player per pitch, triggered by rewinding and playing. It needs a sample
// source; without one every trigger is a silent no-op.
func NewSamplerBackend(opts ...BackendOption) (SoundBackend, error) {
	cfg, src, err := resolveBackendConfig(opts)
	if err != nil {
		return nil, err
	}
	sopts := []sampler.Option{}
	if src != nil {
		sopts = append(sopts, sampler.WithSource(src))
	}
	return sampler.New(cfg.sampleRate, sopts...), nil
}

// NullBackend is a SoundBackend that produces no sound. It stands in when
// no audio is wanted or available, keeping the transport and note feed
// fully functional.
type NullBackend struct{}

func (NullBackend) Initialize(ctx context.Context, progress func(int)) error {
	if progress != nil {
		progress(100)
	}
	return nil
}

func (NullBackend) Trigger(pitch string, duration, velocity float64) {}
func (NullBackend) StopAll()                                         {}
func (NullBackend) SetMasterVolume(v float64)                        {}
func (NullBackend) Dispose()                                         {}
