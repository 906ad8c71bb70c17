package assets

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// FontSource renders per-pitch samples from a SoundFont (.sf2) file. Each
// pitch is rendered once at load time: note-on, a sustained body, note-off
// and a short release tail, mixed down to mono.
type FontSource struct {
	font *meltysynth.SoundFont

	mu    sync.Mutex
	synth *meltysynth.Synthesizer
	rate  int
}

const (
	fontBodySeconds    = 2.0
	fontReleaseSeconds = 0.5
	fontVelocity       = 100
)

// NewFontSource parses the SoundFont at path.
func NewFontSource(path string) (*FontSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read soundfont: %w", err)
	}
	font, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse soundfont: %w", err)
	}
	return &FontSource{font: font}, nil
}

func (s *FontSource) Render(_ string, midiNote int, sampleRate int) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.synth == nil || s.rate != sampleRate {
		settings := meltysynth.NewSynthesizerSettings(int32(sampleRate))
		synth, err := meltysynth.NewSynthesizer(s.font, settings)
		if err != nil {
			return nil, fmt.Errorf("create synthesizer: %w", err)
		}
		s.synth = synth
		s.rate = sampleRate
	}

	body := int(fontBodySeconds * float64(sampleRate))
	tail := int(fontReleaseSeconds * float64(sampleRate))
	left := make([]float32, body+tail)
	right := make([]float32, body+tail)

	s.synth.NoteOffAll(true)
	s.synth.NoteOn(0, int32(midiNote), fontVelocity)
	s.synth.Render(left[:body], right[:body])
	s.synth.NoteOff(0, int32(midiNote))
	s.synth.Render(left[body:], right[body:])

	out := make([]float32, len(left))
	for i := range out {
		out[i] = (left[i] + right[i]) / 2
	}
	return out, nil
}
