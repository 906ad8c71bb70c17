package assets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// DirSource reads per-pitch WAV files from a directory. Files are named by
// pitch, e.g. "C4.wav" or "Fs4.wav" (the sharp sign is not filesystem-safe
// on every platform, so "s" is accepted in its place).
type DirSource struct {
	Dir string
}

func (s DirSource) Render(pitch string, _ int, sampleRate int) ([]float32, error) {
	data, err := s.readFile(pitch)
	if err != nil {
		return nil, err
	}
	stream, err := wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read wav stream: %w", err)
	}
	return stereo16ToMono(pcm), nil
}

func (s DirSource) readFile(pitch string) ([]byte, error) {
	candidates := []string{pitch + ".wav"}
	if len(pitch) > 1 && pitch[1] == '#' {
		candidates = append(candidates, pitch[:1]+"s"+pitch[2:]+".wav")
	}
	var firstErr error
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// stereo16ToMono converts 16-bit little-endian stereo PCM to mono float32.
func stereo16ToMono(pcm []byte) []float32 {
	frames := len(pcm) / 4
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8)
		r := int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8)
		out[i] = (float32(l) + float32(r)) / 2 / 32768
	}
	return out
}
