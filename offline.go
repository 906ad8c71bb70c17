package smfplay

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/keyfall/smfplay-go/internal/synth"
)

const renderBlockFrames = 512

// RenderScore renders a score to interleaved stereo float32 samples without
// touching the audio device, using the graph backend's synthesis chain. The
// output covers the score plus a short release tail.
func RenderScore(ctx context.Context, score *Score, sampleRate int, opts ...BackendOption) ([]float32, error) {
	cfg, src, err := resolveBackendConfig(opts)
	if err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		sampleRate = cfg.sampleRate
	}
	sopts := []synth.Option{synth.WithoutDevice()}
	if src != nil {
		sopts = append(sopts, synth.WithSource(src))
	}
	backend := synth.New(sampleRate, sopts...)
	if err := backend.Initialize(ctx, nil); err != nil {
		return nil, err
	}
	defer backend.Dispose()

	const tail = 0.5
	totalFrames := int(math.Ceil((score.TotalDuration + tail) * float64(sampleRate)))
	out := make([]float32, totalFrames*2)

	next := 0
	for frame := 0; frame < totalFrames; frame += renderBlockFrames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blockEnd := float64(frame+renderBlockFrames) / float64(sampleRate)
		for next < len(score.Notes) && score.Notes[next].Start < blockEnd {
			n := score.Notes[next]
			backend.Trigger(n.Pitch, n.Duration, n.Velocity)
			next++
		}
		lo := frame * 2
		hi := lo + renderBlockFrames*2
		if hi > len(out) {
			hi = len(out)
		}
		backend.Process(out[lo:hi])
	}
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV container
// (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
