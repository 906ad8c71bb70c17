package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	smfplay "github.com/keyfall/smfplay-go"
)

var (
	playBackend    string
	playSampleRate int
	playSamplesDir string
	playSoundFont  string
	playURL        string
	playToken      string
	playSpeed      float64
	playVolume     float64
	playSeek       float64
	playLoadWait   time.Duration
)

func init() {
	playCmd.Flags().StringVar(&playBackend, "backend", "graph", "sound backend: graph|sampler|null")
	playCmd.Flags().IntVar(&playSampleRate, "sample-rate", 48000, "output sample rate")
	playCmd.Flags().StringVar(&playSamplesDir, "samples", "", "directory of per-pitch WAV samples")
	playCmd.Flags().StringVar(&playSoundFont, "soundfont", "", "SoundFont file to render samples from")
	playCmd.Flags().StringVar(&playURL, "url", "", "fetch the score from a URL instead of a file")
	playCmd.Flags().StringVar(&playToken, "token", "", "bearer token for --url")
	playCmd.Flags().Float64Var(&playSpeed, "speed", 1.0, "playback speed multiplier")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1.0, "master volume 0..1")
	playCmd.Flags().Float64Var(&playSeek, "seek", 0, "start position in seconds")
	playCmd.Flags().DurationVar(&playLoadWait, "load-timeout", 60*time.Second, "sample loading timeout")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [file.mid]",
	Short: "Play a file through a sound backend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := loadPlayScore(cmd.Context(), args)
		if err != nil {
			return err
		}

		backend, err := buildBackend()
		if err != nil {
			return err
		}
		loadCtx, cancel := context.WithTimeout(cmd.Context(), playLoadWait)
		defer cancel()
		lastPct := -1
		err = backend.Initialize(loadCtx, func(pct int) {
			if pct != lastPct {
				fmt.Printf("\rloading samples %d%%", pct)
				lastPct = pct
			}
		})
		if lastPct >= 0 {
			fmt.Println()
		}
		if err != nil {
			return fmt.Errorf("initialize backend: %w", err)
		}

		engine := smfplay.NewEngine(backend)
		defer engine.Close()
		engine.Load(score)
		engine.SetVolume(playVolume)
		engine.SetSpeed(playSpeed)
		if playSeek > 0 {
			engine.Seek(playSeek)
		}
		ch := engine.Watch()
		if err := engine.Play(); err != nil {
			return err
		}

		progress := time.NewTicker(500 * time.Millisecond)
		defer progress.Stop()
		for {
			select {
			case ev := <-ch:
				if ev.Kind == smfplay.EventPlaybackEnded {
					fmt.Println("\nplayback completed")
					return nil
				}
			case <-progress.C:
				snap := engine.Snapshot()
				fmt.Printf("\r%7.2fs  %s", snap.CurrentTime, strings.Join(snap.ActiveNotes, " "))
			case <-cmd.Context().Done():
				engine.Stop()
				return nil
			}
		}
	},
}

func loadPlayScore(ctx context.Context, args []string) (*smfplay.Score, error) {
	switch {
	case playURL != "":
		return smfplay.FetchURL(ctx, playURL, playToken)
	case len(args) == 1:
		return smfplay.LoadFile(args[0])
	default:
		return nil, fmt.Errorf("need a file argument or --url")
	}
}

func buildBackend() (smfplay.SoundBackend, error) {
	opts := []smfplay.BackendOption{smfplay.WithSampleRate(playSampleRate)}
	if playSamplesDir != "" {
		opts = append(opts, smfplay.WithSamplesDir(playSamplesDir))
	}
	if playSoundFont != "" {
		opts = append(opts, smfplay.WithSoundFont(playSoundFont))
	}
	switch playBackend {
	case "graph":
		return smfplay.NewGraphBackend(opts...)
	case "sampler":
		return smfplay.NewSamplerBackend(opts...)
	case "null":
		return smfplay.NullBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", playBackend)
	}
}
