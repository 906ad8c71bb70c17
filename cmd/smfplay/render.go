package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	smfplay "github.com/keyfall/smfplay-go"
)

var (
	renderSampleRate int
	renderSoundFont  string
	renderSamplesDir string
	renderOut        string
)

func init() {
	renderCmd.Flags().IntVar(&renderSampleRate, "sample-rate", 48000, "output sample rate")
	renderCmd.Flags().StringVar(&renderSoundFont, "soundfont", "", "SoundFont file to render samples from")
	renderCmd.Flags().StringVar(&renderSamplesDir, "samples", "", "directory of per-pitch WAV samples")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "out.wav", "output WAV path")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file.mid>",
	Short: "Render a file to a WAV offline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := smfplay.LoadFile(args[0])
		if err != nil {
			return err
		}
		opts := []smfplay.BackendOption{}
		if renderSoundFont != "" {
			opts = append(opts, smfplay.WithSoundFont(renderSoundFont))
		}
		if renderSamplesDir != "" {
			opts = append(opts, smfplay.WithSamplesDir(renderSamplesDir))
		}
		samples, err := smfplay.RenderScore(cmd.Context(), score, renderSampleRate, opts...)
		if err != nil {
			return err
		}
		wav := smfplay.EncodeWAVFloat32LE(samples, renderSampleRate, 2)
		if err := os.WriteFile(renderOut, wav, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d frames at %d Hz)\n", renderOut, len(samples)/2, renderSampleRate)
		return nil
	},
}
