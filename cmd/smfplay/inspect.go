package main

import (
	"fmt"

	"github.com/spf13/cobra"

	smfplay "github.com/keyfall/smfplay-go"
)

var inspectNotes bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectNotes, "notes", false, "list every decoded note")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Decode a file and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := smfplay.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("notes:          %d\n", len(score.Notes))
		fmt.Printf("duration:       %.3fs\n", score.TotalDuration)
		fmt.Printf("tempo:          %d BPM\n", score.TempoBPM)
		fmt.Printf("time signature: %d/%d\n", score.TimeSignature.Numerator, score.TimeSignature.Denominator)
		if inspectNotes {
			for _, n := range score.Notes {
				fmt.Printf("%8.3f  %-4s  dur=%.3f vel=%.2f\n", n.Start, n.Pitch, n.Duration, n.Velocity)
			}
		}
		return nil
	},
}
