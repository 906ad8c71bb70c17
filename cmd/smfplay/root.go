package main

import (
	"github.com/spf13/cobra"

	"github.com/keyfall/smfplay-go/internal/debug"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "smfplay",
	Short: "Decode and play Standard MIDI Files",
	Long:  `smfplay decodes Standard MIDI Files into note timelines and plays, renders or serves them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			debug.Enable()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
