package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	smfplay "github.com/keyfall/smfplay-go"
	"github.com/keyfall/smfplay-go/internal/httpapi"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the score decoder over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		api := httpapi.New(smfplay.FetchURL)
		fmt.Printf("listening on %s\n", serveAddr)
		return http.ListenAndServe(serveAddr, api.Handler())
	},
}
