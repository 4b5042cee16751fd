package cmd

import (
	"slidecast/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the slidecast HTTP server",
	Long:  `Start the slidecast HTTP server, exposing the upload and render APIs and serving rendered output files.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
