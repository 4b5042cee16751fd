package cmd

import (
	"fmt"
	"log"
	"os"

	"slidecast/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "slidecast",
	Short: "Slidecast turns image/video slideshows into rendered MP4 files.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting slidecast server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
