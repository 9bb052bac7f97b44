/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP viewer",
	Long: `Restore the corpus and serve it over HTTP. Images POSTed to
/api/v1/mosaics are rebuilt from the corpus and can be viewed as PNGs.

Examples:
  infinipic serve --port 8080
  infinipic serve --image holiday.jpg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		restored, _, err := container.RestoreCorpus()
		if err != nil {
			return err
		}

		server, err := container.NewServer(restored)
		if err != nil {
			return err
		}

		if image, _ := cmd.Flags().GetString("image"); image != "" {
			m, err := container.BuildMosaic(cmd.Context(), restored, image)
			if err != nil {
				return err
			}
			id := server.Register(m)
			cmd.Printf("Mosaic of %s available at /api/v1/mosaics/%s/image.png\n", image, id)
		}

		return server.ListenAndServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default from config)")
	serveCmd.Flags().String("bind", "", "Address to bind (default from config)")
	serveCmd.Flags().String("image", "", "Build a mosaic of this image at startup")
}
