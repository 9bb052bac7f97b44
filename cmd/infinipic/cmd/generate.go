/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssargent/infinipic/pkg/builder"
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the thumbnail corpus from a photo directory",
	Long: `Walk the image directory, turn every 4:3 JPEG into a 20x15 thumbnail and
write the corpus to the thumbnail file. Images with another aspect ratio are
skipped; unreadable images are logged and skipped.

Examples:
  infinipic generate --image-directory ~/Pictures --blacklist ~/Pictures/private
  infinipic generate --image-directory ~/Pictures --cache --workers 8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := container.GenerateCorpus(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().String("image-directory", "", "Directory to search for images")
	generateCmd.Flags().StringSlice("blacklist", nil, "Directories or patterns to skip (comma separated)")
	generateCmd.Flags().Bool("cache", false, "Reuse thumbnails decoded by earlier runs")
}

func printStats(w io.Writer, stats *builder.Stats) {
	fmt.Fprintf(w, "Candidates: %d\n", stats.Candidates)
	fmt.Fprintf(w, "Accepted:   %d\n", stats.Accepted)
	fmt.Fprintf(w, "Skipped:    %d (aspect ratio)\n", stats.Skipped)
	fmt.Fprintf(w, "Failed:     %d\n", stats.Failed)
	if stats.CacheHits > 0 {
		fmt.Fprintf(w, "Cache hits: %d\n", stats.CacheHits)
	}
	fmt.Fprintf(w, "Duration:   %s\n", stats.Duration.Round(time.Millisecond))
}
