/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/infinipic/pkg/di"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured pipeline",
	Long: `Run the full pipeline described by the configuration:

1. if generate_thumbnails is set, build the corpus from image_directory and
   write it to thumbnail_file
2. restore the corpus from thumbnail_file
3. if single_image is set, synthesise its mosaic and write the rendered PNG
   to output

Examples:
  infinipic run --config ./infinipic.yaml
  INFINIPIC_SINGLE_IMAGE=holiday.jpg infinipic run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context(), container, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(ctx context.Context, c *di.Container, out, progress io.Writer) error {
	cfg := c.Config()

	if cfg.GenerateThumbnails {
		stats, err := c.GenerateCorpus(ctx, progress)
		if err != nil {
			return err
		}
		printStats(out, stats)
	}

	restored, result, err := c.RestoreCorpus()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Restored %d thumbnails from %s\n", result.Loaded, cfg.ThumbnailFile)

	if cfg.SingleImage == "" {
		return nil
	}
	return writeMosaic(ctx, c, restored, cfg.SingleImage, out)
}
