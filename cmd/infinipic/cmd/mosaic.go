/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/infinipic/pkg/corpus"
	"github.com/ssargent/infinipic/pkg/di"
	"github.com/ssargent/infinipic/pkg/imagesrc"
	"github.com/ssargent/infinipic/pkg/render"
)

// mosaicCmd represents the mosaic command
var mosaicCmd = &cobra.Command{
	Use:   "mosaic <image>",
	Short: "Rebuild an image from the thumbnail corpus",
	Long: `Restore the corpus, rebuild the image as a grid of the closest thumbnails
and write the result as a PNG.

Examples:
  infinipic mosaic holiday.jpg --output holiday-mosaic.png
  infinipic mosaic holiday.jpg --scale 1`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		restored, _, err := container.RestoreCorpus()
		if err != nil {
			return err
		}
		return writeMosaic(cmd.Context(), container, restored, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(mosaicCmd)
	mosaicCmd.Flags().StringP("output", "o", "", "PNG file to write (default from config)")
	mosaicCmd.Flags().Float64("scale", 0, "Scale of the rendered mosaic (default from config)")
}

// writeMosaic synthesises path from restored and saves the rendered PNG to
// the configured output
func writeMosaic(ctx context.Context, c *di.Container, restored *corpus.Corpus, path string, out io.Writer) error {
	cfg := c.Config()

	m, err := c.BuildMosaic(ctx, restored, path)
	if err != nil {
		return err
	}

	interp, err := imagesrc.ParseInterpolation(cfg.Imaging.Interpolation)
	if err != nil {
		return err
	}
	img, err := render.Render(m, cfg.Scale, interp)
	if err != nil {
		return err
	}
	if err := render.SavePNG(cfg.Output, img); err != nil {
		return err
	}

	grid := m.Grid()
	fmt.Fprintf(out, "Mosaic %s: %dx%d cells, %d distinct thumbnails\n", m.ID(), grid.Cols, grid.Rows, m.Distinct())
	fmt.Fprintf(out, "Wrote %s (%dx%d)\n", cfg.Output, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}
