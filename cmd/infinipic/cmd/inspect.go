/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/infinipic/pkg/di"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show what a thumbnail file contains",
	Long: `Restore the thumbnail file and report how many thumbnails it holds and
whether the file ended cleanly.

Examples:
  infinipic inspect --thumbnail-file thumbnails.bin
  infinipic inspect --names`,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetBool("names")
		return inspectCorpus(container, cmd.OutOrStdout(), names)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("names", false, "List the name of every thumbnail")
}

func inspectCorpus(c *di.Container, out io.Writer, names bool) error {
	restored, result, err := c.RestoreCorpus()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File:       %s\n", c.Config().ThumbnailFile)
	fmt.Fprintf(out, "Thumbnails: %d\n", result.Loaded)
	fmt.Fprintf(out, "Bytes read: %d\n", result.BytesRead)
	if result.Clean() {
		fmt.Fprintf(out, "Status:     clean\n")
	} else {
		fmt.Fprintf(out, "Status:     stopped early (%s): %v\n", result.StopReason(), result.Stop)
	}

	if names {
		for i, t := range restored.All() {
			fmt.Fprintf(out, "%6d  %s\n", i, t.DisplayName())
		}
	}
	return nil
}
