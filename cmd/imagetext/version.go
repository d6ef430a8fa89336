package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mholler/imagetext/internal/ocr"
)

// newVersionCmd builds the version command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("imagetext %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)

			if v := ocr.NewTesseract(ocr.TesseractConfig{}).Version(); v != "" {
				fmt.Printf("  Tesseract:  %s\n", v)
			} else {
				fmt.Println("  Tesseract:  not available")
			}
		},
	}
}
