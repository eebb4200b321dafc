/*
Copyright © 2025 prepstack
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/service"
	"github.com/prepstack/qbank-be/types"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract objects from a PDF or image into a directory",
	Long: `Runs the object extraction pipeline on one document and writes
output.json plus the extracted image assets into the output directory.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inputPath := args[0]
		outDir, _ := cmd.Flags().GetString("out")

		appLog, err := logger.New("dev")
		if err != nil {
			log.Fatalf("Failed to init logger: %v", err)
		}
		defer appLog.Sync()

		data, err := os.ReadFile(inputPath)
		if err != nil {
			appLog.Fatal("failed to read input", "error", err)
		}

		var kind types.DocumentKind
		switch strings.ToLower(filepath.Ext(inputPath)) {
		case ".pdf":
			kind = types.KindPDF
		case ".png", ".jpg", ".jpeg":
			kind = types.KindImage
		default:
			appLog.Fatal("unsupported file type", "file", inputPath)
		}

		if outDir == "" {
			outDir = strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath)) + "_extracted"
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			appLog.Fatal("failed to create output directory", "error", err)
		}

		extractService := service.NewExtractService(appLog)
		manifest, err := extractService.Extract(context.Background(), data, filepath.Base(inputPath), kind, outDir)
		if err != nil {
			appLog.Fatal("extraction failed", "error", err)
		}

		manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			appLog.Fatal("failed to serialize manifest", "error", err)
		}
		if err := os.WriteFile(filepath.Join(outDir, "output.json"), manifestJSON, 0o644); err != nil {
			appLog.Fatal("failed to write manifest", "error", err)
		}

		objects := 0
		for _, page := range manifest.Pages {
			objects += len(page.Objects)
		}
		fmt.Printf("Extracted %d pages, %d objects into %s\n", len(manifest.Pages), objects, outDir)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("out", "o", "", "output directory (default <name>_extracted)")
}
