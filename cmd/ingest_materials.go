/*
Copyright © 2025 prepstack
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/prepstack/qbank-be/config"
	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/service"
	"github.com/prepstack/qbank-be/types"
)

// ingestMaterialsCmd represents the ingest-materials command
var ingestMaterialsCmd = &cobra.Command{
	Use:   "ingest-materials <directory>",
	Short: "Ingest study-material text files into the vector store",
	Long: `Reads every .txt file in the directory, chunks the text and batch
inserts the chunks into the study-material vector store. Use --reinit to
drop and recreate the collection first.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		directory := args[0]
		tags, _ := cmd.Flags().GetStringArray("tags")
		reinit, _ := cmd.Flags().GetBool("reinit")

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		appLog, err := logger.New("dev")
		if err != nil {
			log.Fatalf("Failed to init logger: %v", err)
		}
		defer appLog.Sync()

		weaviateDB, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
		if err != nil {
			appLog.Fatal("failed to connect to weaviate", "error", err)
		}
		if reinit {
			if err := weaviateDB.ReInit(); err != nil {
				appLog.Fatal("failed to reinitialize collection", "error", err)
			}
		}

		pdfService := service.NewPDFService(types.DocumentServiceConfig{
			MaxChunkSize: 500,
			OverlapSize:  50,
		}, appLog)

		files, err := filepath.Glob(filepath.Join(directory, "*.txt"))
		if err != nil || len(files) == 0 {
			appLog.Fatal("no .txt files found", "directory", directory)
		}

		ctx := context.Background()
		total := 0
		for _, path := range files {
			raw, err := os.ReadFile(path)
			if err != nil {
				appLog.Warn("skipping unreadable file", "file", path, "error", err)
				continue
			}
			title := filepath.Base(path)
			chunks, _ := pdfService.ChunkText(string(raw), types.DocumentMetadata{
				Title:  title,
				Source: path,
			})

			docs := make([]database.Document, 0, len(chunks))
			for _, chunk := range chunks {
				docs = append(docs, database.Document{
					Content: chunk.Content,
					Metadata: database.Metadata{
						Title:  title,
						Source: path,
						Tags:   tags,
					},
					CreatedAt: time.Now().Unix(),
				})
			}
			if err := weaviateDB.BatchInsertDocuments(ctx, docs); err != nil {
				appLog.Fatal("batch insert failed", "file", path, "error", err)
			}
			appLog.Info("ingested file", "file", title, "chunks", len(docs))
			total += len(docs)
		}

		count, err := weaviateDB.DocumentCount(ctx)
		if err != nil {
			appLog.Warn("failed to read document count", "error", err)
		}
		fmt.Printf("Ingested %d chunks from %d files (store now has %d documents)\n", total, len(files), count)
	},
}

func init() {
	rootCmd.AddCommand(ingestMaterialsCmd)
	ingestMaterialsCmd.Flags().StringArray("tags", nil, "tags attached to every ingested chunk")
	ingestMaterialsCmd.Flags().Bool("reinit", false, "drop and recreate the collection before ingesting")
}
