/*
Copyright © 2025 prepstack
*/
package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/prepstack/qbank-be/config"
	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/repository"
	"github.com/prepstack/qbank-be/service"
	"github.com/prepstack/qbank-be/types"
)

// ingestCSVCmd represents the ingest-csv command
var ingestCSVCmd = &cobra.Command{
	Use:   "ingest-csv <file>",
	Short: "Ingest questions from a CSV file into Postgres",
	Long: `Reads a CSV of question rows (first row is the header), normalizes
each record and stores it through the same pipeline the upload endpoint
uses.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		csvPath := args[0]

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		appLog, err := logger.New("dev")
		if err != nil {
			log.Fatalf("Failed to init logger: %v", err)
		}
		defer appLog.Sync()

		db, err := database.NewPostgresDB(cfg.PostgresDSN)
		if err != nil {
			appLog.Fatal("failed to connect to postgres", "error", err)
		}

		f, err := os.Open(csvPath)
		if err != nil {
			appLog.Fatal("failed to open csv", "error", err)
		}
		defer f.Close()

		reader := csv.NewReader(f)
		rows, err := reader.ReadAll()
		if err != nil {
			appLog.Fatal("failed to parse csv", "error", err)
		}
		if len(rows) < 2 {
			appLog.Fatal("csv has no data rows", "file", csvPath)
		}

		header := rows[0]
		raws := make([]types.RawQuestionRecord, 0, len(rows)-1)
		for _, row := range rows[1:] {
			raws = append(raws, service.FromCSVRow(header, row))
		}

		normalizeService := service.NewNormalizeService(appLog)
		canonical, skipped := normalizeService.NormalizeBatch(raws, types.FormatCSV)

		subjectRepo := repository.NewSubjectRepo(db, appLog)
		questionRepo := repository.NewQuestionRepo(db, appLog)
		ingestService := service.NewIngestService(subjectRepo, questionRepo, appLog)

		stored, err := ingestService.Ingest(context.Background(), canonical)
		if err != nil {
			appLog.Fatal("ingestion aborted", "error", err)
		}
		fmt.Printf("Stored %d questions (%d skipped during normalization, %d failed during insert)\n",
			stored, skipped, len(canonical)-stored)
	},
}

func init() {
	rootCmd.AddCommand(ingestCSVCmd)
}
