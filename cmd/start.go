/*
Copyright © 2025 prepstack
*/
package cmd

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/spf13/cobra"

	"github.com/prepstack/qbank-be/config"
	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/handler"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/repository"
	"github.com/prepstack/qbank-be/service"
)

// startServerCmd represents the start command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the question ingestion server",
	Long:  `Starts the HTTP server exposing upload, extraction, search and doubt endpoints`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		logMode := "dev"
		if gin.Mode() == gin.ReleaseMode {
			logMode = "prod"
		}
		appLog, err := logger.New(logMode)
		if err != nil {
			log.Fatalf("Failed to init logger: %v", err)
		}
		defer appLog.Sync()

		db, err := database.NewPostgresDB(cfg.PostgresDSN)
		if err != nil {
			appLog.Fatal("failed to connect to postgres", "error", err)
		}
		weaviateDB, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
		if err != nil {
			appLog.Fatal("failed to connect to weaviate", "error", err)
		}

		subjectRepo := repository.NewSubjectRepo(db, appLog)
		questionRepo := repository.NewQuestionRepo(db, appLog)
		uploadRepo := repository.NewUploadRepo(db)

		pdfService := service.NewPDFService(service.DefaultDocumentServiceConfig, appLog)
		extractService := service.NewExtractService(appLog)
		normalizeService := service.NewNormalizeService(appLog)
		ingestService := service.NewIngestService(subjectRepo, questionRepo, appLog)

		aiService := service.NewOpenAIService(cfg.AIEndpoint, cfg.OpenAIAPIKey, cfg.Model)
		aiService.RegisterMaterialSearchTool(weaviateDB)
		if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
			registerWebSearchTool(aiService, service.NewSearchService(cfg.SearchAPIKey, cfg.SearchEngineID))
		}

		extractors := map[string]service.QuestionExtractor{
			"gpt-4": aiService,
		}
		if keys := cfg.GeminiKeys(); len(keys) > 0 {
			geminiService, err := service.NewGeminiService(keys, "gemini-1.5-pro")
			if err != nil {
				appLog.Fatal("failed to init gemini", "error", err)
			}
			extractors["gemini"] = geminiService
		}

		fileService := service.NewFileService(
			cfg.UploadDir, pdfService, extractors,
			normalizeService, ingestService, uploadRepo, weaviateDB, appLog,
		)
		doubtService := service.NewDoubtService(weaviateDB, aiService, subjectRepo, questionRepo, appLog)
		wsService := service.NewWebSocketService(doubtService, appLog)

		corsHandler := handler.NewCorsHandler()
		uploadHandler := handler.NewUploadHandler(fileService)
		extractHandler := handler.NewExtractHandler(extractService, cfg.ScratchDir)
		doubtHandler := handler.NewDoubtHandler(doubtService)
		searchHandler := handler.NewSearchHandler(questionRepo, weaviateDB)
		pdfHandler := handler.NewDocumentHandler(cfg.UploadDir)

		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		{
			apiV1.POST("/upload", uploadHandler.UploadQuestionPaper)
			apiV1.POST("/extract", extractHandler.ExtractObjects)

			apiV1.POST("/chat/doubt", doubtHandler.AnswerDoubt)
			apiV1.GET("/chat/doubt/diagnostic", doubtHandler.Diagnostic)
			apiV1.GET("/chat/doubt/ws", gin.WrapF(wsService.HandleDoubt))

			apiV1.POST("/chatbot/search", searchHandler.SearchQuestions)
			apiV1.GET("/chatbot/search", searchHandler.SearchInfo)
			apiV1.POST("/chatbot/explain", doubtHandler.Explain)

			apiV1.POST("/materials/upload", uploadHandler.UploadMaterial)
			apiV1.POST("/materials/search", searchHandler.SearchMaterials)

			apiV1.GET("/pdf", pdfHandler.ServeDocument)
		}

		appLog.Info("starting server", "port", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			appLog.Fatal("server error", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}

// registerWebSearchTool lets the doubt chat reach for the web when the
// study materials come up empty.
func registerWebSearchTool(ai *service.OpenAIService, search *service.SearchService) {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {Type: jsonschema.String, Description: "The web search query"},
		},
		Required: []string{"query"},
	}
	ai.RegisterFunctionCall(
		"web_search",
		"Search the web for information not found in the study materials, such as current affairs.",
		params,
		func(ctx context.Context, args []byte) (any, error) {
			var req struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &req); err != nil {
				return nil, err
			}
			return search.SearchJSON(ctx, req.Query)
		},
	)
}
