package main

import (
	"context"
	"log"
	"net/http"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"docchat/config"
	"docchat/controller"
	"docchat/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// One long-lived OpenAI client shared by the embedding and chat stages,
	// with explicit per-request timeout and bounded retries.
	openaiClient := openai.NewClient(
		azure.WithEndpoint(cfg.OpenAIEndpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.OpenAIAPIKey),
		option.WithRequestTimeout(30*time.Second),
		option.WithMaxRetries(3),
	)
	embedder := services.NewOpenAIEmbedder(openaiClient, cfg.EmbeddingDeployment)

	index, cleanup, err := buildVectorIndex(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialise the %q vector index: %v", cfg.VectorStore, err)
	}
	defer cleanup()

	generator, err := buildAnswerGenerator(cfg, openaiClient)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialise the %q answer provider: %v", cfg.AnswerProvider, err)
	}

	chunker, err := services.NewChunker(cfg.Chunker, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ragService := services.NewRAGService(embedder, index, generator, chunker, cfg.TopK, cfg.AnswerLanguage)
	ragController := controller.NewRAGController(ragService)

	if cfg.WatchDir != "" {
		watcher := services.NewDropWatcher(ragService)
		go watcher.Watch(context.Background(), cfg.WatchDir)
	}

	// Setup Gin router
	router := gin.Default()
	router.Use(corsMiddleware(), requestIDMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "docchat API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/documents", ragController.UploadDocument) // Upload and ingest a document
		apiV1.POST("/query", ragController.Query)              // Ask a question
		apiV1.GET("/chunks/count", ragController.CountChunks)  // Indexed chunk count
	}

	log.Printf("docchat backend starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

// buildVectorIndex constructs the configured index provider. The returned
// cleanup releases provider resources at shutdown.
func buildVectorIndex(cfg *config.Config) (services.VectorIndex, func(), error) {
	switch cfg.VectorStore {
	case "chroma":
		var opts []chromago.ClientOption
		if cfg.ChromaURL != "" {
			opts = append(opts, chromago.WithBaseURL(cfg.ChromaURL))
		}
		chromaClient, err := chromago.NewHTTPClient(opts...)
		if err != nil {
			return nil, nil, err
		}
		collection, err := chromaClient.GetOrCreateCollection(
			context.Background(),
			cfg.ChromaCollection,
			chromago.WithCollectionMetadataCreate(
				chromago.NewMetadata(
					chromago.NewStringAttribute("description", "docchat chunk collection"),
					chromago.NewStringAttribute("created_by", "docchat"),
				),
			),
		)
		if err != nil {
			_ = chromaClient.Close()
			return nil, nil, err
		}
		cleanup := func() {
			if err := chromaClient.Close(); err != nil {
				log.Printf("Warning: Failed to close chroma client: %v", err)
			}
		}
		return services.NewChromaIndex(collection), cleanup, nil
	default:
		httpClient := &http.Client{Timeout: 30 * time.Second}
		index := services.NewSearchIndexClient(httpClient, cfg.SearchEndpoint, cfg.SearchIndex, cfg.SearchAPIKey, cfg.APIVersion)
		return index, func() {}, nil
	}
}

func buildAnswerGenerator(cfg *config.Config, openaiClient openai.Client) (services.AnswerGenerator, error) {
	switch cfg.AnswerProvider {
	case "gemini":
		geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, err
		}
		log.Println("Successfully connected to Google Gemini.")
		return services.NewGeminiAnswerer(geminiClient, cfg.GeminiModel), nil
	default:
		return services.NewOpenAIAnswerer(openaiClient, cfg.ChatDeployment), nil
	}
}

// corsMiddleware allows browser clients served from another origin to reach
// the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware tags every request so pipeline log lines can be
// correlated with the HTTP call that triggered them.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}
