// Package config assembles the runtime configuration of the service from a
// .env file, an optional YAML file and environment variables, in that order
// of precedence (environment wins). Everything the external services need is
// validated once at startup so a missing key fails the process immediately
// instead of surfacing on the first API call.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"docchat/services"
)

// Default deployment and index names, overridable per environment.
const (
	DefaultAPIVersion     = "2024-05-01-preview"
	DefaultChatModel      = "gpt-4o"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultSearchIndex    = "openai_index"
	DefaultChunkSize      = 1000
	DefaultTopK           = 5
)

// Config holds every tunable of the ingestion and query pipelines.
type Config struct {
	Port string `yaml:"port"`

	// Azure OpenAI (embeddings and, by default, chat completions).
	OpenAIEndpoint      string `yaml:"openai_endpoint"`
	OpenAIAPIKey        string `yaml:"-"`
	APIVersion          string `yaml:"api_version"`
	ChatDeployment      string `yaml:"chat_deployment"`
	EmbeddingDeployment string `yaml:"embedding_deployment"`

	// Vector index provider: "azure" (hosted search index) or "chroma".
	VectorStore      string `yaml:"vector_store"`
	SearchEndpoint   string `yaml:"search_endpoint"`
	SearchAPIKey     string `yaml:"-"`
	SearchIndex      string `yaml:"search_index"`
	ChromaURL        string `yaml:"chroma_url"`
	ChromaCollection string `yaml:"chroma_collection"`

	// Answer provider: "azure" (shared OpenAI client) or "gemini".
	AnswerProvider string `yaml:"answer_provider"`
	GeminiAPIKey   string `yaml:"-"`
	GeminiModel    string `yaml:"gemini_model"`

	// Chunking. Overlap is in characters and defaults to zero.
	Chunker      string `yaml:"chunker"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`

	// Retrieval and generation.
	TopK           int    `yaml:"top_k"`
	AnswerLanguage string `yaml:"answer_language"`

	// Optional drop directory watched for new documents.
	WatchDir string `yaml:"watch_dir"`
}

// Load builds the configuration and validates it. The returned error wraps
// services.ErrConfiguration when any required value is missing or invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("CONFIG: no .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:                "8080",
		APIVersion:          DefaultAPIVersion,
		ChatDeployment:      DefaultChatModel,
		EmbeddingDeployment: DefaultEmbeddingModel,
		VectorStore:         "azure",
		SearchIndex:         DefaultSearchIndex,
		ChromaCollection:    "docchat",
		AnswerProvider:      "azure",
		GeminiModel:         "gemini-2.5-flash",
		Chunker:             "wrap",
		ChunkSize:           DefaultChunkSize,
		ChunkOverlap:        0,
		TopK:                DefaultTopK,
		AnswerLanguage:      "French",
	}

	if err := cfg.applyFile(); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFile overlays an optional YAML file (DOCCHAT_CONFIG, falling back to
// ./config.yaml) over the built-in defaults.
func (c *Config) applyFile() error {
	path := os.Getenv("DOCCHAT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: reading %s: %v", services.ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", services.ErrConfiguration, path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.OpenAIEndpoint, "ENDPOINT_URL")
	setString(&c.OpenAIAPIKey, "AZURE_OPENAI_API_KEY")
	setString(&c.APIVersion, "AZURE_OPENAI_API_VERSION")
	setString(&c.ChatDeployment, "DEPLOYMENT_NAME")
	setString(&c.EmbeddingDeployment, "DEPLOYMENT_EMBEDDING")
	setString(&c.VectorStore, "VECTOR_STORE")
	setString(&c.SearchEndpoint, "SEARCH_ENDPOINT")
	setString(&c.SearchAPIKey, "SEARCH_API_KEY")
	setString(&c.SearchIndex, "SEARCH_INDEX_NAME")
	setString(&c.ChromaURL, "CHROMA_URL")
	setString(&c.ChromaCollection, "CHROMA_COLLECTION")
	setString(&c.AnswerProvider, "ANSWER_PROVIDER")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.Chunker, "CHUNKER")
	setInt(&c.ChunkSize, "CHUNK_SIZE")
	setInt(&c.ChunkOverlap, "CHUNK_OVERLAP")
	setInt(&c.TopK, "TOP_K")
	setString(&c.AnswerLanguage, "ANSWER_LANGUAGE")
	setString(&c.WatchDir, "WATCH_DIR")
}

// Validate reports every problem at once rather than failing on the first.
func (c *Config) Validate() error {
	var problems []string

	if c.OpenAIEndpoint == "" {
		problems = append(problems, "ENDPOINT_URL is required")
	}
	if c.OpenAIAPIKey == "" {
		problems = append(problems, "AZURE_OPENAI_API_KEY is required")
	}

	switch c.VectorStore {
	case "azure":
		if c.SearchEndpoint == "" {
			problems = append(problems, "SEARCH_ENDPOINT is required for the azure vector store")
		}
		if c.SearchAPIKey == "" {
			problems = append(problems, "SEARCH_API_KEY is required for the azure vector store")
		}
		if c.SearchIndex == "" {
			problems = append(problems, "SEARCH_INDEX_NAME is required for the azure vector store")
		}
	case "chroma":
		if c.ChromaCollection == "" {
			problems = append(problems, "CHROMA_COLLECTION is required for the chroma vector store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown vector store %q (want azure or chroma)", c.VectorStore))
	}

	switch c.AnswerProvider {
	case "azure":
		// Shares the OpenAI credentials already checked above.
	case "gemini":
		if c.GeminiAPIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required for the gemini answer provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown answer provider %q (want azure or gemini)", c.AnswerProvider))
	}

	switch c.Chunker {
	case "wrap", "recursive":
	default:
		problems = append(problems, fmt.Sprintf("unknown chunker %q (want wrap or recursive)", c.Chunker))
	}
	if c.ChunkSize <= 0 {
		problems = append(problems, "CHUNK_SIZE must be positive")
	}
	if c.ChunkOverlap < 0 {
		problems = append(problems, "CHUNK_OVERLAP must not be negative")
	}
	if c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, "CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	if c.TopK <= 0 {
		problems = append(problems, "TOP_K must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", services.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("CONFIG: ignoring %s=%q: not an integer", key, v)
		return
	}
	*dst = n
}
