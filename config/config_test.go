package config

import (
	"errors"
	"strings"
	"testing"

	"docchat/services"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENDPOINT_URL", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "openai-key")
	t.Setenv("SEARCH_ENDPOINT", "https://example.search.windows.net")
	t.Setenv("SEARCH_API_KEY", "search-key")
	t.Setenv("SEARCH_INDEX_NAME", "docs")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChunkSize != DefaultChunkSize {
		t.Errorf("chunk size: got %d, want %d", cfg.ChunkSize, DefaultChunkSize)
	}
	if cfg.TopK != DefaultTopK {
		t.Errorf("top k: got %d, want %d", cfg.TopK, DefaultTopK)
	}
	if cfg.VectorStore != "azure" || cfg.AnswerProvider != "azure" {
		t.Errorf("unexpected providers: %q / %q", cfg.VectorStore, cfg.AnswerProvider)
	}
	if cfg.Chunker != "wrap" || cfg.ChunkOverlap != 0 {
		t.Errorf("unexpected chunker defaults: %q / %d", cfg.Chunker, cfg.ChunkOverlap)
	}
}

func TestLoad_MissingCredentialsFailAtStartup(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AZURE_OPENAI_API_KEY", "")

	_, err := Load()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "AZURE_OPENAI_API_KEY") {
		t.Errorf("error should name the missing key, got %q", err.Error())
	}
}

func TestLoad_MissingSearchSettingsForAzureStore(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SEARCH_ENDPOINT", "")
	t.Setenv("SEARCH_API_KEY", "")

	_, err := Load()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "SEARCH_ENDPOINT") || !strings.Contains(msg, "SEARCH_API_KEY") {
		t.Errorf("error should report every missing key at once, got %q", msg)
	}
}

func TestLoad_ChromaStoreDoesNotNeedSearchSettings(t *testing.T) {
	t.Setenv("ENDPOINT_URL", "https://example.openai.azure.com/")
	t.Setenv("AZURE_OPENAI_API_KEY", "openai-key")
	t.Setenv("VECTOR_STORE", "chroma")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChromaCollection == "" {
		t.Error("chroma collection should default to a non-empty name")
	}
}

func TestLoad_GeminiProviderNeedsKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ANSWER_PROVIDER", "gemini")

	_, err := Load()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error with key set: %v", err)
	}
	if cfg.GeminiModel == "" {
		t.Error("gemini model should have a default")
	}
}

func TestLoad_InvalidChunkSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	_, err := Load()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("TOP_K", "3")
	t.Setenv("ANSWER_LANGUAGE", "English")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChunkSize != 500 || cfg.ChunkOverlap != 50 || cfg.TopK != 3 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.AnswerLanguage != "English" {
		t.Errorf("answer language: got %q", cfg.AnswerLanguage)
	}
}
