// Package config reads deployment knobs straight from environment
// variables with in-code defaults, covering storage addresses, model
// routing, and cache tuning in one place.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-configurable knob the gateway reads
// at startup. There is no file-based or remote config layer: the knob
// count is small enough that a plain env-var-with-default idiom stays
// proportionate.
type Config struct {
	ServerPort int
	DebugMode  bool

	MatchThreshold     float32
	CaptureMaxBytes    int
	BackgroundDeadline time.Duration
	DefaultModel       string

	QdrantHost          string
	QdrantPort          int
	QdrantCollection    string
	EmbeddingDimensions int

	RedisAddr string

	UpstreamBaseURL   string
	UpstreamAPIKeyEnv string

	EmbeddingBaseURL   string
	EmbeddingModel     string
	EmbeddingAPIKeyEnv string
}

// Load builds a Config from the process environment.
func Load() Config {
	return Config{
		ServerPort: envInt("SERVER_PORT", 8080),
		DebugMode:  os.Getenv("DEBUG_MODE") == "true",

		MatchThreshold:     envFloat32("MATCH_THRESHOLD", 0.9),
		CaptureMaxBytes:    envInt("CAPTURE_MAX_BYTES", 1<<20),
		BackgroundDeadline: time.Duration(envInt("BACKGROUND_DEADLINE_MS", 120000)) * time.Millisecond,
		DefaultModel:       envString("DEFAULT_MODEL", "gpt-4o-mini"),

		QdrantHost:          envString("QDRANT_HOST", "localhost"),
		QdrantPort:          envInt("QDRANT_PORT", 6334),
		QdrantCollection:    envString("QDRANT_COLLECTION", "semantic_cache"),
		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", 1536),

		RedisAddr: envString("REDIS_ADDR", "localhost:6379"),

		UpstreamBaseURL:   envString("UPSTREAM_BASE_URL", "https://api.openai.com/v1/chat/completions"),
		UpstreamAPIKeyEnv: envString("UPSTREAM_API_KEY_ENV", "OPENAI_API_KEY"),

		EmbeddingBaseURL:   envString("EMBEDDING_BASE_URL", "https://api.openai.com/v1/embeddings"),
		EmbeddingModel:     envString("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingAPIKeyEnv: envString("EMBEDDING_API_KEY_ENV", "OPENAI_API_KEY"),
	}
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat32(name string, def float32) float32 {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return def
	}
	return float32(n)
}
