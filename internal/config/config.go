package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/envutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

// Config carries the application-level knobs. Infra clients (postgres,
// openai, object storage) read their own connection env on top of this.
type Config struct {
	AppName     string
	Environment string
	Port        string

	AuthSecret   string
	AuthAudience string
	TokenTTL     time.Duration

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	Bucket string

	EmbeddingModel  string
	CompletionModel string

	ChunkSizeTokens    int
	ChunkOverlapTokens int

	OCREngine string

	RedisAddr     string
	EmbedCacheTTL time.Duration
}

// Load resolves configuration with env taking precedence over an optional
// YAML file named by AIDOC_CONFIG_FILE. Keys in the file are the env names.
func Load(log *logger.Logger) Config {
	file := loadFileValues(log)

	cfg := Config{
		AppName:     get(file, "AIDOC_APP_NAME", "AI Document Interview System API"),
		Environment: get(file, "AIDOC_ENVIRONMENT", "development"),
		Port:        get(file, "PORT", "8080"),

		AuthSecret:   get(file, "AIDOC_AUTH_SECRET", ""),
		AuthAudience: get(file, "AIDOC_AUTH_AUDIENCE", ""),
		TokenTTL:     getDuration(file, "AIDOC_TOKEN_TTL", time.Hour),

		QdrantURL:        get(file, "AIDOC_QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     get(file, "AIDOC_QDRANT_API_KEY", ""),
		QdrantCollection: get(file, "AIDOC_QDRANT_COLLECTION", "document_chunks"),

		Bucket: get(file, "AIDOC_BUCKET", "ai-documents"),

		EmbeddingModel:  get(file, "AIDOC_EMBEDDING_MODEL", "text-embedding-3-small"),
		CompletionModel: get(file, "AIDOC_COMPLETION_MODEL", "gpt-4o-mini"),

		ChunkSizeTokens:    getInt(file, "AIDOC_CHUNK_SIZE_TOKENS", 600),
		ChunkOverlapTokens: getInt(file, "AIDOC_CHUNK_OVERLAP_TOKENS", 100),

		OCREngine: strings.ToLower(get(file, "AIDOC_OCR_ENGINE", "tesseract")),

		RedisAddr:     get(file, "REDIS_ADDR", ""),
		EmbedCacheTTL: getDuration(file, "AIDOC_EMBED_CACHE_TTL", 15*time.Minute),
	}

	if cfg.ChunkSizeTokens < 1 {
		cfg.ChunkSizeTokens = 1
	}
	if cfg.ChunkOverlapTokens < 0 {
		cfg.ChunkOverlapTokens = 0
	}
	return cfg
}

// IsDevLike reports whether destructive admin operations are permitted.
func (c Config) IsDevLike() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "development", "local", "test":
		return true
	default:
		return false
	}
}

func loadFileValues(log *logger.Logger) map[string]string {
	path := strings.TrimSpace(os.Getenv("AIDOC_CONFIG_FILE"))
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if log != nil {
			log.Warn("config file unreadable, using env only", "path", path, "error", err)
		}
		return nil
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		if log != nil {
			log.Warn("config file not valid yaml, using env only", "path", path, "error", err)
		}
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func get(file map[string]string, name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	if v, ok := file[name]; ok && v != "" {
		return v
	}
	return def
}

func getInt(file map[string]string, name string, def int) int {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return envutil.Int(name, def)
	}
	if v, ok := file[name]; ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getDuration(file map[string]string, name string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return envutil.Duration(name, def)
	}
	if v, ok := file[name]; ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return def
}

// Describe returns a loggable summary without secrets.
func (c Config) Describe() string {
	return fmt.Sprintf(
		"env=%s qdrant=%s collection=%s bucket=%s embed_model=%s chunk=%d/%d ocr=%s",
		c.Environment, c.QdrantURL, c.QdrantCollection, c.Bucket,
		c.EmbeddingModel, c.ChunkSizeTokens, c.ChunkOverlapTokens, c.OCREngine,
	)
}
