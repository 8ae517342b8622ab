package app

import (
	"fmt"
	"strings"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion/chunker"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion/extract"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/docai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/embedcache"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/objectstore"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

type Clients struct {
	Index      *qdrant.Index
	AI         openai.Client
	Store      objectstore.Store
	EmbedCache *embedcache.Cache
	DocAI      docai.Processor
	Extractor  *extract.Extractor
	Chunker    *chunker.Chunker
}

func wireClients(log *logger.Logger, cfg config.Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Qdrant
	index, err := qdrant.NewIndex(log, qdrant.Config{
		URL:        cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		Collection: cfg.QdrantCollection,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init qdrant index: %w", err)
	}

	// Openai
	aiCfg := openai.ConfigFromEnv()
	if cfg.CompletionModel != "" {
		aiCfg.Model = cfg.CompletionModel
	}
	if cfg.EmbeddingModel != "" {
		aiCfg.EmbedModel = cfg.EmbeddingModel
	}
	ai, err := openai.NewClient(log, aiCfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Object storage
	storeCfg, err := objectstore.ResolveConfigFromEnv(cfg.Bucket)
	if err != nil {
		return Clients{}, fmt.Errorf("resolve object storage config: %w", err)
	}
	store, err := objectstore.NewStore(log, storeCfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init object storage: %w", err)
	}

	// Redis embedding cache (optional)
	var cache *embedcache.Cache
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		c, err := embedcache.New(log, cfg.RedisAddr, cfg.EmbedCacheTTL)
		if err != nil {
			return Clients{}, fmt.Errorf("init embedding cache: %w", err)
		}
		cache = c
	}

	// OCR + extraction
	ocr, proc, err := wireOCR(log, cfg)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return Clients{}, err
	}
	extractor := extract.New(log, ocr)

	// Tokenizer + chunker
	tok, err := chunker.NewTokenizer(cfg.EmbeddingModel)
	if err != nil {
		if proc != nil {
			_ = proc.Close()
		}
		if cache != nil {
			_ = cache.Close()
		}
		return Clients{}, fmt.Errorf("init tokenizer: %w", err)
	}

	return Clients{
		Index:      index,
		AI:         ai,
		Store:      store,
		EmbedCache: cache,
		DocAI:      proc,
		Extractor:  extractor,
		Chunker:    chunker.New(tok, cfg.ChunkSizeTokens, cfg.ChunkOverlapTokens),
	}, nil
}

// wireOCR picks the OCR engine scanned pages fall back to. The Document AI
// processor is returned separately so Close can release its grpc conn.
func wireOCR(log *logger.Logger, cfg config.Config) (extract.OCREngine, docai.Processor, error) {
	switch cfg.OCREngine {
	case "", "tesseract":
		return extract.NewTesseractEngine(log), nil, nil
	case "docai":
		docCfg := docai.ConfigFromEnv()
		if !docCfg.Complete() {
			return nil, nil, fmt.Errorf("docai OCR selected but DOCUMENTAI_PROJECT_ID/DOCUMENTAI_PROCESSOR_ID not set")
		}
		proc, err := docai.NewProcessor(log, docCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("init docai client: %w", err)
		}
		return extract.NewDocAIEngine(log, proc), proc, nil
	case "off", "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown OCR engine %q", cfg.OCREngine)
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.EmbedCache != nil {
		_ = c.EmbedCache.Close()
	}
	if c.DocAI != nil {
		_ = c.DocAI.Close()
	}
}
