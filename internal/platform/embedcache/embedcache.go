// Package embedcache caches query embeddings in redis so repeated questions
// skip the embedding round trip. The cache is optional; a nil *Cache is a
// no-op everywhere.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/ctxutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

const keyPrefix = "embed:"

type Cache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func New(log *logger.Logger, addr string, ttl time.Duration) (*Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("Embedding cache initialized", "addr", addr, "ttl", ttl.String())

	return &Cache{
		log: log.With("service", "EmbedCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

// Get returns a cached vector for (model, text), or false on a miss. Cache
// failures are treated as misses.
func (c *Cache) Get(ctx context.Context, model, text string) ([]float32, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctxutil.Default(ctx), Key(model, text)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("embed cache get failed", "error", err)
		}
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		c.log.Warn("embed cache decode failed", "error", err)
		return nil, false
	}
	if len(vec) == 0 {
		return nil, false
	}
	return vec, true
}

// Set stores a vector, best effort.
func (c *Cache) Set(ctx context.Context, model, text string, vec []float32) {
	if c == nil || c.rdb == nil || len(vec) == 0 {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctxutil.Default(ctx), Key(model, text), raw, c.ttl).Err(); err != nil {
		c.log.Warn("embed cache set failed", "error", err)
	}
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Key hashes (model, text) so arbitrary question text never becomes a raw
// redis key.
func Key(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
