package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/testament/internal/model"
)

// Cache stores model replies keyed by the conversation that produced them
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from the parts of a model request. Parts are
// length-prefixed so ("ab","c") and ("a","bc") never collide.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var size [8]byte
		n := len(p)
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}
		h.Write(size[:])
		h.Write([]byte(p))
	}
	return "testament:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by cfg: layered memory and disk when
// enabled, memory only without a directory, and a no-op otherwise
func New(cfg model.CacheConfig) Cache {
	switch {
	case !cfg.Enabled:
		return Noop{}
	case strings.TrimSpace(cfg.Dir) == "":
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	default:
		return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
	}
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)               { return nil, false }
func (Noop) Set(string, []byte, time.Duration) error { return nil }
func (Noop) Delete(string) error                     { return nil }
func (Noop) Clear() error                            { return nil }
