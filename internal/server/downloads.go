package server

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/mhorvat/xapiport/internal/common"
)

// downloadEntry points one opaque token at a generated export file.
type downloadEntry struct {
	Path     string
	Endpoint string
	Format   string
}

// downloadRegistry maps download tokens to temp files. Entries expire after
// the configured TTL and eviction removes the file from disk, so abandoned
// exports cannot pile up.
type downloadRegistry struct {
	cache  *ttlcache.Cache[string, downloadEntry]
	logger *common.Logger
}

func newDownloadRegistry(logger *common.Logger, ttl time.Duration) *downloadRegistry {
	cache := ttlcache.New[string, downloadEntry](
		ttlcache.WithTTL[string, downloadEntry](ttl),
	)

	r := &downloadRegistry{cache: cache, logger: logger}

	cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, downloadEntry]) {
		entry := item.Value()
		if reason == ttlcache.EvictionReasonExpired {
			if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
				logger.Warn().Str("path", entry.Path).Err(err).Msg("Failed to remove expired export file")
			} else {
				logger.Debug().Str("path", entry.Path).Msg("Expired export file removed")
			}
		}
	})

	go cache.Start()
	return r
}

// Add registers a generated file and returns its download token.
func (r *downloadRegistry) Add(entry downloadEntry) string {
	token := uuid.New().String()
	r.cache.Set(token, entry, ttlcache.DefaultTTL)
	return token
}

// Take resolves and removes a token. The caller owns the file afterwards.
func (r *downloadRegistry) Take(token string) (downloadEntry, bool) {
	item := r.cache.Get(token)
	if item == nil {
		return downloadEntry{}, false
	}
	entry := item.Value()
	r.cache.Delete(token)
	return entry, true
}

// Stop terminates the expiry loop.
func (r *downloadRegistry) Stop() {
	r.cache.Stop()
}
