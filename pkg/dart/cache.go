package dart

import (
	"context"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cache persists a downloaded registry as CSV on disk so repeated runs
// skip the multi-megabyte download while the file is fresh.
type Cache struct {
	Path string
	TTL  time.Duration
}

// Load returns the cached corps and true when the cache file exists and
// is younger than the TTL.
func (c *Cache) Load() ([]Corp, bool, error) {
	info, err := os.Stat(c.Path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "dart: stat cache %s", c.Path)
	}
	if c.TTL > 0 && time.Since(info.ModTime()) > c.TTL {
		return nil, false, nil
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, false, eris.Wrapf(err, "dart: read cache %s", c.Path)
	}

	var corps []Corp
	if err := csvutil.Unmarshal(data, &corps); err != nil {
		return nil, false, eris.Wrap(err, "dart: decode cache csv")
	}
	return corps, true, nil
}

// Save writes corps to the cache file as CSV.
func (c *Cache) Save(corps []Corp) error {
	data, err := csvutil.Marshal(corps)
	if err != nil {
		return eris.Wrap(err, "dart: encode cache csv")
	}
	if err := os.WriteFile(c.Path, data, 0o644); err != nil {
		return eris.Wrapf(err, "dart: write cache %s", c.Path)
	}
	return nil
}

// FetchWithCache returns the registry from cache when fresh, otherwise
// downloads it and refreshes the cache. A nil cache always downloads.
func FetchWithCache(ctx context.Context, client Client, cache *Cache) ([]Corp, error) {
	if cache != nil {
		corps, ok, err := cache.Load()
		if err != nil {
			zap.L().Warn("registry cache unreadable, re-downloading",
				zap.String("path", cache.Path),
				zap.Error(err),
			)
		} else if ok {
			zap.L().Debug("registry loaded from cache",
				zap.String("path", cache.Path),
				zap.Int("corps", len(corps)),
			)
			return corps, nil
		}
	}

	corps, err := client.DownloadCorpCodes(ctx)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Save(corps); err != nil {
			zap.L().Warn("registry cache write failed",
				zap.String("path", cache.Path),
				zap.Error(err),
			)
		}
	}
	return corps, nil
}
