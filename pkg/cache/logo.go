package cache

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"tapandstamp/pkg/passkit/assets"
	"tapandstamp/utilities"
	"tapandstamp/utilities/http_client"
)

var logoCacheObject *LogoCache

// LogoSource loads raw logo bytes from wherever merchants host them.
type LogoSource interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// LogoCache keeps fetched merchant artwork per URL and branding version.
type LogoCache struct {
	source LogoSource
	store  *cache.Cache
}

func InitLogoCache(ttl time.Duration, source LogoSource) *LogoCache {
	logoCacheObject = NewLogoCache(ttl, source)
	return logoCacheObject
}

func GetLogoCache() *LogoCache {
	return logoCacheObject
}

func NewLogoCache(ttl time.Duration, source LogoSource) *LogoCache {
	return &LogoCache{source: source, store: cache.New(ttl, 2*ttl)}
}

func logoKey(url string, version int) string {
	return fmt.Sprintf("%d|%s", version, url)
}

// FetchLogo serves cached bytes, loading and caching them on a miss. Failures are not cached.
func (c *LogoCache) FetchLogo(ctx context.Context, url string, version int) ([]byte, error) {
	log := utilities.NewLogger("LogoCache.FetchLogo")

	key := logoKey(url, version)
	if v, ok := c.store.Get(key); ok {
		return v.([]byte), nil
	}

	data, err := c.source.Load(ctx, url)
	if err != nil {
		return nil, err
	}

	c.store.SetDefault(key, data)
	log.Debugf("cached %d byte logo for %s", len(data), url)

	return data, nil
}

// Invalidate drops every cached version of url.
func (c *LogoCache) Invalidate(url string) {
	for key := range c.store.Items() {
		if strings.HasSuffix(key, "|"+url) {
			c.store.Delete(key)
		}
	}
}

type HTTPLogoSource struct {
	client         *http.Client
	timeout        time.Duration
	maxSizeInKB    int
	supportedTypes []string
}

func NewHTTPLogoSource(client *http.Client, timeout time.Duration, maxSizeInKB int, supportedTypes []string) *HTTPLogoSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxSizeInKB <= 0 {
		maxSizeInKB = 2048
	}
	return &HTTPLogoSource{client: client, timeout: timeout, maxSizeInKB: maxSizeInKB, supportedTypes: supportedTypes}
}

func (s *HTTPLogoSource) Load(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := http_client.FetchBytes(ctx, s.client, url, int64(s.maxSizeInKB)*1024)
	if err != nil {
		return nil, err
	}

	if assets.IsSVG(url, data) {
		return data, nil
	}

	if _, err := utilities.ValidateImage(data, s.maxSizeInKB, s.supportedTypes); err != nil {
		return nil, fmt.Errorf("logo %s: %w", url, err)
	}

	return data, nil
}
