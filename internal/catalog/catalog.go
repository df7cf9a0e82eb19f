// Package catalog searches product catalogs by keyword.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/helpers"
	"sjsage522/promoworker/internal/offer"
	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/pkg/errors"
	"sjsage522/promoworker/services/cache"
)

const defaultTimeout = 10 * time.Second

// Client searches a catalog for items matching a keyword. Implementations
// return at most limit items, in catalog order.
type Client interface {
	Search(ctx context.Context, keyword string, limit int) ([]offer.RawItem, error)
	Source() string
}

// Options tune a catalog client's outbound traffic
type Options struct {
	// RPS caps requests per second; zero or less disables the cap
	RPS float64
	// Cache holds the block key set after a rate limited response; nil disables blocking
	Cache cache.CacheService
	// BlockTime is how long to stop searching after a rate limited response
	BlockTime time.Duration
	// HTTPClient overrides the client built from the source timeout
	HTTPClient *http.Client
}

// baseClient provides request pacing and rate limit blocking shared by
// every catalog client
type baseClient struct {
	source    string
	client    *http.Client
	limiter   *rate.Limiter
	cacheSvc  cache.CacheService
	blockKey  string
	blockTime time.Duration
	log       *logger.Logger
}

func newBaseClient(source string, timeoutSeconds int, opts Options) baseClient {
	client := opts.HTTPClient
	if client == nil {
		timeout := defaultTimeout
		if timeoutSeconds > 0 {
			timeout = time.Duration(timeoutSeconds) * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}

	return baseClient{
		source:    source,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		cacheSvc:  opts.Cache,
		blockKey:  BlockKey(source),
		blockTime: opts.BlockTime,
		log:       logger.ForCatalog(source),
	}
}

// BlockKey returns the cache key marking a source as rate limited
func BlockKey(source string) string {
	return "catalog:" + source + ":blocked"
}

// Source returns the catalog source name
func (c *baseClient) Source() string {
	return c.source
}

// fetchWithCache fetches target unless the source is blocked. A rate
// limited response blocks the source for the longer of the block time and
// the server's Retry-After.
func (c *baseClient) fetchWithCache(ctx context.Context, target string, headers map[string]string) (io.Reader, error) {
	if remaining, blocked := c.blocked(); blocked {
		return nil, errors.NewRateLimit(c.source, remaining)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewNetwork(c.source, "request pacing interrupted", err)
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, c.client, target, headers)
	if err != nil {
		if errors.Is(err, errors.ErrorTypeRateLimit) {
			c.block(errors.RetryAfterOf(err))
		}
		return nil, err
	}
	return body, nil
}

func (c *baseClient) blocked() (time.Duration, bool) {
	if c.cacheSvc == nil {
		return 0, false
	}
	value, err := c.cacheSvc.Get(c.blockKey)
	if err != nil {
		return 0, false
	}
	until, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return c.blockTime, true
	}
	remaining := time.Until(time.Unix(until, 0))
	if remaining <= 0 {
		return 0, false
	}
	return remaining.Round(time.Second), true
}

func (c *baseClient) block(retryAfter time.Duration) {
	if c.cacheSvc == nil {
		return
	}
	d := c.blockTime
	if retryAfter > d {
		d = retryAfter
	}
	if d <= 0 {
		return
	}
	until := time.Now().Add(d).Unix()
	if err := c.cacheSvc.Set(c.blockKey, []byte(strconv.FormatInt(until, 10)), d); err != nil {
		logger.LogError("catalog", errors.NewCache(c.source, "failed to set block key", err), "Could not block %s", c.source)
		return
	}
	c.log.Warn().Dur("block_time", d).Msg("Rate limited, blocking source")
}

// expandTemplate substitutes {keyword} and {limit} in a search URL
func expandTemplate(tmpl, keyword string, limit int) string {
	return strings.NewReplacer(
		"{keyword}", url.QueryEscape(keyword),
		"{limit}", strconv.Itoa(limit),
	).Replace(tmpl)
}

// ResolveURL resolves ref against base. Absolute refs and unparsable
// input are returned unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// New builds the catalog client selected by CATALOG_KIND
func New(cfg *config.Config, file *config.CatalogFile, cacheSvc cache.CacheService) (Client, error) {
	opts := Options{
		RPS:       cfg.CatalogRPS,
		Cache:     cacheSvc,
		BlockTime: cfg.CatalogBlockTime,
	}

	switch cfg.CatalogKind {
	case config.CatalogAPI:
		return NewAPIClient(file.Catalog.API, opts)
	case config.CatalogHTML:
		return NewHTMLClient(file.Catalog.HTML, opts)
	default:
		return nil, errors.NewConfiguration(fmt.Sprintf("unknown catalog kind %q", cfg.CatalogKind), nil)
	}
}
