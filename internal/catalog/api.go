package catalog

import (
	"context"
	"io"

	"github.com/tidwall/gjson"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/internal/offer"
	"sjsage522/promoworker/pkg/errors"
)

// APIClient searches a JSON catalog API
type APIClient struct {
	baseClient
	cfg config.APISourceConfig
}

// NewAPIClient creates a client for a JSON search API
func NewAPIClient(cfg config.APISourceConfig, opts Options) (*APIClient, error) {
	if cfg.Source == "" {
		cfg.Source = config.CatalogAPI
	}
	if cfg.URLTemplate == "" {
		return nil, errors.NewConfiguration("api catalog has no url_template", nil)
	}
	if cfg.Fields.URL == "" {
		return nil, errors.NewConfiguration("api catalog has no url field path", nil)
	}

	return &APIClient{
		baseClient: newBaseClient(cfg.Source, cfg.TimeoutSeconds, opts),
		cfg:        cfg,
	}, nil
}

// Search queries the API and maps up to limit items through the field paths.
// A response without the items path yields no items.
func (c *APIClient) Search(ctx context.Context, keyword string, limit int) ([]offer.RawItem, error) {
	headers := map[string]string{"Accept": "application/json"}
	for k, v := range c.cfg.Headers {
		headers[k] = v
	}

	body, err := c.fetchWithCache(ctx, expandTemplate(c.cfg.URLTemplate, keyword, limit), headers)
	if err != nil {
		return nil, errors.NewSearch(c.source, keyword, err)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.NewSearch(c.source, keyword, errors.NewNetwork(c.source, "failed to read response", err))
	}
	if !gjson.ValidBytes(data) {
		return nil, errors.NewSearch(c.source, keyword, errors.NewParsing(c.source, "response is not valid JSON", nil))
	}

	items := gjson.ParseBytes(data)
	if c.cfg.ItemsPath != "" {
		items = items.Get(c.cfg.ItemsPath)
	}
	if !items.Exists() || items.Type == gjson.Null {
		c.log.Debug().Str("keyword", keyword).Msg("No items in response")
		return nil, nil
	}
	if !items.IsArray() {
		return nil, errors.NewSearch(c.source, keyword, errors.NewParsing(c.source, "items path is not an array", nil))
	}

	var out []offer.RawItem
	items.ForEach(func(_, item gjson.Result) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		fields := c.cfg.Fields
		out = append(out, offer.RawItem{
			Title:          field(item, fields.Title),
			Price:          field(item, fields.Price),
			ReferencePrice: field(item, fields.ReferencePrice),
			Rating:         field(item, fields.Rating),
			URL:            field(item, fields.URL),
			ImageURL:       field(item, fields.Image),
		})
		return true
	})

	c.log.Debug().Str("keyword", keyword).Int("items", len(out)).Msg("Search completed")
	return out, nil
}

// field reads path from item. Numbers keep their raw text so prices are
// not rounded through float64.
func field(item gjson.Result, path string) string {
	if path == "" {
		return ""
	}
	r := item.Get(path)
	switch {
	case !r.Exists(), r.Type == gjson.Null:
		return ""
	case r.Type == gjson.Number:
		return r.Raw
	default:
		return r.String()
	}
}
