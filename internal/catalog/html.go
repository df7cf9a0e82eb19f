package catalog

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/internal/offer"
	"sjsage522/promoworker/pkg/errors"
)

// imageAttrs are tried in order; lazy loaded images keep the real source
// in a data attribute
var imageAttrs = []string{"data-src", "data-lazy-src", "src"}

// HTMLClient scrapes a search results page with CSS selectors
type HTMLClient struct {
	baseClient
	cfg config.HTMLSourceConfig
}

// NewHTMLClient creates a client for a search results page
func NewHTMLClient(cfg config.HTMLSourceConfig, opts Options) (*HTMLClient, error) {
	if cfg.Source == "" {
		cfg.Source = config.CatalogHTML
	}
	if cfg.SearchURL == "" {
		return nil, errors.NewConfiguration("html catalog has no search_url", nil)
	}
	if cfg.Selectors.Item == "" || cfg.Selectors.Link == "" {
		return nil, errors.NewConfiguration("html catalog needs item and link selectors", nil)
	}

	return &HTMLClient{
		baseClient: newBaseClient(cfg.Source, cfg.TimeoutSeconds, opts),
		cfg:        cfg,
	}, nil
}

// Search fetches the results page and extracts up to limit items
func (c *HTMLClient) Search(ctx context.Context, keyword string, limit int) ([]offer.RawItem, error) {
	body, err := c.fetchWithCache(ctx, expandTemplate(c.cfg.SearchURL, keyword, limit), c.cfg.Headers)
	if err != nil {
		return nil, errors.NewSearch(c.source, keyword, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errors.NewSearch(c.source, keyword, errors.NewParsing(c.source, "failed to parse HTML", err))
	}

	var out []offer.RawItem
	doc.Find(c.cfg.Selectors.Item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		out = append(out, c.processItem(s))
		return true
	})

	c.log.Debug().Str("keyword", keyword).Int("items", len(out)).Msg("Search completed")
	return out, nil
}

// processItem extracts one result. Missing elements leave fields empty.
func (c *HTMLClient) processItem(s *goquery.Selection) offer.RawItem {
	sel := c.cfg.Selectors
	item := offer.RawItem{
		Price:          text(s, sel.Price),
		ReferencePrice: text(s, sel.ReferencePrice),
	}

	if sel.Title != "" {
		titleSel := s.Find(sel.Title).First()
		if attr, ok := titleSel.Attr("title"); ok && strings.TrimSpace(attr) != "" {
			item.Title = attr
		} else {
			item.Title = titleSel.Text()
		}
	}

	if href, ok := s.Find(sel.Link).First().Attr("href"); ok {
		item.URL = ResolveURL(c.cfg.BaseURL, href)
	}

	if sel.Rating != "" {
		ratingSel := s.Find(sel.Rating).First()
		if attr, ok := ratingSel.Attr(sel.RatingAttr); sel.RatingAttr != "" && ok {
			item.Rating = attr
		} else {
			item.Rating = strings.TrimSpace(ratingSel.Text())
		}
	}

	if sel.Image != "" {
		imgSel := s.Find(sel.Image).First()
		for _, attr := range imageAttrs {
			if src, ok := imgSel.Attr(attr); ok && strings.TrimSpace(src) != "" {
				item.ImageURL = ResolveURL(c.cfg.BaseURL, src)
				break
			}
		}
	}

	return item
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}
