// Package composer renders offers into channel messages and applies the
// discount and rating gate.
package composer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"sjsage522/promoworker/internal/classifier"
	"sjsage522/promoworker/internal/offer"
	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/pkg/errors"
	"sjsage522/promoworker/services/publisher"
)

// DefaultMinDiscountPercent is the discount an offer needs to be posted
const DefaultMinDiscountPercent = 30

// Policy holds the publishing thresholds
type Policy struct {
	MinDiscountPercent int
	MinRating          *float64
}

// DefaultPolicy returns the default thresholds
func DefaultPolicy() Policy {
	return Policy{MinDiscountPercent: DefaultMinDiscountPercent}
}

// Allows reports whether an offer passes the thresholds. An unrated offer
// fails any minimum rating.
func (p Policy) Allows(o offer.Offer) bool {
	if o.Discount() < p.MinDiscountPercent {
		return false
	}
	if p.MinRating != nil && (o.Rating == nil || *o.Rating < *p.MinRating) {
		return false
	}
	return true
}

type categoryFormat struct {
	tmpl     *template.Template
	header   string
	benefit  string
	hashtags string
}

// Composer renders offers with per-category templates
type Composer struct {
	formats  map[string]categoryFormat
	fallback categoryFormat
	currency string
}

// New parses every category template and checks that no two categories
// render with the same header and hashtags
func New(categories []classifier.Category, currencySymbol string) (*Composer, error) {
	c := &Composer{
		formats:  make(map[string]categoryFormat),
		currency: currencySymbol,
	}

	signatures := make(map[string]string)
	for _, cat := range categories {
		format, err := newFormat(cat)
		if err != nil {
			return nil, err
		}
		sig := format.header + "\x00" + format.hashtags
		if other, dup := signatures[sig]; dup {
			return nil, errors.NewConfiguration(fmt.Sprintf("categories %q and %q share header and hashtags", other, cat.Name), nil)
		}
		signatures[sig] = cat.Name
		c.formats[cat.Name] = format
	}

	fallback, err := newFormat(classifier.Category{Name: classifier.DefaultFallbackName})
	if err != nil {
		return nil, err
	}
	c.fallback = fallback

	return c, nil
}

func newFormat(cat classifier.Category) (categoryFormat, error) {
	text := cat.Template
	if strings.TrimSpace(text) == "" {
		text = DefaultTemplate
	}
	tmpl, err := template.New(cat.Name).Parse(text)
	if err != nil {
		return categoryFormat{}, errors.NewConfiguration(fmt.Sprintf("template for category %q", cat.Name), err)
	}
	// Catch references to unknown fields before the first run
	if err := tmpl.Execute(&bytes.Buffer{}, sampleData()); err != nil {
		return categoryFormat{}, errors.NewConfiguration(fmt.Sprintf("template for category %q", cat.Name), err)
	}

	header := cat.Header
	if header == "" {
		header = defaultHeader(cat.Name)
	}
	hashtags := cat.Hashtags
	if len(hashtags) == 0 {
		hashtags = defaultHashtags(cat.Name)
	}

	return categoryFormat{
		tmpl:     tmpl,
		header:   header,
		benefit:  cat.Benefit,
		hashtags: formatHashtags(hashtags),
	}, nil
}

// Compose renders the offer for its category. It returns false when the
// offer does not pass the policy.
func (c *Composer) Compose(o offer.Offer, cat classifier.Category, policy Policy) (publisher.Message, bool) {
	if !policy.Allows(o) {
		return publisher.Message{}, false
	}

	format, ok := c.formats[cat.Name]
	if !ok {
		format = c.fallback
	}

	data := templateData{
		Header:   format.header,
		Category: cat.Name,
		Title:    escape(o.Title),
		Rating:   formatRating(o.Rating),
		Price:    c.formatPrice(o.CurrentPrice),
		Discount: o.Discount(),
		Benefit:  format.benefit,
		URL:      linkTarget(o.URL),
		Hashtags: format.hashtags,
	}
	if o.ReferencePrice.Valid {
		data.ReferencePrice = c.formatPrice(o.ReferencePrice)
	}

	var buf bytes.Buffer
	if err := format.tmpl.Execute(&buf, data); err != nil {
		logger.ForPipeline().Warn().Err(err).Str("category", cat.Name).Msg("Template execution failed")
		return publisher.Message{}, false
	}

	return publisher.Message{
		Text:     strings.TrimSpace(buf.String()),
		ImageURL: o.ImageURL,
	}, true
}

func (c *Composer) formatPrice(p decimal.NullDecimal) string {
	if !p.Valid {
		return UnknownPrice
	}
	if c.currency == "" {
		return p.Decimal.StringFixed(2)
	}
	return p.Decimal.StringFixed(2) + " " + c.currency
}

func formatRating(r *float64) string {
	if r == nil {
		return UnratedMarker
	}
	return strconv.FormatFloat(*r, 'f', 1, 64) + "/5"
}

func formatHashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
		if tag == "" {
			continue
		}
		out = append(out, "#"+escape(tag))
	}
	return strings.Join(out, " ")
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// linkTarget keeps a URL verbatim inside a Markdown inline link. Only a
// closing parenthesis would end the link early.
func linkTarget(u string) string {
	return strings.ReplaceAll(u, ")", "%29")
}
