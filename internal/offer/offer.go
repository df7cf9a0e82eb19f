// Package offer normalizes catalog search results into offers and derives
// their discount.
package offer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"sjsage522/promoworker/pkg/errors"
)

// DefaultTitle is used when a catalog item arrives without a title
const DefaultTitle = "Producto fitness"

// RawItem is a catalog search result as delivered by the provider.
// Every field may be empty.
type RawItem struct {
	Title          string `json:"title"`
	Price          string `json:"price,omitempty"`
	ReferencePrice string `json:"reference_price,omitempty"`
	Rating         string `json:"rating,omitempty"`
	URL            string `json:"url"`
	ImageURL       string `json:"image_url,omitempty"`
}

// Offer is a normalized catalog item
type Offer struct {
	Title          string
	CurrentPrice   decimal.NullDecimal
	ReferencePrice decimal.NullDecimal
	Rating         *float64
	URL            string
	ImageURL       string
	Keyword        string
}

// Discount returns the offer's discount percentage
func (o Offer) Discount() int {
	return ComputeDiscount(o.CurrentPrice, o.ReferencePrice)
}

var titlePolicy = bluemonday.StrictPolicy()

// Normalize turns a raw item into an offer. Items without a link cannot be
// published and are reported as malformed; every other missing or unreadable
// field degrades to a default or to absent.
func Normalize(raw RawItem, keyword string) (Offer, error) {
	link := strings.TrimSpace(raw.URL)
	if link == "" {
		return Offer{}, errors.NewMalformedOffer("offer", "item has no url")
	}

	title := cleanTitle(raw.Title)
	if title == "" {
		title = DefaultTitle
	}

	current := ParsePrice(raw.Price)
	if current.Valid && current.Decimal.IsNegative() {
		current = decimal.NullDecimal{}
	}

	return Offer{
		Title:          title,
		CurrentPrice:   current,
		ReferencePrice: ParsePrice(raw.ReferencePrice),
		Rating:         ParseRating(raw.Rating),
		URL:            link,
		ImageURL:       strings.TrimSpace(raw.ImageURL),
		Keyword:        keyword,
	}, nil
}

// cleanTitle strips markup and collapses whitespace
func cleanTitle(title string) string {
	stripped := html.UnescapeString(titlePolicy.Sanitize(title))
	return strings.Join(strings.Fields(stripped), " ")
}
