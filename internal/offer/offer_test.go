package offer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/promoworker/pkg/errors"
)

func price(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestComputeDiscount(t *testing.T) {
	absent := decimal.NullDecimal{}

	testCases := []struct {
		name      string
		current   decimal.NullDecimal
		reference decimal.NullDecimal
		expected  int
	}{
		{"half price", price("20"), price("40"), 50},
		{"small saving", price("18"), price("20"), 10},
		{"rounds up", price("66.50"), price("100"), 34},
		{"rounds down", price("66.60"), price("100"), 33},
		{"free item", price("0"), price("25"), 100},
		{"reference equals current", price("20"), price("20"), 0},
		{"reference below current", price("30"), price("20"), 0},
		{"missing current", absent, price("40"), 0},
		{"missing reference", price("20"), absent, 0},
		{"both missing", absent, absent, 0},
		{"negative current", price("-5"), price("40"), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeDiscount(tc.current, tc.reference))
		})
	}
}

func TestComputeDiscountRange(t *testing.T) {
	// Any reference above a non-negative current yields the rounded reduction in [0,100]
	for cur := 0; cur < 200; cur += 7 {
		for ref := cur + 1; ref < 220; ref += 13 {
			got := ComputeDiscount(price(decimal.NewFromInt(int64(cur)).String()), price(decimal.NewFromInt(int64(ref)).String()))
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)

			expected := decimal.NewFromInt(int64(ref - cur)).
				Div(decimal.NewFromInt(int64(ref))).
				Mul(decimal.NewFromInt(100)).
				Round(0).
				IntPart()
			assert.Equal(t, int(expected), got)
		}
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"20", "20"},
		{"19,99 €", "19.99"},
		{"€19.99", "19.99"},
		{"$1,299.00", "1299"},
		{"1.234,50 €", "1234.5"},
		{"1,299", "1299"},
		{"1.299.000", "1299000"},
		{"1.299 €", "1299"},
		{"19.99", "19.99"},
		{"4.5", "4.5"},
		{"0.500", "0.5"},
		{"Precio: 45,5€", "45.5"},
		{"20.", "20"},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got := ParsePrice(tc.input)
			require.True(t, got.Valid)
			assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tc.expected)), "got %s", got.Decimal)
		})
	}

	for _, input := range []string{"", "N/A", "gratis", "€"} {
		assert.False(t, ParsePrice(input).Valid, input)
	}
}

func TestParseRating(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
	}{
		{"4.5", 4.5},
		{"4,5 de 5 estrellas", 4.5},
		{"4.7 out of 5 stars", 4.7},
		{"7", 5},
		{"0", 0},
	}

	for _, tc := range testCases {
		rating := ParseRating(tc.input)
		require.NotNil(t, rating, tc.input)
		assert.InDelta(t, tc.expected, *rating, 0.0001, tc.input)
	}

	assert.Nil(t, ParseRating(""))
	assert.Nil(t, ParseRating("sin valoraciones"))
}

func TestNormalize(t *testing.T) {
	raw := RawItem{
		Title:          "  <b>Creatina</b>   Monohidrato &amp; Taurina ",
		Price:          "20,00 €",
		ReferencePrice: "40,00 €",
		Rating:         "4,5 de 5 estrellas",
		URL:            " https://www.amazon.es/dp/B000TEST ",
		ImageURL:       "https://m.media-amazon.com/images/I/test.jpg",
	}

	o, err := Normalize(raw, "creatina")
	require.NoError(t, err)

	assert.Equal(t, "Creatina Monohidrato & Taurina", o.Title)
	assert.True(t, o.CurrentPrice.Decimal.Equal(decimal.NewFromInt(20)))
	assert.True(t, o.ReferencePrice.Decimal.Equal(decimal.NewFromInt(40)))
	require.NotNil(t, o.Rating)
	assert.Equal(t, 4.5, *o.Rating)
	assert.Equal(t, "https://www.amazon.es/dp/B000TEST", o.URL)
	assert.Equal(t, "creatina", o.Keyword)
	assert.Equal(t, 50, o.Discount())
}

func TestNormalizeDefaults(t *testing.T) {
	o, err := Normalize(RawItem{URL: "https://shop.example/p/1", Price: "consultar"}, "pesas")
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, o.Title)
	assert.False(t, o.CurrentPrice.Valid)
	assert.False(t, o.ReferencePrice.Valid)
	assert.Nil(t, o.Rating)
	assert.Empty(t, o.ImageURL)
	assert.Equal(t, 0, o.Discount())
}

func TestNormalizeRejectsMissingURL(t *testing.T) {
	_, err := Normalize(RawItem{Title: "Mancuernas 10kg", Price: "30"}, "mancuernas")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeMalformedOffer, errors.KindOf(err))
}
