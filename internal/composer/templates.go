package composer

import (
	"fmt"
	"strings"
)

// DefaultTemplate renders a category's promotion. Fields are pre-formatted
// and already escaped for Telegram Markdown, except URL, which is a raw link
// target meant for the parentheses of an inline link.
const DefaultTemplate = `{{.Header}}
🏷️ *Producto:* {{.Title}}
⭐ *Valoración:* {{.Rating}} | 💰 *Precio:* {{.Price}}{{with .ReferencePrice}} (antes {{.}}){{end}}
⚡ *-{{.Discount}}%* de descuento
{{with .Benefit}}✅ {{.}}
{{end}}
🛒 👉 [Consíguelo aquí]({{.URL}})

{{.Hashtags}}`

// UnratedMarker replaces the rating of offers without reviews
const UnratedMarker = "Sin valoraciones"

// UnknownPrice replaces an absent price
const UnknownPrice = "¿?"

// templateData is what category templates are executed against
type templateData struct {
	Header         string
	Category       string
	Title          string
	Rating         string
	Price          string
	ReferencePrice string
	Discount       int
	Benefit        string
	URL            string
	Hashtags       string
}

func defaultHeader(categoryName string) string {
	return fmt.Sprintf("🔥 ¡OFERTA EN %s! 🔥", strings.ToUpper(categoryName))
}

func defaultHashtags(categoryName string) []string {
	return []string{strings.Join(strings.Fields(categoryName), ""), "Fitness", "CholloDelDía"}
}

func sampleData() templateData {
	return templateData{
		Header:         "header",
		Category:       "category",
		Title:          "title",
		Rating:         "4.5/5",
		Price:          "20.00 €",
		ReferencePrice: "40.00 €",
		Discount:       50,
		Benefit:        "benefit",
		URL:            "https://example.com",
		Hashtags:       "#tag",
	}
}
