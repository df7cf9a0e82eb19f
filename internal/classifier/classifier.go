// Package classifier maps product titles to keyword categories.
package classifier

import (
	"fmt"
	"strings"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/pkg/errors"
)

// DefaultFallbackName names the category appended when none is declared as fallback
const DefaultFallbackName = "Otros"

// Category is one classification bucket. Keywords keep their configured
// order and are stored lowercased.
type Category struct {
	Name     string
	Slug     string
	Keywords []string
	Fallback bool
	Header   string
	Benefit  string
	Hashtags []string
	Template string
}

// Matches reports whether any keyword is a substring of the lowercased title
func (c Category) Matches(normalizedTitle string) bool {
	for _, kw := range c.Keywords {
		if strings.Contains(normalizedTitle, kw) {
			return true
		}
	}
	return false
}

// Classifier tests categories in priority order
type Classifier struct {
	categories []Category
	fallback   Category
}

// New validates the categories and builds a classifier. Order is priority.
func New(categories []Category) (*Classifier, error) {
	seen := make(map[string]bool)
	c := &Classifier{}
	fallbackIdx := -1

	for i, cat := range categories {
		cat.Name = strings.TrimSpace(cat.Name)
		if cat.Name == "" {
			return nil, errors.NewConfiguration(fmt.Sprintf("category %d has no name", i), nil)
		}
		key := strings.ToLower(cat.Name)
		if seen[key] {
			return nil, errors.NewConfiguration(fmt.Sprintf("duplicate category %q", cat.Name), nil)
		}
		seen[key] = true

		if cat.Slug == "" {
			cat.Slug = slugify(cat.Name)
		}
		cat.Keywords = normalizeKeywords(cat.Keywords)
		if len(cat.Keywords) == 0 && !cat.Fallback {
			return nil, errors.NewConfiguration(fmt.Sprintf("category %q has no keywords", cat.Name), nil)
		}
		if cat.Fallback {
			if fallbackIdx >= 0 {
				return nil, errors.NewConfiguration(fmt.Sprintf("categories %q and %q are both fallbacks", categories[fallbackIdx].Name, cat.Name), nil)
			}
			fallbackIdx = i
			c.fallback = cat
		}
		c.categories = append(c.categories, cat)
	}

	if fallbackIdx < 0 {
		c.fallback = Category{
			Name:     DefaultFallbackName,
			Slug:     slugify(DefaultFallbackName),
			Fallback: true,
		}
		if seen[strings.ToLower(DefaultFallbackName)] {
			c.fallback.Name = "Other"
			c.fallback.Slug = "other"
		}
		c.categories = append(c.categories, c.fallback)
	}

	return c, nil
}

// FromConfig converts the category table of a catalog file
func FromConfig(cfgs []config.CategoryConfig) (*Classifier, error) {
	categories := make([]Category, 0, len(cfgs))
	for _, cc := range cfgs {
		categories = append(categories, Category{
			Name:     cc.Name,
			Slug:     cc.Slug,
			Keywords: cc.Keywords,
			Fallback: cc.Fallback,
			Header:   cc.Header,
			Benefit:  cc.Benefit,
			Hashtags: cc.Hashtags,
			Template: cc.Template,
		})
	}
	return New(categories)
}

// Classify returns the first category, in priority order, with a keyword
// contained in title, or the fallback category
func (c *Classifier) Classify(title string) Category {
	normalized := strings.ToLower(title)
	for _, cat := range c.categories {
		if cat.Matches(normalized) {
			return cat
		}
	}
	return c.fallback
}

// Categories returns the categories in priority order, fallback included
func (c *Classifier) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Fallback returns the fallback category
func (c *Classifier) Fallback() Category {
	return c.fallback
}

func normalizeKeywords(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteRune('-')
			}
		case strings.ContainsRune("áàä", r):
			b.WriteRune('a')
		case strings.ContainsRune("éèë", r):
			b.WriteRune('e')
		case strings.ContainsRune("íìï", r):
			b.WriteRune('i')
		case strings.ContainsRune("óòö", r):
			b.WriteRune('o')
		case strings.ContainsRune("úùü", r):
			b.WriteRune('u')
		case r == 'ñ':
			b.WriteRune('n')
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
