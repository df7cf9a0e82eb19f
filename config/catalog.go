package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sjsage522/promoworker/pkg/errors"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// CatalogFile is the static catalog and category table
type CatalogFile struct {
	Catalog    CatalogSources   `yaml:"catalog"`
	Categories []CategoryConfig `yaml:"categories"`
}

// CatalogSources holds the settings for each catalog kind
type CatalogSources struct {
	API  APISourceConfig  `yaml:"api"`
	HTML HTMLSourceConfig `yaml:"html"`
}

// APISourceConfig describes a JSON search API. Fields are gjson paths
// relative to a single item.
type APISourceConfig struct {
	Source         string            `yaml:"source"`
	URLTemplate    string            `yaml:"url_template"` // {keyword} and {limit} are substituted
	Headers        map[string]string `yaml:"headers,omitempty"`
	ItemsPath      string            `yaml:"items_path"`
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
	Fields         APIFieldPaths     `yaml:"fields"`
}

// APIFieldPaths maps offer fields to gjson paths
type APIFieldPaths struct {
	Title          string `yaml:"title"`
	Price          string `yaml:"price"`
	ReferencePrice string `yaml:"reference_price,omitempty"`
	Rating         string `yaml:"rating,omitempty"`
	URL            string `yaml:"url"`
	Image          string `yaml:"image,omitempty"`
}

// HTMLSourceConfig describes a search results page scraped with CSS selectors
type HTMLSourceConfig struct {
	Source         string            `yaml:"source"`
	SearchURL      string            `yaml:"search_url"` // {keyword} and {limit} are substituted
	BaseURL        string            `yaml:"base_url"`
	TimeoutSeconds int               `yaml:"timeout_seconds,omitempty"`
	Selectors      HTMLSelectors     `yaml:"selectors"`
	Headers        map[string]string `yaml:"headers,omitempty"`
}

// HTMLSelectors contains CSS selectors for a search results page
type HTMLSelectors struct {
	Item           string `yaml:"item"`
	Title          string `yaml:"title"`
	Link           string `yaml:"link"`
	Price          string `yaml:"price"`
	ReferencePrice string `yaml:"reference_price,omitempty"`
	Rating         string `yaml:"rating,omitempty"`
	RatingAttr     string `yaml:"rating_attr,omitempty"`
	Image          string `yaml:"image,omitempty"`
}

// CategoryConfig is one keyword category with its message presentation
type CategoryConfig struct {
	Name     string   `yaml:"name"`
	Slug     string   `yaml:"slug,omitempty"`
	Fallback bool     `yaml:"fallback,omitempty"`
	Keywords []string `yaml:"keywords"`
	Header   string   `yaml:"header,omitempty"`
	Benefit  string   `yaml:"benefit,omitempty"`
	Hashtags []string `yaml:"hashtags,omitempty"`
	Template string   `yaml:"template,omitempty"`
}

// LoadCatalog reads the catalog file at path, or the embedded default when
// path is empty. Environment variables in the file are expanded.
func LoadCatalog(path string) (*CatalogFile, error) {
	data := defaultCatalogYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, errors.NewConfiguration(fmt.Sprintf("read catalog file %s", path), err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog parses catalog YAML after expanding environment variables
func ParseCatalog(data []byte) (*CatalogFile, error) {
	expanded := os.ExpandEnv(string(data))

	var file CatalogFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, errors.NewConfiguration("parse catalog file", err)
	}
	if len(file.Categories) == 0 {
		return nil, errors.NewConfiguration("catalog file declares no categories", nil)
	}
	return &file, nil
}
