package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/pkg/errors"
)

func testCategories() []Category {
	return []Category{
		{Name: "Suplementación", Keywords: []string{"Creatina", "proteína", "BCAA"}},
		{Name: "Equipamiento", Keywords: []string{"pesas", "mancuernas", "barra"}},
		{Name: "Otros", Fallback: true},
	}
}

func TestClassify(t *testing.T) {
	c, err := New(testCategories())
	require.NoError(t, err)

	testCases := []struct {
		title    string
		expected string
	}{
		{"CREATINA Monohidrato 500g", "Suplementación"},
		{"Set de Mancuernas ajustables 20kg", "Equipamiento"},
		{"Proteína whey sabor chocolate", "Suplementación"},
		{"Esterilla de yoga antideslizante", "Otros"},
		{"", "Otros"},
		// Both categories match: priority order decides
		{"Pack pesas + creatina de regalo", "Suplementación"},
		{"Barra con BCAA", "Suplementación"},
	}

	for _, tc := range testCases {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Classify(tc.title).Name)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c, err := New(testCategories())
	require.NoError(t, err)

	title := "Pack pesas + creatina"
	first := c.Classify(title)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first.Name, c.Classify(title).Name)
	}
}

func TestPriorityFollowsConfiguredOrder(t *testing.T) {
	cats := testCategories()
	cats[0], cats[1] = cats[1], cats[0]
	c, err := New(cats)
	require.NoError(t, err)

	assert.Equal(t, "Equipamiento", c.Classify("Pack pesas + creatina").Name)
}

func TestNewAppendsFallback(t *testing.T) {
	c, err := New([]Category{{Name: "Cardio", Keywords: []string{"comba"}}})
	require.NoError(t, err)

	assert.Equal(t, DefaultFallbackName, c.Fallback().Name)
	assert.Equal(t, "otros", c.Fallback().Slug)
	assert.Len(t, c.Categories(), 2)
	assert.Equal(t, DefaultFallbackName, c.Classify("Zapatillas").Name)
}

func TestNewValidation(t *testing.T) {
	testCases := []struct {
		name       string
		categories []Category
	}{
		{"missing name", []Category{{Keywords: []string{"x"}}}},
		{"duplicate name", []Category{{Name: "A", Keywords: []string{"x"}}, {Name: "a", Keywords: []string{"y"}}}},
		{"no keywords", []Category{{Name: "A", Keywords: []string{" ", ""}}}},
		{"two fallbacks", []Category{{Name: "A", Fallback: true}, {Name: "B", Fallback: true}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.categories)
			require.Error(t, err)
			assert.Equal(t, errors.ErrorTypeConfiguration, errors.KindOf(err))
		})
	}
}

func TestFromConfig(t *testing.T) {
	file, err := config.LoadCatalog("")
	require.NoError(t, err)

	c, err := FromConfig(file.Categories)
	require.NoError(t, err)

	cats := c.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, "suplementacion", cats[0].Slug)
	assert.Equal(t, "Suplementación", c.Classify("Creatina Monohidrato").Name)
	assert.Equal(t, "Equipamiento", c.Classify("Juego de pesas 2x5kg").Name)
	assert.Equal(t, "Otros", c.Classify("Botella de agua").Name)
	assert.True(t, c.Fallback().Fallback)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "suplementacion", slugify("Suplementación"))
	assert.Equal(t, "banda-elastica", slugify("Banda Elástica"))
	assert.Equal(t, "accesorios-yoga", slugify("Accesorios & Yoga"))
}
