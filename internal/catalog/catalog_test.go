package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/promoworker/config"
	"sjsage522/promoworker/pkg/errors"
	"sjsage522/promoworker/services/cache"
)

// MockCacheService is a mock implementation of CacheService
type MockCacheService struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{data: make(map[string][]byte)}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

const apiResponse = `{
  "status": "OK",
  "data": {
    "products": [
      {"product_title": "Creatina Monohidrato 500g", "product_price": "20,00 €", "product_original_price": "40,00 €", "product_star_rating": "4.6", "product_url": "https://example.com/dp/1", "product_photo": "https://example.com/1.jpg"},
      {"product_title": "Creatina Creapure", "product_price": 24.99, "product_original_price": null, "product_star_rating": null, "product_url": "https://example.com/dp/2"},
      {"product_title": "Creatina en cápsulas", "product_price": "15,00 €", "product_url": "https://example.com/dp/3"}
    ]
  }
}`

func testAPIConfig(serverURL string) config.APISourceConfig {
	return config.APISourceConfig{
		Source:      "test-api",
		URLTemplate: serverURL + "/search?query={keyword}&limit={limit}",
		Headers:     map[string]string{"X-RapidAPI-Key": "key"},
		ItemsPath:   "data.products",
		Fields: config.APIFieldPaths{
			Title:          "product_title",
			Price:          "product_price",
			ReferencePrice: "product_original_price",
			Rating:         "product_star_rating",
			URL:            "product_url",
			Image:          "product_photo",
		},
	}
}

func TestAPIClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "proteína whey", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, apiResponse)
	}))
	defer server.Close()

	client, err := NewAPIClient(testAPIConfig(server.URL), Options{})
	require.NoError(t, err)
	assert.Equal(t, "test-api", client.Source())

	items, err := client.Search(context.Background(), "proteína whey", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Creatina Monohidrato 500g", items[0].Title)
	assert.Equal(t, "20,00 €", items[0].Price)
	assert.Equal(t, "40,00 €", items[0].ReferencePrice)
	assert.Equal(t, "4.6", items[0].Rating)
	assert.Equal(t, "https://example.com/dp/1", items[0].URL)
	assert.Equal(t, "https://example.com/1.jpg", items[0].ImageURL)

	assert.Equal(t, "24.99", items[1].Price)
	assert.Empty(t, items[1].ReferencePrice)
	assert.Empty(t, items[1].Rating)
	assert.Empty(t, items[1].ImageURL)
}

func TestAPIClientEmptyAndInvalidResponses(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr errors.ErrorType
	}{
		{"missing items", `{"status":"OK","data":{}}`, ""},
		{"null items", `{"data":{"products":null}}`, ""},
		{"items not an array", `{"data":{"products":{"a":1}}}`, errors.ErrorTypeParsing},
		{"not json", `<html>oops</html>`, errors.ErrorTypeParsing},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			client, err := NewAPIClient(testAPIConfig(server.URL), Options{})
			require.NoError(t, err)

			items, err := client.Search(context.Background(), "creatina", 5)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Empty(t, items)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrorTypeSearch))
			assert.Equal(t, tc.wantErr, errors.KindOf(err))
		})
	}
}

func TestAPIClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewAPIClient(testAPIConfig(server.URL), Options{})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "bcaa", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeSearch))
	assert.Equal(t, errors.ErrorTypeNetwork, errors.KindOf(err))
	assert.Contains(t, err.Error(), "bcaa")
}

func TestRateLimitBlocksSource(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cacheSvc := NewMockCacheService()
	client, err := NewAPIClient(testAPIConfig(server.URL), Options{Cache: cacheSvc, BlockTime: time.Minute})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "creatina", 5)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeRateLimit, errors.KindOf(err))

	_, blocked := cacheSvc.Get(BlockKey("test-api"))
	assert.NoError(t, blocked)

	// Blocked: no request leaves the process
	_, err = client.Search(context.Background(), "proteina", 5)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeRateLimit, errors.KindOf(err))
	assert.Greater(t, errors.RetryAfterOf(err), 50*time.Second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	require.NoError(t, cacheSvc.Delete(BlockKey("test-api")))
	_, err = client.Search(context.Background(), "proteina", 5)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestRequestsArePaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"products":[]}}`)
	}))
	defer server.Close()

	client, err := NewAPIClient(testAPIConfig(server.URL), Options{RPS: 10})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Search(context.Background(), "creatina", 5)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 190*time.Millisecond)
}

func TestCancelledSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"products":[]}}`)
	}))
	defer server.Close()

	client, err := NewAPIClient(testAPIConfig(server.URL), Options{RPS: 0.001})
	require.NoError(t, err)

	// First request consumes the burst
	_, err = client.Search(context.Background(), "creatina", 5)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Search(ctx, "creatina", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeSearch))
}

func TestNewAPIClientValidation(t *testing.T) {
	_, err := NewAPIClient(config.APISourceConfig{}, Options{})
	assert.Error(t, err)

	cfg := testAPIConfig("http://localhost")
	cfg.Fields.URL = ""
	_, err = NewAPIClient(cfg, Options{})
	assert.Error(t, err)
}

func TestNewSelectsCatalogKind(t *testing.T) {
	file, err := config.LoadCatalog("")
	require.NoError(t, err)

	client, err := New(&config.Config{CatalogKind: config.CatalogAPI}, file, nil)
	require.NoError(t, err)
	assert.IsType(t, &APIClient{}, client)

	client, err = New(&config.Config{CatalogKind: config.CatalogHTML}, file, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTMLClient{}, client)

	_, err = New(&config.Config{CatalogKind: "ftp"}, file, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfiguration, errors.KindOf(err))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://shop.es/p/1", ResolveURL("https://shop.es", "/p/1"))
	assert.Equal(t, "https://shop.es/p/1", ResolveURL("https://shop.es/buscar", "p/1"))
	assert.Equal(t, "https://cdn.es/x.jpg", ResolveURL("https://shop.es", "https://cdn.es/x.jpg"))
	assert.Equal(t, "/p/1", ResolveURL("", "/p/1"))
	assert.Equal(t, "", ResolveURL("https://shop.es", "  "))
}

func TestExpandTemplate(t *testing.T) {
	assert.Equal(t, "https://x/s?q=banda+el%C3%A1stica&n=5", expandTemplate("https://x/s?q={keyword}&n={limit}", "banda elástica", 5))
}
