package cache

import (
	stderrors "errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/pkg/errors"
)

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	log    *logger.Logger
}

// NewMemcacheService creates a new memcache service
func NewMemcacheService(serverAddr string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 500 * time.Millisecond

	return &MemcacheService{
		client: client,
		log:    logger.ForCache(),
	}
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		if !IsMiss(err) {
			m.log.Warn().Err(err).Str("key", key).Msg("Cache get failed")
		}
		return nil, errors.NewCache("memcache", "get "+key, err)
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time. Expirations are
// rounded up to whole seconds.
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	secs := int32((expiration + time.Second - 1) / time.Second)
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: secs,
	})
	if err != nil {
		return errors.NewCache("memcache", "set "+key, err)
	}
	return nil
}

// Delete removes a value from memcache. Deleting a missing key is not an error.
func (m *MemcacheService) Delete(key string) error {
	if err := m.client.Delete(key); err != nil && !IsMiss(err) {
		return errors.NewCache("memcache", "delete "+key, err)
	}
	return nil
}

// Ping checks that the server is reachable
func (m *MemcacheService) Ping() error {
	if err := m.client.Ping(); err != nil {
		return errors.NewCache("memcache", "ping", err)
	}
	return nil
}

// IsMiss reports whether err means the key does not exist
func IsMiss(err error) bool {
	return stderrors.Is(err, memcache.ErrCacheMiss)
}
