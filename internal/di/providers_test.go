package di

import (
	"reflect"
	"testing"

	pkgcache "StockSense/pkg/cache"

	"github.com/stretchr/testify/assert"
)

// Stores whose writes must be seen by every replica take the Redis cache,
// never the memory-fronted Service.
func TestSharedStoresBypassMemoryLayer(t *testing.T) {
	redisType := reflect.TypeOf((*pkgcache.RedisCache)(nil))

	for name, provider := range map[string]interface{}{
		"weights": ProvideWeightsStore,
		"runs":    ProvideRunStore,
	} {
		fn := reflect.TypeOf(provider)
		if assert.Equal(t, 1, fn.NumIn(), name) {
			assert.Equal(t, redisType, fn.In(0), name)
		}
	}
}
