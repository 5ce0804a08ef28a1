package store

import (
	"context"
	"time"

	"github.com/usetradechat/tradechat/internal/profile"
	"github.com/usetradechat/tradechat/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Cache settings
	cacheConfig cache.Config

	// Caches
	userCache *cache.Cache // cache for users
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	// Default cache settings
	cacheConfig := cache.Config{
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		MaxItems:        1000,
	}

	return &Store{
		driver:      driver,
		profile:     profile,
		cacheConfig: cacheConfig,
		userCache:   cache.New(cacheConfig),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	// Stop all cache cleanup goroutines
	s.userCache.Close()

	return s.driver.Close()
}
