package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/fieldops/dispatch/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DirectoryCacheTTL bounds staleness of the cached geography. The
// directory changes rarely; every planning run reads all of it.
const DirectoryCacheTTL = 5 * time.Minute

const (
	keyRegions     = "dispatch:directory:regions"
	keyDataCenters = "dispatch:directory:datacenters"
	keyDistances   = "dispatch:directory:distances"
)

// CachedDirectoryRepository decorates a DirectoryRepository with a Redis
// read cache for the list endpoints the planner hits on every run. Writes
// go straight through and invalidate. Cache failures degrade to the
// underlying repository, never to an error.
type CachedDirectoryRepository struct {
	inner  domain.DirectoryRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedDirectoryRepository wraps a directory repository with Redis
// caching (DirectoryCacheTTL when ttl is zero).
func NewCachedDirectoryRepository(inner domain.DirectoryRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedDirectoryRepository {
	if ttl <= 0 {
		ttl = DirectoryCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedDirectoryRepository{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (r *CachedDirectoryRepository) SaveRegion(ctx context.Context, region *domain.Region) error {
	if err := r.inner.SaveRegion(ctx, region); err != nil {
		return err
	}
	r.invalidate(ctx, keyRegions)
	return nil
}

func (r *CachedDirectoryRepository) FindRegionByID(ctx context.Context, id uuid.UUID) (*domain.Region, error) {
	return r.inner.FindRegionByID(ctx, id)
}

func (r *CachedDirectoryRepository) ListRegions(ctx context.Context) ([]*domain.Region, error) {
	var cached []*domain.Region
	if r.fetch(ctx, keyRegions, &cached) {
		return cached, nil
	}

	regions, err := r.inner.ListRegions(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, keyRegions, regions)
	return regions, nil
}

func (r *CachedDirectoryRepository) DeleteRegion(ctx context.Context, id uuid.UUID) error {
	if err := r.inner.DeleteRegion(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, keyRegions)
	return nil
}

func (r *CachedDirectoryRepository) SaveDataCenter(ctx context.Context, dc *domain.DataCenter) error {
	if err := r.inner.SaveDataCenter(ctx, dc); err != nil {
		return err
	}
	r.invalidate(ctx, keyDataCenters)
	return nil
}

func (r *CachedDirectoryRepository) FindDataCenterByID(ctx context.Context, id uuid.UUID) (*domain.DataCenter, error) {
	// Served from the cached list when present, so constraint checks do
	// not hit the database once per chunk.
	var cached []*domain.DataCenter
	if r.fetch(ctx, keyDataCenters, &cached) {
		for _, dc := range cached {
			if dc.ID == id {
				return dc, nil
			}
		}
	}
	return r.inner.FindDataCenterByID(ctx, id)
}

func (r *CachedDirectoryRepository) ListDataCenters(ctx context.Context) ([]*domain.DataCenter, error) {
	var cached []*domain.DataCenter
	if r.fetch(ctx, keyDataCenters, &cached) {
		return cached, nil
	}

	dcs, err := r.inner.ListDataCenters(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, keyDataCenters, dcs)
	return dcs, nil
}

func (r *CachedDirectoryRepository) DeleteDataCenter(ctx context.Context, id uuid.UUID) error {
	if err := r.inner.DeleteDataCenter(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, keyDataCenters)
	return nil
}

func (r *CachedDirectoryRepository) SaveDistance(ctx context.Context, entry *domain.DistanceEntry) error {
	if err := r.inner.SaveDistance(ctx, entry); err != nil {
		return err
	}
	r.invalidate(ctx, keyDistances)
	return nil
}

func (r *CachedDirectoryRepository) ListDistances(ctx context.Context) ([]domain.DistanceEntry, error) {
	var cached []domain.DistanceEntry
	if r.fetch(ctx, keyDistances, &cached) {
		return cached, nil
	}

	entries, err := r.inner.ListDistances(ctx)
	if err != nil {
		return nil, err
	}
	r.store(ctx, keyDistances, entries)
	return entries, nil
}

func (r *CachedDirectoryRepository) DeleteDistance(ctx context.Context, id uuid.UUID) error {
	if err := r.inner.DeleteDistance(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, keyDistances)
	return nil
}

func (r *CachedDirectoryRepository) fetch(ctx context.Context, key string, dest any) bool {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("directory cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Warn("directory cache decode failed", "key", key, "error", err)
		return false
	}
	return true
}

func (r *CachedDirectoryRepository) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("directory cache write failed", "key", key, "error", err)
	}
}

func (r *CachedDirectoryRepository) invalidate(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Warn("directory cache invalidation failed", "key", key, "error", err)
	}
}
