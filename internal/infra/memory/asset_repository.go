package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"atlas-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AssetLoader fetches the map catalog and image list from a backing store
// (filesystem, Postgres, etc).
type AssetLoader interface {
	LoadCatalog(ctx context.Context) (map[string]string, error)
	LoadImages(ctx context.Context) ([]domain.ImageRef, error)
}

// AssetRepository caches the assembled image set with TTL to avoid repeated
// provider hits.
type AssetRepository struct {
	loader AssetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    domain.ImageSet
	hasCache  bool
	expiresAt time.Time
}

func NewAssetRepository(loader AssetLoader, ttl time.Duration) *AssetRepository {
	return &AssetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *AssetRepository) GetImageSet(ctx context.Context) (domain.ImageSet, error) {
	now := r.clock()

	r.mu.RLock()
	if r.hasCache && r.expiresAt.After(now) {
		set := r.cached
		r.mu.RUnlock()
		return set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do("assets", func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if r.hasCache && r.expiresAt.After(now) {
			set := r.cached
			r.mu.RUnlock()
			return set, nil
		}
		r.mu.RUnlock()

		set, err := loadImageSet(ctx, r.loader)
		if err != nil {
			return domain.ImageSet{}, err
		}

		r.mu.Lock()
		r.cached = set
		r.hasCache = true
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.ImageSet{}, err
	}
	return result.(domain.ImageSet), nil
}

// loadImageSet runs both provider calls and resolves display names. Images
// whose map id is not in the catalog are dropped silently.
func loadImageSet(ctx context.Context, loader AssetLoader) (domain.ImageSet, error) {
	catalog, err := loader.LoadCatalog(ctx)
	if err != nil {
		return domain.ImageSet{}, err
	}
	refs, err := loader.LoadImages(ctx)
	if err != nil {
		return domain.ImageSet{}, err
	}
	return domain.AssembleImageSet(catalog, refs), nil
}

// StaticAssetLoader is a simple loader backed by in-memory data (useful for tests/demos).
type StaticAssetLoader struct {
	catalog map[string]string
	images  []domain.ImageRef
}

func NewStaticAssetLoader(catalog map[string]string, images []domain.ImageRef) *StaticAssetLoader {
	return &StaticAssetLoader{catalog: catalog, images: images}
}

func (l *StaticAssetLoader) LoadCatalog(_ context.Context) (map[string]string, error) {
	if l.catalog == nil {
		return nil, domain.ErrCatalogNotFound
	}
	catalog := make(map[string]string, len(l.catalog))
	for id, name := range l.catalog {
		catalog[id] = name
	}
	return catalog, nil
}

func (l *StaticAssetLoader) LoadImages(_ context.Context) ([]domain.ImageRef, error) {
	return append([]domain.ImageRef(nil), l.images...), nil
}

func (r *AssetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
