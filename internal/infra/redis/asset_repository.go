package redis

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"atlas-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AssetLoader fetches the map catalog and image list from a backing store
// (filesystem, Postgres, etc).
type AssetLoader interface {
	LoadCatalog(ctx context.Context) (map[string]string, error)
	LoadImages(ctx context.Context) ([]domain.ImageRef, error)
}

// AssetRepository caches the image set in Redis and falls back to a loader on
// cache miss.
// The catalog is stored as:  HSET assets:catalog {mapID} {mapName}
// Images are stored as:      HSET assets:images  {path}  {mapID}
type AssetRepository struct {
	client *redis.Client
	loader AssetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAssetRepository(client *redis.Client, loader AssetLoader, ttl time.Duration) *AssetRepository {
	return &AssetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const (
	catalogKey = "assets:catalog"
	imagesKey  = "assets:images"
)

func (r *AssetRepository) GetImageSet(ctx context.Context) (domain.ImageSet, error) {
	if set, ok := r.readCache(ctx); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do("assets", func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.readCache(ctx); ok {
			return set, nil
		}

		freshCatalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.ImageSet{}, err
		}
		refs, err := r.loader.LoadImages(ctx)
		if err != nil {
			return domain.ImageSet{}, err
		}
		set := domain.AssembleImageSet(freshCatalog, refs)

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for id, name := range set.Catalog {
			pipe.HSet(ctx, catalogKey, id, name)
		}
		for _, img := range set.Images {
			pipe.HSet(ctx, imagesKey, img.Path, img.MapID)
		}
		if ttl > 0 {
			pipe.Expire(ctx, catalogKey, ttl)
			pipe.Expire(ctx, imagesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return set, nil
	})
	if err != nil {
		return domain.ImageSet{}, err
	}
	return result.(domain.ImageSet), nil
}

// readCache rebuilds the image set from the Redis hashes. A read error on
// either hash counts as a miss, otherwise a transient failure on the images
// hash would turn a populated catalog into an empty set.
func (r *AssetRepository) readCache(ctx context.Context) (domain.ImageSet, bool) {
	catalog, err := r.client.HGetAll(ctx, catalogKey).Result()
	if err != nil || len(catalog) == 0 {
		return domain.ImageSet{}, false
	}
	images, err := r.client.HGetAll(ctx, imagesKey).Result()
	if err != nil {
		return domain.ImageSet{}, false
	}
	return buildSetFromCache(catalog, images), true
}

// buildSetFromCache rebuilds an image set from the Redis hashes. Hash order
// is unspecified, so images are sorted by path to keep enumeration stable.
func buildSetFromCache(catalog map[string]string, images map[string]string) domain.ImageSet {
	refs := make([]domain.ImageRef, 0, len(images))
	for path, mapID := range images {
		refs = append(refs, domain.ImageRef{Path: path, MapID: mapID})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Path < refs[j].Path })
	return domain.AssembleImageSet(catalog, refs)
}

func (r *AssetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
