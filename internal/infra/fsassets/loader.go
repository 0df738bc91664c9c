// Package fsassets enumerates quiz images from a directory tree. An image
// belongs to a map when some path segment below the root equals the map's
// identifier; files that match no known map are dropped without error.
package fsassets

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"atlas-quiz-service/internal/domain"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
	".gif":  {},
}

// Loader walks a directory of location screenshots. The catalog is fixed at
// construction time; only image enumeration touches the filesystem.
type Loader struct {
	dir     string
	catalog map[string]string
}

func New(dir string, catalog map[string]string) *Loader {
	return &Loader{dir: dir, catalog: catalog}
}

func (l *Loader) LoadCatalog(_ context.Context) (map[string]string, error) {
	if l.catalog == nil {
		return nil, domain.ErrCatalogNotFound
	}
	catalog := make(map[string]string, len(l.catalog))
	for id, name := range l.catalog {
		catalog[id] = name
	}
	return catalog, nil
}

func (l *Loader) LoadImages(ctx context.Context) ([]domain.ImageRef, error) {
	var refs []domain.ImageRef
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return err
		}
		mapID, ok := l.matchMapID(rel)
		if !ok {
			return nil
		}
		refs = append(refs, domain.ImageRef{Path: path, MapID: mapID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// matchMapID looks for a path segment equal to a known map identifier.
func (l *Loader) matchMapID(rel string) (string, bool) {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if _, ok := l.catalog[segment]; ok {
			return segment, true
		}
	}
	return "", false
}
