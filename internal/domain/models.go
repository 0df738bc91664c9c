package domain

import (
	"sort"
	"time"
)

// ImageRef associates an image resource with the map it was captured on,
// before the display name has been resolved.
type ImageRef struct {
	Path  string `json:"path"`
	MapID string `json:"mapId"`
}

// ImageRecord is a fully resolved quiz image: the resource path plus the
// owning map's identifier and display name.
type ImageRecord struct {
	Path    string `json:"path"`
	MapID   string `json:"mapId"`
	MapName string `json:"mapName"`
}

// ImageSet is the asset provider's output for one session: the fixed map
// catalog and every usable image.
type ImageSet struct {
	Catalog map[string]string
	Images  []ImageRecord
}

// Empty reports whether the set yields no playable rounds.
func (s ImageSet) Empty() bool {
	return len(s.Images) == 0
}

// OptionNames returns the catalog's display names sorted for stable
// presentation. Names are the answer key, so duplicates collapse.
func (s ImageSet) OptionNames() []string {
	seen := make(map[string]struct{}, len(s.Catalog))
	names := make([]string, 0, len(s.Catalog))
	for _, name := range s.Catalog {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AssembleImageSet resolves refs against the catalog. Refs whose map id is
// unknown are dropped, not errored.
func AssembleImageSet(catalog map[string]string, refs []ImageRef) ImageSet {
	images := make([]ImageRecord, 0, len(refs))
	for _, ref := range refs {
		name, ok := catalog[ref.MapID]
		if !ok {
			continue
		}
		images = append(images, ImageRecord{
			Path:    ref.Path,
			MapID:   ref.MapID,
			MapName: name,
		})
	}
	return ImageSet{Catalog: catalog, Images: images}
}

// SessionState tracks where a session is in its lifecycle.
type SessionState string

const (
	// StateLoading is the initial state before assets have resolved.
	StateLoading SessionState = "loading"
	// StateReady means rounds are being played.
	StateReady SessionState = "ready"
	// StateEmpty is terminal: the provider yielded zero usable images.
	StateEmpty SessionState = "empty"
)

// Snapshot is the read-only view of a session exposed to presentation layers.
type Snapshot struct {
	SessionID      string       `json:"sessionId"`
	State          SessionState `json:"state"`
	TotalImages    int          `json:"totalImages"`
	UnseenCount    int          `json:"unseenCount"`
	Current        *ImageRecord `json:"current,omitempty"`
	Options        []string     `json:"options"`
	SelectedAnswer string       `json:"selectedAnswer"`
	Answered       bool         `json:"answered"`
	Score          int          `json:"score"`
	TotalAttempts  int          `json:"totalAttempts"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// AccuracyPercent derives the integer hit rate. ok is false before the first
// attempt, when accuracy is undefined.
func (s Snapshot) AccuracyPercent() (int, bool) {
	if s.TotalAttempts == 0 {
		return 0, false
	}
	return s.Score * 100 / s.TotalAttempts, true
}

// AnswerResult summarizes the outcome of closing a round.
type AnswerResult struct {
	MapName       string `json:"mapName"`
	Correct       bool   `json:"correct"`
	CorrectName   string `json:"correctName"`
	Score         int    `json:"score"`
	TotalAttempts int    `json:"totalAttempts"`
}
