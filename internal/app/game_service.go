package app

import (
	"context"
	"time"

	"atlas-quiz-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string, set domain.ImageSet) *Session
	Get(sessionID string) (*Session, bool)
	DeleteIfEmpty(sessionID string)
}

// AssetRepository provides the map catalog and image list (from cache/backing store).
type AssetRepository interface {
	GetImageSet(ctx context.Context) (domain.ImageSet, error)
}

// GameService contains the core quiz use cases.
type GameService struct {
	sessions SessionRepository
	assets   AssetRepository
}

func NewGameService(store SessionRepository, assets AssetRepository) *GameService {
	return &GameService{sessions: store, assets: assets}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, set domain.ImageSet) *Session {
	return newSession(id, set)
}

// NewSessionWith is test-only for deterministic draws and timestamps.
func NewSessionWith(id string, set domain.ImageSet, intn func(int) int, now func() time.Time) *Session {
	return newSessionWith(id, set, intn, now)
}

// Start boots or resumes a session. Asset load failures propagate unchanged;
// an empty image set still creates the session, which lands in the terminal
// empty state.
func (g *GameService) Start(ctx context.Context, sessionID string) (domain.Snapshot, error) {
	set, err := g.assets.GetImageSet(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	session := g.sessions.GetOrCreate(sessionID, set)
	return session.Snapshot(), nil
}

// SubmitAnswer closes the session's open round with the guessed map name.
// A round that is already answered is left untouched and result is nil.
func (g *GameService) SubmitAnswer(_ context.Context, sessionID, mapName string) (domain.Snapshot, *domain.AnswerResult, error) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, nil, domain.ErrSessionNotFound
	}
	snap, result := session.submitAnswer(mapName)
	return snap, result, nil
}

// NextRound opens a fresh round by drawing the next image.
func (g *GameService) NextRound(_ context.Context, sessionID string) (domain.Snapshot, error) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return domain.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.nextRound(), nil
}

// Subscribe returns a channel that receives snapshot updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (g *GameService) Subscribe(_ context.Context, sessionID string) (<-chan domain.Snapshot, func(), error) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave drops the session once its last subscriber has detached.
func (g *GameService) Leave(_ context.Context, sessionID string) {
	session, ok := g.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.isEmpty() {
		g.sessions.DeleteIfEmpty(sessionID)
	}
}
