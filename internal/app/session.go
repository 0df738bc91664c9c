package app

import (
	"math/rand"
	"sync"
	"time"

	"atlas-quiz-service/internal/domain"
)

// Session owns the round-by-round quiz state for one player: the full image
// set, the unseen pool for the current coverage cycle, and the open round.
type Session struct {
	id        string
	createdAt time.Time
	now       func() time.Time
	intn      func(int) int

	mu          sync.RWMutex
	state       domain.SessionState
	all         []domain.ImageRecord
	unseen      []domain.ImageRecord
	current     *domain.ImageRecord
	options     []string
	selected    string
	score       int
	attempts    int
	subscribers map[chan domain.Snapshot]struct{}
}

func newSession(id string, set domain.ImageSet) *Session {
	return newSessionWith(id, set, rand.Intn, time.Now)
}

// newSessionWith allows deterministic draws and timestamps in tests.
func newSessionWith(id string, set domain.ImageSet, intn func(int) int, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		createdAt:   now(),
		now:         now,
		intn:        intn,
		state:       domain.StateLoading,
		options:     set.OptionNames(),
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}
	s.initialize(set.Images)
	return s
}

// initialize is the one-shot transition out of loading. The first image in
// enumeration order becomes the opening round and is excluded from the
// unseen pool. It is not re-excluded on later cycles; the sampler only
// tracks images it drew itself, so the opening image may repeat early.
func (s *Session) initialize(images []domain.ImageRecord) {
	if len(images) == 0 {
		s.state = domain.StateEmpty
		return
	}
	s.all = append([]domain.ImageRecord(nil), images...)
	first := s.all[0]
	s.current = &first
	s.unseen = append([]domain.ImageRecord(nil), s.all[1:]...)
	s.state = domain.StateReady
}

// nextRound clears the answer and draws the next image: from the unseen pool
// while it lasts, otherwise from a fresh copy of the full set (new coverage
// cycle). The drawn element is removed from whichever pool was read.
func (s *Session) nextRound() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.all) == 0 {
		return s.snapshotLocked()
	}
	s.selected = ""

	pool := s.unseen
	if len(pool) == 0 {
		pool = append([]domain.ImageRecord(nil), s.all...)
	}
	i := s.intn(len(pool))
	drawn := pool[i]
	s.unseen = append(pool[:i], pool[i+1:]...)
	s.current = &drawn

	return s.broadcastLocked()
}

// submitAnswer closes the round. Once a round is answered, further
// submissions are ignored until the next round opens, so at most one
// attempt and one point are recorded per round.
func (s *Session) submitAnswer(name string) (domain.Snapshot, *domain.AnswerResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" || s.selected != "" || s.current == nil {
		return s.snapshotLocked(), nil
	}

	s.selected = name
	s.attempts++
	correct := name == s.current.MapName
	if correct {
		s.score++
	}
	result := &domain.AnswerResult{
		MapName:       name,
		Correct:       correct,
		CorrectName:   s.current.MapName,
		Score:         s.score,
		TotalAttempts: s.attempts,
	}
	return s.broadcastLocked(), result
}

// Snapshot returns the current read-only view of the session.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) == 0
}

// IsEmpty reports whether the session has no subscribers left.
func (s *Session) IsEmpty() bool {
	return s.isEmpty()
}

func (s *Session) subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() domain.Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so slow clients never block a round.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.Snapshot {
	var current *domain.ImageRecord
	if s.current != nil {
		c := *s.current
		current = &c
	}
	return domain.Snapshot{
		SessionID:      s.id,
		State:          s.state,
		TotalImages:    len(s.all),
		UnseenCount:    len(s.unseen),
		Current:        current,
		Options:        append([]string(nil), s.options...),
		SelectedAnswer: s.selected,
		Answered:       s.selected != "",
		Score:          s.score,
		TotalAttempts:  s.attempts,
		UpdatedAt:      s.now(),
	}
}
