package app

import (
	"testing"
	"time"

	"atlas-quiz-service/internal/domain"
)

// threeMaps builds a set whose enumeration order starts with the given map
// ids, one image per map.
func threeMaps(ids ...string) domain.ImageSet {
	catalog := map[string]string{
		"A": "Alpine",
		"B": "Bridgetown",
		"C": "Caldera",
	}
	refs := make([]domain.ImageRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, domain.ImageRef{Path: "assets/" + id + "/shot.png", MapID: id})
	}
	return domain.AssembleImageSet(catalog, refs)
}

func scriptedRand(pools *[]int, picks ...int) func(int) int {
	i := 0
	return func(n int) int {
		*pools = append(*pools, n)
		pick := 0
		if i < len(picks) {
			pick = picks[i]
		}
		i++
		if pick >= n {
			pick = n - 1
		}
		return pick
	}
}

func TestInitializerExcludesFirstImage(t *testing.T) {
	var pools []int
	s := newSessionWith("s1", threeMaps("C", "A", "B"), scriptedRand(&pools), time.Now)

	snap := s.Snapshot()
	if snap.State != domain.StateReady {
		t.Fatalf("expected ready state, got %s", snap.State)
	}
	if snap.Current == nil || snap.Current.MapID != "C" {
		t.Fatalf("expected first image C pre-selected, got %+v", snap.Current)
	}
	if snap.TotalImages != 3 || snap.UnseenCount != 2 {
		t.Fatalf("expected 3 total / 2 unseen, got %d/%d", snap.TotalImages, snap.UnseenCount)
	}
}

func TestSamplerDrainsUnseenThenReusesFullPool(t *testing.T) {
	var pools []int
	s := newSessionWith("s1", threeMaps("C", "A", "B"), scriptedRand(&pools, 0, 0, 0), time.Now)

	first := s.nextRound()
	second := s.nextRound()
	if first.Current.MapID == second.Current.MapID {
		t.Fatalf("duplicate draw within cycle: %s", first.Current.MapID)
	}
	if second.UnseenCount != 0 {
		t.Fatalf("expected unseen pool drained, got %d", second.UnseenCount)
	}

	third := s.nextRound()
	if got := pools[2]; got != 3 {
		t.Fatalf("expected third draw from full pool of 3, drew from %d", got)
	}
	if third.UnseenCount != 2 {
		t.Fatalf("expected 2 unseen after cycle restart, got %d", third.UnseenCount)
	}
	// The opening image was never drawn by the sampler, so it is eligible
	// again as soon as the pool resets.
	if third.Current.MapID != "C" {
		t.Fatalf("expected pre-selected image to be drawable after reset, got %s", third.Current.MapID)
	}
}

func TestSamplerOpensNewRound(t *testing.T) {
	var pools []int
	s := newSessionWith("s1", threeMaps("A", "B", "C"), scriptedRand(&pools), time.Now)

	if _, result := s.submitAnswer("Alpine"); result == nil || !result.Correct {
		t.Fatalf("expected correct answer on open round, got %+v", result)
	}
	snap := s.nextRound()
	if snap.Answered || snap.SelectedAnswer != "" {
		t.Fatalf("expected fresh open round, got %+v", snap)
	}
}

func TestBlankAnswerKeepsRoundOpen(t *testing.T) {
	var pools []int
	s := newSessionWith("s1", threeMaps("A", "B", "C"), scriptedRand(&pools), time.Now)

	snap, result := s.submitAnswer("")
	if result != nil {
		t.Fatalf("expected blank answer to be ignored, got %+v", result)
	}
	if snap.Answered || snap.SelectedAnswer != "" || snap.TotalAttempts != 0 {
		t.Fatalf("expected untouched open round, got %+v", snap)
	}

	// The round stays answerable afterwards.
	if _, result := s.submitAnswer("Alpine"); result == nil || !result.Correct {
		t.Fatalf("expected round still open, got %+v", result)
	}
}

func TestSamplerIgnoresEmptySession(t *testing.T) {
	var pools []int
	s := newSessionWith("s1", threeMaps(), scriptedRand(&pools), time.Now)

	snap := s.nextRound()
	if snap.State != domain.StateEmpty || snap.Current != nil {
		t.Fatalf("expected terminal empty state, got %+v", snap)
	}
	if len(pools) != 0 {
		t.Fatalf("expected no draw on empty session, got %d", len(pools))
	}
}
