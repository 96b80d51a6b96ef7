package timeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MergeCandidate names the three roles a merge execution can involve: a
// keeper that survives, an optional betweener that sits between keeper and
// deadman in the chain, and a deadman that is consumed.
type MergeCandidate struct {
	Keeper    *TimelineItem
	Betweener *TimelineItem
	Deadman   *TimelineItem
	Score     ConsumptionScore
}

// signature returns the dedup key from spec.md §4.5:
// {keeper, deadman, betweener?, keeper.startDate}.
func (c *MergeCandidate) signature() uint64 {
	var b strings.Builder
	b.WriteString(c.Keeper.Base.ID)
	b.WriteByte('|')
	b.WriteString(c.Deadman.Base.ID)
	b.WriteByte('|')
	if c.Betweener != nil {
		b.WriteString(c.Betweener.Base.ID)
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(c.Keeper.Base.StartDate.UnixNano(), 10))

	return xxhash.Sum64String(b.String())
}

// collectMergeCandidates enumerates adjacent, betweener, and bridge merge
// shapes across every item in list, scores each with s, and returns them
// sorted by score descending (ties broken by insertion order), per
// spec.md §4.5. Early termination: once 10 candidates are collected and at
// least one is non-Impossible, collection stops.
func collectMergeCandidates(list *TimelineLinkedList, s *scorer) ([]*MergeCandidate, error) {
	seen := make(map[uint64]struct{})
	var candidates []*MergeCandidate
	hasNonImpossible := false

	add := func(c *MergeCandidate) error {
		sig := c.signature()
		if _, dup := seen[sig]; dup {
			return nil
		}
		seen[sig] = struct{}{}

		score, err := s.score(c.Keeper, c.Deadman)
		if err != nil {
			return err
		}
		c.Score = score
		if score != Impossible {
			hasNonImpossible = true
		}
		candidates = append(candidates, c)
		return nil
	}

	done := func() bool {
		return len(candidates) >= MaximumPotentialMergesInProcessingLoop && hasNonImpossible
	}

	for _, item := range list.Items() {
		if done() {
			break
		}

		if err := collectAdjacent(list, item, add, done); err != nil {
			return nil, err
		}
		if done() {
			break
		}

		if err := collectBetweenerAndBridge(list, item, add, done); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return candidates, nil
}

// collectAdjacent emits the four adjacent candidates for item's previous
// and next neighbours: both role assignments, both directions.
func collectAdjacent(list *TimelineLinkedList, item *TimelineItem, add func(*MergeCandidate) error, done func() bool) error {
	for _, dir := range []walkDirection{walkPrevious, walkNext} {
		if done() {
			return nil
		}
		neighbour, ok := list.neighbour(item, dir)
		if !ok {
			continue
		}

		if err := add(&MergeCandidate{Keeper: item, Deadman: neighbour}); err != nil {
			return err
		}
		if done() {
			return nil
		}
		if err := add(&MergeCandidate{Keeper: neighbour, Deadman: item}); err != nil {
			return err
		}
	}
	return nil
}

// collectBetweenerAndBridge enumerates the betweener and bridge shapes
// centred on item as the middle of an A-B-C chain, spec.md §4.5 (2) and (3).
func collectBetweenerAndBridge(list *TimelineLinkedList, b *TimelineItem, add func(*MergeCandidate) error, done func() bool) error {
	prev, hasPrev := list.PreviousItem(b)
	next, hasNext := list.NextItem(b)
	if !hasPrev || !hasNext {
		return nil
	}

	bKeepness, err := keepness(b)
	if err != nil {
		return err
	}
	prevKeepness, err := keepness(prev)
	if err != nil {
		return err
	}
	nextKeepness, err := keepness(next)
	if err != nil {
		return err
	}

	prevGap, err := isDataGap(prev)
	if err != nil {
		return err
	}
	nextGap, err := isDataGap(next)
	if err != nil {
		return err
	}

	// Betweener: keepness(B) < keepness(A) and keepness(C) > keepness(B),
	// neither A nor C a data gap. Emit both orientations.
	if !prevGap && !nextGap {
		if bKeepness < prevKeepness && nextKeepness > bKeepness {
			if err := add(&MergeCandidate{Keeper: prev, Betweener: b, Deadman: next}); err != nil {
				return err
			}
			if done() {
				return nil
			}
		}
		if bKeepness < nextKeepness && prevKeepness > bKeepness {
			if err := add(&MergeCandidate{Keeper: next, Betweener: b, Deadman: prev}); err != nil {
				return err
			}
			if done() {
				return nil
			}
		}
	}

	// Bridge: keepness(previous) > keepness(item) AND keepness(next) >
	// keepness(item) AND all three share a source. Emit both orientations.
	if prevKeepness > bKeepness && nextKeepness > bKeepness &&
		prev.Base.Source == b.Base.Source && b.Base.Source == next.Base.Source {
		if err := add(&MergeCandidate{Keeper: prev, Betweener: b, Deadman: next}); err != nil {
			return err
		}
		if done() {
			return nil
		}
		if err := add(&MergeCandidate{Keeper: next, Betweener: b, Deadman: prev}); err != nil {
			return err
		}
	}

	return nil
}
