// Package sweep implements the plane-sweep engine (C3): a sweep line over
// half-open intervals on one axis that retains, at each position, the
// top-scoring active items, subject afterwards to a pairwise overlap veto.
//
// The engine is axis-agnostic: callers call it once with query coordinates
// and once with target coordinates (see package dualfilter).
package sweep

import (
	"math"
	"sort"

	"github.com/biogo/store/llrb"
)

// Interval is one item offered to the sweep: a half-open interval on the
// axis being swept, plus a precomputed score (higher is better) and the
// caller's index for it (used as the final, deterministic tiebreaker and
// as the identity returned in the retained set).
type Interval struct {
	Start, End int64
	Score      float64
	Index      int
}

func (iv Interval) length() int64 { return iv.End - iv.Start }

// effectiveScore applies the "zero-length intervals score −∞" rule of
// §4.3 regardless of what the caller supplied, so a degenerate interval
// can never win a marking slot.
func (iv Interval) effectiveScore() float64 {
	if iv.length() <= 0 {
		return math.Inf(-1)
	}
	return iv.Score
}

// activeKey orders the plane-sweep active set: score descending, then start
// position ascending, then index ascending (§4.3 step 2). It implements
// llrb.Comparable so an in-order walk of the tree visits the active set in
// exactly this order.
type activeKey struct {
	score float64
	start int64
	index int
}

func (a activeKey) Compare(other llrb.Comparable) int {
	b := other.(activeKey)
	switch {
	case a.score > b.score:
		return -1
	case a.score < b.score:
		return 1
	}
	switch {
	case a.start < b.start:
		return -1
	case a.start > b.start:
		return 1
	}
	switch {
	case a.index < b.index:
		return -1
	case a.index > b.index:
		return 1
	}
	return 0
}

type eventKind int

const (
	eventBegin eventKind = iota
	eventEnd
)

type event struct {
	pos   int64
	kind  eventKind
	index int
}

// Run executes the plane sweep over items with the given per-position cap k
// (k >= 1) and overlap threshold theta (§4.3), and returns the Index values
// of the retained items, in ascending order.
func Run(items []Interval, k int, theta float64) []int {
	if len(items) == 0 {
		return nil
	}

	events := make([]event, 0, 2*len(items))
	for _, it := range items {
		events = append(events, event{pos: it.Start, kind: eventBegin, index: it.Index})
		events = append(events, event{pos: it.End, kind: eventEnd, index: it.Index})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].pos != events[j].pos {
			return events[i].pos < events[j].pos
		}
		return events[i].kind < events[j].kind // Begin (0) before End (1).
	})

	byIndex := make(map[int]Interval, len(items))
	for _, it := range items {
		byIndex[it.Index] = it
	}

	active := llrb.Tree{}
	marked := make(map[int]bool)

	i := 0
	for i < len(events) {
		pos := events[i].pos
		for i < len(events) && events[i].pos == pos {
			e := events[i]
			it := byIndex[e.index]
			key := activeKey{score: it.effectiveScore(), start: it.Start, index: it.Index}
			switch e.kind {
			case eventBegin:
				active.Insert(key)
			case eventEnd:
				active.Delete(key)
			}
			i++
		}
		markTop(&active, k, marked)
	}

	return vetoAndCollect(items, marked, theta)
}

// markTop marks the top k entries of the active set (by the in-order walk
// order activeKey establishes, i.e. highest score first). Marking is
// idempotent: re-marking an already-marked item is a no-op.
func markTop(active *llrb.Tree, k int, marked map[int]bool) {
	if k <= 0 {
		return
	}
	n := 0
	active.Do(func(c llrb.Comparable) bool {
		key := c.(activeKey)
		marked[key.index] = true
		n++
		return n >= k
	})
}

// vetoAndCollect applies the overlap veto pass (§4.3 step 4) to the marked
// candidate set K, then returns the survivors sorted by index.
func vetoAndCollect(items []Interval, marked map[int]bool, theta float64) []int {
	var candidates []Interval
	for _, it := range items {
		if marked[it.Index] {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	if theta >= 1 {
		out := make([]int, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, c.Index)
		}
		sort.Ints(out)
		return out
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].effectiveScore() != candidates[j].effectiveScore() {
			return candidates[i].effectiveScore() > candidates[j].effectiveScore()
		}
		return candidates[i].Index < candidates[j].Index
	})

	var kept []Interval
	for _, cand := range candidates {
		vetoed := false
		for _, k := range kept {
			if OverlapFraction(cand, k) > theta {
				vetoed = true
				break
			}
		}
		if !vetoed {
			kept = append(kept, cand)
		}
	}
	out := make([]int, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.Index)
	}
	sort.Ints(out)
	return out
}

// OverlapFraction computes the axis overlap fraction between a and b, per
// §4.3: max(0, min(b.end,d) - max(a.start,c)) / min(length_a, length_b),
// zero if either length is zero.
func OverlapFraction(a, b Interval) float64 {
	la, lb := a.length(), b.length()
	if la <= 0 || lb <= 0 {
		return 0
	}
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	overlap := end - start
	if overlap <= 0 {
		return 0
	}
	minLen := la
	if lb < minLen {
		minLen = lb
	}
	return float64(overlap) / float64(minLen)
}
