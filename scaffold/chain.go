// Package scaffold implements the best-buddy chainer (C5) and the scaffold
// scorer (C6): it groups primary-filter survivors into MergedChains linked
// by mutual-nearest-neighbor relations under a gap bound, then scores each
// chain by a selectable function.
package scaffold

import (
	"math"
	"sort"

	"github.com/minio/highwayhash"

	"github.com/grailbio/synteny/align"
	"github.com/grailbio/synteny/unionfind"
)

// MergedChain is one scaffold: a maximal set of same-strand, co-linear
// records on a single contig pair linked by best-buddy relations.
type MergedChain struct {
	QueryName, TargetName string
	Strand                align.Strand

	QueryStart, QueryEnd   int64
	TargetStart, TargetEnd int64

	SumMatches      int64
	SumBlockLengths int64

	MemberRanks []int // ranks of included records, never slice positions.
}

// Span returns QueryEnd - QueryStart.
func (c *MergedChain) Span() int64 { return c.QueryEnd - c.QueryStart }

// WeightedIdentity computes the log-dampened-gap weighted identity of §3/§4.5:
// eff = sum_block_lengths + max(0, ln(gap)) when gap = span - sum_block_lengths
// is positive, else eff = sum_block_lengths; weighted_identity = sum_matches/eff
// when eff > 0, else 0.
func (c *MergedChain) WeightedIdentity() float64 {
	gap := c.Span() - c.SumBlockLengths
	eff := float64(c.SumBlockLengths)
	if gap > 0 {
		eff += math.Max(0, math.Log(float64(gap)))
	}
	if eff <= 0 {
		return 0
	}
	return float64(c.SumMatches) / eff
}

// Fingerprint returns a HighwayHash digest of the chain's sorted member-rank
// set, used by tests to assert chain identity is stable across repeated
// runs over the same input (idempotence).
func (c *MergedChain) Fingerprint() [highwayhash.Size]byte {
	ranks := append([]int(nil), c.MemberRanks...)
	sort.Ints(ranks)
	buf := make([]byte, 0, 8*len(ranks))
	for _, r := range ranks {
		v := uint64(r)
		for i := 0; i < 8; i++ {
			buf = append(buf, byte(v>>(8*i)))
		}
	}
	var zeroSeed [highwayhash.Size]byte
	return highwayhash.Sum(buf, zeroSeed[:])
}

// partitionKey groups records by (query_name, target_name, strand) for
// chaining, per §4.5 step 1.
type partitionKey struct {
	query, target string
	strand        align.Strand
}

// BuildChains links records into chains per §4.5 and returns the resulting
// MergedChains. records must already be the primary filter's survivors;
// gap is the scaffold_gap bound (must be > 0).
func BuildChains(records []align.RecordMeta, gap int64) []MergedChain {
	partitions := map[partitionKey][]int{}
	var order []partitionKey
	for i, r := range records {
		key := partitionKey{query: r.QueryName, target: r.TargetName, strand: r.Strand}
		if _, ok := partitions[key]; !ok {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], i)
	}

	var chains []MergedChain
	for _, key := range order {
		chains = append(chains, chainPartition(records, partitions[key], gap)...)
	}
	return chains
}

// chainPartition runs §4.5 steps 2-8 over one (query, target, strand)
// partition, given as indices into records.
func chainPartition(records []align.RecordMeta, idxs []int, gap int64) []MergedChain {
	r := append([]int(nil), idxs...)
	sort.Slice(r, func(a, b int) bool {
		return records[r[a]].QueryStart < records[r[b]].QueryStart
	})
	n := len(r)

	bestPred := make([]int, n) // -1 means none
	bestScore := make([]float64, n)
	for i := range bestPred {
		bestPred[i] = -1
		bestScore[i] = math.Inf(1)
	}

	for i := 0; i < n; i++ {
		ri := &records[r[i]]
		sLimit := ri.QueryEnd + gap

		bestJ := -1
		bestLocalScore := math.Inf(1)
		for j := i + 1; j < n; j++ {
			rj := &records[r[j]]
			if rj.QueryStart > sLimit {
				break
			}
			qGap, qOK := signedGap(ri.QueryStart, ri.QueryEnd, rj.QueryStart, rj.QueryEnd, gap)
			var tGap float64
			var tOK bool
			if ri.Strand == align.Forward {
				tGap, tOK = signedGap(ri.TargetStart, ri.TargetEnd, rj.TargetStart, rj.TargetEnd, gap)
			} else {
				// Reverse-strand alignments move backwards in target space as
				// query advances, so the axis roles swap: j's target interval
				// is the "leading" one and i's the "trailing" one.
				tGap, tOK = signedGap(rj.TargetStart, rj.TargetEnd, ri.TargetStart, ri.TargetEnd, gap)
			}
			if !qOK || !tOK {
				continue
			}
			score := qGap*qGap + tGap*tGap
			// Best-buddy: only a candidate that is both i's best outgoing
			// link so far and better than j's best known incoming link wins.
			if score < bestLocalScore && score < bestScore[j] {
				bestLocalScore = score
				bestJ = j
			}
		}
		if bestJ >= 0 {
			bestScore[bestJ] = bestLocalScore
			bestPred[bestJ] = i
		}
	}

	uf := unionfind.New(n)
	for j := 0; j < n; j++ {
		if bestPred[j] >= 0 {
			uf.Union(bestPred[j], j)
		}
	}

	var chains []MergedChain
	for _, set := range uf.Sets() {
		chains = append(chains, materializeChain(records, r, set))
	}
	return chains
}

// signedGap implements §4.5 step 4: the signed-gap rule permitting small
// overlaps (up to gap/5) to act as linking gaps. ok is false when the pair
// is not eligible on this axis.
func signedGap(aStart, aEnd, bStart, bEnd, gap int64) (g float64, ok bool) {
	if bStart >= aEnd {
		sep := bStart - aEnd
		return float64(sep), sep <= gap
	}
	overlap := aEnd - bStart
	if overlap <= gap/5 {
		return float64(overlap), true
	}
	return float64(gap + 1), false
}

// materializeChain builds a MergedChain from a set of local indices (into
// r, which indexes records) belonging to one union-find partition.
func materializeChain(records []align.RecordMeta, r []int, localSet []int) MergedChain {
	first := &records[r[localSet[0]]]
	c := MergedChain{
		QueryName:   first.QueryName,
		TargetName:  first.TargetName,
		Strand:      first.Strand,
		QueryStart:  first.QueryStart,
		QueryEnd:    first.QueryEnd,
		TargetStart: first.TargetStart,
		TargetEnd:   first.TargetEnd,
	}
	for _, local := range localSet {
		rec := &records[r[local]]
		if rec.QueryStart < c.QueryStart {
			c.QueryStart = rec.QueryStart
		}
		if rec.QueryEnd > c.QueryEnd {
			c.QueryEnd = rec.QueryEnd
		}
		if rec.TargetStart < c.TargetStart {
			c.TargetStart = rec.TargetStart
		}
		if rec.TargetEnd > c.TargetEnd {
			c.TargetEnd = rec.TargetEnd
		}
		c.SumMatches += rec.Matches
		c.SumBlockLengths += rec.BlockLength
		c.MemberRanks = append(c.MemberRanks, rec.Rank)
	}
	sort.Ints(c.MemberRanks)
	return c
}
