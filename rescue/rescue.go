// Package rescue implements the rescue index (C8): for every non-anchor
// record not on the do-not-rescue list, it looks for a scaffold anchor on
// the same contig pair whose midpoint lies within a configured Euclidean
// radius, using a 1-D early cut on query midpoint before the full 2-D
// distance check.
package rescue

import (
	"sort"

	"github.com/grailbio/synteny/align"
	"github.com/grailbio/synteny/interval"
	"github.com/grailbio/synteny/util"
)

// Anchor is one scaffold anchor available for rescue: a record's rank,
// chain id, and query/target midpoints.
type Anchor struct {
	Rank      int
	ChainID   int
	QueryMid  float64
	TargetMid float64
}

// Outcome is the rescue verdict for one candidate record.
type Outcome struct {
	Rank    int
	Kept    bool
	Status  align.ChainStatus // meaningful only when Kept.
	ChainID int               // the record's own, or the rescuing anchor's, chain id.
}

// index is one contig-pair's sorted anchor structure.
type index struct {
	anchors   []Anchor
	queryMids []interval.PosType // parallel to anchors, sorted ascending.
}

// Run applies §4.8 to the full post-primary record set. anchorChainID maps
// the rank of every scaffold anchor to its chain id; doNotRescue is the set
// of ranks belonging to filtered-out chains. radius is D; D <= 0 disables
// rescue (every non-anchor candidate is discarded).
func Run(records []align.RecordMeta, anchorChainID map[int]int, doNotRescue map[int]bool, radius float64) []Outcome {
	byPair := map[align.ContigPairKey][]align.RecordMeta{}
	var order []align.ContigPairKey
	for _, r := range records {
		key := r.Pair()
		if _, ok := byPair[key]; !ok {
			order = append(order, key)
		}
		byPair[key] = append(byPair[key], r)
	}

	var outcomes []Outcome
	for _, key := range order {
		group := byPair[key]
		sort.Slice(group, func(a, b int) bool { return group[a].QueryStart < group[b].QueryStart })

		idx := buildIndex(group, anchorChainID)
		for _, m := range group {
			outcomes = append(outcomes, resolve(m, anchorChainID, doNotRescue, idx, radius))
		}
	}
	return outcomes
}

// buildIndex constructs the sorted anchor structure for one contig pair's
// records, keyed by query midpoint for the 1-D early cut.
func buildIndex(group []align.RecordMeta, anchorChainID map[int]int) index {
	var idx index
	for _, r := range group {
		if chainID, ok := anchorChainID[r.Rank]; ok {
			idx.anchors = append(idx.anchors, Anchor{
				Rank: r.Rank, ChainID: chainID,
				QueryMid: r.QueryMid(), TargetMid: r.TargetMid(),
			})
		}
	}
	sort.Slice(idx.anchors, func(a, b int) bool { return idx.anchors[a].QueryMid < idx.anchors[b].QueryMid })
	idx.queryMids = make([]interval.PosType, len(idx.anchors))
	for i, a := range idx.anchors {
		idx.queryMids[i] = interval.PosType(a.QueryMid)
	}
	return idx
}

// resolve decides the outcome for one candidate record m per §4.8 steps 1-4.
func resolve(m align.RecordMeta, anchorChainID map[int]int, doNotRescue map[int]bool, idx index, radius float64) Outcome {
	if chainID, ok := anchorChainID[m.Rank]; ok {
		return Outcome{Rank: m.Rank, Kept: true, Status: align.Scaffold, ChainID: chainID}
	}
	if doNotRescue[m.Rank] {
		return Outcome{Rank: m.Rank, Kept: false}
	}
	if radius <= 0 {
		return Outcome{Rank: m.Rank, Kept: false}
	}

	qMid, tMid := m.QueryMid(), m.TargetMid()
	// -1 guards against float-to-PosType truncation ever excluding a
	// borderline anchor; the exact Euclidean check below is what actually
	// enforces radius.
	lo := interval.SearchPosTypes(idx.queryMids, interval.PosType(qMid-radius)-1)
	for i := lo; i < len(idx.anchors); i++ {
		a := idx.anchors[i]
		if a.QueryMid > qMid+radius {
			break
		}
		if util.Euclidean2D(qMid, tMid, a.QueryMid, a.TargetMid) <= radius {
			return Outcome{Rank: m.Rank, Kept: true, Status: align.Rescued, ChainID: a.ChainID}
		}
	}
	return Outcome{Rank: m.Rank, Kept: false}
}
