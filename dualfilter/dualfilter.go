// Package dualfilter implements the dual-axis filter (C4): given a pool of
// items keyed by contig-pair (and, for the primary filter, genome-pair),
// it runs the plane-sweep engine independently on the query and target
// axes and retains only items that survive both.
//
// It is reused for the scaffold filter (C7) over MergedChains, partitioned
// by contig-pair only.
package dualfilter

import (
	"sort"

	farm "github.com/dgryski/go-farm"

	"github.com/grailbio/synteny/sweep"
)

// Item is the axis-agnostic unit dualfilter operates over: one alignment
// record or one scaffold chain, reduced to the coordinates and score the
// sweep needs plus the grouping keys partitioning requires.
type Item struct {
	Index int // the caller's index for this item; returned in the result set.

	QueryContig, TargetContig string
	QueryGenome, TargetGenome string

	QueryStart, QueryEnd   int64
	TargetStart, TargetEnd int64

	Score float64
}

// Limits bundles the selection parameters of §4.4: per-axis caps and the
// overlap threshold. A cap of 0 is treated as unbounded (mode N:N/off
// callers should not invoke Run at all; see ParseMode).
type Limits struct {
	LimitQuery  int // 0 means unbounded.
	LimitTarget int
	Overlap     float64
}

// ParseMode decodes a mode string into (limitQuery, limitTarget, skip) per
// §4.4's mode table. skip is true for "N:N"/"off", meaning the caller
// should bypass Run entirely (identity selection).
func ParseMode(mode string) (limitQuery, limitTarget int, skip bool, ok bool) {
	switch mode {
	case "1:1":
		return 1, 1, false, true
	case "1:N":
		return 1, 0, false, true
	case "N:N", "off", "":
		return 0, 0, true, true
	default:
		var m, n string
		sep := -1
		for i := 0; i < len(mode); i++ {
			if mode[i] == ':' {
				sep = i
				break
			}
		}
		if sep < 0 {
			return 0, 0, false, false
		}
		m, n = mode[:sep], mode[sep+1:]
		lq, okq := parseBound(m)
		lt, okt := parseBound(n)
		if !okq || !okt {
			return 0, 0, false, false
		}
		return lq, lt, false, true
	}
}

// parseBound parses one side of an "M:N" mode string: a decimal integer, or
// the literal "inf"/"N" for unbounded.
func parseBound(s string) (int, bool) {
	switch s {
	case "inf", "N":
		return 0, true
	}
	n := 0
	if len(s) == 0 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}

const unbounded = 1 << 30

func capOrUnbounded(n int) int {
	if n <= 0 {
		return unbounded
	}
	return n
}

// Run applies the dual-axis filter to items and returns the surviving
// indices (Item.Index values), in ascending order. partitionByGenome
// additionally partitions by genome-pair before contig-pair partitioning
// (§4.4 step 5). Both callers in package pipeline pass false: the primary
// stage groups records by genome pair itself before calling Run, and the
// scaffold filter partitions by contig pair only.
func Run(items []Item, limits Limits, partitionByGenome bool) []int {
	type contigGroup struct {
		key   string
		items []Item
	}

	var genomeOrder []uint64
	genomeBuckets := map[uint64][]*contigGroup{}
	addToGenomeBucket := func(gkey string, it Item) {
		h := pairHash(gkey)
		bucket := genomeBuckets[h]
		for _, g := range bucket {
			if g.key == gkey {
				g.items = append(g.items, it)
				return
			}
		}
		if len(bucket) == 0 {
			genomeOrder = append(genomeOrder, h)
		}
		genomeBuckets[h] = append(bucket, &contigGroup{key: gkey, items: []Item{it}})
	}

	for _, it := range items {
		gkey := ""
		if partitionByGenome {
			gkey = it.QueryGenome + "\x00" + it.TargetGenome
		}
		addToGenomeBucket(gkey, it)
	}

	var survivors []int
	for _, h := range genomeOrder {
		for _, genomeGroup := range genomeBuckets[h] {
			var contigOrder []uint64
			contigBuckets := map[uint64][]*contigGroup{}
			for _, it := range genomeGroup.items {
				ckey := it.QueryContig + "\x00" + it.TargetContig
				ch := pairHash(ckey)
				bucket := contigBuckets[ch]
				found := false
				for _, g := range bucket {
					if g.key == ckey {
						g.items = append(g.items, it)
						found = true
						break
					}
				}
				if !found {
					if len(bucket) == 0 {
						contigOrder = append(contigOrder, ch)
					}
					contigBuckets[ch] = append(bucket, &contigGroup{key: ckey, items: []Item{it}})
				}
			}
			for _, ch := range contigOrder {
				for _, cg := range contigBuckets[ch] {
					survivors = append(survivors, runPartition(cg.items, limits)...)
				}
			}
		}
	}
	sort.Ints(survivors)
	return survivors
}

// pairHash hashes a grouping key for map bucketing (§4.11: farm hashing
// avoids repeated string concatenation costs when grouping millions of
// records). Bucket collisions are resolved by exact key comparison, so a
// hash collision never merges two distinct partitions.
func pairHash(key string) uint64 {
	return farm.Hash64WithSeed([]byte(key), 0)
}

// runPartition applies steps 2-4 of §4.4 to one contig-pair partition.
func runPartition(items []Item, limits Limits) []int {
	kq := sweepAxis(items, limits.LimitQuery, limits.Overlap, true)
	kt := sweepAxis(items, limits.LimitTarget, limits.Overlap, false)

	out := make([]int, 0, len(kq))
	for idx := range kq {
		if kt[idx] {
			out = append(out, idx)
		}
	}
	return out
}

// sweepAxis groups items by their contig on one axis (query contigs are
// always identical within a contig-pair partition, but grouping this way
// keeps sweepAxis correct if callers ever pass a larger pool), runs C3 on
// each group, and returns the set of retained indices.
func sweepAxis(items []Item, limit int, theta float64, query bool) map[int]bool {
	k := capOrUnbounded(limit)
	retained := make(map[int]bool)

	groups := map[string][]sweep.Interval{}
	var order []string
	for _, it := range items {
		var contig string
		var start, end int64
		if query {
			contig, start, end = it.QueryContig, it.QueryStart, it.QueryEnd
		} else {
			contig, start, end = it.TargetContig, it.TargetStart, it.TargetEnd
		}
		if _, ok := groups[contig]; !ok {
			order = append(order, contig)
		}
		groups[contig] = append(groups[contig], sweep.Interval{
			Start: start, End: end, Score: it.Score, Index: it.Index,
		})
	}

	for _, contig := range order {
		for _, idx := range sweep.Run(groups[contig], k, theta) {
			retained[idx] = true
		}
	}
	return retained
}
