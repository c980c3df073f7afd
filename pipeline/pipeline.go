// Package pipeline implements the pipeline driver (C9): over records the
// caller has already normalized, it composes the pre-filter, primary filter,
// best-buddy chainer, scaffold filter, and rescue index in the order of
// §4.9 and returns the surviving records with their chain decorations.
package pipeline

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/synteny/align"
	"github.com/grailbio/synteny/dualfilter"
	"github.com/grailbio/synteny/rescue"
	"github.com/grailbio/synteny/scaffold"
	"github.com/grailbio/synteny/synstat"
)

// Result is the outcome of one pipeline run.
type Result struct {
	Records []align.RecordMeta // survivors, in ascending rank order, decorated.
	Report  synstat.Report
}

// Run applies §4.9 to an already-normalized record set (callers typically
// build records via align.ReadAll or align.ReadAllLines first; rank
// assignment has already happened by then). Run itself performs no I/O.
func Run(ctx context.Context, cfg Config, records []align.RecordMeta) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, errors.Wrap(err, "pipeline: invalid configuration")
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var report synstat.Report
	report.RecordsNormalized = len(records)

	// Step 2: pre-filter drops.
	survivors := make([]align.RecordMeta, 0, len(records))
	for _, r := range records {
		if r.BlockLength < cfg.MinBlockLength {
			report.DroppedMinBlockLength++
			continue
		}
		if r.Identity < cfg.MinIdentity {
			report.DroppedMinIdentity++
			continue
		}
		if !cfg.KeepSelfAlignments && r.QueryName == r.TargetName {
			report.DroppedSelfAlignment++
			continue
		}
		survivors = append(survivors, r)
	}

	// Step 3: primary filter.
	scoring, _ := scaffold.ParseScoring(cfg.ScoringFunction)
	primarySurvivors, err := applyDualFilter(ctx, survivors, cfg.PrimaryMode, cfg.PrimaryOverlap, scoring, cfg.Parallelism)
	if err != nil {
		return Result{}, err
	}
	report.PrimarySurvivors = len(primarySurvivors)

	// Step 4: scaffolding disabled entirely.
	if cfg.ScaffoldGap == 0 {
		finalize(primarySurvivors, nil, align.Unassigned)
		sortByRank(primarySurvivors)
		report.UnassignedSurvivors = len(primarySurvivors)
		report.FinalRecordsEmitted = len(primarySurvivors)
		report.Log()
		return Result{Records: primarySurvivors, Report: report}, nil
	}

	// Step 5: build scaffolds.
	chains := scaffold.BuildChains(primarySurvivors, cfg.ScaffoldGap)
	report.ChainsBuilt = len(chains)

	// Step 6: drop chains below threshold.
	kept := make([]scaffold.MergedChain, 0, len(chains))
	for _, c := range chains {
		if c.Span() < cfg.MinScaffoldLength || c.WeightedIdentity() < cfg.MinScaffoldIdentity {
			report.ChainsDropped++
			continue
		}
		kept = append(kept, c)
	}

	// Step 7: scaffold filter (C7), partitioned by contig-pair only.
	chainItems := make([]dualfilter.Item, len(kept))
	for i, c := range kept {
		chainItems[i] = dualfilter.Item{
			Index:       i,
			QueryContig: c.QueryName, TargetContig: c.TargetName,
			QueryStart: c.QueryStart, QueryEnd: c.QueryEnd,
			TargetStart: c.TargetStart, TargetEnd: c.TargetEnd,
			Score: scaffold.ScoreChain(scoring, c.SumBlockLengths, c.SumMatches, c.WeightedIdentity()),
		}
	}
	limitQuery, limitTarget, skip, _ := dualfilter.ParseMode(cfg.ScaffoldMode)
	var survivingChainIdx map[int]bool
	if skip {
		survivingChainIdx = allIndices(len(kept))
	} else {
		idxs := dualfilter.Run(chainItems, dualfilter.Limits{
			LimitQuery: limitQuery, LimitTarget: limitTarget, Overlap: cfg.ScaffoldOverlap,
		}, false)
		survivingChainIdx = toSet(idxs)
	}

	anchorChainID := map[int]int{}
	doNotRescue := map[int]bool{}
	nextChainID := 1
	for i, c := range kept {
		if survivingChainIdx[i] {
			cid := nextChainID
			nextChainID++
			for _, rank := range c.MemberRanks {
				anchorChainID[rank] = cid
			}
		} else {
			for _, rank := range c.MemberRanks {
				doNotRescue[rank] = true
			}
		}
	}
	report.ScaffoldAnchors = len(anchorChainID)
	report.DoNotRescueRecords = len(doNotRescue)

	// Step 8: rescue.
	outcomes := rescue.Run(primarySurvivors, anchorChainID, doNotRescue, cfg.ScaffoldMaxDeviation)
	outcomeByRank := make(map[int]rescue.Outcome, len(outcomes))
	for _, o := range outcomes {
		outcomeByRank[o.Rank] = o
	}

	final := make([]align.RecordMeta, 0, len(primarySurvivors))
	for _, r := range primarySurvivors {
		o, ok := outcomeByRank[r.Rank]
		if !ok || !o.Kept {
			continue
		}
		r.ChainID = o.ChainID
		r.ChainStatus = o.Status
		if o.Status == align.Rescued {
			report.RescuedRecords++
		}
		final = append(final, r)
	}
	sortByRank(final)

	// Step 9: emit.
	report.FinalRecordsEmitted = len(final)
	report.Log()
	return Result{Records: final, Report: report}, nil
}

// applyDualFilter runs the primary filter (§4.4), optionally splitting
// genome-pair partitions across a bounded worker pool while preserving rank
// order in the merged result (§5's "permitted, not required" parallelism).
func applyDualFilter(ctx context.Context, records []align.RecordMeta, mode string, overlap float64, scoring scaffold.Scoring, parallelism int) ([]align.RecordMeta, error) {
	limitQuery, limitTarget, skip, ok := dualfilter.ParseMode(mode)
	if !ok {
		return nil, errors.Errorf("pipeline: unrecognized primary_mode %q", mode)
	}
	if skip {
		out := append([]align.RecordMeta(nil), records...)
		return out, nil
	}

	groups := map[align.GenomePairKey][]int{}
	var order []align.GenomePairKey
	for i, r := range records {
		key := r.GenomePair()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism > len(order) {
		parallelism = len(order)
	}
	if parallelism < 1 {
		parallelism = 1
	}

	type job struct {
		key align.GenomePairKey
		idx []int
	}
	type outcome struct {
		records []align.RecordMeta
	}

	jobCh := make(chan job, len(order))
	resultCh := make(chan outcome, len(order))
	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				items := make([]dualfilter.Item, len(j.idx))
				for i, recIdx := range j.idx {
					r := &records[recIdx]
					items[i] = dualfilter.Item{
						Index:       i,
						QueryContig: r.QueryName, TargetContig: r.TargetName,
						QueryGenome: r.QueryGenome, TargetGenome: r.TargetGenome,
						QueryStart: r.QueryStart, QueryEnd: r.QueryEnd,
						TargetStart: r.TargetStart, TargetEnd: r.TargetEnd,
						Score: scaffold.ScoreRecord(scoring, r.BlockLength, r.Matches, r.Identity),
					}
				}
				survivingLocal := dualfilter.Run(items, dualfilter.Limits{
					LimitQuery: limitQuery, LimitTarget: limitTarget, Overlap: overlap,
				}, false)
				out := make([]align.RecordMeta, len(survivingLocal))
				for i, local := range survivingLocal {
					out[i] = records[j.idx[local]]
				}
				resultCh <- outcome{records: out}
			}
		}()
	}
	for _, key := range order {
		jobCh <- job{key: key, idx: groups[key]}
	}
	close(jobCh)
	wg.Wait()
	close(resultCh)

	var merged []align.RecordMeta
	for res := range resultCh {
		merged = append(merged, res.records...)
	}
	sortByRank(merged)

	if log.At(log.Debug) {
		log.Debug.Printf("pipeline: primary filter %d partitions, %d survivors", len(order), len(merged))
	}
	return merged, nil
}

func finalize(records []align.RecordMeta, chainID map[int]int, status align.ChainStatus) {
	for i := range records {
		records[i].ChainStatus = status
		if chainID != nil {
			records[i].ChainID = chainID[records[i].Rank]
		}
	}
}

func sortByRank(records []align.RecordMeta) {
	sort.Slice(records, func(i, j int) bool { return records[i].Rank < records[j].Rank })
}

func allIndices(n int) map[int]bool {
	m := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		m[i] = true
	}
	return m
}

func toSet(idxs []int) map[int]bool {
	m := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		m[i] = true
	}
	return m
}
