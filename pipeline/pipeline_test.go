package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/synteny/align"
)

func r(rank int, query, target string, qs, qe, ts, te int64, block int64, identity float64) align.RecordMeta {
	return align.RecordMeta{
		Rank: rank, QueryName: query, TargetName: target, Strand: align.Forward,
		QueryStart: qs, QueryEnd: qe, TargetStart: ts, TargetEnd: te,
		BlockLength: block, Matches: int64(float64(block) * identity), Identity: identity,
		QueryGenome: query, TargetGenome: target,
	}
}

func TestRunS1BestOfOverlap(t *testing.T) {
	records := []align.RecordMeta{
		r(0, "qA", "tA", 100, 200, 300, 400, 100, 0.95),
		r(1, "qA", "tA", 100, 200, 500, 600, 100, 0.90),
		r(2, "qA", "tA", 100, 200, 700, 800, 100, 0.85),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "1:1"
	cfg.PrimaryOverlap = 0.95
	cfg.ScaffoldGap = 0

	res, err := Run(context.Background(), cfg, records)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 0, res.Records[0].Rank)
	assert.Equal(t, align.Unassigned, res.Records[0].ChainStatus)
}

func TestRunS2AdjacentIntervalsBothSurvive(t *testing.T) {
	records := []align.RecordMeta{
		r(0, "qA", "tA", 0, 100, 0, 100, 100, 0.9),
		r(1, "qA", "tA", 100, 200, 100, 200, 100, 0.9),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "1:1"
	cfg.ScaffoldGap = 0

	res, err := Run(context.Background(), cfg, records)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
}

func TestRunS3ChainingWithMicroOverlap(t *testing.T) {
	records := []align.RecordMeta{
		r(0, "qA", "tA", 0, 500, 0, 500, 500, 0.95),
		r(1, "qA", "tA", 450, 950, 450, 950, 500, 0.95),
		r(2, "qA", "tA", 2000, 2500, 2000, 2500, 500, 0.95),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "off"
	cfg.ScaffoldGap = 1000
	cfg.MinScaffoldLength = 0
	cfg.MinScaffoldIdentity = 0
	cfg.ScaffoldMode = "off"

	res, err := Run(context.Background(), cfg, records)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	chainByRank := map[int]int{}
	for _, rec := range res.Records {
		chainByRank[rec.Rank] = rec.ChainID
	}
	assert.Equal(t, chainByRank[0], chainByRank[1])
	assert.NotEqual(t, chainByRank[0], chainByRank[2])
}

func TestRunS4RescueWithinRadius(t *testing.T) {
	// R_A anchors at (1000,1000); R_B's own chain is too low-identity to
	// survive the scaffold threshold (so it is not on the do-not-rescue
	// list — it simply never scaffolded), leaving it eligible for rescue.
	records := []align.RecordMeta{
		r(0, "qA", "tA", 900, 1100, 900, 1100, 200, 0.95),
		r(1, "qA", "tA", 1100, 1300, 1050, 1250, 200, 0.5),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "off"
	cfg.ScaffoldGap = 50
	cfg.ScaffoldMode = "off"
	cfg.ScaffoldMaxDeviation = 300
	cfg.MinScaffoldLength = 0
	cfg.MinScaffoldIdentity = 0.8

	res, err := Run(context.Background(), cfg, records)
	require.NoError(t, err)

	byRank := map[int]align.RecordMeta{}
	for _, rec := range res.Records {
		byRank[rec.Rank] = rec
	}
	require.Contains(t, byRank, 0)
	require.Contains(t, byRank, 1)
	assert.Equal(t, align.Scaffold, byRank[0].ChainStatus)
	assert.Equal(t, align.Rescued, byRank[1].ChainStatus)
	assert.Equal(t, byRank[0].ChainID, byRank[1].ChainID)
}

func TestRunS5DoNotRescue(t *testing.T) {
	// Both R_A and R_C form single-member chains on the same contig pair,
	// with equal scores. On the target axis R_C is the only active chain on
	// [1100,1250), so the sweep marks it, but the two overlap by 50 of 200
	// (fraction 0.25 > 0.2) and the veto keeps only R_A (lower index first).
	// The scaffold filter (C7) thus drops R_C, placing it on the
	// do-not-rescue list even though its midpoint lies within D of R_A.
	records := []align.RecordMeta{
		r(0, "qA", "tA", 900, 1100, 900, 1100, 200, 0.95),
		r(1, "qA", "tA", 1100, 1300, 1050, 1250, 200, 0.95),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "off"
	cfg.ScaffoldGap = 50
	cfg.ScaffoldMode = "1:1"
	cfg.ScaffoldOverlap = 0.2
	cfg.ScaffoldMaxDeviation = 300
	cfg.MinScaffoldLength = 0
	cfg.MinScaffoldIdentity = 0

	res, err := Run(context.Background(), cfg, records)
	require.NoError(t, err)

	byRank := map[int]align.RecordMeta{}
	for _, rec := range res.Records {
		byRank[rec.Rank] = rec
	}
	assert.Contains(t, byRank, 0)
	assert.NotContains(t, byRank, 1)
}

func TestRunS6CrossContigRescueForbidden(t *testing.T) {
	records := []align.RecordMeta{
		r(0, "qA", "tA", 900, 1100, 900, 1100, 200, 0.95),
		r(1, "qA", "tB", 1100, 1300, 1050, 1250, 200, 0.5),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "off"
	cfg.ScaffoldGap = 50
	cfg.ScaffoldMode = "off"
	cfg.ScaffoldMaxDeviation = 300
	cfg.MinScaffoldLength = 0
	cfg.MinScaffoldIdentity = 0.8

	res, err := Run(context.Background(), cfg, records)
	require.NoError(t, err)

	byRank := map[int]align.RecordMeta{}
	for _, rec := range res.Records {
		byRank[rec.Rank] = rec
	}
	assert.Contains(t, byRank, 0)
	assert.NotContains(t, byRank, 1)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig
	cfg.ScaffoldGap = -1
	_, err := Run(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRunIdempotent(t *testing.T) {
	records := []align.RecordMeta{
		r(0, "qA", "tA", 0, 100, 0, 100, 100, 0.9),
		r(1, "qA", "tA", 50, 150, 50, 150, 100, 0.9),
		r(2, "qA", "tA", 200, 300, 200, 300, 100, 0.9),
	}
	cfg := DefaultConfig
	cfg.PrimaryMode = "N:N"
	cfg.ScaffoldGap = 0

	res1, err1 := Run(context.Background(), cfg, records)
	require.NoError(t, err1)
	res2, err2 := Run(context.Background(), cfg, records)
	require.NoError(t, err2)
	assert.Equal(t, res1.Records, res2.Records)
}
