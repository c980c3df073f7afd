package rescue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grailbio/synteny/align"
)

func TestRunRescueWithinRadius(t *testing.T) {
	// S4: anchor midpoint (1000,1000), candidate midpoint (1200,1150),
	// D=300, distance 250 <= 300.
	records := []align.RecordMeta{
		{Rank: 0, QueryName: "qA", TargetName: "tA", QueryStart: 900, QueryEnd: 1100, TargetStart: 900, TargetEnd: 1100},
		{Rank: 1, QueryName: "qA", TargetName: "tA", QueryStart: 1100, QueryEnd: 1300, TargetStart: 1050, TargetEnd: 1250},
	}
	anchorChainID := map[int]int{0: 1}
	outcomes := Run(records, anchorChainID, nil, 300)

	byRank := map[int]Outcome{}
	for _, o := range outcomes {
		byRank[o.Rank] = o
	}
	assert.True(t, byRank[0].Kept)
	assert.Equal(t, align.Scaffold, byRank[0].Status)
	assert.True(t, byRank[1].Kept)
	assert.Equal(t, align.Rescued, byRank[1].Status)
	assert.Equal(t, 1, byRank[1].ChainID)
}

func TestRunDoNotRescue(t *testing.T) {
	// S5: candidate was a member of an eliminated chain; discarded even
	// though its midpoint is within D of the anchor.
	records := []align.RecordMeta{
		{Rank: 0, QueryName: "qA", TargetName: "tA", QueryStart: 900, QueryEnd: 1100, TargetStart: 900, TargetEnd: 1100},
		{Rank: 1, QueryName: "qA", TargetName: "tA", QueryStart: 1100, QueryEnd: 1300, TargetStart: 1050, TargetEnd: 1250},
	}
	anchorChainID := map[int]int{0: 1}
	doNotRescue := map[int]bool{1: true}
	outcomes := Run(records, anchorChainID, doNotRescue, 300)

	byRank := map[int]Outcome{}
	for _, o := range outcomes {
		byRank[o.Rank] = o
	}
	assert.False(t, byRank[1].Kept)
}

func TestRunCrossContigRescueForbidden(t *testing.T) {
	// S6: same midpoints, but candidate is on a different contig pair.
	records := []align.RecordMeta{
		{Rank: 0, QueryName: "qA", TargetName: "tA", QueryStart: 900, QueryEnd: 1100, TargetStart: 900, TargetEnd: 1100},
		{Rank: 1, QueryName: "qA", TargetName: "tB", QueryStart: 900, QueryEnd: 1100, TargetStart: 900, TargetEnd: 1100},
	}
	anchorChainID := map[int]int{0: 1}
	outcomes := Run(records, anchorChainID, nil, 300)

	byRank := map[int]Outcome{}
	for _, o := range outcomes {
		byRank[o.Rank] = o
	}
	assert.False(t, byRank[1].Kept)
}

func TestRunRescueBeyondInt32Coordinates(t *testing.T) {
	// Pangenome-scale contig-pair coordinates can exceed math.MaxInt32
	// (~2.1e9); the early-cut search must not silently truncate them.
	const base = int64(1) << 32
	records := []align.RecordMeta{
		{Rank: 0, QueryName: "qA", TargetName: "tA", QueryStart: base + 900, QueryEnd: base + 1100, TargetStart: base + 900, TargetEnd: base + 1100},
		{Rank: 1, QueryName: "qA", TargetName: "tA", QueryStart: base + 1100, QueryEnd: base + 1300, TargetStart: base + 1050, TargetEnd: base + 1250},
	}
	anchorChainID := map[int]int{0: 1}
	outcomes := Run(records, anchorChainID, nil, 300)

	byRank := map[int]Outcome{}
	for _, o := range outcomes {
		byRank[o.Rank] = o
	}
	assert.True(t, byRank[1].Kept)
	assert.Equal(t, align.Rescued, byRank[1].Status)
}

func TestRunDisabledWhenRadiusZero(t *testing.T) {
	records := []align.RecordMeta{
		{Rank: 0, QueryName: "qA", TargetName: "tA", QueryStart: 0, QueryEnd: 100, TargetStart: 0, TargetEnd: 100},
		{Rank: 1, QueryName: "qA", TargetName: "tA", QueryStart: 50, QueryEnd: 150, TargetStart: 50, TargetEnd: 150},
	}
	anchorChainID := map[int]int{0: 1}
	outcomes := Run(records, anchorChainID, nil, 0)

	byRank := map[int]Outcome{}
	for _, o := range outcomes {
		byRank[o.Rank] = o
	}
	assert.False(t, byRank[1].Kept)
}
