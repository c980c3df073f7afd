// Package align normalizes raw PAF-style alignment records into RecordMeta
// values and writes surviving records back out with chain annotations.
//
// Reading and writing the binary alignment formats produced by whole-genome
// aligners is out of scope here (an external collaborator's job); this
// package only speaks the textual tab-separated record contract the
// normalizer and emitter share with their callers.
package align

import "strings"

// ChainStatus records how a record ended up in (or out of) the output set.
type ChainStatus int

const (
	// Unassigned records never entered a scaffold chain: the pipeline emits
	// them only when scaffolding is disabled.
	Unassigned ChainStatus = iota
	// Scaffold records are members of a chain that survived scaffold
	// filtering: they are anchors.
	Scaffold
	// Rescued records were re-admitted near a scaffold anchor.
	Rescued
)

// String renders the status the way it is written as the "st:Z:" tag.
func (s ChainStatus) String() string {
	switch s {
	case Scaffold:
		return "scaffold"
	case Rescued:
		return "rescued"
	default:
		return "unassigned"
	}
}

// Strand is the alignment orientation.
type Strand byte

const (
	Forward Strand = '+'
	Reverse Strand = '-'
)

// RecordMeta is one normalized alignment, immutable except for the
// chain-decoration fields the filter pipeline fills in.
//
// Invariants (checked by Normalize, assumed true everywhere downstream):
//  1. QueryStart < QueryEnd and TargetStart < TargetEnd (half-open, non-empty).
//  2. Matches <= BlockLength.
//  3. 0 <= Identity <= 1.
//  4. Rank is unique within one input set (the caller's responsibility: it
//     is assigned by Normalize in input order).
type RecordMeta struct {
	Rank int

	QueryName  string
	TargetName string
	Strand     Strand

	QueryStart, QueryEnd   int64
	TargetStart, TargetEnd int64

	BlockLength int64
	Matches     int64
	Identity    float64

	// QueryGenome and TargetGenome are the PanSN genome-prefix derived from
	// QueryName/TargetName at normalization time (see DerivePrefix), so that
	// primary-filter partitioning never has to re-scan the contig name.
	QueryGenome  string
	TargetGenome string

	// Tags holds any tag fields the core does not itself interpret
	// (anything other than cg:Z: and dv:f:), preserved verbatim for
	// re-emission.
	Tags []string

	// Mutable decoration, filled in by the pipeline (never by Normalize).
	ChainID     int // 1-based; 0 means "no chain".
	ChainStatus ChainStatus
}

// QuerySpan returns QueryEnd - QueryStart.
func (r *RecordMeta) QuerySpan() int64 { return r.QueryEnd - r.QueryStart }

// TargetSpan returns TargetEnd - TargetStart.
func (r *RecordMeta) TargetSpan() int64 { return r.TargetEnd - r.TargetStart }

// QueryMid returns the midpoint of the query interval.
func (r *RecordMeta) QueryMid() float64 {
	return float64(r.QueryStart+r.QueryEnd) / 2
}

// TargetMid returns the midpoint of the target interval.
func (r *RecordMeta) TargetMid() float64 {
	return float64(r.TargetStart+r.TargetEnd) / 2
}

// ContigPairKey identifies the (query contig, target contig) pair a record
// belongs to. Used by every stage except primary-filter partitioning.
type ContigPairKey struct {
	Query, Target string
}

// Pair returns the record's contig-pair key.
func (r *RecordMeta) Pair() ContigPairKey {
	return ContigPairKey{Query: r.QueryName, Target: r.TargetName}
}

// GenomePairKey identifies the (query genome, target genome) pair a record
// belongs to, derived from the PanSN prefix of each contig name. Used only
// to partition the primary plane-sweep filter.
type GenomePairKey struct {
	Query, Target string
}

// GenomePair returns the record's genome-pair key.
func (r *RecordMeta) GenomePair() GenomePairKey {
	return GenomePairKey{Query: r.QueryGenome, Target: r.TargetGenome}
}

// DerivePrefix returns the PanSN genome prefix of a contig name: the prefix
// up to and including its final occurrence of delim. If delim does not
// occur, or prefix grouping is disabled, the whole name is the prefix (every
// contig is its own genome).
func DerivePrefix(name string, delim byte, enabled bool) string {
	if !enabled {
		return name
	}
	idx := strings.LastIndexByte(name, delim)
	if idx < 0 {
		return name
	}
	return name[:idx+1]
}
