package pipeline

import (
	"github.com/grailbio/base/errors"

	"github.com/grailbio/synteny/dualfilter"
	"github.com/grailbio/synteny/scaffold"
)

// Config is the flat configuration surface of §6.3: one struct, one default
// literal, validated once before the driver touches any record.
type Config struct {
	// MinBlockLength drops records with block_length below this, pre-filter.
	MinBlockLength int64
	// MinIdentity drops records with identity below this, pre-filter.
	MinIdentity float64
	// KeepSelfAlignments includes records with query_name == target_name.
	KeepSelfAlignments bool

	// PrimaryMode is one of {off, M:N, 1:1, 1:N}; sets the primary filter's
	// per-axis caps.
	PrimaryMode string
	// PrimaryOverlap is theta for the primary plane sweep.
	PrimaryOverlap float64

	// ScaffoldGap is the gap bound for best-buddy chaining; 0 disables
	// scaffolding entirely.
	ScaffoldGap int64
	// MinScaffoldLength is the chain span threshold.
	MinScaffoldLength int64
	// MinScaffoldIdentity is the chain weighted_identity threshold.
	MinScaffoldIdentity float64
	// ScaffoldMode and ScaffoldOverlap mirror PrimaryMode/PrimaryOverlap but
	// apply to the scaffold filter (C7).
	ScaffoldMode    string
	ScaffoldOverlap float64

	// ScaffoldMaxDeviation is D for rescue; 0 disables rescue.
	ScaffoldMaxDeviation float64

	// ScoringFunction is one of {Identity, Length, LengthIdentity,
	// LogLengthIdentity, Matches}.
	ScoringFunction string

	// PrefixDelimiter and UsePrefixGrouping control how genome-pair keys are
	// derived from contig names (the PanSN convention).
	PrefixDelimiter   byte
	UsePrefixGrouping bool

	// Parallelism bounds the worker pool used to evaluate genome-pair
	// partitions of the primary filter concurrently. 0 means GOMAXPROCS.
	Parallelism int
}

// DefaultConfig holds the values a default pipeline run uses.
var DefaultConfig = Config{
	MinBlockLength:       0,
	MinIdentity:          0,
	KeepSelfAlignments:   false,
	PrimaryMode:          "1:1",
	PrimaryOverlap:       0.95,
	ScaffoldGap:          100000,
	MinScaffoldLength:    0,
	MinScaffoldIdentity:  0,
	ScaffoldMode:         "1:1",
	ScaffoldOverlap:      0.95,
	ScaffoldMaxDeviation: 0,
	ScoringFunction:      "LogLengthIdentity",
	PrefixDelimiter:      '#',
	UsePrefixGrouping:    false,
	Parallelism:          0,
}

// Validate performs the "Configuration error" checks of §7 before the
// driver processes any record.
func (c *Config) Validate() error {
	if c.MinBlockLength < 0 {
		return errors.E(errors.Invalid, "pipeline: min_block_length must be >= 0")
	}
	if c.MinIdentity < 0 || c.MinIdentity > 1 {
		return errors.E(errors.Invalid, "pipeline: min_identity must be in [0,1]")
	}
	if c.PrimaryOverlap < 0 || c.PrimaryOverlap > 1 {
		return errors.E(errors.Invalid, "pipeline: primary_overlap must be in [0,1]")
	}
	if c.ScaffoldOverlap < 0 || c.ScaffoldOverlap > 1 {
		return errors.E(errors.Invalid, "pipeline: scaffold_overlap must be in [0,1]")
	}
	if c.ScaffoldGap < 0 {
		return errors.E(errors.Invalid, "pipeline: scaffold_gap must be >= 0")
	}
	if c.MinScaffoldLength < 0 {
		return errors.E(errors.Invalid, "pipeline: min_scaffold_length must be >= 0")
	}
	if c.MinScaffoldIdentity < 0 || c.MinScaffoldIdentity > 1 {
		return errors.E(errors.Invalid, "pipeline: min_scaffold_identity must be in [0,1]")
	}
	if c.ScaffoldMaxDeviation < 0 {
		return errors.E(errors.Invalid, "pipeline: scaffold_max_deviation must be >= 0")
	}
	if _, _, _, ok := dualfilter.ParseMode(c.PrimaryMode); !ok {
		return errors.E(errors.Invalid, "pipeline: unrecognized primary_mode "+c.PrimaryMode)
	}
	if _, _, _, ok := dualfilter.ParseMode(c.ScaffoldMode); !ok {
		return errors.E(errors.Invalid, "pipeline: unrecognized scaffold_mode "+c.ScaffoldMode)
	}
	if _, ok := scaffold.ParseScoring(c.ScoringFunction); !ok {
		return errors.E(errors.Invalid, "pipeline: unrecognized scoring_function "+c.ScoringFunction)
	}
	return nil
}
