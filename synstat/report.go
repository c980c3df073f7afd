// Package synstat collects per-stage counters for one pipeline run and
// renders them as a summary report, in the style of
// markduplicates.Metrics/fusion.Stats: a plain struct of counts, accumulated
// as the pipeline runs, with a String method for logging.
package synstat

import (
	"fmt"
	"strings"
	"sync"

	"github.com/grailbio/base/log"
)

// Report accumulates the counters spec.md's pipeline driver (C9) and its
// collaborators report: how many records were dropped at each stage, how
// many chains were built/kept, and how many rescues occurred.
type Report struct {
	RecordsNormalized int
	RecordsMalformed  int // skipped by the normalizer; recoverable, §7.

	DroppedMinBlockLength int
	DroppedMinIdentity    int
	DroppedSelfAlignment  int

	PrimarySurvivors int

	ChainsBuilt   int
	ChainsDropped int // span or identity below the scaffold threshold.

	ScaffoldAnchors      int
	DoNotRescueRecords   int
	RescuedRecords       int
	UnassignedSurvivors  int
	FinalRecordsEmitted  int
}

// Add merges other's counts into r.
func (r *Report) Add(other *Report) {
	r.RecordsNormalized += other.RecordsNormalized
	r.RecordsMalformed += other.RecordsMalformed
	r.DroppedMinBlockLength += other.DroppedMinBlockLength
	r.DroppedMinIdentity += other.DroppedMinIdentity
	r.DroppedSelfAlignment += other.DroppedSelfAlignment
	r.PrimarySurvivors += other.PrimarySurvivors
	r.ChainsBuilt += other.ChainsBuilt
	r.ChainsDropped += other.ChainsDropped
	r.ScaffoldAnchors += other.ScaffoldAnchors
	r.DoNotRescueRecords += other.DoNotRescueRecords
	r.RescuedRecords += other.RescuedRecords
	r.UnassignedSurvivors += other.UnassignedSurvivors
	r.FinalRecordsEmitted += other.FinalRecordsEmitted
}

// String renders a multi-line summary suitable for -stats output, modeled
// on alnstats's per-stage report.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "records normalized:     %d (malformed skipped: %d)\n", r.RecordsNormalized, r.RecordsMalformed)
	fmt.Fprintf(&b, "dropped pre-filter:     %d (block-length) + %d (identity) + %d (self-alignment)\n",
		r.DroppedMinBlockLength, r.DroppedMinIdentity, r.DroppedSelfAlignment)
	fmt.Fprintf(&b, "primary survivors:      %d\n", r.PrimarySurvivors)
	fmt.Fprintf(&b, "scaffold chains:        %d built, %d dropped\n", r.ChainsBuilt, r.ChainsDropped)
	fmt.Fprintf(&b, "scaffold anchors:       %d (do-not-rescue: %d)\n", r.ScaffoldAnchors, r.DoNotRescueRecords)
	fmt.Fprintf(&b, "rescued records:        %d\n", r.RescuedRecords)
	fmt.Fprintf(&b, "unassigned survivors:   %d\n", r.UnassignedSurvivors)
	fmt.Fprintf(&b, "final records emitted:  %d\n", r.FinalRecordsEmitted)
	return b.String()
}

// Log writes the report to grailbio/base/log at info level, one line of
// String's output per log call.
func (r *Report) Log() {
	for _, line := range strings.Split(strings.TrimRight(r.String(), "\n"), "\n") {
		log.Printf("%s", line)
	}
}

// Warner emits a given warning message at most once per Warner instance,
// mirroring the "emit the warning exactly once [per input]" rule of
// spec.md §4.1. Callers create one Warner per pipeline run.
type Warner struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewWarner returns a Warner with no warnings yet issued.
func NewWarner() *Warner {
	return &Warner{seen: make(map[string]bool)}
}

// Once logs msg via log.Error at most once per distinct msg value for this
// Warner's lifetime.
func (w *Warner) Once(msg string) {
	w.mu.Lock()
	already := w.seen[msg]
	w.seen[msg] = true
	w.mu.Unlock()
	if !already {
		log.Error.Printf("%s", msg)
	}
}
