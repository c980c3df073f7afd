package align

import (
	"strconv"
	"strings"

	"github.com/grailbio/synteny/synstat"
	"github.com/grailbio/synteny/util"
)

// Scoring identifies the scoring function in effect, needed here only to
// decide whether the "CIGAR absent" warning applies (§4.1).
type Scoring int

const (
	ScoreLogLengthIdentity Scoring = iota // default
	ScoreIdentity
	ScoreLength
	ScoreLengthIdentity
	ScoreMatches
)

// ParseScoring maps a configuration string to a Scoring value.
func ParseScoring(s string) (Scoring, bool) {
	switch s {
	case "", "LogLengthIdentity":
		return ScoreLogLengthIdentity, true
	case "Identity":
		return ScoreIdentity, true
	case "Length":
		return ScoreLength, true
	case "LengthIdentity":
		return ScoreLengthIdentity, true
	case "Matches":
		return ScoreMatches, true
	default:
		return 0, false
	}
}

// Normalizer turns raw PAF-style lines into RecordMeta values, assigning
// sequential ranks in input order. It is not safe for concurrent use; each
// input stream gets its own Normalizer.
type Normalizer struct {
	scoring     Scoring
	prefixDelim byte
	usePrefix   bool
	warn        *synstat.Warner

	nextRank  int
	sawCIGAR  bool
	checked   bool // has the first-record CIGAR check run yet
}

// NewNormalizer creates a Normalizer. warn may be nil, in which case the
// Normalizer creates and uses a Warner of its own, so the warning is still
// logged.
//
// Under Matches scoring, the "CIGAR absent" warning is decided by the first
// record normalized: it is issued when that record carries no extended
// CIGAR. Records after the first are not considered.
func NewNormalizer(scoring Scoring, prefixDelim byte, usePrefixGrouping bool, warn *synstat.Warner) *Normalizer {
	if warn == nil {
		warn = synstat.NewWarner()
	}
	return &Normalizer{scoring: scoring, prefixDelim: prefixDelim, usePrefix: usePrefixGrouping, warn: warn}
}

// Normalize parses one tab-separated PAF-style line into a RecordMeta. ok is
// false for a recoverable "skip" (§4.1, §7): too few fields, an unparseable
// positional integer, or an invalid strand.
func (n *Normalizer) Normalize(line string) (rec RecordMeta, ok bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 11 {
		return RecordMeta{}, false
	}

	queryStart, err1 := strconv.ParseInt(fields[2], 10, 64)
	queryEnd, err2 := strconv.ParseInt(fields[3], 10, 64)
	targetStart, err3 := strconv.ParseInt(fields[7], 10, 64)
	targetEnd, err4 := strconv.ParseInt(fields[8], 10, 64)
	matches, err5 := strconv.ParseInt(fields[9], 10, 64)
	blockLength, err6 := strconv.ParseInt(fields[10], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
		return RecordMeta{}, false
	}
	if queryStart >= queryEnd || targetStart >= targetEnd {
		return RecordMeta{}, false
	}

	var strand Strand
	switch fields[4] {
	case "+":
		strand = Forward
	case "-":
		strand = Reverse
	default:
		return RecordMeta{}, false
	}

	tags := fields[11:]
	haveCIGAR := false
	for _, tag := range tags {
		if cm, cx, ci, cd, ok := parseExtendedCIGAR(tag); ok {
			totalMatches := cm
			if totalMatches > 0 {
				matches = totalMatches
				blockLength = cm + cx + ci + cd
				haveCIGAR = true
			}
			break
		}
	}
	if !haveCIGAR {
		for _, tag := range tags {
			if dv, ok := parseDivergence(tag); ok {
				matches = int64(util.Round((1 - dv) * float64(blockLength)))
				break
			}
		}
	}
	if haveCIGAR {
		n.sawCIGAR = true
	}

	if matches > blockLength {
		// Invariant 2 (§3): matches <= block_length. Producer-reported
		// fields occasionally violate this on malformed input; clamp rather
		// than propagate an identity above 1.
		matches = blockLength
	}
	var identity float64
	if blockLength > 0 {
		identity = float64(matches) / float64(blockLength)
	}

	if n.scoring == ScoreMatches && !n.checked {
		n.checked = true
		if !n.sawCIGAR {
			n.warn.Once("CIGAR absent; match counts approximated")
		}
	}

	rec = RecordMeta{
		Rank:         n.nextRank,
		QueryName:    fields[0],
		TargetName:   fields[5],
		Strand:       strand,
		QueryStart:   queryStart,
		QueryEnd:     queryEnd,
		TargetStart:  targetStart,
		TargetEnd:    targetEnd,
		BlockLength:  blockLength,
		Matches:      matches,
		Identity:     identity,
		QueryGenome:  DerivePrefix(fields[0], n.prefixDelim, n.usePrefix),
		TargetGenome: DerivePrefix(fields[5], n.prefixDelim, n.usePrefix),
		Tags:         preservedTags(tags),
		ChainStatus:  Unassigned,
	}
	n.nextRank++
	return rec, true
}

// preservedTags returns the tags the core does not itself interpret (every
// tag other than cg:Z: and dv:f:), for verbatim re-emission (§6.1).
func preservedTags(tags []string) []string {
	var kept []string
	for _, t := range tags {
		if strings.HasPrefix(t, "cg:Z:") || strings.HasPrefix(t, "dv:f:") {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// parseExtendedCIGAR recognizes a cg:Z: tag and counts its =, X, I, D
// operations (M, S, H, N, P are ignored with respect to match counting).
func parseExtendedCIGAR(tag string) (matches, mismatches, ins, del int64, ok bool) {
	const prefix = "cg:Z:"
	if !strings.HasPrefix(tag, prefix) {
		return 0, 0, 0, 0, false
	}
	cigar := tag[len(prefix):]
	var num int64
	haveDigits := false
	for i := 0; i < len(cigar); i++ {
		c := cigar[i]
		if c >= '0' && c <= '9' {
			num = num*10 + int64(c-'0')
			haveDigits = true
			continue
		}
		if !haveDigits {
			return 0, 0, 0, 0, false
		}
		switch c {
		case '=':
			matches += num
		case 'X':
			mismatches += num
		case 'I':
			ins += num
		case 'D':
			del += num
		case 'M', 'S', 'H', 'N', 'P':
			// ignored with respect to match counting, per §6.1.
		default:
			return 0, 0, 0, 0, false
		}
		num = 0
		haveDigits = false
	}
	return matches, mismatches, ins, del, true
}

// parseDivergence recognizes a dv:f: tag.
func parseDivergence(tag string) (float64, bool) {
	const prefix = "dv:f:"
	if !strings.HasPrefix(tag, prefix) {
		return 0, false
	}
	v, err := strconv.ParseFloat(tag[len(prefix):], 64)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
