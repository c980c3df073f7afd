package align

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadAll reads every line from r, normalizing each with n. Malformed lines
// are skipped and counted rather than causing ReadAll to fail (§7,
// "malformed record"); an error is returned only for an I/O failure from r
// itself.
func ReadAll(r io.Reader, n *Normalizer) (records []RecordMeta, malformed int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, ok := n.Normalize(line)
		if !ok {
			malformed++
			continue
		}
		records = append(records, rec)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return records, malformed, errors.Wrap(scanErr, "align: reading input")
	}
	return records, malformed, nil
}

// LineRecord pairs a normalized record with the raw line it came from, so
// that an emitter can re-emit every original field and tag unmodified.
type LineRecord struct {
	Record RecordMeta
	Line   string
}

// ReadAllLines is like ReadAll but additionally retains each surviving
// record's original input line, indexed the same way as the returned
// records (LineRecord[i].Record.Rank == i-th survivor's rank).
func ReadAllLines(r io.Reader, n *Normalizer) (records []LineRecord, malformed int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, ok := n.Normalize(line)
		if !ok {
			malformed++
			continue
		}
		records = append(records, LineRecord{Record: rec, Line: line})
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return records, malformed, errors.Wrap(scanErr, "align: reading input")
	}
	return records, malformed, nil
}

// WriteRecord appends the rank's original positional fields are not owned by
// this package (the caller supplied them as the raw line); WriteRecord
// instead renders a record from its RecordMeta plus preserved tags, used
// when the caller wants the core itself to own serialization (e.g. tests,
// or callers without the original line handy).
func WriteRecord(w io.Writer, r *RecordMeta, queryLength, targetLength int64) error {
	fields := []string{
		r.QueryName,
		strconv.FormatInt(queryLength, 10),
		strconv.FormatInt(r.QueryStart, 10),
		strconv.FormatInt(r.QueryEnd, 10),
		string(r.Strand),
		r.TargetName,
		strconv.FormatInt(targetLength, 10),
		strconv.FormatInt(r.TargetStart, 10),
		strconv.FormatInt(r.TargetEnd, 10),
		strconv.FormatInt(r.Matches, 10),
		strconv.FormatInt(r.BlockLength, 10),
	}
	fields = append(fields, r.Tags...)
	fields = append(fields, chainTags(r)...)
	_, err := fmt.Fprintln(w, strings.Join(fields, "\t"))
	if err != nil {
		return errors.Wrap(err, "align: writing record")
	}
	return nil
}

// WriteLine re-emits an originally-read line with chain annotation tags
// appended (§6.2), preserving every positional field and unrecognized tag
// verbatim rather than reconstructing them from RecordMeta. This is the path
// cmd/pafsieve uses, matching the "other tags are preserved by the emitter
// verbatim" contract of §6.1 exactly rather than approximating it.
func WriteLine(w io.Writer, originalLine string, r *RecordMeta) error {
	parts := []string{strings.TrimRight(originalLine, "\n")}
	tags := chainTags(r)
	if len(tags) > 0 {
		parts = append(parts, tags...)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, "\t"))
	if err != nil {
		return errors.Wrap(err, "align: writing record")
	}
	return nil
}

// chainTags renders the ch:Z:/st:Z: annotation tags of §6.2. ch:Z: is
// omitted for Unassigned records.
func chainTags(r *RecordMeta) []string {
	st := fmt.Sprintf("st:Z:%s", r.ChainStatus)
	if r.ChainStatus == Unassigned || r.ChainID == 0 {
		return []string{st}
	}
	return []string{fmt.Sprintf("ch:Z:chain_%d", r.ChainID), st}
}
