package interval

import (
	"math"
	"sort"
)

// PosType is the type used to represent alignment coordinates. int64,
// matching align.RecordMeta's own coordinate fields: pangenome-scale contig
// pairs can exceed the ~2.1e9 range an int32 allows.
type PosType int64

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt64

// SearchPosTypes returns the index of the first element of a (sorted
// ascending) that is >= x, or len(a) if there is none. It's exactly
// sort.SearchInts, specialized to PosType.
func SearchPosTypes(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// ExpsearchPosType performs exponential search
// (https://en.wikipedia.org/wiki/Exponential_search), checking a[idx], then
// a[idx+1], then a[idx+3], then a[idx+7], etc., finishing with a binary
// search once it has either found an element >= x or hit the end of the
// slice. It is a better choice than SearchPosTypes when repeatedly querying
// with a monotonically increasing x starting near the previous result, which
// is exactly the access pattern of scanning mappings sorted by query start
// against a sorted anchor list.
func ExpsearchPosType(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}
