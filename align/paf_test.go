package align

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
)

func TestReadAllSkipsMalformedCountsThem(t *testing.T) {
	input := strings.Join([]string{
		"q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100",
		"",
		"q2\ttoo\tfew\tfields",
		"q3\t1000\t0\t100\t+\tt3\t2000\t0\t100\t95\t100",
	}, "\n")
	n := NewNormalizer(ScoreLogLengthIdentity, '#', false, nil)
	records, malformed, err := ReadAll(strings.NewReader(input), n)
	require.NoError(t, err)
	assert.Equal(t, 1, malformed)
	require.Len(t, records, 2)
	assert.Equal(t, "q1", records[0].QueryName)
	assert.Equal(t, "q3", records[1].QueryName)
}

func TestReadAllLinesRetainsOriginalLine(t *testing.T) {
	line := "q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100\tXA:Z:extra"
	n := NewNormalizer(ScoreLogLengthIdentity, '#', false, nil)
	records, malformed, err := ReadAllLines(strings.NewReader(line), n)
	require.NoError(t, err)
	assert.Equal(t, 0, malformed)
	require.Len(t, records, 1)
	assert.Equal(t, line, records[0].Line)
	assert.Equal(t, []string{"XA:Z:extra"}, records[0].Record.Tags)
}

func TestWriteLineAppendsAnnotationTags(t *testing.T) {
	r := RecordMeta{ChainID: 3, ChainStatus: Scaffold}
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, "q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100", &r))
	assert.Equal(t, "q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100\tch:Z:chain_3\tst:Z:scaffold\n", buf.String())
}

func TestWriteLineOmitsChainTagWhenUnassigned(t *testing.T) {
	r := RecordMeta{ChainStatus: Unassigned}
	var buf bytes.Buffer
	require.NoError(t, WriteLine(&buf, "q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100", &r))
	assert.Equal(t, "q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100\tst:Z:unassigned\n", buf.String())
}

func TestWriteRecordRendersPositionalFieldsAndTags(t *testing.T) {
	r := RecordMeta{
		QueryName: "q1", TargetName: "t1", Strand: Forward,
		QueryStart: 10, QueryEnd: 20, TargetStart: 30, TargetEnd: 40,
		Matches: 9, BlockLength: 10,
		Tags: []string{"tp:A:P"}, ChainID: 1, ChainStatus: Rescued,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteRecord(&buf, &r, 1000, 2000))
	assert.Equal(t, "q1\t1000\t10\t20\t+\tt1\t2000\t30\t40\t9\t10\ttp:A:P\tch:Z:chain_1\tst:Z:rescued\n", buf.String())
}

// TestReadAllRoundTripsThroughFile exercises the normalizer against a file
// read through grailbio/base/file, the same I/O path cmd/pafsieve uses.
func TestReadAllRoundTripsThroughFile(t *testing.T) {
	ctx := vcontext.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	path := filepath.Join(dir, "in.paf")
	f, err := file.Create(ctx, path)
	require.NoError(t, err)
	_, err = f.Writer(ctx).Write([]byte("q1\t1000\t0\t100\t+\tt1\t2000\t0\t100\t90\t100\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close(ctx))

	in, err := file.Open(ctx, path)
	require.NoError(t, err)
	defer func() { require.NoError(t, in.Close(ctx)) }()

	n := NewNormalizer(ScoreLogLengthIdentity, '#', false, nil)
	records, malformed, err := ReadAll(in.Reader(ctx), n)
	require.NoError(t, err)
	assert.Equal(t, 0, malformed)
	require.Len(t, records, 1)
	assert.Equal(t, "q1", records[0].QueryName)
}
