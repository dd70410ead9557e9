package bamheader_test

import (
	"strings"
	"testing"

	"github.com/bio-ngs/pseudobam/bamheader"
	"github.com/bio-ngs/pseudobam/exonmap"
	"github.com/stretchr/testify/require"
)

func buildRefs(t *testing.T) *exonmap.ReferenceTable {
	m := exonmap.ExonMap{
		"tx1": {Chromosome: "chr2", Strand: 1, Spans: []exonmap.ExonSpan{{1, 100, 1000}}},
		"tx2": {Chromosome: "chr1", Strand: 1, Spans: []exonmap.ExonSpan{{1, 50, 2000}}},
	}
	refs, err := exonmap.BuildReferenceTable(m, []string{"tx1", "tx2"})
	require.NoError(t, err)
	return refs
}

func TestTextOrdersByChromosomeName(t *testing.T) {
	text := bamheader.Text(buildRefs(t), true)
	require.True(t, strings.HasPrefix(text, "@HD\tVN:1.0\tSO:coordinate\n"))
	chr1Idx := strings.Index(text, "SN:chr1")
	chr2Idx := strings.Index(text, "SN:chr2")
	require.True(t, chr1Idx >= 0 && chr2Idx >= 0 && chr1Idx < chr2Idx)
	require.True(t, strings.Contains(text, "@PG\tID:pseudobam"))
}

func TestUnsortedHeaderOmitsSortOrder(t *testing.T) {
	text := bamheader.Text(buildRefs(t), false)
	require.False(t, strings.Contains(text, "SO:coordinate"))
}

func TestBAMPrefixStartsWithMagic(t *testing.T) {
	prefix := bamheader.BAMPrefix(buildRefs(t), true)
	require.Equal(t, "BAM\x01", string(prefix[:4]))
}
