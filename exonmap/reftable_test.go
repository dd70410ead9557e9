package exonmap_test

import (
	"testing"

	"github.com/bio-ngs/pseudobam/exonmap"
	"github.com/stretchr/testify/require"
)

func TestBuildReferenceTableAssignsSortedRefIDs(t *testing.T) {
	m := exonmap.ExonMap{
		"tx1": {Chromosome: "chrZ", Strand: 1, Spans: []exonmap.ExonSpan{{1, 100, 1000}}},
		"tx2": {Chromosome: "chrA", Strand: 1, Spans: []exonmap.ExonSpan{{1, 50, 2000}}},
	}
	refs, err := exonmap.BuildReferenceTable(m, []string{"tx1", "tx2"})
	require.NoError(t, err)
	require.Equal(t, []string{"chrA", "chrZ"}, refs.Names())
	require.Equal(t, int32(0), refs.Lookup("chrA").RefID)
	require.Equal(t, int32(1), refs.Lookup("chrZ").RefID)
}

func TestBuildReferenceTableTakesMaxLengthPerChromosome(t *testing.T) {
	m := exonmap.ExonMap{
		"tx1": {Chromosome: "chr1", Strand: 1, Spans: []exonmap.ExonSpan{{1, 100, 1000}}},   // projected len 1099
		"tx2": {Chromosome: "chr1", Strand: 1, Spans: []exonmap.ExonSpan{{1, 50, 5000}}},    // projected len 5049
	}
	refs, err := exonmap.BuildReferenceTable(m, []string{"tx1", "tx2"})
	require.NoError(t, err)
	require.Equal(t, int32(5049), refs.Lookup("chr1").Length)
}

func TestBuildReferenceTableFailsOnMissingTranscript(t *testing.T) {
	m := exonmap.ExonMap{}
	_, err := exonmap.BuildReferenceTable(m, []string{"missing"})
	require.Error(t, err)
}
