package exonmap_test

import (
	"strings"
	"testing"

	"github.com/bio-ngs/pseudobam/exonmap"
	"github.com/stretchr/testify/require"
)

func TestLoadMergesContiguousSpans(t *testing.T) {
	csv := "tx1,1,1,100,1000,0,chr1\ntx1,1,101,200,2000,0,chr1\ntx2,-1,1,50,500,0,chr2\n"
	m, err := exonmap.Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, m, 2)

	tx1 := m["tx1"]
	require.Equal(t, "chr1", tx1.Chromosome)
	require.Equal(t, int8(1), tx1.Strand)
	require.Len(t, tx1.Spans, 2)
	require.Equal(t, exonmap.ExonSpan{SegmentStart: 1, SegmentEnd: 100, GenomePosition: 1000}, tx1.Spans[0])
	require.Equal(t, exonmap.ExonSpan{SegmentStart: 101, SegmentEnd: 200, GenomePosition: 2000}, tx1.Spans[1])

	tx2 := m["tx2"]
	require.Equal(t, int8(-1), tx2.Strand)
	require.True(t, tx2.Negative())
}

func TestLoadPairsIntronStartAndEnd(t *testing.T) {
	// Two consecutive ")"-suffixed rows sharing the "GENE::" prefix pair up.
	csv := "GENE::tx1),1,1,100,1000,0,chr1\n" +
		"GENE::tx2),1,1,50,5000,0,chr1\n"
	m, err := exonmap.Load(strings.NewReader(csv))
	require.NoError(t, err)

	first := m["GENE::tx1)"]
	second := m["GENE::tx2)"]
	require.Equal(t, exonmap.IntronStart, first.Intron)
	require.Equal(t, exonmap.IntronEnd, second.Intron)
	require.True(t, first.PairJunctionStart >= 0)
	require.True(t, second.PairJunctionStart >= 0)
}

func TestLoadUnpairedParenSuffixIsIntronFull(t *testing.T) {
	csv := "solo::onlyextra),1,1,100,1000,0,chr1\n"
	m, err := exonmap.Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, exonmap.IntronFull, m["solo::onlyextra)"].Intron)
}

func TestLoadRejectsShortRow(t *testing.T) {
	_, err := exonmap.Load(strings.NewReader("tx1,1,1,100\n"))
	require.Error(t, err)
}

func TestLoadRejectsNonIntegerField(t *testing.T) {
	_, err := exonmap.Load(strings.NewReader("tx1,1,X,100,1000,0,chr1\n"))
	require.Error(t, err)
}
