package junction_test

import (
	"bytes"
	"testing"

	"github.com/bio-ngs/pseudobam/junction"
	"github.com/stretchr/testify/require"
)

func TestRecordUpsertIncrementsCount(t *testing.T) {
	r := junction.NewRecorder(1)
	k := junction.Key{Chromosome: "chr1", Start: 100, End: 200}
	r.Record(k, junction.Value{Name: "n", Strand: '+', PairStart: -1, PairEnd: -1})
	r.Record(k, junction.Value{Name: "n", Strand: '+', PairStart: -1, PairEnd: -1})

	flushed := r.Flush()
	require.Len(t, flushed, 1)
	require.Equal(t, uint32(2), flushed[0].Count)
}

func TestFlushDropsUnpairedCompanion(t *testing.T) {
	r := junction.NewRecorder(1)
	r.Record(junction.Key{Chromosome: "chr1", Start: 100, End: 200}, junction.Value{
		Name: "gene-1", Strand: '+', PairStart: 500, PairEnd: 600,
	})
	require.Empty(t, r.Flush())
}

func TestFlushDropsOnNamePrefixMismatch(t *testing.T) {
	r := junction.NewRecorder(1)
	r.Record(junction.Key{Chromosome: "chr1", Start: 100, End: 200}, junction.Value{
		Name: "geneA-1", Strand: '+', PairStart: 500, PairEnd: 600,
	})
	r.Record(junction.Key{Chromosome: "chr1", Start: 500, End: 600}, junction.Value{
		Name: "geneB-1", Strand: '+', PairStart: 100, PairEnd: 200,
	})
	require.Empty(t, r.Flush())
}

func TestFlushKeepsMatchingPair(t *testing.T) {
	r := junction.NewRecorder(1)
	r.Record(junction.Key{Chromosome: "chr1", Start: 100, End: 200}, junction.Value{
		Name: "gene-1", Strand: '+', PairStart: 500, PairEnd: 600,
	})
	r.Record(junction.Key{Chromosome: "chr1", Start: 500, End: 600}, junction.Value{
		Name: "gene-2", Strand: '+', PairStart: 100, PairEnd: 200,
	})
	require.Len(t, r.Flush(), 2)
}

func TestFlushSortsByChromosomeThenCoordinate(t *testing.T) {
	r := junction.NewRecorder(1)
	r.Record(junction.Key{Chromosome: "chr2", Start: 10, End: 20}, junction.Value{Name: "a", Strand: '+', PairStart: -1, PairEnd: -1})
	r.Record(junction.Key{Chromosome: "chr1", Start: 50, End: 60}, junction.Value{Name: "b", Strand: '+', PairStart: -1, PairEnd: -1})
	r.Record(junction.Key{Chromosome: "chr1", Start: 10, End: 20}, junction.Value{Name: "c", Strand: '+', PairStart: -1, PairEnd: -1})

	flushed := r.Flush()
	require.Len(t, flushed, 3)
	require.Equal(t, "chr1", flushed[0].Chromosome)
	require.Equal(t, int32(10), flushed[0].Start)
	require.Equal(t, "chr1", flushed[1].Chromosome)
	require.Equal(t, int32(50), flushed[1].Start)
	require.Equal(t, "chr2", flushed[2].Chromosome)
}

func TestRecordShardsConcurrentlyWithoutLoss(t *testing.T) {
	r := junction.NewRecorder(8)
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(i int) {
			for j := 0; j < 100; j++ {
				r.Record(junction.Key{Chromosome: "chr1", Start: int32(i), End: int32(j)}, junction.Value{
					Name: "n", Strand: '+', PairStart: -1, PairEnd: -1,
				})
			}
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	require.Len(t, r.Flush(), 400)
}

func TestWriteBEDFormatsBlockSizes(t *testing.T) {
	var buf bytes.Buffer
	err := junction.WriteBED(&buf, []junction.BEDRecord{{
		Chromosome: "chr1", Start: 100, End: 200, Name: "n", Count: 3, Strand: '+',
		BlockSizeLeft: 10, BlockSizeRight: 10,
	}})
	require.NoError(t, err)
	require.Equal(t, "chr1\t100\t200\tn\t3\t+\t100\t200\t255,0,0\t2\t10,10\t0,0\n", buf.String())
}
