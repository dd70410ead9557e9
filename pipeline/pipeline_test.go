package pipeline_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bio-ngs/pseudobam/pipeline"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "exons.csv")
	require.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestPipelineSortedBAMRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "pipeline")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	csv := writeCSV(t, dir, "tx1,1,1,100,1000,0,chr1\n")
	outPath := filepath.Join(dir, "out.bam")

	p, err := pipeline.New(context.Background(), pipeline.Options{
		Pseudobam:      true,
		ExonCoordsFile: csv,
		SortedBAM:      true,
		Threads:        1,
		Output:         outPath,
	})
	require.NoError(t, err)

	res, err := p.ProcessAlignment(0, pipeline.AlignmentInput{
		TranscriptName: "tx1", PosRead: 10, ReadLen: 20,
		Name: "read1", Seq: "ACGTACGTACGTACGTACGT", Qual: []byte("IIIIIIIIIIIIIIIIIIII"),
		Flag: 0, NH: 1, TLen: 0,
	})
	require.NoError(t, err)
	require.Equal(t, "20M", res.Cigar.String())

	require.NoError(t, p.Finish(context.Background()))

	data, err := ioutil.ReadFile(outPath)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, []byte{0x1f, 0x8b}, data[:2]) // BGZF block is a gzip member
}

func TestPipelineRejectsUnknownTranscript(t *testing.T) {
	dir, err := ioutil.TempDir("", "pipeline")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	csv := writeCSV(t, dir, "tx1,1,1,100,1000,0,chr1\n")
	p, err := pipeline.New(context.Background(), pipeline.Options{
		Pseudobam: true, ExonCoordsFile: csv, SortedBAM: true, Threads: 1,
		Output: filepath.Join(dir, "out.bam"),
	})
	require.NoError(t, err)

	_, err = p.ProcessAlignment(0, pipeline.AlignmentInput{TranscriptName: "missing", ReadLen: 10})
	require.Error(t, err)
}

func TestPipelineUnsortedHeaderOnly(t *testing.T) {
	dir, err := ioutil.TempDir("", "pipeline")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	csv := writeCSV(t, dir, "tx1,1,1,100,1000,0,chr1\n")
	outPath := filepath.Join(dir, "out.sam")

	p, err := pipeline.New(context.Background(), pipeline.Options{
		Pseudobam:      true,
		ExonCoordsFile: csv,
		SortedBAM:      false,
		Threads:        1,
		Output:         outPath,
	})
	require.NoError(t, err)
	require.NoError(t, p.Finish(context.Background()))

	data, err := ioutil.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "@HD\tVN:1.0\n")
	require.Contains(t, string(data), "@SQ\tSN:chr1\tLN:1099\n")
}
