package bam_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bio-ngs/pseudobam/encoding/bam"
	"github.com/stretchr/testify/require"
)

func TestRegionToBin(t *testing.T) {
	// Same 16kbp bin.
	require.Equal(t, bam.RegionToBin(0, 100), bam.RegionToBin(50, 150))
	// Regions in different 16kbp bins (0 and 64) get different bin values.
	require.NotEqual(t, bam.RegionToBin(0, 100), bam.RegionToBin(1<<20, (1<<20)+100))
}

func TestPackSeqPackedLength(t *testing.T) {
	for _, seq := range []string{"ACGT", "ACGTA", "N", ""} {
		packed := bam.PackSeq(seq)
		require.Equal(t, (len(seq)+1)/2, len(packed))
	}
}

func TestPackSeqUnknownBaseMapsToN(t *testing.T) {
	packed := bam.PackSeq("X")
	require.Equal(t, byte(15<<4), packed[0])
}

func TestMarshalLayout(t *testing.T) {
	rec := &bam.Record{
		RefID:    2,
		Name:     "read1",
		Flag:     bam.FlagPaired,
		PosRead:  101,
		PosMate:  201,
		TLen:     150,
		Cigar:    []uint32{4 << 4}, // 4M
		AlignLen: 4,
		Seq:      "ACGT",
		Qual:     []byte{'#', '#', '#', '#'}, // phred 2
		NH:       1,
		Strand:   '+',
	}
	buf := &bytes.Buffer{}
	require.NoError(t, bam.Marshal(rec, buf, 1<<16))

	out := buf.Bytes()
	blockSize := int32(binary.LittleEndian.Uint32(out[0:4]))
	require.Equal(t, len(out)-4, int(blockSize))

	refID := int32(binary.LittleEndian.Uint32(out[4:8]))
	require.Equal(t, int32(2), refID)

	pos := int32(binary.LittleEndian.Uint32(out[8:12]))
	require.Equal(t, int32(100), pos) // 0-based

	nextPos := int32(binary.LittleEndian.Uint32(out[28:32]))
	require.Equal(t, int32(200), nextPos)
}

func TestMarshalRejectsMismatchedQuality(t *testing.T) {
	rec := &bam.Record{Name: "r", Seq: "ACGT", Qual: []byte{1, 2}}
	require.Error(t, bam.Marshal(rec, &bytes.Buffer{}, 1<<16))
}

func TestMarshalRejectsOversizeRecord(t *testing.T) {
	rec := &bam.Record{Name: "r", Seq: "ACGT", Qual: []byte{1, 2, 3, 4}}
	require.Error(t, bam.Marshal(rec, &bytes.Buffer{}, 8))
}
