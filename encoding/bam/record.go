package bam

import (
	"bytes"
	"encoding/binary"

	"github.com/grailbio/base/errors"
)

// Flag bits, the subset this package sets.
const (
	FlagPaired       uint16 = 1
	FlagProperPair   uint16 = 2
	FlagMateUnmapped uint16 = 8
	FlagReverse      uint16 = 16
	FlagMateReverse  uint16 = 32
	FlagRead1        uint16 = 64
	FlagRead2        uint16 = 128
	FlagSecondary    uint16 = 256
)

const mapQ = 255

// Record is one pseudo-alignment ready for BAM encoding. Positions are
// 1-based; Marshal converts to BAM's 0-based pos fields.
type Record struct {
	RefID int32
	Name  string
	Flag  uint16

	PosRead int32 // 1-based leftmost mapped base
	PosMate int32 // 1-based, 0 if no mapped mate
	TLen    int32

	Cigar    []uint32 // BAM-packed ops, e.g. project.Cigar.Packed()
	AlignLen int32    // reference bases consumed, for reg2bin

	Seq  string // raw bases, length must equal len(Qual)
	Qual []byte // raw Phred+33 ASCII quality characters

	NH     int32 // number of equally-good alignments, for the NH:i tag
	Strand byte  // '+' or '-', for the XS:A tag
}

type binaryWriter struct {
	buf *bytes.Buffer
	tmp [4]byte
}

func (w *binaryWriter) i32(v int32) {
	binary.LittleEndian.PutUint32(w.tmp[:4], uint32(v))
	w.buf.Write(w.tmp[:4])
}

func (w *binaryWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.tmp[:4], v)
	w.buf.Write(w.tmp[:4])
}

// Marshal appends rec's BAM block (block_size field included) to buf.
// maxSize is the caller's per-record scratch-slot budget, including the
// 4-byte block_size prefix; Marshal returns an error, and writes nothing,
// for a record that would exceed it.
func Marshal(rec *Record, buf *bytes.Buffer, maxSize int) error {
	if len(rec.Name) == 0 || len(rec.Name) > 254 {
		return errors.E(errors.Invalid, "bam: read name absent or too long")
	}
	if len(rec.Qual) != len(rec.Seq) {
		return errors.E(errors.Invalid, "bam: sequence/quality length mismatch")
	}

	nameLen := len(rec.Name) + 1
	seqLen := len(rec.Seq)
	packedSeqLen := (seqLen + 1) / 2
	const auxLen = 7 + 4 // "NH"+'i'+int32, "XS"+'A'+char

	payload := 32 + nameLen + 4*len(rec.Cigar) + packedSeqLen + seqLen + auxLen
	total := 4 + payload
	if total > maxSize {
		return errors.E(errors.Invalid, "bam: record exceeds scratch slot size")
	}

	pos := rec.PosRead - 1
	bin := RegionToBin(pos, pos+rec.AlignLen)
	binMQNL := uint32(bin)<<16 | uint32(mapQ)<<8 | uint32(nameLen)
	flagNC := uint32(rec.Flag)<<16 | uint32(len(rec.Cigar))

	nextPos := int32(-1)
	if rec.PosMate != 0 {
		nextPos = rec.PosMate - 1
	}

	w := binaryWriter{buf: buf}
	w.i32(int32(payload))
	w.i32(rec.RefID)
	w.i32(pos)
	w.u32(binMQNL)
	w.u32(flagNC)
	w.i32(int32(seqLen))
	w.i32(rec.RefID)
	w.i32(nextPos)
	w.i32(rec.TLen)

	buf.WriteString(rec.Name)
	buf.WriteByte(0)
	for _, op := range rec.Cigar {
		w.u32(op)
	}
	buf.Write(PackSeq(rec.Seq))
	for i := 0; i < seqLen; i++ {
		buf.WriteByte(rec.Qual[i] - 33)
	}

	buf.WriteString("NH")
	buf.WriteByte('i')
	w.i32(rec.NH)
	buf.WriteString("XS")
	buf.WriteByte('A')
	buf.WriteByte(rec.Strand)

	return nil
}
