// Package project implements the core exon-projection state machine: given
// a transcript's exon spans and a read's (and optional mate's) transcript
// position, it builds the genome-space CIGAR and genome positions, splitting
// the alignment at exon boundaries and clipping overhangs.
package project

import "fmt"

// OpCode is a BAM/SAM CIGAR operation type. Codes 0-4 (M, I, D, N, S) are
// named; this package emits only M, N and S. I (insertion) and D (deletion)
// never appear in transcriptome-to-genome projection output but share the
// encoding space.
type OpCode uint8

const (
	OpMatch OpCode = 0 // M
	OpIns   OpCode = 1 // I
	OpDel   OpCode = 2 // D
	OpSkip  OpCode = 3 // N
	OpSoft  OpCode = 4 // S
)

var opChar = [...]byte{'M', 'I', 'D', 'N', 'S'}

func (c OpCode) Byte() byte { return opChar[c] }

// Op is one CIGAR operation, packed BAM-style: (length<<4)|code.
type Op uint32

// NewOp packs a CIGAR operation.
func NewOp(length int32, code OpCode) Op {
	return Op(uint32(length)<<4 | uint32(code))
}

// Length returns the op's operand length.
func (o Op) Length() int32 { return int32(o >> 4) }

// Code returns the op's type.
func (o Op) Code() OpCode { return OpCode(o & 0xf) }

// Cigar is an ordered list of CIGAR operations in genome-left-to-right
// order.
type Cigar []Op

// add appends or prepends op depending on prepend, used to keep ops in
// genome order regardless of which strand the transcript is on.
func (c *Cigar) add(prepend bool, op Op) {
	if op.Length() == 0 {
		return
	}
	if prepend {
		*c = append(Cigar{op}, *c...)
		return
	}
	*c = append(*c, op)
}

// String renders the CIGAR in SAM text form ("<len><char>" per op,
// concatenated). Because ops are already stored in genome order by add,
// the same Cigar value serves both the BAM packed-op path and the SAM text
// path -- unlike the source, which builds two separate representations in
// lockstep.
func (c Cigar) String() string {
	s := make([]byte, 0, len(c)*4)
	for _, op := range c {
		s = appendUint(s, uint32(op.Length()))
		s = append(s, op.Code().Byte())
	}
	return string(s)
}

func appendUint(dst []byte, v uint32) []byte {
	return append(dst, []byte(fmt.Sprintf("%d", v))...)
}

// Packed returns the CIGAR as raw BAM-packed uint32 ops, ready for
// encoding/bam.Marshal.
func (c Cigar) Packed() []uint32 {
	out := make([]uint32, len(c))
	for i, op := range c {
		out[i] = uint32(op)
	}
	return out
}
