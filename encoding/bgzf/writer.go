// Package bgzf includes a Writer for the .bgzf (block gzipped) file
// format.  A .bgzf file consists of one or more complete gzip blocks
// concatenated together.  Each of the gzip blocks must represent at
// most 64KB of uncompressed data, and the compressed size of the
// block must be at most 64KB.  The payload of the .bgzf file is equal
// to the uncompressed content of each block, concatenated together in
// order.  A valid .bgzf file ends with the 28 byte .bgzf terminator
// shown below; the terminator is a valid gzip block containing an
// empty payload.
//
// The .bgzf format is used by .bam files.
//
// For more information about the .bgzf file format, see the SAM/BAM
// spec here: https://samtools.github.io/hts-specs/SAMv1.pdf
//
// Example use:
//   var bgzfFile bytes.Buffer
//   w, err := NewWriter(&bgzfFile, flate.DefaultCompression)
//   n, err := w.Write([]byte("Foo bar"))
//   err = w.Close()
//
// Example use with multiple compression shards, one per sort worker:
//   // In goroutine 1
//   var shard1 bytes.Buffer
//   w, err := NewWriter(&shard1, flate.DefaultCompression)
//   n, err := w.Write([]byte("Foo bar"))
//   err = w.CloseWithoutTerminator()
//
//   // In goroutine 2
//   var shard2 bytes.Buffer
//   w, err := NewWriter(&shard2, flate.DefaultCompression)
//   n, err := w.Write([]byte(" baz!"))
//   err = w.Close()  // Terminator goes at the end of the last shard.
//
//   // Merge shards into final .bgzf file.
//   var bgzfFile bytes.Buffer
//   _, err := io.Copy(&bgzfFile, &shard1)
//   _, err = io.Copy(&bgzfFile, &shard2)
package bgzf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultUncompressedBlockSize is the default bgzf
	// uncompressedBlockSize chosen by both sambamba and biogo.  See
	// the SAM/BAM specification for details.
	DefaultUncompressedBlockSize = 0x0ff00

	// MaxUncompressedBlockSize is the largest legal value for
	// uncompressedBlockSize.
	MaxUncompressedBlockSize = 0x10000

	// compressedBlockSize is the maximum size of the compressed data
	// for a Bgzf block.  See the SAM/BAM specification for details.
	compressedBlockSize = 0x10000
)

var (
	// bgzfExtra goes into the gzip's Extra subfield, with subfield
	// ids: 66, 67, and length 2.  See the SAM/BAM spec.
	bgzfExtra       = [...]byte{66, 67, 2, 0, 0, 0}
	bgzfExtraPrefix = [...]byte{66, 67, 2, 0}

	// terminator is the Bgzf EOF terminator.  It belongs at the end
	// of a valid Bgzf file.  See the SAM/BAM spec.
	terminator = []byte{
		0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00, 0x42, 0x43,
		0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}
)

// deflateFactory builds a klauspost/compress/gzip writer per block,
// reusing it via Reset rather than reallocating.
type deflateFactory struct {
	level  int
	writer *gzip.Writer
}

func (c *deflateFactory) create(w io.Writer) (io.WriteCloser, error) {
	if c.writer == nil {
		var err error
		c.writer, err = gzip.NewWriterLevel(w, c.level)
		if err != nil {
			return nil, err
		}
	} else {
		c.writer.Reset(w)
	}
	c.writer.Header.Extra = make([]byte, len(bgzfExtra))
	copy(c.writer.Header.Extra, bgzfExtra[:])
	c.writer.Header.OS = 0xff // Unknown OS value
	return c.writer, nil
}

// Writer compresses data into .bgzf format.  The .bgzf format
// consists of gzip blocks concatenated together.  Each gzip block has
// an uncompressed size of at most 64KB.  The .bgzf format adds an
// Extra header field to each of the gzip headers; the Extra field
// contains the size of the compressed block in bytes, minus 1.  The
// payload data of the .bgzf file is equal to the in-order
// concatenation of all the uncompressed payloads of the gzip blocks.
// A .bgzf file also contains an EOF terminator at the end of the
// file.
type Writer struct {
	factory          *deflateFactory
	uncompressedSize int
	w                io.Writer
	original         bytes.Buffer
	compressed       bytes.Buffer
	writer           io.WriteCloser
	coffset          uint64 // starting file position of the current gzip block
}

// NewWriter returns a new .bgzf writer with the given compression level.
func NewWriter(w io.Writer, level int) (*Writer, error) {
	return &Writer{
		factory:          &deflateFactory{level: level},
		uncompressedSize: DefaultUncompressedBlockSize,
		w:                w,
	}, nil
}

// Write appends buf to the .bgzf payload, flushing complete blocks as it
// goes. Returns the number of bytes consumed from buf and any error
// encountered.
func (w *Writer) Write(buf []byte) (int, error) {
	for i := 0; i < len(buf); {
		end := len(buf)
		limit := i + w.uncompressedSize - w.original.Len()
		if limit < end {
			end = limit
		}
		n, _ := w.original.Write(buf[i:end])
		i += n
		if err := w.tryCompress(false); err != nil {
			return i, err
		}
	}
	return len(buf), nil
}

// CloseWithoutTerminator closes the current .bgzf block, but does not
// append the .bgzf terminator.  This output file is not a complete
// .bgzf file until the user calls Close().
func (w *Writer) CloseWithoutTerminator() error {
	return w.tryCompress(true)
}

// Close closes the current .bgzf block and appends the .bgzf terminator.
func (w *Writer) Close() error {
	if err := w.CloseWithoutTerminator(); err != nil {
		return err
	}
	_, err := w.w.Write(terminator)
	return err
}

// tryCompress removes one or more blocks from w.original, compresses
// them, and writes the compressed blocks to w.w.
func (w *Writer) tryCompress(compressRemainder bool) error {
	for w.original.Len() >= w.uncompressedSize || (compressRemainder && w.original.Len() > 0) {
		var err error
		w.writer, err = w.factory.create(&w.compressed)
		if err != nil {
			return err
		}

		if w.original.Len() > 0 {
			if _, err := w.writer.Write(w.original.Next(w.uncompressedSize)); err != nil {
				return err
			}
		}
		if err := w.writer.Close(); err != nil {
			return err
		}

		b := w.compressed.Bytes()

		// Replace bgzf BSIZE header with compressed length - 1.
		offset := 12 // Offset of the Extra field in the gzip header.
		bsize := w.compressed.Len() - 1
		if bsize >= compressedBlockSize {
			return fmt.Errorf("bgzf compressed block is too big: %d > %d", bsize, compressedBlockSize)
		}
		if w.compressed.Len() < offset+len(bgzfExtra) {
			return fmt.Errorf("bgzf: compressed block too short: %d < %d", w.compressed.Len(), offset+len(bgzfExtra))
		}
		if !bytes.Equal(b[offset:offset+len(bgzfExtraPrefix)], bgzfExtraPrefix[:]) {
			return fmt.Errorf("bgzf: could not find bgzf extra prefix in gzip header")
		}
		b[offset+4] = byte(bsize)
		b[offset+5] = byte(bsize >> 8)

		sz := w.compressed.Len()
		if _, err := w.compressed.WriteTo(w.w); err != nil {
			return err
		}
		w.coffset += uint64(sz)
	}
	return nil
}

// VOffset returns the virtual file offset of the next byte to be written:
// the compressed-file offset in the high 48 bits, the within-block
// uncompressed offset in the low 16.
func (w *Writer) VOffset() uint64 {
	return w.coffset<<16 | uint64(w.original.Len())
}
