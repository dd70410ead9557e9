// Package sortstore implements the external-memory coordinate sort: each
// alignment thread appends already-BAM-encoded blocks to a per-thread,
// per-chromosome scratch file; at shutdown, a pool of sort workers claims
// chromosomes from a shared counter, sorts each chromosome's alignments by
// genome position, and the result is replayed into the BAM sink in
// reference order.
package sortstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
)

// ScratchWriter is one alignment-producing thread's append-only output,
// split lazily into one file per chromosome it has seen a record for.
type ScratchWriter struct {
	dir      string
	thread   int
	compress bool
	files    map[int32]*os.File
	bufs     map[int32]*bufio.Writer
}

// NewScratchWriter creates a ScratchWriter rooted at dir for the given
// thread index. Scratch files are created on first Append per chromosome.
func NewScratchWriter(dir string, thread int) *ScratchWriter {
	return newScratchWriter(dir, thread, false)
}

// NewCompressedScratchWriter is NewScratchWriter, but snappy-compresses each
// appended block -- a win on network-attached scratch disks, mirroring
// cmd/bio-bam-sort/sorter.SortOptions.NoCompressTmpFiles's default-on
// snappy compression of sort shards.
func NewCompressedScratchWriter(dir string, thread int) *ScratchWriter {
	return newScratchWriter(dir, thread, true)
}

func newScratchWriter(dir string, thread int, compress bool) *ScratchWriter {
	return &ScratchWriter{
		dir:      dir,
		thread:   thread,
		compress: compress,
		files:    make(map[int32]*os.File),
		bufs:     make(map[int32]*bufio.Writer),
	}
}

func scratchPath(dir string, refID int32, thread int) string {
	return filepath.Join(dir, fmt.Sprintf("%d_%d", refID+1, thread))
}

func (s *ScratchWriter) writerFor(refID int32) (*bufio.Writer, error) {
	if w, ok := s.bufs[refID]; ok {
		return w, nil
	}
	f, err := os.Create(scratchPath(s.dir, refID, s.thread))
	if err != nil {
		return nil, errors.E(errors.IO, err, "sortstore: creating scratch file")
	}
	w := bufio.NewWriter(f)
	s.files[refID] = f
	s.bufs[refID] = w
	return w, nil
}

// Append writes one already-marshaled BAM block (the 4-byte block_size
// prefix included) to the scratch file for refID. If the writer was created
// with compression, the block is snappy-encoded and framed with its own
// 4-byte LE length prefix so sortChromosome can decode it record by record.
func (s *ScratchWriter) Append(refID int32, block []byte) error {
	w, err := s.writerFor(refID)
	if err != nil {
		return err
	}
	if !s.compress {
		if _, err := w.Write(block); err != nil {
			return errors.E(errors.IO, err, "sortstore: writing scratch block")
		}
		return nil
	}

	enc := snappy.Encode(nil, block)
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(enc)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return errors.E(errors.IO, err, "sortstore: writing scratch block")
	}
	if _, err := w.Write(enc); err != nil {
		return errors.E(errors.IO, err, "sortstore: writing scratch block")
	}
	return nil
}

// Close flushes and closes every scratch file this writer opened.
func (s *ScratchWriter) Close() error {
	for refID, w := range s.bufs {
		if err := w.Flush(); err != nil {
			return errors.E(errors.IO, err, "sortstore: flushing scratch file")
		}
		if err := s.files[refID].Close(); err != nil {
			return errors.E(errors.IO, err, "sortstore: closing scratch file")
		}
	}
	return nil
}
