package sortstore

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/biogo/store/llrb"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"v.io/x/lib/vlog"
)

// threadRecord is one decoded alignment block from a single thread's
// scratch file: its genome position and its raw (block_size-prefixed) BAM
// bytes. Keeping fully decoded bytes, rather than offsets into a shared
// buffer, is what lets a compressed scratch stream (each block individually
// snappy-framed) and an uncompressed one share the same merge path.
type threadRecord struct {
	pos   uint32
	bytes []byte
}

// mergeLeaf is one thread's position in the N-way merge: a sorted run of
// threadRecords plus a cursor, ordered into an llrb.Tree the same way
// cmd/bio-bam-sort/sorter.mergeLeaf orders sortShard readers -- the leaf at
// the top of the tree is always the next record to emit.
type mergeLeaf struct {
	thread  int
	records []threadRecord
	cursor  int
}

func (l *mergeLeaf) key() threadRecord { return l.records[l.cursor] }

// Compare orders leaves by their current record's genome position, with
// ties broken by ascending thread index -- a stand-in for "production
// order" once records from different threads are being interleaved.
func (l *mergeLeaf) Compare(c llrb.Comparable) int {
	o := c.(*mergeLeaf)
	a, b := l.key(), o.key()
	if a.pos != b.pos {
		if a.pos < b.pos {
			return -1
		}
		return 1
	}
	return l.thread - o.thread
}

// Sorter runs C7: numThreads workers pull the next unclaimed chromosome
// from a shared counter, sort each thread's scratch run for that chromosome,
// and N-way merge the runs into a per-chromosome intermediate file.
// Once every chromosome has been claimed and sorted, Finish replays the
// intermediate files into the BAM sink in ascending ref_id order, so the
// output is in global genome order regardless of which worker sorted which
// chromosome or in what order they finished.
type Sorter struct {
	dir        string
	numThreads int
	numChroms  int32
	compress   bool

	next int32 // next unclaimed ref_id; advanced via atomic add

	err errors.Once
}

// NewSorter creates a Sorter that claims chromosomes 0..numChroms-1 out of
// the scratch files previously written under dir by numThreads
// ScratchWriters.
func NewSorter(dir string, numThreads int, numChroms int32) *Sorter {
	return &Sorter{dir: dir, numThreads: numThreads, numChroms: numChroms}
}

// NewCompressedSorter is NewSorter for scratch files written by
// NewCompressedScratchWriter.
func NewCompressedSorter(dir string, numThreads int, numChroms int32) *Sorter {
	return &Sorter{dir: dir, numThreads: numThreads, numChroms: numChroms, compress: true}
}

// claim returns the next unclaimed ref_id, or ok=false once they are all
// taken.
func (s *Sorter) claim() (int32, bool) {
	id := atomic.AddInt32(&s.next, 1) - 1
	if id >= s.numChroms {
		return 0, false
	}
	return id, true
}

// Run spawns the configured number of sort workers and blocks until every
// chromosome has been sorted into its intermediate file. Call Finish
// afterward to replay the sorted chromosomes into the BAM sink.
func (s *Sorter) Run() error {
	var wg sync.WaitGroup
	for i := 0; i < s.numThreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				refID, ok := s.claim()
				if !ok {
					return
				}
				if err := s.sortChromosome(refID); err != nil {
					s.err.Set(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	return s.err.Err()
}

// sortChromosome reads every thread's scratch file for refID, decodes and
// sorts each thread's own run of alignments by genome position (ties
// broken by within-thread production order), then N-way merges the
// per-thread sorted runs into this chromosome's intermediate file. The
// source scratch files are removed once consumed.
func (s *Sorter) sortChromosome(refID int32) error {
	var leaves []*mergeLeaf
	for t := 0; t < s.numThreads; t++ {
		path := scratchPath(s.dir, refID, t)
		buf, err := ioutil.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return errors.E(errors.IO, err, "sortstore: reading scratch file")
		}
		if err := os.Remove(path); err != nil {
			vlog.Errorf("sortstore: failed to remove scratch file %v: %v", path, err)
		}

		var records []threadRecord
		if s.compress {
			records, err = scanCompressedAlignments(buf)
		} else {
			records, err = scanAlignments(buf)
		}
		if err != nil {
			return err
		}
		if len(records) == 0 {
			continue
		}
		sort.SliceStable(records, func(i, j int) bool { return records[i].pos < records[j].pos })
		leaves = append(leaves, &mergeLeaf{thread: t, records: records})
	}

	out, err := os.Create(s.intermediatePath(refID))
	if err != nil {
		return errors.E(errors.IO, err, "sortstore: creating intermediate sort file")
	}
	if err := mergeLeaves(leaves, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// mergeLeaves drives the N-way merge of leaves (each already sorted by
// position) via an llrb.Tree, the same "smallest child stays on top"
// structure cmd/bio-bam-sort/sorter.internalMergeShards uses: re-inserting
// a leaf after advancing its cursor costs O(log n) but the tree tends to
// leave the same leaf on top across many consecutive records.
func mergeLeaves(leaves []*mergeLeaf, out io.Writer) error {
	tree := llrb.Tree{}
	for _, l := range leaves {
		tree.Insert(l)
	}
	for tree.Len() > 0 {
		var top *mergeLeaf
		tree.Do(func(item llrb.Comparable) bool {
			top = item.(*mergeLeaf)
			return true // stop after the smallest (first, in-order) item
		})

		if _, err := out.Write(top.key().bytes); err != nil {
			return errors.E(errors.IO, err, "sortstore: writing intermediate sort file")
		}
		tree.DeleteMin()
		top.cursor++
		if top.cursor < len(top.records) {
			tree.Insert(top)
		}
	}
	return nil
}

// scanAlignments walks a densely packed, block_size-prefixed sequence of
// BAM blocks and decodes each one's genome position (the little-endian
// int32 at byte offset 8 of the block).
func scanAlignments(buf []byte) ([]threadRecord, error) {
	var records []threadRecord
	var offset uint64
	for offset < uint64(len(buf)) {
		if offset+4 > uint64(len(buf)) {
			return nil, errors.E(errors.Invalid, "sortstore: truncated block_size field")
		}
		blockSize := binary.LittleEndian.Uint32(buf[offset : offset+4])
		end := offset + 4 + uint64(blockSize)
		if end > uint64(len(buf)) || blockSize < 28 {
			return nil, errors.E(errors.Invalid, "sortstore: malformed scratch block")
		}
		pos := binary.LittleEndian.Uint32(buf[offset+8 : offset+12])
		records = append(records, threadRecord{pos: pos, bytes: buf[offset:end]})
		offset = end
	}
	return records, nil
}

// scanCompressedAlignments walks a sequence of snappy-framed blocks (each a
// 4-byte LE compressed length followed by that many compressed bytes,
// written by a compressed ScratchWriter), decoding each back into a raw
// block_size-prefixed BAM block before reading its genome position.
func scanCompressedAlignments(buf []byte) ([]threadRecord, error) {
	var records []threadRecord
	var offset uint64
	for offset < uint64(len(buf)) {
		if offset+4 > uint64(len(buf)) {
			return nil, errors.E(errors.Invalid, "sortstore: truncated scratch frame length")
		}
		frameLen := binary.LittleEndian.Uint32(buf[offset : offset+4])
		start := offset + 4
		end := start + uint64(frameLen)
		if end > uint64(len(buf)) {
			return nil, errors.E(errors.Invalid, "sortstore: truncated compressed scratch frame")
		}
		block, err := snappy.Decode(nil, buf[start:end])
		if err != nil {
			return nil, errors.E(errors.Invalid, err, "sortstore: decompressing scratch block")
		}
		if len(block) < 12 {
			return nil, errors.E(errors.Invalid, "sortstore: malformed scratch block")
		}
		pos := binary.LittleEndian.Uint32(block[8:12])
		records = append(records, threadRecord{pos: pos, bytes: block})
		offset = end
	}
	return records, nil
}

func (s *Sorter) intermediatePath(refID int32) string {
	return filepath.Join(s.dir, fmt.Sprintf("sorted_%d", refID))
}

// Finish replays every chromosome's sorted intermediate file into sink, in
// ascending ref_id order, then removes the intermediate files. Run must
// have completed successfully first.
func (s *Sorter) Finish(sink io.Writer) error {
	for refID := int32(0); refID < s.numChroms; refID++ {
		path := s.intermediatePath(refID)
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue // chromosome had no alignments
		}
		if err != nil {
			return errors.E(errors.IO, err, "sortstore: opening intermediate sort file")
		}
		_, copyErr := io.Copy(sink, f)
		f.Close()
		if copyErr != nil {
			return errors.E(errors.IO, copyErr, "sortstore: replaying sorted chromosome")
		}
		if err := os.Remove(path); err != nil {
			vlog.Errorf("sortstore: failed to remove intermediate file %v: %v", path, err)
		}
	}
	return nil
}
