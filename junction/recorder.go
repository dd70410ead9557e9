// Package junction accumulates intron-spanning alignments into BED12
// junction records, coalescing counts by (chromosome, start, end) and
// resolving the cross-reference between a paired intron's two halves.
package junction

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/dgryski/go-farm"
)

// Key identifies a junction by its genome coordinates.
type Key struct {
	Chromosome string
	Start      int32
	End        int32
}

// Value is the mutable per-junction record.
type Value struct {
	Name           string
	Count          uint32
	Strand         byte // '+' or '-'
	BlockSizeLeft  uint16
	BlockSizeRight uint16

	// PairStart/PairEnd name the companion key's (Start,End) when this
	// junction is one half of a paired-intron record. <0 means unpaired.
	PairStart int32
	PairEnd   int32
}

type shard struct {
	mu sync.Mutex
	m  map[Key]*Value
}

// Recorder accumulates junction counts. A Recorder created with shardCount
// 1 (the default, matching the source's implicit single-threaded BED mode)
// needs no external synchronization beyond Recorder's own. A shardCount > 1
// lets multiple goroutines call Record concurrently while alignments are
// projected in parallel, each contending only for its own shard's lock; see
// spec.md's BED-emission-under-concurrency open question.
type Recorder struct {
	shards []*shard
	mask   uint64
}

// NewRecorder creates a Recorder. shardCount is rounded up to the next
// power of two; <=1 yields a single shard.
func NewRecorder(shardCount int) *Recorder {
	n := 1
	for n < shardCount {
		n <<= 1
	}
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{m: make(map[Key]*Value)}
	}
	return &Recorder{shards: shards, mask: uint64(n - 1)}
}

func (r *Recorder) shardFor(k Key) *shard {
	if len(r.shards) == 1 {
		return r.shards[0]
	}
	h := farm.Hash64WithSeed([]byte(k.Chromosome), uint64(uint32(k.Start))<<32|uint64(uint32(k.End)))
	return r.shards[h&r.mask]
}

// Record upserts a junction. On an existing key, only Count is
// incremented -- Name/Strand/block sizes/pair window are fixed at first
// insertion, matching the source's junction_map.emplace-or-increment
// behavior.
func (r *Recorder) Record(k Key, v Value) {
	s := r.shardFor(k)
	s.mu.Lock()
	if existing, ok := s.m[k]; ok {
		existing.Count++
	} else {
		vv := v
		vv.Count = 1
		s.m[k] = &vv
	}
	s.mu.Unlock()
}

// BEDRecord is one emitted BED12 line's fields.
type BEDRecord struct {
	Chromosome     string
	Start          int32
	End            int32
	Name           string
	Count          uint32
	Strand         byte
	BlockSizeLeft  uint16
	BlockSizeRight uint16
}

// entries merges all shards into one map; callers must not call Record
// concurrently with entries.
func (r *Recorder) entries() map[Key]*Value {
	if len(r.shards) == 1 {
		return r.shards[0].m
	}
	merged := make(map[Key]*Value)
	for _, s := range r.shards {
		for k, v := range s.m {
			merged[k] = v
		}
	}
	return merged
}

// Flush resolves pair-linking and returns BED12 records in sorted key
// order (chromosome, then start, then end), for reproducible output --
// the source's unordered_map iteration order is not relied upon here.
func (r *Recorder) Flush() []BEDRecord {
	entries := r.entries()
	keys := make([]Key, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Chromosome != b.Chromosome {
			return a.Chromosome < b.Chromosome
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	out := make([]BEDRecord, 0, len(keys))
	for _, k := range keys {
		v := entries[k]
		if v.PairStart >= 0 {
			pairKey := Key{Chromosome: k.Chromosome, Start: v.PairStart, End: v.PairEnd}
			pair, ok := entries[pairKey]
			if !ok {
				continue
			}
			if namePrefix(v.Name) != namePrefix(pair.Name) {
				continue
			}
		}
		out = append(out, BEDRecord{
			Chromosome:     k.Chromosome,
			Start:          k.Start,
			End:            k.End,
			Name:           v.Name,
			Count:          v.Count,
			Strand:         v.Strand,
			BlockSizeLeft:  v.BlockSizeLeft,
			BlockSizeRight: v.BlockSizeRight,
		})
	}
	return out
}

// namePrefix returns name up to (not including) the first '-'.
func namePrefix(name string) string {
	if i := strings.IndexByte(name, '-'); i >= 0 {
		return name[:i]
	}
	return name
}

// WriteBED writes records as tab-separated BED12 lines: chrom, start, end,
// name, count, strand, thickStart, thickEnd, itemRgb, blockCount,
// blockSizes, blockStarts.
func WriteBED(w io.Writer, records []BEDRecord) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintf(bw, "%s\t%d\t%d\t%s\t%d\t%c\t%d\t%d\t255,0,0\t2\t%d,%d\t0,0\n",
			rec.Chromosome, rec.Start, rec.End, rec.Name, rec.Count, rec.Strand, rec.Start, rec.End,
			rec.BlockSizeLeft, rec.BlockSizeRight); err != nil {
			return err
		}
	}
	return bw.Flush()
}
