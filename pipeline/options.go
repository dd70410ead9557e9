// Package pipeline wires the exon map, CIGAR projector, junction recorder,
// BAM encoder, scratch sort store, and BGZF sink into the per-read hot path
// and shutdown sequence -- the Go analog of the source's EnhancedOutput
// object.
package pipeline

// Options carries the commandline-sourced configuration recognized by this
// component (mirrors markduplicates.Opts's style of a flat options struct).
type Options struct {
	// Pseudobam enables the pipeline at all. If false, callers should not
	// construct a Pipeline.
	Pseudobam bool

	// ExonCoordsFile is the exon/intron coordinate CSV path (required when
	// Pseudobam is true).
	ExonCoordsFile string

	// SortedBAM enables the external-memory coordinate sort (C7) and BAM
	// output. If false, only a plain (unsorted) SAM-style header is
	// emitted; SAM line writing itself stays the caller's responsibility.
	SortedBAM bool

	// BEDFile, if non-empty, enables the junction recorder (C5) and names
	// the BED12 output path.
	BEDFile string

	// Threads is the number of alignment-producing worker threads; each
	// gets its own scratch writer. It is also the junction recorder's shard
	// count (rounded up to a power of two); shards are chosen by junction
	// key hash, not by thread.
	Threads int

	// Output is the root path: for sorted BAM output, the BAM file itself;
	// its directory also roots the "sorting" scratch directory. For
	// unsorted output, the header destination.
	Output string

	// CompressScratch snappy-compresses C7 scratch files, a win on
	// network-attached scratch disks.
	CompressScratch bool
}

func (o Options) threads() int {
	if o.Threads < 1 {
		return 1
	}
	return o.Threads
}
