// Package exonmap loads the transcript exon/intron coordinate table that
// drives transcriptome-to-genome projection, and derives the per-chromosome
// reference table used to build a BAM header.
package exonmap

// IntronFlag classifies a transcript's role in the paired intron emission
// scheme used by the junction recorder.
type IntronFlag int8

const (
	// IntronNone is an ordinary transcript with no intron-retention variant.
	IntronNone IntronFlag = iota
	// IntronStart is the 5' half of a paired intron-retention transcript.
	IntronStart
	// IntronEnd is the 3' half of a paired intron-retention transcript.
	IntronEnd
	// IntronFull is a transcript carrying both intron halves by itself.
	IntronFull
)

// ExonSpan is one contiguous transcript interval, 1-based and inclusive,
// together with the genome coordinate its first base projects to.
type ExonSpan struct {
	SegmentStart   int32
	SegmentEnd     int32
	GenomePosition int32
}

// Length returns the span's length in transcript bases.
func (s ExonSpan) Length() int32 {
	return s.SegmentEnd - s.SegmentStart + 1
}

// TranscriptEntry is the exon map's per-transcript record.
type TranscriptEntry struct {
	Chromosome string
	Strand     int8 // +1 or -1
	Intron     IntronFlag

	// PairJunctionStart/End are valid (>=0) on both halves of a paired
	// intron-retention transcript (Intron==IntronStart or IntronEnd): each
	// names the OTHER half's own canonical junction window, since C4 needs
	// it when recording from whichever half the read happens to hit.
	// Unset (-1) when Intron is None or Full.
	PairJunctionStart int32
	PairJunctionEnd   int32

	// Spans is ordered along the transcript by increasing transcript
	// coordinate. For a negative-strand transcript, GenomePosition must
	// accordingly be strictly decreasing across spans (reverse-strand
	// transcription reads the genome right to left); a transcript whose
	// spans don't honor this produces a negative, invalid CIGAR N length.
	Spans []ExonSpan
}

// Negative reports whether the transcript is on the genome's reverse strand.
func (t *TranscriptEntry) Negative() bool {
	return t.Strand < 0
}

// ProjectedLength returns the transcript's projected genome-space length.
// It is deliberately GenomePosition+SegmentEnd-SegmentStart (not +1): this
// matches the source's reference-length computation bit for bit, and the
// resulting off-by-one is absorbed consistently by every chromosome's max.
func (t *TranscriptEntry) ProjectedLength() int32 {
	span := t.Spans[len(t.Spans)-1]
	if t.Negative() {
		span = t.Spans[0]
	}
	return span.GenomePosition + span.SegmentEnd - span.SegmentStart
}

// ExonMap maps transcript name to its TranscriptEntry. Read-only after Load.
type ExonMap map[string]*TranscriptEntry
