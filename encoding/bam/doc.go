// Package bam encodes pseudo-alignments into the BAM binary block format
// for writing into per-chromosome sort scratch files and, ultimately, a
// BGZF-compressed BAM stream. It is a write path only: there is no reader
// or sharded-access support here, since nothing in this pipeline re-reads
// a BAM file it didn't just produce.
package bam
