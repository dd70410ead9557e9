package project

import (
	"strconv"
	"strings"

	"github.com/bio-ngs/pseudobam/exonmap"
	"github.com/bio-ngs/pseudobam/junction"
)

// Input describes one read's (and optional mate's) transcript-space
// alignment before projection.
type Input struct {
	TranscriptName string
	Transcript     *exonmap.TranscriptEntry

	// PosRead is the 1-based transcript position of the read's leftmost
	// aligned base.
	PosRead int32
	// PosMate is the 1-based transcript position of the mate's leftmost
	// aligned base, or 0 if there is no mapped mate.
	PosMate int32

	ReadLen int32
	MateLen int32
}

// Result is the outcome of Project: genome-space positions, CIGAR, and
// bookkeeping the caller needs for BAM encoding and diagnostics.
type Result struct {
	Chromosome string
	Strand     int8 // +1 or -1, copied from the transcript entry

	// PosRead/PosMate are overwritten with genome positions (1-based). If
	// the input was unpaired, PosMate stays 0.
	PosRead int32
	PosMate int32

	Cigar    Cigar
	AlignLen int32 // reference bases consumed: sum of M+D+N lengths

	// MateFallback is true when the mate never intersected any exon span
	// and PosMate was derived from the final span as a fallback -- a
	// non-fatal condition the source logs as "mate outside segment".
	MateFallback bool
}

// StrandChar renders Strand as the BAM XS:A tag value.
func (r Result) StrandChar() byte {
	return strandChar(r.Strand < 0)
}

// Project walks the transcript's exon spans once, building the genome
// CIGAR for the read (and updating the mate's genome position, with no
// CIGAR of its own). If rec is non-nil, every exon-skip (N) produced is
// recorded as a junction, and canonical intron-retention windows are
// tested and recorded per the transcript's IntronFlag.
func Project(in Input, rec *junction.Recorder) Result {
	t := in.Transcript
	negstrand := t.Negative()

	res := Result{
		Chromosome: t.Chromosome,
		Strand:     t.Strand,
		PosRead:    in.PosRead,
		PosMate:    in.PosMate,
	}

	readRem := in.ReadLen
	mateRem := int32(0)
	if in.PosMate != 0 {
		mateRem = in.MateLen
	}
	var readOffset int32
	posread := in.PosRead
	posmate := in.PosMate

	for _, span := range t.Spans {
		if readRem > 0 {
			switch {
			case readRem < in.ReadLen:
				// In the process of mapping the read: emit the skipped
				// intron, then however much of this exon the read covers.
				var startCoord, endCoord int32
				if negstrand {
					startCoord = span.GenomePosition + span.SegmentEnd - span.SegmentStart
					endCoord = readOffset
				} else {
					startCoord = readOffset
					endCoord = span.GenomePosition
				}
				nLen := endCoord - startCoord - 1
				res.Cigar.add(negstrand, NewOp(nLen, OpSkip))
				res.AlignLen += nLen
				if rec != nil {
					rec.Record(junction.Key{Chromosome: t.Chromosome, Start: startCoord, End: endCoord}, junction.Value{
						Name:      in.TranscriptName,
						Strand:    strandChar(negstrand),
						PairStart: -1,
						PairEnd:   -1,
					})
				}

				var opLen int32
				readOffset = span.SegmentEnd - span.SegmentStart + 1
				if readRem > readOffset {
					opLen = readOffset
					if negstrand {
						readOffset = span.GenomePosition
					} else {
						readOffset = readOffset + span.GenomePosition - 1
					}
				} else {
					opLen = readRem
					if negstrand {
						posread = startCoord - readRem + 1
					}
				}
				readRem -= opLen
				res.Cigar.add(negstrand, NewOp(opLen, OpMatch))
				res.AlignLen += opLen

			case posread <= span.SegmentEnd:
				// Begin mapping the read in this span.
				if posread < span.SegmentStart {
					opLen := span.SegmentStart - posread
					readRem -= opLen
					res.Cigar.add(false, NewOp(opLen, OpSoft))
				}

				readOffset = posread + in.ReadLen - span.SegmentEnd - 1
				var opLen int32
				if readOffset > 0 {
					opLen = readRem - readOffset
					if negstrand {
						readOffset = span.GenomePosition
					} else {
						readOffset = span.GenomePosition + span.SegmentEnd - span.SegmentStart
						posread += span.GenomePosition - span.SegmentStart
					}
				} else {
					opLen = readRem
					if negstrand {
						posread = span.GenomePosition - readOffset
					} else {
						posread += span.GenomePosition - span.SegmentStart
					}
				}
				readRem -= opLen
				res.Cigar.add(negstrand, NewOp(opLen, OpMatch))
				res.AlignLen += opLen

				// default: posread > span.SegmentEnd -- not yet started, skip.
			}
		}

		if mateRem > 0 {
			switch {
			case mateRem < in.MateLen:
				mateRem -= span.SegmentEnd - span.SegmentStart + 1
				posmate = span.GenomePosition - mateRem
			case posmate <= span.SegmentEnd:
				if negstrand {
					mateRem = posmate + in.MateLen - span.SegmentEnd - 1
					posmate = span.GenomePosition - mateRem
				} else {
					mateRem = 0
					posmate += span.GenomePosition - span.SegmentStart
				}
				// default: posmate > span.SegmentEnd -- not yet started, skip.
			}
		}

		if readRem <= 0 && mateRem <= 0 {
			break
		}
	}

	if readRem > 0 {
		if negstrand {
			posread = readOffset - readRem
		}
		res.Cigar.add(negstrand, NewOp(readRem, OpSoft))
	}

	if in.PosMate != 0 && mateRem == in.MateLen {
		last := t.Spans[len(t.Spans)-1]
		if negstrand {
			posmate = last.GenomePosition - posmate - in.MateLen + last.SegmentEnd + 1
		} else {
			posmate += last.GenomePosition - last.SegmentStart
		}
		res.MateFallback = true
	}

	if rec != nil && t.Intron != exonmap.IntronNone {
		recordIntronJunctions(rec, t, in.TranscriptName, negstrand, posread, posmate, in.ReadLen, in.MateLen)
	}

	res.PosRead = posread
	if in.PosMate != 0 {
		res.PosMate = posmate
	}
	return res
}

// recordIntronJunctions tests the canonical +-10-base intron-retention
// windows and records a paired junction when the read spans one.
func recordIntronJunctions(rec *junction.Recorder, t *exonmap.TranscriptEntry, transName string, negstrand bool, posread, posmate, readLen, mateLen int32) {
	span0 := t.Spans[0]
	startCoord := span0.GenomePosition
	endCoord := span0.GenomePosition + span0.SegmentEnd - span0.SegmentStart
	namePrefix := genePrefix(transName)
	strand := strandChar(negstrand)

	switch t.Intron {
	case exonmap.IntronStart:
		if posread >= startCoord && posread < startCoord+50 &&
			posread+readLen >= startCoord+50 && posread+readLen < endCoord &&
			posmate < endCoord {
			rec.Record(
				junction.Key{Chromosome: t.Chromosome, Start: startCoord + 39, End: startCoord + 59},
				junction.Value{
					Name: namePrefix + strconv.Itoa(int(startCoord+50)), Strand: strand,
					BlockSizeLeft: 10, BlockSizeRight: 10,
					PairStart: t.PairJunctionStart, PairEnd: t.PairJunctionEnd,
				})
		}
	case exonmap.IntronEnd:
		if posread >= startCoord && posread < endCoord-50 &&
			posread+readLen >= endCoord-50 && posread+readLen < endCoord &&
			posmate+mateLen >= startCoord {
			rec.Record(
				junction.Key{Chromosome: t.Chromosome, Start: endCoord - 60, End: endCoord - 40},
				junction.Value{
					Name: namePrefix + strconv.Itoa(int(endCoord-50)), Strand: strand,
					BlockSizeLeft: 10, BlockSizeRight: 10,
					PairStart: t.PairJunctionStart, PairEnd: t.PairJunctionEnd,
				})
		}
	case exonmap.IntronFull:
		if posread >= startCoord && posread < startCoord+50 &&
			posread+readLen >= startCoord+50 && posread+readLen < endCoord-50 &&
			posmate < endCoord {
			rec.Record(
				junction.Key{Chromosome: t.Chromosome, Start: startCoord + 39, End: startCoord + 59},
				junction.Value{
					Name: namePrefix + strconv.Itoa(int(startCoord+50)), Strand: strand,
					BlockSizeLeft: 10, BlockSizeRight: 10,
					PairStart: endCoord - 60, PairEnd: endCoord - 40,
				})
		}
		if posread >= startCoord+50 && posread < endCoord-50 &&
			posread+readLen >= endCoord-50 && posread+readLen < endCoord &&
			posmate+mateLen >= startCoord {
			rec.Record(
				junction.Key{Chromosome: t.Chromosome, Start: endCoord - 60, End: endCoord - 40},
				junction.Value{
					Name: namePrefix + strconv.Itoa(int(endCoord-50)), Strand: strand,
					BlockSizeLeft: 10, BlockSizeRight: 10,
					PairStart: startCoord + 39, PairEnd: startCoord + 59,
				})
		}
	}
}

func strandChar(negstrand bool) byte {
	if negstrand {
		return '-'
	}
	return '+'
}

// genePrefix returns name up to (not including) "::", plus a trailing '-'.
func genePrefix(name string) string {
	if idx := strings.Index(name, "::"); idx >= 0 {
		return name[:idx] + "-"
	}
	return name + "-"
}
