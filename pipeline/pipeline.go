package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/bio-ngs/pseudobam/bamheader"
	"github.com/bio-ngs/pseudobam/encoding/bam"
	"github.com/bio-ngs/pseudobam/encoding/bgzf"
	"github.com/bio-ngs/pseudobam/exonmap"
	"github.com/bio-ngs/pseudobam/junction"
	"github.com/bio-ngs/pseudobam/project"
	"github.com/bio-ngs/pseudobam/sortstore"
	"github.com/bio-ngs/pseudobam/timing"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"v.io/x/lib/vlog"
)

// maxAlignSize bounds one BAM-encoded record, standing in for the source's
// process-wide pinned MAX_BAM_ALIGN_SIZE × num_threads scratch buffer --
// Go's per-call allocation makes the pinned-region trick unnecessary, but
// the record-size ceiling itself is still a real invariant to enforce.
const maxAlignSize = 1 << 20

// AlignmentInput is one read's full pseudoalignment, as the out-of-scope
// aligner/FASTQ reader would supply it: a transcript name rather than an
// already-resolved *exonmap.TranscriptEntry (ProcessAlignment owns the exon
// map and does that lookup), plus the BAM-specific fields the projector
// itself doesn't need -- name, bases, qualities, flags.
type AlignmentInput struct {
	TranscriptName string
	PosRead        int32 // 1-based transcript position of the read's leftmost base
	PosMate        int32 // 1-based, 0 if unpaired
	ReadLen        int32
	MateLen        int32

	Name string
	Seq  string
	Qual []byte
	Flag uint16
	NH   int32
	TLen int32
}

// Pipeline is the per-run orchestrator: one exon map and reference table
// built once at startup, one scratch writer per thread and (optionally) one
// junction recorder sharded by key hash, torn down by Finish.
type Pipeline struct {
	opts Options

	exonMap  exonmap.ExonMap
	refs     *exonmap.ReferenceTable
	recorder *junction.Recorder

	scratchDir string
	scratch    []*sortstore.ScratchWriter

	timer *timing.Timer

	mateFallbacks int64
}

// New loads the exon map, builds the reference table, and prepares scratch
// writers and the junction recorder per opts. Fails fatally (per spec.md
// §7's ConfigMissing/IOFailure/MalformedInput classes) if the exon
// coordinate file is missing, malformed, or inconsistent with the
// transcript names it declares.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	f, err := file.Open(ctx, opts.ExonCoordsFile)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "pipeline: opening exon coordinate file")
	}
	defer f.Close(ctx) // nolint: errcheck

	m, names, err := exonmap.LoadOrdered(f.Reader(ctx))
	if err != nil {
		return nil, err
	}
	refs, err := exonmap.BuildReferenceTable(m, names)
	if err != nil {
		return nil, err
	}

	threads := opts.threads()
	p := &Pipeline{
		opts:    opts,
		exonMap: m,
		refs:    refs,
		timer:   timing.New(),
	}

	if opts.BEDFile != "" {
		p.recorder = junction.NewRecorder(threads)
	}

	if opts.SortedBAM {
		p.scratchDir = filepath.Join(filepath.Dir(opts.Output), "sorting")
		if err := os.MkdirAll(p.scratchDir, 0777); err != nil {
			return nil, errors.E(errors.IO, err, "pipeline: creating scratch directory")
		}
		p.scratch = make([]*sortstore.ScratchWriter, threads)
		for t := range p.scratch {
			if opts.CompressScratch {
				p.scratch[t] = sortstore.NewCompressedScratchWriter(p.scratchDir, t)
			} else {
				p.scratch[t] = sortstore.NewScratchWriter(p.scratchDir, t)
			}
		}
	}

	return p, nil
}

// ProcessAlignment runs C4 (and, if BED output is enabled, C5) on one read,
// then -- if sorted BAM output is active -- encodes and appends the result
// to threadID's scratch file (C6/C7). threadID must be in [0, Threads).
func (p *Pipeline) ProcessAlignment(threadID int, in AlignmentInput) (project.Result, error) {
	t, ok := p.exonMap[in.TranscriptName]
	if !ok {
		return project.Result{}, errors.E(errors.NotExist, "pipeline: transcript not found in exon map: "+in.TranscriptName)
	}

	res := project.Project(project.Input{
		TranscriptName: in.TranscriptName,
		Transcript:     t,
		PosRead:        in.PosRead,
		PosMate:        in.PosMate,
		ReadLen:        in.ReadLen,
		MateLen:        in.MateLen,
	}, p.recorder)
	if res.MateFallback {
		atomic.AddInt64(&p.mateFallbacks, 1)
		vlog.VI(1).Infof("pipeline: mate outside segment for %s, falling back to final-span position", in.TranscriptName)
	}

	if !p.opts.SortedBAM {
		return res, nil
	}

	ref := p.refs.Lookup(res.Chromosome)
	if ref == nil {
		return res, errors.E(errors.NotExist, "pipeline: projected chromosome not in reference table: "+res.Chromosome)
	}

	rec := &bam.Record{
		RefID:    ref.RefID,
		Name:     in.Name,
		Flag:     in.Flag,
		PosRead:  res.PosRead,
		PosMate:  res.PosMate,
		TLen:     in.TLen,
		Cigar:    res.Cigar.Packed(),
		AlignLen: res.AlignLen,
		Seq:      in.Seq,
		Qual:     in.Qual,
		NH:       in.NH,
		Strand:   res.StrandChar(),
	}

	var buf bytes.Buffer
	if err := bam.Marshal(rec, &buf, maxAlignSize); err != nil {
		return res, errors.E(errors.Internal, err, "pipeline: encoding alignment")
	}
	if err := p.scratch[threadID].Append(ref.RefID, buf.Bytes()); err != nil {
		return res, err
	}
	return res, nil
}

// MateFallbackCount returns the number of alignments processed so far whose
// mate never intersected any exon span.
func (p *Pipeline) MateFallbackCount() int64 {
	return atomic.LoadInt64(&p.mateFallbacks)
}

// Finish closes scratch writers, runs the sort and BGZF emission (C7/C10)
// when sorted BAM output is active, writes the BAM or plain header, and
// flushes BED12 junctions (C5) when enabled. Call exactly once, after every
// ProcessAlignment call has returned.
func (p *Pipeline) Finish(ctx context.Context) error {
	for _, w := range p.scratch {
		if err := w.Close(); err != nil {
			return err
		}
	}

	out, err := file.Create(ctx, p.opts.Output)
	if err != nil {
		return errors.E(errors.IO, err, "pipeline: creating output")
	}
	defer out.Close(ctx) // nolint: errcheck

	if p.opts.SortedBAM {
		if err := p.finishSorted(out.Writer(ctx)); err != nil {
			return err
		}
	} else {
		if _, err := out.Writer(ctx).Write([]byte(bamheader.Text(p.refs, false))); err != nil {
			return errors.E(errors.IO, err, "pipeline: writing header")
		}
	}

	if p.recorder != nil {
		bedOut, err := file.Create(ctx, p.opts.BEDFile)
		if err != nil {
			return errors.E(errors.IO, err, "pipeline: creating BED output")
		}
		defer bedOut.Close(ctx) // nolint: errcheck
		if err := junction.WriteBED(bedOut.Writer(ctx), p.recorder.Flush()); err != nil {
			return errors.E(errors.IO, err, "pipeline: writing BED output")
		}
	}

	vlog.VI(1).Infof("pipeline: finished in %s, %d mate fallbacks", p.timer.TimeSinceReset(), p.MateFallbackCount())
	return nil
}

func (p *Pipeline) finishSorted(sink io.Writer) error {
	bw, err := bgzf.NewWriter(sink, -1)
	if err != nil {
		return errors.E(errors.IO, err, "pipeline: creating BGZF writer")
	}
	if _, err := bw.Write(bamheader.BAMPrefix(p.refs, true)); err != nil {
		return errors.E(errors.IO, err, "pipeline: writing BAM header")
	}

	var sorter *sortstore.Sorter
	if p.opts.CompressScratch {
		sorter = sortstore.NewCompressedSorter(p.scratchDir, len(p.scratch), int32(p.refs.Len()))
	} else {
		sorter = sortstore.NewSorter(p.scratchDir, len(p.scratch), int32(p.refs.Len()))
	}
	if err := sorter.Run(); err != nil {
		return err
	}
	if err := sorter.Finish(bw); err != nil {
		return err
	}
	return bw.Close()
}
