// pseudobam-project reads a stream of already-pseudoaligned reads and
// projects them from transcriptome space into a genome-space BAM (or plain
// SAM header) file, optionally emitting BED12 junction records.
//
// Usage: pseudobam-project -exon-coords transcripts.csv -sortedbam -output out.bam < reads.tsv
//
// The pseudoaligner itself, and its wire format to this tool, are out of
// scope for this project; reads.tsv is a simple tab-separated stand-in --
// transcript, posread, posmate, readlen, matelen, name, seq, qual, flag, nh,
// tlen -- good enough to drive the pipeline end to end.
package main

import (
	"bufio"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bio-ngs/pseudobam/pipeline"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
)

var (
	pseudobamFlag       = flag.Bool("pseudobam", true, "enable transcriptome-to-genome projection")
	exonCoordsFlag      = flag.String("exon-coords", "", "exon/intron coordinate CSV path (required)")
	sortedBAMFlag       = flag.Bool("sortedbam", true, "sort and emit BAM output; if false, only an unsorted header is written")
	bedFlag             = flag.String("bed", "", "BED12 junction output path; empty disables junction recording")
	threadsFlag         = flag.Int("threads", 1, "number of alignment-producing worker threads")
	outputFlag          = flag.String("output", "", "output path: BAM file (sorted) or header destination (unsorted)")
	compressScratchFlag = flag.Bool("compress-scratch", false, "snappy-compress C7 scratch files")
	readsFlag           = flag.String("reads", "-", "tab-separated pseudoalignment stream; '-' reads stdin")
)

func main() {
	flag.Parse()
	shutdown := grail.Init()
	defer shutdown()

	if !*pseudobamFlag {
		return
	}
	if *exonCoordsFlag == "" || *outputFlag == "" {
		log.Fatalf("pseudobam-project: -exon-coords and -output are required")
	}

	ctx := vcontext.Background()
	p, err := pipeline.New(ctx, pipeline.Options{
		Pseudobam:       *pseudobamFlag,
		ExonCoordsFile:  *exonCoordsFlag,
		SortedBAM:       *sortedBAMFlag,
		BEDFile:         *bedFlag,
		Threads:         *threadsFlag,
		Output:          *outputFlag,
		CompressScratch: *compressScratchFlag,
	})
	if err != nil {
		log.Fatalf("pseudobam-project: %v", err)
	}

	in := os.Stdin
	if *readsFlag != "-" {
		f, err := os.Open(*readsFlag)
		if err != nil {
			log.Fatalf("pseudobam-project: opening reads stream: %v", err)
		}
		defer f.Close() // nolint: errcheck
		in = f
	}
	if err := runReads(p, in); err != nil {
		log.Fatalf("pseudobam-project: %v", err)
	}

	if err := p.Finish(ctx); err != nil {
		log.Fatalf("pseudobam-project: %v", err)
	}
}

// runReads feeds every tab-separated alignment line on r through the
// pipeline, single-threaded (thread 0), in production order.
func runReads(p *pipeline.Pipeline, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\n")
		if line == "" {
			continue
		}
		in, err := parseAlignmentLine(line)
		if err != nil {
			return err
		}
		if _, err := p.ProcessAlignment(0, in); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseAlignmentLine parses one line of the reads.tsv stand-in format:
// transcript, posread, posmate, readlen, matelen, name, seq, qual, flag,
// nh, tlen.
func parseAlignmentLine(line string) (pipeline.AlignmentInput, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 11 {
		log.Fatalf("pseudobam-project: malformed read line (want 11 fields, got %d): %q", len(fields), line)
	}

	posRead, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		log.Fatalf("pseudobam-project: posread: %v", err)
	}
	posMate, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		log.Fatalf("pseudobam-project: posmate: %v", err)
	}
	readLen, err := strconv.ParseInt(fields[3], 10, 32)
	if err != nil {
		log.Fatalf("pseudobam-project: readlen: %v", err)
	}
	mateLen, err := strconv.ParseInt(fields[4], 10, 32)
	if err != nil {
		log.Fatalf("pseudobam-project: matelen: %v", err)
	}
	flagBits, err := strconv.ParseUint(fields[8], 10, 16)
	if err != nil {
		log.Fatalf("pseudobam-project: flag: %v", err)
	}
	nh, err := strconv.ParseInt(fields[9], 10, 32)
	if err != nil {
		log.Fatalf("pseudobam-project: nh: %v", err)
	}
	tlen, err := strconv.ParseInt(fields[10], 10, 32)
	if err != nil {
		log.Fatalf("pseudobam-project: tlen: %v", err)
	}

	return pipeline.AlignmentInput{
		TranscriptName: fields[0],
		PosRead:        int32(posRead),
		PosMate:        int32(posMate),
		ReadLen:        int32(readLen),
		MateLen:        int32(mateLen),
		Name:           fields[5],
		Seq:            fields[6],
		Qual:           []byte(fields[7]),
		Flag:           uint16(flagBits),
		NH:             int32(nh),
		TLen:           int32(tlen),
	}, nil
}
