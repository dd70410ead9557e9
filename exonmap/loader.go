package exonmap

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// Load parses the exon/intron coordinate CSV from r and returns the
// transcript exon map. Rows for the same transcript must appear
// contiguously; this is detected by comparing each row's transcript name to
// the previous row's.
//
// Column layout, resolved against the CSV producer's actual field usage
// (transcript_name, strand_sign, segment_start, segment_end,
// genome_position, transcript_length, chromosome): column 5
// (transcript_length) is not needed by this component and is ignored.
func Load(r io.Reader) (ExonMap, error) {
	m, _, err := LoadOrdered(r)
	return m, err
}

// LoadOrdered is Load, additionally returning transcript names in the
// order their first row appeared -- the canonical order BuildReferenceTable
// needs, since ExonMap's own map iteration order is not reproducible.
func LoadOrdered(r io.Reader) (ExonMap, []string, error) {
	csv := newCSVReader(r)
	m := make(ExonMap)
	var names []string
	lastKey := ""

	for {
		fields, ok := csv.next()
		if !ok {
			break
		}
		if len(fields) < 7 {
			return nil, nil, errors.E(errors.Invalid, fmt.Sprintf("exonmap: malformed row (want >=7 fields, got %d): %v", len(fields), fields))
		}

		name := fields[0]
		segStart, err := parseInt(fields[2])
		if err != nil {
			return nil, nil, errors.E(errors.Invalid, err, "exonmap: segment_start")
		}
		segEnd, err := parseInt(fields[3])
		if err != nil {
			return nil, nil, errors.E(errors.Invalid, err, "exonmap: segment_end")
		}
		genomePos, err := parseInt(fields[4])
		if err != nil {
			return nil, nil, errors.E(errors.Invalid, err, "exonmap: genome_position")
		}

		if name == lastKey {
			entry := m[lastKey]
			entry.Spans = append(entry.Spans, ExonSpan{segStart, segEnd, genomePos})
			continue
		}

		strandVal, err := parseInt(fields[1])
		if err != nil {
			return nil, nil, errors.E(errors.Invalid, err, "exonmap: strand_sign")
		}
		strand := int8(1)
		if strandVal < 0 {
			strand = -1
		}
		chromosome := fields[6]

		intronFlag := IntronNone
		pairStart, pairEnd := int32(-1), int32(-1)
		if strings.HasSuffix(name, ")") {
			if lastKey != "" && strings.HasSuffix(lastKey, ")") && intronPrefix(lastKey) == intronPrefix(name) {
				intronFlag = IntronEnd
				prev := m[lastKey]
				startCoord := prev.Spans[0].GenomePosition
				endCoord := genomePos + segEnd - segStart
				pairStart = startCoord + 39
				pairEnd = startCoord + 59
				prev.Intron = IntronStart
				prev.PairJunctionStart = endCoord - 60
				prev.PairJunctionEnd = endCoord - 40
			} else {
				intronFlag = IntronFull
			}
		}

		lastKey = name
		names = append(names, name)
		m[name] = &TranscriptEntry{
			Chromosome:        chromosome,
			Strand:            strand,
			Intron:            intronFlag,
			PairJunctionStart: pairStart,
			PairJunctionEnd:   pairEnd,
			Spans:             []ExonSpan{{segStart, segEnd, genomePos}},
		}
	}
	if err := csv.Err(); err != nil {
		return nil, nil, errors.E(errors.IO, err, "exonmap: reading coordinate file")
	}
	return m, names, nil
}

// intronPrefix returns the transcript name up to and including the second
// byte of "::", or the whole name if it has no "::" separator. This mirrors
// a.substr(0, a.find("::")+2), where a std::string::npos+2 substr length
// clamps to the full string.
func intronPrefix(name string) string {
	idx := strings.Index(name, "::")
	if idx < 0 {
		return name
	}
	end := idx + 2
	if end > len(name) {
		end = len(name)
	}
	return name[:end]
}

func parseInt(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}
