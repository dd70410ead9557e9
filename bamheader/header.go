// Package bamheader builds the SAM header text and BAM binary header
// prefix shared by sorted and unsorted pseudo-alignment output.
package bamheader

import (
	"fmt"
	"strings"

	"github.com/bio-ngs/pseudobam/encoding/bam"
	"github.com/bio-ngs/pseudobam/exonmap"
)

const programVersion = "1.0"

// Text builds the SAM header text: one @HD line, one @SQ line per
// chromosome in ref_id order, and a trailing @PG line. sorted selects
// between SO:coordinate (for sorted-BAM output) and an unsorted header
// (for streamed SAM text output).
func Text(refs *exonmap.ReferenceTable, sorted bool) string {
	var b strings.Builder
	if sorted {
		b.WriteString("@HD\tVN:1.0\tSO:coordinate\n")
	} else {
		b.WriteString("@HD\tVN:1.0\n")
	}
	for _, name := range refs.Names() {
		fmt.Fprintf(&b, "@SQ\tSN:%s\tLN:%d\n", name, refs.Lookup(name).Length)
	}
	fmt.Fprintf(&b, "@PG\tID:pseudobam\tPN:pseudobam\tVN:%s\n", programVersion)
	return b.String()
}

// BAMPrefix builds the binary BAM header block (magic, header text,
// reference dictionary) ready to write to the BGZF sink before any
// alignment records.
func BAMPrefix(refs *exonmap.ReferenceTable, sorted bool) []byte {
	names := refs.Names()
	lengths := make([]int32, len(names))
	for i, name := range names {
		lengths[i] = refs.Lookup(name).Length
	}
	return bam.MarshalHeader(Text(refs, sorted), names, lengths)
}
