package bam

import "bytes"

// MarshalHeader encodes the BAM binary header prefix: magic, SAM header
// text, then one (name_len, NUL-terminated name, seq_len) triple per
// reference in refID order. text is the already-built SAM header text
// (the @HD/@SQ/@PG lines); names/lengths give the reference dictionary in
// the same order C8's ref_id assignment uses.
func MarshalHeader(text string, names []string, lengths []int32) []byte {
	buf := bytes.Buffer{}
	buf.WriteString("BAM\x01")

	w := binaryWriter{buf: &buf}
	w.i32(int32(len(text)))
	buf.WriteString(text)

	w.i32(int32(len(names)))
	for i, name := range names {
		w.i32(int32(len(name) + 1))
		buf.WriteString(name)
		buf.WriteByte(0)
		w.i32(lengths[i])
	}
	return buf.Bytes()
}
