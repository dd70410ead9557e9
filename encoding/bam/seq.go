package bam

// nucCode maps an ASCII base character (upper or lower case, plus '=') to
// its 4-bit BAM encoding. Anything not in the IUPAC alphabet packs as 'N'
// (15), matching the source's encodeNucleotide fallback.
var nucCode [256]byte

func init() {
	for i := range nucCode {
		nucCode[i] = 15
	}
	table := map[byte]byte{
		'=': 0, 'A': 1, 'C': 2, 'M': 3, 'G': 4, 'R': 5, 'S': 6, 'V': 7,
		'T': 8, 'W': 9, 'Y': 10, 'H': 11, 'K': 12, 'D': 13, 'B': 14, 'N': 15,
	}
	for k, v := range table {
		nucCode[k] = v
		nucCode[k|0x20] = v // lowercase variant; harmless no-op for '='
	}
}

// PackSeq encodes seq into BAM's 4-bit-per-base representation, two bases
// per byte, high nibble first. An odd-length sequence pads the final byte's
// low nibble with zero.
func PackSeq(seq string) []byte {
	n := len(seq)
	out := make([]byte, (n+1)/2)
	for i := 0; i < n/2; i++ {
		out[i] = nucCode[seq[2*i]]<<4 | nucCode[seq[2*i+1]]
	}
	if n%2 == 1 {
		out[n/2] = nucCode[seq[n-1]] << 4
	}
	return out
}
