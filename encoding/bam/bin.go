package bam

// RegionToBin computes the BAI/BAM binning-index bin number for a half-open
// reference interval [beg, end), using the standard hierarchical scheme
// (16kbp to 512Mbp bins in powers of 8).
func RegionToBin(beg, end int32) uint16 {
	end--
	switch {
	case beg>>14 == end>>14:
		return uint16(((1 << 15) - 1) / 7 + (beg >> 14))
	case beg>>17 == end>>17:
		return uint16(((1 << 12) - 1) / 7 + (beg >> 17))
	case beg>>20 == end>>20:
		return uint16(((1 << 9) - 1) / 7 + (beg >> 20))
	case beg>>23 == end>>23:
		return uint16(((1 << 6) - 1) / 7 + (beg >> 23))
	case beg>>26 == end>>26:
		return uint16(((1 << 3) - 1) / 7 + (beg >> 26))
	default:
		return 0
	}
}
