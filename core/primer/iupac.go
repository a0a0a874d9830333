// core/primer/iupac.go
package primer

/* -------------------------- IUPAC lookup table -------------------------- */

var iupacMask [256]byte // bit0=A bit1=C bit2=G bit3=T

func init() {
	set := func(c byte, bits byte) { iupacMask[c] = bits }
	set('A', 1)       // 0001
	set('C', 2)       // 0010
	set('G', 4)       // 0100
	set('T', 8)       // 1000
	set('R', 1|4)     // A/G
	set('Y', 2|8)     // C/T
	set('S', 2|4)     // C/G
	set('W', 1|8)     // A/T
	set('K', 4|8)     // G/T
	set('M', 1|2)     // A/C
	set('B', 2|4|8)   // C/G/T
	set('D', 1|4|8)   // A/G/T
	set('H', 1|2|8)   // A/C/T
	set('V', 1|2|4)   // A/C/G
	set('N', 1|2|4|8) // any (query side only)
}

// BaseMatch returns true if query base q (an IUPAC code from a primer or
// barcode pattern) can pair with read base r.
//
// A read base other than A/C/G/T is treated as a hard mismatch: this keeps
// N-runs in low-quality read tails from producing spurious demultiplex hits.
func BaseMatch(r, q byte) bool {
	if r != 'A' && r != 'C' && r != 'G' && r != 'T' {
		return false
	}
	return iupacMask[q]&iupacMask[r] != 0
}
