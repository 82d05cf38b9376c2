// Package lattice builds the per-utterance candidate lattice and runs
// the best-path search over it: one cluster of candidate nodes per
// target position, costs from a shared read-only cost model, and a
// Viterbi-style dynamic program that retains the top-K predecessor
// chains per node so alternate routes can be enumerated and ranked.
package lattice

// Unit describes one recorded audio segment in the voice corpus.
type Unit struct {
	ID           uint32
	SampleOffset int64
	SampleLength int64

	// Silence marks silence and short-pause units, which are skipped
	// when matching an externally chosen unit sequence against a route.
	Silence bool
}

// IsAdjacent reports whether two units were recorded contiguously:
// the predecessor's segment ends exactly where the successor's begins.
func IsAdjacent(p, n Unit) bool {
	return p.SampleOffset+p.SampleLength == n.SampleOffset
}

// CutSamples appends the unit's sample range from the corpus to dst.
// Returns dst unchanged if the range falls outside the corpus.
func (u Unit) CutSamples(dst []int16, corpus []int16) []int16 {
	lo, hi := u.SampleOffset, u.SampleOffset+u.SampleLength
	if lo < 0 || hi > int64(len(corpus)) || lo > hi {
		return dst
	}
	return append(dst, corpus[lo:hi]...)
}
