package lattice

import "sort"

// Route is one complete path through the lattice: one node per cluster,
// first position first. TotalCost equals the route cost of its final
// node along the retained chain.
type Route struct {
	Nodes     []*Node
	TotalCost float32
}

// Contains reports whether the route passes through n, by identity.
func (r *Route) Contains(n *Node) bool {
	for _, rn := range r.Nodes {
		if rn == n {
			return true
		}
	}
	return false
}

// Units returns the route's unit sequence in utterance order.
func (r *Route) Units() []Unit {
	units := make([]Unit, len(r.Nodes))
	for i, n := range r.Nodes {
		units[i] = n.Unit
	}
	return units
}

// CutSamples concatenates the route's unit sample ranges from a corpus,
// in order, for offline rendering and inspection.
func (r *Route) CutSamples(corpus []int16) []int16 {
	var total int64
	for _, n := range r.Nodes {
		total += n.Unit.SampleLength
	}
	out := make([]int16, 0, total)
	for _, n := range r.Nodes {
		out = n.Unit.CutSamples(out, corpus)
	}
	return out
}

// SortRoutes orders routes ascending by total cost. The sort is stable:
// ties keep their original insertion order, and re-sorting an already
// sorted slice leaves it unchanged.
func SortRoutes(routes []*Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].TotalCost < routes[j].TotalCost
	})
}

// matchesUnits reports whether the route reproduces the given unit
// sequence. Silence and short-pause units in the given sequence are
// skipped; every remaining unit's (offset, length) pair must equal the
// corresponding route node's unit, in order, covering the whole route.
func (r *Route) matchesUnits(units []Unit) bool {
	i := 0
	for _, u := range units {
		if u.Silence {
			continue
		}
		if i >= len(r.Nodes) {
			return false
		}
		ru := r.Nodes[i].Unit
		if ru.SampleOffset != u.SampleOffset || ru.SampleLength != u.SampleLength {
			return false
		}
		i++
	}
	return i == len(r.Nodes)
}
