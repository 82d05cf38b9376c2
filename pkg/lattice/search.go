package lattice

import (
	"fmt"

	"github.com/voxcraft/voicefont-go/pkg/costmodel"
	"github.com/voxcraft/voicefont-go/pkg/feature"
)

// DefaultNBest is the number of predecessor chains retained per node
// when SearchConfig.NBest is zero.
const DefaultNBest = 4

// JoinTypeFunc classifies the acoustic join between two chosen units as
// an index into the concatenation-cost matrix. The classification is
// opaque to the search.
type JoinTypeFunc func(prev, next *Node) int

// ContiguityJoinType is the default classification: units recorded
// contiguously join for free at index 0, everything else is a cut at
// index 1.
func ContiguityJoinType(prev, next *Node) int {
	if IsAdjacent(prev.Unit, next.Unit) {
		return 0
	}
	return 1
}

// SearchConfig tunes one best-path search.
type SearchConfig struct {
	// NBest is the number of ranked predecessor chains kept per node.
	NBest int

	// JoinType classifies node joins; ContiguityJoinType when nil.
	JoinType JoinTypeFunc

	// Breaks holds the prosodic break level between each pair of
	// adjacent target positions; length must be lattice length - 1.
	Breaks []costmodel.BreakLevel
}

// Search runs the best-path dynamic program over one lattice. The cost
// model is shared read-only; the search owns the lattice and its nodes.
type Search struct {
	model   *costmodel.Model
	lat     *Lattice
	targets []*feature.Vector
	nbest   int
	join    JoinTypeFunc
	breaks  []costmodel.BreakLevel

	routes []*Route
}

// NewSearch validates the lattice against the utterance's desired
// feature vectors and break levels.
func NewSearch(model *costmodel.Model, lat *Lattice, targets []*feature.Vector, cfg SearchConfig) (*Search, error) {
	if lat.Len() != len(targets) {
		return nil, fmt.Errorf("%w: %d clusters for %d target positions", ErrLatticeShape, lat.Len(), len(targets))
	}
	if len(cfg.Breaks) != lat.Len()-1 {
		return nil, fmt.Errorf("%w: %d break levels for %d position gaps", ErrLatticeShape, len(cfg.Breaks), lat.Len()-1)
	}

	nbest := cfg.NBest
	if nbest <= 0 {
		nbest = DefaultNBest
	}
	join := cfg.JoinType
	if join == nil {
		join = ContiguityJoinType
	}
	return &Search{
		model:   model,
		lat:     lat,
		targets: targets,
		nbest:   nbest,
		join:    join,
		breaks:  cfg.Breaks,
	}, nil
}

// Run fills every node's route cost and retained chains, then realizes
// the complete routes reachable from the final cluster. Routes are kept
// in discovery order; rank them with SortRoutes.
func (s *Search) Run() error {
	first := s.lat.ClusterAt(0)
	for _, n := range first.Nodes {
		tc := s.model.TargetCost(n.Feature, s.targets[0])
		n.chains = []*chain{{node: n, cost: tc}}
		n.routeCost = tc
	}

	for i := 1; i < s.lat.Len(); i++ {
		prev := s.lat.ClusterAt(i - 1)
		cur := s.lat.ClusterAt(i)
		level := s.breaks[i-1]

		for _, n := range cur.Nodes {
			tc := s.model.TargetCost(n.Feature, s.targets[i])
			n.chains = n.chains[:0]

			for _, p := range prev.Nodes {
				cc := s.model.ConcatCost(level, s.join(p, n))
				for _, pc := range p.chains {
					s.retain(n, &chain{node: n, prev: pc, cost: pc.cost + cc + tc})
				}
			}
			n.routeCost = n.chains[0].cost
		}
	}

	final := s.lat.ClusterAt(s.lat.Len() - 1)
	s.routes = s.routes[:0]
	for _, n := range final.Nodes {
		for _, c := range n.chains {
			s.routes = append(s.routes, realize(c))
		}
	}
	return nil
}

// retain inserts c into n's ranked chain list, keeping at most nbest
// entries. Insertion is stable: an equal-cost chain ranks after the
// chains already kept.
func (s *Search) retain(n *Node, c *chain) {
	pos := len(n.chains)
	for pos > 0 && n.chains[pos-1].cost > c.cost {
		pos--
	}
	if pos >= s.nbest {
		return
	}
	n.chains = append(n.chains, nil)
	copy(n.chains[pos+1:], n.chains[pos:])
	n.chains[pos] = c
	if len(n.chains) > s.nbest {
		n.chains = n.chains[:s.nbest]
	}
}

// realize walks a chain back to the first cluster and reverses it into
// a Route.
func realize(c *chain) *Route {
	total := c.cost
	var nodes []*Node
	for ; c != nil; c = c.prev {
		nodes = append(nodes, c.node)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return &Route{Nodes: nodes, TotalCost: total}
}

// Best returns the lowest-cost realized route, ties resolved in favor
// of discovery order.
func (s *Search) Best() *Route {
	var best *Route
	for _, r := range s.routes {
		if best == nil || r.TotalCost < best.TotalCost {
			best = r
		}
	}
	return best
}

// Routes returns the realized routes in discovery order. The slice is
// shared; copy before sorting if discovery order must be preserved.
func (s *Search) Routes() []*Route { return s.routes }

// FindRouteByUnits returns the first realized route that reproduces the
// externally chosen unit sequence, skipping silence and short-pause
// units in the given sequence. Returns nil when no route matches.
func (s *Search) FindRouteByUnits(units []Unit) *Route {
	for _, r := range s.routes {
		if r.matchesUnits(units) {
			return r
		}
	}
	return nil
}

// FindRouteByNode returns the first realized route passing through n,
// by identity. Returns nil when no route contains it.
func (s *Search) FindRouteByNode(n *Node) *Route {
	for _, r := range s.routes {
		if r.Contains(n) {
			return r
		}
	}
	return nil
}
