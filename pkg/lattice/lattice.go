package lattice

import (
	"errors"
	"fmt"

	"github.com/voxcraft/voicefont-go/pkg/feature"
)

var (
	// ErrEmptyCluster indicates a target position with no viable
	// candidates; no route can be completed for that utterance.
	ErrEmptyCluster = errors.New("empty candidate cluster")

	// ErrLatticeShape indicates a lattice whose cluster count does not
	// match the utterance's target positions.
	ErrLatticeShape = errors.New("lattice shape mismatch")
)

// Node is one candidate recorded unit at one target position, together
// with its linguistic context and, after a search, the minimum
// cumulative cost of reaching it from the start of the utterance.
type Node struct {
	Unit    Unit
	Feature *feature.Vector

	routeCost float32
	chains    []*chain
}

// RouteCost is the minimum cumulative cost of any path from the first
// cluster to this node. Valid after Search.Run.
func (n *Node) RouteCost() float32 { return n.routeCost }

// chain is one retained predecessor path ending at node. Chains form a
// backward-linked tree rooted at first-cluster nodes.
type chain struct {
	node *Node
	prev *chain
	cost float32
}

// Cluster holds all candidates for one target position, in candidate
// retrieval order.
type Cluster struct {
	Position int
	Nodes    []*Node
}

// Lattice is the ordered cluster sequence for one utterance. It is
// built fresh per utterance and discarded once the winning route has
// been extracted.
type Lattice struct {
	clusters []*Cluster
}

// New assembles a lattice from candidates already grouped by target
// position. Every position must have at least one candidate.
func New(candidates [][]*Node) (*Lattice, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no target positions", ErrLatticeShape)
	}
	l := &Lattice{clusters: make([]*Cluster, len(candidates))}
	for i, nodes := range candidates {
		if len(nodes) == 0 {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyCluster, i)
		}
		l.clusters[i] = &Cluster{Position: i, Nodes: nodes}
	}
	return l, nil
}

// Len returns the number of target positions.
func (l *Lattice) Len() int { return len(l.clusters) }

// ClusterAt returns the cluster for one target position.
func (l *Lattice) ClusterAt(i int) *Cluster { return l.clusters[i] }
