package lattice

import (
	"errors"
	"strings"
	"testing"

	"github.com/voxcraft/voicefont-go/pkg/costmodel"
	"github.com/voxcraft/voicefont-go/pkg/feature"
)

// searchTable trains only the left-phone dimension over {pau, a, b} and
// makes every non-contiguous join cost 100, so search outcomes are easy
// to compute by hand.
const searchTable = `[LangID]
1
[ToneCount]
1
[TotalTargetWeight]
1
[TotalConcatWeight]
1
[TargetWeight]
1 1 1 1 1 1 1 1 1
[SmoothWeight]
1
[LeftPhoneCost]
// pau a b
0 10 20
10 0 30
20 30 0
[ConcatCost]
0 100
0 100
0 100
0 100
0 100
0 100
`

func searchModel(t *testing.T) *costmodel.Model {
	t.Helper()
	schema, err := feature.NewSchema([]string{"pau", "a", "b"}, 1)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	m, err := costmodel.Load(strings.NewReader(searchTable), schema, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return m
}

func phoneNode(t *testing.T, s *feature.Schema, unit Unit, leftPhone string) *Node {
	t.Helper()
	id, ok := s.PhoneID(leftPhone)
	if !ok {
		t.Fatalf("unknown phone %q", leftPhone)
	}
	v := feature.NewVector(s)
	if err := v.Set(feature.LeftPhone, id); err != nil {
		t.Fatalf("Set(LeftPhone) error = %v", err)
	}
	return &Node{Unit: unit, Feature: v}
}

func phoneTarget(t *testing.T, s *feature.Schema, leftPhone string) *feature.Vector {
	t.Helper()
	id, ok := s.PhoneID(leftPhone)
	if !ok {
		t.Fatalf("unknown phone %q", leftPhone)
	}
	v := feature.NewVector(s)
	if err := v.Set(feature.LeftPhone, id); err != nil {
		t.Fatalf("Set(LeftPhone) error = %v", err)
	}
	return v
}

// twoClusterSearch builds the reference lattice:
//
//	position 0: a1 (contiguous with b1, exact context), a2 (pau context)
//	position 1: b1, b2 (both exact context)
//
// Best route is a1→b1 at cost 0: zero target cost and a free contiguous
// join. Every other route pays the 100 cut cost or the 10 context cost.
func twoClusterSearch(t *testing.T, cfg SearchConfig) (*Search, [4]*Node) {
	t.Helper()
	m := searchModel(t)
	s := m.Schema()

	a1 := phoneNode(t, s, Unit{ID: 1, SampleOffset: 0, SampleLength: 100}, "a")
	a2 := phoneNode(t, s, Unit{ID: 2, SampleOffset: 500, SampleLength: 100}, "pau")
	b1 := phoneNode(t, s, Unit{ID: 3, SampleOffset: 100, SampleLength: 100}, "b")
	b2 := phoneNode(t, s, Unit{ID: 4, SampleOffset: 900, SampleLength: 100}, "b")

	lat, err := New([][]*Node{{a1, a2}, {b1, b2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	targets := []*feature.Vector{phoneTarget(t, s, "a"), phoneTarget(t, s, "b")}
	if cfg.Breaks == nil {
		cfg.Breaks = []costmodel.BreakLevel{costmodel.BreakWord}
	}
	search, err := NewSearch(m, lat, targets, cfg)
	if err != nil {
		t.Fatalf("NewSearch() error = %v", err)
	}
	if err := search.Run(); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return search, [4]*Node{a1, a2, b1, b2}
}

func TestIsAdjacent(t *testing.T) {
	p := Unit{SampleOffset: 200, SampleLength: 50}
	if !IsAdjacent(p, Unit{SampleOffset: 250, SampleLength: 10}) {
		t.Error("contiguous segments should be adjacent")
	}
	if IsAdjacent(p, Unit{SampleOffset: 251, SampleLength: 10}) {
		t.Error("gap of one sample should not be adjacent")
	}
	if IsAdjacent(p, Unit{SampleOffset: 200, SampleLength: 10}) {
		t.Error("overlapping segments should not be adjacent")
	}
}

func TestSearchBestRoute(t *testing.T) {
	s, nodes := twoClusterSearch(t, SearchConfig{})
	a1, _, b1, _ := nodes[0], nodes[1], nodes[2], nodes[3]

	best := s.Best()
	if best == nil {
		t.Fatal("Best() = nil")
	}
	if best.TotalCost != 0 {
		t.Errorf("best route cost = %v, want 0", best.TotalCost)
	}
	if len(best.Nodes) != 2 || best.Nodes[0] != a1 || best.Nodes[1] != b1 {
		t.Errorf("best route = %v, want a1→b1", best.Units())
	}
}

func TestSearchRouteCosts(t *testing.T) {
	_, nodes := twoClusterSearch(t, SearchConfig{})
	a1, a2, b1, b2 := nodes[0], nodes[1], nodes[2], nodes[3]

	if a1.RouteCost() != 0 {
		t.Errorf("a1 route cost = %v, want 0", a1.RouteCost())
	}
	if a2.RouteCost() != 10 {
		t.Errorf("a2 route cost = %v, want 10", a2.RouteCost())
	}
	if b1.RouteCost() != 0 {
		t.Errorf("b1 route cost = %v, want 0", b1.RouteCost())
	}
	if b2.RouteCost() != 100 {
		t.Errorf("b2 route cost = %v, want 100", b2.RouteCost())
	}

	// Route cost never decreases along a path: every second-cluster node
	// costs at least the cheapest first-cluster node.
	for _, n := range []*Node{b1, b2} {
		if n.RouteCost() < a1.RouteCost() {
			t.Errorf("route cost %v decreased below predecessor %v", n.RouteCost(), a1.RouteCost())
		}
	}
}

func TestSortRoutesStableAndIdempotent(t *testing.T) {
	s, nodes := twoClusterSearch(t, SearchConfig{})
	a1, a2, b1, b2 := nodes[0], nodes[1], nodes[2], nodes[3]

	routes := s.Routes()
	if len(routes) != 4 {
		t.Fatalf("got %d routes, want 4", len(routes))
	}

	SortRoutes(routes)
	wantCosts := []float32{0, 100, 110, 110}
	for i, r := range routes {
		if r.TotalCost != wantCosts[i] {
			t.Errorf("routes[%d].TotalCost = %v, want %v", i, r.TotalCost, wantCosts[i])
		}
	}
	// The two cost-110 routes tie; the one discovered first (through b1)
	// must stay first.
	if routes[2].Nodes[0] != a2 || routes[2].Nodes[1] != b1 {
		t.Errorf("routes[2] = %v, want a2→b1", routes[2].Units())
	}
	if routes[3].Nodes[0] != a2 || routes[3].Nodes[1] != b2 {
		t.Errorf("routes[3] = %v, want a2→b2", routes[3].Units())
	}
	if routes[1].Nodes[0] != a1 {
		t.Errorf("routes[1] should start at a1")
	}

	// Sorting again must not reorder anything.
	before := make([]*Route, len(routes))
	copy(before, routes)
	SortRoutes(routes)
	for i := range routes {
		if routes[i] != before[i] {
			t.Errorf("second sort moved routes[%d]", i)
		}
	}
}

func TestNBestLimit(t *testing.T) {
	s, _ := twoClusterSearch(t, SearchConfig{NBest: 1})

	if len(s.Routes()) != 2 {
		t.Fatalf("got %d routes with NBest=1, want 2", len(s.Routes()))
	}
	best := s.Best()
	if best.TotalCost != 0 {
		t.Errorf("best route cost = %v, want 0", best.TotalCost)
	}
}

func TestFindRouteByUnits(t *testing.T) {
	s, nodes := twoClusterSearch(t, SearchConfig{})
	a1, b1 := nodes[0], nodes[2]

	// The externally chosen sequence interleaves silence units, which
	// are skipped during matching.
	given := []Unit{
		{SampleOffset: 9000, SampleLength: 10, Silence: true},
		{SampleOffset: 0, SampleLength: 100},
		{SampleOffset: 9500, SampleLength: 10, Silence: true},
		{SampleOffset: 100, SampleLength: 100},
	}
	r := s.FindRouteByUnits(given)
	if r == nil {
		t.Fatal("FindRouteByUnits() = nil, want the a1→b1 route")
	}
	if r.Nodes[0] != a1 || r.Nodes[1] != b1 {
		t.Errorf("matched route = %v, want a1→b1", r.Units())
	}

	// A sequence no route produced.
	if r := s.FindRouteByUnits([]Unit{{SampleOffset: 1, SampleLength: 2}}); r != nil {
		t.Errorf("FindRouteByUnits(unknown) = %v, want nil", r.Units())
	}

	// A strict prefix of a route must not match.
	if r := s.FindRouteByUnits([]Unit{{SampleOffset: 0, SampleLength: 100}}); r != nil {
		t.Errorf("FindRouteByUnits(prefix) = %v, want nil", r.Units())
	}
}

func TestFindRouteByNode(t *testing.T) {
	s, nodes := twoClusterSearch(t, SearchConfig{})
	b2 := nodes[3]

	r := s.FindRouteByNode(b2)
	if r == nil {
		t.Fatal("FindRouteByNode(b2) = nil")
	}
	if !r.Contains(b2) {
		t.Error("returned route does not contain b2")
	}

	stranger := &Node{Unit: Unit{ID: 99}}
	if r := s.FindRouteByNode(stranger); r != nil {
		t.Error("FindRouteByNode(foreign node) should be nil")
	}
}

func TestEmptyClusterFails(t *testing.T) {
	m := searchModel(t)
	s := m.Schema()
	n := phoneNode(t, s, Unit{ID: 1, SampleLength: 10}, "a")

	_, err := New([][]*Node{{n}, {}})
	if !errors.Is(err, ErrEmptyCluster) {
		t.Errorf("New with empty cluster error = %v, want ErrEmptyCluster", err)
	}
	if _, err := New(nil); !errors.Is(err, ErrLatticeShape) {
		t.Errorf("New(nil) error = %v, want ErrLatticeShape", err)
	}
}

func TestNewSearchShapeErrors(t *testing.T) {
	m := searchModel(t)
	s := m.Schema()
	n1 := phoneNode(t, s, Unit{ID: 1, SampleLength: 10}, "a")
	n2 := phoneNode(t, s, Unit{ID: 2, SampleOffset: 10, SampleLength: 10}, "b")
	lat, err := New([][]*Node{{n1}, {n2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = NewSearch(m, lat, []*feature.Vector{phoneTarget(t, s, "a")}, SearchConfig{})
	if !errors.Is(err, ErrLatticeShape) {
		t.Errorf("target count mismatch error = %v, want ErrLatticeShape", err)
	}

	targets := []*feature.Vector{phoneTarget(t, s, "a"), phoneTarget(t, s, "b")}
	_, err = NewSearch(m, lat, targets, SearchConfig{Breaks: []costmodel.BreakLevel{}})
	if !errors.Is(err, ErrLatticeShape) {
		t.Errorf("break count mismatch error = %v, want ErrLatticeShape", err)
	}
}

func TestRouteCutSamples(t *testing.T) {
	s, _ := twoClusterSearch(t, SearchConfig{})

	corpus := make([]int16, 1000)
	for i := range corpus {
		corpus[i] = int16(i)
	}
	best := s.Best()
	samples := best.CutSamples(corpus)
	if len(samples) != 200 {
		t.Fatalf("got %d samples, want 200", len(samples))
	}
	// a1 covers [0,100), b1 covers [100,200): the cut is seamless.
	for i, v := range samples {
		if v != int16(i) {
			t.Fatalf("samples[%d] = %d, want %d", i, v, i)
		}
	}
}
