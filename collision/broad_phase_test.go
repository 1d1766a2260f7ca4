package collision

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func randomAABB(rng *rand.Rand) AABB {
	x := rng.Float64()*200 - 100
	y := rng.Float64()*200 - 100
	w := rng.Float64()*4 + 0.1
	h := rng.Float64()*4 + 0.1
	return AABB{LowerBound: Vec2{x, y}, UpperBound: Vec2{x + w, y + h}}
}

func TestDynamicTreeQueryMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tree := NewDynamicTree()

	live := map[int]bool{}
	for i := 0; i < 400; i++ {
		live[tree.CreateProxy(randomAABB(rng), i)] = true
	}
	tree.Validate()

	// Move a third of the proxies, destroy a quarter.
	i := 0
	for id := range live {
		switch i % 4 {
		case 0:
			tree.DestroyProxy(id)
			delete(live, id)
		case 1:
			tree.MoveProxy(id, randomAABB(rng), Vec2{1, -1})
		}
		i++
	}
	tree.Validate()

	if got := tree.ProxyCount(); got != len(live) {
		t.Fatalf("ProxyCount = %d, want %d", got, len(live))
	}
	if ratio := tree.AreaRatio(); ratio < 1 {
		t.Errorf("area ratio %v below 1", ratio)
	}

	for q := 0; q < 50; q++ {
		query := randomAABB(rng).Fatten(5)

		var got []int
		for id := range tree.Query(query) {
			got = append(got, id)
		}
		var want []int
		for id := range live {
			if TestOverlap(tree.FatAABB(id), query) {
				want = append(want, id)
			}
		}
		slices.Sort(got)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			t.Fatalf("query %d: got %v, want %v", q, got, want)
		}
	}

	height := tree.Height()
	tree.RebuildBottomUp()
	if tree.ProxyCount() != len(live) {
		t.Errorf("rebuild lost proxies")
	}
	if tree.Height() == 0 || height == 0 {
		t.Errorf("heights %d -> %d", height, tree.Height())
	}
}

func TestDynamicTreeQueryStopsEarly(t *testing.T) {
	tree := NewDynamicTree()
	for i := 0; i < 10; i++ {
		tree.CreateProxy(AABB{LowerBound: Vec2{0, 0}, UpperBound: Vec2{1, 1}}, i)
	}
	n := 0
	for range tree.Query(AABB{LowerBound: Vec2{0, 0}, UpperBound: Vec2{1, 1}}) {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("visited %d proxies", n)
	}
}

func TestDynamicTreeMoveWithinFatAABB(t *testing.T) {
	tree := NewDynamicTree()
	aabb := AABB{LowerBound: Vec2{0, 0}, UpperBound: Vec2{1, 1}}
	id := tree.CreateProxy(aabb, nil)

	nudged := AABB{LowerBound: Vec2{0.01, 0}, UpperBound: Vec2{1.01, 1}}
	if tree.MoveProxy(id, nudged, Vec2{0.01, 0}) {
		t.Error("small move re-inserted the proxy")
	}

	far := AABB{LowerBound: Vec2{10, 0}, UpperBound: Vec2{11, 1}}
	if !tree.MoveProxy(id, far, Vec2{9, 0}) {
		t.Fatal("large move kept the old fat AABB")
	}
	fat := tree.FatAABB(id)
	if !fat.Contains(far) {
		t.Errorf("fat AABB %+v does not contain %+v", fat, far)
	}
	// Predicted motion extends the box along the displacement.
	if fat.UpperBound[0] < far.UpperBound[0]+9 {
		t.Errorf("fat AABB not extended by displacement: %+v", fat)
	}
}

func TestDynamicTreeRayCast(t *testing.T) {
	tree := NewDynamicTree()
	boxes := []AABB{
		{LowerBound: Vec2{2, -1}, UpperBound: Vec2{3, 1}},
		{LowerBound: Vec2{5, -1}, UpperBound: Vec2{6, 1}},
		{LowerBound: Vec2{5, 5}, UpperBound: Vec2{6, 6}},
	}
	for i, bb := range boxes {
		tree.CreateProxy(bb, i)
	}

	input := RayCastInput{P1: Vec2{0, 0}, P2: Vec2{10, 0}, MaxFraction: 1}
	closest := -1
	tree.RayCast(input, func(in RayCastInput, proxyID int) float64 {
		out, ok := boxes[tree.UserData(proxyID).(int)].RayCast(in)
		if !ok {
			return -1
		}
		closest = tree.UserData(proxyID).(int)
		return out.Fraction
	})
	if closest != 0 {
		t.Errorf("closest hit = %d, want 0", closest)
	}
}

func TestBroadPhasePairCache(t *testing.T) {
	bp := NewBroadPhase()
	a := bp.CreateProxy(AABB{LowerBound: Vec2{0, 0}, UpperBound: Vec2{1, 1}}, "a")
	b := bp.CreateProxy(AABB{LowerBound: Vec2{0.5, 0.5}, UpperBound: Vec2{1.5, 1.5}}, "b")
	bp.CreateProxy(AABB{LowerBound: Vec2{10, 10}, UpperBound: Vec2{11, 11}}, "c")

	var pairs [][2]string
	accept := true
	record := func(ua, ub any) bool {
		pair := [2]string{ua.(string), ub.(string)}
		slices.Sort(pair[:])
		pairs = append(pairs, pair)
		return accept
	}

	bp.UpdatePairs(record)
	if len(pairs) != 1 || pairs[0] != [2]string{"a", "b"} {
		t.Fatalf("first update pairs = %v", pairs)
	}
	if !bp.HasPair(a, b) || bp.PairCount() != 1 {
		t.Fatal("accepted pair not cached")
	}

	// A cached pair is not offered again.
	pairs = nil
	bp.TouchProxy(a)
	bp.TouchProxy(b)
	bp.UpdatePairs(record)
	if len(pairs) != 0 {
		t.Errorf("cached pair offered again: %v", pairs)
	}

	// Released pairs come back once a proxy moves.
	bp.ReleasePair(a, b)
	bp.TouchProxy(b)
	bp.UpdatePairs(record)
	if len(pairs) != 1 {
		t.Errorf("released pair not offered: %v", pairs)
	}

	// Rejected pairs are not cached.
	bp.ReleasePair(a, b)
	accept = false
	pairs = nil
	bp.TouchProxy(a)
	bp.UpdatePairs(record)
	bp.TouchProxy(a)
	bp.UpdatePairs(record)
	if len(pairs) != 2 || bp.HasPair(a, b) {
		t.Errorf("rejected pair handling: %v", pairs)
	}

	accept = true
	bp.TouchProxy(a)
	bp.UpdatePairs(record)
	bp.DestroyProxy(b)
	if bp.PairCount() != 0 || bp.HasPair(a, b) {
		t.Error("destroying a proxy kept its pairs")
	}
	if bp.ProxyCount() != 2 {
		t.Errorf("ProxyCount = %d", bp.ProxyCount())
	}
}

func TestBroadPhaseMovedPairsReportedOnce(t *testing.T) {
	bp := NewBroadPhase()
	for i := 0; i < 5; i++ {
		x := float64(i) * 0.5
		bp.CreateProxy(AABB{LowerBound: Vec2{x, 0}, UpperBound: Vec2{x + 1, 1}}, i)
	}

	seen := map[[2]int]int{}
	bp.UpdatePairs(func(ua, ub any) bool {
		i, j := ua.(int), ub.(int)
		seen[[2]int{min(i, j), max(i, j)}]++
		return true
	})
	for pair, n := range seen {
		if n != 1 {
			t.Errorf("pair %v reported %d times", pair, n)
		}
	}
	if len(seen) == 0 || bp.PairCount() != len(seen) {
		t.Errorf("PairCount = %d, seen %d", bp.PairCount(), len(seen))
	}
}

func TestBroadPhaseCachedPairsDoNotAllocate(t *testing.T) {
	bp := NewBroadPhase()
	ids := make([]int, 0, 40)
	for i := 0; i < 40; i++ {
		x := float64(i) * 0.5
		ids = append(ids, bp.CreateProxy(AABB{LowerBound: Vec2{x, 0}, UpperBound: Vec2{x + 1, 1}}, i))
	}
	offered := 0
	accept := func(any, any) bool {
		offered++
		return true
	}
	bp.UpdatePairs(accept)
	pairs := bp.PairCount()

	// Release and re-cache a pair each round, like a contact that ends and
	// begins again.
	allocs := testing.AllocsPerRun(200, func() {
		for _, id := range ids {
			bp.TouchProxy(id)
		}
		bp.ReleasePair(ids[3], ids[4])
		bp.UpdatePairs(accept)
	})
	if allocs != 0 {
		t.Errorf("UpdatePairs allocates %.1f times per round", allocs)
	}
	if bp.PairCount() != pairs || !bp.HasPair(ids[4], ids[3]) {
		t.Errorf("pair cache changed: %d pairs, want %d", bp.PairCount(), pairs)
	}
	if offered != pairs+201 {
		t.Errorf("offered %d pairs, want %d", offered, pairs+201)
	}
}
