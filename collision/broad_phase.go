package collision

import (
	"iter"
)

// PairCallback is offered each new overlapping pair. Returning true records the
// pair so it is not offered again until released.
type PairCallback func(userDataA, userDataB any) bool

// BroadPhase wraps a DynamicTree with a move buffer and a pair cache. Moved proxies
// are queried against the tree on UpdatePairs and each overlapping pair that is not
// already cached is offered to the caller once.
type BroadPhase struct {
	tree *DynamicTree

	proxyCount int

	moveBuffer []int

	pairBuffer   []proxyPair
	queryProxyID int

	// cached is the set of accepted pairs, keyed with a < b. It only grows its
	// buckets, so a steady scene caches pairs without allocating.
	cached map[proxyPair]struct{}
}

type proxyPair struct {
	a, b int
}

func makePair(a, b int) proxyPair {
	return proxyPair{a: min(a, b), b: max(a, b)}
}

const NullProxy = -1

func NewBroadPhase() *BroadPhase {
	return &BroadPhase{
		tree:       NewDynamicTree(),
		moveBuffer: make([]int, 0, 16),
		pairBuffer: make([]proxyPair, 0, 16),
		cached:     make(map[proxyPair]struct{}),
	}
}

// CreateProxy adds a proxy with an initial aabb. Pairs are not reported until
// UpdatePairs is called.
func (bp *BroadPhase) CreateProxy(aabb AABB, userData any) int {
	proxyID := bp.tree.CreateProxy(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyID)
	return proxyID
}

// DestroyProxy removes a proxy and forgets its cached pairs. It is up to the
// caller to destroy the matching contacts.
func (bp *BroadPhase) DestroyProxy(proxyID int) {
	bp.unbufferMove(proxyID)
	bp.proxyCount--
	for p := range bp.cached {
		if p.a == proxyID || p.b == proxyID {
			delete(bp.cached, p)
		}
	}
	bp.tree.DestroyProxy(proxyID)
}

// MoveProxy updates the proxy for a new aabb. Pairs are re-examined on the next
// UpdatePairs only when the fat AABB had to change.
func (bp *BroadPhase) MoveProxy(proxyID int, aabb AABB, displacement Vec2) {
	if bp.tree.MoveProxy(proxyID, aabb, displacement) {
		bp.bufferMove(proxyID)
	}
}

// TouchProxy forces the proxy to be re-examined on the next UpdatePairs.
func (bp *BroadPhase) TouchProxy(proxyID int) {
	bp.bufferMove(proxyID)
}

// ReleasePair forgets a cached pair, typically when its contact is destroyed. The
// pair is offered again if the proxies still overlap when one of them moves.
func (bp *BroadPhase) ReleasePair(proxyA, proxyB int) {
	delete(bp.cached, makePair(proxyA, proxyB))
}

// HasPair reports whether the pair is cached.
func (bp *BroadPhase) HasPair(proxyA, proxyB int) bool {
	_, ok := bp.cached[makePair(proxyA, proxyB)]
	return ok
}

// PairCount is the number of cached pairs.
func (bp *BroadPhase) PairCount() int {
	return len(bp.cached)
}

func (bp *BroadPhase) FatAABB(proxyID int) AABB {
	return bp.tree.FatAABB(proxyID)
}

func (bp *BroadPhase) UserData(proxyID int) any {
	return bp.tree.UserData(proxyID)
}

// TestOverlap reports whether the fat AABBs of two proxies overlap.
func (bp *BroadPhase) TestOverlap(proxyA, proxyB int) bool {
	return TestOverlap(bp.tree.FatAABB(proxyA), bp.tree.FatAABB(proxyB))
}

func (bp *BroadPhase) ProxyCount() int {
	return bp.proxyCount
}

// UpdatePairs queries every moved proxy against the tree and offers the new
// overlapping pairs to callback. A pair of two moved proxies is found once.
func (bp *BroadPhase) UpdatePairs(callback PairCallback) {
	bp.pairBuffer = bp.pairBuffer[:0]

	for _, queryID := range bp.moveBuffer {
		if queryID == NullProxy {
			continue
		}
		bp.queryProxyID = queryID

		// Query the tree with the fat AABB so pairs that may touch soon are found.
		bp.tree.QueryFunc(bp.tree.FatAABB(queryID), bp.collectPair)
	}

	for _, p := range bp.pairBuffer {
		if _, ok := bp.cached[p]; ok {
			continue
		}
		if callback(bp.tree.UserData(p.a), bp.tree.UserData(p.b)) {
			bp.cached[p] = struct{}{}
		}
	}

	for _, proxyID := range bp.moveBuffer {
		if proxyID == NullProxy {
			continue
		}
		bp.tree.ClearMoved(proxyID)
	}
	bp.moveBuffer = bp.moveBuffer[:0]
}

func (bp *BroadPhase) collectPair(proxyID int) bool {
	if proxyID == bp.queryProxyID {
		return true
	}

	// Both proxies moved: only the lower id reports the pair.
	if bp.tree.WasMoved(proxyID) && proxyID > bp.queryProxyID {
		return true
	}

	bp.pairBuffer = append(bp.pairBuffer, makePair(proxyID, bp.queryProxyID))
	return true
}

// Query yields the proxies whose fat AABB overlaps aabb.
func (bp *BroadPhase) Query(aabb AABB) iter.Seq[int] {
	return bp.tree.Query(aabb)
}

// RayCast visits proxies along the ray; see DynamicTree.RayCast.
func (bp *BroadPhase) RayCast(input RayCastInput, callback RayCastCallback) {
	bp.tree.RayCast(input, callback)
}

func (bp *BroadPhase) TreeHeight() int {
	return bp.tree.Height()
}

func (bp *BroadPhase) TreeBalance() int {
	return bp.tree.MaxBalance()
}

func (bp *BroadPhase) TreeQuality() float64 {
	return bp.tree.AreaRatio()
}

// ShiftOrigin translates every proxy by -newOrigin.
func (bp *BroadPhase) ShiftOrigin(newOrigin Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}

func (bp *BroadPhase) bufferMove(proxyID int) {
	bp.moveBuffer = append(bp.moveBuffer, proxyID)
}

func (bp *BroadPhase) unbufferMove(proxyID int) {
	for i, id := range bp.moveBuffer {
		if id == proxyID {
			bp.moveBuffer[i] = NullProxy
		}
	}
}
