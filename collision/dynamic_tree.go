package collision

import (
	"iter"
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

const nullNode = -1

// treeNode is a node in the dynamic tree. Free nodes chain through parent.
type treeNode struct {
	aabb     AABB
	userData any

	parent int
	child1 int
	child2 int

	// leaf = 0, free node = -1
	height int

	moved bool
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == nullNode
}

// DynamicTree is a bounding volume hierarchy of fat AABBs, balanced with AVL
// rotations. Leaves are proxies carrying user data; a proxy's fat AABB may move by
// a small amount without a tree update. Proxy ids are stable until destroyed.
type DynamicTree struct {
	root           int
	nodes          []treeNode
	nodeCount      int
	freeList       int
	insertionCount int
}

func NewDynamicTree() *DynamicTree {
	t := &DynamicTree{root: nullNode}
	t.nodes = make([]treeNode, 16)
	t.linkFree(0)
	return t
}

// linkFree chains nodes[from:] into the free list.
func (t *DynamicTree) linkFree(from int) {
	for i := from; i < len(t.nodes)-1; i++ {
		t.nodes[i].parent = i + 1
		t.nodes[i].height = -1
	}
	t.nodes[len(t.nodes)-1].parent = nullNode
	t.nodes[len(t.nodes)-1].height = -1
	t.freeList = from
}

func (t *DynamicTree) allocateNode() int {
	if t.freeList == nullNode {
		common.Assert(t.nodeCount == len(t.nodes), "tree free list out of sync")

		// The free list is empty. Double the node pool.
		grown := make([]treeNode, 2*len(t.nodes))
		copy(grown, t.nodes)
		t.nodes = grown
		t.linkFree(t.nodeCount)
	}

	nodeID := t.freeList
	t.freeList = t.nodes[nodeID].parent
	t.nodes[nodeID] = treeNode{
		parent: nullNode,
		child1: nullNode,
		child2: nullNode,
	}
	t.nodeCount++
	return nodeID
}

func (t *DynamicTree) freeNode(nodeID int) {
	common.Assert(0 <= nodeID && nodeID < len(t.nodes), "tree node out of range")
	common.Assert(0 < t.nodeCount, "tree is empty")
	t.nodes[nodeID] = treeNode{parent: t.freeList, height: -1}
	t.freeList = nodeID
	t.nodeCount--
}

// CreateProxy inserts a leaf for aabb, fattened by AABBExtension, and returns its id.
func (t *DynamicTree) CreateProxy(aabb AABB, userData any) int {
	proxyID := t.allocateNode()

	n := &t.nodes[proxyID]
	n.aabb = aabb.Fatten(common.AABBExtension)
	n.userData = userData
	n.height = 0
	n.moved = true

	t.insertLeaf(proxyID)
	return proxyID
}

func (t *DynamicTree) DestroyProxy(proxyID int) {
	common.Assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	common.Assert(t.nodes[proxyID].isLeaf(), "proxy is not a leaf")

	t.removeLeaf(proxyID)
	t.freeNode(proxyID)
}

// MoveProxy updates the proxy for a new tight aabb, predicting further motion
// from displacement. It reports whether the tree was updated; when false the old
// fat AABB still covers the shape and is not oversized.
func (t *DynamicTree) MoveProxy(proxyID int, aabb AABB, displacement Vec2) bool {
	common.Assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	common.Assert(t.nodes[proxyID].isLeaf(), "proxy is not a leaf")

	fatAABB := aabb.Fatten(common.AABBExtension)

	// Predict AABB movement.
	d := displacement.Mul(common.AABBMultiplier)
	if d[0] < 0 {
		fatAABB.LowerBound[0] += d[0]
	} else {
		fatAABB.UpperBound[0] += d[0]
	}
	if d[1] < 0 {
		fatAABB.LowerBound[1] += d[1]
	} else {
		fatAABB.UpperBound[1] += d[1]
	}

	treeAABB := t.nodes[proxyID].aabb
	if treeAABB.Contains(aabb) {
		// The tree AABB still contains the object, but it might be too large, for
		// instance after a fast moving body went to sleep.
		hugeAABB := fatAABB.Fatten(4.0 * common.AABBExtension)
		if hugeAABB.Contains(treeAABB) {
			return false
		}
	}

	t.removeLeaf(proxyID)
	t.nodes[proxyID].aabb = fatAABB
	t.insertLeaf(proxyID)
	t.nodes[proxyID].moved = true
	return true
}

func (t *DynamicTree) UserData(proxyID int) any {
	common.Assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	return t.nodes[proxyID].userData
}

func (t *DynamicTree) FatAABB(proxyID int) AABB {
	common.Assert(0 <= proxyID && proxyID < len(t.nodes), "proxy out of range")
	return t.nodes[proxyID].aabb
}

func (t *DynamicTree) WasMoved(proxyID int) bool {
	return t.nodes[proxyID].moved
}

func (t *DynamicTree) ClearMoved(proxyID int) {
	t.nodes[proxyID].moved = false
}

// Query yields the proxies whose fat AABB overlaps aabb. Stop iterating to end the
// query early.
func (t *DynamicTree) Query(aabb AABB) iter.Seq[int] {
	return func(yield func(int) bool) {
		t.QueryFunc(aabb, yield)
	}
}

// QueryFunc calls callback for each proxy whose fat AABB overlaps aabb until it
// returns false.
func (t *DynamicTree) QueryFunc(aabb AABB, callback func(proxyID int) bool) {
	var buf [256]int
	stack := append(buf[:0], t.root)

	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullNode {
			continue
		}

		n := &t.nodes[nodeID]
		if !TestOverlap(n.aabb, aabb) {
			continue
		}
		if n.isLeaf() {
			if !callback(nodeID) {
				return
			}
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
}

// RayCastCallback is called for each proxy the ray reaches. It returns the new
// max fraction: 0 terminates the cast, the input fraction continues unclipped and
// a negative value ignores the proxy.
type RayCastCallback func(input RayCastInput, proxyID int) float64

// RayCast visits the proxies whose fat AABB is crossed by the ray. The callback
// performs the exact shape test and controls clipping.
func (t *DynamicTree) RayCast(input RayCastInput, callback RayCastCallback) {
	p1 := input.P1
	p2 := input.P2
	r, length := common.Normalize(p2.Sub(p1))
	common.Assert(length > 0, "zero length ray")

	// v is perpendicular to the segment.
	v := common.CrossSV(1.0, r)
	absV := common.AbsVec(v)

	// Separating axis for segment (Gino, p80): |dot(v, p1 - c)| > dot(|v|, h)
	maxFraction := input.MaxFraction

	segmentAABB := func() AABB {
		end := p1.Add(p2.Sub(p1).Mul(maxFraction))
		return AABB{LowerBound: common.MinVec(p1, end), UpperBound: common.MaxVec(p1, end)}
	}
	segment := segmentAABB()

	stack := make([]int, 0, 256)
	stack = append(stack, t.root)
	for len(stack) > 0 {
		nodeID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nodeID == nullNode {
			continue
		}

		n := &t.nodes[nodeID]
		if !TestOverlap(n.aabb, segment) {
			continue
		}

		c := n.aabb.Center()
		h := n.aabb.Extents()
		separation := math.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0 {
			continue
		}

		if !n.isLeaf() {
			stack = append(stack, n.child1, n.child2)
			continue
		}

		value := callback(RayCastInput{P1: input.P1, P2: input.P2, MaxFraction: maxFraction}, nodeID)
		if value == 0 {
			// The client has terminated the ray cast.
			return
		}
		if value > 0 {
			maxFraction = value
			segment = segmentAABB()
		}
	}
}

func (t *DynamicTree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling by the surface area heuristic.
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedArea := Combine(t.nodes[index].aabb, leafAABB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf.
		cost := 2.0 * combinedArea

		// Minimum cost of pushing the leaf further down the tree.
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].aabb = Combine(leafAABB, t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}

	t.refit(t.nodes[leaf].parent)
}

func (t *DynamicTree) descendCost(child int, leafAABB AABB) float64 {
	aabb := Combine(leafAABB, t.nodes[child].aabb)
	if t.nodes[child].isLeaf() {
		return aabb.Perimeter()
	}
	return aabb.Perimeter() - t.nodes[child].aabb.Perimeter()
}

// refit walks back up from index, rebalancing and fixing heights and AABBs.
func (t *DynamicTree) refit(index int) {
	for index != nullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		common.Assert(child1 != nullNode && child2 != nullNode, "internal node missing a child")

		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].aabb = Combine(t.nodes[child1].aabb, t.nodes[child2].aabb)

		index = t.nodes[index].parent
	}
}

func (t *DynamicTree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	if grandParent == nullNode {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
		return
	}

	// Destroy parent and connect sibling to grandParent.
	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.freeNode(parent)

	t.refit(grandParent)
}

// balance performs a left or right rotation if node iA is imbalanced and returns
// the new root of the subtree.
func (t *DynamicTree) balance(iA int) int {
	common.Assert(iA != nullNode, "balance on null node")

	a := &t.nodes[iA]
	if a.isLeaf() || a.height < 2 {
		return iA
	}

	iB := a.child1
	iC := a.child2
	b := &t.nodes[iB]
	c := &t.nodes[iC]

	balance := c.height - b.height

	// Rotate C up.
	if balance > 1 {
		iF := c.child1
		iG := c.child2
		f := &t.nodes[iF]
		g := &t.nodes[iG]

		// Swap A and C.
		c.child1 = iA
		c.parent = a.parent
		a.parent = iC

		// A's old parent should point to C.
		t.replaceChild(c.parent, iA, iC)

		if f.height > g.height {
			c.child2 = iF
			a.child2 = iG
			g.parent = iA
			a.aabb = Combine(b.aabb, g.aabb)
			c.aabb = Combine(a.aabb, f.aabb)
			a.height = 1 + max(b.height, g.height)
			c.height = 1 + max(a.height, f.height)
		} else {
			c.child2 = iG
			a.child2 = iF
			f.parent = iA
			a.aabb = Combine(b.aabb, f.aabb)
			c.aabb = Combine(a.aabb, g.aabb)
			a.height = 1 + max(b.height, f.height)
			c.height = 1 + max(a.height, g.height)
		}
		return iC
	}

	// Rotate B up.
	if balance < -1 {
		iD := b.child1
		iE := b.child2
		d := &t.nodes[iD]
		e := &t.nodes[iE]

		// Swap A and B.
		b.child1 = iA
		b.parent = a.parent
		a.parent = iB

		t.replaceChild(b.parent, iA, iB)

		if d.height > e.height {
			b.child2 = iD
			a.child1 = iE
			e.parent = iA
			a.aabb = Combine(c.aabb, e.aabb)
			b.aabb = Combine(a.aabb, d.aabb)
			a.height = 1 + max(c.height, e.height)
			b.height = 1 + max(a.height, d.height)
		} else {
			b.child2 = iE
			a.child1 = iD
			d.parent = iA
			a.aabb = Combine(c.aabb, d.aabb)
			b.aabb = Combine(a.aabb, e.aabb)
			a.height = 1 + max(c.height, d.height)
			b.height = 1 + max(a.height, e.height)
		}
		return iB
	}

	return iA
}

// replaceChild points parent at newChild instead of oldChild, or makes newChild
// the root.
func (t *DynamicTree) replaceChild(parent, oldChild, newChild int) {
	if parent == nullNode {
		t.root = newChild
		return
	}
	if t.nodes[parent].child1 == oldChild {
		t.nodes[parent].child1 = newChild
		return
	}
	common.Assert(t.nodes[parent].child2 == oldChild, "broken parent link")
	t.nodes[parent].child2 = newChild
}

// Height is the height of the root, 0 for an empty tree.
func (t *DynamicTree) Height() int {
	if t.root == nullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// MaxBalance is the largest height difference between two siblings.
func (t *DynamicTree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}
		common.Assert(!n.isLeaf(), "leaf with height")
		balance := t.nodes[n.child2].height - t.nodes[n.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}
	return maxBalance
}

// AreaRatio is the sum of node perimeters over the root perimeter.
func (t *DynamicTree) AreaRatio() float64 {
	if t.root == nullNode {
		return 0
	}

	rootArea := t.nodes[t.root].aabb.Perimeter()
	totalArea := 0.0
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}
	return totalArea / rootArea
}

// ProxyCount is the number of leaves.
func (t *DynamicTree) ProxyCount() int {
	if t.nodeCount == 0 {
		return 0
	}
	return (t.nodeCount + 1) / 2
}

// Validate checks the structure and metrics of the tree, panicking on corruption.
func (t *DynamicTree) Validate() {
	t.validateStructure(t.root)
	t.validateMetrics(t.root)

	freeCount := 0
	for freeIndex := t.freeList; freeIndex != nullNode; freeIndex = t.nodes[freeIndex].parent {
		common.Assert(0 <= freeIndex && freeIndex < len(t.nodes), "free list out of range")
		freeCount++
	}

	common.Assert(t.Height() == t.computeHeight(t.root), "tree height mismatch")
	common.Assert(t.nodeCount+freeCount == len(t.nodes), "tree node leak")
}

func (t *DynamicTree) computeHeight(nodeID int) int {
	if nodeID == nullNode {
		return 0
	}
	n := &t.nodes[nodeID]
	if n.isLeaf() {
		return 0
	}
	return 1 + max(t.computeHeight(n.child1), t.computeHeight(n.child2))
}

func (t *DynamicTree) validateStructure(index int) {
	if index == nullNode {
		return
	}
	if index == t.root {
		common.Assert(t.nodes[index].parent == nullNode, "root has a parent")
	}

	n := &t.nodes[index]
	child1, child2 := n.child1, n.child2
	if n.isLeaf() {
		common.Assert(child2 == nullNode && n.height == 0, "malformed leaf")
		return
	}

	common.Assert(0 <= child1 && child1 < len(t.nodes), "child1 out of range")
	common.Assert(0 <= child2 && child2 < len(t.nodes), "child2 out of range")
	common.Assert(t.nodes[child1].parent == index, "child1 parent link")
	common.Assert(t.nodes[child2].parent == index, "child2 parent link")

	t.validateStructure(child1)
	t.validateStructure(child2)
}

func (t *DynamicTree) validateMetrics(index int) {
	if index == nullNode {
		return
	}

	n := &t.nodes[index]
	child1, child2 := n.child1, n.child2
	if n.isLeaf() {
		common.Assert(child2 == nullNode && n.height == 0, "malformed leaf")
		return
	}

	height := 1 + max(t.nodes[child1].height, t.nodes[child2].height)
	common.Assert(n.height == height, "stale node height")

	aabb := Combine(t.nodes[child1].aabb, t.nodes[child2].aabb)
	common.Assert(aabb.LowerBound == n.aabb.LowerBound, "stale node lower bound")
	common.Assert(aabb.UpperBound == n.aabb.UpperBound, "stale node upper bound")

	t.validateMetrics(child1)
	t.validateMetrics(child2)
}

// RebuildBottomUp rebuilds an optimal tree from the current leaves. It is slow and
// meant for levels that have settled.
func (t *DynamicTree) RebuildBottomUp() {
	nodes := make([]int, 0, t.nodeCount)

	// Collect the leaves; free the internal nodes.
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		if t.nodes[i].isLeaf() {
			t.nodes[i].parent = nullNode
			nodes = append(nodes, i)
		} else {
			t.freeNode(i)
		}
	}

	for len(nodes) > 1 {
		minCost := common.MaxFloat
		iMin, jMin := -1, -1
		for i := 0; i < len(nodes); i++ {
			aabbi := t.nodes[nodes[i]].aabb
			for j := i + 1; j < len(nodes); j++ {
				cost := Combine(aabbi, t.nodes[nodes[j]].aabb).Perimeter()
				if cost < minCost {
					iMin, jMin = i, j
					minCost = cost
				}
			}
		}

		index1 := nodes[iMin]
		index2 := nodes[jMin]

		parentIndex := t.allocateNode()
		parent := &t.nodes[parentIndex]
		parent.child1 = index1
		parent.child2 = index2
		parent.height = 1 + max(t.nodes[index1].height, t.nodes[index2].height)
		parent.aabb = Combine(t.nodes[index1].aabb, t.nodes[index2].aabb)
		parent.parent = nullNode

		t.nodes[index1].parent = parentIndex
		t.nodes[index2].parent = parentIndex

		nodes[jMin] = nodes[len(nodes)-1]
		nodes[iMin] = parentIndex
		nodes = nodes[:len(nodes)-1]
	}

	if len(nodes) == 1 {
		t.root = nodes[0]
	} else {
		t.root = nullNode
	}
	t.Validate()
}

// ShiftOrigin translates every node by -newOrigin.
func (t *DynamicTree) ShiftOrigin(newOrigin Vec2) {
	for i := range t.nodes {
		t.nodes[i].aabb.LowerBound = t.nodes[i].aabb.LowerBound.Sub(newOrigin)
		t.nodes[i].aabb.UpperBound = t.nodes[i].aabb.UpperBound.Sub(newOrigin)
	}
}
