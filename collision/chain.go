package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// Chain is a free-form sequence of line segments with no volume. Its children are
// one-sided edges whose ghost vertices come from the neighboring segments, so
// bodies slide across the joints without catching on internal corners. A loop
// closes back on its first vertex.
type Chain struct {
	Vertices []Vec2

	// PrevVertex and NextVertex extend an open chain so its end segments collide
	// smoothly with adjacent geometry.
	PrevVertex, NextVertex Vec2

	R float64
}

// NewLoop builds a closed chain. The last vertex is joined to the first.
func NewLoop(vertices []Vec2) *Chain {
	common.Assert(len(vertices) >= 3, "loop needs three vertices")
	checkChainSpacing(vertices)

	vs := make([]Vec2, len(vertices)+1)
	copy(vs, vertices)
	vs[len(vertices)] = vertices[0]

	return &Chain{
		Vertices:   vs,
		PrevVertex: vs[len(vs)-2],
		NextVertex: vs[1],
		R:          common.PolygonRadius,
	}
}

// NewChain builds an open chain with explicit ghost vertices at both ends.
func NewChain(vertices []Vec2, prev, next Vec2) *Chain {
	common.Assert(len(vertices) >= 2, "chain needs two vertices")
	checkChainSpacing(vertices)

	return &Chain{
		Vertices:   append([]Vec2(nil), vertices...),
		PrevVertex: prev,
		NextVertex: next,
		R:          common.PolygonRadius,
	}
}

func checkChainSpacing(vertices []Vec2) {
	for i := 1; i < len(vertices); i++ {
		if common.DistanceSquared(vertices[i-1], vertices[i]) <= common.LinearSlop*common.LinearSlop {
			common.Panicf("chain vertices %d and %d are too close", i-1, i)
		}
	}
}

func (c *Chain) Type() ShapeType { return ShapeChain }

func (c *Chain) Radius() float64 { return c.R }

func (c *Chain) ChildCount() int { return len(c.Vertices) - 1 }

func (c *Chain) Clone() Shape {
	clone := *c
	clone.Vertices = append([]Vec2(nil), c.Vertices...)
	return &clone
}

// ChildEdge returns segment index as a one-sided edge.
func (c *Chain) ChildEdge(index int) *Edge {
	e := new(Edge)
	c.childEdge(index, e)
	return e
}

// childEdge fills e in place so narrow phase callers can keep it on the stack.
func (c *Chain) childEdge(index int, e *Edge) {
	common.Assert(0 <= index && index < len(c.Vertices)-1, "chain child out of range")

	*e = Edge{
		Vertex1:  c.Vertices[index],
		Vertex2:  c.Vertices[index+1],
		OneSided: true,
		R:        c.R,
	}
	if index > 0 {
		e.Vertex0 = c.Vertices[index-1]
	} else {
		e.Vertex0 = c.PrevVertex
	}
	if index < len(c.Vertices)-2 {
		e.Vertex3 = c.Vertices[index+2]
	} else {
		e.Vertex3 = c.NextVertex
	}
}

func (c *Chain) TestPoint(xf Transform, p Vec2) bool {
	return false
}

// RayCast treats the child segment as two-sided.
func (c *Chain) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	common.Assert(childIndex < len(c.Vertices)-1, "chain child out of range")

	edge := Edge{
		Vertex1: c.Vertices[childIndex],
		Vertex2: c.Vertices[childIndex+1],
	}
	return edge.RayCast(input, xf, 0)
}

func (c *Chain) ComputeAABB(xf Transform, childIndex int) AABB {
	common.Assert(childIndex < len(c.Vertices)-1, "chain child out of range")

	v1 := xf.Apply(c.Vertices[childIndex])
	v2 := xf.Apply(c.Vertices[childIndex+1])
	r := Vec2{c.R, c.R}
	return AABB{
		LowerBound: common.MinVec(v1, v2).Sub(r),
		UpperBound: common.MaxVec(v1, v2).Add(r),
	}
}

// ComputeMass returns zero mass; chains only make sense on static bodies.
func (c *Chain) ComputeMass(density float64) MassData {
	return MassData{}
}
