package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// Edge is a line segment. A one-sided edge collides only on its right side
// (looking from Vertex1 to Vertex2) and uses the ghost vertices Vertex0 and Vertex3
// to smooth collision against its neighbors; chains are built from one-sided edges.
type Edge struct {
	Vertex1, Vertex2 Vec2

	// Ghost vertices, used only when OneSided is set.
	Vertex0, Vertex3 Vec2

	OneSided bool
	R        float64
}

// NewEdge returns a two-sided edge.
func NewEdge(v1, v2 Vec2) *Edge {
	return &Edge{Vertex1: v1, Vertex2: v2, R: common.PolygonRadius}
}

// NewOneSidedEdge returns an edge that only collides on its right side.
func NewOneSidedEdge(v0, v1, v2, v3 Vec2) *Edge {
	return &Edge{
		Vertex0:  v0,
		Vertex1:  v1,
		Vertex2:  v2,
		Vertex3:  v3,
		OneSided: true,
		R:        common.PolygonRadius,
	}
}

// SetTwoSided resets the edge to a plain two-sided segment.
func (e *Edge) SetTwoSided(v1, v2 Vec2) {
	e.Vertex1 = v1
	e.Vertex2 = v2
	e.OneSided = false
}

func (e *Edge) Type() ShapeType { return ShapeEdge }

func (e *Edge) Radius() float64 { return e.R }

func (e *Edge) ChildCount() int { return 1 }

func (e *Edge) Clone() Shape {
	clone := *e
	return &clone
}

func (e *Edge) TestPoint(xf Transform, p Vec2) bool {
	return false
}

// RayCast intersects the ray with the segment. One-sided edges ignore rays that
// start behind them.
func (e *Edge) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	// Put the ray into the edge's frame of reference.
	p1 := xf.Q.ApplyT(input.P1.Sub(xf.P))
	p2 := xf.Q.ApplyT(input.P2.Sub(xf.P))
	d := p2.Sub(p1)

	v1 := e.Vertex1
	v2 := e.Vertex2
	edge := v2.Sub(v1)

	// Normal points to the right, looking from v1 at v2.
	normal, _ := common.Normalize(Vec2{edge[1], -edge[0]})

	// q = p1 + t * d
	// dot(normal, q - v1) = 0
	numerator := normal.Dot(v1.Sub(p1))
	if e.OneSided && numerator > 0 {
		return RayCastOutput{}, false
	}

	denominator := normal.Dot(d)
	if denominator == 0 {
		return RayCastOutput{}, false
	}

	t := numerator / denominator
	if t < 0 || input.MaxFraction < t {
		return RayCastOutput{}, false
	}

	q := p1.Add(d.Mul(t))

	// q = v1 + s * r
	rr := edge.Dot(edge)
	if rr == 0 {
		return RayCastOutput{}, false
	}
	s := q.Sub(v1).Dot(edge) / rr
	if s < 0 || 1 < s {
		return RayCastOutput{}, false
	}

	out := RayCastOutput{Fraction: t, Normal: xf.Q.Apply(normal)}
	if numerator > 0 {
		out.Normal = out.Normal.Mul(-1)
	}
	return out, true
}

func (e *Edge) ComputeAABB(xf Transform, childIndex int) AABB {
	v1 := xf.Apply(e.Vertex1)
	v2 := xf.Apply(e.Vertex2)
	r := Vec2{e.R, e.R}
	return AABB{
		LowerBound: common.MinVec(v1, v2).Sub(r),
		UpperBound: common.MaxVec(v1, v2).Add(r),
	}
}

func (e *Edge) ComputeMass(density float64) MassData {
	return MassData{Center: e.Vertex1.Add(e.Vertex2).Mul(0.5)}
}
