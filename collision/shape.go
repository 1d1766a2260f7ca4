package collision

import (
	"fmt"

	"github.com/ByteArena/box2d/v2/common"
)

type Transform = common.Transform

// ShapeType is the closed set of collision shapes.
type ShapeType uint8

const (
	ShapeCircle ShapeType = iota
	ShapeEdge
	ShapePolygon
	ShapeChain
	shapeTypeCount
)

func (t ShapeType) String() string {
	switch t {
	case ShapeCircle:
		return "circle"
	case ShapeEdge:
		return "edge"
	case ShapePolygon:
		return "polygon"
	case ShapeChain:
		return "chain"
	}
	return fmt.Sprintf("ShapeType(%d)", uint8(t))
}

// MassData holds the mass properties of a shape, computed from its density.
type MassData struct {
	Mass float64

	// Center is the centroid relative to the shape origin.
	Center Vec2

	// I is the rotational inertia about the shape origin.
	I float64
}

// Shape is implemented by Circle, Edge, Polygon and Chain. Shapes are immutable
// once attached to a fixture.
type Shape interface {
	Type() ShapeType

	// Radius is the rounding skin. Polygons and edges use PolygonRadius.
	Radius() float64

	// ChildCount is the number of child primitives: 1 except for chains.
	ChildCount() int

	// TestPoint reports whether p (world frame) lies in the shape.
	TestPoint(xf Transform, p Vec2) bool

	RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool)

	ComputeAABB(xf Transform, childIndex int) AABB

	ComputeMass(density float64) MassData

	Clone() Shape
}

// MinExtent is the smallest half-dimension of a shape about its centroid; it
// decides whether a body moves fast enough to need continuous collision.
func MinExtent(s Shape) float64 {
	switch s := s.(type) {
	case *Circle:
		return s.R
	case *Polygon:
		extent := common.MaxFloat
		for i := 0; i < s.Count; i++ {
			d := s.Normals[i].Dot(s.Vertices[i].Sub(s.Centroid))
			if d < extent {
				extent = d
			}
		}
		return extent + s.R
	case *Edge:
		return s.R
	case *Chain:
		return s.R
	}
	panic(fmt.Sprintf("box2d: unknown shape %T", s))
}
