package collision

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// Circle is a solid circle centered at P in the body frame.
type Circle struct {
	P Vec2
	R float64
}

func NewCircle(radius float64) *Circle {
	return &Circle{R: radius}
}

func (c *Circle) Type() ShapeType { return ShapeCircle }

func (c *Circle) Radius() float64 { return c.R }

func (c *Circle) ChildCount() int { return 1 }

func (c *Circle) Clone() Shape {
	clone := *c
	return &clone
}

func (c *Circle) TestPoint(xf Transform, p Vec2) bool {
	center := xf.Apply(c.P)
	d := p.Sub(center)
	return d.Dot(d) <= c.R*c.R
}

// RayCast solves |p1 + t*r - center| = radius for the smallest t (Collision
// Detection in Interactive 3D Environments, 3.1.2).
func (c *Circle) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	position := xf.Apply(c.P)
	s := input.P1.Sub(position)
	b := s.Dot(s) - c.R*c.R

	r := input.P2.Sub(input.P1)
	cc := s.Dot(r)
	rr := r.Dot(r)
	sigma := cc*cc - rr*b

	// Negative discriminant or short segment.
	if sigma < 0 || rr < common.Epsilon {
		return RayCastOutput{}, false
	}

	a := -(cc + math.Sqrt(sigma))
	if 0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		normal, _ := common.Normalize(s.Add(r.Mul(a)))
		return RayCastOutput{Normal: normal, Fraction: a}, true
	}
	return RayCastOutput{}, false
}

func (c *Circle) ComputeAABB(xf Transform, childIndex int) AABB {
	p := xf.Apply(c.P)
	return AABB{
		LowerBound: Vec2{p[0] - c.R, p[1] - c.R},
		UpperBound: Vec2{p[0] + c.R, p[1] + c.R},
	}
}

func (c *Circle) ComputeMass(density float64) MassData {
	mass := density * common.Pi * c.R * c.R
	return MassData{
		Mass:   mass,
		Center: c.P,
		// Inertia about the local origin.
		I: mass * (0.5*c.R*c.R + c.P.Dot(c.P)),
	}
}
