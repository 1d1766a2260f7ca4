package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// Polygon is a solid convex polygon with counter-clockwise winding and at most
// MaxPolygonVertices vertices. The interior is to the left of each edge.
type Polygon struct {
	Centroid Vec2
	Vertices [common.MaxPolygonVertices]Vec2
	Normals  [common.MaxPolygonVertices]Vec2
	Count    int
	R        float64
}

func NewPolygon() *Polygon {
	return &Polygon{R: common.PolygonRadius}
}

// NewBox returns an axis-aligned box centered on the body origin.
func NewBox(hx, hy float64) *Polygon {
	p := NewPolygon()
	p.SetAsBox(hx, hy)
	return p
}

func (p *Polygon) Type() ShapeType { return ShapePolygon }

func (p *Polygon) Radius() float64 { return p.R }

func (p *Polygon) ChildCount() int { return 1 }

func (p *Polygon) Clone() Shape {
	clone := *p
	return &clone
}

// SetAsBox builds a box with half-widths hx and hy.
func (p *Polygon) SetAsBox(hx, hy float64) {
	p.Count = 4
	p.Vertices[0] = Vec2{-hx, -hy}
	p.Vertices[1] = Vec2{hx, -hy}
	p.Vertices[2] = Vec2{hx, hy}
	p.Vertices[3] = Vec2{-hx, hy}
	p.Normals[0] = Vec2{0, -1}
	p.Normals[1] = Vec2{1, 0}
	p.Normals[2] = Vec2{0, 1}
	p.Normals[3] = Vec2{-1, 0}
	p.Centroid = Vec2{}
}

// SetAsOrientedBox builds a box with half-widths hx and hy, centered on center and
// rotated by angle, in the body frame.
func (p *Polygon) SetAsOrientedBox(hx, hy float64, center Vec2, angle float64) {
	p.SetAsBox(hx, hy)
	p.Centroid = center

	xf := common.NewTransform(center, angle)
	for i := 0; i < p.Count; i++ {
		p.Vertices[i] = xf.Apply(p.Vertices[i])
		p.Normals[i] = xf.Q.Apply(p.Normals[i])
	}
}

// Set computes the convex hull of points and makes it the polygon. Points closer
// than half the linear slop are welded. When fewer than three distinct hull points
// remain the polygon becomes a unit box and Set reports false.
func (p *Polygon) Set(points []Vec2) bool {
	n := min(len(points), common.MaxPolygonVertices)
	if n < 3 {
		p.SetAsBox(1, 1)
		return false
	}

	const weld = (0.5 * common.LinearSlop) * (0.5 * common.LinearSlop)
	var ps [common.MaxPolygonVertices]Vec2
	count := 0
	for i := 0; i < n; i++ {
		v := points[i]
		unique := true
		for j := 0; j < count; j++ {
			if common.DistanceSquared(v, ps[j]) < weld {
				unique = false
				break
			}
		}
		if unique {
			ps[count] = v
			count++
		}
	}
	n = count
	if n < 3 {
		p.SetAsBox(1, 1)
		return false
	}

	// Gift wrapping, starting from the right most point (lowest y on ties).
	i0 := 0
	x0 := ps[0][0]
	for i := 1; i < n; i++ {
		x := ps[i][0]
		if x > x0 || (x == x0 && ps[i][1] < ps[i0][1]) {
			i0 = i
			x0 = x
		}
	}

	var hull [common.MaxPolygonVertices]int
	m := 0
	ih := i0
	for {
		common.Assert(m < common.MaxPolygonVertices, "hull overflow")
		hull[m] = ih

		ie := 0
		for j := 1; j < n; j++ {
			if ie == ih {
				ie = j
				continue
			}
			r := ps[ie].Sub(ps[hull[m]])
			v := ps[j].Sub(ps[hull[m]])
			c := common.Cross(r, v)
			if c < 0 {
				ie = j
			}
			// Collinear: keep the farthest.
			if c == 0 && v.Dot(v) > r.Dot(r) {
				ie = j
			}
		}

		m++
		ih = ie
		if ie == i0 {
			break
		}
	}
	if m < 3 {
		p.SetAsBox(1, 1)
		return false
	}

	p.Count = m
	for i := 0; i < m; i++ {
		p.Vertices[i] = ps[hull[i]]
	}
	for i := 0; i < m; i++ {
		i2 := i + 1
		if i2 == m {
			i2 = 0
		}
		edge := p.Vertices[i2].Sub(p.Vertices[i])
		common.Assert(edge.Dot(edge) > common.Epsilon*common.Epsilon, "zero length polygon edge")
		p.Normals[i], _ = common.Normalize(common.CrossVS(edge, 1.0))
	}
	p.Centroid = computeCentroid(p.Vertices[:m])
	return true
}

func computeCentroid(vs []Vec2) Vec2 {
	var c Vec2
	area := 0.0

	// Triangles are formed against the first vertex to reduce round-off.
	s := vs[0]
	const inv3 = 1.0 / 3.0
	for i := range vs {
		p1 := Vec2{}
		p2 := vs[i].Sub(s)
		p3 := vs[0].Sub(s)
		if i+1 < len(vs) {
			p3 = vs[i+1].Sub(s)
		}

		d := common.Cross(p2.Sub(p1), p3.Sub(p1))
		triangleArea := 0.5 * d
		area += triangleArea
		c = c.Add(p1.Add(p2).Add(p3).Mul(triangleArea * inv3))
	}

	common.Assert(area > common.Epsilon, "degenerate polygon")
	return c.Mul(1.0 / area).Add(s)
}

func (p *Polygon) TestPoint(xf Transform, point Vec2) bool {
	pLocal := xf.ApplyT(point)
	for i := 0; i < p.Count; i++ {
		if p.Normals[i].Dot(pLocal.Sub(p.Vertices[i])) > 0 {
			return false
		}
	}
	return true
}

func (p *Polygon) RayCast(input RayCastInput, xf Transform, childIndex int) (RayCastOutput, bool) {
	// Put the ray into the polygon's frame of reference.
	p1 := xf.Q.ApplyT(input.P1.Sub(xf.P))
	p2 := xf.Q.ApplyT(input.P2.Sub(xf.P))
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := 0; i < p.Count; i++ {
		// p = p1 + a * d
		// dot(normal, p - v) = 0
		// dot(normal, p1 - v) + a * dot(normal, d) = 0
		numerator := p.Normals[i].Dot(p.Vertices[i].Sub(p1))
		denominator := p.Normals[i].Dot(d)

		if denominator == 0 {
			if numerator < 0 {
				return RayCastOutput{}, false
			}
		} else {
			// The segment enters this half-space when denominator < 0 and
			// leaves it when denominator > 0.
			if denominator < 0 && numerator < lower*denominator {
				lower = numerator / denominator
				index = i
			} else if denominator > 0 && numerator < upper*denominator {
				upper = numerator / denominator
			}
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	common.Assert(0 <= lower && lower <= input.MaxFraction, "ray fraction out of range")

	if index >= 0 {
		return RayCastOutput{Fraction: lower, Normal: xf.Q.Apply(p.Normals[index])}, true
	}
	return RayCastOutput{}, false
}

func (p *Polygon) ComputeAABB(xf Transform, childIndex int) AABB {
	lower := xf.Apply(p.Vertices[0])
	upper := lower
	for i := 1; i < p.Count; i++ {
		v := xf.Apply(p.Vertices[i])
		lower = common.MinVec(lower, v)
		upper = common.MaxVec(upper, v)
	}
	r := Vec2{p.R, p.R}
	return AABB{LowerBound: lower.Sub(r), UpperBound: upper.Add(r)}
}

// ComputeMass integrates the polygon as a fan of triangles around the first vertex.
// The skin radius is ignored.
func (p *Polygon) ComputeMass(density float64) MassData {
	common.Assert(p.Count >= 3, "polygon needs three vertices")

	var center Vec2
	area := 0.0
	inertia := 0.0

	s := p.Vertices[0]
	const inv3 = 1.0 / 3.0
	for i := 0; i < p.Count; i++ {
		e1 := p.Vertices[i].Sub(s)
		e2 := p.Vertices[0].Sub(s)
		if i+1 < p.Count {
			e2 = p.Vertices[i+1].Sub(s)
		}

		d := common.Cross(e1, e2)
		triangleArea := 0.5 * d
		area += triangleArea
		center = center.Add(e1.Add(e2).Mul(triangleArea * inv3))

		ex1, ey1 := e1[0], e1[1]
		ex2, ey2 := e2[0], e2[1]
		intx2 := ex1*ex1 + ex2*ex1 + ex2*ex2
		inty2 := ey1*ey1 + ey2*ey1 + ey2*ey2
		inertia += (0.25 * inv3 * d) * (intx2 + inty2)
	}

	var md MassData
	md.Mass = density * area

	common.Assert(area > common.Epsilon, "degenerate polygon")
	center = center.Mul(1.0 / area)
	md.Center = center.Add(s)

	// Inertia about s, shifted to the center of mass then to the body origin.
	md.I = density * inertia
	md.I += md.Mass * (md.Center.Dot(md.Center) - center.Dot(center))
	return md
}

// Validate reports whether the polygon is convex with counter-clockwise winding.
func (p *Polygon) Validate() bool {
	for i := 0; i < p.Count; i++ {
		i2 := i + 1
		if i2 == p.Count {
			i2 = 0
		}
		v := p.Vertices[i]
		e := p.Vertices[i2].Sub(v)

		for j := 0; j < p.Count; j++ {
			if j == i || j == i2 {
				continue
			}
			if common.Cross(e, p.Vertices[j].Sub(v)) < 0 {
				return false
			}
		}
	}
	return true
}
