package collision

import (
	"fmt"

	"github.com/ByteArena/box2d/v2/common"
)

// DistanceProxy is a convex vertex cloud with a radius, as seen by GJK. Circles,
// edges and chain segments keep their vertices inline, so a proxy is a plain
// value that can live on the stack.
type DistanceProxy struct {
	buffer [2]Vec2

	// shared holds the polygon vertices; nil when buffer is used.
	shared []Vec2
	count  int
	Radius float64
}

// NewDistanceProxy wraps child index of shape. The proxy keeps a reference to
// polygon vertices, so the shape must outlive it.
func NewDistanceProxy(shape Shape, index int) DistanceProxy {
	var p DistanceProxy
	p.Set(shape, index)
	return p
}

func (p *DistanceProxy) Set(shape Shape, index int) {
	p.shared = nil
	switch s := shape.(type) {
	case *Circle:
		p.buffer[0] = s.P
		p.count = 1
		p.Radius = s.R

	case *Polygon:
		p.shared = s.Vertices[:s.Count]
		p.count = s.Count
		p.Radius = s.R

	case *Chain:
		common.Assert(0 <= index && index < len(s.Vertices), "chain child out of range")
		p.buffer[0] = s.Vertices[index]
		if index+1 < len(s.Vertices) {
			p.buffer[1] = s.Vertices[index+1]
		} else {
			p.buffer[1] = s.Vertices[0]
		}
		p.count = 2
		p.Radius = s.R

	case *Edge:
		p.buffer[0] = s.Vertex1
		p.buffer[1] = s.Vertex2
		p.count = 2
		p.Radius = s.R

	default:
		panic(fmt.Sprintf("box2d: unknown shape %T", shape))
	}
}

// Count is the number of vertices.
func (p *DistanceProxy) Count() int {
	return p.count
}

// Support returns the index of the vertex farthest along d.
func (p *DistanceProxy) Support(d Vec2) int {
	bestIndex := 0
	bestValue := p.Vertex(0).Dot(d)
	for i := 1; i < p.count; i++ {
		if value := p.Vertex(i).Dot(d); value > bestValue {
			bestIndex = i
			bestValue = value
		}
	}
	return bestIndex
}

func (p *DistanceProxy) Vertex(index int) Vec2 {
	if p.shared != nil {
		return p.shared[index]
	}
	return p.buffer[index]
}

// SimplexCache warm-starts GJK. Set Count to zero on the first call.
type SimplexCache struct {
	Metric float64
	Count  int
	IndexA [3]uint8
	IndexB [3]uint8
}

// DistanceInput is the input of Distance. With UseRadii the proxies are treated
// as rounded shapes.
type DistanceInput struct {
	ProxyA     DistanceProxy
	ProxyB     DistanceProxy
	TransformA Transform
	TransformB Transform
	UseRadii   bool
}

// DistanceOutput holds the closest points and their distance.
type DistanceOutput struct {
	PointA     Vec2
	PointB     Vec2
	Distance   float64
	Iterations int
}

type simplexVertex struct {
	wA     Vec2 // support point in proxyA
	wB     Vec2 // support point in proxyB
	w      Vec2 // wB - wA
	a      float64
	indexA int
	indexB int
}

type simplex struct {
	v     [3]simplexVertex
	count int
}

func (s *simplex) readCache(cache *SimplexCache, proxyA *DistanceProxy, xfA Transform, proxyB *DistanceProxy, xfB Transform) {
	common.Assert(cache.Count <= 3, "simplex cache overflow")

	s.count = cache.Count
	for i := 0; i < s.count; i++ {
		v := &s.v[i]
		v.indexA = int(cache.IndexA[i])
		v.indexB = int(cache.IndexB[i])
		v.wA = xfA.Apply(proxyA.Vertex(v.indexA))
		v.wB = xfB.Apply(proxyB.Vertex(v.indexB))
		v.w = v.wB.Sub(v.wA)
		v.a = 0
	}

	// Flush the simplex when its metric changed substantially.
	if s.count > 1 {
		metric1 := cache.Metric
		metric2 := s.metric()
		if metric2 < 0.5*metric1 || 2.0*metric1 < metric2 || metric2 < common.Epsilon {
			s.count = 0
		}
	}

	if s.count == 0 {
		v := &s.v[0]
		v.indexA = 0
		v.indexB = 0
		v.wA = xfA.Apply(proxyA.Vertex(0))
		v.wB = xfB.Apply(proxyB.Vertex(0))
		v.w = v.wB.Sub(v.wA)
		v.a = 1
		s.count = 1
	}
}

func (s *simplex) writeCache(cache *SimplexCache) {
	cache.Metric = s.metric()
	cache.Count = s.count
	for i := 0; i < s.count; i++ {
		cache.IndexA[i] = uint8(s.v[i].indexA)
		cache.IndexB[i] = uint8(s.v[i].indexB)
	}
}

func (s *simplex) searchDirection() Vec2 {
	switch s.count {
	case 1:
		return s.v[0].w.Mul(-1)
	case 2:
		e12 := s.v[1].w.Sub(s.v[0].w)
		if common.Cross(e12, s.v[0].w.Mul(-1)) > 0 {
			// Origin is left of e12.
			return common.CrossSV(1.0, e12)
		}
		return common.CrossVS(e12, 1.0)
	}
	panic("box2d: bad simplex count")
}

func (s *simplex) witnessPoints() (Vec2, Vec2) {
	v1, v2, v3 := &s.v[0], &s.v[1], &s.v[2]
	switch s.count {
	case 1:
		return v1.wA, v1.wB
	case 2:
		return v1.wA.Mul(v1.a).Add(v2.wA.Mul(v2.a)),
			v1.wB.Mul(v1.a).Add(v2.wB.Mul(v2.a))
	case 3:
		p := v1.wA.Mul(v1.a).Add(v2.wA.Mul(v2.a)).Add(v3.wA.Mul(v3.a))
		return p, p
	}
	panic("box2d: bad simplex count")
}

func (s *simplex) metric() float64 {
	switch s.count {
	case 1:
		return 0
	case 2:
		return common.Distance(s.v[0].w, s.v[1].w)
	case 3:
		return common.Cross(s.v[1].w.Sub(s.v[0].w), s.v[2].w.Sub(s.v[0].w))
	}
	panic("box2d: bad simplex count")
}

// solve2 finds the closest point on segment w1-w2 to the origin using barycentric
// coordinates.
func (s *simplex) solve2() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	e12 := w2.Sub(w1)

	// w1 region
	d12_2 := -w1.Dot(e12)
	if d12_2 <= 0 {
		s.v[0].a = 1
		s.count = 1
		return
	}

	// w2 region
	d12_1 := w2.Dot(e12)
	if d12_1 <= 0 {
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]
		return
	}

	// e12 region
	inv := 1.0 / (d12_1 + d12_2)
	s.v[0].a = d12_1 * inv
	s.v[1].a = d12_2 * inv
	s.count = 2
}

// solve3 finds the closest point on triangle w1-w2-w3 to the origin, checking
// the vertex, edge and interior regions in turn.
func (s *simplex) solve3() {
	w1 := s.v[0].w
	w2 := s.v[1].w
	w3 := s.v[2].w

	e12 := w2.Sub(w1)
	d12_1 := w2.Dot(e12)
	d12_2 := -w1.Dot(e12)

	e13 := w3.Sub(w1)
	d13_1 := w3.Dot(e13)
	d13_2 := -w1.Dot(e13)

	e23 := w3.Sub(w2)
	d23_1 := w3.Dot(e23)
	d23_2 := -w2.Dot(e23)

	n123 := common.Cross(e12, e13)
	d123_1 := n123 * common.Cross(w2, w3)
	d123_2 := n123 * common.Cross(w3, w1)
	d123_3 := n123 * common.Cross(w1, w2)

	switch {
	case d12_2 <= 0 && d13_2 <= 0:
		s.v[0].a = 1
		s.count = 1

	case d12_1 > 0 && d12_2 > 0 && d123_3 <= 0:
		inv := 1.0 / (d12_1 + d12_2)
		s.v[0].a = d12_1 * inv
		s.v[1].a = d12_2 * inv
		s.count = 2

	case d13_1 > 0 && d13_2 > 0 && d123_2 <= 0:
		inv := 1.0 / (d13_1 + d13_2)
		s.v[0].a = d13_1 * inv
		s.v[2].a = d13_2 * inv
		s.count = 2
		s.v[1] = s.v[2]

	case d12_1 <= 0 && d23_2 <= 0:
		s.v[1].a = 1
		s.count = 1
		s.v[0] = s.v[1]

	case d13_1 <= 0 && d23_1 <= 0:
		s.v[2].a = 1
		s.count = 1
		s.v[0] = s.v[2]

	case d23_1 > 0 && d23_2 > 0 && d123_1 <= 0:
		inv := 1.0 / (d23_1 + d23_2)
		s.v[1].a = d23_1 * inv
		s.v[2].a = d23_2 * inv
		s.count = 2
		s.v[0] = s.v[2]

	default:
		inv := 1.0 / (d123_1 + d123_2 + d123_3)
		s.v[0].a = d123_1 * inv
		s.v[1].a = d123_2 * inv
		s.v[2].a = d123_3 * inv
		s.count = 3
	}
}

const gjkMaxIterations = 20

// Distance computes the closest points between two convex proxies with GJK. The
// cache is read to warm-start and updated on return.
func Distance(cache *SimplexCache, input *DistanceInput) DistanceOutput {
	proxyA := &input.ProxyA
	proxyB := &input.ProxyB
	xfA := input.TransformA
	xfB := input.TransformB

	var s simplex
	s.readCache(cache, proxyA, xfA, proxyB, xfB)

	// The last simplex, used to detect duplicates and prevent cycling.
	var saveA, saveB [3]int

	iter := 0
	for iter < gjkMaxIterations {
		saveCount := s.count
		for i := 0; i < saveCount; i++ {
			saveA[i] = s.v[i].indexA
			saveB[i] = s.v[i].indexB
		}

		switch s.count {
		case 2:
			s.solve2()
		case 3:
			s.solve3()
		}

		// The origin is inside the triangle.
		if s.count == 3 {
			break
		}

		d := s.searchDirection()

		// The origin is probably on the segment or triangle; the shapes overlap
		// or nearly so, and zero cannot be returned safely.
		if d.Dot(d) < common.Epsilon*common.Epsilon {
			break
		}

		vertex := &s.v[s.count]
		vertex.indexA = proxyA.Support(xfA.Q.ApplyT(d.Mul(-1)))
		vertex.wA = xfA.Apply(proxyA.Vertex(vertex.indexA))
		vertex.indexB = proxyB.Support(xfB.Q.ApplyT(d))
		vertex.wB = xfB.Apply(proxyB.Vertex(vertex.indexB))
		vertex.w = vertex.wB.Sub(vertex.wA)

		// Iteration count is the number of support point calls.
		iter++

		// A repeated support point is the main termination criterion.
		duplicate := false
		for i := 0; i < saveCount; i++ {
			if vertex.indexA == saveA[i] && vertex.indexB == saveB[i] {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		s.count++
	}

	var out DistanceOutput
	out.PointA, out.PointB = s.witnessPoints()
	out.Distance = common.Distance(out.PointA, out.PointB)
	out.Iterations = iter

	s.writeCache(cache)

	if input.UseRadii {
		if out.Distance < common.Epsilon {
			// Too close to compute a normal.
			p := out.PointA.Add(out.PointB).Mul(0.5)
			out.PointA = p
			out.PointB = p
			out.Distance = 0
		} else {
			// Move the witness points to the outer surfaces.
			rA := proxyA.Radius
			rB := proxyB.Radius
			out.Distance = max(0, out.Distance-rA-rB)
			normal, _ := common.Normalize(out.PointB.Sub(out.PointA))
			out.PointA = out.PointA.Add(normal.Mul(rA))
			out.PointB = out.PointB.Sub(normal.Mul(rB))
		}
	}
	return out
}

// TestOverlapShapes reports whether two shape children overlap, skins included.
func TestOverlapShapes(shapeA Shape, indexA int, shapeB Shape, indexB int, xfA, xfB Transform) bool {
	input := DistanceInput{
		ProxyA:     NewDistanceProxy(shapeA, indexA),
		ProxyB:     NewDistanceProxy(shapeB, indexB),
		TransformA: xfA,
		TransformB: xfB,
		UseRadii:   true,
	}

	var cache SimplexCache
	out := Distance(&cache, &input)
	return out.Distance < 10.0*common.Epsilon
}
