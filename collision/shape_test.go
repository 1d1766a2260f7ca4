package collision

import (
	"math"
	"testing"

	"github.com/ByteArena/box2d/v2/common"
)

const tol = 1e-9

func near(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func nearVec(a, b Vec2, eps float64) bool {
	return near(a[0], b[0], eps) && near(a[1], b[1], eps)
}

func TestPolygonSetComputesHull(t *testing.T) {
	points := []Vec2{
		{0, 0}, {1, 0}, {1, 1}, {0, 1},
		{0.5, 0.5}, // interior
		{1, 1e-4},  // welded onto (1, 0)
		{0.5, 0},   // collinear
	}

	p := NewPolygon()
	if !p.Set(points) {
		t.Fatal("Set reported a degenerate hull")
	}
	if p.Count != 4 {
		t.Fatalf("expected 4 hull vertices, got %d: %v", p.Count, p.Vertices[:p.Count])
	}
	if !p.Validate() {
		t.Error("hull is not convex and counter-clockwise")
	}
	if !nearVec(p.Centroid, Vec2{0.5, 0.5}, tol) {
		t.Errorf("centroid = %v", p.Centroid)
	}
	for i := 0; i < p.Count; i++ {
		if !near(p.Normals[i].Len(), 1, tol) {
			t.Errorf("normal %d not unit: %v", i, p.Normals[i])
		}
	}

	md := p.ComputeMass(1)
	if !near(md.Mass, 1, tol) {
		t.Errorf("mass = %v, want 1", md.Mass)
	}
	if !nearVec(md.Center, Vec2{0.5, 0.5}, tol) {
		t.Errorf("center = %v", md.Center)
	}
	// Square about its center is 1/6; shifted to the origin adds |c|^2.
	if !near(md.I, 1.0/6.0+0.5, 1e-9) {
		t.Errorf("inertia = %v", md.I)
	}
}

func TestPolygonSetDegenerate(t *testing.T) {
	p := NewPolygon()
	if p.Set([]Vec2{{0, 0}, {1, 0}, {2, 0}}) {
		t.Fatal("collinear points produced a polygon")
	}
	if p.Count != 4 {
		t.Errorf("degenerate polygon should fall back to a box, got %d vertices", p.Count)
	}
}

func TestBoxMass(t *testing.T) {
	md := NewBox(1, 0.5).ComputeMass(2)
	if !near(md.Mass, 4, tol) {
		t.Errorf("mass = %v, want 4", md.Mass)
	}
	if !nearVec(md.Center, Vec2{}, tol) {
		t.Errorf("center = %v", md.Center)
	}
	if !near(md.I, 4*(4+1)/12.0, tol) {
		t.Errorf("inertia = %v", md.I)
	}
}

func TestOrientedBox(t *testing.T) {
	p := NewPolygon()
	p.SetAsOrientedBox(1, 0.5, Vec2{2, 3}, common.Pi/2)
	md := p.ComputeMass(1)
	if !nearVec(md.Center, Vec2{2, 3}, 1e-9) {
		t.Errorf("center = %v", md.Center)
	}
	aabb := p.ComputeAABB(common.IdentityTransform(), 0)
	want := AABB{LowerBound: Vec2{1.5 - p.R, 2 - p.R}, UpperBound: Vec2{2.5 + p.R, 4 + p.R}}
	if !nearVec(aabb.LowerBound, want.LowerBound, 1e-9) || !nearVec(aabb.UpperBound, want.UpperBound, 1e-9) {
		t.Errorf("aabb = %+v, want %+v", aabb, want)
	}
}

func TestCircleMass(t *testing.T) {
	c := &Circle{P: Vec2{1, 0}, R: 0.5}
	md := c.ComputeMass(1)
	m := common.Pi * 0.25
	if !near(md.Mass, m, tol) {
		t.Errorf("mass = %v", md.Mass)
	}
	if !near(md.I, m*(0.5*0.25+1), tol) {
		t.Errorf("inertia = %v", md.I)
	}
}

func TestTestPoint(t *testing.T) {
	xf := common.NewTransform(Vec2{5, 0}, 0)
	box := NewBox(1, 1)
	if !box.TestPoint(xf, Vec2{5.5, 0.5}) {
		t.Error("point inside box not detected")
	}
	if box.TestPoint(xf, Vec2{3.5, 0}) {
		t.Error("point outside box detected")
	}

	c := NewCircle(1)
	if !c.TestPoint(xf, Vec2{5, 0.9}) || c.TestPoint(xf, Vec2{5, 1.1}) {
		t.Error("circle TestPoint")
	}
	if NewEdge(Vec2{0, 0}, Vec2{1, 0}).TestPoint(common.IdentityTransform(), Vec2{0.5, 0}) {
		t.Error("edges have no interior")
	}
}

func TestAABBRayCast(t *testing.T) {
	bb := AABB{LowerBound: Vec2{-1, -1}, UpperBound: Vec2{1, 1}}

	out, ok := bb.RayCast(RayCastInput{P1: Vec2{-3, 0}, P2: Vec2{3, 0}, MaxFraction: 1})
	if !ok {
		t.Fatal("ray missed the box")
	}
	if !near(out.Fraction, 1.0/3.0, tol) || out.Normal != (Vec2{-1, 0}) {
		t.Errorf("got %+v", out)
	}

	if _, ok := bb.RayCast(RayCastInput{P1: Vec2{-3, 2}, P2: Vec2{3, 2}, MaxFraction: 1}); ok {
		t.Error("ray above the box hit")
	}
	if _, ok := bb.RayCast(RayCastInput{P1: Vec2{-3, 0}, P2: Vec2{3, 0}, MaxFraction: 0.2}); ok {
		t.Error("hit beyond max fraction")
	}
}

func TestShapeRayCasts(t *testing.T) {
	xf := common.NewTransform(Vec2{5, 0}, 0)
	in := RayCastInput{P1: Vec2{0, 0}, P2: Vec2{10, 0}, MaxFraction: 1}

	out, ok := NewBox(1, 1).RayCast(in, xf, 0)
	if !ok || !near(out.Fraction, 0.4, tol) || !nearVec(out.Normal, Vec2{-1, 0}, tol) {
		t.Errorf("polygon ray cast = %+v, %v", out, ok)
	}

	circleXF := common.NewTransform(Vec2{0, 5}, 0)
	out, ok = NewCircle(1).RayCast(RayCastInput{P1: Vec2{0, 0}, P2: Vec2{0, 10}, MaxFraction: 1}, circleXF, 0)
	if !ok || !near(out.Fraction, 0.4, tol) || !nearVec(out.Normal, Vec2{0, -1}, tol) {
		t.Errorf("circle ray cast = %+v, %v", out, ok)
	}
}

func TestEdgeRayCastSidedness(t *testing.T) {
	id := common.IdentityTransform()
	up := RayCastInput{P1: Vec2{0, -1}, P2: Vec2{0, 1}, MaxFraction: 1}
	down := RayCastInput{P1: Vec2{0, 1}, P2: Vec2{0, -1}, MaxFraction: 1}

	// The solid side of a one-sided edge is to the right of v1->v2, here below.
	oneSided := NewOneSidedEdge(Vec2{-2, 0}, Vec2{-1, 0}, Vec2{1, 0}, Vec2{2, 0})
	out, ok := oneSided.RayCast(up, id, 0)
	if !ok || !near(out.Fraction, 0.5, tol) || !nearVec(out.Normal, Vec2{0, -1}, tol) {
		t.Errorf("front face ray cast = %+v, %v", out, ok)
	}
	if _, ok := oneSided.RayCast(down, id, 0); ok {
		t.Error("one-sided edge hit from behind")
	}

	twoSided := NewEdge(Vec2{-1, 0}, Vec2{1, 0})
	out, ok = twoSided.RayCast(down, id, 0)
	if !ok || !nearVec(out.Normal, Vec2{0, 1}, tol) {
		t.Errorf("two-sided back face ray cast = %+v, %v", out, ok)
	}
}

func TestChainChildren(t *testing.T) {
	loop := NewLoop([]Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}})
	if loop.ChildCount() != 4 {
		t.Fatalf("loop children = %d", loop.ChildCount())
	}

	e := loop.ChildEdge(0)
	if !e.OneSided {
		t.Error("chain child edges are one-sided")
	}
	if e.Vertex0 != (Vec2{0, 1}) || e.Vertex1 != (Vec2{0, 0}) || e.Vertex2 != (Vec2{1, 0}) || e.Vertex3 != (Vec2{1, 1}) {
		t.Errorf("ghost vertices of first child: %+v", e)
	}

	last := loop.ChildEdge(3)
	if last.Vertex2 != (Vec2{0, 0}) || last.Vertex3 != (Vec2{1, 0}) {
		t.Errorf("loop does not wrap: %+v", last)
	}

	chain := NewChain([]Vec2{{0, 0}, {1, 0}, {2, 0}}, Vec2{-1, 0}, Vec2{3, 0})
	if chain.ChildCount() != 2 {
		t.Fatalf("chain children = %d", chain.ChildCount())
	}
	if chain.ChildEdge(0).Vertex0 != (Vec2{-1, 0}) || chain.ChildEdge(1).Vertex3 != (Vec2{3, 0}) {
		t.Error("open chain ghost vertices not used")
	}
	if md := chain.ComputeMass(10); md.Mass != 0 {
		t.Errorf("chain mass = %v", md.Mass)
	}
}

func TestMinExtent(t *testing.T) {
	if got := MinExtent(NewBox(2, 0.5)); !near(got, 0.5+common.PolygonRadius, tol) {
		t.Errorf("box extent = %v", got)
	}
	if got := MinExtent(NewCircle(0.3)); got != 0.3 {
		t.Errorf("circle extent = %v", got)
	}
}
