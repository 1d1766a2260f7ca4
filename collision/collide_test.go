package collision

import (
	"testing"

	"github.com/ByteArena/box2d/v2/common"
)

func TestCollideCircles(t *testing.T) {
	a, b := NewCircle(1), NewCircle(1)
	xfA := common.IdentityTransform()
	xfB := common.NewTransform(Vec2{1.5, 0}, 0)

	var m Manifold
	CollideCircles(&m, a, xfA, b, xfB)
	if m.PointCount != 1 || m.Type != ManifoldCircles {
		t.Fatalf("manifold = %+v", m)
	}

	wm := NewWorldManifold(&m, xfA, a.R, xfB, b.R)
	if !nearVec(wm.Normal, Vec2{1, 0}, tol) {
		t.Errorf("normal = %v", wm.Normal)
	}
	if !near(wm.Separations[0], -0.5, tol) {
		t.Errorf("separation = %v", wm.Separations[0])
	}
	if !nearVec(wm.Points[0], Vec2{0.75, 0}, tol) {
		t.Errorf("point = %v", wm.Points[0])
	}

	CollideCircles(&m, a, xfA, b, common.NewTransform(Vec2{2.5, 0}, 0))
	if m.PointCount != 0 {
		t.Errorf("separated circles produced %d points", m.PointCount)
	}
}

func TestCollideCirclesExactlyTouching(t *testing.T) {
	a, b := NewCircle(1), NewCircle(1)
	xfA := common.IdentityTransform()

	var m Manifold
	CollideCircles(&m, a, xfA, b, common.NewTransform(Vec2{2, 0}, 0))
	if m.PointCount != 0 {
		t.Errorf("circles at exactly r1+r2 produced %d points", m.PointCount)
	}

	xfB := common.NewTransform(Vec2{2 - 1e-9, 0}, 0)
	CollideCircles(&m, a, xfA, b, xfB)
	if m.PointCount != 1 {
		t.Fatalf("circles overlapping by 1e-9 produced %d points", m.PointCount)
	}
	wm := NewWorldManifold(&m, xfA, a.R, xfB, b.R)
	if wm.Separations[0] >= 0 {
		t.Errorf("separation = %v, expected negative", wm.Separations[0])
	}
}

func TestCollidePolygonAndCircle(t *testing.T) {
	box := NewBox(1, 1)
	c := NewCircle(0.5)
	xfA := common.IdentityTransform()

	var m Manifold
	CollidePolygonAndCircle(&m, box, xfA, c, common.NewTransform(Vec2{0, 1.4}, 0))
	if m.PointCount != 1 || m.Type != ManifoldFaceA {
		t.Fatalf("face contact = %+v", m)
	}
	if !nearVec(m.LocalNormal, Vec2{0, 1}, tol) {
		t.Errorf("face normal = %v", m.LocalNormal)
	}

	// Vertex region.
	CollidePolygonAndCircle(&m, box, xfA, c, common.NewTransform(Vec2{1.3, 1.3}, 0))
	if m.PointCount != 1 {
		t.Fatalf("vertex contact = %+v", m)
	}
	s := 1 / 1.4142135623730951
	if !nearVec(m.LocalNormal, Vec2{s, s}, 1e-9) || m.LocalPoint != (Vec2{1, 1}) {
		t.Errorf("vertex normal = %v at %v", m.LocalNormal, m.LocalPoint)
	}

	CollidePolygonAndCircle(&m, box, xfA, c, common.NewTransform(Vec2{1.5, 1.5}, 0))
	if m.PointCount != 0 {
		t.Errorf("separated corner produced %d points", m.PointCount)
	}
}

func TestCollidePolygonsStack(t *testing.T) {
	a, b := NewBox(0.5, 0.5), NewBox(0.5, 0.5)
	xfA := common.IdentityTransform()
	xfB := common.NewTransform(Vec2{0, 0.95}, 0)

	var m Manifold
	CollidePolygons(&m, a, xfA, b, xfB)
	if m.PointCount != 2 {
		t.Fatalf("expected two points, got %+v", m)
	}
	if m.Type != ManifoldFaceA {
		t.Errorf("expected the reference face on A, got %v", m.Type)
	}

	wm := NewWorldManifold(&m, xfA, a.R, xfB, b.R)
	if !nearVec(wm.Normal, Vec2{0, 1}, tol) {
		t.Errorf("normal = %v", wm.Normal)
	}
	for i := 0; i < m.PointCount; i++ {
		// Overlap of the cores plus both skins.
		if !near(wm.Separations[i], -0.05-2*common.PolygonRadius, 1e-9) {
			t.Errorf("separation %d = %v", i, wm.Separations[i])
		}
	}
	if m.Points[0].ID.Key() == m.Points[1].ID.Key() {
		t.Error("contact ids are not distinct")
	}

	// Swapping the shapes mirrors the manifold.
	var swapped Manifold
	CollidePolygons(&swapped, b, xfB, a, xfA)
	wm2 := NewWorldManifold(&swapped, xfB, b.R, xfA, a.R)
	if !nearVec(wm2.Normal, Vec2{0, -1}, tol) {
		t.Errorf("swapped normal = %v", wm2.Normal)
	}
}

func TestCollidePolygonsSeparated(t *testing.T) {
	var m Manifold
	CollidePolygons(&m, NewBox(0.5, 0.5), common.IdentityTransform(), NewBox(0.5, 0.5), common.NewTransform(Vec2{0, 1.1}, 0))
	if m.PointCount != 0 {
		t.Errorf("separated boxes produced %d points", m.PointCount)
	}
}

func TestCollideEdgeAndCircleOneSided(t *testing.T) {
	// Right to left, so the solid side faces up.
	edge := NewOneSidedEdge(Vec2{2, 0}, Vec2{1, 0}, Vec2{-1, 0}, Vec2{-2, 0})
	c := NewCircle(0.5)
	id := common.IdentityTransform()

	var m Manifold
	CollideEdgeAndCircle(&m, edge, id, c, common.NewTransform(Vec2{0, 0.4}, 0))
	if m.PointCount != 1 || m.Type != ManifoldFaceA || !nearVec(m.LocalNormal, Vec2{0, 1}, tol) {
		t.Fatalf("front contact = %+v", m)
	}

	CollideEdgeAndCircle(&m, edge, id, c, common.NewTransform(Vec2{0, -0.4}, 0))
	if m.PointCount != 0 {
		t.Errorf("circle behind a one-sided edge collided")
	}

	two := NewEdge(Vec2{1, 0}, Vec2{-1, 0})
	CollideEdgeAndCircle(&m, two, id, c, common.NewTransform(Vec2{0, -0.4}, 0))
	if m.PointCount != 1 || !nearVec(m.LocalNormal, Vec2{0, -1}, tol) {
		t.Errorf("two-sided back contact = %+v", m)
	}

	// Vertex region of v1 belongs to the previous segment when it is collinear.
	CollideEdgeAndCircle(&m, edge, id, c, common.NewTransform(Vec2{1.2, 0.3}, 0))
	if m.PointCount != 0 {
		t.Errorf("vertex region claimed by the wrong segment: %+v", m)
	}
}

func TestCollideEdgeAndPolygonSmooth(t *testing.T) {
	chain := NewChain([]Vec2{{3, 0}, {1, 0}, {-1, 0}, {-3, 0}}, Vec2{4, 0}, Vec2{-4, 0})
	box := NewBox(0.5, 0.5)

	// The box straddles the joint at x = 1 and sinks slightly.
	xfB := common.NewTransform(Vec2{1, 0.5 - 0.005}, 0)
	id := common.IdentityTransform()

	for child := 0; child < 2; child++ {
		var m Manifold
		CollideEdgeAndPolygon(&m, chain.ChildEdge(child), id, box, xfB)
		if m.PointCount != 2 {
			t.Fatalf("child %d: expected two points, got %+v", child, m)
		}
		wm := NewWorldManifold(&m, id, chain.R, xfB, box.R)
		if !nearVec(wm.Normal, Vec2{0, 1}, 1e-9) {
			t.Errorf("child %d: ghost normal %v", child, wm.Normal)
		}
	}
}

func TestCollideEdgeAndPolygonBehind(t *testing.T) {
	id := common.IdentityTransform()
	box := NewBox(0.5, 0.5)
	xfB := common.NewTransform(Vec2{0, -0.495}, 0)

	var m Manifold
	CollideEdgeAndPolygon(&m, NewOneSidedEdge(Vec2{2, 0}, Vec2{1, 0}, Vec2{-1, 0}, Vec2{-2, 0}), id, box, xfB)
	if m.PointCount != 0 {
		t.Errorf("polygon behind a one-sided edge collided: %+v", m)
	}

	CollideEdgeAndPolygon(&m, NewEdge(Vec2{1, 0}, Vec2{-1, 0}), id, box, xfB)
	if m.PointCount == 0 {
		t.Error("two-sided edge missed the polygon")
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		a, b     ShapeType
		ok, swap bool
	}{
		{ShapeCircle, ShapeCircle, true, false},
		{ShapePolygon, ShapeCircle, true, false},
		{ShapeCircle, ShapePolygon, true, true},
		{ShapeEdge, ShapePolygon, true, false},
		{ShapePolygon, ShapeChain, true, true},
		{ShapeEdge, ShapeEdge, false, false},
		{ShapeChain, ShapeEdge, false, false},
	}
	for _, tt := range tests {
		fn, swap, ok := Lookup(tt.a, tt.b)
		if ok != tt.ok || swap != tt.swap || (ok && fn == nil) {
			t.Errorf("Lookup(%v, %v) = swap %v ok %v", tt.a, tt.b, swap, ok)
		}
	}
}

func TestPointStates(t *testing.T) {
	var m1, m2 Manifold
	m1.PointCount = 2
	m1.Points[0].ID = ContactFeature{IndexA: 1, TypeA: FeatureFace}
	m1.Points[1].ID = ContactFeature{IndexA: 2, TypeA: FeatureFace}
	m2.PointCount = 2
	m2.Points[0].ID = ContactFeature{IndexA: 2, TypeA: FeatureFace}
	m2.Points[1].ID = ContactFeature{IndexA: 3, TypeA: FeatureFace}

	s1, s2 := PointStates(&m1, &m2)
	if s1 != [2]PointState{StateRemove, StatePersist} {
		t.Errorf("old states = %v", s1)
	}
	if s2 != [2]PointState{StatePersist, StateAdd} {
		t.Errorf("new states = %v", s2)
	}
}

func TestDistanceBoxes(t *testing.T) {
	a, b := NewBox(0.5, 0.5), NewBox(0.5, 0.5)
	input := DistanceInput{
		ProxyA:     NewDistanceProxy(a, 0),
		ProxyB:     NewDistanceProxy(b, 0),
		TransformA: common.IdentityTransform(),
		TransformB: common.NewTransform(Vec2{3, 0}, 0),
		UseRadii:   true,
	}

	var cache SimplexCache
	out := Distance(&cache, &input)
	if !near(out.Distance, 2-2*common.PolygonRadius, 1e-9) {
		t.Errorf("distance = %v", out.Distance)
	}
	if !near(out.PointA[0], 0.5+common.PolygonRadius, 1e-9) || !near(out.PointB[0], 2.5-common.PolygonRadius, 1e-9) {
		t.Errorf("witness points %v %v", out.PointA, out.PointB)
	}

	// The warm-started query agrees.
	again := Distance(&cache, &input)
	if !near(again.Distance, out.Distance, 1e-12) {
		t.Errorf("cached distance = %v", again.Distance)
	}

	if TestOverlapShapes(a, 0, b, 0, input.TransformA, input.TransformB) {
		t.Error("distant boxes overlap")
	}
	if !TestOverlapShapes(a, 0, b, 0, input.TransformA, common.NewTransform(Vec2{0.9, 0.2}, 0.3)) {
		t.Error("overlapping boxes do not overlap")
	}
}

func TestTimeOfImpact(t *testing.T) {
	circle := NewCircle(0.5)
	box := NewBox(0.5, 0.5)

	input := TOIInput{
		ProxyA: NewDistanceProxy(circle, 0),
		ProxyB: NewDistanceProxy(box, 0),
		SweepA: common.Sweep{C0: Vec2{-5, 0}, C: Vec2{5, 0}},
		SweepB: common.Sweep{},
		TMax:   1,
	}

	out := TimeOfImpact(&input)
	if out.State != TOITouching {
		t.Fatalf("state = %v", out.State)
	}

	// The target separation of the cores is totalRadius - 3*LinearSlop.
	target := circle.R + box.R - 3*common.LinearSlop
	want := (-0.5 - target + 5) / 10
	if !near(out.T, want, 1e-3) {
		t.Errorf("toi = %v, want about %v", out.T, want)
	}

	input.SweepA = common.Sweep{C0: Vec2{-5, 2}, C: Vec2{5, 2}}
	out = TimeOfImpact(&input)
	if out.State != TOISeparated || out.T != 1 {
		t.Errorf("miss = %+v", out)
	}
}
