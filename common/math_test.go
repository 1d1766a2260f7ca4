package common

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTransformRoundTrip(t *testing.T) {
	xf := NewTransform(Vec2{1, -2}, 0.75)
	p := Vec2{3.5, 0.25}
	q := xf.ApplyT(xf.Apply(p))
	if !near(p[0], q[0]) || !near(p[1], q[1]) {
		t.Fatalf("expected %v, got %v", p, q)
	}

	a := NewTransform(Vec2{0.5, 1}, -0.3)
	rel := MulTTransform(a, xf)
	back := MulTransform(a, rel)
	if !near(back.P[0], xf.P[0]) || !near(back.P[1], xf.P[1]) || !near(back.Q.Angle(), xf.Q.Angle()) {
		t.Errorf("MulTransform(a, MulTTransform(a, b)) = %+v, want %+v", back, xf)
	}
}

func TestCrossIdentities(t *testing.T) {
	v := Vec2{2, 3}
	w := Vec2{-1, 4}
	if !near(Skew(v).Dot(w), Cross(v, w)) {
		t.Errorf("skew dot = %f, cross = %f", Skew(v).Dot(w), Cross(v, w))
	}
	// cross(s, v) is the perpendicular of v scaled by s, so cross(v, cross(s, v)) = s |v|^2.
	if got := Cross(v, CrossSV(2, v)); !near(got, 2*LengthSquared(v)) {
		t.Errorf("cross(v, cross(2, v)) = %f", got)
	}
	if got := CrossVS(v, 1).Dot(v); !near(got, 0) {
		t.Errorf("cross(v, 1) not perpendicular to v: %f", got)
	}
}

func TestNormalizeShortVector(t *testing.T) {
	v, l := Normalize(Vec2{0, 0})
	if l != 0 || v != (Vec2{0, 0}) {
		t.Errorf("zero vector normalized to %v (%f)", v, l)
	}
	v, l = Normalize(Vec2{3, 4})
	if !near(l, 5) || !near(v.Len(), 1) {
		t.Errorf("got %v len %f", v, l)
	}
}

func TestSolvers(t *testing.T) {
	a := Mat22{4, 1, 2, 3} // columns (4,1) and (2,3)
	x := Solve22(a, Vec2{10, 7})
	if b := a.Mul2x1(x); !near(b[0], 10) || !near(b[1], 7) {
		t.Errorf("Solve22 residual: %v", b)
	}
	if got := Solve22(Mat22{}, Vec2{1, 1}); got != (Vec2{}) {
		t.Errorf("singular solve = %v, want zero", got)
	}

	m := Mat33{4, 1, 0, 1, 3, 1, 0, 1, 2}
	y := Solve33(m, Vec3{1, 2, 3})
	if b := m.Mul3x1(y); !near(b[0], 1) || !near(b[1], 2) || !near(b[2], 3) {
		t.Errorf("Solve33 residual: %v", b)
	}
	z := Solve33Upper2(m, Vec2{1, 2})
	if !near(4*z[0]+1*z[1], 1) || !near(1*z[0]+3*z[1], 2) {
		t.Errorf("Solve33Upper2 = %v", z)
	}
}

func TestSweep(t *testing.T) {
	s := Sweep{C0: Vec2{0, 0}, C: Vec2{10, 0}, A0: 0, A: 1}
	xf := s.Transform(0.5)
	if !near(xf.P[0], 5) || !near(xf.Q.Angle(), 0.5) {
		t.Errorf("mid transform = %+v", xf)
	}
	s.Advance(0.5)
	if !near(s.C0[0], 5) || !near(s.Alpha0, 0.5) {
		t.Errorf("advanced sweep = %+v", s)
	}

	s = Sweep{A0: 7, A: 7.5}
	s.Normalize()
	if s.A0 < 0 || s.A0 > 2*Pi || !near(s.A-s.A0, 0.5) {
		t.Errorf("normalized sweep = %+v", s)
	}
}

func TestPowerOfTwo(t *testing.T) {
	if NextPowerOfTwo(17) != 32 || NextPowerOfTwo(16) != 32 {
		t.Errorf("NextPowerOfTwo")
	}
	if !IsPowerOfTwo(64) || IsPowerOfTwo(48) || IsPowerOfTwo(0) {
		t.Errorf("IsPowerOfTwo")
	}
}

func TestAssertPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Assert(false, "boom")
}
