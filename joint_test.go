package box2d

import (
	"math"
	"testing"

	"github.com/ByteArena/box2d/v2/collision"
)

// jointRig is a ground body plus two dynamic boxes side by side.
type jointRig struct {
	w            *World
	ground, a, b *Body
}

func newJointRig() *jointRig {
	w := NewWorld(Vec2{0, -10})
	ground := w.Body(w.CreateBody(NewBodyDef()))

	box := func(x float64) *Body {
		bd := NewBodyDef()
		bd.Type = DynamicBody
		bd.Position = Vec2{x, 5}
		b := w.Body(w.CreateBody(bd))
		b.CreateFixtureFromShape(collision.NewBox(0.5, 0.5), 1)
		return b
	}
	return &jointRig{w: w, ground: ground, a: box(-1), b: box(1)}
}

func (r *jointRig) defs() map[JointType]func() JointDef {
	return map[JointType]func() JointDef{
		JointRevolute: func() JointDef {
			d := &RevoluteJointDef{}
			d.Initialize(r.a, r.b, Vec2{0, 5})
			return d
		},
		JointPrismatic: func() JointDef {
			d := NewPrismaticJointDef()
			d.Initialize(r.a, r.b, Vec2{0, 5}, Vec2{1, 0})
			return d
		},
		JointDistance: func() JointDef {
			d := NewDistanceJointDef()
			d.Initialize(r.a, r.b, r.a.Position(), r.b.Position())
			return d
		},
		JointPulley: func() JointDef {
			d := NewPulleyJointDef()
			d.Initialize(r.a, r.b, Vec2{-1, 10}, Vec2{1, 10}, r.a.Position(), r.b.Position(), 1)
			return d
		},
		JointMouse: func() JointDef {
			d := NewMouseJointDef()
			d.BodyA = r.ground.Handle()
			d.BodyB = r.b.Handle()
			d.Target = r.b.Position()
			d.MaxForce = 100
			return d
		},
		JointGear: func() JointDef {
			j1 := &RevoluteJointDef{}
			j1.Initialize(r.ground, r.a, r.a.Position())
			j2 := &RevoluteJointDef{}
			j2.Initialize(r.ground, r.b, r.b.Position())
			d := &GearJointDef{}
			d.Initialize(r.w.Joint(r.w.CreateJoint(j1)), r.w.Joint(r.w.CreateJoint(j2)), 1)
			return d
		},
		JointWheel: func() JointDef {
			d := NewWheelJointDef()
			d.Initialize(r.a, r.b, r.b.Position(), Vec2{0, 1})
			return d
		},
		JointWeld: func() JointDef {
			d := &WeldJointDef{}
			d.Initialize(r.a, r.b, Vec2{0, 5})
			return d
		},
		JointFriction: func() JointDef {
			d := &FrictionJointDef{}
			d.Initialize(r.a, r.b, Vec2{0, 5})
			return d
		},
		JointRope: func() JointDef {
			d := NewRopeJointDef()
			d.BodyA = r.a.Handle()
			d.BodyB = r.b.Handle()
			d.MaxLength = 3
			return d
		},
		JointMotor: func() JointDef {
			d := NewMotorJointDef()
			d.Initialize(r.a, r.b)
			return d
		},
	}
}

func TestJointFactoryCoversEveryType(t *testing.T) {
	defs := newJointRig().defs()
	if len(defs) != int(jointTypeCount) {
		t.Fatalf("%d joint definitions for %d joint types", len(defs), jointTypeCount)
	}

	for kind := range jointTypeCount {
		t.Run(kind.String(), func(t *testing.T) {
			r := newJointRig()
			def := r.defs()[kind]()
			if def.Type() != kind {
				t.Fatalf("definition reports %v", def.Type())
			}

			h := r.w.CreateJoint(def)
			j := r.w.Joint(h)
			if j.Type() != kind {
				t.Fatalf("created a %v joint", j.Type())
			}
			if j.Handle() != h {
				t.Errorf("handle %v, expected %v", j.Handle(), h)
			}

			// Every variant must survive a few steps without blowing up.
			for range 30 {
				r.w.Step(1.0/60.0, DefaultStepConfig())
			}
			for b := range r.w.Bodies() {
				if !isFinite(b.Position()) || !isFinite(j.AnchorA()) || !isFinite(j.AnchorB()) {
					t.Fatalf("non-finite state after stepping: body %v anchors %v %v",
						b.Position(), j.AnchorA(), j.AnchorB())
				}
			}

			before := r.w.JointCount()
			r.w.DestroyJoint(h)
			if r.w.JointCount() != before-1 {
				t.Errorf("joint count %d after destroying one of %d", r.w.JointCount(), before)
			}
		})
	}
}

func isFinite(v Vec2) bool {
	return !math.IsNaN(v[0]) && !math.IsNaN(v[1]) && !math.IsInf(v[0], 0) && !math.IsInf(v[1], 0)
}

func TestJointTypeStrings(t *testing.T) {
	seen := map[string]bool{}
	for kind := range jointTypeCount {
		s := kind.String()
		if seen[s] {
			t.Errorf("duplicate name %q", s)
		}
		seen[s] = true
	}
	if got := jointTypeCount.String(); got != "JointType(11)" {
		t.Errorf("out of range type prints %q", got)
	}
}

func TestJointEdgesTrackBodies(t *testing.T) {
	r := newJointRig()
	d := &WeldJointDef{}
	d.Initialize(r.a, r.b, Vec2{0, 5})
	h := r.w.CreateJoint(d)

	if got := r.a.Joints(); len(got) != 1 || got[0] != h {
		t.Errorf("bodyA joints %v", got)
	}
	if got := r.b.Joints(); len(got) != 1 || got[0] != h {
		t.Errorf("bodyB joints %v", got)
	}

	r.w.DestroyJoint(h)
	if len(r.a.Joints()) != 0 || len(r.b.Joints()) != 0 {
		t.Error("joint edges left behind")
	}
}

func TestPrismaticLimitHolds(t *testing.T) {
	r := newJointRig()
	d := NewPrismaticJointDef()
	d.Initialize(r.ground, r.b, r.b.Position(), Vec2{0, 1})
	d.EnableLimit = true
	d.LowerTranslation = -1
	d.UpperTranslation = 1
	j := r.w.Joint(r.w.CreateJoint(d)).(*PrismaticJoint)

	for range 120 {
		r.w.Step(1.0/60.0, DefaultStepConfig())
	}

	if tr := j.JointTranslation(); math.Abs(tr+1) > 0.02 {
		t.Errorf("slider should rest on the lower limit, translation %v", tr)
	}
	if x := r.b.Position()[0]; math.Abs(x-1) > 0.01 {
		t.Errorf("slider left its axis: x=%v", x)
	}
}

func TestDistanceJointKeepsLength(t *testing.T) {
	r := newJointRig()
	d := NewDistanceJointDef()
	d.Initialize(r.ground, r.b, Vec2{1, 8}, r.b.Position())
	j := r.w.Joint(r.w.CreateJoint(d))

	for range 120 {
		r.w.Step(1.0/60.0, DefaultStepConfig())
	}

	length := j.AnchorA().Sub(j.AnchorB()).Len()
	if math.Abs(length-3) > 0.02 {
		t.Errorf("rod length %v, expected 3", length)
	}
}

func TestRopeJointLimitsLength(t *testing.T) {
	r := newJointRig()
	d := NewRopeJointDef()
	d.BodyA = r.ground.Handle()
	d.BodyB = r.b.Handle()
	d.LocalAnchorA = Vec2{1, 8}
	d.LocalAnchorB = Vec2{}
	d.MaxLength = 4
	j := r.w.Joint(r.w.CreateJoint(d)).(*RopeJoint)

	for range 120 {
		r.w.Step(1.0/60.0, DefaultStepConfig())
	}

	length := j.AnchorA().Sub(j.AnchorB()).Len()
	if length > 4+0.02 {
		t.Errorf("rope stretched to %v", length)
	}
	if length < 4-0.05 {
		t.Errorf("rope never went taut: length %v", length)
	}
}

func TestWeldJointHoldsPose(t *testing.T) {
	r := newJointRig()
	d := &WeldJointDef{}
	d.Initialize(r.ground, r.b, Vec2{0, 5})
	r.w.CreateJoint(d)

	for range 120 {
		r.w.Step(1.0/60.0, DefaultStepConfig())
	}

	if p := r.b.Position(); p.Sub(Vec2{1, 5}).Len() > 0.02 {
		t.Errorf("welded body sagged to %v", p)
	}
	if a := r.b.Angle(); math.Abs(a) > 0.02 {
		t.Errorf("welded body rotated to %v", a)
	}
}

func TestMouseJointReachesTarget(t *testing.T) {
	r := newJointRig()
	r.w.SetGravity(Vec2{})

	d := NewMouseJointDef()
	d.BodyA = r.ground.Handle()
	d.BodyB = r.b.Handle()
	d.Target = r.b.Position()
	d.MaxForce = 1000 * r.b.Mass()
	j := r.w.Joint(r.w.CreateJoint(d)).(*MouseJoint)
	j.SetTarget(Vec2{4, 7})

	for range 180 {
		r.w.Step(1.0/60.0, DefaultStepConfig())
	}

	if dist := j.AnchorB().Sub(Vec2{4, 7}).Len(); dist > 0.05 {
		t.Errorf("dragged point is %v from the target", dist)
	}
}

func TestGearJointCouplesRotation(t *testing.T) {
	r := newJointRig()
	r.w.SetGravity(Vec2{})

	j1 := &RevoluteJointDef{}
	j1.Initialize(r.ground, r.a, r.a.Position())
	j2 := &RevoluteJointDef{}
	j2.Initialize(r.ground, r.b, r.b.Position())
	rev1 := r.w.Joint(r.w.CreateJoint(j1))
	rev2 := r.w.Joint(r.w.CreateJoint(j2))

	g := &GearJointDef{}
	g.Initialize(rev1, rev2, 2)
	r.w.CreateJoint(g)

	r.a.SetAngularVelocity(1)
	for range 60 {
		r.w.Step(1.0/60.0, DefaultStepConfig())
	}

	// angleA + ratio * angleB is constant.
	if c := r.a.Angle() + 2*r.b.Angle(); math.Abs(c) > 0.01 {
		t.Errorf("gear constraint drifted to %v", c)
	}
	if r.a.Angle() == 0 {
		t.Error("gear train did not move")
	}
}

func TestSoftness(t *testing.T) {
	gamma, bias := softness(2, 0, 0.7, 1, 1.0/60.0)
	if gamma != 0 || bias != 0 {
		t.Errorf("zero frequency gives gamma %v bias %v", gamma, bias)
	}

	gamma, bias = softness(2, 5, 0.7, 0.1, 1.0/60.0)
	if gamma <= 0 || bias <= 0 {
		t.Errorf("spring gives gamma %v bias %v", gamma, bias)
	}
}

func TestJointsLiveInTheirVariantPool(t *testing.T) {
	r := newJointRig()
	wd := &WeldJointDef{}
	wd.Initialize(r.a, r.b, Vec2{0, 5})
	weld := r.w.CreateJoint(wd)
	rd := &RevoluteJointDef{}
	rd.Initialize(r.ground, r.a, r.a.Position())
	revolute := r.w.CreateJoint(rd)

	if weld.Type() != JointWeld || revolute.Type() != JointRevolute {
		t.Fatalf("handle types %v and %v", weld.Type(), revolute.Type())
	}
	if got := r.w.Joint(weld).(*WeldJoint); got != r.w.joints.weld.MustGet(weld.slot) {
		t.Error("weld handle does not resolve to its pool slot")
	}
	if got := r.w.Joint(revolute).(*RevoluteJoint); got != r.w.joints.revolute.MustGet(revolute.slot) {
		t.Error("revolute handle does not resolve to its pool slot")
	}
	if r.w.joints.weld.Len() != 1 || r.w.joints.revolute.Len() != 1 || r.w.JointCount() != 2 {
		t.Errorf("pools hold %d welds and %d revolutes", r.w.joints.weld.Len(), r.w.joints.revolute.Len())
	}

	r.w.DestroyJoint(weld)
	if _, ok := r.w.LookupJoint(weld); ok {
		t.Error("destroyed joint still resolves")
	}

	again := r.w.CreateJoint(wd)
	if again.slot.Index != weld.slot.Index {
		t.Errorf("weld slot %d not reused, got %d", weld.slot.Index, again.slot.Index)
	}
	if _, ok := r.w.LookupJoint(weld); ok {
		t.Error("stale joint handle resolves after slot reuse")
	}
	if j, ok := r.w.LookupJoint(again); !ok || j.Handle() != again {
		t.Errorf("new weld does not resolve: %v %v", j, ok)
	}
	if _, ok := r.w.LookupJoint(JointHandle{}); ok {
		t.Error("nil joint handle resolves")
	}

	n := 0
	for j := range r.w.Joints() {
		if _, ok := r.w.LookupJoint(j.Handle()); !ok {
			t.Errorf("joint %v yielded but does not resolve", j.Handle())
		}
		n++
	}
	if n != 2 {
		t.Errorf("Joints yielded %d joints", n)
	}
}
