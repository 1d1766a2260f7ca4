package box2d_test

import (
	"math"
	"strings"
	"testing"

	"github.com/ByteArena/box2d/v2"
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
	"github.com/ByteArena/box2d/v2/internal/scenes"
)

const timeStep = 1.0 / 60.0

func newGroundWorld(t *testing.T) (*box2d.World, *box2d.Body) {
	t.Helper()
	w := box2d.NewWorld(box2d.Vec2{0, -10})
	ground := w.Body(w.CreateBody(box2d.NewBodyDef()))
	ground.CreateFixtureFromShape(collision.NewEdge(box2d.Vec2{-40, 0}, box2d.Vec2{40, 0}), 0)
	return w, ground
}

func addBox(w *box2d.World, position box2d.Vec2, hx, hy float64) *box2d.Body {
	bd := box2d.NewBodyDef()
	bd.Type = box2d.DynamicBody
	bd.Position = position
	b := w.Body(w.CreateBody(bd))
	fd := box2d.NewFixtureDef(collision.NewBox(hx, hy))
	fd.Density = 1
	fd.Friction = 0.6
	b.CreateFixture(fd)
	return b
}

func stepN(w *box2d.World, n int, cfg box2d.StepConfig) {
	for range n {
		w.Step(timeStep, cfg)
	}
}

func expectPanic(t *testing.T, contains string, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic containing %q", contains)
		}
		if msg, ok := r.(string); ok && !strings.Contains(msg, contains) {
			t.Fatalf("panic %q does not contain %q", msg, contains)
		}
	}()
	f()
}

func TestStaticBodiesDoNotMove(t *testing.T) {
	w, ground := newGroundWorld(t)

	bd := box2d.NewBodyDef()
	bd.Position = box2d.Vec2{3, 4}
	bd.Angle = 0.3
	wall := w.Body(w.CreateBody(bd))
	wall.CreateFixtureFromShape(collision.NewBox(1, 1), 5)

	addBox(w, box2d.Vec2{3, 8}, 0.5, 0.5)

	stepN(w, 120, box2d.DefaultStepConfig())

	if got := wall.Position(); got != (box2d.Vec2{3, 4}) {
		t.Errorf("static body moved to %v", got)
	}
	if got := wall.Angle(); got != 0.3 {
		t.Errorf("static body rotated to %v", got)
	}
	if got := ground.Position(); got != (box2d.Vec2{}) {
		t.Errorf("ground moved to %v", got)
	}
	if wall.LinearVelocity() != (box2d.Vec2{}) {
		t.Errorf("static body has velocity %v", wall.LinearVelocity())
	}
}

func TestBoxComesToRestAndSleeps(t *testing.T) {
	w, _ := newGroundWorld(t)
	box := addBox(w, box2d.Vec2{0, 4}, 0.5, 0.5)

	stepN(w, 120, box2d.DefaultStepConfig())

	p := box.Position()
	if math.Abs(p[1]-0.5) > 0.05 {
		t.Errorf("box rests at y=%v, expected about 0.5", p[1])
	}
	if math.Abs(p[0]) > 0.01 {
		t.Errorf("box drifted sideways to x=%v", p[0])
	}
	if math.Abs(box.Angle()) > 0.01 {
		t.Errorf("box tipped to angle %v", box.Angle())
	}

	stepN(w, 120, box2d.DefaultStepConfig())
	if box.IsAwake() {
		t.Errorf("resting box is still awake after %v s", 240*timeStep)
	}
	if box.LinearVelocity() != (box2d.Vec2{}) {
		t.Errorf("sleeping box has velocity %v", box.LinearVelocity())
	}
}

func TestSleepDisabledKeepsBodyAwake(t *testing.T) {
	w, _ := newGroundWorld(t)
	box := addBox(w, box2d.Vec2{0, 0.6}, 0.5, 0.5)

	cfg := box2d.DefaultStepConfig()
	cfg.AllowSleep = false
	stepN(w, 240, cfg)

	if !box.IsAwake() {
		t.Error("body fell asleep with sleeping disabled")
	}
}

func TestIslandsSleepIndependently(t *testing.T) {
	w, _ := newGroundWorld(t)
	low := addBox(w, box2d.Vec2{-10, 0.6}, 0.5, 0.5)
	high := addBox(w, box2d.Vec2{10, 30}, 0.5, 0.5)

	stepN(w, 90, box2d.DefaultStepConfig())

	if low.IsAwake() {
		t.Error("resting box should be asleep")
	}
	if !high.IsAwake() {
		t.Error("falling box should be awake")
	}
	if high.LinearVelocity()[1] >= 0 {
		t.Errorf("falling box has velocity %v", high.LinearVelocity())
	}
}

type contactCounter struct {
	begin, end, preSolve, postSolve int
}

func (c *contactCounter) BeginContact(*box2d.Contact)                     { c.begin++ }
func (c *contactCounter) EndContact(*box2d.Contact)                       { c.end++ }
func (c *contactCounter) PreSolve(*box2d.Contact, *collision.Manifold)    { c.preSolve++ }
func (c *contactCounter) PostSolve(*box2d.Contact, *box2d.ContactImpulse) { c.postSolve++ }

func TestCirclesCollideAndSeparate(t *testing.T) {
	w := box2d.NewWorld(box2d.Vec2{})
	counter := &contactCounter{}
	w.SetContactListener(counter)

	circle := func(x, vx float64) *box2d.Body {
		bd := box2d.NewBodyDef()
		bd.Type = box2d.DynamicBody
		bd.Position = box2d.Vec2{x, 0}
		bd.LinearVelocity = box2d.Vec2{vx, 0}
		b := w.Body(w.CreateBody(bd))
		fd := box2d.NewFixtureDef(collision.NewCircle(0.5))
		fd.Density = 1
		fd.Restitution = 1
		b.CreateFixture(fd)
		return b
	}
	left := circle(-2, 3)
	right := circle(2, -3)

	stepN(w, 120, box2d.DefaultStepConfig())

	if counter.begin != 1 {
		t.Errorf("begin contact called %d times, expected 1", counter.begin)
	}
	if counter.end != 1 {
		t.Errorf("end contact called %d times, expected 1", counter.end)
	}
	if counter.postSolve == 0 {
		t.Error("post solve was never called")
	}
	if left.LinearVelocity()[0] >= 0 || right.LinearVelocity()[0] <= 0 {
		t.Errorf("circles did not bounce apart: %v %v", left.LinearVelocity(), right.LinearVelocity())
	}
	if d := common.Distance(left.Position(), right.Position()); d < 1 {
		t.Errorf("circles overlap after separating: distance %v", d)
	}
}

func TestSensorReportsContactWithoutResponse(t *testing.T) {
	w, ground := newGroundWorld(t)
	counter := &contactCounter{}
	w.SetContactListener(counter)

	slab := collision.NewPolygon()
	slab.SetAsOrientedBox(2, 0.5, box2d.Vec2{0, 3}, 0)
	sensor := box2d.NewFixtureDef(slab)
	sensor.IsSensor = true
	ground.CreateFixture(sensor)

	ball := addBox(w, box2d.Vec2{0, 6}, 0.25, 0.25)
	stepN(w, 90, box2d.DefaultStepConfig())

	if counter.begin < 2 {
		t.Errorf("expected sensor and ground contacts, got %d begins", counter.begin)
	}
	if y := ball.Position()[1]; y > 0.5 {
		t.Errorf("sensor stopped the box at y=%v", y)
	}
}

func TestBulletDoesNotTunnel(t *testing.T) {
	w := box2d.NewWorld(box2d.Vec2{0, -10})
	scene, ok := scenes.Lookup("bullet")
	if !ok {
		t.Fatal("bullet scene is not registered")
	}
	tracked := scene.Build(w)
	bullet := w.Body(tracked["bullet"])

	stepN(w, 60, box2d.DefaultStepConfig())

	if x := bullet.Position()[0]; x > 5 {
		t.Errorf("bullet tunneled through the wall to x=%v", x)
	}
}

func TestRevoluteLimitHoldsUnderTorque(t *testing.T) {
	w := box2d.NewWorld(box2d.Vec2{})
	ground := w.Body(w.CreateBody(box2d.NewBodyDef()))

	bd := box2d.NewBodyDef()
	bd.Type = box2d.DynamicBody
	arm := w.Body(w.CreateBody(bd))
	shape := collision.NewPolygon()
	shape.SetAsOrientedBox(1, 0.125, box2d.Vec2{1, 0}, 0)
	arm.CreateFixtureFromShape(shape, 1)

	jd := &box2d.RevoluteJointDef{}
	jd.Initialize(ground, arm, box2d.Vec2{})
	jd.EnableLimit = true
	jd.LowerAngle = -0.25 * math.Pi
	jd.UpperAngle = 0.25 * math.Pi
	joint := w.Joint(w.CreateJoint(jd)).(*box2d.RevoluteJoint)

	cfg := box2d.DefaultStepConfig()
	for range 180 {
		arm.ApplyTorque(20, true)
		w.Step(timeStep, cfg)

		if a := joint.JointAngle(); a > 0.25*math.Pi+common.AngularSlop*2 {
			t.Fatalf("joint angle %v exceeds upper limit", a)
		}
	}
	if a := joint.JointAngle(); math.Abs(a-0.25*math.Pi) > common.AngularSlop*2 {
		t.Errorf("arm should rest on the upper limit, angle %v", a)
	}
	if d := common.Distance(arm.Position(), box2d.Vec2{}); d > common.LinearSlop*4 {
		t.Errorf("pivot drifted by %v", d)
	}

	for range 180 {
		arm.ApplyTorque(-20, true)
		w.Step(timeStep, cfg)
	}
	if a := joint.JointAngle(); math.Abs(a+0.25*math.Pi) > common.AngularSlop*2 {
		t.Errorf("arm should rest on the lower limit, angle %v", a)
	}
}

func TestCreateJointOnOneBodyPanics(t *testing.T) {
	w, ground := newGroundWorld(t)
	jd := &box2d.WeldJointDef{}
	jd.BodyA = ground.Handle()
	jd.BodyB = ground.Handle()
	expectPanic(t, "box2d", func() { w.CreateJoint(jd) })
}

func TestStaleHandlesAreRejected(t *testing.T) {
	w, ground := newGroundWorld(t)
	box := addBox(w, box2d.Vec2{0, 2}, 0.5, 0.5)
	h := box.Handle()

	jd := &box2d.RevoluteJointDef{}
	jd.Initialize(ground, box, box2d.Vec2{0, 2})
	jh := w.CreateJoint(jd)

	w.DestroyBody(h)

	if _, ok := w.LookupBody(h); ok {
		t.Error("destroyed body still resolves")
	}
	if w.JointCount() != 0 {
		t.Errorf("joint survived its body: %d joints", w.JointCount())
	}
	expectPanic(t, "", func() { w.Body(h) })
	expectPanic(t, "", func() { w.Joint(jh) })

	// The slot is reused, but the old handle stays dead.
	other := addBox(w, box2d.Vec2{0, 2}, 0.5, 0.5)
	if other.Handle() == h {
		t.Fatal("reused slot returned the stale handle")
	}
	if _, ok := w.LookupBody(h); ok {
		t.Error("stale handle resolves after slot reuse")
	}
}

type goodbyeRecorder struct {
	joints, fixtures int
}

func (g *goodbyeRecorder) SayGoodbyeJoint(box2d.Joint)      { g.joints++ }
func (g *goodbyeRecorder) SayGoodbyeFixture(*box2d.Fixture) { g.fixtures++ }

func TestDestroyBodyNotifiesListener(t *testing.T) {
	w, ground := newGroundWorld(t)
	rec := &goodbyeRecorder{}
	w.SetDestructionListener(rec)

	box := addBox(w, box2d.Vec2{0, 0.5}, 0.5, 0.5)
	box.CreateFixtureFromShape(collision.NewCircle(0.25), 1)

	jd := &box2d.WeldJointDef{}
	jd.Initialize(ground, box, box2d.Vec2{0, 0.5})
	w.CreateJoint(jd)

	stepN(w, 2, box2d.DefaultStepConfig())
	w.DestroyBody(box.Handle())

	if rec.joints != 1 || rec.fixtures != 2 {
		t.Errorf("got %d joint and %d fixture goodbyes, expected 1 and 2", rec.joints, rec.fixtures)
	}
	if w.ContactCount() != 0 {
		t.Errorf("%d contacts survived the body", w.ContactCount())
	}
	if w.ProxyCount() != 1 {
		t.Errorf("expected only the ground proxy, got %d", w.ProxyCount())
	}
}

func TestJointedBodiesDoNotCollide(t *testing.T) {
	w, _ := newGroundWorld(t)
	a := addBox(w, box2d.Vec2{0, 5}, 1, 1)
	b := addBox(w, box2d.Vec2{1, 5}, 1, 1)

	jd := &box2d.RevoluteJointDef{}
	jd.Initialize(a, b, box2d.Vec2{0.5, 5})
	w.CreateJoint(jd)

	stepN(w, 2, box2d.DefaultStepConfig())
	for c := range w.Contacts() {
		if (c.BodyA() == a.Handle() && c.BodyB() == b.Handle()) ||
			(c.BodyA() == b.Handle() && c.BodyB() == a.Handle()) {
			t.Fatal("jointed bodies share a contact")
		}
	}
}

func TestLockedWorldRejectsMutation(t *testing.T) {
	w, _ := newGroundWorld(t)
	addBox(w, box2d.Vec2{0, 0.5}, 0.5, 0.5)

	l := &mutatingListener{world: w}
	w.SetContactListener(l)
	stepN(w, 10, box2d.DefaultStepConfig())

	if !l.panicked {
		t.Error("creating a body inside a callback did not panic")
	}
	if w.Locked() {
		t.Error("world still locked after the step")
	}
}

type mutatingListener struct {
	contactCounter
	world    *box2d.World
	panicked bool
}

func (m *mutatingListener) BeginContact(*box2d.Contact) {
	defer func() {
		if recover() != nil {
			m.panicked = true
		}
	}()
	m.world.CreateBody(box2d.NewBodyDef())
}

func TestParallelSolveMatchesSequential(t *testing.T) {
	run := func(workers int) []box2d.Vec2 {
		w := box2d.NewWorld(box2d.Vec2{0, -10})
		scene, _ := scenes.Lookup("mechanisms")
		tracked := scene.Build(w)

		cfg := box2d.DefaultStepConfig()
		cfg.Workers = workers
		stepN(w, 120, cfg)

		var out []box2d.Vec2
		for _, name := range tracked.Names() {
			b := w.Body(tracked[name])
			out = append(out, b.Position(), box2d.Vec2{b.Angle(), 0})
		}
		return out
	}

	sequential := run(1)
	parallel := run(4)
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Fatalf("entry %d differs: sequential %v parallel %v", i, sequential[i], parallel[i])
		}
	}
}

func TestQueries(t *testing.T) {
	w, ground := newGroundWorld(t)
	box := addBox(w, box2d.Vec2{5, 3}, 0.5, 0.5)

	var found []box2d.FixtureHandle
	for fh := range w.QueryAABB(collision.AABB{LowerBound: box2d.Vec2{4, 2}, UpperBound: box2d.Vec2{6, 4}}) {
		found = append(found, fh)
	}
	if len(found) != 1 || found[0] != box.Fixtures()[0] {
		t.Errorf("QueryAABB found %v", found)
	}

	var points []box2d.FixtureHandle
	for fh := range w.QueryPoint(box2d.Vec2{5.2, 3.2}) {
		points = append(points, fh)
	}
	if len(points) != 1 {
		t.Errorf("QueryPoint found %v", points)
	}

	hit, ok := w.RayCastClosest(box2d.Vec2{5, 10}, box2d.Vec2{5, -10})
	if !ok {
		t.Fatal("ray missed everything")
	}
	if hit.Fixture != box.Fixtures()[0] {
		t.Errorf("closest hit is %v, expected the box", hit.Fixture)
	}
	if math.Abs(hit.Point[1]-3.5) > 0.02 {
		t.Errorf("hit point %v, expected y=3.5", hit.Point)
	}
	if math.Abs(hit.Normal[1]-1) > 1e-9 {
		t.Errorf("hit normal %v, expected up", hit.Normal)
	}

	hit, ok = w.RayCastClosest(box2d.Vec2{-5, 10}, box2d.Vec2{-5, -10})
	if !ok || hit.Fixture != ground.Fixtures()[0] {
		t.Errorf("ray beside the box should hit the ground, got %v %v", hit, ok)
	}
}

func TestShiftOrigin(t *testing.T) {
	w, ground := newGroundWorld(t)
	box := addBox(w, box2d.Vec2{5, 3}, 0.5, 0.5)

	w.ShiftOrigin(box2d.Vec2{5, 0})

	if p := box.Position(); math.Abs(p[0]) > 1e-12 || math.Abs(p[1]-3) > 1e-12 {
		t.Errorf("box at %v after shift", p)
	}
	if p := ground.Position(); p != (box2d.Vec2{-5, 0}) {
		t.Errorf("ground at %v after shift", p)
	}

	var found int
	for range w.QueryPoint(box2d.Vec2{0, 3}) {
		found++
	}
	if found != 1 {
		t.Errorf("broad phase not shifted: %d fixtures at the new box position", found)
	}
}

func TestRestingBoxStaysPutWithoutSleep(t *testing.T) {
	w, _ := newGroundWorld(t)
	box := addBox(w, box2d.Vec2{0, 0.5}, 0.5, 0.5)

	cfg := box2d.DefaultStepConfig()
	cfg.AllowSleep = false
	stepN(w, 60, cfg)

	rest := box.Position()
	for i := range 150 {
		w.Step(timeStep, cfg)
		if d := common.Distance(box.Position(), rest); d > common.LinearSlop {
			t.Fatalf("step %d: resting box drifted by %v", i, d)
		}
	}
	if !box.IsAwake() {
		t.Error("box fell asleep with sleeping disabled")
	}
}

func TestFastBodyDoesNotTunnelThroughStatic(t *testing.T) {
	run := func(continuous bool) float64 {
		w := box2d.NewWorld(box2d.Vec2{})
		wall := w.Body(w.CreateBody(box2d.NewBodyDef()))
		wall.CreateFixtureFromShape(collision.NewBox(0.05, 2), 0)

		// Not a bullet: only its speed puts it in the continuous pass.
		bd := box2d.NewBodyDef()
		bd.Type = box2d.DynamicBody
		bd.Position = box2d.Vec2{-3, 0}
		bd.LinearVelocity = box2d.Vec2{300, 0}
		b := w.Body(w.CreateBody(bd))
		b.CreateFixtureFromShape(collision.NewBox(0.25, 0.25), 1)

		cfg := box2d.DefaultStepConfig()
		cfg.Continuous = continuous
		stepN(w, 10, cfg)
		return b.Position()[0]
	}

	if x := run(true); x > 0 {
		t.Errorf("fast box passed the wall to x=%v", x)
	}
	if x := run(false); x < 0 {
		t.Errorf("discrete stepping stopped the box at x=%v; the scene no longer needs continuous collision", x)
	}
}

func TestSleepingBodyWakesOnNewContact(t *testing.T) {
	w, _ := newGroundWorld(t)
	low := addBox(w, box2d.Vec2{0, 0.5}, 0.5, 0.5)
	stepN(w, 240, box2d.DefaultStepConfig())
	if low.IsAwake() {
		t.Fatal("resting box did not fall asleep")
	}

	addBox(w, box2d.Vec2{0, 2.5}, 0.5, 0.5)
	for range 90 {
		w.Step(timeStep, box2d.DefaultStepConfig())
		if low.IsAwake() {
			return
		}
	}
	t.Error("box landing on a sleeping box did not wake it")
}

func TestEdgesNeverCollideWithEachOther(t *testing.T) {
	w, _ := newGroundWorld(t)

	bd := box2d.NewBodyDef()
	bd.Type = box2d.DynamicBody
	bd.Position = box2d.Vec2{0, 0.5}
	plank := w.Body(w.CreateBody(bd))
	plank.CreateFixtureFromShape(collision.NewEdge(box2d.Vec2{-1, 0}, box2d.Vec2{1, 0}), 1)

	stepN(w, 30, box2d.DefaultStepConfig())
	if n := w.ContactCount(); n != 0 {
		t.Errorf("edge against edge created %d contacts", n)
	}
	if y := plank.Position()[1]; y > 0 {
		t.Errorf("edge plank rests on the ground edge at y=%v", y)
	}
}

func TestSteadyStateStepDoesNotAllocate(t *testing.T) {
	if testing.Short() {
		t.Skip("settles a pyramid")
	}
	w := box2d.NewWorld(box2d.Vec2{0, -10})
	scene, _ := scenes.Lookup("pyramid")
	scene.Build(w)

	cfg := box2d.DefaultStepConfig()
	cfg.AllowSleep = false
	stepN(w, 200, cfg)
	if w.ContactCount() < 100 {
		t.Fatalf("pyramid has only %d contacts", w.ContactCount())
	}

	allocs := testing.AllocsPerRun(50, func() {
		w.Step(timeStep, cfg)
	})
	// Scratch buffers may still grow now and then; a leak per contact or per
	// body shows up as hundreds.
	if allocs > 4 {
		t.Errorf("Step allocates %.0f times with %d contacts", allocs, w.ContactCount())
	}
}
