package box2d

import (
	"fmt"

	"github.com/ByteArena/box2d/v2/alloc"
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

// BodyType selects how a body is simulated.
//
//	static: zero mass, zero velocity, may be manually moved
//	kinematic: zero mass, non-zero velocity set by user, moved by solver
//	dynamic: positive mass, non-zero velocity determined by forces, moved by solver
type BodyType uint8

const (
	StaticBody BodyType = iota
	KinematicBody
	DynamicBody
)

func (t BodyType) String() string {
	switch t {
	case StaticBody:
		return "static"
	case KinematicBody:
		return "kinematic"
	case DynamicBody:
		return "dynamic"
	}
	return fmt.Sprintf("BodyType(%d)", uint8(t))
}

// BodyDef holds the data needed to construct a rigid body. It can be reused.
type BodyDef struct {
	Type BodyType

	// Position is the world position of the body origin. Avoid creating bodies at
	// the origin since this can lead to many overlapping shapes.
	Position Vec2

	// Angle is the world angle of the body in radians.
	Angle float64

	// LinearVelocity is the velocity of the body origin in world coordinates.
	LinearVelocity Vec2

	AngularVelocity float64

	// LinearDamping reduces the linear velocity. Units are 1/time.
	LinearDamping float64

	// AngularDamping reduces the angular velocity. Units are 1/time.
	AngularDamping float64

	// AllowSleep set to false keeps the body awake.
	AllowSleep bool

	// Awake is the initial sleep state.
	Awake bool

	// FixedRotation prevents rotation. Useful for characters.
	FixedRotation bool

	// Bullet bodies are prevented from tunneling through other dynamic bodies.
	// Static and kinematic bodies are always swept. Increases processing time.
	Bullet bool

	// Enabled set to false keeps the body out of the simulation.
	Enabled bool

	UserData any

	// GravityScale scales the gravity applied to this body.
	GravityScale float64
}

// NewBodyDef returns a static body definition with the usual defaults.
func NewBodyDef() *BodyDef {
	return &BodyDef{
		AllowSleep:   true,
		Awake:        true,
		Enabled:      true,
		GravityScale: 1.0,
	}
}

type bodyFlags uint16

const (
	bodyIsland bodyFlags = 1 << iota
	bodyAwake
	bodyAutoSleep
	bodyBullet
	bodyFixedRotation
	bodyEnabled
	bodyFast
)

// Body is a rigid body. Bodies are created and destroyed through the World.
type Body struct {
	world  *World
	handle BodyHandle

	kind  BodyType
	flags bodyFlags

	islandIndex int

	xf    common.Transform // the body origin transform
	sweep common.Sweep     // the swept motion for CCD

	linearVelocity  Vec2
	angularVelocity float64

	force  Vec2
	torque float64

	fixtures []FixtureHandle

	mass, invMass float64

	// Rotational inertia about the center of mass.
	inertia, invI float64

	linearDamping  float64
	angularDamping float64
	gravityScale   float64

	sleepTime float64

	// minExtent is the smallest fixture extent, used by the fast-body test.
	minExtent float64

	userData any
}

func (b *Body) create(def *BodyDef) {
	common.Assert(common.IsValidVec(def.Position), "invalid body position")
	common.Assert(common.IsValidVec(def.LinearVelocity), "invalid body velocity")
	common.Assert(common.IsValid(def.Angle), "invalid body angle")
	common.Assert(common.IsValid(def.AngularVelocity), "invalid body angular velocity")
	common.Assert(common.IsValid(def.AngularDamping) && def.AngularDamping >= 0, "invalid angular damping")
	common.Assert(common.IsValid(def.LinearDamping) && def.LinearDamping >= 0, "invalid linear damping")

	if def.Bullet {
		b.flags |= bodyBullet
	}
	if def.FixedRotation {
		b.flags |= bodyFixedRotation
	}
	if def.AllowSleep {
		b.flags |= bodyAutoSleep
	}
	if def.Awake && def.Type != StaticBody {
		b.flags |= bodyAwake
	}
	if def.Enabled {
		b.flags |= bodyEnabled
	}

	b.xf = common.NewTransform(def.Position, def.Angle)
	b.sweep = common.Sweep{
		C0: b.xf.P,
		C:  b.xf.P,
		A0: def.Angle,
		A:  def.Angle,
	}

	b.linearVelocity = def.LinearVelocity
	b.angularVelocity = def.AngularVelocity
	b.linearDamping = def.LinearDamping
	b.angularDamping = def.AngularDamping
	b.gravityScale = def.GravityScale
	b.kind = def.Type

	if b.kind == DynamicBody {
		b.mass = 1.0
		b.invMass = 1.0
	}
	b.minExtent = common.MaxFloat
	b.userData = def.UserData
}

func (b *Body) Handle() BodyHandle {
	return b.handle
}

func (b *Body) edges() *bodyEdges {
	return &b.world.edges[alloc.Handle(b.handle).Index]
}

// CreateFixture attaches a fixture. The body mass is updated when the fixture has
// a positive density. Panics while the world is locked.
func (b *Body) CreateFixture(def *FixtureDef) FixtureHandle {
	w := b.world
	w.assertUnlocked()

	h, f := w.fixtures.Alloc()
	f.world = w
	f.handle = FixtureHandle(h)
	f.body = b.handle
	f.create(def)

	if b.flags&bodyEnabled != 0 {
		f.createProxies(w.broadPhase, b.xf)
	}
	b.fixtures = append(b.fixtures, f.handle)
	b.minExtent = min(b.minExtent, collision.MinExtent(f.shape))

	if f.density > 0 {
		b.ResetMassData()
	}

	// New contacts are found at the beginning of the next step.
	w.newContacts = true
	return f.handle
}

// CreateFixtureFromShape is a shortcut for a fixture with default material.
func (b *Body) CreateFixtureFromShape(shape collision.Shape, density float64) FixtureHandle {
	def := NewFixtureDef(shape)
	def.Density = density
	return b.CreateFixture(def)
}

// DestroyFixture destroys a fixture and all contacts referencing it, then resets
// the mass data. Panics while the world is locked or on a stale handle.
func (b *Body) DestroyFixture(fh FixtureHandle) {
	w := b.world
	w.assertUnlocked()

	f := w.fixture(fh)
	common.Assert(f.body == b.handle, "fixture belongs to another body")

	i := indexOf(b.fixtures, fh)
	common.Assert(i >= 0, "fixture not attached to body")
	b.fixtures = append(b.fixtures[:i], b.fixtures[i+1:]...)

	// Destroy any contacts associated with the fixture.
	for _, ch := range append([]ContactHandle(nil), b.edges().contacts...) {
		c := w.contact(ch)
		if c.fixtureA == fh || c.fixtureB == fh {
			w.destroyContact(c)
		}
	}

	if b.flags&bodyEnabled != 0 {
		f.destroyProxies(w.broadPhase)
	}
	w.fixtures.Free(alloc.Handle(fh))

	b.updateMinExtent()
	b.ResetMassData()
}

func (b *Body) updateMinExtent() {
	b.minExtent = common.MaxFloat
	for _, fh := range b.fixtures {
		b.minExtent = min(b.minExtent, collision.MinExtent(b.world.fixture(fh).shape))
	}
}

// Fixtures returns the fixtures attached to the body, in creation order.
func (b *Body) Fixtures() []FixtureHandle {
	return b.fixtures
}

// Joints returns the joints attached to the body.
func (b *Body) Joints() []JointHandle {
	return b.edges().joints
}

// Contacts returns the contacts touching the body's fixtures, touching or not.
func (b *Body) Contacts() []ContactHandle {
	return b.edges().contacts
}

// ResetMassData recomputes mass, center of mass and inertia from the fixtures. It
// normally does not need to be called unless SetMassData overrode the mass and it
// should be restored.
func (b *Body) ResetMassData() {
	b.mass = 0
	b.invMass = 0
	b.inertia = 0
	b.invI = 0
	b.sweep.LocalCenter = Vec2{}

	// Static and kinematic bodies have zero mass.
	if b.kind == StaticBody || b.kind == KinematicBody {
		b.sweep.C0 = b.xf.P
		b.sweep.C = b.xf.P
		b.sweep.A0 = b.sweep.A
		return
	}

	// Accumulate mass over all fixtures.
	localCenter := Vec2{}
	for _, fh := range b.fixtures {
		f := b.world.fixture(fh)
		if f.density == 0 {
			continue
		}
		md := f.MassData()
		b.mass += md.Mass
		localCenter = localCenter.Add(md.Center.Mul(md.Mass))
		b.inertia += md.I
	}

	if b.mass > 0 {
		b.invMass = 1.0 / b.mass
		localCenter = localCenter.Mul(b.invMass)
	} else {
		// Force all dynamic bodies to have a positive mass.
		b.mass = 1.0
		b.invMass = 1.0
	}

	if b.inertia > 0 && b.flags&bodyFixedRotation == 0 {
		// Center the inertia about the center of mass.
		b.inertia -= b.mass * localCenter.Dot(localCenter)
		common.Assert(b.inertia > 0, "non-positive rotational inertia")
		b.invI = 1.0 / b.inertia
	} else {
		b.inertia = 0
		b.invI = 0
	}

	// Move center of mass.
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = localCenter
	b.sweep.C = b.xf.Apply(b.sweep.LocalCenter)
	b.sweep.C0 = b.sweep.C

	// Update center of mass velocity.
	b.linearVelocity = b.linearVelocity.Add(common.CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

// MassData returns the mass, the local center of mass and the inertia about the
// local origin.
func (b *Body) MassData() collision.MassData {
	return collision.MassData{
		Mass:   b.mass,
		I:      b.inertia + b.mass*b.sweep.LocalCenter.Dot(b.sweep.LocalCenter),
		Center: b.sweep.LocalCenter,
	}
}

// SetMassData overrides the mass properties. Ignored for non-dynamic bodies.
// Panics while the world is locked.
func (b *Body) SetMassData(md collision.MassData) {
	b.world.assertUnlocked()
	if b.kind != DynamicBody {
		return
	}

	b.invMass = 0
	b.inertia = 0
	b.invI = 0

	b.mass = md.Mass
	if b.mass <= 0 {
		b.mass = 1.0
	}
	b.invMass = 1.0 / b.mass

	if md.I > 0 && b.flags&bodyFixedRotation == 0 {
		b.inertia = md.I - b.mass*md.Center.Dot(md.Center)
		common.Assert(b.inertia > 0, "non-positive rotational inertia")
		b.invI = 1.0 / b.inertia
	}

	// Move center of mass.
	oldCenter := b.sweep.C
	b.sweep.LocalCenter = md.Center
	b.sweep.C = b.xf.Apply(b.sweep.LocalCenter)
	b.sweep.C0 = b.sweep.C

	// Update center of mass velocity.
	b.linearVelocity = b.linearVelocity.Add(common.CrossSV(b.angularVelocity, b.sweep.C.Sub(oldCenter)))
}

// SetTransform teleports the body origin and wakes it. Contacts are updated on
// the next step. Panics while the world is locked.
func (b *Body) SetTransform(position Vec2, angle float64) {
	w := b.world
	w.assertUnlocked()

	b.xf = common.NewTransform(position, angle)
	b.sweep.C = b.xf.Apply(b.sweep.LocalCenter)
	b.sweep.A = angle
	b.sweep.C0 = b.sweep.C
	b.sweep.A0 = angle

	for _, fh := range b.fixtures {
		w.fixture(fh).synchronize(w.broadPhase, b.xf, b.xf)
	}
	b.SetAwake(true)

	// Check for new contacts the next step.
	w.newContacts = true
}

func (b *Body) Transform() common.Transform {
	return b.xf
}

// Position is the world position of the body origin.
func (b *Body) Position() Vec2 {
	return b.xf.P
}

// Angle is the body angle in radians.
func (b *Body) Angle() float64 {
	return b.sweep.A
}

func (b *Body) WorldCenter() Vec2 {
	return b.sweep.C
}

func (b *Body) LocalCenter() Vec2 {
	return b.sweep.LocalCenter
}

// LinearVelocity is the velocity of the center of mass.
func (b *Body) LinearVelocity() Vec2 {
	return b.linearVelocity
}

func (b *Body) SetLinearVelocity(v Vec2) {
	if b.kind == StaticBody {
		return
	}
	if v.Dot(v) > 0 {
		b.SetAwake(true)
	}
	b.linearVelocity = v
}

func (b *Body) AngularVelocity() float64 {
	return b.angularVelocity
}

func (b *Body) SetAngularVelocity(w float64) {
	if b.kind == StaticBody {
		return
	}
	if w*w > 0 {
		b.SetAwake(true)
	}
	b.angularVelocity = w
}

// ApplyForce applies a world force at a world point. Off-center forces also
// produce a torque. A sleeping body is ignored unless wake is set.
func (b *Body) ApplyForce(force, point Vec2, wake bool) {
	if b.kind != DynamicBody {
		return
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	if b.flags&bodyAwake != 0 {
		b.force = b.force.Add(force)
		b.torque += common.Cross(point.Sub(b.sweep.C), force)
	}
}

// ApplyForceToCenter applies a world force at the center of mass.
func (b *Body) ApplyForceToCenter(force Vec2, wake bool) {
	if b.kind != DynamicBody {
		return
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	if b.flags&bodyAwake != 0 {
		b.force = b.force.Add(force)
	}
}

// ApplyTorque applies a torque about the z-axis.
func (b *Body) ApplyTorque(torque float64, wake bool) {
	if b.kind != DynamicBody {
		return
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	if b.flags&bodyAwake != 0 {
		b.torque += torque
	}
}

// ApplyLinearImpulse applies a world impulse (N-seconds) at a world point. This
// immediately modifies the velocity and the angular velocity if the point is off
// center.
func (b *Body) ApplyLinearImpulse(impulse, point Vec2, wake bool) {
	if b.kind != DynamicBody {
		return
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	if b.flags&bodyAwake != 0 {
		b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
		b.angularVelocity += b.invI * common.Cross(point.Sub(b.sweep.C), impulse)
	}
}

// ApplyLinearImpulseToCenter applies a world impulse at the center of mass.
func (b *Body) ApplyLinearImpulseToCenter(impulse Vec2, wake bool) {
	if b.kind != DynamicBody {
		return
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	if b.flags&bodyAwake != 0 {
		b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))
	}
}

// ApplyAngularImpulse applies an angular impulse in kg*m*m/s.
func (b *Body) ApplyAngularImpulse(impulse float64, wake bool) {
	if b.kind != DynamicBody {
		return
	}
	if wake && b.flags&bodyAwake == 0 {
		b.SetAwake(true)
	}
	if b.flags&bodyAwake != 0 {
		b.angularVelocity += b.invI * impulse
	}
}

func (b *Body) Mass() float64 {
	return b.mass
}

// Inertia is the rotational inertia about the local origin.
func (b *Body) Inertia() float64 {
	return b.inertia + b.mass*b.sweep.LocalCenter.Dot(b.sweep.LocalCenter)
}

// WorldPoint maps a body-local point to world coordinates.
func (b *Body) WorldPoint(localPoint Vec2) Vec2 {
	return b.xf.Apply(localPoint)
}

// WorldVector rotates a body-local vector to world coordinates.
func (b *Body) WorldVector(localVector Vec2) Vec2 {
	return b.xf.Q.Apply(localVector)
}

// LocalPoint maps a world point to body-local coordinates.
func (b *Body) LocalPoint(worldPoint Vec2) Vec2 {
	return b.xf.ApplyT(worldPoint)
}

// LocalVector rotates a world vector to body-local coordinates.
func (b *Body) LocalVector(worldVector Vec2) Vec2 {
	return b.xf.Q.ApplyT(worldVector)
}

// LinearVelocityFromWorldPoint is the world velocity of a point fixed to the body.
func (b *Body) LinearVelocityFromWorldPoint(worldPoint Vec2) Vec2 {
	return b.linearVelocity.Add(common.CrossSV(b.angularVelocity, worldPoint.Sub(b.sweep.C)))
}

// LinearVelocityFromLocalPoint is the world velocity of a body-local point.
func (b *Body) LinearVelocityFromLocalPoint(localPoint Vec2) Vec2 {
	return b.LinearVelocityFromWorldPoint(b.WorldPoint(localPoint))
}

func (b *Body) LinearDamping() float64        { return b.linearDamping }
func (b *Body) SetLinearDamping(d float64)    { b.linearDamping = d }
func (b *Body) AngularDamping() float64       { return b.angularDamping }
func (b *Body) SetAngularDamping(d float64)   { b.angularDamping = d }
func (b *Body) GravityScale() float64         { return b.gravityScale }
func (b *Body) SetGravityScale(scale float64) { b.gravityScale = scale }
func (b *Body) Type() BodyType                { return b.kind }
func (b *Body) UserData() any                 { return b.userData }
func (b *Body) SetUserData(data any)          { b.userData = data }
func (b *Body) IsBullet() bool                { return b.flags&bodyBullet != 0 }
func (b *Body) IsAwake() bool                 { return b.flags&bodyAwake != 0 }
func (b *Body) IsEnabled() bool               { return b.flags&bodyEnabled != 0 }
func (b *Body) IsFixedRotation() bool         { return b.flags&bodyFixedRotation != 0 }
func (b *Body) IsSleepingAllowed() bool       { return b.flags&bodyAutoSleep != 0 }
func (b *Body) SleepTime() float64            { return b.sleepTime }

// SetType changes the body type. Attached contacts are destroyed and rebuilt by
// the broad phase on the next step. Panics while the world is locked.
func (b *Body) SetType(kind BodyType) {
	w := b.world
	w.assertUnlocked()
	if b.kind == kind {
		return
	}
	b.kind = kind
	b.ResetMassData()

	if b.kind == StaticBody {
		b.linearVelocity = Vec2{}
		b.angularVelocity = 0
		b.sweep.A0 = b.sweep.A
		b.sweep.C0 = b.sweep.C
		b.flags &^= bodyAwake
		b.synchronizeFixtures()
	}

	b.SetAwake(true)

	b.force = Vec2{}
	b.torque = 0

	// Delete the attached contacts.
	for _, ch := range append([]ContactHandle(nil), b.edges().contacts...) {
		w.destroyContact(w.contact(ch))
	}

	// Touch the proxies so that new contacts will be created (when appropriate).
	for _, fh := range b.fixtures {
		f := w.fixture(fh)
		for i := range f.proxies {
			w.broadPhase.TouchProxy(f.proxies[i].proxyID)
		}
	}
}

// SetBullet marks the body for continuous collision against dynamic bodies.
func (b *Body) SetBullet(flag bool) {
	if flag {
		b.flags |= bodyBullet
	} else {
		b.flags &^= bodyBullet
	}
}

// SetSleepingAllowed enables or disables auto sleep. Disabling wakes the body.
func (b *Body) SetSleepingAllowed(flag bool) {
	if flag {
		b.flags |= bodyAutoSleep
	} else {
		b.flags &^= bodyAutoSleep
		b.SetAwake(true)
	}
}

// SetAwake wakes or sleeps the body. A sleeping body has very low CPU cost and
// zero velocity. Static bodies are never awake.
func (b *Body) SetAwake(flag bool) {
	if b.kind == StaticBody {
		return
	}
	if flag {
		if b.flags&bodyAwake == 0 {
			b.flags |= bodyAwake
			b.sleepTime = 0
		}
		return
	}
	b.flags &^= bodyAwake
	b.sleepTime = 0
	b.linearVelocity = Vec2{}
	b.angularVelocity = 0
	b.force = Vec2{}
	b.torque = 0
}

// SetEnabled adds or removes the body from the simulation. A disabled body keeps
// its fixtures and joints but has no proxies and no contacts. Panics while the
// world is locked.
func (b *Body) SetEnabled(flag bool) {
	w := b.world
	w.assertUnlocked()
	if flag == b.IsEnabled() {
		return
	}

	if flag {
		b.flags |= bodyEnabled

		// Create all proxies.
		for _, fh := range b.fixtures {
			w.fixture(fh).createProxies(w.broadPhase, b.xf)
		}

		// Contacts are created at the beginning of the next step.
		w.newContacts = true
		return
	}

	b.flags &^= bodyEnabled

	// Destroy the attached contacts while their proxies still exist.
	for _, ch := range append([]ContactHandle(nil), b.edges().contacts...) {
		w.destroyContact(w.contact(ch))
	}

	// Destroy all proxies.
	for _, fh := range b.fixtures {
		w.fixture(fh).destroyProxies(w.broadPhase)
	}
}

// SetFixedRotation locks or unlocks rotation and resets the mass data.
func (b *Body) SetFixedRotation(flag bool) {
	if flag == b.IsFixedRotation() {
		return
	}
	if flag {
		b.flags |= bodyFixedRotation
	} else {
		b.flags &^= bodyFixedRotation
	}
	b.angularVelocity = 0
	b.ResetMassData()
}

// shouldCollide is false when both bodies are non-dynamic or a joint between them
// disables collision.
func (b *Body) shouldCollide(other *Body) bool {
	// At least one body should be dynamic.
	if b.kind != DynamicBody && other.kind != DynamicBody {
		return false
	}

	// Does a joint prevent collision?
	for _, jh := range b.edges().joints {
		j := b.world.joint(jh)
		base := j.base()
		if base.other(b.handle) == other.handle && !base.collideConnected {
			return false
		}
	}
	return true
}

func (b *Body) synchronizeFixtures() {
	w := b.world
	if b.flags&bodyAwake != 0 {
		xf1 := common.Transform{Q: common.NewRot(b.sweep.A0)}
		xf1.P = b.sweep.C0.Sub(xf1.Q.Apply(b.sweep.LocalCenter))
		for _, fh := range b.fixtures {
			w.fixture(fh).synchronize(w.broadPhase, xf1, b.xf)
		}
		return
	}
	for _, fh := range b.fixtures {
		w.fixture(fh).synchronize(w.broadPhase, b.xf, b.xf)
	}
}

func (b *Body) synchronizeTransform() {
	b.xf.Q = common.NewRot(b.sweep.A)
	b.xf.P = b.sweep.C.Sub(b.xf.Q.Apply(b.sweep.LocalCenter))
}

// advance moves the body to the safe time alpha. It does not sync the broad
// phase.
func (b *Body) advance(alpha float64) {
	b.sweep.Advance(alpha)
	b.sweep.C = b.sweep.C0
	b.sweep.A = b.sweep.A0
	b.synchronizeTransform()
}

// isFast reports whether the body needs continuous collision this step.
func (b *Body) isFast() bool {
	if b.flags&bodyBullet != 0 {
		return true
	}
	if b.kind == StaticBody || b.minExtent == common.MaxFloat {
		return false
	}
	d := b.sweep.C.Sub(b.sweep.C0)
	threshold := common.ToiMotionFraction * b.minExtent
	return d.Dot(d) > threshold*threshold
}

func indexOf[T comparable](s []T, v T) int {
	for i := range s {
		if s[i] == v {
			return i
		}
	}
	return -1
}
