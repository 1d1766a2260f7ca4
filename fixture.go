package box2d

import (
	"github.com/ByteArena/box2d/v2/alloc"
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

// Filter holds contact filtering data.
type Filter struct {
	// CategoryBits are the collision categories of the fixture. Normally one bit.
	CategoryBits uint16

	// MaskBits are the categories this fixture accepts for collision.
	MaskBits uint16

	// GroupIndex overrides the bits: fixtures sharing a positive group always
	// collide, fixtures sharing a negative group never do. Zero means no group.
	GroupIndex int16
}

// DefaultFilter collides with everything.
func DefaultFilter() Filter {
	return Filter{CategoryBits: 0x0001, MaskBits: 0xFFFF}
}

func (f Filter) collides(other Filter) bool {
	if f.GroupIndex == other.GroupIndex && f.GroupIndex != 0 {
		return f.GroupIndex > 0
	}
	return f.MaskBits&other.CategoryBits != 0 && f.CategoryBits&other.MaskBits != 0
}

// FixtureDef is used to create a fixture. The shape is cloned, so the definition
// can be reused.
type FixtureDef struct {
	Shape collision.Shape

	UserData any

	// Friction is usually in [0,1].
	Friction float64

	// Restitution is usually in [0,1].
	Restitution float64

	// Density in kg/m^2.
	Density float64

	// IsSensor fixtures collect contact information but never generate a
	// collision response.
	IsSensor bool

	Filter Filter
}

// NewFixtureDef returns a definition with the default friction and filter.
func NewFixtureDef(shape collision.Shape) *FixtureDef {
	return &FixtureDef{
		Shape:    shape,
		Friction: 0.2,
		Filter:   DefaultFilter(),
	}
}

// fixtureProxy connects one shape child to the broad phase.
type fixtureProxy struct {
	aabb       collision.AABB
	fixture    *Fixture
	childIndex int
	proxyID    int
}

// Fixture attaches a shape to a body for collision detection.
type Fixture struct {
	world  *World
	handle FixtureHandle
	body   BodyHandle

	shape collision.Shape

	density     float64
	friction    float64
	restitution float64
	sensor      bool
	filter      Filter

	proxies []fixtureProxy

	userData any
}

func (f *Fixture) create(def *FixtureDef) {
	common.Assert(def.Shape != nil, "fixture definition without a shape")
	common.Assert(def.Density >= 0, "negative fixture density")
	f.shape = def.Shape.Clone()
	f.userData = def.UserData
	f.friction = def.Friction
	f.restitution = def.Restitution
	f.density = def.Density
	f.sensor = def.IsSensor
	f.filter = def.Filter
}

func (f *Fixture) Handle() FixtureHandle {
	return f.handle
}

// Type is the type of the child shape, used to tell shapes apart without a type
// switch.
func (f *Fixture) Type() collision.ShapeType {
	return f.shape.Type()
}

// Shape is the fixture's own copy of the shape. Do not modify it.
func (f *Fixture) Shape() collision.Shape {
	return f.shape
}

func (f *Fixture) Body() BodyHandle {
	return f.body
}

func (f *Fixture) IsSensor() bool {
	return f.sensor
}

// SetSensor switches sensor mode and wakes the body.
func (f *Fixture) SetSensor(sensor bool) {
	if sensor != f.sensor {
		f.world.body(f.body).SetAwake(true)
		f.sensor = sensor
	}
}

func (f *Fixture) Filter() Filter {
	return f.filter
}

// SetFilter replaces the filter data. Existing contacts are re-filtered on the
// next step.
func (f *Fixture) SetFilter(filter Filter) {
	f.filter = filter
	f.refilter()
}

// refilter flags the fixture's contacts for filtering and touches its proxies so
// new pairs may be found.
func (f *Fixture) refilter() {
	w := f.world
	for _, ch := range w.edges[alloc.Handle(f.body).Index].contacts {
		c := w.contact(ch)
		if c.fixtureA == f.handle || c.fixtureB == f.handle {
			c.flagForFiltering()
		}
	}
	for i := range f.proxies {
		w.broadPhase.TouchProxy(f.proxies[i].proxyID)
	}
}

func (f *Fixture) UserData() any {
	return f.userData
}

func (f *Fixture) SetUserData(data any) {
	f.userData = data
}

func (f *Fixture) Density() float64 {
	return f.density
}

// SetDensity changes the density. Call Body.ResetMassData to update the body.
func (f *Fixture) SetDensity(density float64) {
	common.Assert(common.IsValid(density) && density >= 0, "invalid density")
	f.density = density
}

func (f *Fixture) Friction() float64 {
	return f.friction
}

// SetFriction does not change the friction of existing contacts.
func (f *Fixture) SetFriction(friction float64) {
	f.friction = friction
}

func (f *Fixture) Restitution() float64 {
	return f.restitution
}

// SetRestitution does not change the restitution of existing contacts.
func (f *Fixture) SetRestitution(restitution float64) {
	f.restitution = restitution
}

// TestPoint reports whether a world point is inside the shape.
func (f *Fixture) TestPoint(p Vec2) bool {
	return f.shape.TestPoint(f.world.body(f.body).xf, p)
}

// RayCast casts a ray against one child of the shape.
func (f *Fixture) RayCast(input collision.RayCastInput, childIndex int) (collision.RayCastOutput, bool) {
	return f.shape.RayCast(input, f.world.body(f.body).xf, childIndex)
}

// MassData computes the mass properties of the shape at the fixture density.
func (f *Fixture) MassData() collision.MassData {
	return f.shape.ComputeMass(f.density)
}

// FatAABB is the broad-phase box of a child. It may lag the actual position.
func (f *Fixture) FatAABB(childIndex int) collision.AABB {
	common.Assert(childIndex >= 0 && childIndex < len(f.proxies), "child index out of range")
	return f.world.broadPhase.FatAABB(f.proxies[childIndex].proxyID)
}

func (f *Fixture) createProxies(bp *collision.BroadPhase, xf common.Transform) {
	common.Assert(len(f.proxies) == 0, "fixture proxies already created")
	n := f.shape.ChildCount()
	f.proxies = make([]fixtureProxy, n)
	for i := range f.proxies {
		proxy := &f.proxies[i]
		proxy.aabb = f.shape.ComputeAABB(xf, i)
		proxy.fixture = f
		proxy.childIndex = i
		proxy.proxyID = bp.CreateProxy(proxy.aabb, proxy)
	}
}

func (f *Fixture) destroyProxies(bp *collision.BroadPhase) {
	for i := range f.proxies {
		bp.DestroyProxy(f.proxies[i].proxyID)
		f.proxies[i].proxyID = collision.NullProxy
	}
	f.proxies = nil
}

// synchronize moves the proxies to cover the swept shape between xf1 and xf2.
func (f *Fixture) synchronize(bp *collision.BroadPhase, xf1, xf2 common.Transform) {
	for i := range f.proxies {
		proxy := &f.proxies[i]

		// Compute an AABB that covers the swept shape (may miss some rotation effect).
		aabb1 := f.shape.ComputeAABB(xf1, proxy.childIndex)
		aabb2 := f.shape.ComputeAABB(xf2, proxy.childIndex)
		proxy.aabb = collision.Combine(aabb1, aabb2)

		displacement := aabb2.Center().Sub(aabb1.Center())
		bp.MoveProxy(proxy.proxyID, proxy.aabb, displacement)
	}
}
