package box2d

import (
	"github.com/ByteArena/box2d/v2/alloc"
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

type Vec2 = common.Vec2

// BodyHandle, FixtureHandle, JointHandle and ContactHandle identify world objects.
// A handle of a destroyed object never resolves again.
type (
	BodyHandle    alloc.Handle
	FixtureHandle alloc.Handle
	ContactHandle alloc.Handle
)

// JointHandle is a slot in the pool of the joint's variant.
type JointHandle struct {
	slot alloc.Handle
	kind JointType
}

func (h BodyHandle) IsNil() bool    { return alloc.Handle(h).IsNil() }
func (h FixtureHandle) IsNil() bool { return alloc.Handle(h).IsNil() }
func (h JointHandle) IsNil() bool   { return h.slot.IsNil() }
func (h ContactHandle) IsNil() bool { return alloc.Handle(h).IsNil() }

// Type is the variant of the joint the handle refers to.
func (h JointHandle) Type() JointType {
	return h.kind
}

// DestructionListener is notified of joints and fixtures that are destroyed
// implicitly because their body was destroyed.
type DestructionListener interface {
	// SayGoodbyeJoint is called when a joint is about to be destroyed.
	SayGoodbyeJoint(j Joint)

	// SayGoodbyeFixture is called when a fixture is about to be destroyed.
	SayGoodbyeFixture(f *Fixture)
}

// ContactFilter decides whether two fixtures may collide. The default filter uses
// the fixtures' Filter data.
type ContactFilter interface {
	ShouldCollide(fixtureA, fixtureB *Fixture) bool
}

// DefaultContactFilter applies the category, mask and group rules.
type DefaultContactFilter struct{}

func (DefaultContactFilter) ShouldCollide(fixtureA, fixtureB *Fixture) bool {
	return fixtureA.filter.collides(fixtureB.filter)
}

// ContactImpulse reports the impulses the solver applied to a contact. Useful to
// detect breaking or damage.
type ContactImpulse struct {
	NormalImpulses  [common.MaxManifoldPoints]float64
	TangentImpulses [common.MaxManifoldPoints]float64
	Count           int
}

// ContactListener gets contact events. Callbacks run while the world is locked,
// so they must not create or destroy bodies, fixtures or joints.
type ContactListener interface {
	// BeginContact is called when two fixtures begin to touch.
	BeginContact(c *Contact)

	// EndContact is called when two fixtures cease to touch.
	EndContact(c *Contact)

	// PreSolve is called after a contact is updated and before it goes to the
	// solver. The contact may be disabled here for the current step.
	PreSolve(c *Contact, oldManifold *collision.Manifold)

	// PostSolve reports the impulses after the solver is finished.
	PostSolve(c *Contact, impulse *ContactImpulse)
}

// RayHit is one fixture hit by World.RayCast.
type RayHit struct {
	Fixture    FixtureHandle
	ChildIndex int
	Point      Vec2
	Normal     Vec2
	Fraction   float64
}

// RayCastCallback is called for each fixture hit by the ray. It controls the
// rest of the cast through its return value:
//
//	-1: ignore this fixture and continue
//	 0: terminate the ray cast
//	 fraction: clip the ray to this point
//	 1: don't clip the ray and continue
type RayCastCallback func(hit RayHit) float64
