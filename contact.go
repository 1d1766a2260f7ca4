package box2d

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d/v2/collision"
)

// MixFriction mixes the friction of two fixtures. A zero friction on either side
// gives zero.
func MixFriction(friction1, friction2 float64) float64 {
	return math.Sqrt(friction1 * friction2)
}

// MixRestitution mixes the restitution of two fixtures. A bouncy object bounces
// off anything.
func MixRestitution(restitution1, restitution2 float64) float64 {
	return max(restitution1, restitution2)
}

type contactFlags uint8

const (
	// Used when crawling the contact graph to form islands.
	contactIsland contactFlags = 1 << iota

	// Set when the shapes are touching.
	contactTouching

	// This contact can be disabled by the user.
	contactEnabled

	// This contact needs filtering because a fixture filter was changed.
	contactFilter

	// This contact has a valid TOI in toi.
	contactTOI

	// Cleared until the first update.
	contactUpdated
)

// ContactState is the touching state of a contact.
type ContactState uint8

const (
	// ContactCandidate has been created by the broad phase and not updated yet.
	ContactCandidate ContactState = iota
	ContactTouching
	ContactNotTouching
)

func (s ContactState) String() string {
	switch s {
	case ContactCandidate:
		return "candidate"
	case ContactTouching:
		return "touching"
	case ContactNotTouching:
		return "not-touching"
	}
	return fmt.Sprintf("ContactState(%d)", uint8(s))
}

// Contact manages the contact between two shape children. A contact exists for
// each overlapping pair of fat AABBs in the broad phase, so it may exist without
// contact points.
type Contact struct {
	world  *World
	handle ContactHandle

	flags contactFlags

	fixtureA, fixtureB FixtureHandle
	indexA, indexB     int
	bodyA, bodyB       BodyHandle
	proxyA, proxyB     int

	evaluate collision.ManifoldFunc
	manifold collision.Manifold

	// Body indices inside the island, captured when the island is sealed.
	islandIndexA, islandIndexB int

	toiCount int
	toi      float64

	friction     float64
	restitution  float64
	tangentSpeed float64
}

func (c *Contact) Handle() ContactHandle {
	return c.handle
}

// Manifold is the contact manifold in local coordinates. Do not modify it.
func (c *Contact) Manifold() *collision.Manifold {
	return &c.manifold
}

// WorldManifold is the manifold in world coordinates.
func (c *Contact) WorldManifold() collision.WorldManifold {
	w := c.world
	fa, fb := w.fixture(c.fixtureA), w.fixture(c.fixtureB)
	return collision.NewWorldManifold(&c.manifold,
		w.body(c.bodyA).xf, fa.shape.Radius(),
		w.body(c.bodyB).xf, fb.shape.Radius())
}

func (c *Contact) State() ContactState {
	switch {
	case c.flags&contactUpdated == 0:
		return ContactCandidate
	case c.flags&contactTouching != 0:
		return ContactTouching
	}
	return ContactNotTouching
}

// IsTouching reports whether the manifold has points (or sensors overlap).
func (c *Contact) IsTouching() bool {
	return c.flags&contactTouching != 0
}

// SetEnabled disables the contact for the current step only. Call it from
// PreSolve.
func (c *Contact) SetEnabled(flag bool) {
	if flag {
		c.flags |= contactEnabled
	} else {
		c.flags &^= contactEnabled
	}
}

func (c *Contact) IsEnabled() bool {
	return c.flags&contactEnabled != 0
}

func (c *Contact) FixtureA() FixtureHandle { return c.fixtureA }
func (c *Contact) FixtureB() FixtureHandle { return c.fixtureB }
func (c *Contact) ChildIndexA() int        { return c.indexA }
func (c *Contact) ChildIndexB() int        { return c.indexB }
func (c *Contact) BodyA() BodyHandle       { return c.bodyA }
func (c *Contact) BodyB() BodyHandle       { return c.bodyB }

// SetFriction overrides the mixed friction. It persists until ResetFriction.
func (c *Contact) SetFriction(friction float64) {
	c.friction = friction
}

func (c *Contact) Friction() float64 {
	return c.friction
}

// ResetFriction restores the mixed fixture friction.
func (c *Contact) ResetFriction() {
	w := c.world
	c.friction = MixFriction(w.fixture(c.fixtureA).friction, w.fixture(c.fixtureB).friction)
}

// SetRestitution overrides the mixed restitution. It persists until
// ResetRestitution.
func (c *Contact) SetRestitution(restitution float64) {
	c.restitution = restitution
}

func (c *Contact) Restitution() float64 {
	return c.restitution
}

// ResetRestitution restores the mixed fixture restitution.
func (c *Contact) ResetRestitution() {
	w := c.world
	c.restitution = MixRestitution(w.fixture(c.fixtureA).restitution, w.fixture(c.fixtureB).restitution)
}

// SetTangentSpeed sets the desired tangent speed for a conveyor belt, in m/s.
func (c *Contact) SetTangentSpeed(speed float64) {
	c.tangentSpeed = speed
}

func (c *Contact) TangentSpeed() float64 {
	return c.tangentSpeed
}

func (c *Contact) flagForFiltering() {
	c.flags |= contactFilter
}

func (c *Contact) init(fa *Fixture, indexA int, fb *Fixture, indexB int, evaluate collision.ManifoldFunc) {
	c.flags = contactEnabled
	c.fixtureA = fa.handle
	c.fixtureB = fb.handle
	c.indexA = indexA
	c.indexB = indexB
	c.bodyA = fa.body
	c.bodyB = fb.body
	c.proxyA = fa.proxies[indexA].proxyID
	c.proxyB = fb.proxies[indexB].proxyID
	c.evaluate = evaluate
	c.manifold.PointCount = 0
	c.toiCount = 0
	c.friction = MixFriction(fa.friction, fb.friction)
	c.restitution = MixRestitution(fa.restitution, fb.restitution)
	c.tangentSpeed = 0
}

// update recomputes the manifold, carries impulses over to matching points and
// fires the listener. oldManifold is scratch space for the previous manifold,
// handed to PreSolve.
func (c *Contact) update(listener ContactListener, oldManifold *collision.Manifold) {
	w := c.world
	*oldManifold = c.manifold

	// Re-enable this contact.
	c.flags |= contactEnabled | contactUpdated

	wasTouching := c.flags&contactTouching != 0

	fa, fb := w.fixture(c.fixtureA), w.fixture(c.fixtureB)
	sensor := fa.sensor || fb.sensor

	bodyA, bodyB := w.body(c.bodyA), w.body(c.bodyB)
	xfA, xfB := bodyA.xf, bodyB.xf

	var touching bool
	if sensor {
		touching = collision.TestOverlapShapes(fa.shape, c.indexA, fb.shape, c.indexB, xfA, xfB)

		// Sensors don't generate manifolds.
		c.manifold.PointCount = 0
	} else {
		c.evaluate(&c.manifold, fa.shape, c.indexA, xfA, fb.shape, c.indexB, xfB)
		touching = c.manifold.PointCount > 0

		// Match old contact ids to new contact ids and copy the stored impulses to
		// warm start the solver.
		for i := 0; i < c.manifold.PointCount; i++ {
			mp2 := &c.manifold.Points[i]
			mp2.NormalImpulse = 0
			mp2.TangentImpulse = 0
			key := mp2.ID.Key()

			for j := 0; j < oldManifold.PointCount; j++ {
				mp1 := &oldManifold.Points[j]
				if mp1.ID.Key() == key {
					mp2.NormalImpulse = mp1.NormalImpulse
					mp2.TangentImpulse = mp1.TangentImpulse
					break
				}
			}
		}

		if touching != wasTouching {
			bodyA.SetAwake(true)
			bodyB.SetAwake(true)
		}
	}

	if touching {
		c.flags |= contactTouching
	} else {
		c.flags &^= contactTouching
	}

	if listener == nil {
		return
	}
	if !wasTouching && touching {
		listener.BeginContact(c)
	}
	if wasTouching && !touching {
		listener.EndContact(c)
	}
	if !sensor && touching {
		listener.PreSolve(c, oldManifold)
	}
}

// impulse collects the solver impulses for PostSolve.
func (c *Contact) impulse(vc *contactVelocityConstraint) ContactImpulse {
	imp := ContactImpulse{Count: vc.pointCount}
	for j := 0; j < vc.pointCount; j++ {
		imp.NormalImpulses[j] = vc.points[j].normalImpulse
		imp.TangentImpulses[j] = vc.points[j].tangentImpulse
	}
	return imp
}
