package box2d

import (
	"github.com/ByteArena/box2d/v2/alloc"
	"github.com/ByteArena/box2d/v2/collision"
)

// bodyEdges is the adjacency of one body in the constraint graph.
type bodyEdges struct {
	contacts []ContactHandle
	joints   []JointHandle
}

func (e *bodyEdges) removeContact(h ContactHandle) {
	if i := indexOf(e.contacts, h); i >= 0 {
		last := len(e.contacts) - 1
		e.contacts[i] = e.contacts[last]
		e.contacts = e.contacts[:last]
	}
}

func (e *bodyEdges) removeJoint(h JointHandle) {
	if i := indexOf(e.joints, h); i >= 0 {
		e.joints = append(e.joints[:i], e.joints[i+1:]...)
	}
}

// contactManager creates contacts from broad-phase pairs and keeps them up to
// date.
type contactManager struct {
	world      *World
	broadPhase *collision.BroadPhase
	contacts   *alloc.Pool[Contact]
	filter     ContactFilter
	listener   ContactListener

	// oldManifold is the PreSolve scratch of Contact.update.
	oldManifold collision.Manifold
}

func (cm *contactManager) contactCount() int {
	return cm.contacts.Len()
}

// addPair is the broad-phase pair callback. It reports whether a contact was
// created; rejected pairs are offered again when a proxy moves.
func (cm *contactManager) addPair(userDataA, userDataB any) bool {
	w := cm.world
	proxyA := userDataA.(*fixtureProxy)
	proxyB := userDataB.(*fixtureProxy)

	fixtureA, fixtureB := proxyA.fixture, proxyB.fixture
	indexA, indexB := proxyA.childIndex, proxyB.childIndex

	// Are the fixtures on the same body?
	if fixtureA.body == fixtureB.body {
		return false
	}

	// Edges and chains never collide with each other.
	if !collision.Collides(fixtureA.Type(), fixtureB.Type()) {
		return false
	}
	bodyA, bodyB := w.body(fixtureA.body), w.body(fixtureB.body)

	// Does a joint override collision? Is at least one body dynamic?
	if !bodyB.shouldCollide(bodyA) {
		return false
	}

	// Check user filtering.
	if cm.filter != nil && !cm.filter.ShouldCollide(fixtureA, fixtureB) {
		return false
	}

	evaluate, swap, _ := collision.Lookup(fixtureA.Type(), fixtureB.Type())
	if swap {
		fixtureA, fixtureB = fixtureB, fixtureA
		indexA, indexB = indexB, indexA
	}

	h, c := cm.contacts.Alloc()
	c.world = w
	c.handle = ContactHandle(h)
	c.init(fixtureA, indexA, fixtureB, indexB, evaluate)

	// Connect to the island graph.
	ea := &w.edges[alloc.Handle(c.bodyA).Index]
	ea.contacts = append(ea.contacts, c.handle)
	eb := &w.edges[alloc.Handle(c.bodyB).Index]
	eb.contacts = append(eb.contacts, c.handle)
	return true
}

// findNewContacts commits proxy movement to the broad phase and creates
// contacts for the new pairs.
func (cm *contactManager) findNewContacts() {
	cm.broadPhase.UpdatePairs(cm.addPair)
}

// destroy removes a contact from the graph and releases its broad-phase pair.
func (cm *contactManager) destroy(c *Contact) {
	w := cm.world
	if cm.listener != nil && c.IsTouching() {
		cm.listener.EndContact(c)
	}

	fa, fb := w.fixture(c.fixtureA), w.fixture(c.fixtureB)
	bodyA, bodyB := w.body(c.bodyA), w.body(c.bodyB)
	if c.manifold.PointCount > 0 && !fa.sensor && !fb.sensor {
		bodyA.SetAwake(true)
		bodyB.SetAwake(true)
	}

	bodyA.edges().removeContact(c.handle)
	bodyB.edges().removeContact(c.handle)

	cm.broadPhase.ReleasePair(c.proxyA, c.proxyB)
	cm.contacts.Free(alloc.Handle(c.handle))
}

// collide is the narrow phase of a step. Contacts flagged for filtering are
// re-filtered, contacts whose fat AABBs no longer overlap are destroyed, and the
// rest are updated when at least one body is awake.
func (cm *contactManager) collide() {
	w := cm.world
	for i := range cm.contacts.Cap() {
		c, ok := cm.contacts.At(i)
		if !ok {
			continue
		}
		fixtureA, fixtureB := w.fixture(c.fixtureA), w.fixture(c.fixtureB)
		bodyA, bodyB := w.body(c.bodyA), w.body(c.bodyB)

		// Is this contact flagged for filtering?
		if c.flags&contactFilter != 0 {
			// Should these bodies collide?
			if !bodyB.shouldCollide(bodyA) {
				cm.destroy(c)
				continue
			}

			// Check user filtering.
			if cm.filter != nil && !cm.filter.ShouldCollide(fixtureA, fixtureB) {
				cm.destroy(c)
				continue
			}

			c.flags &^= contactFilter
		}

		activeA := bodyA.IsAwake() && bodyA.kind != StaticBody
		activeB := bodyB.IsAwake() && bodyB.kind != StaticBody

		// At least one body must be awake and it must be dynamic or kinematic.
		if !activeA && !activeB {
			continue
		}

		// Here we destroy contacts that cease to overlap in the broad phase.
		if !cm.broadPhase.TestOverlap(c.proxyA, c.proxyB) {
			cm.destroy(c)
			continue
		}

		// The contact persists.
		c.update(cm.listener, &cm.oldManifold)
	}
}
