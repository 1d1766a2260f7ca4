// Package box2d is a 2D rigid-body physics engine. A World owns bodies, their
// fixtures and the joints between them, and advances the simulation in discrete
// steps: broad phase, narrow phase, an island-based sequential-impulse solver
// and a continuous collision pass.
package box2d

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ByteArena/box2d/v2/alloc"
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

// World manages all physics entities, dynamic simulation and asynchronous
// queries. Bodies, fixtures and joints are referenced by handle.
type World struct {
	contactManager

	bodies   *alloc.Pool[Body]
	fixtures *alloc.Pool[Fixture]
	joints   *jointPools

	// edges is the constraint graph adjacency, indexed by body handle index.
	edges []bodyEdges

	destructionListener DestructionListener
	logger              *slog.Logger

	gravity Vec2

	// newContacts is set when fixtures were added and new pairs must be found
	// before the next step.
	newContacts bool
	locked      bool
	clearForces bool

	// stepComplete is false when the TOI pass stopped early in sub-stepping mode.
	stepComplete bool

	// invDt0 is the inverse of the previous time step, used to scale warm starting
	// impulses when the time step changes.
	invDt0 float64

	islands   []island
	bodyStack []*Body
	stacks    []*solverStacks
	toiIsland island

	profile Profile
}

// NewWorld constructs a world with the given gravity.
func NewWorld(gravity Vec2) *World {
	w := &World{
		bodies:       alloc.NewPool[Body](),
		fixtures:     alloc.NewPool[Fixture](),
		joints:       newJointPools(),
		gravity:      gravity,
		clearForces:  true,
		stepComplete: true,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		stacks:       []*solverStacks{newSolverStacks()},
	}
	w.contactManager = contactManager{
		world:      w,
		broadPhase: collision.NewBroadPhase(),
		contacts:   alloc.NewPool[Contact](),
		filter:     DefaultContactFilter{},
	}
	w.toiIsland.world = w
	return w
}

// SetLogger sets the logger used by Dump and for solver diagnostics. A nil
// logger discards.
func (w *World) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	w.logger = logger
}

// SetDestructionListener registers a listener for implicit destruction.
func (w *World) SetDestructionListener(listener DestructionListener) {
	w.destructionListener = listener
}

// SetContactFilter replaces the default category/mask/group filter.
func (w *World) SetContactFilter(filter ContactFilter) {
	w.filter = filter
}

// SetContactListener registers a listener for contact events.
func (w *World) SetContactListener(listener ContactListener) {
	w.listener = listener
}

func (w *World) assertUnlocked() {
	common.Assert(!w.locked, "world is locked during a time step")
}

func (w *World) body(h BodyHandle) *Body {
	return w.bodies.MustGet(alloc.Handle(h))
}

func (w *World) fixture(h FixtureHandle) *Fixture {
	return w.fixtures.MustGet(alloc.Handle(h))
}

func (w *World) contact(h ContactHandle) *Contact {
	return w.contacts.MustGet(alloc.Handle(h))
}

func (w *World) joint(h JointHandle) Joint {
	return w.joints.mustGet(h)
}

// CreateBody creates a rigid body. Panics while the world is locked.
func (w *World) CreateBody(def *BodyDef) BodyHandle {
	w.assertUnlocked()

	h, b := w.bodies.Alloc()
	b.world = w
	b.handle = BodyHandle(h)
	b.create(def)

	for int(h.Index) >= len(w.edges) {
		w.edges = append(w.edges, bodyEdges{})
	}
	w.edges[h.Index] = bodyEdges{}
	return b.handle
}

// DestroyBody destroys a body with its joints, contacts and fixtures. The
// destruction listener is told about the joints and fixtures. Panics while the
// world is locked or on a stale handle.
func (w *World) DestroyBody(h BodyHandle) {
	w.assertUnlocked()
	b := w.body(h)

	// Delete the attached joints.
	for _, jh := range append([]JointHandle(nil), b.edges().joints...) {
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeJoint(w.joint(jh))
		}
		w.DestroyJoint(jh)
	}

	// Delete the attached contacts.
	for _, ch := range append([]ContactHandle(nil), b.edges().contacts...) {
		w.destroyContact(w.contact(ch))
	}

	// Delete the attached fixtures. This destroys broad-phase proxies.
	for _, fh := range b.fixtures {
		f := w.fixture(fh)
		if w.destructionListener != nil {
			w.destructionListener.SayGoodbyeFixture(f)
		}
		f.destroyProxies(w.broadPhase)
		w.fixtures.Free(alloc.Handle(fh))
	}
	b.fixtures = nil

	w.edges[alloc.Handle(h).Index] = bodyEdges{}
	w.bodies.Free(alloc.Handle(h))
}

func (w *World) destroyContact(c *Contact) {
	w.contactManager.destroy(c)
}

// Body resolves a handle. Panics on a stale handle.
func (w *World) Body(h BodyHandle) *Body {
	return w.body(h)
}

// LookupBody resolves a handle and reports false for stale handles.
func (w *World) LookupBody(h BodyHandle) (*Body, bool) {
	return w.bodies.Get(alloc.Handle(h))
}

// Fixture resolves a handle. Panics on a stale handle.
func (w *World) Fixture(h FixtureHandle) *Fixture {
	return w.fixture(h)
}

// Joint resolves a handle. Panics on a stale handle.
func (w *World) Joint(h JointHandle) Joint {
	return w.joint(h)
}

// Contact resolves a handle. Contacts come and go every step; panics on a
// stale handle.
func (w *World) Contact(h ContactHandle) *Contact {
	return w.contact(h)
}

// Bodies yields every body in handle order.
func (w *World) Bodies() iter.Seq[*Body] {
	return func(yield func(*Body) bool) {
		for _, b := range w.bodies.All() {
			if !yield(b) {
				return
			}
		}
	}
}

// LookupJoint resolves a handle and reports false for stale handles.
func (w *World) LookupJoint(h JointHandle) (Joint, bool) {
	return w.joints.get(h)
}

// Joints yields every joint, grouped by type and in handle order within a type.
func (w *World) Joints() iter.Seq[Joint] {
	return w.joints.each
}

// Contacts yields every contact, touching or not, in handle order.
func (w *World) Contacts() iter.Seq[*Contact] {
	return func(yield func(*Contact) bool) {
		for _, c := range w.contacts.All() {
			if !yield(c) {
				return
			}
		}
	}
}

// CreateJoint creates a joint from its definition. Both bodies are woken and
// contacts between them are re-filtered when the joint disables collision.
// Panics while the world is locked or when both bodies are the same.
func (w *World) CreateJoint(def JointDef) JointHandle {
	w.assertUnlocked()

	base := def.base()
	common.Assert(base.BodyA != base.BodyB, "joint connects a body to itself")
	bodyA, bodyB := w.body(base.BodyA), w.body(base.BodyB)

	j := newJoint(w, def)

	// Connect to the bodies' adjacency lists.
	ea := bodyA.edges()
	ea.joints = append(ea.joints, j.Handle())
	eb := bodyB.edges()
	eb.joints = append(eb.joints, j.Handle())

	// If the joint prevents collisions, then flag any contacts for filtering.
	if !base.CollideConnected {
		w.flagContactsBetween(bodyA, bodyB)
	}

	bodyA.SetAwake(true)
	bodyB.SetAwake(true)
	return j.Handle()
}

// DestroyJoint destroys a joint and wakes its bodies. Panics while the world is
// locked or on a stale handle.
func (w *World) DestroyJoint(h JointHandle) {
	w.assertUnlocked()

	j := w.joint(h)
	base := j.base()
	collideConnected := base.collideConnected

	bodyA, bodyB := w.body(base.bodyA), w.body(base.bodyB)

	// Wake up connected bodies.
	bodyA.SetAwake(true)
	bodyB.SetAwake(true)

	// Disconnect from the island graph.
	bodyA.edges().removeJoint(h)
	bodyB.edges().removeJoint(h)

	w.joints.free(h)

	// If the joint prevents collisions, then flag any contacts for filtering.
	if !collideConnected {
		w.flagContactsBetween(bodyA, bodyB)
	}
}

func (w *World) flagContactsBetween(bodyA, bodyB *Body) {
	for _, ch := range bodyB.edges().contacts {
		c := w.contact(ch)
		if c.bodyA == bodyA.handle || c.bodyB == bodyA.handle {
			// Flag the contact for filtering at the next time step (where either
			// body is awake).
			c.flagForFiltering()
		}
	}
}

// Step advances the world by dt: collision detection, integration and
// constraint solution. Panics if called from a callback during a step.
func (w *World) Step(dt float64, cfg StepConfig) {
	w.assertUnlocked()
	stepStart := time.Now()

	// If new fixtures were added, we need to find the new contacts.
	if w.newContacts {
		w.findNewContacts()
		w.newContacts = false
	}

	w.locked = true
	defer func() { w.locked = false }()

	step := timeStep{
		dt:                 dt,
		velocityIterations: cfg.VelocityIterations,
		positionIterations: cfg.PositionIterations,
		warmStarting:       cfg.WarmStarting,
	}
	if dt > 0 {
		step.invDt = 1.0 / dt
	}
	step.dtRatio = w.invDt0 * dt

	// Update contacts. This is where some contacts are destroyed.
	start := time.Now()
	w.collide()
	w.profile.Collide = time.Since(start)

	// Integrate velocities, solve velocity constraints, and integrate positions.
	w.profile.Solve = 0
	if w.stepComplete && step.dt > 0 {
		start = time.Now()
		w.solve(step, cfg)
		w.profile.Solve = time.Since(start)
	}

	// Handle TOI events.
	w.profile.SolveTOI = 0
	if cfg.Continuous && step.dt > 0 {
		start = time.Now()
		w.solveTOI(step, cfg.SubStepping)
		w.profile.SolveTOI = time.Since(start)
	}

	if step.dt > 0 {
		w.invDt0 = step.invDt
	}

	if w.clearForces {
		w.ClearForces()
	}

	w.profile.Step = time.Since(stepStart)
}

// StepIterations steps with the default configuration and the given iteration
// counts.
func (w *World) StepIterations(dt float64, velocityIterations, positionIterations int) {
	cfg := DefaultStepConfig()
	cfg.VelocityIterations = velocityIterations
	cfg.PositionIterations = positionIterations
	w.Step(dt, cfg)
}

// solve finds the awake islands and solves them, in parallel when the config
// asks for more than one worker.
func (w *World) solve(step timeStep, cfg StepConfig) {
	w.profile.SolveInit = 0
	w.profile.SolveVelocity = 0
	w.profile.SolvePosition = 0

	w.buildIslands()

	workers := max(cfg.Workers, 1)
	for len(w.stacks) < workers {
		w.stacks = append(w.stacks, newSolverStacks())
	}

	if workers == 1 || len(w.islands) < 2 {
		for i := range w.islands {
			w.islands[i].solve(step, w.gravity, cfg.AllowSleep, w.stacks[0])
		}
	} else {
		w.solveParallel(step, cfg.AllowSleep, workers)
	}

	for i := range w.islands {
		isl := &w.islands[i]
		w.profile.SolveInit += isl.solveInit
		w.profile.SolveVelocity += isl.solveVelocity
		w.profile.SolvePosition += isl.solvePosition
		if w.listener != nil {
			isl.deliver(w.listener)
		}
	}
	for _, s := range w.stacks {
		s.reset()
	}

	start := time.Now()

	// Synchronize fixtures, check for out of range bodies.
	for i := range w.bodies.Cap() {
		b, ok := w.bodies.At(i)
		if !ok {
			continue
		}
		// If a body was not in an island then it did not move.
		if b.flags&bodyIsland == 0 || b.kind == StaticBody {
			continue
		}

		// Update fixtures (for broad phase).
		b.synchronizeFixtures()
	}

	// Look for new contacts.
	w.findNewContacts()
	w.profile.Broadphase = time.Since(start)
}

// solveParallel hands islands to a fixed set of workers. Each worker owns its
// stack allocators; islands share no mutable state once sealed.
func (w *World) solveParallel(step timeStep, allowSleep bool, workers int) {
	var next atomic.Int64
	g, ctx := errgroup.WithContext(context.Background())

	for k := 0; k < workers; k++ {
		stacks := w.stacks[k]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("island solver: %v", r)
				}
			}()
			for ctx.Err() == nil {
				i := int(next.Add(1) - 1)
				if i >= len(w.islands) {
					return nil
				}
				w.islands[i].solve(step, w.gravity, allowSleep, stacks)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		panic(err)
	}
}

// buildIslands runs a depth first search over the constraint graph from every
// awake non-static body. Static bodies anchor islands without joining them.
func (w *World) buildIslands() {
	// Clear all the island flags.
	for i := range w.bodies.Cap() {
		b, ok := w.bodies.At(i)
		if !ok {
			continue
		}
		b.flags &^= bodyIsland
	}
	for i := range w.contacts.Cap() {
		c, ok := w.contacts.At(i)
		if !ok {
			continue
		}
		c.flags &^= contactIsland
	}
	w.joints.each(clearJointIslandFlag)

	for i := range w.islands {
		w.islands[i].clear()
	}
	w.islands = w.islands[:0]

	stack := w.bodyStack[:0]
	for i := range w.bodies.Cap() {
		seed, ok := w.bodies.At(i)
		if !ok {
			continue
		}
		if seed.flags&bodyIsland != 0 {
			continue
		}
		if !seed.IsAwake() || !seed.IsEnabled() {
			continue
		}

		// The seed can be dynamic or kinematic.
		if seed.kind == StaticBody {
			continue
		}

		isl := w.nextIsland()
		stack = append(stack[:0], seed)
		seed.flags |= bodyIsland

		// Perform a depth first search (DFS) on the constraint graph.
		for len(stack) > 0 {
			// Grab the next body off the stack and add it to the island.
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			common.Assert(b.IsEnabled(), "disabled body in island")
			isl.bodies = append(isl.bodies, b)

			// To keep islands as small as possible, we don't propagate islands
			// across static bodies.
			if b.kind == StaticBody {
				continue
			}

			// Make sure the body is awake (without resetting sleep timer).
			b.flags |= bodyAwake

			edges := b.edges()

			// Search all contacts connected to this body.
			for _, ch := range edges.contacts {
				c := w.contact(ch)

				// Has this contact already been added to an island?
				if c.flags&contactIsland != 0 {
					continue
				}

				// Is this contact solid and touching?
				if !c.IsEnabled() || !c.IsTouching() {
					continue
				}

				// Skip sensors.
				if w.fixture(c.fixtureA).sensor || w.fixture(c.fixtureB).sensor {
					continue
				}

				isl.contacts = append(isl.contacts, c)
				c.flags |= contactIsland

				otherHandle := c.bodyA
				if otherHandle == b.handle {
					otherHandle = c.bodyB
				}
				other := w.body(otherHandle)

				// Was the other body already added to this island?
				if other.flags&bodyIsland != 0 {
					continue
				}
				stack = append(stack, other)
				other.flags |= bodyIsland
			}

			// Search all joints connected to this body.
			for _, jh := range edges.joints {
				j := w.joint(jh)
				base := j.base()
				if base.islandFlag {
					continue
				}

				other := w.body(base.other(b.handle))

				// Don't simulate joints connected to disabled bodies.
				if !other.IsEnabled() {
					continue
				}

				isl.joints = append(isl.joints, j)
				base.islandFlag = true

				if other.flags&bodyIsland != 0 {
					continue
				}
				stack = append(stack, other)
				other.flags |= bodyIsland
			}
		}

		isl.seal()

		// Allow static bodies to participate in other islands.
		for _, b := range isl.bodies {
			if b.kind == StaticBody {
				b.flags &^= bodyIsland
			}
		}
	}
	w.bodyStack = stack[:0]
}

func clearJointIslandFlag(j Joint) bool {
	j.base().islandFlag = false
	return true
}

func (w *World) nextIsland() *island {
	if len(w.islands) < cap(w.islands) {
		w.islands = w.islands[:len(w.islands)+1]
	} else {
		w.islands = append(w.islands, island{})
	}
	isl := &w.islands[len(w.islands)-1]
	isl.world = w
	return isl
}

// ClearForces zeroes the accumulated forces. Done automatically after each step
// unless SetAutoClearForces(false).
func (w *World) ClearForces() {
	for i := range w.bodies.Cap() {
		b, ok := w.bodies.At(i)
		if !ok {
			continue
		}
		b.force = Vec2{}
		b.torque = 0
	}
}

// SetAutoClearForces controls force clearing after each step. Disable it to
// apply a constant force across sub-stepped calls.
func (w *World) SetAutoClearForces(flag bool) {
	w.clearForces = flag
}

func (w *World) AutoClearForces() bool {
	return w.clearForces
}

func (w *World) SetGravity(gravity Vec2) {
	w.gravity = gravity
}

func (w *World) Gravity() Vec2 {
	return w.gravity
}

// Locked reports whether the world is in the middle of a step.
func (w *World) Locked() bool {
	return w.locked
}

// Profile returns the timings of the last step.
func (w *World) Profile() Profile {
	return w.profile
}

func (w *World) BodyCount() int    { return w.bodies.Len() }
func (w *World) JointCount() int   { return w.joints.count() }
func (w *World) ContactCount() int { return w.contactCount() }
func (w *World) ProxyCount() int   { return w.broadPhase.ProxyCount() }

// TreeHeight is the height of the broad-phase dynamic tree.
func (w *World) TreeHeight() int {
	return w.broadPhase.TreeHeight()
}

// TreeBalance is the largest height difference between sibling subtrees.
func (w *World) TreeBalance() int {
	return w.broadPhase.TreeBalance()
}

// TreeQuality is the ratio of the summed node perimeters to the root perimeter.
func (w *World) TreeQuality() float64 {
	return w.broadPhase.TreeQuality()
}

// ShiftOrigin moves the world origin, for large worlds. The body shift formula
// is position -= newOrigin. Panics while the world is locked.
func (w *World) ShiftOrigin(newOrigin Vec2) {
	w.assertUnlocked()

	for b := range w.Bodies() {
		b.xf.P = b.xf.P.Sub(newOrigin)
		b.sweep.C0 = b.sweep.C0.Sub(newOrigin)
		b.sweep.C = b.sweep.C.Sub(newOrigin)
	}
	for j := range w.Joints() {
		j.shiftOrigin(newOrigin)
	}
	w.broadPhase.ShiftOrigin(newOrigin)
	w.logger.Debug("world origin shifted", "x", newOrigin[0], "y", newOrigin[1])
}

// Dump logs the world as a sequence of records that describe every body,
// fixture and joint. The world must not be stepping.
func (w *World) Dump() {
	if w.locked {
		return
	}

	log := w.logger
	log.Info("world", "gravity", fmtVec(w.gravity), "bodies", w.BodyCount(), "joints", w.JointCount())

	index := map[BodyHandle]int{}
	i := 0
	for b := range w.Bodies() {
		index[b.handle] = i
		log.Info("body",
			"index", i,
			"type", b.kind.String(),
			"position", fmtVec(b.xf.P),
			"angle", b.sweep.A,
			"linearVelocity", fmtVec(b.linearVelocity),
			"angularVelocity", b.angularVelocity,
			"linearDamping", b.linearDamping,
			"angularDamping", b.angularDamping,
			"allowSleep", b.flags&bodyAutoSleep != 0,
			"awake", b.flags&bodyAwake != 0,
			"fixedRotation", b.flags&bodyFixedRotation != 0,
			"bullet", b.flags&bodyBullet != 0,
			"enabled", b.flags&bodyEnabled != 0,
			"gravityScale", b.gravityScale,
		)
		for _, fh := range b.fixtures {
			f := w.fixture(fh)
			log.Info("fixture",
				"body", i,
				"shape", f.shape.Type().String(),
				"radius", f.shape.Radius(),
				"friction", f.friction,
				"restitution", f.restitution,
				"density", f.density,
				"sensor", f.sensor,
				"category", f.filter.CategoryBits,
				"mask", f.filter.MaskBits,
				"group", f.filter.GroupIndex,
			)
		}
		i++
	}

	i = 0
	for j := range w.Joints() {
		base := j.base()
		log.Info("joint",
			"index", i,
			"type", base.kind.String(),
			"bodyA", index[base.bodyA],
			"bodyB", index[base.bodyB],
			"collideConnected", base.collideConnected,
			"anchorA", fmtVec(j.AnchorA()),
			"anchorB", fmtVec(j.AnchorB()),
		)
		i++
	}
}

func fmtVec(v Vec2) string {
	return fmt.Sprintf("(%.9g, %.9g)", v[0], v[1])
}
