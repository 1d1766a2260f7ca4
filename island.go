package box2d

import (
	"math"
	"time"

	"github.com/ByteArena/box2d/v2/common"
)

type postSolveReport struct {
	contact *Contact
	impulse ContactImpulse
}

// island is a set of awake bodies connected by touching contacts and joints.
// Once sealed it carries its own body indices and can be solved independently of
// every other island.
type island struct {
	world    *World
	bodies   []*Body
	contacts []*Contact
	joints   []Joint

	// reports are the PostSolve events, delivered after all islands are solved.
	reports []postSolveReport

	solver contactSolver
	data   solverData

	solveInit     time.Duration
	solveVelocity time.Duration
	solvePosition time.Duration
}

func (isl *island) clear() {
	clear(isl.bodies)
	clear(isl.contacts)
	clear(isl.joints)
	clear(isl.reports)
	isl.bodies = isl.bodies[:0]
	isl.contacts = isl.contacts[:0]
	isl.joints = isl.joints[:0]
	isl.reports = isl.reports[:0]
	isl.solveInit = 0
	isl.solveVelocity = 0
	isl.solvePosition = 0
}

// seal assigns island indices to the bodies and copies them into the contacts
// and joints. Static bodies may belong to several islands, so their islandIndex
// is only meaningful until the next island is sealed.
func (isl *island) seal() {
	for i, b := range isl.bodies {
		b.islandIndex = i
	}
	w := isl.world
	for _, c := range isl.contacts {
		c.islandIndexA = w.body(c.bodyA).islandIndex
		c.islandIndexB = w.body(c.bodyB).islandIndex
	}
	for _, j := range isl.joints {
		j.captureIndices()
	}
}

// solve integrates one step: velocities, velocity constraints, positions and
// position constraints, then writes back to the bodies and manages sleep.
func (isl *island) solve(step timeStep, gravity Vec2, allowSleep bool, stacks *solverStacks) {
	start := time.Now()
	h := step.dt
	n := len(isl.bodies)

	positions := stacks.positions.Alloc(n)
	velocities := stacks.velocities.Alloc(n)

	// Integrate velocities and apply damping. Initialize the body state.
	for i, b := range isl.bodies {
		c, a := b.sweep.C, b.sweep.A
		v, w := b.linearVelocity, b.angularVelocity

		if b.kind != StaticBody {
			// Store positions for continuous collision.
			b.sweep.C0 = b.sweep.C
			b.sweep.A0 = b.sweep.A
		}

		if b.kind == DynamicBody {
			// Integrate velocities.
			v = v.Add(gravity.Mul(b.gravityScale * b.mass).Add(b.force).Mul(h * b.invMass))
			w += h * b.invI * b.torque

			// Apply damping with a Pade approximation:
			//	dv/dt + c * v = 0
			//	v2 = v1 * 1 / (1 + c * dt)
			v = v.Mul(1.0 / (1.0 + h*b.linearDamping))
			w *= 1.0 / (1.0 + h*b.angularDamping)
		}

		positions[i] = position{c, a}
		velocities[i] = velocity{v, w}
	}

	isl.data = solverData{step: step, positions: positions, velocities: velocities}
	data := &isl.data

	// Initialize velocity constraints.
	cs := &isl.solver
	cs.init(step, isl, positions, velocities, stacks)
	cs.initializeVelocityConstraints()

	if step.warmStarting {
		cs.warmStart()
	}

	for _, j := range isl.joints {
		j.initVelocityConstraints(data)
	}
	isl.solveInit += time.Since(start)

	// Solve velocity constraints.
	start = time.Now()
	for i := 0; i < step.velocityIterations; i++ {
		for _, j := range isl.joints {
			j.solveVelocityConstraints(data)
		}
		cs.solveVelocityConstraints()
	}

	// Store impulses for warm starting.
	cs.storeImpulses()
	isl.solveVelocity += time.Since(start)

	// Integrate positions.
	integratePositions(positions, velocities, h)

	// Solve position constraints.
	start = time.Now()
	positionSolved := false
	for i := 0; i < step.positionIterations; i++ {
		contactsOkay := cs.solvePositionConstraints()

		jointsOkay := true
		for _, j := range isl.joints {
			jointOkay := j.solvePositionConstraints(data)
			jointsOkay = jointsOkay && jointOkay
		}

		if contactsOkay && jointsOkay {
			// Exit early if the position errors are small.
			positionSolved = true
			break
		}
	}

	// Copy state buffers back to the bodies.
	for i, b := range isl.bodies {
		if b.kind == StaticBody {
			continue
		}
		b.sweep.C = positions[i].c
		b.sweep.A = positions[i].a
		b.linearVelocity = velocities[i].v
		b.angularVelocity = velocities[i].w
		b.synchronizeTransform()
	}
	isl.solvePosition += time.Since(start)

	isl.report(cs)

	cs.free()
	stacks.velocities.Free(velocities)
	stacks.positions.Free(positions)

	if !allowSleep {
		return
	}

	minSleepTime := common.MaxFloat

	const linTolSqr = common.LinearSleepTolerance * common.LinearSleepTolerance
	const angTolSqr = common.AngularSleepTolerance * common.AngularSleepTolerance

	for _, b := range isl.bodies {
		if b.kind == StaticBody {
			continue
		}

		if b.flags&bodyAutoSleep == 0 ||
			b.angularVelocity*b.angularVelocity > angTolSqr ||
			b.linearVelocity.Dot(b.linearVelocity) > linTolSqr {
			b.sleepTime = 0
			minSleepTime = 0
		} else {
			b.sleepTime += h
			minSleepTime = min(minSleepTime, b.sleepTime)
		}
	}

	if minSleepTime >= common.TimeToSleep && positionSolved {
		for _, b := range isl.bodies {
			b.SetAwake(false)
		}
	}
}

// solveTOI resolves the overlap of a time of impact event and integrates the
// rest of the step. Only the two TOI bodies are moved by the position solver.
func (isl *island) solveTOI(subStep timeStep, toiIndexA, toiIndexB int, stacks *solverStacks) {
	common.Assert(toiIndexA < len(isl.bodies) && toiIndexB < len(isl.bodies), "toi body outside island")

	n := len(isl.bodies)
	positions := stacks.positions.Alloc(n)
	velocities := stacks.velocities.Alloc(n)

	// Initialize the body state.
	for i, b := range isl.bodies {
		positions[i] = position{b.sweep.C, b.sweep.A}
		velocities[i] = velocity{b.linearVelocity, b.angularVelocity}
	}

	cs := &isl.solver
	cs.init(subStep, isl, positions, velocities, stacks)

	// Solve position constraints.
	for i := 0; i < subStep.positionIterations; i++ {
		if cs.solveTOIPositionConstraints(toiIndexA, toiIndexB) {
			break
		}
	}

	// Leap of faith to new safe state.
	bA, bB := isl.bodies[toiIndexA], isl.bodies[toiIndexB]
	bA.sweep.C0 = positions[toiIndexA].c
	bA.sweep.A0 = positions[toiIndexA].a
	bB.sweep.C0 = positions[toiIndexB].c
	bB.sweep.A0 = positions[toiIndexB].a

	// No warm starting is needed for TOI events because warm starting impulses
	// were applied in the discrete solver.
	cs.initializeVelocityConstraints()

	// Solve velocity constraints.
	for i := 0; i < subStep.velocityIterations; i++ {
		cs.solveVelocityConstraints()
	}

	// Don't store the TOI contact forces for warm starting because they can be
	// quite large.

	integratePositions(positions, velocities, subStep.dt)

	// Sync bodies.
	for i, b := range isl.bodies {
		if b.kind == StaticBody {
			continue
		}
		b.sweep.C = positions[i].c
		b.sweep.A = positions[i].a
		b.linearVelocity = velocities[i].v
		b.angularVelocity = velocities[i].w
		b.synchronizeTransform()
	}

	isl.report(cs)

	cs.free()
	stacks.velocities.Free(velocities)
	stacks.positions.Free(positions)
}

// integratePositions advances positions by one step, clamping large velocities.
func integratePositions(positions []position, velocities []velocity, h float64) {
	for i := range positions {
		c, a := positions[i].c, positions[i].a
		v, w := velocities[i].v, velocities[i].w

		// Check for large velocities.
		translation := v.Mul(h)
		if translation.Dot(translation) > common.MaxTranslationSquared {
			ratio := common.MaxTranslation / translation.Len()
			v = v.Mul(ratio)
		}

		rotation := h * w
		if rotation*rotation > common.MaxRotationSquared {
			ratio := common.MaxRotation / math.Abs(rotation)
			w *= ratio
		}

		// Integrate
		c = c.Add(v.Mul(h))
		a += h * w

		positions[i] = position{c, a}
		velocities[i] = velocity{v, w}
	}
}

func (isl *island) report(cs *contactSolver) {
	if isl.world.listener == nil {
		return
	}
	for i := range cs.velocityConstraints {
		vc := &cs.velocityConstraints[i]
		c := isl.contacts[vc.contactIndex]
		isl.reports = append(isl.reports, postSolveReport{contact: c, impulse: c.impulse(vc)})
	}
}

// deliver hands the PostSolve reports to the listener.
func (isl *island) deliver(listener ContactListener) {
	for i := range isl.reports {
		listener.PostSolve(isl.reports[i].contact, &isl.reports[i].impulse)
	}
	clear(isl.reports)
	isl.reports = isl.reports[:0]
}
