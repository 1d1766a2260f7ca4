package box2d

import (
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

// solveTOI finds the earliest time of impact among contacts of fast bodies,
// advances the pair to that time, solves a small island around it and repeats
// until no impact remains in the step. With sub-stepping only the first impact
// is handled and the step is left incomplete.
func (w *World) solveTOI(step timeStep, subStepping bool) {
	isl := &w.toiIsland

	if w.stepComplete {
		for i := range w.bodies.Cap() {
			b, ok := w.bodies.At(i)
			if !ok {
				continue
			}
			b.flags &^= bodyIsland | bodyFast
			b.sweep.Alpha0 = 0
			if b.isFast() {
				b.flags |= bodyFast
			}
		}

		for i := range w.contacts.Cap() {
			c, ok := w.contacts.At(i)
			if !ok {
				continue
			}
			// Invalidate TOI
			c.flags &^= contactTOI | contactIsland
			c.toiCount = 0
			c.toi = 1
		}
	}

	// Find TOI events and solve them.
	for {
		minContact, minAlpha := w.findMinTOI()

		if minContact == nil || 1.0-10.0*common.Epsilon < minAlpha {
			// No more TOI events. Done!
			w.stepComplete = true
			break
		}

		// Advance the bodies to the TOI.
		bA, bB := w.body(minContact.bodyA), w.body(minContact.bodyB)

		backup1, backup2 := bA.sweep, bB.sweep

		bA.advance(minAlpha)
		bB.advance(minAlpha)

		// The TOI contact likely has some new contact points.
		minContact.update(w.listener, &w.oldManifold)
		minContact.flags &^= contactTOI
		minContact.toiCount++
		if minContact.toiCount == common.MaxSubSteps {
			w.logger.Debug("contact reached the sub-step limit",
				"bodyA", minContact.bodyA, "bodyB", minContact.bodyB, "subSteps", minContact.toiCount)
		}

		// Is the contact solid?
		if !minContact.IsEnabled() || !minContact.IsTouching() {
			// Restore the sweeps.
			minContact.SetEnabled(false)
			bA.sweep, bB.sweep = backup1, backup2
			bA.synchronizeTransform()
			bB.synchronizeTransform()
			continue
		}

		bA.SetAwake(true)
		bB.SetAwake(true)

		// Build the island
		isl.clear()
		isl.bodies = append(isl.bodies, bA, bB)
		isl.contacts = append(isl.contacts, minContact)

		bA.flags |= bodyIsland
		bB.flags |= bodyIsland
		minContact.flags |= contactIsland

		// Get contacts on bodyA and bodyB.
		w.growTOIIsland(isl, bA, minAlpha)
		w.growTOIIsland(isl, bB, minAlpha)

		subStep := timeStep{
			dt:                 (1.0 - minAlpha) * step.dt,
			dtRatio:            1,
			positionIterations: 20,
			velocityIterations: step.velocityIterations,
			warmStarting:       false,
		}
		subStep.invDt = 1.0 / subStep.dt

		isl.seal()
		isl.solveTOI(subStep, bA.islandIndex, bB.islandIndex, w.stacks[0])
		if w.listener != nil {
			isl.deliver(w.listener)
		}

		// Reset island flags and synchronize broad-phase proxies.
		for _, b := range isl.bodies {
			b.flags &^= bodyIsland

			if b.kind != DynamicBody {
				continue
			}

			b.synchronizeFixtures()

			// Invalidate all contact TOIs on this displaced body.
			for _, ch := range b.edges().contacts {
				w.contact(ch).flags &^= contactTOI | contactIsland
			}
		}

		// Commit fixture proxy movements to the broad phase so that new contacts
		// are created. Also, some contacts can be destroyed.
		w.findNewContacts()

		if subStepping {
			w.stepComplete = false
			break
		}
	}
	isl.clear()
}

// findMinTOI computes the missing TOIs and returns the earliest one.
func (w *World) findMinTOI() (*Contact, float64) {
	var minContact *Contact
	minAlpha := 1.0

	for i := range w.contacts.Cap() {
		c, ok := w.contacts.At(i)
		if !ok {
			continue
		}
		// Is this contact disabled?
		if !c.IsEnabled() {
			continue
		}

		// Prevent excessive sub-stepping.
		if c.toiCount >= common.MaxSubSteps {
			continue
		}

		alpha := 1.0
		if c.flags&contactTOI != 0 {
			// This contact has a valid cached TOI.
			alpha = c.toi
		} else {
			fA, fB := w.fixture(c.fixtureA), w.fixture(c.fixtureB)

			// Is there a sensor?
			if fA.sensor || fB.sensor {
				continue
			}

			bA, bB := w.body(c.bodyA), w.body(c.bodyB)
			common.Assert(bA.kind == DynamicBody || bB.kind == DynamicBody, "contact without a dynamic body")

			activeA := bA.IsAwake() && bA.kind != StaticBody
			activeB := bB.IsAwake() && bB.kind != StaticBody

			// Is at least one body active (awake and dynamic or kinematic)?
			if !activeA && !activeB {
				continue
			}

			// Only fast bodies can tunnel.
			if bA.flags&bodyFast == 0 && bB.flags&bodyFast == 0 {
				continue
			}

			collideA := bA.IsBullet() || bA.kind != DynamicBody
			collideB := bB.IsBullet() || bB.kind != DynamicBody

			// Are these two non-bullet dynamic bodies?
			if !collideA && !collideB {
				continue
			}

			// Compute the TOI for this contact. Put the sweeps onto the same time
			// interval.
			alpha0 := bA.sweep.Alpha0
			if bA.sweep.Alpha0 < bB.sweep.Alpha0 {
				alpha0 = bB.sweep.Alpha0
				bA.sweep.Advance(alpha0)
			} else if bB.sweep.Alpha0 < bA.sweep.Alpha0 {
				alpha0 = bA.sweep.Alpha0
				bB.sweep.Advance(alpha0)
			}
			common.Assert(alpha0 < 1.0, "sweep advanced past the step")

			input := collision.TOIInput{
				ProxyA: collision.NewDistanceProxy(fA.shape, c.indexA),
				ProxyB: collision.NewDistanceProxy(fB.shape, c.indexB),
				SweepA: bA.sweep,
				SweepB: bB.sweep,
				TMax:   1.0,
			}
			output := collision.TimeOfImpact(&input)

			// Beta is the fraction of the remaining portion of the sweep.
			if output.State == collision.TOITouching {
				alpha = min(alpha0+(1.0-alpha0)*output.T, 1.0)
			}

			c.toi = alpha
			c.flags |= contactTOI
		}

		if alpha < minAlpha {
			// This is the minimum TOI found so far.
			minContact = c
			minAlpha = alpha
		}
	}
	return minContact, minAlpha
}

// growTOIIsland adds the touching contacts of a dynamic TOI body and the bodies
// they reach, advanced to the impact time.
func (w *World) growTOIIsland(isl *island, body *Body, minAlpha float64) {
	if body.kind != DynamicBody {
		return
	}

	for _, ch := range body.edges().contacts {
		if len(isl.bodies) == 2*common.MaxTOIContacts || len(isl.contacts) == common.MaxTOIContacts {
			break
		}

		c := w.contact(ch)

		// Has this contact already been added to the island?
		if c.flags&contactIsland != 0 {
			continue
		}

		otherHandle := c.bodyA
		if otherHandle == body.handle {
			otherHandle = c.bodyB
		}
		other := w.body(otherHandle)

		// Only add static, kinematic, or bullet bodies.
		if other.kind == DynamicBody && !body.IsBullet() && !other.IsBullet() {
			continue
		}

		// Skip sensors.
		if w.fixture(c.fixtureA).sensor || w.fixture(c.fixtureB).sensor {
			continue
		}

		// Tentatively advance the body to the TOI.
		backup := other.sweep
		if other.flags&bodyIsland == 0 {
			other.advance(minAlpha)
		}

		// Update the contact points.
		c.update(w.listener, &w.oldManifold)

		// Was the contact disabled by the user? Are there contact points?
		if !c.IsEnabled() || !c.IsTouching() {
			other.sweep = backup
			other.synchronizeTransform()
			continue
		}

		// Add the contact to the island.
		c.flags |= contactIsland
		isl.contacts = append(isl.contacts, c)

		// Has the other body already been added to the island?
		if other.flags&bodyIsland != 0 {
			continue
		}

		// Add the other body to the island.
		other.flags |= bodyIsland

		if other.kind != StaticBody {
			other.SetAwake(true)
		}

		isl.bodies = append(isl.bodies, other)
	}
}
