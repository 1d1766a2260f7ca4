package box2d

import (
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

// blockSolve enables the two-point block solver for normal impulses.
const blockSolve = true

// maxConditionNumber guards the inversion of the 2x2 block mass matrix.
const maxConditionNumber = 1000.0

type velocityConstraintPoint struct {
	rA, rB         Vec2
	normalImpulse  float64
	tangentImpulse float64
	normalMass     float64
	tangentMass    float64
	velocityBias   float64
}

type contactVelocityConstraint struct {
	points         [common.MaxManifoldPoints]velocityConstraintPoint
	normal         Vec2
	normalMass     common.Mat22
	k              common.Mat22
	indexA, indexB int
	invMassA       float64
	invMassB       float64
	invIA, invIB   float64
	friction       float64
	restitution    float64
	tangentSpeed   float64
	pointCount     int
	contactIndex   int
}

type contactPositionConstraint struct {
	localPoints                [common.MaxManifoldPoints]Vec2
	localNormal                Vec2
	localPoint                 Vec2
	indexA, indexB             int
	invMassA, invMassB         float64
	localCenterA, localCenterB Vec2
	invIA, invIB               float64
	kind                       collision.ManifoldType
	radiusA, radiusB           float64
	pointCount                 int
}

type contactSolver struct {
	step                timeStep
	positions           []position
	velocities          []velocity
	stacks              *solverStacks
	positionConstraints []contactPositionConstraint
	velocityConstraints []contactVelocityConstraint
	contacts            []*Contact
}

// init initializes the position independent portions of the constraints. The
// island must be sealed so contacts carry island body indices.
func (s *contactSolver) init(step timeStep, isl *island, positions []position, velocities []velocity, stacks *solverStacks) {
	count := len(isl.contacts)
	*s = contactSolver{
		step:                step,
		positions:           positions,
		velocities:          velocities,
		stacks:              stacks,
		contacts:            isl.contacts,
		positionConstraints: stacks.positionCs.Alloc(count),
		velocityConstraints: stacks.velocityCs.Alloc(count),
	}

	w := isl.world
	for i, c := range isl.contacts {
		fixtureA, fixtureB := w.fixture(c.fixtureA), w.fixture(c.fixtureB)
		radiusA, radiusB := fixtureA.shape.Radius(), fixtureB.shape.Radius()
		bodyA, bodyB := isl.bodies[c.islandIndexA], isl.bodies[c.islandIndexB]
		manifold := &c.manifold

		pointCount := manifold.PointCount
		common.Assert(pointCount > 0, "solving a contact without points")

		vc := &s.velocityConstraints[i]
		vc.friction = c.friction
		vc.restitution = c.restitution
		vc.tangentSpeed = c.tangentSpeed
		vc.indexA = c.islandIndexA
		vc.indexB = c.islandIndexB
		vc.invMassA = bodyA.invMass
		vc.invMassB = bodyB.invMass
		vc.invIA = bodyA.invI
		vc.invIB = bodyB.invI
		vc.contactIndex = i
		vc.pointCount = pointCount

		pc := &s.positionConstraints[i]
		pc.indexA = c.islandIndexA
		pc.indexB = c.islandIndexB
		pc.invMassA = bodyA.invMass
		pc.invMassB = bodyB.invMass
		pc.localCenterA = bodyA.sweep.LocalCenter
		pc.localCenterB = bodyB.sweep.LocalCenter
		pc.invIA = bodyA.invI
		pc.invIB = bodyB.invI
		pc.localNormal = manifold.LocalNormal
		pc.localPoint = manifold.LocalPoint
		pc.pointCount = pointCount
		pc.radiusA = radiusA
		pc.radiusB = radiusB
		pc.kind = manifold.Type

		for j := 0; j < pointCount; j++ {
			cp := &manifold.Points[j]
			vcp := &vc.points[j]
			if step.warmStarting {
				vcp.normalImpulse = step.dtRatio * cp.NormalImpulse
				vcp.tangentImpulse = step.dtRatio * cp.TangentImpulse
			}
			pc.localPoints[j] = cp.LocalPoint
		}
	}
}

// free returns the constraint buffers to the worker stacks.
func (s *contactSolver) free() {
	s.stacks.velocityCs.Free(s.velocityConstraints)
	s.stacks.positionCs.Free(s.positionConstraints)
}

func (s *contactSolver) initializeVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		pc := &s.positionConstraints[i]

		manifold := &s.contacts[vc.contactIndex].manifold

		indexA, indexB := vc.indexA, vc.indexB
		mA, mB := vc.invMassA, vc.invMassB
		iA, iB := vc.invIA, vc.invIB

		cA, aA := s.positions[indexA].c, s.positions[indexA].a
		vA, wA := s.velocities[indexA].v, s.velocities[indexA].w
		cB, aB := s.positions[indexB].c, s.positions[indexB].a
		vB, wB := s.velocities[indexB].v, s.velocities[indexB].w

		xfA := common.Transform{Q: common.NewRot(aA)}
		xfB := common.Transform{Q: common.NewRot(aB)}
		xfA.P = cA.Sub(xfA.Q.Apply(pc.localCenterA))
		xfB.P = cB.Sub(xfB.Q.Apply(pc.localCenterB))

		wm := collision.NewWorldManifold(manifold, xfA, pc.radiusA, xfB, pc.radiusB)
		vc.normal = wm.Normal
		tangent := common.CrossVS(vc.normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			vcp.rA = wm.Points[j].Sub(cA)
			vcp.rB = wm.Points[j].Sub(cB)

			rnA := common.Cross(vcp.rA, vc.normal)
			rnB := common.Cross(vcp.rB, vc.normal)
			kNormal := mA + mB + iA*rnA*rnA + iB*rnB*rnB
			vcp.normalMass = 0
			if kNormal > 0 {
				vcp.normalMass = 1.0 / kNormal
			}

			rtA := common.Cross(vcp.rA, tangent)
			rtB := common.Cross(vcp.rB, tangent)
			kTangent := mA + mB + iA*rtA*rtA + iB*rtB*rtB
			vcp.tangentMass = 0
			if kTangent > 0 {
				vcp.tangentMass = 1.0 / kTangent
			}

			// Setup a velocity bias for restitution.
			vcp.velocityBias = 0
			dv := vB.Add(common.CrossSV(wB, vcp.rB)).Sub(vA).Sub(common.CrossSV(wA, vcp.rA))
			vRel := vc.normal.Dot(dv)
			if vRel < -common.VelocityThreshold {
				vcp.velocityBias = -vc.restitution * vRel
			}
		}

		// If we have two points, then prepare the block solver.
		if vc.pointCount == 2 && blockSolve {
			vcp1, vcp2 := &vc.points[0], &vc.points[1]

			rn1A := common.Cross(vcp1.rA, vc.normal)
			rn1B := common.Cross(vcp1.rB, vc.normal)
			rn2A := common.Cross(vcp2.rA, vc.normal)
			rn2B := common.Cross(vcp2.rB, vc.normal)

			k11 := mA + mB + iA*rn1A*rn1A + iB*rn1B*rn1B
			k22 := mA + mB + iA*rn2A*rn2A + iB*rn2B*rn2B
			k12 := mA + mB + iA*rn1A*rn2A + iB*rn1B*rn2B

			// Ensure a reasonable condition number.
			if k11*k11 < maxConditionNumber*(k11*k22-k12*k12) {
				// K is safe to invert.
				vc.k = common.Mat22{k11, k12, k12, k22}
				vc.normalMass = vc.k.Inv()
			} else {
				// The constraints are redundant, just use one.
				vc.pointCount = 1
			}
		}
	}
}

func (s *contactSolver) warmStart() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		indexA, indexB := vc.indexA, vc.indexB
		mA, iA := vc.invMassA, vc.invIA
		mB, iB := vc.invMassB, vc.invIB

		vA, wA := s.velocities[indexA].v, s.velocities[indexA].w
		vB, wB := s.velocities[indexB].v, s.velocities[indexB].w

		normal := vc.normal
		tangent := common.CrossVS(normal, 1.0)

		for j := 0; j < vc.pointCount; j++ {
			vcp := &vc.points[j]
			p := normal.Mul(vcp.normalImpulse).Add(tangent.Mul(vcp.tangentImpulse))
			wA -= iA * common.Cross(vcp.rA, p)
			vA = vA.Sub(p.Mul(mA))
			wB += iB * common.Cross(vcp.rB, p)
			vB = vB.Add(p.Mul(mB))
		}

		s.velocities[indexA] = velocity{vA, wA}
		s.velocities[indexB] = velocity{vB, wB}
	}
}

func (s *contactSolver) solveVelocityConstraints() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]

		indexA, indexB := vc.indexA, vc.indexB
		mA, iA := vc.invMassA, vc.invIA
		mB, iB := vc.invMassB, vc.invIB
		pointCount := vc.pointCount

		vA, wA := s.velocities[indexA].v, s.velocities[indexA].w
		vB, wB := s.velocities[indexB].v, s.velocities[indexB].w

		normal := vc.normal
		tangent := common.CrossVS(normal, 1.0)
		friction := vc.friction

		common.Assert(pointCount == 1 || pointCount == 2, "bad contact point count")

		// Solve tangent constraints first because non-penetration is more important
		// than friction.
		for j := 0; j < pointCount; j++ {
			vcp := &vc.points[j]

			// Relative velocity at contact
			dv := vB.Add(common.CrossSV(wB, vcp.rB)).Sub(vA).Sub(common.CrossSV(wA, vcp.rA))

			// Compute tangent force
			vt := dv.Dot(tangent) - vc.tangentSpeed
			lambda := vcp.tangentMass * -vt

			// Clamp the accumulated force
			maxFriction := friction * vcp.normalImpulse
			newImpulse := common.Clamp(vcp.tangentImpulse+lambda, -maxFriction, maxFriction)
			lambda = newImpulse - vcp.tangentImpulse
			vcp.tangentImpulse = newImpulse

			// Apply contact impulse
			p := tangent.Mul(lambda)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * common.Cross(vcp.rA, p)
			vB = vB.Add(p.Mul(mB))
			wB += iB * common.Cross(vcp.rB, p)
		}

		if pointCount == 1 || !blockSolve {
			for j := 0; j < pointCount; j++ {
				vcp := &vc.points[j]

				// Relative velocity at contact
				dv := vB.Add(common.CrossSV(wB, vcp.rB)).Sub(vA).Sub(common.CrossSV(wA, vcp.rA))

				// Compute normal impulse
				vn := dv.Dot(normal)
				lambda := -vcp.normalMass * (vn - vcp.velocityBias)

				// Clamp the accumulated impulse
				newImpulse := max(vcp.normalImpulse+lambda, 0.0)
				lambda = newImpulse - vcp.normalImpulse
				vcp.normalImpulse = newImpulse

				// Apply contact impulse
				p := normal.Mul(lambda)
				vA = vA.Sub(p.Mul(mA))
				wA -= iA * common.Cross(vcp.rA, p)
				vB = vB.Add(p.Mul(mB))
				wB += iB * common.Cross(vcp.rB, p)
			}
		} else {
			vA, wA, vB, wB = s.solveBlock(vc, vA, wA, vB, wB)
		}

		s.velocities[indexA] = velocity{vA, wA}
		s.velocities[indexB] = velocity{vB, wB}
	}
}

// solveBlock solves the two normal constraints together as a linear
// complementarity problem:
//
//	vn = A * x + b, vn >= 0, x >= 0 and vn_i * x_i = 0
//
// where A is the block mass matrix and x the accumulated impulses. The increment
// is found by enumerating the four cases of the two-dimensional LCP.
func (s *contactSolver) solveBlock(vc *contactVelocityConstraint, vA Vec2, wA float64, vB Vec2, wB float64) (Vec2, float64, Vec2, float64) {
	mA, iA := vc.invMassA, vc.invIA
	mB, iB := vc.invMassB, vc.invIB
	normal := vc.normal

	cp1, cp2 := &vc.points[0], &vc.points[1]

	a := Vec2{cp1.normalImpulse, cp2.normalImpulse}
	common.Assert(a[0] >= 0 && a[1] >= 0, "negative accumulated normal impulse")

	// Relative velocity at contact
	dv1 := vB.Add(common.CrossSV(wB, cp1.rB)).Sub(vA).Sub(common.CrossSV(wA, cp1.rA))
	dv2 := vB.Add(common.CrossSV(wB, cp2.rB)).Sub(vA).Sub(common.CrossSV(wA, cp2.rA))

	// Compute normal velocity
	vn1 := dv1.Dot(normal)
	vn2 := dv2.Dot(normal)

	b := Vec2{vn1 - cp1.velocityBias, vn2 - cp2.velocityBias}

	// Compute b'
	b = b.Sub(vc.k.Mul2x1(a))

	apply := func(x Vec2) {
		// Get the incremental impulse
		d := x.Sub(a)

		// Apply incremental impulse
		p1 := normal.Mul(d[0])
		p2 := normal.Mul(d[1])
		vA = vA.Sub(p1.Add(p2).Mul(mA))
		wA -= iA * (common.Cross(cp1.rA, p1) + common.Cross(cp2.rA, p2))
		vB = vB.Add(p1.Add(p2).Mul(mB))
		wB += iB * (common.Cross(cp1.rB, p1) + common.Cross(cp2.rB, p2))

		// Accumulate
		cp1.normalImpulse = x[0]
		cp2.normalImpulse = x[1]
	}

	// Case 1: vn = 0
	//
	//	0 = A * x + b'
	//	x = -inv(A) * b'
	x := vc.normalMass.Mul2x1(b).Mul(-1)
	if x[0] >= 0 && x[1] >= 0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 2: vn1 = 0 and x2 = 0
	//
	//	0 = a11 * x1 + a12 * 0 + b1'
	//	vn2 = a21 * x1 + a22 * 0 + b2'
	x = Vec2{-cp1.normalMass * b[0], 0}
	vn2 = vc.k[1]*x[0] + b[1]
	if x[0] >= 0 && vn2 >= 0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 3: vn2 = 0 and x1 = 0
	//
	//	vn1 = a11 * 0 + a12 * x2 + b1'
	//	0 = a21 * 0 + a22 * x2 + b2'
	x = Vec2{0, -cp2.normalMass * b[1]}
	vn1 = vc.k[2]*x[1] + b[0]
	if x[1] >= 0 && vn1 >= 0 {
		apply(x)
		return vA, wA, vB, wB
	}

	// Case 4: x1 = x2 = 0
	x = Vec2{}
	vn1 = b[0]
	vn2 = b[1]
	if vn1 >= 0 && vn2 >= 0 {
		apply(x)
	}

	// No solution, give up. This is hit sometimes, but it doesn't seem to matter.
	return vA, wA, vB, wB
}

func (s *contactSolver) storeImpulses() {
	for i := range s.velocityConstraints {
		vc := &s.velocityConstraints[i]
		manifold := &s.contacts[vc.contactIndex].manifold
		for j := 0; j < vc.pointCount; j++ {
			manifold.Points[j].NormalImpulse = vc.points[j].normalImpulse
			manifold.Points[j].TangentImpulse = vc.points[j].tangentImpulse
		}
	}
}

// positionSolverManifold evaluates one point of a position constraint at the
// current positions.
func positionSolverManifold(pc *contactPositionConstraint, xfA, xfB common.Transform, index int) (normal, point Vec2, separation float64) {
	common.Assert(pc.pointCount > 0, "position constraint without points")

	switch pc.kind {
	case collision.ManifoldCircles:
		pointA := xfA.Apply(pc.localPoint)
		pointB := xfB.Apply(pc.localPoints[0])
		normal, _ = common.Normalize(pointB.Sub(pointA))
		point = pointA.Add(pointB).Mul(0.5)
		separation = pointB.Sub(pointA).Dot(normal) - pc.radiusA - pc.radiusB

	case collision.ManifoldFaceA:
		normal = xfA.Q.Apply(pc.localNormal)
		planePoint := xfA.Apply(pc.localPoint)
		clipPoint := xfB.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

	case collision.ManifoldFaceB:
		normal = xfB.Q.Apply(pc.localNormal)
		planePoint := xfB.Apply(pc.localPoint)
		clipPoint := xfA.Apply(pc.localPoints[index])
		separation = clipPoint.Sub(planePoint).Dot(normal) - pc.radiusA - pc.radiusB
		point = clipPoint

		// Ensure normal points from A to B.
		normal = normal.Mul(-1)
	}
	return normal, point, separation
}

// solvePositionConstraints is a sequential solver. It reports whether the
// largest overlap is within tolerance.
func (s *contactSolver) solvePositionConstraints() bool {
	return s.solvePositions(common.Baumgarte, -1, -1) >= -3.0*common.LinearSlop
}

// solveTOIPositionConstraints only moves the two bodies of the TOI event; the
// rest of the mini island is treated as static.
func (s *contactSolver) solveTOIPositionConstraints(toiIndexA, toiIndexB int) bool {
	return s.solvePositions(common.ToiBaumgarte, toiIndexA, toiIndexB) >= -1.5*common.LinearSlop
}

// solvePositions pushes the bodies apart and returns the minimum separation
// seen. With toi indices >= 0 only those bodies are movable.
func (s *contactSolver) solvePositions(baumgarte float64, toiIndexA, toiIndexB int) float64 {
	minSeparation := 0.0

	for i := range s.positionConstraints {
		pc := &s.positionConstraints[i]

		indexA, indexB := pc.indexA, pc.indexB
		localCenterA, localCenterB := pc.localCenterA, pc.localCenterB

		mA, iA := pc.invMassA, pc.invIA
		mB, iB := pc.invMassB, pc.invIB
		if toiIndexA >= 0 {
			mA, iA, mB, iB = 0, 0, 0, 0
			if indexA == toiIndexA || indexA == toiIndexB {
				mA, iA = pc.invMassA, pc.invIA
			}
			if indexB == toiIndexA || indexB == toiIndexB {
				mB, iB = pc.invMassB, pc.invIB
			}
		}

		cA, aA := s.positions[indexA].c, s.positions[indexA].a
		cB, aB := s.positions[indexB].c, s.positions[indexB].a

		// Solve normal constraints
		for j := 0; j < pc.pointCount; j++ {
			xfA := common.Transform{Q: common.NewRot(aA)}
			xfB := common.Transform{Q: common.NewRot(aB)}
			xfA.P = cA.Sub(xfA.Q.Apply(localCenterA))
			xfB.P = cB.Sub(xfB.Q.Apply(localCenterB))

			normal, point, separation := positionSolverManifold(pc, xfA, xfB, j)

			rA := point.Sub(cA)
			rB := point.Sub(cB)

			// Track max constraint error.
			minSeparation = min(minSeparation, separation)

			// Prevent large corrections and allow slop.
			c := common.Clamp(baumgarte*(separation+common.LinearSlop), -common.MaxLinearCorrection, 0)

			// Compute the effective mass.
			rnA := common.Cross(rA, normal)
			rnB := common.Cross(rB, normal)
			k := mA + mB + iA*rnA*rnA + iB*rnB*rnB

			// Compute normal impulse
			impulse := 0.0
			if k > 0 {
				impulse = -c / k
			}

			p := normal.Mul(impulse)

			cA = cA.Sub(p.Mul(mA))
			aA -= iA * common.Cross(rA, p)

			cB = cB.Add(p.Mul(mB))
			aB += iB * common.Cross(rB, p)
		}

		s.positions[indexA] = position{cA, aA}
		s.positions[indexB] = position{cB, aB}
	}

	return minSeparation
}
