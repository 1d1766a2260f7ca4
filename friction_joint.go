package box2d

import (
	"github.com/ByteArena/box2d/v2/common"
)

// FrictionJointDef defines a friction joint.
type FrictionJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// MaxForce is the maximum friction force in N.
	MaxForce float64

	// MaxTorque is the maximum friction torque in N*m.
	MaxTorque float64
}

func (*FrictionJointDef) Type() JointType { return JointFriction }

// Initialize sets the bodies and anchors from a world anchor.
func (d *FrictionJointDef) Initialize(bodyA, bodyB *Body, anchor Vec2) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
}

// FrictionJoint applies top-down friction: both relative translation and
// rotation are resisted up to a maximum force and torque.
type FrictionJoint struct {
	jointBase

	localAnchorA Vec2
	localAnchorB Vec2

	// Solver shared
	linearImpulse  Vec2
	angularImpulse float64
	maxForce       float64
	maxTorque      float64

	// Solver temp
	rA, rB      Vec2
	linearMass  common.Mat22
	angularMass float64
}

func newFrictionJoint(base jointBase, def *FrictionJointDef) FrictionJoint {
	return FrictionJoint{
		jointBase:    base,
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxForce:     def.MaxForce,
		maxTorque:    def.MaxTorque,
	}
}

// Point-to-point constraint
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// Angle constraint
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2

// pointMass is the inverse of the 2x2 point-to-point effective mass.
func pointMass(rA, rB Vec2, mA, mB, iA, iB float64) common.Mat22 {
	k := common.Mat22{
		mA + mB + iA*rA[1]*rA[1] + iB*rB[1]*rB[1],
		-iA*rA[0]*rA[1] - iB*rB[0]*rB[1],
		-iA*rA[0]*rA[1] - iB*rB[0]*rB[1],
		mA + mB + iA*rA[0]*rA[0] + iB*rB[0]*rB[0],
	}
	return k.Inv()
}

// clampLength scales v down to at most maxLength.
func clampLength(v Vec2, maxLength float64) Vec2 {
	if v.Dot(v) > maxLength*maxLength {
		n, _ := common.Normalize(v)
		return n.Mul(maxLength)
	}
	return v
}

func (j *FrictionJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	aA := data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	aB := data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	// Compute the effective mass matrix.
	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	j.linearMass = pointMass(j.rA, j.rB, mA, mB, iA, iB)

	j.angularMass = iA + iB
	if j.angularMass > 0 {
		j.angularMass = 1.0 / j.angularMass
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.linearImpulse = j.linearImpulse.Mul(data.step.dtRatio)
		j.angularImpulse *= data.step.dtRatio

		p := j.linearImpulse
		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (common.Cross(j.rA, p) + j.angularImpulse)
		vB = vB.Add(p.Mul(mB))
		wB += iB * (common.Cross(j.rB, p) + j.angularImpulse)
	} else {
		j.linearImpulse = Vec2{}
		j.angularImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *FrictionJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.step.dt

	// Solve angular friction
	{
		cdot := wB - wA
		impulse := -j.angularMass * cdot

		oldImpulse := j.angularImpulse
		maxImpulse := h * j.maxTorque
		j.angularImpulse = common.Clamp(j.angularImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.angularImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve linear friction
	{
		cdot := vB.Add(common.CrossSV(wB, j.rB)).Sub(vA).Sub(common.CrossSV(wA, j.rA))

		impulse := j.linearMass.Mul2x1(cdot).Mul(-1)
		oldImpulse := j.linearImpulse
		j.linearImpulse = clampLength(j.linearImpulse.Add(impulse), h*j.maxForce)
		impulse = j.linearImpulse.Sub(oldImpulse)

		vA = vA.Sub(impulse.Mul(mA))
		wA -= iA * common.Cross(j.rA, impulse)

		vB = vB.Add(impulse.Mul(mB))
		wB += iB * common.Cross(j.rB, impulse)
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *FrictionJoint) solvePositionConstraints(*solverData) bool {
	return true
}

func (j *FrictionJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *FrictionJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *FrictionJoint) ReactionForce(invDt float64) Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *FrictionJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *FrictionJoint) MaxForce() float64 {
	return j.maxForce
}

// SetMaxForce sets the maximum friction force. Panics on a negative force.
func (j *FrictionJoint) SetMaxForce(force float64) {
	common.Assert(common.IsValid(force) && force >= 0, "friction joint force must be non-negative")
	j.maxForce = force
}

func (j *FrictionJoint) MaxTorque() float64 {
	return j.maxTorque
}

// SetMaxTorque sets the maximum friction torque. Panics on a negative torque.
func (j *FrictionJoint) SetMaxTorque(torque float64) {
	common.Assert(common.IsValid(torque) && torque >= 0, "friction joint torque must be non-negative")
	j.maxTorque = torque
}
