package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// PulleyJointDef defines a pulley joint. CollideConnected defaults to true in
// NewPulleyJointDef.
type PulleyJointDef struct {
	JointDefBase

	// GroundAnchorA and GroundAnchorB are the fixed pulley points in world
	// coordinates.
	GroundAnchorA Vec2
	GroundAnchorB Vec2

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LengthA and LengthB are the reference segment lengths.
	LengthA float64
	LengthB float64

	// Ratio is the pulley ratio, used to simulate a block-and-tackle.
	Ratio float64
}

func (*PulleyJointDef) Type() JointType { return JointPulley }

func NewPulleyJointDef() *PulleyJointDef {
	d := &PulleyJointDef{
		GroundAnchorA: Vec2{-1, 1},
		GroundAnchorB: Vec2{1, 1},
		LocalAnchorA:  Vec2{-1, 0},
		LocalAnchorB:  Vec2{1, 0},
		Ratio:         1,
	}
	d.CollideConnected = true
	return d
}

// Initialize sets the bodies, anchors, lengths and ratio from world ground
// anchors and world anchor points. Panics when ratio is not positive.
func (d *PulleyJointDef) Initialize(bodyA, bodyB *Body, groundAnchorA, groundAnchorB, anchorA, anchorB Vec2, ratio float64) {
	common.Assert(ratio > common.Epsilon, "pulley ratio must be positive")
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.GroundAnchorA = groundAnchorA
	d.GroundAnchorB = groundAnchorB
	d.LocalAnchorA = bodyA.LocalPoint(anchorA)
	d.LocalAnchorB = bodyB.LocalPoint(anchorB)
	d.LengthA = anchorA.Sub(groundAnchorA).Len()
	d.LengthB = anchorB.Sub(groundAnchorB).Len()
	d.Ratio = ratio
}

// PulleyJoint connects two bodies to ground and to each other so that
// lengthA + ratio * lengthB stays constant.
type PulleyJoint struct {
	jointBase

	groundAnchorA Vec2
	groundAnchorB Vec2
	lengthA       float64
	lengthB       float64

	localAnchorA Vec2
	localAnchorB Vec2
	constant     float64
	ratio        float64
	impulse      float64

	// Solver temp
	uA, uB Vec2
	rA, rB Vec2
	mass   float64
}

func newPulleyJoint(base jointBase, def *PulleyJointDef) PulleyJoint {
	common.Assert(def.Ratio != 0, "pulley ratio must not be zero")
	return PulleyJoint{
		jointBase:     base,
		groundAnchorA: def.GroundAnchorA,
		groundAnchorB: def.GroundAnchorB,
		localAnchorA:  def.LocalAnchorA,
		localAnchorB:  def.LocalAnchorB,
		lengthA:       def.LengthA,
		lengthB:       def.LengthB,
		ratio:         def.Ratio,
		constant:      def.LengthA + def.Ratio*def.LengthB,
	}
}

// Pulley:
// length1 = norm(p1 - s1)
// length2 = norm(p2 - s2)
// C0 = (length1 + ratio * length2)_initial
// C = C0 - (length1 + ratio * length2)
// u1 = (p1 - s1) / norm(p1 - s1)
// u2 = (p2 - s2) / norm(p2 - s2)
// Cdot = -dot(u1, v1 + cross(w1, r1)) - ratio * dot(u2, v2 + cross(w2, r2))
// J = -[u1 cross(r1, u1) ratio * u2  ratio * cross(r2, u2)]
// K = J * invM * JT
//   = invMass1 + invI1 * cross(r1, u1)^2 + ratio^2 * (invMass2 + invI2 * cross(r2, u2)^2)

// pulleyAxis normalizes a rope segment, dropping it when nearly collapsed.
func pulleyAxis(u Vec2) Vec2 {
	if u.Len() > 10.0*common.LinearSlop {
		u, _ = common.Normalize(u)
		return u
	}
	return Vec2{}
}

func (j *PulleyJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	// Get the pulley axes.
	j.uA = pulleyAxis(cA.Add(j.rA).Sub(j.groundAnchorA))
	j.uB = pulleyAxis(cB.Add(j.rB).Sub(j.groundAnchorB))

	// Compute effective mass.
	ruA := common.Cross(j.rA, j.uA)
	ruB := common.Cross(j.rB, j.uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	j.mass = mA + j.ratio*j.ratio*mB
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	if data.step.warmStarting {
		// Scale impulses to support variable time steps.
		j.impulse *= data.step.dtRatio

		// Warm starting.
		pA := j.uA.Mul(-j.impulse)
		pB := j.uB.Mul(-j.ratio * j.impulse)

		vA = vA.Add(pA.Mul(j.invMassA))
		wA += j.invIA * common.Cross(j.rA, pA)
		vB = vB.Add(pB.Mul(j.invMassB))
		wB += j.invIB * common.Cross(j.rB, pB)
	} else {
		j.impulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *PulleyJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	vpA := vA.Add(common.CrossSV(wA, j.rA))
	vpB := vB.Add(common.CrossSV(wB, j.rB))

	cdot := -j.uA.Dot(vpA) - j.ratio*j.uB.Dot(vpB)
	impulse := -j.mass * cdot
	j.impulse += impulse

	pA := j.uA.Mul(-impulse)
	pB := j.uB.Mul(-j.ratio * impulse)
	vA = vA.Add(pA.Mul(j.invMassA))
	wA += j.invIA * common.Cross(j.rA, pA)
	vB = vB.Add(pB.Mul(j.invMassB))
	wB += j.invIB * common.Cross(j.rB, pB)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *PulleyJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	// Get the pulley axes.
	uA := cA.Add(rA).Sub(j.groundAnchorA)
	uB := cB.Add(rB).Sub(j.groundAnchorB)

	lengthA := uA.Len()
	lengthB := uB.Len()
	uA = pulleyAxis(uA)
	uB = pulleyAxis(uB)

	// Compute effective mass.
	ruA := common.Cross(rA, uA)
	ruB := common.Cross(rB, uB)

	mA := j.invMassA + j.invIA*ruA*ruA
	mB := j.invMassB + j.invIB*ruB*ruB

	mass := mA + j.ratio*j.ratio*mB
	if mass > 0 {
		mass = 1.0 / mass
	}

	c := j.constant - lengthA - j.ratio*lengthB
	linearError := math.Abs(c)

	impulse := -mass * c

	pA := uA.Mul(-impulse)
	pB := uB.Mul(-j.ratio * impulse)

	cA = cA.Add(pA.Mul(j.invMassA))
	aA += j.invIA * common.Cross(rA, pA)
	cB = cB.Add(pB.Mul(j.invMassB))
	aB += j.invIB * common.Cross(rB, pB)

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return linearError < common.LinearSlop
}

func (j *PulleyJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *PulleyJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *PulleyJoint) ReactionForce(invDt float64) Vec2 {
	return j.uB.Mul(invDt * j.impulse)
}

func (j *PulleyJoint) ReactionTorque(float64) float64 {
	return 0
}

func (j *PulleyJoint) GroundAnchorA() Vec2 { return j.groundAnchorA }
func (j *PulleyJoint) GroundAnchorB() Vec2 { return j.groundAnchorB }
func (j *PulleyJoint) LengthA() float64    { return j.lengthA }
func (j *PulleyJoint) LengthB() float64    { return j.lengthB }
func (j *PulleyJoint) Ratio() float64      { return j.ratio }

// CurrentLengthA is the current length of the segment attached to bodyA.
func (j *PulleyJoint) CurrentLengthA() float64 {
	return j.AnchorA().Sub(j.groundAnchorA).Len()
}

// CurrentLengthB is the current length of the segment attached to bodyB.
func (j *PulleyJoint) CurrentLengthB() float64 {
	return j.AnchorB().Sub(j.groundAnchorB).Len()
}

func (j *PulleyJoint) shiftOrigin(newOrigin Vec2) {
	j.groundAnchorA = j.groundAnchorA.Sub(newOrigin)
	j.groundAnchorB = j.groundAnchorB.Sub(newOrigin)
}
