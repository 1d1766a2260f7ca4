package box2d

import (
	"github.com/ByteArena/box2d/v2/common"
)

// RopeJointDef defines a rope joint. The rope never stretches past MaxLength
// but may go slack.
type RopeJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// MaxLength is the maximum length of the rope. It must exceed LinearSlop
	// for the joint to have any effect.
	MaxLength float64
}

// NewRopeJointDef returns a definition with anchors one meter either side of
// the body origins.
func NewRopeJointDef() *RopeJointDef {
	return &RopeJointDef{
		LocalAnchorA: Vec2{-1.0, 0.0},
		LocalAnchorB: Vec2{1.0, 0.0},
	}
}

func (*RopeJointDef) Type() JointType { return JointRope }

// LimitState reports which side of a one-sided constraint is active.
type LimitState uint8

const (
	LimitInactive LimitState = iota
	LimitAtLower
	LimitAtUpper
	LimitEqual
)

// RopeJoint enforces a maximum distance between two anchor points.
type RopeJoint struct {
	jointBase

	localAnchorA Vec2
	localAnchorB Vec2
	maxLength    float64
	length       float64
	impulse      float64

	// Solver temp
	u, rA, rB Vec2
	mass      float64
	state     LimitState
}

func newRopeJoint(base jointBase, def *RopeJointDef) RopeJoint {
	return RopeJoint{
		jointBase:    base,
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		maxLength:    def.MaxLength,
	}
}

// Limit:
// C = norm(pB - pA) - L
// u = (pB - pA) / norm(pB - pA)
// Cdot = dot(u, vB + cross(wB, rB) - vA - cross(wA, rA))
// J = [-u -cross(rA, u) u cross(rB, u)]
// K = J * invM * JT
//   = invMassA + invIA * cross(rA, u)^2 + invMassB + invIB * cross(rB, u)^2

func (j *RopeJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	j.u = cB.Add(j.rB).Sub(cA).Sub(j.rA)

	j.length = j.u.Len()

	c := j.length - j.maxLength
	if c > 0 {
		j.state = LimitAtUpper
	} else {
		j.state = LimitInactive
	}

	if j.length > common.LinearSlop {
		j.u = j.u.Mul(1.0 / j.length)
	} else {
		j.u = Vec2{}
		j.mass = 0
		j.impulse = 0
		return
	}

	// Compute effective mass.
	crA := common.Cross(j.rA, j.u)
	crB := common.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crA*crA + j.invMassB + j.invIB*crB*crB

	j.mass = 0
	if invMass != 0 {
		j.mass = 1.0 / invMass
	}

	if data.step.warmStarting {
		// Scale the impulse to support a variable time step.
		j.impulse *= data.step.dtRatio

		p := j.u.Mul(j.impulse)
		vA = vA.Sub(p.Mul(j.invMassA))
		wA -= j.invIA * common.Cross(j.rA, p)
		vB = vB.Add(p.Mul(j.invMassB))
		wB += j.invIB * common.Cross(j.rB, p)
	} else {
		j.impulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RopeJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(common.CrossSV(wA, j.rA))
	vpB := vB.Add(common.CrossSV(wB, j.rB))
	c := j.length - j.maxLength
	cdot := j.u.Dot(vpB.Sub(vpA))

	// Predictive constraint.
	if c < 0 {
		cdot += data.step.invDt * c
	}

	impulse := -j.mass * cdot
	oldImpulse := j.impulse
	j.impulse = min(0, j.impulse+impulse)
	impulse = j.impulse - oldImpulse

	p := j.u.Mul(impulse)
	vA = vA.Sub(p.Mul(j.invMassA))
	wA -= j.invIA * common.Cross(j.rA, p)
	vB = vB.Add(p.Mul(j.invMassB))
	wB += j.invIB * common.Cross(j.rB, p)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RopeJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	u, length := common.Normalize(cB.Add(rB).Sub(cA).Sub(rA))

	c := common.Clamp(length-j.maxLength, 0, common.MaxLinearCorrection)

	impulse := -j.mass * c
	p := u.Mul(impulse)

	cA = cA.Sub(p.Mul(j.invMassA))
	aA -= j.invIA * common.Cross(rA, p)
	cB = cB.Add(p.Mul(j.invMassB))
	aB += j.invIB * common.Cross(rB, p)

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return length-j.maxLength < common.LinearSlop
}

func (j *RopeJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *RopeJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *RopeJoint) ReactionForce(invDt float64) Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *RopeJoint) ReactionTorque(float64) float64 {
	return 0
}

func (j *RopeJoint) LocalAnchorA() Vec2     { return j.localAnchorA }
func (j *RopeJoint) LocalAnchorB() Vec2     { return j.localAnchorB }
func (j *RopeJoint) MaxLength() float64     { return j.maxLength }
func (j *RopeJoint) LimitState() LimitState { return j.state }

func (j *RopeJoint) SetMaxLength(length float64) {
	j.maxLength = length
}
