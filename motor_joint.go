package box2d

import (
	"github.com/ByteArena/box2d/v2/common"
)

// MotorJointDef defines a motor joint that drives bodyB towards a target
// offset relative to bodyA.
type MotorJointDef struct {
	JointDefBase

	// LinearOffset is the position of bodyB minus the position of bodyA, in
	// bodyA's frame.
	LinearOffset Vec2

	// AngularOffset is the angle of bodyB minus the angle of bodyA.
	AngularOffset float64

	MaxForce  float64
	MaxTorque float64

	// CorrectionFactor is the position correction factor in the range [0,1].
	CorrectionFactor float64
}

// NewMotorJointDef returns a definition with unit force and torque limits.
func NewMotorJointDef() *MotorJointDef {
	return &MotorJointDef{
		MaxForce:         1.0,
		MaxTorque:        1.0,
		CorrectionFactor: 0.3,
	}
}

func (*MotorJointDef) Type() JointType { return JointMotor }

// Initialize sets the bodies and captures their current relative offset.
func (d *MotorJointDef) Initialize(bodyA, bodyB *Body) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LinearOffset = bodyA.LocalPoint(bodyB.Position())
	d.AngularOffset = bodyB.Angle() - bodyA.Angle()
}

// MotorJoint controls the relative motion between two bodies. A typical use
// is to control the movement of a dynamic body with respect to the ground.
type MotorJoint struct {
	jointBase

	// Solver shared
	linearOffset     Vec2
	angularOffset    float64
	linearImpulse    Vec2
	angularImpulse   float64
	maxForce         float64
	maxTorque        float64
	correctionFactor float64

	// Solver temp
	rA, rB       Vec2
	linearError  Vec2
	angularError float64
	linearMass   common.Mat22
	angularMass  float64
}

func newMotorJoint(base jointBase, def *MotorJointDef) MotorJoint {
	common.Assert(def.CorrectionFactor >= 0 && def.CorrectionFactor <= 1, "motor joint correction factor out of [0,1]")
	return MotorJoint{
		jointBase:        base,
		linearOffset:     def.LinearOffset,
		angularOffset:    def.AngularOffset,
		maxForce:         def.MaxForce,
		maxTorque:        def.MaxTorque,
		correctionFactor: def.CorrectionFactor,
	}
}

// Point-to-point constraint
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// r_skew = [-ry; rx]
//
// Angle constraint
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2

func (j *MotorJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	// Compute the effective mass matrix. The anchors sit on the body origins.
	j.rA = qA.Apply(j.localCenterA.Mul(-1))
	j.rB = qB.Apply(j.localCenterB.Mul(-1))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	j.linearMass = pointMass(j.rA, j.rB, mA, mB, iA, iB)

	j.angularMass = iA + iB
	if j.angularMass > 0 {
		j.angularMass = 1.0 / j.angularMass
	}

	j.linearError = cB.Add(j.rB).Sub(cA).Sub(j.rA).Sub(qA.Apply(j.linearOffset))
	j.angularError = aB - aA - j.angularOffset

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

func (j *MotorJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	h := data.step.dt
	invH := data.step.invDt

	// Solve angular friction
	{
		cdot := wB - wA + invH*j.correctionFactor*j.angularError
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
		cdot := vB.Add(common.CrossSV(wB, j.rB)).
			Sub(vA).
			Sub(common.CrossSV(wA, j.rA)).
			Add(j.linearError.Mul(invH * j.correctionFactor))

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

func (j *MotorJoint) solvePositionConstraints(*solverData) bool {
	return true
}

func (j *MotorJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.Position()
}

func (j *MotorJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.Position()
}

func (j *MotorJoint) ReactionForce(invDt float64) Vec2 {
	return j.linearImpulse.Mul(invDt)
}

func (j *MotorJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.angularImpulse
}

func (j *MotorJoint) LinearOffset() Vec2        { return j.linearOffset }
func (j *MotorJoint) AngularOffset() float64    { return j.angularOffset }
func (j *MotorJoint) MaxForce() float64         { return j.maxForce }
func (j *MotorJoint) MaxTorque() float64        { return j.maxTorque }
func (j *MotorJoint) CorrectionFactor() float64 { return j.correctionFactor }

// SetLinearOffset sets the target linear offset in bodyA's frame and wakes
// both bodies when it changes.
func (j *MotorJoint) SetLinearOffset(offset Vec2) {
	if offset != j.linearOffset {
		j.wake()
		j.linearOffset = offset
	}
}

// SetAngularOffset sets the target angular offset and wakes both bodies when
// it changes.
func (j *MotorJoint) SetAngularOffset(offset float64) {
	if offset != j.angularOffset {
		j.wake()
		j.angularOffset = offset
	}
}

func (j *MotorJoint) SetMaxForce(force float64) {
	common.Assert(common.IsValid(force) && force >= 0, "motor joint force must be non-negative")
	j.maxForce = force
}

func (j *MotorJoint) SetMaxTorque(torque float64) {
	common.Assert(common.IsValid(torque) && torque >= 0, "motor joint torque must be non-negative")
	j.maxTorque = torque
}

func (j *MotorJoint) SetCorrectionFactor(factor float64) {
	common.Assert(common.IsValid(factor) && factor >= 0 && factor <= 1, "motor joint correction factor out of [0,1]")
	j.correctionFactor = factor
}
