package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// RevoluteJointDef defines a revolute joint. The anchors are local to each body
// origin so that the initial configuration can violate the constraint slightly.
type RevoluteJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// ReferenceAngle is the bodyB angle minus bodyA angle in the reference
	// state, in radians.
	ReferenceAngle float64

	EnableLimit bool
	LowerAngle  float64
	UpperAngle  float64

	EnableMotor    bool
	MotorSpeed     float64
	MaxMotorTorque float64
}

func (*RevoluteJointDef) Type() JointType { return JointRevolute }

// Initialize sets the bodies, the anchors and the reference angle from a world
// anchor point.
func (d *RevoluteJointDef) Initialize(bodyA, bodyB *Body, anchor Vec2) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.ReferenceAngle = bodyB.Angle() - bodyA.Angle()
}

// RevoluteJoint makes two bodies share a point while they rotate freely about
// it. The relative rotation can be limited and driven by a motor.
type RevoluteJoint struct {
	jointBase

	localAnchorA   Vec2
	localAnchorB   Vec2
	referenceAngle float64

	impulse      Vec2
	motorImpulse float64
	lowerImpulse float64
	upperImpulse float64

	enableMotor    bool
	maxMotorTorque float64
	motorSpeed     float64

	enableLimit bool
	lowerAngle  float64
	upperAngle  float64

	// Solver temp
	rA, rB    Vec2
	k         common.Mat22
	angle     float64
	axialMass float64
}

func newRevoluteJoint(base jointBase, def *RevoluteJointDef) RevoluteJoint {
	return RevoluteJoint{
		jointBase:      base,
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		lowerAngle:     def.LowerAngle,
		upperAngle:     def.UpperAngle,
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableLimit:    def.EnableLimit,
		enableMotor:    def.EnableMotor,
	}
}

// Point-to-point constraint
// C = p2 - p1
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// Motor constraint
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2

func (j *RevoluteJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	aA := data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	aB := data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	j.k = common.Mat22{
		mA + mB + j.rA[1]*j.rA[1]*iA + j.rB[1]*j.rB[1]*iB,
		-j.rA[1]*j.rA[0]*iA - j.rB[1]*j.rB[0]*iB,
		-j.rA[1]*j.rA[0]*iA - j.rB[1]*j.rB[0]*iB,
		mA + mB + j.rA[0]*j.rA[0]*iA + j.rB[0]*j.rB[0]*iB,
	}

	j.axialMass = iA + iB
	fixedRotation := j.axialMass == 0
	if j.axialMass > 0 {
		j.axialMass = 1.0 / j.axialMass
	}

	j.angle = aB - aA - j.referenceAngle
	if !j.enableLimit || fixedRotation {
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}

	if !j.enableMotor || fixedRotation {
		j.motorImpulse = 0
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio
		j.lowerImpulse *= data.step.dtRatio
		j.upperImpulse *= data.step.dtRatio

		axialImpulse := j.motorImpulse + j.lowerImpulse - j.upperImpulse
		p := j.impulse

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (common.Cross(j.rA, p) + axialImpulse)

		vB = vB.Add(p.Mul(mB))
		wB += iB * (common.Cross(j.rB, p) + axialImpulse)
	} else {
		j.impulse = Vec2{}
		j.motorImpulse = 0
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RevoluteJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	fixedRotation := iA+iB == 0

	// Solve motor constraint.
	if j.enableMotor && !fixedRotation {
		cdot := wB - wA - j.motorSpeed
		impulse := -j.axialMass * cdot
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = common.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	if j.enableLimit && !fixedRotation {
		// Lower limit
		{
			c := j.angle - j.lowerAngle
			cdot := wB - wA
			impulse := -j.axialMass * (cdot + max(c, 0)*data.step.invDt)
			oldImpulse := j.lowerImpulse
			j.lowerImpulse = max(j.lowerImpulse+impulse, 0)
			impulse = j.lowerImpulse - oldImpulse

			wA -= iA * impulse
			wB += iB * impulse
		}

		// Upper limit. The sign of the upper constraint is flipped.
		{
			c := j.upperAngle - j.angle
			cdot := wA - wB
			impulse := -j.axialMass * (cdot + max(c, 0)*data.step.invDt)
			oldImpulse := j.upperImpulse
			j.upperImpulse = max(j.upperImpulse+impulse, 0)
			impulse = j.upperImpulse - oldImpulse

			wA += iA * impulse
			wB -= iB * impulse
		}
	}

	// Solve point to point constraint.
	cdot := vB.Add(common.CrossSV(wB, j.rB)).Sub(vA).Sub(common.CrossSV(wA, j.rA))
	impulse := common.Solve22(j.k, cdot.Mul(-1))

	j.impulse = j.impulse.Add(impulse)

	vA = vA.Sub(impulse.Mul(mA))
	wA -= iA * common.Cross(j.rA, impulse)

	vB = vB.Add(impulse.Mul(mB))
	wB += iB * common.Cross(j.rB, impulse)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *RevoluteJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	angularError := 0.0
	positionError := 0.0

	fixedRotation := j.invIA+j.invIB == 0

	// Solve angular limit constraint.
	if j.enableLimit && !fixedRotation {
		angle := aB - aA - j.referenceAngle
		c := 0.0

		switch {
		case math.Abs(j.upperAngle-j.lowerAngle) < 2.0*common.AngularSlop:
			// Prevent large angular corrections
			c = common.Clamp(angle-j.lowerAngle, -common.MaxAngularCorrection, common.MaxAngularCorrection)
		case angle <= j.lowerAngle:
			// Prevent large angular corrections and allow some slop.
			c = common.Clamp(angle-j.lowerAngle+common.AngularSlop, -common.MaxAngularCorrection, 0)
		case angle >= j.upperAngle:
			c = common.Clamp(angle-j.upperAngle-common.AngularSlop, 0, common.MaxAngularCorrection)
		}

		limitImpulse := -j.axialMass * c
		aA -= j.invIA * limitImpulse
		aB += j.invIB * limitImpulse
		angularError = math.Abs(c)
	}

	// Solve point to point constraint.
	{
		qA, qB := common.NewRot(aA), common.NewRot(aB)
		rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
		rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))

		c := cB.Add(rB).Sub(cA).Sub(rA)
		positionError = c.Len()

		mA, mB := j.invMassA, j.invMassB
		iA, iB := j.invIA, j.invIB

		k := common.Mat22{
			mA + mB + iA*rA[1]*rA[1] + iB*rB[1]*rB[1],
			-iA*rA[0]*rA[1] - iB*rB[0]*rB[1],
			-iA*rA[0]*rA[1] - iB*rB[0]*rB[1],
			mA + mB + iA*rA[0]*rA[0] + iB*rB[0]*rB[0],
		}

		impulse := common.Solve22(k, c).Mul(-1)

		cA = cA.Sub(impulse.Mul(mA))
		aA -= iA * common.Cross(rA, impulse)

		cB = cB.Add(impulse.Mul(mB))
		aB += iB * common.Cross(rB, impulse)
	}

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return positionError <= common.LinearSlop && angularError <= common.AngularSlop
}

func (j *RevoluteJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *RevoluteJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *RevoluteJoint) ReactionForce(invDt float64) Vec2 {
	return j.impulse.Mul(invDt)
}

func (j *RevoluteJoint) ReactionTorque(invDt float64) float64 {
	return invDt * (j.motorImpulse + j.lowerImpulse - j.upperImpulse)
}

func (j *RevoluteJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *RevoluteJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *RevoluteJoint) ReferenceAngle() float64 { return j.referenceAngle }

// JointAngle is the current relative angle in radians.
func (j *RevoluteJoint) JointAngle() float64 {
	bA, bB := j.bodies()
	return bB.sweep.A - bA.sweep.A - j.referenceAngle
}

// JointSpeed is the current relative angular speed in radians per second.
func (j *RevoluteJoint) JointSpeed() float64 {
	bA, bB := j.bodies()
	return bB.angularVelocity - bA.angularVelocity
}

func (j *RevoluteJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *RevoluteJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wake()
		j.enableLimit = flag
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
}

func (j *RevoluteJoint) LowerLimit() float64 { return j.lowerAngle }
func (j *RevoluteJoint) UpperLimit() float64 { return j.upperAngle }

// SetLimits sets the angle range in radians. Panics when lower > upper.
func (j *RevoluteJoint) SetLimits(lower, upper float64) {
	common.Assert(lower <= upper, "revolute joint lower limit above upper limit")
	if lower != j.lowerAngle || upper != j.upperAngle {
		j.wake()
		j.lowerImpulse = 0
		j.upperImpulse = 0
		j.lowerAngle = lower
		j.upperAngle = upper
	}
}

func (j *RevoluteJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *RevoluteJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wake()
		j.enableMotor = flag
	}
}

func (j *RevoluteJoint) MotorSpeed() float64 {
	return j.motorSpeed
}

func (j *RevoluteJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wake()
		j.motorSpeed = speed
	}
}

func (j *RevoluteJoint) MaxMotorTorque() float64 {
	return j.maxMotorTorque
}

func (j *RevoluteJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.wake()
		j.maxMotorTorque = torque
	}
}

// MotorTorque is the current motor torque given the inverse time step.
func (j *RevoluteJoint) MotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}
