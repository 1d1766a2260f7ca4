package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// WheelJointDef defines a wheel joint: a line constraint along LocalAxisA with
// a suspension spring and a rotational motor.
type WheelJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LocalAxisA is the suspension axis in bodyA.
	LocalAxisA Vec2

	EnableMotor    bool
	MaxMotorTorque float64
	MotorSpeed     float64

	// FrequencyHz is the suspension frequency. Zero disables the suspension.
	FrequencyHz  float64
	DampingRatio float64
}

func (*WheelJointDef) Type() JointType { return JointWheel }

// NewWheelJointDef returns a definition along the x axis with a 2Hz
// suspension.
func NewWheelJointDef() *WheelJointDef {
	return &WheelJointDef{
		LocalAxisA:   Vec2{1, 0},
		FrequencyHz:  2,
		DampingRatio: 0.7,
	}
}

// Initialize sets the bodies, anchors and axis from a world anchor and a world
// axis.
func (d *WheelJointDef) Initialize(bodyA, bodyB *Body, anchor, axis Vec2) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.LocalAxisA = bodyA.LocalVector(axis)
}

// WheelJoint keeps bodyB on a line fixed in bodyA, with a spring along the line
// and a motor driving the rotation of bodyB. It is designed for vehicle
// suspensions.
type WheelJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64

	localAnchorA Vec2
	localAnchorB Vec2
	localXAxisA  Vec2
	localYAxisA  Vec2

	impulse       float64
	motorImpulse  float64
	springImpulse float64

	maxMotorTorque float64
	motorSpeed     float64
	enableMotor    bool

	// Solver temp
	ax, ay     Vec2
	sAx, sBx   float64
	sAy, sBy   float64
	mass       float64
	motorMass  float64
	springMass float64
	bias       float64
	gamma      float64
}

func newWheelJoint(base jointBase, def *WheelJointDef) WheelJoint {
	xAxis, _ := common.Normalize(def.LocalAxisA)
	return WheelJoint{
		jointBase:      base,
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		localXAxisA:    xAxis,
		localYAxisA:    common.CrossSV(1.0, xAxis),
		maxMotorTorque: def.MaxMotorTorque,
		motorSpeed:     def.MotorSpeed,
		enableMotor:    def.EnableMotor,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}
}

// Point-to-line constraint along ay, spring along ax, motor on the relative
// rotation:
// C = dot(ay, d)
// Cdot = -dot(ay, v1) - dot(cross(d + r1, ay), w1) + dot(ay, v2) + dot(cross(r2, ay), v2)
// J = [-ay, -cross(d + r1, ay), ay, cross(r2, ay)]

func (j *WheelJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	// Compute the effective masses.
	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	// Point to line constraint
	j.ay = qA.Apply(j.localYAxisA)
	j.sAy = common.Cross(d.Add(rA), j.ay)
	j.sBy = common.Cross(rB, j.ay)

	j.mass = mA + mB + iA*j.sAy*j.sAy + iB*j.sBy*j.sBy
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	}

	// Spring constraint
	j.ax = qA.Apply(j.localXAxisA)
	j.sAx = common.Cross(d.Add(rA), j.ax)
	j.sBx = common.Cross(rB, j.ax)

	j.springMass = 0
	j.bias = 0
	j.gamma = 0
	if j.frequencyHz > 0 {
		invMass := mA + mB + iA*j.sAx*j.sAx + iB*j.sBx*j.sBx
		if invMass > 0 {
			j.springMass = 1.0 / invMass

			c := d.Dot(j.ax)
			j.gamma, j.bias = softness(j.springMass, j.frequencyHz, j.dampingRatio, c, data.step.dt)

			j.springMass = invMass + j.gamma
			if j.springMass > 0 {
				j.springMass = 1.0 / j.springMass
			}
		}
	} else {
		j.springImpulse = 0
	}

	// Rotational motor
	if j.enableMotor {
		j.motorMass = iA + iB
		if j.motorMass > 0 {
			j.motorMass = 1.0 / j.motorMass
		}
	} else {
		j.motorMass = 0
		j.motorImpulse = 0
	}

	if data.step.warmStarting {
		// Account for variable time step.
		j.impulse *= data.step.dtRatio
		j.springImpulse *= data.step.dtRatio
		j.motorImpulse *= data.step.dtRatio

		p := j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse))
		lA := j.impulse*j.sAy + j.springImpulse*j.sAx + j.motorImpulse
		lB := j.impulse*j.sBy + j.springImpulse*j.sBx + j.motorImpulse

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * lA

		vB = vB.Add(p.Mul(mB))
		wB += iB * lB
	} else {
		j.impulse = 0
		j.springImpulse = 0
		j.motorImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WheelJoint) solveVelocityConstraints(data *solverData) {
	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	// Solve spring constraint
	{
		cdot := j.ax.Dot(vB.Sub(vA)) + j.sBx*wB - j.sAx*wA
		impulse := -j.springMass * (cdot + j.bias + j.gamma*j.springImpulse)
		j.springImpulse += impulse

		p := j.ax.Mul(impulse)
		vA = vA.Sub(p.Mul(mA))
		wA -= iA * impulse * j.sAx
		vB = vB.Add(p.Mul(mB))
		wB += iB * impulse * j.sBx
	}

	// Solve rotational motor constraint
	{
		cdot := wB - wA - j.motorSpeed
		impulse := -j.motorMass * cdot

		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorTorque
		j.motorImpulse = common.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		wA -= iA * impulse
		wB += iB * impulse
	}

	// Solve point to line constraint
	{
		cdot := j.ay.Dot(vB.Sub(vA)) + j.sBy*wB - j.sAy*wA
		impulse := -j.mass * cdot
		j.impulse += impulse

		p := j.ay.Mul(impulse)
		vA = vA.Sub(p.Mul(mA))
		wA -= iA * impulse * j.sAy
		vB = vB.Add(p.Mul(mB))
		wB += iB * impulse * j.sBy
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WheelJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	ay := qA.Apply(j.localYAxisA)

	sAy := common.Cross(d.Add(rA), ay)
	sBy := common.Cross(rB, ay)

	c := d.Dot(ay)

	k := j.invMassA + j.invMassB + j.invIA*sAy*sAy + j.invIB*sBy*sBy

	impulse := 0.0
	if k != 0 {
		impulse = -c / k
	}

	p := ay.Mul(impulse)
	lA := impulse * sAy
	lB := impulse * sBy

	cA = cA.Sub(p.Mul(j.invMassA))
	aA -= j.invIA * lA
	cB = cB.Add(p.Mul(j.invMassB))
	aB += j.invIB * lB

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return math.Abs(c) <= common.LinearSlop
}

func (j *WheelJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *WheelJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *WheelJoint) ReactionForce(invDt float64) Vec2 {
	return j.ay.Mul(j.impulse).Add(j.ax.Mul(j.springImpulse)).Mul(invDt)
}

func (j *WheelJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *WheelJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *WheelJoint) LocalAnchorB() Vec2 { return j.localAnchorB }
func (j *WheelJoint) LocalAxisA() Vec2   { return j.localXAxisA }

// JointTranslation is the current suspension travel along the axis.
func (j *WheelJoint) JointTranslation() float64 {
	bA, bB := j.bodies()
	pA := bA.WorldPoint(j.localAnchorA)
	pB := bB.WorldPoint(j.localAnchorB)
	return pB.Sub(pA).Dot(bA.WorldVector(j.localXAxisA))
}

// JointAngularSpeed is the relative rotation speed of the wheel.
func (j *WheelJoint) JointAngularSpeed() float64 {
	bA, bB := j.bodies()
	return bB.angularVelocity - bA.angularVelocity
}

func (j *WheelJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *WheelJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wake()
		j.enableMotor = flag
	}
}

func (j *WheelJoint) MotorSpeed() float64 {
	return j.motorSpeed
}

func (j *WheelJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wake()
		j.motorSpeed = speed
	}
}

func (j *WheelJoint) MaxMotorTorque() float64 {
	return j.maxMotorTorque
}

func (j *WheelJoint) SetMaxMotorTorque(torque float64) {
	if torque != j.maxMotorTorque {
		j.wake()
		j.maxMotorTorque = torque
	}
}

func (j *WheelJoint) MotorTorque(invDt float64) float64 {
	return invDt * j.motorImpulse
}

func (j *WheelJoint) SpringFrequency() float64 {
	return j.frequencyHz
}

func (j *WheelJoint) SetSpringFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *WheelJoint) SpringDampingRatio() float64 {
	return j.dampingRatio
}

func (j *WheelJoint) SetSpringDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}
