package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// PrismaticJointDef defines a prismatic joint. The axis is fixed in bodyA and
// the anchors are local so the initial configuration can violate the
// constraint slightly.
type PrismaticJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// LocalAxisA is the translation unit axis in bodyA.
	LocalAxisA Vec2

	ReferenceAngle float64

	EnableLimit      bool
	LowerTranslation float64
	UpperTranslation float64

	EnableMotor   bool
	MaxMotorForce float64
	MotorSpeed    float64
}

func (*PrismaticJointDef) Type() JointType { return JointPrismatic }

// NewPrismaticJointDef returns a definition with the x axis as translation axis.
func NewPrismaticJointDef() *PrismaticJointDef {
	return &PrismaticJointDef{LocalAxisA: Vec2{1, 0}}
}

// Initialize sets the bodies, anchors, axis and reference angle from a world
// anchor and a world axis.
func (d *PrismaticJointDef) Initialize(bodyA, bodyB *Body, anchor, axis Vec2) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.LocalAxisA = bodyA.LocalVector(axis)
	d.ReferenceAngle = bodyB.Angle() - bodyA.Angle()
}

// PrismaticJoint allows relative translation of two bodies along an axis fixed
// in bodyA and prevents relative rotation.
type PrismaticJoint struct {
	jointBase

	localAnchorA   Vec2
	localAnchorB   Vec2
	localXAxisA    Vec2
	localYAxisA    Vec2
	referenceAngle float64

	impulse      Vec2
	motorImpulse float64
	lowerImpulse float64
	upperImpulse float64

	lowerTranslation float64
	upperTranslation float64
	maxMotorForce    float64
	motorSpeed       float64
	enableLimit      bool
	enableMotor      bool

	// Solver temp
	axis, perp  Vec2
	s1, s2      float64
	a1, a2      float64
	k           common.Mat22
	translation float64
	axialMass   float64
}

func newPrismaticJoint(base jointBase, def *PrismaticJointDef) PrismaticJoint {
	xAxis, _ := common.Normalize(def.LocalAxisA)
	return PrismaticJoint{
		jointBase:        base,
		localAnchorA:     def.LocalAnchorA,
		localAnchorB:     def.LocalAnchorB,
		localXAxisA:      xAxis,
		localYAxisA:      common.CrossSV(1.0, xAxis),
		referenceAngle:   def.ReferenceAngle,
		lowerTranslation: def.LowerTranslation,
		upperTranslation: def.UpperTranslation,
		maxMotorForce:    def.MaxMotorForce,
		motorSpeed:       def.MotorSpeed,
		enableLimit:      def.EnableLimit,
		enableMotor:      def.EnableMotor,
	}
}

// Linear constraint (point-to-line)
// d = p2 - p1 = x2 + r2 - x1 - r1
// C = dot(perp, d)
// Cdot = dot(d, cross(w1, perp)) + dot(perp, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// J = [-perp, -cross(d + r1, perp), perp, cross(r2,perp)]
//
// Angular constraint
// C = a2 - a1 + a_initial
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
//
// Motor and limits act along the axis with J = [-axis -cross(d+r1,axis) axis cross(r2,axis)].

func (j *PrismaticJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	// Compute the effective masses.
	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Sub(cA).Add(rB).Sub(rA)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Compute motor Jacobian and effective mass.
	j.axis = qA.Apply(j.localXAxisA)
	j.a1 = common.Cross(d.Add(rA), j.axis)
	j.a2 = common.Cross(rB, j.axis)

	j.axialMass = mA + mB + iA*j.a1*j.a1 + iB*j.a2*j.a2
	if j.axialMass > 0 {
		j.axialMass = 1.0 / j.axialMass
	}

	// Prismatic constraint.
	j.perp = qA.Apply(j.localYAxisA)
	j.s1 = common.Cross(d.Add(rA), j.perp)
	j.s2 = common.Cross(rB, j.perp)

	k11 := mA + mB + iA*j.s1*j.s1 + iB*j.s2*j.s2
	k12 := iA*j.s1 + iB*j.s2
	k22 := iA + iB
	if k22 == 0 {
		// For bodies with fixed rotation.
		k22 = 1
	}
	j.k = common.Mat22{k11, k12, k12, k22}

	if j.enableLimit {
		j.translation = j.axis.Dot(d)
	} else {
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}

	if !j.enableMotor {
		j.motorImpulse = 0
	}

	if data.step.warmStarting {
		// Account for variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		j.motorImpulse *= data.step.dtRatio
		j.lowerImpulse *= data.step.dtRatio
		j.upperImpulse *= data.step.dtRatio

		axialImpulse := j.motorImpulse + j.lowerImpulse - j.upperImpulse
		p := j.perp.Mul(j.impulse[0]).Add(j.axis.Mul(axialImpulse))
		lA := j.impulse[0]*j.s1 + j.impulse[1] + axialImpulse*j.a1
		lB := j.impulse[0]*j.s2 + j.impulse[1] + axialImpulse*j.a2

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * lA

		vB = vB.Add(p.Mul(mB))
		wB += iB * lB
	} else {
		j.impulse = Vec2{}
		j.motorImpulse = 0
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *PrismaticJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Solve linear motor constraint.
	if j.enableMotor {
		cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
		impulse := j.axialMass * (j.motorSpeed - cdot)
		oldImpulse := j.motorImpulse
		maxImpulse := data.step.dt * j.maxMotorForce
		j.motorImpulse = common.Clamp(j.motorImpulse+impulse, -maxImpulse, maxImpulse)
		impulse = j.motorImpulse - oldImpulse

		p := j.axis.Mul(impulse)
		vA = vA.Sub(p.Mul(mA))
		wA -= iA * impulse * j.a1
		vB = vB.Add(p.Mul(mB))
		wB += iB * impulse * j.a2
	}

	if j.enableLimit {
		// Lower limit
		{
			c := j.translation - j.lowerTranslation
			cdot := j.axis.Dot(vB.Sub(vA)) + j.a2*wB - j.a1*wA
			impulse := -j.axialMass * (cdot + max(c, 0)*data.step.invDt)
			oldImpulse := j.lowerImpulse
			j.lowerImpulse = max(j.lowerImpulse+impulse, 0)
			impulse = j.lowerImpulse - oldImpulse

			p := j.axis.Mul(impulse)
			vA = vA.Sub(p.Mul(mA))
			wA -= iA * impulse * j.a1
			vB = vB.Add(p.Mul(mB))
			wB += iB * impulse * j.a2
		}

		// Upper limit. The constraint sign is flipped so the impulse stays
		// non-negative.
		{
			c := j.upperTranslation - j.translation
			cdot := j.axis.Dot(vA.Sub(vB)) + j.a1*wA - j.a2*wB
			impulse := -j.axialMass * (cdot + max(c, 0)*data.step.invDt)
			oldImpulse := j.upperImpulse
			j.upperImpulse = max(j.upperImpulse+impulse, 0)
			impulse = j.upperImpulse - oldImpulse

			p := j.axis.Mul(impulse)
			vA = vA.Add(p.Mul(mA))
			wA += iA * impulse * j.a1
			vB = vB.Sub(p.Mul(mB))
			wB -= iB * impulse * j.a2
		}
	}

	// Solve the prismatic constraint in block form.
	cdot := Vec2{
		j.perp.Dot(vB.Sub(vA)) + j.s2*wB - j.s1*wA,
		wB - wA,
	}
	df := common.Solve22(j.k, cdot.Mul(-1))
	j.impulse = j.impulse.Add(df)

	p := j.perp.Mul(df[0])
	lA := df[0]*j.s1 + df[1]
	lB := df[0]*j.s2 + df[1]

	vA = vA.Sub(p.Mul(mA))
	wA -= iA * lA

	vB = vB.Add(p.Mul(mB))
	wB += iB * lB

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

// solvePositionConstraints solves the point-to-line, angle and limit
// constraints together when the limit is active, so that the angle and
// translation corrections do not fight each other.
func (j *PrismaticJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	// Compute fresh Jacobians
	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	d := cB.Add(rB).Sub(cA).Sub(rA)

	axis := qA.Apply(j.localXAxisA)
	a1 := common.Cross(d.Add(rA), axis)
	a2 := common.Cross(rB, axis)
	perp := qA.Apply(j.localYAxisA)

	s1 := common.Cross(d.Add(rA), perp)
	s2 := common.Cross(rB, perp)

	c1 := Vec2{perp.Dot(d), aB - aA - j.referenceAngle}

	linearError := math.Abs(c1[0])
	angularError := math.Abs(c1[1])

	active := false
	c2 := 0.0
	if j.enableLimit {
		translation := axis.Dot(d)
		switch {
		case math.Abs(j.upperTranslation-j.lowerTranslation) < 2.0*common.LinearSlop:
			c2 = translation
			linearError = max(linearError, math.Abs(translation))
			active = true
		case translation <= j.lowerTranslation:
			c2 = min(translation-j.lowerTranslation, 0)
			linearError = max(linearError, j.lowerTranslation-translation)
			active = true
		case translation >= j.upperTranslation:
			c2 = max(translation-j.upperTranslation, 0)
			linearError = max(linearError, translation-j.upperTranslation)
			active = true
		}
	}

	var impulse common.Vec3
	k11 := mA + mB + iA*s1*s1 + iB*s2*s2
	k12 := iA*s1 + iB*s2
	k22 := iA + iB
	if k22 == 0 {
		// For fixed rotation
		k22 = 1
	}

	if active {
		k13 := iA*s1*a1 + iB*s2*a2
		k23 := iA*a1 + iB*a2
		k33 := mA + mB + iA*a1*a1 + iB*a2*a2

		k := common.Mat33{
			k11, k12, k13,
			k12, k22, k23,
			k13, k23, k33,
		}
		impulse = common.Solve33(k, common.Vec3{-c1[0], -c1[1], -c2})
	} else {
		k := common.Mat22{k11, k12, k12, k22}
		impulse1 := common.Solve22(k, c1.Mul(-1))
		impulse = common.Vec3{impulse1[0], impulse1[1], 0}
	}

	p := perp.Mul(impulse[0]).Add(axis.Mul(impulse[2]))
	lA := impulse[0]*s1 + impulse[1] + impulse[2]*a1
	lB := impulse[0]*s2 + impulse[1] + impulse[2]*a2

	cA = cA.Sub(p.Mul(mA))
	aA -= iA * lA
	cB = cB.Add(p.Mul(mB))
	aB += iB * lB

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return linearError <= common.LinearSlop && angularError <= common.AngularSlop
}

func (j *PrismaticJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *PrismaticJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *PrismaticJoint) ReactionForce(invDt float64) Vec2 {
	axial := j.motorImpulse + j.lowerImpulse - j.upperImpulse
	return j.perp.Mul(j.impulse[0]).Add(j.axis.Mul(axial)).Mul(invDt)
}

func (j *PrismaticJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[1]
}

func (j *PrismaticJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *PrismaticJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *PrismaticJoint) LocalAxisA() Vec2        { return j.localXAxisA }
func (j *PrismaticJoint) ReferenceAngle() float64 { return j.referenceAngle }

// JointTranslation is the current translation along the axis.
func (j *PrismaticJoint) JointTranslation() float64 {
	bA, bB := j.bodies()
	pA := bA.WorldPoint(j.localAnchorA)
	pB := bB.WorldPoint(j.localAnchorB)
	return pB.Sub(pA).Dot(bA.WorldVector(j.localXAxisA))
}

// JointSpeed is the current translation speed along the axis.
func (j *PrismaticJoint) JointSpeed() float64 {
	bA, bB := j.bodies()

	rA := bA.xf.Q.Apply(j.localAnchorA.Sub(bA.sweep.LocalCenter))
	rB := bB.xf.Q.Apply(j.localAnchorB.Sub(bB.sweep.LocalCenter))
	p1 := bA.sweep.C.Add(rA)
	p2 := bB.sweep.C.Add(rB)
	d := p2.Sub(p1)
	axis := bA.xf.Q.Apply(j.localXAxisA)

	vA, vB := bA.linearVelocity, bB.linearVelocity
	wA, wB := bA.angularVelocity, bB.angularVelocity

	return d.Dot(common.CrossSV(wA, axis)) +
		axis.Dot(vB.Add(common.CrossSV(wB, rB)).Sub(vA).Sub(common.CrossSV(wA, rA)))
}

func (j *PrismaticJoint) IsLimitEnabled() bool {
	return j.enableLimit
}

func (j *PrismaticJoint) EnableLimit(flag bool) {
	if flag != j.enableLimit {
		j.wake()
		j.enableLimit = flag
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
}

func (j *PrismaticJoint) LowerLimit() float64 { return j.lowerTranslation }
func (j *PrismaticJoint) UpperLimit() float64 { return j.upperTranslation }

// SetLimits sets the translation range. Panics when lower > upper.
func (j *PrismaticJoint) SetLimits(lower, upper float64) {
	common.Assert(lower <= upper, "prismatic joint lower limit above upper limit")
	if lower != j.lowerTranslation || upper != j.upperTranslation {
		j.wake()
		j.lowerTranslation = lower
		j.upperTranslation = upper
		j.lowerImpulse = 0
		j.upperImpulse = 0
	}
}

func (j *PrismaticJoint) IsMotorEnabled() bool {
	return j.enableMotor
}

func (j *PrismaticJoint) EnableMotor(flag bool) {
	if flag != j.enableMotor {
		j.wake()
		j.enableMotor = flag
	}
}

func (j *PrismaticJoint) MotorSpeed() float64 {
	return j.motorSpeed
}

func (j *PrismaticJoint) SetMotorSpeed(speed float64) {
	if speed != j.motorSpeed {
		j.wake()
		j.motorSpeed = speed
	}
}

func (j *PrismaticJoint) MaxMotorForce() float64 {
	return j.maxMotorForce
}

func (j *PrismaticJoint) SetMaxMotorForce(force float64) {
	if force != j.maxMotorForce {
		j.wake()
		j.maxMotorForce = force
	}
}

// MotorForce is the current motor force given the inverse time step.
func (j *PrismaticJoint) MotorForce(invDt float64) float64 {
	return invDt * j.motorImpulse
}
