package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// GearJointDef defines a gear joint between two revolute or prismatic joints.
// Use Initialize so that BodyA and BodyB are the moving bodies of the two
// joints.
type GearJointDef struct {
	JointDefBase

	// JointA and JointB must be revolute or prismatic joints whose BodyA is
	// usually static ground.
	JointA Joint
	JointB Joint

	// Ratio is the gear ratio.
	Ratio float64
}

func (*GearJointDef) Type() JointType { return JointGear }

// Initialize couples jointA and jointB with the given ratio.
func (d *GearJointDef) Initialize(jointA, jointB Joint, ratio float64) {
	d.JointA = jointA
	d.JointB = jointB
	d.BodyA = jointA.BodyB()
	d.BodyB = jointB.BodyB()
	d.Ratio = ratio
}

// GearJoint couples the coordinates of two revolute or prismatic joints so
// that coordinateA + ratio * coordinateB is constant. Destroy the gear joint
// before either of its joints.
type GearJoint struct {
	jointBase

	jointA, jointB Joint
	typeA, typeB   JointType

	// Body A is connected to body C. Body B is connected to body D.
	bodyC, bodyD BodyHandle

	// Solver shared
	localAnchorA, localAnchorB Vec2
	localAnchorC, localAnchorD Vec2

	localAxisC, localAxisD Vec2

	referenceAngleA, referenceAngleB float64

	constant float64
	ratio    float64
	impulse  float64

	// Solver temp
	indexC, indexD int
	lcC, lcD       Vec2
	mC, mD         float64
	iC, iD         float64
	jvAC, jvBD     Vec2
	jwA, jwB       float64
	jwC, jwD       float64
	mass           float64
}

// gearFrame is the geometry one side of a gear reads from its joint.
type gearFrame struct {
	localAnchorGround Vec2
	localAnchorBody   Vec2
	localAxis         Vec2
	referenceAngle    float64
}

func gearFrameOf(j Joint) gearFrame {
	switch j := j.(type) {
	case *RevoluteJoint:
		return gearFrame{
			localAnchorGround: j.localAnchorA,
			localAnchorBody:   j.localAnchorB,
			referenceAngle:    j.referenceAngle,
		}
	case *PrismaticJoint:
		return gearFrame{
			localAnchorGround: j.localAnchorA,
			localAnchorBody:   j.localAnchorB,
			localAxis:         j.localXAxisA,
			referenceAngle:    j.referenceAngle,
		}
	}
	panic("box2d: gear joint needs revolute or prismatic joints")
}

// gearCoordinate is the joint coordinate of the pair (ground, body): an angle
// for revolute joints and a translation along the axis for prismatic ones.
func gearCoordinate(kind JointType, f gearFrame, ground, body *Body) float64 {
	if kind == JointRevolute {
		return body.sweep.A - ground.sweep.A - f.referenceAngle
	}
	xfG, xfB := ground.xf, body.xf
	pG := f.localAnchorGround
	pB := xfG.Q.ApplyT(xfB.Q.Apply(f.localAnchorBody).Add(xfB.P.Sub(xfG.P)))
	return pB.Sub(pG).Dot(f.localAxis)
}

func newGearJoint(base jointBase, def *GearJointDef) GearJoint {
	w := base.world
	j := GearJoint{
		jointBase: base,
		jointA:    def.JointA,
		jointB:    def.JointB,
		typeA:     def.JointA.Type(),
		typeB:     def.JointB.Type(),
		ratio:     def.Ratio,
	}

	common.Assert(j.typeA == JointRevolute || j.typeA == JointPrismatic, "gear jointA must be revolute or prismatic")
	common.Assert(j.typeB == JointRevolute || j.typeB == JointPrismatic, "gear jointB must be revolute or prismatic")

	common.Assert(j.bodyA == def.JointA.BodyB(), "gear bodyA must be the moving body of jointA")
	common.Assert(j.bodyB == def.JointB.BodyB(), "gear bodyB must be the moving body of jointB")

	fA := gearFrameOf(def.JointA)
	j.bodyC = def.JointA.BodyA()
	j.localAnchorC = fA.localAnchorGround
	j.localAnchorA = fA.localAnchorBody
	j.localAxisC = fA.localAxis
	j.referenceAngleA = fA.referenceAngle
	coordinateA := gearCoordinate(j.typeA, fA, w.body(j.bodyC), w.body(j.bodyA))

	fB := gearFrameOf(def.JointB)
	j.bodyD = def.JointB.BodyA()
	j.localAnchorD = fB.localAnchorGround
	j.localAnchorB = fB.localAnchorBody
	j.localAxisD = fB.localAxis
	j.referenceAngleB = fB.referenceAngle
	coordinateB := gearCoordinate(j.typeB, fB, w.body(j.bodyD), w.body(j.bodyB))

	j.constant = coordinateA + j.ratio*coordinateB
	return j
}

// The gear also reads the state of bodies C and D, which reach the island
// through the coupled joints.
func (j *GearJoint) captureIndices() {
	j.jointBase.captureIndices()
	j.indexC = j.world.body(j.bodyC).islandIndex
	j.indexD = j.world.body(j.bodyD).islandIndex
}

// Gear Joint:
// C0 = (coordinate1 + ratio * coordinate2)_initial
// C = (coordinate1 + ratio * coordinate2) - C0 = 0
// J = J1 + ratio * J2
// K = J * invM * JT
//
// Revolute:
// coordinate = rotation
// Cdot = angularVelocity
// J = [0 0 1]
// K = J * invM * JT = invI
//
// Prismatic:
// coordinate = dot(p - pg, ug)
// Cdot = dot(v + cross(w, r), ug)
// J = [ug cross(r, ug)]
// K = J * invM * JT = invMass + invI * cross(r, ug)^2

// jacobian computes the gear Jacobian and effective mass for the given
// orientations.
func (j *GearJoint) jacobian(qA, qB, qC, qD common.Rot) {
	j.mass = 0

	if j.typeA == JointRevolute {
		j.jvAC = Vec2{}
		j.jwA = 1
		j.jwC = 1
		j.mass += j.invIA + j.iC
	} else {
		u := qC.Apply(j.localAxisC)
		rC := qC.Apply(j.localAnchorC.Sub(j.lcC))
		rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
		j.jvAC = u
		j.jwC = common.Cross(rC, u)
		j.jwA = common.Cross(rA, u)
		j.mass += j.mC + j.invMassA + j.iC*j.jwC*j.jwC + j.invIA*j.jwA*j.jwA
	}

	if j.typeB == JointRevolute {
		j.jvBD = Vec2{}
		j.jwB = j.ratio
		j.jwD = j.ratio
		j.mass += j.ratio * j.ratio * (j.invIB + j.iD)
	} else {
		u := qD.Apply(j.localAxisD)
		rD := qD.Apply(j.localAnchorD.Sub(j.lcD))
		rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
		j.jvBD = u.Mul(j.ratio)
		j.jwD = j.ratio * common.Cross(rD, u)
		j.jwB = j.ratio * common.Cross(rB, u)
		j.mass += j.ratio*j.ratio*(j.mD+j.invMassB) + j.iD*j.jwD*j.jwD + j.invIB*j.jwB*j.jwB
	}

	// Compute effective mass.
	if j.mass > 0 {
		j.mass = 1.0 / j.mass
	} else {
		j.mass = 0
	}
}

// apply adds a gear impulse to the four velocities.
func (j *GearJoint) apply(data *solverData, impulse float64) {
	a, b := &data.velocities[j.indexA], &data.velocities[j.indexB]
	c, d := &data.velocities[j.indexC], &data.velocities[j.indexD]

	a.v = a.v.Add(j.jvAC.Mul(j.invMassA * impulse))
	a.w += j.invIA * impulse * j.jwA
	b.v = b.v.Add(j.jvBD.Mul(j.invMassB * impulse))
	b.w += j.invIB * impulse * j.jwB
	c.v = c.v.Sub(j.jvAC.Mul(j.mC * impulse))
	c.w -= j.iC * impulse * j.jwC
	d.v = d.v.Sub(j.jvBD.Mul(j.mD * impulse))
	d.w -= j.iD * impulse * j.jwD
}

func (j *GearJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()
	bC, bD := j.world.body(j.bodyC), j.world.body(j.bodyD)
	j.lcC, j.lcD = bC.sweep.LocalCenter, bD.sweep.LocalCenter
	j.mC, j.mD = bC.invMass, bD.invMass
	j.iC, j.iD = bC.invI, bD.invI

	j.jacobian(
		common.NewRot(data.positions[j.indexA].a),
		common.NewRot(data.positions[j.indexB].a),
		common.NewRot(data.positions[j.indexC].a),
		common.NewRot(data.positions[j.indexD].a),
	)

	if data.step.warmStarting {
		j.impulse *= data.step.dtRatio
		j.apply(data, j.impulse)
	} else {
		j.impulse = 0
	}
}

func (j *GearJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w
	vC, wC := data.velocities[j.indexC].v, data.velocities[j.indexC].w
	vD, wD := data.velocities[j.indexD].v, data.velocities[j.indexD].w

	cdot := j.jvAC.Dot(vA.Sub(vC)) + j.jvBD.Dot(vB.Sub(vD))
	cdot += (j.jwA*wA - j.jwC*wC) + (j.jwB*wB - j.jwD*wD)

	impulse := -j.mass * cdot
	j.impulse += impulse

	j.apply(data, impulse)
}

func (j *GearJoint) solvePositionConstraints(data *solverData) bool {
	pA, pB := &data.positions[j.indexA], &data.positions[j.indexB]
	pC, pD := &data.positions[j.indexC], &data.positions[j.indexD]

	qA, qB := common.NewRot(pA.a), common.NewRot(pB.a)
	qC, qD := common.NewRot(pC.a), common.NewRot(pD.a)

	j.jacobian(qA, qB, qC, qD)

	var coordinateA, coordinateB float64
	if j.typeA == JointRevolute {
		coordinateA = pA.a - pC.a - j.referenceAngleA
	} else {
		rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
		p := j.localAnchorC.Sub(j.lcC)
		pa := qC.ApplyT(rA.Add(pA.c.Sub(pC.c)))
		coordinateA = pa.Sub(p).Dot(j.localAxisC)
	}

	if j.typeB == JointRevolute {
		coordinateB = pB.a - pD.a - j.referenceAngleB
	} else {
		rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
		p := j.localAnchorD.Sub(j.lcD)
		pb := qD.ApplyT(rB.Add(pB.c.Sub(pD.c)))
		coordinateB = pb.Sub(p).Dot(j.localAxisD)
	}

	c := (coordinateA + j.ratio*coordinateB) - j.constant

	impulse := 0.0
	if j.mass > 0 {
		impulse = -j.mass * c
	}

	pA.c = pA.c.Add(j.jvAC.Mul(j.invMassA * impulse))
	pA.a += j.invIA * impulse * j.jwA
	pB.c = pB.c.Add(j.jvBD.Mul(j.invMassB * impulse))
	pB.a += j.invIB * impulse * j.jwB
	pC.c = pC.c.Sub(j.jvAC.Mul(j.mC * impulse))
	pC.a -= j.iC * impulse * j.jwC
	pD.c = pD.c.Sub(j.jvBD.Mul(j.mD * impulse))
	pD.a -= j.iD * impulse * j.jwD

	return math.Abs(c) < common.LinearSlop
}

func (j *GearJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *GearJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *GearJoint) ReactionForce(invDt float64) Vec2 {
	return j.jvAC.Mul(invDt * j.impulse)
}

func (j *GearJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse * j.jwA
}

func (j *GearJoint) JointA() Joint  { return j.jointA }
func (j *GearJoint) JointB() Joint  { return j.jointB }
func (j *GearJoint) Ratio() float64 { return j.ratio }

// SetRatio changes the gear ratio. Panics on a non-finite ratio.
func (j *GearJoint) SetRatio(ratio float64) {
	common.Assert(common.IsValid(ratio), "gear ratio must be finite")
	j.ratio = ratio
}
