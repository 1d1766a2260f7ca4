package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// WeldJointDef defines a weld joint. A positive FrequencyHz softens the
// angular constraint.
type WeldJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	ReferenceAngle float64

	// FrequencyHz is the angular mass-spring-damper frequency. Zero makes the
	// weld rigid.
	FrequencyHz  float64
	DampingRatio float64
}

func (*WeldJointDef) Type() JointType { return JointWeld }

// Initialize sets the bodies, anchors and reference angle from a world anchor.
func (d *WeldJointDef) Initialize(bodyA, bodyB *Body, anchor Vec2) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LocalAnchorA = bodyA.LocalPoint(anchor)
	d.LocalAnchorB = bodyB.LocalPoint(anchor)
	d.ReferenceAngle = bodyB.Angle() - bodyA.Angle()
}

// WeldJoint glues two bodies together.
type WeldJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA   Vec2
	localAnchorB   Vec2
	referenceAngle float64
	gamma          float64
	impulse        common.Vec3

	// Solver temp
	rA, rB Vec2
	mass   common.Mat33
}

func newWeldJoint(base jointBase, def *WeldJointDef) WeldJoint {
	return WeldJoint{
		jointBase:      base,
		localAnchorA:   def.LocalAnchorA,
		localAnchorB:   def.LocalAnchorB,
		referenceAngle: def.ReferenceAngle,
		frequencyHz:    def.FrequencyHz,
		dampingRatio:   def.DampingRatio,
	}
}

// Point-to-point constraint
// C = p2 - p1
// Cdot = v2 - v1
//      = v2 + cross(w2, r2) - v1 - cross(w1, r1)
// J = [-I -r1_skew I r2_skew ]
//
// Angle constraint
// C = angle2 - angle1 - referenceAngle
// Cdot = w2 - w1
// J = [0 0 -1 0 0 1]
// K = invI1 + invI2

// weldK is the 3x3 effective mass of the combined point and angle constraint.
func weldK(rA, rB Vec2, mA, mB, iA, iB float64) common.Mat33 {
	exx := mA + mB + rA[1]*rA[1]*iA + rB[1]*rB[1]*iB
	eyx := -rA[1]*rA[0]*iA - rB[1]*rB[0]*iB
	ezx := -rA[1]*iA - rB[1]*iB
	eyy := mA + mB + rA[0]*rA[0]*iA + rB[0]*rB[0]*iB
	ezy := rA[0]*iA + rB[0]*iB
	ezz := iA + iB
	return common.Mat33{
		exx, eyx, ezx,
		eyx, eyy, ezy,
		ezx, ezy, ezz,
	}
}

// mul22 multiplies the upper 2x2 block of m by v.
func mul22(m common.Mat33, v Vec2) Vec2 {
	return Vec2{m[0]*v[0] + m[3]*v[1], m[1]*v[0] + m[4]*v[1]}
}

func (j *WeldJoint) initVelocityConstraints(data *solverData) {
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

	k := weldK(j.rA, j.rB, mA, mB, iA, iB)

	switch {
	case j.frequencyHz > 0:
		j.mass = common.Inverse22Of33(k)

		invM := iA + iB
		m := 0.0
		if invM > 0 {
			m = 1.0 / invM
		}

		c := aB - aA - j.referenceAngle
		j.gamma, j.bias = softness(m, j.frequencyHz, j.dampingRatio, c, data.step.dt)

		invM += j.gamma
		if invM != 0 {
			j.mass[8] = 1.0 / invM
		} else {
			j.mass[8] = 0
		}
	case k[8] == 0:
		j.mass = common.Inverse22Of33(k)
		j.gamma = 0
		j.bias = 0
	default:
		j.mass = common.SymInverse33(k)
		j.gamma = 0
		j.bias = 0
	}

	if data.step.warmStarting {
		// Scale impulses to support a variable time step.
		j.impulse = j.impulse.Mul(data.step.dtRatio)

		p := Vec2{j.impulse[0], j.impulse[1]}

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (common.Cross(j.rA, p) + j.impulse[2])

		vB = vB.Add(p.Mul(mB))
		wB += iB * (common.Cross(j.rB, p) + j.impulse[2])
	} else {
		j.impulse = common.Vec3{}
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WeldJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	if j.frequencyHz > 0 {
		cdot2 := wB - wA

		impulse2 := -j.mass[8] * (cdot2 + j.bias + j.gamma*j.impulse[2])
		j.impulse[2] += impulse2

		wA -= iA * impulse2
		wB += iB * impulse2

		cdot1 := vB.Add(common.CrossSV(wB, j.rB)).Sub(vA).Sub(common.CrossSV(wA, j.rA))

		impulse1 := mul22(j.mass, cdot1).Mul(-1)
		j.impulse[0] += impulse1[0]
		j.impulse[1] += impulse1[1]

		p := impulse1

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * common.Cross(j.rA, p)

		vB = vB.Add(p.Mul(mB))
		wB += iB * common.Cross(j.rB, p)
	} else {
		cdot1 := vB.Add(common.CrossSV(wB, j.rB)).Sub(vA).Sub(common.CrossSV(wA, j.rA))
		cdot2 := wB - wA
		cdot := common.Vec3{cdot1[0], cdot1[1], cdot2}

		impulse := j.mass.Mul3x1(cdot).Mul(-1)
		j.impulse = j.impulse.Add(impulse)

		p := Vec2{impulse[0], impulse[1]}

		vA = vA.Sub(p.Mul(mA))
		wA -= iA * (common.Cross(j.rA, p) + impulse[2])

		vB = vB.Add(p.Mul(mB))
		wB += iB * (common.Cross(j.rB, p) + impulse[2])
	}

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *WeldJoint) solvePositionConstraints(data *solverData) bool {
	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	mA, mB := j.invMassA, j.invMassB
	iA, iB := j.invIA, j.invIB

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	var positionError, angularError float64

	k := weldK(rA, rB, mA, mB, iA, iB)

	if j.frequencyHz > 0 {
		c1 := cB.Add(rB).Sub(cA).Sub(rA)

		positionError = c1.Len()
		angularError = 0

		p := common.Solve33Upper2(k, c1).Mul(-1)

		cA = cA.Sub(p.Mul(mA))
		aA -= iA * common.Cross(rA, p)

		cB = cB.Add(p.Mul(mB))
		aB += iB * common.Cross(rB, p)
	} else {
		c1 := cB.Add(rB).Sub(cA).Sub(rA)
		c2 := aB - aA - j.referenceAngle

		positionError = c1.Len()
		angularError = math.Abs(c2)

		var impulse common.Vec3
		if k[8] > 0 {
			impulse = common.Solve33(k, common.Vec3{c1[0], c1[1], c2}).Mul(-1)
		} else {
			impulse2 := common.Solve33Upper2(k, c1).Mul(-1)
			impulse = common.Vec3{impulse2[0], impulse2[1], 0}
		}

		p := Vec2{impulse[0], impulse[1]}

		cA = cA.Sub(p.Mul(mA))
		aA -= iA * (common.Cross(rA, p) + impulse[2])

		cB = cB.Add(p.Mul(mB))
		aB += iB * (common.Cross(rB, p) + impulse[2])
	}

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return positionError <= common.LinearSlop && angularError <= common.AngularSlop
}

func (j *WeldJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *WeldJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *WeldJoint) ReactionForce(invDt float64) Vec2 {
	return Vec2{j.impulse[0], j.impulse[1]}.Mul(invDt)
}

func (j *WeldJoint) ReactionTorque(invDt float64) float64 {
	return invDt * j.impulse[2]
}

func (j *WeldJoint) LocalAnchorA() Vec2      { return j.localAnchorA }
func (j *WeldJoint) LocalAnchorB() Vec2      { return j.localAnchorB }
func (j *WeldJoint) ReferenceAngle() float64 { return j.referenceAngle }

func (j *WeldJoint) Frequency() float64 {
	return j.frequencyHz
}

func (j *WeldJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *WeldJoint) DampingRatio() float64 {
	return j.dampingRatio
}

func (j *WeldJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}
