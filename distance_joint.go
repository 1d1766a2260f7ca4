package box2d

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// DistanceJointDef defines a distance joint. A zero frequency makes the
// joint rigid.
type DistanceJointDef struct {
	JointDefBase

	LocalAnchorA Vec2
	LocalAnchorB Vec2

	// Length is the natural length between the anchor points.
	Length float64

	// FrequencyHz is the mass-spring-damper frequency. Zero disables
	// softness.
	FrequencyHz float64

	// DampingRatio is 0 for no damping and 1 for critical damping.
	DampingRatio float64
}

func (*DistanceJointDef) Type() JointType { return JointDistance }

// NewDistanceJointDef returns a rigid definition of unit length.
func NewDistanceJointDef() *DistanceJointDef {
	return &DistanceJointDef{Length: 1}
}

// Initialize sets the bodies, anchors and length from world anchor points.
func (d *DistanceJointDef) Initialize(bodyA, bodyB *Body, anchorA, anchorB Vec2) {
	d.BodyA = bodyA.Handle()
	d.BodyB = bodyB.Handle()
	d.LocalAnchorA = bodyA.LocalPoint(anchorA)
	d.LocalAnchorB = bodyB.LocalPoint(anchorB)
	d.Length = anchorB.Sub(anchorA).Len()
}

// DistanceJoint keeps the anchor points at a fixed distance, optionally as a
// soft spring.
type DistanceJoint struct {
	jointBase

	frequencyHz  float64
	dampingRatio float64
	bias         float64

	localAnchorA Vec2
	localAnchorB Vec2
	gamma        float64
	impulse      float64
	length       float64

	// Solver temp
	u      Vec2
	rA, rB Vec2
	mass   float64
}

func newDistanceJoint(base jointBase, def *DistanceJointDef) DistanceJoint {
	return DistanceJoint{
		jointBase:    base,
		localAnchorA: def.LocalAnchorA,
		localAnchorB: def.LocalAnchorB,
		length:       def.Length,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

// 1-D constrained system
// m (v2 - v1) = lambda
// v2 + (beta/h) * x1 + gamma * lambda = 0, gamma has units of inverse mass.
// x2 = x1 + h * v2
//
// C = norm(p2 - p1) - L
// u = (p2 - p1) / norm(p2 - p1)
// Cdot = dot(u, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// J = [-u -cross(r1, u) u cross(r2, u)]
// K = J * invM * JT
//   = invMass1 + invI1 * cross(r1, u)^2 + invMass2 + invI2 * cross(r2, u)^2

func (j *DistanceJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	j.rA = qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	// Handle singularity.
	var length float64
	j.u, length = common.Normalize(cB.Add(j.rB).Sub(cA).Sub(j.rA))
	if length <= common.LinearSlop {
		j.u = Vec2{}
	}

	crAu := common.Cross(j.rA, j.u)
	crBu := common.Cross(j.rB, j.u)
	invMass := j.invMassA + j.invIA*crAu*crAu + j.invMassB + j.invIB*crBu*crBu

	// Compute the effective mass matrix.
	if invMass != 0 {
		j.mass = 1.0 / invMass
	} else {
		j.mass = 0
	}

	if j.frequencyHz > 0 {
		j.gamma, j.bias = softness(j.mass, j.frequencyHz, j.dampingRatio, length-j.length, data.step.dt)

		invMass += j.gamma
		if invMass != 0 {
			j.mass = 1.0 / invMass
		} else {
			j.mass = 0
		}
	} else {
		j.gamma = 0
		j.bias = 0
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

func (j *DistanceJoint) solveVelocityConstraints(data *solverData) {
	vA, wA := data.velocities[j.indexA].v, data.velocities[j.indexA].w
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	// Cdot = dot(u, v + cross(w, r))
	vpA := vA.Add(common.CrossSV(wA, j.rA))
	vpB := vB.Add(common.CrossSV(wB, j.rB))
	cdot := j.u.Dot(vpB.Sub(vpA))

	impulse := -j.mass * (cdot + j.bias + j.gamma*j.impulse)
	j.impulse += impulse

	p := j.u.Mul(impulse)
	vA = vA.Sub(p.Mul(j.invMassA))
	wA -= j.invIA * common.Cross(j.rA, p)
	vB = vB.Add(p.Mul(j.invMassB))
	wB += j.invIB * common.Cross(j.rB, p)

	data.velocities[j.indexA] = velocity{vA, wA}
	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *DistanceJoint) solvePositionConstraints(data *solverData) bool {
	if j.frequencyHz > 0 {
		// There is no position correction for soft distance constraints.
		return true
	}

	cA, aA := data.positions[j.indexA].c, data.positions[j.indexA].a
	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a

	qA, qB := common.NewRot(aA), common.NewRot(aB)

	rA := qA.Apply(j.localAnchorA.Sub(j.localCenterA))
	rB := qB.Apply(j.localAnchorB.Sub(j.localCenterB))
	u, length := common.Normalize(cB.Add(rB).Sub(cA).Sub(rA))
	c := common.Clamp(length-j.length, -common.MaxLinearCorrection, common.MaxLinearCorrection)

	impulse := -j.mass * c
	p := u.Mul(impulse)

	cA = cA.Sub(p.Mul(j.invMassA))
	aA -= j.invIA * common.Cross(rA, p)
	cB = cB.Add(p.Mul(j.invMassB))
	aB += j.invIB * common.Cross(rB, p)

	data.positions[j.indexA] = position{cA, aA}
	data.positions[j.indexB] = position{cB, aB}

	return math.Abs(c) < common.LinearSlop
}

func (j *DistanceJoint) AnchorA() Vec2 {
	bA, _ := j.bodies()
	return bA.WorldPoint(j.localAnchorA)
}

func (j *DistanceJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *DistanceJoint) ReactionForce(invDt float64) Vec2 {
	return j.u.Mul(invDt * j.impulse)
}

func (j *DistanceJoint) ReactionTorque(float64) float64 {
	return 0
}

func (j *DistanceJoint) LocalAnchorA() Vec2 { return j.localAnchorA }
func (j *DistanceJoint) LocalAnchorB() Vec2 { return j.localAnchorB }

func (j *DistanceJoint) Length() float64 {
	return j.length
}

func (j *DistanceJoint) SetLength(length float64) {
	j.length = length
}

func (j *DistanceJoint) Frequency() float64 {
	return j.frequencyHz
}

func (j *DistanceJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *DistanceJoint) DampingRatio() float64 {
	return j.dampingRatio
}

func (j *DistanceJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}
