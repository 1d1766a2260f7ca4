package box2d

import (
	"github.com/ByteArena/box2d/v2/common"
)

// MouseJointDef defines a mouse joint. BodyA is usually a static ground body
// and only anchors the joint; BodyB is dragged towards Target.
type MouseJointDef struct {
	JointDefBase

	// Target is the initial world target point. It is assumed to coincide
	// with the body anchor initially.
	Target Vec2

	// MaxForce is the maximum constraint force that can be exerted to move
	// the candidate body. Usually a multiple of the body weight.
	MaxForce float64

	FrequencyHz  float64
	DampingRatio float64
}

// NewMouseJointDef returns a definition with a 5Hz spring.
func NewMouseJointDef() *MouseJointDef {
	return &MouseJointDef{
		FrequencyHz:  5.0,
		DampingRatio: 0.7,
	}
}

func (*MouseJointDef) Type() JointType { return JointMouse }

// MouseJoint makes a point on a body track a world target using a soft
// constraint with a maximum force.
type MouseJoint struct {
	jointBase

	localAnchorB Vec2
	targetA      Vec2
	frequencyHz  float64
	dampingRatio float64
	beta         float64

	// Solver shared
	impulse  Vec2
	maxForce float64
	gamma    float64

	// Solver temp
	rB   Vec2
	mass common.Mat22
	c    Vec2
}

func newMouseJoint(base jointBase, def *MouseJointDef) MouseJoint {
	common.Assert(common.IsValidVec(def.Target), "mouse joint target is not finite")
	common.Assert(common.IsValid(def.MaxForce) && def.MaxForce >= 0, "mouse joint force must be non-negative")
	common.Assert(common.IsValid(def.FrequencyHz) && def.FrequencyHz >= 0, "mouse joint frequency must be non-negative")
	common.Assert(common.IsValid(def.DampingRatio) && def.DampingRatio >= 0, "mouse joint damping must be non-negative")

	bB := base.world.body(def.BodyB)
	return MouseJoint{
		jointBase:    base,
		targetA:      def.Target,
		localAnchorB: bB.Transform().ApplyT(def.Target),
		maxForce:     def.MaxForce,
		frequencyHz:  def.FrequencyHz,
		dampingRatio: def.DampingRatio,
	}
}

// p = attached point, m = mouse point
// C = p - m
// Cdot = v
//      = v + cross(w, r)
// J = [I r_skew]
// Identity used:
// w k % (rx i + ry j) = w * (-ry i + rx j)

func (j *MouseJoint) initVelocityConstraints(data *solverData) {
	j.loadBodies()

	cB, aB := data.positions[j.indexB].c, data.positions[j.indexB].a
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	qB := common.NewRot(aB)

	_, body := j.bodies()
	mass := body.Mass()

	// Frequency
	omega := 2.0 * common.Pi * j.frequencyHz

	// Damping coefficient
	d := 2.0 * mass * j.dampingRatio * omega

	// Spring stiffness
	k := mass * (omega * omega)

	// magic formulas
	// gamma has units of inverse mass.
	// beta has units of inverse time.
	h := data.step.dt
	common.Assert(d+h*k > common.Epsilon, "mouse joint spring is too weak")
	j.gamma = h * (d + h*k)
	if j.gamma != 0 {
		j.gamma = 1.0 / j.gamma
	}
	j.beta = h * k * j.gamma

	// Compute the effective mass matrix.
	j.rB = qB.Apply(j.localAnchorB.Sub(j.localCenterB))

	// K    = [(1/m1 + 1/m2) * eye(2) - skew(r1) * invI1 * skew(r1) - skew(r2) * invI2 * skew(r2)]
	//      = [1/m1+1/m2     0    ] + invI1 * [r1.y*r1.y -r1.x*r1.y] + invI2 * [r1.y*r1.y -r1.x*r1.y]
	//        [    0     1/m1+1/m2]           [-r1.x*r1.y r1.x*r1.x]           [-r1.x*r1.y r1.x*r1.x]
	mB, iB := j.invMassB, j.invIB
	kk := common.Mat22{
		mB + iB*j.rB[1]*j.rB[1] + j.gamma,
		-iB * j.rB[0] * j.rB[1],
		-iB * j.rB[0] * j.rB[1],
		mB + iB*j.rB[0]*j.rB[0] + j.gamma,
	}
	j.mass = kk.Inv()

	j.c = cB.Add(j.rB).Sub(j.targetA).Mul(j.beta)

	// Cheat with some damping
	wB *= 0.98

	if data.step.warmStarting {
		j.impulse = j.impulse.Mul(data.step.dtRatio)
		vB = vB.Add(j.impulse.Mul(mB))
		wB += iB * common.Cross(j.rB, j.impulse)
	} else {
		j.impulse = Vec2{}
	}

	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *MouseJoint) solveVelocityConstraints(data *solverData) {
	vB, wB := data.velocities[j.indexB].v, data.velocities[j.indexB].w

	// Cdot = v + cross(w, r)
	cdot := vB.Add(common.CrossSV(wB, j.rB))
	impulse := j.mass.Mul2x1(cdot.Add(j.c).Add(j.impulse.Mul(j.gamma)).Mul(-1))

	oldImpulse := j.impulse
	j.impulse = clampLength(j.impulse.Add(impulse), data.step.dt*j.maxForce)
	impulse = j.impulse.Sub(oldImpulse)

	vB = vB.Add(impulse.Mul(j.invMassB))
	wB += j.invIB * common.Cross(j.rB, impulse)

	data.velocities[j.indexB] = velocity{vB, wB}
}

func (j *MouseJoint) solvePositionConstraints(*solverData) bool {
	return true
}

func (j *MouseJoint) AnchorA() Vec2 {
	return j.targetA
}

func (j *MouseJoint) AnchorB() Vec2 {
	_, bB := j.bodies()
	return bB.WorldPoint(j.localAnchorB)
}

func (j *MouseJoint) ReactionForce(invDt float64) Vec2 {
	return j.impulse.Mul(invDt)
}

func (j *MouseJoint) ReactionTorque(float64) float64 {
	return 0
}

// SetTarget moves the world target point and wakes the dragged body.
func (j *MouseJoint) SetTarget(target Vec2) {
	if target != j.targetA {
		_, bB := j.bodies()
		bB.SetAwake(true)
		j.targetA = target
	}
}

func (j *MouseJoint) Target() Vec2          { return j.targetA }
func (j *MouseJoint) MaxForce() float64     { return j.maxForce }
func (j *MouseJoint) Frequency() float64    { return j.frequencyHz }
func (j *MouseJoint) DampingRatio() float64 { return j.dampingRatio }

func (j *MouseJoint) SetMaxForce(force float64) {
	j.maxForce = force
}

func (j *MouseJoint) SetFrequency(hz float64) {
	j.frequencyHz = hz
}

func (j *MouseJoint) SetDampingRatio(ratio float64) {
	j.dampingRatio = ratio
}

func (j *MouseJoint) shiftOrigin(newOrigin Vec2) {
	j.targetA = j.targetA.Sub(newOrigin)
}
