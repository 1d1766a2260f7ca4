package box2d

import (
	"fmt"

	"github.com/ByteArena/box2d/v2/common"
)

// JointType is the closed set of joint variants.
type JointType uint8

const (
	JointRevolute JointType = iota
	JointPrismatic
	JointDistance
	JointPulley
	JointMouse
	JointGear
	JointWheel
	JointWeld
	JointFriction
	JointRope
	JointMotor
	jointTypeCount
)

func (t JointType) String() string {
	switch t {
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	case JointDistance:
		return "distance"
	case JointPulley:
		return "pulley"
	case JointMouse:
		return "mouse"
	case JointGear:
		return "gear"
	case JointWheel:
		return "wheel"
	case JointWeld:
		return "weld"
	case JointFriction:
		return "friction"
	case JointRope:
		return "rope"
	case JointMotor:
		return "motor"
	}
	return fmt.Sprintf("JointType(%d)", uint8(t))
}

// Joint constrains two bodies. The unexported solver methods keep the set of
// implementations closed.
type Joint interface {
	Type() JointType
	Handle() JointHandle
	BodyA() BodyHandle
	BodyB() BodyHandle

	// AnchorA is the anchor point on bodyA in world coordinates.
	AnchorA() Vec2
	// AnchorB is the anchor point on bodyB in world coordinates.
	AnchorB() Vec2

	// ReactionForce is the reaction force on bodyB at the joint anchor in
	// Newtons.
	ReactionForce(invDt float64) Vec2
	// ReactionTorque is the reaction torque on bodyB in N*m.
	ReactionTorque(invDt float64) float64

	CollideConnected() bool
	UserData() any
	SetUserData(data any)

	base() *jointBase
	captureIndices()
	initVelocityConstraints(data *solverData)
	solveVelocityConstraints(data *solverData)
	solvePositionConstraints(data *solverData) bool
	shiftOrigin(newOrigin Vec2)
}

// JointDefBase holds the fields shared by every joint definition.
type JointDefBase struct {
	// BodyA and BodyB are the attached bodies. They must differ.
	BodyA, BodyB BodyHandle

	// CollideConnected lets the attached bodies collide.
	CollideConnected bool

	UserData any
}

func (d *JointDefBase) base() *JointDefBase {
	return d
}

// JointDef is implemented by the definition of every joint variant.
type JointDef interface {
	Type() JointType
	base() *JointDefBase
}

// jointBase is embedded by every joint.
type jointBase struct {
	world  *World
	handle JointHandle
	kind   JointType

	bodyA, bodyB BodyHandle

	islandFlag       bool
	collideConnected bool
	userData         any

	// Solver temporaries, valid between initVelocityConstraints and the end of
	// the island solve.
	indexA, indexB             int
	localCenterA, localCenterB Vec2
	invMassA, invMassB         float64
	invIA, invIB               float64
}

func (j *jointBase) Type() JointType        { return j.kind }
func (j *jointBase) Handle() JointHandle    { return j.handle }
func (j *jointBase) BodyA() BodyHandle      { return j.bodyA }
func (j *jointBase) BodyB() BodyHandle      { return j.bodyB }
func (j *jointBase) CollideConnected() bool { return j.collideConnected }
func (j *jointBase) UserData() any          { return j.userData }
func (j *jointBase) SetUserData(data any)   { j.userData = data }
func (j *jointBase) base() *jointBase       { return j }
func (j *jointBase) shiftOrigin(Vec2)       {}

func (j *jointBase) other(h BodyHandle) BodyHandle {
	if j.bodyA == h {
		return j.bodyB
	}
	return j.bodyA
}

func (j *jointBase) bodies() (*Body, *Body) {
	return j.world.body(j.bodyA), j.world.body(j.bodyB)
}

func (j *jointBase) wake() {
	bA, bB := j.bodies()
	bA.SetAwake(true)
	bB.SetAwake(true)
}

// captureIndices copies the island indices of the bodies once the island is
// sealed.
func (j *jointBase) captureIndices() {
	bA, bB := j.bodies()
	j.indexA = bA.islandIndex
	j.indexB = bB.islandIndex
}

// loadBodies caches the mass properties used by the solver.
func (j *jointBase) loadBodies() {
	bA, bB := j.bodies()
	j.localCenterA = bA.sweep.LocalCenter
	j.localCenterB = bB.sweep.LocalCenter
	j.invMassA = bA.invMass
	j.invMassB = bB.invMass
	j.invIA = bA.invI
	j.invIB = bB.invI
}

// newJoint builds the joint described by def in the pool of its variant.
func newJoint(w *World, def JointDef) Joint {
	d := def.base()
	base := jointBase{
		world:            w,
		kind:             def.Type(),
		bodyA:            d.BodyA,
		bodyB:            d.BodyB,
		collideConnected: d.CollideConnected,
		userData:         d.UserData,
	}

	p := w.joints
	switch def.Type() {
	case JointRevolute:
		return place(p.revolute, newRevoluteJoint(base, def.(*RevoluteJointDef)))
	case JointPrismatic:
		return place(p.prismatic, newPrismaticJoint(base, def.(*PrismaticJointDef)))
	case JointDistance:
		return place(p.distance, newDistanceJoint(base, def.(*DistanceJointDef)))
	case JointPulley:
		return place(p.pulley, newPulleyJoint(base, def.(*PulleyJointDef)))
	case JointMouse:
		return place(p.mouse, newMouseJoint(base, def.(*MouseJointDef)))
	case JointGear:
		return place(p.gear, newGearJoint(base, def.(*GearJointDef)))
	case JointWheel:
		return place(p.wheel, newWheelJoint(base, def.(*WheelJointDef)))
	case JointWeld:
		return place(p.weld, newWeldJoint(base, def.(*WeldJointDef)))
	case JointFriction:
		return place(p.friction, newFrictionJoint(base, def.(*FrictionJointDef)))
	case JointRope:
		return place(p.rope, newRopeJoint(base, def.(*RopeJointDef)))
	case JointMotor:
		return place(p.motor, newMotorJoint(base, def.(*MotorJointDef)))
	}
	panic(fmt.Sprintf("box2d: unknown joint type %v", def.Type()))
}

// softness converts a spring frequency and damping ratio into the gamma and bias
// factor of a soft constraint with effective mass m and position error c.
func softness(m, frequencyHz, dampingRatio, c, h float64) (gamma, bias float64) {
	omega := 2.0 * common.Pi * frequencyHz

	// Damping coefficient
	d := 2.0 * m * dampingRatio * omega

	// Spring stiffness
	k := m * omega * omega

	// magic formulas
	gamma = h * (d + h*k)
	if gamma != 0 {
		gamma = 1.0 / gamma
	}
	bias = c * h * k * gamma
	return gamma, bias
}
