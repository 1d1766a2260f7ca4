// Package scenes holds the sample worlds driven by the runner and the scenario
// tests.
package scenes

import (
	"math"
	"slices"

	"github.com/ByteArena/box2d/v2"
	"github.com/ByteArena/box2d/v2/collision"
	"github.com/ByteArena/box2d/v2/common"
)

type Vec2 = common.Vec2

// Tracked names the bodies whose motion a scene wants reported.
type Tracked map[string]box2d.BodyHandle

// Names returns the tracked names in sorted order.
func (t Tracked) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Scene builds a world. Build is called on an empty world.
type Scene struct {
	Name        string
	Description string
	Build       func(w *box2d.World) Tracked
}

var registry = []Scene{
	{"characters", "fixed-rotation characters on edges, chains and tiles", buildCharacters},
	{"pyramid", "a pyramid of boxes settling on the ground", buildPyramid},
	{"bridge", "planks linked by revolute joints", buildBridge},
	{"bullet", "a bullet fired at a thin wall", buildBullet},
	{"car", "a chassis on two wheel joints driven by a motor", buildCar},
	{"gears", "revolute and prismatic joints coupled by gears", buildGears},
	{"mechanisms", "pulley, rope, weld, friction, motor, mouse and distance joints", buildMechanisms},
}

// All returns every registered scene.
func All() []Scene {
	return slices.Clone(registry)
}

// Lookup finds a scene by name.
func Lookup(name string) (Scene, bool) {
	for _, s := range registry {
		if s.Name == name {
			return s, true
		}
	}
	return Scene{}, false
}

// Names lists the registered scene names.
func Names() []string {
	names := make([]string, len(registry))
	for i, s := range registry {
		names[i] = s.Name
	}
	return names
}

func staticBody(w *box2d.World, position Vec2) *box2d.Body {
	bd := box2d.NewBodyDef()
	bd.Position = position
	return w.Body(w.CreateBody(bd))
}

func dynamicBody(w *box2d.World, position Vec2, angle float64) *box2d.Body {
	bd := box2d.NewBodyDef()
	bd.Type = box2d.DynamicBody
	bd.Position = position
	bd.Angle = angle
	return w.Body(w.CreateBody(bd))
}

func attach(b *box2d.Body, shape collision.Shape, density, friction float64) {
	fd := box2d.NewFixtureDef(shape)
	fd.Density = density
	fd.Friction = friction
	b.CreateFixture(fd)
}

// ground adds a static edge from x0 to x1 along y = 0.
func ground(w *box2d.World, x0, x1 float64) *box2d.Body {
	b := staticBody(w, Vec2{})
	b.CreateFixtureFromShape(collision.NewEdge(Vec2{x0, 0}, Vec2{x1, 0}), 0)
	return b
}

func buildCharacters(w *box2d.World) Tracked {
	tracked := Tracked{}

	g := ground(w, -20, 20)
	tracked["00_ground"] = g.Handle()

	// Collinear edges with no adjacency information. A box can catch on an
	// internal vertex.
	{
		b := staticBody(w, Vec2{})
		b.CreateFixtureFromShape(collision.NewEdge(Vec2{-8, 1}, Vec2{-6, 1}), 0)
		b.CreateFixtureFromShape(collision.NewEdge(Vec2{-6, 1}, Vec2{-4, 1}), 0)
		b.CreateFixtureFromShape(collision.NewEdge(Vec2{-4, 1}, Vec2{-2, 1}), 0)
		tracked["01_colinearground"] = b.Handle()
	}

	// Open chain, tilted.
	{
		bd := box2d.NewBodyDef()
		bd.Angle = 0.25 * math.Pi
		b := w.Body(w.CreateBody(bd))
		vs := []Vec2{{8, 7}, {7, 8}, {6, 8}, {5, 7}}
		b.CreateFixtureFromShape(collision.NewChain(vs, Vec2{9, 6}, Vec2{4, 6}), 0)
		tracked["02_chainshape"] = b.Handle()
	}

	// Square tiles. Adjacent boxes may have non-smooth collision.
	{
		b := staticBody(w, Vec2{})
		for _, x := range []float64{4, 6, 8} {
			box := collision.NewPolygon()
			box.SetAsOrientedBox(1, 1, Vec2{x, 3}, 0)
			b.CreateFixtureFromShape(box, 0)
		}
		tracked["03_squaretiles"] = b.Handle()
	}

	// Square made from an edge loop. Collision is smooth.
	{
		b := staticBody(w, Vec2{})
		vs := []Vec2{{-1, 3}, {1, 3}, {1, 5}, {-1, 5}}
		b.CreateFixtureFromShape(collision.NewLoop(vs), 0)
		tracked["04_edgeloopsquare"] = b.Handle()
	}

	// Polygonal edge loop.
	{
		b := staticBody(w, Vec2{-10, 4})
		vs := []Vec2{
			{0, 0}, {6, 0}, {6, 2}, {4, 1}, {2, 2},
			{0, 2}, {-2, 2}, {-4, 3}, {-6, 2}, {-6, 0},
		}
		b.CreateFixtureFromShape(collision.NewLoop(vs), 0)
		tracked["05_edgelooppoly"] = b.Handle()
	}

	character := func(name string, position Vec2, shape collision.Shape, fixedRotation bool, friction float64) {
		bd := box2d.NewBodyDef()
		bd.Type = box2d.DynamicBody
		bd.Position = position
		bd.FixedRotation = fixedRotation
		bd.AllowSleep = false
		b := w.Body(w.CreateBody(bd))
		attach(b, shape, 20, friction)
		tracked[name] = b.Handle()
	}

	character("06_squarecharacter1", Vec2{-3, 8}, collision.NewBox(0.5, 0.5), true, 0.2)
	character("07_squarecharacter2", Vec2{-5, 5}, collision.NewBox(0.25, 0.25), true, 0.2)

	hexagon := collision.NewPolygon()
	vertices := make([]Vec2, 6)
	for i := range vertices {
		angle := float64(i) * math.Pi / 3
		vertices[i] = Vec2{0.5 * math.Cos(angle), 0.5 * math.Sin(angle)}
	}
	hexagon.Set(vertices)
	character("08_hexagoncharacter", Vec2{-5, 8}, hexagon, true, 0.2)

	character("09_circlecharacter1", Vec2{3, 5}, collision.NewCircle(0.5), true, 0.2)
	character("10_circlecharacter2", Vec2{-7, 6}, collision.NewCircle(0.25), false, 1.0)

	return tracked
}

func buildPyramid(w *box2d.World) Tracked {
	tracked := Tracked{}
	ground(w, -40, 40)

	const count = 10
	const a = 0.5

	x := Vec2{-7, 0.75}
	deltaX := Vec2{0.5625, 1.25}
	deltaY := Vec2{1.125, 0}

	for i := range count {
		y := x
		for j := i; j < count; j++ {
			b := dynamicBody(w, y, 0)
			attach(b, collision.NewBox(a, a), 5, 0.6)
			if j == count-1 {
				tracked[rowName("top", i)] = b.Handle()
			}
			y = y.Add(deltaY)
		}
		x = x.Add(deltaX)
	}
	return tracked
}

func rowName(prefix string, i int) string {
	return prefix + string(rune('a'+i))
}

func buildBridge(w *box2d.World) Tracked {
	tracked := Tracked{}
	g := ground(w, -40, 40)

	const count = 30
	prev := g
	for i := range count {
		b := dynamicBody(w, Vec2{-14.5 + float64(i), 5}, 0)
		attach(b, collision.NewBox(0.5, 0.125), 20, 0.2)

		jd := &box2d.RevoluteJointDef{}
		jd.Initialize(prev, b, Vec2{-15 + float64(i), 5})
		w.CreateJoint(jd)

		if i == count/2 {
			tracked["middle"] = b.Handle()
		}
		prev = b
	}

	jd := &box2d.RevoluteJointDef{}
	jd.Initialize(prev, g, Vec2{-15 + count, 5})
	w.CreateJoint(jd)

	for i := range 2 {
		b := dynamicBody(w, Vec2{-8 + 8*float64(i), 12}, 0)
		attach(b, collision.NewCircle(0.5), 1, 0.2)
		tracked[rowName("ball", i)] = b.Handle()
	}
	return tracked
}

func buildBullet(w *box2d.World) Tracked {
	tracked := Tracked{}
	g := ground(w, -10, 10)

	wall := collision.NewPolygon()
	wall.SetAsOrientedBox(0.05, 2, Vec2{5, 2}, 0)
	g.CreateFixtureFromShape(wall, 0)
	tracked["wall"] = g.Handle()

	bd := box2d.NewBodyDef()
	bd.Type = box2d.DynamicBody
	bd.Position = Vec2{-5, 1}
	bd.Bullet = true
	bd.LinearVelocity = Vec2{400, 0}
	b := w.Body(w.CreateBody(bd))
	attach(b, collision.NewCircle(0.1), 10, 0.2)
	tracked["bullet"] = b.Handle()

	return tracked
}

func buildCar(w *box2d.World) Tracked {
	tracked := Tracked{}

	// Terrain runs right to left so its one-sided edges face up.
	terrain := staticBody(w, Vec2{})
	hs := []float64{0.25, 1, 4, 0, 0, -1, -2, -2, -1.25, 0}
	vs := []Vec2{{60, 0}, {20, 0}}
	x, dx := 20.0, 5.0
	for _, h := range hs {
		x -= dx
		vs = append(vs, Vec2{x, h})
	}
	vs = append(vs, Vec2{x - 40, 0})
	terrain.CreateFixtureFromShape(collision.NewChain(vs, Vec2{70, 0}, Vec2{x - 50, 0}), 0)

	chassisShape := collision.NewPolygon()
	chassisShape.Set([]Vec2{{-1.5, -0.5}, {1.5, -0.5}, {1.5, 0}, {0, 0.9}, {-1.15, 0.9}, {-1.5, 0.2}})

	chassis := dynamicBody(w, Vec2{0, 1}, 0)
	attach(chassis, chassisShape, 1, 0.2)
	tracked["chassis"] = chassis.Handle()

	axis := Vec2{0, 1}
	for i, x := range []float64{-1, 1} {
		wheel := dynamicBody(w, Vec2{x, 0.35}, 0)
		attach(wheel, collision.NewCircle(0.4), 1, 0.9)

		jd := box2d.NewWheelJointDef()
		jd.Initialize(chassis, wheel, wheel.Position(), axis)
		jd.FrequencyHz = 4
		jd.DampingRatio = 0.7
		if i == 0 {
			jd.EnableMotor = true
			jd.MotorSpeed = -10
			jd.MaxMotorTorque = 20
		}
		w.CreateJoint(jd)
		tracked[rowName("wheel", i)] = wheel.Handle()
	}
	return tracked
}

func buildGears(w *box2d.World) Tracked {
	tracked := Tracked{}
	g := ground(w, -50, 50)

	gear1 := dynamicBody(w, Vec2{10, 9}, 0)
	attach(gear1, collision.NewCircle(1), 5, 0.2)
	rj1 := &box2d.RevoluteJointDef{}
	rj1.Initialize(g, gear1, gear1.Position())
	joint1 := w.Joint(w.CreateJoint(rj1))

	gear2 := dynamicBody(w, Vec2{10, 6}, 0)
	attach(gear2, collision.NewCircle(2), 5, 0.2)
	rj2 := &box2d.RevoluteJointDef{}
	rj2.Initialize(g, gear2, gear2.Position())
	joint2 := w.Joint(w.CreateJoint(rj2))

	rack := dynamicBody(w, Vec2{10, 2.5}, 0)
	attach(rack, collision.NewBox(0.5, 5), 5, 0.2)
	pj := box2d.NewPrismaticJointDef()
	pj.Initialize(g, rack, rack.Position(), Vec2{0, 1})
	pj.LowerTranslation = -5
	pj.UpperTranslation = 5
	pj.EnableLimit = true
	joint3 := w.Joint(w.CreateJoint(pj))

	gd1 := &box2d.GearJointDef{}
	gd1.Initialize(joint1, joint2, 2)
	w.CreateJoint(gd1)

	gd2 := &box2d.GearJointDef{}
	gd2.Initialize(joint2, joint3, -1/2.0)
	w.CreateJoint(gd2)

	gear1.SetAngularVelocity(2)

	tracked["gear1"] = gear1.Handle()
	tracked["gear2"] = gear2.Handle()
	tracked["rack"] = rack.Handle()
	return tracked
}

func buildMechanisms(w *box2d.World) Tracked {
	tracked := Tracked{}
	g := ground(w, -40, 40)

	// Pulley
	{
		left := dynamicBody(w, Vec2{-10, 10}, 0)
		attach(left, collision.NewBox(1, 0.5), 5, 0.2)
		right := dynamicBody(w, Vec2{-4, 10}, 0)
		attach(right, collision.NewBox(1, 0.5), 6, 0.2)

		jd := box2d.NewPulleyJointDef()
		jd.Initialize(left, right, Vec2{-10, 20}, Vec2{-4, 20}, Vec2{-10, 10.5}, Vec2{-4, 10.5}, 1.5)
		w.CreateJoint(jd)
		tracked["pulley_left"] = left.Handle()
		tracked["pulley_right"] = right.Handle()
	}

	// Rope hanging from the ground body.
	{
		bob := dynamicBody(w, Vec2{3, 15}, 0)
		attach(bob, collision.NewCircle(0.5), 2, 0.2)

		jd := box2d.NewRopeJointDef()
		jd.BodyA = g.Handle()
		jd.BodyB = bob.Handle()
		jd.LocalAnchorA = Vec2{0, 20}
		jd.LocalAnchorB = Vec2{}
		jd.MaxLength = 6
		w.CreateJoint(jd)
		tracked["rope_bob"] = bob.Handle()
	}

	// Soft weld cantilever.
	{
		prev := g
		for i := range 4 {
			b := dynamicBody(w, Vec2{10.5 + float64(i), 8}, 0)
			attach(b, collision.NewBox(0.5, 0.125), 20, 0.2)

			jd := &box2d.WeldJointDef{}
			jd.Initialize(prev, b, Vec2{10 + float64(i), 8})
			jd.FrequencyHz = 5
			jd.DampingRatio = 0.7
			w.CreateJoint(jd)
			prev = b
		}
		tracked["weld_tip"] = prev.Handle()
	}

	// Top-down friction on a sliding box.
	{
		b := dynamicBody(w, Vec2{20, 0.5}, 0)
		attach(b, collision.NewBox(0.5, 0.5), 1, 0)
		b.SetLinearVelocity(Vec2{-5, 0})

		jd := &box2d.FrictionJointDef{}
		jd.Initialize(g, b, b.WorldCenter())
		jd.MaxForce = 10
		jd.MaxTorque = 5
		w.CreateJoint(jd)
		tracked["friction_box"] = b.Handle()
	}

	// Motor joint holding a platform above the ground.
	{
		b := dynamicBody(w, Vec2{25, 8}, 0)
		attach(b, collision.NewBox(2, 0.5), 2, 0.6)

		jd := box2d.NewMotorJointDef()
		jd.Initialize(g, b)
		jd.MaxForce = 1000
		jd.MaxTorque = 1000
		w.CreateJoint(jd)
		tracked["motor_platform"] = b.Handle()
	}

	// Mouse joint dragging a box to a target.
	{
		b := dynamicBody(w, Vec2{30, 1}, 0)
		attach(b, collision.NewBox(0.5, 0.5), 1, 0.2)

		jd := box2d.NewMouseJointDef()
		jd.BodyA = g.Handle()
		jd.BodyB = b.Handle()
		jd.Target = b.Position()
		jd.MaxForce = 1000 * b.Mass()
		h := w.CreateJoint(jd)
		w.Joint(h).(*box2d.MouseJoint).SetTarget(Vec2{32, 4})
		tracked["mouse_box"] = b.Handle()
	}

	// Distance joint spring.
	{
		a := dynamicBody(w, Vec2{-20, 10}, 0)
		attach(a, collision.NewBox(0.5, 0.5), 5, 0.2)

		jd := box2d.NewDistanceJointDef()
		jd.Initialize(g, a, Vec2{-20, 14}, a.Position())
		jd.FrequencyHz = 2
		jd.DampingRatio = 0.1
		w.CreateJoint(jd)
		tracked["spring_box"] = a.Handle()
	}

	return tracked
}
