package box2d

import (
	"time"

	"github.com/ByteArena/box2d/v2/alloc"
)

// StepConfig controls one call to World.Step.
type StepConfig struct {
	// VelocityIterations and PositionIterations are the solver passes per island.
	VelocityIterations int
	PositionIterations int

	// WarmStarting seeds the solver with last step's impulses.
	WarmStarting bool

	// AllowSleep lets resting islands go to sleep.
	AllowSleep bool

	// Continuous enables the time of impact pass.
	Continuous bool

	// SubStepping stops the time of impact pass after the first event. Debug aid.
	SubStepping bool

	// Workers is the number of goroutines solving islands. 0 and 1 solve on the
	// calling goroutine.
	Workers int
}

// DefaultStepConfig is the usual 8 velocity and 3 position iterations with every
// feature on.
func DefaultStepConfig() StepConfig {
	return StepConfig{
		VelocityIterations: 8,
		PositionIterations: 3,
		WarmStarting:       true,
		AllowSleep:         true,
		Continuous:         true,
	}
}

// Profile holds the timings of the last step.
type Profile struct {
	Step          time.Duration
	Collide       time.Duration
	Solve         time.Duration
	SolveInit     time.Duration
	SolveVelocity time.Duration
	SolvePosition time.Duration
	Broadphase    time.Duration
	SolveTOI      time.Duration
}

type timeStep struct {
	dt                 float64 // time step
	invDt              float64 // inverse time step (0 if dt == 0)
	dtRatio            float64 // dt * invDt0
	velocityIterations int
	positionIterations int
	warmStarting       bool
}

type position struct {
	c Vec2
	a float64
}

type velocity struct {
	v Vec2
	w float64
}

type solverData struct {
	step       timeStep
	positions  []position
	velocities []velocity
}

// solverStacks is the scratch memory of one solver worker.
type solverStacks struct {
	positions  *alloc.Stack[position]
	velocities *alloc.Stack[velocity]
	velocityCs *alloc.Stack[contactVelocityConstraint]
	positionCs *alloc.Stack[contactPositionConstraint]
}

func newSolverStacks() *solverStacks {
	return &solverStacks{
		positions:  alloc.NewStack[position](alloc.DefaultStackSize),
		velocities: alloc.NewStack[velocity](alloc.DefaultStackSize),
		velocityCs: alloc.NewStack[contactVelocityConstraint](alloc.DefaultStackSize / 4),
		positionCs: alloc.NewStack[contactPositionConstraint](alloc.DefaultStackSize / 4),
	}
}

func (s *solverStacks) reset() {
	s.positions.Reset()
	s.velocities.Reset()
	s.velocityCs.Reset()
	s.positionCs.Reset()
}
