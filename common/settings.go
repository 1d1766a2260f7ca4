// Package common holds the math primitives and global tuning constants shared by
// the collision and dynamics layers. Units are meters-kilograms-seconds.
package common

import (
	"fmt"
	"math"
)

const (
	MaxFloat = math.MaxFloat64

	// Epsilon is the float64 machine epsilon.
	Epsilon = 2.220446049250313e-16

	Pi = math.Pi
)

// Collision

// MaxManifoldPoints is the maximum number of contact points between two convex shapes.
const MaxManifoldPoints = 2

// MaxPolygonVertices is the maximum number of vertices on a convex polygon.
const MaxPolygonVertices = 8

// AABBExtension fattens proxy AABBs in the dynamic tree so proxies can move by a
// small amount without triggering a tree update. Meters.
const AABBExtension = 0.1

// AABBMultiplier predicts the future position of a proxy from its displacement.
const AABBMultiplier = 2.0

// LinearSlop is the collision and constraint tolerance. Numerically significant,
// visually insignificant.
const LinearSlop = 0.005

// AngularSlop is the angular counterpart of LinearSlop.
const AngularSlop = 2.0 / 180.0 * Pi

// PolygonRadius is the skin of polygons and edges. Changing it breaks continuous
// collision.
const PolygonRadius = 2.0 * LinearSlop

// MaxSubSteps bounds the TOI events per contact in one step.
const MaxSubSteps = 8

// Dynamics

// MaxTOIContacts bounds the contacts gathered for one TOI mini island.
const MaxTOIContacts = 32

// VelocityThreshold: relative normal velocities below it are treated as inelastic.
const VelocityThreshold = 1.0

// MaxLinearCorrection caps one position-solver correction.
const MaxLinearCorrection = 0.2

// MaxAngularCorrection caps one angular position-solver correction.
const MaxAngularCorrection = 8.0 / 180.0 * Pi

// MaxTranslation caps the distance a body may travel in one step.
const MaxTranslation = 2.0
const MaxTranslationSquared = MaxTranslation * MaxTranslation

// MaxRotation caps the angle a body may turn in one step.
const MaxRotation = 0.5 * Pi
const MaxRotationSquared = MaxRotation * MaxRotation

// Baumgarte controls how fast overlap is resolved.
const Baumgarte = 0.2
const ToiBaumgarte = 0.75

// ToiMotionFraction: a non-bullet body takes part in continuous collision only when
// its swept translation in a step exceeds this fraction of its smallest extent.
const ToiMotionFraction = 0.25

// Sleep

// TimeToSleep is how long a body must be still before it sleeps.
const TimeToSleep = 0.5

// LinearSleepTolerance is the linear speed under which a body may sleep.
const LinearSleepTolerance = 0.01

// AngularSleepTolerance is the angular speed under which a body may sleep.
const AngularSleepTolerance = 2.0 / 180.0 * Pi

// Assert panics when a structural invariant is broken. These are programming errors
// (misuse of handles, allocator discipline, locked world) and are never recovered.
func Assert(cond bool, msg string) {
	if !cond {
		panic("box2d: " + msg)
	}
}

// Panicf reports a broken invariant with a formatted message. Callers test the
// condition themselves so the arguments are only boxed on the failing path.
func Panicf(format string, args ...any) {
	panic("box2d: " + fmt.Sprintf(format, args...))
}
