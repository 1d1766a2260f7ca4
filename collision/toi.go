package collision

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

// TOIInput holds the proxies and sweeps for a time of impact query. The sweeps are
// interpolated over [0, TMax].
type TOIInput struct {
	ProxyA DistanceProxy
	ProxyB DistanceProxy
	SweepA common.Sweep
	SweepB common.Sweep
	TMax   float64
}

// TOIState is the outcome of a time of impact query.
type TOIState uint8

const (
	TOIUnknown TOIState = iota
	TOIFailed
	TOIOverlapped
	TOITouching
	TOISeparated
)

func (s TOIState) String() string {
	switch s {
	case TOIFailed:
		return "failed"
	case TOIOverlapped:
		return "overlapped"
	case TOITouching:
		return "touching"
	case TOISeparated:
		return "separated"
	}
	return "unknown"
}

type TOIOutput struct {
	State TOIState
	T     float64
}

type separationType uint8

const (
	separationPoints separationType = iota
	separationFaceA
	separationFaceB
)

// separationFunction measures the separation of the witness points of a GJK
// simplex along a fixed axis as the sweeps advance.
type separationFunction struct {
	proxyA, proxyB *DistanceProxy
	sweepA, sweepB common.Sweep
	kind           separationType
	localPoint     Vec2
	axis           Vec2
}

func (f *separationFunction) initialize(cache *SimplexCache, proxyA *DistanceProxy, sweepA common.Sweep, proxyB *DistanceProxy, sweepB common.Sweep, t1 float64) float64 {
	f.proxyA = proxyA
	f.proxyB = proxyB
	count := cache.Count
	common.Assert(0 < count && count < 3, "bad simplex cache for separation")

	f.sweepA = sweepA
	f.sweepB = sweepB

	xfA := f.sweepA.Transform(t1)
	xfB := f.sweepB.Transform(t1)

	if count == 1 {
		f.kind = separationPoints
		pointA := xfA.Apply(proxyA.Vertex(int(cache.IndexA[0])))
		pointB := xfB.Apply(proxyB.Vertex(int(cache.IndexB[0])))
		var s float64
		f.axis, s = common.Normalize(pointB.Sub(pointA))
		return s
	}

	if cache.IndexA[0] == cache.IndexA[1] {
		// Two points on B and one on A.
		f.kind = separationFaceB
		localPointB1 := proxyB.Vertex(int(cache.IndexB[0]))
		localPointB2 := proxyB.Vertex(int(cache.IndexB[1]))

		f.axis, _ = common.Normalize(common.CrossVS(localPointB2.Sub(localPointB1), 1.0))
		normal := xfB.Q.Apply(f.axis)

		f.localPoint = localPointB1.Add(localPointB2).Mul(0.5)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(proxyA.Vertex(int(cache.IndexA[0])))

		s := pointA.Sub(pointB).Dot(normal)
		if s < 0 {
			f.axis = f.axis.Mul(-1)
			s = -s
		}
		return s
	}

	// Two points on A and one or two points on B.
	f.kind = separationFaceA
	localPointA1 := proxyA.Vertex(int(cache.IndexA[0]))
	localPointA2 := proxyA.Vertex(int(cache.IndexA[1]))

	f.axis, _ = common.Normalize(common.CrossVS(localPointA2.Sub(localPointA1), 1.0))
	normal := xfA.Q.Apply(f.axis)

	f.localPoint = localPointA1.Add(localPointA2).Mul(0.5)
	pointA := xfA.Apply(f.localPoint)
	pointB := xfB.Apply(proxyB.Vertex(int(cache.IndexB[0])))

	s := pointB.Sub(pointA).Dot(normal)
	if s < 0 {
		f.axis = f.axis.Mul(-1)
		s = -s
	}
	return s
}

// findMinSeparation returns the deepest points at t and their separation.
func (f *separationFunction) findMinSeparation(t float64) (indexA, indexB int, separation float64) {
	xfA := f.sweepA.Transform(t)
	xfB := f.sweepB.Transform(t)

	switch f.kind {
	case separationPoints:
		axisA := xfA.Q.ApplyT(f.axis)
		axisB := xfB.Q.ApplyT(f.axis.Mul(-1))

		indexA = f.proxyA.Support(axisA)
		indexB = f.proxyB.Support(axisB)

		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return indexA, indexB, pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Apply(f.axis)
		pointA := xfA.Apply(f.localPoint)

		axisB := xfB.Q.ApplyT(normal.Mul(-1))
		indexB = f.proxyB.Support(axisB)
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return -1, indexB, pointB.Sub(pointA).Dot(normal)

	default:
		normal := xfB.Q.Apply(f.axis)
		pointB := xfB.Apply(f.localPoint)

		axisA := xfA.Q.ApplyT(normal.Mul(-1))
		indexA = f.proxyA.Support(axisA)
		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		return indexA, -1, pointA.Sub(pointB).Dot(normal)
	}
}

// evaluate returns the separation of the given witness points at t.
func (f *separationFunction) evaluate(indexA, indexB int, t float64) float64 {
	xfA := f.sweepA.Transform(t)
	xfB := f.sweepB.Transform(t)

	switch f.kind {
	case separationPoints:
		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return pointB.Sub(pointA).Dot(f.axis)

	case separationFaceA:
		normal := xfA.Q.Apply(f.axis)
		pointA := xfA.Apply(f.localPoint)
		pointB := xfB.Apply(f.proxyB.Vertex(indexB))
		return pointB.Sub(pointA).Dot(normal)

	default:
		normal := xfB.Q.Apply(f.axis)
		pointB := xfB.Apply(f.localPoint)
		pointA := xfA.Apply(f.proxyA.Vertex(indexA))
		return pointA.Sub(pointB).Dot(normal)
	}
}

const (
	toiMaxIterations     = 20
	toiMaxRootIterations = 50
)

// TimeOfImpact computes the upper bound on the time before two shapes penetrate
// using conservative advancement. Time is a fraction of [0, TMax]. The result
// keeps the shapes separated by roughly LinearSlop at the returned time; it does
// not detect tunneling through more than one shape.
//
// Sweeps must have the same time interval. The query is meant for convex polygons
// and circles.
func TimeOfImpact(input *TOIInput) TOIOutput {
	out := TOIOutput{State: TOIUnknown, T: input.TMax}

	proxyA := &input.ProxyA
	proxyB := &input.ProxyB

	// Large rotations can make the root finder fail.
	sweepA := input.SweepA
	sweepB := input.SweepB
	sweepA.Normalize()
	sweepB.Normalize()

	tMax := input.TMax

	totalRadius := proxyA.Radius + proxyB.Radius
	target := max(common.LinearSlop, totalRadius-3.0*common.LinearSlop)
	tolerance := 0.25 * common.LinearSlop
	common.Assert(target > tolerance, "toi target below tolerance")

	t1 := 0.0
	iter := 0

	var cache SimplexCache
	distanceInput := DistanceInput{
		ProxyA: input.ProxyA,
		ProxyB: input.ProxyB,
	}

	// Each pass of the outer loop computes a new separating axis. It terminates
	// when an axis repeats.
	for {
		distanceInput.TransformA = sweepA.Transform(t1)
		distanceInput.TransformB = sweepB.Transform(t1)

		distanceOutput := Distance(&cache, &distanceInput)

		// Overlapped: give up on continuous collision.
		if distanceOutput.Distance <= 0 {
			out.State = TOIOverlapped
			out.T = 0
			break
		}

		if distanceOutput.Distance < target+tolerance {
			out.State = TOITouching
			out.T = t1
			break
		}

		var fcn separationFunction
		fcn.initialize(&cache, proxyA, sweepA, proxyB, sweepB, t1)

		// Resolve the deepest point on the axis until the separation reaches the
		// target. Bounded by the number of vertices.
		done := false
		t2 := tMax
		for pushBackIter := 0; pushBackIter < common.MaxPolygonVertices; pushBackIter++ {
			indexA, indexB, s2 := fcn.findMinSeparation(t2)

			// Separated at the final configuration.
			if s2 > target+tolerance {
				out.State = TOISeparated
				out.T = tMax
				done = true
				break
			}

			// Reached tolerance: advance the sweeps.
			if s2 > target-tolerance {
				t1 = t2
				break
			}

			s1 := fcn.evaluate(indexA, indexB, t1)

			// Initial overlap, possible when the root finder runs out of iterations.
			if s1 < target-tolerance {
				out.State = TOIFailed
				out.T = t1
				done = true
				break
			}

			// Touching; t1 holds the time of impact (could be 0).
			if s1 <= target+tolerance {
				out.State = TOITouching
				out.T = t1
				done = true
				break
			}

			// 1D root of f(x) - target = 0, mixing the secant rule and bisection.
			a1, a2 := t1, t2
			for rootIter := 0; rootIter < toiMaxRootIterations; rootIter++ {
				var t float64
				if rootIter&1 == 1 {
					t = a1 + (target-s1)*(a2-a1)/(s2-s1)
				} else {
					t = 0.5 * (a1 + a2)
				}

				s := fcn.evaluate(indexA, indexB, t)
				if math.Abs(s-target) < tolerance {
					// t2 holds a tentative value for t1.
					t2 = t
					break
				}

				// Keep the root bracketed.
				if s > target {
					a1 = t
					s1 = s
				} else {
					a2 = t
					s2 = s
				}
			}
		}

		iter++
		if done {
			break
		}

		if iter == toiMaxIterations {
			// Root finder got stuck. Semi-victory.
			out.State = TOIFailed
			out.T = t1
			break
		}
	}
	return out
}
