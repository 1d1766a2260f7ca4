package box2d

import (
	"iter"

	"github.com/ByteArena/box2d/v2/collision"
)

// QueryAABB yields the fixtures whose fat AABB overlaps aabb. The result is
// conservative; test the shapes for exact overlap.
func (w *World) QueryAABB(aabb collision.AABB) iter.Seq[FixtureHandle] {
	return func(yield func(FixtureHandle) bool) {
		for proxyID := range w.broadPhase.Query(aabb) {
			proxy := w.broadPhase.UserData(proxyID).(*fixtureProxy)
			if !yield(proxy.fixture.handle) {
				return
			}
		}
	}
}

// QueryPoint yields the fixtures that contain p.
func (w *World) QueryPoint(p Vec2) iter.Seq[FixtureHandle] {
	aabb := collision.AABB{LowerBound: p, UpperBound: p}
	return func(yield func(FixtureHandle) bool) {
		for fh := range w.QueryAABB(aabb) {
			if !w.fixture(fh).TestPoint(p) {
				continue
			}
			if !yield(fh) {
				return
			}
		}
	}
}

// RayCast casts a ray from p1 to p2 and reports every fixture it hits, in no
// particular order. The callback's return value clips or ends the ray.
func (w *World) RayCast(p1, p2 Vec2, callback RayCastCallback) {
	input := collision.RayCastInput{P1: p1, P2: p2, MaxFraction: 1.0}
	w.broadPhase.RayCast(input, func(input collision.RayCastInput, proxyID int) float64 {
		proxy := w.broadPhase.UserData(proxyID).(*fixtureProxy)
		fixture := proxy.fixture

		output, hit := fixture.RayCast(input, proxy.childIndex)
		if !hit {
			return input.MaxFraction
		}

		fraction := output.Fraction
		point := input.P1.Mul(1.0 - fraction).Add(input.P2.Mul(fraction))
		return callback(RayHit{
			Fixture:    fixture.handle,
			ChildIndex: proxy.childIndex,
			Point:      point,
			Normal:     output.Normal,
			Fraction:   fraction,
		})
	})
}

// RayCastClosest returns the first fixture hit between p1 and p2.
func (w *World) RayCastClosest(p1, p2 Vec2) (RayHit, bool) {
	var closest RayHit
	found := false
	w.RayCast(p1, p2, func(hit RayHit) float64 {
		closest = hit
		found = true
		return hit.Fraction
	})
	return closest, found
}
