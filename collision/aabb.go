package collision

import (
	"math"

	"github.com/ByteArena/box2d/v2/common"
)

type Vec2 = common.Vec2

// RayCastInput describes the ray p1 + t * (p2 - p1) for t in [0, MaxFraction].
type RayCastInput struct {
	P1, P2      Vec2
	MaxFraction float64
}

// RayCastOutput holds the hit normal and the fraction along the input ray.
type RayCastOutput struct {
	Normal   Vec2
	Fraction float64
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	LowerBound Vec2
	UpperBound Vec2
}

func (bb AABB) IsValid() bool {
	d := bb.UpperBound.Sub(bb.LowerBound)
	return d[0] >= 0 && d[1] >= 0 && common.IsValidVec(bb.LowerBound) && common.IsValidVec(bb.UpperBound)
}

func (bb AABB) Center() Vec2 {
	return bb.LowerBound.Add(bb.UpperBound).Mul(0.5)
}

// Extents returns the half-widths.
func (bb AABB) Extents() Vec2 {
	return bb.UpperBound.Sub(bb.LowerBound).Mul(0.5)
}

func (bb AABB) Perimeter() float64 {
	wx := bb.UpperBound[0] - bb.LowerBound[0]
	wy := bb.UpperBound[1] - bb.LowerBound[1]
	return 2.0 * (wx + wy)
}

// Combine returns the union of two boxes.
func Combine(a, b AABB) AABB {
	return AABB{
		LowerBound: common.MinVec(a.LowerBound, b.LowerBound),
		UpperBound: common.MaxVec(a.UpperBound, b.UpperBound),
	}
}

// Contains reports whether other lies inside bb.
func (bb AABB) Contains(other AABB) bool {
	return bb.LowerBound[0] <= other.LowerBound[0] &&
		bb.LowerBound[1] <= other.LowerBound[1] &&
		other.UpperBound[0] <= bb.UpperBound[0] &&
		other.UpperBound[1] <= bb.UpperBound[1]
}

// Fatten grows the box by r on every side.
func (bb AABB) Fatten(r float64) AABB {
	ext := Vec2{r, r}
	return AABB{LowerBound: bb.LowerBound.Sub(ext), UpperBound: bb.UpperBound.Add(ext)}
}

// TestOverlap reports whether two boxes overlap. Touching boxes overlap.
func TestOverlap(a, b AABB) bool {
	d1 := b.LowerBound.Sub(a.UpperBound)
	d2 := a.LowerBound.Sub(b.UpperBound)
	if d1[0] > 0 || d1[1] > 0 {
		return false
	}
	if d2[0] > 0 || d2[1] > 0 {
		return false
	}
	return true
}

// RayCast clips the ray against the box (slab method, Real-Time Collision
// Detection p179).
func (bb AABB) RayCast(input RayCastInput) (RayCastOutput, bool) {
	tmin := -common.MaxFloat
	tmax := common.MaxFloat

	p := input.P1
	d := input.P2.Sub(input.P1)
	absD := common.AbsVec(d)

	var normal Vec2
	for i := 0; i < 2; i++ {
		if absD[i] < common.Epsilon {
			// Parallel.
			if p[i] < bb.LowerBound[i] || bb.UpperBound[i] < p[i] {
				return RayCastOutput{}, false
			}
			continue
		}

		invD := 1.0 / d[i]
		t1 := (bb.LowerBound[i] - p[i]) * invD
		t2 := (bb.UpperBound[i] - p[i]) * invD

		// Sign of the normal vector.
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}

		if t1 > tmin {
			normal = Vec2{}
			normal[i] = s
			tmin = t1
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return RayCastOutput{}, false
		}
	}

	// Does the ray start inside the box? Does the ray intersect beyond the max fraction?
	if tmin < 0 || input.MaxFraction < tmin {
		return RayCastOutput{}, false
	}
	return RayCastOutput{Normal: normal, Fraction: tmin}, true
}
