package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// FeatureType tells whether a contact feature is a vertex or a face.
type FeatureType uint8

const (
	FeatureVertex FeatureType = iota
	FeatureFace
)

// ContactFeature names the features that intersect to form a contact point.
type ContactFeature struct {
	IndexA uint8
	IndexB uint8
	TypeA  FeatureType
	TypeB  FeatureType
}

// Key packs the feature into a 32-bit id used to match points across steps.
func (cf ContactFeature) Key() uint32 {
	return uint32(cf.IndexA) |
		uint32(cf.IndexB)<<8 |
		uint32(cf.TypeA)<<16 |
		uint32(cf.TypeB)<<24
}

// Swap exchanges the A and B sides.
func (cf ContactFeature) Swap() ContactFeature {
	return ContactFeature{IndexA: cf.IndexB, IndexB: cf.IndexA, TypeA: cf.TypeB, TypeB: cf.TypeA}
}

// ManifoldPoint is one contact point of a manifold. LocalPoint depends on the
// manifold type:
//   - ManifoldCircles: the local center of circle B
//   - ManifoldFaceA: the local center of circle B or the clip point of polygon B
//   - ManifoldFaceB: the clip point of polygon A
//
// The impulses are carried across steps for warm starting and may not be reliable
// contact forces, especially in high speed collisions.
type ManifoldPoint struct {
	LocalPoint     Vec2
	NormalImpulse  float64
	TangentImpulse float64
	ID             ContactFeature
}

// ManifoldType selects how LocalPoint and LocalNormal are interpreted.
type ManifoldType uint8

const (
	ManifoldCircles ManifoldType = iota
	ManifoldFaceA
	ManifoldFaceB
)

// Manifold describes the contact between two convex shapes in the local frames
// of the shapes, so position correction can account for movement.
//   - ManifoldCircles: LocalPoint is the center of circle A; LocalNormal is unused
//   - ManifoldFaceA: LocalPoint and LocalNormal describe the reference face on A
//   - ManifoldFaceB: the same on B
type Manifold struct {
	Points      [common.MaxManifoldPoints]ManifoldPoint
	LocalNormal Vec2
	LocalPoint  Vec2
	Type        ManifoldType
	PointCount  int
}

// WorldManifold is a manifold evaluated at the current body transforms.
type WorldManifold struct {
	// Normal points from A to B.
	Normal Vec2
	Points [common.MaxManifoldPoints]Vec2

	// Separations are negative when the shapes overlap. Meters.
	Separations [common.MaxManifoldPoints]float64
}

// NewWorldManifold evaluates m with the given transforms and skin radii. Points are
// midway between the two surfaces.
func NewWorldManifold(m *Manifold, xfA Transform, radiusA float64, xfB Transform, radiusB float64) WorldManifold {
	var wm WorldManifold
	if m.PointCount == 0 {
		return wm
	}

	switch m.Type {
	case ManifoldCircles:
		wm.Normal = Vec2{1, 0}
		pointA := xfA.Apply(m.LocalPoint)
		pointB := xfB.Apply(m.Points[0].LocalPoint)
		if common.DistanceSquared(pointA, pointB) > common.Epsilon*common.Epsilon {
			wm.Normal, _ = common.Normalize(pointB.Sub(pointA))
		}

		cA := pointA.Add(wm.Normal.Mul(radiusA))
		cB := pointB.Sub(wm.Normal.Mul(radiusB))
		wm.Points[0] = cA.Add(cB).Mul(0.5)
		wm.Separations[0] = cB.Sub(cA).Dot(wm.Normal)

	case ManifoldFaceA:
		wm.Normal = xfA.Q.Apply(m.LocalNormal)
		planePoint := xfA.Apply(m.LocalPoint)

		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfB.Apply(m.Points[i].LocalPoint)
			cA := clipPoint.Add(wm.Normal.Mul(radiusA - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cB := clipPoint.Sub(wm.Normal.Mul(radiusB))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cB.Sub(cA).Dot(wm.Normal)
		}

	case ManifoldFaceB:
		wm.Normal = xfB.Q.Apply(m.LocalNormal)
		planePoint := xfB.Apply(m.LocalPoint)

		for i := 0; i < m.PointCount; i++ {
			clipPoint := xfA.Apply(m.Points[i].LocalPoint)
			cB := clipPoint.Add(wm.Normal.Mul(radiusB - clipPoint.Sub(planePoint).Dot(wm.Normal)))
			cA := clipPoint.Sub(wm.Normal.Mul(radiusA))
			wm.Points[i] = cA.Add(cB).Mul(0.5)
			wm.Separations[i] = cA.Sub(cB).Dot(wm.Normal)
		}

		// Ensure normal points from A to B.
		wm.Normal = wm.Normal.Mul(-1)
	}
	return wm
}

// PointState is the fate of a manifold point between two updates.
type PointState uint8

const (
	StateNull PointState = iota
	StateAdd
	StatePersist
	StateRemove
)

// PointStates compares the old and new manifolds by feature key. state1 holds
// the fate of the old points (persist or remove), state2 the new ones (add or persist).
func PointStates(m1, m2 *Manifold) (state1, state2 [common.MaxManifoldPoints]PointState) {
	for i := 0; i < m1.PointCount; i++ {
		key := m1.Points[i].ID.Key()
		state1[i] = StateRemove
		for j := 0; j < m2.PointCount; j++ {
			if m2.Points[j].ID.Key() == key {
				state1[i] = StatePersist
				break
			}
		}
	}

	for i := 0; i < m2.PointCount; i++ {
		key := m2.Points[i].ID.Key()
		state2[i] = StateAdd
		for j := 0; j < m1.PointCount; j++ {
			if m1.Points[j].ID.Key() == key {
				state2[i] = StatePersist
				break
			}
		}
	}
	return state1, state2
}

// ClipVertex is used while computing contact manifolds.
type ClipVertex struct {
	V  Vec2
	ID ContactFeature
}

// ClipSegmentToLine keeps the part of the segment vIn behind the plane
// dot(normal, x) = offset (Sutherland-Hodgman). It returns the number of output
// points.
func ClipSegmentToLine(vOut *[2]ClipVertex, vIn [2]ClipVertex, normal Vec2, offset float64, vertexIndexA int) int {
	numOut := 0

	distance0 := normal.Dot(vIn[0].V) - offset
	distance1 := normal.Dot(vIn[1].V) - offset

	if distance0 <= 0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	// The points are on different sides of the plane.
	if distance0*distance1 < 0 {
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].V = vIn[0].V.Add(vIn[1].V.Sub(vIn[0].V).Mul(interp))

		// Vertex A is hitting edge B.
		vOut[numOut].ID = ContactFeature{
			IndexA: uint8(vertexIndexA),
			IndexB: vIn[0].ID.IndexB,
			TypeA:  FeatureVertex,
			TypeB:  FeatureFace,
		}
		numOut++
	}
	return numOut
}
