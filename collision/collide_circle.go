package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// CollideCircles computes the manifold between two circles.
func CollideCircles(m *Manifold, circleA *Circle, xfA Transform, circleB *Circle, xfB Transform) {
	m.PointCount = 0

	pA := xfA.Apply(circleA.P)
	pB := xfB.Apply(circleB.P)

	d := pB.Sub(pA)
	radius := circleA.R + circleB.R
	// Centers exactly r1+r2 apart produce no contact.
	if d.Dot(d) >= radius*radius {
		return
	}

	m.Type = ManifoldCircles
	m.LocalPoint = circleA.P
	m.LocalNormal = Vec2{}
	m.PointCount = 1
	m.Points[0].LocalPoint = circleB.P
	m.Points[0].ID = ContactFeature{}
}

// CollidePolygonAndCircle computes the manifold between a polygon and a circle.
func CollidePolygonAndCircle(m *Manifold, polygonA *Polygon, xfA Transform, circleB *Circle, xfB Transform) {
	m.PointCount = 0

	// Circle position in the frame of the polygon.
	cLocal := xfA.ApplyT(xfB.Apply(circleB.P))

	// Find the min separating edge.
	normalIndex := 0
	separation := -common.MaxFloat
	radius := polygonA.R + circleB.R
	vertices := polygonA.Vertices[:polygonA.Count]
	normals := polygonA.Normals[:polygonA.Count]

	for i := range vertices {
		s := normals[i].Dot(cLocal.Sub(vertices[i]))
		if s > radius {
			return
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	// Vertices that subtend the incident face.
	vertIndex1 := normalIndex
	vertIndex2 := vertIndex1 + 1
	if vertIndex2 == len(vertices) {
		vertIndex2 = 0
	}
	v1 := vertices[vertIndex1]
	v2 := vertices[vertIndex2]

	m.Type = ManifoldFaceA
	m.Points[0].LocalPoint = circleB.P
	m.Points[0].ID = ContactFeature{}

	// The center is inside the polygon.
	if separation < common.Epsilon {
		m.PointCount = 1
		m.LocalNormal = normals[normalIndex]
		m.LocalPoint = v1.Add(v2).Mul(0.5)
		return
	}

	// Barycentric coordinates.
	u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
	u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))

	switch {
	case u1 <= 0:
		if common.DistanceSquared(cLocal, v1) > radius*radius {
			return
		}
		m.PointCount = 1
		m.LocalNormal, _ = common.Normalize(cLocal.Sub(v1))
		m.LocalPoint = v1

	case u2 <= 0:
		if common.DistanceSquared(cLocal, v2) > radius*radius {
			return
		}
		m.PointCount = 1
		m.LocalNormal, _ = common.Normalize(cLocal.Sub(v2))
		m.LocalPoint = v2

	default:
		faceCenter := v1.Add(v2).Mul(0.5)
		if cLocal.Sub(faceCenter).Dot(normals[vertIndex1]) > radius {
			return
		}
		m.PointCount = 1
		m.LocalNormal = normals[vertIndex1]
		m.LocalPoint = faceCenter
	}
}
