package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// CollideEdgeAndCircle computes the manifold between an edge and a circle. A
// one-sided edge ignores circles behind it and defers to its neighbors (through the
// ghost vertices) when the circle sits in their vertex regions.
func CollideEdgeAndCircle(m *Manifold, edgeA *Edge, xfA Transform, circleB *Circle, xfB Transform) {
	m.PointCount = 0

	// Circle in the frame of the edge.
	q := xfA.ApplyT(xfB.Apply(circleB.P))

	a, b := edgeA.Vertex1, edgeA.Vertex2
	e := b.Sub(a)

	// Normal points to the right for a CCW winding.
	n := Vec2{e[1], -e[0]}
	offset := n.Dot(q.Sub(a))
	if edgeA.OneSided && offset < 0 {
		return
	}

	// Barycentric coordinates.
	u := e.Dot(b.Sub(q))
	v := e.Dot(q.Sub(a))

	radius := edgeA.R + circleB.R

	cf := ContactFeature{IndexB: 0, TypeB: FeatureVertex}

	// Region A.
	if v <= 0 {
		if common.DistanceSquared(q, a) > radius*radius {
			return
		}

		// The circle belongs to the previous edge when it is in that edge's AB region.
		if edgeA.OneSided {
			e1 := a.Sub(edgeA.Vertex0)
			if e1.Dot(a.Sub(q)) > 0 {
				return
			}
		}

		cf.IndexA = 0
		cf.TypeA = FeatureVertex
		setCircleManifold(m, a, circleB.P, cf)
		return
	}

	// Region B.
	if u <= 0 {
		if common.DistanceSquared(q, b) > radius*radius {
			return
		}

		if edgeA.OneSided {
			e2 := edgeA.Vertex3.Sub(b)
			if e2.Dot(q.Sub(b)) > 0 {
				return
			}
		}

		cf.IndexA = 1
		cf.TypeA = FeatureVertex
		setCircleManifold(m, b, circleB.P, cf)
		return
	}

	// Region AB.
	den := e.Dot(e)
	common.Assert(den > 0, "zero length edge")
	p := a.Mul(u).Add(b.Mul(v)).Mul(1.0 / den)
	if common.DistanceSquared(q, p) > radius*radius {
		return
	}

	if offset < 0 {
		n = n.Mul(-1)
	}
	n, _ = common.Normalize(n)

	cf.IndexA = 0
	cf.TypeA = FeatureFace
	m.PointCount = 1
	m.Type = ManifoldFaceA
	m.LocalNormal = n
	m.LocalPoint = a
	m.Points[0].ID = cf
	m.Points[0].LocalPoint = circleB.P
}

func setCircleManifold(m *Manifold, p, circleCenter Vec2, cf ContactFeature) {
	m.PointCount = 1
	m.Type = ManifoldCircles
	m.LocalNormal = Vec2{}
	m.LocalPoint = p
	m.Points[0].ID = cf
	m.Points[0].LocalPoint = circleCenter
}

type epAxisType uint8

const (
	epAxisUnknown epAxisType = iota
	epAxisEdgeA
	epAxisEdgeB
)

// epAxis tracks the best separating axis.
type epAxis struct {
	normal     Vec2
	kind       epAxisType
	index      int
	separation float64
}

// tempPolygon is polygon B expressed in frame A.
type tempPolygon struct {
	vertices [common.MaxPolygonVertices]Vec2
	normals  [common.MaxPolygonVertices]Vec2
	count    int
}

// referenceFace is the face clipped against.
type referenceFace struct {
	i1, i2                   int
	v1, v2                   Vec2
	normal                   Vec2
	sideNormal1, sideNormal2 Vec2
	sideOffset1, sideOffset2 float64
}

func computeEdgeSeparation(polygonB *tempPolygon, v1, normal1 Vec2) epAxis {
	axis := epAxis{kind: epAxisEdgeA, index: -1, separation: -common.MaxFloat}

	axes := [2]Vec2{normal1, normal1.Mul(-1)}

	// Axis with the least overlap.
	for j := 0; j < 2; j++ {
		sj := common.MaxFloat

		// Deepest polygon vertex along axis j.
		for i := 0; i < polygonB.count; i++ {
			si := axes[j].Dot(polygonB.vertices[i].Sub(v1))
			if si < sj {
				sj = si
			}
		}

		if sj > axis.separation {
			axis.index = j
			axis.separation = sj
			axis.normal = axes[j]
		}
	}
	return axis
}

func computePolygonSeparation(polygonB *tempPolygon, v1, v2 Vec2) epAxis {
	axis := epAxis{kind: epAxisUnknown, index: -1, separation: -common.MaxFloat}

	for i := 0; i < polygonB.count; i++ {
		n := polygonB.normals[i].Mul(-1)

		s1 := n.Dot(polygonB.vertices[i].Sub(v1))
		s2 := n.Dot(polygonB.vertices[i].Sub(v2))
		s := min(s1, s2)

		if s > axis.separation {
			axis.kind = epAxisEdgeB
			axis.index = i
			axis.separation = s
			axis.normal = n
		}
	}
	return axis
}

// Hysteresis for jitter reduction between the edge and polygon axes.
const (
	edgeRelativeTol = 0.98
	edgeAbsoluteTol = 0.001
)

// sinTol bounds the angle by which a normal may leave the admissible region of a
// convex ghost corner.
const sinTol = 0.1

// CollideEdgeAndPolygon computes the manifold between an edge and a polygon.
//
// For one-sided edges the chosen normal is checked against the Gauss map of the
// neighboring segments: collisions at a convex corner are skipped when the normal
// belongs to the neighbor, and snapped to the edge normal at a concave corner. This
// removes ghost collisions where a box slides across chain joints.
func CollideEdgeAndPolygon(m *Manifold, edgeA *Edge, xfA Transform, polygonB *Polygon, xfB Transform) {
	m.PointCount = 0

	xf := common.MulTTransform(xfA, xfB)

	centroidB := xf.Apply(polygonB.Centroid)

	v1 := edgeA.Vertex1
	v2 := edgeA.Vertex2

	edge1, _ := common.Normalize(v2.Sub(v1))

	// Normal points to the right for a CCW winding.
	normal1 := Vec2{edge1[1], -edge1[0]}
	offset1 := normal1.Dot(centroidB.Sub(v1))

	oneSided := edgeA.OneSided
	if oneSided && offset1 < 0 {
		return
	}

	var tempB tempPolygon
	tempB.count = polygonB.Count
	for i := 0; i < polygonB.Count; i++ {
		tempB.vertices[i] = xf.Apply(polygonB.Vertices[i])
		tempB.normals[i] = xf.Q.Apply(polygonB.Normals[i])
	}

	radius := polygonB.R + edgeA.R

	edgeAxis := computeEdgeSeparation(&tempB, v1, normal1)
	if edgeAxis.separation > radius {
		return
	}

	polygonAxis := computePolygonSeparation(&tempB, v1, v2)
	if polygonAxis.separation > radius {
		return
	}

	var primaryAxis epAxis
	if polygonAxis.separation-radius > edgeRelativeTol*(edgeAxis.separation-radius)+edgeAbsoluteTol {
		primaryAxis = polygonAxis
	} else {
		primaryAxis = edgeAxis
	}

	if oneSided {
		edge0, _ := common.Normalize(v1.Sub(edgeA.Vertex0))
		normal0 := Vec2{edge0[1], -edge0[0]}
		convex1 := common.Cross(edge0, edge1) >= 0

		edge2, _ := common.Normalize(edgeA.Vertex3.Sub(v2))
		normal2 := Vec2{edge2[1], -edge2[0]}
		convex2 := common.Cross(edge1, edge2) >= 0

		side1 := primaryAxis.normal.Dot(edge1) <= 0

		if side1 {
			if convex1 {
				if common.Cross(primaryAxis.normal, normal0) > sinTol {
					// Skip region.
					return
				}
			} else {
				// Snap region.
				primaryAxis = edgeAxis
			}
		} else {
			if convex2 {
				if common.Cross(normal2, primaryAxis.normal) > sinTol {
					return
				}
			} else {
				primaryAxis = edgeAxis
			}
		}
	}

	var clipPoints [2]ClipVertex
	var ref referenceFace
	if primaryAxis.kind == epAxisEdgeA {
		m.Type = ManifoldFaceA

		// The polygon normal most anti-parallel to the edge normal.
		bestIndex := 0
		bestValue := primaryAxis.normal.Dot(tempB.normals[0])
		for i := 1; i < tempB.count; i++ {
			value := primaryAxis.normal.Dot(tempB.normals[i])
			if value < bestValue {
				bestValue = value
				bestIndex = i
			}
		}

		i1 := bestIndex
		i2 := i1 + 1
		if i2 == tempB.count {
			i2 = 0
		}

		clipPoints[0] = ClipVertex{
			V:  tempB.vertices[i1],
			ID: ContactFeature{IndexA: 0, IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		}
		clipPoints[1] = ClipVertex{
			V:  tempB.vertices[i2],
			ID: ContactFeature{IndexA: 0, IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		}

		ref.i1 = 0
		ref.i2 = 1
		ref.v1 = v1
		ref.v2 = v2
		ref.normal = primaryAxis.normal
		ref.sideNormal1 = edge1.Mul(-1)
		ref.sideNormal2 = edge1
	} else {
		m.Type = ManifoldFaceB

		clipPoints[0] = ClipVertex{
			V:  v2,
			ID: ContactFeature{IndexA: 1, IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace},
		}
		clipPoints[1] = ClipVertex{
			V:  v1,
			ID: ContactFeature{IndexA: 0, IndexB: uint8(primaryAxis.index), TypeA: FeatureVertex, TypeB: FeatureFace},
		}

		ref.i1 = primaryAxis.index
		ref.i2 = ref.i1 + 1
		if ref.i2 == tempB.count {
			ref.i2 = 0
		}
		ref.v1 = tempB.vertices[ref.i1]
		ref.v2 = tempB.vertices[ref.i2]
		ref.normal = tempB.normals[ref.i1]

		// CCW winding.
		ref.sideNormal1 = Vec2{ref.normal[1], -ref.normal[0]}
		ref.sideNormal2 = ref.sideNormal1.Mul(-1)
	}

	ref.sideOffset1 = ref.sideNormal1.Dot(ref.v1)
	ref.sideOffset2 = ref.sideNormal2.Dot(ref.v2)

	var clipPoints1, clipPoints2 [2]ClipVertex
	if np := ClipSegmentToLine(&clipPoints1, clipPoints, ref.sideNormal1, ref.sideOffset1, ref.i1); np < common.MaxManifoldPoints {
		return
	}
	if np := ClipSegmentToLine(&clipPoints2, clipPoints1, ref.sideNormal2, ref.sideOffset2, ref.i2); np < common.MaxManifoldPoints {
		return
	}

	if primaryAxis.kind == epAxisEdgeA {
		m.LocalNormal = ref.normal
		m.LocalPoint = ref.v1
	} else {
		m.LocalNormal = polygonB.Normals[ref.i1]
		m.LocalPoint = polygonB.Vertices[ref.i1]
	}

	pointCount := 0
	for i := 0; i < common.MaxManifoldPoints; i++ {
		separation := ref.normal.Dot(clipPoints2[i].V.Sub(ref.v1))
		if separation > radius {
			continue
		}

		cp := &m.Points[pointCount]
		if primaryAxis.kind == epAxisEdgeA {
			cp.LocalPoint = xf.ApplyT(clipPoints2[i].V)
			cp.ID = clipPoints2[i].ID
		} else {
			cp.LocalPoint = clipPoints2[i].V
			cp.ID = clipPoints2[i].ID.Swap()
		}
		pointCount++
	}
	m.PointCount = pointCount
}
