package collision

import (
	"github.com/ByteArena/box2d/v2/common"
)

// findMaxSeparation returns the edge of poly1 with the largest separation from
// poly2, using the edge normals of poly1.
func findMaxSeparation(poly1 *Polygon, xf1 Transform, poly2 *Polygon, xf2 Transform) (int, float64) {
	xf := common.MulTTransform(xf2, xf1)

	bestIndex := 0
	maxSeparation := -common.MaxFloat
	for i := 0; i < poly1.Count; i++ {
		// poly1 normal and vertex in frame2.
		n := xf.Q.Apply(poly1.Normals[i])
		v1 := xf.Apply(poly1.Vertices[i])

		// Deepest point for normal i.
		si := common.MaxFloat
		for j := 0; j < poly2.Count; j++ {
			sij := n.Dot(poly2.Vertices[j].Sub(v1))
			if sij < si {
				si = sij
			}
		}

		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}
	return bestIndex, maxSeparation
}

func findIncidentEdge(poly1 *Polygon, xf1 Transform, edge1 int, poly2 *Polygon, xf2 Transform) [2]ClipVertex {
	common.Assert(0 <= edge1 && edge1 < poly1.Count, "reference edge out of range")

	// Normal of the reference edge in poly2's frame.
	normal1 := xf2.Q.ApplyT(xf1.Q.Apply(poly1.Normals[edge1]))

	// The incident edge is the most anti-parallel one on poly2.
	index := 0
	minDot := common.MaxFloat
	for i := 0; i < poly2.Count; i++ {
		dot := normal1.Dot(poly2.Normals[i])
		if dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := i1 + 1
	if i2 == poly2.Count {
		i2 = 0
	}

	return [2]ClipVertex{
		{
			V:  xf2.Apply(poly2.Vertices[i1]),
			ID: ContactFeature{IndexA: uint8(edge1), IndexB: uint8(i1), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
		{
			V:  xf2.Apply(poly2.Vertices[i2]),
			ID: ContactFeature{IndexA: uint8(edge1), IndexB: uint8(i2), TypeA: FeatureFace, TypeB: FeatureVertex},
		},
	}
}

// CollidePolygons computes the manifold between two polygons.
//
// The reference face is the edge of greatest separation on either polygon; the
// incident edge of the other polygon is clipped against the side planes of the
// reference face. B is preferred as reference only when it separates clearly
// better, which keeps the manifold from flipping between frames.
func CollidePolygons(m *Manifold, polyA *Polygon, xfA Transform, polyB *Polygon, xfB Transform) {
	m.PointCount = 0
	totalRadius := polyA.R + polyB.R

	edgeA, separationA := findMaxSeparation(polyA, xfA, polyB, xfB)
	if separationA > totalRadius {
		return
	}

	edgeB, separationB := findMaxSeparation(polyB, xfB, polyA, xfA)
	if separationB > totalRadius {
		return
	}

	var (
		poly1, poly2 *Polygon
		xf1, xf2     Transform
		edge1        int
		flip         bool
	)
	const tol = 0.1 * common.LinearSlop
	if separationB > separationA+tol {
		poly1, poly2 = polyB, polyA
		xf1, xf2 = xfB, xfA
		edge1 = edgeB
		m.Type = ManifoldFaceB
		flip = true
	} else {
		poly1, poly2 = polyA, polyB
		xf1, xf2 = xfA, xfB
		edge1 = edgeA
		m.Type = ManifoldFaceA
	}

	incidentEdge := findIncidentEdge(poly1, xf1, edge1, poly2, xf2)

	iv1 := edge1
	iv2 := edge1 + 1
	if iv2 == poly1.Count {
		iv2 = 0
	}

	v11 := poly1.Vertices[iv1]
	v12 := poly1.Vertices[iv2]

	localTangent, _ := common.Normalize(v12.Sub(v11))
	localNormal := common.CrossVS(localTangent, 1.0)
	planePoint := v11.Add(v12).Mul(0.5)

	tangent := xf1.Q.Apply(localTangent)
	normal := common.CrossVS(tangent, 1.0)

	v11 = xf1.Apply(v11)
	v12 = xf1.Apply(v12)

	frontOffset := normal.Dot(v11)

	// Side offsets, extended by the skin thickness.
	sideOffset1 := -tangent.Dot(v11) + totalRadius
	sideOffset2 := tangent.Dot(v12) + totalRadius

	var clipPoints1, clipPoints2 [2]ClipVertex
	if np := ClipSegmentToLine(&clipPoints1, incidentEdge, tangent.Mul(-1), sideOffset1, iv1); np < 2 {
		return
	}
	if np := ClipSegmentToLine(&clipPoints2, clipPoints1, tangent, sideOffset2, iv2); np < 2 {
		return
	}

	m.LocalNormal = localNormal
	m.LocalPoint = planePoint

	pointCount := 0
	for i := 0; i < common.MaxManifoldPoints; i++ {
		separation := normal.Dot(clipPoints2[i].V) - frontOffset
		if separation > totalRadius {
			continue
		}

		cp := &m.Points[pointCount]
		cp.LocalPoint = xf2.ApplyT(clipPoints2[i].V)
		cp.ID = clipPoints2[i].ID
		if flip {
			cp.ID = cp.ID.Swap()
		}
		pointCount++
	}
	m.PointCount = pointCount
}
