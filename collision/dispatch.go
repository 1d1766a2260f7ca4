package collision

// ManifoldFunc evaluates the manifold between child indexA of a and child indexB of b.
type ManifoldFunc func(m *Manifold, a Shape, indexA int, xfA Transform, b Shape, indexB int, xfB Transform)

type dispatchEntry struct {
	fn ManifoldFunc

	// primary is false for the mirrored entry of a registered pair; the caller
	// must swap the shapes before evaluating.
	primary bool
}

var dispatch [shapeTypeCount][shapeTypeCount]dispatchEntry

func register(typeA, typeB ShapeType, fn ManifoldFunc) {
	dispatch[typeA][typeB] = dispatchEntry{fn: fn, primary: true}
	if typeA != typeB {
		dispatch[typeB][typeA] = dispatchEntry{fn: fn, primary: false}
	}
}

func init() {
	register(ShapeCircle, ShapeCircle, func(m *Manifold, a Shape, _ int, xfA Transform, b Shape, _ int, xfB Transform) {
		CollideCircles(m, a.(*Circle), xfA, b.(*Circle), xfB)
	})
	register(ShapePolygon, ShapeCircle, func(m *Manifold, a Shape, _ int, xfA Transform, b Shape, _ int, xfB Transform) {
		CollidePolygonAndCircle(m, a.(*Polygon), xfA, b.(*Circle), xfB)
	})
	register(ShapePolygon, ShapePolygon, func(m *Manifold, a Shape, _ int, xfA Transform, b Shape, _ int, xfB Transform) {
		CollidePolygons(m, a.(*Polygon), xfA, b.(*Polygon), xfB)
	})
	register(ShapeEdge, ShapeCircle, func(m *Manifold, a Shape, _ int, xfA Transform, b Shape, _ int, xfB Transform) {
		CollideEdgeAndCircle(m, a.(*Edge), xfA, b.(*Circle), xfB)
	})
	register(ShapeEdge, ShapePolygon, func(m *Manifold, a Shape, _ int, xfA Transform, b Shape, _ int, xfB Transform) {
		CollideEdgeAndPolygon(m, a.(*Edge), xfA, b.(*Polygon), xfB)
	})
	register(ShapeChain, ShapeCircle, func(m *Manifold, a Shape, indexA int, xfA Transform, b Shape, _ int, xfB Transform) {
		var edge Edge
		a.(*Chain).childEdge(indexA, &edge)
		CollideEdgeAndCircle(m, &edge, xfA, b.(*Circle), xfB)
	})
	register(ShapeChain, ShapePolygon, func(m *Manifold, a Shape, indexA int, xfA Transform, b Shape, _ int, xfB Transform) {
		var edge Edge
		a.(*Chain).childEdge(indexA, &edge)
		CollideEdgeAndPolygon(m, &edge, xfA, b.(*Polygon), xfB)
	})
}

// Lookup returns the manifold function for a pair of shape types. swap is true when
// the function expects the shapes in the opposite order. ok is false for pairs
// that never collide (edges and chains against each other).
func Lookup(typeA, typeB ShapeType) (fn ManifoldFunc, swap bool, ok bool) {
	e := dispatch[typeA][typeB]
	if e.fn == nil {
		return nil, false, false
	}
	return e.fn, !e.primary, true
}

// Collides reports whether the two shape types can produce contacts.
func Collides(typeA, typeB ShapeType) bool {
	return dispatch[typeA][typeB].fn != nil
}
