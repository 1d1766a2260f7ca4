package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is a 2D column vector. Component 0 is x, component 1 is y.
type Vec2 = mgl64.Vec2

// Vec3 is a 3D column vector, used by the 3x3 joint solvers.
type Vec3 = mgl64.Vec3

// Mat22 is a column-major 2x2 matrix.
type Mat22 = mgl64.Mat2

// Mat33 is a column-major 3x3 matrix.
type Mat33 = mgl64.Mat3

// IsValid reports whether x is neither NaN nor infinite.
func IsValid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// IsValidVec reports whether both components of v are finite.
func IsValidVec(v Vec2) bool {
	return IsValid(v[0]) && IsValid(v[1])
}

// Cross is the 2D cross product, a scalar.
func Cross(a, b Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossVS is the cross product of a vector and a scalar.
func CrossVS(v Vec2, s float64) Vec2 {
	return Vec2{s * v[1], -s * v[0]}
}

// CrossSV is the cross product of a scalar and a vector.
func CrossSV(s float64, v Vec2) Vec2 {
	return Vec2{-s * v[1], s * v[0]}
}

// Skew returns the vector such that Skew(v).Dot(w) == Cross(v, w).
func Skew(v Vec2) Vec2 {
	return Vec2{-v[1], v[0]}
}

// Normalize returns the unit vector along v and the length of v. Vectors shorter
// than Epsilon are returned unchanged with a zero length.
func Normalize(v Vec2) (Vec2, float64) {
	length := v.Len()
	if length < Epsilon {
		return v, 0
	}
	inv := 1.0 / length
	return Vec2{v[0] * inv, v[1] * inv}, length
}

func LengthSquared(v Vec2) float64 {
	return v.Dot(v)
}

func Distance(a, b Vec2) float64 {
	return a.Sub(b).Len()
}

func DistanceSquared(a, b Vec2) float64 {
	c := a.Sub(b)
	return c.Dot(c)
}

func AbsVec(v Vec2) Vec2 {
	return Vec2{math.Abs(v[0]), math.Abs(v[1])}
}

func MinVec(a, b Vec2) Vec2 {
	return Vec2{math.Min(a[0], b[0]), math.Min(a[1], b[1])}
}

func MaxVec(a, b Vec2) Vec2 {
	return Vec2{math.Max(a[0], b[0]), math.Max(a[1], b[1])}
}

func Clamp(a, low, high float64) float64 {
	return math.Max(low, math.Min(a, high))
}

// Solve22 solves A * x = b. A singular matrix yields the zero vector.
func Solve22(a Mat22, b Vec2) Vec2 {
	det := a[0]*a[3] - a[2]*a[1]
	if det != 0 {
		det = 1.0 / det
	}
	return Vec2{det * (a[3]*b[0] - a[2]*b[1]), det * (a[0]*b[1] - a[1]*b[0])}
}

// Solve33 solves A * x = b. A singular matrix yields the zero vector.
func Solve33(a Mat33, b Vec3) Vec3 {
	return a.Inv().Mul3x1(b)
}

// Solve33Upper2 solves the upper 2x2 block of A against b.
func Solve33Upper2(a Mat33, b Vec2) Vec2 {
	return Solve22(mgl64.Mat2FromCols(Vec2{a[0], a[1]}, Vec2{a[3], a[4]}), b)
}

// Inverse22Of33 returns the inverse of the upper 2x2 block embedded in a 3x3
// matrix with zeros elsewhere.
func Inverse22Of33(a Mat33) Mat33 {
	inv := mgl64.Mat2FromCols(Vec2{a[0], a[1]}, Vec2{a[3], a[4]}).Inv()
	return Mat33{inv[0], inv[1], 0, inv[2], inv[3], 0, 0, 0, 0}
}

// SymInverse33 returns the inverse of a symmetric 3x3 matrix, or zero when singular.
func SymInverse33(a Mat33) Mat33 {
	return a.Inv()
}

// Rot is a rotation stored as sine and cosine.
type Rot struct {
	S, C float64
}

func NewRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

func IdentityRot() Rot {
	return Rot{S: 0, C: 1}
}

func (q Rot) Angle() float64 {
	return math.Atan2(q.S, q.C)
}

func (q Rot) XAxis() Vec2 {
	return Vec2{q.C, q.S}
}

func (q Rot) YAxis() Vec2 {
	return Vec2{-q.S, q.C}
}

// Apply rotates v.
func (q Rot) Apply(v Vec2) Vec2 {
	return Vec2{q.C*v[0] - q.S*v[1], q.S*v[0] + q.C*v[1]}
}

// ApplyT inverse-rotates v.
func (q Rot) ApplyT(v Vec2) Vec2 {
	return Vec2{q.C*v[0] + q.S*v[1], -q.S*v[0] + q.C*v[1]}
}

// MulRot returns q * r.
func MulRot(q, r Rot) Rot {
	return Rot{
		S: q.S*r.C + q.C*r.S,
		C: q.C*r.C - q.S*r.S,
	}
}

// MulTRot returns transpose(q) * r.
func MulTRot(q, r Rot) Rot {
	return Rot{
		S: q.C*r.S - q.S*r.C,
		C: q.C*r.C + q.S*r.S,
	}
}

// Transform is a translation and rotation: the position and orientation of a
// rigid frame.
type Transform struct {
	P Vec2
	Q Rot
}

func NewTransform(p Vec2, angle float64) Transform {
	return Transform{P: p, Q: NewRot(angle)}
}

func IdentityTransform() Transform {
	return Transform{Q: IdentityRot()}
}

// Apply maps a local point to the parent frame.
func (t Transform) Apply(v Vec2) Vec2 {
	return t.Q.Apply(v).Add(t.P)
}

// ApplyT maps a parent-frame point into the local frame.
func (t Transform) ApplyT(v Vec2) Vec2 {
	return t.Q.ApplyT(v.Sub(t.P))
}

// MulTransform returns A * B.
func MulTransform(a, b Transform) Transform {
	return Transform{P: a.Q.Apply(b.P).Add(a.P), Q: MulRot(a.Q, b.Q)}
}

// MulTTransform returns inverse(A) * B.
func MulTTransform(a, b Transform) Transform {
	return Transform{P: a.Q.ApplyT(b.P.Sub(a.P)), Q: MulTRot(a.Q, b.Q)}
}

// Sweep describes the motion of a body/shape for TOI computation. Shapes are
// defined with respect to the body origin, which may not coincide with the center
// of mass, so the local center is carried too.
type Sweep struct {
	LocalCenter Vec2
	C0, C       Vec2
	A0, A       float64

	// Alpha0 is the fraction of the current time step in [0,1] at which C0 and A0
	// are valid.
	Alpha0 float64
}

// Transform interpolates the sweep at beta in [0,1].
func (s Sweep) Transform(beta float64) Transform {
	p := s.C0.Mul(1.0 - beta).Add(s.C.Mul(beta))
	angle := (1.0-beta)*s.A0 + beta*s.A
	xf := Transform{P: p, Q: NewRot(angle)}
	xf.P = xf.P.Sub(xf.Q.Apply(s.LocalCenter))
	return xf
}

// Advance moves the start of the sweep forward to alpha.
func (s *Sweep) Advance(alpha float64) {
	Assert(s.Alpha0 < 1.0, "sweep already at the end of the step")
	beta := (alpha - s.Alpha0) / (1.0 - s.Alpha0)
	s.C0 = s.C0.Add(s.C.Sub(s.C0).Mul(beta))
	s.A0 += beta * (s.A - s.A0)
	s.Alpha0 = alpha
}

// Normalize keeps the angles in [-pi, pi] to stave off precision loss.
func (s *Sweep) Normalize() {
	twoPi := 2.0 * Pi
	d := twoPi * math.Floor(s.A0/twoPi)
	s.A0 -= d
	s.A -= d
}

func NextPowerOfTwo(x uint32) uint32 {
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	return x + 1
}

func IsPowerOfTwo(x uint32) bool {
	return x > 0 && x&(x-1) == 0
}
