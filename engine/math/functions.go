package math

import (
	m "math"

	"golang.org/x/exp/constraints"
)

const (
	K_PI      float32 = 3.14159265358979323846
	K_HALF_PI float32 = 0.5 * K_PI

	// Smallest positive number where 1.0 + FLOAT_EPSILON != 1.0
	K_FLOAT_EPSILON float32 = 1.192092896e-07
)

func sin32(x float32) float32 {
	return float32(m.Sin(float64(x)))
}

func cos32(x float32) float32 {
	return float32(m.Cos(float64(x)))
}

func tan32(x float32) float32 {
	return float32(m.Tan(float64(x)))
}

func sqrt32(x float32) float32 {
	return float32(m.Sqrt(float64(x)))
}

func abs32(x float32) float32 {
	return float32(m.Abs(float64(x)))
}

func DegToRad(degrees float32) float32 {
	return degrees * (K_PI / 180.0)
}

func RadToDeg(radians float32) float32 {
	return radians * (180.0 / K_PI)
}

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3One() Vec3 {
	return Vec3{X: 1.0, Y: 1.0, Z: 1.0}
}

func NewVec3Up() Vec3 {
	return Vec3{Y: 1.0}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Length() float32 {
	return sqrt32(v.LengthSquared())
}

// Normalized returns a unit-length copy of the vector. The zero vector is
// returned unchanged.
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length < K_FLOAT_EPSILON {
		return v
	}
	return v.MulScalar(1.0 / length)
}

func (v Vec3) Compare(other Vec3, tolerance float32) bool {
	return abs32(v.X-other.X) <= tolerance &&
		abs32(v.Y-other.Y) <= tolerance &&
		abs32(v.Z-other.Z) <= tolerance
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func (v Vec4) ToVec3() Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

func (v Vec3) ToVec4(w float32) Vec4 {
	return Vec4{X: v.X, Y: v.Y, Z: v.Z, W: w}
}

func NewQuatIdentity() Quaternion {
	return Quaternion{0, 0, 0, 1.0}
}

func (q Quaternion) Normal() float32 {
	return sqrt32(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalized() Quaternion {
	n := q.Normal()
	if n < K_FLOAT_EPSILON {
		return NewQuatIdentity()
	}
	return Quaternion{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

func (q Quaternion) ToMat4() Mat4 {
	out := NewMat4Identity()
	n := q.Normalized()

	out.Data[0] = 1.0 - 2.0*n.Y*n.Y - 2.0*n.Z*n.Z
	out.Data[1] = 2.0*n.X*n.Y + 2.0*n.Z*n.W
	out.Data[2] = 2.0*n.X*n.Z - 2.0*n.Y*n.W

	out.Data[4] = 2.0*n.X*n.Y - 2.0*n.Z*n.W
	out.Data[5] = 1.0 - 2.0*n.X*n.X - 2.0*n.Z*n.Z
	out.Data[6] = 2.0*n.Y*n.Z + 2.0*n.X*n.W

	out.Data[8] = 2.0*n.X*n.Z + 2.0*n.Y*n.W
	out.Data[9] = 2.0*n.Y*n.Z - 2.0*n.X*n.W
	out.Data[10] = 1.0 - 2.0*n.X*n.X - 2.0*n.Y*n.Y

	return out
}

func NewQuatFromAxisAngle(axis Vec3, angle float32, normalize bool) Quaternion {
	halfAngle := 0.5 * angle
	s := sin32(halfAngle)
	c := cos32(halfAngle)

	q := Quaternion{s * axis.X, s * axis.Y, s * axis.Z, c}
	if normalize {
		return q.Normalized()
	}
	return q
}

func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

// Mul returns the product mt * other, so chained calls compose right to
// left over column vectors: T.Mul(R).Mul(S) applies scale first.
func (mt Mat4) Mul(other Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			sum := float32(0)
			for i := 0; i < 4; i++ {
				sum += mt.Data[i*4+row] * other.Data[col*4+i]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

func (mt Mat4) MulVec4(v Vec4) Vec4 {
	d := mt.Data
	return Vec4{
		X: d[0]*v.X + d[4]*v.Y + d[8]*v.Z + d[12]*v.W,
		Y: d[1]*v.X + d[5]*v.Y + d[9]*v.Z + d[13]*v.W,
		Z: d[2]*v.X + d[6]*v.Y + d[10]*v.Z + d[14]*v.W,
		W: d[3]*v.X + d[7]*v.Y + d[11]*v.Z + d[15]*v.W,
	}
}

func NewMat4Orthographic(left, right, bottom, top, nearClip, farClip float32) Mat4 {
	out := NewMat4Identity()

	lr := 1.0 / (left - right)
	bt := 1.0 / (bottom - top)
	nf := 1.0 / (nearClip - farClip)

	out.Data[0] = -2.0 * lr
	out.Data[5] = -2.0 * bt
	out.Data[10] = 2.0 * nf

	out.Data[12] = (left + right) * lr
	out.Data[13] = (top + bottom) * bt
	out.Data[14] = (farClip + nearClip) * nf
	return out
}

func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	halfTanFov := tan32(fovRadians * 0.5)
	out := Mat4{}
	out.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	out.Data[5] = 1.0 / halfTanFov
	out.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	out.Data[11] = -1.0
	out.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return out
}

func NewMat4LookAt(position, target, up Vec3) Mat4 {
	zAxis := target.Sub(position).Normalized()
	xAxis := up.Cross(zAxis).Normalized()
	yAxis := zAxis.Cross(xAxis)

	out := Mat4{}
	out.Data[0] = xAxis.X
	out.Data[1] = yAxis.X
	out.Data[2] = -zAxis.X
	out.Data[4] = xAxis.Y
	out.Data[5] = yAxis.Y
	out.Data[6] = -zAxis.Y
	out.Data[8] = xAxis.Z
	out.Data[9] = yAxis.Z
	out.Data[10] = -zAxis.Z
	out.Data[12] = -xAxis.Dot(position)
	out.Data[13] = -yAxis.Dot(position)
	out.Data[14] = zAxis.Dot(position)
	out.Data[15] = 1.0
	return out
}

func (mt Mat4) Transposed() Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			out.Data[row*4+col] = mt.Data[col*4+row]
		}
	}
	return out
}

// Inverse returns the algebraic inverse via cofactor expansion. Singular
// matrices produce garbage; callers only invert rigid transforms.
func (mt Mat4) Inverse() Mat4 {
	d := mt.Data

	t0 := d[10] * d[15]
	t1 := d[14] * d[11]
	t2 := d[6] * d[15]
	t3 := d[14] * d[7]
	t4 := d[6] * d[11]
	t5 := d[10] * d[7]
	t6 := d[2] * d[15]
	t7 := d[14] * d[3]
	t8 := d[2] * d[11]
	t9 := d[10] * d[3]
	t10 := d[2] * d[7]
	t11 := d[6] * d[3]
	t12 := d[8] * d[13]
	t13 := d[12] * d[9]
	t14 := d[4] * d[13]
	t15 := d[12] * d[5]
	t16 := d[4] * d[9]
	t17 := d[8] * d[5]
	t18 := d[0] * d[13]
	t19 := d[12] * d[1]
	t20 := d[0] * d[9]
	t21 := d[8] * d[1]
	t22 := d[0] * d[5]
	t23 := d[4] * d[1]

	out := Mat4{}
	o := &out.Data

	o[0] = (t0*d[5] + t3*d[9] + t4*d[13]) - (t1*d[5] + t2*d[9] + t5*d[13])
	o[1] = (t1*d[1] + t6*d[9] + t9*d[13]) - (t0*d[1] + t7*d[9] + t8*d[13])
	o[2] = (t2*d[1] + t7*d[5] + t10*d[13]) - (t3*d[1] + t6*d[5] + t11*d[13])
	o[3] = (t5*d[1] + t8*d[5] + t11*d[9]) - (t4*d[1] + t9*d[5] + t10*d[9])

	det := 1.0 / (d[0]*o[0] + d[4]*o[1] + d[8]*o[2] + d[12]*o[3])

	o[0] = det * o[0]
	o[1] = det * o[1]
	o[2] = det * o[2]
	o[3] = det * o[3]
	o[4] = det * ((t1*d[4] + t2*d[8] + t5*d[12]) - (t0*d[4] + t3*d[8] + t4*d[12]))
	o[5] = det * ((t0*d[0] + t7*d[8] + t8*d[12]) - (t1*d[0] + t6*d[8] + t9*d[12]))
	o[6] = det * ((t3*d[0] + t6*d[4] + t11*d[12]) - (t2*d[0] + t7*d[4] + t10*d[12]))
	o[7] = det * ((t4*d[0] + t9*d[4] + t10*d[8]) - (t5*d[0] + t8*d[4] + t11*d[8]))
	o[8] = det * ((t12*d[7] + t15*d[11] + t16*d[15]) - (t13*d[7] + t14*d[11] + t17*d[15]))
	o[9] = det * ((t13*d[3] + t18*d[11] + t21*d[15]) - (t12*d[3] + t19*d[11] + t20*d[15]))
	o[10] = det * ((t14*d[3] + t19*d[7] + t22*d[15]) - (t15*d[3] + t18*d[7] + t23*d[15]))
	o[11] = det * ((t17*d[3] + t20*d[7] + t23*d[11]) - (t16*d[3] + t21*d[7] + t22*d[11]))
	o[12] = det * ((t14*d[10] + t17*d[14] + t13*d[6]) - (t16*d[14] + t12*d[6] + t15*d[10]))
	o[13] = det * ((t20*d[14] + t12*d[2] + t19*d[10]) - (t18*d[10] + t21*d[14] + t13*d[2]))
	o[14] = det * ((t18*d[6] + t23*d[14] + t15*d[2]) - (t22*d[14] + t14*d[2] + t19*d[6]))
	o[15] = det * ((t22*d[10] + t16*d[2] + t21*d[6]) - (t20*d[6] + t23*d[10] + t17*d[2]))

	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = position.X
	out.Data[13] = position.Y
	out.Data[14] = position.Z
	return out
}

func NewMat4Scale(scale Vec3) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = scale.X
	out.Data[5] = scale.Y
	out.Data[10] = scale.Z
	return out
}
