package core

import (
	"fmt"
	"math"
)

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float64
}

// NewVec3 creates a new Vec3
func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Vec3FromSlice builds a vector from exactly three values
func Vec3FromSlice(values []float64) (Vec3, error) {
	if len(values) != 3 {
		return Vec3{}, fmt.Errorf("expected 3 components, got %d", len(values))
	}
	return Vec3{values[0], values[1], values[2]}, nil
}

// Add returns the sum of two vectors
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Subtract returns the difference of two vectors
func (v Vec3) Subtract(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Multiply returns the vector scaled by a scalar
func (v Vec3) Multiply(scalar float64) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

// Length returns the magnitude of the vector
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

// LengthSquared returns the squared magnitude of the vector
func (v Vec3) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Dot returns the dot product of two vectors
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Normalize returns a unit vector in the same direction.
// Components are scaled by the largest magnitude first so tiny vectors do not
// underflow to zero.
func (v Vec3) Normalize() Vec3 {
	m := math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
	if m == 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return Vec3{0, 0, 0}
	}
	scaled := Vec3{v.X / m, v.Y / m, v.Z / m}
	length := scaled.Length()
	return Vec3{scaled.X / length, scaled.Y / length, scaled.Z / length}
}

// Negate returns the negative of the vector
func (v Vec3) Negate() Vec3 {
	return Vec3{
		X: -v.X,
		Y: -v.Y,
		Z: -v.Z,
	}
}

// IsZero reports whether all components are exactly zero
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// IsFinite reports whether no component is NaN or infinite
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Slice returns the components as [x, y, z]
func (v Vec3) Slice() []float64 {
	return []float64{v.X, v.Y, v.Z}
}

// Rotate applies an XYZ Euler rotation (radians): X first, then Y, then Z.
func (v Vec3) Rotate(euler Vec3) Vec3 {
	r := v

	// X axis
	sx, cx := math.Sincos(euler.X)
	r = Vec3{r.X, r.Y*cx - r.Z*sx, r.Y*sx + r.Z*cx}

	// Y axis
	sy, cy := math.Sincos(euler.Y)
	r = Vec3{r.X*cy + r.Z*sy, r.Y, -r.X*sy + r.Z*cy}

	// Z axis
	sz, cz := math.Sincos(euler.Z)
	return Vec3{r.X*cz - r.Y*sz, r.X*sz + r.Y*cz, r.Z}
}

// Vec2 represents a 2D vector, used for sample pairs
type Vec2 struct {
	X, Y float64
}

// NewVec2 creates a new Vec2
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Pose places a camera or light: a location plus an XYZ Euler rotation
type Pose struct {
	Location Vec3
	Rotation Vec3
}

// NewPose builds a pose from the 6-value [x, y, z, rx, ry, rz] form
func NewPose(values []float64) (Pose, error) {
	if len(values) != 6 {
		return Pose{}, fmt.Errorf("pose needs 6 values, got %d", len(values))
	}
	return Pose{
		Location: NewVec3(values[0], values[1], values[2]),
		Rotation: NewVec3(values[3], values[4], values[5]),
	}, nil
}

// Values returns the pose in [x, y, z, rx, ry, rz] form
func (p Pose) Values() []float64 {
	return append(p.Location.Slice(), p.Rotation.Slice()...)
}
