package core

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Sampler provides random sampling for placement algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float64
	Get2D() Vec2
	Get3D() Vec3
}

// RandomSampler wraps a standard Go random generator
type RandomSampler struct {
	random *rand.Rand
}

// NewRandomSampler creates a sampler from a Go random generator
func NewRandomSampler(random *rand.Rand) *RandomSampler {
	return &RandomSampler{random: random}
}

// NewSeededSampler creates a sampler with its own deterministic source
func NewSeededSampler(seed int64) *RandomSampler {
	return NewRandomSampler(rand.New(rand.NewSource(seed)))
}

// Get1D returns a random float64 in [0, 1)
func (r *RandomSampler) Get1D() float64 {
	return r.random.Float64()
}

// Get2D returns two random float64 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float64(), r.random.Float64())
}

// Get3D returns three random float64 values in [0, 1)
func (r *RandomSampler) Get3D() Vec3 {
	return NewVec3(r.random.Float64(), r.random.Float64(), r.random.Float64())
}

// SphereMode selects the sphere domain a point is drawn from
type SphereMode int

const (
	// SphereSurface samples the 2-sphere
	SphereSurface SphereMode = iota
	// SphereInterior samples the solid 3-ball
	SphereInterior
)

// String returns the engine-facing name of the mode
func (m SphereMode) String() string {
	switch m {
	case SphereSurface:
		return "SURFACE"
	case SphereInterior:
		return "INTERIOR"
	default:
		return fmt.Sprintf("SphereMode(%d)", int(m))
	}
}

// ParseSphereMode accepts "SURFACE" or "INTERIOR" (case-insensitive)
func ParseSphereMode(s string) (SphereMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SURFACE":
		return SphereSurface, nil
	case "INTERIOR":
		return SphereInterior, nil
	default:
		return 0, fmt.Errorf("unknown sphere mode %q (want SURFACE or INTERIOR)", s)
	}
}

// SampleOnUnitSphere generates a uniform random direction on the unit sphere
func SampleOnUnitSphere(sample Vec2) Vec3 {
	z := 1.0 - 2.0*sample.X // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * sample.Y
	x := r * math.Cos(phi)
	y := r * math.Sin(phi)
	return NewVec3(x, y, z)
}

// SamplePointInUnitSphere generates a random point inside a unit sphere using spherical coordinates
// This avoids rejection sampling by using the inverse CDF method
func SamplePointInUnitSphere(sample Vec3) Vec3 {
	// r = ∛(u₁) to account for volume scaling
	r := math.Cbrt(sample.X)
	phi := 2 * math.Pi * sample.Y
	cosTheta := 2*sample.Z - 1
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))

	x := r * sinTheta * math.Cos(phi)
	y := r * sinTheta * math.Sin(phi)
	z := r * cosTheta

	return NewVec3(x, y, z)
}

// SampleSphere draws a point uniformly on (SphereSurface) or inside (SphereInterior)
// the sphere with the given center and radius.
func SampleSphere(center Vec3, radius float64, mode SphereMode, sampler Sampler) Vec3 {
	var unit Vec3
	switch mode {
	case SphereInterior:
		unit = SamplePointInUnitSphere(sampler.Get3D())
	default:
		unit = SampleOnUnitSphere(sampler.Get2D())
	}
	return center.Add(unit.Multiply(radius))
}
