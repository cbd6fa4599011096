package sampler

import (
	"math"

	"github.com/df07/go-scene-synth/pkg/core"
)

// PartSphereConfig describes a sphere cut by a plane. Points are only accepted on the
// side SplitVector points to, further than DistanceAboveCenter from the center.
//
// Example: a point on the surface of a radius 2 sphere, split by a plane 0.5 above
// the center with normal +X:
//
//	PartSphereConfig{Radius: 2, Mode: core.SphereSurface, SplitVector: &xAxis, DistanceAboveCenter: 0.5}
type PartSphereConfig struct {
	Center core.Vec3
	Radius float64
	Mode   core.SphereMode

	// SplitVector is normalized before use. Nil means +Z.
	SplitVector *core.Vec3

	// DistanceAboveCenter defaults to 0, which keeps half of the sphere.
	DistanceAboveCenter float64

	// MaxAttempts bounds the rejection loop. Zero leaves it unbounded.
	MaxAttempts int
}

// PartSphere samples points from the surface or interior of a sphere restricted to a half-space
type PartSphere struct {
	center   core.Vec3
	radius   float64
	mode     core.SphereMode
	split    core.Vec3
	distance float64
	maxTries int
}

// DefaultSplitVector is used when PartSphereConfig.SplitVector is nil
var DefaultSplitVector = core.NewVec3(0, 0, 1)

// NewPartSphere validates the configuration once and returns a reusable sampler
func NewPartSphere(cfg PartSphereConfig) (*PartSphere, error) {
	if !(cfg.Radius > 0) || math.IsInf(cfg.Radius, 0) {
		return nil, configf("radius must be a positive finite number, got %v", cfg.Radius)
	}
	if cfg.Mode != core.SphereSurface && cfg.Mode != core.SphereInterior {
		return nil, configf("unknown mode %v", cfg.Mode)
	}

	if !cfg.Center.IsFinite() {
		return nil, configf("center must be finite, got %v", cfg.Center)
	}

	split := DefaultSplitVector
	if cfg.SplitVector != nil {
		split = *cfg.SplitVector
	}
	if !split.IsFinite() {
		return nil, configf("split vector must be finite, got %v", split)
	}
	unit := split.Normalize()
	if unit.IsZero() {
		return nil, configf("split vector must be non-zero")
	}

	if math.IsNaN(cfg.DistanceAboveCenter) || cfg.DistanceAboveCenter < 0 {
		return nil, configf("distance above center must be >= 0, got %v", cfg.DistanceAboveCenter)
	}
	// The acceptance region is empty once the plane reaches the sphere
	if cfg.DistanceAboveCenter >= cfg.Radius {
		return nil, configf("distance above center %v must be smaller than the radius %v",
			cfg.DistanceAboveCenter, cfg.Radius)
	}
	if cfg.MaxAttempts < 0 {
		return nil, configf("max attempts must be >= 0, got %d", cfg.MaxAttempts)
	}

	return &PartSphere{
		center:   cfg.Center,
		radius:   cfg.Radius,
		mode:     cfg.Mode,
		split:    unit,
		distance: cfg.DistanceAboveCenter,
		maxTries: cfg.MaxAttempts,
	}, nil
}

// Center returns the sphere center
func (p *PartSphere) Center() core.Vec3 { return p.center }

// Radius returns the sphere radius
func (p *PartSphere) Radius() float64 { return p.radius }

// SplitVector returns the normalized split direction
func (p *PartSphere) SplitVector() core.Vec3 { return p.split }

// Accepts reports whether point lies strictly beyond the cutting plane
func (p *PartSphere) Accepts(point core.Vec3) bool {
	return point.Subtract(p.center).Dot(p.split) > p.distance
}

// Sample draws candidates from the sphere until one lies beyond the cutting plane
func (p *PartSphere) Sample(sampler core.Sampler) (core.Vec3, error) {
	for attempts := 1; ; attempts++ {
		location := core.SampleSphere(p.center, p.radius, p.mode, sampler)
		if p.Accepts(location) {
			return location, nil
		}
		if p.maxTries > 0 && attempts >= p.maxTries {
			return core.Vec3{}, exhausted(attempts)
		}
	}
}

// SampleN draws n independent points
func (p *PartSphere) SampleN(sampler core.Sampler, n int) ([]core.Vec3, error) {
	if n < 0 {
		return nil, configf("point count must be >= 0, got %d", n)
	}
	points := make([]core.Vec3, 0, min(n, 1024))
	for i := 0; i < n; i++ {
		point, err := p.Sample(sampler)
		if err != nil {
			return points, err
		}
		points = append(points, point)
	}
	return points, nil
}

// AcceptanceProbability is the fraction of the sphere (area or volume, per mode) beyond the plane.
// The expected number of attempts per sample is its inverse.
func (p *PartSphere) AcceptanceProbability() float64 {
	r, h := p.radius, p.distance
	if p.mode == core.SphereInterior {
		return (r - h) * (r - h) * (2*r + h) / (4 * r * r * r)
	}
	return (1 - h/r) / 2
}

// Option adjusts the optional parameters of Sample
type Option func(*PartSphereConfig)

// WithSplitVector sets the split direction
func WithSplitVector(v core.Vec3) Option {
	return func(c *PartSphereConfig) { c.SplitVector = &v }
}

// WithDistanceAboveCenter sets the plane offset from the center
func WithDistanceAboveCenter(d float64) Option {
	return func(c *PartSphereConfig) { c.DistanceAboveCenter = d }
}

// WithMaxAttempts bounds the rejection loop
func WithMaxAttempts(n int) Option {
	return func(c *PartSphereConfig) { c.MaxAttempts = n }
}

// Sample is the one-shot form: validate, then draw a single point
func Sample(sampler core.Sampler, center core.Vec3, radius float64, mode core.SphereMode, opts ...Option) (core.Vec3, error) {
	cfg := PartSphereConfig{Center: center, Radius: radius, Mode: mode}
	for _, opt := range opts {
		opt(&cfg)
	}
	ps, err := NewPartSphere(cfg)
	if err != nil {
		return core.Vec3{}, err
	}
	return ps.Sample(sampler)
}
