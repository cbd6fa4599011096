// Package poses places cameras and lights on a part sphere, each oriented toward a target.
package poses

import (
	"fmt"
	"math"

	"github.com/df07/go-scene-synth/pkg/core"
	"github.com/df07/go-scene-synth/pkg/sampler"
)

// Generator samples locations from Region and aims each pose at Target.
type Generator struct {
	Region *sampler.PartSphere
	Target core.Vec3
	Logger core.Logger
}

// NewGenerator aims at the region's own center
func NewGenerator(region *sampler.PartSphere) *Generator {
	return &Generator{Region: region, Target: region.Center()}
}

// Generate returns n poses
func (g *Generator) Generate(s core.Sampler, n int) ([]core.Pose, error) {
	if g.Region == nil {
		return nil, fmt.Errorf("%w: pose generator has no sampling region", sampler.ErrConfiguration)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: pose count must be >= 0, got %d", sampler.ErrConfiguration, n)
	}

	locations, err := g.Region.SampleN(s, n)
	if err != nil {
		return nil, fmt.Errorf("failed to sample pose locations: %w", err)
	}

	poses := make([]core.Pose, len(locations))
	for i, loc := range locations {
		poses[i] = core.Pose{Location: loc, Rotation: LookAt(loc, g.Target)}
	}

	if g.Logger != nil {
		g.Logger.Printf("Sampled %d poses (acceptance %.3f)\n", len(poses), g.Region.AcceptanceProbability())
	}
	return poses, nil
}

// LookAt returns the XYZ Euler rotation that points a camera at `to`.
// Cameras look down their local -Z axis with +Y up, so the rotation keeps the
// horizon level (no roll about the view axis).
func LookAt(from, to core.Vec3) core.Vec3 {
	d := to.Subtract(from).Normalize()
	if d.IsZero() {
		return core.Vec3{}
	}
	// forward = Rz(rz) * Rx(rx) * (0, 0, -1) = (-sin rz sin rx, cos rz sin rx, -cos rx)
	rx := math.Acos(math.Max(-1, math.Min(1, -d.Z)))
	rz := 0.0
	if math.Abs(math.Sin(rx)) > 1e-12 {
		rz = math.Atan2(-d.X, d.Y)
	}
	return core.NewVec3(rx, 0, rz)
}

// Values converts poses to the 6-value form the pipeline builder accepts
func Values(poses []core.Pose) [][]float64 {
	out := make([][]float64, len(poses))
	for i, p := range poses {
		out[i] = p.Values()
	}
	return out
}
