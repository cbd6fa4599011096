package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/df07/go-scene-synth/pkg/config"
	"github.com/df07/go-scene-synth/pkg/core"
	"github.com/df07/go-scene-synth/pkg/loaders"
	"github.com/df07/go-scene-synth/pkg/pipeline"
	"github.com/df07/go-scene-synth/pkg/poses"
	"github.com/df07/go-scene-synth/pkg/sampler"
)

// runOptions collects everything one generator run needs
type runOptions struct {
	OutPath   string
	MeshPath  string
	CheckMesh bool

	Cameras        int
	CameraRadius   float64
	CameraDistance float64
	CameraMode     string
	Lights         int
	LightRadius    float64
	LightEnergy    float64

	Samples  int
	ColorKey string
	DepthKey string

	Width, Height  int
	FX, FY, CX, CY float64

	MaxAttempts int
	Seed        int64
}

func main() {
	cfg := config.LoadConfigFromEnv()
	opts := runOptions{}

	outputDir := flag.String("output-dir", cfg.OutputDir, "Directory the engine writes results to")
	flag.StringVar(&opts.OutPath, "out", "config.yaml", "Path of the generated pipeline document")
	flag.StringVar(&opts.MeshPath, "mesh", "", "Mesh dataset directory (adds loader + vertex color remap)")
	flag.BoolVar(&opts.CheckMesh, "check-mesh", false, "Warn about meshes without per-vertex colors")
	flag.IntVar(&opts.Cameras, "cameras", 5, "Number of sampled camera poses")
	flag.Float64Var(&opts.CameraRadius, "camera-radius", 1.0, "Radius of the camera sphere")
	flag.Float64Var(&opts.CameraDistance, "camera-distance", 0.0, "Minimum camera height above the sphere center")
	flag.StringVar(&opts.CameraMode, "camera-mode", "SURFACE", "Camera sampling domain: SURFACE or INTERIOR")
	flag.IntVar(&opts.Lights, "lights", 1, "Number of sampled point lights")
	flag.Float64Var(&opts.LightRadius, "light-radius", 5.0, "Radius of the light sphere")
	flag.Float64Var(&opts.LightEnergy, "light-energy", 1000, "Energy of each point light")
	flag.IntVar(&opts.Samples, "samples", 350, "Render samples per pixel")
	flag.StringVar(&opts.ColorKey, "color-key", "colors", "Output key for color images")
	flag.StringVar(&opts.DepthKey, "depth-key", "depths", "Output key for depth; empty disables depth")
	flag.IntVar(&opts.Width, "width", 640, "Image width")
	flag.IntVar(&opts.Height, "height", 480, "Image height")
	flag.Float64Var(&opts.FX, "fx", 616.95214844, "Focal length x (pixels)")
	flag.Float64Var(&opts.FY, "fy", 617.11254883, "Focal length y (pixels)")
	flag.Float64Var(&opts.CX, "cx", 324.23962402, "Principal point x (pixels)")
	flag.Float64Var(&opts.CY, "cy", 239.48379517, "Principal point y (pixels)")
	flag.IntVar(&opts.MaxAttempts, "max-attempts", 0, "Rejection sampling bound per pose (0 = unbounded)")
	flag.Int64Var(&opts.Seed, "seed", cfg.Seed, "Random seed")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		fmt.Println("Scene Pipeline Generator")
		fmt.Println("Usage: scenesynth [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Environment: SCENESYNTH_OUTPUT_DIR, SCENESYNTH_INSTALL_PATH,")
		fmt.Println("  SCENESYNTH_WRITE_CAMERA_STATE, SCENESYNTH_WRITE_LIGHT_STATE, SCENESYNTH_SEED")
		return
	}

	cfg.OutputDir = *outputDir
	builderOpts := cfg.BuilderOptions()
	builderOpts.Logger = log.Default()

	if dir := filepath.Dir(opts.OutPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Error creating output directory: %v", err)
			os.Exit(1)
		}
	}

	text, err := run(opts, builderOpts)
	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
	fmt.Print(text)
}

// run samples camera and light poses, assembles the pipeline and writes it
func run(opts runOptions, builderOpts pipeline.Options) (string, error) {
	logger := builderOpts.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	random := core.NewSeededSampler(opts.Seed)

	mode, err := core.ParseSphereMode(opts.CameraMode)
	if err != nil {
		return "", err
	}

	cameraRegion, err := sampler.NewPartSphere(sampler.PartSphereConfig{
		Radius:              opts.CameraRadius,
		Mode:                mode,
		DistanceAboveCenter: opts.CameraDistance,
		MaxAttempts:         opts.MaxAttempts,
	})
	if err != nil {
		return "", fmt.Errorf("camera region: %w", err)
	}
	if p := cameraRegion.AcceptanceProbability(); p < 0.01 {
		logger.Printf("Warning: camera region accepts %.4f of draws; sampling will be slow\n", p)
	}

	lightRegion, err := sampler.NewPartSphere(sampler.PartSphereConfig{
		Radius:      opts.LightRadius,
		Mode:        core.SphereSurface,
		MaxAttempts: opts.MaxAttempts,
	})
	if err != nil {
		return "", fmt.Errorf("light region: %w", err)
	}

	cameraGen := poses.NewGenerator(cameraRegion)
	cameraGen.Logger = logger
	cameraPoses, err := cameraGen.Generate(random, opts.Cameras)
	if err != nil {
		return "", fmt.Errorf("camera poses: %w", err)
	}

	lightPoses, err := poses.NewGenerator(lightRegion).Generate(random, opts.Lights)
	if err != nil {
		return "", fmt.Errorf("light poses: %w", err)
	}

	builder := pipeline.NewBuilder(builderOpts)

	if opts.MeshPath != "" {
		if opts.CheckMesh {
			checkMeshes(opts.MeshPath, logger)
		}
		if err := builder.AddMeshLoader(opts.MeshPath); err != nil {
			return "", err
		}
	}
	if len(lightPoses) > 0 {
		if err := builder.AddLightLoader(poses.Values(lightPoses), opts.LightEnergy); err != nil {
			return "", err
		}
	}

	intrinsics := pipeline.NewIntrinsics(opts.FX, opts.FY, opts.CX, opts.CY)
	if err := builder.AddCameraLoader(poses.Values(cameraPoses), intrinsics, []int{opts.Width, opts.Height}); err != nil {
		return "", err
	}

	var depthKey *string
	if opts.DepthKey != "" {
		depthKey = &opts.DepthKey
	}
	if err := builder.AddRenderer(opts.Samples, opts.ColorKey, depthKey); err != nil {
		return "", err
	}

	return builder.Finalize(opts.OutPath)
}

// checkMeshes logs meshes the vertex color remap cannot use
func checkMeshes(dir string, logger core.Logger) {
	meshes, err := loaders.ScanMeshDir(dir)
	if err != nil {
		logger.Printf("Warning: cannot inspect meshes: %v\n", err)
		return
	}
	if len(meshes) == 0 {
		logger.Printf("Warning: no .ply meshes found in %s\n", dir)
		return
	}
	for _, m := range loaders.MissingColors(meshes) {
		if m.Err != "" {
			logger.Printf("Warning: %s: %s\n", m.Path, m.Err)
		} else {
			logger.Printf("Warning: %s has no per-vertex colors\n", m.Path)
		}
	}
}
