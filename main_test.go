package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-scene-synth/pkg/pipeline"
	"github.com/df07/go-scene-synth/pkg/sampler"
)

type bufferLogger struct{ sb strings.Builder }

func (b *bufferLogger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&b.sb, format, args...)
}

func defaultRunOptions(out string) runOptions {
	return runOptions{
		OutPath:      out,
		Cameras:      3,
		CameraRadius: 1,
		CameraMode:   "SURFACE",
		Lights:       1,
		LightRadius:  5,
		LightEnergy:  1000,
		Samples:      350,
		ColorKey:     "colors",
		DepthKey:     "depths",
		Width:        640,
		Height:       480,
		FX:           600,
		FY:           600,
		CX:           320,
		CY:           240,
		Seed:         42,
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(o *runOptions)
		wantNames []string
		wantErr   error
	}{
		{
			name:   "cameras and lights",
			modify: func(o *runOptions) {},
			wantNames: []string{
				pipeline.ModuleInitializer,
				pipeline.ModuleLightLoader,
				pipeline.ModuleCameraLoader,
				pipeline.ModuleRgbRenderer,
				pipeline.ModuleLightStateWriter,
				pipeline.ModuleCameraStateWriter,
				pipeline.ModuleHdf5Writer,
			},
		},
		{
			name: "with mesh and no lights",
			modify: func(o *runOptions) {
				o.MeshPath = "/data/replica/room0"
				o.Lights = 0
			},
			wantNames: []string{
				pipeline.ModuleInitializer,
				pipeline.ModuleReplicaLoader,
				pipeline.ModuleMaterialManipulator,
				pipeline.ModuleCameraLoader,
				pipeline.ModuleRgbRenderer,
				pipeline.ModuleLightStateWriter,
				pipeline.ModuleCameraStateWriter,
				pipeline.ModuleHdf5Writer,
			},
		},
		{
			name:    "distance equals radius",
			modify:  func(o *runOptions) { o.CameraDistance = 1 },
			wantErr: sampler.ErrConfiguration,
		},
		{
			name:    "bad resolution",
			modify:  func(o *runOptions) { o.Width = 0 },
			wantErr: pipeline.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "config.yaml")
			opts := defaultRunOptions(out)
			tt.modify(&opts)

			text, err := run(opts, pipeline.DefaultOptions("/tmp/out/"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			doc, err := pipeline.ParseDocument([]byte(text))
			require.NoError(t, err)
			assert.Equal(t, tt.wantNames, doc.Names())

			_, err = os.Stat(out)
			assert.NoError(t, err)
		})
	}
}

func TestRun_UnknownMode(t *testing.T) {
	opts := defaultRunOptions(filepath.Join(t.TempDir(), "config.yaml"))
	opts.CameraMode = "VOLUME"
	_, err := run(opts, pipeline.DefaultOptions("/tmp/out/"))
	assert.Error(t, err)
}

func TestRun_DeterministicForSeed(t *testing.T) {
	dir := t.TempDir()
	first, err := run(defaultRunOptions(filepath.Join(dir, "a.yaml")), pipeline.DefaultOptions("/tmp/out/"))
	require.NoError(t, err)
	second, err := run(defaultRunOptions(filepath.Join(dir, "b.yaml")), pipeline.DefaultOptions("/tmp/out/"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCheckMeshes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mesh.ply"),
		[]byte("ply\nformat ascii 1.0\nelement vertex 0\nproperty float x\nend_header\n"), 0644))

	logger := &bufferLogger{}
	checkMeshes(dir, logger)
	assert.Contains(t, logger.sb.String(), "has no per-vertex colors")

	empty := &bufferLogger{}
	checkMeshes(t.TempDir(), empty)
	assert.Contains(t, empty.sb.String(), "no .ply meshes")
}
