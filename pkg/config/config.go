// Package config loads generator settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/df07/go-scene-synth/pkg/pipeline"
)

// Config holds the settings shared by the CLI and the web server
type Config struct {
	OutputDir        string `env:"SCENESYNTH_OUTPUT_DIR"         envDefault:"output/"`
	InstallPath      string `env:"SCENESYNTH_INSTALL_PATH"       envDefault:"/home/<env:USER>/blender/"`
	WriteCameraState bool   `env:"SCENESYNTH_WRITE_CAMERA_STATE" envDefault:"true"`
	WriteLightState  bool   `env:"SCENESYNTH_WRITE_LIGHT_STATE"  envDefault:"true"`
	Seed             int64  `env:"SCENESYNTH_SEED"               envDefault:"42"`
	Port             int    `env:"SCENESYNTH_PORT"               envDefault:"8080"`
}

// Default returns the values used when the environment sets nothing
func Default() Config {
	return Config{
		OutputDir:        "output/",
		InstallPath:      pipeline.DefaultInstallPath,
		WriteCameraState: true,
		WriteLightState:  true,
		Seed:             42,
		Port:             8080,
	}
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromEnv returns configuration with defaults when the environment is malformed.
func LoadConfigFromEnv() Config {
	cfg, err := ParseEnv()
	if err != nil {
		return Default()
	}
	return cfg
}

// BuilderOptions maps the config onto pipeline builder options
func (c Config) BuilderOptions() pipeline.Options {
	return pipeline.Options{
		OutputDir:        c.OutputDir,
		InstallPath:      c.InstallPath,
		WriteCameraState: c.WriteCameraState,
		WriteLightState:  c.WriteLightState,
	}
}
