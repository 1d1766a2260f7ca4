// Package config loads and saves the settings of a simulation run as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ByteArena/box2d/v2"
)

// Settings describes one headless run: the world, the step configuration and
// how long to run it.
type Settings struct {
	Scene string `yaml:"scene"`
	Steps int    `yaml:"steps"`

	// Hertz is the number of steps per simulated second.
	Hertz   float64    `yaml:"hertz"`
	Gravity [2]float64 `yaml:"gravity,flow"`

	VelocityIterations int  `yaml:"velocity_iterations"`
	PositionIterations int  `yaml:"position_iterations"`
	WarmStarting       bool `yaml:"warm_starting"`
	AllowSleep         bool `yaml:"allow_sleep"`
	Continuous         bool `yaml:"continuous"`
	SubStepping        bool `yaml:"sub_stepping"`

	// Workers is the number of goroutines solving islands.
	Workers int `yaml:"workers"`

	// Stream, when set, is the listen address of the websocket frame stream.
	Stream string `yaml:"stream,omitempty"`
}

// Default returns 60Hz stepping of the pyramid scene with every solver feature
// on.
func Default() Settings {
	step := box2d.DefaultStepConfig()
	return Settings{
		Scene:              "pyramid",
		Steps:              600,
		Hertz:              60,
		Gravity:            [2]float64{0, -10},
		VelocityIterations: step.VelocityIterations,
		PositionIterations: step.PositionIterations,
		WarmStarting:       step.WarmStarting,
		AllowSleep:         step.AllowSleep,
		Continuous:         step.Continuous,
		SubStepping:        step.SubStepping,
		Workers:            1,
	}
}

// Validate reports the first setting that cannot drive a simulation.
func (s Settings) Validate() error {
	switch {
	case s.Scene == "":
		return errors.New("scene is empty")
	case s.Steps < 0:
		return fmt.Errorf("steps %d is negative", s.Steps)
	case s.Hertz <= 0:
		return fmt.Errorf("hertz %v must be positive", s.Hertz)
	case s.VelocityIterations < 1:
		return fmt.Errorf("velocity_iterations %d must be at least 1", s.VelocityIterations)
	case s.PositionIterations < 0:
		return fmt.Errorf("position_iterations %d is negative", s.PositionIterations)
	case s.Workers < 0:
		return fmt.Errorf("workers %d is negative", s.Workers)
	}
	return nil
}

// TimeStep is the duration of one step in seconds.
func (s Settings) TimeStep() float64 {
	return 1.0 / s.Hertz
}

// GravityVec returns the gravity as a world vector.
func (s Settings) GravityVec() box2d.Vec2 {
	return box2d.Vec2{s.Gravity[0], s.Gravity[1]}
}

// StepConfig converts the solver settings for World.Step.
func (s Settings) StepConfig() box2d.StepConfig {
	return box2d.StepConfig{
		VelocityIterations: s.VelocityIterations,
		PositionIterations: s.PositionIterations,
		WarmStarting:       s.WarmStarting,
		AllowSleep:         s.AllowSleep,
		Continuous:         s.Continuous,
		SubStepping:        s.SubStepping,
		Workers:            s.Workers,
	}
}

// Load reads settings from a YAML file. Keys missing from the file keep their
// default values.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("config %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to a YAML file, creating the directory if needed.
func Save(path string, s Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
