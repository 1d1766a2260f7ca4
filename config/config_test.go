package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.Validate(); err != nil {
		t.Fatalf("default settings are invalid: %v", err)
	}
	if got := s.TimeStep(); got != 1.0/60.0 {
		t.Errorf("time step %v, expected 1/60", got)
	}
	cfg := s.StepConfig()
	if cfg.VelocityIterations != 8 || cfg.PositionIterations != 3 || !cfg.Continuous {
		t.Errorf("unexpected step config %+v", cfg)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "run.yaml")

	s := Default()
	s.Scene = "bridge"
	s.Workers = 4
	s.Gravity = [2]float64{0, -9.8}
	s.Stream = "localhost:8080"

	if err := Save(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != s {
		t.Errorf("loaded %+v, expected %+v", got, s)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("scene: car\nworkers: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Default()
	want.Scene = "car"
	want.Workers = 2
	if got != want {
		t.Errorf("loaded %+v, expected %+v", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed", "scene: [unterminated\n", "parse config"},
		{"wrong type", "steps: many\n", "parse config"},
		{"zero hertz", "hertz: 0\n", "hertz"},
		{"no scene", "scene: \"\"\n", "scene is empty"},
		{"negative workers", "workers: -1\n", "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.yaml"))
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected a wrapped not-exist error, got %v", err)
		}
	})
}
