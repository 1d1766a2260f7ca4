package box2d_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/ByteArena/box2d/v2"
	"github.com/ByteArena/box2d/v2/internal/scenes"
	"github.com/pmezard/go-difflib/difflib"
)

// trace runs a scene and prints the position and angle of every tracked body
// after each step.
func trace(t *testing.T, name string, steps int, cfg box2d.StepConfig) string {
	t.Helper()

	scene, ok := scenes.Lookup(name)
	if !ok {
		t.Fatalf("scene %q is not registered", name)
	}

	world := box2d.NewWorld(box2d.Vec2{0, -10})
	tracked := scene.Build(world)
	names := tracked.Names()

	var out strings.Builder
	for i := range steps {
		world.Step(1.0/60.0, cfg)

		for _, n := range names {
			b := world.Body(tracked[n])
			p := b.Position()
			fmt.Fprintf(&out, "%v(%s): %4.3f %4.3f %4.3f\n", i, n, p[0], p[1], b.Angle())
		}
	}
	return out.String()
}

func diffTraces(expected, current string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(current),
		FromFile: "Expected",
		ToFile:   "Current",
		Context:  0,
	}
	text, _ := difflib.GetUnifiedDiffString(diff)
	return text
}

func TestScenesAreDeterministic(t *testing.T) {
	for _, scene := range scenes.All() {
		t.Run(scene.Name, func(t *testing.T) {
			cfg := box2d.DefaultStepConfig()
			expected := trace(t, scene.Name, 60, cfg)
			current := trace(t, scene.Name, 60, cfg)

			if current != expected {
				t.Fatalf("replay does not match. Failure: \n%s", diffTraces(expected, current))
			}
		})
	}
}

// The first ten steps of the characters scene are free fall: no character is
// within contact range of any ground shape yet, so the trace follows the
// integrator exactly.
func TestCharactersFreeFallTrace(t *testing.T) {
	data, err := os.ReadFile("testdata/characters_freefall.trace")
	if err != nil {
		t.Fatal(err)
	}
	expected := string(data)
	current := trace(t, "characters", 10, box2d.DefaultStepConfig())

	if current != expected {
		t.Fatalf("characters trace does not match. Failure: \n%s", diffTraces(expected, current))
	}
}

func TestScenesMatchAcrossWorkers(t *testing.T) {
	for _, name := range []string{"characters", "pyramid", "mechanisms"} {
		t.Run(name, func(t *testing.T) {
			cfg := box2d.DefaultStepConfig()
			expected := trace(t, name, 60, cfg)

			cfg.Workers = 3
			current := trace(t, name, 60, cfg)

			if current != expected {
				t.Fatalf("parallel solve does not match sequential. Failure: \n%s", diffTraces(expected, current))
			}
		})
	}
}

func TestCharactersStayAboveGround(t *testing.T) {
	scene, _ := scenes.Lookup("characters")
	world := box2d.NewWorld(box2d.Vec2{0, -10})
	tracked := scene.Build(world)

	for range 180 {
		world.Step(1.0/60.0, box2d.DefaultStepConfig())
	}

	for _, name := range tracked.Names() {
		b := world.Body(tracked[name])
		if b.Type() != box2d.DynamicBody {
			continue
		}
		if y := b.Position()[1]; y < 0 {
			t.Errorf("%s fell through the ground to y=%4.3f", name, y)
		}
	}
}

func TestSceneRegistry(t *testing.T) {
	names := scenes.Names()
	if len(names) != len(scenes.All()) {
		t.Fatalf("names and scenes disagree: %v", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		if seen[n] {
			t.Errorf("scene %q registered twice", n)
		}
		seen[n] = true
	}
	if _, ok := scenes.Lookup("no-such-scene"); ok {
		t.Error("lookup of an unknown scene succeeded")
	}
}
