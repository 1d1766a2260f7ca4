package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ByteArena/box2d/v2"
	"github.com/ByteArena/box2d/v2/config"
	"github.com/ByteArena/box2d/v2/internal/scenes"
)

func TestFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	base := config.Default()
	base.Scene = "bridge"
	base.Steps = 10
	if err := config.Save(path, base); err != nil {
		t.Fatal(err)
	}

	o, err := parseFlags([]string{"-config", path, "-scene", "car", "-workers", "3"})
	if err != nil {
		t.Fatal(err)
	}
	s, err := settings(o)
	if err != nil {
		t.Fatal(err)
	}
	if s.Scene != "car" || s.Workers != 3 || s.Steps != 10 {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestUnknownLogFormat(t *testing.T) {
	if _, err := newLogger("xml", false); err == nil {
		t.Error("expected an error for an unknown log format")
	}
}

func TestRunUnknownScene(t *testing.T) {
	err := run([]string{"-scene", "nope", "-steps", "1", "-log-format", "json"})
	if err == nil || !strings.Contains(err.Error(), "unknown scene") {
		t.Errorf("expected unknown scene error, got %v", err)
	}
}

func TestRunShortScene(t *testing.T) {
	if err := run([]string{"-scene", "pyramid", "-steps", "30", "-workers", "2"}); err != nil {
		t.Fatal(err)
	}
}

func TestStreamDeliversFrames(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newStreamer(logger)
	srv := httptest.NewServer(s)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	world := box2d.NewWorld(box2d.Vec2{0, -10})
	scene, _ := scenes.Lookup("bullet")
	tracked := scene.Build(world)
	world.Step(1.0/60.0, box2d.DefaultStepConfig())

	want := snapshot(world, tracked, tracked.Names(), 0, 1.0/60.0)

	// The viewer registers asynchronously; keep broadcasting until it arrives.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.broadcast(want)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	var got frame
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Bodies) != len(want.Bodies) || got.Bodies[0].Name != want.Bodies[0].Name {
		t.Errorf("got frame %+v, expected %+v", got, want)
	}
}
