package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ByteArena/box2d/v2"
	"github.com/ByteArena/box2d/v2/internal/scenes"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 2 * time.Second
	sendBuffer   = 16
)

type bodyFrame struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	Awake bool    `json:"awake"`
}

// frame is the state of the tracked bodies after one step.
type frame struct {
	Step     int         `json:"step"`
	Time     float64     `json:"time"`
	Contacts int         `json:"contacts"`
	Bodies   []bodyFrame `json:"bodies"`
}

func snapshot(w *box2d.World, tracked scenes.Tracked, names []string, step int, dt float64) frame {
	f := frame{
		Step:     step,
		Time:     float64(step) * dt,
		Contacts: w.ContactCount(),
		Bodies:   make([]bodyFrame, 0, len(names)),
	}
	for _, name := range names {
		b := w.Body(tracked[name])
		p := b.Position()
		f.Bodies = append(f.Bodies, bodyFrame{
			Name:  name,
			X:     p[0],
			Y:     p[1],
			Angle: b.Angle(),
			Awake: b.IsAwake(),
		})
	}
	return f
}

// client owns one websocket connection. Only its write loop writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// streamer fans simulation frames out to websocket viewers. Slow viewers drop
// frames instead of stalling the simulation.
type streamer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func newStreamer(logger *slog.Logger) *streamer {
	return &streamer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (s *streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("viewer connected", "remote", r.RemoteAddr)

	go s.readLoop(c)
	s.writeLoop(c)
}

// readLoop drains control frames and notices when the viewer goes away.
func (s *streamer) readLoop(c *client) {
	defer s.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *streamer) writeLoop(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("write failed", "err", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *streamer) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
		s.logger.Info("viewer disconnected", "remote", c.conn.RemoteAddr().String())
	}
}

func (s *streamer) broadcast(f frame) {
	msg, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("encode frame", "err", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.logger.Debug("viewer is behind, frame dropped", "step", f.Step)
		}
	}
}

func (s *streamer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// serve runs the websocket endpoint until ctx is cancelled.
func (s *streamer) serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/frames", s)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		s.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("streaming frames", "addr", addr, "path", "/frames")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
