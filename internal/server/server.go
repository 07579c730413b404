// Package server streams a live preview session to browsers over WebSocket
package server

import (
	"context"
	"embed"
	"errors"
	"image/color"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/gopreview/internal/metrics"
	"github.com/philipparndt/gopreview/pkg/loader"
	"github.com/philipparndt/gopreview/pkg/thumbnail"
)

//go:embed static/index.html
var static embed.FS

const shutdownTimeout = 5 * time.Second

// Config configures the preview server
type Config struct {
	Addr string
	// Source is the asset every connection previews.
	Source        loader.Source
	Loader        loader.Loader
	Width         int
	Height        int
	Background    *color.NRGBA
	Capturer      *thumbnail.Capturer
	LoadTimeout   time.Duration
	FrameInterval time.Duration
	Logger        *zap.Logger
	Metrics       *metrics.Collector
}

// Server opens one preview session per WebSocket connection
type Server struct {
	cfg      Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// New creates a server. Missing loader, capturer and logger get defaults.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Loader == nil {
		cfg.Loader = loader.NewRegistry(cfg.Logger)
	}
	if cfg.Capturer == nil {
		cfg.Capturer = thumbnail.NewCapturer()
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = time.Second / 60
	}

	return &Server{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("component", "server")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Handler routes the page, the WebSocket endpoint and metrics
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHome)
	mux.HandleFunc("/ws", s.handleWebSocket)
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics.Handler())
	}
	return mux
}

// ListenAndServe serves until ctx is done, then closes every session
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting web server", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Reload loads the source again in every connected session. Connections
// whose session ended with a load error get a new session.
func (s *Server) Reload() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	s.logger.Info("Reloading", zap.String("source", s.cfg.Source.Name()), zap.Int("clients", len(clients)))
	for _, c := range clients {
		c.reload()
	}
}

// Clients returns the number of open connections
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) serveHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(s, conn)
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	c.logger.Info("Client connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		c.shutdown()
		c.logger.Info("Client disconnected")
	}()

	c.serve(r.Context())
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		_ = c.conn.Close()
	}
}
