// Package server implements the live preview behind `txtof serve`: the input
// file is rendered on every change and browsers connected to /ws reload when
// the rendered output actually differs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/cespare/xxhash"

	"github.com/conneroisu/txtof/internal/config"
	"github.com/conneroisu/txtof/internal/logging"
	"github.com/conneroisu/txtof/internal/renderer"
	"github.com/conneroisu/txtof/internal/services"
	"github.com/conneroisu/txtof/internal/version"
	"github.com/conneroisu/txtof/internal/watcher"
)

// ReloadPath is where preview pages open their websocket.
const ReloadPath = "/ws"

const shutdownTimeout = 5 * time.Second

// PreviewServer serves the rendered input with live reload capability
type PreviewServer struct {
	config       *config.Config
	input        string
	templateFile string
	logger       logging.Logger
	hub          *Hub

	// Last render, guarded by mu. hash covers the output or, after a failed
	// render, the error text, so a new failure also triggers a reload.
	mu       sync.RWMutex
	output   []byte
	lastErr  error
	hash     uint64
	rendered bool

	serverMutex  sync.RWMutex
	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
}

// New creates a preview server for input. templateFile takes precedence over
// templates.file like it does for the other commands.
func New(cfg *config.Config, input, templateFile string, logger logging.Logger) *PreviewServer {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("server")

	allowed := []string{
		fmt.Sprintf("localhost:%d", cfg.Server.Port),
		fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
	}

	return &PreviewServer{
		config:       cfg,
		input:        input,
		templateFile: templateFile,
		logger:       logger,
		hub:          NewHub(allowed, logger),
	}
}

// Hub returns the reload hub.
func (s *PreviewServer) Hub() *Hub {
	return s.hub
}

// Rebuild renders the input again with a freshly loaded template set, so
// template file edits are picked up too. It reports whether the result
// differs from the previous one; only then are clients told to reload.
func (s *PreviewServer) Rebuild(ctx context.Context) (bool, error) {
	var result *services.RenderResult
	service, err := services.NewRenderServiceFromConfig(s.config, s.templateFile, s.logger)
	if err == nil {
		result, err = service.RenderFile(ctx, s.input)
	}

	s.mu.Lock()
	var hash uint64
	if err != nil {
		hash = xxhash.Sum64String(err.Error())
		s.lastErr = err
	} else {
		hash = result.Hash
		s.output = result.Output
		s.lastErr = nil
	}
	changed := !s.rendered || hash != s.hash
	s.hash = hash
	s.rendered = true
	s.mu.Unlock()

	if err != nil {
		s.logger.Error(ctx, err, "Render failed", "input", s.input)
	}

	if !changed {
		s.logger.Debug(ctx, "Output unchanged, skipping reload", "input", s.input)
		return false, err
	}

	msg := UpdateMessage{Type: "reload", Hash: strconv.FormatUint(hash, 16)}
	if err != nil {
		msg.Error = err.Error()
	}
	s.hub.Broadcast(msg)
	return true, err
}

func (s *PreviewServer) snapshot() ([]byte, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.output, s.hash, s.lastErr
}

// Handler returns the preview routes wrapped in the server middleware.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(ReloadPath, s.hub)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/raw", s.handleRaw)
	mux.HandleFunc("/", s.handleIndex)

	return LoggingMiddleware(s.logger)(SecurityMiddleware(mux))
}

func etag(prefix string, hash uint64) string {
	return fmt.Sprintf(`"%s%x"`, prefix, hash)
}

// notModified sets the ETag and reports whether the client already has it.
func notModified(w http.ResponseWriter, r *http.Request, tag string) bool {
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	output, hash, err := s.snapshot()
	if notModified(w, r, etag("p", hash)) {
		return
	}

	title := filepath.Base(s.input)
	if err != nil {
		page := renderer.PreviewPage(title, errorComponent(err), ReloadPath)
		templ.Handler(page, templ.WithStatus(http.StatusInternalServerError)).ServeHTTP(w, r)
		return
	}

	templ.Handler(renderer.PreviewPage(title, renderer.Bytes(output), ReloadPath)).ServeHTTP(w, r)
}

func (s *PreviewServer) handleRaw(w http.ResponseWriter, r *http.Request) {
	output, hash, err := s.snapshot()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if notModified(w, r, etag("", hash)) {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(output); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to write response")
	}
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, hash, err := s.snapshot()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"input":     s.input,
		"hash":      strconv.FormatUint(hash, 16),
		"clients":   s.hub.ClientCount(),
	}
	if err != nil {
		health["status"] = "failing"
		health["error"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

// Start renders the input, starts watching it and the template file, and
// serves until ctx is cancelled. A failing first render is returned so a
// broken template configuration is reported before anything listens.
func (s *PreviewServer) Start(ctx context.Context) error {
	if _, err := s.Rebuild(ctx); err != nil {
		return err
	}

	fw, err := s.setupFileWatcher(ctx)
	if err != nil {
		return err
	}
	defer fw.Stop()

	go s.hub.Run(ctx)

	listener, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Address(), err)
	}

	s.serverMutex.Lock()
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Preview server listening", "url", "http://"+listener.Addr().String(), "input", s.input)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Addr returns the listening address once Start is serving.
func (s *PreviewServer) Addr() net.Addr {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *PreviewServer) setupFileWatcher(ctx context.Context) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(s.config.Watch.Debounce, s.logger)
	if err != nil {
		return nil, err
	}

	paths := []string{s.input}
	if tmpl := s.config.TemplatePath(s.templateFile); tmpl != "" {
		paths = append(paths, tmpl)
	}
	for _, path := range paths {
		if err := fw.WatchFile(path); err != nil {
			fw.Stop()
			return nil, err
		}
	}

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		s.logger.Debug(ctx, "Change detected", "events", len(events))
		// Rebuild logs render failures itself.
		s.Rebuild(ctx)
		return nil
	})

	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, err
	}
	return fw, nil
}

// Shutdown stops the hub and the HTTP server. It is safe to call more than
// once.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down preview server")
		s.hub.Stop()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func errorComponent(err error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, werr := io.WriteString(w, `<pre class="txtof-error">`+templ.EscapeString(err.Error())+"</pre>\n")
		return werr
	})
}
