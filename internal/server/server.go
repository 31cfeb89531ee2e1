// Package server provides HTTP server lifecycle management.
// Includes graceful shutdown handling for production deployments.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function that shuts down a component gracefully.
type ShutdownFunc func(ctx context.Context) error

// BackgroundFunc is a long-running component. It must return once ctx is cancelled.
type BackgroundFunc func(ctx context.Context) error

// Server wraps http.Server with graceful shutdown.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger

	mu            sync.Mutex
	shutdownFuncs []ShutdownFunc

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// New creates a new Server instance.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readTimeout,
			WriteTimeout:      writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		shutdownFuncs:   make([]ShutdownFunc, 0),
		bgCtx:           bgCtx,
		bgCancel:        bgCancel,
	}
}

// Go starts fn in its own goroutine. Its context is cancelled when the
// HTTP server has stopped, and shutdown waits for fn to return.
func (s *Server) Go(name string, fn BackgroundFunc) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		s.logger.Info("background component started", "name", name)
		if err := fn(s.bgCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("background component failed", "name", name, "error", err)
			return
		}
		s.logger.Info("background component stopped", "name", name)
	}()
}

// OnShutdown registers a function to be called during graceful shutdown.
// Shutdown functions are called in reverse order (LIFO) after the HTTP
// server and background components stop.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownFuncs = append(s.shutdownFuncs, func(ctx context.Context) error {
		s.logger.Info("shutting down component", "name", name)
		if err := fn(ctx); err != nil {
			s.logger.Error("component shutdown error", "name", name, "error", err)
			return err
		}
		s.logger.Info("component stopped", "name", name)
		return nil
	})
}

// Run starts the server and blocks until a shutdown signal is received.
// It handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.bgCancel()
		s.bg.Wait()
		return fmt.Errorf("server error: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serverErr := make(chan error, 1)

	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		s.bgCancel()
		s.bg.Wait()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
		return s.gracefulShutdown()
	}
}

// gracefulShutdown attempts to gracefully shut down the server and all registered components.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	// Phase 1: stop accepting new connections
	s.logger.Info("phase 1: stopping HTTP server", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		errs = append(errs, err)
	}
	s.logger.Info("HTTP server stopped")

	// Phase 2: stop background components
	s.logger.Info("phase 2: stopping background components")
	s.bgCancel()
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Error("background components did not stop in time")
		errs = append(errs, ctx.Err())
	}

	// Phase 3: registered components, last registered first
	s.mu.Lock()
	funcs := s.shutdownFuncs
	s.mu.Unlock()
	s.logger.Info("phase 3: stopping registered components", "count", len(funcs))

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		s.logger.Error("shutdown completed with errors", "error_count", len(errs))
		return errs[0]
	}

	s.logger.Info("server stopped gracefully")
	return nil
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
