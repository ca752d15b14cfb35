package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

const serverShutdownTimeout = 5 * time.Second

var ErrListenerRunning = errors.New("listener already running")

// Listener owns the portal HTTP server. Start binds synchronously so bind
// errors surface to the caller, then serves in the background.
type Listener struct {
	handler http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

func NewListener(handler http.Handler) *Listener {
	return &Listener{handler: handler}
}

func (l *Listener) Start(addr string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.server != nil {
		return ErrListenerRunning
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           l.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan struct{})

	l.server = srv
	l.listener = listener
	l.done = done

	go func() {
		defer close(done)
		slog.Info("Starting portal HTTP server", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Portal HTTP server failed", "address", listener.Addr().String(), "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil when not running.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listener == nil {
		return nil
	}
	return l.listener.Addr()
}

// Stop shuts the server down gracefully, forcing it closed if in-flight
// requests do not finish within the timeout. Stopping an idle listener is
// a no-op.
func (l *Listener) Stop() error {
	l.mu.Lock()
	srv, listener, done := l.server, l.listener, l.done
	l.server, l.listener, l.done = nil, nil, nil
	l.mu.Unlock()

	if srv == nil {
		return nil
	}

	slog.Info("Stopping portal HTTP server", "address", listener.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("Graceful shutdown timeout, forcing close", "error", err)
		_ = srv.Close()
	}

	if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("Failed to close portal listener", "error", err)
	}

	<-done
	slog.Info("Portal HTTP server stopped")
	return nil
}
