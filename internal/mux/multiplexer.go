package mux

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soheilhy/cmux"

	"socialprobe/internal/config"
	"socialprobe/internal/grpc/server"
	"socialprobe/internal/logging"
	"socialprobe/internal/logging/types"
)

// Multiplexer serves gRPC and HTTP/1 on one listener, routing by protocol
type Multiplexer struct {
	cfg    *config.Config
	logger types.Logger

	grpcServer *server.Server
	httpServer *http.Server

	mux      cmux.CMux
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMultiplexer creates a multiplexer over an HTTP handler and an optional
// gRPC server. With grpcServer nil every connection is treated as HTTP.
func NewMultiplexer(cfg *config.Config, grpcServer *server.Server, httpHandler http.Handler, logger types.Logger) *Multiplexer {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Multiplexer{
		cfg:        cfg,
		logger:     logger.WithField("component", "multiplexer"),
		grpcServer: grpcServer,
		ctx:        ctx,
		cancel:     cancel,
		httpServer: &http.Server{
			Handler:           httpHandler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       cfg.Server.IdleTimeout,
		},
	}
}

// Start listens on address and serves both protocols in the background
func (m *Multiplexer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	m.listener = listener
	m.mux = cmux.New(listener)

	fields := map[string]interface{}{"address": listener.Addr().String()}

	if m.grpcServer != nil {
		// grpc-go clients wait for the server SETTINGS frame before sending headers
		grpcListener := m.mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.grpcServer.Serve(grpcListener); err != nil && m.ctx.Err() == nil {
				m.logger.WithError(err).Error("gRPC server failed", nil)
			}
		}()
	}

	httpListener := m.mux.Match(cmux.Any())
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.logger.Info("Starting HTTP server", fields)
		if err := m.httpServer.Serve(httpListener); err != nil && err != http.ErrServerClosed && m.ctx.Err() == nil {
			m.logger.WithError(err).Error("HTTP server failed", nil)
		}
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.mux.Serve(); err != nil && m.ctx.Err() == nil {
			m.logger.WithError(err).Error("Multiplexer failed", nil)
		}
	}()

	m.logger.Info("Multiplexer started", map[string]interface{}{
		"address": listener.Addr().String(),
		"grpc":    m.grpcServer != nil,
	})
	return nil
}

// Stop shuts both servers down, waiting at most until ctx is done
func (m *Multiplexer) Stop(ctx context.Context) error {
	m.logger.Info("Stopping multiplexer...", nil)
	m.cancel()

	var shutdownErr error
	if err := m.httpServer.Shutdown(ctx); err != nil {
		shutdownErr = fmt.Errorf("http shutdown: %w", err)
		m.logger.WithError(err).Error("HTTP server shutdown failed", nil)
	}

	if m.grpcServer != nil {
		m.grpcServer.Stop()
	}

	if m.listener != nil {
		if err := m.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			m.logger.WithError(err).Warn("Failed to close listener", nil)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Multiplexer stopped gracefully", nil)
	case <-ctx.Done():
		m.logger.Warn("Multiplexer shutdown timed out", nil)
		if shutdownErr == nil {
			shutdownErr = ctx.Err()
		}
	}
	return shutdownErr
}

// Wait blocks until every server goroutine has returned
func (m *Multiplexer) Wait() {
	m.wg.Wait()
}

// IsHealthy reports whether the multiplexer is listening and not stopped
func (m *Multiplexer) IsHealthy() bool {
	return m.ctx.Err() == nil && m.listener != nil
}

// Address returns the bound address, empty before Start
func (m *Multiplexer) Address() string {
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return ""
}
