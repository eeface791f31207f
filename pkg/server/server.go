// Package server implements the relaychat server: session registry, room
// broadcast, and the file-transfer signaling relay.
package server

import (
	"context"
	"net"
)

// Server accepts chat connections and runs one handler goroutine per
// client. All shared state lives in the session registry.
type Server struct {
	cfg      Config
	registry *Registry
	metrics  *Metrics
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a Server with the given configuration.
func New(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		registry: NewRegistry(cfg.MaxSessions),
		metrics:  NewMetrics(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Addr returns the bound listen address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
