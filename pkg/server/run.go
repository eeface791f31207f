package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start binds the chat listener and begins accepting connections in the
// background. Each accepted connection gets its own handler goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.listener = ln
	slog.Info("chat plane listening", "addr", ln.Addr().String(), "max_sessions", s.cfg.MaxSessions)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					slog.Error("accept error", "err", err)
					continue
				}
			}
			go s.handleConn(conn)
		}
	}()
	return nil
}

// Run starts the server and blocks until a shutdown signal.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	s.StartMetricsHTTP()
	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Shutdown stops accepting connections and cancels background work.
// In-flight handler goroutines exit as their connections close.
func (s *Server) Shutdown() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
}
