package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StartMetricsHTTP starts a lightweight HTTP server that exposes /metrics
// in Prometheus text exposition format. It runs in the background and
// shuts down when the server context is cancelled.
func (s *Server) StartMetricsHTTP() {
	addr := s.cfg.MetricsAddr
	if addr == "" {
		return // metrics endpoint disabled
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics HTTP listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics HTTP error", "err", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
}

// handleMetrics writes all metrics in Prometheus text exposition format.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	m := s.metrics
	uptime := time.Since(m.startTime).Seconds()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Write errors to http.ResponseWriter are non-actionable; suppress errcheck.
	write := func(name, help, mtype string, value int64) {
		_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
	}

	_, _ = fmt.Fprintf(w, "# HELP relaychat_uptime_seconds Server uptime in seconds.\n")
	_, _ = fmt.Fprintf(w, "# TYPE relaychat_uptime_seconds gauge\n")
	_, _ = fmt.Fprintf(w, "relaychat_uptime_seconds %f\n", uptime)

	write("relaychat_connections_active", "Current open chat connections.", "gauge",
		m.ActiveConnections.Load())
	write("relaychat_connections_total", "Lifetime TCP connections accepted.", "counter",
		m.TotalConnections.Load())
	write("relaychat_connections_rejected_total", "Connections refused at registry capacity.", "counter",
		m.RejectedConnections.Load())
	write("relaychat_sessions_registered_total", "Successful nickname registrations.", "counter",
		m.SessionsRegistered.Load())
	write("relaychat_disconnects_total", "Sessions removed.", "counter",
		m.Disconnects.Load())

	write("relaychat_messages_relayed_total", "Chat messages broadcast to a room.", "counter",
		m.MessagesRelayed.Load())
	write("relaychat_room_joins_total", "Room create/join commands applied.", "counter",
		m.RoomJoins.Load())
	write("relaychat_format_errors_total", "Malformed or unknown command lines.", "counter",
		m.FormatErrors.Load())
	write("relaychat_broadcast_send_failures_total", "Per-member send failures during broadcast.", "counter",
		m.BroadcastSendFailures.Load())

	write("relaychat_transfers_relayed_total", "File transfer alerts delivered.", "counter",
		m.TransfersRelayed.Load())
	write("relaychat_transfer_target_misses_total", "File requests naming an unknown target.", "counter",
		m.TransferTargetMisses.Load())
}
