package server

import (
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics tracks server runtime statistics.
// All counters use atomic operations for lock-free concurrent access.
type Metrics struct {
	startTime time.Time

	// Connection counters
	TotalConnections    atomic.Int64 // lifetime TCP connections accepted
	ActiveConnections   atomic.Int64 // current open connections
	RejectedConnections atomic.Int64 // connections refused at registry capacity
	SessionsRegistered  atomic.Int64 // successful nickname registrations
	Disconnects         atomic.Int64 // sessions removed (clean + unclean)

	// Chat counters
	MessagesRelayed       atomic.Int64 // MSG lines broadcast to a room
	RoomJoins             atomic.Int64 // CREATE_ROOM/JOIN_ROOM commands applied
	FormatErrors          atomic.Int64 // malformed or unknown command lines
	BroadcastSendFailures atomic.Int64 // per-member send failures during broadcast

	// Transfer-signaling counters
	TransfersRelayed     atomic.Int64 // FILE_ALERT messages delivered
	TransferTargetMisses atomic.Int64 // FILE_REQ naming an unknown target
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	ActiveConnections   int64 `json:"active_connections"`
	TotalConnections    int64 `json:"total_connections"`
	RejectedConnections int64 `json:"rejected_connections"`
	SessionsRegistered  int64 `json:"sessions_registered"`
	Disconnects         int64 `json:"disconnects"`

	MessagesRelayed       int64 `json:"messages_relayed"`
	RoomJoins             int64 `json:"room_joins"`
	FormatErrors          int64 `json:"format_errors"`
	BroadcastSendFailures int64 `json:"broadcast_send_failures"`

	TransfersRelayed     int64 `json:"transfers_relayed"`
	TransferTargetMisses int64 `json:"transfer_target_misses"`
}

// Snapshot returns a read-consistent snapshot of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	uptime := time.Since(m.startTime)
	return MetricsSnapshot{
		Uptime:                uptime.Truncate(time.Second).String(),
		UptimeSeconds:         int64(uptime.Seconds()),
		ActiveConnections:     m.ActiveConnections.Load(),
		TotalConnections:      m.TotalConnections.Load(),
		RejectedConnections:   m.RejectedConnections.Load(),
		SessionsRegistered:    m.SessionsRegistered.Load(),
		Disconnects:           m.Disconnects.Load(),
		MessagesRelayed:       m.MessagesRelayed.Load(),
		RoomJoins:             m.RoomJoins.Load(),
		FormatErrors:          m.FormatErrors.Load(),
		BroadcastSendFailures: m.BroadcastSendFailures.Load(),
		TransfersRelayed:      m.TransfersRelayed.Load(),
		TransferTargetMisses:  m.TransferTargetMisses.Load(),
	}
}

// JSON returns the metrics snapshot as a JSON string.
func (m *Metrics) JSON() string {
	data, err := json.MarshalIndent(m.Snapshot(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// LogSummary writes a periodic metrics summary to the logger.
func (m *Metrics) LogSummary() {
	s := m.Snapshot()
	slog.Info("metrics",
		"uptime", s.Uptime,
		"connections", s.ActiveConnections,
		"total_connections", s.TotalConnections,
		"messages", s.MessagesRelayed,
		"room_joins", s.RoomJoins,
		"transfers_relayed", s.TransfersRelayed,
	)
}

// StartPeriodicLog starts a goroutine that logs metrics every interval.
// It stops when the done channel is closed.
func (m *Metrics) StartPeriodicLog(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.LogSummary()
			}
		}
	}()
}
