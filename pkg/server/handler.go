package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/dkwon/relaychat/pkg/model"
	"github.com/dkwon/relaychat/pkg/protocol"
)

// peerConn wraps a client connection with a write mutex so that direct
// replies from the session's own handler and broadcast sends from other
// handlers never interleave mid-line.
type peerConn struct {
	mu   sync.Mutex
	conn net.Conn
}

func newPeerConn(conn net.Conn) *peerConn {
	return &peerConn{conn: conn}
}

func (p *peerConn) WriteLine(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return protocol.WriteLine(p.conn, line)
}

func (p *peerConn) Close() error {
	return p.conn.Close()
}

// handleConn drives one client connection through its whole lifecycle:
// nickname registration, the command loop, and removal on disconnect.
func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	remote := conn.RemoteAddr().String()
	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)
	slog.Debug("new connection", "remote", remote)

	reader := protocol.NewLineReader(conn)
	peer := newPeerConn(conn)

	// First line is the nickname. Empty or unreadable means close
	// without registering; nothing is broadcast.
	nickname, err := reader.ReadLine()
	if err != nil || model.ValidateNickname(nickname) != nil {
		slog.Debug("registration failed", "remote", remote, "err", err)
		return
	}

	id, err := s.registry.Register(peer, nickname)
	if err != nil {
		// Registry full: reject with a notice, then drop the connection.
		_ = peer.WriteLine(protocol.Notice("Max clients reached."))
		s.metrics.RejectedConnections.Add(1)
		slog.Warn("connection rejected, registry full", "remote", remote, "nick", nickname)
		return
	}
	s.metrics.SessionsRegistered.Add(1)
	slog.Info("client registered", "nick", nickname, "remote", remote)

	_ = peer.WriteLine(protocol.Notice(
		"Please create a room (CREATE_ROOM:name) or join one (JOIN_ROOM:name)"))

	defer func() {
		// Removal and the departure notice run on every exit path,
		// clean close and error alike.
		nick, room, ok := s.registry.Remove(id)
		s.metrics.Disconnects.Add(1)
		if !ok {
			return
		}
		slog.Info("client disconnected", "nick", nick, "room", room)
		if room != "" {
			s.broadcastNotice(room, "%s has left the chat room.", nick)
		}
	}()

	for {
		line, err := reader.ReadLine()
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				slog.Debug("read error", "nick", nickname, "err", err)
			}
			return
		}
		s.dispatch(id, nickname, peer, line)
	}
}

// dispatch routes one inbound line to the registry, the broadcaster, or
// the file-transfer relay. Protocol errors are reported to the sender
// only and leave the connection usable.
func (s *Server) dispatch(id model.SessionID, nickname string, peer *peerConn, line string) {
	msg, err := protocol.ParseCommand(line)
	if err != nil {
		s.metrics.FormatErrors.Add(1)
		_ = peer.WriteLine(formatErrorNotice(line))
		return
	}

	switch {
	case msg.Room != nil:
		s.handleRoomChange(id, nickname, msg.Room.Name)

	case msg.Chat != nil:
		room, _ := s.registry.RoomOf(id)
		if room == "" {
			_ = peer.WriteLine(protocol.Notice("You must join a room first."))
			return
		}
		s.broadcast(room, msg.Chat.Body)
		s.metrics.MessagesRelayed.Add(1)
		slog.Debug("message relayed", "room", room, "from", nickname)

	case msg.FileReq != nil:
		s.relayFileRequest(nickname, peer, msg.FileReq)
	}
}

// handleRoomChange moves a session between rooms: departure notice to the
// old room first, then the membership update, then the arrival notice to
// the new room. CREATE_ROOM and JOIN_ROOM are deliberately identical —
// rooms exist exactly as long as they have members.
func (s *Server) handleRoomChange(id model.SessionID, nickname, room string) {
	prev, _ := s.registry.RoomOf(id)
	if prev != "" {
		s.broadcastNotice(prev, "%s has left room '%s'.", nickname, prev)
	}
	s.registry.SetRoom(nickname, room)
	s.broadcastNotice(room, "%s has entered room '%s'.", nickname, room)
	s.metrics.RoomJoins.Add(1)
	slog.Info("room change", "nick", nickname, "room", room, "previous", prev)
}

// broadcast delivers a line to a room and logs any members whose
// connection failed mid-send; their handlers clean up on their own.
func (s *Server) broadcast(room, line string) {
	if failed := s.registry.Broadcast(room, line); len(failed) > 0 {
		s.metrics.BroadcastSendFailures.Add(int64(len(failed)))
		slog.Warn("broadcast send failures", "room", room, "count", len(failed))
	}
}

func (s *Server) broadcastNotice(room, format string, args ...any) {
	s.broadcast(room, protocol.Notice(format, args...))
}

// formatErrorNotice picks the error notice matching the command verb the
// sender attempted, falling back to the generic unknown-command reply.
func formatErrorNotice(line string) string {
	verb, _, _ := strings.Cut(line, ":")
	switch verb {
	case protocol.CmdCreateRoom, protocol.CmdJoinRoom:
		return protocol.Notice("Invalid room command format.")
	case protocol.CmdFileReq:
		return protocol.Notice("File request format error.")
	default:
		return protocol.Notice("Unknown command or protocol error.")
	}
}
