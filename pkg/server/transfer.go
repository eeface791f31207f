package server

import (
	"errors"
	"log/slog"

	"github.com/dkwon/relaychat/pkg/model"
	"github.com/dkwon/relaychat/pkg/protocol"
)

// relayFileRequest turns a FILE_REQ from one client into a FILE_ALERT to
// the target and a confirmation to the requester. The relay is one-shot
// and fire-and-forget: no transfer state is kept after the alert goes
// out, the announced address and size are forwarded unverified, and the
// file bytes themselves never pass through this server.
func (s *Server) relayFileRequest(sender string, peer *peerConn, req *protocol.FileRequest) {
	err := s.registry.SendTo(req.Target, protocol.FormatFileAlert(sender, req))
	if errors.Is(err, model.ErrTargetNotFound) {
		s.metrics.TransferTargetMisses.Add(1)
		_ = peer.WriteLine(protocol.Notice("User %s not found.", req.Target))
		slog.Info("file request target not found", "from", sender, "target", req.Target)
		return
	}
	if err != nil {
		// The alert write failed mid-send; the target's handler will
		// clean up. The target does exist, so the requester gets a
		// delivery failure rather than a lookup miss.
		s.metrics.TransferTargetMisses.Add(1)
		_ = peer.WriteLine(protocol.Notice("File request delivery to %s failed.", req.Target))
		slog.Warn("file alert delivery failed", "from", sender, "target", req.Target, "err", err)
		return
	}
	s.metrics.TransfersRelayed.Add(1)
	_ = peer.WriteLine(protocol.Notice("File request sent to %s.", req.Target))
	slog.Info("file transfer alert relayed",
		"from", sender,
		"target", req.Target,
		"file", req.Filename,
		"size", req.Size,
	)
}
