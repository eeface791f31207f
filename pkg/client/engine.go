package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/dkwon/relaychat/pkg/history"
	"github.com/dkwon/relaychat/pkg/protocol"
)

// Engine wires together the chat connection, the transfer agents, the
// external-address resolver, and the local transfer log. All user-visible
// output goes through the Display collaborator.
type Engine struct {
	mu           sync.RWMutex
	chat         *ChatClient
	connecting   bool
	externalIP   netip.Addr
	display      Display
	resolver     AddressResolver
	history      *history.Store
	downloadDir  string
	transferPort int

	// OnDisconnect is called once when the chat connection is lost.
	OnDisconnect func(reason string)
}

// Options configures a new Engine. Display is required; the rest have
// working defaults.
type Options struct {
	Display      Display
	Resolver     AddressResolver // nil = default HTTP resolver
	History      *history.Store  // nil = no transfer log
	DownloadDir  string          // "" = current directory
	TransferPort int             // 0 = DefaultTransferPort
}

// NewEngine creates an engine from options.
func NewEngine(opts Options) *Engine {
	if opts.Resolver == nil {
		opts.Resolver = NewHTTPResolver()
	}
	if opts.DownloadDir == "" {
		opts.DownloadDir = "."
	}
	if opts.TransferPort == 0 {
		opts.TransferPort = DefaultTransferPort
	}
	return &Engine{
		display:      opts.Display,
		resolver:     opts.Resolver,
		history:      opts.History,
		downloadDir:  opts.DownloadDir,
		transferPort: opts.TransferPort,
	}
}

// Connect dials the chat server, registers the nickname, and starts the
// receive loop. The connecting flag stays held across the dial so an
// overlapping Connect fails instead of orphaning the first connection.
// External-address discovery runs in the background so a slow resolver
// never delays the chat plane.
func (e *Engine) Connect(addr, nickname string) error {
	e.mu.Lock()
	if e.chat != nil || e.connecting {
		e.mu.Unlock()
		return errors.New("client: already connected")
	}
	e.connecting = true
	e.mu.Unlock()

	chat, err := Dial(addr, nickname)

	e.mu.Lock()
	e.connecting = false
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.chat = chat
	e.mu.Unlock()

	chat.SetLineHandler(e.handleLine)
	chat.StartReceiving()

	go e.resolveExternalAddress()

	go func() {
		<-chat.Done()
		e.handleDisconnect("connection lost")
	}()

	slog.Info("connected", "server", addr, "nick", nickname)
	return nil
}

func (e *Engine) resolveExternalAddress() {
	addr, err := e.resolver.Resolve(context.Background())
	if err != nil {
		slog.Warn("external address discovery failed", "err", err)
		e.display.DisplayLine("[SERVER] WARNING: Failed to get external IP. File transfers may fail.")
		return
	}
	e.mu.Lock()
	e.externalIP = addr
	e.mu.Unlock()
	e.display.DisplayLine("[SERVER] External IP registered: " + addr.String())
}

// Connected reports whether the chat connection is up.
func (e *Engine) Connected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.chat != nil
}

// Nickname returns the registered nickname, or empty when disconnected.
func (e *Engine) Nickname() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.chat == nil {
		return ""
	}
	return e.chat.Nickname()
}

// JoinRoom issues a room create/join command.
func (e *Engine) JoinRoom(create bool, room string) error {
	e.mu.RLock()
	chat := e.chat
	e.mu.RUnlock()
	if chat == nil {
		return errors.New("client: not connected")
	}
	return chat.JoinRoom(create, room)
}

// SendChat sends a chat message to the current room.
func (e *Engine) SendChat(text string) error {
	e.mu.RLock()
	chat := e.chat
	e.mu.RUnlock()
	if chat == nil {
		return errors.New("client: not connected")
	}
	return chat.SendChat(text)
}

// SendFile announces a file transfer to target and starts the detached
// sender task. The listener is bound before the request goes out so the
// receiver can never connect into a closed port.
func (e *Engine) SendFile(target, path string) error {
	e.mu.RLock()
	chat := e.chat
	externalIP := e.externalIP
	port := e.transferPort
	e.mu.RUnlock()

	if chat == nil {
		return errors.New("client: not connected")
	}
	if !externalIP.IsValid() {
		e.display.DisplayLine("[SERVER] ERROR: External IP not ready. File transfer failed.")
		return errors.New("client: external address not resolved")
	}

	info, err := os.Stat(path)
	if err != nil {
		e.display.DisplayLine("[SERVER] Failed to get file information.")
		return fmt.Errorf("client: stat file: %w", err)
	}

	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		e.display.DisplayLine("[SERVER] Failed to create file transfer socket.")
		return fmt.Errorf("client: listen for receiver: %w", err)
	}

	filename := filepath.Base(path)
	req := protocol.FormatFileRequest(target, filename, info.Size(), externalIP.String(), port)
	if err := chat.Send(req); err != nil {
		_ = ln.Close()
		return fmt.Errorf("client: send file request: %w", err)
	}

	e.display.DisplayLine(fmt.Sprintf(
		"[SERVER] Request sent to send '%s' (%d bytes) to %s.", filename, info.Size(), target))

	go e.runSender(ln, path, target, filename, info.Size())
	return nil
}

// runSender is the detached sender task: accept one connection, stream
// the file, record the outcome. Panics become display events, never
// process termination.
func (e *Engine) runSender(ln net.Listener, path, target, filename string, size int64) {
	defer e.recoverTransferPanic()

	n, err := SendFileOver(ln, path, e.display)
	if err != nil {
		slog.Error("file send failed", "file", filename, "target", target, "err", err)
		e.display.DisplayLine("[SERVER] File transfer error during send.")
		e.record(history.DirectionSend, target, filename, size, n, history.StatusError, err.Error())
		return
	}
	e.display.DisplayLine("[SERVER] File sent successfully.")
	e.record(history.DirectionSend, target, filename, size, n, history.StatusOK, "")
}

// runReceiver is the detached receiver task spawned on FILE_ALERT.
func (e *Engine) runReceiver(alert *protocol.FileAlert) {
	defer e.recoverTransferPanic()

	addr := net.JoinHostPort(alert.IP, strconv.Itoa(alert.Port))
	outPath, n, err := ReceiveFileFrom(addr, alert.Filename, alert.Size, e.downloadDir, e.display)
	switch {
	case errors.Is(err, ErrShortTransfer):
		e.display.DisplayLine("[SERVER] File receive completed but size mismatch or error.")
		e.record(history.DirectionReceive, alert.Sender, alert.Filename, alert.Size, n, history.StatusMismatch, "")
	case err != nil:
		slog.Error("file receive failed", "file", alert.Filename, "from", alert.Sender, "err", err)
		e.display.DisplayLine("[SERVER] Failed to receive file: " + err.Error())
		e.record(history.DirectionReceive, alert.Sender, alert.Filename, alert.Size, n, history.StatusError, err.Error())
	default:
		e.display.DisplayLine(fmt.Sprintf("[SERVER] File received successfully as %s.", filepath.Base(outPath)))
		e.record(history.DirectionReceive, alert.Sender, alert.Filename, alert.Size, n, history.StatusOK, "")
	}
}

func (e *Engine) record(dir history.Direction, peer, filename string, size, transferred int64, status, note string) {
	if e.history == nil {
		return
	}
	err := e.history.Add(history.Record{
		Direction:   dir,
		Peer:        peer,
		Filename:    filename,
		Size:        size,
		Transferred: transferred,
		Status:      status,
		Note:        note,
	})
	if err != nil {
		slog.Warn("transfer log write failed", "err", err)
	}
}

func (e *Engine) recoverTransferPanic() {
	if r := recover(); r != nil {
		slog.Error("transfer task panic", "panic", r)
		e.display.DisplayLine(fmt.Sprintf("[SERVER] File transfer failed: %v", r))
	}
}

// handleLine dispatches one inbound server line: file alerts spawn a
// detached receiver, everything else is rendered verbatim.
func (e *Engine) handleLine(line string) {
	alert, err := protocol.ParseFileAlert(line)
	if err != nil {
		e.display.DisplayLine("[SERVER] Invalid file alert format received.")
		return
	}
	if alert != nil {
		e.display.DisplayLine(fmt.Sprintf(
			"[SERVER] Receiving file '%s' from %s...", alert.Filename, alert.Sender))
		go e.runReceiver(alert)
		return
	}
	e.display.DisplayLine(line)
}

// Disconnect closes the chat connection.
func (e *Engine) Disconnect() {
	e.handleDisconnect("user disconnected")
}

func (e *Engine) handleDisconnect(reason string) {
	e.mu.Lock()
	chat := e.chat
	e.chat = nil
	e.externalIP = netip.Addr{}
	e.mu.Unlock()

	if chat == nil {
		return
	}
	_ = chat.Close()
	slog.Info("disconnected", "reason", reason)
	e.display.DisplayLine("[SERVER] Connection lost.")
	if e.OnDisconnect != nil {
		e.OnDisconnect(reason)
	}
}
