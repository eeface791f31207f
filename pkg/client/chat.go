package client

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/dkwon/relaychat/pkg/model"
	"github.com/dkwon/relaychat/pkg/protocol"
)

// LineHandler is a callback for each inbound server line.
type LineHandler func(line string)

// ChatClient manages the TCP chat connection. Outbound writes are
// serialized by a mutex; inbound lines are read by a single receive
// goroutine and handed to the line handler in arrival order.
type ChatClient struct {
	conn     net.Conn
	mu       sync.Mutex
	nickname string
	handler  LineHandler
	done     chan struct{}
}

// Dial connects to the chat server and registers the nickname as the
// first protocol line.
func Dial(addr, nickname string) (*ChatClient, error) {
	if err := model.ValidateNickname(nickname); err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: connect: %w", err)
	}
	if err := protocol.WriteLine(conn, nickname); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("client: register nickname: %w", err)
	}
	return &ChatClient{
		conn:     conn,
		nickname: nickname,
		done:     make(chan struct{}),
	}, nil
}

// Nickname returns the nickname registered on connect.
func (c *ChatClient) Nickname() string {
	return c.nickname
}

// SetLineHandler sets the callback for inbound lines. Must be called
// before StartReceiving.
func (c *ChatClient) SetLineHandler(handler LineHandler) {
	c.handler = handler
}

// StartReceiving starts the goroutine that reads server lines and
// dispatches them to the line handler. The done channel closes when the
// connection is lost.
func (c *ChatClient) StartReceiving() {
	go func() {
		defer close(c.done)
		reader := protocol.NewLineReader(c.conn)
		for {
			line, err := reader.ReadLine()
			if err != nil {
				if err == io.EOF || errors.Is(err, net.ErrClosed) {
					slog.Debug("chat connection closed")
					return
				}
				slog.Error("chat read error", "err", err)
				return
			}
			if c.handler != nil {
				c.handler(line)
			}
		}
	}()
}

// Done returns a channel that's closed when the connection is lost.
func (c *ChatClient) Done() <-chan struct{} {
	return c.done
}

// Send writes one raw protocol line.
func (c *ChatClient) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.WriteLine(c.conn, line)
}

// JoinRoom issues a CREATE_ROOM or JOIN_ROOM command. The server treats
// the two identically; the distinction exists only in the UI.
func (c *ChatClient) JoinRoom(create bool, room string) error {
	if err := model.ValidateRoomName(room); err != nil {
		return fmt.Errorf("client: %w", err)
	}
	return c.Send(protocol.FormatRoomCommand(create, room))
}

// SendChat sends a chat line framed as "<nickname>: <text>"; the server
// relays that framing verbatim to the room, echo to self included.
func (c *ChatClient) SendChat(text string) error {
	return c.Send(protocol.FormatChat(c.nickname, text))
}

// Close closes the chat connection.
func (c *ChatClient) Close() error {
	return c.conn.Close()
}
