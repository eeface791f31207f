// Package client implements the relaychat client: the chat connection,
// the inbound receive loop, and the peer-to-peer file transfer agents.
package client

import (
	"context"
	"net/netip"
)

// Display renders one line of conversation to the user. Implementations
// must be safe to call from any goroutine and must preserve call order.
type Display interface {
	DisplayLine(text string)
}

// DisplayFunc adapts a plain function to the Display interface.
type DisplayFunc func(text string)

func (f DisplayFunc) DisplayLine(text string) { f(text) }

// Prompter collects modal text input from the user. ok is false when the
// prompt was cancelled.
type Prompter interface {
	PromptText(title string) (s string, ok bool)
}

// AddressResolver returns this host's externally reachable IPv4 address,
// used only to populate the sender address of outgoing file requests.
type AddressResolver interface {
	Resolve(ctx context.Context) (netip.Addr, error)
}
