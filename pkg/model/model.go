// Package model defines the core domain types for relaychat.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Fixed protocol limits, inherited from the wire format.
const (
	MaxNicknameBytes   = 30   // nickname length limit in bytes
	MaxRoomNameBytes   = 50   // room name length limit in bytes
	MaxLineBytes       = 1024 // one protocol line, terminator included
	DefaultMaxSessions = 10   // registered sessions per server
)

var (
	ErrNicknameEmpty   = errors.New("nickname must not be empty")
	ErrNicknameTooLong = fmt.Errorf("nickname must not exceed %d bytes", MaxNicknameBytes)
	ErrRoomNameEmpty   = errors.New("room name must not be empty")
	ErrRoomNameTooLong = fmt.Errorf("room name must not exceed %d bytes", MaxRoomNameBytes)
	ErrContainsColon   = errors.New("field must not contain a colon")

	// ErrRegistryFull is returned when the session registry is at capacity.
	ErrRegistryFull = errors.New("session registry full")

	// ErrTargetNotFound is returned when a file-transfer target nickname
	// has no registered session.
	ErrTargetNotFound = errors.New("target nickname not registered")
)

// SessionID identifies a registered session. IDs are assigned in
// registration order and never reused within a server's lifetime.
type SessionID uint64

// Session is the server-side state for one connected client.
// The nickname is set exactly once at registration; the room is mutable,
// empty meaning "no room". Sessions are owned by the registry: all field
// access goes through registry operations.
type Session struct {
	ID       SessionID
	Nickname string
	Room     string
}

// ValidateNickname checks a registration nickname. Colons are rejected
// because every wire message is colon-delimited.
func ValidateNickname(name string) error {
	if len(name) == 0 {
		return ErrNicknameEmpty
	}
	if len(name) > MaxNicknameBytes {
		return ErrNicknameTooLong
	}
	if strings.ContainsRune(name, ':') {
		return ErrContainsColon
	}
	return nil
}

// ValidateRoomName checks a room name from a CREATE_ROOM/JOIN_ROOM command.
func ValidateRoomName(name string) error {
	if len(name) == 0 {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameBytes {
		return ErrRoomNameTooLong
	}
	if strings.ContainsRune(name, ':') {
		return ErrContainsColon
	}
	return nil
}
