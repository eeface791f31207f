// Package protocol defines the relaychat wire format: newline-delimited
// text lines, each carrying one colon-delimited command or notice.
//
// A command line is split on the first colon into (command, rest); FILE_REQ
// and FILE_ALERT sub-fields inside rest are colon-delimited and parsed left
// to right, so no field may itself contain a colon.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dkwon/relaychat/pkg/model"
)

// Command words of the client-to-server protocol.
const (
	CmdCreateRoom = "CREATE_ROOM"
	CmdJoinRoom   = "JOIN_ROOM"
	CmdMessage    = "MSG"
	CmdFileReq    = "FILE_REQ"

	// FileAlertPrefix starts the server-to-target transfer announcement.
	FileAlertPrefix = "FILE_ALERT"

	// NoticePrefix starts every server system notice.
	NoticePrefix = "[SERVER]"
)

var (
	ErrLineTooLong   = fmt.Errorf("protocol: line exceeds %d bytes", model.MaxLineBytes)
	ErrEmptyLine     = errors.New("protocol: empty line")
	ErrMalformed     = errors.New("protocol: malformed message")
	ErrBadFieldCount = errors.New("protocol: wrong field count")
)

// LineReader reassembles newline-delimited protocol lines from a byte
// stream. Partial reads are buffered until a terminator arrives; a line
// longer than the protocol limit is an error, not a truncation.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r with a buffer sized to the protocol line limit.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, model.MaxLineBytes)}
}

// ReadLine returns the next line without its terminator. It returns
// io.EOF when the stream ends cleanly with no pending bytes.
func (lr *LineReader) ReadLine() (string, error) {
	b, err := lr.r.ReadSlice('\n')
	if err != nil {
		if err == bufio.ErrBufferFull {
			return "", ErrLineTooLong
		}
		if err == io.EOF && len(b) > 0 {
			// Peer closed without a trailing terminator; deliver what arrived.
			return strings.TrimRight(string(b), "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// WriteLine writes one protocol line followed by the terminator.
func WriteLine(w io.Writer, line string) error {
	if len(line)+1 > model.MaxLineBytes {
		return ErrLineTooLong
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("protocol: write line: %w", err)
	}
	return nil
}

// Message is the tagged variant over the inbound command shapes.
// Exactly one pointer field is set on a successfully parsed command.
type Message struct {
	Room    *RoomCommand
	Chat    *ChatRelay
	FileReq *FileRequest
}

// RoomCommand is CREATE_ROOM:<name> or JOIN_ROOM:<name>. The two verbs are
// equivalent — rooms are implicit and never explicitly created.
type RoomCommand struct {
	Name string
}

// ChatRelay is MSG:<rest>. Rest carries the client-composed
// "<nickname>: <text>" framing and is relayed verbatim.
type ChatRelay struct {
	Body string
}

// FileRequest is FILE_REQ:<target>:<filename>:<filesize>:<ip>:<port>.
type FileRequest struct {
	Target   string
	Filename string
	Size     int64
	IP       string
	Port     int
}

// FileAlert is the server-to-target announcement
// FILE_ALERT:<sender>:<filename>:<filesize>:<ip>:<port>.
type FileAlert struct {
	Sender   string
	Filename string
	Size     int64
	IP       string
	Port     int
}

// ParseCommand parses one inbound line into a Message. A recognized verb
// with a malformed payload is rejected decisively: partial parses never
// escape. An unrecognized verb yields ErrMalformed so the dispatcher can
// answer with its unknown-command notice.
func ParseCommand(line string) (*Message, error) {
	if line == "" {
		return nil, ErrEmptyLine
	}
	verb, rest, _ := strings.Cut(line, ":")
	switch verb {
	case CmdCreateRoom, CmdJoinRoom:
		if err := model.ValidateRoomName(rest); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		return &Message{Room: &RoomCommand{Name: rest}}, nil

	case CmdMessage:
		return &Message{Chat: &ChatRelay{Body: rest}}, nil

	case CmdFileReq:
		req, err := parseFileFields(rest)
		if err != nil {
			return nil, err
		}
		return &Message{FileReq: &FileRequest{
			Target:   req.first,
			Filename: req.filename,
			Size:     req.size,
			IP:       req.ip,
			Port:     req.port,
		}}, nil
	}
	return nil, ErrMalformed
}

// ParseFileAlert parses a FILE_ALERT line on the client side. Returns
// (nil, nil) when the line is not a file alert at all.
func ParseFileAlert(line string) (*FileAlert, error) {
	rest, ok := strings.CutPrefix(line, FileAlertPrefix+":")
	if !ok {
		return nil, nil
	}
	f, err := parseFileFields(rest)
	if err != nil {
		return nil, err
	}
	return &FileAlert{
		Sender:   f.first,
		Filename: f.filename,
		Size:     f.size,
		IP:       f.ip,
		Port:     f.port,
	}, nil
}

// fileFields holds the five colon-delimited payload fields shared by
// FILE_REQ (first = target) and FILE_ALERT (first = sender).
type fileFields struct {
	first    string
	filename string
	size     int64
	ip       string
	port     int
}

func parseFileFields(rest string) (*fileFields, error) {
	parts := strings.Split(rest, ":")
	if len(parts) != 5 {
		return nil, ErrBadFieldCount
	}
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty field", ErrMalformed)
		}
	}
	size, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || size < 0 {
		return nil, fmt.Errorf("%w: bad filesize %q", ErrMalformed, parts[2])
	}
	port, err := strconv.Atoi(parts[4])
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("%w: bad port %q", ErrMalformed, parts[4])
	}
	return &fileFields{
		first:    parts[0],
		filename: parts[1],
		size:     size,
		ip:       parts[3],
		port:     port,
	}, nil
}

// FormatFileRequest renders a FILE_REQ command line.
func FormatFileRequest(target, filename string, size int64, ip string, port int) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s:%d", CmdFileReq, target, filename, size, ip, port)
}

// FormatFileAlert renders the FILE_ALERT line relayed to the target. All
// fields except the sender are copied verbatim from the request.
func FormatFileAlert(sender string, req *FileRequest) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s:%d",
		FileAlertPrefix, sender, req.Filename, req.Size, req.IP, req.Port)
}

// FormatChat renders the MSG command line with the client-side
// "<nickname>: <text>" framing.
func FormatChat(nickname, text string) string {
	return fmt.Sprintf("%s:%s: %s", CmdMessage, nickname, text)
}

// FormatRoomCommand renders CREATE_ROOM or JOIN_ROOM.
func FormatRoomCommand(create bool, room string) string {
	if create {
		return CmdCreateRoom + ":" + room
	}
	return CmdJoinRoom + ":" + room
}

// Notice renders a server system notice line.
func Notice(format string, args ...any) string {
	return NoticePrefix + " " + fmt.Sprintf(format, args...)
}
