package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
)

// DefaultTransferPort is the rendezvous port announced in file requests.
const DefaultTransferPort = 8081

// ReceivedFilePrefix is prepended to the announced filename so an
// incoming transfer never clobbers an existing file of the same name.
const ReceivedFilePrefix = "recv_"

// ErrShortTransfer is returned when the peer closed before the announced
// byte count arrived.
var ErrShortTransfer = errors.New("transfer ended before announced size")

// SendFileOver accepts exactly one connection on ln, streams the whole
// file to it, and closes both ends. Progress notices go to the local
// display only; the remote peer learns nothing about local failures.
func SendFileOver(ln net.Listener, path string, display Display) (int64, error) {
	defer func() { _ = ln.Close() }()

	f, err := os.Open(path) //nolint:gosec // path chosen by the local user
	if err != nil {
		return 0, fmt.Errorf("transfer: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	display.DisplayLine("[SERVER] Waiting for receiver to connect...")
	conn, err := ln.Accept()
	if err != nil {
		return 0, fmt.Errorf("transfer: accept: %w", err)
	}
	defer func() { _ = conn.Close() }()

	display.DisplayLine("[SERVER] Receiver connected. Starting file transfer...")
	n, err := io.Copy(conn, f)
	if err != nil {
		return n, fmt.Errorf("transfer: send: %w", err)
	}
	return n, nil
}

// ReceiveFileFrom connects to the announced rendezvous address and reads
// exactly size bytes into dir, stopping early if the peer closes first.
// The output file is named from the announced filename with the receive
// prefix. Success requires the received byte count to equal the
// announced size; a short transfer returns ErrShortTransfer alongside
// the partial count and the partial file is kept on disk.
func ReceiveFileFrom(addr, filename string, size int64, dir string, display Display) (string, int64, error) {
	outName := ReceivedFilePrefix + filepath.Base(filename)
	outPath := filepath.Join(dir, outName)

	out, err := os.Create(outPath) //nolint:gosec // name derived under the configured download dir
	if err != nil {
		return outPath, 0, fmt.Errorf("transfer: create file: %w", err)
	}
	defer func() { _ = out.Close() }()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return outPath, 0, fmt.Errorf("transfer: connect to sender: %w", err)
	}
	defer func() { _ = conn.Close() }()

	display.DisplayLine("[SERVER] Connected to sender. Receiving file...")
	n, err := io.Copy(out, io.LimitReader(conn, size))
	if err != nil {
		return outPath, n, fmt.Errorf("transfer: receive: %w", err)
	}
	if n != size {
		return outPath, n, ErrShortTransfer
	}
	return outPath, n, nil
}
