package client

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
)

var discardDisplay = DisplayFunc(func(string) {})

func TestSendReceiveRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("relaychat test payload\n"), 512)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "report.pdf")
	if err := os.WriteFile(srcPath, payload, 0o600); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	type sendResult struct {
		n   int64
		err error
	}
	sendCh := make(chan sendResult, 1)
	go func() {
		n, err := SendFileOver(ln, srcPath, discardDisplay)
		sendCh <- sendResult{n, err}
	}()

	dstDir := t.TempDir()
	outPath, n, err := ReceiveFileFrom(ln.Addr().String(), "report.pdf", int64(len(payload)), dstDir, discardDisplay)
	if err != nil {
		t.Fatalf("ReceiveFileFrom: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("received %d bytes, want %d", n, len(payload))
	}
	if filepath.Base(outPath) != "recv_report.pdf" {
		t.Errorf("output name = %q, want recv_report.pdf", filepath.Base(outPath))
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("output differs from source (%d vs %d bytes)", len(got), len(payload))
	}

	sr := <-sendCh
	if sr.err != nil {
		t.Errorf("SendFileOver: %v", sr.err)
	}
	if sr.n != int64(len(payload)) {
		t.Errorf("sent %d bytes, want %d", sr.n, len(payload))
	}
}

func TestReceiveShortTransfer(t *testing.T) {
	payload := []byte("only a few bytes")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// A sender that announces more than it delivers.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write(payload)
		_ = conn.Close()
	}()

	dstDir := t.TempDir()
	announced := int64(len(payload)) + 100
	outPath, n, err := ReceiveFileFrom(ln.Addr().String(), "big.bin", announced, dstDir, discardDisplay)
	if !errors.Is(err, ErrShortTransfer) {
		t.Fatalf("err = %v, want ErrShortTransfer", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("received %d bytes, want %d", n, len(payload))
	}

	// The partial file is kept for inspection.
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read partial output: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("partial output differs from what was sent")
	}
}

func TestReceiveTruncatesOversend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write(bytes.Repeat([]byte("x"), 50))
		_ = conn.Close()
	}()

	// Only the announced byte count is read; the excess is discarded.
	outPath, n, err := ReceiveFileFrom(ln.Addr().String(), "small.bin", 10, t.TempDir(), discardDisplay)
	if err != nil {
		t.Fatalf("ReceiveFileFrom: %v", err)
	}
	if n != 10 {
		t.Errorf("received %d bytes, want 10", n)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("output is %d bytes, want 10", len(got))
	}
}

func TestSendMissingFile(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	if _, err := SendFileOver(ln, filepath.Join(t.TempDir(), "nope.txt"), discardDisplay); err == nil {
		t.Error("expected error for a missing source file")
	}
}
