package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// staticResolver returns a fixed external address without any network.
type staticResolver struct{ addr netip.Addr }

func (r staticResolver) Resolve(context.Context) (netip.Addr, error) { return r.addr, nil }

func collectDisplay() (Display, chan string) {
	lines := make(chan string, 32)
	return DisplayFunc(func(s string) { lines <- s }), lines
}

func waitForLine(t *testing.T, lines <-chan string, substr string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-lines:
			if strings.Contains(got, substr) {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for display line containing %q", substr)
		}
	}
}

func TestConnectRefusesOverlap(t *testing.T) {
	fs := startFakeServer(t)
	disp, _ := collectDisplay()
	e := NewEngine(Options{
		Display:  disp,
		Resolver: staticResolver{netip.MustParseAddr("198.51.100.2")},
	})

	start := make(chan struct{})
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- e.Connect(fs.ln.Addr().String(), "alice")
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	// Exactly one call may win; the other fails instead of replacing
	// (and leaking) the winner's connection.
	var succeeded int
	for err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d Connect calls succeeded, want exactly 1", succeeded)
	}
	if !e.Connected() {
		t.Error("engine not connected after the winning call")
	}

	if err := e.Connect(fs.ln.Addr().String(), "alice"); err == nil {
		t.Error("Connect while connected succeeded, want error")
	}
	e.Disconnect()
}

func TestTransferPanicBecomesDisplayEvent(t *testing.T) {
	disp, lines := collectDisplay()
	e := NewEngine(Options{Display: disp})

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer e.recoverTransferPanic()
		panic("disk on fire")
	}()
	<-done

	select {
	case got := <-lines:
		want := "[SERVER] File transfer failed: disk on fire"
		if got != want {
			t.Errorf("display line = %q, want %q", got, want)
		}
	default:
		t.Fatal("recovered panic did not produce a display event")
	}
}

func TestHandleLineFileAlertReceives(t *testing.T) {
	payload := []byte("alert-driven transfer payload")
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
		_, _ = conn.Write(payload)
		_ = conn.Close()
	}()

	dir := t.TempDir()
	disp, lines := collectDisplay()
	e := NewEngine(Options{Display: disp, DownloadDir: dir})

	port := ln.Addr().(*net.TCPAddr).Port
	e.handleLine(fmt.Sprintf("FILE_ALERT:bob:alert.txt:%d:127.0.0.1:%d", len(payload), port))

	waitForLine(t, lines, "Receiving file 'alert.txt' from bob")
	waitForLine(t, lines, "File received successfully as recv_alert.txt")

	got, err := os.ReadFile(filepath.Join(dir, "recv_alert.txt"))
	if err != nil {
		t.Fatalf("read received file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("received %d bytes, want %d", len(got), len(payload))
	}
}

func TestHandleLineOrdinaryAndInvalid(t *testing.T) {
	disp, lines := collectDisplay()
	e := NewEngine(Options{Display: disp})

	e.handleLine("[SERVER] hello")
	if got := <-lines; got != "[SERVER] hello" {
		t.Errorf("ordinary line = %q", got)
	}

	e.handleLine("FILE_ALERT:bob:bad:fields")
	if got := <-lines; got != "[SERVER] Invalid file alert format received." {
		t.Errorf("invalid alert line = %q", got)
	}
}

func TestSendFileListenerReadyWhenRequestSent(t *testing.T) {
	fs := startFakeServer(t)
	disp, lines := collectDisplay()

	spare, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := spare.Addr().(*net.TCPAddr).Port
	_ = spare.Close()

	e := NewEngine(Options{
		Display:      disp,
		Resolver:     staticResolver{netip.MustParseAddr("127.0.0.1")},
		TransferPort: port,
	})
	if err := e.Connect(fs.ln.Addr().String(), "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer e.Disconnect()
	if got := fs.nextLine(t); got != "alice" {
		t.Fatalf("first line = %q, want the nickname", got)
	}
	waitForLine(t, lines, "External IP registered")

	payload := bytes.Repeat([]byte("z"), 100)
	srcPath := filepath.Join(t.TempDir(), "send.bin")
	if err := os.WriteFile(srcPath, payload, 0o600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := e.SendFile("bob", srcPath); err != nil {
		t.Fatalf("SendFile: %v", err)
	}

	// The request line goes out only after the rendezvous socket is
	// bound, so a receiver reacting to it can connect immediately.
	req := fs.nextLine(t)
	want := fmt.Sprintf("FILE_REQ:bob:send.bin:%d:127.0.0.1:%d", len(payload), port)
	if req != want {
		t.Fatalf("request line = %q, want %q", req, want)
	}

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		t.Fatalf("dial announced port: %v", err)
	}
	got, err := io.ReadAll(conn)
	_ = conn.Close()
	if err != nil {
		t.Fatalf("read transfer: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("received %d bytes, want %d", len(got), len(payload))
	}
	waitForLine(t, lines, "File sent successfully")
}

func TestSendFileRequiresExternalAddress(t *testing.T) {
	fs := startFakeServer(t)
	disp, lines := collectDisplay()
	e := NewEngine(Options{
		Display:  disp,
		Resolver: failingResolver{},
	})
	if err := e.Connect(fs.ln.Addr().String(), "alice"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer e.Disconnect()
	fs.nextLine(t) // nickname

	if err := e.SendFile("bob", "whatever.txt"); err == nil {
		t.Error("SendFile without a resolved address succeeded")
	}
	waitForLine(t, lines, "External IP not ready")
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context) (netip.Addr, error) {
	return netip.Addr{}, errors.New("no route to resolver")
}
