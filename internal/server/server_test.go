package server_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/b1-systems/rndc-go/internal/client"
	"github.com/b1-systems/rndc-go/internal/rndc"
	"github.com/b1-systems/rndc-go/internal/server"
)

const testKey = "YWFiYw==" // base64("aabc")

func startTestServer(t *testing.T, handler rndc.CommandHandler) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	srv := server.New(server.Config{Key: testKey, Handler: handler})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return ln.Addr().String()
}

func TestServerRoundTrip(t *testing.T) {
	t.Parallel()

	addr := startTestServer(t, func(command string) (string, bool) {
		if command == "reload" {
			return "zones reloaded", false
		}
		return "unknown command", true
	})

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("net.SplitHostPort() error = %v", err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("strconv.Atoi(%q) error = %v", port, err)
	}

	c := client.Client{Host: host, Port: portNum, Key: testKey, DialTimeout: 2 * time.Second}

	resp, err := c.Do("reload")
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp != "zones reloaded" {
		t.Errorf("Do() = %q, want %q", resp, "zones reloaded")
	}
}

func TestServerRejectsBadKey(t *testing.T) {
	t.Parallel()

	addr := startTestServer(t, func(string) (string, bool) { return "ok", false })

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("net.SplitHostPort() error = %v", err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("strconv.Atoi(%q) error = %v", port, err)
	}

	c := client.Client{Host: host, Port: portNum, Key: "bm90dGhlcmlnaHRrZXk=", DialTimeout: 2 * time.Second}

	if _, err := c.Do("status"); err == nil {
		t.Fatal("Do() error = nil, want signature failure")
	}
}
