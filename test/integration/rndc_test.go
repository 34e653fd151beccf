//go:build integration

// Package integration_test drives a real rndc-refd-style server over
// loopback TCP against the synchronous client wrapper, the way
// test/integration/server_test.go in the teacher repo exercises a real
// net.Listener rather than an in-memory bridge.
package integration_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/b1-systems/rndc-go/internal/client"
	"github.com/b1-systems/rndc-go/internal/server"
)

const testKey = "YWFiYw==" // base64("aabc")

func TestClientServerHandshakeOverTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	srv := server.New(server.Config{
		Key: testKey,
		Handler: func(command string) (string, bool) {
			if command == "status" {
				return "server up and running", false
			}
			return "unknown command", true
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()
	t.Cleanup(func() { <-done })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("net.SplitHostPort() error = %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("strconv.Atoi(%q) error = %v", portStr, err)
	}

	c := client.Client{Host: host, Port: port, Key: testKey, DialTimeout: 5 * time.Second}

	resp, err := c.Do("status")
	if err != nil {
		t.Fatalf("Do(\"status\") error = %v", err)
	}
	if resp != "server up and running" {
		t.Errorf("Do(\"status\") = %q, want %q", resp, "server up and running")
	}

	resp, err = c.Do("freeze zone.example")
	if err != nil {
		t.Fatalf("Do(\"freeze zone.example\") error = %v", err)
	}
	if resp != "unknown command" {
		t.Errorf("Do(\"freeze zone.example\") = %q, want %q", resp, "unknown command")
	}
}

func TestClientServerHandshakeBadKeyRejected(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}

	srv := server.New(server.Config{
		Key:     testKey,
		Handler: func(string) (string, bool) { return "ok", false },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()
	t.Cleanup(func() { <-done })

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("net.SplitHostPort() error = %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("strconv.Atoi(%q) error = %v", portStr, err)
	}

	c := client.Client{Host: host, Port: port, Key: "bm90dGhlcmlnaHRrZXk=", DialTimeout: 5 * time.Second}

	if _, err := c.Do("status"); err == nil {
		t.Fatal("Do() error = nil, want signature failure")
	}
}
