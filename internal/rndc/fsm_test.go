package rndc_test

import (
	"testing"

	"github.com/b1-systems/rndc-go/internal/rndc"
)

// TestStateString and TestEventKindString and TestRoleString exercise the
// small enum Stringer methods the rest of the package leans on for
// logging.

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s    rndc.State
		want string
	}{
		{rndc.StateStart, "Start"},
		{rndc.StateSentOpening, "SentOpening"},
		{rndc.StateSentResponse, "SentResponse"},
		{rndc.StateDone, "Done"},
		{rndc.StateFailed, "Failed"},
		{rndc.State(99), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}

func TestRoleString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r    rndc.Role
		want string
	}{
		{rndc.RoleClient, "client"},
		{rndc.RoleServer, "server"},
		{rndc.Role(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.r.String(); got != tc.want {
			t.Errorf("Role(%d).String() = %q, want %q", tc.r, got, tc.want)
		}
	}
}

func TestEventKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		k    rndc.EventKind
		want string
	}{
		{rndc.WantWrite, "want-write"},
		{rndc.WantRead, "want-read"},
		{rndc.WantFinish, "want-finish"},
		{rndc.WantError, "want-error"},
		{rndc.EventKind(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.k.String(); got != tc.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tc.k, got, tc.want)
		}
	}
}

// TestClientHandshakeEventOrder drives a full client-role session against
// a cooperating, hand-built server-role session purely through the
// Session API, and asserts the sequence of event kinds each side emits
// matches the documented transition table exactly.
func TestClientHandshakeEventOrder(t *testing.T) {
	t.Parallel()

	client, err := rndc.NewClientSession(testKey, "status")
	if err != nil {
		t.Fatalf("NewClientSession() error = %v", err)
	}
	server, err := rndc.NewServerSession(testKey, func(command string) (string, bool) {
		return "server up and running", false
	})
	if err != nil {
		t.Fatalf("NewServerSession() error = %v", err)
	}

	var clientKinds, serverKinds []rndc.EventKind

	cev, err := client.Start()
	if err != nil {
		t.Fatalf("client.Start() error = %v", err)
	}
	clientKinds = append(clientKinds, cev.Kind)

	sev, err := server.Start()
	if err != nil {
		t.Fatalf("server.Start() error = %v", err)
	}
	serverKinds = append(serverKinds, sev.Kind)

	// Leg 1: client's opening packet -> server.
	sev, err = server.Next(cev.Write)
	if err != nil {
		t.Fatalf("server.Next(opening) error = %v", err)
	}
	serverKinds = append(serverKinds, sev.Kind)

	cev, err = client.Next(nil)
	if err != nil {
		t.Fatalf("client.Next(write-done) error = %v", err)
	}
	clientKinds = append(clientKinds, cev.Kind)

	// Leg 2: server's challenge -> client.
	cev, err = client.Next(sev.Write)
	if err != nil {
		t.Fatalf("client.Next(challenge) error = %v", err)
	}
	clientKinds = append(clientKinds, cev.Kind)

	sev, err = server.Next(nil)
	if err != nil {
		t.Fatalf("server.Next(write-done) error = %v", err)
	}
	serverKinds = append(serverKinds, sev.Kind)

	// Leg 3: client's signed response -> server.
	sev, err = server.Next(cev.Write)
	if err != nil {
		t.Fatalf("server.Next(response) error = %v", err)
	}
	serverKinds = append(serverKinds, sev.Kind)

	cev, err = client.Next(nil)
	if err != nil {
		t.Fatalf("client.Next(write-done) error = %v", err)
	}
	clientKinds = append(clientKinds, cev.Kind)

	// Leg 4: server's result -> client.
	cev, err = client.Next(sev.Write)
	if err != nil {
		t.Fatalf("client.Next(result) error = %v", err)
	}
	clientKinds = append(clientKinds, cev.Kind)

	sev, err = server.Next(nil)
	if err != nil {
		t.Fatalf("server.Next(write-done) error = %v", err)
	}
	serverKinds = append(serverKinds, sev.Kind)

	wantClient := []rndc.EventKind{
		rndc.WantWrite, rndc.WantRead, rndc.WantWrite, rndc.WantRead, rndc.WantFinish,
	}
	wantServer := []rndc.EventKind{
		rndc.WantRead, rndc.WantWrite, rndc.WantRead, rndc.WantWrite, rndc.WantFinish,
	}

	assertKinds(t, "client", clientKinds, wantClient)
	assertKinds(t, "server", serverKinds, wantServer)

	if !client.Done() {
		t.Error("client.Done() = false after handshake completes")
	}
	if !server.Done() {
		t.Error("server.Done() = false after handshake completes")
	}
	if cev.Response != "server up and running" {
		t.Errorf("client final Response = %q, want %q", cev.Response, "server up and running")
	}
}

func assertKinds(t *testing.T, who string, got, want []rndc.EventKind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s event kinds = %v, want %v", who, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s event[%d] = %v, want %v", who, i, got[i], want[i])
		}
	}
}

// TestNextAfterTerminalIsNoOp covers the documented terminal behavior:
// once a session reaches Done or Failed, further Next calls return the
// zero Event and do not panic or change state.
func TestNextAfterTerminalIsNoOp(t *testing.T) {
	t.Parallel()

	client, err := rndc.NewClientSession(testKey, "status")
	if err != nil {
		t.Fatalf("NewClientSession() error = %v", err)
	}

	if _, err := client.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Force the session straight to Failed by feeding it garbage for its
	// read step instead of running the full handshake.
	ev, err := client.Next(nil)
	if err != nil {
		t.Fatalf("Next(write-done) error = %v", err)
	}
	if ev.Kind != rndc.WantRead {
		t.Fatalf("Kind = %v, want WantRead", ev.Kind)
	}
	ev, err = client.Next([]byte("not a valid packet"))
	if err != nil {
		t.Fatalf("Next(garbage) error = %v", err)
	}
	if ev.Kind != rndc.WantError {
		t.Fatalf("Kind = %v, want WantError", ev.Kind)
	}
	if !client.Failed() {
		t.Fatal("Failed() = false after decode error")
	}

	again, err := client.Next([]byte("anything"))
	if err != nil {
		t.Fatalf("Next() after terminal error = %v, want nil", err)
	}
	if again.Kind != 0 || again.Write != nil || again.Response != "" || again.Err != nil {
		t.Errorf("Next() after terminal = %+v, want zero Event", again)
	}
}

// TestStartCalledTwiceErrors covers that calling Start more than once
// reports an error instead of silently restarting the handshake.
func TestStartCalledTwiceErrors(t *testing.T) {
	t.Parallel()

	client, err := rndc.NewClientSession(testKey, "status")
	if err != nil {
		t.Fatalf("NewClientSession() error = %v", err)
	}
	if _, err := client.Start(); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := client.Start(); err == nil {
		t.Fatal("second Start() error = nil, want non-nil")
	}
}
