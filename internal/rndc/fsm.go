package rndc

// This file implements the shape of the RNDC v1 handshake as a pure
// transition table -- no I/O, no Session dependency. Session (in
// session.go) drives this table and fills in the packet-specific work
// (building, signing, decoding, validating) that the table itself is
// agnostic to. Keeping the table pure makes the handshake's event order
// trivially testable without a network or even a mock transport.

// Role selects which side of the handshake a Session plays.
type Role uint8

const (
	// RoleClient initiates the handshake: sends the opening packet,
	// then the signed response.
	RoleClient Role = iota + 1

	// RoleServer responds to the handshake: issues the nonce-bearing
	// challenge, then the result.
	RoleServer
)

// String returns the human-readable name of the role.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// State is one of the session's five lifecycle states.
type State uint8

const (
	// StateStart is the session's initial state, before Start is called.
	StateStart State = iota

	// StateSentOpening covers the handshake's first leg: for a client,
	// the opening packet carrying the command but no nonce; for a server,
	// receiving that packet and replying with a signed, nonce-bearing
	// challenge.
	StateSentOpening

	// StateSentResponse covers the handshake's second leg: for a
	// client, the signed packet echoing the nonce and command; for a
	// server, validating that packet and replying with the result.
	StateSentResponse

	// StateDone is the terminal success state. A session reaches it at
	// most once.
	StateDone

	// StateFailed is the terminal error state. A session reaches it at
	// most once; no further events are emitted afterward.
	StateFailed
)

// stateNames maps State values to human-readable strings.
var stateNames = [...]string{
	StateStart:        "Start",
	StateSentOpening:   "SentOpening",
	StateSentResponse:  "SentResponse",
	StateDone:          "Done",
	StateFailed:        "Failed",
}

// String returns the human-readable name of the state.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Trigger is the caller action that advances the state machine: Start is
// issued once, WriteDone after the caller finishes a WantWrite, and Read
// after the caller supplies bytes for a WantRead.
type Trigger uint8

const (
	// TriggerStart corresponds to calling Session.Start.
	TriggerStart Trigger = iota + 1

	// TriggerWriteDone corresponds to calling Session.Next with no
	// buffer, after having sent the bytes from a WantWrite event.
	TriggerWriteDone

	// TriggerRead corresponds to calling Session.Next with the bytes
	// read in response to a WantRead event.
	TriggerRead
)

// EventKind identifies which of the four outbound events a step
// produces.
type EventKind uint8

const (
	// WantWrite asks the caller to send bytes and then call Next().
	WantWrite EventKind = iota + 1

	// WantRead asks the caller to read a complete packet and call
	// Next(buf).
	WantRead

	// WantFinish reports that the session completed successfully;
	// no further events follow.
	WantFinish

	// WantError reports that the session failed; no further events
	// follow.
	WantError
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case WantWrite:
		return "want-write"
	case WantRead:
		return "want-read"
	case WantFinish:
		return "want-finish"
	case WantError:
		return "want-error"
	default:
		return "unknown"
	}
}

// step is a transition-table key: current state, role, and the trigger
// that fires it.
type step struct {
	state   State
	role    Role
	trigger Trigger
}

// stepResult is a transition-table value: the state to move to and the
// kind of event that transition produces. The event's payload (bytes,
// response text, or error) is not part of the pure table -- Session
// supplies it based on the packet it just built or decoded.
type stepResult struct {
	newState State
	event    EventKind
}

// handshakeTable is the complete RNDC v1 handshake transition table. It
// is symmetric between client and server: both roles
// alternate one WantWrite/WantRead pair per leg, and reach Done after
// exactly two legs.
//
//nolint:gochecknoglobals // Transition table is intentionally package-level.
var handshakeTable = map[step]stepResult{
	// Client: Start -> SentOpening -> SentResponse -> Done.
	{StateStart, RoleClient, TriggerStart}:           {StateSentOpening, WantWrite},
	{StateSentOpening, RoleClient, TriggerWriteDone}: {StateSentOpening, WantRead},
	{StateSentOpening, RoleClient, TriggerRead}:      {StateSentResponse, WantWrite},
	{StateSentResponse, RoleClient, TriggerWriteDone}: {StateSentResponse, WantRead},
	{StateSentResponse, RoleClient, TriggerRead}:      {StateDone, WantFinish},

	// Server: Start -> SentOpening -> SentResponse -> Done, symmetric.
	{StateStart, RoleServer, TriggerStart}:            {StateSentOpening, WantRead},
	{StateSentOpening, RoleServer, TriggerRead}:        {StateSentOpening, WantWrite},
	{StateSentOpening, RoleServer, TriggerWriteDone}:   {StateSentResponse, WantRead},
	{StateSentResponse, RoleServer, TriggerRead}:       {StateSentResponse, WantWrite},
	{StateSentResponse, RoleServer, TriggerWriteDone}:  {StateDone, WantFinish},
}

// advance looks up the transition for (state, role, trigger). ok is
// false if the combination is not in the table, e.g. a trigger delivered
// to a session already in StateDone or StateFailed, or a trigger out of
// order. Session.Next returns early as a no-op for the terminal states
// and fails the session for any other combination that is missing.
func advance(state State, role Role, trigger Trigger) (stepResult, bool) {
	r, ok := handshakeTable[step{state, role, trigger}]
	return r, ok
}
