package rndc

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// CommandHandler produces the result text for a command a server-role
// Session received in the client's opening packet. isErr selects whether
// the text is stored at _data.text (false) or _data.err (true) in the
// outgoing result packet -- the core itself is opaque to command
// semantics; this is the one hook a server deployment supplies.
type CommandHandler func(command string) (text string, isErr bool)

// Event is the outbound signal a Session emits from Start or Next: one of
// four kinds, each carrying only the payload relevant to its kind.
// Callers switch on Kind rather than implementing four callback methods.
type Event struct {
	// Kind identifies which of the four events this is.
	Kind EventKind

	// Write holds the bytes to send, valid when Kind == WantWrite.
	Write []byte

	// Response holds the completed response text, valid when
	// Kind == WantFinish.
	Response string

	// Err holds the failure reason, valid when Kind == WantError.
	Err error
}

// Session is the pure, I/O-free RNDC v1 handshake state machine. It
// holds no socket and performs no blocking operation: all
// suspension points are the Event values returned from Start and Next.
// A Session is single-use -- it reaches StateDone or StateFailed exactly
// once -- and is not safe for concurrent use by multiple goroutines.
type Session struct {
	role Role
	key  string

	// command is the command string: supplied by the caller for a
	// client session, learned from the decoded opening packet for a
	// server session.
	command string

	// nonce is the handshake nonce: for a client, learned from the
	// server's challenge and echoed back; for a server, issued in the
	// challenge (configured via WithNonce, or generated in Start).
	nonce      uint32
	nonceFixed bool

	// commandHandler produces the result for a server session once the
	// signed response has been validated. nil for client sessions.
	commandHandler CommandHandler

	// finishText is the result text a server session already sent in
	// its WantWrite(result); it is surfaced again in the WantFinish
	// event once the caller reports that write as done.
	finishText string

	// serial is a per-session counter stamped into _ctrl._ser on every
	// outgoing signed packet.
	serial uint32

	state State
}

// SessionOption configures optional Session parameters.
type SessionOption func(*Session)

// WithNonce fixes the nonce a server session issues in its challenge,
// instead of generating a random one in Start. Has no effect on a
// client session.
func WithNonce(nonce uint32) SessionOption {
	return func(s *Session) {
		s.nonce = nonce
		s.nonceFixed = true
	}
}

// NewClientSession constructs a Session in the client role, which on
// Start sends command signed with key and, after the handshake
// completes, yields the server's response text via a WantFinish event.
// Returns ErrMissingKey or ErrMissingCommand if either is empty;
// configuration errors are raised synchronously at construction.
func NewClientSession(key, command string, opts ...SessionOption) (*Session, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if command == "" {
		return nil, ErrMissingCommand
	}
	s := &Session{role: RoleClient, key: key, command: command, state: StateStart}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewServerSession constructs a Session in the server role, which on
// Start waits to read a client's opening packet, issues a nonce-bearing
// challenge, validates the signed response, and invokes handler to
// produce the result it writes back. Returns ErrMissingKey or
// ErrMissingHandler if either is unset.
func NewServerSession(key string, handler CommandHandler, opts ...SessionOption) (*Session, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if handler == nil {
		return nil, ErrMissingHandler
	}
	s := &Session{role: RoleServer, key: key, commandHandler: handler, state: StateStart}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Role reports which side of the handshake this session plays.
func (s *Session) Role() Role { return s.role }

// State reports the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Command returns the command string: the one the client was
// constructed with, or the one a server session learned from the
// client's opening packet (empty until then).
func (s *Session) Command() string { return s.command }

// Done reports whether the session has reached its terminal success
// state.
func (s *Session) Done() bool { return s.state == StateDone }

// Failed reports whether the session has reached its terminal failure
// state.
func (s *Session) Failed() bool { return s.state == StateFailed }

// Start enters the state machine, emitting its first event: WantWrite
// for a client (the opening packet), WantRead for a server (waiting for
// that packet). It is an error to call Start more than once.
func (s *Session) Start() (Event, error) {
	if s.state != StateStart {
		return Event{}, fmt.Errorf("rndc: Start called in state %s", s.state)
	}
	res, ok := advance(s.state, s.role, TriggerStart)
	if !ok {
		return Event{}, fmt.Errorf("rndc: no start transition for role %s", s.role)
	}
	s.state = res.newState

	if s.role == RoleServer {
		return Event{Kind: WantRead}, nil
	}

	pkt := s.buildOpeningPacket()
	out, err := EncodePacket(pkt)
	if err != nil {
		return s.fail(fmt.Errorf("encode opening packet: %w", err)), nil
	}
	return Event{Kind: WantWrite, Write: out}, nil
}

// Next is the caller-driven continuation: pass nil after finishing a
// WantWrite, or the bytes of a complete packet after a WantRead. Once the
// session has reached Done or Failed, Next is a no-op and returns the
// zero Event.
func (s *Session) Next(buf []byte) (Event, error) {
	if s.state == StateDone || s.state == StateFailed {
		return Event{}, nil
	}

	trigger := TriggerWriteDone
	if buf != nil {
		trigger = TriggerRead
	}

	res, ok := advance(s.state, s.role, trigger)
	if !ok {
		return s.fail(fmt.Errorf("rndc: unexpected call in state %s (role %s)", s.state, s.role)), nil
	}

	if trigger == TriggerWriteDone {
		s.state = res.newState
		if res.event == WantFinish {
			return Event{Kind: WantFinish, Response: s.finishText}, nil
		}
		return Event{Kind: res.event}, nil
	}

	return s.handleRead(buf, res), nil
}

// fail transitions the session to StateFailed and returns the
// corresponding WantError event. Any codec, HMAC, or nonce error is
// fatal for the session and terminal.
func (s *Session) fail(err error) Event {
	s.state = StateFailed
	return Event{Kind: WantError, Err: err}
}

// handleRead dispatches a TriggerRead step to the role- and state-
// specific handler that decodes buf and builds the next outbound packet.
func (s *Session) handleRead(buf []byte, res stepResult) Event {
	switch {
	case s.role == RoleClient && s.state == StateSentOpening:
		return s.clientHandleChallenge(buf, res)
	case s.role == RoleClient && s.state == StateSentResponse:
		return s.clientHandleResult(buf, res)
	case s.role == RoleServer && s.state == StateSentOpening:
		return s.serverHandleOpening(buf, res)
	case s.role == RoleServer && s.state == StateSentResponse:
		return s.serverHandleResponse(buf, res)
	default:
		return s.fail(fmt.Errorf("rndc: unexpected read in state %s (role %s)", s.state, s.role))
	}
}

// clientHandleChallenge decodes the server's nonce-bearing challenge and
// replies with the signed response echoing that nonce plus the command.
func (s *Session) clientHandleChallenge(buf []byte, res stepResult) Event {
	pkt, err := DecodePacket(buf, s.key)
	if err != nil {
		return s.fail(fmt.Errorf("decode challenge: %w", err))
	}
	nonce, ok := pkt.Nonce()
	if !ok {
		return s.fail(fmt.Errorf("challenge: %w", ErrMissingNonce))
	}
	s.nonce = nonce
	s.state = res.newState

	out, err := EncodePacket(s.buildSignedResponsePacket())
	if err != nil {
		return s.fail(fmt.Errorf("encode response: %w", err))
	}
	return Event{Kind: WantWrite, Write: out}
}

// clientHandleResult decodes the server's final result packet and
// completes the session.
func (s *Session) clientHandleResult(buf []byte, res stepResult) Event {
	pkt, err := DecodePacket(buf, s.key)
	if err != nil {
		return s.fail(fmt.Errorf("decode result: %w", err))
	}
	text, _ := pkt.ResponseText()
	s.state = res.newState
	return Event{Kind: WantFinish, Response: text}
}

// serverHandleOpening decodes the client's opening packet, learns the
// command, and replies with a nonce-bearing challenge.
func (s *Session) serverHandleOpening(buf []byte, res stepResult) Event {
	pkt, err := DecodePacket(buf, s.key)
	if err != nil {
		return s.fail(fmt.Errorf("decode opening packet: %w", err))
	}
	cmd, ok := pkt.Command()
	if !ok {
		return s.fail(fmt.Errorf("opening packet: %w", ErrMissingCommand))
	}
	s.command = cmd

	if !s.nonceFixed {
		n, err := generateNonce()
		if err != nil {
			return s.fail(fmt.Errorf("generate nonce: %w", err))
		}
		s.nonce = n
	}
	s.state = res.newState

	out, err := EncodePacket(s.buildChallengePacket())
	if err != nil {
		return s.fail(fmt.Errorf("encode challenge: %w", err))
	}
	return Event{Kind: WantWrite, Write: out}
}

// serverHandleResponse decodes the client's signed response, validates
// the echoed nonce, invokes the command handler, and replies with the
// result. The server refuses any response whose nonce does not match
// the one it issued.
func (s *Session) serverHandleResponse(buf []byte, res stepResult) Event {
	pkt, err := DecodePacket(buf, s.key)
	if err != nil {
		return s.fail(fmt.Errorf("decode response: %w", err))
	}
	nonce, ok := pkt.Nonce()
	if !ok || nonce != s.nonce {
		return s.fail(fmt.Errorf("response: %w", ErrNonceMismatch))
	}

	text, isErr := s.commandHandler(s.command)
	s.finishText = text
	s.state = res.newState

	out, err := EncodePacket(s.buildResultPacket(text, isErr))
	if err != nil {
		return s.fail(fmt.Errorf("encode result: %w", err))
	}
	return Event{Kind: WantWrite, Write: out}
}

// nextSerial returns the next _ctrl._ser value for this session,
// incrementing the internal counter.
func (s *Session) nextSerial() uint32 {
	s.serial++
	return s.serial
}

// buildOpeningPacket builds the client's opening packet carrying the
// command and no nonce. Like every packet, it is signed by EncodePacket.
func (s *Session) buildOpeningPacket() *Packet {
	pkt := NewPacket(s.key)
	pkt.SetCommand(s.command)
	pkt.StampControl(s.nextSerial(), time.Now())
	return pkt
}

// buildChallengePacket builds the server's nonce-bearing challenge.
func (s *Session) buildChallengePacket() *Packet {
	pkt := NewPacket(s.key)
	pkt.SetNonce(s.nonce)
	pkt.StampControl(s.nextSerial(), time.Now())
	return pkt
}

// buildSignedResponsePacket builds the client's signed response, echoing
// the server's nonce plus the command.
func (s *Session) buildSignedResponsePacket() *Packet {
	pkt := NewPacket(s.key)
	pkt.SetNonce(s.nonce)
	pkt.SetCommand(s.command)
	pkt.StampControl(s.nextSerial(), time.Now())
	return pkt
}

// buildResultPacket builds the server's final result packet.
func (s *Session) buildResultPacket(text string, isErr bool) *Packet {
	pkt := NewPacket(s.key)
	pkt.SetResponseText(text, isErr)
	pkt.StampControl(s.nextSerial(), time.Now())
	return pkt
}

// generateNonce returns a fresh random 32-bit nonce. The nonce binds a
// response to the challenge that produced it; crypto/rand is used so a
// nonce is not predictable to a party attempting to forge a response
// ahead of time.
func generateNonce() (uint32, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}
