package rndc

import "errors"

// Sentinel errors for packet construction and codec failures. These
// correspond to the error taxonomy in the RNDC v1 wire format: missing
// required configuration, type-validation failures caught at encode time,
// and wire-format failures caught at decode time.
var (
	// ErrMissingKey indicates a packet was constructed or a session
	// configured without the required HMAC key.
	ErrMissingKey = errors.New("missing required argument: key")

	// ErrMissingCommand indicates a client session was configured
	// without a command string.
	ErrMissingCommand = errors.New("missing required argument: command")

	// ErrBadKey indicates the configured key is not valid Base64.
	ErrBadKey = errors.New("key is not valid base64")

	// ErrBadArgumentType indicates a field that must be a table (data)
	// or a number (version, nonce) held some other Value kind or an
	// unparseable payload.
	ErrBadArgumentType = errors.New("bad argument type")

	// ErrUnknownDataType indicates encode was asked to serialize a
	// Value variant it does not recognize.
	ErrUnknownDataType = errors.New("unknown data type")

	// ErrShortRead indicates the buffer ended before a length-prefixed
	// field was fully present.
	ErrShortRead = errors.New("short read")

	// ErrBadMagic indicates the packet's version field is not 1.
	ErrBadMagic = errors.New("bad magic: unsupported version")

	// ErrBadSignature indicates the recomputed HMAC-MD5 digest did not
	// match the signature carried in the packet.
	ErrBadSignature = errors.New("bad signature")

	// ErrDuplicateKey indicates a table contained the same key twice.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrMissingAuth indicates a decoded packet's first top-level entry
	// was not the required "_auth" table.
	ErrMissingAuth = errors.New("missing _auth table")

	// ErrMissingNonce indicates a server's challenge did not carry a
	// nonce, or it was not a valid number. A client's response without
	// a valid nonce is reported as ErrNonceMismatch.
	ErrMissingNonce = errors.New("missing nonce")

	// ErrNonceMismatch indicates a server received a signed response
	// whose echoed nonce was absent or did not match the one it issued
	// for this session, which is how replay of an older response is
	// caught.
	ErrNonceMismatch = errors.New("nonce mismatch")

	// ErrMissingHandler indicates a server-role session was constructed
	// without a CommandHandler, which it needs to produce a result once
	// the handshake completes.
	ErrMissingHandler = errors.New("missing required argument: command handler")
)
