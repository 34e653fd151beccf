// Package rndc implements the core of BIND's Remote Name Daemon Control
// protocol, version 1: a length-prefixed, HMAC-MD5-authenticated
// request/response protocol for issuing administrative commands to a name
// server over TCP.
//
// The package is split into a pure value/codec layer (value.go, codec.go,
// auth.go) and a pure-function-driven session state machine (fsm.go,
// session.go). Neither layer performs I/O or blocks; callers pump bytes
// through a Session in response to the events it emits. See internal/client
// and internal/server for the TCP-facing collaborators that drive a Session.
package rndc
