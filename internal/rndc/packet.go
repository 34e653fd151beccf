package rndc

import (
	"fmt"
	"time"
)

// Well-known sub-table and key names populated under the top-level
// packet data, per the RNDC wire protocol.
const (
	// CtrlKey is the top-level table holding control metadata the
	// session manages: serial, timestamp, expiry, and nonce.
	CtrlKey = "_ctrl"

	// DataKey is the top-level table holding the caller's payload,
	// conventionally a "type" key naming the command.
	DataKey = "_data"

	// ctrlSerialKey is the control serial number key.
	ctrlSerialKey = "_ser"
	// ctrlTimeKey is the control timestamp key (Unix seconds).
	ctrlTimeKey = "_tim"
	// ctrlExpiryKey is the control expiry key (Unix seconds).
	ctrlExpiryKey = "_exp"
	// ctrlNonceKey is the control nonce key.
	ctrlNonceKey = "_nonce"

	// expiryWindow is how far past _tim the packet's _exp is set.
	expiryWindow = 60 * time.Second
)

// Packet is the top-level logical RNDC object: a signing key, a
// protocol version, and a Data table conventionally split into a _ctrl
// sub-table (session-managed metadata) and a _data sub-table (the
// caller's payload). The _auth table is synthesized by EncodePacket and
// consumed by DecodePacket; it never appears in Data.
type Packet struct {
	// Key is the Base64-encoded HMAC-MD5 secret used to sign (encode)
	// or verify (decode) this packet.
	Key string

	// Version is the protocol version. Zero is treated as 1 by
	// EncodePacket; DecodePacket always returns the wire value, which
	// must be 1.
	Version int

	// Data holds the packet's top-level keys other than _auth,
	// conventionally _ctrl and _data.
	Data *Table
}

// NewPacket constructs a minimal Packet for key: version 1, with empty
// _ctrl and _data sub-tables already present.
func NewPacket(key string) *Packet {
	data := NewTableValue()
	data.Set(CtrlKey, NewTable(NewTableValue()))
	data.Set(DataKey, NewTable(NewTableValue()))
	return &Packet{Key: key, Version: 1, Data: data}
}

// dataWithoutAuth returns pkt.Data, guaranteeing it is non-nil and does
// not carry a caller-supplied "_auth" entry (the codec reserves that
// key).
func (pkt *Packet) dataWithoutAuth() *Table {
	if pkt.Data == nil {
		return NewTableValue()
	}
	if _, ok := pkt.Data.Get(authKey); !ok {
		return pkt.Data
	}
	clean := NewTableValue()
	for _, key := range pkt.Data.Keys() {
		if key == authKey {
			continue
		}
		v, _ := pkt.Data.Get(key)
		clean.Set(key, v)
	}
	return clean
}

// ctrl returns the packet's _ctrl sub-table, creating it if absent.
func (pkt *Packet) ctrl() *Table {
	if pkt.Data == nil {
		pkt.Data = NewTableValue()
	}
	t, ok := pkt.Data.GetTable(CtrlKey)
	if !ok {
		t = NewTableValue()
		pkt.Data.Set(CtrlKey, NewTable(t))
	}
	return t
}

// data returns the packet's _data sub-table, creating it if absent.
func (pkt *Packet) data() *Table {
	if pkt.Data == nil {
		pkt.Data = NewTableValue()
	}
	t, ok := pkt.Data.GetTable(DataKey)
	if !ok {
		t = NewTableValue()
		pkt.Data.Set(DataKey, NewTable(t))
	}
	return t
}

// SetNonce stores nonce under _ctrl._nonce as its decimal ASCII
// representation.
func (pkt *Packet) SetNonce(nonce uint32) {
	pkt.ctrl().Set(ctrlNonceKey, NewInt(int64(nonce)))
}

// Nonce returns the packet's _ctrl._nonce value and true, or (0, false)
// if absent or not a valid number.
func (pkt *Packet) Nonce() (uint32, bool) {
	ctrl, ok := pkt.Data.GetTable(CtrlKey)
	if !ok {
		return 0, false
	}
	v, ok := ctrl.Get(ctrlNonceKey)
	if !ok {
		return 0, false
	}
	n, err := v.Int()
	if err != nil {
		return 0, false
	}
	return uint32(n), true //nolint:gosec // G115: nonce is generated as a uint32.
}

// StampControl populates _ctrl._ser, _ctrl._tim, and _ctrl._exp from
// serial and now. Both should be populated on outgoing signed packets.
func (pkt *Packet) StampControl(serial uint32, now time.Time) {
	ctrl := pkt.ctrl()
	ctrl.Set(ctrlSerialKey, NewInt(int64(serial)))
	ctrl.Set(ctrlTimeKey, NewInt(now.Unix()))
	ctrl.Set(ctrlExpiryKey, NewInt(now.Add(expiryWindow).Unix()))
}

// Expiry returns the packet's _ctrl._exp as a time.Time and true, or the
// zero time and false if absent. Expiry validation is left to callers;
// this package's decode path never rejects an expired packet on its own.
func (pkt *Packet) Expiry() (time.Time, bool) {
	ctrl, ok := pkt.Data.GetTable(CtrlKey)
	if !ok {
		return time.Time{}, false
	}
	v, ok := ctrl.Get(ctrlExpiryKey)
	if !ok {
		return time.Time{}, false
	}
	n, err := v.Int()
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(n, 0), true
}

// SetCommand stores command under _data.type, the conventional location
// for the command string a client sends.
func (pkt *Packet) SetCommand(command string) {
	pkt.data().Set("type", NewString(command))
}

// Command returns the packet's _data.type value and true, or ("", false)
// if absent.
func (pkt *Packet) Command() (string, bool) {
	data, ok := pkt.Data.GetTable(DataKey)
	if !ok {
		return "", false
	}
	v, ok := data.Get("type")
	if !ok {
		return "", false
	}
	return v.String(), true
}

// ResponseText returns the response text conventionally carried at
// _data.text (success) or _data.err (failure), preferring text, along
// with true if either was present.
func (pkt *Packet) ResponseText() (string, bool) {
	data, ok := pkt.Data.GetTable(DataKey)
	if !ok {
		return "", false
	}
	if v, ok := data.Get("text"); ok {
		return v.String(), true
	}
	if v, ok := data.Get("err"); ok {
		return v.String(), true
	}
	return "", false
}

// SetResponseText stores text under _data.text (the success path) or,
// when isErr is true, under _data.err.
func (pkt *Packet) SetResponseText(text string, isErr bool) {
	key := "text"
	if isErr {
		key = "err"
	}
	pkt.data().Set(key, NewString(text))
}

// String renders a short human-readable summary of the packet for
// logging.
func (pkt *Packet) String() string {
	cmd, _ := pkt.Command()
	nonce, hasNonce := pkt.Nonce()
	if hasNonce {
		return fmt.Sprintf("Packet{version=%d command=%q nonce=%d}", pkt.Version, cmd, nonce)
	}
	return fmt.Sprintf("Packet{version=%d command=%q}", pkt.Version, cmd)
}
