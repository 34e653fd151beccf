package rndc

import (
	"encoding/binary"
	"fmt"
)

// lengthPrefixSize is the size, in bytes, of the packet's outer u32
// length prefix.
const lengthPrefixSize = 4

// versionSize is the size, in bytes, of the body's leading version
// field.
const versionSize = 4

// keyLenSize is the size, in bytes, of a table entry's key-length
// prefix.
const keyLenSize = 1

// valueHeaderSize is the size, in bytes, of a value's type+length
// header (1-byte type tag, 4-byte big-endian payload length).
const valueHeaderSize = 5

const (
	authKey = "_auth"
	hmd5Key = "hmd5"
)

// EncodeValue serializes v's wire representation (type byte, 4-byte
// big-endian length, payload) onto dst, recursing into tables. Lists are
// a decode-only variant; encoding one reports ErrUnknownDataType naming
// the variant, which is how this package surfaces the wire protocol's
// "unsupported leaf type" failure in a language whose Value type is
// otherwise a closed union.
func EncodeValue(dst []byte, v Value) ([]byte, error) {
	switch v.kind {
	case KindBinary:
		dst = append(dst, byte(KindBinary))
		dst = appendUint32(dst, uint32(len(v.binary))) //nolint:gosec // G115: bounded by 2^32-1 per spec.
		dst = append(dst, v.binary...)
		return dst, nil

	case KindTable:
		body, err := encodeTableBody(v.table)
		if err != nil {
			return nil, err
		}
		dst = append(dst, byte(KindTable))
		dst = appendUint32(dst, uint32(len(body))) //nolint:gosec // G115: bounded by 2^32-1 per spec.
		dst = append(dst, body...)
		return dst, nil

	default:
		return nil, fmt.Errorf("encode %s: %w", v.kind, ErrUnknownDataType)
	}
}

// encodeTableBody serializes t's entries in insertion order, without any
// enclosing type/length wrapper (table_body in the wire grammar).
func encodeTableBody(t *Table) ([]byte, error) {
	var body []byte
	for _, e := range t.entries {
		if len(e.key) > 0xFF {
			return nil, fmt.Errorf("key %q exceeds 255 bytes: %w", e.key, ErrBadArgumentType)
		}
		body = append(body, byte(len(e.key)))
		body = append(body, e.key...)

		var err error
		body, err = EncodeValue(body, e.value)
		if err != nil {
			return nil, fmt.Errorf("encode table key %q: %w", e.key, err)
		}
	}
	return body, nil
}

func appendUint32(dst []byte, n uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return append(dst, b[:]...)
}

// EncodePacket serializes pkt into its signed, length-prefixed wire
// form. The _auth table is synthesized by this function -- callers
// populate pkt.Data with only their own top-level keys (conventionally
// _ctrl and _data); any "_auth" key already present in pkt.Data is
// ignored, since the codec owns that table's placement and contents.
func EncodePacket(pkt *Packet) ([]byte, error) {
	if pkt.Key == "" {
		return nil, ErrMissingKey
	}
	key, err := decodeKey(pkt.Key)
	if err != nil {
		return nil, err
	}

	version := pkt.Version
	if version == 0 {
		version = 1
	}

	rest, err := encodeTableBody(pkt.dataWithoutAuth())
	if err != nil {
		return nil, err
	}

	body := make([]byte, 0, versionSize+lengthPrefixSize+len(rest)+256)
	body = appendUint32(body, uint32(version)) //nolint:gosec // G115: version is a small positive int.

	// _auth entry, header: klen + "_auth" + type(Table) + vlen.
	body = append(body, byte(len(authKey)))
	body = append(body, authKey...)
	body = append(body, byte(KindTable))

	// hmd5 sub-entry: klen + "hmd5" + type(Binary) + vlen(88) + zero slot.
	hmd5Entry := make([]byte, 0, keyLenSize+len(hmd5Key)+valueHeaderSize+SignatureSlotLen)
	hmd5Entry = append(hmd5Entry, byte(len(hmd5Key)))
	hmd5Entry = append(hmd5Entry, hmd5Key...)
	hmd5Entry = append(hmd5Entry, byte(KindBinary))
	hmd5Entry = appendUint32(hmd5Entry, SignatureSlotLen)
	sigSlotOffsetInEntry := len(hmd5Entry)
	hmd5Entry = append(hmd5Entry, make([]byte, SignatureSlotLen)...)

	body = appendUint32(body, uint32(len(hmd5Entry))) //nolint:gosec // G115: fixed small size.
	authEntryValueStart := len(body)
	body = append(body, hmd5Entry...)

	sigSlotOffset := authEntryValueStart + sigSlotOffsetInEntry
	body = append(body, rest...)

	slot := buildSignatureSlot(key, body[sigSlotOffset+SignatureSlotLen:])
	copy(body[sigSlotOffset:sigSlotOffset+SignatureSlotLen], slot)

	out := make([]byte, 0, lengthPrefixSize+len(body))
	out = appendUint32(out, uint32(len(body))) //nolint:gosec // G115: bounded by 2^32-1 per spec.
	out = append(out, body...)
	return out, nil
}

// DecodePacket parses a complete, length-prefixed wire packet, verifies
// its HMAC-MD5 signature against key, and returns the reconstructed
// Packet. key must be the same Base64-encoded secret the sender signed
// with; a different (or malformed) key always yields ErrBadSignature or
// ErrBadKey respectively, never a silently-wrong Packet.
func DecodePacket(buf []byte, key string) (*Packet, error) {
	if len(buf) < lengthPrefixSize {
		return nil, fmt.Errorf("read length prefix: %w", ErrShortRead)
	}
	length := binary.BigEndian.Uint32(buf)
	if uint64(len(buf)) < uint64(lengthPrefixSize)+uint64(length) {
		return nil, fmt.Errorf("read body (want %d bytes): %w", length, ErrShortRead)
	}
	body := buf[lengthPrefixSize : lengthPrefixSize+length]

	if len(body) < versionSize {
		return nil, fmt.Errorf("read version: %w", ErrShortRead)
	}
	version := binary.BigEndian.Uint32(body)
	if version != 1 {
		return nil, fmt.Errorf("version %d: %w", version, ErrBadMagic)
	}

	rawKey, err := decodeKey(key)
	if err != nil {
		return nil, err
	}

	sigSlot, afterAuth, err := extractAuthSlot(body[versionSize:])
	if err != nil {
		return nil, err
	}

	if err := verifySignatureSlot(rawKey, afterAuth, sigSlot); err != nil {
		return nil, err
	}

	data, _, err := decodeTableBody(afterAuth)
	if err != nil {
		return nil, fmt.Errorf("decode packet body: %w", err)
	}

	return &Packet{Key: key, Version: int(version), Data: data}, nil
}

// extractAuthSlot decodes the leading "_auth" { "hmd5": <88 bytes> }
// entry from rest (the body immediately following the version field). It
// returns the 88-byte signature payload as found on the wire (unzeroed)
// and the remaining bytes of rest that followed the _auth entry --
// exactly the range the signature covers.
func extractAuthSlot(rest []byte) (sigSlot, afterAuth []byte, err error) {
	key, value, tail, err := decodeEntry(rest)
	if err != nil {
		return nil, nil, fmt.Errorf("decode _auth entry: %w", err)
	}
	if key != authKey {
		return nil, nil, fmt.Errorf("first top-level key is %q, not %q: %w", key, authKey, ErrMissingAuth)
	}
	authTable, ok := value.Table()
	if !ok {
		return nil, nil, fmt.Errorf("%q value is not a table: %w", authKey, ErrMissingAuth)
	}
	if authTable.Len() != 1 {
		return nil, nil, fmt.Errorf("%q table has %d entries, want 1: %w", authKey, authTable.Len(), ErrMissingAuth)
	}
	hmd5, ok := authTable.Get(hmd5Key)
	if !ok {
		return nil, nil, fmt.Errorf("%q missing %q: %w", authKey, hmd5Key, ErrMissingAuth)
	}
	sigSlot, ok = hmd5.Binary()
	if !ok {
		return nil, nil, fmt.Errorf("%q.%q is not a binary string: %w", authKey, hmd5Key, ErrMissingAuth)
	}
	return sigSlot, tail, nil
}

// decodeEntry decodes a single key/value table entry (klen, key, value)
// from the front of buf and returns the remainder.
func decodeEntry(buf []byte) (key string, v Value, rest []byte, err error) {
	if len(buf) < keyLenSize {
		return "", Value{}, nil, ErrShortRead
	}
	klen := int(buf[0])
	buf = buf[keyLenSize:]
	if len(buf) < klen {
		return "", Value{}, nil, ErrShortRead
	}
	key = string(buf[:klen])
	buf = buf[klen:]

	v, rest, err = decodeValue(buf)
	if err != nil {
		return "", Value{}, nil, err
	}
	return key, v, rest, nil
}

// decodeValue decodes a single type+length+payload value from the front
// of buf and returns the remainder.
func decodeValue(buf []byte) (Value, []byte, error) {
	if len(buf) < 1+4 {
		return Value{}, nil, ErrShortRead
	}
	kind := Kind(buf[0])
	vlen := binary.BigEndian.Uint32(buf[1:5])
	buf = buf[5:]
	if uint64(len(buf)) < uint64(vlen) {
		return Value{}, nil, ErrShortRead
	}
	payload := buf[:vlen]
	rest := buf[vlen:]

	switch kind {
	case KindBinary:
		return NewBinary(payload), rest, nil
	case KindTable:
		t, _, err := decodeTableBody(payload)
		if err != nil {
			return Value{}, nil, err
		}
		return NewTable(t), rest, nil
	case KindList:
		items, err := decodeListBody(payload)
		if err != nil {
			return Value{}, nil, err
		}
		return NewList(items), rest, nil
	default:
		return Value{}, nil, fmt.Errorf("type byte %d: %w", kind, ErrUnknownDataType)
	}
}

// decodeTableBody decodes a sequence of key/value entries occupying the
// whole of buf (table_body in the wire grammar), rejecting duplicate
// keys.
func decodeTableBody(buf []byte) (*Table, []byte, error) {
	t := NewTableValue()
	for len(buf) > 0 {
		key, v, rest, err := decodeEntry(buf)
		if err != nil {
			return nil, nil, err
		}
		if err := t.add(key, v); err != nil {
			return nil, nil, err
		}
		buf = rest
	}
	return t, nil, nil
}

// decodeListBody decodes a sequence of bare values (no key prefix)
// occupying the whole of buf.
func decodeListBody(buf []byte) ([]Value, error) {
	var items []Value
	for len(buf) > 0 {
		v, rest, err := decodeValue(buf)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		buf = rest
	}
	return items, nil
}
