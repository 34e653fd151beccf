package rndc

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // G501: HMAC-MD5 is mandated by RNDC v1; see spec Non-goals.
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// sigAlgTag is the one-byte algorithm tag written before the digest in
// the signature slot. RNDC v1 defines only HMAC-MD5, so this is always
// the ASCII letter 'A'.
const sigAlgTag = 'A'

// digestB64Len is the length of a Base64-encoded MD5 digest (16 raw
// bytes -> 22 characters without padding, as BIND emits it).
const digestB64Len = 22

// sigPaddingLen is the number of zero padding bytes following the
// algorithm tag and digest in the fixed-size signature slot.
const sigPaddingLen = 65

// SignatureSlotLen is the fixed length, in bytes, of the _auth.hmd5
// value's payload: 1 algorithm-tag byte + 22 Base64 digest characters +
// 65 zero padding bytes. BIND expects this exact layout; it is not
// configurable.
const SignatureSlotLen = 1 + digestB64Len + sigPaddingLen

// decodeKey Base64-decodes the configured HMAC key, wrapping malformed
// input in ErrBadKey.
func decodeKey(key string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w: %w", ErrBadKey, err)
	}
	return raw, nil
}

// hmacMD5 computes the HMAC-MD5 digest of data keyed by key.
func hmacMD5(key, data []byte) []byte {
	mac := hmac.New(md5.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// buildSignatureSlot computes the HMAC-MD5 digest of signed (the packet
// bytes following the signature slot), keyed by the decoded key, and
// returns the full 88-byte slot payload: 'A' + 22-char Base64 digest +
// 65 zero bytes.
func buildSignatureSlot(key, signed []byte) []byte {
	digest := hmacMD5(key, signed)

	slot := make([]byte, SignatureSlotLen)
	slot[0] = sigAlgTag
	copy(slot[1:1+digestB64Len], base64.RawStdEncoding.EncodeToString(digest))
	// Remaining sigPaddingLen bytes are already zero.
	return slot
}

// verifySignatureSlot recomputes the HMAC-MD5 digest of signed and
// compares it, in constant time, against the digest extracted from slot
// (the original, unzeroed 88-byte signature payload). It returns
// ErrBadSignature on mismatch.
func verifySignatureSlot(key, signed, slot []byte) error {
	if len(slot) != SignatureSlotLen {
		return fmt.Errorf("signature slot is %d bytes, want %d: %w",
			len(slot), SignatureSlotLen, ErrBadSignature)
	}
	if slot[0] != sigAlgTag {
		return fmt.Errorf("unsupported signature algorithm tag %q: %w", slot[0], ErrBadSignature)
	}

	wantDigest, err := base64.RawStdEncoding.DecodeString(string(slot[1 : 1+digestB64Len]))
	if err != nil {
		return fmt.Errorf("decode signature digest: %w: %w", ErrBadSignature, err)
	}

	gotDigest := hmacMD5(key, signed)

	if subtle.ConstantTimeCompare(wantDigest, gotDigest) != 1 {
		return ErrBadSignature
	}
	return nil
}
