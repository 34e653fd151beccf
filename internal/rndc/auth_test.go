package rndc_test

import (
	"errors"
	"testing"

	"github.com/b1-systems/rndc-go/internal/rndc"
)

// TestSignAndVerifyRoundTrip covers the universal property that a packet
// signed with a key decodes cleanly when verified with the same key.
func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	pkt := rndc.NewPacket(testKey)
	pkt.SetCommand("reload")

	wire, err := rndc.EncodePacket(pkt)
	if err != nil {
		t.Fatalf("EncodePacket() error = %v", err)
	}
	if _, err := rndc.DecodePacket(wire, testKey); err != nil {
		t.Fatalf("DecodePacket() error = %v, want nil", err)
	}
}

// TestSignatureSlotLenIsFixed covers the fixed-width invariant the wire
// format depends on: the signature slot never changes size regardless of
// key length or payload contents.
func TestSignatureSlotLenIsFixed(t *testing.T) {
	t.Parallel()

	keys := []string{
		"aabc",
		"YSBtdWNoIGxvbmdlciBzaGFyZWQgc2VjcmV0IGtleSBmb3IgdGVzdGluZw==",
	}
	commands := []string{"status", "a very long command string with many words in it"}

	var lengths []int
	for _, key := range keys {
		for _, cmd := range commands {
			pkt := rndc.NewPacket(key)
			pkt.SetCommand(cmd)
			wire, err := rndc.EncodePacket(pkt)
			if err != nil {
				t.Fatalf("EncodePacket() error = %v", err)
			}
			if _, err := rndc.DecodePacket(wire, key); err != nil {
				t.Fatalf("DecodePacket() error = %v", err)
			}
			lengths = append(lengths, len(wire)-len(cmd))
		}
	}
	for i := 1; i < len(lengths); i++ {
		if lengths[i] != lengths[0] {
			t.Errorf("envelope length (wire minus command) varies: %d vs %d", lengths[i], lengths[0])
		}
	}

	if rndc.SignatureSlotLen != 88 {
		t.Errorf("SignatureSlotLen = %d, want 88", rndc.SignatureSlotLen)
	}
}

// TestVerifyRejectsCorruptedDigest covers a slot whose digest has had a
// single character altered, which must fail verification.
func TestVerifyRejectsCorruptedDigest(t *testing.T) {
	t.Parallel()

	pkt := rndc.NewPacket(testKey)
	pkt.SetCommand("status")
	wire, err := rndc.EncodePacket(pkt)
	if err != nil {
		t.Fatalf("EncodePacket() error = %v", err)
	}

	off := authSignatureOffset()
	tampered := make([]byte, len(wire))
	copy(tampered, wire)
	// Corrupt a digest byte without touching the algorithm tag or the
	// zero padding, so only the digest comparison itself is exercised.
	tampered[4+off+10] ^= 0x01

	if _, err := rndc.DecodePacket(tampered, testKey); !errors.Is(err, rndc.ErrBadSignature) {
		t.Fatalf("DecodePacket() error = %v, want ErrBadSignature", err)
	}
}
