package crypto

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcutil/bech32"
)

func TestAddressRoundTrip(t *testing.T) {
	var payload [20]byte
	payload[19] = 0x42

	addr := MustNewAddress(payload[:])
	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), payload[:]) {
		t.Fatalf("payload mismatch: %x", decoded.Bytes())
	}
	if decoded.Prefix() != PQLPrefix {
		t.Fatalf("unexpected prefix %q", decoded.Prefix())
	}
}

func TestDecodeAddressRejectsForeignPrefix(t *testing.T) {
	var payload [20]byte
	payload[19] = 0x42

	conv, err := bech32.ConvertBits(payload[:], 8, 5, true)
	if err != nil {
		t.Fatalf("convert bits: %v", err)
	}
	foreign, err := bech32.Encode("nhb", conv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := DecodeAddress(foreign); err == nil {
		t.Fatal("expected foreign prefix to be rejected")
	}
}

func TestDecodeAddressRejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "pql1", "not-an-address"} {
		if _, err := DecodeAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}
