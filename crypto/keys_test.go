package crypto

import (
	"strings"
	"testing"
)

func TestAddressRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	encoded := addr.String()
	if !strings.HasPrefix(encoded, string(StakePrefix)+"1") {
		t.Fatalf("expected %q prefix, got %q", StakePrefix, encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.String() != encoded {
		t.Fatalf("round trip mismatch: %q != %q", decoded.String(), encoded)
	}
	if decoded.Prefix() != StakePrefix {
		t.Fatalf("expected prefix %q, got %q", StakePrefix, decoded.Prefix())
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "not-bech32", "stk1qqqq"} {
		if _, err := DecodeAddress(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestAddressBytesAreCopied(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	b := addr.Bytes()
	b[0] ^= 0xFF
	if addr.Bytes()[0] == b[0] {
		t.Fatalf("Bytes must return a defensive copy")
	}
}

func TestDistinctKeysYieldDistinctAddresses(t *testing.T) {
	first, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	second, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if first.PubKey().Address().String() == second.PubKey().Address().String() {
		t.Fatalf("expected distinct addresses")
	}
}
