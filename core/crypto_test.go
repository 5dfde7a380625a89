package core

import (
	"bytes"
	"crypto/aes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestRandUID(t *testing.T) {
	for i := 0; i < 32; i++ {
		uid, err := RandUID()
		if err != nil {
			t.Fatalf("RandUID failed: %v", err)
		}
		if len(uid) != 16 {
			t.Fatalf("RandUID length = %d, want 16", len(uid))
		}
		if _, err := hex.DecodeString(uid); err != nil {
			t.Fatalf("RandUID %q is not hex: %v", uid, err)
		}
		// Every 4-char group starts at or above 0x1000
		for j := 0; j < 16; j += 4 {
			if uid[j] == '0' {
				t.Fatalf("RandUID group %q below 0x1000", uid[j:j+4])
			}
		}
	}
}

func TestEncryptWPlaintextModes(t *testing.T) {
	for _, pt := range []string{"", "0"} {
		got, err := EncryptW(`{"a":"b c"}`, pt)
		if err != nil {
			t.Fatalf("pt=%q: %v", pt, err)
		}
		want := "%7B%22a%22%3A%22b%20c%22%7D"
		if got != want {
			t.Errorf("pt=%q: got %q, want %q", pt, got, want)
		}
	}
}

func TestEncryptWHybrid(t *testing.T) {
	raw := `{"lot_number":"abc"}`
	got, err := EncryptW(raw, "1")
	if err != nil {
		t.Fatalf("EncryptW failed: %v", err)
	}

	if len(got) <= rsaCipherHexLen {
		t.Fatalf("output length %d leaves no room for the aes part", len(got))
	}
	aesHex := got[:len(got)-rsaCipherHexLen]
	if len(aesHex)%(aes.BlockSize*2) != 0 {
		t.Errorf("aes part length %d is not a whole number of blocks", len(aesHex))
	}
	if _, err := hex.DecodeString(got); err != nil {
		t.Errorf("output is not hex: %v", err)
	}

	// PKCS7 always pads, so the ciphertext covers at least len(raw)+1 bytes
	if len(aesHex)/2 <= len(raw) {
		t.Errorf("aes part too short: %d bytes for %d byte plaintext", len(aesHex)/2, len(raw))
	}
}

func TestEncryptWUnsupportedModes(t *testing.T) {
	if _, err := EncryptW("data", "2"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("pt=2 should report unsupported mode, got %v", err)
	}
	if _, err := EncryptW("data", "9"); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Errorf("pt=9 should report unknown mode, got %v", err)
	}
}

func TestNonZeroRandomBytes(t *testing.T) {
	a := make([]byte, 64)
	if err := nonZeroRandomBytes(a); err != nil {
		t.Fatalf("nonZeroRandomBytes failed: %v", err)
	}
	for i, v := range a {
		if v == 0 {
			t.Fatalf("zero byte at %d", i)
		}
	}

	b := make([]byte, 64)
	if err := nonZeroRandomBytes(b); err != nil {
		t.Fatalf("nonZeroRandomBytes failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two draws produced identical padding")
	}
}

func TestPKCS7Padding(t *testing.T) {
	padded := PKCS7Padding([]byte("12345"), 16)
	if len(padded) != 16 {
		t.Fatalf("padded length = %d, want 16", len(padded))
	}
	if padded[15] != 11 {
		t.Errorf("padding byte = %d, want 11", padded[15])
	}

	full := PKCS7Padding(make([]byte, 16), 16)
	if len(full) != 32 {
		t.Errorf("block-aligned input should gain a full padding block, got %d", len(full))
	}
}
