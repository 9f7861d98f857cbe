package internal

import (
	"testing"
)

// FuzzParseRefreshSecret exercises refresh secret decoding with arbitrary strings.
// Goal: no panics; invalid inputs should return errors cleanly.
func FuzzParseRefreshSecret(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

	if secret, err := NewRefreshSecret(); err == nil {
		f.Add(secret.String())
	}

	// Malformed base64.
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		secret, err := ParseRefreshSecret(input)
		if err != nil {
			return
		}

		again, err := ParseRefreshSecret(secret.String())
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if again != secret {
			t.Error("roundtrip secret mismatch")
		}
		if !IsTokenID(secret.TokenID()) {
			t.Errorf("derived token id has unexpected shape: %q", secret.TokenID())
		}
	})
}
