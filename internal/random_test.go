package internal

import "testing"

func TestRefreshSecretTokenIDIsStable(t *testing.T) {
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret: %v", err)
	}

	parsed, err := ParseRefreshSecret(secret.String())
	if err != nil {
		t.Fatalf("ParseRefreshSecret: %v", err)
	}
	if parsed.TokenID() != secret.TokenID() {
		t.Fatal("expected token id to be derived deterministically")
	}
	if secret.TokenID() == secret.String() {
		t.Fatal("token id must not equal the raw secret")
	}
}

func TestRefreshSecretsAreUnique(t *testing.T) {
	seen := make(map[string]struct{}, 256)
	for i := 0; i < 256; i++ {
		s, err := NewRefreshSecret()
		if err != nil {
			t.Fatalf("NewRefreshSecret: %v", err)
		}
		if _, dup := seen[s.TokenID()]; dup {
			t.Fatal("duplicate token id generated")
		}
		seen[s.TokenID()] = struct{}{}
	}
}

func TestParseRefreshSecretRejectsWrongSize(t *testing.T) {
	if _, err := ParseRefreshSecret("dG9vLXNob3J0"); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
	if IsTokenID("xyz") {
		t.Fatal("expected short value not to look like a token id")
	}
}
