package backup

import (
	"strings"
	"testing"
)

type snapshot struct {
	Name  string `json:"name"`
	Hosts []string
}

func TestSealOpenRoundTrip(t *testing.T) {
	original := snapshot{
		Name:  "profiles",
		Hosts: []string{"sshgateway", "10.0.0.5"},
	}

	sealed, err := Seal(original, "correct-passphrase")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Envelope must not contain the plaintext
	if strings.Contains(sealed, "sshgateway") {
		t.Error("Sealed envelope leaks plaintext")
	}

	var restored snapshot
	if err := Open(sealed, "correct-passphrase", &restored); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if restored.Name != original.Name {
		t.Errorf("Expected name %q, got %q", original.Name, restored.Name)
	}
	if len(restored.Hosts) != 2 || restored.Hosts[1] != "10.0.0.5" {
		t.Errorf("Hosts not restored: %v", restored.Hosts)
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	sealed, err := Seal(snapshot{Name: "x"}, "right")
	if err != nil {
		t.Fatal(err)
	}

	var out snapshot
	if err := Open(sealed, "wrong", &out); err == nil {
		t.Error("Expected Open to fail with wrong passphrase")
	}
}

func TestOpenInvalidEnvelope(t *testing.T) {
	var out snapshot
	if err := Open("not-json", "pw", &out); err == nil {
		t.Error("Expected Open to reject malformed envelope")
	}
}

func TestSealUniqueEnvelopes(t *testing.T) {
	a, err := Seal(snapshot{Name: "same"}, "pw")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Seal(snapshot{Name: "same"}, "pw")
	if err != nil {
		t.Fatal(err)
	}

	// Fresh salt and nonce per envelope
	if a == b {
		t.Error("Expected distinct envelopes for identical input")
	}
}
