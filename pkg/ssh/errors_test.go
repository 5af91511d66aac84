package ssh

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify_AuthFragments(t *testing.T) {
	cases := []struct {
		err  string
		want FailureKind
	}{
		{"ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password], no supported methods remain", FailureAuth},
		{"ssh: handshake failed: read tcp 10.0.0.1:4242: i/o timeout", FailureTransport},
		{"dial tcp: lookup sshgateway: no such host", FailureTransport},
		{"permission denied (publickey,password)", FailureAuth},
		{"connection reset by peer", FailureTransport},
	}

	for _, c := range cases {
		got := classify(HopJump, errors.New(c.err))
		if got.Kind != c.want {
			t.Errorf("classify(%q) kind = %v, want %v", c.err, got.Kind, c.want)
		}
	}
}

func TestIsAuthError_Wrapped(t *testing.T) {
	inner := classify(HopTarget, errors.New("ssh: unable to authenticate"))
	wrapped := fmt.Errorf("connect attempt failed: %w", inner)

	if !IsAuthError(wrapped) {
		t.Error("Expected IsAuthError to see through wrapping")
	}

	hop, ok := AuthHop(wrapped)
	if !ok || hop != HopTarget {
		t.Errorf("AuthHop = (%v, %v), want (HopTarget, true)", hop, ok)
	}
}

func TestIsAuthError_Transport(t *testing.T) {
	err := transportErr(HopJump, errors.New("i/o timeout"))
	if IsAuthError(err) {
		t.Error("Transport failure must not count as auth failure")
	}
	if _, ok := AuthHop(err); ok {
		t.Error("AuthHop must not match a transport failure")
	}
}

func TestConnectError_Message(t *testing.T) {
	err := classify(HopJump, errors.New("ssh: unable to authenticate"))
	msg := err.Error()
	if msg != "authentication failure at jump host: ssh: unable to authenticate" {
		t.Errorf("Unexpected error message: %s", msg)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{Host: "gw", Port: 22, Username: "deploy"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Valid config rejected: %v", err)
	}

	bad := &Config{Host: "gw", Port: 0, Username: "deploy"}
	if err := bad.Validate(); err == nil {
		t.Error("Expected error for invalid port")
	}

	noUser := &Config{Host: "gw", Port: 22}
	if err := noUser.Validate(); err == nil {
		t.Error("Expected error for missing username")
	}
}
