package ssh

import (
	"errors"
	"fmt"
	"strings"
)

// Hop identifies which leg of the two-hop connection an error belongs to
type Hop int

const (
	HopJump Hop = iota
	HopTarget
)

func (h Hop) String() string {
	if h == HopJump {
		return "jump host"
	}
	return "target host"
}

// FailureKind separates credential rejections from everything else, because
// the two drive different recovery actions upstream
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureAuth
)

func (k FailureKind) String() string {
	if k == FailureAuth {
		return "authentication failure"
	}
	return "transport failure"
}

// ConnectError describes a failed connection attempt
type ConnectError struct {
	Hop  Hop
	Kind FailureKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s at %s: %v", e.Kind, e.Hop, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is a credential rejection
func IsAuthError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce) && ce.Kind == FailureAuth
}

// AuthHop returns the hop whose credentials were rejected, if any
func AuthHop(err error) (Hop, bool) {
	var ce *ConnectError
	if errors.As(err, &ce) && ce.Kind == FailureAuth {
		return ce.Hop, true
	}
	return 0, false
}

// authErrorFragments are substrings the SSH library produces when the server
// rejects the offered credentials, as opposed to network-level failures.
var authErrorFragments = []string{
	"unable to authenticate",
	"no supported methods remain",
	"permission denied",
}

func isAuthErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range authErrorFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// classify wraps an underlying dial/handshake error with hop and kind
func classify(hop Hop, err error) *ConnectError {
	kind := FailureTransport
	if isAuthErr(err) {
		kind = FailureAuth
	}
	return &ConnectError{Hop: hop, Kind: kind, Err: err}
}

// transportErr wraps an error that can never be an auth rejection
func transportErr(hop Hop, err error) *ConnectError {
	return &ConnectError{Hop: hop, Kind: FailureTransport, Err: err}
}
