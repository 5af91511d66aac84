package session

import (
	"context"
	"errors"
	"testing"
	"time"

	hssh "github.com/hopsync/hopsync/pkg/ssh"
)

// scriptedPrompter replays secrets in order and records the labels asked
type scriptedPrompter struct {
	secrets []string
	labels  []string
}

func (p *scriptedPrompter) Secret(ctx context.Context, label string) (string, error) {
	p.labels = append(p.labels, label)
	if len(p.secrets) == 0 {
		return "", errors.New("prompter exhausted")
	}
	secret := p.secrets[0]
	p.secrets = p.secrets[1:]
	return secret, nil
}

// fakeConn is a controllable session handle
type fakeConn struct {
	healthy bool
	closed  bool
}

func (c *fakeConn) HealthCheck(ctx context.Context) bool { return c.healthy }
func (c *fakeConn) Close()                               { c.closed = true }

// scriptedDialer replays dial outcomes in order
type scriptedDialer struct {
	outcomes []error
	attempts []attempt
	conn     *fakeConn
}

type attempt struct {
	jumpSecret   string
	targetSecret string
}

func (d *scriptedDialer) dial(jumpCfg, targetCfg *hssh.Config) (Conn, error) {
	d.attempts = append(d.attempts, attempt{jumpCfg.Password, targetCfg.Password})
	if len(d.outcomes) == 0 {
		return d.conn, nil
	}
	err := d.outcomes[0]
	d.outcomes = d.outcomes[1:]
	if err != nil {
		return nil, err
	}
	return d.conn, nil
}

func testEndpoints() Endpoints {
	return Endpoints{
		Jump:   hssh.Config{Host: "sshgateway", Port: 22, Username: "corp"},
		Target: hssh.Config{Host: "vmctst11", Port: 22, Username: "admin"},
	}
}

func newTestSupervisor(p Prompter, d *scriptedDialer) *Supervisor {
	return NewSupervisor(p,
		WithDialer(d.dial),
		WithBackoff(time.Millisecond, time.Millisecond),
	)
}

func TestAcquire_SuccessFirstTry(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"jump-pw", "target-pw"}}
	dialer := &scriptedDialer{conn: &fakeConn{healthy: true}}
	sup := newTestSupervisor(prompter, dialer)

	conn, err := sup.Acquire(context.Background(), testEndpoints())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if conn == nil {
		t.Fatal("Expected a connection")
	}
	if sup.State() != Connected {
		t.Errorf("Expected Connected state, got %v", sup.State())
	}
	if len(dialer.attempts) != 1 {
		t.Errorf("Expected 1 dial attempt, got %d", len(dialer.attempts))
	}
	if dialer.attempts[0] != (attempt{"jump-pw", "target-pw"}) {
		t.Errorf("Secrets not injected into configs: %+v", dialer.attempts[0])
	}
}

func TestAcquire_TransportFailureRetriesWithoutClearing(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"jump-pw", "target-pw"}}
	dialer := &scriptedDialer{
		conn: &fakeConn{healthy: true},
		outcomes: []error{
			&hssh.ConnectError{Hop: hssh.HopJump, Kind: hssh.FailureTransport, Err: errors.New("i/o timeout")},
			&hssh.ConnectError{Hop: hssh.HopTarget, Kind: hssh.FailureTransport, Err: errors.New("connection refused")},
			nil,
		},
	}
	sup := newTestSupervisor(prompter, dialer)

	if _, err := sup.Acquire(context.Background(), testEndpoints()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if len(dialer.attempts) != 3 {
		t.Fatalf("Expected 3 dial attempts, got %d", len(dialer.attempts))
	}
	// Transport failures never clear credentials, so the user is asked
	// exactly once per hop.
	if len(prompter.labels) != 2 {
		t.Errorf("Expected 2 prompts total, got %d: %v", len(prompter.labels), prompter.labels)
	}
	for _, a := range dialer.attempts {
		if a != (attempt{"jump-pw", "target-pw"}) {
			t.Errorf("Credentials changed across transport retries: %+v", a)
		}
	}
}

func TestAcquire_JumpAuthFailureClearsOnlyJumpSecret(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"wrong-pw", "target-pw", "right-pw"}}
	dialer := &scriptedDialer{
		conn: &fakeConn{healthy: true},
		outcomes: []error{
			&hssh.ConnectError{Hop: hssh.HopJump, Kind: hssh.FailureAuth, Err: errors.New("unable to authenticate")},
			nil,
		},
	}
	sup := newTestSupervisor(prompter, dialer)

	if _, err := sup.Acquire(context.Background(), testEndpoints()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if len(dialer.attempts) != 2 {
		t.Fatalf("Expected 2 dial attempts, got %d", len(dialer.attempts))
	}
	if dialer.attempts[0] != (attempt{"wrong-pw", "target-pw"}) {
		t.Errorf("Unexpected first attempt: %+v", dialer.attempts[0])
	}
	// Second attempt re-prompts the jump secret but reuses the cached
	// target secret untouched.
	if dialer.attempts[1] != (attempt{"right-pw", "target-pw"}) {
		t.Errorf("Unexpected second attempt: %+v", dialer.attempts[1])
	}
	if len(prompter.labels) != 3 {
		t.Errorf("Expected 3 prompts, got %v", prompter.labels)
	}
}

func TestAcquire_TargetAuthFailureClearsOnlyTargetSecret(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"jump-pw", "bad-pw", "good-pw"}}
	dialer := &scriptedDialer{
		conn: &fakeConn{healthy: true},
		outcomes: []error{
			&hssh.ConnectError{Hop: hssh.HopTarget, Kind: hssh.FailureAuth, Err: errors.New("unable to authenticate")},
			nil,
		},
	}
	sup := newTestSupervisor(prompter, dialer)

	if _, err := sup.Acquire(context.Background(), testEndpoints()); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if dialer.attempts[1] != (attempt{"jump-pw", "good-pw"}) {
		t.Errorf("Jump secret should survive a target auth failure: %+v", dialer.attempts[1])
	}
}

func TestAcquire_CancelledDuringBackoff(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"a", "b"}}
	dialer := &scriptedDialer{
		outcomes: []error{
			&hssh.ConnectError{Hop: hssh.HopJump, Kind: hssh.FailureTransport, Err: errors.New("no route to host")},
		},
	}
	sup := NewSupervisor(prompter,
		WithDialer(dialer.dial),
		WithBackoff(time.Second, time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := sup.Acquire(ctx, testEndpoints()); err == nil {
		t.Error("Expected cancellation error")
	}
	if sup.State() != Disconnected {
		t.Errorf("Expected Disconnected after cancel, got %v", sup.State())
	}
}

func TestAcquire_ReusesHealthySession(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"a", "b"}}
	conn := &fakeConn{healthy: true}
	dialer := &scriptedDialer{conn: conn}
	sup := newTestSupervisor(prompter, dialer)

	first, err := sup.Acquire(context.Background(), testEndpoints())
	if err != nil {
		t.Fatal(err)
	}
	second, err := sup.Acquire(context.Background(), testEndpoints())
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Error("Expected the healthy session to be reused")
	}
	if len(dialer.attempts) != 1 {
		t.Errorf("Expected 1 dial, got %d", len(dialer.attempts))
	}
}

func TestAcquire_DeadSessionReplaced(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"a", "b"}}
	dead := &fakeConn{healthy: false}
	dialer := &scriptedDialer{conn: dead}
	sup := newTestSupervisor(prompter, dialer)

	if _, err := sup.Acquire(context.Background(), testEndpoints()); err != nil {
		t.Fatal(err)
	}

	// Next acquire detects the dead session, closes it and reconnects
	// with the cached credentials (no new prompts).
	fresh := &fakeConn{healthy: true}
	dialer.conn = fresh
	dead.healthy = false

	conn, err := sup.Acquire(context.Background(), testEndpoints())
	if err != nil {
		t.Fatal(err)
	}
	if conn != Conn(fresh) {
		t.Error("Expected a fresh session")
	}
	if !dead.closed {
		t.Error("Dead session was not closed")
	}
	if len(prompter.labels) != 2 {
		t.Errorf("Reconnect must reuse cached secrets, prompts: %v", prompter.labels)
	}
}

func TestClose(t *testing.T) {
	prompter := &scriptedPrompter{secrets: []string{"a", "b"}}
	conn := &fakeConn{healthy: true}
	dialer := &scriptedDialer{conn: conn}
	sup := newTestSupervisor(prompter, dialer)

	if _, err := sup.Acquire(context.Background(), testEndpoints()); err != nil {
		t.Fatal(err)
	}

	sup.Close()
	if !conn.closed {
		t.Error("Close did not close the session")
	}
	if sup.State() != Disconnected {
		t.Errorf("Expected Disconnected, got %v", sup.State())
	}
}

func TestCredentials_ClearIsSelective(t *testing.T) {
	var c Credentials
	c.SetJump("j")
	c.SetTarget("t")

	c.ClearJump()
	if _, ok := c.Jump(); ok {
		t.Error("Jump secret not cleared")
	}
	if secret, ok := c.Target(); !ok || secret != "t" {
		t.Error("Target secret must survive a jump clear")
	}
}
