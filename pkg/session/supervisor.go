// Package session owns the connection lifecycle: it caches credentials,
// retries connection establishment until it succeeds, and hands out a
// live, already-authenticated session to the upload layer.
package session

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hopsync/hopsync/pkg/sftp"
	hssh "github.com/hopsync/hopsync/pkg/ssh"
)

// State is the supervisor's connection state
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Conn is the live session handle the supervisor manages
type Conn interface {
	HealthCheck(ctx context.Context) bool
	Close()
}

// Dialer establishes a full session to the target through the jump host
type Dialer func(jumpCfg, targetCfg *hssh.Config) (Conn, error)

// DialSFTP is the production dialer
func DialSFTP(jumpCfg, targetCfg *hssh.Config) (Conn, error) {
	return sftp.Connect(jumpCfg, targetCfg)
}

// Prompter supplies a secret for a host when the cache has none.
// It returns an error only when the user cancels.
type Prompter interface {
	Secret(ctx context.Context, label string) (string, error)
}

// Endpoints describes the two hops of an upload destination. Passwords on
// the configs are ignored; the supervisor injects the cached secrets.
type Endpoints struct {
	Jump   hssh.Config
	Target hssh.Config
}

// Supervisor owns the session and the credential cache. Connection
// establishment is retried indefinitely: a failed attempt backs off and
// tries again, and only the caller's context ends the loop. An
// authentication failure clears exactly the secret the server rejected.
type Supervisor struct {
	mu       sync.Mutex
	state    atomic.Int32
	creds    Credentials
	prompter Prompter
	dial     Dialer
	conn     Conn

	// Backoff between attempts: shorter after an auth failure because
	// the user is about to re-type a password anyway.
	authBackoff      time.Duration
	transportBackoff time.Duration
	healthTimeout    time.Duration
}

// Option configures a Supervisor
type Option func(*Supervisor)

// WithBackoff overrides the retry intervals
func WithBackoff(auth, transport time.Duration) Option {
	return func(s *Supervisor) {
		s.authBackoff = auth
		s.transportBackoff = transport
	}
}

// WithDialer overrides the production dialer
func WithDialer(dial Dialer) Option {
	return func(s *Supervisor) {
		s.dial = dial
	}
}

// NewSupervisor creates a supervisor in the Disconnected state
func NewSupervisor(prompter Prompter, opts ...Option) *Supervisor {
	s := &Supervisor{
		prompter:         prompter,
		dial:             DialSFTP,
		authBackoff:      2 * time.Second,
		transportBackoff: 5 * time.Second,
		healthTimeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current connection state
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
}

// Acquire returns a live session, connecting first if necessary. An
// existing session is health-checked before reuse; a dead one is torn
// down and replaced. Acquire only fails when ctx is cancelled.
func (s *Supervisor) Acquire(ctx context.Context, eps Endpoints) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		hctx, cancel := context.WithTimeout(ctx, s.healthTimeout)
		healthy := s.conn.HealthCheck(hctx)
		cancel()
		if healthy {
			return s.conn, nil
		}
		log.Printf("[WARN] Session is dead, reconnecting")
		s.conn.Close()
		s.conn = nil
		s.setState(Disconnected)
	}

	s.setState(Connecting)

	for {
		if err := ctx.Err(); err != nil {
			s.setState(Disconnected)
			return nil, err
		}

		jumpCfg, targetCfg, err := s.configs(ctx, eps)
		if err != nil {
			s.setState(Disconnected)
			return nil, err
		}

		conn, err := s.dial(jumpCfg, targetCfg)
		if err == nil {
			s.conn = conn
			s.setState(Connected)
			log.Printf("[INFO] Connected to %s via %s", targetCfg.Label(), jumpCfg.Label())
			return conn, nil
		}

		if hop, isAuth := hssh.AuthHop(err); isAuth {
			log.Printf("[WARN] Authentication failed at %s, clearing cached secret: %v", hop, err)
			if hop == hssh.HopJump {
				s.creds.ClearJump()
			} else {
				s.creds.ClearTarget()
			}
			if !s.wait(ctx, s.authBackoff) {
				s.setState(Disconnected)
				return nil, ctx.Err()
			}
			continue
		}

		log.Printf("[WARN] Connection failed, retrying in %v: %v", s.transportBackoff, err)
		if !s.wait(ctx, s.transportBackoff) {
			s.setState(Disconnected)
			return nil, ctx.Err()
		}
	}
}

// configs builds per-hop configs with secrets filled from the cache,
// prompting for any that are missing
func (s *Supervisor) configs(ctx context.Context, eps Endpoints) (*hssh.Config, *hssh.Config, error) {
	jumpSecret, ok := s.creds.Jump()
	if !ok {
		secret, err := s.prompter.Secret(ctx, eps.Jump.Label()+" (jump host)")
		if err != nil {
			return nil, nil, err
		}
		s.creds.SetJump(secret)
		jumpSecret = secret
	}

	targetSecret, ok := s.creds.Target()
	if !ok {
		secret, err := s.prompter.Secret(ctx, eps.Target.Label()+" (target host)")
		if err != nil {
			return nil, nil, err
		}
		s.creds.SetTarget(secret)
		targetSecret = secret
	}

	jumpCfg := eps.Jump
	jumpCfg.Password = jumpSecret
	targetCfg := eps.Target
	targetCfg.Password = targetSecret
	return &jumpCfg, &targetCfg, nil
}

// wait sleeps for the backoff interval, honoring cancellation
func (s *Supervisor) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// ForgetCredentials drops both cached secrets
func (s *Supervisor) ForgetCredentials() {
	s.creds.Clear()
}

// Close tears down the session if one exists
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.setState(Disconnected)
}
