// Package ssh establishes the two-hop connection used to reach a target
// host through a jump host, and classifies connection failures so the
// caller can tell rejected credentials from network trouble.
package ssh

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultConnectTimeout = 30 * time.Second

// Tunnel is an authenticated session to the target host, routed through a
// jump host over a direct-tcpip forwarded channel. The three handles below
// exist together or not at all: a partial connect is torn down, never kept.
type Tunnel struct {
	jump   *ssh.Client
	conn   net.Conn
	target *ssh.Client
}

// getHostKeyCallback returns a host key verification callback
func getHostKeyCallback() ssh.HostKeyCallback {
	// Try to use known_hosts file
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to insecure if can't get home dir
		return ssh.InsecureIgnoreHostKey()
	}

	knownHostsPath := filepath.Join(homeDir, ".ssh", "known_hosts")

	sshDir := filepath.Join(homeDir, ".ssh")
	if _, err := os.Stat(sshDir); os.IsNotExist(err) {
		os.MkdirAll(sshDir, 0700)
	}

	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		f, err := os.OpenFile(knownHostsPath, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return ssh.InsecureIgnoreHostKey()
		}
		f.Close()
	}

	hostKeyCallback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		// Fallback to insecure if known_hosts is invalid
		return ssh.InsecureIgnoreHostKey()
	}

	return hostKeyCallback
}

// clientConfig builds the SSH client config for one hop
func clientConfig(cfg *Config) (*ssh.ClientConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.LoadPrivateKey(); err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	var authMethods []ssh.AuthMethod
	if cfg.Password != "" {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}
	if len(cfg.KeyContent) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.KeyContent)
		if err != nil {
			if cfg.KeyPassword != "" {
				signer, err = ssh.ParsePrivateKeyWithPassphrase(cfg.KeyContent, []byte(cfg.KeyPassword))
			}
			if err != nil {
				return nil, fmt.Errorf("failed to parse private key: %w", err)
			}
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            authMethods,
		HostKeyCallback: getHostKeyCallback(),
		Timeout:         timeout,
	}, nil
}

// Connect establishes the tunneled session: (a) SSH to the jump host,
// (b) a forwarded TCP channel from the jump host to the target's SSH port,
// (c) an SSH session to the target over that channel. Every failure tears
// down whatever was already opened and reports which hop failed.
func Connect(jumpCfg, targetCfg *Config) (*Tunnel, error) {
	jumpSSHConfig, err := clientConfig(jumpCfg)
	if err != nil {
		return nil, transportErr(HopJump, err)
	}
	targetSSHConfig, err := clientConfig(targetCfg)
	if err != nil {
		return nil, transportErr(HopTarget, err)
	}

	log.Printf("[INFO] Connecting to jump host %s", jumpCfg.Addr())
	jump, err := ssh.Dial("tcp", jumpCfg.Addr(), jumpSSHConfig)
	if err != nil {
		return nil, classify(HopJump, fmt.Errorf("failed to dial jump host: %w", err))
	}

	log.Printf("[INFO] Opening forwarded channel to %s", targetCfg.Addr())
	raddr := &net.TCPAddr{IP: net.ParseIP(targetCfg.Host), Port: targetCfg.Port}
	var conn net.Conn
	if raddr.IP != nil {
		// Present the channel as sourced from the jump host's loopback SSH port.
		laddr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 22}
		conn, err = jump.DialTCP("tcp", laddr, raddr)
	} else {
		conn, err = jump.Dial("tcp", targetCfg.Addr())
	}
	if err != nil {
		jump.Close()
		return nil, transportErr(HopJump, fmt.Errorf("failed to open channel to target: %w", err))
	}

	log.Printf("[INFO] Connecting to target host %s through tunnel", targetCfg.Addr())
	ncc, chans, reqs, err := ssh.NewClientConn(conn, targetCfg.Addr(), targetSSHConfig)
	if err != nil {
		conn.Close()
		jump.Close()
		return nil, classify(HopTarget, fmt.Errorf("failed to connect to target through tunnel: %w", err))
	}
	target := ssh.NewClient(ncc, chans, reqs)

	return &Tunnel{
		jump:   jump,
		conn:   conn,
		target: target,
	}, nil
}

// Execute runs a command on the target host and returns stdout and stderr.
// The context bounds the whole call so a hung remote cannot wedge the caller.
func (t *Tunnel) Execute(ctx context.Context, command string) (string, string, error) {
	session, err := t.target.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		// Closing the session unblocks the Run goroutine.
		return stdout.String(), stderr.String(), fmt.Errorf("command timed out: %w", ctx.Err())
	case err := <-done:
		return stdout.String(), stderr.String(), err
	}
}

// HealthCheck runs a no-op command to detect a silently-dead session
func (t *Tunnel) HealthCheck(ctx context.Context) bool {
	_, _, err := t.Execute(ctx, "true")
	if err != nil {
		log.Printf("[WARN] Session health check failed: %v", err)
		return false
	}
	return true
}

// TargetClient returns the underlying target SSH client for SFTP usage
func (t *Tunnel) TargetClient() *ssh.Client {
	return t.target
}

// Close shuts down all handles, innermost first. Each close failure is
// swallowed independently: teardown must never raise.
func (t *Tunnel) Close() {
	if t.target != nil {
		t.target.Close()
		t.target = nil
	}
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	if t.jump != nil {
		t.jump.Close()
		t.jump = nil
	}
}
