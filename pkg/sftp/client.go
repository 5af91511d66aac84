// Package sftp bundles the tunneled SSH session with its SFTP channel and
// implements the recursive upload engine on top of them.
package sftp

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"

	hssh "github.com/hopsync/hopsync/pkg/ssh"
)

// Client is the full remote session: the two-hop tunnel plus the SFTP
// channel opened on the target. All handles exist together or not at all;
// a failure while opening the SFTP channel tears the tunnel down too.
type Client struct {
	tunnel     *hssh.Tunnel
	sftpClient *sftp.Client
}

// Connect opens the complete session to the target host through the jump
// host. Errors carry hop and failure-kind information for the supervisor.
func Connect(jumpCfg, targetCfg *hssh.Config) (*Client, error) {
	tunnel, err := hssh.Connect(jumpCfg, targetCfg)
	if err != nil {
		return nil, err
	}

	client, err := NewClient(tunnel)
	if err != nil {
		tunnel.Close()
		return nil, &hssh.ConnectError{
			Hop:  hssh.HopTarget,
			Kind: hssh.FailureTransport,
			Err:  fmt.Errorf("failed to open SFTP channel: %w", err),
		}
	}

	return client, nil
}

// NewClient opens the SFTP channel on an established tunnel
func NewClient(tunnel *hssh.Tunnel) (*Client, error) {
	sftpClient, err := sftp.NewClient(tunnel.TargetClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &Client{
		tunnel:     tunnel,
		sftpClient: sftpClient,
	}, nil
}

// ProgressFunc is a callback for tracking transfer progress
type ProgressFunc func(bytes int64) error

// progressReader wraps an io.Reader to track progress
type progressReader struct {
	r          io.Reader
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 && pr.onProgress != nil {
		if progressErr := pr.onProgress(int64(n)); progressErr != nil {
			return n, progressErr
		}
	}
	return n, err
}

// PutFile uploads a local file to the remote path, streaming its content
func (c *Client) PutFile(ctx context.Context, localPath, remotePath string, onProgress ProgressFunc) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	remoteFile, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer remoteFile.Close()

	var reader io.Reader = localFile
	if onProgress != nil {
		reader = &progressReader{r: localFile, onProgress: onProgress}
	}

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(remoteFile, reader)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to copy data: %w", err)
		}
		return nil
	}
}

// PutBytes writes an in-memory payload to the remote path. Used for files
// whose content was transformed before transfer.
func (c *Client) PutBytes(ctx context.Context, data []byte, remotePath string) error {
	remoteFile, err := c.sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer remoteFile.Close()

	done := make(chan error, 1)
	go func() {
		_, err := remoteFile.Write(data)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to write data: %w", err)
		}
		return nil
	}
}

// Mkdir creates a remote directory. An already-existing directory is
// success, not failure.
func (c *Client) Mkdir(path string) error {
	err := c.sftpClient.Mkdir(path)
	if err == nil {
		return nil
	}
	if info, statErr := c.sftpClient.Stat(path); statErr == nil && info.IsDir() {
		return nil
	}
	return fmt.Errorf("failed to create directory: %w", err)
}

// Stat gets remote file info
func (c *Client) Stat(path string) (os.FileInfo, error) {
	return c.sftpClient.Stat(path)
}

// Execute runs a command on the target host
func (c *Client) Execute(ctx context.Context, command string) (string, string, error) {
	return c.tunnel.Execute(ctx, command)
}

// HealthCheck reports whether the session is still alive
func (c *Client) HealthCheck(ctx context.Context) bool {
	return c.tunnel.HealthCheck(ctx)
}

// Close shuts down the SFTP channel and the tunnel underneath it.
// Best-effort: close failures are swallowed.
func (c *Client) Close() {
	if c.sftpClient != nil {
		c.sftpClient.Close()
		c.sftpClient = nil
	}
	if c.tunnel != nil {
		c.tunnel.Close()
		c.tunnel = nil
	}
}
