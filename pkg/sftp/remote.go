package sftp

import (
	"context"
	"fmt"
	"strings"
)

// Executor runs shell commands on the target host
type Executor interface {
	Execute(ctx context.Context, command string) (string, string, error)
}

// Prober validates and prepares remote paths using shell probes
type Prober struct {
	exec Executor
}

// NewProber creates a prober over an established session
func NewProber(exec Executor) *Prober {
	return &Prober{exec: exec}
}

// shellQuote wraps a path in single quotes so that shell metacharacters in
// remote paths cannot alter the probe commands
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(s, "'", `'"'"'`)
	return "'" + escaped + "'"
}

// WorkingDir returns the login shell's current directory
func (p *Prober) WorkingDir(ctx context.Context) (string, error) {
	stdout, _, err := p.exec.Execute(ctx, "pwd")
	if err != nil {
		return "", fmt.Errorf("failed to query working directory: %w", err)
	}
	return strings.TrimSpace(stdout), nil
}

// HomeDir returns the remote user's home directory
func (p *Prober) HomeDir(ctx context.Context) (string, error) {
	stdout, _, err := p.exec.Execute(ctx, "echo $HOME")
	if err != nil {
		return "", fmt.Errorf("failed to query home directory: %w", err)
	}
	return strings.TrimSpace(stdout), nil
}

// ExpandHome replaces a leading ~ with the remote home directory
func (p *Prober) ExpandHome(ctx context.Context, path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := p.HomeDir(ctx)
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return home + strings.TrimPrefix(path, "~"), nil
}

// IsDir reports whether the remote path exists and is a directory
func (p *Prober) IsDir(ctx context.Context, path string) (bool, error) {
	cmd := fmt.Sprintf(`test -d %s && echo "EXISTS" || echo "NOT_EXISTS"`, shellQuote(path))
	stdout, _, err := p.exec.Execute(ctx, cmd)
	if err != nil {
		return false, fmt.Errorf("failed to check directory: %w", err)
	}
	return strings.TrimSpace(stdout) == "EXISTS", nil
}

// IsWritable reports whether the remote path is writable
func (p *Prober) IsWritable(ctx context.Context, path string) (bool, error) {
	cmd := fmt.Sprintf(`test -w %s && echo "WRITABLE" || echo "NOT_WRITABLE"`, shellQuote(path))
	stdout, _, err := p.exec.Execute(ctx, cmd)
	if err != nil {
		return false, fmt.Errorf("failed to check writability: %w", err)
	}
	return strings.TrimSpace(stdout) == "WRITABLE", nil
}

// MkdirAll creates the remote directory and any missing parents
func (p *Prober) MkdirAll(ctx context.Context, path string) error {
	cmd := fmt.Sprintf("mkdir -p %s", shellQuote(path))
	_, stderr, err := p.exec.Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("failed to create directory: %s", msg)
	}
	return nil
}

// ListDir returns a long-format listing of a remote directory
func (p *Prober) ListDir(ctx context.Context, path string) (string, error) {
	cmd := fmt.Sprintf("ls -la %s", shellQuote(path))
	stdout, _, err := p.exec.Execute(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to list directory: %w", err)
	}
	return stdout, nil
}

// ListDirHead returns the first few entries of a remote directory listing,
// used to show the result of an upload
func (p *Prober) ListDirHead(ctx context.Context, path string, lines int) (string, error) {
	cmd := fmt.Sprintf("ls -la %s | head -%d", shellQuote(path), lines)
	stdout, _, err := p.exec.Execute(ctx, cmd)
	if err != nil {
		return "", fmt.Errorf("failed to list directory: %w", err)
	}
	return stdout, nil
}
