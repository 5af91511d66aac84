package sftp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeExec records commands and plays back canned responses
type fakeExec struct {
	commands []string
	stdout   string
	stderr   string
	err      error
}

func (f *fakeExec) Execute(ctx context.Context, command string) (string, string, error) {
	f.commands = append(f.commands, command)
	return f.stdout, f.stderr, f.err
}

func TestShellQuote(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/tmp/dst", "'/tmp/dst'"},
		{"", "''"},
		{"/tmp/with space", "'/tmp/with space'"},
		{"/tmp/it's", `'/tmp/it'"'"'s'`},
		{"/tmp/$(reboot)", "'/tmp/$(reboot)'"},
	}

	for _, c := range cases {
		if got := shellQuote(c.in); got != c.want {
			t.Errorf("shellQuote(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestProber_IsDir(t *testing.T) {
	exec := &fakeExec{stdout: "EXISTS\n"}
	p := NewProber(exec)

	ok, err := p.IsDir(context.Background(), "/data")
	if err != nil {
		t.Fatalf("IsDir failed: %v", err)
	}
	if !ok {
		t.Error("Expected directory to exist")
	}
	if !strings.Contains(exec.commands[0], "test -d '/data'") {
		t.Errorf("Path not quoted in probe: %s", exec.commands[0])
	}
}

func TestProber_IsWritable_Negative(t *testing.T) {
	exec := &fakeExec{stdout: "NOT_WRITABLE\n"}
	p := NewProber(exec)

	ok, err := p.IsWritable(context.Background(), "/etc")
	if err != nil {
		t.Fatalf("IsWritable failed: %v", err)
	}
	if ok {
		t.Error("Expected path to be reported not writable")
	}
}

func TestProber_MkdirAll_StderrIsFailure(t *testing.T) {
	exec := &fakeExec{stderr: "mkdir: cannot create directory: Permission denied\n"}
	p := NewProber(exec)

	if err := p.MkdirAll(context.Background(), "/root/locked"); err == nil {
		t.Error("Expected error when mkdir writes to stderr")
	}
}

func TestProber_MkdirAll_QuotesPath(t *testing.T) {
	exec := &fakeExec{}
	p := NewProber(exec)

	if err := p.MkdirAll(context.Background(), "/tmp/a b"); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if exec.commands[0] != "mkdir -p '/tmp/a b'" {
		t.Errorf("Unexpected command: %s", exec.commands[0])
	}
}

func TestProber_ExpandHome(t *testing.T) {
	exec := &fakeExec{stdout: "/home/deploy\n"}
	p := NewProber(exec)

	got, err := p.ExpandHome(context.Background(), "~/uploads")
	if err != nil {
		t.Fatalf("ExpandHome failed: %v", err)
	}
	if got != "/home/deploy/uploads" {
		t.Errorf("Expected /home/deploy/uploads, got %s", got)
	}

	// Paths without ~ pass through without a remote call.
	before := len(exec.commands)
	got, err = p.ExpandHome(context.Background(), "/abs/path")
	if err != nil || got != "/abs/path" {
		t.Errorf("Expected passthrough, got (%s, %v)", got, err)
	}
	if len(exec.commands) != before {
		t.Error("ExpandHome probed the remote for an absolute path")
	}
}

func TestProber_ExecuteError(t *testing.T) {
	exec := &fakeExec{err: errors.New("session closed")}
	p := NewProber(exec)

	if _, err := p.WorkingDir(context.Background()); err == nil {
		t.Error("Expected error to propagate from executor")
	}
}
