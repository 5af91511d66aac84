package ssh

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Config represents the connection details for one SSH hop
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	PrivateKey  string // Path to private key file or PEM content
	KeyContent  []byte // Loaded private key content
	KeyPassword string // Passphrase for encrypted private keys (not stored)
	Timeout     time.Duration
}

// Validate checks if the SSH configuration is valid
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("invalid port number")
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	// Password-only, key-only and password+key are all acceptable.
	return nil
}

// LoadPrivateKey loads the private key from file if PrivateKey is a file path
func (c *Config) LoadPrivateKey() error {
	if c.PrivateKey == "" {
		return nil
	}

	// PEM content can be passed directly instead of a path
	if len(c.PrivateKey) > 5 && c.PrivateKey[:5] == "-----" {
		c.KeyContent = []byte(c.PrivateKey)
		return nil
	}

	content, err := os.ReadFile(c.PrivateKey)
	if err != nil {
		return err
	}
	c.KeyContent = content
	return nil
}

// Addr returns the dialable host:port address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Label returns a user@host identifier used in prompts and logs
func (c *Config) Label() string {
	return fmt.Sprintf("%s@%s", c.Username, c.Host)
}
