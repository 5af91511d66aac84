package session

import "sync"

// Credentials caches the jump and target secrets for the lifetime of the
// process. Secrets are captured on first need, reused across reconnects,
// and cleared only when the server rejects them. Nothing here is ever
// written to disk.
type Credentials struct {
	mu        sync.Mutex
	jump      string
	target    string
	jumpSet   bool
	targetSet bool
}

// Jump returns the cached jump-host secret, if one is set
func (c *Credentials) Jump() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jump, c.jumpSet
}

// SetJump caches the jump-host secret
func (c *Credentials) SetJump(secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jump = secret
	c.jumpSet = true
}

// ClearJump drops the cached jump-host secret, forcing a re-prompt
func (c *Credentials) ClearJump() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jump = ""
	c.jumpSet = false
}

// Target returns the cached target-host secret, if one is set
func (c *Credentials) Target() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.targetSet
}

// SetTarget caches the target-host secret
func (c *Credentials) SetTarget(secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = secret
	c.targetSet = true
}

// ClearTarget drops the cached target-host secret, forcing a re-prompt
func (c *Credentials) ClearTarget() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = ""
	c.targetSet = false
}

// Clear drops both cached secrets
func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jump = ""
	c.target = ""
	c.jumpSet = false
	c.targetSet = false
}
