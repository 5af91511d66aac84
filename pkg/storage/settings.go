// Package storage persists application settings and saved upload
// destinations under the data directory. Credentials are never stored.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings represents application settings
type Settings struct {
	JumpHost           string `json:"jumpHost"`
	JumpUser           string `json:"jumpUser"`
	TargetHost         string `json:"targetHost"`
	TargetUser         string `json:"targetUser"`
	Port               int    `json:"port"`
	ConnectTimeoutSec  int    `json:"connectTimeoutSec"`
	CommandTimeoutSec  int    `json:"commandTimeoutSec"`  // per remote command
	AuthRetrySec       int    `json:"authRetrySec"`       // backoff after a rejected password
	TransportRetrySec  int    `json:"transportRetrySec"`  // backoff after a network failure
	ConvertLineEndings bool   `json:"convertLineEndings"` // CRLF -> LF for text files
	S3Host             string `json:"s3Host,omitempty"`   // S3 endpoint for profile backups
	S3AccessKey        string `json:"s3AccessKey,omitempty"`
	S3SecretKey        string `json:"s3SecretKey,omitempty"`
	AutoBackup         bool   `json:"autoBackup"` // back up profiles after every change
}

// SettingsStore manages application settings
type SettingsStore struct {
	settings Settings
	filePath string
	mu       sync.RWMutex
}

// NewSettingsStore creates a new settings store
func NewSettingsStore(dataDir string) (*SettingsStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath := filepath.Join(dataDir, "settings.json")
	store := &SettingsStore{
		settings: getDefaultSettings(),
		filePath: filePath,
	}

	if err := store.load(); err != nil {
		// If file doesn't exist, that's okay, use defaults
		if !os.IsNotExist(err) {
			return nil, err
		}
		store.save()
	}

	return store, nil
}

// getDefaultSettings returns default settings
func getDefaultSettings() Settings {
	return Settings{
		JumpHost:           "sshgateway",
		Port:               22,
		ConnectTimeoutSec:  30,
		CommandTimeoutSec:  30,
		AuthRetrySec:       2,
		TransportRetrySec:  5,
		ConvertLineEndings: true,
		AutoBackup:         false,
	}
}

// load reads settings from disk
func (s *SettingsStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &s.settings)
}

// save writes settings to disk
func (s *SettingsStore) save() error {
	data, err := json.MarshalIndent(s.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0600)
}

// Get returns current settings
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update updates settings
func (s *SettingsStore) Update(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
	return s.save()
}

// SetConvertLineEndings toggles the CRLF -> LF conversion stage
func (s *SettingsStore) SetConvertLineEndings(convert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.ConvertLineEndings = convert
	return s.save()
}

// SetAutoBackup toggles automatic profile backups
func (s *SettingsStore) SetAutoBackup(autoBackup bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings.AutoBackup = autoBackup
	return s.save()
}

// Reset resets settings to defaults
func (s *SettingsStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = getDefaultSettings()
	return s.save()
}

// GetDataDir returns the directory where settings are stored
func (s *SettingsStore) GetDataDir() string {
	return filepath.Dir(s.filePath)
}
