package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Profile is a saved upload destination. Passwords are deliberately not
// part of the profile; they are prompted for at connect time.
type Profile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	JumpHost    string `json:"jumpHost"`
	JumpUser    string `json:"jumpUser"`
	TargetHost  string `json:"targetHost"`
	TargetUser  string `json:"targetUser"`
	RemotePath  string `json:"remotePath,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// Store manages saved destination profiles
type Store struct {
	profiles map[string]*Profile
	filePath string
	mu       sync.RWMutex
}

// NewStore creates a new profile store
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	filePath := filepath.Join(dataDir, "profiles.json")
	store := &Store{
		profiles: make(map[string]*Profile),
		filePath: filePath,
	}

	if err := store.load(); err != nil {
		// If file doesn't exist, that's okay - will be created on first save
		if !os.IsNotExist(err) {
			// Corrupted file was backed up and reset; warn but keep going
			if strings.Contains(err.Error(), "backed up") {
				fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
			} else {
				return nil, err
			}
		}
	}

	return store, nil
}

// load reads profiles from disk
func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	// Handle empty file - treat as empty profile list
	if len(data) == 0 {
		return s.save()
	}

	var profiles []*Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		// Invalid JSON - create backup and reset
		backupPath := s.filePath + ".corrupted"
		if backupErr := os.WriteFile(backupPath, data, 0600); backupErr == nil {
			s.profiles = make(map[string]*Profile)
			if saveErr := s.save(); saveErr != nil {
				return fmt.Errorf("failed to parse profiles file (backup saved to %s): %w", backupPath, err)
			}
			return fmt.Errorf("corrupted profiles.json detected and backed up to %s - file has been reset", backupPath)
		}
		return fmt.Errorf("failed to parse profiles file: %w", err)
	}

	for _, p := range profiles {
		s.profiles[p.ID] = p
	}

	return nil
}

// save writes profiles to disk
func (s *Store) save() error {
	profiles := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0600)
}

// Add adds a new profile
func (s *Store) Add(profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.ID] = profile
	return s.save()
}

// Get retrieves a profile by ID
func (s *Store) Get(id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[id]
	if !exists {
		return nil, fmt.Errorf("profile not found: %s", id)
	}

	return profile, nil
}

// List returns all profiles
func (s *Store) List() []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}

	return profiles
}

// Update updates a profile
func (s *Store) Update(profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.ID]; !exists {
		return fmt.Errorf("profile not found: %s", profile.ID)
	}

	s.profiles[profile.ID] = profile
	return s.save()
}

// Delete removes a profile
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[id]; !exists {
		return fmt.Errorf("profile not found: %s", id)
	}

	delete(s.profiles, id)
	return s.save()
}

// Export returns the raw JSON of all profiles, for backups
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}

	return json.MarshalIndent(profiles, "", "  ")
}

// Import replaces the stored profiles with the given JSON, as produced
// by Export
func (s *Store) Import(data []byte) error {
	var profiles []*Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return fmt.Errorf("failed to parse profiles: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles = make(map[string]*Profile)
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}

	return s.save()
}
