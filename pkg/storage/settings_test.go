package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewSettingsStore(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewSettingsStore(tempDir)
	if err != nil {
		t.Fatalf("NewSettingsStore failed: %v", err)
	}

	// Verify defaults
	settings := store.Get()
	if settings.JumpHost != "sshgateway" {
		t.Errorf("Expected default jump host 'sshgateway', got '%s'", settings.JumpHost)
	}
	if settings.Port != 22 {
		t.Errorf("Expected default port 22, got %d", settings.Port)
	}
	if !settings.ConvertLineEndings {
		t.Error("Expected ConvertLineEndings to be true by default")
	}
	if settings.AutoBackup {
		t.Error("Expected AutoBackup to be false by default")
	}
	if settings.S3Host != "" {
		t.Error("Expected S3Host to be empty by default")
	}

	// Verify persistence file exists
	if _, err := os.Stat(filepath.Join(tempDir, "settings.json")); os.IsNotExist(err) {
		t.Error("settings.json was not created")
	}
}

func TestSetConvertLineEndings(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewSettingsStore(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.SetConvertLineEndings(false); err != nil {
		t.Fatalf("SetConvertLineEndings failed: %v", err)
	}

	if store.Get().ConvertLineEndings {
		t.Error("ConvertLineEndings not updated in memory")
	}

	// Reload from disk to verify persistence
	newStore, err := NewSettingsStore(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	if newStore.Get().ConvertLineEndings {
		t.Error("ConvertLineEndings not persisted to disk")
	}
}

func TestSettingsUpdateAndReset(t *testing.T) {
	tempDir := t.TempDir()

	store, err := NewSettingsStore(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	settings := store.Get()
	settings.JumpUser = "alice"
	settings.TargetHost = "10.0.0.5"
	settings.TargetUser = "deploy"
	settings.S3Host = "https://example.com"
	settings.S3AccessKey = "access-key"

	if err := store.Update(settings); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Verify persistence by reloading
	newStore, err := NewSettingsStore(tempDir)
	if err != nil {
		t.Fatal(err)
	}

	loaded := newStore.Get()
	if loaded.JumpUser != "alice" {
		t.Errorf("Expected JumpUser alice, got %s", loaded.JumpUser)
	}
	if loaded.TargetHost != "10.0.0.5" {
		t.Errorf("Expected TargetHost 10.0.0.5, got %s", loaded.TargetHost)
	}
	if loaded.S3AccessKey != "access-key" {
		t.Errorf("Expected S3AccessKey access-key, got %s", loaded.S3AccessKey)
	}

	if err := newStore.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if newStore.Get().JumpUser != "" {
		t.Error("Expected JumpUser cleared after reset")
	}
	if newStore.Get().JumpHost != "sshgateway" {
		t.Error("Expected default jump host restored after reset")
	}
}
