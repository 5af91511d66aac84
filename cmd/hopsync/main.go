package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hopsync/hopsync/pkg/tui"
)

func main() {
	// Logging goes to a file so it never paints over the TUI
	homeDir, err := os.UserHomeDir()
	if err != nil {
		slog.Error("Error getting home directory", "error", err)
		os.Exit(1)
	}

	dataDir := filepath.Join(homeDir, ".hopsync")
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		slog.Error("Error creating data directory", "error", err)
		os.Exit(1)
	}

	logFile, err := os.OpenFile(
		filepath.Join(dataDir, "debug.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND,
		0600,
	)
	if err != nil {
		slog.Error("Error opening log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	log.SetOutput(logFile)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	handler := slog.NewTextHandler(logFile, nil)
	slog.SetDefault(slog.New(handler))

	appModel, err := tui.NewAppModel()
	if err != nil {
		slog.Error("Error initializing application", "error", err)
		fmt.Fprintf(os.Stderr, "Error initializing application: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		appModel,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		slog.Error("Error running program", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
