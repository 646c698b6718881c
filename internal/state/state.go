package state

import (
	"encoding/hex"
	"encoding/json" // For JSON encoding and decoding of the state file
	"fmt"
	"io"
	"os" // For file system operations like reading and writing files
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"acfgen/internal/logger" // Custom logger package for logging errors and debug info
)

// ToolState records where a provisioned executable came from.
type ToolState struct {
	Path        string `json:"path"`         // Install path of the executable
	SourceURL   string `json:"source_url"`   // URL the bytes were retrieved from
	BLAKE3      string `json:"blake3"`       // Hex BLAKE3-256 digest of the installed file
	SizeBytes   int64  `json:"size_bytes"`   // Size of the installed file
	InstalledAt string `json:"installed_at"` // RFC3339 UTC timestamp
}

// State holds the entire saved state, keyed by executable name.
type State struct {
	Tools map[string]ToolState `json:"tools"`
}

// LoadState loads the saved state from a JSON file at the given path.
// If the file does not exist or cannot be parsed, it returns a new empty State.
func LoadState(path string) *State {
	file, err := os.ReadFile(path)
	if err != nil {
		return &State{Tools: make(map[string]ToolState)}
	}

	var st State
	if err := json.Unmarshal(file, &st); err != nil {
		logger.Warn("[WARN] Ignoring unreadable state file %s: %v\n", path, err)
	}
	if st.Tools == nil {
		st.Tools = make(map[string]ToolState)
	}
	return &st
}

// SaveState writes the given State to a JSON file at the given path, pretty-printed.
func SaveState(path string, st *State) error {
	file, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	logger.Debug("[DEBUG] Writing state to %s:\n%s\n", path, string(file))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, file, 0o644); err != nil {
		return fmt.Errorf("failed to write state file %s: %w", path, err)
	}
	return nil
}

// Describe hashes the file at path and returns its provenance record.
func Describe(path, sourceURL string) (ToolState, error) {
	f, err := os.Open(path)
	if err != nil {
		return ToolState{}, err
	}
	defer f.Close()

	h := blake3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return ToolState{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return ToolState{
		Path:        path,
		SourceURL:   sourceURL,
		BLAKE3:      hex.EncodeToString(h.Sum(nil)),
		SizeBytes:   n,
		InstalledAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
