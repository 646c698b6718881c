package state

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zeebo/blake3"
)

func TestLoadStateMissingFile(t *testing.T) {
	st := LoadState(filepath.Join(t.TempDir(), "none.json"))
	if st.Tools == nil || len(st.Tools) != 0 {
		t.Fatalf("expected empty initialized state, got %+v", st)
	}
}

func TestLoadStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := LoadState(path)
	if st.Tools == nil {
		t.Fatal("expected non-nil tools map")
	}
}

func TestSaveAndLoadState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")
	want := &State{Tools: map[string]ToolState{
		"gen.exe": {Path: "/x/gen.exe", SourceURL: "https://example.test/gen.exe", BLAKE3: "ab", SizeBytes: 3, InstalledAt: "2026-01-01T00:00:00Z"},
	}}
	if err := SaveState(path, want); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	got := LoadState(path)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gen.exe")
	data := []byte("MZ fake executable")
	if err := os.WriteFile(path, data, 0o755); err != nil {
		t.Fatal(err)
	}

	ts, err := Describe(path, "https://example.test/gen.exe")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	sum := blake3.Sum256(data)
	if ts.BLAKE3 != hex.EncodeToString(sum[:]) {
		t.Errorf("digest mismatch: %s", ts.BLAKE3)
	}
	if ts.SizeBytes != int64(len(data)) || ts.Path != path || ts.InstalledAt == "" {
		t.Errorf("unexpected record: %+v", ts)
	}
}
