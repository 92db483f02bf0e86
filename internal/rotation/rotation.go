// Package rotation implements the persisted monitor rotation cursor of
// spec.md §4.6: a small JSON document written by atomic rename,
// grounded on the teacher's internal/cache.go SaveIndex pattern and
// hardened with the write-temp-fsync-rename discipline spec.md §4.6
// mandates.
package rotation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
	"github.com/veighnsche/darkwall-comfyui/internal/logging"
)

// State is the persisted rotation record.
type State struct {
	Cursor      *string              `json:"cursor"`
	LastServed  map[string]time.Time `json:"last_served"`
	path        string
}

// Load reads the rotation state file at path. A missing file is
// treated as a fresh state; a corrupt file is logged as a warning and
// treated the same way — the persisted state never blocks startup,
// per spec.md §4.6.
func Load(path string) *State {
	s := &State{LastServed: make(map[string]time.Time), path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var onDisk struct {
		Cursor     *string              `json:"cursor"`
		LastServed map[string]time.Time `json:"last_served"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		logging.LogWarn("rotation state %s is corrupt, starting fresh: %v", path, err)
		return s
	}
	s.Cursor = onDisk.Cursor
	if onDisk.LastServed != nil {
		s.LastServed = onDisk.LastServed
	}
	return s
}

// Next returns the monitor to serve for a single-monitor invocation,
// given the configured monitor names in declaration order. If the
// cursor is unset or names a monitor no longer configured, the first
// configured monitor is returned.
func (s *State) Next(configured []string) string {
	if len(configured) == 0 {
		return ""
	}
	if s.Cursor == nil {
		return configured[0]
	}
	for i, name := range configured {
		if name == *s.Cursor {
			return configured[i]
		}
	}
	return configured[0]
}

// Record advances the cursor to the monitor after name in configured
// order (wrapping at the end), updates last_served[name], and
// persists the state atomically.
func (s *State) Record(name string, configured []string, now time.Time) error {
	s.LastServed[name] = now

	next := firstConfigured(configured)
	for i, n := range configured {
		if n == name {
			next = configured[(i+1)%len(configured)]
			break
		}
	}
	s.Cursor = &next

	return s.persist()
}

// Reset discards the persisted cursor; subsequent Next calls return
// the first configured monitor.
func (s *State) Reset() error {
	s.Cursor = nil
	s.LastServed = make(map[string]time.Time)
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}
	return nil
}

func firstConfigured(configured []string) string {
	if len(configured) == 0 {
		return ""
	}
	return configured[0]
}

// persist writes the state via temp-file + fsync + rename, so a
// concurrent reader never observes a torn file, per spec.md §5.
func (s *State) persist() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".rotation-*.tmp")
	if err != nil {
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return &darkwallerrors.StatePersistError{Path: s.path, Err: err}
	}
	return nil
}

// MarshalJSON implements json.Marshaler explicitly so the unexported
// path field never leaks into the persisted document.
func (s *State) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cursor     *string              `json:"cursor"`
		LastServed map[string]time.Time `json:"last_served"`
	}{Cursor: s.Cursor, LastServed: s.LastServed})
}
