package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rustyeddy/platinum/session"
)

// ErrCorrupt marks a state file that could not be parsed. The caller gets
// a fresh day alongside this error and should notify loudly: starting
// empty risks re-attempting a trade the lost file knew about.
var ErrCorrupt = errors.New("state file corrupt")

// ErrAbandonedTrade marks a stale-dated file that still held a
// non-terminal trade. The file is discarded either way; the caller should
// surface the abandoned position.
var ErrAbandonedTrade = errors.New("stale state file held a non-terminal trade")

// Store persists Day snapshots to a single JSON file. It is the only
// writer; every save replaces the whole file atomically
// (write-temp-then-rename), so readers never observe a partial write.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the persisted day for today. A missing file, a file dated
// another day, or a corrupt file all yield a fresh empty day; only the
// corrupt and abandoned-trade cases also return their sentinel error so
// the caller can notify.
func (s *Store) Load(today session.Date) (Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := NewDay(today)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fresh, nil
		}
		return fresh, fmt.Errorf("read state: %w", err)
	}

	var day Day
	if err := json.Unmarshal(data, &day); err != nil {
		return fresh, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if day.Date != today.String() {
		// Yesterday's file is ignored, never merged.
		if len(day.NonTerminal()) > 0 {
			return fresh, fmt.Errorf("%w (dated %s)", ErrAbandonedTrade, day.Date)
		}
		return fresh, nil
	}

	if day.Sessions == nil {
		day.Sessions = map[string]*SessionState{}
	}
	return day, nil
}

// Save atomically replaces the state file with the given snapshot.
func (s *Store) Save(day Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(day, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("state temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Reset removes the state file.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
