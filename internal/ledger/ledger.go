// Package ledger implements the shared JSON-array-file logs: one file holds
// an ordered sequence of records, newest first for history logs. Access is
// serialized per file with an in-process mutex and writes go through an
// atomic rename, so concurrent appenders cannot tear the array.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/derxankvs/dataai-api/internal/fsutil"
)

// Reserved ledger filenames inside the data directory.
const (
	ConsultationsFile = "consultas.json"
	PaymentsFile      = "pagamentos.json"
	UsersFile         = "users.json"
)

// Ledger is a single JSON array file. A missing or empty file reads as [].
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New creates a Ledger backed by the given file path. The file is created
// lazily on first write.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.path
}

// Prepend inserts v at the front of the array (newest-first ordering).
func (l *Ledger) Prepend(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return l.mutate(func(items []json.RawMessage) ([]json.RawMessage, error) {
		return append([]json.RawMessage{raw}, items...), nil
	})
}

// Append inserts v at the end of the array.
func (l *Ledger) Append(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return l.mutate(func(items []json.RawMessage) ([]json.RawMessage, error) {
		return append(items, raw), nil
	})
}

// ReadAll returns the raw JSON array. A missing file yields [].
func (l *Ledger) ReadAll() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("[]"), nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return []byte("[]"), nil
	}
	return data, nil
}

// Mutate applies fn to the decoded array under the ledger lock and writes the
// result back atomically. fn may return a modified slice or an error to abort
// without writing.
func (l *Ledger) Mutate(fn func(items []json.RawMessage) ([]json.RawMessage, error)) error {
	return l.mutate(fn)
}

func (l *Ledger) mutate(fn func(items []json.RawMessage) ([]json.RawMessage, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.load()
	if err != nil {
		return err
	}

	items, err = fn(items)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := fsutil.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

func (l *Ledger) load() ([]json.RawMessage, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return []json.RawMessage{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return items, nil
}
