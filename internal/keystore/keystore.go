package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/derxankvs/dataai-api/internal/fsutil"
)

// Extension is the fixed suffix of every stored document file.
const Extension = ".json"

// DefaultOwner is used when a request does not identify a user.
const DefaultOwner = "guest"

var ErrNotFound = errors.New("document not found")

// Location describes where a stored document lives on disk.
type Location struct {
	Owner string
	Key   string
	Path  string
}

// Store maps (owner, key) pairs to JSON documents under a root directory.
// Each owner gets a subdirectory; documents are written atomically so a
// reader racing a writer sees either the old or the new content, never a
// torn file.
type Store struct {
	root string
}

// New creates a Store rooted at the given data directory.
func New(root string) *Store {
	return &Store{root: root}
}

// SafeFilename reduces a name to the character class [A-Za-z0-9_.-],
// replacing everything else with '_'. The result never contains a path
// separator. Names that would resolve to the current or parent directory
// ("", "." and "..") are mapped to "_" so a sanitized segment can never
// escape the storage root. Sanitization is idempotent.
func SafeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// Filename returns the on-disk filename for a key, sanitized.
func Filename(key string) string {
	return SafeFilename(key) + Extension
}

func (s *Store) path(owner, key string) (dir, file string) {
	dir = filepath.Join(s.root, SafeFilename(owner))
	file = filepath.Join(dir, Filename(key))
	return dir, file
}

// Write serializes doc as pretty-printed JSON and replaces any prior content
// at the (owner, key) path. The owner subdirectory is created if absent;
// creation is idempotent and safe to repeat concurrently.
func (s *Store) Write(owner, key string, doc any) (Location, error) {
	dir, file := s.path(owner, key)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Location{}, fmt.Errorf("create owner directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Location{}, fmt.Errorf("encode document: %w", err)
	}

	if err := fsutil.WriteFileAtomic(file, data, 0o644); err != nil {
		return Location{}, fmt.Errorf("write document: %w", err)
	}

	return Location{Owner: SafeFilename(owner), Key: SafeFilename(key), Path: file}, nil
}

// Read returns the raw bytes stored for (owner, key), or ErrNotFound if the
// document was never written.
func (s *Store) Read(owner, key string) ([]byte, error) {
	_, file := s.path(owner, key)

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// ListTopLevel enumerates files directly under the data root that end in
// Extension, skipping per-owner subdirectories and any excluded filenames.
// A missing root yields an empty list.
func (s *Store) ListTopLevel(exclude ...string) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		skip[name] = struct{}{}
	}

	files := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, Extension) {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		files = append(files, name)
	}
	return files, nil
}
