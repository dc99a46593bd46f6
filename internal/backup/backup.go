// Package backup produces daily zip snapshots of the data directory. Prior
// backups are excluded from new archives and a keep-last-N retention policy
// bounds disk growth. Completion can notify a webhook and push the archive
// to object storage; failures are logged and never retried.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/derxankvs/dataai-api/internal/config"
	"github.com/derxankvs/dataai-api/internal/storage"
)

// DirName is the snapshot subdirectory inside the data directory.
const DirName = "backups"

// Job archives the data directory on demand or on a daily schedule.
type Job struct {
	dataDir string
	cfg     config.BackupConfig
	store   storage.Storage // optional off-site copy target
	client  *http.Client
	now     func() time.Time
}

// NewJob constructs a backup job. store may be nil; the off-site copy is
// then skipped.
func NewJob(dataDir string, cfg config.BackupConfig, store storage.Storage) *Job {
	return &Job{
		dataDir: dataDir,
		cfg:     cfg,
		store:   store,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// Once takes a single snapshot: archive, retention, then best-effort
// notification and upload. It returns the archive filename.
func (j *Job) Once(ctx context.Context) (string, error) {
	ts := j.now().UTC().Format("2006-01-02T15-04-05Z")
	name := "backup-" + ts + ".zip"

	dir := filepath.Join(j.dataDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	target := filepath.Join(dir, name)
	if err := archiveDir(j.dataDir, target, DirName); err != nil {
		return "", fmt.Errorf("archive data directory: %w", err)
	}

	expired, err := j.applyRetention(dir)
	if err != nil {
		return "", fmt.Errorf("apply retention: %w", err)
	}

	if err := j.notify(ctx, name); err != nil {
		return name, fmt.Errorf("notify webhook: %w", err)
	}
	if err := j.upload(ctx, target, name); err != nil {
		return name, fmt.Errorf("upload archive: %w", err)
	}
	// Mirror local retention off-site
	if j.store != nil {
		for _, old := range expired {
			if err := j.store.Delete(ctx, DirName+"/"+old); err != nil {
				return name, fmt.Errorf("delete expired archive %s: %w", old, err)
			}
		}
	}

	return name, nil
}

// archiveDir zips root into target, skipping the named top-level directory
// (the backups folder itself) and the in-flight archive file.
func archiveDir(root, target, skipDir string) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if rel == skipDir {
				return filepath.SkipDir
			}
			return nil
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return openErr
		}
		defer f.Close()

		w, createErr := zw.Create(filepath.ToSlash(rel))
		if createErr != nil {
			return createErr
		}
		_, copyErr := io.Copy(w, f)
		return copyErr
	})
	if err != nil {
		return err
	}
	return zw.Close()
}

// applyRetention removes the oldest archives beyond the configured count and
// returns the removed names. Archive names embed their timestamp, so lexical
// order is chronological.
func (j *Job) applyRetention(dir string) ([]string, error) {
	if j.cfg.Retention <= 0 {
		return nil, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var archives []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "backup-") && strings.HasSuffix(e.Name(), ".zip") {
			archives = append(archives, e.Name())
		}
	}
	sort.Strings(archives)

	var removed []string
	for len(archives) > j.cfg.Retention {
		if err := os.Remove(filepath.Join(dir, archives[0])); err != nil {
			return removed, err
		}
		removed = append(removed, archives[0])
		archives = archives[1:]
	}
	return removed, nil
}

func (j *Job) notify(ctx context.Context, name string) error {
	if j.cfg.NotifyURL == "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{"backup": name})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.cfg.NotifyURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (j *Job) upload(ctx context.Context, path, name string) error {
	if j.store == nil {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = j.store.Put(ctx, DirName+"/"+name, f, storage.PutObjectOptions{
		Size:        info.Size(),
		ContentType: "application/zip",
	})
	return err
}
