package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/derxankvs/dataai-api/internal/config"
	"github.com/derxankvs/dataai-api/internal/storage"
	"github.com/derxankvs/dataai-api/internal/storage/mocks"
)

func seedDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "consultas.json"), []byte("[]"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guest"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guest", "report.json"), []byte(`{"x":1}`), 0o644))
	return dir
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestOnceCreatesArchive(t *testing.T) {
	dir := seedDataDir(t)
	job := NewJob(dir, config.BackupConfig{Retention: 7}, nil)

	name, err := job.Once(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^backup-.*\.zip$`, name)

	names := archiveNames(t, filepath.Join(dir, DirName, name))
	assert.ElementsMatch(t, []string{"consultas.json", "guest/report.json"}, names)
}

func TestOnceExcludesPriorBackups(t *testing.T) {
	dir := seedDataDir(t)
	job := NewJob(dir, config.BackupConfig{Retention: 7}, nil)
	job.now = func() time.Time { return time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC) }

	first, err := job.Once(context.Background())
	require.NoError(t, err)

	job.now = func() time.Time { return time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC) }
	second, err := job.Once(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	for _, name := range archiveNames(t, filepath.Join(dir, DirName, second)) {
		assert.NotContains(t, name, DirName+"/", "archive must not contain prior backups")
	}
}

func TestOnceAppliesRetention(t *testing.T) {
	dir := seedDataDir(t)
	job := NewJob(dir, config.BackupConfig{Retention: 2}, nil)

	for day := 1; day <= 4; day++ {
		d := day
		job.now = func() time.Time { return time.Date(2024, 1, d, 2, 0, 0, 0, time.UTC) }
		_, err := job.Once(context.Background())
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, DirName))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "backup-2024-01-03T02-00-00Z.zip", entries[0].Name())
	assert.Equal(t, "backup-2024-01-04T02-00-00Z.zip", entries[1].Name())
}

func TestOnceNotifiesWebhook(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	dir := seedDataDir(t)
	job := NewJob(dir, config.BackupConfig{Retention: 7, NotifyURL: srv.URL}, nil)

	name, err := job.Once(context.Background())
	require.NoError(t, err)
	assert.Equal(t, name, got["backup"])
}

func TestOnceNotifyFailureStillProducesArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	dir := seedDataDir(t)
	job := NewJob(dir, config.BackupConfig{Retention: 7, NotifyURL: srv.URL}, nil)

	name, err := job.Once(context.Background())
	assert.Error(t, err)
	assert.NotEmpty(t, name)
	_, statErr := os.Stat(filepath.Join(dir, DirName, name))
	assert.NoError(t, statErr)
}

func TestOnceUploadsAndMirrorsRetention(t *testing.T) {
	dir := seedDataDir(t)

	mStore := new(mocks.MockStorage)
	mStore.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, DirName+"/backup-")
	}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
		return opt.ContentType == "application/zip" && opt.Size > 0
	})).Return(storage.ObjectInfo{}, nil)
	mStore.On("Delete", mock.Anything, DirName+"/backup-2024-01-01T02-00-00Z.zip").Return(nil)

	job := NewJob(dir, config.BackupConfig{Retention: 1}, mStore)

	job.now = func() time.Time { return time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC) }
	_, err := job.Once(context.Background())
	require.NoError(t, err)

	job.now = func() time.Time { return time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC) }
	_, err = job.Once(context.Background())
	require.NoError(t, err)

	mStore.AssertExpectations(t)
}

func TestNextRun(t *testing.T) {
	loc := time.UTC

	t.Run("later today", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 1, 0, 0, 0, loc)
		assert.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, loc), nextRun(now, 2, 0))
	})

	t.Run("already past rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 3, 0, 0, 0, loc)
		assert.Equal(t, time.Date(2024, 1, 2, 2, 0, 0, 0, loc), nextRun(now, 2, 0))
	})

	t.Run("exactly at time rolls to tomorrow", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 2, 0, 0, 0, loc)
		assert.Equal(t, time.Date(2024, 1, 2, 2, 0, 0, 0, loc), nextRun(now, 2, 0))
	})
}

func TestParseClock(t *testing.T) {
	hour, minute, err := parseClock("02:30")
	require.NoError(t, err)
	assert.Equal(t, 2, hour)
	assert.Equal(t, 30, minute)

	for _, bad := range []string{"", "2", "25:00", "02:61", "ab:cd"} {
		_, _, err := parseClock(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
