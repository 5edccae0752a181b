package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T, compress bool) (*PersistentStore, string) {
	t.Helper()

	tmpDir := t.TempDir()
	s, err := Open(filepath.Join(tmpDir, "snapshot.db"), filepath.Join(tmpDir, "backups"), compress)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, tmpDir
}

func TestOpen_CreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "snapshot.db")
	backupPath := filepath.Join(tmpDir, "backups")

	s, err := Open(dbPath, backupPath, false)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected database file to exist: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Errorf("Expected backup directory to exist: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	for _, compress := range []bool{false, true} {
		s, _ := setupTestStore(t, compress)

		if err := s.Set("currentTime", "42.5"); err != nil {
			t.Fatalf("Failed to set value: %v", err)
		}
		got, ok := s.Get("currentTime")
		if !ok {
			t.Fatalf("Expected key to be found (compress=%v)", compress)
		}
		if got != "42.5" {
			t.Errorf("Expected %q, got %q (compress=%v)", "42.5", got, compress)
		}
	}
}

func TestGetMissingKey(t *testing.T) {
	s, _ := setupTestStore(t, false)
	if _, ok := s.Get("songIndex"); ok {
		t.Error("Expected missing key not to be found")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "snapshot.db")

	s, err := Open(dbPath, "", true)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	s.Set("playMode", "random")
	s.Set("songIndex", "3")
	s.Close()

	// Reopen without compression: values written compressed are still readable.
	s, err = Open(dbPath, "", false)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer s.Close()

	if got, _ := s.Get("playMode"); got != "random" {
		t.Errorf("Expected playMode random, got %q", got)
	}
	if got, _ := s.Get("songIndex"); got != "3" {
		t.Errorf("Expected songIndex 3, got %q", got)
	}
}

func TestCompressedValuesOnDisk(t *testing.T) {
	s, tmpDir := setupTestStore(t, true)
	s.Set("musicPlayerPlaylist", `{"songs":[],"currentIndex":-1}`)
	s.Close()

	db, err := bolt.Open(filepath.Join(tmpDir, "snapshot.db"), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("Failed to open raw database: %v", err)
	}
	defer db.Close()

	var raw string
	db.View(func(tx *bolt.Tx) error {
		raw = string(tx.Bucket([]byte(bucketName)).Get([]byte("musicPlayerPlaylist")))
		return nil
	})
	if len(raw) < 3 || raw[:3] != "gz:" {
		t.Errorf("Expected compressed value on disk, got %q", raw)
	}
}

func TestDeleteAndKeys(t *testing.T) {
	s, _ := setupTestStore(t, false)
	s.Set("b", "2")
	s.Set("a", "1")
	s.Set("c", "3")

	if err := s.Delete("b"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "c" {
		t.Errorf("Expected [a c], got %v", keys)
	}

	numKeys, _ := s.Stats()
	if numKeys != 2 {
		t.Errorf("Expected 2 keys, got %d", numKeys)
	}
}

func TestSetAfterClose(t *testing.T) {
	s, _ := setupTestStore(t, false)
	s.Close()

	if err := s.Set("k", "v"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}

func TestBackupListAndRestore(t *testing.T) {
	s, _ := setupTestStore(t, false)
	s.Set("songIndex", "1")

	path, err := s.Backup()
	if err != nil {
		t.Fatalf("Failed to create backup: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected backup file to exist: %v", err)
	}

	backups, err := s.ListBackups()
	if err != nil {
		t.Fatalf("Failed to list backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(backups))
	}

	s.Set("songIndex", "9")
	if err := s.RestoreFromBackup(backups[0].FileName); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}
	if got, _ := s.Get("songIndex"); got != "1" {
		t.Errorf("Expected restored songIndex 1, got %q", got)
	}

	// Store is writable again after restore.
	if err := s.Set("songIndex", "2"); err != nil {
		t.Errorf("Expected write after restore to succeed, got %v", err)
	}
}

func TestBackupFileValidation(t *testing.T) {
	s, _ := setupTestStore(t, false)

	tests := []struct {
		name string
		file string
	}{
		{"wrong extension", "backup.txt"},
		{"path traversal", "../snapshot.db"},
		{"missing file", "nope.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.RestoreFromBackup(tt.file); err == nil {
				t.Error("Expected restore to fail")
			}
			if err := s.DeleteBackup(tt.file); err == nil {
				t.Error("Expected delete to fail")
			}
		})
	}
}

func TestDeleteBackup(t *testing.T) {
	s, _ := setupTestStore(t, false)
	s.Set("k", "v")

	path, err := s.Backup()
	if err != nil {
		t.Fatalf("Failed to create backup: %v", err)
	}
	if err := s.DeleteBackup(filepath.Base(path)); err != nil {
		t.Fatalf("Failed to delete backup: %v", err)
	}

	backups, _ := s.ListBackups()
	if len(backups) != 0 {
		t.Errorf("Expected no backups, got %d", len(backups))
	}
}
