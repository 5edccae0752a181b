package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"music-player-go/logcolors"
	"music-player-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "snapshot"

var (
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("store is closed")
	// ErrInvalidBackup is returned for backup names outside the backup directory or without a .db suffix.
	ErrInvalidBackup = errors.New("invalid backup file: must be a .db file")
)

// PersistentStore is the durable key-value store behind the player snapshot.
// Reads are served from memory; every write goes through to BoltDB.
type PersistentStore struct {
	mu         sync.RWMutex
	db         *bolt.DB
	mem        map[string]string
	dbPath     string
	backupPath string
	compress   bool
}

// BackupInfo describes a backup file on disk.
type BackupInfo struct {
	FileName  string    `json:"file_name"`
	Size      int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Open opens (or creates) the store at dbPath and preloads it into memory.
func Open(dbPath, backupPath string, compress bool) (*PersistentStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	if backupPath != "" {
		if err := os.MkdirAll(backupPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing snapshot file at %s (%d bytes)", logcolors.LogStoreInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating snapshot file at %s", logcolors.LogStoreInit, dbPath)
	}

	s := &PersistentStore{
		mem:        make(map[string]string),
		dbPath:     dbPath,
		backupPath: backupPath,
		compress:   compress,
	}
	if err := s.open(); err != nil {
		return nil, err
	}

	log.Infof("%s Snapshot store ready at %s (%d keys, compression: %v)", logcolors.LogStore, dbPath, len(s.mem), compress)
	return s, nil
}

// open must be called with mu held for writing or before s is shared.
func (s *PersistentStore) open() error {
	db, err := bolt.Open(s.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create snapshot bucket: %w", err)
	}

	mem := make(map[string]string)
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			value, err := utils.Decompress(string(v))
			if err != nil {
				log.Warnf("%s Skipping unreadable value for key %s: %v", logcolors.LogStore, k, err)
				return nil
			}
			mem[string(k)] = value
			return nil
		})
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to preload snapshot: %w", err)
	}

	s.db = db
	s.mem = mem
	return nil
}

// Get returns the value stored under key.
func (s *PersistentStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.mem[key]
	return v, ok
}

// Set stores value under key, in memory and on disk.
func (s *PersistentStore) Set(key, value string) error {
	stored := value
	if s.compress {
		var err error
		if stored, err = utils.Compress(value); err != nil {
			return fmt.Errorf("failed to compress %s: %w", key, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), []byte(stored))
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	s.mem[key] = value
	return nil
}

// Delete removes key.
func (s *PersistentStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	delete(s.mem, key)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Keys returns all stored keys in sorted order.
func (s *PersistentStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.mem))
	for k := range s.mem {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns the key count and the approximate in-memory size in KB.
func (s *PersistentStore) Stats() (numKeys int, sizeInKB int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := 0
	for k, v := range s.mem {
		size += len(k) + len(v)
	}
	return len(s.mem), size / 1024
}

// Backup copies the database file into the backup directory and returns its path.
func (s *PersistentStore) Backup() (string, error) {
	if s.backupPath == "" {
		return "", fmt.Errorf("no backup directory configured")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return "", ErrClosed
	}

	name := fmt.Sprintf("snapshot_backup_%s.db", time.Now().Format("2006-01-02_15-04-05.000"))
	dst := filepath.Join(s.backupPath, name)

	// A read transaction gives a consistent copy without closing the database.
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(dst, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	log.Infof("%s Backup created: %s", logcolors.LogStoreBackup, dst)
	return dst, nil
}

// ListBackups returns the backups on disk, newest first.
func (s *PersistentStore) ListBackups() ([]BackupInfo, error) {
	backups := []BackupInfo{}
	if s.backupPath == "" {
		return backups, nil
	}

	entries, err := os.ReadDir(s.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warnf("%s Failed to stat %s: %v", logcolors.LogStoreBackups, entry.Name(), err)
			continue
		}
		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].FileName > backups[j].FileName
	})
	return backups, nil
}

// RestoreFromBackup replaces the live database with the named backup and reloads it.
func (s *PersistentStore) RestoreFromBackup(name string) error {
	src, err := s.backupFile(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil

	preRestore := s.dbPath + ".pre-restore"
	if err := copyFile(s.dbPath, preRestore); err != nil {
		s.reopen()
		return fmt.Errorf("failed to save current database: %w", err)
	}
	if err := copyFile(src, s.dbPath); err != nil {
		copyFile(preRestore, s.dbPath)
		s.reopen()
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	os.Remove(preRestore)

	if err := s.open(); err != nil {
		return fmt.Errorf("failed to reopen database after restore: %w", err)
	}

	log.Infof("%s Restored snapshot from %s (%d keys)", logcolors.LogStoreBackup, name, len(s.mem))
	return nil
}

// DeleteBackup removes the named backup file.
func (s *PersistentStore) DeleteBackup(name string) error {
	path, err := s.backupFile(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	log.Infof("%s Deleted backup: %s", logcolors.LogStoreBackup, name)
	return nil
}

func (s *PersistentStore) backupFile(name string) (string, error) {
	if filepath.Ext(name) != ".db" || strings.ContainsAny(name, `/\`) || name == ".db" {
		return "", ErrInvalidBackup
	}
	path := filepath.Join(s.backupPath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("backup file not found: %s", name)
	}
	return path, nil
}

func (s *PersistentStore) reopen() {
	if err := s.open(); err != nil {
		log.Errorf("%s Failed to reopen database: %v", logcolors.LogStore, err)
	}
}

// Close closes the database. Further writes return ErrClosed.
func (s *PersistentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
