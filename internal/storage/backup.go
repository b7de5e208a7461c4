package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupExt          = ".db"
	encryptedBackupExt = ".db.enc"
)

// BackupManager handles database backup and restore operations.
type BackupManager struct {
	dbPath string
	dir    string
}

// NewBackupManager creates a backup manager for the database at dbPath.
// An empty dir means a "backups" directory next to the database.
func NewBackupManager(dbPath, dir string) *BackupManager {
	if dir == "" {
		dir = filepath.Join(filepath.Dir(dbPath), "backups")
	}
	return &BackupManager{dbPath: dbPath, dir: dir}
}

// Dir returns the backup directory.
func (bm *BackupManager) Dir() string {
	return bm.dir
}

// BackupOptions configures a single backup.
type BackupOptions struct {
	// Name is the file name without extension. Empty means backup_<timestamp>.
	Name string

	// Encryption, when set, stores the backup encrypted.
	Encryption *EncryptionConfig

	// Keep prunes older backups so that at most Keep remain (0 = keep all).
	Keep int
}

// BackupInfo contains information about a backup file.
type BackupInfo struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	Encrypted bool
	Checksum  string
}

// Create writes a consistent copy of the open database with VACUUM INTO,
// verifies it and optionally encrypts it.
func (bm *BackupManager) Create(ctx context.Context, db *DB, opts BackupOptions) (*BackupInfo, error) {
	if err := os.MkdirAll(bm.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = "backup_" + time.Now().Format("20060102_150405")
	}
	plainPath := filepath.Join(bm.dir, name+backupExt)
	if _, err := os.Stat(plainPath); err == nil {
		return nil, fmt.Errorf("backup %s already exists", plainPath)
	}

	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, plainPath); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	if err := VerifyBackup(plainPath); err != nil {
		_ = os.Remove(plainPath)
		return nil, fmt.Errorf("backup verification failed: %w", err)
	}

	path := plainPath
	if opts.Encryption != nil {
		path = filepath.Join(bm.dir, name+encryptedBackupExt)
		err := EncryptFile(plainPath, path, opts.Encryption)
		_ = os.Remove(plainPath)
		if err != nil {
			return nil, err
		}
	}

	if opts.Keep > 0 {
		if _, err := bm.Prune(opts.Keep); err != nil {
			return nil, err
		}
	}
	return describeBackup(path)
}

// List returns the backups in the backup directory, newest first.
func (bm *BackupManager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.dir)
	if os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []BackupInfo{}
	for _, entry := range entries {
		if entry.IsDir() || !isBackupName(entry.Name()) {
			continue
		}
		info, err := describeBackup(filepath.Join(bm.dir, entry.Name()))
		if err != nil {
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].ModTime.Equal(backups[j].ModTime) {
			return backups[i].ModTime.After(backups[j].ModTime)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

// Prune removes all but the newest keep backups and returns the removed paths.
func (bm *BackupManager) Prune(keep int) ([]string, error) {
	backups, err := bm.List()
	if err != nil {
		return nil, err
	}

	var removed []string
	for i := keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return removed, fmt.Errorf("failed to remove backup %s: %w", backups[i].Name, err)
		}
		removed = append(removed, backups[i].Path)
	}
	return removed, nil
}

// Restore replaces the database file with a backup. The database must be
// closed by the caller. The current file is kept as <db>.old.<timestamp>.
// Encrypted backups need encryption; plain ones ignore it.
func (bm *BackupManager) Restore(backupPath string, encryption *EncryptionConfig) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}

	tempPath := bm.dbPath + ".restore.tmp"
	encrypted, err := IsEncrypted(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if encrypted {
		if encryption == nil {
			return fmt.Errorf("backup %s is encrypted; a password is required", filepath.Base(backupPath))
		}
		err = DecryptFile(backupPath, tempPath, encryption)
	} else {
		err = copyFile(backupPath, tempPath)
	}
	if err != nil {
		_ = os.Remove(tempPath)
		return err
	}

	if err := VerifyBackup(tempPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("restored database verification failed: %w", err)
	}

	if _, err := os.Stat(bm.dbPath); err == nil {
		oldPath := bm.dbPath + ".old." + time.Now().Format("20060102_150405")
		if err := os.Rename(bm.dbPath, oldPath); err != nil {
			_ = os.Remove(tempPath)
			return fmt.Errorf("failed to move current database aside: %w", err)
		}
		// WAL files belong to the replaced database
		for _, suffix := range []string{"-wal", "-shm"} {
			_ = os.Remove(bm.dbPath + suffix)
		}
	}

	if err := os.Rename(tempPath, bm.dbPath); err != nil {
		return fmt.Errorf("failed to replace database with backup: %w", err)
	}
	return nil
}

// VerifyBackup checks that path is an intact SQLite database holding a collection.
func VerifyBackup(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open backup as database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow(`PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("failed to check backup integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('cards', 'locations', 'collection')`).
		Scan(&tables)
	if err != nil {
		return fmt.Errorf("failed to inspect backup schema: %w", err)
	}
	if tables != 3 {
		return fmt.Errorf("backup does not contain a collection database")
	}
	return nil
}

func isBackupName(name string) bool {
	return strings.HasSuffix(name, encryptedBackupExt) || filepath.Ext(name) == backupExt
}

func describeBackup(path string) (*BackupInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	checksum, err := calculateChecksum(path)
	if err != nil {
		checksum = "unknown"
	}
	return &BackupInfo{
		Path:      path,
		Name:      filepath.Base(path),
		Size:      stat.Size(),
		ModTime:   stat.ModTime(),
		Encrypted: strings.HasSuffix(path, encryptedBackupExt),
		Checksum:  checksum,
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create restore file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy backup file: %w", err)
	}
	return out.Close()
}

// calculateChecksum calculates the SHA-256 checksum of a file.
func calculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
