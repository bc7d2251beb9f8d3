package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/silvadiego2/solviss-financas-pessoais-sub000/internal/service"
)

const (
	backupDirName = "backups"
	autoPrefix    = "auto-"

	// maxAutoBackups is how many automatic snapshots survive pruning.
	maxAutoBackups = 5
)

func (s *SQLiteStorage) backupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), backupDirName)
}

// Backup writes a consistent copy of the database to the backups directory
// next to the database file and returns its path.
func (s *SQLiteStorage) Backup(ctx context.Context, name string) (string, error) {
	if s.dbPath == ":memory:" {
		return "", fmt.Errorf("cannot back up an in-memory database")
	}
	if err := validateBackupName(name); err != nil {
		return "", err
	}

	dir := s.backupDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest, err := filepath.Abs(filepath.Join(dir, name+".db"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve backup path: %w", err)
	}
	if strings.ContainsAny(dest, `'";`) {
		return "", fmt.Errorf("invalid backup path %q", dest)
	}
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("backup %q already exists", name)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return "", fmt.Errorf("failed to checkpoint WAL: %w", err)
	}
	// #nosec G201 - dest is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	slog.Debug("database backed up", "path", dest)
	return dest, nil
}

// AutoBackup snapshots the database before a destructive operation and
// prunes older automatic snapshots.
func (s *SQLiteStorage) AutoBackup(ctx context.Context, operation string) (string, error) {
	name := fmt.Sprintf("%s%s-%s", autoPrefix, operation, time.Now().UTC().Format("20060102-150405.000"))
	path, err := s.Backup(ctx, name)
	if err != nil {
		return "", err
	}

	if err := s.pruneAutoBackups(); err != nil {
		slog.Warn("failed to prune old automatic backups", "error", err)
	}
	return path, nil
}

// ListBackups returns the snapshots on disk, newest first.
func (s *SQLiteStorage) ListBackups() ([]service.BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []service.BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".db")
		backups = append(backups, service.BackupInfo{
			Name:      name,
			Path:      filepath.Join(s.backupDir(), entry.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
			IsAuto:    strings.HasPrefix(name, autoPrefix),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Name > backups[j].Name
	})
	return backups, nil
}

func (s *SQLiteStorage) pruneAutoBackups() error {
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}

	kept := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		kept++
		if kept <= maxAutoBackups {
			continue
		}
		if err := os.Remove(b.Path); err != nil {
			slog.Debug("failed to remove old backup", "path", b.Path, "error", err)
		}
	}
	return nil
}

func validateBackupName(name string) error {
	if err := validateString(name, "backup name"); err != nil {
		return err
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("backup name %q may only contain letters, digits, '-', '_' and '.'", name)
		}
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("backup name %q may not start with '.'", name)
	}
	return nil
}
