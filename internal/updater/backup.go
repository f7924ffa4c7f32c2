package updater

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	backupFilename     = "ledsim.backup"
	backupInfoFilename = "backup.json"
)

var errNoBackup = errors.New("no backup available")

type backupInfo struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ExecPath  string    `json:"exec_path"`
}

// backups keeps one copy of the binary being replaced.
type backups struct {
	dir string
}

// defaultBackupDir is ~/.cache/ledsim/backup.
func defaultBackupDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "ledsim", "backup"), nil
}

func (b backups) binaryPath() string { return filepath.Join(b.dir, backupFilename) }
func (b backups) infoPath() string   { return filepath.Join(b.dir, backupInfoFilename) }

// info returns the recorded backup, or errNoBackup when there is none or its
// binary has gone missing.
func (b backups) info() (backupInfo, error) {
	var info backupInfo
	data, err := os.ReadFile(b.infoPath())
	if errors.Is(err, os.ErrNotExist) {
		return info, errNoBackup
	}
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, fmt.Errorf("failed to parse backup info: %w", err)
	}
	if _, err := os.Stat(b.binaryPath()); err != nil {
		return info, errNoBackup
	}
	return info, nil
}

// save copies execPath into the backup directory and records version.
func (b backups) save(execPath, version string) (backupInfo, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return backupInfo{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := copyFile(b.binaryPath(), execPath); err != nil {
		return backupInfo{}, err
	}

	info := backupInfo{Version: version, CreatedAt: time.Now(), ExecPath: execPath}
	data, err := json.Marshal(info)
	if err != nil {
		return backupInfo{}, fmt.Errorf("failed to marshal backup info: %w", err)
	}
	if err := os.WriteFile(b.infoPath(), data, 0o644); err != nil {
		return backupInfo{}, fmt.Errorf("failed to write backup info: %w", err)
	}
	return info, nil
}

// restore copies the backup over the binary it was taken from.
func (b backups) restore() (backupInfo, error) {
	info, err := b.info()
	if err != nil {
		return info, err
	}
	return info, copyFile(info.ExecPath, b.binaryPath())
}

func copyFile(dstPath, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dstPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to copy %s: %w", srcPath, err)
	}
	return dst.Close()
}
