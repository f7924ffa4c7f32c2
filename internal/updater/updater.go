// Package updater replaces the running ledsim binary with the latest GitHub
// release, keeping a backup of the previous binary for rollback.
package updater

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/smazurov/ledsim/internal/logging"
	"github.com/smazurov/ledsim/internal/version"
)

// DefaultRepository is the GitHub slug releases are fetched from.
const DefaultRepository = "smazurov/ledsim"

// Options configures an Updater.
type Options struct {
	Repository string // GitHub slug, DefaultRepository when empty
	Prerelease bool
	BackupDir  string // ~/.cache/ledsim/backup when empty
	ExecPath   string // the running executable when empty
}

// UpdateInfo describes the latest release relative to the running version.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes"`
	ReleaseURL      string    `json:"release_url"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size"`
	UpdateAvailable bool      `json:"update_available"`
}

// releaseSource is the part of *selfupdate.Updater used here.
type releaseSource interface {
	DetectLatest(ctx context.Context, repository selfupdate.Repository) (*selfupdate.Release, bool, error)
	UpdateTo(ctx context.Context, rel *selfupdate.Release, cmdPath string) error
}

// Updater checks for and applies releases.
type Updater struct {
	source   releaseSource
	repo     selfupdate.Repository
	backups  backups
	execPath string
	logger   *slog.Logger
}

// New returns an updater reading releases from GitHub.
func New(opts Options) (*Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, newError(ErrCodeCheckFailed, "failed to create GitHub source", err)
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, newError(ErrCodeCheckFailed, "failed to create updater", err)
	}
	return newUpdater(up, opts)
}

func newUpdater(source releaseSource, opts Options) (*Updater, error) {
	if opts.Repository == "" {
		opts.Repository = DefaultRepository
	}
	if opts.BackupDir == "" {
		dir, err := defaultBackupDir()
		if err != nil {
			return nil, newError(ErrCodeBackupFailed, "no backup directory", err)
		}
		opts.BackupDir = dir
	}
	return &Updater{
		source:   source,
		repo:     selfupdate.ParseSlug(opts.Repository),
		backups:  backups{dir: opts.BackupDir},
		execPath: opts.ExecPath,
		logger:   logging.GetLogger("updater"),
	}, nil
}

// Check compares the latest release with the running version. A "dev" build
// is always considered outdated.
func (u *Updater) Check(ctx context.Context) (*UpdateInfo, error) {
	info, _, err := u.check(ctx)
	return info, err
}

func (u *Updater) check(ctx context.Context) (*UpdateInfo, *selfupdate.Release, error) {
	current := version.Version

	release, found, err := u.source.DetectLatest(ctx, u.repo)
	if err != nil {
		return nil, nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		return nil, nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	info := &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: current == "dev" || release.GreaterThan(current),
	}
	return info, release, nil
}

// Apply installs the latest release over the executable, backing the old
// binary up first and restoring it if the install fails. The caller restarts
// the service.
func (u *Updater) Apply(ctx context.Context) (*UpdateInfo, error) {
	info, release, err := u.check(ctx)
	if err != nil {
		return nil, err
	}
	if !info.UpdateAvailable {
		return info, newError(ErrCodeNoUpdate, "already running "+info.CurrentVersion, nil)
	}

	exe := u.execPath
	if exe == "" {
		if exe, err = selfupdate.ExecutablePath(); err != nil {
			return info, newError(ErrCodeApplyFailed, "failed to get executable path", err)
		}
	}

	if _, err := u.backups.save(exe, info.CurrentVersion); err != nil {
		return info, newError(ErrCodeBackupFailed, "failed to create backup", err)
	}
	u.logger.Info("Backup created", "version", info.CurrentVersion, "dir", u.backups.dir)

	if err := u.source.UpdateTo(ctx, release, exe); err != nil {
		if _, restoreErr := u.backups.restore(); restoreErr != nil {
			u.logger.Error("Failed to restore backup", "error", restoreErr)
		}
		return info, newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	u.logger.Info("Update applied", "from", info.CurrentVersion, "to", info.LatestVersion)
	return info, nil
}

// Rollback restores the binary saved by the last Apply and returns its
// version.
func (u *Updater) Rollback() (string, error) {
	info, err := u.backups.restore()
	switch {
	case errors.Is(err, errNoBackup):
		return "", newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	case err != nil:
		return "", newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}
	u.logger.Info("Backup restored", "version", info.Version, "path", info.ExecPath)
	return info.Version, nil
}
