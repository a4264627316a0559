package updater

import (
	"context"
	"log/slog"
	"time"
)

// State represents the current state of the update process.
type State string

// Update states.
const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateAvailable   State = "available"
	StateDownloading State = "downloading"
	StateApplying    State = "applying"
	StateRestarting  State = "restarting"
	StateError       State = "error"
	StateRolledBack  State = "rolled_back"
)

// Service replaces the running binary with a newer release.
type Service interface {
	// CheckForUpdate checks for available updates without downloading.
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)

	// ApplyUpdate backs up the current binary, installs the latest
	// release and restarts the process.
	ApplyUpdate(ctx context.Context) error

	// Rollback restores the backed up binary and restarts the process.
	Rollback(ctx context.Context) error

	// Restart restarts the process without changing the binary.
	Restart(ctx context.Context) error

	// GetStatus returns current update state and info.
	GetStatus(ctx context.Context) *Status

	// IsEnabled reports whether the binary can be replaced at all.
	IsEnabled() bool

	// DisabledReason returns why the service is disabled, empty if enabled.
	DisabledReason() string
}

// UpdateInfo describes the latest release.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version" example:"1.0.0" doc:"Running version"`
	LatestVersion   string    `json:"latest_version" example:"1.1.0" doc:"Newest release"`
	ReleaseNotes    string    `json:"release_notes" doc:"Markdown release notes"`
	ReleaseURL      string    `json:"release_url" doc:"Release page"`
	PublishedAt     time.Time `json:"published_at"`
	AssetSize       int       `json:"asset_size" example:"5242880" doc:"Download size in bytes"`
	UpdateAvailable bool      `json:"update_available"`
}

// Status is the updater state as reported by GET /api/update/status.
type Status struct {
	State           State      `json:"state" example:"idle" enum:"idle,checking,available,downloading,applying,restarting,error,rolled_back"`
	CurrentVersion  string     `json:"current_version" example:"1.0.0"`
	TargetVersion   string     `json:"target_version,omitempty" example:"1.1.0" doc:"Release being installed"`
	Error           string     `json:"error,omitempty" doc:"Last failure, in the error state"`
	LastChecked     *time.Time `json:"last_checked,omitempty"`
	BackupAvailable bool       `json:"backup_available" doc:"Whether rollback is possible"`
	BackupVersion   string     `json:"backup_version,omitempty" example:"1.0.0"`
}

// Options configures the updater service.
type Options struct {
	// Repository is the GitHub slug releases are fetched from.
	Repository string

	// Prerelease includes prereleases in the search.
	Prerelease bool

	// ChecksumFile names a release asset holding SHA-256 sums of the other
	// assets. Empty disables checksum validation.
	ChecksumFile string

	// BackupDir holds the previous binary. Defaults to
	// ~/.cache/vcapture/backup.
	BackupDir string

	// Guard is consulted before the binary is replaced or the process
	// restarted. A non-nil error refuses the operation.
	Guard func() error

	// RestartFunc stops the process so the supervisor starts the new
	// binary. Defaults to sending SIGTERM to ourselves.
	RestartFunc func()

	// Executable overrides the path of the binary being replaced.
	Executable string

	Logger *slog.Logger
}
