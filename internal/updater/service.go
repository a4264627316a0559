package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/smazurov/vcapture/internal/logging"
	"github.com/smazurov/vcapture/internal/version"
)

// restartDelay lets the HTTP response that triggered a restart go out first.
const restartDelay = 500 * time.Millisecond

type service struct {
	repository    selfupdate.Repository
	updater       *selfupdate.Updater
	backupManager *backupManager
	executable    string
	guard         func() error
	restart       func()

	mu            sync.RWMutex
	state         State
	latestRelease *selfupdate.Release
	lastChecked   *time.Time
	lastError     error

	enabled        bool
	disabledReason string

	logger *slog.Logger
}

// NewService creates the updater. When the binary cannot be replaced the
// returned service is disabled rather than nil.
func NewService(opts Options) (Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetLogger("updater")
	}

	s := &service{
		guard:   opts.Guard,
		restart: opts.RestartFunc,
		state:   StateIdle,
		logger:  logger,
	}
	if s.restart == nil {
		s.restart = s.signalRestart
	}

	exe, reason := resolveExecutable(opts.Executable)
	if reason == "" {
		reason = checkWritePermission(filepath.Dir(exe))
	}
	if reason != "" {
		logger.Warn("Update service disabled", "reason", reason)
		s.disabledReason = reason
		return s, nil
	}
	s.executable = exe

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	cfg := selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	}
	if opts.ChecksumFile != "" {
		cfg.Validator = &selfupdate.ChecksumValidator{UniqueFilename: opts.ChecksumFile}
	}
	s.updater, err = selfupdate.NewUpdater(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}
	s.repository = selfupdate.ParseSlug(opts.Repository)

	if s.backupManager, err = newBackupManager(opts.BackupDir, logger); err != nil {
		logger.Warn("Rollback unavailable", "error", err)
	}

	s.enabled = true
	return s, nil
}

func resolveExecutable(path string) (string, string) {
	if path == "" {
		var err error
		if path, err = os.Executable(); err != nil {
			return "", fmt.Sprintf("failed to get executable path: %v", err)
		}
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Sprintf("failed to resolve symlinks: %v", err)
	}
	return resolved, ""
}

func checkWritePermission(dir string) string {
	tmp := filepath.Join(dir, ".vcapture.update.test")
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	f.Close()
	os.Remove(tmp)
	return ""
}

func (s *service) IsEnabled() bool {
	return s.enabled
}

func (s *service) DisabledReason() string {
	return s.disabledReason
}

// CheckForUpdate queries GitHub for the latest release and compares it
// against the running version.
func (s *service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.enabled {
		return nil, newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	if !s.transitionTo(StateChecking, StateIdle, StateAvailable, StateError, StateRolledBack) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot check for updates in state %s", s.getState()), nil)
	}

	current := version.Version

	release, found, err := s.updater.DetectLatest(ctx, s.repository)
	if err != nil {
		s.setError(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	if !found {
		s.setError(errors.New("repository not found or has no releases"))
		return nil, newError(ErrCodeNotFound, "repository not found or has no releases", nil)
	}

	// dev builds are always outdated
	if current != "dev" && !release.GreaterThan(current) {
		s.transitionTo(StateIdle)
		return &UpdateInfo{
			CurrentVersion: current,
			LatestVersion:  release.Version(),
		}, nil
	}

	s.mu.Lock()
	s.latestRelease = release
	s.mu.Unlock()
	s.transitionTo(StateAvailable)

	return &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		AssetSize:       release.AssetByteSize,
		UpdateAvailable: true,
	}, nil
}

// ApplyUpdate backs up the running binary, installs the latest release and
// schedules a restart. A failed install restores the backup.
func (s *service) ApplyUpdate(ctx context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if err := s.checkGuard(); err != nil {
		return err
	}

	if s.getState() != StateAvailable {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	if !s.transitionTo(StateDownloading, StateAvailable) {
		return newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot apply update in state %s", s.getState()), nil)
	}

	if s.backupManager != nil {
		if err := s.backupManager.createBackup(s.executable); err != nil {
			s.setError(err)
			return newError(ErrCodeBackupFailed, "failed to create backup", err)
		}
	}

	s.transitionTo(StateApplying)

	s.mu.RLock()
	release := s.latestRelease
	s.mu.RUnlock()

	if err := s.updater.UpdateTo(ctx, release, s.executable); err != nil {
		s.setError(err)
		s.attemptRollback()
		return newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	s.transitionTo(StateRestarting)
	s.logger.Info("Update applied, restarting", "version", release.Version())
	s.scheduleRestart()
	return nil
}

// Rollback restores the backed up binary and schedules a restart.
func (s *service) Rollback(_ context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if s.backupManager == nil || !s.backupManager.hasBackup() {
		return newError(ErrCodeNoBackup, "no backup available for rollback", nil)
	}
	if err := s.checkGuard(); err != nil {
		return err
	}

	if err := s.backupManager.restore(); err != nil {
		return newError(ErrCodeRollbackFailed, "failed to restore backup", err)
	}

	s.transitionTo(StateRolledBack)
	s.logger.Info("Rollback completed, restarting", "version", s.backupManager.backupVersion())
	s.scheduleRestart()
	return nil
}

// Restart schedules a restart of the running binary.
func (s *service) Restart(_ context.Context) error {
	if err := s.checkGuard(); err != nil {
		return err
	}
	s.logger.Info("Restart requested")
	s.scheduleRestart()
	return nil
}

// GetStatus returns the current update state and backup availability.
func (s *service) GetStatus(_ context.Context) *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}
	if s.latestRelease != nil {
		status.TargetVersion = s.latestRelease.Version()
	}
	if s.lastError != nil {
		status.Error = s.lastError.Error()
	}
	if s.backupManager != nil {
		status.BackupAvailable = s.backupManager.hasBackup()
		status.BackupVersion = s.backupManager.backupVersion()
	}
	return status
}

func (s *service) checkGuard() error {
	if s.guard == nil {
		return nil
	}
	if err := s.guard(); err != nil {
		return newError(ErrCodeBusy, err.Error(), err)
	}
	return nil
}

func (s *service) transitionTo(newState State, validFromStates ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(validFromStates) > 0 && !slices.Contains(validFromStates, s.state) {
		return false
	}

	s.logger.Debug("State transition", "from", s.state, "to", newState)
	s.state = newState
	s.lastError = nil
	return true
}

func (s *service) getState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *service) setError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.state = StateError
	s.mu.Unlock()
}

func (s *service) attemptRollback() {
	if s.backupManager == nil || !s.backupManager.hasBackup() {
		s.logger.Error("No backup available for automatic rollback")
		return
	}

	if err := s.backupManager.restore(); err != nil {
		s.logger.Error("Failed to restore backup", "error", err)
		return
	}

	s.transitionTo(StateRolledBack)
	s.logger.Info("Automatic rollback completed")
}

func (s *service) scheduleRestart() {
	time.AfterFunc(restartDelay, s.restart)
}

func (s *service) signalRestart() {
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		s.logger.Error("Failed to find own process", "error", err)
		return
	}

	s.logger.Info("Sending SIGTERM to trigger restart")
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		s.logger.Error("Failed to send SIGTERM", "error", err)
	}
}
