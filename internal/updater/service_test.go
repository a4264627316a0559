package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fakeExecutable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vcapture")
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewService_DisabledWithoutExecutable(t *testing.T) {
	svc, err := NewService(Options{
		Executable: filepath.Join(t.TempDir(), "missing", "vcapture"),
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if svc.IsEnabled() || svc.DisabledReason() == "" {
		t.Fatalf("enabled = %v, reason %q", svc.IsEnabled(), svc.DisabledReason())
	}

	ctx := context.Background()
	if _, err := svc.CheckForUpdate(ctx); CodeOf(err) != ErrCodeDisabled {
		t.Errorf("CheckForUpdate() error = %v, want %s", err, ErrCodeDisabled)
	}
	if err := svc.ApplyUpdate(ctx); CodeOf(err) != ErrCodeDisabled {
		t.Errorf("ApplyUpdate() error = %v, want %s", err, ErrCodeDisabled)
	}
	if got := svc.GetStatus(ctx); got.State != StateIdle || got.BackupAvailable {
		t.Errorf("status = %+v", got)
	}
}

func TestApplyUpdate_RefusedByGuard(t *testing.T) {
	svc, err := NewService(Options{
		Repository: "smazurov/vcapture",
		Executable: fakeExecutable(t, "v1"),
		BackupDir:  t.TempDir(),
		Guard:      func() error { return errors.New("capture is running") },
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if !svc.IsEnabled() {
		t.Fatalf("service disabled: %s", svc.DisabledReason())
	}

	ctx := context.Background()
	if err := svc.ApplyUpdate(ctx); CodeOf(err) != ErrCodeBusy {
		t.Errorf("ApplyUpdate() error = %v, want %s", err, ErrCodeBusy)
	}
	if err := svc.Restart(ctx); CodeOf(err) != ErrCodeBusy {
		t.Errorf("Restart() error = %v, want %s", err, ErrCodeBusy)
	}
	if got := svc.GetStatus(ctx).State; got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
}

func TestRollback(t *testing.T) {
	exe := fakeExecutable(t, "v1")
	backupDir := t.TempDir()
	restarted := make(chan struct{}, 1)

	svc, err := NewService(Options{
		Executable:  exe,
		BackupDir:   backupDir,
		RestartFunc: func() { restarted <- struct{}{} },
		Logger:      testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	ctx := context.Background()

	if err := svc.Rollback(ctx); CodeOf(err) != ErrCodeNoBackup {
		t.Fatalf("Rollback() without backup error = %v, want %s", err, ErrCodeNoBackup)
	}

	impl := svc.(*service)
	if err := impl.backupManager.createBackup(exe); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(exe, []byte("v2"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := svc.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	data, err := os.ReadFile(exe)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("executable = %q, want restored v1", data)
	}

	status := svc.GetStatus(ctx)
	if status.State != StateRolledBack || !status.BackupAvailable || status.BackupVersion != "dev" {
		t.Errorf("status = %+v", status)
	}

	select {
	case <-restarted:
	case <-time.After(2 * time.Second):
		t.Fatal("restart was not triggered")
	}
}

func TestBackupManager_LoadsExistingBackup(t *testing.T) {
	exe := fakeExecutable(t, "v1")
	dir := t.TempDir()

	first, err := newBackupManager(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if first.hasBackup() {
		t.Fatal("fresh directory reports a backup")
	}
	if err := first.createBackup(exe); err != nil {
		t.Fatal(err)
	}

	second, err := newBackupManager(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !second.hasBackup() || second.backupVersion() != "dev" {
		t.Errorf("reloaded backup = %v %q", second.hasBackup(), second.backupVersion())
	}

	if err := os.Remove(second.backupPath()); err != nil {
		t.Fatal(err)
	}
	third, err := newBackupManager(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if third.hasBackup() {
		t.Error("backup info without a backup file should be ignored")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("apply: %w", newError(ErrCodeApplyFailed, "failed to apply update", errors.New("disk full")))
	if got := CodeOf(wrapped); got != ErrCodeApplyFailed {
		t.Errorf("CodeOf(wrapped) = %q", got)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
	if got := wrapped.Error(); got != "apply: APPLY_FAILED: failed to apply update: disk full" {
		t.Errorf("Error() = %q", got)
	}
}
