package version

import (
	"strings"
	"testing"
)

func TestGet_LdflagsOverride(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate })

	Version, GitCommit, BuildDate = "1.2.0", "abc1234", "2025-01-09"

	info := Get()
	if info.Version != "1.2.0" || info.GitCommit != "abc1234" || info.BuildDate != "2025-01-09" {
		t.Errorf("Get() = %+v", info)
	}
	if info.Modified {
		t.Error("ldflags commit should not be reported as modified")
	}
	if got := String(); got != "1.2.0 (abc1234)" {
		t.Errorf("String() = %q", got)
	}
	if !strings.Contains(info.Platform, "/") || info.GoVersion == "" {
		t.Errorf("runtime fields missing: %+v", info)
	}
}
