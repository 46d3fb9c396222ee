package buildinfo_test

import (
	"testing"

	"github.com/ens-ds23/ncd/internal/buildinfo"
)

func TestSummaryWithoutGitInfo(t *testing.T) {
	old := buildinfo.GitInfo
	buildinfo.GitInfo = ""
	defer func() { buildinfo.GitInfo = old }()

	buildinfo.Version = "1.0.0"
	if got, want := buildinfo.Summary(), "1.0.0"; got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}

func TestSummaryWithGitInfo(t *testing.T) {
	oldV, oldG := buildinfo.Version, buildinfo.GitInfo
	defer func() { buildinfo.Version, buildinfo.GitInfo = oldV, oldG }()

	buildinfo.Version = "1.0.0"
	buildinfo.GitInfo = "abc1234"
	if got, want := buildinfo.Summary(), "1.0.0 (abc1234)"; got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
}
