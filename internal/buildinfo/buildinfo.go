// Package buildinfo holds version metadata set at link time via -ldflags
// "-X", for the --version flag on both CLI binaries.
package buildinfo

// Version and GitInfo are overridden at build time, e.g.:
//
//	go build -ldflags "-X github.com/ens-ds23/ncd/internal/buildinfo.Version=1.2.3 \
//	                    -X github.com/ens-ds23/ncd/internal/buildinfo.GitInfo=abc1234"
var (
	Version = "dev"
	GitInfo = ""
)

// Summary returns a one-line version string suitable for a --version flag.
func Summary() string {
	if GitInfo == "" {
		return Version
	}
	return Version + " (" + GitInfo + ")"
}
