// Package common holds process-level plumbing shared by the keydir
// binaries: logger setup and build version.
package common

// PackageName tags logs and diagnostics emitted by the keydir binaries.
const PackageName = "go-keydir"

// Version is the build version, overridden at link time via
// -ldflags "-X github.com/plukevdh/go-keydir/common.Version=...".
var Version = "dev"
