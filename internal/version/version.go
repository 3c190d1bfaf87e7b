// Package version provides application version information.
// The values can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/deck-publisher/internal/version.Version=v2.1.0 -X github.com/ramonehamilton/deck-publisher/internal/version.Commit=abc1234"
package version

import "fmt"

// Version is the application version. It defaults to "dev".
var Version = "dev"

// Commit is the source revision the binary was built from.
var Commit = ""

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// String returns the version line printed by the CLI.
func String() string {
	if Commit == "" {
		return fmt.Sprintf("deck-publisher %s", Version)
	}
	return fmt.Sprintf("deck-publisher %s (%s)", Version, Commit)
}
