package version

import "fmt"

// Progname is the name the tool reports itself as.
const Progname = "irtrace"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String is the one-line version banner, "<progname> <version>".
func String() string {
	return fmt.Sprintf("%s %s", Progname, Version)
}

// Long adds the commit and build time to String.
func Long() string {
	return fmt.Sprintf("%s (%s, built %s)", String(), GitSHA, BuildTime)
}
