package version

import "fmt"

// Set at build time with -ldflags "-X".
var (
	Release   = "dev"
	GitCommit = "unknown"
	GOOS      = "unknown"
	GOARCH    = "unknown"
)

// Name is the program name reported to peers and in logs.
const Name = "syslogexporter"

// Info describes the running build.
type Info struct {
	Release  string
	Commit   string
	Platform string
}

// Get returns the build info injected at link time.
func Get() Info {
	return Info{
		Release:  Release,
		Commit:   GitCommit,
		Platform: GOOS + "/" + GOARCH,
	}
}

// String formats the info as "syslogexporter/<release> (commit: <sha>)".
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s)", i.Product(), i.Commit)
}

// Detailed appends the build platform to String.
func (i Info) Detailed() string {
	return fmt.Sprintf("%s (commit: %s, %s)", i.Product(), i.Commit, i.Platform)
}

// Product is the short "name/release" token used in the Server header of
// ingest responses.
func (i Info) Product() string {
	return Name + "/" + i.Release
}
