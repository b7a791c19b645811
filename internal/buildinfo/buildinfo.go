// Package buildinfo carries the identifiers stamped into release
// binaries.
package buildinfo

// Stamped through -ldflags by the release script. Plain builds keep the
// zero values.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Short picks the most specific identifier available: a tagged version,
// else the commit hash, else "dev".
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}
