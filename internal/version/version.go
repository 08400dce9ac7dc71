package version

// Build information set by ldflags
var (
	Version = "dev"     // Set by goreleaser: -X touchctl/internal/version.Version={{.Version}}
	Commit  = "unknown" // Set by goreleaser: -X touchctl/internal/version.Commit={{.Commit}}
	Date    = "unknown" // Set by goreleaser: -X touchctl/internal/version.Date={{.Date}}
)
