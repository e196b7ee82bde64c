package version

// Build metadata, overridable at link time with
// -ldflags "-X clarity/pkg/version.Version=... ".
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)
