package trace

// Version information for calltrace.
const (
	// Version is the current calltrace version.
	Version = "0.3.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 3

	// VersionPatch is the patch version number.
	VersionPatch = 0
)
