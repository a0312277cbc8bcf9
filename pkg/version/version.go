package version

// version is set at build time with
// -ldflags "-X github.com/cbodonnell/platespotter/pkg/version.version=v1.2.3"
var version = "dev"

// Get returns the version of the running binary.
func Get() string {
	return version
}
