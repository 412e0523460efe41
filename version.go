// Package htn provides the version information for htn-go.
package htn

// Version is the current version of htn-go.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
