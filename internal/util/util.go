//go:build !windows

package util

// IsRunFromGUI reports whether the process was started by double-clicking it.
// Only Windows can tell; everywhere else a shell is assumed.
func IsRunFromGUI() bool {
	return false
}
