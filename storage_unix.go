//go:build linux || darwin

// FILE: lixenwraith/monitor/storage_unix.go
package monitor

import (
	"golang.org/x/sys/unix"
)

// getDiskFreeSpace returns the bytes available to unprivileged users at path
func getDiskFreeSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmtErrorf("failed to get disk stats for '%s': %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
