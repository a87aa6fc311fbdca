//go:build !linux && !darwin

// FILE: lixenwraith/monitor/storage_other.go
package monitor

// getDiskFreeSpace is not reported on this platform
func getDiskFreeSpace(path string) (uint64, error) {
	return 0, fmtErrorf("disk stats not supported for '%s'", path)
}
