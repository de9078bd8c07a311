//go:build windows

package dashboard

import "golang.org/x/sys/windows"

// diskStats reports the volume holding path; zero sizes mean it could not be read.
func diskStats(path string) DiskStats {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskStats{Path: path}
	}
	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &free, &total, &totalFree); err != nil {
		return DiskStats{Path: path}
	}
	return DiskStats{Free: free, Size: total, Path: path}
}
