//go:build linux || darwin

package dashboard

import "golang.org/x/sys/unix"

// diskStats reports the filesystem holding path; zero sizes mean it could not be read.
func diskStats(path string) DiskStats {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return DiskStats{Path: path}
	}
	blockSize := uint64(fs.Bsize)
	return DiskStats{
		Free: uint64(fs.Bavail) * blockSize,
		Size: uint64(fs.Blocks) * blockSize,
		Path: path,
	}
}
