//go:build linux

package volume

import (
	"golang.org/x/sys/unix"

	"sanitier/pkg/models"
)

// StatfsStatter reads space figures with statfs(2).
type StatfsStatter struct{}

// Stat implements Statter.
func (StatfsStatter) Stat(root string) (models.VolumeUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		return models.VolumeUsage{}, err
	}

	var bsize uint64
	if stat.Bsize > 0 {
		bsize = uint64(stat.Bsize) //nolint:gosec // checked above
	}

	total := stat.Blocks * bsize
	// Used counts reserved blocks, free is what this process may still write.
	used := total - stat.Bfree*bsize
	free := stat.Bavail * bsize

	return models.VolumeUsage{
		Root:       root,
		TotalBytes: total,
		UsedBytes:  used,
		FreeBytes:  free,
	}, nil
}
