//go:build !linux

package migrator

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

func renameNoReplace(source, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return ErrDestinationExists
	}
	return os.Rename(source, dest)
}

// isCrossDevice treats any rename failure that is not a permission or
// existence problem as a volume boundary and falls back to copying.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	return !errors.Is(err, fs.ErrPermission) && !errors.Is(err, fs.ErrNotExist)
}

func accessTime(info fs.FileInfo) time.Time {
	return info.ModTime()
}
