package migrator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Swapped in tests to force the cross-device path and metadata failures.
var (
	rename  = renameNoReplace
	chtimes = os.Chtimes
)

// moveFile relocates source to dest without ever replacing dest. A rename is
// tried first; across filesystems the file is copied with its mode and
// timestamps and the source removed afterwards.
func moveFile(source, dest string, info fs.FileInfo) error {
	err := rename(source, dest)
	if err == nil || !isCrossDevice(err) {
		return err
	}

	if err := copyFile(source, dest, info); err != nil {
		return err
	}
	if err := os.Remove(source); err != nil {
		// The copy is complete; the next run treats the leftover as a duplicate.
		return fmt.Errorf("copied to %s but failed to remove source: %w", dest, err)
	}
	return nil
}

// SpecialFileError is returned when a named pipe, socket or device would have
// to be copied across filesystems. Opening such a file can block forever.
type SpecialFileError struct {
	Path string
	Mode fs.FileMode
}

func (e SpecialFileError) Error() string {
	return fmt.Sprintf("cannot copy special file %s (%s)", e.Path, e.Mode.Type())
}

func copyFile(source, dest string, info fs.FileInfo) error {
	if !info.Mode().IsRegular() && info.Mode()&fs.ModeSymlink == 0 {
		return SpecialFileError{Path: source, Mode: info.Mode()}
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(source)
		if err != nil {
			return err
		}
		if err := os.Symlink(target, dest); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return ErrDestinationExists
			}
			return err
		}
		return nil
	}

	in, err := os.Open(source) //nolint:gosec // walk-provided path
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm()) //nolint:gosec // walk-provided path
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrDestinationExists
		}
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}

	// OpenFile applies the umask, so set the permission bits explicitly.
	if err := os.Chmod(dest, info.Mode().Perm()); err != nil {
		_ = os.Remove(dest)
		return err
	}
	if err := chtimes(dest, accessTime(info), info.ModTime()); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}
