package cleaner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"sanitier/pkg/exclude"
)

// CleanerTestSuite tests the Clean functionality
type CleanerTestSuite struct {
	suite.Suite
	root    string
	today   time.Time
	cleaner *Cleaner
}

// SetupTest runs before each test
func (s *CleanerTestSuite) SetupTest() {
	var err error
	s.root, err = os.MkdirTemp("", "cleaner-test-*")
	s.Require().NoError(err)

	s.today = time.Date(2026, time.October, 10, 9, 0, 0, 0, time.UTC)
	s.cleaner = New(exclude.New([]string{"Temp"}), 3, zerolog.Nop(), WithClock(func() time.Time { return s.today }))
}

// TearDownTest runs after each test
func (s *CleanerTestSuite) TearDownTest() {
	if s.root != "" {
		filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				os.Chmod(path, 0755)
			}
			return nil
		})
		os.RemoveAll(s.root)
	}
}

// writeDated creates a file whose mtime is noon UTC on the given date.
func (s *CleanerTestSuite) writeDated(rel string, size int, year int, month time.Month, day int) string {
	path := filepath.Join(s.root, rel)
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0755))
	s.Require().NoError(os.WriteFile(path, make([]byte, size), 0644))
	mtime := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(os.Chtimes(path, mtime, mtime))
	return path
}

// TestProtectedDaysSurvive tests that the 1st, 15th and last day are kept a year later
func (s *CleanerTestSuite) TestProtectedDaysSurvive() {
	kept := []string{
		s.writeDated("d01.bak", 10, 2025, time.October, 1),
		s.writeDated("d15.bak", 10, 2025, time.October, 15),
		s.writeDated("d31.bak", 10, 2025, time.October, 31),
		s.writeDated("feb28.bak", 10, 2025, time.February, 28),
	}
	expired := s.writeDated("d10.bak", 10, 2025, time.October, 10)

	outcome := s.cleaner.Clean(s.root)

	s.Equal(uint64(1), outcome.FilesAffected)
	s.Equal(uint64(10), outcome.TotalBytes)
	s.NoFileExists(expired)
	for _, path := range kept {
		s.FileExists(path)
	}
}

// TestMonthBoundary tests day-10 files either side of the cutoff
func (s *CleanerTestSuite) TestMonthBoundary() {
	older := s.writeDated("older.bak", 100, 2026, time.June, 10)
	onCutoff := s.writeDated("cutoff.bak", 100, 2026, time.July, 10)
	inside := s.writeDated("inside.bak", 100, 2026, time.August, 10)

	outcome := s.cleaner.Clean(s.root)

	s.Equal(uint64(1), outcome.FilesAffected)
	s.Equal(uint64(100), outcome.TotalBytes)
	s.NoFileExists(older)
	s.FileExists(onCutoff)
	s.FileExists(inside)
}

// TestCounters tests accumulated sizes across the tree
func (s *CleanerTestSuite) TestCounters() {
	s.writeDated("a/one.bak", 1024, 2024, time.May, 3)
	s.writeDated("a/b/two.bak", 2048, 2024, time.May, 4)
	s.writeDated("a/b/c/three.bak", 4096, 2023, time.January, 9)

	outcome := s.cleaner.Clean(s.root)

	s.Equal(uint64(3), outcome.FilesAffected)
	s.Equal(uint64(7168), outcome.TotalBytes)
	s.Zero(outcome.Failures)
	s.Zero(outcome.Skipped)

	// Directories are left alone.
	s.DirExists(filepath.Join(s.root, "a", "b", "c"))
}

// TestExclusion tests that "Temp" in any case protects every nested level
func (s *CleanerTestSuite) TestExclusion() {
	kept := []string{
		s.writeDated("TEMP/l1.bak", 1, 2020, time.March, 3),
		s.writeDated("x/temp/l2.bak", 1, 2020, time.March, 3),
		s.writeDated("x/y/Temp/l3.bak", 1, 2020, time.March, 3),
		s.writeDated("x/y/Temp/z/l4.bak", 1, 2020, time.March, 3),
	}
	deleted := s.writeDated("x/y/z/gone.bak", 1, 2020, time.March, 3)

	outcome := s.cleaner.Clean(s.root)

	s.Equal(uint64(1), outcome.FilesAffected)
	s.NoFileExists(deleted)
	for _, path := range kept {
		s.FileExists(path)
	}
}

// TestSkipPath tests that a nested backup tree is never cleaned
func (s *CleanerTestSuite) TestSkipPath() {
	kept := s.writeDated("backup/old.bak", 3, 2020, time.March, 3)
	gone := s.writeDated("archive/old.bak", 4, 2020, time.March, 3)

	c := New(exclude.New(nil), 3, zerolog.Nop(),
		WithClock(func() time.Time { return s.today }),
		WithSkip(filepath.Join(s.root, "backup")))
	outcome := c.Clean(s.root)

	s.Equal(uint64(1), outcome.FilesAffected)
	s.Equal(uint64(4), outcome.TotalBytes)
	s.FileExists(kept)
	s.NoFileExists(gone)
}

// TestPermissionDenied tests that a failed delete is counted and the walk goes on
func (s *CleanerTestSuite) TestPermissionDenied() {
	if os.Getuid() == 0 {
		s.T().Skip("Cannot test permission errors as root user")
	}
	locked := s.writeDated("locked/old.bak", 5, 2020, time.March, 3)
	free := s.writeDated("free/old.bak", 7, 2020, time.March, 3)
	s.Require().NoError(os.Chmod(filepath.Dir(locked), 0555))

	outcome := s.cleaner.Clean(s.root)

	s.Equal(uint64(1), outcome.FilesAffected)
	s.Equal(uint64(7), outcome.TotalBytes)
	s.Equal(uint64(1), outcome.Failures)
	s.FileExists(locked)
	s.NoFileExists(free)
}

// TestMissingRoot tests that an absent root yields an empty outcome
func (s *CleanerTestSuite) TestMissingRoot() {
	outcome := s.cleaner.Clean(filepath.Join(s.root, "missing"))
	s.Zero(outcome.FilesAffected)
	s.Zero(outcome.TotalBytes)
}

// TestRemoveFailureReason tests error classification
func (s *CleanerTestSuite) TestRemoveFailureReason() {
	pathErr := func(errno syscall.Errno) error {
		return &fs.PathError{Op: "remove", Path: "/x", Err: errno}
	}

	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"permission", pathErr(syscall.EACCES), ReasonPermission},
		{"not_permitted", pathErr(syscall.EPERM), ReasonPermission},
		{"not_found", pathErr(syscall.ENOENT), ReasonNotFound},
		{"is_dir", pathErr(syscall.EISDIR), ReasonIsDirectory},
		{"io", pathErr(syscall.EIO), ReasonOSError},
		{"plain", errors.New("boom"), ReasonOSError},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.want, RemoveFailureReason(tc.err))
		})
	}
}

// TestCleanerSuite runs the cleaner test suite
func TestCleanerSuite(t *testing.T) {
	suite.Run(t, new(CleanerTestSuite))
}
