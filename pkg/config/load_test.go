package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// LoadTestSuite tests configuration loading
type LoadTestSuite struct {
	suite.Suite
	tempDir    string
	backupPath string
	sanPath    string
}

// SetupTest runs before each test
func (s *LoadTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Resolve the temp dir itself so comparisons survive symlinked /tmp.
	s.tempDir, err = filepath.EvalSymlinks(s.tempDir)
	s.Require().NoError(err)

	s.backupPath = filepath.Join(s.tempDir, "backup")
	s.sanPath = filepath.Join(s.tempDir, "san")
	s.Require().NoError(os.MkdirAll(s.backupPath, 0755))
	s.Require().NoError(os.MkdirAll(s.sanPath, 0755))
}

// TearDownTest runs after each test
func (s *LoadTestSuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func (s *LoadTestSuite) writeConfig(body string) string {
	path := filepath.Join(s.tempDir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(body), 0600))
	return path
}

func (s *LoadTestSuite) baseConfig() string {
	return "BACKUP_PATH: " + s.backupPath + "\n" +
		"SAN_DRIVE: " + s.sanPath + "\n" +
		"EXCLUDE_PATH: \"Temp, $RECYCLE.BIN ,,System Volume Information\"\n" +
		"BACKUP_USAGE_PERCENT: 90\n" +
		"SAN_USAGE_PERCENT: 80\n" +
		"MONTHS_TO_KEEP: 3\n"
}

func noEnv(string) (string, bool) { return "", false }

// TestLoad tests a complete file
func (s *LoadTestSuite) TestLoad() {
	cfg, err := LoadWithLookup(s.writeConfig(s.baseConfig()), noEnv)
	s.Require().NoError(err)

	s.Equal(s.backupPath, cfg.BackupPath)
	s.Equal(s.sanPath, cfg.SANDrive)
	s.Equal(ExcludeList{"temp", "$recycle.bin", "system volume information"}, cfg.ExcludePath)
	s.Equal(90, cfg.BackupUsagePercent)
	s.Equal(80, cfg.SANUsagePercent)
	s.Equal(3, cfg.MonthsToKeep)
	s.Equal(DefaultLogPath, cfg.LogPath)
	s.Equal(DefaultListenAddr, cfg.ListenAddr)
	s.False(cfg.Debug)
}

// TestExcludeSequence tests the YAML list form
func (s *LoadTestSuite) TestExcludeSequence() {
	body := "BACKUP_PATH: " + s.backupPath + "\n" +
		"SAN_DRIVE: " + s.sanPath + "\n" +
		"EXCLUDE_PATH:\n  - Temp\n  - \" Cache \"\n" +
		"BACKUP_USAGE_PERCENT: 90\nSAN_USAGE_PERCENT: 80\nMONTHS_TO_KEEP: 3\n"

	cfg, err := LoadWithLookup(s.writeConfig(body), noEnv)
	s.Require().NoError(err)
	s.Equal(ExcludeList{"temp", "cache"}, cfg.ExcludePath)
}

// TestEnvOverrides tests that environment values win over the file
func (s *LoadTestSuite) TestEnvOverrides() {
	env := map[string]string{
		"BACKUP_USAGE_PERCENT": "75",
		"MONTHS_TO_KEEP":       "6",
		"EXCLUDE_PATH":         "Other",
		"DEBUG":                "true",
		"SCHEDULE":             "*/15 * * * *",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg, err := LoadWithLookup(s.writeConfig(s.baseConfig()), lookup)
	s.Require().NoError(err)
	s.Equal(75, cfg.BackupUsagePercent)
	s.Equal(6, cfg.MonthsToKeep)
	s.Equal(ExcludeList{"other"}, cfg.ExcludePath)
	s.True(cfg.Debug)
	s.Equal("*/15 * * * *", cfg.Schedule)
}

// TestEnvOverrideNotInteger tests malformed numeric overrides
func (s *LoadTestSuite) TestEnvOverrideNotInteger() {
	lookup := func(key string) (string, bool) {
		if key == "SAN_USAGE_PERCENT" {
			return "eighty", true
		}
		return "", false
	}

	_, err := LoadWithLookup(s.writeConfig(s.baseConfig()), lookup)
	s.Error(err)
	s.ErrorIs(err, ErrInvalidConfig)
	s.Contains(err.Error(), "SAN_USAGE_PERCENT")
}

// TestResolveSymlink tests that roots are resolved like realpath
func (s *LoadTestSuite) TestResolveSymlink() {
	link := filepath.Join(s.tempDir, "backup-link")
	s.Require().NoError(os.Symlink(s.backupPath, link))

	body := "BACKUP_PATH: " + link + "\nSAN_DRIVE: " + s.sanPath + "\n" +
		"BACKUP_USAGE_PERCENT: 90\nSAN_USAGE_PERCENT: 80\nMONTHS_TO_KEEP: 3\n"
	cfg, err := LoadWithLookup(s.writeConfig(body), noEnv)
	s.Require().NoError(err)
	s.Equal(s.backupPath, cfg.BackupPath)
}

// TestMissingFile tests an unreadable file
func (s *LoadTestSuite) TestMissingFile() {
	_, err := LoadWithLookup(filepath.Join(s.tempDir, "nope.yaml"), noEnv)
	s.ErrorIs(err, ErrInvalidConfig)
}

// TestMalformedYAML tests a file that is not YAML
func (s *LoadTestSuite) TestMalformedYAML() {
	_, err := LoadWithLookup(s.writeConfig("BACKUP_PATH: [unclosed\n"), noEnv)
	s.ErrorIs(err, ErrInvalidConfig)
}

// TestValidate tests the validation rules
func (s *LoadTestSuite) TestValidate() {
	valid := func() Config {
		return Config{
			BackupPath:         s.backupPath,
			SANDrive:           s.sanPath,
			BackupUsagePercent: 90,
			SANUsagePercent:    80,
			MonthsToKeep:       3,
		}
	}

	testCases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing_backup", func(c *Config) { c.BackupPath = "" }, false},
		{"missing_san", func(c *Config) { c.SANDrive = "" }, false},
		{"same_roots", func(c *Config) { c.SANDrive = c.BackupPath }, false},
		{"backup_inside_san", func(c *Config) { c.BackupPath = filepath.Join(c.SANDrive, "backup") }, false},
		{"san_inside_backup", func(c *Config) { c.SANDrive = filepath.Join(c.BackupPath, "archive") }, true},
		{"sibling_prefix", func(c *Config) { c.BackupPath = c.SANDrive + "-backup" }, true},
		{"backup_percent_high", func(c *Config) { c.BackupUsagePercent = 101 }, false},
		{"backup_percent_negative", func(c *Config) { c.BackupUsagePercent = -1 }, false},
		{"san_percent_high", func(c *Config) { c.SANUsagePercent = 150 }, false},
		{"zero_months", func(c *Config) { c.MonthsToKeep = 0 }, false},
		{"bad_schedule", func(c *Config) { c.Schedule = "every tuesday" }, false},
		{"good_schedule", func(c *Config) { c.Schedule = "0 3 * * *" }, true},
		{"bounds", func(c *Config) { c.BackupUsagePercent = 0; c.SANUsagePercent = 100 }, true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := valid()
			tc.mutate(&cfg)
			err := Validate(&cfg)
			if tc.ok {
				s.NoError(err)
			} else {
				s.ErrorIs(err, ErrInvalidConfig)
			}
		})
	}
}

// TestThresholdsCopy tests that the policy view does not alias the config
func (s *LoadTestSuite) TestThresholdsCopy() {
	cfg := Config{ExcludePath: ExcludeList{"temp"}, BackupUsagePercent: 90, SANUsagePercent: 80, MonthsToKeep: 2}
	th := cfg.Thresholds()
	th.ExcludedDirNames[0] = "changed"

	s.Equal("temp", cfg.ExcludePath[0])
	s.Equal(90, th.BackupUsagePercent)
	s.Equal(80, th.SANUsagePercent)
	s.Equal(2, th.MonthsToKeep)
}

// TestLoadSuite runs the config test suite
func TestLoadSuite(t *testing.T) {
	suite.Run(t, new(LoadTestSuite))
}
