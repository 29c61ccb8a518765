// Package config loads and persists the daemon configuration. The file is
// TOML with a single [database] table; when it is missing, defaults are
// written back so the user has something concrete to edit.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

const (
	// AppDirName is the per-user directory under the OS config root.
	AppDirName = "file-elf"
	// ConfigFileName is the TOML file inside AppDirName.
	ConfigFileName = "config.toml"
	// DBFileName is the default persistent store file.
	DBFileName = "elf.db"
	// DefaultHotDirNum caps the hot-directory heap when unset.
	DefaultHotDirNum = 100
	// DefaultPort is the fixed HTTP port of the query surface.
	DefaultPort = 6789
)

// Config is the on-disk document.
type Config struct {
	Database Database `toml:"database"`

	// blacklist holds the compiled patterns; invalid ones are dropped at
	// load time and treated as non-matching.
	blacklist []*regexp.Regexp
}

// Database carries the recognized keys of the [database] table.
type Database struct {
	DBType    string   `toml:"dbtype"`
	Path      string   `toml:"path"`
	Targets   []string `toml:"targets"`
	Blacklist []string `toml:"blacklist"`
	HotDirNum int      `toml:"hotdirnum"`
	LogLevel  string   `toml:"log_level"`
}

// DefaultBlacklist covers build artifacts and OS caches that would flood
// the index without ever being search targets.
func DefaultBlacklist() []string {
	return []string{
		`[/\\]\.git([/\\]|$)`,
		`[/\\]node_modules([/\\]|$)`,
		`[/\\]__pycache__([/\\]|$)`,
		`[/\\]\.cache([/\\]|$)`,
		`[/\\]\.Trash`,
		`\.DS_Store$`,
		`[/\\]target[/\\](debug|release)([/\\]|$)`,
		`AppData[/\\]Local[/\\]Temp`,
	}
}

// DefaultPath returns the config file location under the user config dir.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, AppDirName, ConfigFileName), nil
}

// Default builds the fallback configuration: one watch target (the user
// home, or the filesystem root when no home resolves), the bundled
// blacklist, and the store file beside the config file.
func Default() *Config {
	target, err := os.UserHomeDir()
	if err != nil || target == "" {
		if runtime.GOOS == "windows" {
			target = `C:\`
		} else {
			target = "/"
		}
	}

	dbPath := DBFileName
	if base, err := os.UserConfigDir(); err == nil {
		dbPath = filepath.Join(base, AppDirName, DBFileName)
	}

	cfg := &Config{Database: Database{
		DBType:    "sqlite",
		Path:      dbPath,
		Targets:   []string{target},
		Blacklist: DefaultBlacklist(),
		HotDirNum: DefaultHotDirNum,
		LogLevel:  "info",
	}}
	cfg.compileBlacklist()
	return cfg
}

// FromDatabase builds a Config around an explicit [database] table and
// compiles its blacklist. Callers that assemble configuration in code
// (tests, embedders) use this instead of Load.
func FromDatabase(db Database) *Config {
	cfg := &Config{Database: db}
	cfg.compileBlacklist()
	return cfg
}

// Load reads the config at path. A missing file yields the defaults,
// persisted back to path. An unreadable or unparsable file is an error;
// there is no sensible way to run with half a config.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if werr := cfg.Save(path); werr != nil {
				return nil, fmt.Errorf("write default config: %w", werr)
			}
			logrus.Infof("config %s missing, wrote defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.fillDefaults()
	cfg.compileBlacklist()
	return cfg, nil
}

// Save writes the document as TOML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content, err := toml.Marshal(*c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, content, 0o644)
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Database.DBType == "" {
		c.Database.DBType = def.Database.DBType
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if abs, err := filepath.Abs(c.Database.Path); err == nil {
		c.Database.Path = abs
	}
	if len(c.Database.Targets) == 0 {
		c.Database.Targets = def.Database.Targets
	}
	if c.Database.HotDirNum <= 0 {
		c.Database.HotDirNum = DefaultHotDirNum
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "info"
	}
}

func (c *Config) compileBlacklist() {
	c.blacklist = c.blacklist[:0]
	for _, pattern := range c.Database.Blacklist {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logrus.Warnf("blacklist pattern %q does not compile, skipping: %v", pattern, err)
			continue
		}
		c.blacklist = append(c.blacklist, re)
	}
}

// IsBlacklisted reports whether path matches any blacklist pattern. The
// store file itself is excluded unconditionally so the daemon never indexes
// its own writes.
func (c *Config) IsBlacklisted(path string) bool {
	if path == c.Database.Path {
		return true
	}
	for _, re := range c.blacklist {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// IsExcluded is the startup-pruning predicate: paths that are gone from
// disk or blacklisted have no business in the index.
func (c *Config) IsExcluded(path string) bool {
	if c.IsBlacklisted(path) {
		return true
	}
	_, err := os.Stat(path)
	return err != nil
}

// Level maps the log_level key onto a logrus level; anything unrecognized
// means info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.Database.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
