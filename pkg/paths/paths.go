package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/tapkit/pkg/errors"
)

// Environment variable names
const (
	EnvStateDir  = "TAPKIT_STATE_DIR"
	EnvCacheDir  = "TAPKIT_CACHE_DIR"
	EnvConfigDir = "TAPKIT_CONFIG_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Internal directory and file names. These are not user-configurable.
const (
	AppDirName     = "tapkit"
	RecordsDirName = "packages"
	LocksDirName   = "locks"
	DownloadsDir   = "downloads"
	LogFileName    = "tapkit.log"
	ConfigFileName = "config.toml"
)

// Paths provides centralized path management for tapkit
type Paths interface {
	StateDir() string
	CacheDir() string
	ConfigDir() string
	RecordsDir() string
	RecordPath(pkg string) string
	LocksDir() string
	LockPath(pkg string) string
	DownloadsDir() string
	LogFilePath() string
	ConfigFilePath() string
}

type paths struct {
	state  string
	cache  string
	config string
}

// New creates a Paths instance, honoring the TAPKIT_*_DIR overrides.
func New() (Paths, error) {
	p := &paths{
		state:  dirFromEnv(EnvStateDir, filepath.Join(xdg.StateHome, AppDirName)),
		cache:  dirFromEnv(EnvCacheDir, filepath.Join(xdg.CacheHome, AppDirName)),
		config: dirFromEnv(EnvConfigDir, filepath.Join(xdg.ConfigHome, AppDirName)),
	}

	for _, dir := range []*string{&p.state, &p.cache, &p.config} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to get absolute path for %s", *dir)
		}
		*dir = abs
	}

	return p, nil
}

// NewWithRoot places every tapkit directory below root. Used by tests and
// by callers that want a self-contained state tree.
func NewWithRoot(root string) Paths {
	return &paths{
		state:  filepath.Join(root, "state"),
		cache:  filepath.Join(root, "cache"),
		config: filepath.Join(root, "config"),
	}
}

func dirFromEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return ExpandHome(v)
	}
	return fallback
}

func (p *paths) StateDir() string  { return p.state }
func (p *paths) CacheDir() string  { return p.cache }
func (p *paths) ConfigDir() string { return p.config }

// RecordsDir returns the directory holding installed-state records
func (p *paths) RecordsDir() string {
	return filepath.Join(p.state, RecordsDirName)
}

// RecordPath returns the path of the state record for a package
func (p *paths) RecordPath(pkg string) string {
	return filepath.Join(p.RecordsDir(), pkg+".json")
}

// LocksDir returns the directory holding per-package lock files
func (p *paths) LocksDir() string {
	return filepath.Join(p.state, LocksDirName)
}

// LockPath returns the advisory lock file for a package
func (p *paths) LockPath(pkg string) string {
	return filepath.Join(p.LocksDir(), pkg+".lock")
}

// DownloadsDir returns the parent directory for scoped download workspaces
func (p *paths) DownloadsDir() string {
	return filepath.Join(p.cache, DownloadsDir)
}

// LogFilePath returns the path to the tapkit log file
func (p *paths) LogFilePath() string {
	return filepath.Join(p.state, LogFileName)
}

// ConfigFilePath returns the user config file path
func (p *paths) ConfigFilePath() string {
	return filepath.Join(p.config, ConfigFileName)
}

// DefaultPrefix returns the prefix used when none is configured: ~/.local
func DefaultPrefix() string {
	return filepath.Join(xdg.Home, ".local")
}

// ExpandHome expands a leading ~ to the home directory
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv(EnvHome)
		if homeDir == "" {
			return path
		}
	}

	if len(path) == 1 {
		return homeDir
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:])
	}

	// ~otheruser is left alone
	return path
}
