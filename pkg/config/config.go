package config

import "time"

// Config is the fully resolved tapkit configuration
type Config struct {
	Install Install `koanf:"install"`
	Verify  Verify  `koanf:"verify"`
	Log     Log     `koanf:"log"`
}

// Install controls where and how packages are installed
type Install struct {
	Prefix        string        `koanf:"prefix"`
	Timeout       time.Duration `koanf:"timeout"`
	KeepWorkspace bool          `koanf:"keep_workspace"`
}

// Verify controls the post-install check
type Verify struct {
	Enabled bool          `koanf:"enabled"`
	Timeout time.Duration `koanf:"timeout"`
}

// Log controls the log file
type Log struct {
	File string `koanf:"file"`
}
