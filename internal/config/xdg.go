package config

import (
	"os"
	"path/filepath"
)

const appName = "sprint"

// xdgBase returns $env, or home joined with fallback when env is unset.
func xdgBase(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// XDGConfigHome returns the XDG config home, ~/.config by default.
func XDGConfigHome() string { return xdgBase("XDG_CONFIG_HOME", ".config") }

// XDGDataHome returns the XDG data home, ~/.local/share by default.
func XDGDataHome() string { return xdgBase("XDG_DATA_HOME", ".local", "share") }

// DataDir holds the database, the log file and printable reports.
func DataDir() string {
	return filepath.Join(XDGDataHome(), appName)
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), appName+".db")
}

// DefaultReportDir returns the directory printable reports are written to.
func DefaultReportDir() string {
	return filepath.Join(DataDir(), "reports")
}

// DefaultLogPath returns the log file used while the TUI owns the terminal.
func DefaultLogPath() string {
	return filepath.Join(DataDir(), appName+".log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
