package config

import (
	"os"
	"path/filepath"
	"sync"
)

const envHome = "SAPWIZ_HOME"

var (
	homeOnce sync.Once
	homeDir  string
)

// GetHome returns the sapwiz home directory.
//
// Resolution order:
//  1. $SAPWIZ_HOME environment variable
//  2. Parent of the binary's directory (if binary is in <home>/bin/)
//  3. Current working directory (development fallback)
func GetHome() string {
	homeOnce.Do(func() {
		homeDir = resolveHome()
	})
	return homeDir
}

// DefaultHistoryPath returns <home>/sapwiz-history.db.
func DefaultHistoryPath() string {
	return filepath.Join(GetHome(), "sapwiz-history.db")
}

func resolveHome() string {
	// 1. Environment variable
	if env := os.Getenv(envHome); env != "" {
		return env
	}

	// 2. Installed layout: the binary lives at <home>/bin/sapwiz
	if execPath, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
			execPath = resolved
		}
		binDir := filepath.Dir(execPath)
		if filepath.Base(binDir) == "bin" {
			return filepath.Dir(binDir)
		}
	}

	// 3. Development fallback
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

// ResetHome clears the cached home directory so tests can change it.
func ResetHome() {
	homeOnce = sync.Once{}
	homeDir = ""
}
