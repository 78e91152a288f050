// Package paths resolves configuration and data directory locations.
//
// Both directories default to dot-directories in the working directory so a
// checkout carries its own drafts, ledger and clone.
package paths

import (
	"os"
	"path/filepath"
)

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".masader"
	DefaultDataDirName   = ".masader-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "MASADER_CONFIG_DIR"
	EnvDataDir   = "MASADER_DATA_DIR"
)

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > MASADER_CONFIG_DIR env > $(CWD)/.masader.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return cwdJoin(DefaultConfigDirName)
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > MASADER_DATA_DIR env > configYAMLValue > $(CWD)/.masader-db.
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	return cwdJoin(DefaultDataDirName)
}

// ResolveSaveDir returns where saved payloads go: configYAMLValue when set,
// otherwise the working directory.
func ResolveSaveDir(configYAMLValue string) (string, error) {
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	return os.Getwd()
}

func cwdJoin(name string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, name), nil
}
