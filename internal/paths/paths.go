// Package paths resolves the configuration and data directories and the file
// layout inside the data directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "ganki"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else selects one.
const DefaultDataDirName = ".ganki-db"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "GANKI_CONFIG_DIR"
	EnvDataDir   = "GANKI_DATA_DIR"
)

// File layout inside the data directory.
const (
	decksDirName     = "decks"
	mediaFileName    = "media.db"
	settingsFileName = "settings.json"
	databaseExt      = ".db"
)

// userDirs holds platform lookups that tests may override.
var userDirs = struct {
	home   func() (string, error)
	config func() (string, error)
}{
	home:   os.UserHomeDir,
	config: os.UserConfigDir,
}

// DefaultConfigDir returns the platform configuration directory for ganki.
// On Linux it honours XDG_CONFIG_HOME and falls back to ~/.config.
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := userDirs.home()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := userDirs.config()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir applies flag > GANKI_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config data_dir > GANKI_DATA_DIR > $(CWD)/.ganki-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, candidate := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if candidate != "" {
			return filepath.Abs(candidate)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// DecksDir is the directory holding one database file per namespace.
func DecksDir(dataDir string) string {
	return filepath.Join(dataDir, decksDirName)
}

// DeckDatabase returns the database file of a namespace.
func DeckDatabase(dataDir, namespace string) string {
	return filepath.Join(DecksDir(dataDir), namespace+databaseExt)
}

// MediaDatabase returns the shared media database file.
func MediaDatabase(dataDir string) string {
	return filepath.Join(dataDir, mediaFileName)
}

// SettingsFile returns the flat settings file.
func SettingsFile(dataDir string) string {
	return filepath.Join(dataDir, settingsFileName)
}

// LockFile returns the lock file guarding a database file.
func LockFile(databasePath string) string {
	return databasePath + ".lock"
}
