// Package configpaths locates viistream configuration files.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "viistream"

// systemDir is the unix system-wide config directory.
var systemDir = filepath.Join("/etc", appName)

// DefaultConfigDir returns the per-user viistream config directory.
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, appName), nil
		}
		return "", errors.New("AppData not set")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", appName), nil
	}
	return "", errors.New("HOME not set")
}

// EnsureDir creates the parent directory of filePath.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// Candidates holds config file paths to try, grouped by the loader that reads them.
type Candidates struct {
	JSON, YAML, TOML []string
}

func (c *Candidates) addUser(p string) {
	switch filepath.Ext(p) {
	case ".yaml", ".yml":
		c.YAML = append(c.YAML, p)
	case ".toml":
		c.TOML = append(c.TOML, p)
	default:
		c.JSON = append(c.JSON, p)
	}
}

func (c *Candidates) addBases(dir string, bases ...string) {
	for _, base := range bases {
		p := filepath.Join(dir, base)
		c.JSON = append(c.JSON, p+".json")
		c.YAML = append(c.YAML, p+".yaml", p+".yml")
		c.TOML = append(c.TOML, p+".toml")
	}
}

// ConfigCandidatePaths lists config files in lookup order: userPath first (routed
// by extension, JSON when unknown), then the working directory, the per-user
// config directory and finally /etc/viistream on unix.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	var c Candidates
	if userPath != "" {
		c.addUser(userPath)
	}
	if wd, err := os.Getwd(); err == nil {
		c.addBases(wd, appName, "config", "stream")
	}
	if dir, err := DefaultConfigDir(); err == nil {
		c.addBases(dir, "config", "stream")
	}
	if runtime.GOOS != "windows" {
		c.addBases(systemDir, "config", "stream")
	}
	return c.JSON, c.YAML, c.TOML
}
