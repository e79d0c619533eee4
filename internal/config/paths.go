package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".intelligeo"

// Paths holds resolved filesystem paths for IntelliGeo data.
type Paths struct {
	Base      string // ~/.intelligeo
	Config    string // ~/.intelligeo/config.yaml
	Database  string // ~/.intelligeo/data/intelligeo.db
	Artifacts string // ~/.intelligeo/artifacts
	Logs      string // ~/.intelligeo/logs
	Data      string // ~/.intelligeo/data
}

// ResolvePaths computes all standard paths from the home directory.
// If INTELLIGEO_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("INTELLIGEO_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:      base,
		Config:    filepath.Join(base, "config.yaml"),
		Database:  filepath.Join(base, "data", "intelligeo.db"),
		Artifacts: filepath.Join(base, "artifacts"),
		Logs:      filepath.Join(base, "logs"),
		Data:      filepath.Join(base, "data"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Data, p.Artifacts, p.Logs}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
