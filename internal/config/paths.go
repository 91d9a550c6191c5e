package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for file layout:
//
//	<root>/
//	  ├── config.yaml
//	  ├── data/
//	  │   ├── raw/              (per-source CSVs and *_binary.csv)
//	  │   ├── aggregates/       (cohort manifests and aggregate tables)
//	  │   ├── source_lookup.csv (scrape targets)
//	  │   └── results.txt       (reference source digits, oldest first)
//	  └── logs/
type Paths struct {
	ExecutableDir string
	DataDir       string
	RawDir        string
	AggregatesDir string
	LogsDir       string

	SourceLookupFile string
	ResultsFile      string
}

// GetPaths returns the application paths relative to the executable
// location, never the current working directory.
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return PathsForRoot(filepath.Dir(exe)), nil
}

// PathsForRoot builds the path set under an explicit root directory.
// Used by tests and by CLIs that accept a --data-root override.
func PathsForRoot(root string) *Paths {
	dataDir := filepath.Join(root, "data")
	return &Paths{
		ExecutableDir: root,
		DataDir:       dataDir,
		RawDir:        filepath.Join(dataDir, "raw"),
		AggregatesDir: filepath.Join(dataDir, "aggregates"),
		LogsDir:       filepath.Join(root, "logs"),

		SourceLookupFile: filepath.Join(dataDir, SourceLookupFileName),
		ResultsFile:      filepath.Join(dataDir, ResultsFileName),
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.AggregatesDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
	}

	return nil
}

// GetRawPath returns the path of a raw series CSV by file stem.
func (p *Paths) GetRawPath(name string) string {
	return filepath.Join(p.RawDir, name+".csv")
}

// GetBinaryPath returns the path of a series' one-hot encoded CSV.
func (p *Paths) GetBinaryPath(name string) string {
	return filepath.Join(p.RawDir, name+BinarySuffix+".csv")
}

// GetAggregatePath returns the path of a cohort's aggregate CSV.
func (p *Paths) GetAggregatePath(cohort string) string {
	return filepath.Join(p.AggregatesDir, cohort+AggregateSuffix+".csv")
}

// GetManifestPath returns the path of a cohort manifest file.
func (p *Paths) GetManifestPath(name string) string {
	return filepath.Join(p.AggregatesDir, name)
}

// GetLogPath returns a log file path under the logs directory.
func (p *Paths) GetLogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
