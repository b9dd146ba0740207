// Package manifest handles kitten.toml project configuration.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/chazu/kitten/harness"
)

// FileName is the name of the project configuration file.
const FileName = "kitten.toml"

// SourceExtension is the extension of Kitten source files.
const SourceExtension = ".kit"

// Manifest represents a kitten.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Source  Source        `toml:"source"`
	Output  Output        `toml:"output"`
	Harness HarnessConfig `toml:"harness"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the kitten.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs []string `toml:"dirs"`
}

// Output configures where compiled classes go.
type Output struct {
	Dir     string `toml:"dir"`
	Archive string `toml:"archive"` // SQLite class archive; empty for none
}

// HarnessConfig configures generated test harnesses.
type HarnessConfig struct {
	Suffix string `toml:"suffix"`
	Header string `toml:"header"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when dir has no kitten.toml.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.applyDefaults()
	return m, nil
}

// Load parses a kitten.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "build"
	}
}

// FindAndLoad walks up from startDir to find a kitten.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// SourceFiles returns every .kit file under the source directories, sorted.
// Missing source directories are skipped.
func (m *Manifest) SourceFiles() ([]string, error) {
	var files []string
	for _, root := range m.SourceDirPaths() {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root && os.IsNotExist(err) {
					return filepath.SkipDir
				}
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, SourceExtension) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// OutputDir returns the absolute class output directory.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output.Dir)
}

// ArchivePath returns the absolute archive path, or "" when none is configured.
func (m *Manifest) ArchivePath() string {
	if m.Output.Archive == "" {
		return ""
	}
	return m.resolve(m.Output.Archive)
}

// LogFile returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogFile() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

// HarnessOptions returns the harness generation options, defaults filled in.
func (m *Manifest) HarnessOptions() harness.Options {
	opts := harness.DefaultOptions()
	if m.Harness.Suffix != "" {
		opts.Suffix = m.Harness.Suffix
	}
	if m.Harness.Header != "" {
		opts.Header = m.Harness.Header
	}
	return opts
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
