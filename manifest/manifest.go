// Package manifest handles tape.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/tape/compiler"
	"github.com/chazu/tape/vm"
)

// FileName is the project configuration file looked up by FindAndLoad.
const FileName = "tape.toml"

// Manifest represents a tape.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Source  Source        `toml:"source"`
	Machine MachineConfig `toml:"machine"`
	Cache   CacheConfig   `toml:"cache"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the tape.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures where the program comes from when none is given on
// the command line.
type Source struct {
	Entry string `toml:"entry"` // program file, relative to the manifest
	Input string `toml:"input"` // optional file fed to Input commands
}

// MachineConfig configures compilation and execution.
type MachineConfig struct {
	TapeSize    int    `toml:"tape-size"`
	MaxTapeSize int    `toml:"max-tape-size"`
	Bounds      string `toml:"bounds"`
	Strategy    string `toml:"strategy"`
	MaxSteps    int64  `toml:"max-steps"`
	Timeout     string `toml:"timeout"`
}

// CacheConfig configures the compiled-program cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no tape.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses the tape.toml file in the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses a configuration file at an explicit path.
func LoadFile(path string) (*Manifest, error) {
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
		return nil, fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
	}

	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a tape.toml file,
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

func (m *Manifest) applyDefaults() {
	if m.Machine.TapeSize == 0 {
		m.Machine.TapeSize = vm.DefaultTapeSize
	}
	if m.Machine.Bounds == "" {
		m.Machine.Bounds = vm.BoundsFail.String()
	}
	if m.Machine.Strategy == "" {
		m.Machine.Strategy = compiler.StrategyFlat.String()
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".tape", "cache.db")
	}
}

// Validate checks that every setting parses.
func (m *Manifest) Validate() error {
	if _, err := m.VMConfig(); err != nil {
		return err
	}
	if _, err := m.CompileStrategy(); err != nil {
		return err
	}
	if _, err := m.Timeout(); err != nil {
		return err
	}
	if m.Log.Verbosity < 0 {
		return fmt.Errorf("log verbosity %d is negative", m.Log.Verbosity)
	}
	return nil
}

// VMConfig converts the [machine] section to a vm.Config.
func (m *Manifest) VMConfig() (vm.Config, error) {
	bounds, err := vm.ParseBoundsPolicy(m.Machine.Bounds)
	if err != nil {
		return vm.Config{}, err
	}
	cfg := vm.Config{
		TapeSize:    m.Machine.TapeSize,
		Bounds:      bounds,
		MaxTapeSize: m.Machine.MaxTapeSize,
		MaxSteps:    m.Machine.MaxSteps,
	}
	if err := cfg.Validate(); err != nil {
		return vm.Config{}, err
	}
	return cfg, nil
}

// CompileStrategy returns the configured compile strategy.
func (m *Manifest) CompileStrategy() (compiler.Strategy, error) {
	return compiler.ParseStrategy(m.Machine.Strategy)
}

// Timeout returns the run deadline; zero means none.
func (m *Manifest) Timeout() (time.Duration, error) {
	if m.Machine.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(m.Machine.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", m.Machine.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout %s is negative", d)
	}
	return d, nil
}

// Resolve returns path made absolute relative to the manifest directory.
// Empty paths stay empty.
func (m *Manifest) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}

// CachePath returns the resolved path of the program cache database.
func (m *Manifest) CachePath() string {
	return m.Resolve(m.Cache.Path)
}

// EntryPath returns the resolved path of the default program, or "".
func (m *Manifest) EntryPath() string {
	return m.Resolve(m.Source.Entry)
}
