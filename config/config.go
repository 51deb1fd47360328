// Package config loads the gdstash YAML configuration and discovers the
// game archives and save files it points to.
//
// The configuration file is located by, in order:
//   - the --config flag,
//   - the GDSTASH_CONFIG environment variable,
//   - $HOME/.config/gdstash/config.yaml.
//
// ${VAR} and ${VAR:-default} patterns as well as a leading ~ are expanded in
// every path field.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/bsm/gdstash/pipeline"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "GDSTASH_CONFIG"

var (
	// ErrNoConfig is returned when no configuration file exists.
	ErrNoConfig = errors.New("config: no configuration file")
	// ErrMissingInstallDir is returned when install_dir is unset or missing.
	ErrMissingInstallDir = errors.New("config: install directory not found")
	// ErrMissingSaveDir is returned when save_dir is unset or missing.
	ErrMissingSaveDir = errors.New("config: save directory not found")
)

// Config is the gdstash configuration.
type Config struct {
	// InstallDir is the game installation directory.
	InstallDir string `yaml:"install_dir"`

	// SaveDir is the directory holding transfer stashes and main/.
	SaveDir string `yaml:"save_dir"`

	// Language selects the localization archives.
	// Default: EN
	Language string `yaml:"language"`

	// CacheDir stores catalog snapshots. Empty disables caching.
	// Default: ~/.cache/gdstash
	CacheDir string `yaml:"cache_dir"`

	// LenientBlocks downgrades save block failures to warnings.
	LenientBlocks bool `yaml:"lenient_blocks"`

	// Concurrency limits parallel decoding.
	// Default: number of CPUs
	Concurrency int `yaml:"concurrency"`
}

// Default returns the default configuration. It is the base the config
// file is merged into.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Language:    "EN",
		CacheDir:    filepath.Join(homeDir, ".cache", "gdstash"),
		Concurrency: runtime.NumCPU(),
	}
}

// Locate returns the config path to use, given an optional explicit path.
func Locate(path string) string {
	if path != "" {
		return path
	}
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "gdstash", "config.yaml")
}

// Load locates and loads the configuration file.
func Load(path string) (*Config, error) {
	return LoadFile(Locate(path))
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNoConfig, path)
	} else if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses YAML configuration data on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}

	cfg.expandVariables()
	if cfg.Language == "" {
		cfg.Language = "EN"
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = runtime.NumCPU()
	}
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.InstallDir = expandPath(c.InstallDir)
	c.SaveDir = expandPath(c.SaveDir)
	c.CacheDir = expandPath(c.CacheDir)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

func expandPath(s string) string {
	s = expandVars(s)
	if s == "~" || strings.HasPrefix(s, "~/") {
		if homeDir, err := os.UserHomeDir(); err == nil {
			s = homeDir + s[1:]
		}
	}
	return s
}

// Validate checks that the configured directories exist.
func (c *Config) Validate() error {
	if !isDir(c.InstallDir) {
		return errors.Wrapf(ErrMissingInstallDir, "install_dir %q", c.InstallDir)
	}
	if !isDir(c.SaveDir) {
		return errors.Wrapf(ErrMissingSaveDir, "save_dir %q", c.SaveDir)
	}
	return nil
}

// Databases returns the existing database archives, base game first.
func (c *Config) Databases() []string {
	return existing(
		filepath.Join(c.InstallDir, "database", "database.arz"),
		filepath.Join(c.InstallDir, "gdx1", "database", "GDX1.arz"),
		filepath.Join(c.InstallDir, "gdx2", "database", "GDX2.arz"),
	)
}

// Localizations returns the existing localization archives for the
// configured language, base game first.
func (c *Config) Localizations() []string {
	name := "Text_" + c.Language + ".arc"
	return existing(
		filepath.Join(c.InstallDir, "resources", name),
		filepath.Join(c.InstallDir, "gdx1", "resources", name),
		filepath.Join(c.InstallDir, "gdx2", "resources", name),
	)
}

// Characters returns every character save, sorted by directory name.
func (c *Config) Characters() []string {
	matches, _ := filepath.Glob(filepath.Join(c.SaveDir, "main", "*", "player.gdc"))
	return existing(matches...)
}

// Stash returns the softcore transfer stash, or "" if absent.
func (c *Config) Stash() string {
	return first(existing(filepath.Join(c.SaveDir, "transfer.gst")))
}

// HardcoreStash returns the hardcore transfer stash, or "" if absent.
func (c *Config) HardcoreStash() string {
	return first(existing(filepath.Join(c.SaveDir, "transfer.gsh")))
}

// Sources validates the directories and discovers every input file.
func (c *Config) Sources() (*pipeline.Sources, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &pipeline.Sources{
		Databases:     c.Databases(),
		Localizations: c.Localizations(),
		Characters:    c.Characters(),
		Stash:         c.Stash(),
		HardcoreStash: c.HardcoreStash(),
	}, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func existing(paths ...string) []string {
	var found []string
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			found = append(found, p)
		}
	}
	return found
}

func first(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
