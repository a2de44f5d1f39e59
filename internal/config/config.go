package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"

	"github.com/imkarma/taskpin/internal/pin"
)

const (
	// Dir is the per-workspace directory holding config and history.
	Dir = ".taskpin"
	// FileName is the config file inside Dir.
	FileName = "config.yaml"

	envNamespace = "TASKPIN"
)

// Delete modes select what the panel's delete key does.
const (
	DeleteSource = "source" // removeTask: drop from store and strip the comment
	DeleteStore  = "store"  // deleteTask: drop from store only
)

// Config is the root configuration for a taskpin workspace.
type Config struct {
	Version     int          `yaml:"version"`
	Marker      MarkerConfig `yaml:"marker"`
	Scan        ScanConfig   `yaml:"scan"`
	StoreFile   string       `yaml:"store_file"`
	HistoryFile string       `yaml:"history_file"`
	DeleteMode  string       `yaml:"delete_mode"`
	PreserveIDs bool         `yaml:"preserve_ids"`
	Watch       WatchConfig  `yaml:"watch"`
	Editor      string       `yaml:"editor,omitempty"`    // e.g. "code --goto {file}:{line}"
	LogLevel    string       `yaml:"log_level,omitempty"` // debug, info, warn, error
}

// MarkerConfig describes the comment syntax that marks a pin.
type MarkerConfig struct {
	Keyword  string   `yaml:"keyword"`
	Prefixes []string `yaml:"prefixes"`
}

// ScanConfig selects and filters the files a scan reads.
type ScanConfig struct {
	Mode         string   `yaml:"mode"` // "workspace" or "changed"
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
}

// WatchConfig controls rescans on file changes.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// Debounce returns the debounce window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Env holds the TASKPIN_* environment overrides.
type Env struct {
	ScanMode   string `envconfig:"SCAN_MODE"`
	StoreFile  string `envconfig:"STORE_FILE"`
	DeleteMode string `envconfig:"DELETE_MODE"`
	Editor     string `envconfig:"EDITOR"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
}

// LoadEnv reads the TASKPIN_* environment.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(envNamespace, &env); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return &env, nil
}

// Path returns the config file path for a workspace root.
func Path(root string) string {
	return filepath.Join(root, Dir, FileName)
}

// Load reads and parses the config file at the given path. Fields the file
// leaves out keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWorkspace loads the workspace config if present, falls back to the
// defaults otherwise, then applies environment overrides.
func LoadWorkspace(root string) (*Config, error) {
	return Resolve(Path(root))
}

// Resolve is LoadWorkspace for an explicit config path.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	env, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(env)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the given path, creating its directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the config used when a workspace has none.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Marker: MarkerConfig{
			Keyword:  pin.DefaultKeyword,
			Prefixes: append([]string(nil), pin.DefaultPrefixes...),
		},
		Scan: ScanConfig{
			Mode:         "workspace",
			Include:      []string{"**/*"},
			Exclude:      []string{".git/**", "node_modules/**", "vendor/**", Dir + "/**"},
			MaxFileBytes: 1 << 20,
		},
		StoreFile:   "taskpins.txt",
		HistoryFile: filepath.ToSlash(filepath.Join(Dir, "history.db")),
		DeleteMode:  DeleteSource,
		Watch: WatchConfig{
			DebounceMS: 250,
		},
		LogLevel: "info",
	}
}

// ApplyEnv overrides fields with any non-empty environment values.
func (c *Config) ApplyEnv(env *Env) {
	if env == nil {
		return
	}
	if env.ScanMode != "" {
		c.Scan.Mode = env.ScanMode
	}
	if env.StoreFile != "" {
		c.StoreFile = env.StoreFile
	}
	if env.DeleteMode != "" {
		c.DeleteMode = env.DeleteMode
	}
	if env.Editor != "" {
		c.Editor = env.Editor
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Marker.Keyword) == "" {
		return fmt.Errorf("marker.keyword is required")
	}
	for _, p := range c.Marker.Prefixes {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("marker.prefixes must not contain empty entries")
		}
	}
	if c.Scan.Mode != "workspace" && c.Scan.Mode != "changed" {
		return fmt.Errorf("scan.mode must be 'workspace' or 'changed', got %q", c.Scan.Mode)
	}
	if c.Scan.MaxFileBytes <= 0 {
		return fmt.Errorf("scan.max_file_bytes must be positive, got %d", c.Scan.MaxFileBytes)
	}
	if c.DeleteMode != DeleteSource && c.DeleteMode != DeleteStore {
		return fmt.Errorf("delete_mode must be 'source' or 'store', got %q", c.DeleteMode)
	}
	if c.StoreFile == "" {
		return fmt.Errorf("store_file is required")
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// NewMarker builds the pin marker described by the config.
func (c *Config) NewMarker() (*pin.Marker, error) {
	return pin.NewMarker(c.Marker.Keyword, c.Marker.Prefixes)
}

// StorePath returns the absolute store file path for a workspace root.
func (c *Config) StorePath(root string) string {
	return resolve(root, c.StoreFile)
}

// HistoryPath returns the absolute history database path, or "" when
// history is disabled by an empty history_file.
func (c *Config) HistoryPath(root string) string {
	if c.HistoryFile == "" {
		return ""
	}
	return resolve(root, c.HistoryFile)
}

// ScanExclude returns the exclude globs plus the store file itself, so the
// records it holds are never read back as pins.
func (c *Config) ScanExclude(root string) []string {
	exclude := append([]string(nil), c.Scan.Exclude...)
	if rel, err := filepath.Rel(root, c.StorePath(root)); err == nil && !strings.HasPrefix(rel, "..") {
		exclude = append(exclude, filepath.ToSlash(rel))
	}
	return exclude
}

// EditorCommand expands the editor template for file:line into argv. The
// template is split into shell words first so a path with spaces stays one
// argument.
func (c *Config) EditorCommand(file string, line int) ([]string, error) {
	tmpl := c.Editor
	if tmpl == "" {
		tmpl = defaultEditor()
	}

	words, err := shell.Fields(tmpl, nil)
	if err != nil {
		return nil, fmt.Errorf("parse editor command %q: %w", tmpl, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}

	hasFile := false
	r := strings.NewReplacer("{file}", file, "{line}", strconv.Itoa(line))
	for i, w := range words {
		if strings.Contains(w, "{file}") {
			hasFile = true
		}
		words[i] = r.Replace(w)
	}
	if !hasFile {
		words = append(words, file)
	}
	return words, nil
}

func defaultEditor() string {
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v + " +{line} {file}"
		}
	}
	return "vi +{line} {file}"
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, filepath.FromSlash(p))
}
