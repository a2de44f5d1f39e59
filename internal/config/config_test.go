package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, root, data string) string {
	t.Helper()
	p := Path(root)
	os.MkdirAll(filepath.Dir(p), 0755)
	if err := os.WriteFile(p, []byte(data), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

// --- Load / Save / Validate tests ---

func TestLoad_Valid(t *testing.T) {
	root := t.TempDir()
	p := writeConfig(t, root, `version: 1
marker:
  keyword: todo
  prefixes: ["//", "#"]
scan:
  mode: changed
  include: ["**/*.go"]
delete_mode: store
preserve_ids: true
watch:
  enabled: true
  debounce_ms: 500
editor: "code --goto {file}:{line}"
`)

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Marker.Keyword != "todo" || len(cfg.Marker.Prefixes) != 2 {
		t.Fatalf("unexpected marker: %+v", cfg.Marker)
	}
	if cfg.Scan.Mode != "changed" {
		t.Fatalf("expected changed mode, got %s", cfg.Scan.Mode)
	}
	if len(cfg.Scan.Include) != 1 || cfg.Scan.Include[0] != "**/*.go" {
		t.Fatalf("expected include override, got %v", cfg.Scan.Include)
	}
	// Fields left out of the file keep their defaults.
	if cfg.Scan.MaxFileBytes != 1<<20 {
		t.Fatalf("expected default max_file_bytes, got %d", cfg.Scan.MaxFileBytes)
	}
	if len(cfg.Scan.Exclude) == 0 {
		t.Fatal("expected default exclude globs")
	}
	if cfg.StoreFile != "taskpins.txt" {
		t.Fatalf("expected default store file, got %s", cfg.StoreFile)
	}
	if !cfg.PreserveIDs || cfg.DeleteMode != DeleteStore {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if cfg.Watch.Debounce().Milliseconds() != 500 {
		t.Fatalf("expected 500ms debounce, got %s", cfg.Watch.Debounce())
	}
}

func TestLoad_InvalidMode(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "scan:\n  mode: everything\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error for unknown scan mode")
	}
}

func TestLoad_EmptyKeyword(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "marker:\n  keyword: \"\"\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error for empty keyword")
	}
}

func TestLoad_InvalidDeleteMode(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "delete_mode: shred\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error for unknown delete mode")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	p := writeConfig(t, t.TempDir(), "log_level: loud\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadWorkspace_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if cfg.Scan.Mode != "workspace" || cfg.Marker.Keyword != "taskpin" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadWorkspace_EnvOverrides(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "scan:\n  mode: workspace\n")

	t.Setenv("TASKPIN_SCAN_MODE", "changed")
	t.Setenv("TASKPIN_STORE_FILE", "pins.csv")
	t.Setenv("TASKPIN_DELETE_MODE", "store")
	t.Setenv("TASKPIN_EDITOR", "nano +{line} {file}")
	t.Setenv("TASKPIN_LOG_LEVEL", "warn")

	cfg, err := LoadWorkspace(root)
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if cfg.Scan.Mode != "changed" {
		t.Errorf("expected env scan mode, got %s", cfg.Scan.Mode)
	}
	if cfg.StoreFile != "pins.csv" {
		t.Errorf("expected env store file, got %s", cfg.StoreFile)
	}
	if cfg.DeleteMode != DeleteStore {
		t.Errorf("expected env delete mode, got %s", cfg.DeleteMode)
	}
	if cfg.Editor != "nano +{line} {file}" {
		t.Errorf("expected env editor, got %s", cfg.Editor)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected env log level, got %s", cfg.LogLevel)
	}
}

func TestLoadWorkspace_InvalidEnv(t *testing.T) {
	t.Setenv("TASKPIN_SCAN_MODE", "bogus")
	if _, err := LoadWorkspace(t.TempDir()); err == nil {
		t.Fatal("expected validation error for bad env scan mode")
	}
}

func TestSave_And_Reload(t *testing.T) {
	root := t.TempDir()
	p := Path(root)

	cfg := DefaultConfig()
	cfg.Marker.Keyword = "pin"
	cfg.PreserveIDs = true
	cfg.Watch.Enabled = true

	if err := Save(p, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(p)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Marker.Keyword != "pin" || !loaded.PreserveIDs || !loaded.Watch.Enabled {
		t.Fatalf("config did not round trip: %+v", loaded)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

// --- Path helpers ---

func TestStoreAndHistoryPaths(t *testing.T) {
	cfg := DefaultConfig()
	root := filepath.Join(string(filepath.Separator), "work")

	if got := cfg.StorePath(root); got != filepath.Join(root, "taskpins.txt") {
		t.Fatalf("unexpected store path %s", got)
	}
	if got := cfg.HistoryPath(root); got != filepath.Join(root, ".taskpin", "history.db") {
		t.Fatalf("unexpected history path %s", got)
	}

	cfg.HistoryFile = ""
	if cfg.HistoryPath(root) != "" {
		t.Fatal("expected empty history path when disabled")
	}
}

func TestScanExclude_AddsStoreFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StoreFile = "data/pins.txt"

	exclude := cfg.ScanExclude(t.TempDir())
	if exclude[len(exclude)-1] != "data/pins.txt" {
		t.Fatalf("expected store file excluded, got %v", exclude)
	}
	if len(cfg.Scan.Exclude) == len(exclude) {
		t.Fatal("ScanExclude mutated the config slice length")
	}
}

// --- EditorCommand tests ---

func TestEditorCommand_Template(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Editor = `code --goto "{file}:{line}"`

	got, err := cfg.EditorCommand("/w/my file.go", 12)
	if err != nil {
		t.Fatalf("EditorCommand: %v", err)
	}
	want := []string{"code", "--goto", "/w/my file.go:12"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEditorCommand_AppendsFileWhenMissing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Editor = "subl -w"

	got, err := cfg.EditorCommand("a.go", 3)
	if err != nil {
		t.Fatalf("EditorCommand: %v", err)
	}
	if len(got) != 3 || got[2] != "a.go" {
		t.Fatalf("expected file appended, got %v", got)
	}
}

func TestEditorCommand_DefaultFromEnv(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "nvim")

	got, err := DefaultConfig().EditorCommand("a.go", 7)
	if err != nil {
		t.Fatalf("EditorCommand: %v", err)
	}
	if strings.Join(got, " ") != "nvim +7 a.go" {
		t.Fatalf("unexpected command %v", got)
	}
}

func TestEditorCommand_BadQuoting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Editor = `vim "unterminated`
	if _, err := cfg.EditorCommand("a.go", 1); err == nil {
		t.Fatal("expected parse error")
	}
}
