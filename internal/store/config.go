package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

type Config struct {
	// Backend selects the collaborator: "local" (sqlite, default) or "remote" (REST).
	Backend string `json:"backend,omitempty"`
	APIURL  string `json:"apiUrl,omitempty"`
	// APIToken is sent as a static bearer header when set.
	APIToken string `json:"apiToken,omitempty"`

	// LastBoardID is re-selected on load when it still exists and is not archived.
	LastBoardID int64 `json:"lastBoardId,omitempty"`

	DebounceMs int    `json:"debounceMs,omitempty"`
	LogLevel   string `json:"logLevel,omitempty"`

	// RedisURL enables the cross-session change feed.
	RedisURL string `json:"redisUrl,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Glyphs selects the glyph set ("unicode", "ascii").
	Glyphs string `json:"glyphs,omitempty"`
}

func (c *Config) Debounce() time.Duration {
	if c == nil || c.DebounceMs <= 0 {
		return 300 * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c *Config) BackendKind() string {
	if c == nil || strings.TrimSpace(c.Backend) == "" {
		return BackendLocal
	}
	return strings.ToLower(strings.TrimSpace(c.Backend))
}

// LoadEnv reads .env from the working directory without overriding variables already set.
func LoadEnv() {
	_ = godotenv.Load()
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.dshbd).
	if v := strings.TrimSpace(os.Getenv("DSHBD_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dshbd"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads the config file, then applies DSHBD_* environment overrides.
// A missing file yields an empty config.
func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("DSHBD_BACKEND")); v != "" {
		cfg.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv("DSHBD_API_URL")); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DSHBD_API_TOKEN")); v != "" {
		cfg.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv("DSHBD_REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// CLI and TUI may write concurrently; the temp name is unique per writer.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// RememberBoard stores id as the last selected board.
func RememberBoard(id int64) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	if cfg.LastBoardID == id {
		return nil
	}
	cfg.LastBoardID = id
	return SaveConfig(cfg)
}
