package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"extasset/internal/assets"
)

const (
	DefaultConcurrency = 5
	DefaultBaseURL     = "/assets"
	DefaultLogLevel    = "info"
	DefaultDBFileName  = ".extasset.db"
	DefaultListenAddr  = "127.0.0.1:7433"

	// DefaultMirrorDirName is the mirror root created next to the database
	// when mirror_dir is not configured.
	DefaultMirrorDirName = ".extasset"

	configDirEnvKey          = "EXTASSET_CONFIG_DIR"
	trustProjectConfigEnvKey = "EXTASSET_TRUST_PROJECT_CONFIG"
	dbPathEnvKey             = "EXTASSET_DB"
	mirrorDirEnvKey          = "EXTASSET_MIRROR_DIR"
	baseURLEnvKey            = "EXTASSET_BASE_URL"
	concurrencyEnvKey        = "EXTASSET_CONCURRENCY"

	configFileName = ".extasset.toml"
)

// AssetEntry is one configured asset, declared either inline in the TOML
// config or in the YAML manifest referenced by assets_manifest.
type AssetEntry struct {
	Name                 string `toml:"name" yaml:"name"`
	URL                  string `toml:"url" yaml:"url"`
	CheckIntervalMinutes int    `toml:"check_interval_minutes" yaml:"check_interval_minutes"`
}

// StorageLocal is the only supported storage backend identifier.
const StorageLocal = "local"

// Config defines runtime configuration for extasset.
type Config struct {
	Storage        string       `toml:"storage"`
	DBPath         string       `toml:"db_path"`
	MirrorDir      string       `toml:"mirror_dir"`
	BaseURL        string       `toml:"base_url"`
	ListenAddr     string       `toml:"listen_addr"`
	Concurrency    int          `toml:"concurrency"`
	LogLevel       string       `toml:"log_level"`
	AssetsManifest string       `toml:"assets_manifest"`
	Assets         []AssetEntry `toml:"assets"`

	TrustedProjectConfigPath string `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Storage:     StorageLocal,
		DBPath:      "",
		MirrorDir:   "",
		BaseURL:     DefaultBaseURL,
		ListenAddr:  DefaultListenAddr,
		Concurrency: DefaultConcurrency,
		LogLevel:    DefaultLogLevel,
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"storage",
	"db_path",
	"mirror_dir",
	"base_url",
	"listen_addr",
	"concurrency",
	"log_level",
	"assets_manifest",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "storage":
		return c.Storage, nil
	case "db_path":
		return c.DBPath, nil
	case "mirror_dir":
		return c.MirrorDir, nil
	case "base_url":
		return c.BaseURL, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "concurrency":
		return strconv.Itoa(c.Concurrency), nil
	case "log_level":
		return c.LogLevel, nil
	case "assets_manifest":
		return c.AssetsManifest, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	data[key] = parsedValue

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

// Load reads config from trusted files, applies env overrides, and merges
// the YAML asset manifest when one is configured.
func Load() (*Config, error) {
	cfg := Default()

	var configDir string
	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
		configDir = filepath.Dir(overridePath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			homePath := filepath.Join(home, configFileName)
			loaded, loadErr := loadFileIfExists(homePath, &cfg)
			if loadErr != nil {
				return nil, loadErr
			}
			if loaded {
				configDir = home
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
					configDir = cwd
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if mirrorDir := os.Getenv(mirrorDirEnvKey); mirrorDir != "" {
		cfg.MirrorDir = mirrorDir
	}
	if baseURL := os.Getenv(baseURLEnvKey); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if raw := strings.TrimSpace(os.Getenv(concurrencyEnvKey)); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid %s=%q", concurrencyEnvKey, raw)
		}
		cfg.Concurrency = parsed
	}

	if err := cfg.loadManifest(configDir); err != nil {
		return nil, err
	}

	cfg.normalizeDefaults()

	if cfg.Storage != StorageLocal {
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}
	if err := cfg.validateAssets(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// manifestFile is the YAML document shape of an asset manifest.
type manifestFile struct {
	Assets []AssetEntry `yaml:"assets"`
}

// loadManifest appends manifest entries after the inline [[assets]] blocks.
// A relative manifest path is resolved against the directory of the config
// file that declared it.
func (c *Config) loadManifest(configDir string) error {
	path := strings.TrimSpace(c.AssetsManifest)
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) && configDir != "" {
		path = filepath.Join(configDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read assets manifest %s: %w", path, err)
	}

	var manifest manifestFile
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("parse assets manifest %s: %w", path, err)
	}

	c.Assets = append(c.Assets, manifest.Assets...)
	return nil
}

func (c *Config) normalizeDefaults() {
	c.Storage = strings.TrimSpace(c.Storage)
	if c.Storage == "" {
		c.Storage = StorageLocal
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = DefaultListenAddr
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.MirrorDir) == "" && c.DBPath != "" {
		c.MirrorDir = filepath.Join(filepath.Dir(c.DBPath), DefaultMirrorDirName, "mirror")
	}
}

func (c *Config) validateAssets() error {
	seen := make(map[string]struct{}, len(c.Assets))
	for i, entry := range c.Assets {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return fmt.Errorf("asset %d: name is required", i)
		}
		if strings.TrimSpace(entry.URL) == "" {
			return fmt.Errorf("asset %q: url is required", name)
		}
		if entry.CheckIntervalMinutes < 0 {
			return fmt.Errorf("asset %q: check_interval_minutes must not be negative", name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("asset %q: duplicate name", name)
		}
		seen[name] = struct{}{}
		c.Assets[i].Name = name
	}
	return nil
}

// AssetList converts configured entries into the engine's asset model.
func (c *Config) AssetList() []assets.Asset {
	out := make([]assets.Asset, 0, len(c.Assets))
	for _, entry := range c.Assets {
		out = append(out, assets.Asset{
			Name:          entry.Name,
			URL:           entry.URL,
			CheckInterval: time.Duration(entry.CheckIntervalMinutes) * time.Minute,
		})
	}
	return out
}
