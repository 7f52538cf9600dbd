package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the endpoints and local paths the client needs. Everything
// remote is an external collaborator reached over HTTP.
type Config struct {
	// APIURL is the compute/datasheet backend.
	APIURL string `yaml:"apiUrl"`
	// AuthURL is the identity provider.
	AuthURL string `yaml:"authUrl"`
	// StoreURL is the usage-log store.
	StoreURL string `yaml:"storeUrl"`
	// APIKey is the public (anon) key sent to the provider and store.
	APIKey string `yaml:"apiKey"`
	// DownloadDir receives saved datasheets. Empty means ~/Downloads.
	DownloadDir string `yaml:"downloadDir"`
	// LogFile receives diagnostics. Empty means ~/.calcu/calcu.log.
	LogFile string `yaml:"logFile"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		APIURL:   "http://localhost:8000",
		AuthURL:  "http://localhost:8000",
		StoreURL: "http://localhost:8000",
	}
}

// Load reads configuration with precedence: defaults, then the first
// readable YAML file among the candidates, then CALCU_* env overrides.
// An unreadable or malformed file is skipped, not fatal.
func Load(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".calcu", "config.yaml"))
		}
		candidates = append(candidates, "config.yaml")
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	return cfg
}

// Merge copies the non-empty fields of src over dst.
func Merge(dst *Config, src Config) {
	if src.APIURL != "" {
		dst.APIURL = src.APIURL
	}
	if src.AuthURL != "" {
		dst.AuthURL = src.AuthURL
	}
	if src.StoreURL != "" {
		dst.StoreURL = src.StoreURL
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.DownloadDir != "" {
		dst.DownloadDir = src.DownloadDir
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
}

// ApplyEnvOverrides applies CALCU_* environment variables on top of cfg.
func ApplyEnvOverrides(cfg *Config) {
	for env, field := range map[string]*string{
		"CALCU_API_URL":      &cfg.APIURL,
		"CALCU_AUTH_URL":     &cfg.AuthURL,
		"CALCU_STORE_URL":    &cfg.StoreURL,
		"CALCU_API_KEY":      &cfg.APIKey,
		"CALCU_DOWNLOAD_DIR": &cfg.DownloadDir,
		"CALCU_LOG_FILE":     &cfg.LogFile,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*field = v
		}
	}
}

// DefaultLogPath returns ~/.calcu/calcu.log.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".calcu", "calcu.log"), nil
}
