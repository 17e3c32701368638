package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// EnvAPIURL overrides api.base_url when set.
const EnvAPIURL = "CONDUIT_API_URL"

type Config struct {
	API        API        `yaml:"api"`
	Import     Import     `yaml:"import"`
	Output     Output     `yaml:"output"`
	StubServer StubServer `yaml:"stub_server"`
	Logging    Logging    `yaml:"logging"`
}

type API struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	AuthScheme string        `yaml:"auth_scheme"`
	RateLimit  RateLimit     `yaml:"rate_limit"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Import struct {
	Feeds    []Feed   `yaml:"feeds"`
	Tags     []string `yaml:"tags"`
	FullText bool     `yaml:"full_text"`
	Limit    int      `yaml:"limit"`
}

type Feed struct {
	URL  string   `yaml:"url"`
	Tags []string `yaml:"tags"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type StubServer struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Debug reports whether request logging is enabled.
func (l Logging) Debug() bool {
	return strings.EqualFold(l.Level, "DEBUG")
}

// ConfigDir returns the XDG config directory for conduit.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "conduit")
}

// DataDir returns the XDG data directory for conduit.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "conduit")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/conduit/config.yaml > ./config.yaml
// With no explicit path and no file found it returns "" and no error; the
// embedded defaults apply.
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", nil
}

// Load reads and parses a config YAML file. An empty path yields the
// embedded defaults.
func Load(path string) (*Config, error) {
	data := DefaultConfigYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if v := os.Getenv(EnvAPIURL); v != "" {
		cfg.API.BaseURL = v
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL:    "http://localhost:3000/api",
			Timeout:    30 * time.Second,
			AuthScheme: "Bearer",
			RateLimit:  RateLimit{RPS: 5, Burst: 10},
		},
		Import:     Import{Limit: 20},
		StubServer: StubServer{Port: 3000},
		Logging:    Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("parsing config: api.base_url must not be empty")
	}
	if cfg.API.RateLimit.RPS < 0 {
		return nil, fmt.Errorf("parsing config: api.rate_limit.rps must not be negative")
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DBPath is where the credential database lives.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), "conduit.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
