// Package config loads the model switcher configuration: a YAML file with
// environment variable overrides, built once at startup and passed down.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/tidwall/gjson"

	"github.com/docker/model-switcher/pkg/atomicfile"
	"github.com/docker/model-switcher/pkg/environment"
	"github.com/docker/model-switcher/pkg/modelconfig"
	"github.com/docker/model-switcher/pkg/openrouter"
	"github.com/docker/model-switcher/pkg/paths"
	"github.com/docker/model-switcher/pkg/permissions"
)

// Environment variables that override the file.
const (
	EnvGatewayURL     = "MODEL_SWITCHER_GATEWAY_URL"
	EnvGatewayToken   = "OPENCLAW_GATEWAY_TOKEN"
	EnvOpenRouterKey  = "OPENROUTER_API_KEY"
	EnvOpenClawConfig = "MODEL_SWITCHER_CONFIG_PATH"
)

const (
	DefaultGatewayTimeout = 10 * time.Second
	DefaultGatewayPort    = 18789
	DefaultListenAddr     = "127.0.0.1:8089"
)

type Config struct {
	// OpenClawConfig is the gateway's own openclaw.json, used when the RPC is unavailable.
	OpenClawConfig string `yaml:"openclaw_config,omitempty"`
	MainAgent      string `yaml:"main_agent,omitempty"`
	HistoryPath    string `yaml:"history_path,omitempty"`
	JournalPath    string `yaml:"journal_path,omitempty"`
	AliasesPath    string `yaml:"aliases_path,omitempty"`
	// CatalogPath replaces the bundled model allowlist.
	CatalogPath string `yaml:"catalog_path,omitempty"`
	// EnvFile is an optional KEY=VALUE file consulted after the process environment.
	EnvFile string `yaml:"env_file,omitempty"`

	Gateway     GatewayConfig      `yaml:"gateway,omitempty"`
	OpenRouter  OpenRouterConfig   `yaml:"openrouter,omitempty"`
	Permissions permissions.Config `yaml:"permissions,omitempty"`
	Server      ServerConfig       `yaml:"server,omitempty"`
}

type GatewayConfig struct {
	URL     string        `yaml:"url,omitempty"`
	Token   string        `yaml:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Disabled skips the RPC and always edits the config file.
	Disabled bool `yaml:"disabled,omitempty"`
}

type OpenRouterConfig struct {
	// Check enables validation against the OpenRouter model listing.
	Check    bool          `yaml:"check,omitempty"`
	APIKey   string        `yaml:"api_key,omitempty"`
	URL      string        `yaml:"url,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
}

type ServerConfig struct {
	Listen string `yaml:"listen,omitempty"`
	Token  string `yaml:"token,omitempty"`
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dataDir := paths.GetDataDir()
	return &Config{
		OpenClawConfig: filepath.Join(paths.GetOpenClawDir(), "openclaw.json"),
		MainAgent:      modelconfig.DefaultMainAgent,
		HistoryPath:    filepath.Join(dataDir, "history.json"),
		JournalPath:    filepath.Join(dataDir, "journal.db"),
		AliasesPath:    filepath.Join(paths.GetConfigDir(), "aliases.yaml"),
		Gateway: GatewayConfig{
			Timeout: DefaultGatewayTimeout,
		},
		OpenRouter: OpenRouterConfig{
			URL:      openrouter.ModelsAPIURL,
			CacheTTL: openrouter.DefaultCacheTTL,
		},
		Server: ServerConfig{
			Listen: DefaultListenAddr,
		},
	}
}

// Load reads path over the defaults and applies overrides from env. An empty
// path means DefaultPath, which may be absent; an explicit path must exist.
func Load(ctx context.Context, path string, env environment.Provider) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if cfg.EnvFile != "" {
		fileEnv, err := environment.ReadEnvFile(cfg.EnvFile)
		if err != nil {
			return nil, err
		}
		if env == nil {
			env = fileEnv
		} else {
			env = environment.NewMultiProvider(env, fileEnv)
		}
	}

	cfg.applyEnv(ctx, env)

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.discoverGateway()
	return cfg, nil
}

func (c *Config) applyEnv(ctx context.Context, env environment.Provider) {
	if env == nil {
		return
	}
	if v := env.Get(ctx, EnvGatewayURL); v != "" {
		c.Gateway.URL = v
	}
	if v := env.Get(ctx, EnvGatewayToken); v != "" {
		c.Gateway.Token = v
	}
	if v := env.Get(ctx, EnvOpenRouterKey); v != "" {
		c.OpenRouter.APIKey = v
	}
	if v := env.Get(ctx, EnvOpenClawConfig); v != "" {
		c.OpenClawConfig = v
	}
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.OpenClawConfig, &c.HistoryPath, &c.JournalPath, &c.AliasesPath, &c.CatalogPath} {
		if *p == "" {
			continue
		}
		expanded, err := environment.ExpandTilde(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.OpenClawConfig == "" {
		errs = append(errs, errors.New("openclaw_config must be set"))
	}
	if c.HistoryPath == "" {
		errs = append(errs, errors.New("history_path must be set"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("gateway.timeout must be positive, got %s", c.Gateway.Timeout))
	}
	if c.OpenRouter.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("openrouter.cache_ttl must not be negative, got %s", c.OpenRouter.CacheTTL))
	}
	if c.Gateway.URL != "" && !strings.HasPrefix(c.Gateway.URL, "http://") && !strings.HasPrefix(c.Gateway.URL, "https://") {
		errs = append(errs, fmt.Errorf("gateway.url must be an http(s) URL, got %q", c.Gateway.URL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// discoverGateway fills the gateway URL and token from openclaw.json when
// they were not configured. A missing or unreadable file is not an error.
func (c *Config) discoverGateway() {
	if c.Gateway.Disabled || (c.Gateway.URL != "" && c.Gateway.Token != "") {
		return
	}

	doc, err := atomicfile.Read(c.OpenClawConfig)
	if err != nil {
		if c.Gateway.URL == "" {
			c.Gateway.URL = gatewayURL(DefaultGatewayPort)
		}
		return
	}

	if c.Gateway.URL == "" {
		port := int(gjson.GetBytes(doc, "gateway.port").Int())
		if port <= 0 {
			port = DefaultGatewayPort
		}
		c.Gateway.URL = gatewayURL(port)
	}
	if c.Gateway.Token == "" {
		c.Gateway.Token = modelconfig.TokenFromDocument(doc)
	}
}

func gatewayURL(port int) string {
	return fmt.Sprintf("http://127.0.0.1:%d/rpc", port)
}

// Secrets returns the configured credentials, for redaction.
func (c *Config) Secrets() []string {
	return []string{c.Gateway.Token, c.OpenRouter.APIKey, c.Server.Token}
}
