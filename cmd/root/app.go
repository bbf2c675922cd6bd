package root

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/model-switcher/pkg/aliases"
	"github.com/docker/model-switcher/pkg/catalog"
	"github.com/docker/model-switcher/pkg/chatcmd"
	"github.com/docker/model-switcher/pkg/config"
	"github.com/docker/model-switcher/pkg/environment"
	"github.com/docker/model-switcher/pkg/gateway"
	"github.com/docker/model-switcher/pkg/history"
	"github.com/docker/model-switcher/pkg/httpclient"
	"github.com/docker/model-switcher/pkg/journal"
	"github.com/docker/model-switcher/pkg/modelconfig"
	"github.com/docker/model-switcher/pkg/openrouter"
	"github.com/docker/model-switcher/pkg/permissions"
	"github.com/docker/model-switcher/pkg/redact"
	"github.com/docker/model-switcher/pkg/switcher"
)

// app holds everything a command needs, built once from the configuration.
type app struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	aliases  *aliases.Aliases
	switcher *switcher.Switcher
	journal  *journal.Journal
	redactor *redact.Redactor
}

func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := config.Load(ctx, flags.configPath, environment.NewOsEnvProvider())
	if err != nil {
		return nil, err
	}

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	userAliases, err := aliases.LoadFrom(cfg.AliasesPath)
	if err != nil {
		return nil, err
	}

	redactor := redact.New(cfg.Secrets()...)

	accessorOpts := []modelconfig.Opt{modelconfig.WithMainAgent(cfg.MainAgent)}
	if !cfg.Gateway.Disabled {
		client := gateway.NewClient(cfg.Gateway.URL,
			gateway.WithToken(cfg.Gateway.Token),
			gateway.WithTimeout(cfg.Gateway.Timeout),
		)
		accessorOpts = append(accessorOpts, modelconfig.WithRemote(client))
	}
	accessor := modelconfig.New(cfg.OpenClawConfig, accessorOpts...)

	switcherOpts := []switcher.Opt{switcher.WithRedactor(redactor)}
	if cfg.OpenRouter.Check {
		store := openrouter.NewStore(
			openrouter.WithURL(cfg.OpenRouter.URL),
			openrouter.WithAPIKey(cfg.OpenRouter.APIKey),
			openrouter.WithCacheTTL(cfg.OpenRouter.CacheTTL),
			openrouter.WithHTTPClient(httpclient.NewHttpClient(20*time.Second)),
		)
		switcherOpts = append(switcherOpts, switcher.WithCatalogCheck(store))
	}

	a := &app{
		cfg:      cfg,
		catalog:  cat,
		aliases:  userAliases,
		redactor: redactor,
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.JournalPath)
		if err != nil {
			slog.Warn("Switch journal unavailable, continuing without it", "path", cfg.JournalPath, "error", err)
		} else {
			a.journal = j
			switcherOpts = append(switcherOpts, switcher.WithRecorder(j))
		}
	}

	a.switcher = switcher.New(accessor, history.New(cfg.HistoryPath), cat, switcherOpts...)

	slog.Debug("Model switcher ready",
		"gateway", redact.URL(cfg.Gateway.URL),
		"gateway_disabled", cfg.Gateway.Disabled,
		"openclaw_config", cfg.OpenClawConfig,
		"history", cfg.HistoryPath,
		"catalog_models", len(cat.Entries()),
		"openrouter_check", cfg.OpenRouter.Check,
	)
	return a, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Bundled()
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading model catalog: %w", err)
	}
	return cat, nil
}

// resolve turns an alias or shorthand into a model id.
func (a *app) resolve(token string) string {
	return a.catalog.Resolve(token, a.aliases)
}

func (a *app) dispatcher() *chatcmd.Dispatcher {
	return chatcmd.New(a.switcher, permissions.NewChecker(&a.cfg.Permissions), a.catalog,
		chatcmd.WithAliases(a.aliases),
		chatcmd.WithRedactor(a.redactor),
	)
}

func (a *app) describe(err error) string {
	return chatcmd.Describe(err, a.redactor)
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			slog.Error("Failed to close switch journal", "error", err)
		}
	}
}
