package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/cache"
	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
	"github.com/sells-group/enrich-cli/internal/verify"
	"github.com/sells-group/enrich-cli/internal/waterfall"
	"github.com/sells-group/enrich-cli/internal/waterfall/provider"
)

// engine is the wired enrichment stack for one command invocation.
type engine struct {
	Exec     *waterfall.Executor
	Enricher waterfall.Enricher
	Store    store.Store
	Cache    *cache.Cache
}

type engineOptions struct {
	withStore bool
	withCache bool
}

// newEngine builds the executor from the loaded config. Store and cache are
// only opened when requested and configured.
func newEngine(ctx context.Context, opts engineOptions) (*engine, error) {
	if err := cfg.Validate(offline); err != nil {
		return nil, err
	}
	wc, err := cfg.WaterfallConfig()
	if err != nil {
		return nil, err
	}
	registry, err := buildRegistry(wc, offline)
	if err != nil {
		return nil, err
	}

	exec, err := waterfall.NewExecutor(wc, registry,
		waterfall.WithVerifier(newVerifier()),
		waterfall.WithRetryConfig(cfg.RetryPolicy()),
		waterfall.WithServiceStatus(resilience.NewServiceStatus(cfg.CircuitPolicy())),
	)
	if err != nil {
		return nil, err
	}

	eng := &engine{Exec: exec, Enricher: exec}

	if opts.withCache && cfg.Cache.RedisAddr != "" {
		c, err := cache.New(ctx, cfg.CacheSettings())
		if err != nil {
			return nil, err
		}
		eng.Cache = c
		eng.Enricher = cache.NewEnricher(exec, c)
	}

	if opts.withStore {
		s, err := openStore(ctx, cfg.Store)
		if err != nil {
			eng.Close()
			return nil, err
		}
		eng.Store = s
	}
	return eng, nil
}

func (e *engine) Close() {
	if e.Cache != nil {
		if err := e.Cache.Close(); err != nil {
			zap.L().Warn("close cache", zap.Error(err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch sc.Driver {
	case "sqlite":
		s, err = store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		s, err = store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{MaxConns: sc.MaxConns, Schema: sc.Schema})
	case "":
		return nil, eris.New("store: no driver configured (set store.driver)")
	default:
		return nil, eris.Errorf("store: unsupported driver %q", sc.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// buildRegistry registers one adapter per provider in the service order.
func buildRegistry(wc *waterfall.Config, offline bool) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, d := range wc.ServiceOrder() {
		if offline {
			registry.Register(provider.NewStatic(d.Name, offlineFixtures[d.Name]))
			continue
		}
		p, err := newProvider(d, wc.Settings.ProviderTimeout)
		if err != nil {
			return nil, err
		}
		registry.Register(p)
	}
	return registry, nil
}

func newProvider(d waterfall.ProviderDescriptor, timeout time.Duration) (provider.Provider, error) {
	pc := cfg.Providers[d.Name]
	baseURL := d.BaseURL
	if baseURL == "" {
		baseURL = pc.BaseURL
	}
	c := provider.Config{APIKey: pc.APIKey, BaseURL: baseURL, Timeout: timeout}

	switch d.Name {
	case "icypeas":
		return provider.NewIcypeas(c), nil
	case "dropcontact":
		return provider.NewDropcontact(c, nil), nil
	case "hunter":
		return provider.NewHunter(c), nil
	case "apollo":
		return provider.NewApollo(c), nil
	case "kaspr":
		return provider.NewKaspr(c), nil
	default:
		return nil, eris.Errorf("provider: no adapter for %s", d.Name)
	}
}

func newVerifier() *verify.Service {
	var opts []verify.EmailOption
	if offline {
		opts = append(opts, verify.WithResolver(offlineResolver{}))
	} else if cfg.Verify.EmailAPIURL != "" {
		opts = append(opts, verify.WithMailboxAPI(cfg.Verify.EmailAPIURL, cfg.Verify.EmailAPIKey))
	}
	return verify.NewService(verify.NewEmailVerifier(opts...), verify.NewPhoneVerifier(cfg.Verify.DefaultRegion))
}

// offlineResolver reports a mail exchanger for every domain.
type offlineResolver struct{}

func (offlineResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	return []*net.MX{{Host: "mx." + name, Pref: 10}}, nil
}

// offlineFixtures are the canned answers of the static providers, keyed by
// company domain.
var offlineFixtures = map[string]map[string]provider.StaticEntry{
	"icypeas": {
		"acme.com":   {Email: "jane.doe@acme.com", Confidence: 72},
		"globex.com": {Email: "hank.scorpio@globex.com", Confidence: 94},
	},
	"dropcontact": {
		"initech.com": {Email: "peter.gibbons@initech.com", Confidence: 86},
	},
	"hunter": {
		"acme.com":    {Email: "jane@acme.com", Confidence: 91},
		"initech.com": {Email: "pgibbons@initech.com", Confidence: 60},
	},
	"apollo": {
		"umbrella.com": {Email: "a.wesker@umbrella.com", Phone: "+1 650-253-0000"},
	},
	"kaspr": {
		"hooli.com": {Phone: "+44 7400 123456", Confidence: 80},
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
