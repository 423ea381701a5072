package cmd

import (
	"context"

	"github.com/spf13/pflag"
	"google.golang.org/api/option"

	"github.com/larsfn/minterra/internal/audit"
	"github.com/larsfn/minterra/internal/config"
	"github.com/larsfn/minterra/internal/core"
	"github.com/larsfn/minterra/internal/mapping"
	"github.com/larsfn/minterra/internal/service"
	"github.com/larsfn/minterra/internal/upstream/gcp"
	"github.com/larsfn/minterra/internal/upstream/tfc"
)

// Factory wires command flags into a fully constructed broker.
type Factory struct {
	// ConfigPath points at the broker configuration file.
	ConfigPath string
}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) bindConfigFlag(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ConfigPath, "config", "f", "", "The broker configuration file to use")
}

// LoadConfig loads the broker configuration. Without a --config flag a
// default configuration is used, which still requires a mapping source
// through the environment.
func (f *Factory) LoadConfig() (*config.Config, error) {
	if f.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(f.ConfigPath)
}

// BuildAuditor constructs the configured audit sink.
func (f *Factory) BuildAuditor(cfg *config.Config) (core.Auditor, error) {
	if !cfg.Audit.Enabled {
		return audit.NewNoopAuditor(), nil
	}
	switch cfg.Audit.Type {
	case "file":
		sink, err := cfg.Audit.DecodeFileSink()
		if err != nil {
			return nil, err
		}
		return audit.NewFileAuditor(sink.Path)
	default:
		return audit.NewMemoryAuditor(), nil
	}
}

// BuildService constructs the exchange pipeline with real upstream clients.
// The mapping store is loaded exactly once here; the returned service shares
// it read-only across all requests.
func (f *Factory) BuildService(
	ctx context.Context,
	cfg *config.Config,
	auditor core.Auditor,
	mintOpts ...option.ClientOption,
) (*service.ExchangeService, *mapping.Store, error) {
	store, err := cfg.ResolveMappings()
	if err != nil {
		return nil, nil, err
	}

	verifier := tfc.New(cfg.TFC.Address, cfg.TFC.Timeout)

	minter, err := gcp.NewMinter(ctx, cfg.Mint.Lifetime, cfg.Mint.Scopes, mintOpts...)
	if err != nil {
		return nil, nil, err
	}

	return service.NewExchangeService(verifier, minter, store, auditor), store, nil
}
