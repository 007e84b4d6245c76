package cmd

import (
	"context"
	"fmt"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/apis"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/catalogue"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/config"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/engine"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/githubtags"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/suite"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/transport"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// validatorDeps are the parts of a validator commands may need to reach
// after it is built.
type validatorDeps struct {
	validator *suite.Validator
	catalogue *catalogue.Store
}

// loadCatalogue reads the configured snapshot, from the file when both are
// set.
func loadCatalogue(ctx context.Context, cfg config.CatalogueConfig) (*catalogue.Catalogue, error) {
	if cfg.Path != "" {
		c, err := catalogue.Load(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalogue: %w", err)
		}
		hosts, apis, heis := c.Stats()
		logging.Info("Catalogue", "Loaded catalogue from %s: %d hosts, %d APIs, %d HEIs", cfg.Path, hosts, apis, heis)
		return c, nil
	}
	c, err := catalogue.NewRemoteSource(cfg.URL, nil).Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}
	return c, nil
}

// buildValidator wires the validator from cfg. Extra options are applied
// last.
func buildValidator(ctx context.Context, cfg config.Config, extra ...suite.Option) (*validatorDeps, error) {
	creds, err := transport.LoadCredentials(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	snapshot, err := loadCatalogue(ctx, cfg.Catalogue)
	if err != nil {
		return nil, err
	}
	store := catalogue.NewStore(snapshot)

	client := transport.NewHTTPClient(transport.HTTPOptions{
		Timeout:            cfg.Validator.Timeout,
		UserAgent:          cfg.Validator.UserAgent,
		InsecureSkipVerify: cfg.Validator.InsecureSkipVerify,
	})
	if cfg.Validator.InsecureSkipVerify {
		logging.Warn("Wiring", "Server certificates are not verified")
	}

	opts := []suite.Option{
		suite.WithTransport(client),
		suite.WithCatalogueStore(store),
		suite.WithCredentials(creds),
		suite.WithLogger(engine.NewSubsystemLogger("Engine")),
	}
	if !cfg.GitHub.Disabled {
		opts = append(opts, suite.WithTags(githubtags.New(githubtags.Options{
			URLFormat: cfg.GitHub.TagsURL,
			Token:     cfg.GitHub.Token,
			CacheTTL:  cfg.GitHub.CacheTTL,
		})))
	}
	opts = append(opts, extra...)

	return &validatorDeps{
		validator: suite.NewValidator(apis.Registry(), opts...),
		catalogue: store,
	}, nil
}
