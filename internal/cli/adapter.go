package cli

import (
	"context"
	"fmt"

	"sovdscope/internal/config"
	"sovdscope/internal/profiles"
	"sovdscope/internal/sovd"
)

// ServeFunc runs the console server; injected so the CLI layer stays free of
// the full server wiring.
type ServeFunc func(ctx context.Context, cfg *config.Config) error

// NewManagerAdapter builds the default Manager over the configuration.
func NewManagerAdapter(cfg *config.Config, serve ServeFunc) Manager {
	return &managerAdapter{cfg: cfg, serve: serve}
}

type managerAdapter struct {
	cfg   *config.Config
	serve ServeFunc
}

func (m *managerAdapter) Serve(ctx context.Context) error {
	return m.serve(ctx, m.cfg)
}

func (m *managerAdapter) Check(ctx context.Context, rawURL, basePath string) (CheckResult, error) {
	client, err := sovd.NewClient(rawURL, basePath)
	if err != nil {
		return CheckResult{}, err
	}

	if err := client.Health(ctx); err != nil {
		if sovd.IsTimeout(err) {
			return CheckResult{}, fmt.Errorf("server unreachable: %w", err)
		}
		return CheckResult{}, err
	}

	result := CheckResult{Healthy: true}
	if info, err := client.VersionInfo(ctx); err == nil {
		result.Name = info.Name
		result.Version = info.Version
		result.RosDistro = info.RosDistro
	}
	if caps, err := client.Capabilities(ctx); err == nil {
		result.Capabilities = caps.Capabilities
		if result.Name == "" {
			result.Name = caps.Name
		}
	}
	return result, nil
}

func (m *managerAdapter) ProfileList(_ context.Context) ([]Profile, error) {
	list, err := profiles.Load(m.cfg.ProfilesPath)
	if err != nil {
		return nil, err
	}

	out := make([]Profile, 0, len(list))
	for _, p := range list {
		out = append(out, Profile{Name: p.Name, URL: p.URL, BasePath: p.BasePath})
	}
	return out, nil
}
