package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/sydlexius/creditgraph/internal/config"
	"github.com/sydlexius/creditgraph/internal/logging"
	"github.com/sydlexius/creditgraph/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the catalogs creditgraph can query and whether they are enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		limiter := provider.NewRateLimiterMap(cfg.Providers.Intervals)
		reg := buildRegistry(cfg.Providers, limiter, logging.Discard())
		printProviders(cmd.OutOrStdout(), providerStatuses(cfg.Providers, reg, limiter))
		return nil
	},
}

type providerStatus struct {
	Name     provider.ProviderName
	Enabled  bool
	Reason   string
	Interval time.Duration
}

// providerStatuses reports every known provider in display order.
func providerStatuses(cfg config.ProvidersConfig, reg *provider.Registry, limiter *provider.RateLimiterMap) []providerStatus {
	registered := reg.Names()
	var out []providerStatus
	for _, name := range provider.AllProviderNames() {
		st := providerStatus{Name: name, Interval: limiter.Interval(name)}
		switch name {
		case provider.NameMusicBrainz:
			st.Enabled = reg.Catalog() != nil
		case provider.NameCoverArt:
			st.Enabled = len(reg.CoverSources()) > 0
		default:
			st.Enabled = slices.Contains(registered, name)
		}
		if !st.Enabled {
			st.Reason = disabledReason(cfg, name)
		}
		out = append(out, st)
	}
	return out
}

func disabledReason(cfg config.ProvidersConfig, name provider.ProviderName) string {
	var key string
	switch name {
	case provider.NameDiscogs:
		key = cfg.Discogs.APIKey
	case provider.NameLastFM:
		key = cfg.LastFM.APIKey
	case provider.NameFanartTV:
		key = cfg.FanartTV.APIKey
	default:
		return "not configured"
	}
	if key == "" {
		return "no API key"
	}
	return "not in image_order"
}

func printProviders(w io.Writer, list []providerStatus) {
	for _, st := range list {
		state := "enabled"
		if !st.Enabled {
			state = "disabled (" + st.Reason + ")"
		}
		fmt.Fprintf(w, "%-18s every %-6s %s\n", st.Name.DisplayName(), st.Interval, state)
	}
}
