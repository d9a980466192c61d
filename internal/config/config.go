// Package config loads engine host configuration via viper: the host's
// lifecycle options, the trader/strategy identity tags, and the
// logging/server options an enginehost process needs to stand the
// engine up.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/atlas-desktop/strategy-engine/internal/engine"
	"github.com/atlas-desktop/strategy-engine/pkg/types"
)

// Defaults are the baseline configuration, overridable via ENGINE_*
// environment variables or a config file.
var Defaults = map[string]any{
	"trader":                    "TRADER-001",
	"strategy":                  "STRATEGY-001",
	"flatten_on_sl_reject":      true,
	"flatten_on_stop":           true,
	"cancel_all_orders_on_stop": true,
	"bar_capacity":              1000,
	"log_level":                 "info",
	"http.host":                 "localhost",
	"http.port":                 8080,
}

// Load builds a viper instance seeded with Defaults, optionally
// overridden by a config file at path (if non-empty) and by ENGINE_*
// environment variables, and returns the resulting *viper.Viper for
// further lookups (http.host, http.port, log_level) alongside the
// derived engine.Config.
func Load(path string) (*viper.Viper, engine.Config, error) {
	v := viper.New()
	for key, val := range Defaults {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, engine.Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	capacity := v.GetInt("bar_capacity")
	if capacity <= 0 {
		return nil, engine.Config{}, fmt.Errorf("bar_capacity must be positive, got %d", capacity)
	}

	cfg := engine.Config{
		Trader:                types.TraderID(v.GetString("trader")),
		Strategy:              types.StrategyID(v.GetString("strategy")),
		FlattenOnSLReject:     v.GetBool("flatten_on_sl_reject"),
		FlattenOnStop:         v.GetBool("flatten_on_stop"),
		CancelAllOrdersOnStop: v.GetBool("cancel_all_orders_on_stop"),
		BarCapacity:           capacity,
	}

	return v, cfg, nil
}
