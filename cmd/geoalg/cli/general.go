// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/geoalg/lib/config"
)

// GeneralOptions are the options accepted before the command word.
type GeneralOptions struct {
	Debug      bool
	ConfigFile string
	LogFormat  string
	Configs    []string
}

func (o *GeneralOptions) flagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("geoalg", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.BoolVar(&o.Debug, "debug", false, "log at debug level")
	flagSet.StringVar(&o.ConfigFile, "config-file", "", "configuration file (default: $GEOALG_CONFIG or ~/.config/geoalg/config.yaml)")
	flagSet.StringVar(&o.LogFormat, "log-format", "", "log format: auto, text or json")
	flagSet.StringArrayVar(&o.Configs, "config", nil, "configuration option as KEY=VALUE (repeatable)")
	return flagSet
}

// ParseGeneral splits the leading general options off args and parses
// them. The remaining tokens, starting at the first one that is not a
// general option, are returned unchanged: options such as --help and
// --version belong to the algorithm tree.
func ParseGeneral(args []string) (GeneralOptions, []string, error) {
	var options GeneralOptions
	flagSet := options.flagSet()

	end := 0
	for end < len(args) {
		token := args[end]
		name, _, hasValue := strings.Cut(strings.TrimPrefix(token, "--"), "=")
		if !strings.HasPrefix(token, "--") {
			break
		}
		flag := flagSet.Lookup(name)
		if flag == nil {
			break
		}
		end++
		if !hasValue && flag.Value.Type() != "bool" {
			if end == len(args) {
				return options, nil, fmt.Errorf("flag needs an argument: --%s", name)
			}
			end++
		}
	}

	if err := flagSet.Parse(args[:end]); err != nil {
		return options, nil, err
	}
	return options, args[end:], nil
}

// LoadConfig loads the configuration file selected by the options and
// layers the command-line overrides on top.
func (o GeneralOptions) LoadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.ConfigFile != "" {
		cfg, err = config.LoadFile(o.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.Debug {
		cfg.Log.Level = "debug"
	}
	for _, option := range o.Configs {
		key, value, ok := strings.Cut(option, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("--config %s: expected KEY=VALUE", option)
		}
		cfg.SetOption(key, value)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
