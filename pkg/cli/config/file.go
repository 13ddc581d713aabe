package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// ConfigFlag is the flag naming an optional TOML configuration file
func ConfigFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML file with flag values, e.g. log-level = \"debug\" or [github] owner = \"acme\"",
		Sources: cli.EnvVars("TIDEPOOL_CONFIG"),
	}
}

// LoadFile reads a TOML file into flag values. Tables are flattened with
// "-", so [github] owner becomes github-owner.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file",
			goerr.T(types.ErrTagMisconfigured),
			goerr.V("path", path),
		)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file",
			goerr.T(types.ErrTagMisconfigured),
			goerr.V("path", path),
		)
	}

	values := map[string]any{}
	flatten("", raw, values)
	return values, nil
}

func flatten(prefix string, raw map[string]any, out map[string]any) {
	for key, value := range raw {
		name := key
		if prefix != "" {
			name = prefix + "-" + key
		}
		if table, ok := value.(map[string]any); ok {
			flatten(name, table, out)
			continue
		}
		out[name] = value
	}
}

// ApplyFile sets flags of cmd that were given neither on the command line nor
// by environment from the file named by --config. Keys matching no flag are
// ignored, so one file can serve every command.
func ApplyFile(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}

	values, err := LoadFile(path)
	if err != nil {
		return err
	}

	return applyValues(cmd, values)
}

func applyValues(cmd *cli.Command, values map[string]any) error {
	names := make([]string, 0, len(cmd.Flags))
	for _, flag := range cmd.Flags {
		if fn := flag.Names(); len(fn) > 0 {
			names = append(names, fn[0])
		}
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := values[name]
		if !ok || cmd.IsSet(name) {
			continue
		}

		items, isList := value.([]any)
		if !isList {
			items = []any{value}
		}
		for _, item := range items {
			if err := cmd.Set(name, fmt.Sprint(item)); err != nil {
				return goerr.Wrap(err, "invalid value in config file",
					goerr.T(types.ErrTagMisconfigured),
					goerr.V("flag", name),
				)
			}
		}
	}

	return nil
}
