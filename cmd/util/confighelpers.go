// Copyright 2021-2022, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE

package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

// BeginCommonParse parses the command line flags into a koanf instance
// and layers in any configuration file, JSON string, or prefixed
// environment variables the conf options name.
func BeginCommonParse(f *flag.FlagSet, args []string) (*koanf.Koanf, error) {
	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			return nil, errors.New("version requested")
		}
		if arg == "--help" || arg == "-h" {
			f.Usage()
			return nil, errors.New("help requested")
		}
	}

	if err := f.Parse(args); err != nil {
		return nil, err
	}
	if f.NArg() != 0 {
		return nil, fmt.Errorf("unexpected argument: %s", f.Arg(0))
	}

	k := koanf.New(".")
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, errors.Wrap(err, "error loading command line flags")
	}
	if err := applyOverrides(f, k); err != nil {
		return nil, err
	}
	return k, nil
}

func applyOverrides(f *flag.FlagSet, k *koanf.Koanf) error {
	// Config file overrides flag defaults but explicit flags win, so
	// load the file first and then re-apply the flags that were set.
	if configFile := k.String("conf.file"); configFile != "" {
		if err := k.Load(file.Provider(configFile), json.Parser()); err != nil {
			return errors.Wrap(err, "error loading config file")
		}
	}
	if configString := k.String("conf.string"); configString != "" {
		if err := k.Load(rawbytes.Provider([]byte(configString)), json.Parser()); err != nil {
			return errors.Wrap(err, "error loading config string")
		}
	}
	if envPrefix := k.String("conf.env-prefix"); envPrefix != "" {
		if err := k.Load(env.Provider(envPrefix+"_", ".", func(s string) string {
			// FOO_BAR_A_B maps to a.b, underscores in key names are
			// not supported
			return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix+"_")), "_", ".")
		}), nil); err != nil {
			return errors.Wrap(err, "error loading environment variables")
		}
	}
	return k.Load(posflag.ProviderWithFlag(f, ".", k, func(pf *flag.Flag) (string, interface{}) {
		if !pf.Changed {
			return "", nil
		}
		return pf.Name, posflag.FlagVal(f, pf)
	}), nil)
}

// EndCommonParse decodes the loaded configuration into the given
// struct. Unknown keys are rejected so typos don't silently become
// defaults.
func EndCommonParse(k *koanf.Koanf, config interface{}) error {
	decoderConfig := mapstructure.DecoderConfig{
		ErrorUnused: true,

		// Default values
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Metadata:         nil,
		Result:           config,
		WeaklyTypedInput: true,
	}
	err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{DecoderConfig: &decoderConfig})
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	return nil
}

// DumpConfig prints the currently active configuration as JSON and
// exits, for use with conf.dump.
func DumpConfig(k *koanf.Koanf) error {
	c, err := k.Marshal(json.Parser())
	if err != nil {
		return errors.Wrap(err, "unable to marshal config to JSON")
	}
	fmt.Println(string(c))
	os.Exit(0)
	return nil
}
