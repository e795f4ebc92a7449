package config

import (
	"os"
	"strings"

	"github.com/arthur-debert/tapkit/pkg/errors"
	"github.com/arthur-debert/tapkit/pkg/logging"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override config keys
const EnvPrefix = "TAPKIT_"

// Options selects the sources layered on top of the embedded defaults
type Options struct {
	// ConfigFile is the user config path. When Explicit is false a missing
	// file is ignored.
	ConfigFile string
	Explicit   bool

	// Overrides are applied last, keyed by dotted config key
	// (for example "install.prefix"). Used for command-line flags.
	Overrides map[string]interface{}
}

// Load resolves the configuration: embedded defaults, then the user config
// file, then TAPKIT_* environment variables, then explicit overrides.
func Load(opts Options) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. User config file
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err == nil {
			if err := k.Load(file.Provider(opts.ConfigFile), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", opts.ConfigFile).
					WithDetail("path", opts.ConfigFile)
			}
			logger.Debug().Str("path", opts.ConfigFile).Msg("Loaded user config")
		} else if opts.Explicit {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not readable", opts.ConfigFile).
				WithDetail("path", opts.ConfigFile)
		}
	}

	// 3. Environment: TAPKIT_INSTALL_KEEP_WORKSPACE -> install.keep_workspace
	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	// 4. Flag overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps the section separator only, so keys containing
// underscores survive.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func validate(cfg *Config) error {
	if cfg.Install.Timeout < 0 {
		return errors.Newf(errors.ErrConfigParse, "install.timeout must not be negative, got %s", cfg.Install.Timeout)
	}
	if cfg.Verify.Timeout < 0 {
		return errors.Newf(errors.ErrConfigParse, "verify.timeout must not be negative, got %s", cfg.Verify.Timeout)
	}
	return nil
}
