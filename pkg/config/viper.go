package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Source selects where configuration is read from.
type Source struct {
	// Dir is the directory containing the config file.
	Dir string
	// Name is the config file name without extension.
	Name string
	// File, when set, is an explicit config file path and wins over Dir/Name.
	File string
	// EnvPrefix namespaces automatic environment lookups (ROOMBOT_DISCORD_TOKEN).
	EnvPrefix string
}

// Load reads configuration from a YAML file and environment variables.
// A missing config file is not an error; defaults and env vars still apply.
func Load(src Source) (*viper.Viper, error) {
	v := viper.New()

	if src.File != "" {
		v.SetConfigFile(src.File)
	} else {
		v.SetConfigName(src.Name)
		v.SetConfigType("yaml")
		if src.Dir != "" {
			v.AddConfigPath(src.Dir)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if src.EnvPrefix != "" {
		v.SetEnvPrefix(src.EnvPrefix)
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

// BindEnvs binds each viper key to an explicit environment variable name.
func BindEnvs(v *viper.Viper, bindings map[string]string) error {
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}
	return nil
}
