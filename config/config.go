package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/indieinfra/plaza/asset"
)

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("abspath", ValidateAbsPath)
	validate.RegisterValidation("identifier", ValidateIdentifier)
	validate.RegisterValidation("mimeprefix", ValidateMimePrefix)

	if err := validate.Struct(c); err != nil {
		return err
	}

	return nil
}

func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("plaza")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.limits.max_file_size", 64<<20)
	v.SetDefault("server.limits.max_multipart_mem", 32<<20)
	v.SetDefault("media.namespace", "app")
	v.SetDefault("media.default_profile_pic", "/images/default-profile.png")

	if err := v.ReadInConfig(); err != nil {
		log.Println("read in fail")
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Println("unmarshal fail")
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		log.Println("validate fail")
		return nil, err
	}

	return &cfg, nil
}

// BuildPolicies merges the configured overrides over the built-in policies.
// The result is never modified after start-up.
func (m *Media) BuildPolicies() (asset.Policies, error) {
	policies := asset.DefaultPolicies()

	for name, override := range m.Policies {
		class := asset.Class(name)
		base, ok := policies[class]
		if !ok {
			return nil, fmt.Errorf("unknown asset class %q in media policies", name)
		}

		if override.MaxBytes > 0 {
			base.MaxBytes = override.MaxBytes
		}

		if len(override.AllowedMimePrefixes) > 0 {
			prefixes := make([]string, 0, len(override.AllowedMimePrefixes))
			for _, p := range override.AllowedMimePrefixes {
				prefixes = append(prefixes, strings.ToLower(strings.TrimSpace(p)))
			}
			base.AllowedMimePrefixes = prefixes
		}

		policies[class] = base
	}

	return policies, nil
}
