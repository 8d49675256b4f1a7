// Package config provides configuration loading for the msgcrypt CLI.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	messagecrypto "github.com/Cainuriel/message-crypto"
	"github.com/Cainuriel/message-crypto/ecies"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds all configuration for the CLI.
type Config struct {
	OpenBao OpenBaoConfig `mapstructure:"openbao"`
	Log     LogConfig     `mapstructure:"log"`
	Crypto  CryptoConfig  `mapstructure:"crypto"`
	Output  string        `mapstructure:"output"` // text, json, yaml
}

// OpenBaoConfig holds OpenBao configuration.
type OpenBaoConfig struct {
	Address       string        `mapstructure:"address"`
	Token         string        `mapstructure:"token"`
	Namespace     string        `mapstructure:"namespace"`
	MountPath     string        `mapstructure:"mount_path"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SkipTLSVerify bool          `mapstructure:"skip_tls_verify"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text, json
}

// CryptoConfig holds settings for local encryption.
type CryptoConfig struct {
	DefaultVersion string `mapstructure:"default_version"`
	MaxMessageSize int    `mapstructure:"max_message_size"`
}

// ClientConfig returns the SDK client configuration.
func (c OpenBaoConfig) ClientConfig() messagecrypto.Config {
	return messagecrypto.Config{
		BaoAddr:       c.Address,
		BaoToken:      c.Token,
		BaoNamespace:  c.Namespace,
		MountPath:     c.MountPath,
		HTTPTimeout:   c.Timeout,
		SkipTLSVerify: c.SkipTLSVerify,
	}
}

// SlogLevel parses the configured level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.Level)
	}
	return level, nil
}

// Validate checks values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("invalid output format %q", c.Output)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Crypto.MaxMessageSize <= 0 {
		return fmt.Errorf("crypto.max_message_size must be positive")
	}
	if c.OpenBao.Timeout < 0 {
		return fmt.Errorf("openbao.timeout must not be negative")
	}
	return nil
}

// Load reads configuration from files and environment variables. An
// explicit configFile must exist; otherwise msgcrypt.yaml is looked up in
// the working directory, $HOME/.msgcrypt and /etc/msgcrypt.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("msgcrypt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.msgcrypt")
		v.AddConfigPath("/etc/msgcrypt")
	}

	v.SetEnvPrefix("MSGCRYPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The standard OpenBao variables are honoured after the prefixed ones.
	_ = v.BindEnv("openbao.address", "MSGCRYPT_OPENBAO_ADDRESS", "BAO_ADDR")
	_ = v.BindEnv("openbao.token", "MSGCRYPT_OPENBAO_TOKEN", "BAO_TOKEN")
	_ = v.BindEnv("openbao.namespace", "MSGCRYPT_OPENBAO_NAMESPACE", "BAO_NAMESPACE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// OpenBao defaults
	v.SetDefault("openbao.address", "http://localhost:8200")
	v.SetDefault("openbao.token", "")
	v.SetDefault("openbao.namespace", "")
	v.SetDefault("openbao.mount_path", messagecrypto.DefaultMountPath)
	v.SetDefault("openbao.timeout", messagecrypto.DefaultHTTPTimeout.String())
	v.SetDefault("openbao.skip_tls_verify", false)

	// Logging defaults
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	// Crypto defaults
	v.SetDefault("crypto.default_version", ecies.VersionSecp256k1)
	v.SetDefault("crypto.max_message_size", messagecrypto.MaxMessageSize)

	v.SetDefault("output", OutputText)
}
