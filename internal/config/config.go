// Package config loads process configuration for nativemod hosts from a
// YAML file and NATIVEMOD_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix is the prefix of environment overrides, e.g. NATIVEMOD_LOG_LEVEL
// or NATIVEMOD_WASM_MAX_REQUEST_SIZE.
const EnvPrefix = "NATIVEMOD"

// Config is the host configuration.
type Config struct {
	LogLevel    string     `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Preload     []string   `mapstructure:"preload" validate:"dive,required"`
	PluginPaths []string   `mapstructure:"plugin_paths" validate:"dive,required"`
	Wasm        WasmConfig `mapstructure:"wasm"`
	LogCalls    bool       `mapstructure:"log_calls"`
}

// WasmConfig holds WebAssembly host configuration.
type WasmConfig struct {
	// Largest argument payload read from guest memory, in bytes.
	MaxRequestSize uint32 `mapstructure:"max_request_size" validate:"gt=0"`
	// Memory limit per guest (in pages, 64KB each). Zero keeps the runtime default.
	MemoryLimitPages uint32 `mapstructure:"memory_limit_pages" validate:"lte=65536"`
	// Abort guest calls when their context is done.
	CloseOnContextDone bool `mapstructure:"close_on_context_done"`
}

// Load reads configuration from configPath, if set, and the environment.
// Values not present in either keep their defaults.
func Load(configPath string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), configPath, nil)
}

// LoadFs is like Load but reads the file from fsys and lets flags override
// the file and the environment. A flag is bound to the key with the same
// name, dashes replaced by underscores, when such a key exists.
func LoadFs(fsys afero.Fs, configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := New()
	v.SetFs(fsys)

	if flags != nil {
		known := make(map[string]bool)
		for _, key := range v.AllKeys() {
			known[key] = true
		}
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if known[key] && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	}
	return FromViper(v)
}

// New returns a viper instance with defaults and environment binding in
// place.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_calls", false)
	v.SetDefault("preload", []string{})
	v.SetDefault("plugin_paths", []string{})

	// Wasm defaults
	v.SetDefault("wasm.max_request_size", 1<<20) // 1MB
	v.SetDefault("wasm.memory_limit_pages", 0)
	v.SetDefault("wasm.close_on_context_done", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks value constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level returns the zap level named by LogLevel.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// NewLogger builds a console logger writing to w at the configured level.
func (c *Config) NewLogger(w zapcore.WriteSyncer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, c.Level())
	return zap.New(core)
}
