package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/ganki/internal/paths"
	"github.com/mesh-intelligence/ganki/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "GANKI"

	cfgKeyDataDir        = "data_dir"
	cfgKeyLogLevel       = "log_level"
	cfgKeyLogFormat      = "log_format"
	cfgKeyDefaultPackage = "default_package"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# ganki configuration

# Data directory (optional; --data-dir overrides it, GANKI_DATA_DIR is used when unset)
# data_dir:

# debug, info, warn or error
log_level: info

# console or json
log_format: console

# File stem of the package written by "ganki export apkg"
default_package: multideck
`

// loadConfig reads config.yaml from the resolved config directory, creating
// the directory and a default file on first run. GANKI_LOG_LEVEL,
// GANKI_LOG_FORMAT and GANKI_DEFAULT_PACKAGE override the file; --log-level
// overrides both.
func loadConfig(f rootFlags) (*viper.Viper, types.Config, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return nil, types.Config{}, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, types.Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, types.DefaultLogFormat)
	v.SetDefault(cfgKeyDefaultPackage, types.DefaultPackageName)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	// data_dir is left out: its env variable ranks below the config file.
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyLogLevel, cfgKeyLogFormat, cfgKeyDefaultPackage} {
		if err := v.BindEnv(key); err != nil {
			return nil, types.Config{}, err
		}
	}
	if f.logLevel != "" {
		v.Set(cfgKeyLogLevel, f.logLevel)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, types.Config{}, fmt.Errorf("%w: read config: %v", types.ErrInvalidConfig, err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.Config{}, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}
	cfg.DataDir, err = paths.ResolveDataDir(f.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, types.Config{}, err
	}
	return v, cfg, nil
}

// ensureDefaultConfigFile creates configDir and a default config.yaml in it
// when the file does not exist.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
