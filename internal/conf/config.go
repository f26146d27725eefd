// config.go: settings for the NeuroKit epoch toolkit. Defines the settings
// struct and functions to load and save settings.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig contains settings for a rotating log file.
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for RotationSize
}

// MainSettings contains toolkit-wide settings.
type MainSettings struct {
	Name string    // name of this node, can be used to identify this instance
	Log  LogConfig // main log settings
}

// EpochSettings contains defaults for epoch construction and rejection.
type EpochSettings struct {
	TMin               float64 // default epoch start offset in seconds
	TMax               float64 // default epoch end offset in seconds
	Decim              int     // default decimation factor
	Workers            int     // worker pool size, 0 = number of CPUs
	RejectByAnnotation bool    // consult bad-tagged annotations during rejection
}

// ContainerSettings contains defaults for the chunked epoch container.
type ContainerSettings struct {
	MaxFileSize int64  // per-file byte budget, 0 = no splitting
	SplitNaming string // "legacy" or "structured"
	MaxSplits   int    // refuse writes planning more chunk files than this
	Overwrite   bool   // allow destination overwrite
}

// MetadataSettings controls the optional per-epoch metadata backend.
type MetadataSettings struct {
	Backend string // "sqlite" for full expression queries, "simple" for equality/membership only
}

// ObservabilitySettings controls the Prometheus metrics endpoint.
type ObservabilitySettings struct {
	Enabled bool   // true to expose metrics
	Listen  string // listen address, e.g. "localhost:9090"
}

// Settings is the root configuration struct.
type Settings struct {
	Debug bool // true to enable debug level logging

	Main          MainSettings
	Epochs        EpochSettings
	Container     ContainerSettings
	Metadata      MetadataSettings
	Observability ObservabilitySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config file with default values to the first
// default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	settings := &Settings{}
	setDefaultConfig()
	if err := viper.Unmarshal(settings); err != nil {
		return fmt.Errorf("error unmarshaling defaults: %w", err)
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.WriteFile(configPath, out, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	if _, err := Load(); err != nil {
		// Fall back to in-memory defaults so library use works without a
		// config file on disk.
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		if settingsInstance == nil {
			settingsInstance = defaultSettings()
		}
		return settingsInstance
	}

	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SetTestSettings replaces the settings instance. Intended for tests.
func SetTestSettings(s *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settingsInstance = s
}

// GetDefaultConfigPaths returns the platform specific config search paths.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error getting user home directory: %w", err)
	}

	return []string{
		filepath.Join(homeDir, ".config", "neurokit"),
		".",
	}, nil
}
