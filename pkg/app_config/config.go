package app_config

import (
	"encoding/json"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
)

// ConfigEnvVar names the environment variable placementd reads to find a
// hot-reloadable GeneralConfig file. It is independent of the cobra/viper
// flags cmd/placementd parses at startup; this path only affects the
// handful of settings worth changing without a restart.
const ConfigEnvVar = "CB_PLACEMENTD_CONFIG_PATH"

// GeneralConfig holds the subset of placementd's configuration that can be
// hot-reloaded from disk without restarting the process.
type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
}

// RuntimeConfig bundles the live, possibly-reloading configuration state
// alongside the logger it currently governs.
type RuntimeConfig struct {
	Logger *zap.Logger
	Config *GeneralConfig

	ConfigWatcher *ConfigWatcher[GeneralConfig]
}

// LoadRuntimeConfig builds a RuntimeConfig from whatever is at configPath
// (if anything) and, when configPath is non-empty, starts watching it for
// writes. A LogLevel of "debug" (at load or on a later write) replaces
// rc.Logger with a debug-level logger; any other LogLevel leaves rc.Logger
// as it is, so a switch away from debug does not take effect live.
func LoadRuntimeConfig(configPath string, baseLogger *zap.Logger) *RuntimeConfig {
	rc := &RuntimeConfig{
		Logger: baseLogger,
		Config: &GeneralConfig{},
	}

	if configPath == "" {
		return rc
	}

	if err := readFileAndUnmarshal(configPath, rc.Config); err != nil {
		baseLogger.Warn("failed to parse config file, using defaults", zap.String("path", configPath), zap.Error(err))
	}
	if rc.Config.LogLevel != "" {
		rc.Logger = deriveLogger(baseLogger, rc.Config.LogLevel)
	}

	rc.ConfigWatcher = NewConfigWatcher[GeneralConfig](configPath)
	if rc.ConfigWatcher != nil {
		watchForLogLevelChanges(rc)
	}

	return rc
}

func readFileAndUnmarshal[T any](path string, target *T) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, target)
}

func deriveLogger(base *zap.Logger, logLevel string) *zap.Logger {
	if !strings.EqualFold("debug", logLevel) {
		return base
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	logger, err := cfg.Build()
	if err != nil {
		log.Printf("failed to initialize debug logger: %s", err)
		return base
	}
	return logger
}

func watchForLogLevelChanges(rc *RuntimeConfig) {
	ch := make(chan GeneralConfig)
	unsub := rc.ConfigWatcher.Subscribe(ch)
	go func() {
		defer unsub()
		for c := range ch {
			rc.Logger.Info("configuration change detected, updating")
			rc.Config = &c
			if c.LogLevel != "" {
				rc.Logger = deriveLogger(rc.Logger, c.LogLevel)
			}
		}
	}()
}
