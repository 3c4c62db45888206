package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/osse101/FieldSync_Go/internal/syncclient"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	tokenFileName  = "token"
	deviceFileName = "device-id"
	envPrefix      = "FIELDAGENT"

	cfgKeyDBPath     = "db_path"
	cfgKeyServerURL  = "server_url"
	cfgKeyUsername   = "username"
	cfgKeyBatchSize  = "batch_size"
	cfgKeyTimeout    = "timeout"
	cfgKeyMaxRetries = "max_retries"
	cfgKeyBackoffMin = "backoff_min"
	cfgKeyBackoffMax = "backoff_max"
	cfgKeyLogLevel   = "log_level"

	defaultDBFile    = "fieldagent.db"
	defaultServerURL = "http://localhost:8080"
	defaultLogLevel  = "warn"

	configDirPermission  = 0o700
	secretFilePermission = 0o600
)

const defaultConfigYAML = `# Field agent configuration

# Local database file (relative paths resolve against this directory)
# db_path: fieldagent.db

server_url: http://localhost:8080

# Sync tuning
# batch_size: 100
# timeout: 30s
# max_retries: 5
# backoff_min: 1s
# backoff_max: 60s
`

// agentConfig is the resolved CLI configuration
type agentConfig struct {
	Dir       string
	DBPath    string
	ServerURL string
	Username  string
	LogLevel  string
	Sync      syncclient.Config
}

// defaultConfigDir returns ~/.fieldagent, or .fieldagent when there is no home
func defaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fieldagent"
	}
	return filepath.Join(home, ".fieldagent")
}

// loadConfig reads config.yaml from dir, writing a default one on first run.
// FIELDAGENT_* environment variables override file values.
func loadConfig(dir string) (*agentConfig, error) {
	if dir == "" {
		dir = defaultConfigDir()
	}
	if err := os.MkdirAll(dir, configDirPermission); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(dir); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDBPath, defaultDBFile)
	v.SetDefault(cfgKeyServerURL, defaultServerURL)
	v.SetDefault(cfgKeyBatchSize, syncclient.DefaultBatchSize)
	v.SetDefault(cfgKeyTimeout, syncclient.DefaultRequestTimeout)
	v.SetDefault(cfgKeyMaxRetries, syncclient.DefaultMaxRetries)
	v.SetDefault(cfgKeyBackoffMin, syncclient.DefaultBackoffMin)
	v.SetDefault(cfgKeyBackoffMax, syncclient.DefaultBackoffMax)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	dbPath := v.GetString(cfgKeyDBPath)
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dir, dbPath)
	}

	maxRetries := v.GetInt(cfgKeyMaxRetries)
	if maxRetries < 0 {
		return nil, fmt.Errorf("%s must not be negative", cfgKeyMaxRetries)
	}

	return &agentConfig{
		Dir:       dir,
		DBPath:    dbPath,
		ServerURL: strings.TrimRight(v.GetString(cfgKeyServerURL), "/"),
		Username:  v.GetString(cfgKeyUsername),
		LogLevel:  v.GetString(cfgKeyLogLevel),
		Sync: syncclient.Config{
			BaseURL:        v.GetString(cfgKeyServerURL),
			BatchSize:      v.GetInt(cfgKeyBatchSize),
			RequestTimeout: v.GetDuration(cfgKeyTimeout),
			MaxRetries:     uint64(maxRetries),
			BackoffMin:     v.GetDuration(cfgKeyBackoffMin),
			BackoffMax:     v.GetDuration(cfgKeyBackoffMax),
		},
	}, nil
}

func ensureDefaultConfigFile(dir string) error {
	path := filepath.Join(dir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), secretFilePermission)
}

// saveToken stores the bearer token next to the config
func saveToken(dir, token string) error {
	return os.WriteFile(filepath.Join(dir, tokenFileName), []byte(token), secretFilePermission)
}

// loadToken returns the saved token, or "" if there is none
func loadToken(dir string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, tokenFileName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// loadDeviceID returns this install's id, creating it on first use. It
// survives logout and lives as long as the config directory.
func loadDeviceID(dir string) (string, error) {
	path := filepath.Join(dir, deviceFileName)
	b, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), secretFilePermission); err != nil {
		return "", err
	}
	return id, nil
}
