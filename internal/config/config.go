// Package config loads the coordinator's and the worker's YAML
// configuration and secrets files via spf13/viper, generalized to the split
// config-path/secrets-path pair the two binaries both take.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LogConfig is level and output, nothing more — metrics are out of scope,
// logging is not.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// SetupDataCacheConfig selects between the two modes setupcache.Cache exposes.
type SetupDataCacheConfig struct {
	Mode         string `mapstructure:"mode"` // "memory" or "disk"
	ArtifactsDir string `mapstructure:"artifactsDir"`
}

// DatabaseConfig names the durable queue/archival database.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // only "sqlite" is implemented
	DSN    string `mapstructure:"dsn"`
}

// BucketConfig describes one S3-compatible bucket.
type BucketConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	PathStyle bool   `mapstructure:"pathStyle"`
}

// BlobStoreConfig names the private and public blob-store buckets.
type BlobStoreConfig struct {
	Private BucketConfig `mapstructure:"private"`
	Public  BucketConfig `mapstructure:"public"`
}

// CoordinatorConfig is the full shape of coordinator.yml + secrets.yml
// merged together.
type CoordinatorConfig struct {
	Log                LogConfig            `mapstructure:"log"`
	ListenAddr         string               `mapstructure:"listenAddr"`
	ProtocolVersion    uint32               `mapstructure:"protocolVersion"`
	SpecializedGroupID uint32               `mapstructure:"specializedGroupID"`
	SetupDataCache     SetupDataCacheConfig `mapstructure:"setupDataCache"`
	Database           DatabaseConfig       `mapstructure:"database"`
	BlobStore          BlobStoreConfig      `mapstructure:"blobStore"`
	SavePublicProofs   bool                 `mapstructure:"savePublicProofs"`
	AuditFile          string               `mapstructure:"auditFile"`
}

// WorkerConfig is the full shape of a worker's config.yml + secrets.yml.
type WorkerConfig struct {
	Log                LogConfig            `mapstructure:"log"`
	ServerURL          string               `mapstructure:"serverURL"`
	Username           string               `mapstructure:"username"`
	CircuitFilter      string               `mapstructure:"circuitIdsRounds"`
	SpecializedGroupID uint32               `mapstructure:"specializedGroupID"`
	SetupDataCache     SetupDataCacheConfig `mapstructure:"setupDataCache"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("listenAddr", "0.0.0.0:3030")
	v.SetDefault("protocolVersion", 1)
	v.SetDefault("setupDataCache.mode", "memory")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("savePublicProofs", true)
	v.SetDefault("auditFile", "verified_provers.txt")
	v.SetDefault("username", "anonymous")
	v.SetDefault("circuitIdsRounds", "(1,0)")
}

// load reads configPath and, if secretsPath is non-empty, merges
// secretsPath on top of it — secrets override config, never the reverse —
// into dst via mapstructure.
func load(configPath, secretsPath string, dst any) error {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", configPath, err)
	}

	if secretsPath != "" {
		secrets := viper.New()
		secrets.SetConfigFile(secretsPath)
		secrets.SetConfigType("yaml")
		if err := secrets.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read secrets %s: %w", secretsPath, err)
		}
		for _, key := range secrets.AllKeys() {
			v.Set(key, secrets.Get(key))
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.Unmarshal(dst); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	return nil
}

// LoadCoordinator loads and merges coordinator.yml and its secrets file.
func LoadCoordinator(configPath, secretsPath string) (*CoordinatorConfig, error) {
	cfg := &CoordinatorConfig{}
	if err := load(configPath, secretsPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker loads and merges a worker's config.yml and its secrets file.
func LoadWorker(configPath, secretsPath string) (*WorkerConfig, error) {
	cfg := &WorkerConfig{}
	if err := load(configPath, secretsPath, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
