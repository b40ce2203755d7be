// Package config resolves watercolumn runtime settings from the process
// environment, an optional YAML file, and defaults, in that precedence
// order. A .env file in the working directory is folded into the
// environment first, so deployments can keep credentials out of the config
// file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory
// when no explicit --config path is given.
const DefaultFile = "watercolumn.yaml"

// Settings mirrors the WATERCOLUMN_* environment variables the source and
// blob factories read. Empty fields leave the factory defaults in force.
// AWS credentials are never part of Settings; the S3 backend uses the
// standard AWS_* chain.
type Settings struct {
	SourceDriver string `mapstructure:"source_driver" yaml:"source_driver"`
	SQLitePath   string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN  string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`

	BlobDriver      string `mapstructure:"blob_driver" yaml:"blob_driver"`
	BlobFSRoot      string `mapstructure:"blob_fs_root" yaml:"blob_fs_root"`
	BlobS3Bucket    string `mapstructure:"blob_s3_bucket" yaml:"blob_s3_bucket"`
	BlobS3Region    string `mapstructure:"blob_s3_region" yaml:"blob_s3_region"`
	BlobS3Endpoint  string `mapstructure:"blob_s3_endpoint" yaml:"blob_s3_endpoint"`
	BlobS3PathStyle bool   `mapstructure:"blob_s3_path_style" yaml:"blob_s3_path_style"`

	// ExportPrefix scopes artifact keys under an extra path segment. It is
	// consumed by the CLI directly, not exported to the factories; the
	// WATERCOLUMN_EXPORT_PREFIX variable still reaches it through Load.
	ExportPrefix string `mapstructure:"export_prefix" yaml:"export_prefix"`
}

// Default returns the documented defaults, the shape the init command writes
// as a starting scaffold.
func Default() *Settings {
	return &Settings{
		SourceDriver: "sqlite",
		SQLitePath:   "./watercolumn.db",
		BlobDriver:   "fs",
		BlobFSRoot:   "./artifactdata",
	}
}

// Load resolves settings. Precedence: environment > config file > zero
// values. When cfgFile is empty the default file is read from the working
// directory if present; an explicit cfgFile that cannot be read is an error.
func Load(cfgFile string) (*Settings, error) {
	_ = godotenv.Load() // ignore missing file

	v := viper.New()
	v.SetEnvPrefix("WATERCOLUMN")
	v.AutomaticEnv()

	// Every key needs a default registered for AutomaticEnv to reach
	// Unmarshal.
	for _, key := range []string{
		"source_driver", "sqlite_path", "postgres_dsn",
		"blob_driver", "blob_fs_root",
		"blob_s3_bucket", "blob_s3_region", "blob_s3_endpoint",
		"export_prefix",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("blob_s3_path_style", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("watercolumn")
		v.SetConfigType("yaml")
		_ = v.ReadInConfig() // optional
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &s, nil
}

// Export publishes the resolved settings as WATERCOLUMN_* environment
// variables for the source and blob factories. Empty fields are skipped so
// the factory defaults stay in force; variables that were already set kept
// their value through Load's precedence, so re-setting them is a no-op.
func (s *Settings) Export() {
	set := func(key, value string) {
		if value != "" {
			os.Setenv(key, value)
		}
	}
	set("WATERCOLUMN_SOURCE_DRIVER", s.SourceDriver)
	set("WATERCOLUMN_SQLITE_PATH", s.SQLitePath)
	set("WATERCOLUMN_POSTGRES_DSN", s.PostgresDSN)
	set("WATERCOLUMN_BLOB_DRIVER", s.BlobDriver)
	set("WATERCOLUMN_BLOB_FS_ROOT", s.BlobFSRoot)
	set("WATERCOLUMN_BLOB_S3_BUCKET", s.BlobS3Bucket)
	set("WATERCOLUMN_BLOB_S3_REGION", s.BlobS3Region)
	set("WATERCOLUMN_BLOB_S3_ENDPOINT", s.BlobS3Endpoint)
	if s.BlobS3PathStyle {
		os.Setenv("WATERCOLUMN_BLOB_S3_PATH_STYLE", "true")
	}
}

// Save writes the settings as YAML to path, creating parent directories as
// needed.
func Save(s *Settings, path string) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
