// Package config loads the daemon's InstanceConfig: flags override
// environment, environment overrides a YAML file, the file overrides
// built-in defaults.
package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// InstanceConfig holds everything the daemon needs to run one server
// root beyond the pack blob itself.
type InstanceConfig struct {
	ServerRoot string `mapstructure:"server_root"`
	RuntimeDir string `mapstructure:"runtime_dir"`
	LogLevel   string `mapstructure:"log_level"`

	Launch LaunchConfig `mapstructure:"launch"`
	Backup BackupConfig `mapstructure:"backup"`
	RCON   RCONConfig   `mapstructure:"rcon"`
	Loader LoaderConfig `mapstructure:"loader"`
}

// LaunchConfig configures the JVM the server child runs under.
type LaunchConfig struct {
	MemoryMB          int      `mapstructure:"memory_mb"`
	JVMArgs           []string `mapstructure:"jvm_args"`
	JavaBin           string   `mapstructure:"java_bin"`
	JavaHome          string   `mapstructure:"java_home"`
	JavaMajorOverride int      `mapstructure:"java_major_override"`
	LoaderVersion     string   `mapstructure:"loader_version"`
	GraceMs           int64    `mapstructure:"grace_ms"`
}

// BackupConfig configures retention for the backup engine.
type BackupConfig struct {
	KeepWorldBackups   int `mapstructure:"keep_world_backups"`
	KeepCurrentBackups int `mapstructure:"keep_current_backups"`
}

// RCONConfig holds the rcon section of the configuration. Address is
// decoded but no component reads it: RCON connections always go to
// 127.0.0.1 on the port the server's own server.properties declares.
type RCONConfig struct {
	Address string `mapstructure:"address"`
}

// LoaderConfig points at the operator-maintained table of loader
// artifact URLs/hashes that internal/loader.Install draws from.
type LoaderConfig struct {
	RegistryFile string `mapstructure:"registry_file"`
}

// Grace returns GraceMs as a time.Duration, or fallback if unset.
func (l LaunchConfig) Grace(fallback time.Duration) time.Duration {
	if l.GraceMs <= 0 {
		return fallback
	}
	return time.Duration(l.GraceMs) * time.Millisecond
}

// Load reads InstanceConfig from flags, ATLAS_-prefixed environment
// variables, an optional YAML file, and built-in defaults, in that
// precedence order.
func Load(flags *pflag.FlagSet, configFile string) (*InstanceConfig, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("runnerd")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/atlas")
	}

	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg InstanceConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("launch.memory_mb", 2048)
	v.SetDefault("launch.grace_ms", 30000)
	v.SetDefault("launch.java_home", "/var/lib/atlas-runner/java")

	v.SetDefault("backup.keep_world_backups", 10)
	v.SetDefault("backup.keep_current_backups", 5)
}
