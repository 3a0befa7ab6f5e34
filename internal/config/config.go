package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Logger     LoggerConfig
	Runner     RunnerConfig
	Scheduler  SchedulerConfig
	Kubernetes KubernetesConfig
	Coverage   CoverageConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type LoggerConfig struct {
	Level  string
	Format string
}

type RunnerConfig struct {
	// Executor selects how steps run: "local" or "kubernetes".
	Executor     string
	Workers      int
	PollInterval time.Duration
	StepTimeout  time.Duration
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

type KubernetesConfig struct {
	Enabled        bool
	InCluster      bool
	KubeConfigPath string
	Namespace      string
	// DefaultImage is used when a job's runs-on label has no image mapping.
	DefaultImage string
	Images       map[string]string
	PollInterval time.Duration
}

type CoverageConfig struct {
	Enabled bool
	URL     string
	Token   string
	Timeout time.Duration
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "forgeci")
	v.SetDefault("DB_PASSWORD", "forgeci")
	v.SetDefault("DB_NAME", "forgeci")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")
	v.SetDefault("RUNNER_EXECUTOR", "local")
	v.SetDefault("RUNNER_WORKERS", 2)
	v.SetDefault("RUNNER_POLL_INTERVAL", "2s")
	v.SetDefault("RUNNER_STEP_TIMEOUT", "30m")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_INTERVAL", "1m")
	v.SetDefault("K8S_ENABLED", false)
	v.SetDefault("K8S_IN_CLUSTER", false)
	v.SetDefault("K8S_KUBECONFIG", "")
	v.SetDefault("K8S_NAMESPACE", "forgeci-jobs")
	v.SetDefault("K8S_DEFAULT_IMAGE", "ubuntu:22.04")
	v.SetDefault("K8S_POLL_INTERVAL", "2s")
	v.SetDefault("COVERAGE_ENABLED", false)
	v.SetDefault("COVERAGE_URL", "")
	v.SetDefault("COVERAGE_TOKEN", "")
	v.SetDefault("COVERAGE_TIMEOUT", "30s")

	// Env
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: duration(v, "DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Runner: RunnerConfig{
			Executor:     v.GetString("RUNNER_EXECUTOR"),
			Workers:      v.GetInt("RUNNER_WORKERS"),
			PollInterval: duration(v, "RUNNER_POLL_INTERVAL", 2*time.Second),
			StepTimeout:  duration(v, "RUNNER_STEP_TIMEOUT", 30*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("SCHEDULER_ENABLED"),
			Interval: duration(v, "SCHEDULER_INTERVAL", time.Minute),
		},
		Kubernetes: KubernetesConfig{
			Enabled:        v.GetBool("K8S_ENABLED"),
			InCluster:      v.GetBool("K8S_IN_CLUSTER"),
			KubeConfigPath: v.GetString("K8S_KUBECONFIG"),
			Namespace:      v.GetString("K8S_NAMESPACE"),
			DefaultImage:   v.GetString("K8S_DEFAULT_IMAGE"),
			Images:         v.GetStringMapString("K8S_IMAGES"),
			PollInterval:   duration(v, "K8S_POLL_INTERVAL", 2*time.Second),
		},
		Coverage: CoverageConfig{
			Enabled: v.GetBool("COVERAGE_ENABLED"),
			URL:     v.GetString("COVERAGE_URL"),
			Token:   v.GetString("COVERAGE_TOKEN"),
			Timeout: duration(v, "COVERAGE_TIMEOUT", 30*time.Second),
		},
	}

	return cfg, nil
}

func duration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}
