// Package config загружает конфигурацию pipeline-monitor из YAML файла
// и переменных окружения PM_*. Переменные окружения имеют приоритет.
package config

import (
	"log/slog"
	"time"
)

// DefaultConfigPath — путь к файлу конфигурации, если PM_CONFIG не задан.
const DefaultConfigPath = "config.yaml"

// InputParams — параметры запуска, читаемые только из окружения.
type InputParams struct {
	// ConfigPath — путь к YAML файлу. Отсутствие файла не ошибка.
	ConfigPath string `env:"PM_CONFIG" env-default:"config.yaml"`
	// OutputFormat — формат вывода CLI команд (text, json).
	OutputFormat string `env:"PM_OUTPUT_FORMAT" env-default:"text"`
	// Command — команда по умолчанию, если не передана аргументом.
	Command string `env:"PM_COMMAND"`
}

// Config — полная конфигурация приложения.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Sampler  SamplerConfig  `yaml:"sampler"`
	Query    QueryConfig    `yaml:"query"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`

	// OutputFormat — формат вывода CLI команд.
	OutputFormat string `yaml:"-"`
	// Command — команда из PM_COMMAND.
	Command string `yaml:"-"`
	// Path — файл, из которого прочитана конфигурация; пусто, если файла нет.
	Path string `yaml:"-"`
	// Warnings — замечания загрузки: секции, заменённые значениями по умолчанию.
	Warnings []string `yaml:"-"`
}

// Default возвращает конфигурацию со значениями по умолчанию всех секций.
func Default() *Config {
	return &Config{
		Database:     getDefaultDatabaseConfig(),
		Server:       getDefaultServerConfig(),
		Sampler:      getDefaultSamplerConfig(),
		Query:        getDefaultQueryConfig(),
		Logging:      getDefaultLoggingConfig(),
		Metrics:      getDefaultMetricsConfig(),
		Tracing:      getDefaultTracingConfig(),
		OutputFormat: "text",
	}
}

// warn добавляет замечание и пишет его в лог загрузки.
func (c *Config) warn(l *slog.Logger, msg string, err error) {
	c.Warnings = append(c.Warnings, msg+": "+err.Error())
	l.Warn(msg, slog.String("error", err.Error()))
}

// ServerConfig — параметры HTTP сервера.
type ServerConfig struct {
	Host string `yaml:"host" env:"PM_SERVER_HOST" env-default:"0.0.0.0"`
	Port int    `yaml:"port" env:"PM_SERVER_PORT" env-default:"5000"`
	// Debug включает отладочный режим gin.
	Debug           bool          `yaml:"debug" env:"PM_SERVER_DEBUG"`
	ReadTimeout     time.Duration `yaml:"readTimeout" env:"PM_SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" env:"PM_SERVER_WRITE_TIMEOUT" env-default:"30s"`
	RequestTimeout  time.Duration `yaml:"requestTimeout" env:"PM_SERVER_REQUEST_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"PM_SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func getDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            5000,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// SamplerConfig — периодический сбор системных метрик в режиме serve.
type SamplerConfig struct {
	// Enabled по умолчанию true. env-default для bool не используется:
	// он перезаписал бы false из YAML.
	Enabled     bool          `yaml:"enabled" env:"PM_SAMPLER_ENABLED"`
	Schedule    string        `yaml:"schedule" env:"PM_SAMPLER_SCHEDULE" env-default:"@every 1m"`
	Timeout     time.Duration `yaml:"timeout" env:"PM_SAMPLER_TIMEOUT" env-default:"30s"`
	DiskPath    string        `yaml:"diskPath" env:"PM_SAMPLER_DISK_PATH" env-default:"/"`
	CPUInterval time.Duration `yaml:"cpuInterval" env:"PM_SAMPLER_CPU_INTERVAL" env-default:"1s"`
}

func getDefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Enabled:     true,
		Schedule:    "@every 1m",
		Timeout:     30 * time.Second,
		DiskPath:    "/",
		CPUInterval: time.Second,
	}
}

// QueryConfig — значения параметров запросов, если клиент их не передал.
type QueryConfig struct {
	DefaultDays          int `yaml:"defaultDays" env:"PM_QUERY_DEFAULT_DAYS" env-default:"7"`
	DefaultExecutionDays int `yaml:"defaultExecutionDays" env:"PM_QUERY_DEFAULT_EXECUTION_DAYS" env-default:"30"`
	DefaultHours         int `yaml:"defaultHours" env:"PM_QUERY_DEFAULT_HOURS" env-default:"24"`
	DefaultLimit         int `yaml:"defaultLimit" env:"PM_QUERY_DEFAULT_LIMIT" env-default:"100"`
}

func getDefaultQueryConfig() QueryConfig {
	return QueryConfig{
		DefaultDays:          7,
		DefaultExecutionDays: 30,
		DefaultHours:         24,
		DefaultLimit:         100,
	}
}
