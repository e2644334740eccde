package config

import (
	"fmt"

	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// LoggingConfig — настройки логирования, переводимые в logging.Config.
type LoggingConfig struct {
	// Level — debug, info, warn, error.
	Level string `yaml:"level" env:"PM_LOG_LEVEL" env-default:"info"`
	// Format — json или text.
	Format string `yaml:"format" env:"PM_LOG_FORMAT" env-default:"text"`
	// Output — stderr или file.
	Output     string `yaml:"output" env:"PM_LOG_OUTPUT" env-default:"stderr"`
	FilePath   string `yaml:"filePath" env:"PM_LOG_FILE_PATH" env-default:"logs/pipeline-monitor.log"`
	MaxSize    int    `yaml:"maxSize" env:"PM_LOG_MAX_SIZE" env-default:"100"`
	MaxBackups int    `yaml:"maxBackups" env:"PM_LOG_MAX_BACKUPS" env-default:"3"`
	MaxAge     int    `yaml:"maxAge" env:"PM_LOG_MAX_AGE" env-default:"7"`
	Compress   bool   `yaml:"compress" env:"PM_LOG_COMPRESS"`
}

func getDefaultLoggingConfig() LoggingConfig {
	d := logging.DefaultConfig()
	return LoggingConfig{
		Level:      d.Level,
		Format:     d.Format,
		Output:     d.Output,
		FilePath:   d.FilePath,
		MaxSize:    d.MaxSize,
		MaxBackups: d.MaxBackups,
		MaxAge:     d.MaxAge,
		Compress:   d.Compress,
	}
}

// ToLoggingConfig переводит секцию в конфигурацию пакета logging.
func (c LoggingConfig) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// Validate проверяет допустимость значений секции logging.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError:
	default:
		return fmt.Errorf("logging: неизвестный уровень %q", c.Level)
	}
	switch c.Format {
	case logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("logging: неизвестный формат %q", c.Format)
	}
	switch c.Output {
	case logging.OutputStderr:
	case logging.OutputFile:
		if c.FilePath == "" {
			return fmt.Errorf("logging: filePath обязателен при output=file")
		}
	default:
		return fmt.Errorf("logging: неизвестный вывод %q", c.Output)
	}
	return nil
}
