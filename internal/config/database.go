package config

import (
	"fmt"
	"time"
)

// Поддерживаемые драйверы хранилища.
const (
	DriverMSSQL  = "mssql"
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// DatabaseConfig — параметры подключения к реляционному хранилищу.
// DSN, если задан, имеет приоритет над Host/Port/User/Password/Name/Path.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"PM_DB_DRIVER" env-default:"sqlite3"`
	DSN      string `yaml:"dsn" env:"PM_DB_DSN"`
	Host     string `yaml:"host" env:"PM_DB_HOST"`
	Port     int    `yaml:"port" env:"PM_DB_PORT"`
	User     string `yaml:"user" env:"PM_DB_USER"`
	Password string `yaml:"password" env:"PM_DB_PASSWORD"`
	Name     string `yaml:"name" env:"PM_DB_NAME"`
	// Path — файл базы sqlite3.
	Path    string `yaml:"path" env:"PM_DB_PATH" env-default:"pipeline_metrics.db"`
	Encrypt bool   `yaml:"encrypt" env:"PM_DB_ENCRYPT"`

	Timeout       time.Duration `yaml:"timeout" env:"PM_DB_TIMEOUT" env-default:"30s"`
	MaxOpenConns  int           `yaml:"maxOpenConns" env:"PM_DB_MAX_OPEN_CONNS"`
	RetryAttempts uint          `yaml:"retryAttempts" env:"PM_DB_RETRY_ATTEMPTS" env-default:"3"`
	RetryInterval time.Duration `yaml:"retryInterval" env:"PM_DB_RETRY_INTERVAL" env-default:"500ms"`
}

func getDefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:        DriverSQLite,
		Path:          "pipeline_metrics.db",
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryInterval: 500 * time.Millisecond,
	}
}

// Validate проверяет секцию database. Ошибка здесь фатальна:
// без хранилища ни одна команда не работает.
func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case DriverMSSQL, DriverMySQL:
		if d.DSN == "" && d.Host == "" {
			return fmt.Errorf("database: host или dsn обязателен для драйвера %s", d.Driver)
		}
	case DriverSQLite:
		if d.DSN == "" && d.Path == "" {
			return fmt.Errorf("database: path или dsn обязателен для драйвера %s", d.Driver)
		}
	default:
		return fmt.Errorf("database: неизвестный драйвер %q (ожидается mssql, sqlite3 или mysql)", d.Driver)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("database: некорректный порт %d", d.Port)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("database: timeout должен быть положительным")
	}
	if d.MaxOpenConns < 0 {
		return fmt.Errorf("database: maxOpenConns не может быть отрицательным")
	}
	return nil
}
