package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// Compile-time проверка реализации интерфейса.
var _ Client = (*client)(nil)

// Значения по умолчанию для Options.
const (
	DefaultDriver        = DriverSQLite
	DefaultSQLitePath    = "pipeline_metrics.db"
	DefaultMSSQLPort     = 1433
	DefaultMySQLPort     = 3306
	DefaultTimeout       = 30 * time.Second
	DefaultRetryAttempts = 3
	DefaultRetryInterval = 500 * time.Millisecond
)

// Options содержит параметры подключения к хранилищу.
type Options struct {
	// Driver — mssql, sqlite3 или mysql.
	Driver string
	// DSN — готовая строка подключения. Если задана, остальные
	// параметры подключения игнорируются.
	DSN string
	// Host, Port, User, Password, Database — для mssql и mysql.
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Path — файл базы для sqlite3 (":memory:" для памяти).
	Path string
	// Encrypt — шифрование соединения mssql.
	Encrypt bool
	// Timeout — таймаут установки соединения.
	Timeout time.Duration
	// MaxOpenConns — ограничение пула (0 — без ограничения).
	MaxOpenConns int
	// RetryAttempts — число попыток подключения и открытия транзакции чтения.
	RetryAttempts uint
	// RetryInterval — начальный интервал экспоненциальной задержки.
	RetryInterval time.Duration
}

type client struct {
	db      *sql.DB
	opts    Options
	dialect dialect
	logger  logging.Logger
}

// NewClient создаёт клиент хранилища с заполнением значений по умолчанию.
// Соединение не открывается до вызова Connect.
func NewClient(opts Options, logger logging.Logger) (Client, error) {
	if opts.Driver == "" {
		opts.Driver = DefaultDriver
	}
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrStorageConnect, "некорректная конфигурация хранилища", err)
	}

	switch opts.Driver {
	case DriverSQLite:
		if opts.Path == "" && opts.DSN == "" {
			opts.Path = DefaultSQLitePath
		}
	case DriverMSSQL:
		if opts.Port == 0 {
			opts.Port = DefaultMSSQLPort
		}
	case DriverMySQL:
		if opts.Port == 0 {
			opts.Port = DefaultMySQLPort
		}
	}
	if opts.DSN == "" && opts.Driver != DriverSQLite && opts.Host == "" {
		return nil, apperrors.NewAppError(apperrors.ErrStorageConnect,
			"не указан хост хранилища", fmt.Errorf("driver %s requires host", opts.Driver))
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return nil, apperrors.NewAppError(apperrors.ErrStorageConnect,
			fmt.Sprintf("некорректный порт %d", opts.Port), nil)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &client{opts: opts, dialect: d, logger: logger}, nil
}

// dsn строит строку подключения для выбранного драйвера.
func (c *client) dsn() string {
	if c.opts.DSN != "" {
		return c.opts.DSN
	}
	switch c.dialect.name {
	case DriverMSSQL:
		encryptMode := "true"
		if !c.opts.Encrypt {
			encryptMode = "disable"
		}
		return fmt.Sprintf(
			"server=%s;user id=%s;password=%s;port=%d;database=%s;encrypt=%s;connection timeout=%d",
			url.QueryEscape(c.opts.Host),
			url.QueryEscape(c.opts.User),
			url.QueryEscape(c.opts.Password),
			c.opts.Port,
			url.QueryEscape(c.opts.Database),
			encryptMode,
			int(c.opts.Timeout.Seconds()),
		)
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = c.opts.User
		cfg.Passwd = c.opts.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
		cfg.DBName = c.opts.Database
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		cfg.Timeout = c.opts.Timeout
		return cfg.FormatDSN()
	default:
		// _busy_timeout в миллисекундах: ожидание блокировки вместо SQLITE_BUSY.
		return fmt.Sprintf("file:%s?_busy_timeout=%d&_loc=UTC", c.opts.Path, c.opts.Timeout.Milliseconds())
	}
}

// Connect открывает пул и проверяет соединение с повторами
// при временных сбоях.
func (c *client) Connect(ctx context.Context) error {
	db, err := sql.Open(c.dialect.driverName, c.dsn())
	if err != nil {
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "не удалось открыть хранилище", err)
	}

	if c.dialect.name == DriverSQLite {
		// Один писатель: SQLite сериализует запись на уровне файла.
		db.SetMaxOpenConns(1)
	} else if c.opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.opts.MaxOpenConns)
	}

	err = c.retry(ctx, "connect", func() error {
		return db.PingContext(ctx)
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			c.logger.Warn("не удалось закрыть пул после неудачного подключения", "error", closeErr.Error())
		}
		if ctx.Err() != nil {
			return apperrors.NewAppError(apperrors.ErrStorageConnect, "подключение прервано", ctx.Err())
		}
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "хранилище недоступно", err)
	}

	c.db = db
	c.logger.Info("хранилище подключено", "driver", c.dialect.name)
	return nil
}

// Close закрывает пул соединений.
func (c *client) Close() error {
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (c *client) Ping(ctx context.Context) error {
	if c.db == nil {
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "соединение не установлено", nil)
	}
	if err := c.db.PingContext(ctx); err != nil {
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "хранилище недоступно", err)
	}
	return nil
}

// Migrate создаёт схему. Операторы идемпотентны.
func (c *client) Migrate(ctx context.Context) error {
	if c.db == nil {
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "соединение не установлено", nil)
	}
	for i, stmt := range c.dialect.schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return apperrors.NewAppError(apperrors.ErrStorageMigrate,
				fmt.Sprintf("не удалось применить шаг схемы %d", i+1), err)
		}
	}
	c.logger.Info("схема хранилища применена", "driver", c.dialect.name, "statements", len(c.dialect.schema))
	return nil
}

// retry повторяет идемпотентную операцию с экспоненциальной задержкой.
// Используется только для подключения и открытия транзакции чтения:
// записи не повторяются.
func (c *client) retry(ctx context.Context, operation string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryInterval
	policy.MaxInterval = c.opts.RetryInterval * 10

	notify := func(err error, d time.Duration) {
		c.logger.Warn("повтор операции хранилища",
			"operation", operation,
			"error", err.Error(),
			"backoff", d.String(),
		)
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := op(); err != nil {
			if isPermanent(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.opts.RetryAttempts),
		backoff.WithNotify(notify),
	)
	return err
}

// isPermanent отделяет ошибки, которые не исправятся повтором:
// отказ в доступе, отсутствующая база, отмена контекста.
func isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var msErr mssqldb.Error
	if errors.As(err, &msErr) {
		switch msErr.Number {
		case 18456, 4060: // login failed, cannot open database
			return true
		}
		return false
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1045, 1049: // access denied, unknown database
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrPerm, sqlite3.ErrAuth:
			return true
		}
		return false
	}

	return false
}
