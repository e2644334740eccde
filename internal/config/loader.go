package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

// GetInputParams читает параметры запуска из переменных окружения.
func GetInputParams() (*InputParams, error) {
	params := &InputParams{}
	if err := cleanenv.ReadEnv(params); err != nil {
		return nil, err
	}
	return params, nil
}

// Load загружает конфигурацию: значения по умолчанию, затем YAML файл
// (если он существует), затем переменные окружения PM_*.
//
// Секции database и server обязательны: ошибка их разбора или валидации
// возвращается как CONFIG.*. Невалидные необязательные секции (sampler,
// query, logging, metrics, tracing) заменяются значениями по умолчанию
// с предупреждением в логе и в Config.Warnings.
func Load(l *slog.Logger) (*Config, error) {
	if l == nil {
		l = slog.Default()
	}

	params, err := GetInputParams()
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigParse,
			"не удалось прочитать параметры запуска из окружения", err)
	}

	cfg := Default()
	cfg.OutputFormat = params.OutputFormat
	cfg.Command = params.Command

	found, err := readFile(params.ConfigPath, cfg)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.Path = params.ConfigPath
		l.Debug("конфигурация загружена из файла", slog.String("path", params.ConfigPath))
	} else {
		l.Debug("файл конфигурации не найден, используются значения по умолчанию",
			slog.String("path", params.ConfigPath))
	}

	if err := applyEnv(l, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader разбирает YAML из r поверх значений по умолчанию и
// применяет переменные окружения. Используется в тестах и для stdin.
func LoadFromReader(l *slog.Logger, r io.Reader) (*Config, error) {
	if l == nil {
		l = slog.Default()
	}
	cfg := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad, "не удалось прочитать конфигурацию", err)
	}
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(l, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile читает YAML файл в cfg. Отсутствующий файл не ошибка.
func readFile(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // путь задаёт оператор
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewAppError(apperrors.ErrConfigLoad,
			fmt.Sprintf("не удалось прочитать файл конфигурации %s", path), err)
	}
	if err := decode(data, cfg); err != nil {
		return false, err
	}
	return true, nil
}

// decode разбирает YAML поверх cfg. Неизвестные ключи считаются ошибкой,
// чтобы опечатки в именах не проходили молча.
func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.NewAppError(apperrors.ErrConfigParse, "некорректный YAML конфигурации", err)
	}
	return nil
}

// applyEnv накладывает переменные окружения на каждую секцию и валидирует её.
func applyEnv(l *slog.Logger, cfg *Config) error {
	if err := cleanenv.ReadEnv(&cfg.Database); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigParse, "некорректные переменные PM_DB_*", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigValidate, err.Error(), nil)
	}

	if err := cleanenv.ReadEnv(&cfg.Server); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigParse, "некорректные переменные PM_SERVER_*", err)
	}
	if err := cfg.Server.Validate(); err != nil {
		return apperrors.NewAppError(apperrors.ErrConfigValidate, err.Error(), nil)
	}

	optional(l, cfg, "sampler", &cfg.Sampler, cfg.Sampler.Validate, getDefaultSamplerConfig)
	optional(l, cfg, "query", &cfg.Query, cfg.Query.Validate, getDefaultQueryConfig)
	optional(l, cfg, "logging", &cfg.Logging, cfg.Logging.Validate, getDefaultLoggingConfig)
	optional(l, cfg, "metrics", &cfg.Metrics, cfg.Metrics.Validate, getDefaultMetricsConfig)
	optional(l, cfg, "tracing", &cfg.Tracing, cfg.Tracing.Validate, getDefaultTracingConfig)

	if cfg.OutputFormat != "text" && cfg.OutputFormat != "json" {
		cfg.warn(l, "неизвестный PM_OUTPUT_FORMAT, используется text",
			fmt.Errorf("формат %q", cfg.OutputFormat))
		cfg.OutputFormat = "text"
	}
	return nil
}

// optional накладывает окружение на необязательную секцию; при ошибке
// разбора или валидации секция заменяется значением по умолчанию.
func optional[T any](l *slog.Logger, cfg *Config, name string, section *T, validate func() error, def func() T) {
	err := cleanenv.ReadEnv(section)
	if err == nil {
		err = validate()
	}
	if err != nil {
		cfg.warn(l, fmt.Sprintf("невалидная секция %s, используются значения по умолчанию", name), err)
		*section = def()
	}
}

// Validate проверяет секцию server.
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server: некорректный порт %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.RequestTimeout <= 0 {
		return fmt.Errorf("server: таймауты должны быть положительными")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server: shutdownTimeout должен быть положительным")
	}
	return nil
}

// Validate проверяет расписание и параметры сбора.
func (s *SamplerConfig) Validate() error {
	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		return fmt.Errorf("sampler: некорректное расписание %q: %w", s.Schedule, err)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("sampler: timeout должен быть положительным")
	}
	if s.CPUInterval <= 0 {
		return fmt.Errorf("sampler: cpuInterval должен быть положительным")
	}
	if s.DiskPath == "" {
		return fmt.Errorf("sampler: diskPath не может быть пустым")
	}
	return nil
}

// Validate проверяет, что значения по умолчанию лежат в допустимых границах.
func (q *QueryConfig) Validate() error {
	if err := pipeline.ValidateWindowDays(q.DefaultDays); err != nil {
		return fmt.Errorf("query.defaultDays: %w", err)
	}
	if err := pipeline.ValidateWindowDays(q.DefaultExecutionDays); err != nil {
		return fmt.Errorf("query.defaultExecutionDays: %w", err)
	}
	if err := pipeline.ValidateWindowHours(q.DefaultHours); err != nil {
		return fmt.Errorf("query.defaultHours: %w", err)
	}
	if err := pipeline.ValidateLimit(q.DefaultLimit); err != nil {
		return fmt.Errorf("query.defaultLimit: %w", err)
	}
	return nil
}
