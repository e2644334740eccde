package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger создаёт логгер по конфигурации. Неизвестный output
// и ошибки подготовки файла приводят к выводу в stderr с предупреждением.
func NewLogger(cfg Config) Logger {
	var w io.Writer = os.Stderr

	switch cfg.Output {
	case OutputStderr, "":
	case OutputFile:
		fw, err := fileWriter(cfg)
		if err != nil {
			bootstrapWarn("файловый вывод логов недоступен: %v, используется stderr", err)
			break
		}
		w = fw
	default:
		bootstrapWarn("неизвестный logging output %q, используется stderr", cfg.Output)
	}

	return NewLoggerWithWriter(cfg, w)
}

// NewLoggerWithWriter создаёт логгер, пишущий в w.
func NewLoggerWithWriter(cfg Config, w io.Writer) Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return NewSlogAdapter(slog.New(h))
}

// ParseLevel переводит строковый уровень в slog.Level; неизвестный — info.
func ParseLevel(level string) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func fileWriter(cfg Config) (io.Writer, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("не задан путь к файлу логов")
	}
	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("создание каталога %s: %w", dir, err)
		}
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}, nil
}

func bootstrapWarn(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "WARNING: "+format+"\n", args...) //nolint:errcheck // bootstrap stderr
}
