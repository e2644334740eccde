// Package logging — структурированное логирование pipeline-monitor поверх slog.
//
// Логгер пишет только в stderr или в файл: stdout зарезервирован
// под результаты CLI-команд.
package logging

// Logger — интерфейс логгера, используемый всеми компонентами.
//
//	logger.Info("запуск сохранён", "pipeline", name, "id", id)
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With возвращает логгер, добавляющий атрибуты ко всем записям.
	With(args ...any) Logger
}

// NopLogger отбрасывает все записи.
type NopLogger struct{}

// NewNopLogger создаёт логгер без вывода.
func NewNopLogger() Logger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(string, ...any) {}
func (n *NopLogger) Info(string, ...any)  {}
func (n *NopLogger) Warn(string, ...any)  {}
func (n *NopLogger) Error(string, ...any) {}

// With возвращает тот же NopLogger.
func (n *NopLogger) With(...any) Logger { return n }

// Component возвращает логгер с атрибутом component.
// При nil logger возвращает NopLogger.
func Component(l Logger, name string) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l.With("component", name)
}
