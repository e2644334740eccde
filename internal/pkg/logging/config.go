package logging

// Форматы вывода.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Уровни.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Назначения вывода.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Значения по умолчанию.
const (
	DefaultLevel      = LevelInfo
	DefaultFormat     = FormatText
	DefaultOutput     = OutputStderr
	DefaultFilePath   = "logs/pipeline-monitor.log"
	DefaultMaxSize    = 100 // MB
	DefaultMaxBackups = 3
	DefaultMaxAge     = 7 // дней
	DefaultCompress   = true
)

// Config — параметры логгера.
type Config struct {
	Level  string
	Format string
	// Output — stderr или file. Для file используется ротация lumberjack.
	Output     string
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// DefaultConfig возвращает Config со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLevel,
		Format:     DefaultFormat,
		Output:     DefaultOutput,
		FilePath:   DefaultFilePath,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAge,
		Compress:   DefaultCompress,
	}
}
