package shared

import (
	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

// IntOrDefault возвращает значение флага, если он задан явно,
// иначе def из конфигурации.
func IntOrDefault(fs *pflag.FlagSet, name string, value, def int) int {
	if fs != nil && fs.Changed(name) {
		return value
	}
	return def
}

// RequireName отклоняет пустой --pipeline до обращения к хранилищу.
func RequireName(name string) error {
	if pipeline.NormalizeName(name) == "" {
		return apperrors.Validation(apperrors.ErrEmptyName, "флаг --pipeline обязателен")
	}
	return nil
}
