package api

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Имена схем тел запросов.
const (
	schemaExecution = "execution.json"
	schemaQuality   = "quality.json"
)

// payloadSchemas проверяет форму тел запросов до разбора в структуры.
// Значения (статус, диапазоны, метки времени) проверяет валидатор пайплайнов.
type payloadSchemas struct {
	byName map[string]*jsonschema.Schema
}

func loadSchemas() (*payloadSchemas, error) {
	c := jsonschema.NewCompiler()
	names := []string{schemaExecution, schemaQuality}
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("чтение схемы %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("разбор схемы %s: %w", name, err)
		}
		if err := c.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("регистрация схемы %s: %w", name, err)
		}
	}

	s := &payloadSchemas{byName: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("компиляция схемы %s: %w", name, err)
		}
		s.byName[name] = sch
	}
	return s, nil
}

// validate проверяет body по схеме name.
func (s *payloadSchemas) validate(name string, body []byte) error {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return apperrors.Validation(apperrors.ErrMalformedPayload, "тело запроса не является корректным JSON")
	}
	if err := s.byName[name].Validate(inst); err != nil {
		return apperrors.NewAppError(apperrors.ErrMalformedPayload,
			"тело запроса не соответствует схеме", err)
	}
	return nil
}
