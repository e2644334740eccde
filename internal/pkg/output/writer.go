package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Форматы вывода.
const (
	FormatJSON = "json"
	FormatText = "text"
)

const summaryDivider = "══════════════════════════════════════════════════════"

// Writer форматирует Result.
type Writer interface {
	Write(w io.Writer, result *Result) error
}

// TextRenderer реализуют данные команд, имеющие табличное
// текстовое представление. Остальные данные печатаются как JSON.
type TextRenderer interface {
	RenderText(w io.Writer) error
}

// NewWriter возвращает Writer для формата (без учёта регистра).
// Неизвестный формат — текст.
func NewWriter(format string) Writer {
	if strings.EqualFold(format, FormatJSON) {
		return NewJSONWriter()
	}
	return NewTextWriter()
}

// JSONWriter печатает Result как JSON с отступами.
type JSONWriter struct{}

// NewJSONWriter создаёт JSONWriter.
func NewJSONWriter() *JSONWriter { return &JSONWriter{} }

// Write не изменяет result: Summary переносится в копию Metadata.
func (j *JSONWriter) Write(w io.Writer, result *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if result == nil {
		return enc.Encode(result)
	}

	out := *result
	if result.Summary != nil && result.Metadata != nil {
		meta := *result.Metadata
		meta.Summary = result.Summary
		out.Metadata = &meta
	}
	return enc.Encode(&out)
}

// TextWriter печатает Result для человека.
type TextWriter struct{}

// NewTextWriter создаёт TextWriter.
func NewTextWriter() *TextWriter { return &TextWriter{} }

func (t *TextWriter) Write(w io.Writer, result *Result) error {
	if result == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s: %s\n", result.Command, result.Status); err != nil {
		return err
	}
	if result.Error != nil {
		_, err := fmt.Fprintf(w, "Error [%s]: %s\n", result.Error.Code, result.Error.Message)
		return err
	}

	switch data := result.Data.(type) {
	case nil:
	case TextRenderer:
		if err := data.RenderText(w); err != nil {
			return err
		}
	default:
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("не удалось сериализовать Data: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", raw); err != nil {
			return err
		}
	}

	if result.Summary == nil {
		return nil
	}
	return writeSummary(w, result)
}

func writeSummary(w io.Writer, result *Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nСводка\n%s\n", summaryDivider, summaryDivider)
	if result.Metadata != nil && result.Metadata.DurationMs > 0 {
		fmt.Fprintf(&b, "Время выполнения: %s\n", formatDuration(result.Metadata.DurationMs))
	}
	for _, m := range result.Summary.KeyMetrics {
		if m.Unit != "" {
			fmt.Fprintf(&b, "%s: %s %s\n", m.Name, m.Value, m.Unit)
		} else {
			fmt.Fprintf(&b, "%s: %s\n", m.Name, m.Value)
		}
	}
	if result.Summary.WarningsCount > 0 {
		fmt.Fprintf(&b, "\nПредупреждений: %d\n", result.Summary.WarningsCount)
		for _, warn := range result.Summary.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warn)
		}
	}
	b.WriteString(summaryDivider + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dмс", ms)
	}
	if ms < 60_000 {
		return fmt.Sprintf("%.1fс", float64(ms)/1000)
	}
	sec := ms / 1000
	return fmt.Sprintf("%dм %dс", sec/60, sec%60)
}
