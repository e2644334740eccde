package version

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/command/handlers/handlertest"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
)

func TestBuildVersionData(t *testing.T) {
	tests := []struct {
		name          string
		version       string
		commit        string
		expectVersion string
		expectCommit  string
	}{
		{name: "значения сборки", version: "1.2.0", commit: "abc1234", expectVersion: "1.2.0", expectCommit: "abc1234"},
		{name: "пустая версия", version: "", commit: "abc1234", expectVersion: "dev", expectCommit: "abc1234"},
		{name: "пустой коммит", version: "1.2.0", commit: "", expectVersion: "1.2.0", expectCommit: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := buildVersionData(tt.version, tt.commit)
			assert.Equal(t, tt.expectVersion, d.Version)
			assert.Equal(t, tt.expectCommit, d.Commit)
			assert.Equal(t, runtime.Version(), d.GoVersion)
			assert.Equal(t, "v1", d.APIVersion)
		})
	}
}

func TestVersionHandler_Text(t *testing.T) {
	f := handlertest.New(output.FormatText)

	require.NoError(t, (&VersionHandler{}).Execute(context.Background(), f.App))

	out := f.Out.String()
	assert.Contains(t, out, "pipeline-monitor version dev")
	assert.Contains(t, out, "Go:     "+runtime.Version())
	assert.Contains(t, out, "Commit: unknown")
	assert.NotContains(t, out, "trace_id", "текстовый вывод без metadata")
}

// TestVersionHandler_GoldenJSON сравнивает структуру JSON вывода с golden
// файлом: набор полей и их типы, а не значения.
func TestVersionHandler_GoldenJSON(t *testing.T) {
	f := handlertest.New(output.FormatJSON)

	require.NoError(t, (&VersionHandler{}).Execute(context.Background(), f.App))

	var actual map[string]any
	require.NoError(t, json.Unmarshal(f.Out.Bytes(), &actual), "вывод должен быть валидным JSON")

	goldenData, err := os.ReadFile("testdata/version_json_output.golden")
	require.NoError(t, err)
	var golden map[string]any
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	assertSameKeys(t, golden, actual, "")
	for _, section := range []string{"data", "metadata"} {
		g, ok := golden[section].(map[string]any)
		require.True(t, ok)
		a, ok := actual[section].(map[string]any)
		require.True(t, ok, "%s должен быть объектом", section)
		assertSameKeys(t, g, a, section+".")
		for k, v := range g {
			assert.IsType(t, v, a[k], "%s.%s", section, k)
		}
	}
	assert.Equal(t, handlertest.TraceID, actual["metadata"].(map[string]any)["trace_id"])
}

func assertSameKeys(t *testing.T, golden, actual map[string]any, prefix string) {
	t.Helper()
	for k := range golden {
		assert.Contains(t, actual, k, "нет поля %s%s", prefix, k)
	}
	for k := range actual {
		assert.Contains(t, golden, k, "лишнее поле %s%s", prefix, k)
	}
}

// TestVersionHandler_StdoutOnlyJSON проверяет, что stdout содержит ровно один JSON объект.
func TestVersionHandler_StdoutOnlyJSON(t *testing.T) {
	f := handlertest.New(output.FormatJSON)

	require.NoError(t, (&VersionHandler{}).Execute(context.Background(), f.App))

	decoder := json.NewDecoder(bytes.NewReader(f.Out.Bytes()))
	var result output.Result
	require.NoError(t, decoder.Decode(&result))
	assert.Equal(t, "version", result.Command)

	var rest bytes.Buffer
	_, _ = rest.ReadFrom(decoder.Buffered())
	assert.Empty(t, bytes.TrimSpace(rest.Bytes()))
}
