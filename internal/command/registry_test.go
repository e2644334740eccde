package command

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/di"
)

type mockHandler struct {
	name string
}

func (m *mockHandler) Name() string                               { return m.name }
func (m *mockHandler) Description() string                        { return "mock: " + m.name }
func (m *mockHandler) Execute(_ context.Context, _ *di.App) error { return nil }

func TestRegister_Success(t *testing.T) {
	clearRegistry()

	h := &mockHandler{name: "test-command"}
	require.NoError(t, Register(h))

	got, ok := Get("test-command")
	assert.True(t, ok)
	assert.Equal(t, h, got)
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler Handler
		errText string
	}{
		{name: "nil handler", handler: nil, errText: "command: nil handler"},
		{name: "пустое имя", handler: &mockHandler{name: ""}, errText: "command: empty handler name"},
		{name: "верхний регистр", handler: &mockHandler{name: "Record-Quality"}, errText: "kebab-case"},
		{name: "подчёркивание", handler: &mockHandler{name: "record_quality"}, errText: "kebab-case"},
		{name: "завершающий дефис", handler: &mockHandler{name: "summary-"}, errText: "kebab-case"},
		{name: "двойной дефис", handler: &mockHandler{name: "system--metrics"}, errText: "kebab-case"},
		{name: "начинается с цифры", handler: &mockHandler{name: "1summary"}, errText: "kebab-case"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearRegistry()
			err := Register(tt.handler)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
			assert.Empty(t, Names())
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	clearRegistry()

	require.NoError(t, Register(&mockHandler{name: "dup-command"}))
	err := Register(&mockHandler{name: "dup-command"})
	require.Error(t, err)
	assert.Equal(t, "command: duplicate handler registration for dup-command", err.Error())
}

func TestGet_NotFound(t *testing.T) {
	clearRegistry()
	h, ok := Get("missing")
	assert.False(t, ok)
	assert.Nil(t, h)
}

func TestNames_Sorted(t *testing.T) {
	clearRegistry()
	for _, n := range []string{"summary", "pipelines", "record-execution", "collect-system"} {
		require.NoError(t, Register(&mockHandler{name: n}))
	}
	assert.Equal(t, []string{"collect-system", "pipelines", "record-execution", "summary"}, Names())
}

func TestAll_ReturnsCopy(t *testing.T) {
	clearRegistry()
	require.NoError(t, Register(&mockHandler{name: "serve"}))

	all := All()
	delete(all, "serve")
	all["fake"] = &mockHandler{name: "fake"}

	_, ok := Get("serve")
	assert.True(t, ok, "изменение копии не должно затрагивать реестр")
	_, ok = Get("fake")
	assert.False(t, ok)
}

func TestRegister_Concurrent(t *testing.T) {
	clearRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = Register(&mockHandler{name: fmt.Sprintf("cmd-%d", i)})
			_, _ = Get("cmd-0")
			_ = Names()
		}(i)
	}
	wg.Wait()

	assert.Len(t, Names(), 50)
}
