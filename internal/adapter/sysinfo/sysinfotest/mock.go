// Package sysinfotest — тестовая реализация sysinfo.Provider.
package sysinfotest

import (
	"context"
	"sync"

	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo"
)

var _ sysinfo.Provider = (*MockProvider)(nil)

// MockProvider возвращает значения функциональных полей.
// Незаданное поле возвращает 0 без ошибки.
type MockProvider struct {
	CPUFunc    func(ctx context.Context) (float64, error)
	MemoryFunc func(ctx context.Context) (float64, error)
	DiskFunc   func(ctx context.Context) (float64, error)

	mu    sync.Mutex
	calls []string
}

// Calls возвращает порядок вызовов: "cpu", "memory", "disk".
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockProvider) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// Fixed создаёт мок с постоянными значениями.
func Fixed(cpu, memory, disk float64) *MockProvider {
	return &MockProvider{
		CPUFunc:    func(context.Context) (float64, error) { return cpu, nil },
		MemoryFunc: func(context.Context) (float64, error) { return memory, nil },
		DiskFunc:   func(context.Context) (float64, error) { return disk, nil },
	}
}

func (m *MockProvider) CPUPercent(ctx context.Context) (float64, error) {
	m.record("cpu")
	if m.CPUFunc != nil {
		return m.CPUFunc(ctx)
	}
	return 0, nil
}

func (m *MockProvider) MemoryPercent(ctx context.Context) (float64, error) {
	m.record("memory")
	if m.MemoryFunc != nil {
		return m.MemoryFunc(ctx)
	}
	return 0, nil
}

func (m *MockProvider) DiskPercent(ctx context.Context) (float64, error) {
	m.record("disk")
	if m.DiskFunc != nil {
		return m.DiskFunc(ctx)
	}
	return 0, nil
}
