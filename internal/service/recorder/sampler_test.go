package recorder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store/storetest"
	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo/sysinfotest"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

func TestNewSampler_Schedule(t *testing.T) {
	noop := CollectorFunc(func(context.Context) error { return nil })

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"по умолчанию", "", false},
		{"интервал", "@every 30s", false},
		{"crontab", "*/5 * * * *", false},
		{"мусор", "каждую минуту", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSampler(noop, tt.schedule, time.Second, logging.NewNopLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.schedule == "" {
				assert.Equal(t, DefaultSchedule, s.schedule)
			}
		})
	}
}

func TestSampler_Run(t *testing.T) {
	var calls atomic.Int32
	var sawTraceID atomic.Bool
	target := CollectorFunc(func(ctx context.Context) error {
		if tracing.TraceIDFromContext(ctx) != "" {
			sawTraceID.Store(true)
		}
		if calls.Add(1) == 1 {
			return errors.New("первый сбор падает")
		}
		return nil
	})

	s, err := NewSampler(target, "@every 1s", time.Second, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond,
		"ошибка одного цикла не останавливает расписание")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
	assert.True(t, sawTraceID.Load(), "каждый цикл получает trace ID")
}

func TestSampler_TickAfterCancel(t *testing.T) {
	var calls atomic.Int32
	s, err := NewSampler(CollectorFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}), "", 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.tick(ctx)

	assert.Zero(t, calls.Load())
}

func TestRecorder_Collector(t *testing.T) {
	mem := storetest.NewMemoryStore()
	rec := New(mem, sysinfotest.Fixed(1, 2, 3), nil, nil)

	require.NoError(t, rec.Collector().CollectSystemMetrics(context.Background()))
	assert.Len(t, mem.SystemRows(), 3)
}
