package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

var (
	_ store.Client = (*MemoryStore)(nil)
	_ store.Reader = (*MemoryStore)(nil)
	_ store.Reader = (*memReader)(nil)
)

// MemoryStore — хранилище в памяти с семантикой реляционного адаптера:
// автоинкрементные ID, включающие окна, сортировка как в SQL-запросах.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	executions []pipeline.Execution
	quality    []pipeline.QualityMetric
	system     []pipeline.SystemMetric

	// WriteErr, если задан, возвращается всеми операциями записи.
	WriteErr error
	// ReadErr, если задан, возвращается ReadSnapshot.
	ReadErr error

	writes    int
	snapshots int
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Writes возвращает число успешных операций записи.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

// Snapshots возвращает число открытых областей чтения.
func (m *MemoryStore) Snapshots() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots
}

// SystemRows возвращает копию сохранённых системных метрик.
func (m *MemoryStore) SystemRows() []pipeline.SystemMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]pipeline.SystemMetric(nil), m.system...)
}

func (m *MemoryStore) Connect(context.Context) error { return nil }
func (m *MemoryStore) Close() error                  { return nil }
func (m *MemoryStore) Ping(context.Context) error    { return nil }
func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) writeErr() error {
	return apperrors.Storage(apperrors.ErrStorageWrite, "запись отклонена", m.WriteErr)
}

func (m *MemoryStore) InsertExecution(_ context.Context, e *pipeline.Execution) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return 0, m.writeErr()
	}
	m.nextID++
	row := *e
	row.ID = m.nextID
	m.executions = append(m.executions, row)
	m.writes++
	return row.ID, nil
}

func (m *MemoryStore) InsertQualityMetric(_ context.Context, q *pipeline.QualityMetric) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return 0, m.writeErr()
	}
	m.nextID++
	row := *q
	row.ID = m.nextID
	m.quality = append(m.quality, row)
	m.writes++
	return row.ID, nil
}

func (m *MemoryStore) InsertSystemMetrics(_ context.Context, rows []pipeline.SystemMetric) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return nil, m.writeErr()
	}
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		m.nextID++
		r.ID = m.nextID
		m.system = append(m.system, r)
		ids = append(ids, r.ID)
	}
	m.writes++
	return ids, nil
}

// ReadSnapshot передаёт fn копию данных на момент вызова.
func (m *MemoryStore) ReadSnapshot(_ context.Context, fn func(store.Reader) error) error {
	m.mu.Lock()
	if m.ReadErr != nil {
		m.mu.Unlock()
		return apperrors.Storage(apperrors.ErrStorageRead, "чтение отклонено", m.ReadErr)
	}
	m.snapshots++
	snap := &memReader{
		executions: append([]pipeline.Execution(nil), m.executions...),
		quality:    append([]pipeline.QualityMetric(nil), m.quality...),
		system:     append([]pipeline.SystemMetric(nil), m.system...),
	}
	m.mu.Unlock()
	return fn(snap)
}

// Reader-методы MemoryStore позволяют передавать его напрямую как store.Reader.

func (m *MemoryStore) reader() *memReader {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &memReader{executions: m.executions, quality: m.quality, system: m.system}
}

func (m *MemoryStore) PipelineNames(ctx context.Context) ([]string, error) {
	return m.reader().PipelineNames(ctx)
}

func (m *MemoryStore) LatestExecution(ctx context.Context, name string) (*pipeline.Execution, error) {
	return m.reader().LatestExecution(ctx, name)
}

func (m *MemoryStore) ExecutionStats(ctx context.Context, name string, from, to time.Time) (store.ExecutionStats, error) {
	return m.reader().ExecutionStats(ctx, name, from, to)
}

func (m *MemoryStore) Executions(ctx context.Context, name string, from, to time.Time, limit int) ([]pipeline.Execution, error) {
	return m.reader().Executions(ctx, name, from, to, limit)
}

func (m *MemoryStore) QualityMetrics(ctx context.Context, name string, from, to time.Time) ([]pipeline.QualityMetric, error) {
	return m.reader().QualityMetrics(ctx, name, from, to)
}

func (m *MemoryStore) SystemMetrics(ctx context.Context, from, to time.Time) ([]pipeline.SystemMetric, error) {
	return m.reader().SystemMetrics(ctx, from, to)
}

func (m *MemoryStore) DistinctPipelineCount(ctx context.Context) (int64, error) {
	return m.reader().DistinctPipelineCount(ctx)
}

type memReader struct {
	executions []pipeline.Execution
	quality    []pipeline.QualityMetric
	system     []pipeline.SystemMetric
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

func (r *memReader) PipelineNames(context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, e := range r.executions {
		if _, ok := seen[e.PipelineName]; ok {
			continue
		}
		seen[e.PipelineName] = struct{}{}
		names = append(names, e.PipelineName)
	}
	sort.Strings(names)
	return names, nil
}

// sortedExecutions возвращает запуски по убыванию start_time, затем id.
func (r *memReader) sortedExecutions(keep func(pipeline.Execution) bool) []pipeline.Execution {
	out := make([]pipeline.Execution, 0)
	for _, e := range r.executions {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memReader) LatestExecution(_ context.Context, name string) (*pipeline.Execution, error) {
	sorted := r.sortedExecutions(func(e pipeline.Execution) bool { return e.PipelineName == name })
	if len(sorted) == 0 {
		return nil, nil
	}
	latest := sorted[0]
	return &latest, nil
}

func (r *memReader) ExecutionStats(_ context.Context, name string, from, to time.Time) (store.ExecutionStats, error) {
	var (
		stats    store.ExecutionStats
		sum      float64
		durCount int
	)
	for _, e := range r.executions {
		if name != "" && e.PipelineName != name {
			continue
		}
		if !inWindow(e.StartTime, from, to) {
			continue
		}
		stats.Total++
		if e.Status != pipeline.StatusSuccess {
			continue
		}
		stats.SuccessCount++
		if e.DurationSeconds != nil {
			sum += *e.DurationSeconds
			durCount++
		}
	}
	if durCount > 0 {
		avg := sum / float64(durCount)
		stats.AvgSuccessDuration = &avg
	}
	return stats, nil
}

func (r *memReader) Executions(_ context.Context, name string, from, to time.Time, limit int) ([]pipeline.Execution, error) {
	sorted := r.sortedExecutions(func(e pipeline.Execution) bool {
		return e.PipelineName == name && inWindow(e.StartTime, from, to)
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *memReader) QualityMetrics(_ context.Context, name string, from, to time.Time) ([]pipeline.QualityMetric, error) {
	out := make([]pipeline.QualityMetric, 0)
	for _, q := range r.quality {
		if q.PipelineName == name && inWindow(q.Timestamp, from, to) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *memReader) SystemMetrics(_ context.Context, from, to time.Time) ([]pipeline.SystemMetric, error) {
	out := make([]pipeline.SystemMetric, 0)
	for _, s := range r.system {
		if inWindow(s.Timestamp, from, to) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memReader) DistinctPipelineCount(ctx context.Context) (int64, error) {
	names, err := r.PipelineNames(ctx)
	return int64(len(names)), err
}
