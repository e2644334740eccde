// Package sysinfo читает загрузку хоста (CPU, память, диск) через gopsutil.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Значения по умолчанию.
const (
	DefaultCPUInterval = time.Second
	DefaultDiskPath    = "/"
)

// Provider — источник системных показателей в процентах.
// Каждый метод блокируется до получения значения или отмены ctx.
type Provider interface {
	CPUPercent(ctx context.Context) (float64, error)
	MemoryPercent(ctx context.Context) (float64, error)
	DiskPercent(ctx context.Context) (float64, error)
}

// Options — параметры HostProvider.
type Options struct {
	// CPUInterval — окно усреднения загрузки CPU.
	CPUInterval time.Duration
	// DiskPath — точка монтирования для показателя диска.
	DiskPath string
}

// HostProvider читает показатели локального хоста.
type HostProvider struct {
	opts Options
}

var _ Provider = (*HostProvider)(nil)

// NewHostProvider создаёт провайдер с заполнением значений по умолчанию.
func NewHostProvider(opts Options) *HostProvider {
	if opts.CPUInterval <= 0 {
		opts.CPUInterval = DefaultCPUInterval
	}
	if opts.DiskPath == "" {
		opts.DiskPath = DefaultDiskPath
	}
	return &HostProvider{opts: opts}
}

// CPUPercent усредняет загрузку всех ядер за CPUInterval.
func (p *HostProvider) CPUPercent(ctx context.Context) (float64, error) {
	values, err := cpu.PercentWithContext(ctx, p.opts.CPUInterval, false)
	if err != nil {
		return 0, fmt.Errorf("cpu: %w", err)
	}
	if len(values) == 0 {
		return 0, errors.New("cpu: пустой результат")
	}
	return values[0], nil
}

// MemoryPercent возвращает долю занятой оперативной памяти.
func (p *HostProvider) MemoryPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("memory: %w", err)
	}
	return vm.UsedPercent, nil
}

// DiskPercent возвращает заполненность раздела DiskPath.
func (p *HostProvider) DiskPercent(ctx context.Context) (float64, error) {
	u, err := disk.UsageWithContext(ctx, p.opts.DiskPath)
	if err != nil {
		return 0, fmt.Errorf("disk %s: %w", p.opts.DiskPath, err)
	}
	return u.UsedPercent, nil
}
