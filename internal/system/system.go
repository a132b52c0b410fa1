package system

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats нагрузка на хост, где работает монитор
type HostStats struct {
	Hostname      string  `json:"hostname"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryTotal   uint64  `json:"memory_total"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Collect собирает статистику хоста.
// CPU считается без ожидания, относительно предыдущего вызова.
func Collect() (HostStats, error) {
	var stats HostStats

	info, err := host.Info()
	if err != nil {
		return stats, fmt.Errorf("failed to read host info: %w", err)
	}
	stats.Hostname = info.Hostname
	stats.UptimeSeconds = info.Uptime

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, fmt.Errorf("failed to read memory info: %w", err)
	}
	stats.MemoryTotal = vm.Total
	stats.MemoryUsed = vm.Used
	stats.MemoryPercent = vm.UsedPercent

	return stats, nil
}
