// Package health reports process, host and upstream health for the server.
package health

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics contains host metrics sampled on demand.
type Metrics struct {
	CPUUsage          float64 `json:"cpu_usage"`
	MemoryUsage       float64 `json:"memory_usage"`
	MemoryUsedBytes   uint64  `json:"memory_used_bytes"`
	UptimeSeconds     int64   `json:"uptime_seconds"`
	HostUptimeSeconds uint64  `json:"host_uptime_seconds"`
	Goroutines        int     `json:"goroutines"`
}

// Collector collects host metrics.
type Collector struct {
	startTime time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Collect gathers host metrics. Individual probes that fail leave their
// fields zero.
func (c *Collector) Collect(ctx context.Context) (*Metrics, error) {
	m := &Metrics{
		UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	// Interval 0 compares against the previous call instead of blocking.
	cpuPercent, err := cpu.PercentWithContext(ctx, 0, false)
	if err == nil && len(cpuPercent) > 0 {
		m.CPUUsage = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		m.MemoryUsage = memStat.UsedPercent
		m.MemoryUsedBytes = memStat.Used
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		m.HostUptimeSeconds = uptime
	}

	return m, ctx.Err()
}

// GetOSInfo returns operating system information.
func GetOSInfo(ctx context.Context) map[string]string {
	hostname, _ := os.Hostname()
	info := map[string]string{
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"hostname": hostname,
		"version":  runtime.GOOS,
	}
	if hi, err := host.InfoWithContext(ctx); err == nil && hi.Platform != "" {
		info["version"] = hi.Platform + " " + hi.PlatformVersion
	}
	return info
}
