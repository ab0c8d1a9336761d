package diagnose

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// ErrResolveTimeout is returned by Resolve when the lookup outlives its
// deadline.
var ErrResolveTimeout = errors.New("dns lookup timed out")

// MemoryStat is a virtual memory snapshot.
type MemoryStat struct {
	Total       uint64
	Available   uint64
	UsedPercent float64
}

// SystemProbe reads host-wide figures. HostProbe is the real one.
type SystemProbe interface {
	FreeDisk(ctx context.Context, path string) (uint64, error)
	Memory(ctx context.Context) (MemoryStat, error)
	SwapUsed(ctx context.Context) (uint64, error)
	Load(ctx context.Context) (load1 float64, cpus int, err error)
	Resolve(ctx context.Context, host string) (time.Duration, error)
}

// HostProbe implements SystemProbe with gopsutil and the system resolver.
type HostProbe struct {
	// DNSTimeout bounds Resolve; zero means 3s.
	DNSTimeout time.Duration
}

// FreeDisk implements SystemProbe.
func (HostProbe) FreeDisk(ctx context.Context, path string) (uint64, error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return u.Free, nil
}

// Memory implements SystemProbe.
func (HostProbe) Memory(ctx context.Context) (MemoryStat, error) {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryStat{}, fmt.Errorf("virtual memory: %w", err)
	}
	return MemoryStat{Total: v.Total, Available: v.Available, UsedPercent: v.UsedPercent}, nil
}

// SwapUsed implements SystemProbe.
func (HostProbe) SwapUsed(ctx context.Context) (uint64, error) {
	s, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("swap memory: %w", err)
	}
	return s.Used, nil
}

// Load implements SystemProbe.
func (HostProbe) Load(ctx context.Context) (float64, int, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("load average: %w", err)
	}
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, 0, fmt.Errorf("cpu count: %w", err)
	}
	return avg.Load1, n, nil
}

// Resolve implements SystemProbe and returns how long the lookup took.
func (p HostProbe) Resolve(ctx context.Context, host string) (time.Duration, error) {
	timeout := p.DNSTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	_, err := net.DefaultResolver.LookupHost(ctx, host)
	elapsed := time.Since(start)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &dnsErr) && dnsErr.IsTimeout) {
			return elapsed, fmt.Errorf("%w: %s", ErrResolveTimeout, host)
		}
		return elapsed, fmt.Errorf("lookup %s: %w", host, err)
	}
	return elapsed, nil
}
