package stats

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/tanq16/tgrelay/internal/utils"
)

type Snapshot struct {
	Uptime      time.Duration
	DiskTotal   uint64
	DiskUsed    uint64
	DiskFree    uint64
	ProcessRSS  uint64
	NetSent     uint64
	NetRecv     uint64
	CPUPercent  float64
	RAMPercent  float64
	DiskPercent float64
}

// Host samples the machine the bot runs on.
type Host struct {
	started     time.Time
	workDir     string
	cpuInterval time.Duration
}

func NewHost(started time.Time, workDir string) *Host {
	if workDir == "" {
		workDir = "."
	}
	return &Host{started: started, workDir: workDir, cpuInterval: 500 * time.Millisecond}
}

// Collect gathers a snapshot. Individual probes that fail are logged and
// left at zero.
func (h *Host) Collect(ctx context.Context) Snapshot {
	s := Snapshot{Uptime: time.Since(h.started)}
	if usage, err := disk.UsageWithContext(ctx, h.workDir); err == nil {
		s.DiskTotal, s.DiskUsed, s.DiskFree = usage.Total, usage.Used, usage.Free
	} else {
		log.Debug().Str("op", "stats/stats").Msgf("disk usage: %v", err)
	}
	if root, err := disk.UsageWithContext(ctx, "/"); err == nil {
		s.DiskPercent = root.UsedPercent
	}
	if counters, err := net.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		s.NetSent, s.NetRecv = counters[0].BytesSent, counters[0].BytesRecv
	} else if err != nil {
		log.Debug().Str("op", "stats/stats").Msgf("net counters: %v", err)
	}
	if pct, err := cpu.PercentWithContext(ctx, h.cpuInterval, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.RAMPercent = vm.UsedPercent
	}
	if p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := p.MemoryInfoWithContext(ctx); err == nil {
			s.ProcessRSS = info.RSS
		}
	}
	return s
}

func Render(s Snapshot) string {
	return fmt.Sprintf("**≧◉◡◉≦ Bot is Up and Running successfully.**\n\n"+
		"**➜ Bot Uptime:** `%s`\n"+
		"**➜ Total Disk Space:** `%s`\n"+
		"**➜ Used:** `%s`\n"+
		"**➜ Free:** `%s`\n"+
		"**➜ Memory Usage:** `%d MiB`\n\n"+
		"**➜ Upload:** `%s`\n"+
		"**➜ Download:** `%s`\n\n"+
		"**➜ CPU:** `%.1f%%` | **➜ RAM:** `%.1f%%` | **➜ DISK:** `%.1f%%`",
		utils.FormatDuration(s.Uptime),
		utils.FormatBytes(s.DiskTotal), utils.FormatBytes(s.DiskUsed), utils.FormatBytes(s.DiskFree),
		s.ProcessRSS/(1024*1024),
		utils.FormatBytes(s.NetSent), utils.FormatBytes(s.NetRecv),
		s.CPUPercent, s.RAMPercent, s.DiskPercent,
	)
}
