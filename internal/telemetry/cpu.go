package telemetry

import (
	"sync"

	"github.com/prometheus/procfs"
)

// CpuUtilization derives the total cpu utilization from the delta
// between two consecutive reads of /proc/stat
type CpuUtilization struct {
	fs procfs.FS

	mu        sync.Mutex
	lastBusy  float64
	lastTotal float64
	primed    bool
}

func NewCpuUtilization(procPath string) (*CpuUtilization, error) {
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, err
	}
	return &CpuUtilization{fs: fs}, nil
}

func (c *CpuUtilization) Utilization() (float64, error) {
	stat, err := c.fs.Stat()
	if err != nil {
		return 0, err
	}
	cpu := stat.CPUTotal
	idle := cpu.Idle + cpu.Iowait
	busy := cpu.User + cpu.Nice + cpu.System + cpu.IRQ + cpu.SoftIRQ + cpu.Steal
	total := idle + busy

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.primed {
		c.lastBusy, c.lastTotal, c.primed = busy, total, true
		if total <= 0 {
			return 0, nil
		}
		return busy / total * 100, nil
	}

	deltaTotal := total - c.lastTotal
	deltaBusy := busy - c.lastBusy
	c.lastBusy, c.lastTotal = busy, total
	if deltaTotal <= 0 {
		return 0, nil
	}
	return deltaBusy / deltaTotal * 100, nil
}
