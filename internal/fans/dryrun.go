package fans

import (
	"sync"

	"github.com/vivekchamoli/legion2go/internal/ui"
)

// DryRunSink only logs commands, used when the platform driver is missing
type DryRunSink struct {
	mu   sync.Mutex
	last Command
}

func (s *DryRunSink) SetTargets(cpuRpm float64, gpuRpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = Command{CpuRpm: cpuRpm, GpuRpm: gpuRpm}
	ui.Debug("Dry run: cpu=%.0f rpm gpu=%.0f rpm", cpuRpm, gpuRpm)
}

func (s *DryRunSink) SetMax() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = Command{Max: true}
	ui.Debug("Dry run: fans at maximum")
}

func (s *DryRunSink) Last() Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
