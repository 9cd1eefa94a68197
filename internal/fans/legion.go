package fans

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	CpuFanTargetFile = "fan1_target"
	GpuFanTargetFile = "fan2_target"
	CpuFanSpeedFile  = "fan1_speed"
	GpuFanSpeedFile  = "fan2_speed"

	MinPercent = 0
	MaxPercent = 100
)

type SinkStats struct {
	// commands accepted from the control loop
	Commands int `json:"commands"`
	// commands replaced by a newer one before they were written
	Superseded int `json:"superseded"`
	Writes     int `json:"writes"`
	// commands equal to the last written values
	Unchanged int `json:"unchanged"`
	Failures  int `json:"failures"`
}

// LegionSink writes fan targets to the legion_laptop platform driver.
// Commands are queued with latest-wins semantics and written by Run.
type LegionSink struct {
	platformPath    string
	maxRpm          float64
	retryMaxElapsed time.Duration

	commands chan Command

	mu          sync.Mutex
	lastWritten *[2]int
	stats       SinkStats
}

func NewLegionSink(config configuration.FansConfig) *LegionSink {
	return &LegionSink{
		platformPath:    config.PlatformPath,
		maxRpm:          float64(config.MaxRpm),
		retryMaxElapsed: config.RetryMaxElapsed,
		commands:        make(chan Command, 1),
	}
}

func (s *LegionSink) SetTargets(cpuRpm float64, gpuRpm float64) {
	s.submit(Command{CpuRpm: cpuRpm, GpuRpm: gpuRpm})
}

func (s *LegionSink) SetMax() {
	s.submit(Command{Max: true})
}

func (s *LegionSink) submit(command Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Commands++

	for {
		select {
		case s.commands <- command:
			return
		default:
		}
		select {
		case <-s.commands:
			s.stats.Superseded++
		default:
		}
	}
}

// Run writes queued commands until ctx is canceled
func (s *LegionSink) Run(ctx context.Context) error {
	ui.Info("Writing fan targets to %s", s.platformPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case command := <-s.commands:
			if err := s.apply(ctx, command); err != nil {
				ui.Warning("Unable to write fan targets: %v", err)
			}
		}
	}
}

// Percent converts a command into fan target percentages
func (s *LegionSink) Percent(command Command) (cpu int, gpu int) {
	if command.Max {
		return MaxPercent, MaxPercent
	}
	return s.toPercent(command.CpuRpm), s.toPercent(command.GpuRpm)
}

func (s *LegionSink) toPercent(rpm float64) int {
	if s.maxRpm <= 0 || !util.IsFinite(rpm) {
		return MaxPercent
	}
	return int(math.Round(util.Coerce(rpm/s.maxRpm*100, MinPercent, MaxPercent)))
}

func (s *LegionSink) apply(ctx context.Context, command Command) error {
	cpu, gpu := s.Percent(command)

	s.mu.Lock()
	unchanged := s.lastWritten != nil && s.lastWritten[0] == cpu && s.lastWritten[1] == gpu
	if unchanged {
		s.stats.Unchanged++
	}
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	operation := func() error {
		if err := util.WriteIntToFile(cpu, filepath.Join(s.platformPath, CpuFanTargetFile)); err != nil {
			return err
		}
		return util.WriteIntToFile(gpu, filepath.Join(s.platformPath, GpuFanTargetFile))
	}

	err := backoff.Retry(operation, backoff.WithContext(s.retryPolicy(), ctx))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.stats.Failures++
		// force the next command to be written
		s.lastWritten = nil
		return fmt.Errorf("cpu=%d%% gpu=%d%%: %w", cpu, gpu, err)
	}
	s.stats.Writes++
	s.lastWritten = &[2]int{cpu, gpu}
	ui.Debug("Fan targets set to cpu=%d%% gpu=%d%%", cpu, gpu)
	return nil
}

func (s *LegionSink) retryPolicy() backoff.BackOff {
	if s.retryMaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = s.retryMaxElapsed
	return policy
}

// ReadSpeeds returns the current fan speeds in rpm as reported by the
// platform driver, the target attributes are write-only
func (s *LegionSink) ReadSpeeds() (cpu int, gpu int, err error) {
	return ReadSpeeds(s.platformPath)
}

// ReadSpeeds reads the fan speed attributes of the platform driver at platformPath
func ReadSpeeds(platformPath string) (cpu int, gpu int, err error) {
	cpu, err = util.ReadIntFromFile(filepath.Join(platformPath, CpuFanSpeedFile))
	if err != nil {
		return 0, 0, err
	}
	gpu, err = util.ReadIntFromFile(filepath.Join(platformPath, GpuFanSpeedFile))
	if err != nil {
		return 0, 0, err
	}
	return cpu, gpu, nil
}

func (s *LegionSink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
