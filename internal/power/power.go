package power

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/fans"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

const (
	CpuPl1File          = "cpu_pl1"
	CpuPl2File          = "cpu_pl2"
	GpuTgpFile          = "gpu_tgp"
	PerformanceModeFile = "performance_mode"

	// upper bounds in watts accepted by the platform driver
	MaxCpuPl1 = 140
	MaxCpuPl2 = 200
	MaxGpuTgp = 140
)

var (
	ErrOutOfRange = errors.New("power limit out of range")
	ErrNoLimits   = errors.New("no power limit given")
)

// Limits are power limits in watts, a nil limit is left unchanged
type Limits struct {
	CpuPl1 *int `json:"cpuPl1,omitempty"`
	CpuPl2 *int `json:"cpuPl2,omitempty"`
	GpuTgp *int `json:"gpuTgp,omitempty"`
}

// LimitsFromConfig converts the configured limits, a value of 0 is left unchanged
func LimitsFromConfig(config configuration.PowerConfig) Limits {
	optional := func(value int) *int {
		if value <= 0 {
			return nil
		}
		return &value
	}
	return Limits{
		CpuPl1: optional(config.CpuPl1),
		CpuPl2: optional(config.CpuPl2),
		GpuTgp: optional(config.GpuTgp),
	}
}

func (l Limits) IsEmpty() bool {
	return l.CpuPl1 == nil && l.CpuPl2 == nil && l.GpuTgp == nil
}

func (l Limits) Validate() error {
	if l.IsEmpty() {
		return ErrNoLimits
	}
	if err := checkRange(CpuPl1File, l.CpuPl1, MaxCpuPl1); err != nil {
		return err
	}
	if err := checkRange(CpuPl2File, l.CpuPl2, MaxCpuPl2); err != nil {
		return err
	}
	if err := checkRange(GpuTgpFile, l.GpuTgp, MaxGpuTgp); err != nil {
		return err
	}
	if l.CpuPl1 != nil && l.CpuPl2 != nil && *l.CpuPl1 > *l.CpuPl2 {
		return fmt.Errorf("%w: %s (%d W) exceeds %s (%d W)", ErrOutOfRange, CpuPl1File, *l.CpuPl1, CpuPl2File, *l.CpuPl2)
	}
	return nil
}

func checkRange(name string, value *int, max int) error {
	if value == nil {
		return nil
	}
	if *value < 0 || *value > max {
		return fmt.Errorf("%w: %s must be within [0, %d] W, was %d", ErrOutOfRange, name, max, *value)
	}
	return nil
}

func (l Limits) String() string {
	format := func(value *int) string {
		if value == nil {
			return "-"
		}
		return strconv.Itoa(*value) + "W"
	}
	return fmt.Sprintf("pl1=%s pl2=%s tgp=%s", format(l.CpuPl1), format(l.CpuPl2), format(l.GpuTgp))
}

// Status of the platform power settings. The limit attributes are
// write-only, Applied only holds the limits written by this process.
type Status struct {
	Mode      configuration.PowerMode `json:"mode"`
	Applied   Limits                  `json:"applied"`
	CpuFanRpm int                     `json:"cpuFanRpm"`
	GpuFanRpm int                     `json:"gpuFanRpm"`
}

// Writer sets the power mode and the power limits of the legion_laptop platform driver
type Writer struct {
	platformPath    string
	retryMaxElapsed time.Duration

	mu      sync.Mutex
	applied Limits
}

func NewWriter(platformPath string, retryMaxElapsed time.Duration) *Writer {
	return &Writer{
		platformPath:    platformPath,
		retryMaxElapsed: retryMaxElapsed,
	}
}

// SetLimits validates all given limits before writing any of them
func (w *Writer) SetLimits(ctx context.Context, limits Limits) error {
	if err := limits.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	writes := []struct {
		file    string
		value   *int
		applied **int
	}{
		{CpuPl1File, limits.CpuPl1, &w.applied.CpuPl1},
		{CpuPl2File, limits.CpuPl2, &w.applied.CpuPl2},
		{GpuTgpFile, limits.GpuTgp, &w.applied.GpuTgp},
	}
	for _, item := range writes {
		if item.value == nil {
			continue
		}
		value := *item.value
		if err := w.write(ctx, item.file, strconv.Itoa(value)); err != nil {
			return fmt.Errorf("set %s to %d W: %w", item.file, value, err)
		}
		*item.applied = &value
	}
	ui.Info("Power limits set: %s", limits)
	return nil
}

func (w *Writer) SetMode(ctx context.Context, mode configuration.PowerMode) error {
	parsed, err := configuration.ParsePowerMode(string(mode))
	if err != nil {
		return err
	}
	if err := w.write(ctx, PerformanceModeFile, string(parsed)); err != nil {
		return fmt.Errorf("set power mode %s: %w", parsed, err)
	}
	ui.Info("Power mode set to %s", parsed)
	return nil
}

func (w *Writer) Mode() (configuration.PowerMode, error) {
	text, err := util.ReadStringFromFile(filepath.Join(w.platformPath, PerformanceModeFile))
	if err != nil {
		return "", err
	}
	return configuration.ParsePowerMode(text)
}

// Status reads the current power mode and fan speeds, unreadable values are left empty
func (w *Writer) Status() Status {
	status := Status{}
	if mode, err := w.Mode(); err == nil {
		status.Mode = mode
	} else {
		ui.Debug("Cannot read power mode: %v", err)
	}
	if cpu, gpu, err := fans.ReadSpeeds(w.platformPath); err == nil {
		status.CpuFanRpm, status.GpuFanRpm = cpu, gpu
	} else {
		ui.Debug("Cannot read fan speeds: %v", err)
	}

	w.mu.Lock()
	status.Applied = w.applied
	w.mu.Unlock()
	return status
}

func (w *Writer) write(ctx context.Context, file string, value string) error {
	path := filepath.Join(w.platformPath, file)
	operation := func() error {
		err := util.WriteStringToFile(value, path)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.EINVAL) || errors.Is(err, fs.ErrPermission) {
			// missing attribute or value rejected by the driver
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(operation, backoff.WithContext(w.retryPolicy(), ctx))
	if err != nil {
		return err
	}
	ui.Debug("Wrote %s to %s", value, path)
	return nil
}

func (w *Writer) retryPolicy() backoff.BackOff {
	if w.retryMaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = w.retryMaxElapsed
	return policy
}
