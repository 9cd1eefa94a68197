package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/thermal"
)

func createRecorder(t *testing.T, batchSize int) *Recorder {
	recorder, err := NewRecorder(configuration.HistoryConfig{
		Enabled:   true,
		Path:      filepath.Join(t.TempDir(), "history", "history.sqlite"),
		BatchSize: batchSize,
		Retention: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = recorder.Close()
	})
	return recorder
}

func createResult(timestamp time.Time, cpuTemp float64) thermal.CycleResult {
	return thermal.CycleResult{
		Timestamp:   timestamp,
		Targets:     thermal.Targets{Cpu: 75, Gpu: 70, Workload: thermal.WorkloadBalanced},
		CpuTemp:     cpuTemp,
		GpuTemp:     60,
		VrmTemp:     50,
		CpuFanSpeed: 2150,
		GpuFanSpeed: 1700,
	}
}

func TestRecorder_BuffersUntilBatchSize(t *testing.T) {
	// GIVEN
	recorder := createRecorder(t, 3)
	now := time.Now()

	// WHEN
	require.NoError(t, recorder.Record(createResult(now, 60)))
	require.NoError(t, recorder.Record(createResult(now.Add(time.Second), 61)))

	// THEN
	recent, err := recorder.Recent(10)
	assert.NoError(t, err)
	assert.Empty(t, recent)

	require.NoError(t, recorder.Record(createResult(now.Add(2*time.Second), 62)))
	recent, err = recorder.Recent(10)
	assert.NoError(t, err)
	assert.Len(t, recent, 3)
	assert.Equal(t, 62.0, recent[0].CpuTemp)
	assert.Equal(t, thermal.WorkloadBalanced, recent[0].Targets.Workload)
	assert.EqualValues(t, 3, recorder.Written())
}

func TestRecorder_FlushAndFlags(t *testing.T) {
	// GIVEN
	recorder := createRecorder(t, 100)
	result := createResult(time.Now(), 95)
	result.Emergency = true
	result.CpuFanSpeed = thermal.MaxFanSpeed

	// WHEN
	require.NoError(t, recorder.Record(result))
	err := recorder.Flush()

	// THEN
	assert.NoError(t, err)
	recent, err := recorder.Recent(1)
	assert.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Emergency)
	assert.False(t, recent[0].Adapted)
	assert.Equal(t, thermal.MaxFanSpeed, recent[0].CpuFanSpeed)
	assert.Equal(t, result.Timestamp.UnixMilli(), recent[0].Timestamp.UnixMilli())
}

func TestRecorder_Prune(t *testing.T) {
	// GIVEN
	recorder := createRecorder(t, 1)
	now := time.Now()
	recorder.now = func() time.Time { return now }
	require.NoError(t, recorder.Record(createResult(now.Add(-2*time.Hour), 60)))
	require.NoError(t, recorder.Record(createResult(now.Add(-time.Minute), 61)))

	// WHEN
	removed, err := recorder.Prune()

	// THEN
	assert.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	recent, _ := recorder.Recent(10)
	assert.Len(t, recent, 1)
	assert.Equal(t, 61.0, recent[0].CpuTemp)
}

func TestRecorder_CloseFlushesPending(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "history.sqlite")
	config := configuration.HistoryConfig{Path: path, BatchSize: 100}
	recorder, err := NewRecorder(config)
	require.NoError(t, err)
	require.NoError(t, recorder.Record(createResult(time.Now(), 70)))

	// WHEN
	require.NoError(t, recorder.Close())
	require.NoError(t, recorder.Close())

	// THEN
	assert.ErrorIs(t, recorder.Record(createResult(time.Now(), 70)), ErrClosed)
	reopened, err := NewRecorder(config)
	require.NoError(t, err)
	defer reopened.Close()
	recent, err := reopened.Recent(10)
	assert.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestNewRecorder_EmptyPath(t *testing.T) {
	_, err := NewRecorder(configuration.HistoryConfig{})
	assert.EqualError(t, err, "history path must not be empty")
}
