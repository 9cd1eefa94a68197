package thermal

import (
	"sync"

	"github.com/vivekchamoli/legion2go/internal/alerts"
	"github.com/vivekchamoli/legion2go/internal/fans"
)

type MockFanSink struct {
	mu       sync.Mutex
	Commands []fans.Command
	panics   bool
}

func (sink *MockFanSink) SetTargets(cpuRpm float64, gpuRpm float64) {
	if sink.panics {
		panic("fan sink broken")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.Commands = append(sink.Commands, fans.Command{CpuRpm: cpuRpm, GpuRpm: gpuRpm})
}

func (sink *MockFanSink) SetMax() {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.Commands = append(sink.Commands, fans.Command{Max: true})
}

func (sink *MockFanSink) Last() fans.Command {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.Commands[len(sink.Commands)-1]
}

type MockAlertSink struct {
	mu     sync.Mutex
	Alerts []alerts.Alert
}

func (sink *MockAlertSink) Publish(alert alerts.Alert) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.Alerts = append(sink.Alerts, alert)
}
