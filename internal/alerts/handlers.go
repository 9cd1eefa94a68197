package alerts

import (
	"github.com/vivekchamoli/legion2go/internal/ui"
)

func LogHandler(alert Alert) {
	readings := alert.FormatReadings()
	switch alert.Severity {
	case SeverityCritical:
		ui.Error("%s: %s %s", alert.Title, alert.Message, readings)
	case SeverityWarning:
		ui.Warning("%s: %s %s", alert.Title, alert.Message, readings)
	default:
		ui.Info("%s: %s %s", alert.Title, alert.Message, readings)
	}
}

// NotifyHandler forwards critical and warning alerts as desktop notifications
func NotifyHandler(alert Alert) {
	switch alert.Severity {
	case SeverityCritical:
		ui.NotifyError(alert.Title, alert.Message)
	case SeverityWarning:
		ui.NotifyWarn(alert.Title, alert.Message)
	}
}
