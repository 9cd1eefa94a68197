package configuration

type AlertsConfig struct {
	DesktopNotifications bool `json:"desktopNotifications"`
	QueueSize            int  `json:"queueSize"`
}
