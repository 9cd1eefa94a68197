package configuration

type TelemetryConfig struct {
	// name of the hwmon chip exposing the EC sensors
	HwmonChip       string `json:"hwmonChip"`
	HwmonPath       string `json:"hwmonPath"`
	PowerSupplyPath string `json:"powerSupplyPath"`
	ProcPath        string `json:"procPath"`
}
