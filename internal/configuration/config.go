package configuration

import (
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

type Configuration struct {
	DbPath string `json:"dbPath"`

	Thermal    ThermalConfig    `json:"thermal"`
	Learning   LearningConfig   `json:"learning"`
	Gpu        GpuConfig        `json:"gpu"`
	Fans       FansConfig       `json:"fans"`
	Power      PowerConfig      `json:"power"`
	Telemetry  TelemetryConfig  `json:"telemetry"`
	History    HistoryConfig    `json:"history"`
	Alerts     AlertsConfig     `json:"alerts"`
	Api        ApiConfig        `json:"api"`
	Statistics StatisticsConfig `json:"statistics"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("legion2go")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/legion2go/")
	}

	viper.SetEnvPrefix("legion2go")
	viper.AutomaticEnv()

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbpath", "/var/lib/legion2go/legion2go.db")

	setThermalDefaults()

	viper.SetDefault("learning.enabled", true)
	viper.SetDefault("learning.sampleInterval", 5*time.Second)
	viper.SetDefault("learning.saveInterval", 5*time.Minute)
	viper.SetDefault("learning.smoothingWindowSize", 10)
	viper.SetDefault("learning.defaultMode", string(PowerModeBalanced))

	viper.SetDefault("gpu.enabled", true)
	viper.SetDefault("gpu.startDelay", 2*time.Second)
	viper.SetDefault("gpu.refreshInterval", 5*time.Second)
	viper.SetDefault("gpu.stopTimeout", 5*time.Second)
	viper.SetDefault("gpu.capabilityTtl", 60*time.Second)
	viper.SetDefault("gpu.pciDevicesPath", "/sys/bus/pci/devices")

	viper.SetDefault("fans.platformPath", "/sys/devices/platform/legion_laptop_16irx9")
	viper.SetDefault("fans.maxRpm", 5500)
	viper.SetDefault("fans.retryMaxElapsed", 2*time.Second)

	viper.SetDefault("telemetry.hwmonChip", "legion_laptop")
	viper.SetDefault("telemetry.hwmonPath", "/sys/class/hwmon")
	viper.SetDefault("telemetry.powerSupplyPath", "/sys/class/power_supply")
	viper.SetDefault("telemetry.procPath", "/proc")

	viper.SetDefault("history.enabled", false)
	viper.SetDefault("history.path", "/var/lib/legion2go/history.sqlite")
	viper.SetDefault("history.flushInterval", 30*time.Second)
	viper.SetDefault("history.batchSize", 100)
	viper.SetDefault("history.retention", 7*24*time.Hour)

	viper.SetDefault("alerts.desktopNotifications", true)
	viper.SetDefault("alerts.queueSize", 32)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)
}

// DetectConfigFile returns the path of the config file viper would use,
// or an empty string if none was found
func DetectConfigFile() string {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return ""
		}
		ui.Fatal("Error reading config file, %s", err)
	}
	// this is only populated _after_ ReadInConfig()
	return viper.ConfigFileUsed()
}

func LoadConfig() {
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			PowerModeHookFunc(),
			HysteresisPolicyHookFunc(),
		),
	))
	if err != nil {
		ui.Fatal("unable to decode into struct, %v", err)
	}
}
