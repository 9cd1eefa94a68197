package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"github.com/vivekchamoli/legion2go/cmd/global"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/gpu"
	"github.com/vivekchamoli/legion2go/internal/hwmon"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect devices",
	Long:  `Detects hwmon chips, NVIDIA GPUs and hybrid graphics support and prints them as a list`,
	Run: func(cmd *cobra.Command, args []string) {
		configuration.LoadConfig()

		printHwmonChips(hwmon.GetChips())
		printNvidiaDevices(configuration.CurrentConfig.Gpu.PciDevicesPath)
	},
}

func printHwmonChips(chips []*hwmon.Chip) {
	for _, chip := range chips {
		if len(chip.Name) <= 0 {
			continue
		}

		ui.Printfln("> %s (%s)", chip.Name, chip.Identifier)

		var fanRows [][]string
		for idx, fan := range chip.Fans {
			fanRows = append(fanRows, []string{
				"", strconv.Itoa(idx + 1), labelAndFile(fan), strconv.Itoa(int(fan.Value)),
			})
		}
		global.PrintTable(table.Table{
			Headers: []string{"Fans   ", "Index", "Label", "RPM"},
			Rows:    fanRows,
		})

		var sensorRows [][]string
		for idx, sensor := range chip.Temps {
			sensorRows = append(sensorRows, []string{
				"", strconv.Itoa(idx + 1), labelAndFile(sensor), fmt.Sprintf("%.1f", sensor.Value),
			})
		}
		global.PrintTable(table.Table{
			Headers: []string{"Sensors", "Index", "Label", "Value"},
			Rows:    sensorRows,
		})
	}
}

func labelAndFile(input hwmon.Input) string {
	_, file := filepath.Split(input.Path)
	return fmt.Sprintf("%s (%s)", input.Label, file)
}

func printNvidiaDevices(devicesPath string) {
	devices, err := gpu.FindNvidiaDevices(devicesPath)
	if err != nil {
		ui.Warning("Unable to scan PCI devices: %v", err)
		return
	}

	ui.Printfln("> NVIDIA")
	if len(devices) == 0 {
		ui.Printfln("No NVIDIA GPU found")
		return
	}

	var rows [][]string
	for _, device := range gpu.ResolveNames(devices) {
		rows = append(rows, []string{
			"", device.Address, device.VendorId + ":" + device.DeviceId, device.Name,
		})
	}
	global.PrintTable(table.Table{
		Headers: []string{"PCI    ", "Address", "ID", "Name"},
		Rows:    rows,
	})

	capable, err := gpu.NewSysfsCapabilityProbe(devicesPath).Probe()
	if err != nil {
		ui.Warning("Unable to probe hybrid graphics: %v", err)
	}

	status := []string{"", strconv.FormatBool(capable), "N/A", "N/A"}
	driver := gpu.NewNvmlDriver()
	if err := driver.Initialize(); err != nil {
		ui.Debug("NVML not available: %v", err)
	} else {
		defer func() {
			_ = driver.Shutdown()
		}()
		if device, err := driver.Device(0); err == nil {
			if name, err := device.Name(); err == nil {
				status[2] = name
			}
			if pstate, err := device.PerformanceState(); err == nil {
				status[3] = pstate
			}
		} else {
			ui.Debug("NVML device not available: %v", err)
		}
	}
	global.PrintTable(table.Table{
		Headers: []string{"Driver ", "Hybrid", "NVML Name", "P-State"},
		Rows:    [][]string{status},
	})
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
