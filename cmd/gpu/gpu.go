package gpu

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"github.com/vivekchamoli/legion2go/cmd/global"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/gpu"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

const operationTimeout = 30 * time.Second

var Command = &cobra.Command{
	Use:   "gpu",
	Short: "Commands for the NVIDIA dGPU",
}

// refreshController creates a controller for a one-off operation and refreshes its status
func refreshController(ctx context.Context) (*gpu.Controller, gpu.Status, error) {
	configuration.LoadConfig()
	config := configuration.CurrentConfig.Gpu

	capability := gpu.NewCapabilityCache(gpu.NewSysfsCapabilityProbe(config.PciDevicesPath), config.CapabilityTtl)
	devices := gpu.NewSysfsDeviceManager(config.PciDevicesPath)
	controller := gpu.NewController(gpu.NewNvmlDriver(), capability, devices, nil, config.StopTimeout)

	status, err := controller.RefreshNow(ctx)
	if err != nil {
		controller.Close()
		return nil, status, err
	}
	return controller, status, nil
}

func printStatus(status gpu.Status) {
	var processes []string
	for _, process := range status.Processes {
		processes = append(processes, process.Name)
	}
	global.PrintTable(table.Table{
		Headers: []string{"State", "Device", "P-State", "Instance", "Processes"},
		Rows: [][]string{{
			status.State.String(),
			orNA(status.DeviceName),
			orNA(status.PerformanceState),
			orNA(status.InstanceId),
			orNA(strings.Join(processes, ", ")),
		}},
	})
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), operationTimeout)
}

func init() {
	Command.AddCommand(statusCmd)
	Command.AddCommand(restartCmd)
	Command.AddCommand(killCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current state of the dGPU",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		controller, status, err := refreshController(ctx)
		if err != nil {
			return err
		}
		defer controller.Close()

		printStatus(status)
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Remove the dGPU from the PCI bus and rescan it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		controller, status, err := refreshController(ctx)
		if err != nil {
			return err
		}
		defer controller.Close()

		if err := controller.RestartDevice(ctx); err != nil {
			return err
		}
		ui.Success("Restarted dGPU %s", status.InstanceId)
		return nil
	},
}

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Kill all processes that keep the dGPU awake",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		controller, status, err := refreshController(ctx)
		if err != nil {
			return err
		}
		defer controller.Close()

		killed, err := controller.KillBoundProcesses(ctx)
		if err != nil {
			return err
		}
		ui.Success("Killed %d of %d processes", killed, len(status.Processes))
		return nil
	},
}
