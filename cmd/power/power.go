package power

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"github.com/vivekchamoli/legion2go/cmd/global"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/power"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

const operationTimeout = 10 * time.Second

var (
	modeFlag string
	pl1Flag  int
	pl2Flag  int
	tgpFlag  int
)

var Command = &cobra.Command{
	Use:   "power",
	Short: "Commands for the platform power mode and power limits",
}

func createWriter() *power.Writer {
	configuration.LoadConfig()
	config := configuration.CurrentConfig.Fans
	return power.NewWriter(config.PlatformPath, config.RetryMaxElapsed)
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current power mode and fan speeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := createWriter().Status()
		if status.Mode == "" {
			return errors.New("cannot read the power mode, is the legion_laptop module loaded?")
		}
		global.PrintTable(table.Table{
			Headers: []string{"Mode", "CPU Fan", "GPU Fan"},
			Rows: [][]string{{
				string(status.Mode),
				strconv.Itoa(status.CpuFanRpm) + " rpm",
				strconv.Itoa(status.GpuFanRpm) + " rpm",
			}},
		})
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set the power mode and power limits",
	Long: `Set the power mode and the power limits of the platform driver.
Only the given values are written, the power limits are given in watts
and are limited to pl1 <= 140, pl2 <= 200 and tgp <= 140.`,
	Example: "legion2go power set --mode performance --pl1 90 --pl2 160 --tgp 125",
	RunE: func(cmd *cobra.Command, args []string) error {
		limits := limitsFromFlags(cmd)
		if modeFlag == "" && limits.IsEmpty() {
			return errors.New("nothing to set, use --mode, --pl1, --pl2 or --tgp")
		}
		if !limits.IsEmpty() {
			if err := limits.Validate(); err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()
		writer := createWriter()

		if modeFlag != "" {
			mode, err := configuration.ParsePowerMode(modeFlag)
			if err != nil {
				return err
			}
			if err := writer.SetMode(ctx, mode); err != nil {
				return err
			}
			ui.Success("Power mode set to %s", mode)
		}
		if !limits.IsEmpty() {
			if err := writer.SetLimits(ctx, limits); err != nil {
				return err
			}
			ui.Success("Power limits set: %s", limits)
		}
		return nil
	},
}

// limitsFromFlags returns the limits of all flags given on the command line
func limitsFromFlags(cmd *cobra.Command) power.Limits {
	limits := power.Limits{}
	if cmd.Flags().Changed("pl1") {
		limits.CpuPl1 = &pl1Flag
	}
	if cmd.Flags().Changed("pl2") {
		limits.CpuPl2 = &pl2Flag
	}
	if cmd.Flags().Changed("tgp") {
		limits.GpuTgp = &tgpFlag
	}
	return limits
}

func init() {
	setCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "Power mode (quiet, balanced, performance, custom)")
	setCmd.Flags().IntVar(&pl1Flag, "pl1", 0, "CPU sustained power limit in watts")
	setCmd.Flags().IntVar(&pl2Flag, "pl2", 0, "CPU turbo power limit in watts")
	setCmd.Flags().IntVar(&tgpFlag, "tgp", 0, "GPU total graphics power in watts")

	Command.AddCommand(getCmd)
	Command.AddCommand(setCmd)
}
