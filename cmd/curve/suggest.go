package curve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"github.com/vivekchamoli/legion2go/cmd/global"
)

var (
	temperature  float64
	currentSpeed float64
	trend        float64
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest a fan speed for the given temperature based on the learned data",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, mode, err := loadEngine()
		if err != nil {
			return err
		}

		suggestion := engine.Suggest(temperature, currentSpeed, trend, mode)
		adjust := "no"
		if suggestion.ShouldAdjust {
			adjust = "yes"
		}
		global.PrintTable(table.Table{
			Headers: []string{"Adjust", "Recommended (%)", "Reason"},
			Rows: [][]string{{
				adjust,
				fmt.Sprintf("%.1f", suggestion.RecommendedSpeed),
				suggestion.Reason,
			}},
		})
		return nil
	},
}

func init() {
	suggestCmd.Flags().Float64VarP(&temperature, "temp", "t", 0, "Current temperature in °C")
	suggestCmd.Flags().Float64VarP(&currentSpeed, "speed", "s", 0, "Current fan speed in %")
	suggestCmd.Flags().Float64VarP(&trend, "trend", "", 0, "Temperature trend in °C per sample interval")
	_ = suggestCmd.MarkFlagRequired("temp")
	_ = suggestCmd.MarkFlagRequired("speed")

	Command.AddCommand(suggestCmd)
}
