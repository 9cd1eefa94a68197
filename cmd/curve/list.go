package curve

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
	"github.com/vivekchamoli/legion2go/cmd/global"
	"github.com/vivekchamoli/legion2go/internal/learning"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the learned data and the resulting fan curve to console",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, mode, err := loadEngine()
		if err != nil {
			return err
		}

		stats := engine.Stats()
		global.PrintTable(table.Table{
			Headers: []string{"Samples", "Buckets", "Avg. Effectiveness", "Sufficient Data"},
			Rows: [][]string{{
				strconv.Itoa(stats.TotalSamples),
				strconv.Itoa(stats.UniqueTemperatureBuckets),
				fmt.Sprintf("%.1f", stats.AverageEffectiveness),
				strconv.FormatBool(stats.HasSufficientData),
			}},
		})

		var pointRows [][]string
		for _, point := range engine.DataPoints() {
			pointRows = append(pointRows, []string{
				fmt.Sprintf("%d-%d", point.Temperature, point.Temperature+learning.BucketSize-1),
				fmt.Sprintf("%.1f", point.FanSpeed),
				fmt.Sprintf("%.1f", point.Effectiveness),
				strconv.Itoa(point.SampleCount),
			})
		}
		global.PrintTable(table.Table{
			Headers: []string{"Temp (°C)", "Fan (%)", "Effectiveness", "Samples"},
			Rows:    pointRows,
		})

		curve, err := engine.GenerateCurve(mode)
		if errors.Is(err, learning.ErrInsufficientData) {
			ui.Warning("Not enough data to generate a curve yet (%d/%d samples)", stats.TotalSamples, learning.LearningThreshold)
			return nil
		} else if err != nil {
			return err
		}

		values := make([]float64, 0, len(curve))
		var curveRows [][]string
		for _, point := range curve {
			values = append(values, point.FanSpeed)
			curveRows = append(curveRows, []string{
				fmt.Sprintf("%.0f", point.Temperature),
				fmt.Sprintf("%.1f", point.FanSpeed),
			})
		}
		ui.Printfln("Learned curve (%s)", mode)
		global.PrintTable(table.Table{
			Headers: []string{"Temp (°C)", "Fan (%)"},
			Rows:    curveRows,
		})

		caption := fmt.Sprintf("Fan %% over %d-%d°C", learning.CurveStart, learning.CurveEnd)
		graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
		ui.Printfln("%s", graph)
		return nil
	},
}

func init() {
	Command.AddCommand(listCmd)
}
