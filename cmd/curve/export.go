package curve

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/vivekchamoli/legion2go/internal/configuration"
	"github.com/vivekchamoli/legion2go/internal/learning"
	"github.com/vivekchamoli/legion2go/internal/ui"
	"github.com/vivekchamoli/legion2go/internal/util"
)

var outputPath string

type curveExport struct {
	Mode       configuration.PowerMode   `json:"mode"`
	ExportedAt time.Time                 `json:"exportedAt"`
	Stats      learning.Stats            `json:"stats"`
	Curve      []learning.CurvePoint     `json:"curve,omitempty"`
	Points     []learning.DataPoint      `json:"points"`
	Samples    []learning.TrainingSample `json:"samples"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the learned data and curve as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, mode, err := loadEngine()
		if err != nil {
			return err
		}

		export := curveExport{
			Mode:       mode,
			ExportedAt: time.Now(),
			Stats:      engine.Stats(),
			Points:     engine.DataPoints(),
			Samples:    engine.Export(),
		}
		curve, err := engine.GenerateCurve(mode)
		if err == nil {
			export.Curve = curve
		} else if !errors.Is(err, learning.ErrInsufficientData) {
			return err
		}

		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return err
		}
		return writeExport(data, outputPath)
	},
}

// writeExport prints data verbatim if path is empty, otherwise writes it to path
func writeExport(data []byte, path string) error {
	if path == "" {
		ui.Printfln("%s", data)
		return nil
	}
	if err := util.WriteBytesToFileAtomic(data, path); err != nil {
		return err
	}
	ui.Success("Exported learned data to %s", path)
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file, prints to stdout if empty")

	Command.AddCommand(exportCmd)
}
